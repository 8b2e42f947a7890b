package importer

import (
	"context"
	"maps"
	"sync"

	"tdrs/pkg/platform/sentinel"
)

type InMemoryStore struct {
	mu      sync.RWMutex
	nextID  int64
	uploads map[int64]FileUpload
	errors  []ImportError
}

func NewInMemoryStore() *InMemoryStore {
	return &InMemoryStore{uploads: make(map[int64]FileUpload)}
}

func (s *InMemoryStore) CreateUpload(_ context.Context, u *FileUpload) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.nextID++
	u.ID = s.nextID
	s.uploads[u.ID] = *u
	return nil
}

func (s *InMemoryStore) FinishUpload(_ context.Context, u *FileUpload) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	stored, ok := s.uploads[u.ID]
	if !ok {
		return sentinel.ErrNotFound
	}
	stored.TotalRows, stored.SavedRows, stored.FailedRows = u.TotalRows, u.SavedRows, u.FailedRows
	s.uploads[u.ID] = stored
	return nil
}

func (s *InMemoryStore) FindUpload(_ context.Context, id int64) (*FileUpload, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	u, ok := s.uploads[id]
	if !ok {
		return nil, sentinel.ErrNotFound
	}
	return &u, nil
}

func (s *InMemoryStore) AddError(_ context.Context, e *ImportError) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.uploads[e.UploadID]; !ok {
		return sentinel.ErrNotFound
	}
	s.nextID++
	e.ID = s.nextID
	stored := *e
	stored.RowData = maps.Clone(e.RowData)
	s.errors = append(s.errors, stored)
	return nil
}

func (s *InMemoryStore) ErrorsOfUpload(_ context.Context, uploadID int64) ([]ImportError, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []ImportError
	for _, e := range s.errors {
		if e.UploadID == uploadID {
			e.RowData = maps.Clone(e.RowData)
			out = append(out, e)
		}
	}
	return out, nil
}
