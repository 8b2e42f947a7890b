package extract

import (
	"context"
	"slices"
	"sync"

	"tdrs/pkg/platform/sentinel"
)

type InMemoryStore struct {
	mu     sync.RWMutex
	nextID int64
	files  []GeneratedFile
}

func NewInMemoryStore() *InMemoryStore {
	return &InMemoryStore{}
}

func (s *InMemoryStore) Save(_ context.Context, f *GeneratedFile) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.nextID++
	f.ID = s.nextID
	stored := *f
	stored.Content = slices.Clone(f.Content)
	s.files = append(s.files, stored)
	return nil
}

func (s *InMemoryStore) ListByQuarter(_ context.Context, quarterID int64) ([]GeneratedFile, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []GeneratedFile
	for _, f := range s.files {
		if f.QuarterID == quarterID {
			f.Content = nil
			out = append(out, f)
		}
	}
	return out, nil
}

func (s *InMemoryStore) FindByID(_ context.Context, id int64) (*GeneratedFile, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, f := range s.files {
		if f.ID == id {
			f.Content = slices.Clone(f.Content)
			return &f, nil
		}
	}
	return nil, sentinel.ErrNotFound
}
