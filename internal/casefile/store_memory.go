package casefile

import (
	"context"
	"slices"
	"sync"

	"tdrs/pkg/platform/sentinel"
)

// InMemoryStore keeps case records in insertion order. It is used by tests
// and local tooling; deletes cascade the way the Postgres schema does.
type InMemoryStore struct {
	mu       sync.RWMutex
	nextID   int64
	quarters []Quarter
	months   []Month
	families []Family
	adults   []Adult
	children []Child
	onDelete []FamilyDeleteHook
}

// FamilyDeleteHook receives the ids removed by a family delete. Stores that
// reference case records register one to mirror ON DELETE SET NULL.
type FamilyDeleteHook func(familyID int64, adultIDs, childIDs []int64)

// OnFamilyDeleted registers fn to run after every DeleteFamily.
func (s *InMemoryStore) OnFamilyDeleted(fn FamilyDeleteHook) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.onDelete = append(s.onDelete, fn)
}

func NewInMemoryStore() *InMemoryStore {
	return &InMemoryStore{}
}

func (s *InMemoryStore) id() int64 {
	s.nextID++
	return s.nextID
}

func (s *InMemoryStore) CreateQuarter(_ context.Context, q *Quarter) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, existing := range s.quarters {
		if existing.Label == q.Label {
			return sentinel.ErrConflict
		}
	}
	q.ID = s.id()
	s.quarters = append(s.quarters, *q)
	return nil
}

func (s *InMemoryStore) CreateMonth(_ context.Context, m *Month) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	found := false
	for _, q := range s.quarters {
		found = found || q.ID == m.QuarterID
	}
	if !found {
		return sentinel.ErrNotFound
	}
	for _, existing := range s.months {
		if existing.Label == m.Label {
			return sentinel.ErrConflict
		}
	}
	m.ID = s.id()
	s.months = append(s.months, *m)
	return nil
}

func (s *InMemoryStore) FindQuarter(_ context.Context, id int64) (*Quarter, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, q := range s.quarters {
		if q.ID == id {
			return &q, nil
		}
	}
	return nil, sentinel.ErrNotFound
}

func (s *InMemoryStore) FindMonthByLabel(_ context.Context, label string) (*Month, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, m := range s.months {
		if m.Label == label {
			return &m, nil
		}
	}
	return nil, sentinel.ErrNotFound
}

func (s *InMemoryStore) MonthsOfQuarter(_ context.Context, quarterID int64) ([]Month, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []Month
	for _, m := range s.months {
		if m.QuarterID == quarterID {
			out = append(out, m)
		}
	}
	return out, nil
}

func (s *InMemoryStore) InsertFamily(_ context.Context, f *Family) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.hasMonth(f.MonthID) {
		return sentinel.ErrNotFound
	}
	for _, existing := range s.families {
		if existing.MonthID == f.MonthID && existing.CaseNumber() == f.CaseNumber() {
			return sentinel.ErrConflict
		}
	}
	f.ID = s.id()
	stored := *f
	stored.Fields = f.Fields.Clone()
	s.families = append(s.families, stored)
	return nil
}

func (s *InMemoryStore) InsertAdult(_ context.Context, a *Adult) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.hasFamily(a.FamilyID) {
		return sentinel.ErrNotFound
	}
	for _, existing := range s.adults {
		if existing.FamilyID == a.FamilyID && existing.SSN() == a.SSN() {
			return sentinel.ErrConflict
		}
	}
	a.ID = s.id()
	stored := *a
	stored.Fields = a.Fields.Clone()
	s.adults = append(s.adults, stored)
	return nil
}

func (s *InMemoryStore) InsertChild(_ context.Context, c *Child) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.hasFamily(c.FamilyID) {
		return sentinel.ErrNotFound
	}
	for _, existing := range s.children {
		if existing.FamilyID == c.FamilyID && existing.SSN() == c.SSN() {
			return sentinel.ErrConflict
		}
	}
	c.ID = s.id()
	stored := *c
	stored.Fields = c.Fields.Clone()
	s.children = append(s.children, stored)
	return nil
}

func (s *InMemoryStore) DeleteFamily(_ context.Context, id int64) error {
	s.mu.Lock()
	if !s.hasFamily(id) {
		s.mu.Unlock()
		return sentinel.ErrNotFound
	}
	var adultIDs, childIDs []int64
	for _, a := range s.adults {
		if a.FamilyID == id {
			adultIDs = append(adultIDs, a.ID)
		}
	}
	for _, c := range s.children {
		if c.FamilyID == id {
			childIDs = append(childIDs, c.ID)
		}
	}
	s.families = filter(s.families, func(f Family) bool { return f.ID != id })
	s.adults = filter(s.adults, func(a Adult) bool { return a.FamilyID != id })
	s.children = filter(s.children, func(c Child) bool { return c.FamilyID != id })
	hooks := slices.Clone(s.onDelete)
	s.mu.Unlock()

	for _, fn := range hooks {
		fn(id, adultIDs, childIDs)
	}
	return nil
}

func (s *InMemoryStore) FindFamilyByCaseNumber(_ context.Context, monthID int64, caseNumber string) (*Family, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, f := range s.families {
		if f.MonthID == monthID && f.CaseNumber() == caseNumber {
			out := f
			out.Fields = f.Fields.Clone()
			return &out, nil
		}
	}
	return nil, sentinel.ErrNotFound
}

func (s *InMemoryStore) FamiliesOfMonth(_ context.Context, monthID int64) ([]Family, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return cloneFamilies(filter(s.families, func(f Family) bool { return f.MonthID == monthID })), nil
}

func (s *InMemoryStore) AdultsOfFamily(_ context.Context, familyID int64) ([]Adult, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return cloneAdults(filter(s.adults, func(a Adult) bool { return a.FamilyID == familyID })), nil
}

func (s *InMemoryStore) ChildrenOfFamily(_ context.Context, familyID int64) ([]Child, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return cloneChildren(filter(s.children, func(c Child) bool { return c.FamilyID == familyID })), nil
}

func (s *InMemoryStore) AdultsOfMonth(_ context.Context, monthID int64) ([]Adult, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	inMonth := s.familiesIn(monthID)
	return cloneAdults(filter(s.adults, func(a Adult) bool { return inMonth[a.FamilyID] })), nil
}

func (s *InMemoryStore) ChildrenOfMonth(_ context.Context, monthID int64) ([]Child, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	inMonth := s.familiesIn(monthID)
	return cloneChildren(filter(s.children, func(c Child) bool { return inMonth[c.FamilyID] })), nil
}

func (s *InMemoryStore) hasMonth(id int64) bool {
	for _, m := range s.months {
		if m.ID == id {
			return true
		}
	}
	return false
}

func (s *InMemoryStore) hasFamily(id int64) bool {
	for _, f := range s.families {
		if f.ID == id {
			return true
		}
	}
	return false
}

func (s *InMemoryStore) familiesIn(monthID int64) map[int64]bool {
	out := make(map[int64]bool)
	for _, f := range s.families {
		if f.MonthID == monthID {
			out[f.ID] = true
		}
	}
	return out
}

func filter[T any](in []T, keep func(T) bool) []T {
	var out []T
	for _, v := range in {
		if keep(v) {
			out = append(out, v)
		}
	}
	return out
}

func cloneFamilies(in []Family) []Family {
	for i := range in {
		in[i].Fields = in[i].Fields.Clone()
	}
	return in
}

func cloneAdults(in []Adult) []Adult {
	for i := range in {
		in[i].Fields = in[i].Fields.Clone()
	}
	return in
}

func cloneChildren(in []Child) []Child {
	for i := range in {
		in[i].Fields = in[i].Fields.Clone()
	}
	return in
}
