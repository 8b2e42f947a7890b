package validation

import (
	"context"
	"slices"
	"sync"
)

// InMemoryLedger keeps findings in process. Used by tests and single-process
// tooling.
type InMemoryLedger struct {
	mu       sync.Mutex
	findings []Finding
	reserved map[string]int
	nextID   int64
}

func NewInMemoryLedger() *InMemoryLedger {
	return &InMemoryLedger{reserved: make(map[string]int)}
}

func (l *InMemoryLedger) NextVersion(_ context.Context, reportMonth string) (int, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	v := l.reserved[reportMonth]
	for _, f := range l.findings {
		if f.ReportMonth == reportMonth && f.Version > v {
			v = f.Version
		}
	}
	l.reserved[reportMonth] = v + 1
	return v + 1, nil
}

func (l *InMemoryLedger) Append(_ context.Context, findings []Finding) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	for _, f := range findings {
		l.nextID++
		f.ID = l.nextID
		l.findings = append(l.findings, f)
	}
	return nil
}

// DetachFamily nulls the references findings hold to a deleted family and
// its members, matching ON DELETE SET NULL. Wire it with
// casefile.InMemoryStore.OnFamilyDeleted.
func (l *InMemoryLedger) DetachFamily(familyID int64, adultIDs, childIDs []int64) {
	l.mu.Lock()
	defer l.mu.Unlock()
	for i := range l.findings {
		f := &l.findings[i]
		if f.FamilyID != nil && *f.FamilyID == familyID {
			f.FamilyID = nil
		}
		if f.AdultID != nil && slices.Contains(adultIDs, *f.AdultID) {
			f.AdultID = nil
		}
		if f.ChildID != nil && slices.Contains(childIDs, *f.ChildID) {
			f.ChildID = nil
		}
	}
}

func (l *InMemoryLedger) Findings(_ context.Context, reportMonth string, version int) ([]Finding, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	var out []Finding
	for _, f := range l.findings {
		if f.ReportMonth == reportMonth && f.Version == version {
			out = append(out, f)
		}
	}
	return out, nil
}

func (l *InMemoryLedger) Stats(_ context.Context) ([]MonthStats, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	latest := make(map[string]*MonthStats)
	for _, f := range l.findings {
		st, ok := latest[f.ReportMonth]
		if !ok || f.Version > st.Version {
			st = &MonthStats{ReportMonth: f.ReportMonth, Version: f.Version}
			latest[f.ReportMonth] = st
		}
		if f.Version != st.Version {
			continue
		}
		switch f.Severity {
		case SeverityFatal:
			st.Fatal++
		case SeverityNoError:
			st.NoError++
		}
		if f.CreatedAt.After(st.LastRunAt) {
			st.LastRunAt = f.CreatedAt
		}
	}
	out := make([]MonthStats, 0, len(latest))
	for _, st := range latest {
		out = append(out, *st)
	}
	slices.SortFunc(out, func(a, b MonthStats) int {
		switch {
		case a.ReportMonth < b.ReportMonth:
			return -1
		case a.ReportMonth > b.ReportMonth:
			return 1
		}
		return 0
	})
	return out, nil
}
