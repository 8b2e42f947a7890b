package validation

import "context"

// Ledger is the append-only findings store.
type Ledger interface {
	// NextVersion reserves the next version for reportMonth. Concurrent
	// callers never receive the same version.
	NextVersion(ctx context.Context, reportMonth string) (int, error)
	Append(ctx context.Context, findings []Finding) error
	Findings(ctx context.Context, reportMonth string, version int) ([]Finding, error)
	Stats(ctx context.Context) ([]MonthStats, error)
}
