package casefile

import "context"

// Store is the persistence surface for case records. Implementations return
// sentinel.ErrNotFound for missing rows and sentinel.ErrConflict when a
// uniqueness rule rejects a write.
type Store interface {
	CreateQuarter(ctx context.Context, q *Quarter) error
	CreateMonth(ctx context.Context, m *Month) error
	FindQuarter(ctx context.Context, id int64) (*Quarter, error)
	FindMonthByLabel(ctx context.Context, label string) (*Month, error)
	MonthsOfQuarter(ctx context.Context, quarterID int64) ([]Month, error)

	InsertFamily(ctx context.Context, f *Family) error
	InsertAdult(ctx context.Context, a *Adult) error
	InsertChild(ctx context.Context, c *Child) error
	DeleteFamily(ctx context.Context, id int64) error

	FindFamilyByCaseNumber(ctx context.Context, monthID int64, caseNumber string) (*Family, error)
	FamiliesOfMonth(ctx context.Context, monthID int64) ([]Family, error)
	AdultsOfFamily(ctx context.Context, familyID int64) ([]Adult, error)
	ChildrenOfFamily(ctx context.Context, familyID int64) ([]Child, error)
	AdultsOfMonth(ctx context.Context, monthID int64) ([]Adult, error)
	ChildrenOfMonth(ctx context.Context, monthID int64) ([]Child, error)
}
