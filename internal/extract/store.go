package extract

import "context"

// Store persists generated files. List omits Content.
type Store interface {
	Save(ctx context.Context, f *GeneratedFile) error
	ListByQuarter(ctx context.Context, quarterID int64) ([]GeneratedFile, error)
	FindByID(ctx context.Context, id int64) (*GeneratedFile, error)
}
