package importer

import "context"

// Store persists upload records and their rejected rows.
type Store interface {
	CreateUpload(ctx context.Context, u *FileUpload) error
	FinishUpload(ctx context.Context, u *FileUpload) error
	FindUpload(ctx context.Context, id int64) (*FileUpload, error)
	AddError(ctx context.Context, e *ImportError) error
	ErrorsOfUpload(ctx context.Context, uploadID int64) ([]ImportError, error)
}
