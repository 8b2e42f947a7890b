package importer

import (
	"fmt"
	"io"
	"time"
)

// ModelType names the entity an import file holds.
type ModelType string

const (
	ModelFamily ModelType = "family"
	ModelAdult  ModelType = "adult"
	ModelChild  ModelType = "child"
)

func (m ModelType) valid() bool {
	return m == ModelFamily || m == ModelAdult || m == ModelChild
}

// ParentColumn locates the family of an adult or child row within the month.
const ParentColumn = "case_number"

// Request is one file to import into a report month.
type Request struct {
	ReportMonth string
	ModelType   ModelType
	FileName    string
	// Size is the declared size; the body is also capped while reading.
	Size int64
	Body io.Reader
	User string
}

// FileUpload records one accepted file and its row counts.
type FileUpload struct {
	ID         int64
	MonthID    int64
	ModelType  ModelType
	FileName   string
	Checksum   string
	TotalRows  int
	SavedRows  int
	FailedRows int
	CreatedBy  string
	CreatedAt  time.Time
}

// ImportError is one rejected row. It is never retried automatically.
type ImportError struct {
	ID        int64
	UploadID  int64
	ModelType ModelType
	RowNumber int
	RowData   map[string]string
	Message   string
	CreatedBy string
	CreatedAt time.Time
}

// Result is the outcome of an accepted file.
type Result struct {
	Upload FileUpload
	Errors []ImportError
}

// RowError is a failure confined to one data row. Row is 1-based and does
// not count the header.
type RowError struct {
	Row int
	Err error
}

func (e *RowError) Error() string {
	return fmt.Sprintf("row %d: %v", e.Row, e.Err)
}

func (e *RowError) Unwrap() error { return e.Err }
