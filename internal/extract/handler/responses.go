package handler

import (
	"time"

	"tdrs/internal/extract"
)

// FileResponse describes a stored extract without its content.
type FileResponse struct {
	ID          int64     `json:"id"`
	QuarterID   int64     `json:"quarter_id"`
	Name        string    `json:"name"`
	Checksum    string    `json:"checksum"`
	RecordCount int       `json:"record_count"`
	CreatedBy   string    `json:"created_by"`
	CreatedAt   time.Time `json:"created_at"`
}

func fromFile(f extract.GeneratedFile) FileResponse {
	return FileResponse{
		ID:          f.ID,
		QuarterID:   f.QuarterID,
		Name:        f.Name,
		Checksum:    f.Checksum,
		RecordCount: f.RecordCount,
		CreatedBy:   f.CreatedBy,
		CreatedAt:   f.CreatedAt,
	}
}
