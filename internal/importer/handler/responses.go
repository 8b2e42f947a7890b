package handler

import (
	"time"

	"tdrs/internal/importer"
)

type UploadResponse struct {
	ID         int64     `json:"id"`
	MonthID    int64     `json:"month_id"`
	ModelType  string    `json:"model_type"`
	FileName   string    `json:"file_name"`
	Checksum   string    `json:"checksum"`
	TotalRows  int       `json:"total_rows"`
	SavedRows  int       `json:"saved_rows"`
	FailedRows int       `json:"failed_rows"`
	CreatedBy  string    `json:"created_by"`
	CreatedAt  time.Time `json:"created_at"`
}

type ImportErrorResponse struct {
	RowNumber int               `json:"row_number"`
	RowData   map[string]string `json:"row_data"`
	Message   string            `json:"message"`
}

type ImportResponse struct {
	Upload UploadResponse        `json:"upload"`
	Errors []ImportErrorResponse `json:"errors"`
}

func fromUpload(u importer.FileUpload) UploadResponse {
	return UploadResponse{
		ID:         u.ID,
		MonthID:    u.MonthID,
		ModelType:  string(u.ModelType),
		FileName:   u.FileName,
		Checksum:   u.Checksum,
		TotalRows:  u.TotalRows,
		SavedRows:  u.SavedRows,
		FailedRows: u.FailedRows,
		CreatedBy:  u.CreatedBy,
		CreatedAt:  u.CreatedAt,
	}
}

func fromErrors(errs []importer.ImportError) []ImportErrorResponse {
	out := make([]ImportErrorResponse, 0, len(errs))
	for _, e := range errs {
		out = append(out, ImportErrorResponse{RowNumber: e.RowNumber, RowData: e.RowData, Message: e.Message})
	}
	return out
}
