package importer

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	"tdrs/internal/platform/postgres"
	"tdrs/pkg/platform/sentinel"
	txcontext "tdrs/pkg/platform/tx"
)

type PostgresStore struct {
	db *sql.DB
}

func NewPostgres(db *sql.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

func (s *PostgresStore) CreateUpload(ctx context.Context, u *FileUpload) error {
	err := txcontext.Q(ctx, s.db).QueryRowContext(ctx, `
		INSERT INTO file_uploads (month_id, model_type, file_name, checksum, total_rows, saved_rows, failed_rows, created_by, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		RETURNING id`,
		u.MonthID, string(u.ModelType), u.FileName, u.Checksum, u.TotalRows, u.SavedRows, u.FailedRows, u.CreatedBy, u.CreatedAt,
	).Scan(&u.ID)
	if err != nil {
		return fmt.Errorf("insert file upload: %w", postgres.Classify(err))
	}
	return nil
}

func (s *PostgresStore) FinishUpload(ctx context.Context, u *FileUpload) error {
	res, err := txcontext.Q(ctx, s.db).ExecContext(ctx, `
		UPDATE file_uploads
		SET total_rows = $2, saved_rows = $3, failed_rows = $4
		WHERE id = $1`,
		u.ID, u.TotalRows, u.SavedRows, u.FailedRows,
	)
	if err != nil {
		return fmt.Errorf("update file upload: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("update file upload: %w", err)
	}
	if n == 0 {
		return sentinel.ErrNotFound
	}
	return nil
}

func (s *PostgresStore) FindUpload(ctx context.Context, id int64) (*FileUpload, error) {
	var (
		u         FileUpload
		modelType string
	)
	err := txcontext.Q(ctx, s.db).QueryRowContext(ctx, `
		SELECT id, month_id, model_type, file_name, checksum, total_rows, saved_rows, failed_rows, created_by, created_at
		FROM file_uploads
		WHERE id = $1`,
		id,
	).Scan(&u.ID, &u.MonthID, &modelType, &u.FileName, &u.Checksum, &u.TotalRows, &u.SavedRows, &u.FailedRows, &u.CreatedBy, &u.CreatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, sentinel.ErrNotFound
		}
		return nil, fmt.Errorf("find file upload: %w", err)
	}
	u.ModelType = ModelType(modelType)
	return &u, nil
}

func (s *PostgresStore) AddError(ctx context.Context, e *ImportError) error {
	data, err := json.Marshal(e.RowData)
	if err != nil {
		return fmt.Errorf("marshal row data: %w", err)
	}
	err = txcontext.Q(ctx, s.db).QueryRowContext(ctx, `
		INSERT INTO import_errors (upload_id, model_type, row_number, row_data, message, created_by, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		RETURNING id`,
		e.UploadID, string(e.ModelType), e.RowNumber, data, e.Message, e.CreatedBy, e.CreatedAt,
	).Scan(&e.ID)
	if err != nil {
		return fmt.Errorf("insert import error: %w", postgres.Classify(err))
	}
	return nil
}

func (s *PostgresStore) ErrorsOfUpload(ctx context.Context, uploadID int64) ([]ImportError, error) {
	rows, err := txcontext.Q(ctx, s.db).QueryContext(ctx, `
		SELECT id, upload_id, model_type, row_number, row_data, message, created_by, created_at
		FROM import_errors
		WHERE upload_id = $1
		ORDER BY row_number, id`,
		uploadID,
	)
	if err != nil {
		return nil, fmt.Errorf("list import errors: %w", err)
	}
	defer rows.Close()

	var out []ImportError
	for rows.Next() {
		var (
			e         ImportError
			modelType string
			data      []byte
		)
		if err := rows.Scan(&e.ID, &e.UploadID, &modelType, &e.RowNumber, &data, &e.Message, &e.CreatedBy, &e.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan import error: %w", err)
		}
		if err := json.Unmarshal(data, &e.RowData); err != nil {
			return nil, fmt.Errorf("decode row data: %w", err)
		}
		e.ModelType = ModelType(modelType)
		out = append(out, e)
	}
	return out, rows.Err()
}
