package extract

import (
	"context"
	"database/sql"
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

func (s *PostgresStore) Save(ctx context.Context, f *GeneratedFile) error {
	err := txcontext.Q(ctx, s.db).QueryRowContext(ctx, `
		INSERT INTO generated_files (quarter_id, name, content, checksum, record_count, created_by, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		RETURNING id`,
		f.QuarterID, f.Name, f.Content, f.Checksum, f.RecordCount, f.CreatedBy, f.CreatedAt,
	).Scan(&f.ID)
	if err != nil {
		return fmt.Errorf("insert generated file: %w", postgres.Classify(err))
	}
	return nil
}

func (s *PostgresStore) ListByQuarter(ctx context.Context, quarterID int64) ([]GeneratedFile, error) {
	rows, err := txcontext.Q(ctx, s.db).QueryContext(ctx, `
		SELECT id, quarter_id, name, checksum, record_count, created_by, created_at
		FROM generated_files
		WHERE quarter_id = $1
		ORDER BY created_at, id`,
		quarterID,
	)
	if err != nil {
		return nil, fmt.Errorf("list generated files: %w", err)
	}
	defer rows.Close()

	var out []GeneratedFile
	for rows.Next() {
		var f GeneratedFile
		if err := rows.Scan(&f.ID, &f.QuarterID, &f.Name, &f.Checksum, &f.RecordCount, &f.CreatedBy, &f.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan generated file: %w", err)
		}
		out = append(out, f)
	}
	return out, rows.Err()
}

func (s *PostgresStore) FindByID(ctx context.Context, id int64) (*GeneratedFile, error) {
	var f GeneratedFile
	err := txcontext.Q(ctx, s.db).QueryRowContext(ctx, `
		SELECT id, quarter_id, name, content, checksum, record_count, created_by, created_at
		FROM generated_files
		WHERE id = $1`,
		id,
	).Scan(&f.ID, &f.QuarterID, &f.Name, &f.Content, &f.Checksum, &f.RecordCount, &f.CreatedBy, &f.CreatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, sentinel.ErrNotFound
		}
		return nil, fmt.Errorf("find generated file: %w", err)
	}
	return &f, nil
}
