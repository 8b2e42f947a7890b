package validation

import (
	"context"
	"database/sql"
	"fmt"

	"tdrs/internal/platform/postgres"
	txcontext "tdrs/pkg/platform/tx"
)

// PostgresLedger persists findings in validation_results.
type PostgresLedger struct {
	db *sql.DB
}

func NewPostgresLedger(db *sql.DB) *PostgresLedger {
	return &PostgresLedger{db: db}
}

// NextVersion takes a transaction-scoped advisory lock on the report month
// before reading the current maximum. It must run inside a transaction so the
// lock is held until the new version's findings are committed.
func (l *PostgresLedger) NextVersion(ctx context.Context, reportMonth string) (int, error) {
	q := txcontext.Q(ctx, l.db)
	if err := postgres.AdvisoryXactLock(ctx, q, "validation:"+reportMonth); err != nil {
		return 0, err
	}
	var v int
	err := q.QueryRowContext(ctx,
		`SELECT COALESCE(MAX(version), 0) FROM validation_results WHERE report_month = $1`,
		reportMonth,
	).Scan(&v)
	if err != nil {
		return 0, fmt.Errorf("read latest version: %w", err)
	}
	return v + 1, nil
}

func (l *PostgresLedger) Append(ctx context.Context, findings []Finding) error {
	q := txcontext.Q(ctx, l.db)
	for i := range findings {
		f := &findings[i]
		err := q.QueryRowContext(ctx, `
			INSERT INTO validation_results (
				report_month, version, severity, edit_code, item_number, description,
				edit_values, family_id, adult_id, child_id, created_by, created_at
			) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)
			RETURNING id`,
			f.ReportMonth, f.Version, string(f.Severity), f.EditCode, f.ItemNumber, f.Description,
			f.EditValues, f.FamilyID, f.AdultID, f.ChildID, f.CreatedBy, f.CreatedAt,
		).Scan(&f.ID)
		if err != nil {
			return fmt.Errorf("append finding %s: %w", f.EditCode, postgres.Classify(err))
		}
	}
	return nil
}

func (l *PostgresLedger) Findings(ctx context.Context, reportMonth string, version int) ([]Finding, error) {
	rows, err := txcontext.Q(ctx, l.db).QueryContext(ctx, `
		SELECT id, report_month, version, severity, edit_code, item_number, description,
		       edit_values, family_id, adult_id, child_id, created_by, created_at
		FROM validation_results
		WHERE report_month = $1 AND version = $2
		ORDER BY id`,
		reportMonth, version,
	)
	if err != nil {
		return nil, fmt.Errorf("list findings: %w", err)
	}
	defer rows.Close()

	var out []Finding
	for rows.Next() {
		var (
			f                          Finding
			severity                   string
			familyID, adultID, childID sql.NullInt64
		)
		if err := rows.Scan(&f.ID, &f.ReportMonth, &f.Version, &severity, &f.EditCode, &f.ItemNumber,
			&f.Description, &f.EditValues, &familyID, &adultID, &childID, &f.CreatedBy, &f.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan finding: %w", err)
		}
		f.Severity = Severity(severity)
		f.FamilyID = nullable(familyID)
		f.AdultID = nullable(adultID)
		f.ChildID = nullable(childID)
		out = append(out, f)
	}
	return out, rows.Err()
}

func (l *PostgresLedger) Stats(ctx context.Context) ([]MonthStats, error) {
	rows, err := txcontext.Q(ctx, l.db).QueryContext(ctx, `
		SELECT r.report_month, r.version,
		       COUNT(*) FILTER (WHERE r.severity = 'FATAL'),
		       COUNT(*) FILTER (WHERE r.severity = 'NOERROR'),
		       MAX(r.created_at)
		FROM validation_results r
		JOIN (
			SELECT report_month, MAX(version) AS version
			FROM validation_results
			GROUP BY report_month
		) latest ON latest.report_month = r.report_month AND latest.version = r.version
		GROUP BY r.report_month, r.version
		ORDER BY r.report_month`)
	if err != nil {
		return nil, fmt.Errorf("validation stats: %w", err)
	}
	defer rows.Close()

	var out []MonthStats
	for rows.Next() {
		var st MonthStats
		if err := rows.Scan(&st.ReportMonth, &st.Version, &st.Fatal, &st.NoError, &st.LastRunAt); err != nil {
			return nil, fmt.Errorf("scan validation stats: %w", err)
		}
		out = append(out, st)
	}
	return out, rows.Err()
}

func nullable(n sql.NullInt64) *int64 {
	if !n.Valid {
		return nil
	}
	return &n.Int64
}
