package casefile

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	"tdrs/internal/platform/postgres"
	"tdrs/internal/schema"
	"tdrs/pkg/platform/sentinel"
	txcontext "tdrs/pkg/platform/tx"
)

// PostgresStore persists case records in PostgreSQL. Coded fields live in a
// JSONB column; the uniqueness keys are mirrored into plain columns.
type PostgresStore struct {
	db *sql.DB
}

// NewPostgres constructs a PostgreSQL-backed case record store.
func NewPostgres(db *sql.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

func (s *PostgresStore) q(ctx context.Context) txcontext.Querier {
	return txcontext.Q(ctx, s.db)
}

func (s *PostgresStore) CreateQuarter(ctx context.Context, q *Quarter) error {
	err := s.q(ctx).QueryRowContext(ctx,
		`INSERT INTO quarters (label, start_date, end_date) VALUES ($1, $2, $3) RETURNING id`,
		q.Label, q.StartDate, q.EndDate,
	).Scan(&q.ID)
	if err != nil {
		return fmt.Errorf("create quarter: %w", postgres.Classify(err))
	}
	return nil
}

func (s *PostgresStore) CreateMonth(ctx context.Context, m *Month) error {
	err := s.q(ctx).QueryRowContext(ctx,
		`INSERT INTO months (quarter_id, label, start_date, end_date) VALUES ($1, $2, $3, $4) RETURNING id`,
		m.QuarterID, m.Label, m.StartDate, m.EndDate,
	).Scan(&m.ID)
	if err != nil {
		return fmt.Errorf("create month: %w", postgres.Classify(err))
	}
	return nil
}

func (s *PostgresStore) FindQuarter(ctx context.Context, id int64) (*Quarter, error) {
	var q Quarter
	err := s.q(ctx).QueryRowContext(ctx,
		`SELECT id, label, start_date, end_date FROM quarters WHERE id = $1`, id,
	).Scan(&q.ID, &q.Label, &q.StartDate, &q.EndDate)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, sentinel.ErrNotFound
		}
		return nil, fmt.Errorf("find quarter: %w", err)
	}
	return &q, nil
}

func (s *PostgresStore) FindMonthByLabel(ctx context.Context, label string) (*Month, error) {
	var m Month
	err := s.q(ctx).QueryRowContext(ctx,
		`SELECT id, quarter_id, label, start_date, end_date FROM months WHERE label = $1`, label,
	).Scan(&m.ID, &m.QuarterID, &m.Label, &m.StartDate, &m.EndDate)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, sentinel.ErrNotFound
		}
		return nil, fmt.Errorf("find month by label: %w", err)
	}
	return &m, nil
}

func (s *PostgresStore) MonthsOfQuarter(ctx context.Context, quarterID int64) ([]Month, error) {
	rows, err := s.q(ctx).QueryContext(ctx,
		`SELECT id, quarter_id, label, start_date, end_date FROM months WHERE quarter_id = $1 ORDER BY start_date, id`,
		quarterID,
	)
	if err != nil {
		return nil, fmt.Errorf("list months of quarter: %w", err)
	}
	defer rows.Close()

	var out []Month
	for rows.Next() {
		var m Month
		if err := rows.Scan(&m.ID, &m.QuarterID, &m.Label, &m.StartDate, &m.EndDate); err != nil {
			return nil, fmt.Errorf("scan month: %w", err)
		}
		out = append(out, m)
	}
	return out, rows.Err()
}

func (s *PostgresStore) InsertFamily(ctx context.Context, f *Family) error {
	fields, err := json.Marshal(f.Fields)
	if err != nil {
		return fmt.Errorf("marshal family fields: %w", err)
	}
	err = s.q(ctx).QueryRowContext(ctx, `
		INSERT INTO families (month_id, case_number, fields, created_by, created_at, updated_by, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		RETURNING id`,
		f.MonthID, f.CaseNumber(), fields, f.CreatedBy, f.CreatedAt, f.UpdatedBy, f.UpdatedAt,
	).Scan(&f.ID)
	if err != nil {
		return fmt.Errorf("insert family: %w", postgres.Classify(err))
	}
	return nil
}

func (s *PostgresStore) InsertAdult(ctx context.Context, a *Adult) error {
	id, err := s.insertMember(ctx, "adults", a.FamilyID, a.SSN(), a.Fields, a.Audit)
	if err != nil {
		return fmt.Errorf("insert adult: %w", err)
	}
	a.ID = id
	return nil
}

func (s *PostgresStore) InsertChild(ctx context.Context, c *Child) error {
	id, err := s.insertMember(ctx, "children", c.FamilyID, c.SSN(), c.Fields, c.Audit)
	if err != nil {
		return fmt.Errorf("insert child: %w", err)
	}
	c.ID = id
	return nil
}

// table is one of the two fixed member table names, never caller input.
func (s *PostgresStore) insertMember(ctx context.Context, table string, familyID int64, ssn string, values schema.Values, audit Audit) (int64, error) {
	fields, err := json.Marshal(values)
	if err != nil {
		return 0, fmt.Errorf("marshal fields: %w", err)
	}
	var id int64
	err = s.q(ctx).QueryRowContext(ctx, `
		INSERT INTO `+table+` (family_id, ssn, fields, created_by, created_at, updated_by, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		RETURNING id`,
		familyID, ssn, fields, audit.CreatedBy, audit.CreatedAt, audit.UpdatedBy, audit.UpdatedAt,
	).Scan(&id)
	if err != nil {
		return 0, postgres.Classify(err)
	}
	return id, nil
}

func (s *PostgresStore) DeleteFamily(ctx context.Context, id int64) error {
	res, err := s.q(ctx).ExecContext(ctx, `DELETE FROM families WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("delete family: %w", err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return sentinel.ErrNotFound
	}
	return nil
}

const familyColumns = `id, month_id, fields, created_by, created_at, updated_by, updated_at`

func (s *PostgresStore) FindFamilyByCaseNumber(ctx context.Context, monthID int64, caseNumber string) (*Family, error) {
	families, err := s.queryFamilies(ctx,
		`SELECT `+familyColumns+` FROM families WHERE month_id = $1 AND case_number = $2`,
		monthID, caseNumber,
	)
	if err != nil {
		return nil, err
	}
	if len(families) == 0 {
		return nil, sentinel.ErrNotFound
	}
	return &families[0], nil
}

func (s *PostgresStore) FamiliesOfMonth(ctx context.Context, monthID int64) ([]Family, error) {
	return s.queryFamilies(ctx,
		`SELECT `+familyColumns+` FROM families WHERE month_id = $1 ORDER BY id`, monthID)
}

func (s *PostgresStore) queryFamilies(ctx context.Context, query string, args ...any) ([]Family, error) {
	rows, err := s.q(ctx).QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query families: %w", err)
	}
	defer rows.Close()

	var out []Family
	for rows.Next() {
		var f Family
		var raw []byte
		if err := rows.Scan(&f.ID, &f.MonthID, &raw, &f.CreatedBy, &f.CreatedAt, &f.UpdatedBy, &f.UpdatedAt); err != nil {
			return nil, fmt.Errorf("scan family: %w", err)
		}
		if err := json.Unmarshal(raw, &f.Fields); err != nil {
			return nil, fmt.Errorf("unmarshal family fields: %w", err)
		}
		out = append(out, f)
	}
	return out, rows.Err()
}

func (s *PostgresStore) AdultsOfFamily(ctx context.Context, familyID int64) ([]Adult, error) {
	members, err := s.queryMembers(ctx, `
		SELECT id, family_id, fields, created_by, created_at, updated_by, updated_at
		FROM adults WHERE family_id = $1 ORDER BY id`, familyID)
	if err != nil {
		return nil, fmt.Errorf("list adults of family: %w", err)
	}
	return toAdults(members), nil
}

func (s *PostgresStore) ChildrenOfFamily(ctx context.Context, familyID int64) ([]Child, error) {
	members, err := s.queryMembers(ctx, `
		SELECT id, family_id, fields, created_by, created_at, updated_by, updated_at
		FROM children WHERE family_id = $1 ORDER BY id`, familyID)
	if err != nil {
		return nil, fmt.Errorf("list children of family: %w", err)
	}
	return toChildren(members), nil
}

func (s *PostgresStore) AdultsOfMonth(ctx context.Context, monthID int64) ([]Adult, error) {
	members, err := s.queryMembers(ctx, `
		SELECT a.id, a.family_id, a.fields, a.created_by, a.created_at, a.updated_by, a.updated_at
		FROM adults a JOIN families f ON f.id = a.family_id
		WHERE f.month_id = $1 ORDER BY a.id`, monthID)
	if err != nil {
		return nil, fmt.Errorf("list adults of month: %w", err)
	}
	return toAdults(members), nil
}

func (s *PostgresStore) ChildrenOfMonth(ctx context.Context, monthID int64) ([]Child, error) {
	members, err := s.queryMembers(ctx, `
		SELECT c.id, c.family_id, c.fields, c.created_by, c.created_at, c.updated_by, c.updated_at
		FROM children c JOIN families f ON f.id = c.family_id
		WHERE f.month_id = $1 ORDER BY c.id`, monthID)
	if err != nil {
		return nil, fmt.Errorf("list children of month: %w", err)
	}
	return toChildren(members), nil
}

type memberRow struct {
	id       int64
	familyID int64
	fields   schema.Values
	audit    Audit
}

func (s *PostgresStore) queryMembers(ctx context.Context, query string, args ...any) ([]memberRow, error) {
	rows, err := s.q(ctx).QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []memberRow
	for rows.Next() {
		var m memberRow
		var raw []byte
		if err := rows.Scan(&m.id, &m.familyID, &raw, &m.audit.CreatedBy, &m.audit.CreatedAt, &m.audit.UpdatedBy, &m.audit.UpdatedAt); err != nil {
			return nil, err
		}
		if err := json.Unmarshal(raw, &m.fields); err != nil {
			return nil, err
		}
		out = append(out, m)
	}
	return out, rows.Err()
}

func toAdults(rows []memberRow) []Adult {
	out := make([]Adult, len(rows))
	for i, r := range rows {
		out[i] = Adult{ID: r.id, FamilyID: r.familyID, Fields: r.fields, Audit: r.audit}
	}
	return out
}

func toChildren(rows []memberRow) []Child {
	out := make([]Child, len(rows))
	for i, r := range rows {
		out[i] = Child{ID: r.id, FamilyID: r.familyID, Fields: r.fields, Audit: r.audit}
	}
	return out
}
