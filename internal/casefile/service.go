package casefile

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"regexp"
	"strconv"
	"time"

	"tdrs/internal/schema"
	dErrors "tdrs/pkg/domain-errors"
	"tdrs/pkg/platform/sentinel"
	txcontext "tdrs/pkg/platform/tx"
	"tdrs/pkg/requestcontext"
)

// Service is the save path for case records. Every record goes through the
// schema normalizer before it reaches the store, whether it came from a form
// or a bulk import.
type Service struct {
	store  Store
	tx     TxRunner
	logger *slog.Logger
}

type TxRunner interface {
	RunInTx(ctx context.Context, fn func(ctx context.Context) error) error
}

type Option func(*Service)

func WithLogger(logger *slog.Logger) Option {
	return func(s *Service) {
		s.logger = logger
	}
}

func WithTx(tx TxRunner) Option {
	return func(s *Service) {
		s.tx = tx
	}
}

func NewService(store Store, opts ...Option) *Service {
	s := &Service{store: store, tx: txcontext.Passthrough{}, logger: slog.Default()}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

var quarterLabel = regexp.MustCompile(`^(\d{4})Q([1-4])$`)

// OpenQuarter creates a fiscal quarter such as "2024Q1" together with its
// three report months (202401, 202402, 202403).
func (s *Service) OpenQuarter(ctx context.Context, label string) (*Quarter, []Month, error) {
	m := quarterLabel.FindStringSubmatch(label)
	if m == nil {
		return nil, nil, dErrors.New(dErrors.CodeValidation, "quarter label must look like 2024Q1")
	}
	year, _ := strconv.Atoi(m[1])
	q, _ := strconv.Atoi(m[2])
	first := time.Date(year, time.Month((q-1)*3+1), 1, 0, 0, 0, 0, time.UTC)

	quarter := &Quarter{Label: label, StartDate: first, EndDate: first.AddDate(0, 3, -1)}
	months := make([]Month, 0, 3)
	err := s.tx.RunInTx(ctx, func(txCtx context.Context) error {
		if err := s.store.CreateQuarter(txCtx, quarter); err != nil {
			return translate(err, "quarter "+label)
		}
		for i := range 3 {
			start := first.AddDate(0, i, 0)
			month := Month{
				QuarterID: quarter.ID,
				Label:     start.Format("200601"),
				StartDate: start,
				EndDate:   start.AddDate(0, 1, -1),
			}
			if err := s.store.CreateMonth(txCtx, &month); err != nil {
				return translate(err, "report month "+month.Label)
			}
			months = append(months, month)
		}
		return nil
	})
	if err != nil {
		return nil, nil, err
	}
	s.logger.InfoContext(ctx, "quarter opened", "quarter", label, "quarter_id", quarter.ID)
	return quarter, months, nil
}

// SaveFamily normalizes raw and inserts it under the month.
func (s *Service) SaveFamily(ctx context.Context, monthID int64, raw schema.Values, user string) (*Family, error) {
	fields, err := schema.Family.Normalize(raw)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeValidation, "invalid family record: "+schema.Describe(err))
	}
	f := &Family{
		MonthID: monthID,
		Fields:  fields,
		Audit:   newAudit(user, requestcontext.Now(ctx)),
	}
	if err := s.store.InsertFamily(ctx, f); err != nil {
		return nil, translate(err, fmt.Sprintf("family %s", f.CaseNumber()))
	}
	s.logger.DebugContext(ctx, "family saved", "family_id", f.ID, "month_id", monthID)
	return f, nil
}

// SaveAdult normalizes raw, applies derived fields and inserts it under the family.
func (s *Service) SaveAdult(ctx context.Context, familyID int64, raw schema.Values, user string) (*Adult, error) {
	fields, err := schema.Adult.Normalize(raw)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeValidation, "invalid adult record: "+schema.Describe(err))
	}
	a := &Adult{
		FamilyID: familyID,
		Fields:   fields,
		Audit:    newAudit(user, requestcontext.Now(ctx)),
	}
	if err := s.store.InsertAdult(ctx, a); err != nil {
		return nil, translate(err, "adult")
	}
	return a, nil
}

// SaveChild normalizes raw and inserts it under the family.
func (s *Service) SaveChild(ctx context.Context, familyID int64, raw schema.Values, user string) (*Child, error) {
	fields, err := schema.Child.Normalize(raw)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeValidation, "invalid child record: "+schema.Describe(err))
	}
	c := &Child{
		FamilyID: familyID,
		Fields:   fields,
		Audit:    newAudit(user, requestcontext.Now(ctx)),
	}
	if err := s.store.InsertChild(ctx, c); err != nil {
		return nil, translate(err, "child")
	}
	return c, nil
}

// FindMonth resolves a report month label.
func (s *Service) FindMonth(ctx context.Context, label string) (*Month, error) {
	m, err := s.store.FindMonthByLabel(ctx, label)
	if err != nil {
		return nil, translate(err, "report month "+label)
	}
	return m, nil
}

// FindFamily resolves a family by case number within a month. The case
// number is normalized first so "1" finds "00000000001".
func (s *Service) FindFamily(ctx context.Context, monthID int64, caseNumber string) (*Family, error) {
	f, ok := schema.Family.Field("case_number")
	if !ok {
		return nil, dErrors.New(dErrors.CodeInternal, "family schema has no case_number")
	}
	normalized, err := f.Normalize(caseNumber)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeValidation, "invalid case number: "+schema.Describe(err))
	}
	family, err := s.store.FindFamilyByCaseNumber(ctx, monthID, normalized)
	if err != nil {
		return nil, translate(err, "family "+normalized)
	}
	return family, nil
}

// FindQuarter returns a quarter by id.
func (s *Service) FindQuarter(ctx context.Context, id int64) (*Quarter, error) {
	q, err := s.store.FindQuarter(ctx, id)
	if err != nil {
		return nil, translate(err, fmt.Sprintf("quarter %d", id))
	}
	return q, nil
}

// MonthsOfQuarter lists the report months of a quarter in calendar order.
func (s *Service) MonthsOfQuarter(ctx context.Context, quarterID int64) ([]Month, error) {
	if _, err := s.FindQuarter(ctx, quarterID); err != nil {
		return nil, err
	}
	months, err := s.store.MonthsOfQuarter(ctx, quarterID)
	if err != nil {
		return nil, translate(err, "months")
	}
	return months, nil
}

func (s *Service) FamiliesOfMonth(ctx context.Context, monthID int64) ([]Family, error) {
	out, err := s.store.FamiliesOfMonth(ctx, monthID)
	if err != nil {
		return nil, translate(err, "families")
	}
	return out, nil
}

func (s *Service) AdultsOfFamily(ctx context.Context, familyID int64) ([]Adult, error) {
	out, err := s.store.AdultsOfFamily(ctx, familyID)
	if err != nil {
		return nil, translate(err, "adults")
	}
	return out, nil
}

func (s *Service) ChildrenOfFamily(ctx context.Context, familyID int64) ([]Child, error) {
	out, err := s.store.ChildrenOfFamily(ctx, familyID)
	if err != nil {
		return nil, translate(err, "children")
	}
	return out, nil
}

// Snapshot loads every record of a report month for a rule scan.
func (s *Service) Snapshot(ctx context.Context, reportMonth string) (Snapshot, error) {
	month, err := s.FindMonth(ctx, reportMonth)
	if err != nil {
		return Snapshot{}, err
	}
	snap, err := LoadSnapshot(ctx, s.store, *month)
	if err != nil {
		return Snapshot{}, dErrors.Wrap(err, dErrors.CodeInternal, "failed to load report month "+reportMonth)
	}
	return snap, nil
}

func translate(err error, subject string) error {
	switch {
	case errors.Is(err, sentinel.ErrNotFound):
		return dErrors.Wrap(err, dErrors.CodeNotFound, subject+" not found")
	case errors.Is(err, sentinel.ErrConflict):
		return dErrors.Wrap(err, dErrors.CodeConflict, subject+" already exists")
	default:
		return dErrors.Wrap(err, dErrors.CodeInternal, "case record store failure")
	}
}

// SnapshotReader is the read surface needed to load one month's records.
type SnapshotReader interface {
	FamiliesOfMonth(ctx context.Context, monthID int64) ([]Family, error)
	AdultsOfMonth(ctx context.Context, monthID int64) ([]Adult, error)
	ChildrenOfMonth(ctx context.Context, monthID int64) ([]Child, error)
}

// LoadSnapshot reads every family, adult and child of month.
func LoadSnapshot(ctx context.Context, r SnapshotReader, month Month) (Snapshot, error) {
	families, err := r.FamiliesOfMonth(ctx, month.ID)
	if err != nil {
		return Snapshot{}, fmt.Errorf("load families: %w", err)
	}
	adults, err := r.AdultsOfMonth(ctx, month.ID)
	if err != nil {
		return Snapshot{}, fmt.Errorf("load adults: %w", err)
	}
	children, err := r.ChildrenOfMonth(ctx, month.ID)
	if err != nil {
		return Snapshot{}, fmt.Errorf("load children: %w", err)
	}
	return Snapshot{Month: month, Families: families, Adults: adults, Children: children}, nil
}
