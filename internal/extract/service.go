// Package extract builds the quarterly fixed-width submission file from the
// stored case records.
package extract

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"strings"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"tdrs/internal/casefile"
	dErrors "tdrs/pkg/domain-errors"
	"tdrs/pkg/platform/checksum"
	"tdrs/pkg/platform/sentinel"
	txcontext "tdrs/pkg/platform/tx"
	"tdrs/pkg/requestcontext"
)

// Records is the read side of the case file walked by an extract.
type Records interface {
	FindQuarter(ctx context.Context, id int64) (*casefile.Quarter, error)
	MonthsOfQuarter(ctx context.Context, quarterID int64) ([]casefile.Month, error)
	FamiliesOfMonth(ctx context.Context, monthID int64) ([]casefile.Family, error)
	AdultsOfFamily(ctx context.Context, familyID int64) ([]casefile.Adult, error)
	ChildrenOfFamily(ctx context.Context, familyID int64) ([]casefile.Child, error)
}

type TxRunner interface {
	RunInTx(ctx context.Context, fn func(ctx context.Context) error) error
}

const defaultLockTTL = 2 * time.Minute

type Service struct {
	records Records
	store   Store
	locker  Locker
	lockTTL time.Duration
	tx      TxRunner
	logger  *slog.Logger
	metrics *Metrics
	tracer  trace.Tracer
}

type Option func(*Service)

func WithLogger(logger *slog.Logger) Option {
	return func(s *Service) { s.logger = logger }
}

func WithMetrics(m *Metrics) Option {
	return func(s *Service) { s.metrics = m }
}

func WithTx(tx TxRunner) Option {
	return func(s *Service) { s.tx = tx }
}

// WithLocker replaces the in-process locker, e.g. with a RedisLocker when
// several server instances share a database.
func WithLocker(l Locker, ttl time.Duration) Option {
	return func(s *Service) {
		s.locker = l
		if ttl > 0 {
			s.lockTTL = ttl
		}
	}
}

func NewService(records Records, store Store, opts ...Option) *Service {
	s := &Service{
		records: records,
		store:   store,
		locker:  NewLocalLocker(),
		lockTTL: defaultLockTTL,
		tx:      txcontext.Passthrough{},
		logger:  slog.Default(),
		tracer:  otel.Tracer("tdrs/extract"),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// GenerateExtract renders and stores the extract for a quarter. An empty
// outputName becomes "{quarter}_{YYYYMMDD_HHMMSS}.txt". Only one generation
// per quarter runs at a time; a concurrent call fails with CodeLocked.
// Nothing is stored unless the whole file was rendered.
func (s *Service) GenerateExtract(ctx context.Context, quarterID int64, outputName, user string) (*GeneratedFile, error) {
	ctx, span := s.tracer.Start(ctx, "extract.generate", trace.WithAttributes(
		attribute.Int64("quarter_id", quarterID),
	))
	defer span.End()
	start := time.Now()

	file, err := s.generate(ctx, quarterID, outputName, user)
	s.metrics.ObserveRunDuration(time.Since(start))
	if err != nil {
		if dErrors.HasCode(err, dErrors.CodeLocked) {
			s.metrics.IncrementRun("locked")
		} else {
			s.metrics.IncrementRun("error")
		}
		span.RecordError(err)
		span.SetStatus(codes.Error, "extract generation failed")
		s.logger.WarnContext(ctx, "extract generation failed",
			"quarter_id", quarterID,
			"error", err,
		)
		return nil, err
	}

	s.metrics.IncrementRun("success")
	s.metrics.AddRecords(file.RecordCount)
	span.SetAttributes(attribute.Int("records", file.RecordCount))
	s.logger.InfoContext(ctx, "extract generated",
		"quarter_id", quarterID,
		"file_id", file.ID,
		"name", file.Name,
		"records", file.RecordCount,
		"user", user,
	)
	return file, nil
}

func (s *Service) generate(ctx context.Context, quarterID int64, outputName, user string) (*GeneratedFile, error) {
	name := strings.TrimSpace(outputName)
	if strings.ContainsAny(name, `/\`) {
		return nil, dErrors.New(dErrors.CodeValidation, "output name must not contain path separators")
	}

	unlock, err := s.locker.TryLock(ctx, "extract:quarter:"+strconv.FormatInt(quarterID, 10), s.lockTTL)
	if err != nil {
		if errors.Is(err, sentinel.ErrLocked) {
			return nil, dErrors.Wrap(err, dErrors.CodeLocked, fmt.Sprintf("an extract for quarter %d is already being generated", quarterID))
		}
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to lock quarter")
	}
	defer func() {
		if err := unlock(context.WithoutCancel(ctx)); err != nil {
			s.logger.WarnContext(ctx, "failed to release extract lock", "quarter_id", quarterID, "error", err)
		}
	}()

	var file *GeneratedFile
	err = s.tx.RunInTx(ctx, func(txCtx context.Context) error {
		quarter, err := s.records.FindQuarter(txCtx, quarterID)
		if err != nil {
			return translate(err, fmt.Sprintf("quarter %d", quarterID))
		}
		months, err := s.load(txCtx, quarter.ID)
		if err != nil {
			return dErrors.Wrap(err, dErrors.CodeInternal, "failed to load case records")
		}

		out := Assemble(*quarter, months)
		now := requestcontext.Now(txCtx)
		if name == "" {
			name = quarter.Label + "_" + now.Format("20060102_150405") + ".txt"
		}
		file = &GeneratedFile{
			QuarterID:   quarter.ID,
			Name:        name,
			Content:     out.Content,
			Checksum:    checksum.Bytes(out.Content),
			RecordCount: out.RecordCount,
			CreatedBy:   user,
			CreatedAt:   now,
		}
		if err := s.store.Save(txCtx, file); err != nil {
			return dErrors.Wrap(err, dErrors.CodeInternal, "failed to store generated file")
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return file, nil
}

// load walks quarter → month → family → members in insertion order.
func (s *Service) load(ctx context.Context, quarterID int64) ([]MonthRecords, error) {
	months, err := s.records.MonthsOfQuarter(ctx, quarterID)
	if err != nil {
		return nil, err
	}
	out := make([]MonthRecords, 0, len(months))
	for _, m := range months {
		families, err := s.records.FamiliesOfMonth(ctx, m.ID)
		if err != nil {
			return nil, err
		}
		mr := MonthRecords{Month: m, Families: make([]FamilyRecords, 0, len(families))}
		for _, f := range families {
			adults, err := s.records.AdultsOfFamily(ctx, f.ID)
			if err != nil {
				return nil, err
			}
			children, err := s.records.ChildrenOfFamily(ctx, f.ID)
			if err != nil {
				return nil, err
			}
			mr.Families = append(mr.Families, FamilyRecords{Family: f, Adults: adults, Children: children})
		}
		out = append(out, mr)
	}
	return out, nil
}

// ListFiles returns the stored extracts of a quarter without their content.
func (s *Service) ListFiles(ctx context.Context, quarterID int64) ([]GeneratedFile, error) {
	if _, err := s.records.FindQuarter(ctx, quarterID); err != nil {
		return nil, translate(err, fmt.Sprintf("quarter %d", quarterID))
	}
	files, err := s.store.ListByQuarter(ctx, quarterID)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to list generated files")
	}
	return files, nil
}

// File returns one stored extract with its content.
func (s *Service) File(ctx context.Context, id int64) (*GeneratedFile, error) {
	f, err := s.store.FindByID(ctx, id)
	if err != nil {
		return nil, translate(err, fmt.Sprintf("generated file %d", id))
	}
	return f, nil
}

func translate(err error, subject string) error {
	if errors.Is(err, sentinel.ErrNotFound) {
		return dErrors.Wrap(err, dErrors.CodeNotFound, subject+" not found")
	}
	return dErrors.Wrap(err, dErrors.CodeInternal, "failed to load "+subject)
}
