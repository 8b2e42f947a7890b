// Package validation runs the Section 1 edit-check catalog against a
// reporting month and keeps the versioned ledger of findings.
package validation

import (
	"cmp"
	"context"
	"errors"
	"log/slog"
	"slices"
	"strconv"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	otelcodes "go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"tdrs/internal/casefile"
	dErrors "tdrs/pkg/domain-errors"
	"tdrs/pkg/platform/sentinel"
	txcontext "tdrs/pkg/platform/tx"
	"tdrs/pkg/requestcontext"
)

// Records is the read side of the case file used by a run.
type Records interface {
	FindMonthByLabel(ctx context.Context, label string) (*casefile.Month, error)
	casefile.SnapshotReader
}

// TxRunner binds a transaction to the context passed to fn.
type TxRunner interface {
	RunInTx(ctx context.Context, fn func(ctx context.Context) error) error
}

type Service struct {
	records Records
	ledger  Ledger
	catalog *Catalog
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

// WithTx sets the transaction runner. The default runs without a transaction,
// which is only correct for in-memory stores.
func WithTx(tx TxRunner) Option {
	return func(s *Service) { s.tx = tx }
}

func NewService(records Records, ledger Ledger, catalog *Catalog, opts ...Option) *Service {
	s := &Service{
		records: records,
		ledger:  ledger,
		catalog: catalog,
		tx:      txcontext.Passthrough{},
		logger:  slog.Default(),
		tracer:  otel.Tracer("tdrs/validation"),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// RunValidation evaluates the whole catalog against reportMonth and appends
// the findings as a new version. A run with no findings appends a single
// NOERROR sentinel instead. Either every finding of the version is committed
// or none is.
func (s *Service) RunValidation(ctx context.Context, user, reportMonth string) (*RunResult, error) {
	ctx, span := s.tracer.Start(ctx, "validation.run", trace.WithAttributes(
		attribute.String("report_month", reportMonth),
	))
	defer span.End()
	start := time.Now()

	var result *RunResult
	err := s.tx.RunInTx(ctx, func(txCtx context.Context) error {
		month, err := s.records.FindMonthByLabel(txCtx, reportMonth)
		if err != nil {
			if errors.Is(err, sentinel.ErrNotFound) {
				return dErrors.New(dErrors.CodeNotFound, "report month "+reportMonth+" not found")
			}
			return dErrors.Wrap(err, dErrors.CodeInternal, "failed to resolve report month")
		}

		version, err := s.ledger.NextVersion(txCtx, reportMonth)
		if err != nil {
			return dErrors.Wrap(err, dErrors.CodeInternal, "failed to assign validation version")
		}

		snap, err := casefile.LoadSnapshot(txCtx, s.records, *month)
		if err != nil {
			return dErrors.Wrap(err, dErrors.CodeInternal, "failed to load case records")
		}

		findings := Evaluate(s.catalog, snap)
		clean := len(findings) == 0
		if clean {
			findings = []Finding{{
				Severity:    SeverityNoError,
				EditCode:    NoErrorCode,
				ItemNumber:  NoErrorItem,
				Description: NoErrorDescription,
			}}
		}

		now := requestcontext.Now(txCtx)
		for i := range findings {
			findings[i].ReportMonth = reportMonth
			findings[i].Version = version
			findings[i].CreatedBy = user
			findings[i].CreatedAt = now
		}
		if err := s.ledger.Append(txCtx, findings); err != nil {
			return dErrors.Wrap(err, dErrors.CodeInternal, "failed to write findings")
		}

		result = &RunResult{ReportMonth: reportMonth, Version: version, Findings: findings, Clean: clean}
		return nil
	})
	s.metrics.ObserveRunDuration(time.Since(start))
	if err != nil {
		s.metrics.IncrementRun("error")
		span.RecordError(err)
		span.SetStatus(otelcodes.Error, "validation run failed")
		s.logger.WarnContext(ctx, "validation run failed",
			"report_month", reportMonth,
			"error", err,
		)
		return nil, err
	}

	if result.Clean {
		s.metrics.IncrementRun("clean")
	} else {
		s.metrics.IncrementRun("findings")
		s.metrics.AddFindings(result.Findings)
	}
	span.SetAttributes(
		attribute.Int("version", result.Version),
		attribute.Int("findings", len(result.Findings)),
	)
	s.logger.InfoContext(ctx, "validation run complete",
		"report_month", reportMonth,
		"version", result.Version,
		"findings", len(result.Findings),
		"clean", result.Clean,
		"user", user,
	)
	return result, nil
}

// ListFindings returns the findings of one version. sort is "edit_code",
// "item_number" or empty for (severity, item_number).
func (s *Service) ListFindings(ctx context.Context, reportMonth string, version int, sort string) ([]Finding, error) {
	if version <= 0 {
		return nil, dErrors.New(dErrors.CodeBadRequest, "version must be positive")
	}
	var less func(a, b Finding) int
	switch sort {
	case SortDefault:
		less = func(a, b Finding) int {
			return cmp.Or(
				cmp.Compare(a.Severity.rank(), b.Severity.rank()),
				compareItems(a.ItemNumber, b.ItemNumber),
				cmp.Compare(a.ID, b.ID),
			)
		}
	case SortEditCode:
		less = func(a, b Finding) int {
			return cmp.Or(cmp.Compare(a.EditCode, b.EditCode), cmp.Compare(a.ID, b.ID))
		}
	case SortItemNumber:
		less = func(a, b Finding) int {
			return cmp.Or(compareItems(a.ItemNumber, b.ItemNumber), cmp.Compare(a.ID, b.ID))
		}
	default:
		return nil, dErrors.New(dErrors.CodeBadRequest, "unsupported sort "+strconv.Quote(sort))
	}

	findings, err := s.ledger.Findings(ctx, reportMonth, version)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to list findings")
	}
	if len(findings) == 0 {
		return nil, dErrors.New(dErrors.CodeNotFound, "no validation run "+reportMonth+" version "+strconv.Itoa(version))
	}
	slices.SortStableFunc(findings, less)
	return findings, nil
}

// MonthStats summarizes the latest run of every report month.
func (s *Service) MonthStats(ctx context.Context) ([]MonthStats, error) {
	stats, err := s.ledger.Stats(ctx)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to load validation stats")
	}
	return stats, nil
}

// compareItems orders item numbers numerically, so "9" sorts before "11".
func compareItems(a, b string) int {
	na, errA := strconv.Atoi(a)
	nb, errB := strconv.Atoi(b)
	if errA != nil || errB != nil {
		return cmp.Compare(a, b)
	}
	return cmp.Compare(na, nb)
}
