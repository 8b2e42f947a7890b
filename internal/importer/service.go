// Package importer loads family, adult and child rows from uploaded CSV or
// spreadsheet files. A file is accepted or rejected as a whole before any row
// is touched; after that every row stands alone.
package importer

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"path/filepath"
	"slices"
	"strings"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"tdrs/internal/casefile"
	"tdrs/internal/schema"
	dErrors "tdrs/pkg/domain-errors"
	"tdrs/pkg/platform/checksum"
	"tdrs/pkg/platform/sentinel"
	txcontext "tdrs/pkg/platform/tx"
	"tdrs/pkg/requestcontext"
)

// DefaultMaxBytes is the largest accepted upload.
const DefaultMaxBytes int64 = 5 << 20

var extensions = []string{".csv", ".xls", ".xlsx"}

// Cases is the save path rows go through. *casefile.Service satisfies it.
type Cases interface {
	FindMonth(ctx context.Context, label string) (*casefile.Month, error)
	FindFamily(ctx context.Context, monthID int64, caseNumber string) (*casefile.Family, error)
	SaveFamily(ctx context.Context, monthID int64, raw schema.Values, user string) (*casefile.Family, error)
	SaveAdult(ctx context.Context, familyID int64, raw schema.Values, user string) (*casefile.Adult, error)
	SaveChild(ctx context.Context, familyID int64, raw schema.Values, user string) (*casefile.Child, error)
}

type TxRunner interface {
	RunInTx(ctx context.Context, fn func(ctx context.Context) error) error
}

type Service struct {
	cases    Cases
	store    Store
	tx       TxRunner
	maxBytes int64
	logger   *slog.Logger
	metrics  *Metrics
	tracer   trace.Tracer
}

type Option func(*Service)

func WithLogger(logger *slog.Logger) Option {
	return func(s *Service) { s.logger = logger }
}

func WithMetrics(m *Metrics) Option {
	return func(s *Service) { s.metrics = m }
}

// WithTx runs each row in its own transaction.
func WithTx(tx TxRunner) Option {
	return func(s *Service) { s.tx = tx }
}

func WithMaxBytes(n int64) Option {
	return func(s *Service) {
		if n > 0 {
			s.maxBytes = n
		}
	}
}

func NewService(cases Cases, store Store, opts ...Option) *Service {
	s := &Service{
		cases:    cases,
		store:    store,
		tx:       txcontext.Passthrough{},
		maxBytes: DefaultMaxBytes,
		logger:   slog.Default(),
		tracer:   otel.Tracer("tdrs/importer"),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Columns is the header an import file for modelType must carry, in schema
// order. Adult and child files lead with the parent family's case number.
func Columns(modelType ModelType) ([]string, error) {
	switch modelType {
	case ModelFamily:
		return schema.Family.Names(), nil
	case ModelAdult:
		return append([]string{ParentColumn}, schema.Adult.Names()...), nil
	case ModelChild:
		return append([]string{ParentColumn}, schema.Child.Names()...), nil
	}
	return nil, fmt.Errorf("unknown model type %q", modelType)
}

// Import stores every valid row of req and records the rest as ImportErrors.
// Gate, header and parse failures reject the file with no upload record.
func (s *Service) Import(ctx context.Context, req Request) (*Result, error) {
	ctx, span := s.tracer.Start(ctx, "importer.import", trace.WithAttributes(
		attribute.String("report_month", req.ReportMonth),
		attribute.String("model_type", string(req.ModelType)),
		attribute.String("file_name", req.FileName),
	))
	defer span.End()

	result, err := s.importFile(ctx, req)
	if err != nil {
		if dErrors.HasCode(err, dErrors.CodeValidation) {
			s.metrics.IncrementRejected(req.ModelType)
		}
		span.RecordError(err)
		span.SetStatus(codes.Error, "import failed")
		s.logger.WarnContext(ctx, "import rejected",
			"report_month", req.ReportMonth,
			"model_type", req.ModelType,
			"file_name", req.FileName,
			"error", err,
		)
		return nil, err
	}

	u := result.Upload
	s.metrics.AddRows(req.ModelType, u.SavedRows, u.FailedRows)
	span.SetAttributes(
		attribute.Int64("upload_id", u.ID),
		attribute.Int("saved", u.SavedRows),
		attribute.Int("failed", u.FailedRows),
	)
	s.logger.InfoContext(ctx, "import finished",
		"upload_id", u.ID,
		"report_month", req.ReportMonth,
		"model_type", req.ModelType,
		"total", u.TotalRows,
		"saved", u.SavedRows,
		"failed", u.FailedRows,
	)
	return result, nil
}

func (s *Service) importFile(ctx context.Context, req Request) (*Result, error) {
	ext := strings.ToLower(filepath.Ext(req.FileName))
	if !slices.Contains(extensions, ext) {
		return nil, dErrors.New(dErrors.CodeValidation, fmt.Sprintf("unsupported file extension %q, expected one of %s", ext, strings.Join(extensions, ", ")))
	}
	if req.Size > s.maxBytes {
		return nil, s.tooLarge()
	}
	if !req.ModelType.valid() {
		return nil, dErrors.New(dErrors.CodeValidation, fmt.Sprintf("unknown model type %q", req.ModelType))
	}
	if req.Body == nil {
		return nil, dErrors.New(dErrors.CodeBadRequest, "file body is required")
	}

	body, err := io.ReadAll(io.LimitReader(req.Body, s.maxBytes+1))
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeBadRequest, "failed to read file")
	}
	if int64(len(body)) > s.maxBytes {
		return nil, s.tooLarge()
	}

	month, err := s.cases.FindMonth(ctx, req.ReportMonth)
	if err != nil {
		return nil, err
	}

	t, err := readTable(ext, body)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeValidation, "could not parse "+req.FileName)
	}
	columns, _ := Columns(req.ModelType)
	if err := matchHeader(t.header, columns); err != nil {
		return nil, dErrors.New(dErrors.CodeValidation, err.Error())
	}

	user := req.User
	if user == "" {
		user = requestcontext.User(ctx)
	}
	upload := &FileUpload{
		MonthID:   month.ID,
		ModelType: req.ModelType,
		FileName:  req.FileName,
		Checksum:  checksum.Bytes(body),
		TotalRows: len(t.rows),
		CreatedBy: user,
		CreatedAt: requestcontext.Now(ctx),
	}
	if err := s.store.CreateUpload(ctx, upload); err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to record upload")
	}

	result := &Result{}
	for _, r := range t.rows {
		values := rowValues(t.header, r.cells)
		err := r.err
		if err == nil {
			err = extraCells(t.header, r.cells)
		}
		if err == nil {
			err = s.tx.RunInTx(ctx, func(txCtx context.Context) error {
				return s.saveRow(txCtx, month.ID, req.ModelType, values, user)
			})
			if err == nil {
				upload.SavedRows++
				continue
			}
			if !isRowFailure(err) {
				s.abort(ctx, upload)
				return nil, dErrors.Wrap(err, dErrors.CodeInternal, fmt.Sprintf("import stopped at row %d", r.number))
			}
		}

		upload.FailedRows++
		rowErr := &RowError{Row: r.number, Err: err}
		s.logger.DebugContext(ctx, "import row rejected", "upload_id", upload.ID, "row", r.number, "error", err)
		ie := ImportError{
			UploadID:  upload.ID,
			ModelType: req.ModelType,
			RowNumber: rowErr.Row,
			RowData:   values,
			Message:   rowMessage(rowErr),
			CreatedBy: user,
			CreatedAt: upload.CreatedAt,
		}
		if err := s.store.AddError(ctx, &ie); err != nil {
			s.abort(ctx, upload)
			return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to record import error")
		}
		result.Errors = append(result.Errors, ie)
	}

	if err := s.store.FinishUpload(ctx, upload); err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to record upload counts")
	}
	result.Upload = *upload
	return result, nil
}

func (s *Service) saveRow(ctx context.Context, monthID int64, modelType ModelType, values map[string]string, user string) error {
	raw := make(schema.Values, len(values))
	for k, v := range values {
		raw[k] = strings.TrimSpace(v)
	}
	if modelType == ModelFamily {
		_, err := s.cases.SaveFamily(ctx, monthID, raw, user)
		return err
	}

	caseNumber := raw[ParentColumn]
	delete(raw, ParentColumn)
	if caseNumber == "" {
		return dErrors.New(dErrors.CodeValidation, ParentColumn+" is required")
	}
	family, err := s.cases.FindFamily(ctx, monthID, caseNumber)
	if err != nil {
		return err
	}
	if modelType == ModelAdult {
		_, err = s.cases.SaveAdult(ctx, family.ID, raw, user)
	} else {
		_, err = s.cases.SaveChild(ctx, family.ID, raw, user)
	}
	return err
}

// abort records the counts reached before an import stopped, so the upload
// row agrees with the rows already committed.
func (s *Service) abort(ctx context.Context, upload *FileUpload) {
	if err := s.store.FinishUpload(context.WithoutCancel(ctx), upload); err != nil {
		s.logger.WarnContext(ctx, "failed to record partial upload counts", "upload_id", upload.ID, "error", err)
	}
}

func (s *Service) tooLarge() error {
	return dErrors.New(dErrors.CodeValidation, fmt.Sprintf("file exceeds the %d byte limit", s.maxBytes))
}

// Upload returns a stored upload record.
func (s *Service) Upload(ctx context.Context, id int64) (*FileUpload, error) {
	u, err := s.store.FindUpload(ctx, id)
	if err != nil {
		return nil, translate(err, fmt.Sprintf("upload %d", id))
	}
	return u, nil
}

// Errors returns the rejected rows of an upload in row order.
func (s *Service) Errors(ctx context.Context, uploadID int64) ([]ImportError, error) {
	if _, err := s.Upload(ctx, uploadID); err != nil {
		return nil, err
	}
	out, err := s.store.ErrorsOfUpload(ctx, uploadID)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to list import errors")
	}
	return out, nil
}

// matchHeader compares header and want as sets.
func matchHeader(header, want []string) error {
	have := make(map[string]bool, len(header))
	var dup []string
	for _, h := range header {
		if have[h] {
			dup = append(dup, h)
		}
		have[h] = true
	}
	expected := make(map[string]bool, len(want))
	var missing []string
	for _, w := range want {
		expected[w] = true
		if !have[w] {
			missing = append(missing, w)
		}
	}
	var unexpected []string
	for _, h := range header {
		if !expected[h] {
			unexpected = append(unexpected, h)
		}
	}
	if len(missing) == 0 && len(unexpected) == 0 && len(dup) == 0 {
		return nil
	}

	var parts []string
	if len(missing) > 0 {
		parts = append(parts, "missing columns: "+strings.Join(missing, ", "))
	}
	if len(unexpected) > 0 {
		parts = append(parts, "unexpected columns: "+strings.Join(unexpected, ", "))
	}
	if len(dup) > 0 {
		parts = append(parts, "duplicate columns: "+strings.Join(dup, ", "))
	}
	return errors.New("header does not match: " + strings.Join(parts, "; "))
}

// extraCells rejects a row with non-blank values past the last header column.
func extraCells(header, cells []string) error {
	if len(cells) <= len(header) || blank(cells[len(header):]) {
		return nil
	}
	return dErrors.New(dErrors.CodeValidation,
		fmt.Sprintf("row has %d values but the header has %d columns", len(cells), len(header)))
}

// rowValues maps cells onto header names. Short rows are padded with blanks.
func rowValues(header, cells []string) map[string]string {
	out := make(map[string]string, len(header))
	for i, h := range header {
		if i < len(cells) {
			out[h] = cells[i]
		} else {
			out[h] = ""
		}
	}
	return out
}

// isRowFailure separates problems with the row's data from infrastructure
// failures, which stop the import.
func isRowFailure(err error) bool {
	return dErrors.HasCode(err, dErrors.CodeValidation) ||
		dErrors.HasCode(err, dErrors.CodeNotFound) ||
		dErrors.HasCode(err, dErrors.CodeConflict)
}

func rowMessage(err *RowError) string {
	if msg := dErrors.MessageOf(err); msg != "" {
		return msg
	}
	return err.Err.Error()
}

func translate(err error, subject string) error {
	if errors.Is(err, sentinel.ErrNotFound) {
		return dErrors.Wrap(err, dErrors.CodeNotFound, subject+" not found")
	}
	return dErrors.Wrap(err, dErrors.CodeInternal, "failed to load "+subject)
}
