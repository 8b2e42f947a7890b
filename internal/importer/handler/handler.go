package handler

import (
	"context"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"tdrs/internal/importer"
	dErrors "tdrs/pkg/domain-errors"
	"tdrs/pkg/platform/httputil"
	"tdrs/pkg/requestcontext"
)

// formOverhead is allowed on top of the file limit for the multipart envelope.
const formOverhead = 64 << 10

type Service interface {
	Import(ctx context.Context, req importer.Request) (*importer.Result, error)
	Upload(ctx context.Context, id int64) (*importer.FileUpload, error)
	Errors(ctx context.Context, uploadID int64) ([]importer.ImportError, error)
}

type Handler struct {
	service  Service
	maxBytes int64
	logger   *slog.Logger
}

func New(service Service, maxBytes int64, logger *slog.Logger) *Handler {
	if maxBytes <= 0 {
		maxBytes = importer.DefaultMaxBytes
	}
	return &Handler{service: service, maxBytes: maxBytes, logger: logger}
}

func (h *Handler) Register(r chi.Router) {
	r.Post("/report-months/{reportMonth}/imports", h.HandleImport)
	r.Get("/imports/{uploadID}", h.HandleUpload)
	r.Get("/imports/{uploadID}/errors", h.HandleErrors)
}

// HandleImport handles POST /report-months/{reportMonth}/imports, a multipart
// form with a model_type field and a file part.
func (h *Handler) HandleImport(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	requestID := requestcontext.RequestID(ctx)

	r.Body = http.MaxBytesReader(w, r.Body, h.maxBytes+formOverhead)
	if err := r.ParseMultipartForm(h.maxBytes + formOverhead); err != nil {
		h.logger.WarnContext(ctx, "failed to parse import form", "request_id", requestID, "error", err)
		httputil.WriteError(w, dErrors.New(dErrors.CodeBadRequest, "invalid multipart form or file too large"))
		return
	}
	defer func() { _ = r.MultipartForm.RemoveAll() }()

	file, header, err := r.FormFile("file")
	if err != nil {
		httputil.WriteError(w, dErrors.New(dErrors.CodeBadRequest, "file part is required"))
		return
	}
	defer file.Close()

	result, err := h.service.Import(ctx, importer.Request{
		ReportMonth: chi.URLParam(r, "reportMonth"),
		ModelType:   importer.ModelType(r.FormValue("model_type")),
		FileName:    header.Filename,
		Size:        header.Size,
		Body:        file,
		User:        requestcontext.User(ctx),
	})
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusCreated, ImportResponse{
		Upload: fromUpload(result.Upload),
		Errors: fromErrors(result.Errors),
	})
}

// HandleUpload handles GET /imports/{uploadID}.
func (h *Handler) HandleUpload(w http.ResponseWriter, r *http.Request) {
	id, ok := uploadID(w, r)
	if !ok {
		return
	}
	u, err := h.service.Upload(r.Context(), id)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, fromUpload(*u))
}

// HandleErrors handles GET /imports/{uploadID}/errors.
func (h *Handler) HandleErrors(w http.ResponseWriter, r *http.Request) {
	id, ok := uploadID(w, r)
	if !ok {
		return
	}
	errs, err := h.service.Errors(r.Context(), id)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, fromErrors(errs))
}

func uploadID(w http.ResponseWriter, r *http.Request) (int64, bool) {
	id, err := strconv.ParseInt(chi.URLParam(r, "uploadID"), 10, 64)
	if err != nil || id <= 0 {
		httputil.WriteError(w, dErrors.New(dErrors.CodeBadRequest, "uploadID must be a positive integer"))
		return 0, false
	}
	return id, true
}
