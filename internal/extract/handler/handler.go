package handler

import (
	"context"
	"log/slog"
	"mime"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"tdrs/internal/extract"
	dErrors "tdrs/pkg/domain-errors"
	"tdrs/pkg/platform/httputil"
	"tdrs/pkg/requestcontext"
)

type Service interface {
	GenerateExtract(ctx context.Context, quarterID int64, outputName, user string) (*extract.GeneratedFile, error)
	ListFiles(ctx context.Context, quarterID int64) ([]extract.GeneratedFile, error)
	File(ctx context.Context, id int64) (*extract.GeneratedFile, error)
}

type Handler struct {
	service Service
	logger  *slog.Logger
}

func New(service Service, logger *slog.Logger) *Handler {
	return &Handler{service: service, logger: logger}
}

// Register mounts the extract endpoints on the router.
func (h *Handler) Register(r chi.Router) {
	r.Post("/quarters/{quarterID}/extracts", h.HandleGenerate)
	r.Get("/quarters/{quarterID}/extracts", h.HandleList)
	r.Get("/extracts/{fileID}", h.HandleDownload)
}

// HandleGenerate handles POST /quarters/{quarterID}/extracts.
func (h *Handler) HandleGenerate(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	requestID := requestcontext.RequestID(ctx)
	quarterID, ok := pathID(w, r, "quarterID")
	if !ok {
		return
	}
	req, ok := httputil.DecodeAndPrepare[GenerateRequest](w, r, h.logger, ctx, requestID)
	if !ok {
		return
	}

	file, err := h.service.GenerateExtract(ctx, quarterID, req.Name, requestcontext.User(ctx))
	if err != nil {
		h.logger.ErrorContext(ctx, "extract generation failed",
			"request_id", requestID,
			"quarter_id", quarterID,
			"error", err,
		)
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusCreated, fromFile(*file))
}

// HandleList handles GET /quarters/{quarterID}/extracts.
func (h *Handler) HandleList(w http.ResponseWriter, r *http.Request) {
	quarterID, ok := pathID(w, r, "quarterID")
	if !ok {
		return
	}
	files, err := h.service.ListFiles(r.Context(), quarterID)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	out := make([]FileResponse, 0, len(files))
	for _, f := range files {
		out = append(out, fromFile(f))
	}
	httputil.WriteJSON(w, http.StatusOK, out)
}

// HandleDownload handles GET /extracts/{fileID}.
func (h *Handler) HandleDownload(w http.ResponseWriter, r *http.Request) {
	fileID, ok := pathID(w, r, "fileID")
	if !ok {
		return
	}
	file, err := h.service.File(r.Context(), fileID)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.Header().Set("Content-Disposition", mime.FormatMediaType("attachment", map[string]string{"filename": file.Name}))
	w.Header().Set("Content-Length", strconv.Itoa(len(file.Content)))
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(file.Content)
}

func pathID(w http.ResponseWriter, r *http.Request, param string) (int64, bool) {
	id, err := strconv.ParseInt(chi.URLParam(r, param), 10, 64)
	if err != nil || id <= 0 {
		httputil.WriteError(w, dErrors.New(dErrors.CodeBadRequest, param+" must be a positive integer"))
		return 0, false
	}
	return id, true
}
