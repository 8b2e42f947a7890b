package handler

import (
	"context"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"

	"tdrs/internal/validation"
	dErrors "tdrs/pkg/domain-errors"
	"tdrs/pkg/platform/httputil"
	"tdrs/pkg/requestcontext"
)

// Service is the validation surface the handler needs.
type Service interface {
	RunValidation(ctx context.Context, user, reportMonth string) (*validation.RunResult, error)
	ListFindings(ctx context.Context, reportMonth string, version int, sort string) ([]validation.Finding, error)
	MonthStats(ctx context.Context) ([]validation.MonthStats, error)
}

type Handler struct {
	service Service
	logger  *slog.Logger
}

func New(service Service, logger *slog.Logger) *Handler {
	return &Handler{service: service, logger: logger}
}

// Register mounts the validation endpoints on the router.
func (h *Handler) Register(r chi.Router) {
	r.Post("/validation-runs", h.HandleRun)
	r.Get("/validation-runs/stats", h.HandleStats)
	r.Get("/validation-runs/{reportMonth}/versions/{version}/findings", h.HandleFindings)
}

// HandleRun handles POST /validation-runs.
func (h *Handler) HandleRun(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	requestID := requestcontext.RequestID(ctx)
	start := time.Now()

	req, ok := httputil.DecodeAndPrepare[RunRequest](w, r, h.logger, ctx, requestID)
	if !ok {
		return
	}

	user := requestcontext.User(ctx)
	result, err := h.service.RunValidation(ctx, user, req.ReportMonth)
	if err != nil {
		h.logger.ErrorContext(ctx, "validation run failed",
			"request_id", requestID,
			"report_month", req.ReportMonth,
			"error", err,
		)
		httputil.WriteError(w, err)
		return
	}

	h.logger.InfoContext(ctx, "validation run requested",
		"request_id", requestID,
		"report_month", result.ReportMonth,
		"version", result.Version,
		"duration_ms", time.Since(start).Milliseconds(),
	)
	httputil.WriteJSON(w, http.StatusCreated, fromRun(result))
}

// HandleFindings handles GET /validation-runs/{reportMonth}/versions/{version}/findings.
func (h *Handler) HandleFindings(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	reportMonth := chi.URLParam(r, "reportMonth")
	version, err := strconv.Atoi(chi.URLParam(r, "version"))
	if err != nil {
		httputil.WriteError(w, dErrors.New(dErrors.CodeBadRequest, "version must be an integer"))
		return
	}

	findings, err := h.service.ListFindings(ctx, reportMonth, version, r.URL.Query().Get("sort"))
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, fromFindings(findings))
}

// HandleStats handles GET /validation-runs/stats.
func (h *Handler) HandleStats(w http.ResponseWriter, r *http.Request) {
	stats, err := h.service.MonthStats(r.Context())
	if err != nil {
		h.logger.ErrorContext(r.Context(), "validation stats failed", "error", err)
		httputil.WriteError(w, err)
		return
	}
	if stats == nil {
		stats = []validation.MonthStats{}
	}
	httputil.WriteJSON(w, http.StatusOK, stats)
}
