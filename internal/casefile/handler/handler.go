package handler

import (
	"context"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"

	"tdrs/internal/casefile"
	dErrors "tdrs/pkg/domain-errors"
	"tdrs/pkg/platform/httputil"
	"tdrs/pkg/requestcontext"
)

type Service interface {
	OpenQuarter(ctx context.Context, label string) (*casefile.Quarter, []casefile.Month, error)
}

type Handler struct {
	service Service
	logger  *slog.Logger
}

func New(service Service, logger *slog.Logger) *Handler {
	return &Handler{service: service, logger: logger}
}

func (h *Handler) Register(r chi.Router) {
	r.Post("/quarters", h.HandleOpenQuarter)
}

type OpenQuarterRequest struct {
	Label string `json:"label"`
}

func (r *OpenQuarterRequest) Validate() error {
	r.Label = strings.ToUpper(strings.TrimSpace(r.Label))
	if r.Label == "" {
		return dErrors.New(dErrors.CodeValidation, "label is required")
	}
	return nil
}

type MonthResponse struct {
	ID        int64  `json:"id"`
	Label     string `json:"label"`
	StartDate string `json:"start_date"`
	EndDate   string `json:"end_date"`
}

type QuarterResponse struct {
	ID        int64           `json:"id"`
	Label     string          `json:"label"`
	StartDate string          `json:"start_date"`
	EndDate   string          `json:"end_date"`
	Months    []MonthResponse `json:"months"`
}

// HandleOpenQuarter handles POST /quarters.
func (h *Handler) HandleOpenQuarter(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	requestID := requestcontext.RequestID(ctx)
	req, ok := httputil.DecodeAndPrepare[OpenQuarterRequest](w, r, h.logger, ctx, requestID)
	if !ok {
		return
	}

	q, months, err := h.service.OpenQuarter(ctx, req.Label)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	resp := QuarterResponse{
		ID:        q.ID,
		Label:     q.Label,
		StartDate: q.StartDate.Format(time.DateOnly),
		EndDate:   q.EndDate.Format(time.DateOnly),
		Months:    make([]MonthResponse, 0, len(months)),
	}
	for _, m := range months {
		resp.Months = append(resp.Months, MonthResponse{
			ID:        m.ID,
			Label:     m.Label,
			StartDate: m.StartDate.Format(time.DateOnly),
			EndDate:   m.EndDate.Format(time.DateOnly),
		})
	}
	httputil.WriteJSON(w, http.StatusCreated, resp)
}
