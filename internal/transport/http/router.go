package httptransport

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"tdrs/internal/platform/metrics"
	"tdrs/internal/platform/middleware"
	"tdrs/pkg/platform/httputil"
	"tdrs/pkg/platform/middleware/requesttime"
)

// Registrar mounts one domain's endpoints.
type Registrar interface {
	Register(r chi.Router)
}

// HealthCheck reports whether a dependency is reachable.
type HealthCheck func(ctx context.Context) error

type Config struct {
	Logger   *slog.Logger
	Metrics  *metrics.Metrics
	Health   map[string]HealthCheck
	Handlers []Registrar
}

// NewRouter wires the middleware chain, operational endpoints and every domain
// handler. Handlers stay thin and delegate to their services.
func NewRouter(cfg Config) http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(chimiddleware.RealIP)
	r.Use(middleware.Logger(cfg.Logger))
	r.Use(chimiddleware.Recoverer)
	if cfg.Metrics != nil {
		r.Use(cfg.Metrics.Middleware)
	}
	r.Use(requesttime.Middleware)
	r.Use(middleware.RemoteUser)

	r.Get("/healthz", healthz(cfg.Health))
	r.Handle("/metrics", promhttp.Handler())

	for _, h := range cfg.Handlers {
		h.Register(r)
	}
	return r
}

func healthz(checks map[string]HealthCheck) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
		defer cancel()

		status := http.StatusOK
		out := map[string]string{}
		for name, check := range checks {
			if err := check(ctx); err != nil {
				out[name] = err.Error()
				status = http.StatusServiceUnavailable
				continue
			}
			out[name] = "ok"
		}
		httputil.WriteJSON(w, status, out)
	}
}
