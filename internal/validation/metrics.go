package validation

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics for validation runs. A nil *Metrics records nothing.
type Metrics struct {
	Runs        *prometheus.CounterVec
	Findings    *prometheus.CounterVec
	RunDuration prometheus.Histogram
}

// NewMetrics registers the validation metrics with the default registry.
func NewMetrics() *Metrics {
	return &Metrics{
		Runs: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "tdrs_validation_runs_total",
			Help: "Validation runs by outcome",
		}, []string{"outcome"}), // outcome: "clean", "findings", "error"

		Findings: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "tdrs_validation_findings_total",
			Help: "Findings written by edit code",
		}, []string{"edit_code"}),

		RunDuration: promauto.NewHistogram(prometheus.HistogramOpts{
			Name:    "tdrs_validation_run_duration_seconds",
			Help:    "Duration of a full validation run including the ledger write",
			Buckets: []float64{0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30},
		}),
	}
}

func (m *Metrics) IncrementRun(outcome string) {
	if m != nil {
		m.Runs.WithLabelValues(outcome).Inc()
	}
}

func (m *Metrics) AddFindings(findings []Finding) {
	if m == nil {
		return
	}
	for _, f := range findings {
		m.Findings.WithLabelValues(f.EditCode).Inc()
	}
}

func (m *Metrics) ObserveRunDuration(d time.Duration) {
	if m != nil {
		m.RunDuration.Observe(d.Seconds())
	}
}
