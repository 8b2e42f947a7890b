package extract

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics for extract generation. A nil *Metrics records nothing.
type Metrics struct {
	Runs        *prometheus.CounterVec
	Records     prometheus.Counter
	RunDuration prometheus.Histogram
}

func NewMetrics() *Metrics {
	return &Metrics{
		Runs: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "tdrs_extract_runs_total",
			Help: "Extract generation runs by outcome",
		}, []string{"outcome"}), // outcome: "success", "locked", "error"

		Records: promauto.NewCounter(prometheus.CounterOpts{
			Name: "tdrs_extract_records_total",
			Help: "Records written to generated extracts",
		}),

		RunDuration: promauto.NewHistogram(prometheus.HistogramOpts{
			Name:    "tdrs_extract_run_duration_seconds",
			Help:    "Duration of extract generation",
			Buckets: []float64{0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30},
		}),
	}
}

func (m *Metrics) IncrementRun(outcome string) {
	if m != nil {
		m.Runs.WithLabelValues(outcome).Inc()
	}
}

func (m *Metrics) AddRecords(n int) {
	if m != nil {
		m.Records.Add(float64(n))
	}
}

func (m *Metrics) ObserveRunDuration(d time.Duration) {
	if m != nil {
		m.RunDuration.Observe(d.Seconds())
	}
}
