package importer

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics for bulk imports. A nil *Metrics records nothing.
type Metrics struct {
	Rows     *prometheus.CounterVec
	Rejected *prometheus.CounterVec
}

func NewMetrics() *Metrics {
	return &Metrics{
		Rows: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "tdrs_import_rows_total",
			Help: "Imported rows by model type and outcome",
		}, []string{"model_type", "outcome"}), // outcome: "saved", "failed"

		Rejected: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "tdrs_import_files_rejected_total",
			Help: "Files rejected before any row was processed",
		}, []string{"model_type"}),
	}
}

func (m *Metrics) AddRows(modelType ModelType, saved, failed int) {
	if m == nil {
		return
	}
	m.Rows.WithLabelValues(string(modelType), "saved").Add(float64(saved))
	m.Rows.WithLabelValues(string(modelType), "failed").Add(float64(failed))
}

func (m *Metrics) IncrementRejected(modelType ModelType) {
	if m != nil {
		m.Rejected.WithLabelValues(string(modelType)).Inc()
	}
}
