package observability

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds the instruments for one pipeline run. Each run gets its own
// registry so repeated runs in one process do not collide.
type Metrics struct {
	Registry *prometheus.Registry

	// StageDuration measures stage execution time in seconds
	StageDuration *prometheus.HistogramVec
	// StagesTotal counts finished stages by status: success, failed
	StagesTotal *prometheus.CounterVec
	// RowsLoaded tracks the row count of each source table
	RowsLoaded *prometheus.GaugeVec
	// RowsWritten tracks the row count of each output table
	RowsWritten *prometheus.GaugeVec
	// WarningsTotal counts dropped or flagged records by category
	WarningsTotal *prometheus.CounterVec
	// Properties tracks the number of distinct property identities
	Properties prometheus.Gauge
}

// NewMetrics registers a fresh set of run instruments.
func NewMetrics() *Metrics {
	reg := prometheus.NewRegistry()
	f := promauto.With(reg)

	return &Metrics{
		Registry: reg,
		StageDuration: f.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "property_pipeline_stage_duration_seconds",
				Help:    "Stage execution duration in seconds",
				Buckets: prometheus.ExponentialBuckets(0.001, 4, 10), // 1ms to ~4min
			},
			[]string{"stage"},
		),
		StagesTotal: f.NewCounterVec(
			prometheus.CounterOpts{
				Name: "property_pipeline_stages_total",
				Help: "Total number of stages run",
			},
			[]string{"stage", "status"},
		),
		RowsLoaded: f.NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "property_pipeline_rows_loaded",
				Help: "Rows read from each source",
			},
			[]string{"source"},
		),
		RowsWritten: f.NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "property_pipeline_rows_written",
				Help: "Rows written to each output",
			},
			[]string{"output"},
		),
		WarningsTotal: f.NewCounterVec(
			prometheus.CounterOpts{
				Name: "property_pipeline_warnings_total",
				Help: "Records dropped or flagged, by category",
			},
			[]string{"category"},
		),
		Properties: f.NewGauge(prometheus.GaugeOpts{
			Name: "property_pipeline_properties",
			Help: "Distinct property identities in the output",
		}),
	}
}

// RecordStage observes one finished stage.
func (m *Metrics) RecordStage(stage string, seconds float64, err error) {
	status := "success"
	if err != nil {
		status = "failed"
	}
	m.StageDuration.WithLabelValues(stage).Observe(seconds)
	m.StagesTotal.WithLabelValues(stage, status).Inc()
}

// RecordWarnings adds every category count.
func (m *Metrics) RecordWarnings(counts map[string]int) {
	for category, n := range counts {
		m.WarningsTotal.WithLabelValues(category).Add(float64(n))
	}
}

// WriteTextfile writes the registry in the node-exporter textfile format.
func (m *Metrics) WriteTextfile(path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("metrics: create dir: %w", err)
	}
	if err := prometheus.WriteToTextfile(path, m.Registry); err != nil {
		return fmt.Errorf("metrics: write %q: %w", path, err)
	}
	return nil
}
