// Package monitoring exposes Prometheus metrics for script runs.
package monitoring

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds all Prometheus metrics for the script engine
type Metrics struct {
	RunsTotal    *prometheus.CounterVec
	RunDuration  *prometheus.HistogramVec
	ActiveRuns   prometheus.Gauge
	FetchesTotal prometheus.Counter
	TestOutcomes *prometheus.CounterVec
}

// NewMetrics creates a metrics collector registered on reg. Pass a fresh
// registry per engine instance; tests use their own.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)
	return &Metrics{
		RunsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "relay_script_runs_total",
				Help: "Total number of script runs",
			},
			[]string{"phase", "outcome"},
		),
		RunDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "relay_script_run_duration_seconds",
				Help:    "Script run duration in seconds",
				Buckets: []float64{.005, .01, .025, .05, .1, .25, .5, 1, 2.5, 5, 10, 30},
			},
			[]string{"phase"},
		),
		ActiveRuns: factory.NewGauge(
			prometheus.GaugeOpts{
				Name: "relay_script_runs_active",
				Help: "Script runs currently executing",
			},
		),
		FetchesTotal: factory.NewCounter(
			prometheus.CounterOpts{
				Name: "relay_script_fetches_total",
				Help: "Total number of guest fetch calls",
			},
		),
		TestOutcomes: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "relay_script_test_outcomes_total",
				Help: "Recorded assertion outcomes by status",
			},
			[]string{"status"},
		),
	}
}

// ObserveRun records one finished run
func (m *Metrics) ObserveRun(phase, outcome string, d time.Duration) {
	m.RunsTotal.WithLabelValues(phase, outcome).Inc()
	m.RunDuration.WithLabelValues(phase).Observe(d.Seconds())
}
