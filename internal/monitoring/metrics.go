package monitoring

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// =============================================================================
// METRICS
// A fixed set of Prometheus collectors exported from the cycle scheduler and
// persistence layer, registered once at startup rather than created
// dynamically per metric name.
// =============================================================================

// Metrics holds the collectors the core exports.
type Metrics struct {
	registry *prometheus.Registry

	ProbeDuration    *prometheus.HistogramVec
	CyclesTotal      prometheus.Counter
	CyclesSkipped    prometheus.Counter
	ProbesTotal      *prometheus.CounterVec
	PersistenceError *prometheus.CounterVec
}

// NewMetrics creates and registers the core's collectors.
func NewMetrics() *Metrics {
	registry := prometheus.NewRegistry()

	m := &Metrics{
		registry: registry,
		ProbeDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "statusmon_probe_duration_seconds",
				Help:    "Wall-clock duration of a probe, including retries and backoff.",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"service_id"},
		),
		CyclesTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "statusmon_cycles_total",
			Help: "Total monitoring cycles started.",
		}),
		CyclesSkipped: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "statusmon_cycles_skipped_total",
			Help: "Cycles skipped because the previous cycle was still running.",
		}),
		ProbesTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "statusmon_probes_total",
				Help: "Total probes, labelled by resulting status.",
			},
			[]string{"service_id", "status"},
		),
		PersistenceError: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "statusmon_persistence_errors_total",
				Help: "Persistence write failures, labelled by write step.",
			},
			[]string{"step"},
		),
	}

	registry.MustRegister(m.ProbeDuration, m.CyclesTotal, m.CyclesSkipped, m.ProbesTotal, m.PersistenceError)
	return m
}

// Handler returns the HTTP handler serving this registry's metrics.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}
