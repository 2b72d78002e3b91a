// Package metrics instruments qpilot with prometheus/client_golang
// counters and histograms, exposed over /metrics via promhttp. The
// teacher's own use of client_golang (pkg/monitoring/prometheus) is a
// query client reading an existing Prometheus server; this package is
// the instrumentation half of the same library that a service exposing
// metrics to that server needs.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Registry bundles the counters and histograms every qpilot component
// increments or observes.
type Registry struct {
	registry *prometheus.Registry

	JobsSubmitted  *prometheus.CounterVec
	JobsFinished   *prometheus.CounterVec
	JobsErrored    *prometheus.CounterVec
	JobsCanceled   *prometheus.CounterVec
	QueueDepth     prometheus.Gauge
	PilotCallSecs  *prometheus.HistogramVec
	CircuitQubits  prometheus.Histogram
}

// New builds a Registry with all metrics pre-registered.
func New() *Registry {
	reg := prometheus.NewRegistry()
	factory := promauto.With(reg)

	return &Registry{
		registry: reg,
		JobsSubmitted: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: "qpilot",
			Name:      "jobs_submitted_total",
			Help:      "Jobs submitted, labeled by provider and job type.",
		}, []string{"provider", "job_type"}),
		JobsFinished: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: "qpilot",
			Name:      "jobs_finished_total",
			Help:      "Jobs that reached FINISHED, labeled by provider and job type.",
		}, []string{"provider", "job_type"}),
		JobsErrored: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: "qpilot",
			Name:      "jobs_errored_total",
			Help:      "Jobs that reached ERROR, labeled by provider and job type.",
		}, []string{"provider", "job_type"}),
		JobsCanceled: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: "qpilot",
			Name:      "jobs_canceled_total",
			Help:      "Jobs that reached CANCELED, labeled by provider.",
		}, []string{"provider"}),
		QueueDepth: factory.NewGauge(prometheus.GaugeOpts{
			Namespace: "qpilot",
			Name:      "queue_depth",
			Help:      "Number of jobs currently queued awaiting a worker.",
		}),
		PilotCallSecs: factory.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "qpilot",
			Name:      "pilot_call_duration_seconds",
			Help:      "Latency of a single Run/ExecuteProviderSpecific call, labeled by provider.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"provider"}),
		CircuitQubits: factory.NewHistogram(prometheus.HistogramOpts{
			Namespace: "qpilot",
			Name:      "circuit_qubits",
			Help:      "Qubit count of transpiled circuits submitted for execution.",
			Buckets:   []float64{1, 2, 4, 8, 12, 16, 20, 24, 28, 32},
		}),
	}
}

// Handler returns the http.Handler to mount at /metrics.
func (r *Registry) Handler() http.Handler {
	return promhttp.HandlerFor(r.registry, promhttp.HandlerOpts{})
}
