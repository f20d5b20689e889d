// Package metrics exposes Prometheus collectors for the HTTP surface and
// the snapshot/audit side effects.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Metrics holds every collector the service registers.
type Metrics struct {
	RequestsTotal   *prometheus.CounterVec
	RequestDuration *prometheus.HistogramVec
	MutationsTotal  *prometheus.CounterVec
	SnapshotsTotal  *prometheus.CounterVec
	AuditFailures   prometheus.Counter

	registry *prometheus.Registry
}

// New creates and registers the collectors on a private registry.
func New() *Metrics {
	registry := prometheus.NewRegistry()

	m := &Metrics{
		RequestsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "demandas_http_requests_total",
			Help: "HTTP requests by method, path and status.",
		}, []string{"method", "path", "status"}),
		RequestDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "demandas_http_request_duration_seconds",
			Help:    "HTTP request latency.",
			Buckets: prometheus.DefBuckets,
		}, []string{"method", "path"}),
		MutationsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "demandas_mutations_total",
			Help: "Demanda mutations by action.",
		}, []string{"action"}),
		SnapshotsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "demandas_snapshots_total",
			Help: "Snapshots taken by kind.",
		}, []string{"kind"}),
		AuditFailures: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "demandas_audit_failures_total",
			Help: "Audit entries that failed to persist.",
		}),
		registry: registry,
	}

	registry.MustRegister(
		m.RequestsTotal,
		m.RequestDuration,
		m.MutationsTotal,
		m.SnapshotsTotal,
		m.AuditFailures,
	)
	return m
}

// Registry returns the Prometheus registry for the /metrics handler.
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}
