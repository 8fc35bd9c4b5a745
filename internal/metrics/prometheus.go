// Package metrics provides Prometheus metrics for checklist computation and the HTTP surface.
package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/preventive-care-server/internal/domain"
)

// Metrics holds all application metrics
type Metrics struct {
	registry *prometheus.Registry

	ChecklistsComputed prometheus.Counter
	ComputeDuration    prometheus.Histogram
	Recommendations    *prometheus.CounterVec
	CacheLookups       *prometheus.CounterVec
	SnapshotFailures   prometheus.Counter
	HTTPRequests       *prometheus.CounterVec
	HTTPDuration       *prometheus.HistogramVec
}

// New creates all metrics on a private registry together with the Go and process collectors.
func New() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		ChecklistsComputed: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "checklists_computed_total",
			Help: "Total checklists evaluated by the engine",
		}),
		ComputeDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "checklist_compute_duration_seconds",
			Help:    "Checklist computation duration including cache lookups",
			Buckets: []float64{.0005, .001, .005, .01, .025, .05, .1, .25, .5, 1},
		}),
		Recommendations: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "recommendations_total",
			Help: "Recommendations emitted, by status",
		}, []string{"status"}),
		CacheLookups: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "checklist_cache_lookups_total",
			Help: "Checklist cache lookups, by result",
		}, []string{"result"}),
		SnapshotFailures: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "checklist_snapshot_failures_total",
			Help: "Snapshots that could not be persisted",
		}),
		HTTPRequests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "http_requests_total",
			Help: "HTTP requests, by method, route and status code",
		}, []string{"method", "route", "code"}),
		HTTPDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "http_request_duration_seconds",
			Help:    "HTTP request duration",
			Buckets: prometheus.DefBuckets,
		}, []string{"method", "route"}),
	}

	m.registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		m.ChecklistsComputed,
		m.ComputeDuration,
		m.Recommendations,
		m.CacheLookups,
		m.SnapshotFailures,
		m.HTTPRequests,
		m.HTTPDuration,
	)

	return m
}

// ObserveChecklist records one computed checklist.
func (m *Metrics) ObserveChecklist(checklist *domain.Checklist, elapsed time.Duration, cacheHit bool) {
	if m == nil || checklist == nil {
		return
	}
	if cacheHit {
		m.CacheLookups.WithLabelValues("hit").Inc()
	} else {
		m.CacheLookups.WithLabelValues("miss").Inc()
		m.ChecklistsComputed.Inc()
	}
	m.ComputeDuration.Observe(elapsed.Seconds())
	for _, r := range checklist.Recommendations {
		m.Recommendations.WithLabelValues(string(r.Status)).Inc()
	}
}

// ObserveSnapshotFailure counts a snapshot that could not be saved.
func (m *Metrics) ObserveSnapshotFailure() {
	if m == nil {
		return
	}
	m.SnapshotFailures.Inc()
}

// ObserveRequest records one HTTP request.
func (m *Metrics) ObserveRequest(method, route, code string, elapsed time.Duration) {
	if m == nil {
		return
	}
	m.HTTPRequests.WithLabelValues(method, route, code).Inc()
	m.HTTPDuration.WithLabelValues(method, route).Observe(elapsed.Seconds())
}

// Registry exposes the underlying registry for tests and custom collectors.
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

// Handler returns the Prometheus HTTP handler for this registry
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}
