// Package metrics exposes Prometheus collectors for HTTP traffic and a few
// domain counters.
package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "lingoschool"

// Metrics holds every collector the service records to
type Metrics struct {
	registry *prometheus.Registry

	httpRequests *prometheus.CounterVec
	httpDuration *prometheus.HistogramVec

	studentIDs      *prometheus.CounterVec
	offlineQueued   prometheus.Counter
	pdfsRendered    prometheus.Counter
	eventsPublished *prometheus.CounterVec
}

// New registers the collectors on a fresh registry
func New() *Metrics {
	reg := prometheus.NewRegistry()
	m := &Metrics{
		registry: reg,
		httpRequests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "http_requests_total",
			Help:      "HTTP requests by method, route and status code.",
		}, []string{"method", "route", "status"}),
		httpDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "http_request_duration_seconds",
			Help:      "HTTP request latency by method and route.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"method", "route"}),
		studentIDs: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "student_ids_issued_total",
			Help:      "Student IDs issued, by mode (online or offline).",
		}, []string{"mode"}),
		offlineQueued: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "offline_registrations_queued_total",
			Help:      "Registrations written to the offline queue.",
		}),
		pdfsRendered: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "agreement_pdfs_rendered_total",
			Help:      "Agreement PDFs rendered.",
		}),
		eventsPublished: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "events_published_total",
			Help:      "Domain events published, by type.",
		}, []string{"type"}),
	}

	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		m.httpRequests,
		m.httpDuration,
		m.studentIDs,
		m.offlineQueued,
		m.pdfsRendered,
		m.eventsPublished,
	)
	return m
}

// Handler serves the registry in the Prometheus exposition format
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{Registry: m.registry})
}

// Registry exposes the underlying registry
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

// ObserveRequest records one finished HTTP request
func (m *Metrics) ObserveRequest(method, route string, status int, elapsed time.Duration) {
	if m == nil {
		return
	}
	if route == "" {
		route = "unmatched"
	}
	m.httpRequests.WithLabelValues(method, route, strconv.Itoa(status)).Inc()
	m.httpDuration.WithLabelValues(method, route).Observe(elapsed.Seconds())
}

// StudentIDIssued counts an issued ID
func (m *Metrics) StudentIDIssued(offline bool) {
	if m == nil {
		return
	}
	mode := "online"
	if offline {
		mode = "offline"
	}
	m.studentIDs.WithLabelValues(mode).Inc()
}

// OfflineRegistrationQueued counts a queued registration
func (m *Metrics) OfflineRegistrationQueued() {
	if m == nil {
		return
	}
	m.offlineQueued.Inc()
}

// PDFRendered counts a rendered agreement
func (m *Metrics) PDFRendered() {
	if m == nil {
		return
	}
	m.pdfsRendered.Inc()
}

// EventPublished counts a published domain event
func (m *Metrics) EventPublished(eventType string) {
	if m == nil {
		return
	}
	m.eventsPublished.WithLabelValues(eventType).Inc()
}
