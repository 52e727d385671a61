package observability

import (
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Metrics holds the storefront's prometheus collectors.
type Metrics struct {
	registry       *prometheus.Registry
	requests       *prometheus.CounterVec
	requestLatency *prometheus.HistogramVec
	errors         *prometheus.CounterVec
	guards         *prometheus.CounterVec
	hydrations     *prometheus.CounterVec
	logouts        *prometheus.CounterVec
}

// NewMetrics registers collectors on a private registry.
func NewMetrics() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		requests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "storefront_http_requests_total",
			Help: "Total number of HTTP requests.",
		}, []string{"method", "path", "status"}),
		requestLatency: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "storefront_http_request_duration_seconds",
			Help:    "HTTP request latencies in seconds.",
			Buckets: prometheus.DefBuckets,
		}, []string{"method", "path"}),
		errors: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "storefront_http_errors_total",
			Help: "HTTP errors by error code.",
		}, []string{"method", "path", "code"}),
		guards: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "storefront_guard_decisions_total",
			Help: "Route guard decisions by outcome.",
		}, []string{"domain", "gate", "outcome"}),
		hydrations: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "storefront_hydrations_total",
			Help: "Session hydrations by result.",
		}, []string{"domain", "result"}),
		logouts: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "storefront_logouts_total",
			Help: "Logouts by remote invalidation result.",
		}, []string{"domain", "remote"}),
	}
	m.registry.MustRegister(m.requests, m.requestLatency, m.errors, m.guards, m.hydrations, m.logouts)
	return m
}

// Registry exposes the registry for the /metrics handler.
func (m *Metrics) Registry() *prometheus.Registry {
	if m == nil {
		return nil
	}
	return m.registry
}

// RecordRequest increments counters for requests.
func (m *Metrics) RecordRequest(path, method string, status int, duration time.Duration) {
	if m == nil {
		return
	}
	m.requests.WithLabelValues(method, path, strconv.Itoa(status)).Inc()
	m.requestLatency.WithLabelValues(method, path).Observe(duration.Seconds())
}

// RecordError counts an error response by code.
func (m *Metrics) RecordError(path, method, code string) {
	if m == nil {
		return
	}
	m.errors.WithLabelValues(method, path, code).Inc()
}

// RecordGuard counts one guard decision.
func (m *Metrics) RecordGuard(domain, gate, outcome string) {
	if m == nil {
		return
	}
	m.guards.WithLabelValues(domain, gate, outcome).Inc()
}

// RecordHydration counts one hydration result (authenticated, absent, decode_failed, store_error).
func (m *Metrics) RecordHydration(domain, result string) {
	if m == nil {
		return
	}
	m.hydrations.WithLabelValues(domain, result).Inc()
}

// RecordLogout counts one logout and whether remote invalidation succeeded.
func (m *Metrics) RecordLogout(domain, remote string) {
	if m == nil {
		return
	}
	m.logouts.WithLabelValues(domain, remote).Inc()
}
