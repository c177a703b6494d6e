// Package metrics exposes the server's Prometheus collectors.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "pagecraft"

// Metrics groups the collectors registered on one registry
type Metrics struct {
	registry *prometheus.Registry

	HTTPRequests   *prometheus.CounterVec
	HTTPDuration   *prometheus.HistogramVec
	AuthEvents     *prometheus.CounterVec
	GuardRedirects *prometheus.CounterVec
	TasksEnqueued  *prometheus.CounterVec
}

// New creates collectors on a private registry, so tests can build as many as they like
func New() *Metrics {
	registry := prometheus.NewRegistry()
	registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)

	m := &Metrics{
		registry: registry,
		HTTPRequests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "http",
			Name:      "requests_total",
			Help:      "HTTP requests by method, route and status.",
		}, []string{"method", "route", "status"}),
		HTTPDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "http",
			Name:      "request_duration_seconds",
			Help:      "HTTP request latency by method and route.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"method", "route"}),
		AuthEvents: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "auth",
			Name:      "events_total",
			Help:      "Authentication events (login, signup, refresh, social_sync, logout) by result.",
		}, []string{"event", "result"}),
		GuardRedirects: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "guard",
			Name:      "redirects_total",
			Help:      "Page navigations redirected by the route guard.",
		}, []string{"location"}),
		TasksEnqueued: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "tasks",
			Name:      "enqueued_total",
			Help:      "Background tasks enqueued by type and result.",
		}, []string{"type", "result"}),
	}

	registry.MustRegister(m.HTTPRequests, m.HTTPDuration, m.AuthEvents, m.GuardRedirects, m.TasksEnqueued)
	return m
}

// Registry returns the underlying registry
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

// Handler serves the registry in the Prometheus exposition format
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{Registry: m.registry})
}

// AuthEvent records one authentication outcome
func (m *Metrics) AuthEvent(event string, ok bool) {
	result := "success"
	if !ok {
		result = "failure"
	}
	m.AuthEvents.WithLabelValues(event, result).Inc()
}
