package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds all Prometheus metrics for the application.
// A nil *Metrics is valid and records nothing.
type Metrics struct {
	// RequestLatency tracks HTTP request latency by route and method
	RequestLatency *prometheus.HistogramVec
	// HTTPRequestsTotal total HTTP requests
	HTTPRequestsTotal *prometheus.CounterVec
	// HTTPRequestsInFlight current HTTP requests being processed
	HTTPRequestsInFlight prometheus.Gauge
	// GraphRequestsTotal counts outgoing Graph API calls by provider, method and outcome
	GraphRequestsTotal *prometheus.CounterVec
	// GraphRequestLatency tracks outgoing Graph API call latency, retries included
	GraphRequestLatency *prometheus.HistogramVec
	// GraphRetriesTotal counts retried Graph API attempts
	GraphRetriesTotal *prometheus.CounterVec
	// WebhookEventsTotal counts webhook deliveries by provider and outcome
	WebhookEventsTotal *prometheus.CounterVec
	// OAuthCallbacksTotal counts OAuth callbacks by provider and outcome
	OAuthCallbacksTotal *prometheus.CounterVec
	// CleanupDeletedTotal counts rows removed by the cleanup job
	CleanupDeletedTotal *prometheus.CounterVec
	registry            *prometheus.Registry
}

// NewMetrics creates and registers all Prometheus metrics
func NewMetrics(namespace string) *Metrics {
	registry := prometheus.NewRegistry()

	m := &Metrics{
		registry: registry,
		RequestLatency: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "request_latency_seconds",
				Help:      "HTTP request latency in seconds",
				Buckets:   []float64{0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1.0, 2.5, 5.0, 10.0},
			},
			[]string{"route", "method", "status"},
		),
		HTTPRequestsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "http_requests_total",
				Help:      "Total number of HTTP requests",
			},
			[]string{"route", "method", "status"},
		),
		HTTPRequestsInFlight: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Namespace: namespace,
				Name:      "http_requests_in_flight",
				Help:      "Current number of HTTP requests being processed",
			},
		),
		GraphRequestsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "graph_requests_total",
				Help:      "Total number of Graph API requests",
			},
			[]string{"provider", "method", "outcome"},
		),
		GraphRequestLatency: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "graph_request_latency_seconds",
				Help:      "Graph API request latency in seconds",
				Buckets:   []float64{0.05, 0.1, 0.25, 0.5, 1.0, 2.5, 5.0, 10.0, 30.0},
			},
			[]string{"provider", "method"},
		),
		GraphRetriesTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "graph_retries_total",
				Help:      "Total number of retried Graph API attempts",
			},
			[]string{"provider"},
		),
		WebhookEventsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "webhook_deliveries_total",
				Help:      "Total number of webhook deliveries",
			},
			[]string{"provider", "outcome"},
		),
		OAuthCallbacksTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "oauth_callbacks_total",
				Help:      "Total number of OAuth callbacks",
			},
			[]string{"provider", "outcome"},
		),
		CleanupDeletedTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "cleanup_deleted_total",
				Help:      "Total number of rows removed by the cleanup job",
			},
			[]string{"job"},
		),
	}

	registry.MustRegister(
		m.RequestLatency,
		m.HTTPRequestsTotal,
		m.HTTPRequestsInFlight,
		m.GraphRequestsTotal,
		m.GraphRequestLatency,
		m.GraphRetriesTotal,
		m.WebhookEventsTotal,
		m.OAuthCallbacksTotal,
		m.CleanupDeletedTotal,
		prometheus.NewGoCollector(),
		prometheus.NewProcessCollector(prometheus.ProcessCollectorOpts{}),
	)

	return m
}

// Handler returns the HTTP handler for the /metrics endpoint
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

func (m *Metrics) RecordRequestLatency(route, method, status string, durationSeconds float64) {
	if m == nil {
		return
	}
	m.RequestLatency.WithLabelValues(route, method, status).Observe(durationSeconds)
}

func (m *Metrics) RecordHTTPRequest(route, method, status string) {
	if m == nil {
		return
	}
	m.HTTPRequestsTotal.WithLabelValues(route, method, status).Inc()
}

func (m *Metrics) IncHTTPRequestsInFlight() {
	if m == nil {
		return
	}
	m.HTTPRequestsInFlight.Inc()
}

func (m *Metrics) DecHTTPRequestsInFlight() {
	if m == nil {
		return
	}
	m.HTTPRequestsInFlight.Dec()
}

func (m *Metrics) RecordGraphRequest(provider, method, outcome string, durationSeconds float64) {
	if m == nil {
		return
	}
	m.GraphRequestsTotal.WithLabelValues(provider, method, outcome).Inc()
	m.GraphRequestLatency.WithLabelValues(provider, method).Observe(durationSeconds)
}

func (m *Metrics) RecordGraphRetry(provider string) {
	if m == nil {
		return
	}
	m.GraphRetriesTotal.WithLabelValues(provider).Inc()
}

func (m *Metrics) RecordWebhookEvent(provider, outcome string) {
	if m == nil {
		return
	}
	m.WebhookEventsTotal.WithLabelValues(provider, outcome).Inc()
}

func (m *Metrics) RecordOAuthCallback(provider, outcome string) {
	if m == nil {
		return
	}
	m.OAuthCallbacksTotal.WithLabelValues(provider, outcome).Inc()
}

func (m *Metrics) RecordCleanup(job string, deleted int64) {
	if m == nil || deleted <= 0 {
		return
	}
	m.CleanupDeletedTotal.WithLabelValues(job).Add(float64(deleted))
}
