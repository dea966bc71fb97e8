package metrics

import (
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds all Prometheus metrics for the care service
type Metrics struct {
	registry *prometheus.Registry

	// HTTP request metrics
	httpRequestsTotal    *prometheus.CounterVec
	httpRequestDuration  *prometheus.HistogramVec
	httpRequestsInFlight prometheus.Gauge

	// Outbound call metrics
	callsInitiatedTotal prometheus.Counter
	callsFailedTotal    prometheus.Counter

	// Provider request metrics
	providerRequestsTotal   *prometheus.CounterVec
	providerRequestDuration prometheus.Histogram

	// Live voice session metrics
	voiceSessionsActive prometheus.Gauge
	voiceSessionsTotal  prometheus.Counter

	// Stats cache metrics
	cacheHitsTotal   prometheus.Counter
	cacheMissesTotal prometheus.Counter
}

// NewMetrics creates and registers all metrics on a dedicated registry
func NewMetrics(serviceName string) *Metrics {
	registry := prometheus.NewRegistry()
	factory := promauto.With(registry)
	labels := prometheus.Labels{"service": serviceName}

	return &Metrics{
		registry: registry,

		httpRequestsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name:        "http_requests_total",
				Help:        "Total number of HTTP requests",
				ConstLabels: labels,
			},
			[]string{"method", "endpoint", "status"},
		),
		httpRequestDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:        "http_request_duration_seconds",
				Help:        "HTTP request latency in seconds",
				ConstLabels: labels,
				Buckets:     prometheus.DefBuckets,
			},
			[]string{"method", "endpoint"},
		),
		httpRequestsInFlight: factory.NewGauge(
			prometheus.GaugeOpts{
				Name:        "http_requests_in_flight",
				Help:        "Number of HTTP requests currently being processed",
				ConstLabels: labels,
			},
		),

		callsInitiatedTotal: factory.NewCounter(
			prometheus.CounterOpts{
				Name:        "calls_initiated_total",
				Help:        "Total number of outbound calls successfully initiated",
				ConstLabels: labels,
			},
		),
		callsFailedTotal: factory.NewCounter(
			prometheus.CounterOpts{
				Name:        "calls_failed_total",
				Help:        "Total number of outbound call initiations that failed",
				ConstLabels: labels,
			},
		),

		providerRequestsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name:        "provider_requests_total",
				Help:        "Total number of voice provider API requests",
				ConstLabels: labels,
			},
			[]string{"status"},
		),
		providerRequestDuration: factory.NewHistogram(
			prometheus.HistogramOpts{
				Name:        "provider_request_duration_seconds",
				Help:        "Voice provider API request latency in seconds",
				ConstLabels: labels,
				Buckets:     prometheus.DefBuckets,
			},
		),

		voiceSessionsActive: factory.NewGauge(
			prometheus.GaugeOpts{
				Name:        "voice_sessions_active",
				Help:        "Number of live voice sessions currently open",
				ConstLabels: labels,
			},
		),
		voiceSessionsTotal: factory.NewCounter(
			prometheus.CounterOpts{
				Name:        "voice_sessions_total",
				Help:        "Total number of live voice sessions started",
				ConstLabels: labels,
			},
		),

		cacheHitsTotal: factory.NewCounter(
			prometheus.CounterOpts{
				Name:        "stats_cache_hits_total",
				Help:        "Total number of dashboard stats cache hits",
				ConstLabels: labels,
			},
		),
		cacheMissesTotal: factory.NewCounter(
			prometheus.CounterOpts{
				Name:        "stats_cache_misses_total",
				Help:        "Total number of dashboard stats cache misses",
				ConstLabels: labels,
			},
		),
	}
}

// GetRegistry returns the metrics registry for the /metrics endpoint
func (m *Metrics) GetRegistry() *prometheus.Registry {
	return m.registry
}

// RecordHTTPRequest records one completed HTTP request
func (m *Metrics) RecordHTTPRequest(method, endpoint string, status int, duration time.Duration) {
	m.httpRequestsTotal.WithLabelValues(method, endpoint, strconv.Itoa(status)).Inc()
	m.httpRequestDuration.WithLabelValues(method, endpoint).Observe(duration.Seconds())
}

// IncrementHTTPRequestsInFlight increments the in-flight gauge
func (m *Metrics) IncrementHTTPRequestsInFlight() {
	m.httpRequestsInFlight.Inc()
}

// DecrementHTTPRequestsInFlight decrements the in-flight gauge
func (m *Metrics) DecrementHTTPRequestsInFlight() {
	m.httpRequestsInFlight.Dec()
}

// RecordCallInitiated counts a successful outbound call initiation
func (m *Metrics) RecordCallInitiated() {
	m.callsInitiatedTotal.Inc()
}

// RecordCallFailed counts a failed outbound call initiation
func (m *Metrics) RecordCallFailed() {
	m.callsFailedTotal.Inc()
}

// RecordProviderRequest records one provider API request
func (m *Metrics) RecordProviderRequest(status int, duration time.Duration) {
	m.providerRequestsTotal.WithLabelValues(strconv.Itoa(status)).Inc()
	m.providerRequestDuration.Observe(duration.Seconds())
}

// VoiceSessionStarted records a live session opening
func (m *Metrics) VoiceSessionStarted() {
	m.voiceSessionsTotal.Inc()
	m.voiceSessionsActive.Inc()
}

// VoiceSessionEnded records a live session closing
func (m *Metrics) VoiceSessionEnded() {
	m.voiceSessionsActive.Dec()
}

// RecordCacheHit counts a dashboard stats cache hit
func (m *Metrics) RecordCacheHit() {
	m.cacheHitsTotal.Inc()
}

// RecordCacheMiss counts a dashboard stats cache miss
func (m *Metrics) RecordCacheMiss() {
	m.cacheMissesTotal.Inc()
}
