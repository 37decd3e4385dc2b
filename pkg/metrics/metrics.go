package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Collector provides application metrics collection
type Collector struct {
	// API Metrics
	APIRequestsTotal   *prometheus.CounterVec
	APIRequestDuration *prometheus.HistogramVec
	APIErrorsTotal     *prometheus.CounterVec

	// Upstream Provider Metrics
	ProviderRequestsTotal   *prometheus.CounterVec
	ProviderRequestDuration *prometheus.HistogramVec
	ProviderErrorsTotal     *prometheus.CounterVec

	// Session Metrics
	SessionEventsTotal       *prometheus.CounterVec
	ResolutionCyclesTotal    *prometheus.CounterVec
	StaleResultsDroppedTotal *prometheus.CounterVec

	// System Metrics
	WatchClients prometheus.Gauge
}

// NewCollector creates a new metrics collector
func NewCollector(namespace string) *Collector {
	return &Collector{
		APIRequestsTotal: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "api_requests_total",
				Help:      "Total number of API requests by endpoint, method, and status",
			},
			[]string{"endpoint", "method", "status"},
		),

		APIRequestDuration: promauto.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "api_request_duration_seconds",
				Help:      "API request duration in seconds",
				Buckets:   []float64{0.001, 0.005, 0.01, 0.02, 0.05, 0.1, 0.2, 0.5, 1.0, 2.0, 5.0},
			},
			[]string{"endpoint"},
		),

		APIErrorsTotal: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "api_errors_total",
				Help:      "Total number of API errors by type",
			},
			[]string{"error_type", "endpoint"},
		),

		ProviderRequestsTotal: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "provider_requests_total",
				Help:      "Total number of upstream provider requests by provider, operation, and status",
			},
			[]string{"provider", "operation", "status"},
		),

		ProviderRequestDuration: promauto.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "provider_request_duration_seconds",
				Help:      "Upstream provider request duration in seconds",
				Buckets:   []float64{0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1.0, 2.5, 5.0, 10.0},
			},
			[]string{"provider", "operation"},
		),

		ProviderErrorsTotal: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "provider_errors_total",
				Help:      "Total number of upstream provider errors by provider and type",
			},
			[]string{"provider", "error_type"},
		),

		SessionEventsTotal: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "session_events_total",
				Help:      "Total number of session state events applied by event type",
			},
			[]string{"event"},
		),

		ResolutionCyclesTotal: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "resolution_cycles_total",
				Help:      "Total number of location resolution cycles by outcome",
			},
			[]string{"outcome"},
		),

		StaleResultsDroppedTotal: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "stale_results_dropped_total",
				Help:      "Total number of provider results discarded because a newer cycle superseded them",
			},
			[]string{"operation"},
		),

		WatchClients: promauto.NewGauge(
			prometheus.GaugeOpts{
				Namespace: namespace,
				Name:      "watch_clients",
				Help:      "Number of connected state watch clients",
			},
		),
	}
}

// Timer provides timing functionality for operations
type Timer struct {
	start    time.Time
	observer prometheus.Observer
}

// NewTimer creates a new timer
func (c *Collector) NewTimer(histogram prometheus.Observer) *Timer {
	return &Timer{
		start:    time.Now(),
		observer: histogram,
	}
}

// ObserveDuration records the elapsed time since timer creation
func (t *Timer) ObserveDuration() time.Duration {
	duration := time.Since(t.start)
	if t.observer != nil {
		t.observer.Observe(duration.Seconds())
	}
	return duration
}

// RecordAPIRequest increments API request counter
func (c *Collector) RecordAPIRequest(endpoint, method, status string) {
	c.APIRequestsTotal.WithLabelValues(endpoint, method, status).Inc()
}

// RecordAPIError increments API error counter
func (c *Collector) RecordAPIError(errorType, endpoint string) {
	c.APIErrorsTotal.WithLabelValues(errorType, endpoint).Inc()
}

// RecordProviderRequest increments the provider request counter
func (c *Collector) RecordProviderRequest(provider, operation, status string) {
	c.ProviderRequestsTotal.WithLabelValues(provider, operation, status).Inc()
}

// RecordProviderError increments the provider error counter
func (c *Collector) RecordProviderError(provider, errorType string) {
	c.ProviderErrorsTotal.WithLabelValues(provider, errorType).Inc()
}

// RecordSessionEvent increments the session event counter
func (c *Collector) RecordSessionEvent(event string) {
	c.SessionEventsTotal.WithLabelValues(event).Inc()
}

// RecordResolution increments the resolution cycle counter
func (c *Collector) RecordResolution(outcome string) {
	c.ResolutionCyclesTotal.WithLabelValues(outcome).Inc()
}

// RecordStaleDrop increments the stale result counter
func (c *Collector) RecordStaleDrop(operation string) {
	c.StaleResultsDroppedTotal.WithLabelValues(operation).Inc()
}

// SetWatchClients updates the connected watch client gauge
func (c *Collector) SetWatchClients(count int) {
	c.WatchClients.Set(float64(count))
}
