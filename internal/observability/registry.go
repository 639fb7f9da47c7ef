package observability

import "time"

// MetricsRegistry provides an interface for recording application metrics.
// Handlers and services depend on this instead of the global Prometheus
// collectors so tests can inject a no-op implementation.
type MetricsRegistry interface {
	// HTTP request metrics
	IncrementRequests(endpoint, method, status string)
	RecordRequestLatency(endpoint, method string, duration time.Duration)

	// Dataset lifecycle metrics
	IncrementDatasetsCreated()
	AddRowsLoaded(kind string, n int)
	IncrementUploadFailures(kind string)

	// Count query metrics
	IncrementCountQueries(mode string)
	RecordCountQueryLatency(duration time.Duration)
	IncrementCountCacheLookups(outcome string)
}

// PrometheusRegistry implements MetricsRegistry using the package-level
// Prometheus collectors.
type PrometheusRegistry struct{}

// NewPrometheusRegistry creates a new PrometheusRegistry.
func NewPrometheusRegistry() *PrometheusRegistry {
	return &PrometheusRegistry{}
}

func (r *PrometheusRegistry) IncrementRequests(endpoint, method, status string) {
	RequestCount.WithLabelValues(endpoint, method, status).Inc()
}

func (r *PrometheusRegistry) RecordRequestLatency(endpoint, method string, duration time.Duration) {
	RequestLatency.WithLabelValues(endpoint, method).Observe(duration.Seconds())
}

func (r *PrometheusRegistry) IncrementDatasetsCreated() {
	DatasetCreatedCount.Inc()
}

func (r *PrometheusRegistry) AddRowsLoaded(kind string, n int) {
	RowsLoadedCount.WithLabelValues(kind).Add(float64(n))
}

func (r *PrometheusRegistry) IncrementUploadFailures(kind string) {
	UploadFailureCount.WithLabelValues(kind).Inc()
}

func (r *PrometheusRegistry) IncrementCountQueries(mode string) {
	CountQueryCount.WithLabelValues(mode).Inc()
}

func (r *PrometheusRegistry) RecordCountQueryLatency(duration time.Duration) {
	CountQueryLatency.Observe(duration.Seconds())
}

func (r *PrometheusRegistry) IncrementCountCacheLookups(outcome string) {
	CountCacheLookups.WithLabelValues(outcome).Inc()
}

// NoOpRegistry implements MetricsRegistry with no-op methods for testing.
type NoOpRegistry struct{}

// NewNoOpRegistry creates a new NoOpRegistry.
func NewNoOpRegistry() *NoOpRegistry {
	return &NoOpRegistry{}
}

func (r *NoOpRegistry) IncrementRequests(endpoint, method, status string)                    {}
func (r *NoOpRegistry) RecordRequestLatency(endpoint, method string, duration time.Duration) {}
func (r *NoOpRegistry) IncrementDatasetsCreated()                                            {}
func (r *NoOpRegistry) AddRowsLoaded(kind string, n int)                                     {}
func (r *NoOpRegistry) IncrementUploadFailures(kind string)                                  {}
func (r *NoOpRegistry) IncrementCountQueries(mode string)                                    {}
func (r *NoOpRegistry) RecordCountQueryLatency(duration time.Duration)                       {}
func (r *NoOpRegistry) IncrementCountCacheLookups(outcome string)                            {}
