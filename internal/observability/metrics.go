package observability

import (
	"github.com/prometheus/client_golang/prometheus"
)

var (
	// total requests per endpoint, method and status code
	RequestCount = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "clinserve_requests_total",
			Help: "Total API requests received",
		},
		[]string{"endpoint", "method", "status"},
	)

	// request latency in seconds per endpoint/method
	RequestLatency = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "clinserve_request_duration_seconds",
			Help:    "Histogram of request latencies",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"endpoint", "method"},
	)

	// datasets created through the API
	DatasetCreatedCount = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "clinserve_datasets_created_total",
			Help: "Total datasets created",
		},
	)

	// clinical rows loaded into the warehouse, labelled by file kind
	RowsLoadedCount = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "clinserve_rows_loaded_total",
			Help: "Total clinical rows loaded into ClickHouse",
		},
		[]string{"kind"},
	)

	// upload failures, labelled by file kind
	UploadFailureCount = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "clinserve_upload_failures_total",
			Help: "Total failed clinical file uploads",
		},
		[]string{"kind"},
	)

	// count queries served, labelled by counting mode (rows/parent)
	CountQueryCount = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "clinserve_count_queries_total",
			Help: "Total record count queries",
		},
		[]string{"mode"},
	)

	// latency of warehouse count queries
	CountQueryLatency = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "clinserve_count_query_duration_seconds",
			Help:    "Duration of ClickHouse count queries",
			Buckets: prometheus.DefBuckets,
		},
	)

	// count cache lookups, labelled by outcome (hit/miss)
	CountCacheLookups = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "clinserve_count_cache_lookups_total",
			Help: "Total count cache lookups",
		},
		[]string{"outcome"},
	)
)

func init() {
	// register all metrics
	prometheus.MustRegister(
		RequestCount,
		RequestLatency,
		DatasetCreatedCount,
		RowsLoadedCount,
		UploadFailureCount,
		CountQueryCount,
		CountQueryLatency,
		CountCacheLookups,
	)
}
