package observability

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// RedisErrorRate counts Redis errors by operation type.
	RedisErrorRate = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "mercadito_redis_error_rate_total",
		Help: "Total number of Redis errors by operation type",
	}, []string{"operation"})

	// DatabaseQueryLatency records database query latency by operation and table.
	DatabaseQueryLatency = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "mercadito_database_query_latency_seconds",
		Help:    "Database query latency in seconds",
		Buckets: prometheus.DefBuckets,
	}, []string{"operation", "table"})

	// PostsCreatedTotal counts marketplace posts created, labeled by category.
	PostsCreatedTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "mercadito_posts_created_total",
		Help: "Total number of posts created by category",
	}, []string{"category"})

	// ImageUploadDuration records blob storage upload latency.
	ImageUploadDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "mercadito_image_upload_duration_seconds",
		Help:    "Image upload latency in seconds",
		Buckets: prometheus.DefBuckets,
	})

	// ImageUploadErrors counts failed blob storage uploads.
	ImageUploadErrors = promauto.NewCounter(prometheus.CounterOpts{
		Name: "mercadito_image_upload_errors_total",
		Help: "Total number of failed image uploads",
	})

	// FavoriteOperations counts favorite adds and removals.
	FavoriteOperations = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "mercadito_favorite_operations_total",
		Help: "Total number of favorite operations by action",
	}, []string{"action"})

	// CacheRequests counts cache lookups by outcome (hit or miss).
	CacheRequests = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "mercadito_cache_requests_total",
		Help: "Total number of cache lookups by outcome",
	}, []string{"outcome"})
)

// ObserveQuery records the latency of a database query.
func ObserveQuery(operation, table string, start time.Time) {
	DatabaseQueryLatency.WithLabelValues(operation, table).Observe(time.Since(start).Seconds())
}

// TrackQuery returns a function that records query latency when called (e.g. defer).
func TrackQuery(operation, table string) func() {
	start := time.Now()
	return func() {
		ObserveQuery(operation, table, start)
	}
}
