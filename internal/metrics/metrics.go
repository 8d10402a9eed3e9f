package metrics

import (
	"strconv"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	// HTTPRequests counts requests by method, route and status.
	HTTPRequests = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "ingest_http_requests_total",
		Help: "HTTP requests by method, route and status",
	}, []string{"method", "route", "status"})

	// HTTPDuration observes request latency by route.
	HTTPDuration = prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "ingest_http_request_duration_seconds",
		Help:    "HTTP request duration in seconds",
		Buckets: prometheus.DefBuckets,
	}, []string{"method", "route"})

	// ChunksReceived counts chunks committed to staging.
	ChunksReceived = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "ingest_chunks_received_total",
		Help: "Chunks written to staging storage",
	})

	// ObjectsPublished counts objects written to the durable store.
	ObjectsPublished = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "ingest_objects_published_total",
		Help: "Objects published by upload path and extension",
	}, []string{"path", "extension"})

	// BytesPublished counts payload bytes written to the durable store.
	BytesPublished = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "ingest_bytes_published_total",
		Help: "Bytes published to the durable store",
	})

	// Rejections counts uploads refused before or during publication.
	Rejections = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "ingest_rejections_total",
		Help: "Rejected uploads by reason",
	}, []string{"reason"})

	// StagingSessionsSwept counts abandoned sessions removed by the sweeper.
	StagingSessionsSwept = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "ingest_staging_sessions_swept_total",
		Help: "Abandoned upload sessions removed from staging",
	})
)

var registerOnce sync.Once

// InitMetrics registers the collectors with the default registry. Safe to call repeatedly.
func InitMetrics() {
	registerOnce.Do(func() {
		prometheus.MustRegister(
			HTTPRequests,
			HTTPDuration,
			ChunksReceived,
			ObjectsPublished,
			BytesPublished,
			Rejections,
			StagingSessionsSwept,
		)
	})
}

// Middleware records request counts and latency.
func Middleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		route := c.FullPath()
		if route == "" {
			route = "unmatched"
		}
		HTTPRequests.WithLabelValues(c.Request.Method, route, strconv.Itoa(c.Writer.Status())).Inc()
		HTTPDuration.WithLabelValues(c.Request.Method, route).Observe(time.Since(start).Seconds())
	}
}

// Register attaches the Prometheus metrics endpoint to the router.
func Register(router *gin.Engine, path string) {
	router.GET(path, gin.WrapH(promhttp.Handler()))
}
