// Package metrics registers the Prometheus collectors of the pengaduan
// service and exposes small recording helpers for the packages that feed them.
package metrics

import (
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	httpRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "http_requests_total",
			Help: "Total number of HTTP requests",
		},
		[]string{"method", "endpoint", "status"},
	)

	httpRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "http_request_duration_seconds",
			Help:    "HTTP request duration in seconds",
			Buckets: []float64{0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10},
		},
		[]string{"method", "endpoint"},
	)

	rateLimitDeniedTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "pengaduan_ratelimit_denied_total",
			Help: "Outbound requests refused by a local rate limiter",
		},
		[]string{"limiter"},
	)

	workflowTransitionsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "pengaduan_workflow_transitions_total",
			Help: "Persisted status transitions of action records",
		},
		[]string{"from", "to"},
	)

	backendRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "pengaduan_backend_request_duration_seconds",
			Help:    "Backend REST call duration in seconds",
			Buckets: []float64{0.05, 0.1, 0.25, 0.5, 1, 2, 5, 10, 30},
		},
		[]string{"method", "status"},
	)

	reportsByStatus = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "pengaduan_reports",
			Help: "Reports per workflow status at the last poll",
		},
		[]string{"status"},
	)
)

// Middleware collects request counts and latencies for the gin router.
func Middleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()

		endpoint := c.FullPath()
		if endpoint == "" {
			endpoint = "unknown"
		}

		c.Next()

		status := strconv.Itoa(c.Writer.Status())
		httpRequestsTotal.WithLabelValues(c.Request.Method, endpoint, status).Inc()
		httpRequestDuration.WithLabelValues(c.Request.Method, endpoint).Observe(time.Since(start).Seconds())
	}
}

// RecordRateLimitDenied counts a request refused by the named limiter.
func RecordRateLimitDenied(limiter string) {
	rateLimitDeniedTotal.WithLabelValues(limiter).Inc()
}

// RecordTransition counts a persisted status change.
func RecordTransition(from, to string) {
	workflowTransitionsTotal.WithLabelValues(from, to).Inc()
}

// RecordBackendCall observes one backend round trip. status is 0 when no
// response arrived.
func RecordBackendCall(method string, status int, duration time.Duration) {
	label := "error"
	if status > 0 {
		label = strconv.Itoa(status)
	}
	backendRequestDuration.WithLabelValues(method, label).Observe(duration.Seconds())
}

// SetReportCount publishes the number of reports currently in status.
func SetReportCount(status string, n int) {
	reportsByStatus.WithLabelValues(status).Set(float64(n))
}
