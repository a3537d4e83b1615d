package httpapi

import (
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
)

const (
	metricRequestsTotal   = "tuckview_http_requests_total"
	metricRequestDuration = "tuckview_http_request_duration_seconds"
)

// httpMetrics instruments request count and latency per route.
type httpMetrics struct {
	requests *prometheus.CounterVec
	duration *prometheus.HistogramVec
}

func newHTTPMetrics(registerer prometheus.Registerer) *httpMetrics {
	if registerer == nil {
		registerer = prometheus.DefaultRegisterer
	}

	metrics := &httpMetrics{
		requests: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: metricRequestsTotal,
				Help: "Total number of HTTP requests served.",
			},
			[]string{"method", "path", "status"},
		),
		duration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    metricRequestDuration,
				Help:    "HTTP request latency in seconds.",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"method", "path"},
		),
	}

	registerer.MustRegister(metrics.requests, metrics.duration)

	return metrics
}

// handler returns gin middleware recording request metrics. The route
// template is used as the path label so cardinality stays bounded.
func (m *httpMetrics) handler() gin.HandlerFunc {
	return func(c *gin.Context) {
		started := time.Now()

		c.Next()

		path := c.FullPath()
		if path == "" {
			path = "unmatched"
		}

		m.requests.WithLabelValues(
			c.Request.Method,
			path,
			strconv.Itoa(c.Writer.Status()),
		).Inc()
		m.duration.WithLabelValues(c.Request.Method, path).Observe(time.Since(started).Seconds())
	}
}
