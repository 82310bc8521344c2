package monitoring

import (
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	requestsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "momentum_http_requests_total",
		Help: "HTTP requests processed, labeled by method, route and status.",
	}, []string{"method", "route", "status"})

	requestDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "momentum_http_request_duration_seconds",
		Help:    "HTTP request latency in seconds.",
		Buckets: prometheus.DefBuckets,
	}, []string{"method", "route"})

	quotaRejections = promauto.NewCounter(prometheus.CounterOpts{
		Name: "momentum_task_quota_rejections_total",
		Help: "Task creations rejected by the free-tier quota.",
	})

	webhookEvents = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "momentum_billing_webhook_events_total",
		Help: "Webhook deliveries by outcome.",
	}, []string{"outcome"})
)

// Middleware records per-route counters and latency. The route template
// (not the raw path) is the label, so task IDs do not explode cardinality.
func Middleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		route := c.FullPath()
		if route == "" {
			route = "unmatched"
		}
		requestsTotal.WithLabelValues(c.Request.Method, route, strconv.Itoa(c.Writer.Status())).Inc()
		requestDuration.WithLabelValues(c.Request.Method, route).Observe(time.Since(start).Seconds())

		if route == "/tasks" && c.Request.Method == "POST" && c.Writer.Status() == 403 {
			quotaRejections.Inc()
		}
		if route == "/subscription/webhook" {
			outcome := "ok"
			if c.Writer.Status() >= 400 {
				outcome = "rejected"
			}
			webhookEvents.WithLabelValues(outcome).Inc()
		}
	}
}

// Handler exposes the Prometheus scrape endpoint.
func Handler() gin.HandlerFunc {
	return gin.WrapH(promhttp.Handler())
}
