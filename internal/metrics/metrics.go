// Package metrics holds the process-wide prometheus collectors.
package metrics

import (
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	httpRequests = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "reviewhub_http_requests_total",
		Help: "HTTP requests by method, route and status",
	}, []string{"method", "route", "status"})

	httpDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "reviewhub_http_request_duration_seconds",
		Help:    "HTTP request latency in seconds",
		Buckets: prometheus.DefBuckets,
	}, []string{"method", "route"})

	ConfirmationCodesSent = promauto.NewCounter(prometheus.CounterOpts{
		Name: "reviewhub_confirmation_codes_sent_total",
		Help: "Confirmation codes handed to the mailer",
	})

	TokensIssued = promauto.NewCounter(prometheus.CounterOpts{
		Name: "reviewhub_tokens_issued_total",
		Help: "Access tokens minted from confirmation codes",
	})

	CodeRejections = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "reviewhub_confirmation_code_rejections_total",
		Help: "Rejected confirmation code exchanges by reason",
	}, []string{"reason"})

	MailFailures = promauto.NewCounter(prometheus.CounterOpts{
		Name: "reviewhub_mail_failures_total",
		Help: "Failed outbound mail deliveries",
	})

	ReviewConflicts = promauto.NewCounter(prometheus.CounterOpts{
		Name: "reviewhub_review_conflicts_total",
		Help: "Review submissions rejected because the author already reviewed the title",
	})
)

// Middleware records request count and latency per route template, so
// /titles/1 and /titles/2 share a series.
func Middleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		route := c.FullPath()
		if route == "" {
			route = "unmatched"
		}
		httpRequests.WithLabelValues(c.Request.Method, route, strconv.Itoa(c.Writer.Status())).Inc()
		httpDuration.WithLabelValues(c.Request.Method, route).Observe(time.Since(start).Seconds())
	}
}

// Handler serves the default registry.
func Handler() gin.HandlerFunc {
	return gin.WrapH(promhttp.Handler())
}
