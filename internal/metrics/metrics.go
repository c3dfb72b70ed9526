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
	httpRequests = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "http_requests_total",
		Help: "HTTP requests by route, method and status.",
	}, []string{"route", "method", "status"})

	httpLatency = prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "http_request_duration_seconds",
		Help:    "HTTP request latency by route and method.",
		Buckets: prometheus.DefBuckets,
	}, []string{"route", "method"})

	// GrantsIssued counts ledger rows created by presign.
	GrantsIssued = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "file_grants_issued_total",
		Help: "Upload grants issued.",
	})

	// Uploads counts upload attempts by result.
	Uploads = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "file_uploads_total",
		Help: "Upload attempts by result.",
	}, []string{"result"})

	// Fetches counts fetch attempts by result.
	Fetches = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "file_fetches_total",
		Help: "Fetch attempts by result.",
	}, []string{"result"})

	// Deletes counts delete attempts by result.
	Deletes = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "file_deletes_total",
		Help: "Delete attempts by result.",
	}, []string{"result"})

	// Reaped counts expired, never uploaded grants removed by the reaper.
	Reaped = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "file_reaped_total",
		Help: "Expired unfulfilled grants removed.",
	})

	// UnknownAccessRules counts evaluations of unrecognized access rule tags.
	UnknownAccessRules = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "access_unknown_rule_total",
		Help: "Access rule evaluations that hit an unrecognized rule tag.",
	})

	ReconcileOrphans = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "file_reconcile_orphans_total",
		Help: "Replaced files left in place because the editor may not delete them.",
	})

	initOnce sync.Once
)

// InitMetrics registers collectors with the default registry. Safe to call more than once.
func InitMetrics() {
	initOnce.Do(func() {
		prometheus.MustRegister(
			httpRequests,
			httpLatency,
			GrantsIssued,
			Uploads,
			Fetches,
			Deletes,
			Reaped,
			UnknownAccessRules,
			ReconcileOrphans,
		)
	})
}

// Middleware records request counts and latency per matched route.
func Middleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		route := c.FullPath()
		if route == "" {
			route = "unmatched"
		}
		httpRequests.WithLabelValues(route, c.Request.Method, strconv.Itoa(c.Writer.Status())).Inc()
		httpLatency.WithLabelValues(route, c.Request.Method).Observe(time.Since(start).Seconds())
	}
}

// Register attaches the Prometheus metrics endpoint to the router.
func Register(router *gin.Engine, path string) {
	router.GET(path, gin.WrapH(promhttp.Handler()))
}
