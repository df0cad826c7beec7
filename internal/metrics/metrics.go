// Package metrics exposes Prometheus collectors for the HTTP layer and the
// exam session lifecycle.
package metrics

import (
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	RequestCounter = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "cbt_http_requests_total",
			Help: "Total number of HTTP requests",
		},
		[]string{"method", "endpoint", "status"},
	)

	RequestDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "cbt_http_request_duration_seconds",
			Help:    "Duration of HTTP requests",
			Buckets: []float64{0.05, 0.1, 0.5, 1, 2, 5},
		},
		[]string{"method", "endpoint"},
	)

	// LoginCounter counts student logins by outcome: allowed or a denial reason.
	LoginCounter = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "cbt_student_logins_total",
			Help: "Student login attempts by outcome",
		},
		[]string{"outcome"},
	)

	// SubmissionCounter counts final submissions by trigger and result.
	SubmissionCounter = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "cbt_exam_submissions_total",
			Help: "Exam submissions by reason and result",
		},
		[]string{"reason", "result"},
	)

	AutosaveFailures = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "cbt_autosave_failures_total",
			Help: "Failed answer saves, write-through and periodic",
		},
	)

	LiveSessions = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "cbt_live_sessions",
			Help: "Exam sessions currently running in this process",
		},
	)
)

// Init registers every collector with the default registry. Call once.
func Init() {
	prometheus.MustRegister(
		RequestCounter,
		RequestDuration,
		LoginCounter,
		SubmissionCounter,
		AutosaveFailures,
		LiveSessions,
	)
}

func MetricsMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		duration := time.Since(start).Seconds()
		endpoint := c.FullPath()
		if endpoint == "" {
			endpoint = "unmatched"
		}

		RequestCounter.WithLabelValues(
			c.Request.Method,
			endpoint,
			strconv.Itoa(c.Writer.Status()),
		).Inc()

		RequestDuration.WithLabelValues(
			c.Request.Method,
			endpoint,
		).Observe(duration)
	}
}

func PrometheusHandler() gin.HandlerFunc {
	h := promhttp.Handler()
	return func(c *gin.Context) {
		h.ServeHTTP(c.Writer, c.Request)
	}
}
