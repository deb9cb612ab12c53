package metrics

import (
	"strconv"
	"time"

	"schoolhub/internal/common"

	"github.com/labstack/echo/v4"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds all Prometheus metrics
type Metrics struct {
	// HTTP metrics
	HTTPRequestsTotal   *prometheus.CounterVec
	HTTPRequestDuration *prometheus.HistogramVec

	// AI gateway metrics
	AIRequestsTotal    *prometheus.CounterVec
	AIRequestDuration  *prometheus.HistogramVec
	AIRateLimitedTotal *prometheus.CounterVec

	// Job metrics
	OverdueFeesMarkedTotal prometheus.Counter
	FeeRemindersSentTotal  *prometheus.CounterVec
}

// NewMetrics creates and registers all Prometheus metrics
func NewMetrics(registry *prometheus.Registry) *Metrics {
	m := &Metrics{
		HTTPRequestsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "schoolhub_http_requests_total",
				Help: "Total number of HTTP requests",
			},
			[]string{"method", "path", "status"},
		),
		HTTPRequestDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "schoolhub_http_request_duration_seconds",
				Help:    "HTTP request duration in seconds",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"method", "path"},
		),

		AIRequestsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "schoolhub_ai_requests_total",
				Help: "Total number of AI gateway calls",
			},
			[]string{"feature", "status"},
		),
		AIRequestDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "schoolhub_ai_request_duration_seconds",
				Help:    "AI gateway call duration in seconds",
				Buckets: []float64{0.5, 1, 2, 5, 10, 20, 30, 60},
			},
			[]string{"feature"},
		),
		AIRateLimitedTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "schoolhub_ai_rate_limited_total",
				Help: "AI requests rejected by the per-school quota",
			},
			[]string{"feature"},
		),

		OverdueFeesMarkedTotal: prometheus.NewCounter(
			prometheus.CounterOpts{
				Name: "schoolhub_overdue_fees_marked_total",
				Help: "Fees flipped to overdue by the daily job",
			},
		),
		FeeRemindersSentTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "schoolhub_fee_reminders_total",
				Help: "Overdue fee reminder emails by outcome",
			},
			[]string{"status"},
		),
	}

	registry.MustRegister(
		m.HTTPRequestsTotal,
		m.HTTPRequestDuration,
		m.AIRequestsTotal,
		m.AIRequestDuration,
		m.AIRateLimitedTotal,
		m.OverdueFeesMarkedTotal,
		m.FeeRemindersSentTotal,
	)
	return m
}

// ObserveAI records one gateway call.
func (m *Metrics) ObserveAI(feature string, start time.Time, err error) {
	status := "ok"
	if err != nil {
		status = "error"
	}
	m.AIRequestsTotal.WithLabelValues(feature, status).Inc()
	m.AIRequestDuration.WithLabelValues(feature).Observe(time.Since(start).Seconds())
}

// HTTPMetrics counts requests by route template, not raw path.
func HTTPMetrics(m *Metrics) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			start := time.Now()
			err := next(c)

			status := c.Response().Status
			if he, ok := err.(*echo.HTTPError); ok {
				status = he.Code
			} else if err != nil {
				status, _ = common.StatusFor(err)
			}
			path := c.Path()
			if path == "" {
				path = "unmatched"
			}
			m.HTTPRequestsTotal.WithLabelValues(c.Request().Method, path, strconv.Itoa(status)).Inc()
			m.HTTPRequestDuration.WithLabelValues(c.Request().Method, path).Observe(time.Since(start).Seconds())
			return err
		}
	}
}

// Handler serves the registry in the Prometheus text format.
func Handler(registry *prometheus.Registry) echo.HandlerFunc {
	return echo.WrapHandler(promhttp.HandlerFor(registry, promhttp.HandlerOpts{}))
}
