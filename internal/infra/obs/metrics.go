package obs

import (
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	RequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "campusmarket",
			Subsystem: "http",
			Name:      "requests_total",
			Help:      "Total number of HTTP requests",
		},
		[]string{"method", "route", "status"},
	)

	RequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "campusmarket",
			Subsystem: "http",
			Name:      "request_duration_seconds",
			Help:      "HTTP request duration in seconds",
			Buckets:   []float64{0.005, 0.025, 0.1, 0.25, 0.5, 1, 2.5},
		},
		[]string{"method", "route"},
	)

	BusMessagesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "campusmarket",
			Subsystem: "bus",
			Name:      "messages_total",
			Help:      "Commands and queries dispatched, by outcome",
		},
		[]string{"kind", "key", "outcome"},
	)

	BusDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "campusmarket",
			Subsystem: "bus",
			Name:      "duration_seconds",
			Help:      "Command and query handling duration in seconds",
			Buckets:   prometheus.DefBuckets,
		},
		[]string{"kind", "key"},
	)

	NotificationsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "campusmarket",
			Subsystem: "notifications",
			Name:      "dispatched_total",
			Help:      "Email notifications by template and outcome",
		},
		[]string{"template", "outcome"},
	)

	ActivityTouchesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "campusmarket",
			Subsystem: "activity",
			Name:      "touches_total",
			Help:      "Activity touches by outcome",
		},
		[]string{"outcome"},
	)

	OutboxPublishedTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "campusmarket",
			Subsystem: "outbox",
			Name:      "published_total",
			Help:      "Outbox records relayed to the broker, by outcome",
		},
		[]string{"outcome"},
	)
)

func ObserveBus(kind, key, outcome string, elapsed time.Duration) {
	BusMessagesTotal.WithLabelValues(kind, key, outcome).Inc()
	BusDuration.WithLabelValues(kind, key).Observe(elapsed.Seconds())
}

func ObserveNotification(template, outcome string) {
	NotificationsTotal.WithLabelValues(template, outcome).Inc()
}

func ObserveActivity(outcome string) {
	ActivityTouchesTotal.WithLabelValues(outcome).Inc()
}

func ObserveOutbox(outcome string) {
	OutboxPublishedTotal.WithLabelValues(outcome).Inc()
}

// MetricsHandler serves the default registry.
func MetricsHandler() gin.HandlerFunc {
	return gin.WrapH(promhttp.Handler())
}

func (m Middleware) Metrics() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		route := c.FullPath()
		if route == "" {
			route = "unmatched"
		}
		RequestsTotal.WithLabelValues(c.Request.Method, route, strconv.Itoa(c.Writer.Status())).Inc()
		RequestDuration.WithLabelValues(c.Request.Method, route).Observe(time.Since(start).Seconds())
	}
}
