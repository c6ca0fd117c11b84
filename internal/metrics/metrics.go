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
			Name: "stocking_http_requests_total",
			Help: "Total number of HTTP requests",
		},
		[]string{"method", "endpoint", "status"},
	)

	httpRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "stocking_http_request_duration_seconds",
			Help:    "HTTP request duration in seconds",
			Buckets: []float64{0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5},
		},
		[]string{"method", "endpoint"},
	)

	httpRequestsInFlight = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "stocking_http_requests_in_flight",
			Help: "Number of HTTP requests currently being processed",
		},
	)

	roomsCreatedTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "stocking_rooms_created_total",
			Help: "Total number of rooms created",
		},
	)

	drawsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "stocking_draws_total",
			Help: "Draw attempts by outcome",
		},
		[]string{"result"},
	)

	drawDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "stocking_draw_duration_seconds",
			Help:    "Time to compute and commit a draw",
			Buckets: []float64{0.001, 0.005, 0.01, 0.05, 0.1, 0.5, 1},
		},
	)

	claimsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "stocking_claims_total",
			Help: "Participant claims by outcome",
		},
		[]string{"result"},
	)

	subscribersActive = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "stocking_event_subscribers",
			Help: "Open room event streams",
		},
	)
)

// Middleware records request counts and latencies per route pattern.
func Middleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		httpRequestsInFlight.Inc()

		endpoint := c.FullPath()
		if endpoint == "" {
			endpoint = "unknown"
		}

		c.Next()

		httpRequestsInFlight.Dec()

		status := strconv.Itoa(c.Writer.Status())
		httpRequestsTotal.WithLabelValues(c.Request.Method, endpoint, status).Inc()
		httpRequestDuration.WithLabelValues(c.Request.Method, endpoint).Observe(time.Since(start).Seconds())
	}
}

func RecordRoomCreated() {
	roomsCreatedTotal.Inc()
}

// RecordDraw tags the outcome as "success" or the error kind.
func RecordDraw(result string, took time.Duration) {
	drawsTotal.WithLabelValues(result).Inc()
	drawDuration.Observe(took.Seconds())
}

func RecordClaim(result string) {
	claimsTotal.WithLabelValues(result).Inc()
}

func SubscriberOpened() {
	subscribersActive.Inc()
}

func SubscriberClosed() {
	subscribersActive.Dec()
}
