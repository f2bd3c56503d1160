package metrics

import (
	"strconv"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	RequestTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "http_requests_total",
			Help: "Total number of HTTP requests",
		},
		[]string{"method", "route", "status"},
	)
	RequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "http_request_duration_seconds",
			Help:    "HTTP request duration in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "route"},
	)
	StoreWrites = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "reservation_store_writes_total",
			Help: "Reservation create/delete calls by outcome",
		},
		[]string{"op", "result"},
	)
	Subscribers = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "reservation_live_subscribers",
			Help: "Active subscribers of the reservation snapshot hub",
		},
	)
	SnapshotPushes = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "reservation_snapshot_pushes_total",
			Help: "Full reservation snapshots loaded and fanned out",
		},
	)
	OpenSessions = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "reservation_open_sessions",
			Help: "Open form and list sessions",
		},
		[]string{"kind"},
	)
)

// ObserveWrite records the outcome of a store write.
func ObserveWrite(op string, err error) {
	result := "ok"
	if err != nil {
		result = "error"
	}
	StoreWrites.WithLabelValues(op, result).Inc()
}

// Middleware records request counts and latency per registered route.
func Middleware(next echo.HandlerFunc) echo.HandlerFunc {
	return func(c echo.Context) error {
		if c.Path() == "/metrics" {
			return next(c)
		}
		start := time.Now()
		err := next(c)
		if err != nil {
			c.Error(err)
		}
		route := c.Path()
		if route == "" {
			route = "unmatched"
		}
		status := strconv.Itoa(c.Response().Status)
		RequestTotal.WithLabelValues(c.Request().Method, route, status).Inc()
		RequestDuration.WithLabelValues(c.Request().Method, route).Observe(time.Since(start).Seconds())
		return nil
	}
}
