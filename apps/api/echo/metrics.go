package echoapi

import (
	"strconv"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/prometheus/client_golang/prometheus"
)

type metrics struct {
	requests *prometheus.CounterVec
	duration *prometheus.HistogramVec
}

func newMetrics(reg prometheus.Registerer) *metrics {
	m := &metrics{
		requests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "masomo",
			Subsystem: "api",
			Name:      "requests_total",
			Help:      "Number of HTTP requests by method, route and status code.",
		}, []string{"method", "route", "code"}),
		duration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "masomo",
			Subsystem: "api",
			Name:      "request_duration_seconds",
			Help:      "Duration of the HTTP requests by method and route.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"method", "route"}),
	}
	reg.MustRegister(m.requests, m.duration)
	return m
}

func (m *metrics) middleware(next echo.HandlerFunc) echo.HandlerFunc {
	return func(ctx echo.Context) error {
		start := time.Now()
		err := next(ctx)

		code := ctx.Response().Status
		if err != nil {
			code = statusCode(err)
		}
		route := ctx.Path()
		m.requests.WithLabelValues(ctx.Request().Method, route, strconv.Itoa(code)).Inc()
		m.duration.WithLabelValues(ctx.Request().Method, route).Observe(time.Since(start).Seconds())
		return err
	}
}
