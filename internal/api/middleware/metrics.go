// Package middleware provides Echo middleware for flipradar.
package middleware

import (
	"strconv"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/mbaumgartner/flipradar/internal/metrics"
)

// Metrics returns Echo middleware recording request duration and
// status. The scrape and probe endpoints stay out of the request
// series; the probes instead flip an up/down gauge so dashboards can
// plot liveness without counter noise.
func Metrics() echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			path := c.Path()
			if path == "" {
				path = c.Request().URL.Path
			}

			switch path {
			case "/metrics":
				return next(c)
			case "/healthz":
				err := next(c)
				setProbeGauge(metrics.HealthzUp, c.Response().Status)
				return err
			case "/readyz":
				err := next(c)
				setProbeGauge(metrics.ReadyzUp, c.Response().Status)
				return err
			}

			start := time.Now()
			err := next(c)

			status := strconv.Itoa(c.Response().Status)
			metrics.HTTPRequestDuration.
				WithLabelValues(c.Request().Method, path, status).
				Observe(time.Since(start).Seconds())
			metrics.HTTPRequestsTotal.
				WithLabelValues(c.Request().Method, path, status).
				Inc()

			return err
		}
	}
}

func setProbeGauge(g prometheus.Gauge, status int) {
	if status >= 200 && status < 300 {
		g.Set(1)
		return
	}
	g.Set(0)
}
