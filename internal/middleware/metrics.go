package middleware

import (
	"errors"
	"time"

	"github.com/deppfellow/postboard/internal/server"
	"github.com/labstack/echo/v4"
)

// unmatchedRoute labels requests no route matched, so unknown paths cannot
// create new series.
const unmatchedRoute = "unmatched"

// MetricsMiddleware records every request in the Prometheus collector.
type MetricsMiddleware struct {
	server *server.Server
}

func NewMetricsMiddleware(s *server.Server) *MetricsMiddleware {
	return &MetricsMiddleware{server: s}
}

// Observe counts the request by method, route template and final status and
// records its latency.
func (m *MetricsMiddleware) Observe() echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			if m.server.Metrics == nil {
				return next(c)
			}

			start := time.Now()
			err := next(c)

			status := c.Response().Status
			if err != nil {
				status = statusFromError(err)
			}

			route := c.Path()
			if route == "" || errors.Is(err, echo.ErrNotFound) {
				route = unmatchedRoute
			}

			m.server.Metrics.ObserveRequest(c.Request().Method, route, status, time.Since(start))
			return err
		}
	}
}
