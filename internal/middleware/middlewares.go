// Package middleware holds the echo middleware and the global error handler.
//
// They cover the cross-cutting concerns of every request: request ids,
// New Relic transactions, the request-scoped logger, access logging,
// Prometheus metrics, rate limiting, CORS, secure headers, body limits and
// panic recovery.
package middleware

import (
	"github.com/deppfellow/postboard/internal/server"
	"github.com/newrelic/go-agent/v3/newrelic"
)

// Middlewares groups every middleware component so the router receives a
// single value.
type Middlewares struct {
	// Global holds CORS, access logging, recovery, secure headers, body
	// limit and the global error handler.
	Global *GlobalMiddlewares

	// ContextEnhancer builds the request-scoped logger.
	ContextEnhancer *ContextEnhancer

	// Tracing wraps requests in New Relic transactions when configured.
	Tracing *TracingMiddleware

	// RateLimit enforces the per-client request rate.
	RateLimit *RateLimitMiddleware

	// Metrics records request counts and latencies.
	Metrics *MetricsMiddleware
}

// NewMiddlewares constructs all middleware components.
//
// Without New Relic, nrApp is nil and the tracing middleware passes
// requests through untouched.
func NewMiddlewares(s *server.Server) *Middlewares {
	var nrApp *newrelic.Application
	if s.LoggerService != nil {
		nrApp = s.LoggerService.GetApplication()
	}

	return &Middlewares{
		Global:          NewGlobalMiddlewares(s),
		ContextEnhancer: NewContextEnhancer(s),
		Tracing:         NewTracingMiddleware(s, nrApp),
		RateLimit:       NewRateLimitMiddleware(s),
		Metrics:         NewMetricsMiddleware(s),
	}
}
