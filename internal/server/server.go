// Package server defines the Server container that composes the app's main
// dependencies and owns the HTTP listener.
//
// It owns the lifecycle of:
//   - configuration
//   - logger + optional New Relic service
//   - metrics registry
//   - database pool
//   - http.Server
package server

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"time"

	"github.com/deppfellow/postboard/internal/config"
	"github.com/deppfellow/postboard/internal/database"
	"github.com/deppfellow/postboard/internal/metrics"
	"github.com/rs/zerolog"

	loggerPkg "github.com/deppfellow/postboard/internal/logger"
)

// Server is the application container that holds shared resources.
//
// It is not the HTTP server itself; that lives in httpServer and is
// configured by SetupHTTPServer.
type Server struct {
	Config *config.Config

	// Logger is the application's main structured logger.
	Logger *zerolog.Logger

	// LoggerService holds the New Relic application, which may be nil.
	LoggerService *loggerPkg.LoggerService

	// DB is the PostgreSQL pool shared by every repository.
	DB *database.Database

	// Metrics collects the Prometheus series served on /metrics.
	Metrics *metrics.Collector

	httpServer *http.Server
}

// New builds the metrics registry and the database pool.
// A database that cannot be reached is a startup error.
func New(cfg *config.Config, logger *zerolog.Logger, loggerService *loggerPkg.LoggerService) (*Server, error) {
	collector := metrics.New()

	db, err := database.New(cfg, logger, loggerService, collector)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize database: %w", err)
	}

	return &Server{
		Config:        cfg,
		Logger:        logger,
		LoggerService: loggerService,
		DB:            db,
		Metrics:       collector,
	}, nil
}

// Addr is the listen address, host:port.
func (s *Server) Addr() string {
	return net.JoinHostPort(s.Config.Server.Host, s.Config.Server.Port)
}

// SetupHTTPServer configures the internal net/http server around handler.
// Timeouts are configured in whole seconds.
func (s *Server) SetupHTTPServer(handler http.Handler) {
	s.httpServer = &http.Server{
		Addr:         s.Addr(),
		Handler:      handler,
		ReadTimeout:  time.Duration(s.Config.Server.ReadTimeout) * time.Second,
		WriteTimeout: time.Duration(s.Config.Server.WriteTimeout) * time.Second,
		IdleTimeout:  time.Duration(s.Config.Server.IdleTimeout) * time.Second,
	}
}

// Start runs the HTTP server and blocks until it stops.
// It returns http.ErrServerClosed after a graceful Shutdown.
func (s *Server) Start() error {
	if s.httpServer == nil {
		return errors.New("HTTP server not initialized")
	}

	s.Logger.Info().
		Str("addr", s.httpServer.Addr).
		Str("env", s.Config.Primary.Env).
		Msg("starting server")

	return s.httpServer.ListenAndServe()
}

// Shutdown stops accepting connections, waits for in-flight requests until
// ctx expires, then closes the pool and flushes New Relic.
func (s *Server) Shutdown(ctx context.Context) error {
	if s.httpServer != nil {
		if err := s.httpServer.Shutdown(ctx); err != nil {
			return fmt.Errorf("failed to shutdown HTTP server: %w", err)
		}
	}

	if s.DB != nil {
		if err := s.DB.Close(); err != nil {
			return fmt.Errorf("failed to close database connection: %w", err)
		}
	}

	s.LoggerService.Shutdown()

	return nil
}
