// Package database owns the PostgreSQL connection pool.
//
// It handles:
//   - creating a pgx connection pool (pgxpool) from the configured URL
//   - pool sizing from config
//   - statement observation (latency metrics, slow statement warnings)
//   - query tracing/logging (pgx tracelog) in the local environment
//   - optional New Relic instrumentation (nrpgx5)
//   - schema migrations (migrator.go)
package database

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/deppfellow/postboard/internal/config"
	loggerConfig "github.com/deppfellow/postboard/internal/logger"
	"github.com/deppfellow/postboard/internal/metrics"
	pgxzero "github.com/jackc/pgx-zerolog"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/jackc/pgx/v5/tracelog"
	"github.com/newrelic/go-agent/v3/integrations/nrpgx5"
	"github.com/rs/zerolog"
)

// Database wraps the pgx connection pool and a logger.
// It is built once at startup and handed to every repository.
//
// Every Exec/Query/QueryRow acquires a connection for the duration of the
// statement and returns it to the pool afterwards, including on failure.
type Database struct {
	Pool *pgxpool.Pool
	log  *zerolog.Logger
}

// DatabasePingTimeout is the number of seconds to wait for the startup ping
// before considering the database unreachable.
const DatabasePingTimeout = 10

// New creates a PostgreSQL connection pool with instrumentation and pings it.
//
// Inputs:
//   - cfg: application config (URL, pool sizing, environment)
//   - logger: main app logger
//   - loggerService: optional New Relic service (nil if not configured)
//   - collector: optional metrics collector (nil disables statement metrics)
func New(cfg *config.Config, logger *zerolog.Logger, loggerService *loggerConfig.LoggerService, collector *metrics.Collector) (*Database, error) {
	pgxPoolConfig, err := pgxpool.ParseConfig(cfg.Database.URL)
	if err != nil {
		return nil, fmt.Errorf("failed to parse pgx pool config: %w", err)
	}

	pgxPoolConfig.MaxConns = cfg.Database.MaxConns
	pgxPoolConfig.MinConns = cfg.Database.MinConns
	if cfg.Database.MaxConnLifetime > 0 {
		pgxPoolConfig.MaxConnLifetime = cfg.Database.MaxConnLifetime
	}
	if cfg.Database.MaxConnIdleTime > 0 {
		pgxPoolConfig.MaxConnIdleTime = cfg.Database.MaxConnIdleTime
	}

	// pgx has a single tracer slot; everything is chained through multiTracer.
	tracers := []any{
		&statementObserver{
			log:           logger,
			collector:     collector,
			slowThreshold: cfg.Observability.Logging.SlowQueryThreshold,
		},
	}

	if loggerService.GetApplication() != nil {
		tracers = append(tracers, nrpgx5.NewTracer())
	}

	// SQL statement logging is very noisy, so only in local.
	if cfg.Primary.Env == "local" {
		globalLevel := logger.GetLevel()
		pgxLogger := loggerConfig.NewPgxLogger(globalLevel)
		tracers = append(tracers, &tracelog.TraceLog{
			Logger:   pgxzero.NewLogger(pgxLogger),
			LogLevel: loggerConfig.GetPgxTraceLogLevel(globalLevel),
		})
	}

	pgxPoolConfig.ConnConfig.Tracer = &multiTracer{tracers: tracers}

	pool, err := pgxpool.NewWithConfig(context.Background(), pgxPoolConfig)
	if err != nil {
		return nil, fmt.Errorf("failed to create pgx pool: %w", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), DatabasePingTimeout*time.Second)
	defer cancel()
	if err = pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	if collector != nil {
		collector.RegisterPool(pool)
	}

	logger.Info().
		Int32("max_conns", pgxPoolConfig.MaxConns).
		Msg("connected to the database")

	return &Database{
		Pool: pool,
		log:  logger,
	}, nil
}

// Exec runs a statement that returns no rows and reports the command tag
// (rows affected).
func (db *Database) Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error) {
	return db.Pool.Exec(ctx, sql, args...)
}

// Query runs a statement that returns rows. The connection goes back to the
// pool when the rows are closed; pgx.CollectRows closes them on every path.
func (db *Database) Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error) {
	return db.Pool.Query(ctx, sql, args...)
}

// QueryRow runs a statement expected to return at most one row.
// Errors, including pgx.ErrNoRows, surface from Scan.
func (db *Database) QueryRow(ctx context.Context, sql string, args ...any) pgx.Row {
	return db.Pool.QueryRow(ctx, sql, args...)
}

// Ping checks that a connection can be acquired and used.
func (db *Database) Ping(ctx context.Context) error {
	return db.Pool.Ping(ctx)
}

// Close closes the database connection pool.
func (db *Database) Close() error {
	db.log.Info().Msg("closing database connection pool")
	db.Pool.Close()
	return nil
}

// multiTracer allows chaining multiple tracers.
//
// pgx supports a single Tracer in ConnConfig; this adapter fans out to every
// tracer that implements the query hooks, checked at runtime.
type multiTracer struct {
	tracers []any
}

// TraceQueryStart threads the context through every tracer in order so each
// can stash values for TraceQueryEnd.
func (mt *multiTracer) TraceQueryStart(ctx context.Context, conn *pgx.Conn, data pgx.TraceQueryStartData) context.Context {
	for _, tracer := range mt.tracers {
		if t, ok := tracer.(pgx.QueryTracer); ok {
			ctx = t.TraceQueryStart(ctx, conn, data)
		}
	}
	return ctx
}

// TraceQueryEnd runs the end hook of every tracer.
func (mt *multiTracer) TraceQueryEnd(ctx context.Context, conn *pgx.Conn, data pgx.TraceQueryEndData) {
	for _, tracer := range mt.tracers {
		if t, ok := tracer.(pgx.QueryTracer); ok {
			t.TraceQueryEnd(ctx, conn, data)
		}
	}
}

type statementKey struct{}

type statementStart struct {
	verb  string
	sql   string
	start time.Time
}

// statementObserver measures every statement: latency goes to the metrics
// collector, and statements slower than slowThreshold are logged at warn.
type statementObserver struct {
	log           *zerolog.Logger
	collector     *metrics.Collector
	slowThreshold time.Duration
	now           func() time.Time
}

func (o *statementObserver) clock() time.Time {
	if o.now != nil {
		return o.now()
	}
	return time.Now()
}

func (o *statementObserver) TraceQueryStart(ctx context.Context, _ *pgx.Conn, data pgx.TraceQueryStartData) context.Context {
	return context.WithValue(ctx, statementKey{}, statementStart{
		verb:  statementVerb(data.SQL),
		sql:   data.SQL,
		start: o.clock(),
	})
}

func (o *statementObserver) TraceQueryEnd(ctx context.Context, _ *pgx.Conn, data pgx.TraceQueryEndData) {
	started, ok := ctx.Value(statementKey{}).(statementStart)
	if !ok {
		return
	}
	elapsed := o.clock().Sub(started.start)

	if o.collector != nil {
		o.collector.ObserveStatement(started.verb, elapsed, data.Err)
	}

	if o.slowThreshold > 0 && elapsed > o.slowThreshold {
		o.logger(ctx).Warn().
			Str("verb", started.verb).
			Str("sql", strings.Join(strings.Fields(started.sql), " ")).
			Dur("duration", elapsed).
			Dur("threshold", o.slowThreshold).
			Msg("slow statement")
	}
}

// logger prefers the request-scoped logger stored in ctx.
func (o *statementObserver) logger(ctx context.Context) *zerolog.Logger {
	if l := zerolog.Ctx(ctx); l.GetLevel() != zerolog.Disabled {
		return l
	}
	return o.log
}

// statementVerb returns the leading SQL keyword, upper-cased
// ("INSERT", "SELECT", ...).
func statementVerb(sql string) string {
	fields := strings.Fields(sql)
	if len(fields) == 0 {
		return "UNKNOWN"
	}
	return strings.ToUpper(fields[0])
}
