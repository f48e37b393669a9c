// Package databasetest starts a throwaway PostgreSQL for integration tests.
package databasetest

import (
	"context"
	"testing"

	"github.com/deppfellow/postboard/internal/config"
	"github.com/deppfellow/postboard/internal/database"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/modules/postgres"
)

const image = "postgres:16-alpine"

// URL starts a Postgres container for the duration of t and returns its
// connection URL. The test is skipped in -short mode or when no container
// runtime is reachable.
func URL(t *testing.T) string {
	t.Helper()

	if testing.Short() {
		t.Skip("skipping PostgreSQL integration test in short mode")
	}
	testcontainers.SkipIfProviderIsNotHealthy(t)

	ctx := context.Background()
	ctr, err := postgres.Run(ctx, image,
		postgres.WithDatabase("postboard"),
		postgres.WithUsername("postboard"),
		postgres.WithPassword("postboard"),
		postgres.BasicWaitStrategies(),
	)
	testcontainers.CleanupContainer(t, ctr)
	require.NoError(t, err)

	url, err := ctr.ConnectionString(ctx, "sslmode=disable")
	require.NoError(t, err)
	return url
}

// New starts Postgres, applies the migrations and returns a connected
// Database that is closed when t finishes.
func New(t *testing.T) *database.Database {
	t.Helper()

	url := URL(t)
	logger := zerolog.Nop()

	require.NoError(t, database.Migrate(context.Background(), &logger, url))

	cfg := config.Default()
	cfg.Database.URL = url

	db, err := database.New(cfg, &logger, nil, nil)
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })

	return db
}
