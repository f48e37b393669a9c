package database_test

import (
	"context"
	"testing"

	"github.com/deppfellow/postboard/internal/config"
	"github.com/deppfellow/postboard/internal/database"
	"github.com/deppfellow/postboard/internal/database/databasetest"
	"github.com/jackc/pgx/v5"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNew_InvalidURL(t *testing.T) {
	cfg := config.Default()
	cfg.Database.URL = "::not a url::"
	logger := zerolog.Nop()

	_, err := database.New(cfg, &logger, nil, nil)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to parse pgx pool config")
}

func TestDatabase_ExecAndQuery(t *testing.T) {
	db := databasetest.New(t)
	ctx := context.Background()

	tag, err := db.Exec(ctx, "INSERT INTO users (username, email) VALUES ($1, $2)", "ada", "ada@example.com")
	require.NoError(t, err)
	assert.Equal(t, int64(1), tag.RowsAffected())

	rows, err := db.Query(ctx, "SELECT username FROM users WHERE email = $1", "ada@example.com")
	require.NoError(t, err)
	names, err := pgx.CollectRows(rows, pgx.RowTo[string])
	require.NoError(t, err)
	assert.Equal(t, []string{"ada"}, names)

	var count int
	require.NoError(t, db.QueryRow(ctx, "SELECT count(*) FROM posts").Scan(&count))
	assert.Zero(t, count)

	// Every connection went back to the pool.
	assert.Zero(t, db.Pool.Stat().AcquiredConns())
}

func TestDatabase_FailedStatementReleasesConnection(t *testing.T) {
	db := databasetest.New(t)
	ctx := context.Background()

	_, err := db.Exec(ctx, "INSERT INTO missing_table VALUES (1)")
	require.Error(t, err)

	_, err = db.Query(ctx, "SELECT * FROM missing_table")
	require.Error(t, err)

	assert.Zero(t, db.Pool.Stat().AcquiredConns())
	require.NoError(t, db.Ping(ctx))
}

func TestMigrate_Idempotent(t *testing.T) {
	url := databasetest.URL(t)
	logger := zerolog.Nop()
	ctx := context.Background()

	require.NoError(t, database.Migrate(ctx, &logger, url))
	require.NoError(t, database.Migrate(ctx, &logger, url))
}
