package postgres_test

import (
	"context"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	tcpostgres "github.com/testcontainers/testcontainers-go/modules/postgres"
	"github.com/testcontainers/testcontainers-go/wait"

	"altcoin-jumper/internal/storage/migrations"
	"altcoin-jumper/internal/storage/postgres"
)

// setupTestDB starts a PostgreSQL container and applies the embedded migrations,
// the same way the trader does on startup. The returned cleanup closes the pool
// and stops the container.
func setupTestDB(t *testing.T) (*postgres.Pool, func()) {
	t.Helper()

	if testing.Short() {
		t.Skip("skipping integration test in short mode")
	}

	ctx := context.Background()

	container, err := tcpostgres.Run(ctx, "postgres:15-alpine",
		tcpostgres.WithDatabase("jumper"),
		tcpostgres.WithUsername("jumper"),
		tcpostgres.WithPassword("jumper"),
		testcontainers.WithWaitStrategy(
			wait.ForLog("database system is ready to accept connections").
				WithOccurrence(2).
				WithStartupTimeout(60*time.Second),
		),
	)
	require.NoError(t, err, "start postgres container")

	terminate := func() {
		if err := container.Terminate(ctx); err != nil {
			t.Logf("terminate container: %v", err)
		}
	}

	dsn, err := container.ConnectionString(ctx, "sslmode=disable")
	if err != nil {
		terminate()
		t.Fatalf("connection string: %v", err)
	}

	pool, err := postgres.NewPool(ctx, dsn)
	if err != nil {
		terminate()
		t.Fatalf("create pool: %v", err)
	}

	if err := migrations.RunPostgresMigrations(ctx, pool, zerolog.Nop()); err != nil {
		pool.Close()
		terminate()
		t.Fatalf("apply migrations: %v", err)
	}

	return pool, func() {
		pool.Close()
		terminate()
	}
}

func ptr[T any](v T) *T {
	return &v
}
