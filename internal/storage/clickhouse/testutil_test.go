package clickhouse_test

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"

	"altcoin-jumper/internal/storage/clickhouse"
	"altcoin-jumper/internal/storage/migrations"
)

// setupTestDB starts a ClickHouse server and lets the migrations create the
// jumper database and its tables, as the trader does on startup.
// The returned cleanup closes the connection and stops the container.
func setupTestDB(t *testing.T) (*clickhouse.Conn, func()) {
	t.Helper()

	if testing.Short() {
		t.Skip("skipping integration test in short mode")
	}

	ctx := context.Background()

	container, err := testcontainers.GenericContainer(ctx, testcontainers.GenericContainerRequest{
		ContainerRequest: testcontainers.ContainerRequest{
			Image:        "clickhouse/clickhouse-server:24.1-alpine",
			ExposedPorts: []string{"9000/tcp"},
			Env:          map[string]string{"CLICKHOUSE_USER": "default", "CLICKHOUSE_PASSWORD": ""},
			WaitingFor: wait.ForAll(
				wait.ForLog("Application: Ready for connections").WithStartupTimeout(60*time.Second),
				wait.ForListeningPort("9000/tcp"),
			),
		},
		Started: true,
	})
	require.NoError(t, err, "start clickhouse container")

	terminate := func() {
		if err := container.Terminate(ctx); err != nil {
			t.Logf("terminate container: %v", err)
		}
	}

	host, err := container.Host(ctx)
	if err != nil {
		terminate()
		t.Fatalf("clickhouse host: %v", err)
	}
	port, err := container.MappedPort(ctx, "9000")
	if err != nil {
		terminate()
		t.Fatalf("clickhouse port: %v", err)
	}

	dsn := fmt.Sprintf("clickhouse://%s:%s/jumper", host, port.Port())
	conn, err := migrations.RunClickhouseMigrations(ctx, dsn, zerolog.Nop())
	if err != nil {
		terminate()
		t.Fatalf("apply migrations: %v", err)
	}

	return conn, func() {
		conn.Close()
		terminate()
	}
}
