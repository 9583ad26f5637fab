package app

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"altcoin-jumper/internal/config"
)

func testConfig() *config.Config {
	cfg := config.Default()
	cfg.SupportedCoinList = []string{"ADA", "ETH"}
	cfg.PaperTrading = true
	return cfg
}

func TestBuild_Memory(t *testing.T) {
	ctx := context.Background()
	a, err := Build(ctx, testConfig(), zerolog.Nop(), Options{UseMemory: true})
	require.NoError(t, err)
	defer a.Close()

	require.NotNil(t, a.Engine)
	require.NotNil(t, a.Pruner)
	require.NotNil(t, a.Stream)

	require.NoError(t, a.Engine.SeedUniverse(ctx, []string{"ADA", "ETH"}))
	require.NoError(t, a.Engine.SetCurrentCoin(ctx, "ETH"))
	assert.Equal(t, "ETH", a.Engine.Status().HeldCoin)

	// Close is idempotent.
	a.Close()
}

func TestBuild_RequiresDSNs(t *testing.T) {
	_, err := Build(context.Background(), testConfig(), zerolog.Nop(), Options{})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "--use-memory")
}

func TestLoadEnvFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), ".env")
	data := "# comment\nAJ_TEST_NEW=fresh\n\nAJ_TEST_KEPT = file\nbroken line\n"
	require.NoError(t, os.WriteFile(path, []byte(data), 0o600))

	t.Setenv("AJ_TEST_KEPT", "env")
	t.Setenv("AJ_TEST_NEW", "")

	LoadEnvFile(path)

	assert.Equal(t, "fresh", os.Getenv("AJ_TEST_NEW"))
	assert.Equal(t, "env", os.Getenv("AJ_TEST_KEPT"))

	LoadEnvFile(filepath.Join(t.TempDir(), "missing"))
}

func TestNewLogger_Level(t *testing.T) {
	assert.Equal(t, zerolog.DebugLevel, NewLogger("DEBUG", "json", "test").GetLevel())
	assert.Equal(t, zerolog.InfoLevel, NewLogger("nonsense", "text", "test").GetLevel())
	assert.Equal(t, zerolog.InfoLevel, NewLogger("", "json", "test").GetLevel())
}
