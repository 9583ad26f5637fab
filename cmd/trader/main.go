// Package main runs the trader: scout cycles, value recording and history pruning
// on a schedule, plus an HTTP server for health, metrics and status.
package main

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog"

	"altcoin-jumper/internal/app"
	"altcoin-jumper/internal/config"
	"altcoin-jumper/internal/engine"
	"altcoin-jumper/internal/observability"
	"altcoin-jumper/internal/scheduler"
)

const (
	valuesSpec       = "@every 1m"
	scoutPruneSpec   = "@every 1m"
	valuePruneSpec   = "@hourly"
	shutdownDeadline = 30 * time.Second
)

func main() {
	// Load .env file if exists
	app.LoadEnvFile(".env")

	configPath := flag.String("config", envOr("CONFIG_PATH", "config.yaml"), "Path to YAML configuration file")
	useMemory := flag.Bool("use-memory", false, "Use in-memory storage instead of PostgreSQL and ClickHouse")
	metricsAddr := flag.String("metrics-addr", envOr("METRICS_ADDR", ":9090"), "HTTP address for /health, /metrics and /status")
	logFormat := flag.String("log-format", envOr("LOG_FORMAT", "json"), "Log format: json or text")
	flag.Parse()

	boot := app.NewLogger("info", *logFormat, "trader")
	cfg, err := config.Load(*configPath)
	if err != nil {
		boot.Fatal().Err(err).Str("path", *configPath).Msg("failed to load config")
	}
	logger := app.NewLogger(cfg.LogLevel, *logFormat, "trader")

	logger.Info().
		Str("bridge", cfg.Bridge).
		Strs("coins", cfg.SupportedCoinList).
		Float64("scout_multiplier", cfg.ScoutMultiplier).
		Dur("scout_interval", cfg.ScoutInterval()).
		Bool("paper_trading", cfg.PaperTrading).
		Bool("use_memory", *useMemory).
		Msg("configuration loaded")

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	a, err := app.Build(ctx, cfg, logger, app.Options{UseMemory: *useMemory})
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to build application")
	}
	defer a.Close()

	// Channel to signal completion
	done := make(chan struct{})

	// Handle shutdown signals
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		sig := <-sigCh
		logger.Info().Str("signal", sig.String()).Msg("initiating graceful shutdown")
		cancel()

		// Wait for second signal for immediate shutdown
		select {
		case sig := <-sigCh:
			logger.Error().Str("signal", sig.String()).Msg("second signal, forcing immediate shutdown")
			os.Exit(1)
		case <-time.After(shutdownDeadline):
			logger.Error().Msg("graceful shutdown timed out, forcing exit")
			os.Exit(1)
		case <-done:
		}
	}()

	srv := newHTTPServer(*metricsAddr, a.Engine, logger)
	go func() {
		logger.Info().Str("addr", *metricsAddr).Msg("starting HTTP server")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error().Err(err).Msg("HTTP server error")
		}
	}()

	err = run(ctx, a)
	close(done)

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer shutdownCancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Warn().Err(err).Msg("HTTP server shutdown")
	}

	if err != nil && !errors.Is(err, context.Canceled) {
		logger.Error().Err(err).Msg("trader stopped with error")
		a.Close()
		os.Exit(1)
	}
	logger.Info().Msg("shutdown complete")
}

// run starts the price stream and the engine, then drives scheduled jobs until ctx ends.
func run(ctx context.Context, a *app.App) error {
	if err := a.Stream.Start(ctx); err != nil {
		a.Log.Warn().Err(err).Msg("price stream unavailable, using REST snapshots")
	}

	if err := a.Engine.Startup(ctx); err != nil {
		return err
	}

	sched := scheduler.New(ctx, a.Log)
	jobs := []struct {
		name string
		spec string
		fn   scheduler.JobFunc
	}{
		{"scout", scheduler.Every(a.Config.ScoutInterval()), func(ctx context.Context) error {
			_, err := a.Engine.Scout(ctx)
			return err
		}},
		{"record_values", valuesSpec, a.Engine.RecordValues},
		{"prune_scout_history", scoutPruneSpec, a.Pruner.PruneScoutHistory},
		{"prune_coin_values", valuePruneSpec, a.Pruner.PruneCoinValues},
	}
	for _, j := range jobs {
		if err := sched.Add(j.name, j.spec, j.fn); err != nil {
			return err
		}
	}

	sched.Start()
	a.Log.Info().Int("jobs", len(jobs)).Msg("trader started")

	<-ctx.Done()

	stopCtx, cancel := context.WithTimeout(context.Background(), shutdownDeadline)
	defer cancel()
	if err := sched.Stop(stopCtx); err != nil {
		a.Log.Warn().Err(err).Msg("scheduler stop")
	}
	return ctx.Err()
}

// statusResponse is the JSON response for /status endpoint.
type statusResponse struct {
	Status string        `json:"status"`
	Uptime string        `json:"uptime"`
	Engine engine.Status `json:"engine"`
}

// newHTTPServer builds the HTTP server for health/metrics/status.
func newHTTPServer(addr string, e *engine.Engine, logger zerolog.Logger) *http.Server {
	started := time.Now()
	mux := http.NewServeMux()

	// Health check
	mux.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("ok"))
	})

	// Prometheus metrics
	mux.Handle("/metrics", observability.Handler())

	mux.HandleFunc("/status", func(w http.ResponseWriter, r *http.Request) {
		resp := statusResponse{
			Status: "running",
			Uptime: time.Since(started).Truncate(time.Second).String(),
			Engine: e.Status(),
		}
		w.Header().Set("Content-Type", "application/json")
		if err := json.NewEncoder(w).Encode(resp); err != nil {
			logger.Warn().Err(err).Msg("encode status")
		}
	})

	return &http.Server{
		Addr:              addr,
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}
}

func envOr(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}
