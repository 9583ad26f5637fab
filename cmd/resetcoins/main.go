// Package main deletes every stored pair, coin and the current coin, then reseeds the
// supported coins and initializes fresh thresholds.
package main

import (
	"context"
	"flag"
	"os"
	"os/signal"
	"syscall"

	"altcoin-jumper/internal/app"
	"altcoin-jumper/internal/config"
)

func main() {
	app.LoadEnvFile(".env")

	configPath := flag.String("config", "config.yaml", "Path to YAML configuration file")
	logFormat := flag.String("log-format", "text", "Log format: json or text")
	flag.Parse()

	logger := app.NewLogger("info", *logFormat, "resetcoins")

	cfg, err := config.Load(*configPath)
	if err != nil {
		logger.Fatal().Err(err).Str("path", *configPath).Msg("failed to load config")
	}

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	a, err := app.Build(ctx, cfg, logger, app.Options{})
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to build application")
	}
	defer a.Close()

	if err := a.Engine.ResetUniverse(ctx); err != nil {
		logger.Error().Err(err).Msg("reset failed")
		a.Close()
		os.Exit(1)
	}

	logger.Info().Strs("coins", cfg.SupportedCoinList).Msg("coins and pairs reset")
}
