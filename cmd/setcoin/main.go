// Package main points the trader's held coin at the given symbol.
//
// Usage:
//
//	setcoin [--config config.yaml] SYMBOL
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"altcoin-jumper/internal/app"
	"altcoin-jumper/internal/config"
	"altcoin-jumper/internal/engine"
)

func main() {
	app.LoadEnvFile(".env")

	configPath := flag.String("config", "config.yaml", "Path to YAML configuration file")
	logFormat := flag.String("log-format", "text", "Log format: json or text")
	flag.Usage = func() {
		fmt.Fprintf(flag.CommandLine.Output(), "usage: %s [flags] SYMBOL\n", os.Args[0])
		flag.PrintDefaults()
	}
	flag.Parse()

	logger := app.NewLogger("info", *logFormat, "setcoin")

	if flag.NArg() != 1 {
		flag.Usage()
		os.Exit(2)
	}
	symbol := strings.ToUpper(strings.TrimSpace(flag.Arg(0)))

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

	if err := a.Engine.SetCurrentCoin(ctx, symbol); err != nil {
		if errors.Is(err, engine.ErrUnknownCoin) {
			logger.Error().Str("coin", symbol).Msg("coin is not an enabled coin, run the trader or resetcoins first")
		} else {
			logger.Error().Err(err).Msg("set current coin failed")
		}
		a.Close()
		os.Exit(1)
	}
}
