// Package app wires configuration into stores, exchange clients and the engine.
// It is shared by the trader and the maintenance commands.
package app

import (
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	"altcoin-jumper/internal/config"
	"altcoin-jumper/internal/engine"
	"altcoin-jumper/internal/exchange"
	"altcoin-jumper/internal/exchange/binance"
	"altcoin-jumper/internal/exchange/paper"
	"altcoin-jumper/internal/notify"
	"altcoin-jumper/internal/retention"
	"altcoin-jumper/internal/storage"
	chstore "altcoin-jumper/internal/storage/clickhouse"
	"altcoin-jumper/internal/storage/memory"
	"altcoin-jumper/internal/storage/migrations"
	pgstore "altcoin-jumper/internal/storage/postgres"
)

// Options controls how the application is assembled.
type Options struct {
	UseMemory bool // in-memory stores instead of PostgreSQL and ClickHouse
}

// App holds the assembled components.
type App struct {
	Config  *config.Config
	Engine  *engine.Engine
	Pruner  *retention.Pruner
	Binance *binance.Client
	Stream  *binance.PriceStream
	Log     zerolog.Logger

	cleanup []func()
}

// allStores holds all storage implementations.
type allStores struct {
	stores     storage.Stores
	tx         storage.TxRunner
	scoutLogs  storage.ScoutLogStore
	coinValues storage.CoinValueStore
}

// Build assembles the application from cfg.
// Close must be called to release connections.
func Build(ctx context.Context, cfg *config.Config, log zerolog.Logger, opts Options) (*App, error) {
	a := &App{Config: cfg, Log: log}

	st, err := a.createStores(ctx, opts.UseMemory)
	if err != nil {
		a.Close()
		return nil, err
	}

	a.Binance = binance.NewClient(cfg.APIKey, cfg.APISecretKey,
		binance.WithBaseURL(cfg.BinanceBaseURL()),
		binance.WithLogger(log),
	)
	a.Stream = binance.NewPriceStream(cfg.BinanceStreamURL(), a.Binance, log, nil)
	a.cleanup = append(a.cleanup, func() { a.Stream.Close() })

	var client exchange.Client = a.Binance
	if cfg.PaperTrading {
		px := paper.New(paper.Options{Fee: cfg.PaperFee, Logger: log})
		px.Deposit(cfg.Bridge, cfg.PaperStartingBalance)
		client = px
		log.Info().
			Str("bridge", cfg.Bridge).
			Float64("balance", cfg.PaperStartingBalance).
			Msg("paper trading enabled")
	}

	sink, err := a.createSink(ctx)
	if err != nil {
		a.Close()
		return nil, err
	}

	a.Engine = engine.New(engine.Options{
		Stores:     st.stores,
		TxRunner:   st.tx,
		ScoutLogs:  st.scoutLogs,
		CoinValues: st.coinValues,
		Exchange:   client,
		Prices:     a.Stream,
		Sink:       sink,
		Logger:     log,
		LogWindow:  cfg.LogWindow(),
		Settings: engine.Settings{
			Bridge:                  cfg.Bridge,
			ScoutMultiplier:         cfg.ScoutMultiplier,
			ProfitToReset:           cfg.ProfitToReset,
			NumberOfCoinsUnder:      cfg.NumberOfCoinsUnder,
			ProgressPercentageUnder: cfg.ProgressPercentageUnder,
			SupportedCoins:          cfg.SupportedCoinList,
			CurrentCoin:             cfg.CurrentCoin,
			ValueUSDSymbol:          cfg.ValueUSDSymbol,
			ValueReferenceSymbol:    cfg.ValueReferenceSymbol,
		},
	})

	a.Pruner = retention.New(retention.Options{
		ScoutLogs:      st.scoutLogs,
		CoinValues:     st.coinValues,
		ScoutRetention: cfg.ScoutHistoryRetention(),
		ValueRetention: cfg.CoinValueRetention(),
		Logger:         log,
	})

	return a, nil
}

// Close releases every resource opened by Build in reverse order.
func (a *App) Close() {
	for i := len(a.cleanup) - 1; i >= 0; i-- {
		a.cleanup[i]()
	}
	a.cleanup = nil
}

// createStores creates all required stores.
func (a *App) createStores(ctx context.Context, useMemory bool) (*allStores, error) {
	if useMemory {
		db := memory.NewDB()
		a.Log.Warn().Msg("using in-memory storage, state is lost on exit")
		return &allStores{
			stores:     db.Stores(),
			tx:         db,
			scoutLogs:  memory.NewScoutLogStore(),
			coinValues: memory.NewCoinValueStore(),
		}, nil
	}

	cfg := a.Config
	if cfg.PostgresDSN == "" || cfg.ClickhouseDSN == "" {
		return nil, fmt.Errorf("postgres and clickhouse DSNs are required (use --use-memory for in-memory storage)")
	}

	// PostgreSQL
	pool, err := pgstore.NewPool(ctx, cfg.PostgresDSN)
	if err != nil {
		return nil, fmt.Errorf("connect to postgres: %w", err)
	}
	a.cleanup = append(a.cleanup, pool.Close)
	if err := migrations.RunPostgresMigrations(ctx, pool, a.Log); err != nil {
		return nil, fmt.Errorf("migrate postgres: %w", err)
	}

	// ClickHouse
	conn, err := migrations.RunClickhouseMigrations(ctx, cfg.ClickhouseDSN, a.Log)
	if err != nil {
		return nil, fmt.Errorf("migrate clickhouse: %w", err)
	}
	a.cleanup = append(a.cleanup, func() { conn.Close() })

	return &allStores{
		stores:     pgstore.NewStores(pool),
		tx:         pgstore.NewTxRunner(pool),
		scoutLogs:  chstore.NewScoutLogStore(conn),
		coinValues: chstore.NewCoinValueStore(conn),
	}, nil
}

// createSink connects to Redis when an address is configured.
func (a *App) createSink(ctx context.Context) (notify.Sink, error) {
	if a.Config.RedisAddr == "" {
		return notify.NopSink{}, nil
	}

	rdb := redis.NewClient(&redis.Options{Addr: a.Config.RedisAddr})
	if err := rdb.Ping(ctx).Err(); err != nil {
		rdb.Close()
		return nil, fmt.Errorf("connect to redis %s: %w", a.Config.RedisAddr, err)
	}
	a.cleanup = append(a.cleanup, func() { rdb.Close() })

	return notify.NewRedisSink(rdb, a.Config.RedisChannel, a.Log), nil
}

// NewLogger creates the process logger. format "text" selects the console writer.
func NewLogger(level, format, service string) zerolog.Logger {
	zerolog.TimeFieldFormat = zerolog.TimeFormatUnixMs
	lvl, err := zerolog.ParseLevel(strings.ToLower(level))
	if err != nil || lvl == zerolog.NoLevel {
		lvl = zerolog.InfoLevel
	}

	var w = zerolog.New(os.Stdout)
	if format == "text" {
		w = zerolog.New(zerolog.ConsoleWriter{Out: os.Stdout})
	}
	return w.Level(lvl).With().Timestamp().Str("service", service).Logger()
}

// LoadEnvFile loads environment variables from path if it exists.
// Variables already set in the environment are kept.
func LoadEnvFile(path string) {
	data, err := os.ReadFile(path)
	if err != nil {
		return
	}

	for _, line := range strings.Split(string(data), "\n") {
		line = strings.TrimSpace(line)
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}

		parts := strings.SplitN(line, "=", 2)
		if len(parts) != 2 {
			continue
		}

		key := strings.TrimSpace(parts[0])
		value := strings.TrimSpace(parts[1])

		if os.Getenv(key) == "" {
			os.Setenv(key, value)
		}
	}
}
