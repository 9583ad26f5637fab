// Package config loads trader settings from a YAML file, environment variables
// and the supported coin list file.
package config

import (
	"bufio"
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Config holds every trader setting. Environment variables override the file.
type Config struct {
	Bridge                  string   `yaml:"bridge"`
	ScoutMultiplier         float64  `yaml:"scout_multiplier"`
	ScoutSleepTime          int      `yaml:"scout_sleep_time"` // seconds
	ProfitToReset           float64  `yaml:"profit_to_reset"`
	NumberOfCoinsUnder      int      `yaml:"number_of_coins_under"`
	ProgressPercentageUnder float64  `yaml:"progress_percentage_under"`
	SupportedCoinList       []string `yaml:"supported_coin_list"`
	SupportedCoinListFile   string   `yaml:"supported_coin_list_file"`
	LogMinutes              int      `yaml:"log_minutes"`
	CurrentCoin             string   `yaml:"current_coin"`

	HoursToKeepScoutHistory int `yaml:"hours_to_keep_scout_history"`
	DaysToKeepCoinValues    int `yaml:"days_to_keep_coin_values"`

	ValueUSDSymbol       string `yaml:"value_usd_symbol"`
	ValueReferenceSymbol string `yaml:"value_reference_symbol"`

	APIKey       string `yaml:"api_key"`
	APISecretKey string `yaml:"api_secret_key"`
	TLD          string `yaml:"tld"`

	PostgresDSN   string `yaml:"postgres_dsn"`
	ClickhouseDSN string `yaml:"clickhouse_dsn"`
	RedisAddr     string `yaml:"redis_addr"`
	RedisChannel  string `yaml:"redis_channel"`

	LogLevel string `yaml:"log_level"`

	PaperTrading         bool    `yaml:"paper_trading"`
	PaperStartingBalance float64 `yaml:"paper_starting_balance"`
	PaperFee             float64 `yaml:"paper_fee"`
}

// Default returns the configuration used when neither file nor environment sets a value.
func Default() *Config {
	return &Config{
		Bridge:                  "USDT",
		ScoutMultiplier:         5,
		ScoutSleepTime:          50,
		ProfitToReset:           3,
		NumberOfCoinsUnder:      6,
		ProgressPercentageUnder: 90,
		SupportedCoinListFile:   "supported_coin_list",
		LogMinutes:              15,
		HoursToKeepScoutHistory: 1,
		DaysToKeepCoinValues:    30,
		ValueUSDSymbol:          "USDT",
		ValueReferenceSymbol:    "BTC",
		TLD:                     "com",
		RedisChannel:            "coin_values",
		LogLevel:                "info",
		PaperStartingBalance:    100,
		PaperFee:                0.001,
	}
}

// Load reads the YAML file at path (optional when empty or missing), applies
// environment overrides, resolves the coin list and validates the result.
func Load(path string) (*Config, error) {
	cfg := Default()

	if path != "" {
		data, err := os.ReadFile(path)
		switch {
		case err == nil:
			if err := yaml.Unmarshal(data, cfg); err != nil {
				return nil, fmt.Errorf("decode yaml %s: %w", path, err)
			}
		case errors.Is(err, os.ErrNotExist):
		default:
			return nil, fmt.Errorf("read config %s: %w", path, err)
		}
	}

	if err := overrideWithEnv(cfg); err != nil {
		return nil, err
	}

	if len(cfg.SupportedCoinList) == 0 && cfg.SupportedCoinListFile != "" {
		coins, err := ReadCoinListFile(cfg.SupportedCoinListFile)
		if err != nil && !errors.Is(err, os.ErrNotExist) {
			return nil, err
		}
		cfg.SupportedCoinList = coins
	}
	cfg.SupportedCoinList = normalizeSymbols(cfg.SupportedCoinList)
	cfg.Bridge = strings.ToUpper(strings.TrimSpace(cfg.Bridge))
	cfg.CurrentCoin = strings.ToUpper(strings.TrimSpace(cfg.CurrentCoin))

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return cfg, nil
}

// Validate checks configuration validity.
func (c *Config) Validate() error {
	if c.Bridge == "" {
		return fmt.Errorf("bridge symbol is required")
	}
	if len(c.SupportedCoinList) == 0 {
		return fmt.Errorf("supported coin list is empty")
	}
	for _, coin := range c.SupportedCoinList {
		if coin == c.Bridge {
			return fmt.Errorf("bridge %s cannot be a supported coin", c.Bridge)
		}
	}
	if c.CurrentCoin != "" && !c.Supports(c.CurrentCoin) {
		return fmt.Errorf("current coin %s is not in the supported coin list", c.CurrentCoin)
	}
	if c.ScoutMultiplier < 0 {
		return fmt.Errorf("scout multiplier must be non-negative")
	}
	if c.ScoutSleepTime <= 0 {
		return fmt.Errorf("scout sleep time must be positive")
	}
	if c.NumberOfCoinsUnder < 0 {
		return fmt.Errorf("number of coins under must be non-negative")
	}
	if c.ProgressPercentageUnder <= 0 {
		return fmt.Errorf("progress percentage under must be positive")
	}
	if c.LogMinutes <= 0 {
		return fmt.Errorf("log minutes must be positive")
	}
	if c.HoursToKeepScoutHistory <= 0 || c.DaysToKeepCoinValues <= 0 {
		return fmt.Errorf("retention periods must be positive")
	}
	if c.PaperTrading {
		if c.PaperStartingBalance < 0 || c.PaperFee < 0 || c.PaperFee >= 1 {
			return fmt.Errorf("invalid paper trading balance or fee")
		}
	} else if c.APIKey == "" || c.APISecretKey == "" {
		return fmt.Errorf("api key and secret are required unless paper trading")
	}
	return nil
}

// Supports reports whether coin is in the supported coin list.
func (c *Config) Supports(coin string) bool {
	for _, s := range c.SupportedCoinList {
		if s == coin {
			return true
		}
	}
	return false
}

// ScoutInterval returns the pause between scout cycles.
func (c *Config) ScoutInterval() time.Duration {
	return time.Duration(c.ScoutSleepTime) * time.Second
}

// LogWindow returns the rate-limited logging window.
func (c *Config) LogWindow() time.Duration {
	return time.Duration(c.LogMinutes) * time.Minute
}

// ScoutHistoryRetention returns how long scout rows are kept.
func (c *Config) ScoutHistoryRetention() time.Duration {
	return time.Duration(c.HoursToKeepScoutHistory) * time.Hour
}

// CoinValueRetention returns how long coin value rows are kept.
func (c *Config) CoinValueRetention() time.Duration {
	return time.Duration(c.DaysToKeepCoinValues) * 24 * time.Hour
}

// BinanceBaseURL returns the REST endpoint for the configured top-level domain.
func (c *Config) BinanceBaseURL() string {
	return "https://api.binance." + c.TLD
}

// BinanceStreamURL returns the websocket endpoint for the configured top-level domain.
func (c *Config) BinanceStreamURL() string {
	return "wss://stream.binance." + c.TLD + ":9443"
}

// ReadCoinListFile reads one symbol per line; blank lines and lines starting with # are ignored.
func ReadCoinListFile(path string) ([]string, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open coin list: %w", err)
	}
	defer f.Close()

	var coins []string
	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		coins = append(coins, line)
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("read coin list: %w", err)
	}
	return coins, nil
}

// normalizeSymbols upper-cases symbols and drops blanks and repeats, keeping order.
func normalizeSymbols(in []string) []string {
	seen := make(map[string]struct{}, len(in))
	out := make([]string, 0, len(in))
	for _, s := range in {
		s = strings.ToUpper(strings.TrimSpace(s))
		if s == "" {
			continue
		}
		if _, dup := seen[s]; dup {
			continue
		}
		seen[s] = struct{}{}
		out = append(out, s)
	}
	return out
}

// overrideWithEnv applies environment variables on top of the file values.
func overrideWithEnv(cfg *Config) error {
	setString := func(key string, dst *string) {
		if v, ok := os.LookupEnv(key); ok && v != "" {
			*dst = v
		}
	}
	setFloat := func(key string, dst *float64) error {
		v, ok := os.LookupEnv(key)
		if !ok || v == "" {
			return nil
		}
		f, err := strconv.ParseFloat(v, 64)
		if err != nil {
			return fmt.Errorf("parse %s: %w", key, err)
		}
		*dst = f
		return nil
	}
	setInt := func(key string, dst *int) error {
		v, ok := os.LookupEnv(key)
		if !ok || v == "" {
			return nil
		}
		n, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("parse %s: %w", key, err)
		}
		*dst = n
		return nil
	}

	setString("BRIDGE_SYMBOL", &cfg.Bridge)
	setString("CURRENT_COIN_SYMBOL", &cfg.CurrentCoin)
	setString("API_KEY", &cfg.APIKey)
	setString("API_SECRET_KEY", &cfg.APISecretKey)
	setString("TLD", &cfg.TLD)
	setString("POSTGRES_DSN", &cfg.PostgresDSN)
	setString("CLICKHOUSE_DSN", &cfg.ClickhouseDSN)
	setString("REDIS_ADDR", &cfg.RedisAddr)
	setString("LOG_LEVEL", &cfg.LogLevel)

	if v := os.Getenv("SUPPORTED_COIN_LIST"); strings.TrimSpace(v) != "" {
		cfg.SupportedCoinList = strings.Fields(v)
	}

	if v := os.Getenv("PAPER_TRADING"); v != "" {
		b, err := strconv.ParseBool(v)
		if err != nil {
			return fmt.Errorf("parse PAPER_TRADING: %w", err)
		}
		cfg.PaperTrading = b
	}

	for _, f := range []struct {
		key string
		dst *float64
	}{
		{"SCOUT_MULTIPLIER", &cfg.ScoutMultiplier},
		{"PROFIT_TO_RESET", &cfg.ProfitToReset},
		{"PROGRESS_PERCENTAGE_UNDER", &cfg.ProgressPercentageUnder},
	} {
		if err := setFloat(f.key, f.dst); err != nil {
			return err
		}
	}

	for _, i := range []struct {
		key string
		dst *int
	}{
		{"SCOUT_SLEEP_TIME", &cfg.ScoutSleepTime},
		{"NUMBER_OF_COINS_UNDER", &cfg.NumberOfCoinsUnder},
		{"LOG_MINUTES", &cfg.LogMinutes},
		{"HOURS_TO_KEEP_SCOUTING_HISTORY", &cfg.HoursToKeepScoutHistory},
		{"DAYS_TO_KEEP_COIN_VALUES", &cfg.DaysToKeepCoinValues},
	} {
		if err := setInt(i.key, i.dst); err != nil {
			return err
		}
	}

	return nil
}
