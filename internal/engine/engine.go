// Package engine implements the jump-trading core: baseline ratios, per-pair scoring,
// jump selection and execution, ratio resets, bridge deployment and value recording.
//
// One scout cycle consumes exactly one price snapshot. Cycles, jumps and the
// universe-changing operations are serialized by a single engine lock.
package engine

import (
	"sync"
	"time"

	"github.com/rs/zerolog"

	"altcoin-jumper/internal/exchange"
	"altcoin-jumper/internal/notify"
	"altcoin-jumper/internal/ratelog"
	"altcoin-jumper/internal/storage"
)

// Settings are the trading parameters of the engine.
type Settings struct {
	Bridge                  string
	ScoutMultiplier         float64
	ProfitToReset           float64 // percent
	NumberOfCoinsUnder      int
	ProgressPercentageUnder float64 // percent
	SupportedCoins          []string
	CurrentCoin             string // initial coin; empty picks the first supported coin and buys it
	ValueUSDSymbol          string
	ValueReferenceSymbol    string
}

// Options for creating Engine.
type Options struct {
	// Required
	Stores     storage.Stores
	TxRunner   storage.TxRunner
	ScoutLogs  storage.ScoutLogStore
	CoinValues storage.CoinValueStore
	Exchange   exchange.Client
	Prices     exchange.PriceProvider

	// Optional
	Sink      notify.Sink      // defaults to notify.NopSink
	Logger    zerolog.Logger   // defaults to a disabled logger
	LogWindow time.Duration    // rate-limit window of the held-coin report
	Now       func() time.Time // defaults to time.Now

	Settings Settings
}

// Status is a point-in-time view of the engine for health endpoints.
type Status struct {
	HeldCoin      string    `json:"held_coin"`
	Cycles        int64     `json:"cycles"`
	LastCycle     time.Time `json:"last_cycle"`
	LastCycleErr  string    `json:"last_cycle_error,omitempty"`
	LastJump      time.Time `json:"last_jump"`
	LastJumpTo    string    `json:"last_jump_to,omitempty"`
	ResetsApplied int64     `json:"resets_applied"`
}

// Engine runs scout cycles against an exchange and persists their outcome.
type Engine struct {
	stores     storage.Stores
	tx         storage.TxRunner
	scoutLogs  storage.ScoutLogStore
	coinValues storage.CoinValueStore
	exchange   exchange.Client
	prices     exchange.PriceProvider
	sink       notify.Sink

	settings Settings
	log      zerolog.Logger
	report   *ratelog.Logger
	now      func() time.Time

	// mu serializes cycles, jumps, bridge purchases and universe changes.
	mu sync.Mutex

	statusMu sync.RWMutex
	status   Status
}

// New creates a new Engine.
func New(opts Options) *Engine {
	now := opts.Now
	if now == nil {
		now = time.Now
	}
	sink := opts.Sink
	if sink == nil {
		sink = notify.NopSink{}
	}
	log := opts.Logger.With().Str("component", "engine").Logger()

	return &Engine{
		stores:     opts.Stores,
		tx:         opts.TxRunner,
		scoutLogs:  opts.ScoutLogs,
		coinValues: opts.CoinValues,
		exchange:   opts.Exchange,
		prices:     opts.Prices,
		sink:       sink,
		settings:   opts.Settings,
		log:        log,
		report:     ratelog.New(log, ratelog.Options{Window: opts.LogWindow, Now: now}),
		now:        now,
	}
}

// Status returns a copy of the engine status.
func (e *Engine) Status() Status {
	e.statusMu.RLock()
	defer e.statusMu.RUnlock()
	return e.status
}

func (e *Engine) updateStatus(fn func(s *Status)) {
	e.statusMu.Lock()
	fn(&e.status)
	e.statusMu.Unlock()
}

// price returns the bridge-quoted price of coin.
func (e *Engine) price(snap exchange.Snapshot, coin string) (float64, error) {
	p, ok := snap.Price(coin, e.settings.Bridge)
	if !ok {
		return 0, ErrNoPrice
	}
	return p, nil
}
