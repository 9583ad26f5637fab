// Package retention prunes the append-only audit tables.
package retention

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"altcoin-jumper/internal/observability"
	"altcoin-jumper/internal/storage"
)

// Options for creating Pruner.
type Options struct {
	ScoutLogs      storage.ScoutLogStore
	CoinValues     storage.CoinValueStore
	ScoutRetention time.Duration // scout history older than this is removed
	ValueRetention time.Duration // coin values older than this are removed
	Logger         zerolog.Logger
	Now            func() time.Time
}

// Pruner deletes audit rows older than their retention window.
type Pruner struct {
	scoutLogs      storage.ScoutLogStore
	coinValues     storage.CoinValueStore
	scoutRetention time.Duration
	valueRetention time.Duration
	log            zerolog.Logger
	now            func() time.Time
}

// New creates a new Pruner.
func New(opts Options) *Pruner {
	now := opts.Now
	if now == nil {
		now = time.Now
	}
	return &Pruner{
		scoutLogs:      opts.ScoutLogs,
		coinValues:     opts.CoinValues,
		scoutRetention: opts.ScoutRetention,
		valueRetention: opts.ValueRetention,
		log:            opts.Logger.With().Str("component", "retention").Logger(),
		now:            now,
	}
}

// PruneScoutHistory removes scout rows older than the scout retention window.
// A non-positive window keeps everything.
func (p *Pruner) PruneScoutHistory(ctx context.Context) error {
	if p.scoutRetention <= 0 {
		return nil
	}
	cutoff := p.now().UTC().Add(-p.scoutRetention)
	if err := p.scoutLogs.PruneBefore(ctx, cutoff); err != nil {
		return fmt.Errorf("prune scout history: %w", err)
	}
	observability.RecordPrune("scout_history")
	p.log.Debug().Time("cutoff", cutoff).Msg("scout history pruned")
	return nil
}

// PruneCoinValues removes coin values older than the value retention window.
// A non-positive window keeps everything.
func (p *Pruner) PruneCoinValues(ctx context.Context) error {
	if p.valueRetention <= 0 {
		return nil
	}
	cutoff := p.now().UTC().Add(-p.valueRetention)
	if err := p.coinValues.PruneBefore(ctx, cutoff); err != nil {
		return fmt.Errorf("prune coin values: %w", err)
	}
	observability.RecordPrune("coin_values")
	p.log.Debug().Time("cutoff", cutoff).Msg("coin values pruned")
	return nil
}
