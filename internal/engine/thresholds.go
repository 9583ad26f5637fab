package engine

import (
	"context"
	"errors"
	"fmt"

	"altcoin-jumper/internal/exchange"
	"altcoin-jumper/internal/observability"
)

// InitializeThresholds sets ratio = price(from)/price(to) on every unset pair between
// enabled coins. Pairs lacking a price are skipped until a later snapshot has one.
// Each ratio is persisted as soon as it is computed; set ratios are never overwritten.
// Returns the number of pairs initialized.
func (e *Engine) InitializeThresholds(ctx context.Context, snap exchange.Snapshot) (int, error) {
	pairs, err := e.stores.Pairs.ListUnset(ctx)
	if err != nil {
		return 0, fmt.Errorf("list unset pairs: %w", err)
	}

	set := 0
	for _, p := range pairs {
		ratio, err := e.baseline(snap, p.FromCoin, p.ToCoin)
		if errors.Is(err, ErrNoPrice) {
			observability.RecordPairSkipped("no_price")
			e.log.Info().
				Str("from", p.FromCoin).
				Str("to", p.ToCoin).
				Msg("skipping threshold initialization, price not found")
			continue
		}

		if err := e.stores.Pairs.SetRatio(ctx, p.FromCoin, p.ToCoin, ratio); err != nil {
			return set, fmt.Errorf("set ratio %s: %w", p.Key(), err)
		}
		set++
	}

	if set > 0 {
		observability.RecordThresholdsSet(set)
		e.log.Info().Int("pairs", set).Msg("thresholds initialized")
	}
	return set, nil
}

// baseline returns price(from)/price(to) from the snapshot.
func (e *Engine) baseline(snap exchange.Snapshot, from, to string) (float64, error) {
	fromPrice, err := e.price(snap, from)
	if err != nil {
		return 0, err
	}
	toPrice, err := e.price(snap, to)
	if err != nil {
		return 0, err
	}
	return fromPrice / toPrice, nil
}
