package engine

import (
	"context"
	"fmt"

	"altcoin-jumper/internal/observability"
	"altcoin-jumper/internal/storage"
)

// Reset triggers
const (
	ResetProfit      = "profit"       // profit above ProfitToReset with at least one low-progress pair
	ResetManyLow     = "many_low"     // positive profit with more than NumberOfCoinsUnder low-progress pairs
	ResetAllLow      = "all_low"      // every other enabled coin is low-progress
	ResetNotRequired = ""
)

// ResetTrigger returns which reset condition, if any, the evaluation of the held coin meets.
// enabledCoins is the number of enabled coins in the universe.
func (e *Engine) ResetTrigger(ev *Evaluation, enabledCoins int) string {
	movedOn := ev.LastTrade == nil || ev.LastTrade.AltCoin != ev.Coin

	switch {
	case ev.Profit > e.settings.ProfitToReset && ev.LowProgress >= 1 && movedOn:
		return ResetProfit
	case ev.Profit > 0 && ev.LowProgress > e.settings.NumberOfCoinsUnder && movedOn:
		return ResetManyLow
	case enabledCoins >= 2 && ev.LowProgress >= enabledCoins-1:
		return ResetAllLow
	}
	return ResetNotRequired
}

// DeletePairs clears the ratio of every pair. The next threshold initialization
// re-baselines them from the prices of that moment.
func (e *Engine) DeletePairs(ctx context.Context) (int, error) {
	var cleared int
	err := e.tx.RunInTx(ctx, func(ctx context.Context, s storage.Stores) error {
		n, err := s.Pairs.ClearRatios(ctx)
		cleared = n
		return err
	})
	if err != nil {
		return 0, fmt.Errorf("clear ratios: %w", err)
	}
	e.log.Warn().Int("pairs", cleared).Msg("pair ratios cleared")
	return cleared, nil
}

// applyReset clears all ratios when the evaluation meets a reset condition.
func (e *Engine) applyReset(ctx context.Context, ev *Evaluation, enabledCoins int) (string, error) {
	trigger := e.ResetTrigger(ev, enabledCoins)
	if trigger == ResetNotRequired {
		return trigger, nil
	}

	e.log.Warn().
		Str("trigger", trigger).
		Float64("profit", ev.Profit).
		Int("low_progress", ev.LowProgress).
		Float64("progress_under", e.settings.ProgressPercentageUnder).
		Msg("resetting pair ratios")

	if _, err := e.DeletePairs(ctx); err != nil {
		return trigger, err
	}
	observability.RecordReset(trigger)
	e.updateStatus(func(st *Status) { st.ResetsApplied++ })
	return trigger, nil
}
