package engine

import (
	"context"
	"errors"
	"fmt"

	"altcoin-jumper/internal/domain"
	"altcoin-jumper/internal/exchange"
	"altcoin-jumper/internal/observability"
	"altcoin-jumper/internal/storage"
)

// Score is the evaluation of one outgoing pair of the held coin.
type Score struct {
	Pair           *domain.Pair
	ToPrice        float64
	RawRatio       float64 // price(held)/price(to)
	EffectiveRatio float64 // RawRatio net of fees
	Fee            float64 // exit fee of the held coin plus entry fee of the destination
	Score          float64 // EffectiveRatio - baseline
	Progress       float64 // EffectiveRatio / baseline * 100
}

// Evaluation is the result of scoring every outgoing pair of one coin.
type Evaluation struct {
	Coin         string
	Price        float64
	Balance      float64
	BalanceValue float64

	// Profit is the percent change of BalanceValue against the last trade's bridge amount.
	// Zero when there is no trade or the trade amount is zero.
	Profit    float64
	LastTrade *domain.Trade

	// Scores is in pair iteration order (destination symbol ascending).
	Scores      []Score
	LowProgress int
	Logs        []*domain.ScoutLog
}

// Best returns the highest score, or 0 when nothing was scored.
func (ev *Evaluation) Best() float64 {
	best := 0.0
	for i, s := range ev.Scores {
		if i == 0 || s.Score > best {
			best = s.Score
		}
	}
	return best
}

// HasPositive reports whether any pair scores above zero.
func (ev *Evaluation) HasPositive() bool {
	for _, s := range ev.Scores {
		if s.Score > 0 {
			return true
		}
	}
	return false
}

// ComputeScore applies the fee-adjusted ratio formula.
// Returns ErrUnsetRatio or ErrZeroRatio when the baseline cannot serve as a divisor.
func ComputeScore(rawRatio, fee, multiplier float64, baseline *float64) (effective, score, progress float64, err error) {
	if baseline == nil {
		return 0, 0, 0, ErrUnsetRatio
	}
	if *baseline == 0 {
		return 0, 0, 0, ErrZeroRatio
	}
	effective = rawRatio - fee*multiplier*rawRatio
	score = effective - *baseline
	progress = effective / *baseline * 100
	return effective, score, progress, nil
}

// Evaluate scores every outgoing pair of coin held at price and writes one scout
// log row per pair whose destination has a price.
func (e *Engine) Evaluate(ctx context.Context, coin string, price float64, snap exchange.Snapshot) (*Evaluation, error) {
	ev := &Evaluation{Coin: coin, Price: price}

	if err := e.loadProfit(ctx, ev); err != nil {
		return nil, err
	}

	pairs, err := e.stores.Pairs.From(ctx, coin)
	if err != nil {
		return nil, fmt.Errorf("list pairs from %s: %w", coin, err)
	}

	var exitFee float64
	if len(pairs) > 0 {
		exitFee, err = e.exchange.Fee(ctx, coin, e.settings.Bridge, true)
		if err != nil {
			return nil, fmt.Errorf("get exit fee %s: %w", coin, err)
		}
	}

	now := e.now()
	for _, p := range pairs {
		toPrice, err := e.price(snap, p.ToCoin)
		if err != nil {
			observability.RecordPairSkipped("no_price")
			e.log.Info().Str("to", p.ToCoin).Msg("skipping scouting, destination price not found")
			continue
		}

		ev.Logs = append(ev.Logs, &domain.ScoutLog{
			FromCoin:         p.FromCoin,
			ToCoin:           p.ToCoin,
			TargetRatio:      p.Ratio,
			CurrentCoinPrice: price,
			OtherCoinPrice:   toPrice,
			Datetime:         now,
		})

		entryFee, err := e.exchange.Fee(ctx, p.ToCoin, e.settings.Bridge, false)
		if err != nil {
			return nil, fmt.Errorf("get entry fee %s: %w", p.ToCoin, err)
		}

		raw := price / toPrice
		fee := exitFee + entryFee
		effective, score, progress, err := ComputeScore(raw, fee, e.settings.ScoutMultiplier, p.Ratio)
		if err != nil {
			reason := "unset_ratio"
			if errors.Is(err, ErrZeroRatio) {
				reason = "zero_ratio"
			}
			observability.RecordPairSkipped(reason)
			e.log.Info().Err(err).Str("pair", p.Key().String()).Msg("skipping pair")
			continue
		}

		ev.Scores = append(ev.Scores, Score{
			Pair:           p,
			ToPrice:        toPrice,
			RawRatio:       raw,
			EffectiveRatio: effective,
			Fee:            fee,
			Score:          score,
			Progress:       progress,
		})
		if progress < e.settings.ProgressPercentageUnder {
			ev.LowProgress++
		}
	}

	if len(ev.Logs) > 0 {
		if err := e.scoutLogs.InsertBulk(ctx, ev.Logs); err != nil {
			return nil, fmt.Errorf("insert scout logs: %w", err)
		}
	}

	observability.RecordPairsScouted(len(ev.Scores), ev.Best(), ev.LowProgress)
	return ev, nil
}

// loadProfit fills balance, last trade and profit. Profit is derived once here and
// reused by every reset condition.
func (e *Engine) loadProfit(ctx context.Context, ev *Evaluation) error {
	balance, err := e.exchange.BalanceOf(ctx, ev.Coin)
	if err != nil {
		return fmt.Errorf("get balance %s: %w", ev.Coin, err)
	}
	ev.Balance = balance
	ev.BalanceValue = balance * ev.Price

	last, err := e.stores.Trades.Last(ctx)
	if errors.Is(err, storage.ErrNotFound) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("get last trade: %w", err)
	}
	ev.LastTrade = last

	if balance > 0 && last.CryptoTradeAmount != 0 {
		ev.Profit = ev.BalanceValue/last.CryptoTradeAmount*100 - 100
	}
	return nil
}
