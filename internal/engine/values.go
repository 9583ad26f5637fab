package engine

import (
	"context"
	"fmt"

	"altcoin-jumper/internal/domain"
	"altcoin-jumper/internal/exchange"
	"altcoin-jumper/internal/observability"
)

// RecordValues appends a CoinValue for every coin with a nonzero balance, priced from
// a fresh snapshot, and forwards the rows to the sink.
func (e *Engine) RecordValues(ctx context.Context) error {
	snap, err := e.prices.Snapshot(ctx)
	if err != nil {
		return fmt.Errorf("get price snapshot: %w", err)
	}
	return e.recordValues(ctx, snap)
}

func (e *Engine) recordValues(ctx context.Context, snap exchange.Snapshot) error {
	coins, err := e.stores.Coins.List(ctx, false)
	if err != nil {
		return fmt.Errorf("list coins: %w", err)
	}

	now := e.now().UTC()
	values := make([]*domain.CoinValue, 0, len(coins))
	for _, c := range coins {
		balance, err := e.exchange.BalanceOf(ctx, c.Symbol)
		if err != nil {
			return fmt.Errorf("get balance %s: %w", c.Symbol, err)
		}
		if balance == 0 {
			continue
		}
		values = append(values, &domain.CoinValue{
			Coin:     c.Symbol,
			Balance:  balance,
			USDValue: valueIn(snap, c.Symbol, e.settings.ValueUSDSymbol, balance),
			BTCValue: valueIn(snap, c.Symbol, e.settings.ValueReferenceSymbol, balance),
			Interval: domain.IntervalMinutely,
			Datetime: now,
		})
	}
	if len(values) == 0 {
		return nil
	}

	if err := e.coinValues.InsertBulk(ctx, values); err != nil {
		return fmt.Errorf("insert coin values: %w", err)
	}
	observability.RecordValuesRecorded(len(values))

	// Values are already persisted; a sink outage must not fail the caller.
	if err := e.sink.Send(ctx, values); err != nil {
		e.log.Warn().Err(err).Int("count", len(values)).Msg("notify coin values")
	}
	return nil
}

// valueIn returns balance priced in quote, or nil when the price is unavailable.
func valueIn(snap exchange.Snapshot, coin, quote string, balance float64) *float64 {
	if quote == "" {
		return nil
	}
	if coin == quote {
		v := balance
		return &v
	}
	p, ok := snap.Price(coin, quote)
	if !ok {
		return nil
	}
	v := balance * p
	return &v
}
