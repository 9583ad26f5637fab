// Package paper simulates a spot exchange with virtual balances for dry runs.
package paper

import (
	"context"
	"strconv"
	"sync"
	"sync/atomic"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"

	"altcoin-jumper/internal/exchange"
)

// Options configures the simulated exchange.
type Options struct {
	Fee         float64 // fractional fee charged on every fill, default 0.001
	MinNotional float64 // minimum order value in bridge units, default 10
	Logger      zerolog.Logger
}

// Exchange implements exchange.Client against in-memory balances.
// Fills execute at the snapshot price; fees are deducted from the received asset.
type Exchange struct {
	mu          sync.Mutex
	balances    map[string]decimal.Decimal
	fee         decimal.Decimal
	minNotional float64
	orderSeq    atomic.Int64
	log         zerolog.Logger
}

// New creates a simulated exchange.
func New(opts Options) *Exchange {
	if opts.Fee == 0 {
		opts.Fee = 0.001
	}
	if opts.MinNotional == 0 {
		opts.MinNotional = 10
	}
	return &Exchange{
		balances:    make(map[string]decimal.Decimal),
		fee:         decimal.NewFromFloat(opts.Fee),
		minNotional: opts.MinNotional,
		log:         opts.Logger.With().Str("component", "paper_exchange").Logger(),
	}
}

// Deposit credits amount of asset.
func (e *Exchange) Deposit(asset string, amount float64) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.balances[asset] = e.balances[asset].Add(decimal.NewFromFloat(amount))
}

// Balances returns a copy of all non-zero balances.
func (e *Exchange) Balances() map[string]float64 {
	e.mu.Lock()
	defer e.mu.Unlock()

	out := make(map[string]float64, len(e.balances))
	for asset, b := range e.balances {
		if !b.IsZero() {
			out[asset] = b.InexactFloat64()
		}
	}
	return out
}

// BalanceOf returns the virtual balance of asset.
func (e *Exchange) BalanceOf(_ context.Context, asset string) (float64, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.balances[asset].InexactFloat64(), nil
}

// MinNotional returns the configured minimum order value.
func (e *Exchange) MinNotional(_ context.Context, _, _ string) (float64, error) {
	return e.minNotional, nil
}

// Fee returns the configured fee for both maker and taker.
func (e *Exchange) Fee(_ context.Context, _, _ string, _ bool) (float64, error) {
	return e.fee.InexactFloat64(), nil
}

// Sell converts the whole coin balance to bridge at the snapshot price.
func (e *Exchange) Sell(_ context.Context, coin, bridge string, snap exchange.Snapshot) (*exchange.Fill, error) {
	price, ok := snap.Price(coin, bridge)
	if !ok {
		return nil, nil
	}

	e.mu.Lock()
	defer e.mu.Unlock()

	qty := e.balances[coin]
	quote := qty.Mul(decimal.NewFromFloat(price))
	if !qty.IsPositive() || quote.LessThan(decimal.NewFromFloat(e.minNotional)) {
		return nil, nil
	}

	e.balances[coin] = decimal.Zero
	e.balances[bridge] = e.balances[bridge].Add(quote.Mul(decimal.NewFromInt(1).Sub(e.fee)))

	return e.fill(coin, bridge, exchange.SideSell, price, quote, qty), nil
}

// Buy spends the whole bridge balance on coin at the snapshot price.
func (e *Exchange) Buy(_ context.Context, coin, bridge string, snap exchange.Snapshot) (*exchange.Fill, error) {
	price, ok := snap.Price(coin, bridge)
	if !ok {
		return nil, nil
	}

	e.mu.Lock()
	defer e.mu.Unlock()

	quote := e.balances[bridge]
	if quote.LessThan(decimal.NewFromFloat(e.minNotional)) {
		return nil, nil
	}

	qty := quote.Div(decimal.NewFromFloat(price))
	e.balances[bridge] = decimal.Zero
	e.balances[coin] = e.balances[coin].Add(qty.Mul(decimal.NewFromInt(1).Sub(e.fee)))

	return e.fill(coin, bridge, exchange.SideBuy, price, quote, qty), nil
}

func (e *Exchange) fill(coin, bridge string, side exchange.Side, price float64, quote, qty decimal.Decimal) *exchange.Fill {
	f := &exchange.Fill{
		OrderID:            "paper-" + strconv.FormatInt(e.orderSeq.Add(1), 10),
		Symbol:             exchange.Symbol(coin, bridge),
		Side:               side,
		Price:              price,
		CumulativeQuoteQty: quote.InexactFloat64(),
		OrigQty:            qty.InexactFloat64(),
	}
	e.log.Info().
		Str("order_id", f.OrderID).
		Str("symbol", f.Symbol).
		Str("side", string(side)).
		Float64("price", price).
		Str("qty", qty.StringFixed(8)).
		Str("quote", quote.StringFixed(8)).
		Msg("paper order filled")
	return f
}

var _ exchange.Client = (*Exchange)(nil)
