// Package exchange defines the contracts between the trading engine and a spot exchange.
package exchange

import (
	"context"
	"strings"
)

// Snapshot is a read-only symbol -> price map captured once per scout cycle.
// Symbols are exchange pair symbols such as "ADAUSDT".
type Snapshot map[string]float64

// Price returns the price of coin quoted in quote. A missing or non-positive price is absent.
func (s Snapshot) Price(coin, quote string) (float64, bool) {
	p, ok := s[Symbol(coin, quote)]
	if !ok || p <= 0 {
		return 0, false
	}
	return p, true
}

// Symbol returns the exchange pair symbol for coin quoted in quote.
func Symbol(coin, quote string) string {
	return strings.ToUpper(coin + quote)
}

// Side is an order side.
type Side string

// Order sides
const (
	SideBuy  Side = "BUY"
	SideSell Side = "SELL"
)

// Fill is the exchange's report of an executed market order.
// Price may be zero for market orders; callers derive it from CumulativeQuoteQty / OrigQty.
type Fill struct {
	OrderID            string
	Symbol             string
	Side               Side
	Price              float64
	CumulativeQuoteQty float64 // bridge amount spent or received
	OrigQty            float64 // coin quantity
}

// PriceProvider supplies price snapshots.
type PriceProvider interface {
	Snapshot(ctx context.Context) (Snapshot, error)
}

// Client places orders and answers account questions.
// Sell and Buy return a nil Fill with a nil error when the exchange executed nothing;
// a non-nil error means the call itself failed.
type Client interface {
	// BalanceOf returns the free balance of asset.
	BalanceOf(ctx context.Context, asset string) (float64, error)

	// MinNotional returns the minimum order value of coin/bridge in bridge units.
	MinNotional(ctx context.Context, coin, bridge string) (float64, error)

	// Sell sells the whole free balance of coin for bridge at market.
	Sell(ctx context.Context, coin, bridge string, snap Snapshot) (*Fill, error)

	// Buy spends the whole free bridge balance on coin at market.
	Buy(ctx context.Context, coin, bridge string, snap Snapshot) (*Fill, error)

	// Fee returns the fractional trading fee for coin/bridge.
	Fee(ctx context.Context, coin, bridge string, isMaker bool) (float64, error)
}
