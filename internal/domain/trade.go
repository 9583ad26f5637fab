package domain

import "time"

// TradeState is the lifecycle state of a trade.
type TradeState string

// Trade state constants
const (
	TradeStateStarting TradeState = "STARTING"
	TradeStateOrdered  TradeState = "ORDERED"
	TradeStateComplete TradeState = "COMPLETE"
)

// Trade records one executed jump into AltCoin through the bridge asset.
// Immutable once written.
type Trade struct {
	ID         string
	AltCoin    string // destination coin of the jump
	CryptoCoin string // bridge asset
	Selling    bool

	State TradeState

	AltStartingBalance    float64
	AltTradeAmount        float64 // coins received
	CryptoStartingBalance float64
	CryptoTradeAmount     float64 // bridge-equivalent value of the trade

	Datetime time.Time
}

// UnitPrice returns the bridge price paid per coin, or 0 when unknown.
func (t *Trade) UnitPrice() float64 {
	if t.AltTradeAmount == 0 {
		return 0
	}
	return t.CryptoTradeAmount / t.AltTradeAmount
}
