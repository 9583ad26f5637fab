package domain

import "time"

// CoinValueInterval tags how a value row was sampled.
type CoinValueInterval string

// Interval constants
const (
	IntervalMinutely CoinValueInterval = "MINUTELY"
	IntervalHourly   CoinValueInterval = "HOURLY"
	IntervalDaily    CoinValueInterval = "DAILY"
)

// CoinValue is an append-only audit snapshot of one coin balance.
// USDValue and BTCValue are nil when the reference price was unavailable.
type CoinValue struct {
	Coin     string
	Balance  float64
	USDValue *float64 // balance * price(coin/USD reference)
	BTCValue *float64 // balance * price(coin/bridge reference)
	Interval CoinValueInterval
	Datetime time.Time
}
