package domain

// Coin is a tradable altcoin. Only enabled coins take part in ratio computation.
type Coin struct {
	Symbol  string // unique key, e.g. "ADA"
	Enabled bool
}

// PairSymbol joins a coin and a quote asset into an exchange market symbol.
func PairSymbol(coin, quote string) string {
	return coin + quote
}
