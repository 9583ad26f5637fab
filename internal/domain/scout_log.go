package domain

import "time"

// ScoutLog is an append-only audit row for one ratio evaluation.
type ScoutLog struct {
	FromCoin         string
	ToCoin           string
	TargetRatio      *float64 // pair ratio at evaluation time, nil if unset
	CurrentCoinPrice float64
	OtherCoinPrice   float64
	Datetime         time.Time
}

// CurrentRatio returns the raw price ratio observed, or 0 when the other price is zero.
func (l *ScoutLog) CurrentRatio() float64 {
	if l.OtherCoinPrice == 0 {
		return 0
	}
	return l.CurrentCoinPrice / l.OtherCoinPrice
}
