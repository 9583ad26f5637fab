package domain

import "time"

// CurrentCoin points at the coin currently held. At most one exists.
type CurrentCoin struct {
	Coin     string
	Datetime time.Time
}
