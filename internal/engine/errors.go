package engine

import "errors"

// Engine errors.
var (
	// ErrNoPrice is returned when a coin has no positive bridge-quoted price in the snapshot.
	ErrNoPrice = errors.New("price not available")

	// ErrUnsetRatio is returned when a pair has no baseline ratio yet.
	ErrUnsetRatio = errors.New("pair ratio not set")

	// ErrZeroRatio is returned when a pair's baseline ratio is zero.
	ErrZeroRatio = errors.New("pair ratio is zero")

	// ErrNoCurrentCoin is returned when no held coin is recorded.
	ErrNoCurrentCoin = errors.New("no current coin")

	// ErrBadFill is returned when a buy fill yields no positive unit price.
	ErrBadFill = errors.New("fill has no positive price")

	// ErrUnknownCoin is returned when a symbol is not an enabled coin.
	ErrUnknownCoin = errors.New("unknown or disabled coin")
)
