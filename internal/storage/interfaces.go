package storage

import (
	"context"
	"time"

	"altcoin-jumper/internal/domain"
)

// CoinStore provides access to coins storage.
type CoinStore interface {
	// Upsert inserts the coin or updates its enabled flag.
	Upsert(ctx context.Context, c *domain.Coin) error

	// Get retrieves a coin by symbol. Returns ErrNotFound if not exists.
	Get(ctx context.Context, symbol string) (*domain.Coin, error)

	// List returns coins ordered by symbol. When enabledOnly is set, disabled coins are skipped.
	List(ctx context.Context, enabledOnly bool) ([]*domain.Coin, error)

	// DeleteAll removes every coin.
	DeleteAll(ctx context.Context) error
}

// PairStore provides access to pairs storage.
type PairStore interface {
	// Insert adds a new pair. Returns ErrDuplicateKey if (from, to) exists.
	Insert(ctx context.Context, p *domain.Pair) error

	// Get retrieves a pair by its endpoints. Returns ErrNotFound if not exists.
	Get(ctx context.Context, from, to string) (*domain.Pair, error)

	// List returns all pairs ordered by (from, to).
	List(ctx context.Context) ([]*domain.Pair, error)

	// ListUnset returns pairs without a ratio whose endpoints are both enabled, ordered by (from, to).
	ListUnset(ctx context.Context) ([]*domain.Pair, error)

	// From returns pairs leaving coin towards enabled coins, ordered by destination symbol.
	From(ctx context.Context, coin string) ([]*domain.Pair, error)

	// To returns pairs arriving at coin from enabled coins, ordered by source symbol.
	To(ctx context.Context, coin string) ([]*domain.Pair, error)

	// SetRatio sets the baseline ratio of a pair. Returns ErrNotFound if not exists.
	SetRatio(ctx context.Context, from, to string, ratio float64) error

	// ClearRatios unsets the ratio of every pair. Returns the number of pairs cleared.
	ClearRatios(ctx context.Context) (int, error)

	// DeleteAll removes every pair.
	DeleteAll(ctx context.Context) error
}

// TradeStore provides access to trades storage.
type TradeStore interface {
	// Insert adds a new trade. Returns ErrDuplicateKey if the trade ID exists.
	Insert(ctx context.Context, t *domain.Trade) error

	// Last returns the most recent trade. Returns ErrNotFound if there are none.
	Last(ctx context.Context) (*domain.Trade, error)

	// LastFor returns the most recent trade into altCoin strictly before the given time.
	// Returns ErrNotFound if there is none.
	LastFor(ctx context.Context, altCoin string, before time.Time) (*domain.Trade, error)

	// List returns all trades ordered by datetime ASC.
	List(ctx context.Context) ([]*domain.Trade, error)
}

// CurrentCoinStore provides access to the single current coin row.
type CurrentCoinStore interface {
	// Get returns the current coin. Returns ErrNotFound if none is set.
	Get(ctx context.Context) (*domain.CurrentCoin, error)

	// Set replaces the current coin.
	Set(ctx context.Context, c *domain.CurrentCoin) error

	// Clear removes the current coin.
	Clear(ctx context.Context) error
}

// ScoutLogStore provides access to scout_history storage. Append-only.
type ScoutLogStore interface {
	// InsertBulk appends scout rows.
	InsertBulk(ctx context.Context, logs []*domain.ScoutLog) error

	// GetByTimeRange retrieves rows within [start, end] ordered by datetime ASC.
	GetByTimeRange(ctx context.Context, start, end time.Time) ([]*domain.ScoutLog, error)

	// PruneBefore deletes rows older than t.
	PruneBefore(ctx context.Context, t time.Time) error
}

// CoinValueStore provides access to coin_values storage. Append-only.
type CoinValueStore interface {
	// InsertBulk appends value rows.
	InsertBulk(ctx context.Context, values []*domain.CoinValue) error

	// GetByCoin retrieves rows for a coin ordered by datetime ASC.
	GetByCoin(ctx context.Context, coin string) ([]*domain.CoinValue, error)

	// PruneBefore deletes rows older than t.
	PruneBefore(ctx context.Context, t time.Time) error
}
