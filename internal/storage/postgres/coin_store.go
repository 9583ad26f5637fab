package postgres

import (
	"context"
	"fmt"

	"altcoin-jumper/internal/domain"
	"altcoin-jumper/internal/storage"
)

// CoinStore implements storage.CoinStore using PostgreSQL.
type CoinStore struct {
	q querier
}

// NewCoinStore creates a new CoinStore.
func NewCoinStore(pool *Pool) *CoinStore {
	return &CoinStore{q: pool}
}

// Compile-time interface check.
var _ storage.CoinStore = (*CoinStore)(nil)

// Upsert inserts the coin or updates its enabled flag.
func (s *CoinStore) Upsert(ctx context.Context, c *domain.Coin) error {
	if c == nil || c.Symbol == "" {
		return storage.ErrInvalidInput
	}

	query := `
		INSERT INTO coins (symbol, enabled)
		VALUES ($1, $2)
		ON CONFLICT (symbol) DO UPDATE SET enabled = EXCLUDED.enabled
	`

	if _, err := s.q.Exec(ctx, query, c.Symbol, c.Enabled); err != nil {
		return fmt.Errorf("upsert coin: %w", err)
	}
	return nil
}

// Get retrieves a coin by symbol. Returns ErrNotFound if not exists.
func (s *CoinStore) Get(ctx context.Context, symbol string) (*domain.Coin, error) {
	var c domain.Coin
	err := s.q.QueryRow(ctx, `SELECT symbol, enabled FROM coins WHERE symbol = $1`, symbol).
		Scan(&c.Symbol, &c.Enabled)
	if err != nil {
		if isNotFoundError(err) {
			return nil, storage.ErrNotFound
		}
		return nil, fmt.Errorf("get coin: %w", err)
	}
	return &c, nil
}

// List returns coins ordered by symbol.
func (s *CoinStore) List(ctx context.Context, enabledOnly bool) ([]*domain.Coin, error) {
	query := `
		SELECT symbol, enabled
		FROM coins
		WHERE enabled OR NOT $1
		ORDER BY symbol ASC
	`

	rows, err := s.q.Query(ctx, query, enabledOnly)
	if err != nil {
		return nil, fmt.Errorf("list coins: %w", err)
	}
	defer rows.Close()

	var coins []*domain.Coin
	for rows.Next() {
		var c domain.Coin
		if err := rows.Scan(&c.Symbol, &c.Enabled); err != nil {
			return nil, fmt.Errorf("scan coin row: %w", err)
		}
		coins = append(coins, &c)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate coin rows: %w", err)
	}

	return coins, nil
}

// DeleteAll removes every coin. Pairs referencing them are removed by cascade.
func (s *CoinStore) DeleteAll(ctx context.Context) error {
	if _, err := s.q.Exec(ctx, `DELETE FROM coins`); err != nil {
		return fmt.Errorf("delete coins: %w", err)
	}
	return nil
}
