package postgres

import (
	"context"
	"fmt"

	"altcoin-jumper/internal/domain"
	"altcoin-jumper/internal/storage"
)

// CurrentCoinStore implements storage.CurrentCoinStore using PostgreSQL.
// Every Set appends to current_coin_history; the latest row is the current coin.
type CurrentCoinStore struct {
	q querier
}

// NewCurrentCoinStore creates a new CurrentCoinStore.
func NewCurrentCoinStore(pool *Pool) *CurrentCoinStore {
	return &CurrentCoinStore{q: pool}
}

// Compile-time interface check.
var _ storage.CurrentCoinStore = (*CurrentCoinStore)(nil)

// Get returns the current coin. Returns ErrNotFound if none is set.
func (s *CurrentCoinStore) Get(ctx context.Context) (*domain.CurrentCoin, error) {
	query := `
		SELECT coin, datetime
		FROM current_coin_history
		ORDER BY id DESC
		LIMIT 1
	`

	var c domain.CurrentCoin
	if err := s.q.QueryRow(ctx, query).Scan(&c.Coin, &c.Datetime); err != nil {
		if isNotFoundError(err) {
			return nil, storage.ErrNotFound
		}
		return nil, fmt.Errorf("get current coin: %w", err)
	}
	c.Datetime = c.Datetime.UTC()
	return &c, nil
}

// Set replaces the current coin.
func (s *CurrentCoinStore) Set(ctx context.Context, c *domain.CurrentCoin) error {
	if c == nil || c.Coin == "" {
		return storage.ErrInvalidInput
	}

	query := `INSERT INTO current_coin_history (coin, datetime) VALUES ($1, $2)`
	if _, err := s.q.Exec(ctx, query, c.Coin, c.Datetime); err != nil {
		return fmt.Errorf("set current coin: %w", err)
	}
	return nil
}

// Clear removes the current coin and its history.
func (s *CurrentCoinStore) Clear(ctx context.Context) error {
	if _, err := s.q.Exec(ctx, `DELETE FROM current_coin_history`); err != nil {
		return fmt.Errorf("clear current coin: %w", err)
	}
	return nil
}
