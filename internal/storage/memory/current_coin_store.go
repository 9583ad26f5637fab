package memory

import (
	"context"

	"altcoin-jumper/internal/domain"
	"altcoin-jumper/internal/storage"
)

// CurrentCoinStore is an in-memory implementation of storage.CurrentCoinStore.
type CurrentCoinStore struct {
	v view
}

// Get returns the current coin. Returns ErrNotFound if none is set.
func (s *CurrentCoinStore) Get(_ context.Context) (*domain.CurrentCoin, error) {
	var result *domain.CurrentCoin
	err := s.v.read(func(st *state) error {
		if st.current == nil {
			return storage.ErrNotFound
		}
		coinCopy := *st.current
		result = &coinCopy
		return nil
	})
	return result, err
}

// Set replaces the current coin.
func (s *CurrentCoinStore) Set(_ context.Context, c *domain.CurrentCoin) error {
	if c == nil || c.Coin == "" {
		return storage.ErrInvalidInput
	}

	return s.v.write(func(st *state) error {
		coinCopy := *c
		st.current = &coinCopy
		return nil
	})
}

// Clear removes the current coin.
func (s *CurrentCoinStore) Clear(_ context.Context) error {
	return s.v.write(func(st *state) error {
		st.current = nil
		return nil
	})
}

var _ storage.CurrentCoinStore = (*CurrentCoinStore)(nil)
