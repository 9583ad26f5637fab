package memory

import (
	"context"
	"sort"

	"altcoin-jumper/internal/domain"
	"altcoin-jumper/internal/storage"
)

// CoinStore is an in-memory implementation of storage.CoinStore.
type CoinStore struct {
	v view
}

// Upsert inserts the coin or updates its enabled flag.
func (s *CoinStore) Upsert(_ context.Context, c *domain.Coin) error {
	if c == nil || c.Symbol == "" {
		return storage.ErrInvalidInput
	}

	return s.v.write(func(st *state) error {
		st.coins[c.Symbol] = *c
		return nil
	})
}

// Get retrieves a coin by symbol. Returns ErrNotFound if not exists.
func (s *CoinStore) Get(_ context.Context, symbol string) (*domain.Coin, error) {
	var result *domain.Coin
	err := s.v.read(func(st *state) error {
		c, exists := st.coins[symbol]
		if !exists {
			return storage.ErrNotFound
		}
		result = &c
		return nil
	})
	return result, err
}

// List returns coins ordered by symbol.
func (s *CoinStore) List(_ context.Context, enabledOnly bool) ([]*domain.Coin, error) {
	var result []*domain.Coin
	err := s.v.read(func(st *state) error {
		for _, c := range st.coins {
			if enabledOnly && !c.Enabled {
				continue
			}
			coinCopy := c
			result = append(result, &coinCopy)
		}
		return nil
	})

	sort.Slice(result, func(i, j int) bool {
		return result[i].Symbol < result[j].Symbol
	})

	return result, err
}

// DeleteAll removes every coin.
func (s *CoinStore) DeleteAll(_ context.Context) error {
	return s.v.write(func(st *state) error {
		st.coins = make(map[string]domain.Coin)
		return nil
	})
}

var _ storage.CoinStore = (*CoinStore)(nil)
