package memory

import (
	"context"
	"sort"
	"sync"
	"time"

	"altcoin-jumper/internal/domain"
	"altcoin-jumper/internal/storage"
)

// CoinValueStore is an in-memory implementation of storage.CoinValueStore.
type CoinValueStore struct {
	mu   sync.RWMutex
	data []*domain.CoinValue
}

// NewCoinValueStore creates a new in-memory coin value store.
func NewCoinValueStore() *CoinValueStore {
	return &CoinValueStore{}
}

// InsertBulk appends value rows.
func (s *CoinValueStore) InsertBulk(_ context.Context, values []*domain.CoinValue) error {
	if len(values) == 0 {
		return nil
	}

	for _, v := range values {
		if v == nil || v.Coin == "" {
			return storage.ErrInvalidInput
		}
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	for _, v := range values {
		s.data = append(s.data, copyCoinValue(v))
	}

	return nil
}

// GetByCoin retrieves rows for a coin ordered by datetime ASC.
func (s *CoinValueStore) GetByCoin(_ context.Context, coin string) ([]*domain.CoinValue, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var result []*domain.CoinValue
	for _, v := range s.data {
		if v.Coin == coin {
			result = append(result, copyCoinValue(v))
		}
	}

	sort.SliceStable(result, func(i, j int) bool {
		return result[i].Datetime.Before(result[j].Datetime)
	})

	return result, nil
}

// PruneBefore deletes rows older than t.
func (s *CoinValueStore) PruneBefore(_ context.Context, t time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	kept := s.data[:0]
	for _, v := range s.data {
		if !v.Datetime.Before(t) {
			kept = append(kept, v)
		}
	}
	s.data = kept

	return nil
}

func copyCoinValue(v *domain.CoinValue) *domain.CoinValue {
	c := *v
	if v.USDValue != nil {
		usd := *v.USDValue
		c.USDValue = &usd
	}
	if v.BTCValue != nil {
		btc := *v.BTCValue
		c.BTCValue = &btc
	}
	return &c
}

var _ storage.CoinValueStore = (*CoinValueStore)(nil)
