package memory

import (
	"context"
	"time"

	"altcoin-jumper/internal/domain"
	"altcoin-jumper/internal/storage"
)

// TradeStore is an in-memory implementation of storage.TradeStore.
type TradeStore struct {
	v view
}

// Insert adds a new trade. Returns ErrDuplicateKey if the trade ID exists.
func (s *TradeStore) Insert(_ context.Context, t *domain.Trade) error {
	if t == nil || t.ID == "" || t.AltCoin == "" {
		return storage.ErrInvalidInput
	}

	return s.v.write(func(st *state) error {
		if _, exists := st.tradeIDs[t.ID]; exists {
			return storage.ErrDuplicateKey
		}
		tradeCopy := *t
		st.trades = append(st.trades, &tradeCopy)
		st.tradeIDs[t.ID] = struct{}{}
		return nil
	})
}

// Last returns the most recent trade. Returns ErrNotFound if there are none.
func (s *TradeStore) Last(_ context.Context) (*domain.Trade, error) {
	var result *domain.Trade
	err := s.v.read(func(st *state) error {
		last := latest(st.trades, func(*domain.Trade) bool { return true })
		if last == nil {
			return storage.ErrNotFound
		}
		tradeCopy := *last
		result = &tradeCopy
		return nil
	})
	return result, err
}

// LastFor returns the most recent trade into altCoin strictly before the given time.
func (s *TradeStore) LastFor(_ context.Context, altCoin string, before time.Time) (*domain.Trade, error) {
	var result *domain.Trade
	err := s.v.read(func(st *state) error {
		last := latest(st.trades, func(t *domain.Trade) bool {
			return t.AltCoin == altCoin && t.Datetime.Before(before)
		})
		if last == nil {
			return storage.ErrNotFound
		}
		tradeCopy := *last
		result = &tradeCopy
		return nil
	})
	return result, err
}

// List returns all trades ordered by datetime ASC.
func (s *TradeStore) List(_ context.Context) ([]*domain.Trade, error) {
	var result []*domain.Trade
	err := s.v.read(func(st *state) error {
		for _, t := range st.trades {
			tradeCopy := *t
			result = append(result, &tradeCopy)
		}
		return nil
	})
	return result, err
}

// latest returns the matching trade with the greatest datetime; later insertions win ties.
func latest(trades []*domain.Trade, match func(*domain.Trade) bool) *domain.Trade {
	var best *domain.Trade
	for _, t := range trades {
		if !match(t) {
			continue
		}
		if best == nil || !t.Datetime.Before(best.Datetime) {
			best = t
		}
	}
	return best
}

var _ storage.TradeStore = (*TradeStore)(nil)
