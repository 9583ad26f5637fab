package memory

import (
	"context"
	"sort"

	"altcoin-jumper/internal/domain"
	"altcoin-jumper/internal/storage"
)

// PairStore is an in-memory implementation of storage.PairStore.
type PairStore struct {
	v view
}

// Insert adds a new pair. Returns ErrDuplicateKey if (from, to) exists.
func (s *PairStore) Insert(_ context.Context, p *domain.Pair) error {
	if p == nil || p.FromCoin == "" || p.ToCoin == "" || p.FromCoin == p.ToCoin {
		return storage.ErrInvalidInput
	}

	return s.v.write(func(st *state) error {
		key := p.Key()
		if _, exists := st.pairs[key]; exists {
			return storage.ErrDuplicateKey
		}

		st.nextPairID++
		stored := copyPair(p)
		stored.ID = st.nextPairID
		st.pairs[key] = stored
		p.ID = stored.ID
		return nil
	})
}

// Get retrieves a pair by its endpoints. Returns ErrNotFound if not exists.
func (s *PairStore) Get(_ context.Context, from, to string) (*domain.Pair, error) {
	var result *domain.Pair
	err := s.v.read(func(st *state) error {
		p, exists := st.pairs[domain.PairKey{FromCoin: from, ToCoin: to}]
		if !exists {
			return storage.ErrNotFound
		}
		result = copyPair(p)
		return nil
	})
	return result, err
}

// List returns all pairs ordered by (from, to).
func (s *PairStore) List(_ context.Context) ([]*domain.Pair, error) {
	return s.filter(func(_ *state, _ *domain.Pair) bool { return true })
}

// ListUnset returns pairs without a ratio whose endpoints are both enabled.
func (s *PairStore) ListUnset(_ context.Context) ([]*domain.Pair, error) {
	return s.filter(func(st *state, p *domain.Pair) bool {
		return p.Ratio == nil && bothEnabled(st, p)
	})
}

// From returns pairs leaving coin towards enabled coins.
func (s *PairStore) From(_ context.Context, coin string) ([]*domain.Pair, error) {
	return s.filter(func(st *state, p *domain.Pair) bool {
		return p.FromCoin == coin && bothEnabled(st, p)
	})
}

// To returns pairs arriving at coin from enabled coins.
func (s *PairStore) To(_ context.Context, coin string) ([]*domain.Pair, error) {
	return s.filter(func(st *state, p *domain.Pair) bool {
		return p.ToCoin == coin && bothEnabled(st, p)
	})
}

// SetRatio sets the baseline ratio of a pair. Returns ErrNotFound if not exists.
func (s *PairStore) SetRatio(_ context.Context, from, to string, ratio float64) error {
	return s.v.write(func(st *state) error {
		p, exists := st.pairs[domain.PairKey{FromCoin: from, ToCoin: to}]
		if !exists {
			return storage.ErrNotFound
		}
		r := ratio
		p.Ratio = &r
		return nil
	})
}

// ClearRatios unsets the ratio of every pair.
func (s *PairStore) ClearRatios(_ context.Context) (int, error) {
	var cleared int
	err := s.v.write(func(st *state) error {
		for _, p := range st.pairs {
			if p.Ratio != nil {
				p.Ratio = nil
				cleared++
			}
		}
		return nil
	})
	return cleared, err
}

// DeleteAll removes every pair.
func (s *PairStore) DeleteAll(_ context.Context) error {
	return s.v.write(func(st *state) error {
		st.pairs = make(map[domain.PairKey]*domain.Pair)
		return nil
	})
}

func (s *PairStore) filter(keep func(st *state, p *domain.Pair) bool) ([]*domain.Pair, error) {
	var result []*domain.Pair
	err := s.v.read(func(st *state) error {
		for _, p := range st.pairs {
			if keep(st, p) {
				result = append(result, copyPair(p))
			}
		}
		return nil
	})

	sort.Slice(result, func(i, j int) bool {
		if result[i].FromCoin != result[j].FromCoin {
			return result[i].FromCoin < result[j].FromCoin
		}
		return result[i].ToCoin < result[j].ToCoin
	})

	return result, err
}

func bothEnabled(st *state, p *domain.Pair) bool {
	from, ok := st.coins[p.FromCoin]
	if !ok || !from.Enabled {
		return false
	}
	to, ok := st.coins[p.ToCoin]
	return ok && to.Enabled
}

var _ storage.PairStore = (*PairStore)(nil)
