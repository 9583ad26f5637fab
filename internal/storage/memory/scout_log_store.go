package memory

import (
	"context"
	"sort"
	"sync"
	"time"

	"altcoin-jumper/internal/domain"
	"altcoin-jumper/internal/storage"
)

// ScoutLogStore is an in-memory implementation of storage.ScoutLogStore.
type ScoutLogStore struct {
	mu   sync.RWMutex
	data []*domain.ScoutLog
}

// NewScoutLogStore creates a new in-memory scout log store.
func NewScoutLogStore() *ScoutLogStore {
	return &ScoutLogStore{}
}

// InsertBulk appends scout rows.
func (s *ScoutLogStore) InsertBulk(_ context.Context, logs []*domain.ScoutLog) error {
	if len(logs) == 0 {
		return nil
	}

	for _, l := range logs {
		if l == nil || l.FromCoin == "" || l.ToCoin == "" {
			return storage.ErrInvalidInput
		}
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	for _, l := range logs {
		s.data = append(s.data, copyScoutLog(l))
	}

	return nil
}

// GetByTimeRange retrieves rows within [start, end] ordered by datetime ASC.
func (s *ScoutLogStore) GetByTimeRange(_ context.Context, start, end time.Time) ([]*domain.ScoutLog, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var result []*domain.ScoutLog
	for _, l := range s.data {
		if l.Datetime.Before(start) || l.Datetime.After(end) {
			continue
		}
		result = append(result, copyScoutLog(l))
	}

	sort.SliceStable(result, func(i, j int) bool {
		return result[i].Datetime.Before(result[j].Datetime)
	})

	return result, nil
}

// PruneBefore deletes rows older than t.
func (s *ScoutLogStore) PruneBefore(_ context.Context, t time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	kept := s.data[:0]
	for _, l := range s.data {
		if !l.Datetime.Before(t) {
			kept = append(kept, l)
		}
	}
	s.data = kept

	return nil
}

func copyScoutLog(l *domain.ScoutLog) *domain.ScoutLog {
	c := *l
	if l.TargetRatio != nil {
		r := *l.TargetRatio
		c.TargetRatio = &r
	}
	return &c
}

var _ storage.ScoutLogStore = (*ScoutLogStore)(nil)
