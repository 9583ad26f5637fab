package clickhouse

import (
	"context"
	"fmt"
	"time"

	"altcoin-jumper/internal/domain"
	"altcoin-jumper/internal/observability"
	"altcoin-jumper/internal/storage"
)

// ScoutLogStore implements storage.ScoutLogStore using ClickHouse.
type ScoutLogStore struct {
	conn *Conn
}

// NewScoutLogStore creates a new ScoutLogStore.
func NewScoutLogStore(conn *Conn) *ScoutLogStore {
	return &ScoutLogStore{conn: conn}
}

// Compile-time interface check.
var _ storage.ScoutLogStore = (*ScoutLogStore)(nil)

// InsertBulk appends scout rows in a single batch.
func (s *ScoutLogStore) InsertBulk(ctx context.Context, logs []*domain.ScoutLog) (err error) {
	if len(logs) == 0 {
		return nil
	}

	for _, l := range logs {
		if l == nil || l.FromCoin == "" || l.ToCoin == "" {
			return storage.ErrInvalidInput
		}
	}

	start := time.Now()
	defer func() {
		observability.RecordDBQuery("clickhouse", "insert_scout_history", time.Since(start).Seconds(), err)
	}()

	batch, err := s.conn.PrepareBatch(ctx, `
		INSERT INTO scout_history (
			from_coin, to_coin, target_ratio, current_coin_price, other_coin_price, datetime
		)
	`)
	if err != nil {
		return fmt.Errorf("prepare batch: %w", err)
	}

	for _, l := range logs {
		// Nullable column takes the pointer directly
		err = batch.Append(
			l.FromCoin, l.ToCoin, l.TargetRatio,
			l.CurrentCoinPrice, l.OtherCoinPrice, l.Datetime.UTC(),
		)
		if err != nil {
			return fmt.Errorf("append to batch: %w", err)
		}
	}

	if err := batch.Send(); err != nil {
		return fmt.Errorf("send batch: %w", err)
	}

	return nil
}

// GetByTimeRange retrieves rows within [start, end] ordered by datetime ASC.
func (s *ScoutLogStore) GetByTimeRange(ctx context.Context, start, end time.Time) ([]*domain.ScoutLog, error) {
	query := `
		SELECT from_coin, to_coin, target_ratio, current_coin_price, other_coin_price, datetime
		FROM scout_history
		WHERE datetime >= ? AND datetime <= ?
		ORDER BY datetime ASC, from_coin ASC, to_coin ASC
	`

	rows, err := s.conn.Query(ctx, query, start.UTC(), end.UTC())
	if err != nil {
		return nil, fmt.Errorf("query scout history by time range: %w", err)
	}
	defer rows.Close()

	return scanScoutLogs(rows)
}

// PruneBefore deletes rows older than t.
func (s *ScoutLogStore) PruneBefore(ctx context.Context, t time.Time) (err error) {
	start := time.Now()
	defer func() {
		observability.RecordDBQuery("clickhouse", "prune_scout_history", time.Since(start).Seconds(), err)
	}()

	if err := s.conn.Exec(syncMutations(ctx), `ALTER TABLE scout_history DELETE WHERE datetime < ?`, t.UTC()); err != nil {
		return fmt.Errorf("prune scout history: %w", err)
	}
	return nil
}

// scanScoutLogs scans multiple rows.
func scanScoutLogs(rows chRows) ([]*domain.ScoutLog, error) {
	var logs []*domain.ScoutLog

	for rows.Next() {
		var l domain.ScoutLog
		err := rows.Scan(
			&l.FromCoin, &l.ToCoin, &l.TargetRatio,
			&l.CurrentCoinPrice, &l.OtherCoinPrice, &l.Datetime,
		)
		if err != nil {
			return nil, fmt.Errorf("scan scout history row: %w", err)
		}
		l.Datetime = l.Datetime.UTC()
		logs = append(logs, &l)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate scout history rows: %w", err)
	}

	return logs, nil
}
