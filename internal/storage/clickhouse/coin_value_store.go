package clickhouse

import (
	"context"
	"fmt"
	"time"

	"altcoin-jumper/internal/domain"
	"altcoin-jumper/internal/observability"
	"altcoin-jumper/internal/storage"
)

// CoinValueStore implements storage.CoinValueStore using ClickHouse.
type CoinValueStore struct {
	conn *Conn
}

// NewCoinValueStore creates a new CoinValueStore.
func NewCoinValueStore(conn *Conn) *CoinValueStore {
	return &CoinValueStore{conn: conn}
}

// Compile-time interface check.
var _ storage.CoinValueStore = (*CoinValueStore)(nil)

// InsertBulk appends value rows in a single batch.
func (s *CoinValueStore) InsertBulk(ctx context.Context, values []*domain.CoinValue) (err error) {
	if len(values) == 0 {
		return nil
	}

	for _, v := range values {
		if v == nil || v.Coin == "" {
			return storage.ErrInvalidInput
		}
	}

	start := time.Now()
	defer func() {
		observability.RecordDBQuery("clickhouse", "insert_coin_values", time.Since(start).Seconds(), err)
	}()

	batch, err := s.conn.PrepareBatch(ctx, `
		INSERT INTO coin_values (coin, balance, usd_value, btc_value, value_interval, datetime)
	`)
	if err != nil {
		return fmt.Errorf("prepare batch: %w", err)
	}

	for _, v := range values {
		err = batch.Append(
			v.Coin, v.Balance, v.USDValue, v.BTCValue,
			string(v.Interval), v.Datetime.UTC(),
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

// GetByCoin retrieves rows for a coin ordered by datetime ASC.
func (s *CoinValueStore) GetByCoin(ctx context.Context, coin string) ([]*domain.CoinValue, error) {
	query := `
		SELECT coin, balance, usd_value, btc_value, value_interval, datetime
		FROM coin_values
		WHERE coin = ?
		ORDER BY datetime ASC
	`

	rows, err := s.conn.Query(ctx, query, coin)
	if err != nil {
		return nil, fmt.Errorf("query coin values by coin: %w", err)
	}
	defer rows.Close()

	return scanCoinValues(rows)
}

// PruneBefore deletes rows older than t.
func (s *CoinValueStore) PruneBefore(ctx context.Context, t time.Time) (err error) {
	start := time.Now()
	defer func() {
		observability.RecordDBQuery("clickhouse", "prune_coin_values", time.Since(start).Seconds(), err)
	}()

	if err := s.conn.Exec(syncMutations(ctx), `ALTER TABLE coin_values DELETE WHERE datetime < ?`, t.UTC()); err != nil {
		return fmt.Errorf("prune coin values: %w", err)
	}
	return nil
}

// scanCoinValues scans multiple rows.
func scanCoinValues(rows chRows) ([]*domain.CoinValue, error) {
	var values []*domain.CoinValue

	for rows.Next() {
		var v domain.CoinValue
		var interval string
		err := rows.Scan(&v.Coin, &v.Balance, &v.USDValue, &v.BTCValue, &interval, &v.Datetime)
		if err != nil {
			return nil, fmt.Errorf("scan coin value row: %w", err)
		}
		v.Interval = domain.CoinValueInterval(interval)
		v.Datetime = v.Datetime.UTC()
		values = append(values, &v)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate coin value rows: %w", err)
	}

	return values, nil
}
