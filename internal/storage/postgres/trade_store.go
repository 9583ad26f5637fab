package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"

	"altcoin-jumper/internal/domain"
	"altcoin-jumper/internal/storage"
)

// TradeStore implements storage.TradeStore using PostgreSQL.
type TradeStore struct {
	q querier
}

// NewTradeStore creates a new TradeStore.
func NewTradeStore(pool *Pool) *TradeStore {
	return &TradeStore{q: pool}
}

// Compile-time interface check.
var _ storage.TradeStore = (*TradeStore)(nil)

const tradeColumns = `
	id, alt_coin, crypto_coin, selling, state,
	alt_starting_balance, alt_trade_amount,
	crypto_starting_balance, crypto_trade_amount,
	datetime
`

// Insert adds a new trade. Returns ErrDuplicateKey if the trade ID exists.
func (s *TradeStore) Insert(ctx context.Context, t *domain.Trade) error {
	if t == nil || t.ID == "" || t.AltCoin == "" {
		return storage.ErrInvalidInput
	}

	query := `
		INSERT INTO trades (` + tradeColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
	`

	_, err := s.q.Exec(ctx, query,
		t.ID, t.AltCoin, t.CryptoCoin, t.Selling, string(t.State),
		t.AltStartingBalance, t.AltTradeAmount,
		t.CryptoStartingBalance, t.CryptoTradeAmount,
		t.Datetime,
	)
	if err != nil {
		if isDuplicateKeyError(err) {
			return storage.ErrDuplicateKey
		}
		return fmt.Errorf("insert trade: %w", err)
	}
	return nil
}

// Last returns the most recent trade. Returns ErrNotFound if there are none.
func (s *TradeStore) Last(ctx context.Context) (*domain.Trade, error) {
	query := `SELECT ` + tradeColumns + ` FROM trades ORDER BY datetime DESC LIMIT 1`

	t, err := scanTrade(s.q.QueryRow(ctx, query))
	if err != nil {
		if isNotFoundError(err) {
			return nil, storage.ErrNotFound
		}
		return nil, fmt.Errorf("get last trade: %w", err)
	}
	return t, nil
}

// LastFor returns the most recent trade into altCoin strictly before the given time.
func (s *TradeStore) LastFor(ctx context.Context, altCoin string, before time.Time) (*domain.Trade, error) {
	query := `
		SELECT ` + tradeColumns + `
		FROM trades
		WHERE alt_coin = $1 AND datetime < $2
		ORDER BY datetime DESC
		LIMIT 1
	`

	t, err := scanTrade(s.q.QueryRow(ctx, query, altCoin, before))
	if err != nil {
		if isNotFoundError(err) {
			return nil, storage.ErrNotFound
		}
		return nil, fmt.Errorf("get last trade for coin: %w", err)
	}
	return t, nil
}

// List returns all trades ordered by datetime ASC.
func (s *TradeStore) List(ctx context.Context) ([]*domain.Trade, error) {
	rows, err := s.q.Query(ctx, `SELECT `+tradeColumns+` FROM trades ORDER BY datetime ASC`)
	if err != nil {
		return nil, fmt.Errorf("list trades: %w", err)
	}
	defer rows.Close()

	var trades []*domain.Trade
	for rows.Next() {
		t, err := scanTrade(rows)
		if err != nil {
			return nil, fmt.Errorf("scan trade row: %w", err)
		}
		trades = append(trades, t)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate trade rows: %w", err)
	}

	return trades, nil
}

func scanTrade(row pgx.Row) (*domain.Trade, error) {
	var t domain.Trade
	var state string

	err := row.Scan(
		&t.ID, &t.AltCoin, &t.CryptoCoin, &t.Selling, &state,
		&t.AltStartingBalance, &t.AltTradeAmount,
		&t.CryptoStartingBalance, &t.CryptoTradeAmount,
		&t.Datetime,
	)
	if err != nil {
		return nil, err
	}

	t.State = domain.TradeState(state)
	t.Datetime = t.Datetime.UTC()
	return &t, nil
}
