package postgres

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"

	"altcoin-jumper/internal/domain"
	"altcoin-jumper/internal/storage"
)

// PairStore implements storage.PairStore using PostgreSQL.
type PairStore struct {
	q querier
}

// NewPairStore creates a new PairStore.
func NewPairStore(pool *Pool) *PairStore {
	return &PairStore{q: pool}
}

// Compile-time interface check.
var _ storage.PairStore = (*PairStore)(nil)

const pairColumns = `p.id, p.from_coin, p.to_coin, p.ratio`

// enabledJoin restricts pairs to those whose endpoints are both enabled.
const enabledJoin = `
		JOIN coins f ON f.symbol = p.from_coin AND f.enabled
		JOIN coins t ON t.symbol = p.to_coin AND t.enabled
`

// Insert adds a new pair. Returns ErrDuplicateKey if (from, to) exists.
func (s *PairStore) Insert(ctx context.Context, p *domain.Pair) error {
	if p == nil || p.FromCoin == "" || p.ToCoin == "" || p.FromCoin == p.ToCoin {
		return storage.ErrInvalidInput
	}

	query := `
		INSERT INTO pairs (from_coin, to_coin, ratio)
		VALUES ($1, $2, $3)
		RETURNING id
	`

	err := s.q.QueryRow(ctx, query, p.FromCoin, p.ToCoin, p.Ratio).Scan(&p.ID)
	if err != nil {
		if isDuplicateKeyError(err) {
			return storage.ErrDuplicateKey
		}
		if isForeignKeyError(err) {
			return storage.ErrInvalidInput
		}
		return fmt.Errorf("insert pair: %w", err)
	}
	return nil
}

// Get retrieves a pair by its endpoints. Returns ErrNotFound if not exists.
func (s *PairStore) Get(ctx context.Context, from, to string) (*domain.Pair, error) {
	query := `SELECT ` + pairColumns + ` FROM pairs p WHERE p.from_coin = $1 AND p.to_coin = $2`

	p, err := scanPair(s.q.QueryRow(ctx, query, from, to))
	if err != nil {
		if isNotFoundError(err) {
			return nil, storage.ErrNotFound
		}
		return nil, fmt.Errorf("get pair: %w", err)
	}
	return p, nil
}

// List returns all pairs ordered by (from, to).
func (s *PairStore) List(ctx context.Context) ([]*domain.Pair, error) {
	query := `SELECT ` + pairColumns + ` FROM pairs p ORDER BY p.from_coin, p.to_coin`
	return s.queryPairs(ctx, "list pairs", query)
}

// ListUnset returns pairs without a ratio whose endpoints are both enabled.
func (s *PairStore) ListUnset(ctx context.Context) ([]*domain.Pair, error) {
	query := `SELECT ` + pairColumns + ` FROM pairs p` + enabledJoin + `
		WHERE p.ratio IS NULL
		ORDER BY p.from_coin, p.to_coin
	`
	return s.queryPairs(ctx, "list unset pairs", query)
}

// From returns pairs leaving coin towards enabled coins, ordered by destination.
func (s *PairStore) From(ctx context.Context, coin string) ([]*domain.Pair, error) {
	query := `SELECT ` + pairColumns + ` FROM pairs p` + enabledJoin + `
		WHERE p.from_coin = $1
		ORDER BY p.to_coin
	`
	return s.queryPairs(ctx, "list pairs from coin", query, coin)
}

// To returns pairs arriving at coin from enabled coins, ordered by source.
func (s *PairStore) To(ctx context.Context, coin string) ([]*domain.Pair, error) {
	query := `SELECT ` + pairColumns + ` FROM pairs p` + enabledJoin + `
		WHERE p.to_coin = $1
		ORDER BY p.from_coin
	`
	return s.queryPairs(ctx, "list pairs to coin", query, coin)
}

// SetRatio sets the baseline ratio of a pair. Returns ErrNotFound if not exists.
func (s *PairStore) SetRatio(ctx context.Context, from, to string, ratio float64) error {
	tag, err := s.q.Exec(ctx, `UPDATE pairs SET ratio = $3 WHERE from_coin = $1 AND to_coin = $2`, from, to, ratio)
	if err != nil {
		return fmt.Errorf("set pair ratio: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return storage.ErrNotFound
	}
	return nil
}

// ClearRatios unsets the ratio of every pair.
func (s *PairStore) ClearRatios(ctx context.Context) (int, error) {
	tag, err := s.q.Exec(ctx, `UPDATE pairs SET ratio = NULL WHERE ratio IS NOT NULL`)
	if err != nil {
		return 0, fmt.Errorf("clear pair ratios: %w", err)
	}
	return int(tag.RowsAffected()), nil
}

// DeleteAll removes every pair.
func (s *PairStore) DeleteAll(ctx context.Context) error {
	if _, err := s.q.Exec(ctx, `DELETE FROM pairs`); err != nil {
		return fmt.Errorf("delete pairs: %w", err)
	}
	return nil
}

func (s *PairStore) queryPairs(ctx context.Context, op, query string, args ...any) ([]*domain.Pair, error) {
	rows, err := s.q.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	defer rows.Close()

	var pairs []*domain.Pair
	for rows.Next() {
		p, err := scanPair(rows)
		if err != nil {
			return nil, fmt.Errorf("scan pair row: %w", err)
		}
		pairs = append(pairs, p)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate pair rows: %w", err)
	}

	return pairs, nil
}

func scanPair(row pgx.Row) (*domain.Pair, error) {
	var p domain.Pair
	if err := row.Scan(&p.ID, &p.FromCoin, &p.ToCoin, &p.Ratio); err != nil {
		return nil, err
	}
	return &p, nil
}
