package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"altcoin-jumper/internal/observability"
	"altcoin-jumper/internal/storage"
)

// Pool wraps pgxpool.Pool for dependency injection.
type Pool struct {
	*pgxpool.Pool
}

// NewPool creates a new Postgres connection pool.
func NewPool(ctx context.Context, dsn string) (*Pool, error) {
	config, err := pgxpool.ParseConfig(dsn)
	if err != nil {
		return nil, fmt.Errorf("parse postgres dsn: %w", err)
	}

	pool, err := pgxpool.NewWithConfig(ctx, config)
	if err != nil {
		return nil, fmt.Errorf("connect to postgres: %w", err)
	}

	// Verify connection
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ping postgres: %w", err)
	}

	return &Pool{Pool: pool}, nil
}

// Close closes the connection pool.
func (p *Pool) Close() {
	p.Pool.Close()
}

// querier is satisfied by both the pool and an open transaction.
type querier interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

func newStores(q querier) storage.Stores {
	return storage.Stores{
		Coins:       &CoinStore{q: q},
		Pairs:       &PairStore{q: q},
		Trades:      &TradeStore{q: q},
		CurrentCoin: &CurrentCoinStore{q: q},
	}
}

// NewStores returns non-transactional stores backed by the pool.
func NewStores(pool *Pool) storage.Stores {
	return newStores(pool)
}

// TxRunner implements storage.TxRunner with pgx transactions.
type TxRunner struct {
	pool *Pool
}

// NewTxRunner creates a new TxRunner.
func NewTxRunner(pool *Pool) *TxRunner {
	return &TxRunner{pool: pool}
}

// Compile-time interface check.
var _ storage.TxRunner = (*TxRunner)(nil)

// RunInTx runs fn inside a transaction. The transaction commits when fn returns nil.
func (r *TxRunner) RunInTx(ctx context.Context, fn func(ctx context.Context, s storage.Stores) error) error {
	start := time.Now()
	err := pgx.BeginFunc(ctx, r.pool, func(tx pgx.Tx) error {
		return fn(ctx, newStores(tx))
	})
	observability.RecordDBQuery("postgres", "tx", time.Since(start).Seconds(), err)
	return err
}

// PostgreSQL error codes
const (
	pgErrUniqueViolation     = "23505" // unique_violation
	pgErrForeignKeyViolation = "23503" // foreign_key_violation
)

// isDuplicateKeyError checks if error is a unique constraint violation.
func isDuplicateKeyError(err error) bool {
	return hasPgCode(err, pgErrUniqueViolation)
}

// isForeignKeyError checks if error references a missing coin.
func isForeignKeyError(err error) bool {
	return hasPgCode(err, pgErrForeignKeyViolation)
}

func hasPgCode(err error, code string) bool {
	if err == nil {
		return false
	}

	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Code == code
	}

	return false
}

// isNotFoundError checks if error indicates no rows found.
func isNotFoundError(err error) bool {
	return errors.Is(err, pgx.ErrNoRows)
}
