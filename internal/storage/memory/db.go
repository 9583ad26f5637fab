package memory

import (
	"context"
	"sync"

	"altcoin-jumper/internal/domain"
	"altcoin-jumper/internal/storage"
)

// DB is an in-memory relational store for coins, pairs, trades and the current coin.
// Transactions run against a private copy of the state that replaces the shared
// state on commit.
type DB struct {
	mu sync.RWMutex
	st *state
}

// state is the full relational dataset.
type state struct {
	coins      map[string]domain.Coin
	pairs      map[domain.PairKey]*domain.Pair
	nextPairID int64
	trades     []*domain.Trade // ordered by insertion
	tradeIDs   map[string]struct{}
	current    *domain.CurrentCoin
}

func newState() *state {
	return &state{
		coins:    make(map[string]domain.Coin),
		pairs:    make(map[domain.PairKey]*domain.Pair),
		tradeIDs: make(map[string]struct{}),
	}
}

func (s *state) clone() *state {
	c := &state{
		coins:      make(map[string]domain.Coin, len(s.coins)),
		pairs:      make(map[domain.PairKey]*domain.Pair, len(s.pairs)),
		nextPairID: s.nextPairID,
		trades:     make([]*domain.Trade, len(s.trades)),
		tradeIDs:   make(map[string]struct{}, len(s.tradeIDs)),
	}
	for k, v := range s.coins {
		c.coins[k] = v
	}
	for k, p := range s.pairs {
		c.pairs[k] = copyPair(p)
	}
	copy(c.trades, s.trades)
	for k := range s.tradeIDs {
		c.tradeIDs[k] = struct{}{}
	}
	if s.current != nil {
		cur := *s.current
		c.current = &cur
	}
	return c
}

// NewDB creates an empty in-memory database.
func NewDB() *DB {
	return &DB{st: newState()}
}

// view binds store operations either to the shared state or to a transaction's copy.
type view struct {
	db *DB
	tx *state
}

func (v view) read(fn func(s *state) error) error {
	if v.tx != nil {
		return fn(v.tx)
	}
	v.db.mu.RLock()
	defer v.db.mu.RUnlock()
	return fn(v.db.st)
}

func (v view) write(fn func(s *state) error) error {
	if v.tx != nil {
		return fn(v.tx)
	}
	v.db.mu.Lock()
	defer v.db.mu.Unlock()
	return fn(v.db.st)
}

func (v view) stores() storage.Stores {
	return storage.Stores{
		Coins:       &CoinStore{v: v},
		Pairs:       &PairStore{v: v},
		Trades:      &TradeStore{v: v},
		CurrentCoin: &CurrentCoinStore{v: v},
	}
}

// Stores returns non-transactional stores over the shared state.
func (db *DB) Stores() storage.Stores {
	return view{db: db}.stores()
}

// RunInTx runs fn against a private copy of the state and publishes it when fn succeeds.
// Other readers and writers block until the transaction finishes.
func (db *DB) RunInTx(ctx context.Context, fn func(ctx context.Context, s storage.Stores) error) error {
	db.mu.Lock()
	defer db.mu.Unlock()

	tx := db.st.clone()
	if err := fn(ctx, view{db: db, tx: tx}.stores()); err != nil {
		return err
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	db.st = tx
	return nil
}

var _ storage.TxRunner = (*DB)(nil)

func copyPair(p *domain.Pair) *domain.Pair {
	c := *p
	if p.Ratio != nil {
		r := *p.Ratio
		c.Ratio = &r
	}
	return &c
}
