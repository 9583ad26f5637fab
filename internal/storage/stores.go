package storage

import "context"

// Stores bundles the relational stores that take part in transactions.
type Stores struct {
	Coins       CoinStore
	Pairs       PairStore
	Trades      TradeStore
	CurrentCoin CurrentCoinStore
}

// TxRunner runs a unit of work atomically.
// fn receives Stores bound to the transaction; the transaction commits
// when fn returns nil and rolls back otherwise.
type TxRunner interface {
	RunInTx(ctx context.Context, fn func(ctx context.Context, s Stores) error) error
}
