package engine

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"

	"altcoin-jumper/internal/domain"
	"altcoin-jumper/internal/exchange"
	"altcoin-jumper/internal/storage/memory"
)

const bridge = "USDT"

var fixedNow = time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)

// fakeExchange fills market orders at snapshot prices without fees.
type fakeExchange struct {
	mu          sync.Mutex
	balances    map[string]float64
	minNotional float64
	fee         float64

	sellNil bool
	buyNil  bool
	buyFill *exchange.Fill // returned instead of a computed fill when set

	sells []string
	buys  []string
}

func newFakeExchange() *fakeExchange {
	return &fakeExchange{balances: make(map[string]float64), minNotional: 10}
}

func (f *fakeExchange) BalanceOf(_ context.Context, asset string) (float64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.balances[asset], nil
}

func (f *fakeExchange) MinNotional(context.Context, string, string) (float64, error) {
	return f.minNotional, nil
}

func (f *fakeExchange) Fee(context.Context, string, string, bool) (float64, error) {
	return f.fee, nil
}

func (f *fakeExchange) Sell(_ context.Context, coin, quote string, snap exchange.Snapshot) (*exchange.Fill, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.sells = append(f.sells, coin)
	if f.sellNil {
		return nil, nil
	}
	price, _ := snap.Price(coin, quote)
	qty := f.balances[coin]
	f.balances[coin] = 0
	f.balances[quote] += qty * price
	return &exchange.Fill{Symbol: coin + quote, Side: exchange.SideSell, Price: price, CumulativeQuoteQty: qty * price, OrigQty: qty}, nil
}

func (f *fakeExchange) Buy(_ context.Context, coin, quote string, snap exchange.Snapshot) (*exchange.Fill, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.buys = append(f.buys, coin)
	if f.buyNil {
		return nil, nil
	}
	if f.buyFill != nil {
		f.balances[quote] -= f.buyFill.CumulativeQuoteQty
		f.balances[coin] += f.buyFill.OrigQty
		return f.buyFill, nil
	}
	price, _ := snap.Price(coin, quote)
	quoteQty := f.balances[quote]
	f.balances[quote] = 0
	f.balances[coin] += quoteQty / price
	return &exchange.Fill{Symbol: coin + quote, Side: exchange.SideBuy, Price: price, CumulativeQuoteQty: quoteQty, OrigQty: quoteQty / price}, nil
}

type fakePrices struct {
	mu   sync.Mutex
	snap exchange.Snapshot
}

func (p *fakePrices) Snapshot(context.Context) (exchange.Snapshot, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make(exchange.Snapshot, len(p.snap))
	for k, v := range p.snap {
		out[k] = v
	}
	return out, nil
}

func (p *fakePrices) set(snap exchange.Snapshot) {
	p.mu.Lock()
	p.snap = snap
	p.mu.Unlock()
}

type recordingSink struct {
	mu     sync.Mutex
	values []*domain.CoinValue
}

func (s *recordingSink) Send(_ context.Context, values []*domain.CoinValue) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.values = append(s.values, values...)
	return nil
}

type harness struct {
	eng       *Engine
	db        *memory.DB
	ex        *fakeExchange
	prices    *fakePrices
	scoutLogs *memory.ScoutLogStore
	values    *memory.CoinValueStore
	sink      *recordingSink
}

func defaultSettings(coins []string) Settings {
	return Settings{
		Bridge:                  bridge,
		ScoutMultiplier:         5,
		ProfitToReset:           3,
		NumberOfCoinsUnder:      6,
		ProgressPercentageUnder: 90,
		SupportedCoins:          coins,
		ValueUSDSymbol:          "USDT",
		ValueReferenceSymbol:    "BTC",
	}
}

// newHarness builds an engine over memory stores with coins seeded and no ratios set.
func newHarness(t *testing.T, coins []string, snap exchange.Snapshot, tweak func(*Settings)) *harness {
	t.Helper()

	settings := defaultSettings(coins)
	if tweak != nil {
		tweak(&settings)
	}

	h := &harness{
		db:        memory.NewDB(),
		ex:        newFakeExchange(),
		prices:    &fakePrices{snap: snap},
		scoutLogs: memory.NewScoutLogStore(),
		values:    memory.NewCoinValueStore(),
		sink:      &recordingSink{},
	}
	h.eng = New(Options{
		Stores:     h.db.Stores(),
		TxRunner:   h.db,
		ScoutLogs:  h.scoutLogs,
		CoinValues: h.values,
		Exchange:   h.ex,
		Prices:     h.prices,
		Sink:       h.sink,
		Logger:     zerolog.Nop(),
		Now:        func() time.Time { return fixedNow },
		Settings:   settings,
	})

	require.NoError(t, h.eng.SeedUniverse(context.Background(), coins))
	return h
}

func (h *harness) setRatio(t *testing.T, from, to string, ratio float64) {
	t.Helper()
	require.NoError(t, h.db.Stores().Pairs.SetRatio(context.Background(), from, to, ratio))
}

func (h *harness) setCurrent(t *testing.T, coin string) {
	t.Helper()
	require.NoError(t, h.db.Stores().CurrentCoin.Set(context.Background(), &domain.CurrentCoin{Coin: coin, Datetime: fixedNow}))
}

func (h *harness) current(t *testing.T) string {
	t.Helper()
	c, err := h.db.Stores().CurrentCoin.Get(context.Background())
	require.NoError(t, err)
	return c.Coin
}

func (h *harness) ratio(t *testing.T, from, to string) *float64 {
	t.Helper()
	p, err := h.db.Stores().Pairs.Get(context.Background(), from, to)
	require.NoError(t, err)
	return p.Ratio
}

func (h *harness) trades(t *testing.T) []*domain.Trade {
	t.Helper()
	trades, err := h.db.Stores().Trades.List(context.Background())
	require.NoError(t, err)
	return trades
}

func usdt(prices map[string]float64) exchange.Snapshot {
	snap := make(exchange.Snapshot, len(prices))
	for coin, p := range prices {
		snap[coin+bridge] = p
	}
	return snap
}
