package engine

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"altcoin-jumper/internal/domain"
	"altcoin-jumper/internal/exchange"
)

func TestFillPrice_RepairsZeroPrice(t *testing.T) {
	price, err := FillPrice(&exchange.Fill{Price: 0, CumulativeQuoteQty: 100, OrigQty: 2})
	require.NoError(t, err)
	assert.Equal(t, 50.0, price)

	price, err = FillPrice(&exchange.Fill{Price: 48, CumulativeQuoteQty: 100, OrigQty: 2})
	require.NoError(t, err)
	assert.Equal(t, 48.0, price)

	_, err = FillPrice(&exchange.Fill{Price: 0, CumulativeQuoteQty: 100, OrigQty: 0})
	assert.ErrorIs(t, err, ErrBadFill)
}

func TestFillPrice_RejectsNonPositivePrice(t *testing.T) {
	for name, f := range map[string]*exchange.Fill{
		"zero quote":     {Price: 0, CumulativeQuoteQty: 0, OrigQty: 2},
		"negative price": {Price: -3, CumulativeQuoteQty: 100, OrigQty: 2},
		"negative quote": {Price: 0, CumulativeQuoteQty: -100, OrigQty: 2},
	} {
		t.Run(name, func(t *testing.T) {
			_, err := FillPrice(f)
			assert.ErrorIs(t, err, ErrBadFill)
		})
	}
}

func TestJump_SellsBuysAndRebaselines(t *testing.T) {
	snap := usdt(map[string]float64{"ADA": 1, "DOT": 5, "XLM": 0.5})
	h := newHarness(t, []string{"ADA", "DOT", "XLM"}, snap, nil)
	ctx := context.Background()

	h.setCurrent(t, "ADA")
	h.ex.balances["ADA"] = 100

	trade, err := h.eng.Jump(ctx, &domain.Pair{FromCoin: "ADA", ToCoin: "DOT"}, snap)
	require.NoError(t, err)
	require.NotNil(t, trade)

	assert.Equal(t, []string{"ADA"}, h.ex.sells)
	assert.Equal(t, []string{"DOT"}, h.ex.buys)
	assert.Equal(t, "DOT", h.current(t))

	trades := h.trades(t)
	require.Len(t, trades, 1)
	assert.Equal(t, "DOT", trades[0].AltCoin)
	assert.Equal(t, bridge, trades[0].CryptoCoin)
	assert.Equal(t, domain.TradeStateComplete, trades[0].State)
	assert.Equal(t, 100.0, trades[0].CryptoTradeAmount)
	assert.Equal(t, 20.0, trades[0].AltTradeAmount)
	assert.Equal(t, 100.0, trades[0].CryptoStartingBalance)
	assert.NotEmpty(t, trades[0].ID)

	// Every enabled pair into DOT is anchored to the fill price
	assert.Equal(t, 1.0/5, *h.ratio(t, "ADA", "DOT"))
	assert.Equal(t, 0.5/5, *h.ratio(t, "XLM", "DOT"))
	assert.Nil(t, h.ratio(t, "DOT", "ADA"))

	// Balances are recorded after the jump
	assert.Len(t, h.sink.values, 1)
	assert.Equal(t, "DOT", h.sink.values[0].Coin)

	assert.Equal(t, "DOT", h.eng.Status().LastJumpTo)
}

// A balance worth less than the minimum notional is not sold,
// but the buy leg still runs.
func TestJump_BelowMinNotionalSkipsSell(t *testing.T) {
	snap := usdt(map[string]float64{"ADA": 1, "DOT": 5})
	h := newHarness(t, []string{"ADA", "DOT"}, snap, nil)
	ctx := context.Background()

	h.setCurrent(t, "ADA")
	h.ex.balances["ADA"] = 5 // 5 * 1 < 10
	h.ex.balances[bridge] = 50

	trade, err := h.eng.Jump(ctx, &domain.Pair{FromCoin: "ADA", ToCoin: "DOT"}, snap)
	require.NoError(t, err)
	require.NotNil(t, trade)

	assert.Empty(t, h.ex.sells)
	assert.Equal(t, []string{"DOT"}, h.ex.buys)
	assert.Equal(t, "DOT", h.current(t))
	assert.Equal(t, 10.0, trade.AltTradeAmount)
}

func TestJump_NotionalEqualToMinimumSkipsSell(t *testing.T) {
	snap := usdt(map[string]float64{"ADA": 1, "DOT": 5})
	h := newHarness(t, []string{"ADA", "DOT"}, snap, nil)

	h.setCurrent(t, "ADA")
	h.ex.balances["ADA"] = 10
	h.ex.balances[bridge] = 20

	_, err := h.eng.Jump(context.Background(), &domain.Pair{FromCoin: "ADA", ToCoin: "DOT"}, snap)
	require.NoError(t, err)
	assert.Empty(t, h.ex.sells)
}

func TestJump_SellWithoutFillAborts(t *testing.T) {
	snap := usdt(map[string]float64{"ADA": 1, "DOT": 5})
	h := newHarness(t, []string{"ADA", "DOT"}, snap, nil)

	h.setCurrent(t, "ADA")
	h.ex.balances["ADA"] = 100
	h.ex.sellNil = true

	trade, err := h.eng.Jump(context.Background(), &domain.Pair{FromCoin: "ADA", ToCoin: "DOT"}, snap)
	require.NoError(t, err)
	assert.Nil(t, trade)

	assert.Equal(t, []string{"ADA"}, h.ex.sells)
	assert.Empty(t, h.ex.buys)
	assert.Equal(t, "ADA", h.current(t))
	assert.Empty(t, h.trades(t))
}

func TestJump_BuyWithoutFillAborts(t *testing.T) {
	snap := usdt(map[string]float64{"ADA": 1, "DOT": 5})
	h := newHarness(t, []string{"ADA", "DOT"}, snap, nil)

	h.setCurrent(t, "ADA")
	h.ex.balances["ADA"] = 100
	h.ex.buyNil = true

	trade, err := h.eng.Jump(context.Background(), &domain.Pair{FromCoin: "ADA", ToCoin: "DOT"}, snap)
	require.NoError(t, err)
	assert.Nil(t, trade)

	assert.Equal(t, "ADA", h.current(t))
	assert.Empty(t, h.trades(t))
	assert.Nil(t, h.ratio(t, "ADA", "DOT"))
}

// A buy fill reporting price 0 is priced from quote amount and quantity.
func TestJump_ZeroFillPriceDerived(t *testing.T) {
	snap := usdt(map[string]float64{"ADA": 1, "DOT": 48})
	h := newHarness(t, []string{"ADA", "DOT"}, snap, nil)

	h.setCurrent(t, "ADA")
	h.ex.balances["ADA"] = 100
	h.ex.buyFill = &exchange.Fill{Price: 0, CumulativeQuoteQty: 100, OrigQty: 2}

	trade, err := h.eng.Jump(context.Background(), &domain.Pair{FromCoin: "ADA", ToCoin: "DOT"}, snap)
	require.NoError(t, err)
	require.NotNil(t, trade)

	// Re-baseline uses the derived 50, not the snapshot's 48
	assert.Equal(t, 1.0/50, *h.ratio(t, "ADA", "DOT"))
	assert.Equal(t, 50.0, trade.UnitPrice())
}

func TestJump_BadFillIsError(t *testing.T) {
	snap := usdt(map[string]float64{"ADA": 1, "DOT": 5})
	h := newHarness(t, []string{"ADA", "DOT"}, snap, nil)

	h.setCurrent(t, "ADA")
	h.ex.balances["ADA"] = 100
	h.ex.buyFill = &exchange.Fill{OrderID: "7", Price: 0, CumulativeQuoteQty: 100, OrigQty: 0}

	_, err := h.eng.Jump(context.Background(), &domain.Pair{FromCoin: "ADA", ToCoin: "DOT"}, snap)
	assert.ErrorIs(t, err, ErrBadFill)
	assert.Equal(t, "ADA", h.current(t))
}

// A fill priced at zero must not reach the re-baseline division.
func TestScout_ZeroPricedFillLeavesRatiosFinite(t *testing.T) {
	snap := usdt(map[string]float64{"BTC": 100, "ETH": 50})
	h := newHarness(t, []string{"BTC", "ETH"}, snap, nil)
	ctx := context.Background()

	h.setCurrent(t, "BTC")
	h.setRatio(t, "BTC", "ETH", 1.8)
	h.ex.balances["BTC"] = 1
	h.ex.buyFill = &exchange.Fill{OrderID: "9", Price: 0, CumulativeQuoteQty: 0, OrigQty: 2}

	res, err := h.eng.Scout(ctx)
	require.ErrorIs(t, err, ErrBadFill)
	assert.Nil(t, res)

	assert.Equal(t, "BTC", h.current(t))
	assert.Empty(t, h.trades(t))
	require.NotNil(t, h.ratio(t, "BTC", "ETH"))
	assert.Equal(t, 1.8, *h.ratio(t, "BTC", "ETH"))
}

func TestJump_MissingFromPrice(t *testing.T) {
	snap := usdt(map[string]float64{"DOT": 5})
	h := newHarness(t, []string{"ADA", "DOT"}, snap, nil)

	_, err := h.eng.Jump(context.Background(), &domain.Pair{FromCoin: "ADA", ToCoin: "DOT"}, snap)
	assert.ErrorIs(t, err, ErrNoPrice)
	assert.Empty(t, h.ex.sells)
}
