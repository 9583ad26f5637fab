package engine

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"altcoin-jumper/internal/domain"
	"altcoin-jumper/internal/exchange"
)

func TestRecordValues_SkipsZeroBalances(t *testing.T) {
	snap := exchange.Snapshot{"ADAUSDT": 0.5, "ADABTC": 0.00001, "DOTUSDT": 5, "DOTBTC": 0.0001}
	h := newHarness(t, []string{"ADA", "DOT"}, snap, nil)
	ctx := context.Background()

	h.ex.balances["ADA"] = 10

	require.NoError(t, h.eng.RecordValues(ctx))

	values, err := h.values.GetByCoin(ctx, "ADA")
	require.NoError(t, err)
	require.Len(t, values, 1)

	v := values[0]
	assert.Equal(t, 10.0, v.Balance)
	require.NotNil(t, v.USDValue)
	assert.InDelta(t, 5.0, *v.USDValue, 1e-12)
	require.NotNil(t, v.BTCValue)
	assert.InDelta(t, 0.0001, *v.BTCValue, 1e-12)
	assert.Equal(t, domain.IntervalMinutely, v.Interval)
	assert.Equal(t, fixedNow, v.Datetime)

	dot, err := h.values.GetByCoin(ctx, "DOT")
	require.NoError(t, err)
	assert.Empty(t, dot)

	require.Len(t, h.sink.values, 1)
	assert.Equal(t, "ADA", h.sink.values[0].Coin)
}

func TestRecordValues_MissingReferencePriceIsNil(t *testing.T) {
	snap := exchange.Snapshot{"ADAUSDT": 0.5}
	h := newHarness(t, []string{"ADA", "BTC"}, snap, nil)
	ctx := context.Background()

	h.ex.balances["ADA"] = 10
	h.ex.balances["BTC"] = 0.5

	require.NoError(t, h.eng.RecordValues(ctx))

	ada, err := h.values.GetByCoin(ctx, "ADA")
	require.NoError(t, err)
	require.Len(t, ada, 1)
	assert.NotNil(t, ada[0].USDValue)
	assert.Nil(t, ada[0].BTCValue)

	// A coin valued in itself is worth its balance
	btc, err := h.values.GetByCoin(ctx, "BTC")
	require.NoError(t, err)
	require.Len(t, btc, 1)
	assert.Nil(t, btc[0].USDValue)
	require.NotNil(t, btc[0].BTCValue)
	assert.Equal(t, 0.5, *btc[0].BTCValue)
}

func TestRecordValues_NothingHeld(t *testing.T) {
	h := newHarness(t, []string{"ADA"}, exchange.Snapshot{"ADAUSDT": 0.5}, nil)

	require.NoError(t, h.eng.RecordValues(context.Background()))
	assert.Empty(t, h.sink.values)
}
