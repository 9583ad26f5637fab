package engine

import (
	"context"
	"fmt"

	"altcoin-jumper/internal/domain"
	"altcoin-jumper/internal/exchange"
	"altcoin-jumper/internal/observability"
)

// bridgeScout spends idle bridge funds on the first enabled coin none of whose
// outgoing pairs scores positive, provided the bridge balance exceeds that coin's
// minimum notional. At most one coin is bought. Returns the unpersisted trade and
// its fill price, or a nil trade when nothing was bought. The caller must hold e.mu.
func (e *Engine) bridgeScout(ctx context.Context, snap exchange.Snapshot) (*domain.Trade, float64, error) {
	bridge := e.settings.Bridge

	bridgeBalance, err := e.exchange.BalanceOf(ctx, bridge)
	if err != nil {
		return nil, 0, fmt.Errorf("get balance %s: %w", bridge, err)
	}
	if bridgeBalance <= 0 {
		return nil, 0, nil
	}

	coins, err := e.stores.Coins.List(ctx, true)
	if err != nil {
		return nil, 0, fmt.Errorf("list coins: %w", err)
	}

	for _, c := range coins {
		price, err := e.price(snap, c.Symbol)
		if err != nil {
			continue
		}

		ev, err := e.Evaluate(ctx, c.Symbol, price, snap)
		if err != nil {
			return nil, 0, err
		}
		if ev.HasPositive() {
			continue
		}

		minNotional, err := e.exchange.MinNotional(ctx, c.Symbol, bridge)
		if err != nil {
			return nil, 0, fmt.Errorf("get min notional %s: %w", c.Symbol, err)
		}
		if bridgeBalance <= minNotional {
			continue
		}

		e.log.Info().Str("coin", c.Symbol).Float64("bridge_balance", bridgeBalance).Msg("purchasing coin with bridge funds")
		trade, fillPrice, err := e.buyInto(ctx, c.Symbol, snap)
		if err != nil {
			return nil, 0, err
		}
		if trade == nil {
			e.log.Info().Str("coin", c.Symbol).Msg("bridge purchase not filled")
			return nil, 0, nil
		}
		observability.RecordBridgePurchase()
		return trade, fillPrice, nil
	}
	return nil, 0, nil
}
