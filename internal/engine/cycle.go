package engine

import (
	"context"
	"errors"
	"fmt"
	"time"

	"altcoin-jumper/internal/domain"
	"altcoin-jumper/internal/exchange"
	"altcoin-jumper/internal/observability"
	"altcoin-jumper/internal/storage"
)

// CycleResult summarizes one scout cycle.
type CycleResult struct {
	HeldCoin      string
	ThresholdsSet int
	Skipped       bool // held coin had no price in the snapshot
	Evaluation    *Evaluation
	Reset         string
	Jump          *domain.Trade
	BridgeBuy     *domain.Trade
}

// Scout runs one cycle: snapshot, threshold initialization, evaluation of the held coin,
// reset check, jump selection and execution, then deployment of idle bridge funds.
// Cycles never overlap.
func (e *Engine) Scout(ctx context.Context) (*CycleResult, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	start := time.Now()
	res, err := e.scout(ctx)

	status := "ok"
	if err != nil {
		status = "error"
	}
	observability.RecordCycle(status, time.Since(start))
	e.updateStatus(func(st *Status) {
		st.Cycles++
		st.LastCycle = e.now()
		st.LastCycleErr = ""
		if err != nil {
			st.LastCycleErr = err.Error()
		}
	})

	return res, err
}

func (e *Engine) scout(ctx context.Context) (*CycleResult, error) {
	res := &CycleResult{}

	snap, err := e.prices.Snapshot(ctx)
	if err != nil {
		return nil, fmt.Errorf("get price snapshot: %w", err)
	}

	res.ThresholdsSet, err = e.InitializeThresholds(ctx, snap)
	if err != nil {
		return nil, err
	}

	current, err := e.currentCoin(ctx)
	if err != nil {
		return nil, err
	}
	res.HeldCoin = current
	e.updateStatus(func(st *Status) { st.HeldCoin = current })

	price, err := e.price(snap, current)
	if err != nil {
		e.log.Info().Str("coin", current).Msg("skipping scouting, current coin price not found")
		res.Skipped = true
		return res, nil
	}

	ev, err := e.Evaluate(ctx, current, price, snap)
	if err != nil {
		return nil, err
	}
	res.Evaluation = ev
	e.reportHeld(ctx, ev)

	enabled, err := e.stores.Coins.List(ctx, true)
	if err != nil {
		return nil, fmt.Errorf("list coins: %w", err)
	}
	res.Reset, err = e.applyReset(ctx, ev, len(enabled))
	if err != nil {
		return nil, err
	}

	if best, ok := SelectJump(ev.Scores); ok {
		e.log.Info().
			Str("from", current).
			Str("to", best.Pair.ToCoin).
			Float64("score", best.Score).
			Msg("will be jumping")
		res.Jump, err = e.jump(ctx, best.Pair, snap)
		if err != nil {
			return nil, err
		}
		if res.Jump != nil {
			return res, nil
		}
	}

	res.BridgeBuy, err = e.deployBridge(ctx, current, price, snap)
	if err != nil {
		return nil, err
	}
	return res, nil
}

// deployBridge runs the bridge scout when the held coin balance is too small to sell,
// and adopts the purchased coin as the held coin.
func (e *Engine) deployBridge(ctx context.Context, current string, price float64, snap exchange.Snapshot) (*domain.Trade, error) {
	balance, err := e.exchange.BalanceOf(ctx, current)
	if err != nil {
		return nil, fmt.Errorf("get balance %s: %w", current, err)
	}
	minNotional, err := e.exchange.MinNotional(ctx, current, e.settings.Bridge)
	if err != nil {
		return nil, fmt.Errorf("get min notional %s: %w", current, err)
	}
	if balance*price > minNotional {
		return nil, nil
	}

	return e.adoptBridgePurchase(ctx, snap)
}

// BridgeScout runs the bridge scout on a fresh snapshot. The purchased coin becomes
// the held coin. Returns nil when nothing was bought.
func (e *Engine) BridgeScout(ctx context.Context) (*domain.Trade, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	snap, err := e.prices.Snapshot(ctx)
	if err != nil {
		return nil, fmt.Errorf("get price snapshot: %w", err)
	}
	return e.adoptBridgePurchase(ctx, snap)
}

// adoptBridgePurchase buys with idle bridge funds and records the purchase together
// with the new held coin in one transaction.
func (e *Engine) adoptBridgePurchase(ctx context.Context, snap exchange.Snapshot) (*domain.Trade, error) {
	trade, _, err := e.bridgeScout(ctx, snap)
	if err != nil || trade == nil {
		return nil, err
	}

	err = e.tx.RunInTx(ctx, func(ctx context.Context, s storage.Stores) error {
		return e.commitHolding(ctx, s, trade)
	})
	if err != nil {
		return nil, fmt.Errorf("commit bridge purchase %s: %w", trade.AltCoin, err)
	}
	e.updateStatus(func(st *Status) { st.HeldCoin = trade.AltCoin })
	e.log.Info().Str("coin", trade.AltCoin).Float64("quote_qty", trade.CryptoTradeAmount).Msg("bridge funds deployed")
	return trade, nil
}

func (e *Engine) currentCoin(ctx context.Context) (string, error) {
	cur, err := e.stores.CurrentCoin.Get(ctx)
	if errors.Is(err, storage.ErrNotFound) {
		return "", ErrNoCurrentCoin
	}
	if err != nil {
		return "", fmt.Errorf("get current coin: %w", err)
	}
	return cur.Coin, nil
}
