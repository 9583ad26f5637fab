package engine

import (
	"context"
	"fmt"

	"github.com/google/uuid"

	"altcoin-jumper/internal/domain"
	"altcoin-jumper/internal/exchange"
	"altcoin-jumper/internal/observability"
	"altcoin-jumper/internal/storage"
)

// Jump outcomes
const (
	JumpOK         = "ok"
	JumpSellFailed = "sell_failed"
	JumpBuyFailed  = "buy_failed"
)

// FillPrice returns the fill's unit price, deriving it from the quote amount and
// quantity when the exchange reports zero. A price that is not positive is ErrBadFill.
func FillPrice(f *exchange.Fill) (float64, error) {
	price := f.Price
	if price == 0 && f.OrigQty != 0 {
		price = f.CumulativeQuoteQty / f.OrigQty
	}
	if price <= 0 {
		return 0, ErrBadFill
	}
	return price, nil
}

// Jump moves the holding from pair.FromCoin to pair.ToCoin through the bridge.
// The sell leg is skipped when the held balance does not exceed the minimum notional.
// A sell or buy without a fill aborts the jump and leaves the held coin unchanged;
// the returned trade is nil in that case.
func (e *Engine) Jump(ctx context.Context, pair *domain.Pair, snap exchange.Snapshot) (*domain.Trade, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.jump(ctx, pair, snap)
}

// jump is Jump for callers already holding e.mu.
func (e *Engine) jump(ctx context.Context, pair *domain.Pair, snap exchange.Snapshot) (*domain.Trade, error) {
	from, to, bridge := pair.FromCoin, pair.ToCoin, e.settings.Bridge
	log := e.log.With().Str("from", from).Str("to", to).Logger()

	fromPrice, err := e.price(snap, from)
	if err != nil {
		return nil, fmt.Errorf("jump %s: %w", pair.Key(), err)
	}

	balance, err := e.exchange.BalanceOf(ctx, from)
	if err != nil {
		return nil, fmt.Errorf("get balance %s: %w", from, err)
	}
	minNotional, err := e.exchange.MinNotional(ctx, from, bridge)
	if err != nil {
		return nil, fmt.Errorf("get min notional %s: %w", from, err)
	}

	if balance*fromPrice > minNotional {
		sold, err := e.exchange.Sell(ctx, from, bridge, snap)
		if err != nil {
			return nil, fmt.Errorf("sell %s: %w", from, err)
		}
		if sold == nil {
			observability.RecordJump(JumpSellFailed)
			log.Info().Msg("couldn't sell, going back to scouting mode")
			return nil, nil
		}
		log.Info().Float64("quote_qty", sold.CumulativeQuoteQty).Msg("sold")
	} else {
		log.Info().
			Float64("balance", balance).
			Float64("min_notional", minNotional).
			Msg("skipping sell")
	}

	trade, fillPrice, err := e.buyInto(ctx, to, snap)
	if err != nil {
		return nil, err
	}
	if trade == nil {
		observability.RecordJump(JumpBuyFailed)
		log.Info().Msg("couldn't buy, going back to scouting mode")
		return nil, nil
	}

	err = e.tx.RunInTx(ctx, func(ctx context.Context, s storage.Stores) error {
		if err := e.commitHolding(ctx, s, trade); err != nil {
			return err
		}
		return e.rebaseline(ctx, s, to, fillPrice, snap)
	})
	if err != nil {
		return nil, fmt.Errorf("commit jump %s: %w", pair.Key(), err)
	}

	observability.RecordJump(JumpOK)
	e.updateStatus(func(st *Status) {
		st.HeldCoin = to
		st.LastJump = trade.Datetime
		st.LastJumpTo = to
	})
	log.Info().
		Float64("price", fillPrice).
		Float64("quantity", trade.AltTradeAmount).
		Float64("quote_qty", trade.CryptoTradeAmount).
		Msg("jump complete")

	if err := e.recordValues(ctx, snap); err != nil {
		log.Warn().Err(err).Msg("record values after jump")
	}
	return trade, nil
}

// buyInto spends the bridge balance on coin and returns the resulting trade and fill
// price, or a nil trade when the exchange filled nothing. The trade is not persisted.
func (e *Engine) buyInto(ctx context.Context, coin string, snap exchange.Snapshot) (*domain.Trade, float64, error) {
	bridge := e.settings.Bridge

	bridgeBalance, err := e.exchange.BalanceOf(ctx, bridge)
	if err != nil {
		return nil, 0, fmt.Errorf("get balance %s: %w", bridge, err)
	}
	altBalance, err := e.exchange.BalanceOf(ctx, coin)
	if err != nil {
		return nil, 0, fmt.Errorf("get balance %s: %w", coin, err)
	}

	fill, err := e.exchange.Buy(ctx, coin, bridge, snap)
	if err != nil {
		return nil, 0, fmt.Errorf("buy %s: %w", coin, err)
	}
	if fill == nil {
		return nil, 0, nil
	}

	price, err := FillPrice(fill)
	if err != nil {
		return nil, 0, fmt.Errorf("buy %s order %s: %w", coin, fill.OrderID, err)
	}

	quantity := fill.OrigQty
	if quantity == 0 {
		quantity = fill.CumulativeQuoteQty / price
	}

	return &domain.Trade{
		ID:                    uuid.NewString(),
		AltCoin:               coin,
		CryptoCoin:            bridge,
		Selling:               false,
		State:                 domain.TradeStateComplete,
		AltStartingBalance:    altBalance,
		AltTradeAmount:        quantity,
		CryptoStartingBalance: bridgeBalance,
		CryptoTradeAmount:     fill.CumulativeQuoteQty,
		Datetime:              e.now().UTC(),
	}, price, nil
}

// commitHolding points CurrentCoin at the trade's coin and records the trade.
func (e *Engine) commitHolding(ctx context.Context, s storage.Stores, trade *domain.Trade) error {
	if err := s.CurrentCoin.Set(ctx, &domain.CurrentCoin{Coin: trade.AltCoin, Datetime: trade.Datetime}); err != nil {
		return fmt.Errorf("set current coin: %w", err)
	}
	if err := s.Trades.Insert(ctx, trade); err != nil {
		return fmt.Errorf("insert trade: %w", err)
	}
	return nil
}

// rebaseline sets ratio = price(from)/fillPrice on every enabled pair into coin.
func (e *Engine) rebaseline(ctx context.Context, s storage.Stores, coin string, fillPrice float64, snap exchange.Snapshot) error {
	pairs, err := s.Pairs.To(ctx, coin)
	if err != nil {
		return fmt.Errorf("list pairs to %s: %w", coin, err)
	}
	for _, p := range pairs {
		fromPrice, err := e.price(snap, p.FromCoin)
		if err != nil {
			e.log.Info().Str("from", p.FromCoin).Msg("skipping threshold update, price not found")
			continue
		}
		if err := s.Pairs.SetRatio(ctx, p.FromCoin, coin, fromPrice/fillPrice); err != nil {
			return fmt.Errorf("set ratio %s: %w", p.Key(), err)
		}
	}
	return nil
}
