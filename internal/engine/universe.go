package engine

import (
	"context"
	"errors"
	"fmt"

	"altcoin-jumper/internal/domain"
	"altcoin-jumper/internal/exchange"
	"altcoin-jumper/internal/storage"
)

// SeedUniverse enables the listed coins, disables every other stored coin and creates
// each missing ordered pair among the listed coins, in one transaction.
func (e *Engine) SeedUniverse(ctx context.Context, symbols []string) error {
	err := e.tx.RunInTx(ctx, func(ctx context.Context, s storage.Stores) error {
		return seedUniverse(ctx, s, symbols)
	})
	if err != nil {
		return fmt.Errorf("seed universe: %w", err)
	}
	e.log.Info().Strs("coins", symbols).Msg("universe seeded")
	return nil
}

func seedUniverse(ctx context.Context, s storage.Stores, symbols []string) error {
	listed := make(map[string]bool, len(symbols))
	for _, sym := range symbols {
		listed[sym] = true
	}

	existing, err := s.Coins.List(ctx, false)
	if err != nil {
		return fmt.Errorf("list coins: %w", err)
	}
	for _, c := range existing {
		if c.Enabled && !listed[c.Symbol] {
			if err := s.Coins.Upsert(ctx, &domain.Coin{Symbol: c.Symbol, Enabled: false}); err != nil {
				return fmt.Errorf("disable coin %s: %w", c.Symbol, err)
			}
		}
	}
	for _, sym := range symbols {
		if err := s.Coins.Upsert(ctx, &domain.Coin{Symbol: sym, Enabled: true}); err != nil {
			return fmt.Errorf("enable coin %s: %w", sym, err)
		}
	}

	for _, from := range symbols {
		for _, to := range symbols {
			if from == to {
				continue
			}
			_, err := s.Pairs.Get(ctx, from, to)
			if err == nil {
				continue
			}
			if !errors.Is(err, storage.ErrNotFound) {
				return fmt.Errorf("get pair %s->%s: %w", from, to, err)
			}
			if err := s.Pairs.Insert(ctx, &domain.Pair{FromCoin: from, ToCoin: to}); err != nil {
				return fmt.Errorf("insert pair %s->%s: %w", from, to, err)
			}
		}
	}
	return nil
}

// ResetUniverse deletes every pair, coin and the current coin, reseeds the supported
// coins and initializes thresholds from a fresh snapshot.
func (e *Engine) ResetUniverse(ctx context.Context) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	e.log.Warn().Msg("resetting pairs and coins")
	err := e.tx.RunInTx(ctx, func(ctx context.Context, s storage.Stores) error {
		if err := s.Pairs.DeleteAll(ctx); err != nil {
			return fmt.Errorf("delete pairs: %w", err)
		}
		if err := s.Coins.DeleteAll(ctx); err != nil {
			return fmt.Errorf("delete coins: %w", err)
		}
		if err := s.CurrentCoin.Clear(ctx); err != nil {
			return fmt.Errorf("clear current coin: %w", err)
		}
		return seedUniverse(ctx, s, e.settings.SupportedCoins)
	})
	if err != nil {
		return fmt.Errorf("reset universe: %w", err)
	}

	snap, err := e.prices.Snapshot(ctx)
	if err != nil {
		return fmt.Errorf("get price snapshot: %w", err)
	}
	_, err = e.InitializeThresholds(ctx, snap)
	return err
}

// SetCurrentCoin points the held coin at symbol, which must be an enabled coin.
func (e *Engine) SetCurrentCoin(ctx context.Context, symbol string) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	err := e.tx.RunInTx(ctx, func(ctx context.Context, s storage.Stores) error {
		c, err := s.Coins.Get(ctx, symbol)
		if errors.Is(err, storage.ErrNotFound) || (err == nil && !c.Enabled) {
			return fmt.Errorf("%s: %w", symbol, ErrUnknownCoin)
		}
		if err != nil {
			return fmt.Errorf("get coin %s: %w", symbol, err)
		}
		return s.CurrentCoin.Set(ctx, &domain.CurrentCoin{Coin: symbol, Datetime: e.now().UTC()})
	})
	if err != nil {
		return fmt.Errorf("set current coin: %w", err)
	}

	e.updateStatus(func(st *Status) { st.HeldCoin = symbol })
	e.log.Info().Str("coin", symbol).Msg("current coin set")
	return nil
}

// Startup seeds the universe, picks the initial held coin when none is stored and
// initializes thresholds. A coin picked automatically is bought with the bridge balance.
func (e *Engine) Startup(ctx context.Context) error {
	if err := e.SeedUniverse(ctx, e.settings.SupportedCoins); err != nil {
		return err
	}

	e.mu.Lock()
	defer e.mu.Unlock()

	snap, err := e.prices.Snapshot(ctx)
	if err != nil {
		return fmt.Errorf("get price snapshot: %w", err)
	}

	current, err := e.currentCoin(ctx)
	switch {
	case err == nil:
		e.log.Info().Str("coin", current).Msg("resuming with current coin")
	case errors.Is(err, ErrNoCurrentCoin):
		if err := e.chooseInitialCoin(ctx, snap); err != nil {
			return err
		}
	default:
		return err
	}

	_, err = e.InitializeThresholds(ctx, snap)
	return err
}

func (e *Engine) chooseInitialCoin(ctx context.Context, snap exchange.Snapshot) error {
	symbol := e.settings.CurrentCoin
	auto := symbol == ""
	if auto {
		if len(e.settings.SupportedCoins) == 0 {
			return fmt.Errorf("choose initial coin: %w", ErrUnknownCoin)
		}
		symbol = e.settings.SupportedCoins[0]
	}

	now := e.now().UTC()
	if err := e.stores.CurrentCoin.Set(ctx, &domain.CurrentCoin{Coin: symbol, Datetime: now}); err != nil {
		return fmt.Errorf("set current coin: %w", err)
	}
	e.updateStatus(func(st *Status) { st.HeldCoin = symbol })
	e.log.Info().Str("coin", symbol).Bool("auto", auto).Msg("initial current coin set")

	if !auto {
		return nil
	}

	e.log.Info().Str("coin", symbol).Msg("purchasing coin to begin trading")
	trade, _, err := e.buyInto(ctx, symbol, snap)
	if err != nil {
		return err
	}
	if trade == nil {
		e.log.Warn().Str("coin", symbol).Msg("initial purchase not filled")
		return nil
	}
	if err := e.stores.Trades.Insert(ctx, trade); err != nil {
		return fmt.Errorf("insert trade: %w", err)
	}
	return nil
}
