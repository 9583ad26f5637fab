package engine

import (
	"context"
	"fmt"
	"strings"
	"time"
)

// RenderScoutTable renders the scores of an evaluation as a Markdown table.
func RenderScoutTable(ev *Evaluation, at time.Time) string {
	var sb strings.Builder

	sb.WriteString("| Time | To Coin | Result | % | To Price | Possible Coins |\n")
	sb.WriteString("|------|---------|--------|---|----------|----------------|\n")
	for _, s := range ev.Scores {
		possible := ev.BalanceValue / s.ToPrice * (1 - s.Fee)
		sb.WriteString(fmt.Sprintf("| %s | %6s | %10.5f | %.1f%% | %10.4f | %10.3f |\n",
			at.Format("15:04:05"), s.Pair.ToCoin, s.Score, s.Progress, s.ToPrice, possible))
	}

	return sb.String()
}

// reportHeld logs the held coin's balance, its profit against the last trade and the
// scout table through the rate-limited logger.
func (e *Engine) reportHeld(ctx context.Context, ev *Evaluation) {
	if ev.Balance > 0 {
		e.report.Event("held").
			Str("coin", ev.Coin).
			Float64("price", ev.Price).
			Float64("balance", ev.Balance).
			Float64("value", ev.BalanceValue).
			Msg("held coin")
	}

	last := ev.LastTrade
	if ev.Balance > 0 && last != nil && last.CryptoTradeAmount != 0 {
		e.report.Event("profit").
			Float64("last_trade_value", last.CryptoTradeAmount).
			Float64("profit_pct", ev.Profit).
			Float64("profit_abs", ev.BalanceValue-last.CryptoTradeAmount).
			Msg("value since last trade")

		prev, err := e.stores.Trades.LastFor(ctx, last.AltCoin, last.Datetime)
		if err == nil && prev.AltTradeAmount != 0 && prev.CryptoTradeAmount != 0 {
			prevPrice := prev.UnitPrice()
			e.report.Event("history").
				Str("coin", last.AltCoin).
				Time("previous_trade", prev.Datetime).
				Float64("previous_coins", prev.AltTradeAmount).
				Float64("coins_change_pct", last.AltTradeAmount/prev.AltTradeAmount*100-100).
				Float64("previous_price", prevPrice).
				Float64("price_change_pct", ev.Price/prevPrice*100-100).
				Float64("previous_value", prev.CryptoTradeAmount).
				Float64("value_change_pct", last.CryptoTradeAmount/prev.CryptoTradeAmount*100-100).
				Msg("change since previous trade into coin")
		}
	}

	if len(ev.Scores) > 0 {
		e.report.Event("scout_table").Msg("scout results\n" + RenderScoutTable(ev, e.now()))
	}
}
