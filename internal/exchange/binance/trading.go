package binance

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strconv"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"altcoin-jumper/internal/exchange"
)

// BalanceOf returns the free balance of asset.
func (c *Client) BalanceOf(ctx context.Context, asset string) (float64, error) {
	var account struct {
		Balances []struct {
			Asset string `json:"asset"`
			Free  string `json:"free"`
		} `json:"balances"`
	}
	err := c.do(ctx, request{method: http.MethodGet, path: "/api/v3/account", signed: true, retry: true}, &account)
	if err != nil {
		return 0, fmt.Errorf("get account: %w", err)
	}

	for _, b := range account.Balances {
		if b.Asset == asset {
			free, err := strconv.ParseFloat(b.Free, 64)
			if err != nil {
				return 0, fmt.Errorf("parse %s balance: %w", asset, err)
			}
			return free, nil
		}
	}
	return 0, nil
}

type tradeFee struct {
	Maker float64
	Taker float64
}

// Fee returns the account's commission for coin/bridge. The fee table is loaded once.
// Symbols missing from the table fall back to DefaultFee.
func (c *Client) Fee(ctx context.Context, coin, bridge string, isMaker bool) (float64, error) {
	if err := c.loadFees(ctx); err != nil {
		return 0, err
	}

	c.feesMu.RLock()
	fee, ok := c.fees[exchange.Symbol(coin, bridge)]
	c.feesMu.RUnlock()

	if !ok {
		return DefaultFee, nil
	}
	if isMaker {
		return fee.Maker, nil
	}
	return fee.Taker, nil
}

func (c *Client) loadFees(ctx context.Context) error {
	c.feesMu.RLock()
	loaded := c.fees != nil
	c.feesMu.RUnlock()
	if loaded {
		return nil
	}

	var resp []struct {
		Symbol          string `json:"symbol"`
		MakerCommission string `json:"makerCommission"`
		TakerCommission string `json:"takerCommission"`
	}
	err := c.do(ctx, request{method: http.MethodGet, path: "/sapi/v1/asset/tradeFee", signed: true, retry: true}, &resp)
	if err != nil {
		return fmt.Errorf("get trade fees: %w", err)
	}

	fees := make(map[string]tradeFee, len(resp))
	for _, f := range resp {
		maker, err1 := strconv.ParseFloat(f.MakerCommission, 64)
		taker, err2 := strconv.ParseFloat(f.TakerCommission, 64)
		if err1 != nil || err2 != nil {
			continue
		}
		fees[f.Symbol] = tradeFee{Maker: maker, Taker: taker}
	}

	c.feesMu.Lock()
	c.fees = fees
	c.feesMu.Unlock()
	return nil
}

// Sell sells the whole free coin balance for bridge at market.
func (c *Client) Sell(ctx context.Context, coin, bridge string, _ exchange.Snapshot) (*exchange.Fill, error) {
	symbol := exchange.Symbol(coin, bridge)
	info, err := c.symbolRules(ctx, symbol)
	if err != nil {
		return nil, err
	}

	balance, err := c.BalanceOf(ctx, coin)
	if err != nil {
		return nil, err
	}

	qty := info.roundQty(decimal.NewFromFloat(balance))
	if !qty.IsPositive() || qty.LessThan(info.MinQty) {
		c.log.Info().Str("symbol", symbol).Float64("balance", balance).Msg("sell quantity below lot size")
		return nil, nil
	}

	params := url.Values{"quantity": {qty.String()}}
	return c.marketOrder(ctx, symbol, exchange.SideSell, params)
}

// Buy spends the whole free bridge balance on coin at market.
func (c *Client) Buy(ctx context.Context, coin, bridge string, _ exchange.Snapshot) (*exchange.Fill, error) {
	symbol := exchange.Symbol(coin, bridge)
	info, err := c.symbolRules(ctx, symbol)
	if err != nil {
		return nil, err
	}

	balance, err := c.BalanceOf(ctx, bridge)
	if err != nil {
		return nil, err
	}

	quote := decimal.NewFromFloat(balance).Truncate(info.QuoteAssetPrecision)
	if !quote.IsPositive() || quote.LessThan(info.MinNotional) {
		c.log.Info().Str("symbol", symbol).Float64("bridge_balance", balance).Msg("buy amount below min notional")
		return nil, nil
	}

	params := url.Values{"quoteOrderQty": {quote.String()}}
	return c.marketOrder(ctx, symbol, exchange.SideBuy, params)
}

type orderResponse struct {
	Symbol              string `json:"symbol"`
	OrderID             int64  `json:"orderId"`
	ClientOrderID       string `json:"clientOrderId"`
	Price               string `json:"price"`
	OrigQty             string `json:"origQty"`
	ExecutedQty         string `json:"executedQty"`
	CummulativeQuoteQty string `json:"cummulativeQuoteQty"`
	Status              string `json:"status"`
}

// marketOrder places a MARKET order. Rejections by the exchange yield a nil fill.
// Orders are never retried.
func (c *Client) marketOrder(ctx context.Context, symbol string, side exchange.Side, params url.Values) (*exchange.Fill, error) {
	params.Set("symbol", symbol)
	params.Set("side", string(side))
	params.Set("type", "MARKET")
	params.Set("newOrderRespType", "FULL")
	params.Set("newClientOrderId", uuid.NewString())

	var resp orderResponse
	err := c.do(ctx, request{method: http.MethodPost, path: "/api/v3/order", params: params, signed: true}, &resp)
	if err != nil {
		var apiErr *APIError
		if errors.As(err, &apiErr) {
			c.log.Warn().Err(apiErr).Str("symbol", symbol).Str("side", string(side)).Msg("order rejected")
			return nil, nil
		}
		return nil, fmt.Errorf("place %s order %s: %w", side, symbol, err)
	}

	executed := parseDecimal(resp.ExecutedQty)
	if !executed.IsPositive() {
		c.log.Warn().Str("symbol", symbol).Str("status", resp.Status).Msg("order not executed")
		return nil, nil
	}

	fill := &exchange.Fill{
		OrderID:            strconv.FormatInt(resp.OrderID, 10),
		Symbol:             resp.Symbol,
		Side:               side,
		Price:              parseDecimal(resp.Price).InexactFloat64(),
		CumulativeQuoteQty: parseDecimal(resp.CummulativeQuoteQty).InexactFloat64(),
		OrigQty:            parseDecimal(resp.OrigQty).InexactFloat64(),
	}

	c.log.Info().
		Str("order_id", fill.OrderID).
		Str("symbol", symbol).
		Str("side", string(side)).
		Str("status", resp.Status).
		Float64("quote_qty", fill.CumulativeQuoteQty).
		Float64("orig_qty", fill.OrigQty).
		Msg("order filled")

	return fill, nil
}

var _ exchange.Client = (*Client)(nil)
var _ exchange.PriceProvider = (*Client)(nil)
