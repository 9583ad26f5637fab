package binance

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strconv"

	"github.com/shopspring/decimal"

	"altcoin-jumper/internal/exchange"
)

// Snapshot fetches the last price of every symbol.
func (c *Client) Snapshot(ctx context.Context) (exchange.Snapshot, error) {
	var tickers []struct {
		Symbol string `json:"symbol"`
		Price  string `json:"price"`
	}
	err := c.do(ctx, request{method: http.MethodGet, path: "/api/v3/ticker/price", retry: true}, &tickers)
	if err != nil {
		return nil, fmt.Errorf("get ticker prices: %w", err)
	}

	snap := make(exchange.Snapshot, len(tickers))
	for _, t := range tickers {
		p, err := strconv.ParseFloat(t.Price, 64)
		if err != nil {
			continue
		}
		snap[t.Symbol] = p
	}
	return snap, nil
}

// symbolInfo holds the trading rules of one symbol.
type symbolInfo struct {
	Symbol              string
	StepSize            decimal.Decimal
	MinQty              decimal.Decimal
	MinNotional         decimal.Decimal
	QuoteAssetPrecision int32
}

type exchangeInfoResponse struct {
	Symbols []struct {
		Symbol              string `json:"symbol"`
		Status              string `json:"status"`
		QuoteAssetPrecision int32  `json:"quoteAssetPrecision"`
		Filters             []struct {
			FilterType  string `json:"filterType"`
			StepSize    string `json:"stepSize"`
			MinQty      string `json:"minQty"`
			MinNotional string `json:"minNotional"`
		} `json:"filters"`
	} `json:"symbols"`
}

// symbolRules returns cached trading rules for symbol, fetching them on first use.
func (c *Client) symbolRules(ctx context.Context, symbol string) (*symbolInfo, error) {
	c.symbolsMu.RLock()
	info, ok := c.symbols[symbol]
	c.symbolsMu.RUnlock()
	if ok {
		return info, nil
	}

	var resp exchangeInfoResponse
	params := url.Values{"symbol": {symbol}}
	err := c.do(ctx, request{method: http.MethodGet, path: "/api/v3/exchangeInfo", params: params, retry: true}, &resp)
	if err != nil {
		return nil, fmt.Errorf("get exchange info %s: %w", symbol, err)
	}
	if len(resp.Symbols) == 0 {
		return nil, fmt.Errorf("symbol %s not listed", symbol)
	}

	s := resp.Symbols[0]
	info = &symbolInfo{Symbol: s.Symbol, QuoteAssetPrecision: s.QuoteAssetPrecision}
	if info.QuoteAssetPrecision == 0 {
		info.QuoteAssetPrecision = 8
	}
	for _, f := range s.Filters {
		switch f.FilterType {
		case "LOT_SIZE":
			info.StepSize = parseDecimal(f.StepSize)
			info.MinQty = parseDecimal(f.MinQty)
		case "MIN_NOTIONAL", "NOTIONAL":
			info.MinNotional = parseDecimal(f.MinNotional)
		}
	}

	c.symbolsMu.Lock()
	c.symbols[symbol] = info
	c.symbolsMu.Unlock()

	return info, nil
}

// MinNotional returns the minimum order value of coin/bridge.
func (c *Client) MinNotional(ctx context.Context, coin, bridge string) (float64, error) {
	info, err := c.symbolRules(ctx, exchange.Symbol(coin, bridge))
	if err != nil {
		return 0, err
	}
	return info.MinNotional.InexactFloat64(), nil
}

// roundQty floors qty to the symbol's step size.
func (s *symbolInfo) roundQty(qty decimal.Decimal) decimal.Decimal {
	if !s.StepSize.IsPositive() {
		return qty
	}
	return qty.Div(s.StepSize).Floor().Mul(s.StepSize)
}

func parseDecimal(s string) decimal.Decimal {
	d, err := decimal.NewFromString(s)
	if err != nil {
		return decimal.Zero
	}
	return d
}
