package binance

import (
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"
)

const (
	testKey    = "test-key"
	testSecret = "test-secret"
)

func newTestClient(url string) *Client {
	return NewClient(testKey, testSecret,
		WithBaseURL(url),
		WithRetryDelay(time.Millisecond),
		WithClock(func() time.Time { return time.UnixMilli(1700000000000) }),
	)
}

// verifySignature checks that the signature is the last parameter and matches the payload before it.
func verifySignature(t *testing.T, raw string) {
	t.Helper()
	idx := strings.LastIndex(raw, "&signature=")
	if idx < 0 {
		t.Fatalf("signature missing from %q", raw)
	}
	payload, sig := raw[:idx], raw[idx+len("&signature="):]

	mac := hmac.New(sha256.New, []byte(testSecret))
	mac.Write([]byte(payload))
	if want := hex.EncodeToString(mac.Sum(nil)); sig != want {
		t.Errorf("signature = %s, want %s", sig, want)
	}
	if !strings.Contains(payload, "timestamp=1700000000000") {
		t.Errorf("timestamp missing from %q", payload)
	}
	if !strings.Contains(payload, "recvWindow=5000") {
		t.Errorf("recvWindow missing from %q", payload)
	}
}

func writeJSON(w http.ResponseWriter, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(v)
}

const exchangeInfoADA = `{"symbols":[{"symbol":"ADAUSDT","status":"TRADING","quoteAssetPrecision":8,
"filters":[{"filterType":"PRICE_FILTER"},
{"filterType":"LOT_SIZE","stepSize":"0.10000000","minQty":"0.10000000"},
{"filterType":"NOTIONAL","minNotional":"5.00000000"}]}]}`

func TestClient_Snapshot(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/api/v3/ticker/price" {
			t.Errorf("unexpected path %s", r.URL.Path)
		}
		writeJSON(w, []map[string]string{
			{"symbol": "ADAUSDT", "price": "0.35000000"},
			{"symbol": "XLMUSDT", "price": "0.11000000"},
			{"symbol": "BADUSDT", "price": "not-a-number"},
		})
	}))
	defer server.Close()

	snap, err := newTestClient(server.URL).Snapshot(context.Background())
	if err != nil {
		t.Fatalf("Snapshot: %v", err)
	}

	if len(snap) != 2 {
		t.Errorf("expected 2 prices, got %d", len(snap))
	}
	if p, ok := snap.Price("ADA", "USDT"); !ok || p != 0.35 {
		t.Errorf("ADAUSDT = %v (%v), want 0.35", p, ok)
	}
}

func TestClient_MinNotional_Cached(t *testing.T) {
	var calls atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		if got := r.URL.Query().Get("symbol"); got != "ADAUSDT" {
			t.Errorf("symbol = %s, want ADAUSDT", got)
		}
		io.WriteString(w, exchangeInfoADA)
	}))
	defer server.Close()

	client := newTestClient(server.URL)
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		mn, err := client.MinNotional(ctx, "ADA", "USDT")
		if err != nil {
			t.Fatalf("MinNotional: %v", err)
		}
		if mn != 5 {
			t.Errorf("MinNotional = %v, want 5", mn)
		}
	}

	if calls.Load() != 1 {
		t.Errorf("expected exchangeInfo to be fetched once, got %d", calls.Load())
	}
}

func TestClient_BalanceOf_Signed(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("X-MBX-APIKEY") != testKey {
			t.Errorf("api key header = %q", r.Header.Get("X-MBX-APIKEY"))
		}
		verifySignature(t, r.URL.RawQuery)
		writeJSON(w, map[string]interface{}{
			"balances": []map[string]string{
				{"asset": "ADA", "free": "120.5", "locked": "0"},
				{"asset": "USDT", "free": "0.00000000", "locked": "0"},
			},
		})
	}))
	defer server.Close()

	client := newTestClient(server.URL)
	ctx := context.Background()

	bal, err := client.BalanceOf(ctx, "ADA")
	if err != nil {
		t.Fatalf("BalanceOf: %v", err)
	}
	if bal != 120.5 {
		t.Errorf("ADA balance = %v, want 120.5", bal)
	}

	bal, err = client.BalanceOf(ctx, "DOT")
	if err != nil {
		t.Fatalf("BalanceOf unknown: %v", err)
	}
	if bal != 0 {
		t.Errorf("unknown asset balance = %v, want 0", bal)
	}
}

func TestClient_Fee(t *testing.T) {
	var calls atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		verifySignature(t, r.URL.RawQuery)
		writeJSON(w, []map[string]string{
			{"symbol": "ADAUSDT", "makerCommission": "0.00075", "takerCommission": "0.001"},
		})
	}))
	defer server.Close()

	client := newTestClient(server.URL)
	ctx := context.Background()

	maker, err := client.Fee(ctx, "ADA", "USDT", true)
	if err != nil {
		t.Fatalf("Fee: %v", err)
	}
	if maker != 0.00075 {
		t.Errorf("maker fee = %v, want 0.00075", maker)
	}

	taker, _ := client.Fee(ctx, "ADA", "USDT", false)
	if taker != 0.001 {
		t.Errorf("taker fee = %v, want 0.001", taker)
	}

	other, _ := client.Fee(ctx, "XLM", "USDT", false)
	if other != DefaultFee {
		t.Errorf("fallback fee = %v, want %v", other, DefaultFee)
	}

	if calls.Load() != 1 {
		t.Errorf("expected fee table to be fetched once, got %d", calls.Load())
	}
}

func TestClient_Sell_RoundsToStep(t *testing.T) {
	var orderBody string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/api/v3/exchangeInfo":
			io.WriteString(w, exchangeInfoADA)
		case "/api/v3/account":
			writeJSON(w, map[string]interface{}{
				"balances": []map[string]string{{"asset": "ADA", "free": "100.37"}},
			})
		case "/api/v3/order":
			if r.Method != http.MethodPost {
				t.Errorf("order method = %s", r.Method)
			}
			body, _ := io.ReadAll(r.Body)
			orderBody = string(body)
			verifySignature(t, orderBody)
			writeJSON(w, map[string]interface{}{
				"symbol":              "ADAUSDT",
				"orderId":             42,
				"price":               "0.00000000",
				"origQty":             "100.30000000",
				"executedQty":         "100.30000000",
				"cummulativeQuoteQty": "35.10500000",
				"status":              "FILLED",
			})
		default:
			t.Errorf("unexpected path %s", r.URL.Path)
		}
	}))
	defer server.Close()

	fill, err := newTestClient(server.URL).Sell(context.Background(), "ADA", "USDT", nil)
	if err != nil {
		t.Fatalf("Sell: %v", err)
	}
	if fill == nil {
		t.Fatal("expected fill, got nil")
	}

	if !strings.Contains(orderBody, "quantity=100.3&") {
		t.Errorf("quantity not rounded to step: %s", orderBody)
	}
	for _, want := range []string{"side=SELL", "type=MARKET", "symbol=ADAUSDT", "newOrderRespType=FULL", "newClientOrderId="} {
		if !strings.Contains(orderBody, want) {
			t.Errorf("order body missing %s: %s", want, orderBody)
		}
	}

	if fill.OrderID != "42" {
		t.Errorf("OrderID = %s, want 42", fill.OrderID)
	}
	if fill.CumulativeQuoteQty != 35.105 {
		t.Errorf("CumulativeQuoteQty = %v, want 35.105", fill.CumulativeQuoteQty)
	}
	if fill.OrigQty != 100.3 {
		t.Errorf("OrigQty = %v, want 100.3", fill.OrigQty)
	}
}

func TestClient_Buy_BelowMinNotional(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/api/v3/exchangeInfo":
			io.WriteString(w, exchangeInfoADA)
		case "/api/v3/account":
			writeJSON(w, map[string]interface{}{
				"balances": []map[string]string{{"asset": "USDT", "free": "4.99"}},
			})
		case "/api/v3/order":
			t.Error("order must not be placed below min notional")
		}
	}))
	defer server.Close()

	fill, err := newTestClient(server.URL).Buy(context.Background(), "ADA", "USDT", nil)
	if err != nil {
		t.Fatalf("Buy: %v", err)
	}
	if fill != nil {
		t.Errorf("expected nil fill, got %+v", fill)
	}
}

func TestClient_Order_RejectedIsNilFill(t *testing.T) {
	var orders atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/api/v3/exchangeInfo":
			io.WriteString(w, exchangeInfoADA)
		case "/api/v3/account":
			writeJSON(w, map[string]interface{}{
				"balances": []map[string]string{{"asset": "USDT", "free": "50"}},
			})
		case "/api/v3/order":
			orders.Add(1)
			w.WriteHeader(http.StatusBadRequest)
			io.WriteString(w, `{"code":-2010,"msg":"Account has insufficient balance for requested action."}`)
		}
	}))
	defer server.Close()

	fill, err := newTestClient(server.URL).Buy(context.Background(), "ADA", "USDT", nil)
	if err != nil {
		t.Fatalf("Buy: %v", err)
	}
	if fill != nil {
		t.Errorf("expected nil fill, got %+v", fill)
	}
	if orders.Load() != 1 {
		t.Errorf("expected exactly one order attempt, got %d", orders.Load())
	}
}

func TestClient_Order_ServerErrorNotRetried(t *testing.T) {
	var orders atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/api/v3/exchangeInfo":
			io.WriteString(w, exchangeInfoADA)
		case "/api/v3/account":
			writeJSON(w, map[string]interface{}{
				"balances": []map[string]string{{"asset": "USDT", "free": "50"}},
			})
		case "/api/v3/order":
			orders.Add(1)
			w.WriteHeader(http.StatusInternalServerError)
		}
	}))
	defer server.Close()

	_, err := newTestClient(server.URL).Buy(context.Background(), "ADA", "USDT", nil)
	if err == nil {
		t.Fatal("expected error on server failure")
	}
	if orders.Load() != 1 {
		t.Errorf("orders must not be retried, got %d attempts", orders.Load())
	}
}

func TestClient_RetryOnServerError(t *testing.T) {
	var attempts atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if attempts.Add(1) < 3 {
			w.WriteHeader(http.StatusBadGateway)
			return
		}
		writeJSON(w, []map[string]string{{"symbol": "ADAUSDT", "price": "0.35"}})
	}))
	defer server.Close()

	snap, err := newTestClient(server.URL).Snapshot(context.Background())
	if err != nil {
		t.Fatalf("Snapshot: %v", err)
	}
	if len(snap) != 1 {
		t.Errorf("expected 1 price, got %d", len(snap))
	}
	if attempts.Load() != 3 {
		t.Errorf("expected 3 attempts, got %d", attempts.Load())
	}
}

func TestClient_MaxRetriesExceeded(t *testing.T) {
	var attempts atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		attempts.Add(1)
		w.WriteHeader(http.StatusTooManyRequests)
	}))
	defer server.Close()

	client := NewClient(testKey, testSecret, WithBaseURL(server.URL), WithRetryDelay(time.Millisecond), WithMaxRetries(2))
	_, err := client.Snapshot(context.Background())
	if err == nil {
		t.Fatal("expected error after retries")
	}
	if attempts.Load() != 3 {
		t.Errorf("expected 3 attempts, got %d", attempts.Load())
	}
}

func TestClient_APIError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
		io.WriteString(w, `{"code":-2015,"msg":"Invalid API-key"}`)
	}))
	defer server.Close()

	_, err := newTestClient(server.URL).BalanceOf(context.Background(), "ADA")
	if err == nil {
		t.Fatal("expected error")
	}
	if !strings.Contains(err.Error(), "-2015") {
		t.Errorf("error should carry api code: %v", err)
	}
}
