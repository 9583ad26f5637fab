package binance

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"

	"altcoin-jumper/internal/exchange"
)

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool { return true },
}

type staticPrices struct {
	snap  exchange.Snapshot
	calls atomic.Int32
}

func (s *staticPrices) Snapshot(context.Context) (exchange.Snapshot, error) {
	s.calls.Add(1)
	out := make(exchange.Snapshot, len(s.snap))
	for k, v := range s.snap {
		out[k] = v
	}
	return out, nil
}

func waitFor(t *testing.T, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(10 * time.Millisecond)
	}
	t.Fatal("condition not met before deadline")
}

func TestPriceStream_AppliesTickers(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/ws/!miniTicker@arr" {
			t.Errorf("unexpected path %s", r.URL.Path)
		}
		c, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			t.Errorf("upgrade: %v", err)
			return
		}
		defer c.Close()

		c.WriteMessage(websocket.TextMessage, []byte(
			`[{"e":"24hrMiniTicker","s":"ADAUSDT","c":"0.40"},{"e":"24hrMiniTicker","s":"DOTUSDT","c":"5.5"}]`))

		for {
			if _, _, err := c.ReadMessage(); err != nil {
				return
			}
		}
	}))
	defer server.Close()

	fallback := &staticPrices{snap: exchange.Snapshot{"ADAUSDT": 0.35, "XLMUSDT": 0.11}}
	wsURL := "ws" + strings.TrimPrefix(server.URL, "http")

	stream := NewPriceStream(wsURL, fallback, zerolog.Nop(), nil)
	if err := stream.Start(context.Background()); err != nil {
		t.Fatalf("Start: %v", err)
	}
	defer stream.Close()

	ctx := context.Background()
	waitFor(t, func() bool {
		snap, _ := stream.Snapshot(ctx)
		p, _ := snap.Price("ADA", "USDT")
		return p == 0.40
	})

	snap, err := stream.Snapshot(ctx)
	if err != nil {
		t.Fatalf("Snapshot: %v", err)
	}
	if p, _ := snap.Price("DOT", "USDT"); p != 5.5 {
		t.Errorf("DOTUSDT = %v, want 5.5", p)
	}
	if p, _ := snap.Price("XLM", "USDT"); p != 0.11 {
		t.Errorf("seeded XLMUSDT = %v, want 0.11", p)
	}

	// Callers own their copy
	snap["ADAUSDT"] = 99
	again, _ := stream.Snapshot(ctx)
	if again["ADAUSDT"] != 0.40 {
		t.Errorf("snapshot mutation leaked into cache")
	}

	if fallback.calls.Load() != 1 {
		t.Errorf("fallback used %d times, want 1 (seed only)", fallback.calls.Load())
	}
}

func TestPriceStream_StaleFallsBack(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		c, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			return
		}
		defer c.Close()
		for {
			if _, _, err := c.ReadMessage(); err != nil {
				return
			}
		}
	}))
	defer server.Close()

	fallback := &staticPrices{snap: exchange.Snapshot{"ADAUSDT": 0.35}}
	wsURL := "ws" + strings.TrimPrefix(server.URL, "http")

	cfg := DefaultStreamConfig()
	cfg.StaleAfter = 20 * time.Millisecond
	stream := NewPriceStream(wsURL, fallback, zerolog.Nop(), &cfg)
	if err := stream.Start(context.Background()); err != nil {
		t.Fatalf("Start: %v", err)
	}
	defer stream.Close()

	time.Sleep(50 * time.Millisecond)

	snap, err := stream.Snapshot(context.Background())
	if err != nil {
		t.Fatalf("Snapshot: %v", err)
	}
	if snap["ADAUSDT"] != 0.35 {
		t.Errorf("ADAUSDT = %v, want 0.35", snap["ADAUSDT"])
	}
	if fallback.calls.Load() != 2 {
		t.Errorf("fallback used %d times, want 2", fallback.calls.Load())
	}
}

func TestPriceStream_Reconnects(t *testing.T) {
	var conns atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		c, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			return
		}
		n := conns.Add(1)
		if n == 1 {
			// Drop the first connection immediately
			c.Close()
			return
		}
		defer c.Close()
		c.WriteMessage(websocket.TextMessage, []byte(`[{"e":"24hrMiniTicker","s":"ADAUSDT","c":"0.50"}]`))
		for {
			if _, _, err := c.ReadMessage(); err != nil {
				return
			}
		}
	}))
	defer server.Close()

	fallback := &staticPrices{snap: exchange.Snapshot{"ADAUSDT": 0.35}}
	wsURL := "ws" + strings.TrimPrefix(server.URL, "http")

	cfg := DefaultStreamConfig()
	cfg.ReconnectDelay = 10 * time.Millisecond
	stream := NewPriceStream(wsURL, fallback, zerolog.Nop(), &cfg)
	if err := stream.Start(context.Background()); err != nil {
		t.Fatalf("Start: %v", err)
	}
	defer stream.Close()

	waitFor(t, func() bool {
		snap, _ := stream.Snapshot(context.Background())
		return snap["ADAUSDT"] == 0.50
	})

	if conns.Load() < 2 {
		t.Errorf("expected reconnect, got %d connections", conns.Load())
	}
}

func TestPriceStream_CloseIdempotent(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		c, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			return
		}
		defer c.Close()
		for {
			if _, _, err := c.ReadMessage(); err != nil {
				return
			}
		}
	}))
	defer server.Close()

	stream := NewPriceStream("ws"+strings.TrimPrefix(server.URL, "http"), &staticPrices{snap: exchange.Snapshot{}}, zerolog.Nop(), nil)
	if err := stream.Start(context.Background()); err != nil {
		t.Fatalf("Start: %v", err)
	}

	if err := stream.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}
	if err := stream.Close(); err != nil {
		t.Fatalf("second Close: %v", err)
	}
}
