package binance

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"sync"
	"sync/atomic"
	"time"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"

	"altcoin-jumper/internal/exchange"
	"altcoin-jumper/internal/observability"
)

// StreamConfig configures the ticker stream.
type StreamConfig struct {
	// ReconnectDelay is initial delay before reconnect attempt.
	ReconnectDelay time.Duration
	// MaxReconnectDelay is maximum delay between reconnect attempts.
	MaxReconnectDelay time.Duration
	// PingInterval is interval for sending ping frames.
	PingInterval time.Duration
	// ReadTimeout is timeout for reading messages.
	ReadTimeout time.Duration
	// WriteTimeout is timeout for writing messages.
	WriteTimeout time.Duration
	// StaleAfter is how long cached prices are served without a stream update.
	StaleAfter time.Duration
}

// DefaultStreamConfig returns default stream configuration.
func DefaultStreamConfig() StreamConfig {
	return StreamConfig{
		ReconnectDelay:    1 * time.Second,
		MaxReconnectDelay: 30 * time.Second,
		PingInterval:      30 * time.Second,
		ReadTimeout:       60 * time.Second,
		WriteTimeout:      10 * time.Second,
		StaleAfter:        30 * time.Second,
	}
}

// PriceStream keeps a live price cache from the all-market mini ticker stream.
// Snapshot serves the cache while it is fresh and falls back to REST otherwise.
type PriceStream struct {
	endpoint string
	fallback exchange.PriceProvider
	config   StreamConfig
	log      zerolog.Logger

	conn   *websocket.Conn
	connMu sync.Mutex
	closed atomic.Bool

	mu      sync.RWMutex
	prices  map[string]float64
	updated time.Time

	done chan struct{}
	wg   sync.WaitGroup
}

// NewPriceStream creates a stream reading from endpoint (e.g. wss://stream.binance.com:9443).
func NewPriceStream(endpoint string, fallback exchange.PriceProvider, log zerolog.Logger, config *StreamConfig) *PriceStream {
	cfg := DefaultStreamConfig()
	if config != nil {
		cfg = *config
	}
	return &PriceStream{
		endpoint: endpoint + "/ws/!miniTicker@arr",
		fallback: fallback,
		config:   cfg,
		log:      log.With().Str("component", "price_stream").Logger(),
		prices:   make(map[string]float64),
		done:     make(chan struct{}),
	}
}

// Start seeds the cache from the fallback provider, connects and starts the reader.
func (s *PriceStream) Start(ctx context.Context) error {
	seed, err := s.fallback.Snapshot(ctx)
	if err != nil {
		return fmt.Errorf("seed prices: %w", err)
	}
	s.mu.Lock()
	for sym, p := range seed {
		s.prices[sym] = p
	}
	s.updated = time.Now()
	s.mu.Unlock()

	if err := s.connect(ctx); err != nil {
		return err
	}

	s.wg.Add(2)
	go s.readLoop()
	go s.pingLoop()

	return nil
}

// Snapshot returns a copy of the cached prices, or a REST snapshot when the cache is stale.
func (s *PriceStream) Snapshot(ctx context.Context) (exchange.Snapshot, error) {
	s.mu.RLock()
	fresh := len(s.prices) > 0 && time.Since(s.updated) <= s.config.StaleAfter
	if fresh {
		snap := make(exchange.Snapshot, len(s.prices))
		for sym, p := range s.prices {
			snap[sym] = p
		}
		s.mu.RUnlock()
		return snap, nil
	}
	s.mu.RUnlock()

	s.log.Debug().Msg("price cache stale, falling back to rest")
	return s.fallback.Snapshot(ctx)
}

// Close stops the stream.
func (s *PriceStream) Close() error {
	if s.closed.Swap(true) {
		return nil
	}

	close(s.done)

	s.connMu.Lock()
	if s.conn != nil {
		s.conn.WriteMessage(websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
		s.conn.Close()
	}
	s.connMu.Unlock()

	s.wg.Wait()
	return nil
}

func (s *PriceStream) connect(ctx context.Context) error {
	dialer := websocket.Dialer{HandshakeTimeout: 10 * time.Second}

	conn, _, err := dialer.DialContext(ctx, s.endpoint, nil)
	if err != nil {
		return fmt.Errorf("websocket dial: %w", err)
	}

	s.connMu.Lock()
	s.conn = conn
	s.connMu.Unlock()
	return nil
}

// readLoop applies ticker updates and reconnects with exponential backoff on read errors.
func (s *PriceStream) readLoop() {
	defer s.wg.Done()

	delay := s.config.ReconnectDelay

	for !s.closed.Load() {
		s.connMu.Lock()
		conn := s.conn
		s.connMu.Unlock()

		if conn != nil {
			conn.SetReadDeadline(time.Now().Add(s.config.ReadTimeout))
			_, message, err := conn.ReadMessage()
			if err == nil {
				delay = s.config.ReconnectDelay
				s.handleMessage(message)
				continue
			}
			if s.closed.Load() {
				return
			}
			s.log.Warn().Err(err).Msg("price stream read failed")
			conn.Close()
			s.connMu.Lock()
			s.conn = nil
			s.connMu.Unlock()
		}

		select {
		case <-s.done:
			return
		case <-time.After(delay):
		}

		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		err := s.connect(ctx)
		cancel()
		if err != nil {
			s.log.Warn().Err(err).Dur("delay", delay).Msg("price stream reconnect failed")
			delay *= 2
			if delay > s.config.MaxReconnectDelay {
				delay = s.config.MaxReconnectDelay
			}
			continue
		}
		observability.RecordStreamReconnect()
		s.log.Info().Msg("price stream reconnected")
	}
}

// miniTicker is one element of the !miniTicker@arr payload.
type miniTicker struct {
	Event  string `json:"e"`
	Symbol string `json:"s"`
	Close  string `json:"c"`
}

func (s *PriceStream) handleMessage(message []byte) {
	var tickers []miniTicker
	if err := json.Unmarshal(message, &tickers); err != nil {
		s.log.Debug().Err(err).Msg("ignoring non-ticker message")
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	for _, t := range tickers {
		p, err := strconv.ParseFloat(t.Close, 64)
		if err != nil || t.Symbol == "" {
			continue
		}
		s.prices[t.Symbol] = p
	}
	s.updated = time.Now()
	observability.RecordPriceUpdate()
}

// pingLoop sends periodic ping frames to keep connection alive.
func (s *PriceStream) pingLoop() {
	defer s.wg.Done()

	ticker := time.NewTicker(s.config.PingInterval)
	defer ticker.Stop()

	for {
		select {
		case <-s.done:
			return
		case <-ticker.C:
			s.connMu.Lock()
			if s.conn != nil {
				s.conn.SetWriteDeadline(time.Now().Add(s.config.WriteTimeout))
				// A failed ping surfaces as a read error in readLoop
				_ = s.conn.WriteMessage(websocket.PingMessage, nil)
			}
			s.connMu.Unlock()
		}
	}
}

var _ exchange.PriceProvider = (*PriceStream)(nil)
