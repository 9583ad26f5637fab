// Package notify publishes recorded coin values to external consumers.
package notify

import (
	"context"

	"altcoin-jumper/internal/domain"
)

// Sink receives every CoinValue the engine records.
type Sink interface {
	Send(ctx context.Context, values []*domain.CoinValue) error
}

// NopSink discards values.
type NopSink struct{}

// Send implements Sink.
func (NopSink) Send(context.Context, []*domain.CoinValue) error { return nil }

var _ Sink = NopSink{}
