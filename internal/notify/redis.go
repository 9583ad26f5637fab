package notify

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	"altcoin-jumper/internal/domain"
)

// DefaultLatestKey is the hash holding the most recent value message per coin.
const DefaultLatestKey = "coin_values:latest"

// Message is the JSON payload published for one CoinValue.
type Message struct {
	Coin     string   `json:"coin"`
	Balance  float64  `json:"balance"`
	USDValue *float64 `json:"usd_value"`
	BTCValue *float64 `json:"btc_value"`
	Interval string   `json:"interval"`
	Datetime string   `json:"datetime"`
}

// NewMessage converts a CoinValue to its wire form.
func NewMessage(v *domain.CoinValue) Message {
	return Message{
		Coin:     v.Coin,
		Balance:  v.Balance,
		USDValue: v.USDValue,
		BTCValue: v.BTCValue,
		Interval: string(v.Interval),
		Datetime: v.Datetime.UTC().Format(time.RFC3339Nano),
	}
}

// RedisSink publishes each value on a channel and keeps the latest value per coin in a hash.
type RedisSink struct {
	client    *redis.Client
	channel   string
	latestKey string
	log       zerolog.Logger
}

// NewRedisSink creates a sink publishing on channel.
func NewRedisSink(client *redis.Client, channel string, log zerolog.Logger) *RedisSink {
	return &RedisSink{
		client:    client,
		channel:   channel,
		latestKey: DefaultLatestKey,
		log:       log.With().Str("component", "redis_sink").Logger(),
	}
}

// Send publishes values and updates the latest-value hash in one pipeline.
func (s *RedisSink) Send(ctx context.Context, values []*domain.CoinValue) error {
	if len(values) == 0 {
		return nil
	}

	pipe := s.client.TxPipeline()
	fields := make(map[string]interface{}, len(values))
	for _, v := range values {
		payload, err := json.Marshal(NewMessage(v))
		if err != nil {
			return fmt.Errorf("marshal coin value %s: %w", v.Coin, err)
		}
		pipe.Publish(ctx, s.channel, payload)
		fields[v.Coin] = payload
	}
	pipe.HSet(ctx, s.latestKey, fields)

	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("redis publish coin values: %w", err)
	}

	s.log.Debug().Int("count", len(values)).Str("channel", s.channel).Msg("coin values published")
	return nil
}

// Latest returns the last published message for coin. Returns redis.Nil if none exists.
func (s *RedisSink) Latest(ctx context.Context, coin string) (*Message, error) {
	raw, err := s.client.HGet(ctx, s.latestKey, coin).Bytes()
	if err != nil {
		return nil, err
	}
	var msg Message
	if err := json.Unmarshal(raw, &msg); err != nil {
		return nil, fmt.Errorf("unmarshal latest %s: %w", coin, err)
	}
	return &msg, nil
}

var _ Sink = (*RedisSink)(nil)
