// Package redisstream carries events and commands over Redis Streams.
package redisstream

import (
	"context"
	"fmt"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	"github.com/iho/goescrow/internal/domain"
)

// Stream entry fields.
const (
	FieldEventID   = "eventId"
	FieldEventType = "eventType"
	FieldEnvelope  = "envelope"
)

const defaultMaxLen = 100000

// Publisher appends outbox envelopes to "<prefix>.<topic>" streams.
type Publisher struct {
	client *redis.Client
	prefix string
	maxLen int64
}

// NewPublisher creates a new Publisher.
func NewPublisher(client *redis.Client, prefix string) *Publisher {
	return &Publisher{
		client: client,
		prefix: prefix,
		maxLen: defaultMaxLen,
	}
}

// StreamFor returns the stream an entry of topic is written to.
func (p *Publisher) StreamFor(topic string) string {
	return p.prefix + "." + topic
}

// Publish XADDs the entry's envelope. The stream is trimmed approximately to maxLen.
func (p *Publisher) Publish(ctx context.Context, entry *domain.OutboxEntry) error {
	err := p.client.XAdd(ctx, &redis.XAddArgs{
		Stream: p.StreamFor(entry.Topic),
		MaxLen: p.maxLen,
		Approx: true,
		Values: map[string]any{
			FieldEventID:   entry.ID,
			FieldEventType: string(entry.EventType),
			FieldEnvelope:  string(entry.Payload),
		},
	}).Err()
	if err != nil {
		return fmt.Errorf("xadd %s: %w", entry.EventType, err)
	}

	return nil
}

// LogPublisher logs events instead of sending them. For local development.
type LogPublisher struct {
	logger zerolog.Logger
}

// NewLogPublisher creates a new LogPublisher.
func NewLogPublisher(logger zerolog.Logger) *LogPublisher {
	return &LogPublisher{logger: logger}
}

// Publish logs the event.
func (p *LogPublisher) Publish(ctx context.Context, entry *domain.OutboxEntry) error {
	p.logger.Info().
		Str("event_id", entry.ID).
		Str("event_type", string(entry.EventType)).
		Str("topic", entry.Topic).
		RawJSON("envelope", entry.Payload).
		Msg("event published")

	return nil
}
