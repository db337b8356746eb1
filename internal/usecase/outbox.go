package usecase

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/iho/goescrow/internal/domain"
)

type correlationKey struct{}

// WithCorrelationID attaches a correlation id to ctx. Events enqueued under
// ctx carry it in their envelope.
func WithCorrelationID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, correlationKey{}, id)
}

// CorrelationID returns the correlation id attached to ctx, if any.
func CorrelationID(ctx context.Context) string {
	id, _ := ctx.Value(correlationKey{}).(string)
	return id
}

// Outbox writes events into the outbox table inside a caller's transaction.
type Outbox struct {
	repo     OutboxRepository
	registry *domain.Registry
	idGen    IDGenerator
	clock    Clock
}

// NewOutbox creates a new Outbox writer. registry must be the event registry.
func NewOutbox(repo OutboxRepository, registry *domain.Registry, idGen IDGenerator) *Outbox {
	return &Outbox{
		repo:     repo,
		registry: registry,
		idGen:    idGen,
		clock:    SystemClock{},
	}
}

// WithClock replaces the clock. Used by tests.
func (o *Outbox) WithClock(clock Clock) *Outbox {
	o.clock = clock
	return o
}

// Enqueue wraps payload in an envelope and stores it under key. A key that was
// already enqueued is silently ignored.
func (o *Outbox) Enqueue(ctx context.Context, tx Transaction, eventType domain.EventType, dealID *string, key string, payload any) error {
	if key == "" {
		return domain.NewError(domain.KindInvalidArgument, "outbox idempotency key is required")
	}

	if err := o.registry.Check(string(eventType), payload); err != nil {
		return err
	}

	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("marshal %s payload: %w", eventType, err)
	}

	now := o.clock.Now()
	eventID := o.idGen.Generate()

	correlationID := CorrelationID(ctx)
	if correlationID == "" {
		correlationID = eventID
	}

	envelope := domain.Envelope{
		EventID:       eventID,
		EventType:     string(eventType),
		DealID:        dealID,
		Timestamp:     now,
		CorrelationID: correlationID,
		Payload:       body,
	}

	raw, err := json.Marshal(envelope)
	if err != nil {
		return fmt.Errorf("marshal envelope: %w", err)
	}

	entry := &domain.OutboxEntry{
		ID:             eventID,
		Topic:          TopicFor(eventType),
		EventType:      eventType,
		DealID:         dealID,
		IdempotencyKey: key,
		Payload:        raw,
		Status:         domain.OutboxPending,
		CreatedAt:      now,
	}

	if err := o.repo.Create(ctx, tx, entry); err != nil {
		return fmt.Errorf("enqueue %s: %w", eventType, err)
	}

	return nil
}

// TopicFor returns the topic an event type is published to.
func TopicFor(eventType domain.EventType) string {
	name := strings.TrimPrefix(string(eventType), "escrow.")

	switch {
	case strings.HasPrefix(name, "deposit-"):
		return domain.TopicDeposits
	case strings.HasPrefix(name, "payout-"), strings.HasPrefix(name, "refund-"):
		return domain.TopicSettlements
	default:
		return domain.TopicLedger
	}
}
