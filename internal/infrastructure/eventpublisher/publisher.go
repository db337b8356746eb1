package eventpublisher

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"

	"github.com/iho/goescrow/internal/domain"
	"github.com/iho/goescrow/internal/infrastructure/metrics"
	"github.com/iho/goescrow/internal/usecase"
)

var tracer = otel.Tracer("github.com/iho/goescrow/internal/infrastructure/eventpublisher")

// EventPublisher delivers pending outbox entries to the message bus.
type EventPublisher struct {
	outboxRepo usecase.OutboxRepository
	publisher  Publisher
	locker     usecase.Locker
	metrics    *metrics.Metrics
	clock      usecase.Clock
	logger     zerolog.Logger
	batchSize  int
	lockTTL    time.Duration
	retention  time.Duration
}

// Publisher defines the interface for publishing events to external systems.
type Publisher interface {
	Publish(ctx context.Context, entry *domain.OutboxEntry) error
}

// Config for EventPublisher.
type Config struct {
	OutboxRepo usecase.OutboxRepository
	Publisher  Publisher
	Locker     usecase.Locker
	Metrics    *metrics.Metrics
	Clock      usecase.Clock
	Logger     zerolog.Logger
	BatchSize  int           // Number of entries to fetch per poll
	LockTTL    time.Duration // How long a crashed poller blocks others
	Retention  time.Duration // How long delivered entries are kept
}

// NewEventPublisher creates a new EventPublisher.
func NewEventPublisher(cfg Config) *EventPublisher {
	if cfg.BatchSize == 0 {
		cfg.BatchSize = 100
	}
	if cfg.LockTTL == 0 {
		cfg.LockTTL = usecase.DefaultJobLockTTL
	}
	if cfg.Retention == 0 {
		cfg.Retention = 7 * 24 * time.Hour
	}
	if cfg.Clock == nil {
		cfg.Clock = usecase.SystemClock{}
	}

	return &EventPublisher{
		outboxRepo: cfg.OutboxRepo,
		publisher:  cfg.Publisher,
		locker:     cfg.Locker,
		metrics:    cfg.Metrics,
		clock:      cfg.Clock,
		logger:     cfg.Logger.With().Str("component", "event-publisher").Logger(),
		batchSize:  cfg.BatchSize,
		lockTTL:    cfg.LockTTL,
		retention:  cfg.Retention,
	}
}

// Poll publishes one batch of pending entries. It is a no-op when another
// instance holds the publish lock.
func (ep *EventPublisher) Poll(ctx context.Context) error {
	ctx, span := tracer.Start(ctx, "outbox.Poll")
	defer span.End()

	lock, ok, err := ep.locker.TryAcquire(ctx, usecase.LockOutboxPublish, ep.lockTTL)
	if err != nil {
		span.RecordError(err)
		return fmt.Errorf("acquire outbox lock: %w", err)
	}
	if !ok {
		ep.logger.Debug().Msg("outbox publish already running elsewhere")
		return nil
	}
	defer func() {
		if err := lock.Release(context.WithoutCancel(ctx)); err != nil {
			ep.logger.Warn().Err(err).Msg("failed to release outbox lock")
		}
	}()

	entries, err := ep.outboxRepo.GetPending(ctx, ep.batchSize)
	if err != nil {
		span.SetStatus(codes.Error, err.Error())
		return fmt.Errorf("get pending outbox entries: %w", err)
	}

	span.SetAttributes(attribute.Int("outbox.batch", len(entries)))
	if ep.metrics != nil {
		ep.metrics.OutboxBatchSize.Observe(float64(len(entries)))
	}

	if len(entries) == 0 {
		return nil
	}

	ep.logger.Debug().Int("count", len(entries)).Msg("processing outbox entries")

	for _, entry := range entries {
		if ctx.Err() != nil {
			return ctx.Err()
		}

		if err := ep.publishEntry(ctx, entry); err != nil {
			ep.logger.Error().
				Err(err).
				Str("event_id", entry.ID).
				Str("event_type", string(entry.EventType)).
				Int32("retry_count", entry.RetryCount+1).
				Msg("failed to publish event")
			if ep.metrics != nil {
				ep.metrics.OutboxFailed.Inc()
			}

			if err := ep.outboxRepo.MarkFailed(ctx, entry.ID, err.Error()); err != nil {
				ep.logger.Error().Err(err).Str("event_id", entry.ID).Msg("failed to record publish failure")
			}
			// Continue processing other entries even if one fails
			continue
		}

		if err := ep.outboxRepo.MarkDelivered(ctx, entry.ID, ep.clock.Now()); err != nil {
			// The entry stays pending and is delivered again; consumers dedupe by event id.
			ep.logger.Error().Err(err).Str("event_id", entry.ID).Msg("failed to mark event as delivered")
			continue
		}

		if ep.metrics != nil {
			ep.metrics.OutboxPublished.Inc()
		}
	}

	return nil
}

// Cleanup deletes delivered entries older than the retention.
func (ep *EventPublisher) Cleanup(ctx context.Context) error {
	before := ep.clock.Now().Add(-ep.retention)

	deleted, err := ep.outboxRepo.DeleteDelivered(ctx, before)
	if err != nil {
		return fmt.Errorf("delete delivered outbox entries: %w", err)
	}

	if deleted > 0 {
		ep.logger.Info().Int64("deleted", deleted).Time("before", before).Msg("outbox cleaned up")
	}

	return nil
}

func (ep *EventPublisher) publishEntry(ctx context.Context, entry *domain.OutboxEntry) error {
	ep.logger.Debug().
		Str("event_id", entry.ID).
		Str("event_type", string(entry.EventType)).
		Str("topic", entry.Topic).
		Msg("publishing event")

	if err := ep.publisher.Publish(ctx, entry); err != nil {
		return err
	}

	ep.logger.Info().
		Str("event_id", entry.ID).
		Str("event_type", string(entry.EventType)).
		Msg("event published")

	return nil
}
