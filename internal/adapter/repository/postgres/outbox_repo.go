package postgres

import (
	"context"
	"time"

	"github.com/iho/goescrow/internal/domain"
	"github.com/iho/goescrow/internal/infrastructure/postgres/generated"
	"github.com/iho/goescrow/internal/usecase"
)

// OutboxRepository implements usecase.OutboxRepository.
type OutboxRepository struct {
	queries *generated.Queries
}

// NewOutboxRepository creates a new OutboxRepository.
func NewOutboxRepository(db generated.DBTX) *OutboxRepository {
	return &OutboxRepository{
		queries: generated.New(db),
	}
}

// Create inserts an outbox entry within a transaction. A duplicate
// idempotency key is ignored.
func (r *OutboxRepository) Create(ctx context.Context, tx usecase.Transaction, entry *domain.OutboxEntry) error {
	return queriesFor(tx).CreateOutboxEntry(ctx, generated.CreateOutboxEntryParams{
		ID:             entry.ID,
		Topic:          entry.Topic,
		EventType:      string(entry.EventType),
		DealID:         textFromPtr(entry.DealID),
		IdempotencyKey: entry.IdempotencyKey,
		Payload:        entry.Payload,
		Status:         string(entry.Status),
		CreatedAt:      timeToPgTimestamptz(entry.CreatedAt),
	})
}

// GetPending retrieves undelivered entries. Entries with fewer failed
// attempts come first so a poisoned entry cannot starve newer ones.
func (r *OutboxRepository) GetPending(ctx context.Context, limit int) ([]*domain.OutboxEntry, error) {
	rows, err := r.queries.GetPendingOutbox(ctx, int32(limit))
	if err != nil {
		return nil, err
	}

	entries := make([]*domain.OutboxEntry, 0, len(rows))
	for _, row := range rows {
		entries = append(entries, rowToOutboxEntry(row))
	}

	return entries, nil
}

// MarkDelivered marks an entry as delivered.
func (r *OutboxRepository) MarkDelivered(ctx context.Context, id string, deliveredAt time.Time) error {
	return r.queries.MarkOutboxDelivered(ctx, generated.MarkOutboxDeliveredParams{
		ID:          id,
		DeliveredAt: timeToPgTimestamptz(deliveredAt),
	})
}

// MarkFailed records a failed delivery attempt. The entry stays pending.
func (r *OutboxRepository) MarkFailed(ctx context.Context, id string, lastError string) error {
	return r.queries.MarkOutboxFailed(ctx, generated.MarkOutboxFailedParams{
		ID:        id,
		LastError: lastError,
	})
}

// DeleteDelivered deletes delivered entries older than before.
func (r *OutboxRepository) DeleteDelivered(ctx context.Context, before time.Time) (int64, error) {
	return r.queries.DeleteDeliveredOutbox(ctx, timeToPgTimestamptz(before))
}

func rowToOutboxEntry(row generated.Outbox) *domain.OutboxEntry {
	var deliveredAt *time.Time
	if row.DeliveredAt.Valid {
		t := row.DeliveredAt.Time
		deliveredAt = &t
	}

	return &domain.OutboxEntry{
		ID:             row.ID,
		Topic:          row.Topic,
		EventType:      domain.EventType(row.EventType),
		DealID:         ptrFromText(row.DealID),
		IdempotencyKey: row.IdempotencyKey,
		Payload:        row.Payload,
		Status:         domain.OutboxStatus(row.Status),
		RetryCount:     row.RetryCount,
		LastError:      row.LastError,
		CreatedAt:      row.CreatedAt.Time,
		DeliveredAt:    deliveredAt,
	}
}
