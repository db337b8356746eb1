package postgres

import (
	"context"
	"encoding/json"
	"errors"

	"github.com/jackc/pgx/v5"

	"github.com/iho/goescrow/internal/domain"
	"github.com/iho/goescrow/internal/infrastructure/postgres/generated"
	"github.com/iho/goescrow/internal/usecase"
)

// LedgerTransactionRepository implements usecase.LedgerTransactionRepository.
type LedgerTransactionRepository struct{}

// NewLedgerTransactionRepository creates a new LedgerTransactionRepository.
func NewLedgerTransactionRepository() *LedgerTransactionRepository {
	return &LedgerTransactionRepository{}
}

// InsertIfAbsent inserts the idempotency marker. It reports false when the key
// was already taken, by this or a concurrent transaction that has committed.
func (r *LedgerTransactionRepository) InsertIfAbsent(ctx context.Context, tx usecase.Transaction, ltx *domain.LedgerTransaction) (bool, error) {
	metadata := ltx.Metadata
	if metadata == nil {
		metadata = map[string]string{}
	}

	raw, err := json.Marshal(metadata)
	if err != nil {
		return false, err
	}

	inserted, err := queriesFor(tx).InsertLedgerTransaction(ctx, generated.InsertLedgerTransactionParams{
		ID:             ltx.ID,
		IdempotencyKey: ltx.IdempotencyKey,
		DealID:         textFromPtr(ltx.DealID),
		Metadata:       raw,
		CreatedAt:      timeToPgTimestamptz(ltx.CreatedAt),
	})
	if err != nil {
		return false, err
	}

	return inserted == 1, nil
}

// GetByIdempotencyKey retrieves the marker recorded under key.
func (r *LedgerTransactionRepository) GetByIdempotencyKey(ctx context.Context, tx usecase.Transaction, key string) (*domain.LedgerTransaction, error) {
	row, err := queriesFor(tx).GetLedgerTransactionByKey(ctx, key)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.NewError(domain.KindNotFound, "ledger transaction %q not found", key)
		}
		return nil, err
	}

	var metadata map[string]string
	if len(row.Metadata) > 0 {
		if err := json.Unmarshal(row.Metadata, &metadata); err != nil {
			return nil, err
		}
	}

	return &domain.LedgerTransaction{
		ID:             row.ID,
		IdempotencyKey: row.IdempotencyKey,
		DealID:         ptrFromText(row.DealID),
		Metadata:       metadata,
		CreatedAt:      row.CreatedAt.Time,
	}, nil
}
