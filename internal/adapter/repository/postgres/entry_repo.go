package postgres

import (
	"context"

	"github.com/iho/goescrow/internal/domain"
	"github.com/iho/goescrow/internal/infrastructure/postgres/generated"
	"github.com/iho/goescrow/internal/usecase"
)

// EntryRepository implements usecase.EntryRepository.
type EntryRepository struct {
	queries *generated.Queries
}

// NewEntryRepository creates a new EntryRepository.
func NewEntryRepository(db generated.DBTX) *EntryRepository {
	return &EntryRepository{
		queries: generated.New(db),
	}
}

// Create appends an entry within a transaction.
func (r *EntryRepository) Create(ctx context.Context, tx usecase.Transaction, entry *domain.Entry) error {
	return queriesFor(tx).CreateEntry(ctx, generated.CreateEntryParams{
		ID:             entry.ID,
		TransactionRef: entry.TransactionRef,
		AccountKey:     entry.AccountKey.String(),
		EntryType:      string(entry.EntryType),
		Delta:          entry.Delta,
		BalanceAfter:   entry.BalanceAfter,
		IdempotencyKey: entry.IdempotencyKey,
		DealID:         textFromPtr(entry.DealID),
		CreatedAt:      timeToPgTimestamptz(entry.CreatedAt),
	})
}

// GetByTransaction retrieves all legs of a ledger transaction.
func (r *EntryRepository) GetByTransaction(ctx context.Context, transactionRef string) ([]*domain.Entry, error) {
	rows, err := r.queries.GetEntriesByTransaction(ctx, transactionRef)
	if err != nil {
		return nil, err
	}

	return rowsToEntries(rows), nil
}

// GetByAccount retrieves entries of an account, newest first, strictly after the cursor.
func (r *EntryRepository) GetByAccount(ctx context.Context, key domain.AccountKey, after *domain.Cursor, limit int) ([]*domain.Entry, error) {
	var (
		rows []generated.LedgerEntry
		err  error
	)

	if after == nil {
		rows, err = r.queries.GetEntriesByAccount(ctx, generated.GetEntriesByAccountParams{
			AccountKey: key.String(),
			RowLimit:   int32(limit),
		})
	} else {
		rows, err = r.queries.GetEntriesByAccountAfter(ctx, generated.GetEntriesByAccountAfterParams{
			AccountKey:      key.String(),
			CursorCreatedAt: timeToPgTimestamptz(after.CreatedAt),
			CursorID:        after.ID,
			RowLimit:        int32(limit),
		})
	}
	if err != nil {
		return nil, err
	}

	return rowsToEntries(rows), nil
}

// GetByDeal retrieves entries tagged with a deal, newest first, strictly after the cursor.
func (r *EntryRepository) GetByDeal(ctx context.Context, dealID string, after *domain.Cursor, limit int) ([]*domain.Entry, error) {
	var (
		rows []generated.LedgerEntry
		err  error
	)

	deal := textFromPtr(&dealID)
	if after == nil {
		rows, err = r.queries.GetEntriesByDeal(ctx, generated.GetEntriesByDealParams{
			DealID:   deal,
			RowLimit: int32(limit),
		})
	} else {
		rows, err = r.queries.GetEntriesByDealAfter(ctx, generated.GetEntriesByDealAfterParams{
			DealID:          deal,
			CursorCreatedAt: timeToPgTimestamptz(after.CreatedAt),
			CursorID:        after.ID,
			RowLimit:        int32(limit),
		})
	}
	if err != nil {
		return nil, err
	}

	return rowsToEntries(rows), nil
}

func rowsToEntries(rows []generated.LedgerEntry) []*domain.Entry {
	entries := make([]*domain.Entry, 0, len(rows))
	for _, row := range rows {
		entries = append(entries, rowToEntry(row))
	}
	return entries
}

func rowToEntry(row generated.LedgerEntry) *domain.Entry {
	return &domain.Entry{
		ID:             row.ID,
		TransactionRef: row.TransactionRef,
		AccountKey:     domain.AccountKey(row.AccountKey),
		EntryType:      domain.EntryType(row.EntryType),
		Delta:          row.Delta,
		BalanceAfter:   row.BalanceAfter,
		IdempotencyKey: row.IdempotencyKey,
		DealID:         ptrFromText(row.DealID),
		CreatedAt:      row.CreatedAt.Time,
	}
}
