package postgres

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/iho/goescrow/internal/domain"
	"github.com/iho/goescrow/internal/infrastructure/postgres/generated"
	"github.com/iho/goescrow/internal/usecase"
)

// TonTransactionRepository implements usecase.TonTransactionRepository.
type TonTransactionRepository struct {
	queries *generated.Queries
}

// NewTonTransactionRepository creates a new TonTransactionRepository.
func NewTonTransactionRepository(db generated.DBTX) *TonTransactionRepository {
	return &TonTransactionRepository{
		queries: generated.New(db),
	}
}

// Create inserts a tracked transfer within a transaction.
func (r *TonTransactionRepository) Create(ctx context.Context, tx usecase.Transaction, t *domain.TonTransaction) error {
	return queriesFor(tx).CreateTonTransaction(ctx, generated.CreateTonTransactionParams{
		ID:              t.ID,
		DealID:          t.DealID,
		Direction:       string(t.Direction),
		Operation:       string(t.Operation),
		FromAddress:     t.FromAddress,
		ToAddress:       t.ToAddress,
		ExpectedAmount:  t.ExpectedAmount,
		ReceivedAmount:  t.ReceivedAmount,
		Fee:             t.Fee,
		Commission:      t.Commission,
		TxHash:          textFromPtr(t.TxHash),
		Lt:              int64(t.Lt),
		Status:          string(t.Status),
		Confirmations:   t.Confirmations,
		FirstSeenHeight: int8FromPtr(t.FirstSeenHeight),
		SubwalletIndex:  t.SubwalletIndex,
		ReviewedBy:      textFromPtr(t.ReviewedBy),
		FailureReason:   t.FailureReason,
		Version:         t.Version,
		CreatedAt:       timeToPgTimestamptz(t.CreatedAt),
		UpdatedAt:       timeToPgTimestamptz(t.UpdatedAt),
	})
}

// GetByID retrieves a tracked transfer by ID.
func (r *TonTransactionRepository) GetByID(ctx context.Context, id string) (*domain.TonTransaction, error) {
	row, err := r.queries.GetTonTransactionByID(ctx, id)
	return oneTonTransaction(row, err)
}

// GetActiveDeposit returns the live deposit watch of a deal.
func (r *TonTransactionRepository) GetActiveDeposit(ctx context.Context, dealID string) (*domain.TonTransaction, error) {
	row, err := r.queries.GetActiveDeposit(ctx, dealID)
	return oneTonTransaction(row, err)
}

// GetLatestOutbound returns the newest outbound attempt of a deal and operation.
func (r *TonTransactionRepository) GetLatestOutbound(ctx context.Context, dealID string, op domain.Operation) (*domain.TonTransaction, error) {
	row, err := r.queries.GetLatestOutbound(ctx, generated.GetLatestOutboundParams{
		DealID:    dealID,
		Operation: string(op),
	})
	return oneTonTransaction(row, err)
}

// ListByStatus lists tracked transfers in a status, oldest first.
func (r *TonTransactionRepository) ListByStatus(ctx context.Context, direction domain.Direction, status domain.TxStatus, limit int) ([]*domain.TonTransaction, error) {
	rows, err := r.queries.ListTonTransactionsByStatus(ctx, generated.ListTonTransactionsByStatusParams{
		Direction: string(direction),
		Status:    string(status),
		RowLimit:  int32(limit),
	})
	if err != nil {
		return nil, err
	}

	out := make([]*domain.TonTransaction, 0, len(rows))
	for _, row := range rows {
		out = append(out, rowToTonTransaction(row))
	}

	return out, nil
}

// ListClosedDeposits lists deposits that timed out or were rejected since
// closedSince, most recently closed first.
func (r *TonTransactionRepository) ListClosedDeposits(ctx context.Context, closedSince time.Time, limit int) ([]*domain.TonTransaction, error) {
	rows, err := r.queries.ListClosedDeposits(ctx, generated.ListClosedDepositsParams{
		ClosedSince: timeToPgTimestamptz(closedSince),
		RowLimit:    int32(limit),
	})
	if err != nil {
		return nil, err
	}

	out := make([]*domain.TonTransaction, 0, len(rows))
	for _, row := range rows {
		out = append(out, rowToTonTransaction(row))
	}

	return out, nil
}

// UpdateStatus applies a version-checked transition.
func (r *TonTransactionRepository) UpdateStatus(ctx context.Context, tx usecase.Transaction, u domain.StatusUpdate) error {
	affected, err := queriesFor(tx).UpdateTonTransactionStatus(ctx, generated.UpdateTonTransactionStatusParams{
		Status:          string(u.Status),
		TxHash:          textFromPtr(u.TxHash),
		Lt:              int64(u.Lt),
		ReceivedAmount:  u.ReceivedAmount,
		Fee:             u.Fee,
		Confirmations:   u.Confirmations,
		FirstSeenHeight: int8FromPtr(u.FirstSeenHeight),
		ReviewedBy:      textFromPtr(u.ReviewedBy),
		FailureReason:   u.FailureReason,
		UpdatedAt:       timeToPgTimestamptz(u.UpdatedAt),
		ID:              u.ID,
		ExpectedVersion: u.ExpectedVersion,
	})
	if err != nil {
		return err
	}

	if affected == 0 {
		return domain.WrapError(domain.KindVersionConflict, domain.ErrVersionConflict,
			"ton transaction %s at version %d", u.ID, u.ExpectedVersion)
	}

	return nil
}

// HasSettlement reports whether a payout or refund of the deal was submitted.
func (r *TonTransactionRepository) HasSettlement(ctx context.Context, dealID string) (bool, error) {
	return r.queries.HasSettlement(ctx, dealID)
}

func oneTonTransaction(row generated.TonTransaction, err error) (*domain.TonTransaction, error) {
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrTransactionNotFound
		}
		return nil, err
	}
	return rowToTonTransaction(row), nil
}

func rowToTonTransaction(row generated.TonTransaction) *domain.TonTransaction {
	return &domain.TonTransaction{
		ID:              row.ID,
		DealID:          row.DealID,
		Direction:       domain.Direction(row.Direction),
		Operation:       domain.Operation(row.Operation),
		FromAddress:     row.FromAddress,
		ToAddress:       row.ToAddress,
		ExpectedAmount:  row.ExpectedAmount,
		ReceivedAmount:  row.ReceivedAmount,
		Fee:             row.Fee,
		Commission:      row.Commission,
		TxHash:          ptrFromText(row.TxHash),
		Lt:              uint64(row.Lt),
		Status:          domain.TxStatus(row.Status),
		Confirmations:   row.Confirmations,
		FirstSeenHeight: ptrFromInt8(row.FirstSeenHeight),
		SubwalletIndex:  row.SubwalletIndex,
		ReviewedBy:      ptrFromText(row.ReviewedBy),
		FailureReason:   row.FailureReason,
		Version:         row.Version,
		CreatedAt:       row.CreatedAt.Time,
		UpdatedAt:       row.UpdatedAt.Time,
	}
}
