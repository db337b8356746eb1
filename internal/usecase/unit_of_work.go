package usecase

import (
	"context"
	"fmt"
	"time"

	"github.com/iho/goescrow/internal/domain"
)

// runInTx runs fn in a new database transaction and commits it when fn succeeds.
func runInTx(ctx context.Context, tm TransactionManager, fn func(ctx context.Context, tx Transaction) error) error {
	txCtx, cancel := context.WithTimeout(ctx, DefaultTransactionTimeout)
	defer cancel()

	tx, err := tm.Begin(txCtx)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	defer tx.Rollback(txCtx)

	if err := fn(txCtx, tx); err != nil {
		return err
	}

	if err := tx.Commit(txCtx); err != nil {
		return fmt.Errorf("commit transaction: %w", err)
	}

	return nil
}

// transition prepares a version-checked update moving t to next. The update
// starts from t's current fields so callers only set what changes. Staying in
// the same status is allowed for progress updates.
func transition(t *domain.TonTransaction, next domain.TxStatus, now time.Time) (domain.StatusUpdate, error) {
	if next != t.Status && !t.Status.CanTransitionTo(next) {
		return domain.StatusUpdate{}, domain.WrapError(domain.KindInvalidState, domain.ErrInvalidTransition,
			"%s cannot move from %s to %s", t.ID, t.Status, next)
	}

	return domain.StatusUpdate{
		ID:              t.ID,
		Status:          next,
		TxHash:          t.TxHash,
		FirstSeenHeight: t.FirstSeenHeight,
		ReviewedBy:      t.ReviewedBy,
		FailureReason:   t.FailureReason,
		ReceivedAmount:  t.ReceivedAmount,
		Fee:             t.Fee,
		Lt:              t.Lt,
		Confirmations:   t.Confirmations,
		ExpectedVersion: t.Version,
		UpdatedAt:       now,
	}, nil
}

// applied mirrors a successful update onto the in-memory record.
func applied(t *domain.TonTransaction, u domain.StatusUpdate) {
	t.Status = u.Status
	t.TxHash = u.TxHash
	t.FirstSeenHeight = u.FirstSeenHeight
	t.ReviewedBy = u.ReviewedBy
	t.FailureReason = u.FailureReason
	t.ReceivedAmount = u.ReceivedAmount
	t.Fee = u.Fee
	t.Lt = u.Lt
	t.Confirmations = u.Confirmations
	t.UpdatedAt = u.UpdatedAt
	t.Version++
}

func releaseLock(ctx context.Context, lock Lock, onErr func(error)) {
	// The job context may already be cancelled on shutdown
	if err := lock.Release(context.WithoutCancel(ctx)); err != nil && onErr != nil {
		onErr(err)
	}
}
