package postgres

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgtype"
	"github.com/shopspring/decimal"

	"github.com/iho/goescrow/internal/domain"
	"github.com/iho/goescrow/internal/infrastructure/postgres/generated"
	"github.com/iho/goescrow/internal/usecase"
)

// LedgerRepository runs whole-ledger checks.
type LedgerRepository struct {
	queries *generated.Queries
}

var _ usecase.LedgerRepository = (*LedgerRepository)(nil)

// NewLedgerRepository creates a new LedgerRepository.
func NewLedgerRepository(db generated.DBTX) *LedgerRepository {
	return &LedgerRepository{queries: generated.New(db)}
}

// CheckConsistency sums every balance and every entry delta. Sums are
// NUMERIC so they cannot overflow int64 on a large ledger.
func (r *LedgerRepository) CheckConsistency(ctx context.Context) (totalBalance, totalDelta decimal.Decimal, err error) {
	row, err := r.queries.CheckLedgerConsistency(ctx)
	if err != nil {
		return decimal.Zero, decimal.Zero, fmt.Errorf("check ledger consistency: %w", err)
	}

	if totalBalance, err = numericToDecimal(row.TotalAccountBalance); err != nil {
		return decimal.Zero, decimal.Zero, fmt.Errorf("balance sum: %w", err)
	}
	if totalDelta, err = numericToDecimal(row.TotalEntryDelta); err != nil {
		return decimal.Zero, decimal.Zero, fmt.Errorf("entry sum: %w", err)
	}

	return totalBalance, totalDelta, nil
}

// ListBalanceDrift returns up to limit accounts whose balance does not match
// the sum of their entries, ordered by key.
func (r *LedgerRepository) ListBalanceDrift(ctx context.Context, limit int) ([]domain.BalanceDrift, error) {
	rows, err := r.queries.ListBalanceDrift(ctx, int32(limit))
	if err != nil {
		return nil, fmt.Errorf("list balance drift: %w", err)
	}

	drift := make([]domain.BalanceDrift, 0, len(rows))
	for _, row := range rows {
		drift = append(drift, domain.BalanceDrift{
			Key:        domain.AccountKey(row.Key),
			Balance:    row.Balance,
			EntryTotal: row.EntryTotal,
		})
	}
	return drift, nil
}

func numericToDecimal(n pgtype.Numeric) (decimal.Decimal, error) {
	switch {
	case !n.Valid:
		return decimal.Zero, nil
	case n.NaN, n.InfinityModifier != pgtype.Finite:
		return decimal.Zero, fmt.Errorf("non-finite numeric")
	case n.Int == nil:
		return decimal.Zero, nil
	}
	return decimal.NewFromBigInt(n.Int, n.Exp), nil
}
