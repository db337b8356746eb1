package postgres

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"

	"github.com/iho/goescrow/internal/domain"
	"github.com/iho/goescrow/internal/infrastructure/postgres/generated"
	"github.com/iho/goescrow/internal/usecase"
)

// AccountRepository implements usecase.AccountRepository.
type AccountRepository struct {
	queries *generated.Queries
}

// NewAccountRepository creates a new AccountRepository.
func NewAccountRepository(db generated.DBTX) *AccountRepository {
	return &AccountRepository{
		queries: generated.New(db),
	}
}

// EnsureExists inserts a zero-balance account unless it already exists.
func (r *AccountRepository) EnsureExists(ctx context.Context, tx usecase.Transaction, account *domain.Account) error {
	return queriesFor(tx).EnsureAccount(ctx, generated.EnsureAccountParams{
		Key:         account.Key.String(),
		AccountType: string(account.Type),
		CreatedAt:   timeToPgTimestamptz(account.CreatedAt),
	})
}

// ApplyDelta adds delta to the account balance in a single guarded UPDATE.
// The row lock taken by the UPDATE is held until tx ends.
func (r *AccountRepository) ApplyDelta(ctx context.Context, tx usecase.Transaction, key domain.AccountKey, delta int64, nonNegative bool, updatedAt time.Time) (int64, error) {
	queries := queriesFor(tx)

	balance, err := queries.ApplyAccountDelta(ctx, generated.ApplyAccountDeltaParams{
		Delta:       delta,
		UpdatedAt:   timeToPgTimestamptz(updatedAt),
		Key:         key.String(),
		NonNegative: nonNegative,
	})
	if err == nil {
		return balance, nil
	}
	if !errors.Is(err, pgx.ErrNoRows) {
		return 0, err
	}

	if _, err := queries.GetAccountByKey(ctx, key.String()); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return 0, domain.ErrAccountNotFound
		}
		return 0, err
	}

	return 0, domain.ErrInsufficientBalance
}

// GetByKey retrieves an account by key.
func (r *AccountRepository) GetByKey(ctx context.Context, key domain.AccountKey) (*domain.Account, error) {
	row, err := r.queries.GetAccountByKey(ctx, key.String())
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrAccountNotFound
		}

		return nil, err
	}

	return rowToAccount(row), nil
}

// ListDustEscrows lists escrow accounts with 0 < balance <= threshold.
func (r *AccountRepository) ListDustEscrows(ctx context.Context, threshold int64, limit int) ([]*domain.Account, error) {
	rows, err := r.queries.ListDustEscrows(ctx, generated.ListDustEscrowsParams{
		Threshold: threshold,
		RowLimit:  int32(limit),
	})
	if err != nil {
		return nil, err
	}

	accounts := make([]*domain.Account, 0, len(rows))
	for _, row := range rows {
		accounts = append(accounts, rowToAccount(row))
	}

	return accounts, nil
}

// SumLiabilities returns the total balance owed to users and the platform.
func (r *AccountRepository) SumLiabilities(ctx context.Context) (int64, error) {
	liabilities := domain.LiabilityTypes()
	types := make([]string, 0, len(liabilities))
	for _, t := range liabilities {
		types = append(types, string(t))
	}

	return r.queries.SumBalancesByType(ctx, types)
}

func rowToAccount(row generated.Account) *domain.Account {
	return &domain.Account{
		Key:       domain.AccountKey(row.Key),
		Type:      domain.AccountType(row.AccountType),
		Balance:   row.Balance,
		Version:   row.Version,
		CreatedAt: row.CreatedAt.Time,
		UpdatedAt: row.UpdatedAt.Time,
	}
}

// queriesFor binds the generated queries to tx.
func queriesFor(tx usecase.Transaction) *generated.Queries {
	return generated.New(tx.(*Tx).PgxTx())
}

// Type conversion helpers.
func timeToPgTimestamptz(t time.Time) pgtype.Timestamptz {
	return pgtype.Timestamptz{Time: t, Valid: true}
}

func textFromPtr(s *string) pgtype.Text {
	if s == nil {
		return pgtype.Text{}
	}
	return pgtype.Text{String: *s, Valid: true}
}

func ptrFromText(t pgtype.Text) *string {
	if !t.Valid {
		return nil
	}
	s := t.String
	return &s
}

func int8FromPtr(v *int64) pgtype.Int8 {
	if v == nil {
		return pgtype.Int8{}
	}
	return pgtype.Int8{Int64: *v, Valid: true}
}

func ptrFromInt8(v pgtype.Int8) *int64 {
	if !v.Valid {
		return nil
	}
	n := v.Int64
	return &n
}
