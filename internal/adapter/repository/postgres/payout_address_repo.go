package postgres

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"

	"github.com/iho/goescrow/internal/domain"
	"github.com/iho/goescrow/internal/infrastructure/postgres/generated"
)

// PayoutAddressRepository implements usecase.PayoutAddressRepository.
type PayoutAddressRepository struct {
	queries *generated.Queries
}

// NewPayoutAddressRepository creates a new PayoutAddressRepository.
func NewPayoutAddressRepository(db generated.DBTX) *PayoutAddressRepository {
	return &PayoutAddressRepository{queries: generated.New(db)}
}

// Get retrieves the registered address of a user.
func (r *PayoutAddressRepository) Get(ctx context.Context, userID string) (*domain.PayoutAddress, error) {
	row, err := r.queries.GetPayoutAddress(ctx, userID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrPayoutAddressNotFound
		}
		return nil, err
	}

	return &domain.PayoutAddress{
		UserID:    row.UserID,
		Address:   row.Address,
		UpdatedAt: row.UpdatedAt.Time,
	}, nil
}

// Upsert registers or replaces the address of a user.
func (r *PayoutAddressRepository) Upsert(ctx context.Context, address *domain.PayoutAddress) error {
	return r.queries.UpsertPayoutAddress(ctx, generated.UpsertPayoutAddressParams{
		UserID:    address.UserID,
		Address:   address.Address,
		UpdatedAt: timeToPgTimestamptz(address.UpdatedAt),
	})
}
