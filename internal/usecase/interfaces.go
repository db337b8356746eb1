package usecase

import (
	"context"
	"time"

	"github.com/shopspring/decimal"

	"github.com/iho/goescrow/internal/domain"
)

// AccountRepository defines data access for account balances.
type AccountRepository interface {
	// EnsureExists inserts a zero-balance account if it does not exist yet.
	EnsureExists(ctx context.Context, tx Transaction, account *domain.Account) error
	// ApplyDelta adds delta to the balance. When nonNegative is set the update
	// only happens if the resulting balance stays >= 0; otherwise it returns
	// domain.ErrInsufficientBalance. Returns the new balance.
	ApplyDelta(ctx context.Context, tx Transaction, key domain.AccountKey, delta int64, nonNegative bool, updatedAt time.Time) (int64, error)
	GetByKey(ctx context.Context, key domain.AccountKey) (*domain.Account, error)
	ListDustEscrows(ctx context.Context, threshold int64, limit int) ([]*domain.Account, error)
	SumLiabilities(ctx context.Context) (int64, error)
}

// LedgerTransactionRepository records the idempotency marker of each transfer.
type LedgerTransactionRepository interface {
	// InsertIfAbsent inserts the marker. It returns false without error when the
	// idempotency key already exists.
	InsertIfAbsent(ctx context.Context, tx Transaction, ltx *domain.LedgerTransaction) (bool, error)
	GetByIdempotencyKey(ctx context.Context, tx Transaction, key string) (*domain.LedgerTransaction, error)
}

// EntryRepository defines data access for ledger entries.
type EntryRepository interface {
	Create(ctx context.Context, tx Transaction, entry *domain.Entry) error
	GetByTransaction(ctx context.Context, transactionRef string) ([]*domain.Entry, error)
	GetByAccount(ctx context.Context, key domain.AccountKey, after *domain.Cursor, limit int) ([]*domain.Entry, error)
	GetByDeal(ctx context.Context, dealID string, after *domain.Cursor, limit int) ([]*domain.Entry, error)
}

// LedgerRepository defines data access for ledger-wide checks.
type LedgerRepository interface {
	CheckConsistency(ctx context.Context) (totalBalance, totalDelta decimal.Decimal, err error)
	ListBalanceDrift(ctx context.Context, limit int) ([]domain.BalanceDrift, error)
}

// TonTransactionRepository defines data access for tracked chain transfers.
type TonTransactionRepository interface {
	Create(ctx context.Context, tx Transaction, ttx *domain.TonTransaction) error
	GetByID(ctx context.Context, id string) (*domain.TonTransaction, error)
	GetActiveDeposit(ctx context.Context, dealID string) (*domain.TonTransaction, error)
	GetLatestOutbound(ctx context.Context, dealID string, op domain.Operation) (*domain.TonTransaction, error)
	ListByStatus(ctx context.Context, direction domain.Direction, status domain.TxStatus, limit int) ([]*domain.TonTransaction, error)
	// ListClosedDeposits lists TIMEOUT and REJECTED deposits closed at or after closedSince.
	ListClosedDeposits(ctx context.Context, closedSince time.Time, limit int) ([]*domain.TonTransaction, error)
	// UpdateStatus applies a version-checked transition. A stale version
	// returns domain.ErrVersionConflict.
	UpdateStatus(ctx context.Context, tx Transaction, update domain.StatusUpdate) error
	HasSettlement(ctx context.Context, dealID string) (bool, error)
}

// OutboxRepository defines data access for outbox entries.
type OutboxRepository interface {
	// Create inserts the entry unless its idempotency key was already used.
	Create(ctx context.Context, tx Transaction, entry *domain.OutboxEntry) error
	GetPending(ctx context.Context, limit int) ([]*domain.OutboxEntry, error)
	MarkDelivered(ctx context.Context, id string, deliveredAt time.Time) error
	MarkFailed(ctx context.Context, id string, lastError string) error
	DeleteDelivered(ctx context.Context, before time.Time) (int64, error)
}

// PayoutAddressRepository resolves users' on-chain destinations.
type PayoutAddressRepository interface {
	Get(ctx context.Context, userID string) (*domain.PayoutAddress, error)
	Upsert(ctx context.Context, address *domain.PayoutAddress) error
}

// Transaction represents a database transaction.
type Transaction interface {
	Commit(ctx context.Context) error
	Rollback(ctx context.Context) error
}

// TransactionManager handles transaction lifecycle.
type TransactionManager interface {
	Begin(ctx context.Context) (Transaction, error)
}

// IDGenerator generates unique IDs.
type IDGenerator interface {
	Generate() string
}

// Retrier re-runs an operation while it fails with a transient error.
type Retrier interface {
	Retry(ctx context.Context, operation func() error) error
}

type noRetry struct{}

func (noRetry) Retry(_ context.Context, operation func() error) error {
	return operation()
}

// Cache defines caching operations.
type Cache interface {
	Get(ctx context.Context, key string) (string, error)
	Set(ctx context.Context, key, value string, ttl time.Duration) error
	// Delete removes every key in one round trip.
	Delete(ctx context.Context, keys ...string) error
}

// IdempotencyStore handles idempotency key storage.
type IdempotencyStore interface {
	// CheckAndSet atomically checks if key exists, sets if not.
	// Returns (exists, existingValue, error).
	CheckAndSet(ctx context.Context, key string, response []byte, ttl time.Duration) (bool, []byte, error)
	// Update updates an existing key with the final response.
	Update(ctx context.Context, key string, response []byte, ttl time.Duration) error
	// Delete releases a key whose request failed.
	Delete(ctx context.Context, key string) error
}

// Lock is a held distributed lock.
type Lock interface {
	Release(ctx context.Context) error
}

// Locker provides distributed mutual exclusion across instances.
type Locker interface {
	// TryAcquire makes one attempt. ok is false when another holder owns the key.
	TryAcquire(ctx context.Context, key string, ttl time.Duration) (lock Lock, ok bool, err error)
	// Acquire waits up to wait for the key. It returns domain.ErrLockNotAcquired on timeout.
	Acquire(ctx context.Context, key string, ttl, wait time.Duration) (Lock, error)
}

// BlockchainPort abstracts the external chain.
type BlockchainPort interface {
	GetTransactions(ctx context.Context, address string, limit int) ([]domain.ChainTransaction, error)
	SendSignedPayload(ctx context.Context, payload []byte) (string, error)
	GetChainHeight(ctx context.Context) (int64, error)
	GetAddressBalance(ctx context.Context, address string) (int64, error)
	GetWalletSequence(ctx context.Context, address string) (uint32, error)
	EstimateFee(ctx context.Context, address string, payload []byte) (int64, error)
}

// TransferOrder is an unsigned outgoing transfer from a subwallet.
type TransferOrder struct {
	Destination    string
	Comment        string
	Amount         int64
	SubwalletIndex int32
	Seqno          uint32
}

// Signer holds wallet keys and produces signed external messages.
type Signer interface {
	WalletAddress(ctx context.Context, subwalletIndex int32) (string, error)
	Sign(ctx context.Context, order TransferOrder) ([]byte, error)
}

// Clock returns the current time.
type Clock interface {
	Now() time.Time
}

// SystemClock is the wall clock in UTC.
type SystemClock struct{}

// Now returns time.Now in UTC.
func (SystemClock) Now() time.Time {
	return time.Now().UTC()
}
