package usecase

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/rs/zerolog"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/iho/goescrow/internal/domain"
	"github.com/iho/goescrow/internal/infrastructure/metrics"
)

var tracer = otel.Tracer("github.com/iho/goescrow/internal/usecase")

const balanceCachePrefix = "balance:"

// LedgerConfig holds ledger tunables.
type LedgerConfig struct {
	DefaultPageSize int
	MaxPageSize     int
	BalanceCacheTTL time.Duration
}

// LedgerUseCase executes balanced transfers and serves ledger reads.
type LedgerUseCase struct {
	txManager    TransactionManager
	accountRepo  AccountRepository
	ledgerTxRepo LedgerTransactionRepository
	entryRepo    EntryRepository
	ledgerRepo   LedgerRepository
	cache        Cache
	idGen        IDGenerator
	retrier      Retrier
	clock        Clock
	metrics      *metrics.Metrics
	logger       zerolog.Logger
	cfg          LedgerConfig
}

// NewLedgerUseCase creates a new LedgerUseCase. cache and m may be nil.
func NewLedgerUseCase(
	txManager TransactionManager,
	accountRepo AccountRepository,
	ledgerTxRepo LedgerTransactionRepository,
	entryRepo EntryRepository,
	ledgerRepo LedgerRepository,
	cache Cache,
	idGen IDGenerator,
	m *metrics.Metrics,
	logger zerolog.Logger,
	cfg LedgerConfig,
) *LedgerUseCase {
	if cfg.DefaultPageSize <= 0 {
		cfg.DefaultPageSize = DefaultPageSize
	}
	if cfg.MaxPageSize <= 0 {
		cfg.MaxPageSize = MaxPageSize
	}
	if cfg.BalanceCacheTTL <= 0 {
		cfg.BalanceCacheTTL = DefaultBalanceCacheTTL
	}

	return &LedgerUseCase{
		txManager:    txManager,
		accountRepo:  accountRepo,
		ledgerTxRepo: ledgerTxRepo,
		entryRepo:    entryRepo,
		ledgerRepo:   ledgerRepo,
		cache:        cache,
		idGen:        idGen,
		retrier:      noRetry{},
		clock:        SystemClock{},
		metrics:      m,
		logger:       logger.With().Str("component", "ledger").Logger(),
		cfg:          cfg,
	}
}

// WithClock replaces the clock. Used by tests.
func (uc *LedgerUseCase) WithClock(clock Clock) *LedgerUseCase {
	uc.clock = clock
	return uc
}

// WithRetrier retries whole transfer attempts on transient database errors.
func (uc *LedgerUseCase) WithRetrier(r Retrier) *LedgerUseCase {
	uc.retrier = r
	return uc
}

// Transfer applies req in its own database transaction.
func (uc *LedgerUseCase) Transfer(ctx context.Context, req domain.TransferRequest) (*domain.TransferResult, error) {
	ctx, span := tracer.Start(ctx, "ledger.Transfer",
		trace.WithAttributes(attribute.String("idempotency_key", req.IdempotencyKey)))
	defer span.End()

	start := time.Now()

	// Validate before opening a transaction
	if err := req.Validate(); err != nil {
		uc.recordError(span, err)
		return nil, err
	}

	var result *domain.TransferResult
	err := uc.retrier.Retry(ctx, func() error {
		var err error
		result, err = uc.transferOnce(ctx, req)
		return err
	})
	if err != nil {
		uc.recordError(span, err)
		return nil, err
	}

	uc.Committed(ctx, result)

	if uc.metrics != nil {
		uc.metrics.TransferDuration.Observe(time.Since(start).Seconds())
	}

	span.SetAttributes(
		attribute.String("transaction_ref", result.TransactionRef),
		attribute.Bool("applied", result.Applied),
	)

	return result, nil
}

func (uc *LedgerUseCase) transferOnce(ctx context.Context, req domain.TransferRequest) (*domain.TransferResult, error) {
	txCtx, cancel := context.WithTimeout(ctx, DefaultTransactionTimeout)
	defer cancel()

	tx, err := uc.txManager.Begin(txCtx)
	if err != nil {
		return nil, err
	}
	defer tx.Rollback(txCtx)

	result, err := uc.TransferTx(txCtx, tx, req)
	if err != nil {
		return nil, err
	}

	if err := tx.Commit(txCtx); err != nil {
		return nil, fmt.Errorf("commit transfer: %w", err)
	}

	return result, nil
}

// TransferTx applies req inside tx. The caller must commit and then call
// Committed with the result.
func (uc *LedgerUseCase) TransferTx(ctx context.Context, tx Transaction, req domain.TransferRequest) (*domain.TransferResult, error) {
	// 1. Validate legs (LedgerInconsistency on unbalanced requests)
	if err := req.Validate(); err != nil {
		return nil, err
	}

	now := uc.clock.Now()

	// 2. Claim the idempotency key
	ltx := &domain.LedgerTransaction{
		ID:             uc.idGen.Generate(),
		IdempotencyKey: req.IdempotencyKey,
		DealID:         req.DealID,
		Metadata:       req.Metadata,
		CreatedAt:      now,
	}

	inserted, err := uc.ledgerTxRepo.InsertIfAbsent(ctx, tx, ltx)
	if err != nil {
		return nil, fmt.Errorf("claim idempotency key: %w", err)
	}

	if !inserted {
		existing, err := uc.ledgerTxRepo.GetByIdempotencyKey(ctx, tx, req.IdempotencyKey)
		if err != nil {
			return nil, fmt.Errorf("load existing transaction: %w", err)
		}

		return &domain.TransferResult{TransactionRef: existing.ID, Applied: false}, nil
	}

	// 3. Materialize accounts and apply legs in account key order (DEADLOCK PREVENTION)
	accounts := req.Accounts()
	for _, key := range accounts {
		if err := uc.accountRepo.EnsureExists(ctx, tx, domain.NewAccount(key, now)); err != nil {
			return nil, fmt.Errorf("ensure account %s: %w", key, err)
		}
	}

	legs := req.SortedLegs()
	entries := make([]*domain.Entry, 0, len(legs))

	for _, leg := range legs {
		nonNegative := !leg.Account.Type().AllowsNegative()

		balance, err := uc.accountRepo.ApplyDelta(ctx, tx, leg.Account, leg.Delta(), nonNegative, now)
		if err != nil {
			if errors.Is(err, domain.ErrInsufficientBalance) {
				return nil, domain.WrapError(domain.KindInsufficientBalance, err,
					"account %s cannot cover %d", leg.Account, leg.Amount)
			}
			return nil, fmt.Errorf("apply leg on %s: %w", leg.Account, err)
		}

		// 4. One entry per leg, sharing the transaction reference
		entry := &domain.Entry{
			ID:             uc.idGen.Generate(),
			TransactionRef: ltx.ID,
			AccountKey:     leg.Account,
			EntryType:      leg.EntryType,
			Delta:          leg.Delta(),
			BalanceAfter:   balance,
			IdempotencyKey: req.IdempotencyKey,
			DealID:         req.DealID,
			CreatedAt:      now,
		}

		if err := uc.entryRepo.Create(ctx, tx, entry); err != nil {
			return nil, fmt.Errorf("create entry: %w", err)
		}

		entries = append(entries, entry)
	}

	return &domain.TransferResult{
		TransactionRef: ltx.ID,
		Entries:        entries,
		Accounts:       accounts,
		Applied:        true,
	}, nil
}

// Committed runs post-commit effects of a transfer: metrics and cache invalidation.
func (uc *LedgerUseCase) Committed(ctx context.Context, result *domain.TransferResult) {
	if result == nil {
		return
	}

	if !result.Applied {
		if uc.metrics != nil {
			uc.metrics.TransfersDeduplicated.Inc()
		}
		return
	}

	if uc.metrics != nil {
		uc.metrics.TransfersApplied.Inc()
		uc.metrics.LedgerEntriesCreated.Add(float64(len(result.Entries)))
	}

	if uc.cache == nil {
		return
	}

	keys := make([]string, len(result.Accounts))
	for i, key := range result.Accounts {
		keys[i] = balanceCachePrefix + key.String()
	}
	if err := uc.cache.Delete(ctx, keys...); err != nil {
		uc.logger.Warn().Err(err).Int("accounts", len(keys)).Msg("failed to invalidate cached balances")
	}
}

// GetBalance returns the balance of key, reading through the balance cache.
// Accounts that were never touched have a zero balance.
func (uc *LedgerUseCase) GetBalance(ctx context.Context, key domain.AccountKey) (int64, error) {
	if err := key.Validate(); err != nil {
		return 0, err
	}

	cacheKey := balanceCachePrefix + key.String()

	if uc.cache != nil {
		cached, err := uc.cache.Get(ctx, cacheKey)
		if err == nil {
			if balance, perr := strconv.ParseInt(cached, 10, 64); perr == nil {
				uc.observeCache("hit")
				return balance, nil
			}
		}
		uc.observeCache("miss")
	}

	var balance int64

	account, err := uc.accountRepo.GetByKey(ctx, key)
	switch {
	case err == nil:
		balance = account.Balance
	case errors.Is(err, domain.ErrAccountNotFound):
		balance = 0
	default:
		return 0, err
	}

	if uc.cache != nil {
		if err := uc.cache.Set(ctx, cacheKey, strconv.FormatInt(balance, 10), uc.cfg.BalanceCacheTTL); err != nil {
			uc.logger.Warn().Err(err).Str("account", key.String()).Msg("failed to cache balance")
		}
	}

	return balance, nil
}

// GetEntriesByAccount returns entries of an account, newest first.
func (uc *LedgerUseCase) GetEntriesByAccount(ctx context.Context, key domain.AccountKey, page domain.PageRequest) (*domain.EntryPage, error) {
	if err := key.Validate(); err != nil {
		return nil, err
	}

	return uc.paginate(page, func(after *domain.Cursor, limit int) ([]*domain.Entry, error) {
		return uc.entryRepo.GetByAccount(ctx, key, after, limit)
	})
}

// GetEntriesByDeal returns entries tagged with a deal, newest first.
func (uc *LedgerUseCase) GetEntriesByDeal(ctx context.Context, dealID string, page domain.PageRequest) (*domain.EntryPage, error) {
	if dealID == "" {
		return nil, domain.NewError(domain.KindInvalidArgument, "deal id is required")
	}

	return uc.paginate(page, func(after *domain.Cursor, limit int) ([]*domain.Entry, error) {
		return uc.entryRepo.GetByDeal(ctx, dealID, after, limit)
	})
}

func (uc *LedgerUseCase) paginate(page domain.PageRequest, fetch func(after *domain.Cursor, limit int) ([]*domain.Entry, error)) (*domain.EntryPage, error) {
	after, err := domain.DecodeCursor(page.Cursor)
	if err != nil {
		return nil, err
	}

	limit := domain.ClampLimit(page.Limit, uc.cfg.DefaultPageSize, uc.cfg.MaxPageSize)

	// Fetch one extra row to learn whether another page exists
	entries, err := fetch(after, limit+1)
	if err != nil {
		return nil, err
	}

	result := &domain.EntryPage{Entries: entries}
	if len(entries) > limit {
		result.Entries = entries[:limit]
		last := result.Entries[limit-1]
		result.NextCursor = domain.EncodeCursor(domain.Cursor{CreatedAt: last.CreatedAt, ID: last.ID})
	}

	return result, nil
}

// CheckConsistency verifies that all balances and all entry deltas sum to zero.
func (uc *LedgerUseCase) CheckConsistency(ctx context.Context) (bool, error) {
	totalBalance, totalDelta, err := uc.ledgerRepo.CheckConsistency(ctx)
	if err != nil {
		return false, err
	}

	if !totalBalance.IsZero() || !totalDelta.IsZero() {
		return false, domain.WrapError(domain.KindLedgerInconsistency, domain.ErrLedgerInconsistency,
			"total balance %s, total delta %s", totalBalance, totalDelta)
	}

	return true, nil
}

func (uc *LedgerUseCase) recordError(span trace.Span, err error) {
	span.RecordError(err)
	span.SetStatus(codes.Error, err.Error())

	if uc.metrics != nil {
		uc.metrics.TransferErrors.WithLabelValues(string(domain.KindOf(err))).Inc()
	}
}

func (uc *LedgerUseCase) observeCache(result string) {
	if uc.metrics != nil {
		uc.metrics.BalanceCacheLookups.WithLabelValues(result).Inc()
	}
}
