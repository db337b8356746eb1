package usecase

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"

	"github.com/iho/goescrow/internal/domain"
	"github.com/iho/goescrow/internal/infrastructure/metrics"
)

// ReconciliationConfig holds reconciliation tunables.
type ReconciliationConfig struct {
	HotWalletAddress string
	LockTTL          time.Duration
	// DriftLimit caps how many drifted accounts one report lists.
	DriftLimit int
}

// ReconciliationUseCase checks the ledger against itself and against the chain.
type ReconciliationUseCase struct {
	txManager   TransactionManager
	accountRepo AccountRepository
	ledgerRepo  LedgerRepository
	outbox      *Outbox
	port        BlockchainPort
	locker      Locker
	clock       Clock
	metrics     *metrics.Metrics
	logger      zerolog.Logger
	cfg         ReconciliationConfig
}

// NewReconciliationUseCase creates a new reconciliation use case
func NewReconciliationUseCase(
	txManager TransactionManager,
	accountRepo AccountRepository,
	ledgerRepo LedgerRepository,
	outbox *Outbox,
	port BlockchainPort,
	locker Locker,
	m *metrics.Metrics,
	logger zerolog.Logger,
	cfg ReconciliationConfig,
) *ReconciliationUseCase {
	if cfg.LockTTL <= 0 {
		cfg.LockTTL = DefaultJobLockTTL
	}
	if cfg.DriftLimit <= 0 {
		cfg.DriftLimit = DefaultDriftLimit
	}

	return &ReconciliationUseCase{
		txManager:   txManager,
		accountRepo: accountRepo,
		ledgerRepo:  ledgerRepo,
		outbox:      outbox,
		port:        port,
		locker:      locker,
		clock:       SystemClock{},
		metrics:     m,
		logger:      logger.With().Str("component", "reconciliation").Logger(),
		cfg:         cfg,
	}
}

// WithClock replaces the clock. Used by tests.
func (uc *ReconciliationUseCase) WithClock(clock Clock) *ReconciliationUseCase {
	uc.clock = clock
	return uc
}

// ReconciliationReport represents a full reconciliation report
type ReconciliationReport struct {
	CheckedAt         time.Time
	WalletAddress     string
	Issues            []string
	TotalBalance      decimal.Decimal
	TotalDelta        decimal.Decimal
	Drift             []domain.BalanceDrift
	LedgerLiabilities int64
	ChainBalance      int64
	LedgerConsistent  bool
	Covered           bool
}

// OK reports whether no issue was found.
func (r *ReconciliationReport) OK() bool {
	return len(r.Issues) == 0
}

// GenerateReconciliationReport compares balances without side effects.
func (uc *ReconciliationUseCase) GenerateReconciliationReport(ctx context.Context) (*ReconciliationReport, error) {
	ctx, span := tracer.Start(ctx, "reconciliation.Generate")
	defer span.End()

	totalBalance, totalDelta, err := uc.ledgerRepo.CheckConsistency(ctx)
	if err != nil {
		return nil, fmt.Errorf("check ledger consistency: %w", err)
	}

	drift, err := uc.ledgerRepo.ListBalanceDrift(ctx, uc.cfg.DriftLimit)
	if err != nil {
		return nil, fmt.Errorf("list balance drift: %w", err)
	}

	liabilities, err := uc.accountRepo.SumLiabilities(ctx)
	if err != nil {
		return nil, fmt.Errorf("sum liabilities: %w", err)
	}

	report := &ReconciliationReport{
		CheckedAt:         uc.clock.Now(),
		WalletAddress:     uc.cfg.HotWalletAddress,
		TotalBalance:      totalBalance,
		TotalDelta:        totalDelta,
		Drift:             drift,
		LedgerLiabilities: liabilities,
		LedgerConsistent:  totalBalance.IsZero() && totalDelta.IsZero() && len(drift) == 0,
		Covered:           true,
	}

	if !totalBalance.IsZero() || !totalDelta.IsZero() {
		report.Issues = append(report.Issues, fmt.Sprintf(
			"ledger inconsistency detected: balance_sum=%s entry_sum=%s",
			totalBalance.String(), totalDelta.String(),
		))
	}

	for _, d := range drift {
		report.Issues = append(report.Issues, fmt.Sprintf(
			"balance drift on %s: balance=%d entries=%d diff=%d",
			d.Key, d.Balance, d.EntryTotal, d.Difference(),
		))
	}

	if uc.cfg.HotWalletAddress != "" {
		balance, err := uc.port.GetAddressBalance(ctx, uc.cfg.HotWalletAddress)
		if err != nil {
			return nil, domain.WrapError(domain.KindChainCallFailed, err, "get hot wallet balance")
		}

		report.ChainBalance = balance
		report.Covered = balance >= liabilities
		if !report.Covered {
			report.Issues = append(report.Issues, fmt.Sprintf(
				"hot wallet under-collateralized: chain=%d liabilities=%d shortfall=%d",
				balance, liabilities, liabilities-balance,
			))
		}
	}

	return report, nil
}

// Run generates a report under the reconciliation lock and publishes it.
// A nil report with nil error means another instance holds the lock.
func (uc *ReconciliationUseCase) Run(ctx context.Context) (*ReconciliationReport, error) {
	lock, ok, err := uc.locker.TryAcquire(ctx, LockReconciliation, uc.cfg.LockTTL)
	if err != nil {
		return nil, fmt.Errorf("acquire reconciliation lock: %w", err)
	}
	if !ok {
		uc.jobRun("skipped")
		return nil, nil
	}
	defer releaseLock(ctx, lock, func(err error) {
		uc.logger.Warn().Err(err).Msg("failed to release reconciliation lock")
	})

	report, err := uc.GenerateReconciliationReport(ctx)
	if err != nil {
		uc.jobRun("error")
		return nil, err
	}

	payload := domain.ReconciliationResultPayload{
		RunAt:             report.CheckedAt,
		WalletAddress:     report.WalletAddress,
		Issues:            report.Issues,
		TotalBalance:      report.TotalBalance.String(),
		TotalDelta:        report.TotalDelta.String(),
		LedgerLiabilities: report.LedgerLiabilities,
		ChainBalance:      report.ChainBalance,
		DriftedAccounts:   driftedKeys(report.Drift),
		Consistent:        report.LedgerConsistent,
		Covered:           report.Covered,
	}
	key := "reconciliation:" + strconv.FormatInt(report.CheckedAt.UnixNano(), 10)

	err = runInTx(ctx, uc.txManager, func(ctx context.Context, tx Transaction) error {
		return uc.outbox.Enqueue(ctx, tx, domain.EventReconciliationResult, nil, key, payload)
	})
	if err != nil {
		uc.jobRun("error")
		return nil, fmt.Errorf("enqueue reconciliation result: %w", err)
	}

	if uc.metrics != nil {
		if report.Covered {
			uc.metrics.ReconciliationCovered.Set(1)
		} else {
			uc.metrics.ReconciliationCovered.Set(0)
		}
	}

	if report.OK() {
		uc.logger.Info().Int64("liabilities_nano", report.LedgerLiabilities).Msg("reconciliation passed")
	} else {
		uc.logger.Error().Strs("issues", report.Issues).Msg("reconciliation found issues")
	}

	uc.jobRun("ok")
	return report, nil
}

func (uc *ReconciliationUseCase) jobRun(outcome string) {
	if uc.metrics != nil {
		uc.metrics.JobRuns.WithLabelValues("reconciliation", outcome).Inc()
	}
}

func driftedKeys(drift []domain.BalanceDrift) []string {
	if len(drift) == 0 {
		return nil
	}
	keys := make([]string, len(drift))
	for i, d := range drift {
		keys[i] = d.Key.String()
	}
	return keys
}
