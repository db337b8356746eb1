package usecase

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"github.com/iho/goescrow/internal/domain"
	"github.com/iho/goescrow/internal/infrastructure/metrics"
)

// SweepConfig holds dust sweeper tunables.
type SweepConfig struct {
	DustThreshold int64
	BatchSize     int
	LockTTL       time.Duration
}

// DustSweeper writes off small escrow residues of settled deals.
type DustSweeper struct {
	txManager   TransactionManager
	accountRepo AccountRepository
	tonTxRepo   TonTransactionRepository
	ledger      *LedgerUseCase
	outbox      *Outbox
	locker      Locker
	metrics     *metrics.Metrics
	logger      zerolog.Logger
	cfg         SweepConfig
}

// NewDustSweeper creates a new DustSweeper.
func NewDustSweeper(
	txManager TransactionManager,
	accountRepo AccountRepository,
	tonTxRepo TonTransactionRepository,
	ledger *LedgerUseCase,
	outbox *Outbox,
	locker Locker,
	m *metrics.Metrics,
	logger zerolog.Logger,
	cfg SweepConfig,
) *DustSweeper {
	if cfg.BatchSize <= 0 {
		cfg.BatchSize = 100
	}
	if cfg.LockTTL <= 0 {
		cfg.LockTTL = DefaultJobLockTTL
	}

	return &DustSweeper{
		txManager:   txManager,
		accountRepo: accountRepo,
		tonTxRepo:   tonTxRepo,
		ledger:      ledger,
		outbox:      outbox,
		locker:      locker,
		metrics:     m,
		logger:      logger.With().Str("component", "dust_sweeper").Logger(),
		cfg:         cfg,
	}
}

// Run sweeps one batch. It returns the number of escrows written off.
func (s *DustSweeper) Run(ctx context.Context) (int, error) {
	ctx, span := tracer.Start(ctx, "sweep.Run")
	defer span.End()

	if s.cfg.DustThreshold <= 0 {
		return 0, nil
	}

	lock, ok, err := s.locker.TryAcquire(ctx, LockDustSweep, s.cfg.LockTTL)
	if err != nil {
		return 0, fmt.Errorf("acquire sweep lock: %w", err)
	}
	if !ok {
		s.jobRun("skipped")
		return 0, nil
	}
	defer releaseLock(ctx, lock, func(err error) {
		s.logger.Warn().Err(err).Msg("failed to release sweep lock")
	})

	candidates, err := s.accountRepo.ListDustEscrows(ctx, s.cfg.DustThreshold, s.cfg.BatchSize)
	if err != nil {
		s.jobRun("error")
		return 0, fmt.Errorf("list dust escrows: %w", err)
	}

	swept := 0
	for _, account := range candidates {
		dealID := account.Key.Param()

		settled, err := s.tonTxRepo.HasSettlement(ctx, dealID)
		if err != nil {
			s.logger.Error().Err(err).Str("deal_id", dealID).Msg("failed to check settlement")
			continue
		}
		if !settled {
			continue
		}

		applied, err := s.sweep(ctx, dealID, account.Balance)
		if err != nil {
			s.logger.Error().Err(err).Str("deal_id", dealID).Msg("failed to sweep dust")
			continue
		}
		if applied {
			swept++
		}
	}

	s.jobRun("ok")
	return swept, nil
}

// sweep writes off the residue of one escrow. It reports false when the
// write-off had already been recorded.
func (s *DustSweeper) sweep(ctx context.Context, dealID string, amount int64) (bool, error) {
	req := domain.TransferRequest{
		IdempotencyKey: "sweep:" + dealID,
		DealID:         &dealID,
		Legs: []domain.Leg{
			{Account: domain.EscrowAccount(dealID), EntryType: domain.EntrySweep, Side: domain.Debit, Amount: amount},
			{Account: domain.DustWriteOffAccount(), EntryType: domain.EntryWriteOff, Side: domain.Credit, Amount: amount},
		},
	}

	var result *domain.TransferResult

	err := runInTx(ctx, s.txManager, func(ctx context.Context, tx Transaction) error {
		var err error
		result, err = s.ledger.TransferTx(ctx, tx, req)
		if err != nil {
			return err
		}
		if !result.Applied {
			return nil
		}

		return s.outbox.Enqueue(ctx, tx, domain.EventDustSwept, &dealID, "dust-swept:"+dealID, domain.DustSweptPayload{
			DealID:         dealID,
			TransactionRef: result.TransactionRef,
			Amount:         amount,
		})
	})
	if err != nil {
		return false, err
	}

	s.ledger.Committed(ctx, result)

	if !result.Applied {
		s.logger.Debug().Str("deal_id", dealID).Msg("escrow dust already written off")
		return false, nil
	}

	s.logger.Info().Str("deal_id", dealID).Int64("amount_nano", amount).Msg("escrow dust written off")

	return true, nil
}

func (s *DustSweeper) jobRun(outcome string) {
	if s.metrics != nil {
		s.metrics.JobRuns.WithLabelValues("dust-sweep", outcome).Inc()
	}
}
