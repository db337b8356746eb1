package usecase

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog"
	"go.opentelemetry.io/otel/attribute"

	"github.com/iho/goescrow/internal/domain"
	"github.com/iho/goescrow/internal/infrastructure/metrics"
)

// OutboundConfig holds outbound confirmer tunables.
type OutboundConfig struct {
	BatchSize        int
	LockTTL          time.Duration
	SubmitTimeout    time.Duration
	ChainLookupLimit int
}

// OutboundConfirmer marks submitted payouts and refunds confirmed once they
// show up in the source wallet's history.
type OutboundConfirmer struct {
	txManager TransactionManager
	tonTxRepo TonTransactionRepository
	port      BlockchainPort
	locker    Locker
	clock     Clock
	metrics   *metrics.Metrics
	logger    zerolog.Logger
	cfg       OutboundConfig
}

// NewOutboundConfirmer creates a new OutboundConfirmer.
func NewOutboundConfirmer(
	txManager TransactionManager,
	tonTxRepo TonTransactionRepository,
	port BlockchainPort,
	locker Locker,
	m *metrics.Metrics,
	logger zerolog.Logger,
	cfg OutboundConfig,
) *OutboundConfirmer {
	if cfg.BatchSize <= 0 {
		cfg.BatchSize = 50
	}
	if cfg.LockTTL <= 0 {
		cfg.LockTTL = DefaultJobLockTTL
	}
	if cfg.SubmitTimeout <= 0 {
		cfg.SubmitTimeout = time.Hour
	}
	if cfg.ChainLookupLimit <= 0 {
		cfg.ChainLookupLimit = 50
	}

	return &OutboundConfirmer{
		txManager: txManager,
		tonTxRepo: tonTxRepo,
		port:      port,
		locker:    locker,
		clock:     SystemClock{},
		metrics:   m,
		logger:    logger.With().Str("component", "outbound_confirmer").Logger(),
		cfg:       cfg,
	}
}

// WithClock replaces the clock. Used by tests.
func (c *OutboundConfirmer) WithClock(clock Clock) *OutboundConfirmer {
	c.clock = clock
	return c
}

// Run checks one batch of submitted transfers.
func (c *OutboundConfirmer) Run(ctx context.Context) error {
	ctx, span := tracer.Start(ctx, "outbound.Run")
	defer span.End()

	lock, ok, err := c.locker.TryAcquire(ctx, LockOutboundConfirm, c.cfg.LockTTL)
	if err != nil {
		return fmt.Errorf("acquire outbound lock: %w", err)
	}
	if !ok {
		c.jobRun("skipped")
		return nil
	}
	defer releaseLock(ctx, lock, func(err error) {
		c.logger.Warn().Err(err).Msg("failed to release outbound lock")
	})

	submitted, err := c.tonTxRepo.ListByStatus(ctx, domain.DirectionOut, domain.StatusSubmitted, c.cfg.BatchSize)
	if err != nil {
		c.jobRun("error")
		return fmt.Errorf("list submitted transfers: %w", err)
	}

	span.SetAttributes(attribute.Int("outbound.submitted", len(submitted)))

	byWallet := make(map[string][]*domain.TonTransaction)
	for _, t := range submitted {
		byWallet[t.FromAddress] = append(byWallet[t.FromAddress], t)
	}

	for wallet, transfers := range byWallet {
		history, err := c.port.GetTransactions(ctx, wallet, c.cfg.ChainLookupLimit)
		if err != nil {
			c.logger.Error().Err(err).Str("wallet", wallet).Msg("failed to read wallet history")
			continue
		}

		used := make(map[string]bool)
		for _, t := range transfers {
			match, found := matchOutbound(t, history, used)
			if !found {
				c.checkOverdue(t)
				continue
			}

			used[match.Hash] = true
			if err := c.confirm(ctx, t, match); err != nil {
				c.logger.Error().Err(err).Str("transfer_id", t.ID).Msg("failed to confirm transfer")
			}
		}
	}

	c.jobRun("ok")
	return nil
}

// matchOutbound finds the chain transaction that carried t. A hash match wins;
// otherwise the first unused transaction paying the same amount to the same
// destination after t was created.
func matchOutbound(t *domain.TonTransaction, history []domain.ChainTransaction, used map[string]bool) (domain.ChainTransaction, bool) {
	for _, tx := range history {
		if t.HasHash() && tx.Hash == t.Hash() {
			return tx, true
		}
	}

	for _, tx := range history {
		if used[tx.Hash] || tx.ObservedAt.Before(t.CreatedAt) {
			continue
		}
		for _, msg := range tx.OutMsgs {
			if msg.Destination == t.ToAddress && msg.Amount == t.ExpectedAmount {
				return tx, true
			}
		}
	}

	return domain.ChainTransaction{}, false
}

func (c *OutboundConfirmer) confirm(ctx context.Context, t *domain.TonTransaction, match domain.ChainTransaction) error {
	update, err := transition(t, domain.StatusConfirmed, c.clock.Now())
	if err != nil {
		return err
	}
	update.Lt = match.Lt

	err = runInTx(ctx, c.txManager, func(ctx context.Context, tx Transaction) error {
		return c.tonTxRepo.UpdateStatus(ctx, tx, update)
	})
	if err != nil {
		return err
	}

	applied(t, update)

	if c.metrics != nil {
		c.metrics.OutboundConfirmed.Inc()
	}

	c.logger.Info().
		Str("transfer_id", t.ID).
		Str("deal_id", t.DealID).
		Str("operation", string(t.Operation)).
		Uint64("lt", match.Lt).
		Msg("outbound transfer confirmed")

	return nil
}

func (c *OutboundConfirmer) checkOverdue(t *domain.TonTransaction) {
	if c.clock.Now().Sub(t.UpdatedAt) <= c.cfg.SubmitTimeout {
		return
	}

	c.logger.Warn().
		Str("transfer_id", t.ID).
		Str("deal_id", t.DealID).
		Str("tx_hash", t.Hash()).
		Time("submitted_at", t.UpdatedAt).
		Msg("submitted transfer not seen on chain, needs operator attention")
}

func (c *OutboundConfirmer) jobRun(outcome string) {
	if c.metrics != nil {
		c.metrics.JobRuns.WithLabelValues("outbound-confirm", outcome).Inc()
	}
}
