package usecase

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/iho/goescrow/internal/domain"
	"github.com/iho/goescrow/internal/infrastructure/metrics"
)

// DepositConfig holds deposit watcher tunables.
type DepositConfig struct {
	MaxPollDuration time.Duration
	BatchSize       int
	LockTTL         time.Duration
	// ChainCallBudget is the worst case of one chain call, bulkhead wait included.
	// The poll lock is held long enough for a full batch of them.
	ChainCallBudget time.Duration
	// ChainLookupLimit is how many recent transactions are fetched per deposit address.
	ChainLookupLimit int
	// LateWindow is how long closed deposit addresses are still checked for late funds.
	LateWindow time.Duration
}

// DepositWatcher tracks expected deposits and moves confirmed funds into escrow.
type DepositWatcher struct {
	txManager TransactionManager
	tonTxRepo TonTransactionRepository
	ledger    *LedgerUseCase
	outbox    *Outbox
	port      BlockchainPort
	locker    Locker
	policy    *domain.ConfirmationPolicy
	idGen     IDGenerator
	clock     Clock
	metrics   *metrics.Metrics
	logger    zerolog.Logger
	cfg       DepositConfig
}

// NewDepositWatcher creates a new DepositWatcher.
func NewDepositWatcher(
	txManager TransactionManager,
	tonTxRepo TonTransactionRepository,
	ledger *LedgerUseCase,
	outbox *Outbox,
	port BlockchainPort,
	locker Locker,
	policy *domain.ConfirmationPolicy,
	idGen IDGenerator,
	m *metrics.Metrics,
	logger zerolog.Logger,
	cfg DepositConfig,
) *DepositWatcher {
	if cfg.MaxPollDuration <= 0 {
		cfg.MaxPollDuration = 24 * time.Hour
	}
	if cfg.BatchSize <= 0 {
		cfg.BatchSize = 50
	}
	if cfg.LockTTL <= 0 {
		cfg.LockTTL = DefaultJobLockTTL
	}
	if cfg.ChainLookupLimit <= 0 {
		cfg.ChainLookupLimit = 20
	}
	if cfg.ChainCallBudget <= 0 {
		cfg.ChainCallBudget = 10 * time.Second
	}
	if cfg.LateWindow <= 0 {
		cfg.LateWindow = 7 * 24 * time.Hour
	}
	// One height lookup plus one transaction lookup per deposit
	if floor := time.Duration(cfg.BatchSize+1) * cfg.ChainCallBudget; cfg.LockTTL < floor {
		cfg.LockTTL = floor
	}

	return &DepositWatcher{
		txManager: txManager,
		tonTxRepo: tonTxRepo,
		ledger:    ledger,
		outbox:    outbox,
		port:      port,
		locker:    locker,
		policy:    policy,
		idGen:     idGen,
		clock:     SystemClock{},
		metrics:   m,
		logger:    logger.With().Str("component", "deposit_watcher").Logger(),
		cfg:       cfg,
	}
}

// WithClock replaces the clock. Used by tests.
func (w *DepositWatcher) WithClock(clock Clock) *DepositWatcher {
	w.clock = clock
	return w
}

// Watch starts tracking an expected deposit. A deal that already has an active
// or confirmed deposit is returned unchanged.
func (w *DepositWatcher) Watch(ctx context.Context, cmd domain.WatchDepositCommand) (*domain.TonTransaction, error) {
	if strings.TrimSpace(cmd.DealID) == "" {
		return nil, domain.NewError(domain.KindInvalidArgument, "deal id is required")
	}
	if strings.TrimSpace(cmd.DepositAddress) == "" {
		return nil, domain.WrapError(domain.KindInvalidArgument, domain.ErrInvalidAddress, "deposit address is required")
	}
	if cmd.ExpectedAmount <= 0 {
		return nil, domain.ErrInvalidAmount
	}

	existing, err := w.tonTxRepo.GetActiveDeposit(ctx, cmd.DealID)
	if err == nil {
		w.logger.Debug().Str("deal_id", cmd.DealID).Str("deposit_id", existing.ID).Msg("deposit already watched")
		return existing, nil
	}
	if !errors.Is(err, domain.ErrTransactionNotFound) {
		return nil, err
	}

	now := w.clock.Now()
	deposit := &domain.TonTransaction{
		ID:             w.idGen.Generate(),
		DealID:         cmd.DealID,
		Direction:      domain.DirectionIn,
		Operation:      domain.OperationDeposit,
		ToAddress:      cmd.DepositAddress,
		Status:         domain.StatusPending,
		ExpectedAmount: cmd.ExpectedAmount,
		SubwalletIndex: cmd.SubwalletIndex,
		Version:        1,
		CreatedAt:      now,
		UpdatedAt:      now,
	}

	err = runInTx(ctx, w.txManager, func(ctx context.Context, tx Transaction) error {
		return w.tonTxRepo.Create(ctx, tx, deposit)
	})
	if err != nil {
		return nil, fmt.Errorf("create deposit: %w", err)
	}

	w.logger.Info().
		Str("deal_id", deposit.DealID).
		Str("deposit_id", deposit.ID).
		Int64("expected_nano", deposit.ExpectedAmount).
		Msg("watching deposit")

	return deposit, nil
}

// Poll processes one batch of pending deposits. It is a no-op when another
// instance holds the poll lock.
func (w *DepositWatcher) Poll(ctx context.Context) error {
	ctx, span := tracer.Start(ctx, "deposits.Poll")
	defer span.End()

	lock, ok, err := w.locker.TryAcquire(ctx, LockDepositPoll, w.cfg.LockTTL)
	if err != nil {
		span.RecordError(err)
		return fmt.Errorf("acquire deposit poll lock: %w", err)
	}
	if !ok {
		w.jobRun("skipped")
		w.logger.Debug().Msg("deposit poll already running elsewhere")
		return nil
	}
	defer releaseLock(ctx, lock, func(err error) {
		w.logger.Warn().Err(err).Msg("failed to release deposit poll lock")
	})

	// The batch must not outlive the lock
	ctx, cancel := context.WithTimeout(ctx, w.cfg.LockTTL)
	defer cancel()

	pending, err := w.tonTxRepo.ListByStatus(ctx, domain.DirectionIn, domain.StatusPending, w.cfg.BatchSize)
	if err != nil {
		w.jobRun("error")
		span.SetStatus(codes.Error, err.Error())
		return fmt.Errorf("list pending deposits: %w", err)
	}

	span.SetAttributes(attribute.Int("deposits.pending", len(pending)))

	if len(pending) == 0 {
		w.jobRun("ok")
		return nil
	}

	height, err := w.port.GetChainHeight(ctx)
	if err != nil {
		w.jobRun("error")
		span.SetStatus(codes.Error, err.Error())
		return domain.WrapError(domain.KindChainCallFailed, err, "get chain height")
	}

	for _, deposit := range pending {
		if ctx.Err() != nil {
			break
		}

		outcome, err := w.process(ctx, deposit, height)
		if err != nil {
			// One failing deposit must not block the rest of the batch
			outcome = "error"
			w.logger.Error().
				Err(err).
				Str("deal_id", deposit.DealID).
				Str("deposit_id", deposit.ID).
				Msg("failed to process deposit")
		}

		if w.metrics != nil {
			w.metrics.DepositsProcessed.WithLabelValues(outcome).Inc()
		}
	}

	w.jobRun("ok")
	return nil
}

// SweepLate records funds that reached the address of a timed out or rejected
// deposit after it was closed. Each late transaction credits LATE_DEPOSIT once
// and is announced for operator follow-up.
func (w *DepositWatcher) SweepLate(ctx context.Context) (int, error) {
	ctx, span := tracer.Start(ctx, "deposits.SweepLate")
	defer span.End()

	lock, ok, err := w.locker.TryAcquire(ctx, LockLateDeposits, w.cfg.LockTTL)
	if err != nil {
		span.RecordError(err)
		return 0, fmt.Errorf("acquire late deposit lock: %w", err)
	}
	if !ok {
		w.lateRun("skipped")
		return 0, nil
	}
	defer releaseLock(ctx, lock, func(err error) {
		w.logger.Warn().Err(err).Msg("failed to release late deposit lock")
	})

	ctx, cancel := context.WithTimeout(ctx, w.cfg.LockTTL)
	defer cancel()

	closed, err := w.tonTxRepo.ListClosedDeposits(ctx, w.clock.Now().Add(-w.cfg.LateWindow), w.cfg.BatchSize)
	if err != nil {
		w.lateRun("error")
		span.SetStatus(codes.Error, err.Error())
		return 0, fmt.Errorf("list closed deposits: %w", err)
	}

	recorded := 0
	for _, deposit := range closed {
		if ctx.Err() != nil {
			break
		}

		n, err := w.sweepLate(ctx, deposit)
		recorded += n
		if err != nil {
			w.logger.Error().
				Err(err).
				Str("deal_id", deposit.DealID).
				Str("deposit_id", deposit.ID).
				Msg("failed to check closed deposit for late funds")
		}
	}

	span.SetAttributes(attribute.Int("deposits.late", recorded))
	w.lateRun("ok")

	return recorded, nil
}

func (w *DepositWatcher) sweepLate(ctx context.Context, deposit *domain.TonTransaction) (int, error) {
	txs, err := w.port.GetTransactions(ctx, deposit.ToAddress, w.cfg.ChainLookupLimit)
	if err != nil {
		return 0, domain.WrapError(domain.KindChainCallFailed, err, "get transactions of %s", deposit.ToAddress)
	}

	recorded := 0
	for _, chainTx := range txs {
		// Everything up to the deposit's lt was already accounted for when it closed
		if !chainTx.IsUsableInbound() || chainTx.Lt <= deposit.Lt {
			continue
		}

		ok, err := w.recordLate(ctx, deposit, chainTx)
		if err != nil {
			return recorded, err
		}
		if ok {
			recorded++
		}
	}

	return recorded, nil
}

func (w *DepositWatcher) recordLate(ctx context.Context, deposit *domain.TonTransaction, chainTx domain.ChainTransaction) (bool, error) {
	dealID := deposit.DealID
	amount := chainTx.InMsg.Amount

	req := domain.TransferRequest{
		IdempotencyKey: "late:" + chainTx.Hash,
		DealID:         &dealID,
		Legs: []domain.Leg{
			{Account: domain.ExternalAccount(), EntryType: domain.EntryLateDeposit, Side: domain.Debit, Amount: amount},
			{Account: domain.LateDepositAccount(dealID), EntryType: domain.EntryLateDeposit, Side: domain.Credit, Amount: amount},
		},
		Metadata: map[string]string{"deposit_id": deposit.ID, "tx_hash": chainTx.Hash},
	}

	var result *domain.TransferResult

	err := runInTx(ctx, w.txManager, func(ctx context.Context, tx Transaction) error {
		var err error
		result, err = w.ledger.TransferTx(ctx, tx, req)
		if err != nil || !result.Applied {
			return err
		}

		return w.outbox.Enqueue(ctx, tx, domain.EventLateDeposit, &dealID, "deposit-late:"+chainTx.Hash, domain.LateDepositPayload{
			DealID:         dealID,
			DepositID:      deposit.ID,
			TxHash:         chainTx.Hash,
			TransactionRef: result.TransactionRef,
			Amount:         amount,
			AmountTON:      domain.FormatTON(amount),
		})
	})
	if err != nil {
		return false, fmt.Errorf("record late deposit %s: %w", chainTx.Hash, err)
	}

	w.ledger.Committed(ctx, result)

	if result.Applied {
		w.logger.Warn().
			Str("deal_id", dealID).
			Str("deposit_id", deposit.ID).
			Str("tx_hash", chainTx.Hash).
			Int64("amount_nano", amount).
			Msg("late deposit recorded")
		if w.metrics != nil {
			w.metrics.DepositsProcessed.WithLabelValues("late").Inc()
		}
	}

	return result.Applied, nil
}

// observation is what the chain shows for a deposit address.
type observation struct {
	hash          string
	total         int64
	lt            uint64
	confirmations int64
}

func (w *DepositWatcher) observe(ctx context.Context, deposit *domain.TonTransaction) (observation, error) {
	txs, err := w.port.GetTransactions(ctx, deposit.ToAddress, w.cfg.ChainLookupLimit)
	if err != nil {
		return observation{}, domain.WrapError(domain.KindChainCallFailed, err, "get transactions of %s", deposit.ToAddress)
	}

	usable := make([]domain.ChainTransaction, 0, len(txs))
	for _, tx := range txs {
		if tx.IsUsableInbound() {
			usable = append(usable, tx)
		}
	}

	if len(usable) == 0 {
		return observation{}, nil
	}

	// The earliest transaction names the deposit so its key is stable across runs
	sort.Slice(usable, func(i, j int) bool { return usable[i].Lt < usable[j].Lt })

	obs := observation{hash: usable[0].Hash}
	for _, tx := range usable {
		obs.total += tx.InMsg.Amount
		obs.lt = tx.Lt
	}

	return obs, nil
}

func (w *DepositWatcher) process(ctx context.Context, deposit *domain.TonTransaction, height int64) (string, error) {
	log := w.logger.With().Str("deal_id", deposit.DealID).Str("deposit_id", deposit.ID).Logger()

	now := w.clock.Now()
	timedOut := now.Sub(deposit.CreatedAt) > w.cfg.MaxPollDuration

	obs, err := w.observe(ctx, deposit)
	if err != nil {
		return "", err
	}

	switch {
	case obs.total == 0:
		if !timedOut {
			return "pending", nil
		}
		log.Info().Msg("deposit timed out with nothing received")
		return "timeout", w.fail(ctx, deposit, obs, domain.DepositFailureTimeout)

	case obs.total < deposit.ExpectedAmount:
		if !timedOut {
			log.Debug().Int64("received_nano", obs.total).Msg("deposit partially received")
			return "pending", nil
		}
		log.Warn().
			Int64("received_nano", obs.total).
			Int64("expected_nano", deposit.ExpectedAmount).
			Msg("deposit timed out with partial amount")
		return "partial", w.recordPartial(ctx, deposit, obs)
	}

	if deposit.FirstSeenHeight == nil {
		if err := w.markSeen(ctx, deposit, obs, height); err != nil {
			return "", err
		}
	}

	obs.confirmations = height - *deposit.FirstSeenHeight
	if obs.confirmations < 0 {
		obs.confirmations = 0
	}

	requirement := w.policy.Requirement(obs.total)

	if obs.confirmations < requirement.RequiredConfirmations {
		if !timedOut {
			return "pending", nil
		}
		log.Warn().
			Int64("confirmations", obs.confirmations).
			Int64("required", requirement.RequiredConfirmations).
			Msg("deposit timed out before reaching required confirmations")
		return "timeout", w.fail(ctx, deposit, obs, domain.DepositFailureTimeout)
	}

	if requirement.OperatorReview {
		log.Info().Int64("received_nano", obs.total).Msg("deposit needs operator review")
		return "review", w.requestReview(ctx, deposit, obs)
	}

	if err := w.confirm(ctx, deposit, obs, nil); err != nil {
		return "", err
	}

	log.Info().Int64("received_nano", obs.total).Int64("confirmations", obs.confirmations).Msg("deposit confirmed")
	return "confirmed", nil
}

func (w *DepositWatcher) markSeen(ctx context.Context, deposit *domain.TonTransaction, obs observation, height int64) error {
	update, err := transition(deposit, domain.StatusPending, w.clock.Now())
	if err != nil {
		return err
	}

	update.FirstSeenHeight = &height
	update.TxHash = &obs.hash
	update.ReceivedAmount = obs.total
	update.Lt = obs.lt

	err = runInTx(ctx, w.txManager, func(ctx context.Context, tx Transaction) error {
		return w.tonTxRepo.UpdateStatus(ctx, tx, update)
	})
	if err != nil {
		return fmt.Errorf("record first sighting: %w", err)
	}

	applied(deposit, update)
	return nil
}

func (w *DepositWatcher) requestReview(ctx context.Context, deposit *domain.TonTransaction, obs observation) error {
	update, err := transition(deposit, domain.StatusAwaitingOperatorReview, w.clock.Now())
	if err != nil {
		return err
	}

	update.TxHash = &obs.hash
	update.ReceivedAmount = obs.total
	update.Lt = obs.lt
	update.Confirmations = obs.confirmations

	err = runInTx(ctx, w.txManager, func(ctx context.Context, tx Transaction) error {
		return w.tonTxRepo.UpdateStatus(ctx, tx, update)
	})
	if err != nil {
		return fmt.Errorf("request review: %w", err)
	}

	applied(deposit, update)
	return nil
}

// confirm moves the received funds into escrow, marks the deposit confirmed and
// announces it, all in one transaction.
func (w *DepositWatcher) confirm(ctx context.Context, deposit *domain.TonTransaction, obs observation, approvedBy *string) error {
	dealID := deposit.DealID

	legs := []domain.Leg{
		{Account: domain.ExternalAccount(), EntryType: domain.EntryDeposit, Side: domain.Debit, Amount: obs.total},
		{Account: domain.EscrowAccount(dealID), EntryType: domain.EntryDeposit, Side: domain.Credit, Amount: deposit.ExpectedAmount},
	}

	excess := obs.total - deposit.ExpectedAmount
	if excess > 0 {
		legs = append(legs, domain.Leg{
			Account: domain.OverpaymentAccount(dealID), EntryType: domain.EntryOverpayment, Side: domain.Credit, Amount: excess,
		})
	}

	req := domain.TransferRequest{
		IdempotencyKey: "deposit:" + obs.hash,
		DealID:         &dealID,
		Legs:           legs,
		Metadata:       map[string]string{"deposit_id": deposit.ID, "tx_hash": obs.hash},
	}

	update, err := transition(deposit, domain.StatusConfirmed, w.clock.Now())
	if err != nil {
		return err
	}

	update.TxHash = &obs.hash
	update.ReceivedAmount = obs.total
	update.Lt = obs.lt
	update.Confirmations = obs.confirmations
	if approvedBy != nil {
		update.ReviewedBy = approvedBy
	}

	var result *domain.TransferResult

	err = runInTx(ctx, w.txManager, func(ctx context.Context, tx Transaction) error {
		var err error
		result, err = w.ledger.TransferTx(ctx, tx, req)
		if err != nil {
			return err
		}

		if err := w.tonTxRepo.UpdateStatus(ctx, tx, update); err != nil {
			return err
		}

		payload := domain.DepositConfirmedPayload{
			DealID:         dealID,
			DepositID:      deposit.ID,
			TxHash:         obs.hash,
			TransactionRef: result.TransactionRef,
			Amount:         deposit.ExpectedAmount,
			AmountTON:      domain.FormatTON(deposit.ExpectedAmount),
			Overpayment:    max(excess, 0),
			Confirmations:  obs.confirmations,
		}
		if approvedBy != nil {
			payload.ApprovedBy = *approvedBy
		}

		return w.outbox.Enqueue(ctx, tx, domain.EventDepositConfirmed, &dealID, "deposit-confirmed:"+deposit.ID, payload)
	})
	if err != nil {
		return fmt.Errorf("confirm deposit %s: %w", deposit.ID, err)
	}

	w.ledger.Committed(ctx, result)
	applied(deposit, update)

	return nil
}

func (w *DepositWatcher) recordPartial(ctx context.Context, deposit *domain.TonTransaction, obs observation) error {
	dealID := deposit.DealID

	req := domain.TransferRequest{
		IdempotencyKey: "partial:" + obs.hash,
		DealID:         &dealID,
		Legs: []domain.Leg{
			{Account: domain.ExternalAccount(), EntryType: domain.EntryPartialDeposit, Side: domain.Debit, Amount: obs.total},
			{Account: domain.PartialDepositAccount(dealID), EntryType: domain.EntryPartialDeposit, Side: domain.Credit, Amount: obs.total},
		},
		Metadata: map[string]string{"deposit_id": deposit.ID, "tx_hash": obs.hash},
	}

	var result *domain.TransferResult

	err := w.failWith(ctx, deposit, obs, domain.DepositFailurePartial, func(ctx context.Context, tx Transaction) error {
		var err error
		result, err = w.ledger.TransferTx(ctx, tx, req)
		return err
	})
	if err != nil {
		return err
	}

	w.ledger.Committed(ctx, result)
	return nil
}

func (w *DepositWatcher) fail(ctx context.Context, deposit *domain.TonTransaction, obs observation, reason string) error {
	return w.failWith(ctx, deposit, obs, reason, nil)
}

// failWith moves a pending deposit to TIMEOUT and emits deposit-failed,
// running extra inside the same transaction when set.
func (w *DepositWatcher) failWith(ctx context.Context, deposit *domain.TonTransaction, obs observation, reason string, extra func(ctx context.Context, tx Transaction) error) error {
	update, err := transition(deposit, domain.StatusTimeout, w.clock.Now())
	if err != nil {
		return err
	}

	update.FailureReason = reason
	update.ReceivedAmount = obs.total
	if obs.hash != "" {
		update.TxHash = &obs.hash
		update.Lt = obs.lt
	}

	dealID := deposit.DealID

	err = runInTx(ctx, w.txManager, func(ctx context.Context, tx Transaction) error {
		if extra != nil {
			if err := extra(ctx, tx); err != nil {
				return err
			}
		}

		if err := w.tonTxRepo.UpdateStatus(ctx, tx, update); err != nil {
			return err
		}

		return w.outbox.Enqueue(ctx, tx, domain.EventDepositFailed, &dealID, "deposit-failed:"+deposit.ID, domain.DepositFailedPayload{
			DealID:         dealID,
			DepositID:      deposit.ID,
			Reason:         reason,
			TxHash:         obs.hash,
			ReceivedAmount: obs.total,
			ExpectedAmount: deposit.ExpectedAmount,
		})
	})
	if err != nil {
		return fmt.Errorf("fail deposit %s: %w", deposit.ID, err)
	}

	applied(deposit, update)
	return nil
}

// Approve confirms a deposit held for operator review.
func (w *DepositWatcher) Approve(ctx context.Context, depositID, operator string) (*domain.TonTransaction, error) {
	ctx, span := tracer.Start(ctx, "deposits.Approve", trace.WithAttributes(attribute.String("deposit_id", depositID)))
	defer span.End()

	deposit, err := w.reviewable(ctx, depositID, operator)
	if err != nil {
		return nil, err
	}

	obs := observation{
		hash:          deposit.Hash(),
		total:         deposit.ReceivedAmount,
		lt:            deposit.Lt,
		confirmations: deposit.Confirmations,
	}

	if err := w.confirm(ctx, deposit, obs, &operator); err != nil {
		span.RecordError(err)
		return nil, err
	}

	if w.metrics != nil {
		w.metrics.DepositsProcessed.WithLabelValues("approved").Inc()
	}

	w.logger.Info().Str("deal_id", deposit.DealID).Str("deposit_id", deposit.ID).Str("operator", operator).Msg("deposit approved")

	return deposit, nil
}

// Reject closes a deposit held for operator review without touching the ledger.
func (w *DepositWatcher) Reject(ctx context.Context, depositID, operator, reason string) (*domain.TonTransaction, error) {
	ctx, span := tracer.Start(ctx, "deposits.Reject", trace.WithAttributes(attribute.String("deposit_id", depositID)))
	defer span.End()

	deposit, err := w.reviewable(ctx, depositID, operator)
	if err != nil {
		return nil, err
	}

	update, err := transition(deposit, domain.StatusRejected, w.clock.Now())
	if err != nil {
		return nil, err
	}

	update.ReviewedBy = &operator
	update.FailureReason = domain.DepositFailureRejected
	if reason = strings.TrimSpace(reason); reason != "" {
		update.FailureReason = domain.DepositFailureRejected + ": " + reason
	}

	dealID := deposit.DealID

	err = runInTx(ctx, w.txManager, func(ctx context.Context, tx Transaction) error {
		if err := w.tonTxRepo.UpdateStatus(ctx, tx, update); err != nil {
			return err
		}

		return w.outbox.Enqueue(ctx, tx, domain.EventDepositFailed, &dealID, "deposit-failed:"+deposit.ID, domain.DepositFailedPayload{
			DealID:         dealID,
			DepositID:      deposit.ID,
			Reason:         domain.DepositFailureRejected,
			TxHash:         deposit.Hash(),
			ReceivedAmount: deposit.ReceivedAmount,
			ExpectedAmount: deposit.ExpectedAmount,
		})
	})
	if err != nil {
		span.RecordError(err)
		return nil, fmt.Errorf("reject deposit %s: %w", deposit.ID, err)
	}

	applied(deposit, update)

	if w.metrics != nil {
		w.metrics.DepositsProcessed.WithLabelValues("rejected").Inc()
	}

	w.logger.Info().Str("deal_id", deposit.DealID).Str("deposit_id", deposit.ID).Str("operator", operator).Msg("deposit rejected")

	return deposit, nil
}

// Get returns a tracked deposit.
func (w *DepositWatcher) Get(ctx context.Context, depositID string) (*domain.TonTransaction, error) {
	return w.tonTxRepo.GetByID(ctx, depositID)
}

func (w *DepositWatcher) reviewable(ctx context.Context, depositID, operator string) (*domain.TonTransaction, error) {
	if strings.TrimSpace(operator) == "" {
		return nil, domain.NewError(domain.KindInvalidArgument, "operator is required")
	}

	deposit, err := w.tonTxRepo.GetByID(ctx, depositID)
	if err != nil {
		return nil, err
	}

	if deposit.Operation != domain.OperationDeposit || deposit.Status != domain.StatusAwaitingOperatorReview {
		return nil, domain.NewError(domain.KindInvalidState, "deposit %s is %s, not awaiting review", deposit.ID, deposit.Status)
	}

	return deposit, nil
}

func (w *DepositWatcher) jobRun(outcome string) {
	if w.metrics != nil {
		w.metrics.JobRuns.WithLabelValues("deposit-poll", outcome).Inc()
	}
}

func (w *DepositWatcher) lateRun(outcome string) {
	if w.metrics != nil {
		w.metrics.JobRuns.WithLabelValues("late-deposit-sweep", outcome).Inc()
	}
}
