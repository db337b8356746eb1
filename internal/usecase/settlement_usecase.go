package usecase

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/iho/goescrow/internal/domain"
	"github.com/iho/goescrow/internal/infrastructure/metrics"
)

// SettlementConfig holds executor tunables.
type SettlementConfig struct {
	WalletLockTTL  time.Duration
	WalletLockWait time.Duration
}

// SettlementStatus describes what an execution did.
type SettlementStatus string

const (
	SettlementSubmitted   SettlementStatus = "submitted"
	SettlementAlreadyDone SettlementStatus = "already_done"
	SettlementDeferred    SettlementStatus = "deferred"
	SettlementSkipped     SettlementStatus = "skipped"
)

// SettlementResult is the outcome of ExecutePayout or ExecuteRefund.
type SettlementResult struct {
	Transfer *domain.TonTransaction
	Status   SettlementStatus
}

// SettlementExecutor submits payouts and refunds and records their ledger legs.
type SettlementExecutor struct {
	txManager TransactionManager
	tonTxRepo TonTransactionRepository
	addresses PayoutAddressRepository
	ledger    *LedgerUseCase
	outbox    *Outbox
	port      BlockchainPort
	signer    Signer
	locker    Locker
	idGen     IDGenerator
	clock     Clock
	metrics   *metrics.Metrics
	logger    zerolog.Logger
	cfg       SettlementConfig
}

// NewSettlementExecutor creates a new SettlementExecutor.
func NewSettlementExecutor(
	txManager TransactionManager,
	tonTxRepo TonTransactionRepository,
	addresses PayoutAddressRepository,
	ledger *LedgerUseCase,
	outbox *Outbox,
	port BlockchainPort,
	signer Signer,
	locker Locker,
	idGen IDGenerator,
	m *metrics.Metrics,
	logger zerolog.Logger,
	cfg SettlementConfig,
) *SettlementExecutor {
	if cfg.WalletLockTTL <= 0 {
		cfg.WalletLockTTL = 2 * time.Minute
	}
	if cfg.WalletLockWait <= 0 {
		cfg.WalletLockWait = 30 * time.Second
	}

	return &SettlementExecutor{
		txManager: txManager,
		tonTxRepo: tonTxRepo,
		addresses: addresses,
		ledger:    ledger,
		outbox:    outbox,
		port:      port,
		signer:    signer,
		locker:    locker,
		idGen:     idGen,
		clock:     SystemClock{},
		metrics:   m,
		logger:    logger.With().Str("component", "settlement").Logger(),
		cfg:       cfg,
	}
}

// WithClock replaces the clock. Used by tests.
func (e *SettlementExecutor) WithClock(clock Clock) *SettlementExecutor {
	e.clock = clock
	return e
}

type settlementOrder struct {
	op             domain.Operation
	dealID         string
	userID         string
	amount         int64
	commission     int64
	subwalletIndex int32
	completed      domain.EventType
	deferred       domain.EventType
	failed         domain.EventType
}

// ExecutePayout releases escrow of a deal to the channel owner.
func (e *SettlementExecutor) ExecutePayout(ctx context.Context, cmd domain.ExecutePayoutCommand) (*SettlementResult, error) {
	return e.execute(ctx, settlementOrder{
		op:             domain.OperationPayout,
		dealID:         cmd.DealID,
		userID:         cmd.OwnerID,
		amount:         cmd.Amount,
		commission:     cmd.Commission,
		subwalletIndex: cmd.SubwalletIndex,
		completed:      domain.EventPayoutCompleted,
		deferred:       domain.EventPayoutDeferred,
		failed:         domain.EventPayoutFailed,
	})
}

// ExecuteRefund returns escrow of a deal to the advertiser.
func (e *SettlementExecutor) ExecuteRefund(ctx context.Context, cmd domain.ExecuteRefundCommand) (*SettlementResult, error) {
	return e.execute(ctx, settlementOrder{
		op:             domain.OperationRefund,
		dealID:         cmd.DealID,
		userID:         cmd.AdvertiserID,
		amount:         cmd.Amount,
		subwalletIndex: cmd.SubwalletIndex,
		completed:      domain.EventRefundCompleted,
		deferred:       domain.EventRefundDeferred,
		failed:         domain.EventRefundFailed,
	})
}

func (e *SettlementExecutor) execute(ctx context.Context, o settlementOrder) (*SettlementResult, error) {
	ctx, span := tracer.Start(ctx, "settlement.Execute", trace.WithAttributes(
		attribute.String("operation", string(o.op)),
		attribute.String("deal_id", o.dealID),
	))
	defer span.End()

	result, err := e.run(ctx, o)

	outcome := "error"
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		switch domain.KindOf(err) {
		case domain.KindAmbiguousPriorAttempt:
			outcome = "ambiguous"
		case domain.KindInsufficientBalance:
			outcome = "insufficient"
		}
	} else {
		outcome = string(result.Status)
	}

	if e.metrics != nil {
		e.metrics.SettlementsExecuted.WithLabelValues(o.op.KeyPrefix(), outcome).Inc()
	}

	return result, err
}

func (e *SettlementExecutor) run(ctx context.Context, o settlementOrder) (*SettlementResult, error) {
	log := e.logger.With().Str("operation", string(o.op)).Str("deal_id", o.dealID).Logger()

	// 1. Commands without a deal cannot be keyed and are dropped
	if strings.TrimSpace(o.dealID) == "" {
		log.Warn().Msg("settlement command without deal id skipped")
		return &SettlementResult{Status: SettlementSkipped}, nil
	}
	if o.amount <= 0 || o.commission < 0 {
		return nil, domain.ErrInvalidAmount
	}

	// 2. One submission at a time per wallet (seqno ordering)
	lock, err := e.locker.Acquire(ctx, WalletLockKey(o.subwalletIndex), e.cfg.WalletLockTTL, e.cfg.WalletLockWait)
	if err != nil {
		e.lockOutcome("timeout")
		if errors.Is(err, domain.ErrLockNotAcquired) {
			return nil, err
		}
		return nil, fmt.Errorf("acquire wallet lock: %w", err)
	}
	e.lockOutcome("acquired")
	defer releaseLock(ctx, lock, func(err error) {
		log.Warn().Err(err).Msg("failed to release wallet lock")
	})

	// 3. Fail closed on a prior attempt whose outcome is unknown
	latest, err := e.tonTxRepo.GetLatestOutbound(ctx, o.dealID, o.op)
	switch {
	case err == nil:
		switch {
		case latest.IsAmbiguous():
			log.Error().Str("transfer_id", latest.ID).Msg("prior attempt has no hash, refusing to resubmit")
			err := domain.WrapError(domain.KindAmbiguousPriorAttempt,
				domain.ErrAmbiguousPriorAttempt, "%s of deal %s (transfer %s)", o.op, o.dealID, latest.ID)
			e.fail(ctx, o, latest.ID, domain.SettlementFailureOutcomeUnknown, err)
			return &SettlementResult{Transfer: latest}, err
		case latest.Status == domain.StatusSubmitted || latest.Status == domain.StatusConfirmed:
			log.Info().Str("transfer_id", latest.ID).Msg("settlement already submitted")
			return &SettlementResult{Transfer: latest, Status: SettlementAlreadyDone}, nil
		}
	case errors.Is(err, domain.ErrTransactionNotFound):
	default:
		return nil, fmt.Errorf("load prior attempt: %w", err)
	}

	// 4. Resolve the destination
	destination, err := e.addresses.Get(ctx, o.userID)
	if err != nil {
		if errors.Is(err, domain.ErrPayoutAddressNotFound) {
			return e.deferSettlement(ctx, o)
		}
		return nil, fmt.Errorf("resolve payout address: %w", err)
	}

	from, err := e.signer.WalletAddress(ctx, o.subwalletIndex)
	if err != nil {
		return nil, fmt.Errorf("resolve wallet address: %w", err)
	}

	// 5. Persist the attempt and reserve its funds before anything reaches the chain
	now := e.clock.Now()
	transfer := &domain.TonTransaction{
		ID:             e.idGen.Generate(),
		DealID:         o.dealID,
		Direction:      domain.DirectionOut,
		Operation:      o.op,
		FromAddress:    from,
		ToAddress:      destination.Address,
		Status:         domain.StatusCreated,
		ExpectedAmount: o.amount,
		Commission:     o.commission,
		SubwalletIndex: o.subwalletIndex,
		Version:        1,
		CreatedAt:      now,
		UpdatedAt:      now,
	}

	if err := e.reserve(ctx, o, transfer); err != nil {
		if errors.Is(err, domain.ErrInsufficientBalance) {
			log.Error().Err(err).Msg("escrow cannot cover settlement")
			e.fail(ctx, o, "", domain.SettlementFailureInsufficientFunds, err)
			return nil, err
		}
		return nil, fmt.Errorf("record attempt: %w", err)
	}

	log = log.With().Str("transfer_id", transfer.ID).Logger()

	// 6. Sign and price the order
	payload, fee, err := e.prepare(ctx, o, from, destination.Address)
	if err != nil {
		e.abandon(ctx, o, transfer, err.Error())
		return &SettlementResult{Transfer: transfer}, err
	}

	// 7. Submit. Only a provable rejection releases the reservation.
	hash, err := e.port.SendSignedPayload(ctx, payload)
	if err != nil {
		if errors.Is(err, domain.ErrNotSubmitted) {
			e.abandon(ctx, o, transfer, err.Error())
			return &SettlementResult{Transfer: transfer}, domain.WrapError(domain.KindChainCallFailed, err,
				"submit %s of deal %s", o.op, o.dealID)
		}

		log.Error().Err(err).Msg("submission outcome unknown, leaving attempt unresolved")
		e.fail(ctx, o, transfer.ID, domain.SettlementFailureOutcomeUnknown, err)
		return &SettlementResult{Transfer: transfer}, domain.WrapError(domain.KindAmbiguousPriorAttempt, err,
			"submit %s of deal %s (transfer %s)", o.op, o.dealID, transfer.ID)
	}

	if err := e.recordSubmitted(ctx, o, transfer, hash, fee); err != nil {
		// The transfer is on its way but unrecorded: the CREATED row without a
		// hash blocks any retry until an operator resolves it.
		log.Error().Err(err).Str("tx_hash", hash).Msg("submitted transfer could not be recorded")
		e.fail(ctx, o, transfer.ID, domain.SettlementFailureOutcomeUnknown, err)
		return &SettlementResult{Transfer: transfer}, err
	}

	log.Info().
		Str("tx_hash", hash).
		Int64("amount_nano", o.amount).
		Int64("fee_nano", fee).
		Msg("settlement submitted")

	return &SettlementResult{Transfer: transfer, Status: SettlementSubmitted}, nil
}

// reserve records the attempt and moves its funds out of escrow in one tx.
func (e *SettlementExecutor) reserve(ctx context.Context, o settlementOrder, transfer *domain.TonTransaction) error {
	dealID := o.dealID
	req := domain.TransferRequest{
		IdempotencyKey: "reserve:" + transfer.ID,
		DealID:         &dealID,
		Legs:           reservationLegs(o),
		Metadata:       map[string]string{"transfer_id": transfer.ID},
	}

	var result *domain.TransferResult

	err := runInTx(ctx, e.txManager, func(ctx context.Context, tx Transaction) error {
		if err := e.tonTxRepo.Create(ctx, tx, transfer); err != nil {
			return err
		}

		var err error
		result, err = e.ledger.TransferTx(ctx, tx, req)
		return err
	})
	if err != nil {
		return err
	}

	e.ledger.Committed(ctx, result)
	return nil
}

func (e *SettlementExecutor) prepare(ctx context.Context, o settlementOrder, from, destination string) ([]byte, int64, error) {
	seqno, err := e.port.GetWalletSequence(ctx, from)
	if err != nil {
		return nil, 0, domain.WrapError(domain.KindChainCallFailed, err, "get wallet seqno")
	}

	payload, err := e.signer.Sign(ctx, TransferOrder{
		Destination:    destination,
		Comment:        o.op.KeyPrefix() + ":" + o.dealID,
		Amount:         o.amount,
		SubwalletIndex: o.subwalletIndex,
		Seqno:          seqno,
	})
	if err != nil {
		return nil, 0, fmt.Errorf("sign order: %w", err)
	}

	fee, err := e.port.EstimateFee(ctx, from, payload)
	if err != nil {
		return nil, 0, domain.WrapError(domain.KindChainCallFailed, err, "estimate fee")
	}

	return payload, fee, nil
}

func (e *SettlementExecutor) recordSubmitted(ctx context.Context, o settlementOrder, transfer *domain.TonTransaction, hash string, fee int64) error {
	update, err := transition(transfer, domain.StatusSubmitted, e.clock.Now())
	if err != nil {
		return err
	}
	update.TxHash = &hash
	update.Fee = fee

	dealID := o.dealID
	req := domain.TransferRequest{
		IdempotencyKey: o.op.KeyPrefix() + ":" + o.dealID,
		DealID:         &dealID,
		Legs:           settlementLegs(o, fee),
		Metadata:       map[string]string{"transfer_id": transfer.ID, "tx_hash": hash},
	}

	var result *domain.TransferResult

	err = runInTx(ctx, e.txManager, func(ctx context.Context, tx Transaction) error {
		if err := e.tonTxRepo.UpdateStatus(ctx, tx, update); err != nil {
			return err
		}

		var err error
		result, err = e.ledger.TransferTx(ctx, tx, req)
		if err != nil {
			return err
		}

		return e.outbox.Enqueue(ctx, tx, o.completed, &dealID, string(o.completed)+":"+o.dealID, domain.SettlementCompletedPayload{
			DealID:         dealID,
			TransferID:     transfer.ID,
			TxHash:         hash,
			TransactionRef: result.TransactionRef,
			Destination:    transfer.ToAddress,
			Amount:         o.amount,
			AmountTON:      domain.FormatTON(o.amount),
			Commission:     o.commission,
			Fee:            fee,
		})
	})
	if err != nil {
		return fmt.Errorf("record submitted %s: %w", o.op, err)
	}

	e.ledger.Committed(ctx, result)
	applied(transfer, update)

	return nil
}

// pendingAccount holds reserved funds between escrow and the chain.
func pendingAccount(o settlementOrder) domain.AccountKey {
	if o.op == domain.OperationRefund {
		return domain.RefundPendingAccount(o.dealID)
	}
	return domain.OwnerPendingAccount(o.userID)
}

func reservationLegs(o settlementOrder) []domain.Leg {
	legs := []domain.Leg{
		{Account: domain.EscrowAccount(o.dealID), EntryType: domain.EntryRelease, Side: domain.Debit, Amount: o.amount + o.commission},
		{Account: pendingAccount(o), EntryType: domain.EntryRelease, Side: domain.Credit, Amount: o.amount},
	}

	if o.commission > 0 {
		legs = append(legs, domain.Leg{
			Account: domain.CommissionAccount(o.dealID), EntryType: domain.EntryCommission, Side: domain.Credit, Amount: o.commission,
		})
	}

	return legs
}

// reversalLegs undo a reservation.
func reversalLegs(o settlementOrder) []domain.Leg {
	legs := reservationLegs(o)
	for i := range legs {
		legs[i].EntryType = domain.EntryReversal
		if legs[i].Side == domain.Debit {
			legs[i].Side = domain.Credit
		} else {
			legs[i].Side = domain.Debit
		}
	}
	return legs
}

func settlementLegs(o settlementOrder, fee int64) []domain.Leg {
	entryType := domain.EntryPayout
	if o.op == domain.OperationRefund {
		entryType = domain.EntryRefund
	}

	legs := []domain.Leg{
		{Account: pendingAccount(o), EntryType: entryType, Side: domain.Debit, Amount: o.amount},
		{Account: domain.ExternalAccount(), EntryType: entryType, Side: domain.Credit, Amount: o.amount},
	}

	if fee > 0 {
		legs = append(legs,
			domain.Leg{Account: domain.NetworkFeesAccount(), EntryType: domain.EntryFee, Side: domain.Debit, Amount: fee},
			domain.Leg{Account: domain.ExternalAccount(), EntryType: domain.EntryFee, Side: domain.Credit, Amount: fee},
		)
	}

	return legs
}

// abandon marks an attempt that never reached the chain and returns its
// reservation to escrow so the settlement can be retried.
func (e *SettlementExecutor) abandon(ctx context.Context, o settlementOrder, transfer *domain.TonTransaction, reason string) {
	update, err := transition(transfer, domain.StatusAbandoned, e.clock.Now())
	if err != nil {
		e.logger.Error().Err(err).Str("transfer_id", transfer.ID).Msg("cannot abandon transfer")
		return
	}
	update.FailureReason = reason

	dealID := o.dealID
	req := domain.TransferRequest{
		IdempotencyKey: "reversal:" + transfer.ID,
		DealID:         &dealID,
		Legs:           reversalLegs(o),
		Metadata:       map[string]string{"transfer_id": transfer.ID},
	}

	var result *domain.TransferResult

	err = runInTx(context.WithoutCancel(ctx), e.txManager, func(ctx context.Context, tx Transaction) error {
		if err := e.tonTxRepo.UpdateStatus(ctx, tx, update); err != nil {
			return err
		}

		var err error
		result, err = e.ledger.TransferTx(ctx, tx, req)
		return err
	})
	if err != nil {
		// The row stays CREATED without a hash and blocks retries.
		e.logger.Error().Err(err).Str("transfer_id", transfer.ID).Msg("failed to abandon transfer")
		return
	}

	e.ledger.Committed(ctx, result)
	applied(transfer, update)
}

// fail publishes a settlement failure for operators. Failures are keyed by
// attempt so redeliveries of a stuck command announce it once.
func (e *SettlementExecutor) fail(ctx context.Context, o settlementOrder, transferID, reason string, cause error) {
	dealID := o.dealID
	key := string(o.failed) + ":" + o.dealID + ":" + reason
	if transferID != "" {
		key = string(o.failed) + ":" + transferID
	}

	err := runInTx(context.WithoutCancel(ctx), e.txManager, func(ctx context.Context, tx Transaction) error {
		return e.outbox.Enqueue(ctx, tx, o.failed, &dealID, key, domain.SettlementFailedPayload{
			DealID:     dealID,
			TransferID: transferID,
			UserID:     o.userID,
			Reason:     reason,
			Detail:     cause.Error(),
			Amount:     o.amount,
		})
	})
	if err != nil {
		e.logger.Error().Err(err).
			Str("operation", string(o.op)).
			Str("deal_id", o.dealID).
			Msg("failed to publish settlement failure")
	}
}

func (e *SettlementExecutor) deferSettlement(ctx context.Context, o settlementOrder) (*SettlementResult, error) {
	dealID := o.dealID
	key := "deferred:" + o.op.KeyPrefix() + ":" + o.dealID

	err := runInTx(ctx, e.txManager, func(ctx context.Context, tx Transaction) error {
		return e.outbox.Enqueue(ctx, tx, o.deferred, &dealID, key, domain.SettlementDeferredPayload{
			DealID: dealID,
			UserID: o.userID,
			Reason: "payout address not registered",
			Amount: o.amount,
		})
	})
	if err != nil {
		return nil, fmt.Errorf("defer %s: %w", o.op, err)
	}

	e.logger.Warn().
		Str("operation", string(o.op)).
		Str("deal_id", o.dealID).
		Str("user_id", o.userID).
		Msg("settlement deferred until a payout address is registered")

	return &SettlementResult{Status: SettlementDeferred}, nil
}

func (e *SettlementExecutor) lockOutcome(outcome string) {
	if e.metrics != nil {
		e.metrics.LockAcquisitions.WithLabelValues("wallet", outcome).Inc()
	}
}
