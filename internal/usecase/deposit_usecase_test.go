package usecase_test

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"

	"github.com/iho/goescrow/internal/domain"
	"github.com/iho/goescrow/internal/usecase"
	"github.com/iho/goescrow/internal/usecase/mocks"
)

const depositAddr = "EQDdepositAddress"

type depositFixture struct {
	*ledgerFixture
	watcher *usecase.DepositWatcher
	tonTxs  *mocks.MockTonTransactionRepository
	outbox  *mocks.MockOutboxRepository
	locker  *mocks.MockLocker
	port    *mocks.MockBlockchainPort
}

func newTestPolicy(t *testing.T) *domain.ConfirmationPolicy {
	t.Helper()

	policy, err := domain.NewConfirmationPolicy([]domain.ConfirmationTier{
		{Threshold: 10 * domain.NanoPerTON, RequiredConfirmations: 1},
		{Threshold: 100 * domain.NanoPerTON, RequiredConfirmations: 3},
		{Threshold: domain.CatchAllThreshold, RequiredConfirmations: 12, OperatorReview: true},
	})
	require.NoError(t, err)
	return policy
}

func newTestOutbox(t *testing.T, repo usecase.OutboxRepository, clock usecase.Clock) *usecase.Outbox {
	t.Helper()

	registry, err := domain.NewEventRegistry()
	require.NoError(t, err)
	return usecase.NewOutbox(repo, registry, mocks.NewMockIDGenerator()).WithClock(clock)
}

func newDepositFixture(t *testing.T) *depositFixture {
	t.Helper()

	lf := newLedgerFixture(t)
	f := &depositFixture{
		ledgerFixture: lf,
		tonTxs:        mocks.NewMockTonTransactionRepository(),
		outbox:        mocks.NewMockOutboxRepository(),
		locker:        mocks.NewMockLocker(),
		port:          mocks.NewMockBlockchainPort(gomock.NewController(t)),
	}

	f.watcher = usecase.NewDepositWatcher(
		lf.txManager,
		f.tonTxs,
		lf.uc,
		newTestOutbox(t, f.outbox, lf.clock),
		f.port,
		f.locker,
		newTestPolicy(t),
		mocks.NewMockIDGenerator(),
		nil,
		zerolog.Nop(),
		usecase.DepositConfig{MaxPollDuration: time.Hour, BatchSize: 10},
	).WithClock(lf.clock)

	return f
}

func (f *depositFixture) seedDeposit(t *testing.T, id, dealID string, expected int64) {
	t.Helper()
	f.tonTxs.Seed(&domain.TonTransaction{
		ID:             id,
		DealID:         dealID,
		Direction:      domain.DirectionIn,
		Operation:      domain.OperationDeposit,
		ToAddress:      depositAddr,
		Status:         domain.StatusPending,
		ExpectedAmount: expected,
		Version:        1,
		CreatedAt:      f.clock.Now(),
	})
}

func inbound(hash string, lt uint64, amount int64) domain.ChainTransaction {
	return domain.ChainTransaction{
		Hash:  hash,
		Lt:    lt,
		InMsg: &domain.ChainMessage{Source: "EQDsender", Destination: depositAddr, Amount: amount},
	}
}

func TestDepositWatcher_Watch_IdempotentPerDeal(t *testing.T) {
	f := newDepositFixture(t)
	ctx := context.Background()

	cmd := domain.WatchDepositCommand{DealID: "deal-1", DepositAddress: depositAddr, ExpectedAmount: 5 * domain.NanoPerTON}

	first, err := f.watcher.Watch(ctx, cmd)
	require.NoError(t, err)
	assert.Equal(t, domain.StatusPending, first.Status)

	second, err := f.watcher.Watch(ctx, cmd)
	require.NoError(t, err)
	assert.Equal(t, first.ID, second.ID)
	assert.Len(t, f.tonTxs.ByDeal("deal-1"), 1)
}

func TestDepositWatcher_Watch_Validation(t *testing.T) {
	f := newDepositFixture(t)

	_, err := f.watcher.Watch(context.Background(), domain.WatchDepositCommand{DealID: "deal-1", DepositAddress: depositAddr})
	assert.ErrorIs(t, err, domain.ErrInvalidAmount)

	_, err = f.watcher.Watch(context.Background(), domain.WatchDepositCommand{DepositAddress: depositAddr, ExpectedAmount: 1})
	assert.Equal(t, domain.KindInvalidArgument, domain.KindOf(err))
}

func TestDepositWatcher_Poll_SkipsWhenLockHeld(t *testing.T) {
	f := newDepositFixture(t)
	f.seedDeposit(t, "dep-1", "deal-1", domain.NanoPerTON)
	f.locker.Hold(usecase.LockDepositPoll)

	// No port expectations: the port must not be called
	require.NoError(t, f.watcher.Poll(context.Background()))
	assert.Equal(t, domain.StatusPending, f.tonTxs.Get("dep-1").Status)
}

func TestDepositWatcher_Poll_NothingFoundStaysPending(t *testing.T) {
	f := newDepositFixture(t)
	f.seedDeposit(t, "dep-1", "deal-1", domain.NanoPerTON)

	f.port.EXPECT().GetChainHeight(gomock.Any()).Return(int64(100), nil)
	f.port.EXPECT().GetTransactions(gomock.Any(), depositAddr, gomock.Any()).Return(nil, nil)

	require.NoError(t, f.watcher.Poll(context.Background()))
	assert.Equal(t, domain.StatusPending, f.tonTxs.Get("dep-1").Status)
	assert.False(t, f.locker.IsHeld(usecase.LockDepositPoll))
}

func TestDepositWatcher_Poll_TimeoutEmitsExactlyOneEvent(t *testing.T) {
	f := newDepositFixture(t)
	f.seedDeposit(t, "dep-1", "deal-1", domain.NanoPerTON)
	f.clock.Advance(2 * time.Hour)

	f.port.EXPECT().GetChainHeight(gomock.Any()).Return(int64(100), nil).Times(2)
	f.port.EXPECT().GetTransactions(gomock.Any(), depositAddr, gomock.Any()).Return(nil, nil).Times(1)

	require.NoError(t, f.watcher.Poll(context.Background()))
	// A second run finds no pending deposit
	f.seedDeposit(t, "dep-other", "deal-2", domain.NanoPerTON)
	f.port.EXPECT().GetTransactions(gomock.Any(), depositAddr, gomock.Any()).Return(nil, nil).Times(1)
	require.NoError(t, f.watcher.Poll(context.Background()))

	got := f.tonTxs.Get("dep-1")
	assert.Equal(t, domain.StatusTimeout, got.Status)
	assert.Equal(t, domain.DepositFailureTimeout, got.FailureReason)

	var failedForDeal1 int
	for _, e := range f.outbox.ByType(domain.EventDepositFailed) {
		if *e.DealID == "deal-1" {
			failedForDeal1++
		}
	}
	assert.Equal(t, 1, failedForDeal1)
}

func TestDepositWatcher_Poll_ConfirmsAfterRequiredDepth(t *testing.T) {
	f := newDepositFixture(t)
	ctx := context.Background()
	amount := 50 * domain.NanoPerTON // second tier: 3 confirmations
	f.seedDeposit(t, "dep-1", "deal-1", amount)

	txs := []domain.ChainTransaction{inbound("hash-1", 10, amount)}
	f.port.EXPECT().GetTransactions(gomock.Any(), depositAddr, gomock.Any()).Return(txs, nil).AnyTimes()

	// First sight at height 100
	f.port.EXPECT().GetChainHeight(gomock.Any()).Return(int64(100), nil)
	require.NoError(t, f.watcher.Poll(ctx))

	got := f.tonTxs.Get("dep-1")
	assert.Equal(t, domain.StatusPending, got.Status)
	require.NotNil(t, got.FirstSeenHeight)
	assert.Equal(t, int64(100), *got.FirstSeenHeight)

	// Two confirmations: still pending
	f.port.EXPECT().GetChainHeight(gomock.Any()).Return(int64(102), nil)
	require.NoError(t, f.watcher.Poll(ctx))
	assert.Equal(t, domain.StatusPending, f.tonTxs.Get("dep-1").Status)
	assert.Zero(t, f.accounts.Balance(domain.EscrowAccount("deal-1")))

	// Three confirmations: confirmed
	f.port.EXPECT().GetChainHeight(gomock.Any()).Return(int64(103), nil)
	require.NoError(t, f.watcher.Poll(ctx))

	got = f.tonTxs.Get("dep-1")
	assert.Equal(t, domain.StatusConfirmed, got.Status)
	assert.Equal(t, int64(3), got.Confirmations)
	assert.Equal(t, "hash-1", got.Hash())

	assert.Equal(t, amount, f.accounts.Balance(domain.EscrowAccount("deal-1")))
	assert.Equal(t, -amount, f.accounts.Balance(domain.ExternalAccount()))

	events := f.outbox.ByType(domain.EventDepositConfirmed)
	require.Len(t, events, 1)

	var envelope domain.Envelope
	require.NoError(t, json.Unmarshal(events[0].Payload, &envelope))
	assert.Equal(t, string(domain.EventDepositConfirmed), envelope.EventType)

	var payload domain.DepositConfirmedPayload
	require.NoError(t, json.Unmarshal(envelope.Payload, &payload))
	assert.Equal(t, amount, payload.Amount)
	assert.Equal(t, "50.000000000", payload.AmountTON)
	assert.Equal(t, domain.TopicDeposits, events[0].Topic)
}

func TestDepositWatcher_Poll_OverpaymentCreditsOverpaymentAccount(t *testing.T) {
	f := newDepositFixture(t)
	expected := 5 * domain.NanoPerTON
	f.seedDeposit(t, "dep-1", "deal-1", expected)

	f.port.EXPECT().GetChainHeight(gomock.Any()).Return(int64(10), nil)
	f.port.EXPECT().GetTransactions(gomock.Any(), depositAddr, gomock.Any()).Return([]domain.ChainTransaction{
		inbound("hash-1", 1, 3*domain.NanoPerTON),
		inbound("hash-2", 2, 3*domain.NanoPerTON),
	}, nil)

	// Lowest tier requires one confirmation; seed first sight one block earlier
	seen := int64(9)
	d := f.tonTxs.Get("dep-1")
	d.FirstSeenHeight = &seen
	f.tonTxs.Seed(d)

	require.NoError(t, f.watcher.Poll(context.Background()))

	assert.Equal(t, domain.StatusConfirmed, f.tonTxs.Get("dep-1").Status)
	assert.Equal(t, expected, f.accounts.Balance(domain.EscrowAccount("deal-1")))
	assert.Equal(t, domain.NanoPerTON, f.accounts.Balance(domain.OverpaymentAccount("deal-1")))
	assert.Equal(t, int64(0), f.accounts.Total())
}

func TestDepositWatcher_Poll_ReviewNeverAutoConfirms(t *testing.T) {
	f := newDepositFixture(t)
	ctx := context.Background()
	amount := 500 * domain.NanoPerTON // catch-all tier: review
	f.seedDeposit(t, "dep-1", "deal-1", amount)

	f.port.EXPECT().GetTransactions(gomock.Any(), depositAddr, gomock.Any()).
		Return([]domain.ChainTransaction{inbound("hash-big", 1, amount)}, nil).AnyTimes()
	f.port.EXPECT().GetChainHeight(gomock.Any()).Return(int64(1000), nil)
	require.NoError(t, f.watcher.Poll(ctx))

	f.port.EXPECT().GetChainHeight(gomock.Any()).Return(int64(1012), nil)
	require.NoError(t, f.watcher.Poll(ctx))

	got := f.tonTxs.Get("dep-1")
	assert.Equal(t, domain.StatusAwaitingOperatorReview, got.Status)
	assert.Zero(t, f.accounts.Balance(domain.EscrowAccount("deal-1")))
	assert.Empty(t, f.outbox.ByType(domain.EventDepositConfirmed))

	// Further polls leave it alone
	f.clock.Advance(48 * time.Hour)
	require.NoError(t, f.watcher.Poll(ctx))
	assert.Equal(t, domain.StatusAwaitingOperatorReview, f.tonTxs.Get("dep-1").Status)
}

func TestDepositWatcher_Approve(t *testing.T) {
	f := newDepositFixture(t)
	amount := 500 * domain.NanoPerTON
	hash := "hash-big"

	f.tonTxs.Seed(&domain.TonTransaction{
		ID:             "dep-1",
		DealID:         "deal-1",
		Direction:      domain.DirectionIn,
		Operation:      domain.OperationDeposit,
		Status:         domain.StatusAwaitingOperatorReview,
		ExpectedAmount: amount,
		ReceivedAmount: amount,
		TxHash:         &hash,
		Confirmations:  12,
		Version:        3,
	})

	got, err := f.watcher.Approve(context.Background(), "dep-1", "alice")
	require.NoError(t, err)
	assert.Equal(t, domain.StatusConfirmed, got.Status)
	require.NotNil(t, got.ReviewedBy)
	assert.Equal(t, "alice", *got.ReviewedBy)
	assert.Equal(t, amount, f.accounts.Balance(domain.EscrowAccount("deal-1")))
	require.Len(t, f.outbox.ByType(domain.EventDepositConfirmed), 1)

	_, err = f.watcher.Approve(context.Background(), "dep-1", "alice")
	assert.Equal(t, domain.KindInvalidState, domain.KindOf(err))
}

func TestDepositWatcher_Reject(t *testing.T) {
	f := newDepositFixture(t)
	hash := "hash-big"

	f.tonTxs.Seed(&domain.TonTransaction{
		ID:             "dep-1",
		DealID:         "deal-1",
		Direction:      domain.DirectionIn,
		Operation:      domain.OperationDeposit,
		Status:         domain.StatusAwaitingOperatorReview,
		ExpectedAmount: 100,
		ReceivedAmount: 100,
		TxHash:         &hash,
		Version:        2,
	})

	_, err := f.watcher.Reject(context.Background(), "dep-1", "", "")
	assert.Equal(t, domain.KindInvalidArgument, domain.KindOf(err))

	got, err := f.watcher.Reject(context.Background(), "dep-1", "bob", "sanctioned source")
	require.NoError(t, err)
	assert.Equal(t, domain.StatusRejected, got.Status)
	assert.Zero(t, f.accounts.Balance(domain.EscrowAccount("deal-1")))

	events := f.outbox.ByType(domain.EventDepositFailed)
	require.Len(t, events, 1)

	var envelope domain.Envelope
	require.NoError(t, json.Unmarshal(events[0].Payload, &envelope))
	var payload domain.DepositFailedPayload
	require.NoError(t, json.Unmarshal(envelope.Payload, &payload))
	assert.Equal(t, domain.DepositFailureRejected, payload.Reason)
}

func TestDepositWatcher_Poll_PartialTimeoutRecordsPartialDeposit(t *testing.T) {
	f := newDepositFixture(t)
	f.seedDeposit(t, "dep-1", "deal-1", 10*domain.NanoPerTON)
	f.clock.Advance(2 * time.Hour)

	f.port.EXPECT().GetChainHeight(gomock.Any()).Return(int64(50), nil)
	f.port.EXPECT().GetTransactions(gomock.Any(), depositAddr, gomock.Any()).
		Return([]domain.ChainTransaction{inbound("hash-p", 1, 4*domain.NanoPerTON)}, nil)

	require.NoError(t, f.watcher.Poll(context.Background()))

	got := f.tonTxs.Get("dep-1")
	assert.Equal(t, domain.StatusTimeout, got.Status)
	assert.Equal(t, domain.DepositFailurePartial, got.FailureReason)
	assert.Equal(t, 4*domain.NanoPerTON, f.accounts.Balance(domain.PartialDepositAccount("deal-1")))
	assert.Zero(t, f.accounts.Balance(domain.EscrowAccount("deal-1")))
	require.Len(t, f.outbox.ByType(domain.EventDepositFailed), 1)
}

func TestDepositWatcher_Poll_IsolatesPerDepositErrors(t *testing.T) {
	f := newDepositFixture(t)
	f.seedDeposit(t, "dep-1", "deal-1", domain.NanoPerTON)
	f.tonTxs.Seed(&domain.TonTransaction{
		ID:             "dep-2",
		DealID:         "deal-2",
		Direction:      domain.DirectionIn,
		Operation:      domain.OperationDeposit,
		ToAddress:      "EQDother",
		Status:         domain.StatusPending,
		ExpectedAmount: domain.NanoPerTON,
		Version:        1,
		CreatedAt:      f.clock.Now(),
	})

	seen := int64(1)
	d := f.tonTxs.Get("dep-2")
	d.FirstSeenHeight = &seen
	f.tonTxs.Seed(d)

	f.port.EXPECT().GetChainHeight(gomock.Any()).Return(int64(5), nil)
	f.port.EXPECT().GetTransactions(gomock.Any(), depositAddr, gomock.Any()).Return(nil, errors.New("toncenter down"))
	f.port.EXPECT().GetTransactions(gomock.Any(), "EQDother", gomock.Any()).
		Return([]domain.ChainTransaction{inbound("hash-2", 1, domain.NanoPerTON)}, nil)

	require.NoError(t, f.watcher.Poll(context.Background()))

	assert.Equal(t, domain.StatusPending, f.tonTxs.Get("dep-1").Status)
	assert.Equal(t, domain.StatusConfirmed, f.tonTxs.Get("dep-2").Status)
}

func TestDepositWatcher_Poll_SkipsUnusableTransactions(t *testing.T) {
	f := newDepositFixture(t)
	f.seedDeposit(t, "dep-1", "deal-1", domain.NanoPerTON)

	f.port.EXPECT().GetChainHeight(gomock.Any()).Return(int64(5), nil)
	f.port.EXPECT().GetTransactions(gomock.Any(), depositAddr, gomock.Any()).Return([]domain.ChainTransaction{
		{Hash: "no-in-msg"},
		{Hash: "external-in", InMsg: &domain.ChainMessage{Amount: domain.NanoPerTON}},
		{Hash: "", InMsg: &domain.ChainMessage{Source: "EQDx", Amount: domain.NanoPerTON}},
		{Hash: "zero", InMsg: &domain.ChainMessage{Source: "EQDx"}},
	}, nil)

	require.NoError(t, f.watcher.Poll(context.Background()))

	got := f.tonTxs.Get("dep-1")
	assert.Equal(t, domain.StatusPending, got.Status)
	assert.Nil(t, got.FirstSeenHeight)
}

func TestDepositWatcher_Poll_LockOutlivesWorstCaseBatch(t *testing.T) {
	lf := newLedgerFixture(t)
	locker := mocks.NewMockLocker()

	var ttl time.Duration
	locker.TryAcquireFunc = func(_ context.Context, key string, got time.Duration) (usecase.Lock, bool, error) {
		assert.Equal(t, usecase.LockDepositPoll, key)
		ttl = got
		return nil, false, nil
	}

	watcher := usecase.NewDepositWatcher(
		lf.txManager, mocks.NewMockTonTransactionRepository(), lf.uc,
		newTestOutbox(t, mocks.NewMockOutboxRepository(), lf.clock),
		mocks.NewMockBlockchainPort(gomock.NewController(t)), locker, newTestPolicy(t),
		mocks.NewMockIDGenerator(), nil, zerolog.Nop(),
		usecase.DepositConfig{BatchSize: 50, LockTTL: time.Minute, ChainCallBudget: 7 * time.Second},
	)

	require.NoError(t, watcher.Poll(context.Background()))
	assert.Equal(t, 51*7*time.Second, ttl)
}

func TestDepositWatcher_SweepLate_CreditsLateDepositOnce(t *testing.T) {
	f := newDepositFixture(t)
	ctx := context.Background()
	f.seedDeposit(t, "dep-1", "deal-1", 10*domain.NanoPerTON)
	f.clock.Advance(2 * time.Hour)

	f.port.EXPECT().GetChainHeight(gomock.Any()).Return(int64(50), nil)
	f.port.EXPECT().GetTransactions(gomock.Any(), depositAddr, gomock.Any()).
		Return([]domain.ChainTransaction{inbound("hash-p", 1, 4*domain.NanoPerTON)}, nil)
	require.NoError(t, f.watcher.Poll(ctx))
	require.Equal(t, domain.StatusTimeout, f.tonTxs.Get("dep-1").Status)

	onChain := []domain.ChainTransaction{
		inbound("hash-p", 1, 4*domain.NanoPerTON),
		inbound("hash-late", 2, 6*domain.NanoPerTON),
	}
	f.port.EXPECT().GetTransactions(gomock.Any(), depositAddr, gomock.Any()).Return(onChain, nil).Times(2)

	recorded, err := f.watcher.SweepLate(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, recorded)

	recorded, err = f.watcher.SweepLate(ctx)
	require.NoError(t, err)
	assert.Zero(t, recorded)

	assert.Equal(t, 6*domain.NanoPerTON, f.accounts.Balance(domain.LateDepositAccount("deal-1")))
	assert.Equal(t, 4*domain.NanoPerTON, f.accounts.Balance(domain.PartialDepositAccount("deal-1")))
	assert.Zero(t, f.accounts.Balance(domain.EscrowAccount("deal-1")))
	assert.Zero(t, f.accounts.Total())

	events := f.outbox.ByType(domain.EventLateDeposit)
	require.Len(t, events, 1)
	assert.Equal(t, "deposit-late:hash-late", events[0].IdempotencyKey)
	assert.Equal(t, domain.TopicDeposits, events[0].Topic)

	var env domain.Envelope
	require.NoError(t, json.Unmarshal(events[0].Payload, &env))
	var payload domain.LateDepositPayload
	require.NoError(t, json.Unmarshal(env.Payload, &payload))
	assert.Equal(t, "dep-1", payload.DepositID)
	assert.Equal(t, 6*domain.NanoPerTON, payload.Amount)
}

func TestDepositWatcher_SweepLate_IgnoresDepositsClosedLongAgo(t *testing.T) {
	f := newDepositFixture(t)
	f.tonTxs.Seed(&domain.TonTransaction{
		ID:             "dep-old",
		DealID:         "deal-1",
		Direction:      domain.DirectionIn,
		Operation:      domain.OperationDeposit,
		ToAddress:      depositAddr,
		Status:         domain.StatusTimeout,
		ExpectedAmount: domain.NanoPerTON,
		Version:        2,
		CreatedAt:      f.clock.Now(),
		UpdatedAt:      f.clock.Now(),
	})
	f.clock.Advance(8 * 24 * time.Hour)

	// No port expectations: the closed address must not be looked up
	recorded, err := f.watcher.SweepLate(context.Background())
	require.NoError(t, err)
	assert.Zero(t, recorded)
	assert.False(t, f.locker.IsHeld(usecase.LockLateDeposits))
}
