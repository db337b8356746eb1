package usecase_test

import (
	"context"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/iho/goescrow/internal/domain"
	"github.com/iho/goescrow/internal/usecase"
	"github.com/iho/goescrow/internal/usecase/mocks"
)

type sweepFixture struct {
	*ledgerFixture
	sweeper *usecase.DustSweeper
	tonTxs  *mocks.MockTonTransactionRepository
	outbox  *mocks.MockOutboxRepository
	locker  *mocks.MockLocker
}

func newSweepFixture(t *testing.T, threshold int64) *sweepFixture {
	t.Helper()

	lf := newLedgerFixture(t)
	f := &sweepFixture{
		ledgerFixture: lf,
		tonTxs:        mocks.NewMockTonTransactionRepository(),
		outbox:        mocks.NewMockOutboxRepository(),
		locker:        mocks.NewMockLocker(),
	}

	f.sweeper = usecase.NewDustSweeper(
		lf.txManager,
		lf.accounts,
		f.tonTxs,
		lf.uc,
		newTestOutbox(t, f.outbox, lf.clock),
		f.locker,
		nil,
		zerolog.Nop(),
		usecase.SweepConfig{DustThreshold: threshold, BatchSize: 10},
	)

	return f
}

func (f *sweepFixture) settle(dealID string) {
	hash := "hash-" + dealID
	f.tonTxs.Seed(&domain.TonTransaction{
		ID:        "out-" + dealID,
		DealID:    dealID,
		Direction: domain.DirectionOut,
		Operation: domain.OperationPayout,
		Status:    domain.StatusSubmitted,
		TxHash:    &hash,
		Version:   2,
	})
}

func TestDustSweeper_WritesOffSettledDust(t *testing.T) {
	f := newSweepFixture(t, 100)
	ctx := context.Background()

	f.accounts.SetBalance(domain.EscrowAccount("settled"), 40)
	f.accounts.SetBalance(domain.EscrowAccount("open"), 30)
	f.accounts.SetBalance(domain.EscrowAccount("large"), 5000)
	f.accounts.SetBalance(domain.ExternalAccount(), -5070)
	f.settle("settled")
	f.settle("large")

	swept, err := f.sweeper.Run(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, swept)

	assert.Zero(t, f.accounts.Balance(domain.EscrowAccount("settled")))
	assert.Equal(t, int64(40), f.accounts.Balance(domain.DustWriteOffAccount()))
	assert.Equal(t, int64(30), f.accounts.Balance(domain.EscrowAccount("open")))
	assert.Equal(t, int64(5000), f.accounts.Balance(domain.EscrowAccount("large")))
	assert.Zero(t, f.accounts.Total())

	events := f.outbox.ByType(domain.EventDustSwept)
	require.Len(t, events, 1)
	assert.Equal(t, "dust-swept:settled", events[0].IdempotencyKey)

	for _, e := range f.entries.All() {
		if e.AccountKey == domain.DustWriteOffAccount() {
			assert.Equal(t, domain.EntryWriteOff, e.EntryType)
		} else {
			assert.Equal(t, domain.EntrySweep, e.EntryType)
		}
	}

	swept, err = f.sweeper.Run(ctx)
	require.NoError(t, err)
	assert.Zero(t, swept)
	assert.Len(t, f.outbox.ByType(domain.EventDustSwept), 1)
}

func TestDustSweeper_DisabledWithoutThreshold(t *testing.T) {
	f := newSweepFixture(t, 0)
	f.accounts.SetBalance(domain.EscrowAccount("settled"), 40)
	f.settle("settled")

	swept, err := f.sweeper.Run(context.Background())
	require.NoError(t, err)
	assert.Zero(t, swept)
	assert.Empty(t, f.locker.Acquired())
}

func TestDustSweeper_SkipsWhenLockHeld(t *testing.T) {
	f := newSweepFixture(t, 100)
	f.accounts.SetBalance(domain.EscrowAccount("settled"), 40)
	f.settle("settled")
	f.locker.Hold(usecase.LockDustSweep)

	swept, err := f.sweeper.Run(context.Background())
	require.NoError(t, err)
	assert.Zero(t, swept)
	assert.Equal(t, int64(40), f.accounts.Balance(domain.EscrowAccount("settled")))
}

func TestDustSweeper_DoesNotCountRecordedWriteOffs(t *testing.T) {
	f := newSweepFixture(t, 100)
	ctx := context.Background()

	f.accounts.SetBalance(domain.EscrowAccount("settled"), 40)
	f.accounts.SetBalance(domain.ExternalAccount(), -40)
	f.settle("settled")

	swept, err := f.sweeper.Run(ctx)
	require.NoError(t, err)
	require.Equal(t, 1, swept)

	// Fresh dust on an escrow already written off hits the recorded key
	f.accounts.SetBalance(domain.EscrowAccount("settled"), 25)

	swept, err = f.sweeper.Run(ctx)
	require.NoError(t, err)
	assert.Zero(t, swept)
	assert.Equal(t, int64(25), f.accounts.Balance(domain.EscrowAccount("settled")))
	assert.Len(t, f.outbox.ByType(domain.EventDustSwept), 1)
}
