package usecase_test

import (
	"context"
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

type outboundFixture struct {
	confirmer *usecase.OutboundConfirmer
	tonTxs    *mocks.MockTonTransactionRepository
	port      *mocks.MockBlockchainPort
	locker    *mocks.MockLocker
	clock     *mocks.MockClock
}

func newOutboundFixture(t *testing.T) *outboundFixture {
	t.Helper()

	f := &outboundFixture{
		tonTxs: mocks.NewMockTonTransactionRepository(),
		port:   mocks.NewMockBlockchainPort(gomock.NewController(t)),
		locker: mocks.NewMockLocker(),
		clock:  mocks.NewMockClock(time.Date(2026, 5, 6, 12, 0, 0, 0, time.UTC)),
	}

	f.confirmer = usecase.NewOutboundConfirmer(
		mocks.NewMockTransactionManager(),
		f.tonTxs,
		f.port,
		f.locker,
		nil,
		zerolog.Nop(),
		usecase.OutboundConfig{BatchSize: 10, SubmitTimeout: 30 * time.Minute},
	).WithClock(f.clock)

	return f
}

func (f *outboundFixture) seedSubmitted(id, dealID, hash string, amount int64) {
	created := f.clock.Now().Add(-10 * time.Minute)
	f.tonTxs.Seed(&domain.TonTransaction{
		ID:             id,
		DealID:         dealID,
		Direction:      domain.DirectionOut,
		Operation:      domain.OperationPayout,
		Status:         domain.StatusSubmitted,
		FromAddress:    hotWallet,
		ToAddress:      ownerWallet,
		ExpectedAmount: amount,
		TxHash:         &hash,
		CreatedAt:      created,
		UpdatedAt:      created,
		Version:        2,
	})
}

func outgoing(hash string, lt uint64, amount int64, at time.Time) domain.ChainTransaction {
	return domain.ChainTransaction{
		Hash:       hash,
		Lt:         lt,
		ObservedAt: at,
		OutMsgs:    []domain.ChainMessage{{Source: hotWallet, Destination: ownerWallet, Amount: amount}},
	}
}

func TestOutboundConfirmer_ConfirmsByHash(t *testing.T) {
	f := newOutboundFixture(t)
	f.seedSubmitted("out-1", "deal-1", "hash-1", 900)

	f.port.EXPECT().GetTransactions(gomock.Any(), hotWallet, gomock.Any()).Return([]domain.ChainTransaction{
		outgoing("hash-1", 77, 900, f.clock.Now().Add(-time.Hour)),
	}, nil)

	require.NoError(t, f.confirmer.Run(context.Background()))

	stored := f.tonTxs.Get("out-1")
	assert.Equal(t, domain.StatusConfirmed, stored.Status)
	assert.Equal(t, uint64(77), stored.Lt)
	assert.False(t, f.locker.IsHeld(usecase.LockOutboundConfirm))
}

func TestOutboundConfirmer_MatchesEachChainTransactionOnce(t *testing.T) {
	f := newOutboundFixture(t)
	f.seedSubmitted("out-1", "deal-1", "ext-1", 900)
	f.seedSubmitted("out-2", "deal-2", "ext-2", 900)

	f.port.EXPECT().GetTransactions(gomock.Any(), hotWallet, gomock.Any()).Return([]domain.ChainTransaction{
		outgoing("chain-1", 80, 900, f.clock.Now().Add(-time.Minute)),
	}, nil)

	require.NoError(t, f.confirmer.Run(context.Background()))

	confirmed := 0
	for _, id := range []string{"out-1", "out-2"} {
		if f.tonTxs.Get(id).Status == domain.StatusConfirmed {
			confirmed++
		}
	}
	assert.Equal(t, 1, confirmed)
}

func TestOutboundConfirmer_IgnoresTransactionsBeforeCreation(t *testing.T) {
	f := newOutboundFixture(t)
	f.seedSubmitted("out-1", "deal-1", "ext-1", 900)

	f.port.EXPECT().GetTransactions(gomock.Any(), hotWallet, gomock.Any()).Return([]domain.ChainTransaction{
		outgoing("old", 10, 900, f.clock.Now().Add(-time.Hour)),
	}, nil)

	require.NoError(t, f.confirmer.Run(context.Background()))
	assert.Equal(t, domain.StatusSubmitted, f.tonTxs.Get("out-1").Status)
}

func TestOutboundConfirmer_OverdueStaysSubmitted(t *testing.T) {
	f := newOutboundFixture(t)
	f.seedSubmitted("out-1", "deal-1", "ext-1", 900)
	f.clock.Advance(time.Hour)

	f.port.EXPECT().GetTransactions(gomock.Any(), hotWallet, gomock.Any()).Return(nil, nil)

	require.NoError(t, f.confirmer.Run(context.Background()))
	assert.Equal(t, domain.StatusSubmitted, f.tonTxs.Get("out-1").Status)
}

func TestOutboundConfirmer_ChainErrorIsIsolated(t *testing.T) {
	f := newOutboundFixture(t)
	f.seedSubmitted("out-1", "deal-1", "ext-1", 900)

	f.port.EXPECT().GetTransactions(gomock.Any(), hotWallet, gomock.Any()).Return(nil, errors.New("timeout"))

	require.NoError(t, f.confirmer.Run(context.Background()))
	assert.Equal(t, domain.StatusSubmitted, f.tonTxs.Get("out-1").Status)
}

func TestOutboundConfirmer_SkipsWhenLockHeld(t *testing.T) {
	f := newOutboundFixture(t)
	f.seedSubmitted("out-1", "deal-1", "ext-1", 900)
	f.locker.Hold(usecase.LockOutboundConfirm)

	// No port expectations: the run must not touch the chain
	require.NoError(t, f.confirmer.Run(context.Background()))
	assert.Equal(t, domain.StatusSubmitted, f.tonTxs.Get("out-1").Status)
}
