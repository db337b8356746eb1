package usecase_test

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/iho/goescrow/internal/domain"
	"github.com/iho/goescrow/internal/usecase"
)

type recordingExecutor struct {
	payouts []domain.ExecutePayoutCommand
	refunds []domain.ExecuteRefundCommand
	err     error
}

func (r *recordingExecutor) ExecutePayout(_ context.Context, cmd domain.ExecutePayoutCommand) (*usecase.SettlementResult, error) {
	r.payouts = append(r.payouts, cmd)
	return &usecase.SettlementResult{}, r.err
}

func (r *recordingExecutor) ExecuteRefund(_ context.Context, cmd domain.ExecuteRefundCommand) (*usecase.SettlementResult, error) {
	r.refunds = append(r.refunds, cmd)
	return &usecase.SettlementResult{}, r.err
}

type recordingTracker struct {
	watched []domain.WatchDepositCommand
}

func (r *recordingTracker) Watch(_ context.Context, cmd domain.WatchDepositCommand) (*domain.TonTransaction, error) {
	r.watched = append(r.watched, cmd)
	return &domain.TonTransaction{DealID: cmd.DealID}, nil
}

func TestCommandDispatcherRoutesByType(t *testing.T) {
	exec := &recordingExecutor{}
	tracker := &recordingTracker{}
	d := usecase.NewCommandDispatcher(exec, tracker)
	ctx := context.Background()

	require.NoError(t, d.Dispatch(ctx, &domain.ExecutePayoutCommand{DealID: "deal-1"}))
	require.NoError(t, d.Dispatch(ctx, &domain.ExecuteRefundCommand{DealID: "deal-2"}))
	require.NoError(t, d.Dispatch(ctx, &domain.WatchDepositCommand{DealID: "deal-3"}))

	require.Len(t, exec.payouts, 1)
	assert.Equal(t, "deal-1", exec.payouts[0].DealID)
	require.Len(t, exec.refunds, 1)
	assert.Equal(t, "deal-2", exec.refunds[0].DealID)
	require.Len(t, tracker.watched, 1)
	assert.Equal(t, "deal-3", tracker.watched[0].DealID)
}

func TestCommandDispatcherDecodedFromRegistry(t *testing.T) {
	registry, err := domain.NewCommandRegistry()
	require.NoError(t, err)

	cmd, err := registry.Decode(domain.CommandExecutePayout, []byte(`{"dealId":"deal-9","ownerId":"u1","amountNano":1000}`))
	require.NoError(t, err)

	exec := &recordingExecutor{}
	require.NoError(t, usecase.NewCommandDispatcher(exec, &recordingTracker{}).Dispatch(context.Background(), cmd))
	require.Len(t, exec.payouts, 1)
	assert.Equal(t, int64(1000), exec.payouts[0].Amount)
}

func TestCommandDispatcherPropagatesErrors(t *testing.T) {
	exec := &recordingExecutor{err: domain.ErrAmbiguousPriorAttempt}
	d := usecase.NewCommandDispatcher(exec, &recordingTracker{})

	err := d.Dispatch(context.Background(), &domain.ExecutePayoutCommand{DealID: "deal-1"})
	assert.True(t, errors.Is(err, domain.ErrAmbiguousPriorAttempt))
	assert.True(t, usecase.IsTerminal(err))
}

func TestCommandDispatcherRejectsUnknown(t *testing.T) {
	d := usecase.NewCommandDispatcher(&recordingExecutor{}, &recordingTracker{})

	err := d.Dispatch(context.Background(), struct{}{})
	assert.Equal(t, domain.KindInvalidArgument, domain.KindOf(err))
	assert.True(t, usecase.IsTerminal(err))
}

func TestIsTerminal(t *testing.T) {
	tests := []struct {
		err  error
		want bool
	}{
		{err: domain.ErrAmbiguousPriorAttempt, want: true},
		{err: domain.NewError(domain.KindInvalidArgument, "bad"), want: true},
		{err: domain.WrapError(domain.KindInsufficientBalance, domain.ErrInsufficientBalance, "ESCROW:deal-1"), want: true},
		{err: domain.ErrChainCallFailed, want: false},
		{err: domain.ErrLockNotAcquired, want: false},
		{err: errors.New("connection reset"), want: false},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.want, usecase.IsTerminal(tt.err), "%v", tt.err)
	}
}
