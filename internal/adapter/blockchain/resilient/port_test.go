package resilient

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/rs/zerolog"
	"github.com/sony/gobreaker"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"

	"github.com/iho/goescrow/internal/domain"
	"github.com/iho/goescrow/internal/infrastructure/metrics"
	"github.com/iho/goescrow/internal/usecase/mocks"
)

type memoryStore struct {
	mu     sync.Mutex
	values map[string]string
}

func newMemoryStore() *memoryStore {
	return &memoryStore{values: make(map[string]string)}
}

func (s *memoryStore) Get(_ context.Context, key string) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	v, ok := s.values[key]
	if !ok {
		return "", errors.New("miss")
	}
	return v, nil
}

func (s *memoryStore) Set(_ context.Context, key, value string, _ time.Duration) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.values[key] = value
	return nil
}

var errUpstream = errors.New("toncenter unavailable")

func newTestPort(t *testing.T, cfg Config) (*Port, *mocks.MockBlockchainPort, *memoryStore, *metrics.Metrics) {
	t.Helper()

	ctrl := gomock.NewController(t)
	next := mocks.NewMockBlockchainPort(ctrl)
	store := newMemoryStore()
	m := metrics.NewWithRegisterer(prometheus.NewRegistry())

	return New(next, store, m, zerolog.Nop(), cfg), next, store, m
}

func TestReadServesStaleValueOnFailure(t *testing.T) {
	port, next, _, m := newTestPort(t, Config{})
	ctx := context.Background()

	gomock.InOrder(
		next.EXPECT().GetChainHeight(gomock.Any()).Return(int64(100), nil),
		next.EXPECT().GetChainHeight(gomock.Any()).Return(int64(0), errUpstream),
	)

	height, err := port.GetChainHeight(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(100), height)

	height, err = port.GetChainHeight(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(100), height)

	assert.Equal(t, 1.0, testutil.ToFloat64(m.ChainStaleReads.WithLabelValues("GetChainHeight")))
}

func TestStaleTransactionsRoundTrip(t *testing.T) {
	port, next, _, _ := newTestPort(t, Config{})
	ctx := context.Background()

	observed := time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)
	txs := []domain.ChainTransaction{{
		Hash:       "h1",
		Lt:         42,
		ObservedAt: observed,
		InMsg:      &domain.ChainMessage{Source: "0:aa", Amount: 1000},
	}}

	gomock.InOrder(
		next.EXPECT().GetTransactions(gomock.Any(), "0:bb", 20).Return(txs, nil),
		next.EXPECT().GetTransactions(gomock.Any(), "0:bb", 20).Return(nil, errUpstream),
	)

	_, err := port.GetTransactions(ctx, "0:bb", 20)
	require.NoError(t, err)

	got, err := port.GetTransactions(ctx, "0:bb", 20)
	require.NoError(t, err)
	assert.Equal(t, txs, got)
}

func TestReadWithoutStaleValueFails(t *testing.T) {
	port, next, _, _ := newTestPort(t, Config{})

	next.EXPECT().GetAddressBalance(gomock.Any(), "0:aa").Return(int64(0), errUpstream)

	_, err := port.GetAddressBalance(context.Background(), "0:aa")
	require.Error(t, err)
	assert.Equal(t, domain.KindChainCallFailed, domain.KindOf(err))
	assert.ErrorIs(t, err, errUpstream)
}

func TestWritesSurfaceErrors(t *testing.T) {
	port, next, store, _ := newTestPort(t, Config{})
	ctx := context.Background()

	// A cached value under any key must not mask write failures.
	require.NoError(t, store.Set(ctx, "height", "1", time.Minute))

	next.EXPECT().SendSignedPayload(gomock.Any(), []byte("boc")).Return("", errUpstream)
	next.EXPECT().GetWalletSequence(gomock.Any(), "0:aa").Return(uint32(0), errUpstream)
	next.EXPECT().EstimateFee(gomock.Any(), "0:aa", []byte("boc")).Return(int64(0), errUpstream)

	_, err := port.SendSignedPayload(ctx, []byte("boc"))
	assert.Equal(t, domain.KindChainCallFailed, domain.KindOf(err))
	assert.NotErrorIs(t, err, domain.ErrNotSubmitted, "an upstream failure may have reached the network")

	_, err = port.GetWalletSequence(ctx, "0:aa")
	assert.Equal(t, domain.KindChainCallFailed, domain.KindOf(err))

	_, err = port.EstimateFee(ctx, "0:aa", []byte("boc"))
	assert.Equal(t, domain.KindChainCallFailed, domain.KindOf(err))
}

func TestBreakerOpensOnFailureRatio(t *testing.T) {
	port, next, _, m := newTestPort(t, Config{MinRequests: 3, FailureRatio: 0.5, OpenTimeout: time.Hour})
	ctx := context.Background()

	next.EXPECT().SendSignedPayload(gomock.Any(), gomock.Any()).Return("", errUpstream).Times(3)

	for range 3 {
		_, err := port.SendSignedPayload(ctx, []byte("boc"))
		require.Error(t, err)
	}

	assert.Equal(t, gobreaker.StateOpen, port.State())
	assert.Equal(t, float64(gobreaker.StateOpen), testutil.ToFloat64(m.BreakerState.WithLabelValues("blockchain")))

	_, err := port.SendSignedPayload(ctx, []byte("boc"))
	require.Error(t, err)
	assert.ErrorIs(t, err, gobreaker.ErrOpenState)
	assert.ErrorIs(t, err, domain.ErrNotSubmitted)
	assert.Equal(t, domain.KindChainCallFailed, domain.KindOf(err))
}

func TestSlowCallsCountAsFailures(t *testing.T) {
	port, next, _, _ := newTestPort(t, Config{SlowCall: 20 * time.Millisecond, MinRequests: 1, FailureRatio: 1})

	next.EXPECT().GetWalletSequence(gomock.Any(), "0:aa").DoAndReturn(func(ctx context.Context, _ string) (uint32, error) {
		<-ctx.Done()
		return 0, ctx.Err()
	})

	_, err := port.GetWalletSequence(context.Background(), "0:aa")
	require.Error(t, err)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
	assert.NotErrorIs(t, err, domain.ErrNotSubmitted)
	assert.Equal(t, gobreaker.StateOpen, port.State())
}

func TestBulkheadRejectsWhenFull(t *testing.T) {
	port, next, _, m := newTestPort(t, Config{MaxConcurrency: 1, BulkheadWait: 20 * time.Millisecond})

	entered := make(chan struct{})
	release := make(chan struct{})

	next.EXPECT().GetWalletSequence(gomock.Any(), "0:aa").DoAndReturn(func(context.Context, string) (uint32, error) {
		close(entered)
		<-release
		return 7, nil
	})

	done := make(chan error, 1)
	go func() {
		_, err := port.GetWalletSequence(context.Background(), "0:aa")
		done <- err
	}()
	<-entered

	_, err := port.EstimateFee(context.Background(), "0:aa", nil)
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrBulkheadFull)
	assert.ErrorIs(t, err, domain.ErrNotSubmitted)
	assert.Equal(t, 1.0, testutil.ToFloat64(m.ChainCalls.WithLabelValues("EstimateFee", "rejected")))

	close(release)
	require.NoError(t, <-done)
}
