package postgres

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/iho/goescrow/internal/infrastructure/metrics"
)

func fastRetrier(opts ...RetrierOption) *Retrier {
	opts = append([]RetrierOption{WithBackoff(time.Millisecond, 2*time.Millisecond, time.Second)}, opts...)
	return NewRetrier(zerolog.Nop(), opts...)
}

func TestRetrierRetriesTransientErrors(t *testing.T) {
	m := metrics.NewWithRegisterer(prometheus.NewRegistry())
	r := fastRetrier(WithRetryMetrics(m))

	attempts := 0
	err := r.Retry(context.Background(), func() error {
		attempts++
		if attempts < 3 {
			return &pgconn.PgError{Code: pgErrSerializationFailure}
		}
		return nil
	})

	require.NoError(t, err)
	assert.Equal(t, 3, attempts)
	assert.Equal(t, 2.0, testutil.ToFloat64(m.DatabaseRetries.WithLabelValues(pgErrSerializationFailure)))
}

func TestRetrierGivesUpAfterMaxRetries(t *testing.T) {
	r := fastRetrier(WithMaxRetries(2))
	deadlock := &pgconn.PgError{Code: pgErrDeadlock}

	attempts := 0
	err := r.Retry(context.Background(), func() error {
		attempts++
		return deadlock
	})

	assert.ErrorIs(t, err, deadlock)
	assert.Equal(t, 3, attempts)
}

func TestRetrierStopsOnPermanentError(t *testing.T) {
	r := fastRetrier()
	permanentErr := errors.New("permanent")

	attempts := 0
	err := r.Retry(context.Background(), func() error {
		attempts++
		return permanentErr
	})

	assert.ErrorIs(t, err, permanentErr)
	assert.Equal(t, 1, attempts)
}

func TestRetrierStopsWhenContextDone(t *testing.T) {
	r := fastRetrier()
	ctx, cancel := context.WithCancel(context.Background())

	attempts := 0
	err := r.Retry(ctx, func() error {
		attempts++
		cancel()
		return &pgconn.PgError{Code: pgErrDeadlock}
	})

	require.Error(t, err)
	assert.Equal(t, 1, attempts)
}

func TestIsRetryableError(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want bool
	}{
		{"deadlock", &pgconn.PgError{Code: pgErrDeadlock}, true},
		{"serialization", &pgconn.PgError{Code: pgErrSerializationFailure}, true},
		{"lock not available", &pgconn.PgError{Code: pgErrLockNotAvailable}, true},
		{"admin shutdown", &pgconn.PgError{Code: pgErrAdminShutdown}, true},
		{"connection failure", &pgconn.PgError{Code: "08006"}, true},
		{"unique violation", &pgconn.PgError{Code: "23505"}, false},
		{"check violation", &pgconn.PgError{Code: "23514"}, false},
		{"plain error", errors.New("other"), false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, isRetryableError(tt.err))
		})
	}
}
