package postgres

import (
	"context"
	"errors"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/rs/zerolog"

	"github.com/iho/goescrow/internal/infrastructure/metrics"
	"github.com/iho/goescrow/internal/usecase"
)

// SQLSTATE codes worth another attempt. Ledger transfers are keyed by an
// idempotency key, so replaying a whole attempt after a dropped connection
// cannot post twice.
const (
	pgErrDeadlock             = "40P01"
	pgErrSerializationFailure = "40001"
	pgErrLockNotAvailable     = "55P03"
	pgErrQueryCanceled        = "57014"
	pgErrAdminShutdown        = "57P01"
	pgClassConnection         = "08"
)

// RetrierOption configures a Retrier.
type RetrierOption func(*Retrier)

// WithMaxRetries caps the number of extra attempts.
func WithMaxRetries(n int) RetrierOption {
	return func(r *Retrier) { r.maxRetries = n }
}

// WithBackoff sets the exponential backoff bounds.
func WithBackoff(initial, ceiling, elapsed time.Duration) RetrierOption {
	return func(r *Retrier) {
		r.initialInterval = initial
		r.maxInterval = ceiling
		r.maxElapsedTime = elapsed
	}
}

// WithRetryMetrics counts retries by SQLSTATE.
func WithRetryMetrics(m *metrics.Metrics) RetrierOption {
	return func(r *Retrier) { r.metrics = m }
}

// Retrier implements usecase.Retrier with exponential backoff.
type Retrier struct {
	maxRetries      int
	initialInterval time.Duration
	maxInterval     time.Duration
	maxElapsedTime  time.Duration
	metrics         *metrics.Metrics
	logger          zerolog.Logger
}

var _ usecase.Retrier = (*Retrier)(nil)

// NewRetrier creates a Retrier. Without options it makes three extra
// attempts starting at 50ms.
func NewRetrier(logger zerolog.Logger, opts ...RetrierOption) *Retrier {
	r := &Retrier{
		maxRetries:      3,
		initialInterval: 50 * time.Millisecond,
		maxInterval:     time.Second,
		maxElapsedTime:  10 * time.Second,
		logger:          logger.With().Str("component", "pg_retrier").Logger(),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Retry runs operation until it succeeds, fails permanently, or the retry
// budget runs out. The last error is returned unchanged.
func (r *Retrier) Retry(ctx context.Context, operation func() error) error {
	b := backoff.NewExponentialBackOff()
	b.InitialInterval = r.initialInterval
	b.MaxInterval = r.maxInterval
	b.MaxElapsedTime = r.maxElapsedTime

	var policy backoff.BackOff = backoff.WithContext(b, ctx)
	if r.maxRetries >= 0 {
		policy = backoff.WithMaxRetries(policy, uint64(r.maxRetries))
	}

	attempt := 0
	return backoff.RetryNotify(func() error {
		attempt++
		err := operation()
		if err == nil || !isRetryableError(err) {
			return permanent(err)
		}
		return err
	}, policy, func(err error, wait time.Duration) {
		code := sqlState(err)
		if r.metrics != nil {
			r.metrics.DatabaseRetries.WithLabelValues(code).Inc()
		}
		r.logger.Warn().
			Err(err).
			Str("sqlstate", code).
			Int("attempt", attempt).
			Dur("wait", wait).
			Msg("transient database error, retrying")
	})
}

func permanent(err error) error {
	if err == nil {
		return nil
	}
	return backoff.Permanent(err)
}

// isRetryableError reports whether err is a transient PostgreSQL failure.
func isRetryableError(err error) bool {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		switch pgErr.Code {
		case pgErrDeadlock, pgErrSerializationFailure, pgErrLockNotAvailable, pgErrQueryCanceled, pgErrAdminShutdown:
			return true
		}
		return len(pgErr.Code) == 5 && pgErr.Code[:2] == pgClassConnection
	}
	return pgconn.SafeToRetry(err)
}

func sqlState(err error) string {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Code
	}
	return "connection"
}
