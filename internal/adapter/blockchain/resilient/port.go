// Package resilient decorates a blockchain port with a bulkhead, a circuit
// breaker, and a stale-read cache.
package resilient

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/rs/zerolog"
	"github.com/sony/gobreaker"
	"golang.org/x/sync/semaphore"

	"github.com/iho/goescrow/internal/domain"
	"github.com/iho/goescrow/internal/infrastructure/metrics"
	"github.com/iho/goescrow/internal/usecase"
)

// ErrBulkheadFull is returned when no call slot frees up within the bulkhead wait.
var ErrBulkheadFull = errors.New("blockchain bulkhead full")

// Store keeps the last good value of read calls.
type Store interface {
	Get(ctx context.Context, key string) (string, error)
	Set(ctx context.Context, key, value string, ttl time.Duration) error
}

// Config tunes the decorator.
type Config struct {
	Name             string
	MaxConcurrency   int64
	BulkheadWait     time.Duration
	SlowCall         time.Duration
	MinRequests      uint32
	FailureRatio     float64
	OpenTimeout      time.Duration
	HalfOpenRequests uint32
	StaleTTL         time.Duration
}

func (c *Config) setDefaults() {
	if c.Name == "" {
		c.Name = "blockchain"
	}
	if c.MaxConcurrency <= 0 {
		c.MaxConcurrency = 4
	}
	if c.BulkheadWait <= 0 {
		c.BulkheadWait = 2 * time.Second
	}
	if c.SlowCall <= 0 {
		c.SlowCall = 5 * time.Second
	}
	if c.MinRequests == 0 {
		c.MinRequests = 10
	}
	if c.FailureRatio <= 0 {
		c.FailureRatio = 0.5
	}
	if c.OpenTimeout <= 0 {
		c.OpenTimeout = 30 * time.Second
	}
	if c.HalfOpenRequests == 0 {
		c.HalfOpenRequests = 2
	}
	if c.StaleTTL <= 0 {
		c.StaleTTL = 10 * time.Minute
	}
}

// Port implements usecase.BlockchainPort around another implementation.
type Port struct {
	next     usecase.BlockchainPort
	breaker  *gobreaker.CircuitBreaker
	bulkhead *semaphore.Weighted
	stale    Store
	metrics  *metrics.Metrics
	logger   zerolog.Logger
	cfg      Config
}

var _ usecase.BlockchainPort = (*Port)(nil)

// New wraps next. stale and m may be nil.
func New(next usecase.BlockchainPort, stale Store, m *metrics.Metrics, logger zerolog.Logger, cfg Config) *Port {
	cfg.setDefaults()
	logger = logger.With().Str("component", "blockchain-port").Logger()

	p := &Port{
		next:     next,
		bulkhead: semaphore.NewWeighted(cfg.MaxConcurrency),
		stale:    stale,
		metrics:  m,
		logger:   logger,
		cfg:      cfg,
	}

	p.breaker = gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:        cfg.Name,
		MaxRequests: cfg.HalfOpenRequests,
		Interval:    time.Minute,
		Timeout:     cfg.OpenTimeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			if counts.Requests < cfg.MinRequests {
				return false
			}
			return float64(counts.TotalFailures)/float64(counts.Requests) >= cfg.FailureRatio
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			logger.Warn().
				Str("breaker", name).
				Str("from", from.String()).
				Str("to", to.String()).
				Msg("circuit breaker state changed")
			if m != nil {
				m.BreakerState.WithLabelValues(name).Set(float64(to))
			}
		},
	})

	if m != nil {
		m.BreakerState.WithLabelValues(cfg.Name).Set(float64(gobreaker.StateClosed))
	}

	return p
}

// State returns the breaker state.
func (p *Port) State() gobreaker.State {
	return p.breaker.State()
}

// GetTransactions reads through the stale cache.
func (p *Port) GetTransactions(ctx context.Context, address string, limit int) ([]domain.ChainTransaction, error) {
	key := "txs:" + address + ":" + strconv.Itoa(limit)
	return readThrough(ctx, p, "GetTransactions", key, func(ctx context.Context) ([]domain.ChainTransaction, error) {
		return p.next.GetTransactions(ctx, address, limit)
	})
}

// GetChainHeight reads through the stale cache. A stale height only
// understates confirmations.
func (p *Port) GetChainHeight(ctx context.Context) (int64, error) {
	return readThrough(ctx, p, "GetChainHeight", "height", p.next.GetChainHeight)
}

// GetAddressBalance reads through the stale cache.
func (p *Port) GetAddressBalance(ctx context.Context, address string) (int64, error) {
	return readThrough(ctx, p, "GetAddressBalance", "balance:"+address, func(ctx context.Context) (int64, error) {
		return p.next.GetAddressBalance(ctx, address)
	})
}

// SendSignedPayload is never served from cache.
func (p *Port) SendSignedPayload(ctx context.Context, payload []byte) (string, error) {
	return call(ctx, p, "SendSignedPayload", func(ctx context.Context) (string, error) {
		return p.next.SendSignedPayload(ctx, payload)
	})
}

// GetWalletSequence is never served from cache. A stale seqno would make the
// signed message invalid.
func (p *Port) GetWalletSequence(ctx context.Context, address string) (uint32, error) {
	return call(ctx, p, "GetWalletSequence", func(ctx context.Context) (uint32, error) {
		return p.next.GetWalletSequence(ctx, address)
	})
}

// EstimateFee is never served from cache.
func (p *Port) EstimateFee(ctx context.Context, address string, payload []byte) (int64, error) {
	return call(ctx, p, "EstimateFee", func(ctx context.Context) (int64, error) {
		return p.next.EstimateFee(ctx, address, payload)
	})
}

func call[T any](ctx context.Context, p *Port, method string, fn func(context.Context) (T, error)) (T, error) {
	var zero T

	waitCtx, cancel := context.WithTimeout(ctx, p.cfg.BulkheadWait)
	err := p.bulkhead.Acquire(waitCtx, 1)
	cancel()
	if err != nil {
		p.observe(method, "rejected")
		return zero, domain.WrapError(domain.KindChainCallFailed,
			fmt.Errorf("%w: %w", ErrBulkheadFull, domain.ErrNotSubmitted), "%s", method)
	}
	defer p.bulkhead.Release(1)

	start := time.Now()
	res, err := p.breaker.Execute(func() (interface{}, error) {
		callCtx, cancel := context.WithTimeout(ctx, p.cfg.SlowCall)
		defer cancel()
		return fn(callCtx)
	})
	if p.metrics != nil {
		p.metrics.ChainCallDuration.WithLabelValues(method).Observe(time.Since(start).Seconds())
	}

	if err != nil {
		if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
			p.observe(method, "open")
			return zero, domain.WrapError(domain.KindChainCallFailed,
				fmt.Errorf("%w: %w", err, domain.ErrNotSubmitted), "%s", method)
		}
		p.observe(method, "error")

		if domain.KindOf(err) == domain.KindChainCallFailed {
			return zero, err
		}
		return zero, domain.WrapError(domain.KindChainCallFailed, err, "%s", method)
	}

	p.observe(method, "ok")
	return res.(T), nil
}

func readThrough[T any](ctx context.Context, p *Port, method, key string, fn func(context.Context) (T, error)) (T, error) {
	v, err := call(ctx, p, method, fn)
	if err == nil {
		p.remember(ctx, key, v)
		return v, nil
	}

	if stale, ok := recall[T](ctx, p, key); ok {
		p.logger.Warn().Err(err).Str("method", method).Msg("serving stale chain data")
		if p.metrics != nil {
			p.metrics.ChainStaleReads.WithLabelValues(method).Inc()
		}
		return stale, nil
	}

	return v, err
}

func (p *Port) remember(ctx context.Context, key string, v any) {
	if p.stale == nil {
		return
	}

	raw, err := json.Marshal(v)
	if err != nil {
		p.logger.Warn().Err(err).Str("key", key).Msg("failed to encode chain data for stale cache")
		return
	}

	if err := p.stale.Set(ctx, key, string(raw), p.cfg.StaleTTL); err != nil {
		p.logger.Warn().Err(err).Str("key", key).Msg("failed to store stale chain data")
	}
}

func recall[T any](ctx context.Context, p *Port, key string) (T, bool) {
	var v T
	if p.stale == nil {
		return v, false
	}

	raw, err := p.stale.Get(ctx, key)
	if err != nil {
		return v, false
	}

	if err := json.Unmarshal([]byte(raw), &v); err != nil {
		p.logger.Warn().Err(err).Str("key", key).Str("type", fmt.Sprintf("%T", v)).Msg("discarding undecodable stale chain data")
		return v, false
	}

	return v, true
}

func (p *Port) observe(method, outcome string) {
	if p.metrics != nil {
		p.metrics.ChainCalls.WithLabelValues(method, outcome).Inc()
	}
}
