package redis

import (
	"context"
	"fmt"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
)

// Options configures NewClient.
type Options struct {
	URL string
	// Name is reported to the server via CLIENT SETNAME.
	Name string
	// ConnectTimeout bounds how long NewClient keeps retrying the first ping.
	ConnectTimeout time.Duration
}

// NewClient parses opts.URL and returns a client once the server answers a
// ping. Pings are retried with backoff so the service can start alongside
// Redis.
func NewClient(ctx context.Context, opts Options, logger zerolog.Logger) (*redis.Client, error) {
	parsed, err := redis.ParseURL(opts.URL)
	if err != nil {
		return nil, fmt.Errorf("parse redis URL: %w", err)
	}
	if opts.Name != "" {
		parsed.ClientName = opts.Name
	}

	client := redis.NewClient(parsed)

	b := backoff.NewExponentialBackOff()
	b.InitialInterval = 100 * time.Millisecond
	b.MaxInterval = 2 * time.Second
	b.MaxElapsedTime = opts.ConnectTimeout

	ping := func() error {
		return client.Ping(ctx).Err()
	}
	notify := func(err error, wait time.Duration) {
		logger.Warn().Err(err).Dur("wait", wait).Str("addr", parsed.Addr).Msg("redis not ready, retrying")
	}

	if err := backoff.RetryNotify(ping, backoff.WithContext(b, ctx), notify); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("ping redis at %s: %w", parsed.Addr, err)
	}

	return client, nil
}
