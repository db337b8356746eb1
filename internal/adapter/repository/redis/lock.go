package redis

import (
	"context"
	"errors"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/oklog/ulid/v2"
	"github.com/redis/go-redis/v9"

	"github.com/iho/goescrow/internal/domain"
	"github.com/iho/goescrow/internal/usecase"
)

// ErrLockNotHeld is returned by Release when the lock expired or was taken over.
var ErrLockNotHeld = errors.New("lock not held")

// releaseScript deletes the key only if it still holds our token.
var releaseScript = redis.NewScript(`
if redis.call("GET", KEYS[1]) == ARGV[1] then
	return redis.call("DEL", KEYS[1])
end
return 0
`)

var errLockBusy = errors.New("lock busy")

// Locker implements usecase.Locker with SET NX PX and a token-checked release.
type Locker struct {
	client        *redis.Client
	prefix        string
	retryInterval time.Duration
}

// NewLocker creates a new Locker.
func NewLocker(client *redis.Client) *Locker {
	return &Locker{
		client:        client,
		prefix:        "lock:",
		retryInterval: 100 * time.Millisecond,
	}
}

// WithRetryInterval sets the polling interval of Acquire.
func (l *Locker) WithRetryInterval(d time.Duration) *Locker {
	l.retryInterval = d
	return l
}

// TryAcquire makes a single attempt to take key for ttl.
func (l *Locker) TryAcquire(ctx context.Context, key string, ttl time.Duration) (usecase.Lock, bool, error) {
	token := ulid.Make().String()
	fullKey := l.prefix + key

	ok, err := l.client.SetNX(ctx, fullKey, token, ttl).Result()
	if err != nil {
		return nil, false, err
	}
	if !ok {
		return nil, false, nil
	}

	return &redisLock{client: l.client, key: fullKey, token: token}, true, nil
}

// Acquire polls for key until it is taken or wait elapses.
func (l *Locker) Acquire(ctx context.Context, key string, ttl, wait time.Duration) (usecase.Lock, error) {
	if wait <= 0 {
		lock, ok, err := l.TryAcquire(ctx, key, ttl)
		if err != nil {
			return nil, err
		}
		if !ok {
			return nil, domain.WrapError(domain.KindLockNotAcquired, domain.ErrLockNotAcquired, "lock %s is held", key)
		}
		return lock, nil
	}

	var lock usecase.Lock

	b := backoff.NewExponentialBackOff()
	b.InitialInterval = l.retryInterval
	b.MaxInterval = l.retryInterval
	b.Multiplier = 1
	b.RandomizationFactor = 0.2
	b.MaxElapsedTime = wait

	err := backoff.Retry(func() error {
		acquired, ok, err := l.TryAcquire(ctx, key, ttl)
		if err != nil {
			return backoff.Permanent(err)
		}
		if !ok {
			return errLockBusy
		}
		lock = acquired
		return nil
	}, backoff.WithContext(b, ctx))
	if err != nil {
		if errors.Is(err, errLockBusy) {
			return nil, domain.WrapError(domain.KindLockNotAcquired, domain.ErrLockNotAcquired,
				"lock %s not acquired within %s", key, wait)
		}
		return nil, err
	}

	return lock, nil
}

type redisLock struct {
	client *redis.Client
	key    string
	token  string
}

// Release deletes the key if the lock is still ours.
func (l *redisLock) Release(ctx context.Context) error {
	deleted, err := releaseScript.Run(ctx, l.client, []string{l.key}, l.token).Int64()
	if err != nil {
		return err
	}
	if deleted == 0 {
		return ErrLockNotHeld
	}
	return nil
}
