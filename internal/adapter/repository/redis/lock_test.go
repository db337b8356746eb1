package redis

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/iho/goescrow/internal/domain"
)

func TestLockerTryAcquire(t *testing.T) {
	client, mr := newTestRedisClient(t)

	locker := NewLocker(client)
	ctx := context.Background()

	lock, ok, err := locker.TryAcquire(ctx, "job:deposit-poll", time.Minute)
	require.NoError(t, err)
	require.True(t, ok)
	assert.True(t, mr.Exists("lock:job:deposit-poll"))

	_, ok, err = locker.TryAcquire(ctx, "job:deposit-poll", time.Minute)
	require.NoError(t, err)
	assert.False(t, ok, "second holder must be rejected")

	require.NoError(t, lock.Release(ctx))
	assert.False(t, mr.Exists("lock:job:deposit-poll"))

	_, ok, err = locker.TryAcquire(ctx, "job:deposit-poll", time.Minute)
	require.NoError(t, err)
	assert.True(t, ok, "released key is free again")
}

func TestLockerReleaseChecksToken(t *testing.T) {
	client, mr := newTestRedisClient(t)

	locker := NewLocker(client)
	ctx := context.Background()

	lock, ok, err := locker.TryAcquire(ctx, "wallet:hot", time.Second)
	require.NoError(t, err)
	require.True(t, ok)

	// The lease expires and another instance takes the key.
	mr.FastForward(2 * time.Second)
	_, ok, err = locker.TryAcquire(ctx, "wallet:hot", time.Minute)
	require.NoError(t, err)
	require.True(t, ok)

	err = lock.Release(ctx)
	assert.ErrorIs(t, err, ErrLockNotHeld)
	assert.True(t, mr.Exists("lock:wallet:hot"), "stale release must not delete the new holder's key")
}

func TestLockerTTLExpiry(t *testing.T) {
	client, mr := newTestRedisClient(t)

	locker := NewLocker(client)
	ctx := context.Background()

	_, ok, err := locker.TryAcquire(ctx, "job:outbox-publish", 30*time.Second)
	require.NoError(t, err)
	require.True(t, ok)

	assertTTL(t, mr, "lock:job:outbox-publish", 30*time.Second)

	mr.FastForward(31 * time.Second)
	assert.False(t, mr.Exists("lock:job:outbox-publish"))
}

func TestLockerAcquireWaitsForRelease(t *testing.T) {
	client, _ := newTestRedisClient(t)

	locker := NewLocker(client).WithRetryInterval(10 * time.Millisecond)
	ctx := context.Background()

	held, ok, err := locker.TryAcquire(ctx, "wallet:hot", time.Minute)
	require.NoError(t, err)
	require.True(t, ok)

	go func() {
		time.Sleep(50 * time.Millisecond)
		_ = held.Release(context.Background())
	}()

	lock, err := locker.Acquire(ctx, "wallet:hot", time.Minute, 2*time.Second)
	require.NoError(t, err)
	require.NoError(t, lock.Release(ctx))
}

func TestLockerAcquireTimesOut(t *testing.T) {
	client, _ := newTestRedisClient(t)

	locker := NewLocker(client).WithRetryInterval(10 * time.Millisecond)
	ctx := context.Background()

	_, ok, err := locker.TryAcquire(ctx, "wallet:hot", time.Minute)
	require.NoError(t, err)
	require.True(t, ok)

	_, err = locker.Acquire(ctx, "wallet:hot", time.Minute, 100*time.Millisecond)
	require.Error(t, err)
	assert.True(t, errors.Is(err, domain.ErrLockNotAcquired))
	assert.Equal(t, domain.KindLockNotAcquired, domain.KindOf(err))
}

func TestLockerRedisError(t *testing.T) {
	client, mr := newTestRedisClient(t)

	mr.SetError("ERR injected failure")
	defer mr.SetError("")

	locker := NewLocker(client).WithRetryInterval(10 * time.Millisecond)

	_, err := locker.Acquire(context.Background(), "wallet:hot", time.Minute, time.Second)
	require.Error(t, err)
	assert.False(t, errors.Is(err, domain.ErrLockNotAcquired))
}
