package redis

import (
	"context"
	"errors"
	"testing"
	"time"
)

func TestCacheSetAndGet(t *testing.T) {
	client, mr := newTestRedisClient(t)

	cache := NewCache(client, "balance")
	ctx := context.Background()

	if err := cache.Set(ctx, "ESCROW:deal-1", "1500", time.Minute); err != nil {
		t.Fatalf("set failed: %v", err)
	}

	val, err := cache.Get(ctx, "ESCROW:deal-1")
	if err != nil {
		t.Fatalf("get failed: %v", err)
	}
	if val != "1500" {
		t.Fatalf("expected 1500, got %s", val)
	}

	if !mr.Exists("cache:balance:ESCROW:deal-1") {
		t.Fatalf("expected namespaced key in redis")
	}
}

func TestCacheMiss(t *testing.T) {
	client, _ := newTestRedisClient(t)

	_, err := NewCache(client, "balance").Get(context.Background(), "missing")
	if !errors.Is(err, ErrCacheMiss) {
		t.Fatalf("expected cache miss, got %v", err)
	}
}

func TestCacheExpiry(t *testing.T) {
	client, mr := newTestRedisClient(t)

	cache := NewCache(client, "chain")
	ctx := context.Background()

	if err := cache.Set(ctx, "height", "42", time.Second); err != nil {
		t.Fatalf("set failed: %v", err)
	}

	mr.FastForward(2 * time.Second)

	if _, err := cache.Get(ctx, "height"); !errors.Is(err, ErrCacheMiss) {
		t.Fatalf("expected expired key to miss, got %v", err)
	}
}

func TestCacheNamespacesAreIsolated(t *testing.T) {
	client, _ := newTestRedisClient(t)

	ctx := context.Background()
	balances := NewCache(client, "balance")
	chain := NewCache(client, "chain")

	if err := balances.Set(ctx, "k", "a", time.Minute); err != nil {
		t.Fatalf("set failed: %v", err)
	}

	if _, err := chain.Get(ctx, "k"); !errors.Is(err, ErrCacheMiss) {
		t.Fatalf("expected miss in other namespace, got %v", err)
	}
}

func TestCacheDelete(t *testing.T) {
	client, _ := newTestRedisClient(t)

	cache := NewCache(client, "balance")
	ctx := context.Background()

	if err := cache.Set(ctx, "foo", "bar", time.Minute); err != nil {
		t.Fatalf("set failed: %v", err)
	}

	if err := cache.Delete(ctx, "foo"); err != nil {
		t.Fatalf("delete failed: %v", err)
	}

	if _, err := cache.Get(ctx, "foo"); err == nil {
		t.Fatalf("expected error getting deleted key")
	}
}

func TestCacheDeleteMany(t *testing.T) {
	client, mr := newTestRedisClient(t)

	cache := NewCache(client, "balance")
	ctx := context.Background()

	for _, k := range []string{"a", "b", "c"} {
		if err := cache.Set(ctx, k, "1", time.Minute); err != nil {
			t.Fatalf("set failed: %v", err)
		}
	}

	if err := cache.Delete(ctx, "a", "b", "missing"); err != nil {
		t.Fatalf("delete failed: %v", err)
	}
	if err := cache.Delete(ctx); err != nil {
		t.Fatalf("empty delete failed: %v", err)
	}

	if mr.Exists("cache:balance:a") || mr.Exists("cache:balance:b") {
		t.Fatalf("expected a and b to be deleted")
	}
	if !mr.Exists("cache:balance:c") {
		t.Fatalf("expected c to survive")
	}
}
