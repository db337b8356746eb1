package redis

import (
	"context"
	"testing"
	"time"

	miniredis "github.com/alicebob/miniredis/v2"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewClientSetsName(t *testing.T) {
	s := miniredis.RunT(t)

	ctx := context.Background()
	client, err := NewClient(ctx, Options{URL: "redis://" + s.Addr(), Name: "escrow-test"}, zerolog.Nop())
	require.NoError(t, err)
	t.Cleanup(func() { _ = client.Close() })

	assert.Equal(t, "escrow-test", client.Options().ClientName)
	require.NoError(t, client.Set(ctx, "k", "v", 0).Err())
	got, err := s.Get("k")
	require.NoError(t, err)
	assert.Equal(t, "v", got)
}

func TestNewClientInvalidURL(t *testing.T) {
	_, err := NewClient(context.Background(), Options{URL: "://bad-url"}, zerolog.Nop())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "parse redis URL")
}

func TestNewClientGivesUpWhenServerIsDown(t *testing.T) {
	s := miniredis.RunT(t)
	url := "redis://" + s.Addr()
	s.Close()

	start := time.Now()
	_, err := NewClient(context.Background(), Options{URL: url, ConnectTimeout: 300 * time.Millisecond}, zerolog.Nop())
	require.Error(t, err)
	assert.Less(t, time.Since(start), 5*time.Second)
}

func TestNewClientWaitsForServer(t *testing.T) {
	s := miniredis.RunT(t)
	addr := s.Addr()
	s.Close()
	t.Cleanup(s.Close)

	go func() {
		time.Sleep(150 * time.Millisecond)
		_ = s.Restart()
	}()

	client, err := NewClient(context.Background(), Options{URL: "redis://" + addr, ConnectTimeout: 5 * time.Second}, zerolog.Nop())
	require.NoError(t, err)
	_ = client.Close()
}
