package idempotency

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newStore(t *testing.T) (*Store, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = rdb.Close() })
	return NewStore(rdb, time.Minute), mr
}

func TestStore_Seen(t *testing.T) {
	s, mr := newStore(t)
	ctx := context.Background()
	key := s.Key("checkout.events", 2, 41)
	assert.Equal(t, "idem:checkout.events:2:41", key)

	seen, err := s.Seen(ctx, key)
	require.NoError(t, err)
	assert.False(t, seen)

	seen, err = s.Seen(ctx, key)
	require.NoError(t, err)
	assert.True(t, seen)

	mr.FastForward(2 * time.Minute)
	seen, err = s.Seen(ctx, key)
	require.NoError(t, err)
	assert.False(t, seen)
}

func TestStore_Forget(t *testing.T) {
	s, _ := newStore(t)
	ctx := context.Background()
	key := s.Scoped("webhook", "pay-1")

	_, err := s.Seen(ctx, key)
	require.NoError(t, err)
	require.NoError(t, s.Forget(ctx, key))

	seen, err := s.Seen(ctx, key)
	require.NoError(t, err)
	assert.False(t, seen)
}

func TestStore_AcquireRelease(t *testing.T) {
	s, mr := newStore(t)
	ctx := context.Background()
	key := s.Scoped("payment", "k-1")

	ok, err := s.Acquire(ctx, key)
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = s.Acquire(ctx, key)
	require.NoError(t, err)
	assert.False(t, ok)

	require.NoError(t, s.Release(ctx, key))
	ok, err = s.Acquire(ctx, key)
	require.NoError(t, err)
	assert.True(t, ok)

	mr.FastForward(2 * time.Minute)
	ok, err = s.Acquire(ctx, key)
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestStore_ErrorsWhenRedisDown(t *testing.T) {
	s, mr := newStore(t)
	mr.Close()

	_, err := s.Seen(context.Background(), "k")
	assert.Error(t, err)
	assert.Error(t, s.Ping(context.Background()))
}
