package cron

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	goredis "github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ledgerdesk/portal-backend/pkg/redis"
)

func newLockStore(t *testing.T) (*miniredis.Miniredis, *redis.Client) {
	t.Helper()
	mr := miniredis.RunT(t)
	raw := goredis.NewClient(&goredis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = raw.Close() })
	return mr, redis.Wrap(raw)
}

func TestRedisLockIsExclusive(t *testing.T) {
	mr, store := newLockStore(t)
	ctx := context.Background()

	first, err := NewRedisLock(store, "cron-worker", time.Minute)
	require.NoError(t, err)
	second, err := NewRedisLock(store, "cron-worker", time.Minute)
	require.NoError(t, err)

	ok, err := first.Acquire(ctx)
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = second.Acquire(ctx)
	require.NoError(t, err)
	assert.False(t, ok)

	require.NoError(t, second.Release(ctx))
	assert.True(t, mr.Exists(store.LockKey("cron-worker")))

	require.NoError(t, first.Release(ctx))
	assert.False(t, mr.Exists(store.LockKey("cron-worker")))

	ok, err = second.Acquire(ctx)
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestRedisLockKeepsForeignOwner(t *testing.T) {
	mr, store := newLockStore(t)
	ctx := context.Background()

	lock, err := NewRedisLock(store, "cron-worker", time.Minute)
	require.NoError(t, err)
	ok, err := lock.Acquire(ctx)
	require.NoError(t, err)
	require.True(t, ok)

	// The TTL lapsed and another worker took over.
	key := store.LockKey("cron-worker")
	require.NoError(t, mr.Set(key, "someone-else"))

	require.NoError(t, lock.Release(ctx))
	got, err := mr.Get(key)
	require.NoError(t, err)
	assert.Equal(t, "someone-else", got)
}

func TestNewRedisLockValidation(t *testing.T) {
	_, err := NewRedisLock(nil, "x", time.Minute)
	assert.Error(t, err)

	_, store := newLockStore(t)
	_, err = NewRedisLock(store, "", time.Minute)
	assert.Error(t, err)
}
