package lock

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setupRedisLocker(t *testing.T) (*RedisLocker, *miniredis.Miniredis) {
	t.Helper()
	mr, err := miniredis.Run()
	require.NoError(t, err)
	t.Cleanup(mr.Close)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = rdb.Close() })
	return NewRedisLocker(rdb, time.Second), mr
}

func exerciseLocker(t *testing.T, l Locker) {
	ctx := context.Background()
	key := TransactionKey("a1")

	h, ok, err := l.TryLock(ctx, key)
	require.NoError(t, err)
	require.True(t, ok)

	_, ok, err = l.TryLock(ctx, key)
	require.NoError(t, err)
	assert.False(t, ok, "second holder must be refused")

	other, ok, err := l.TryLock(ctx, TransactionKey("b2"))
	require.NoError(t, err)
	assert.True(t, ok, "distinct keys do not contend")
	require.NoError(t, other.Unlock(ctx))

	require.NoError(t, h.Unlock(ctx))
	h2, ok, err := l.TryLock(ctx, key)
	require.NoError(t, err)
	assert.True(t, ok)
	require.NoError(t, h2.Unlock(ctx))

	_, _, err = l.TryLock(ctx, " ")
	assert.ErrorIs(t, err, ErrEmptyKey)
}

func TestRedisLocker(t *testing.T) {
	l, _ := setupRedisLocker(t)
	exerciseLocker(t, l)
}

func TestLocalLocker(t *testing.T) {
	exerciseLocker(t, NewLocalLocker())
}

func TestRedisLocker_ExpiredLockReportsNotHeld(t *testing.T) {
	l, mr := setupRedisLocker(t)
	ctx := context.Background()
	h, ok, err := l.TryLock(ctx, TransactionKey("x"))
	require.NoError(t, err)
	require.True(t, ok)

	mr.FastForward(2 * time.Second)
	assert.ErrorIs(t, h.Unlock(ctx), ErrLockNotHeld)
}

func TestLocalLocker_DoubleUnlock(t *testing.T) {
	l := NewLocalLocker()
	ctx := context.Background()
	h, ok, err := l.TryLock(ctx, "k")
	require.NoError(t, err)
	require.True(t, ok)
	require.NoError(t, h.Unlock(ctx))
	assert.ErrorIs(t, h.Unlock(ctx), ErrLockNotHeld)
}
