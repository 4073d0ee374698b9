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

func newTestRedisLock(t *testing.T, ttl, wait time.Duration) (*RedisLock, *miniredis.Miniredis) {
	t.Helper()

	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })

	return NewRedisLockWithClient(client, ttl, wait), mr
}

func TestRedisLockExclusive(t *testing.T) {
	l, mr := newTestRedisLock(t, time.Minute, 60*time.Millisecond)
	ctx := context.Background()

	unlock, err := l.Acquire(ctx, "booking:r1:2025-12-25")
	require.NoError(t, err)
	assert.True(t, mr.Exists("lock:booking:r1:2025-12-25"))

	_, err = l.Acquire(ctx, "booking:r1:2025-12-25")
	require.ErrorIs(t, err, ErrTimeout)

	require.NoError(t, unlock(ctx))
	assert.False(t, mr.Exists("lock:booking:r1:2025-12-25"))

	unlock, err = l.Acquire(ctx, "booking:r1:2025-12-25")
	require.NoError(t, err)
	require.NoError(t, unlock(ctx))
}

func TestRedisLockReleaseKeepsForeignToken(t *testing.T) {
	l, mr := newTestRedisLock(t, time.Minute, 30*time.Millisecond)
	ctx := context.Background()

	unlock, err := l.Acquire(ctx, "k")
	require.NoError(t, err)

	// ключ истёк и был захвачен другим владельцем
	require.NoError(t, mr.Set("lock:k", "someone-else"))

	require.NoError(t, unlock(ctx))
	got, err := mr.Get("lock:k")
	require.NoError(t, err)
	assert.Equal(t, "someone-else", got)
}

func TestRedisLockTTLExpires(t *testing.T) {
	l, mr := newTestRedisLock(t, time.Second, 30*time.Millisecond)
	ctx := context.Background()

	_, err := l.Acquire(ctx, "k")
	require.NoError(t, err)

	mr.FastForward(2 * time.Second)

	unlock, err := l.Acquire(ctx, "k")
	require.NoError(t, err)
	require.NoError(t, unlock(ctx))
}
