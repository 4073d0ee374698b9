package lock

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLocalAcquireTimesOutWhileHeld(t *testing.T) {
	l := NewLocal(20 * time.Millisecond)
	ctx := context.Background()

	unlock, err := l.Acquire(ctx, "booking:r1:2025-12-25")
	require.NoError(t, err)

	_, err = l.Acquire(ctx, "booking:r1:2025-12-25")
	require.ErrorIs(t, err, ErrTimeout)

	require.NoError(t, unlock(ctx))

	unlock, err = l.Acquire(ctx, "booking:r1:2025-12-25")
	require.NoError(t, err)
	require.NoError(t, unlock(ctx))
}

func TestLocalDifferentKeysDoNotBlock(t *testing.T) {
	l := NewLocal(20 * time.Millisecond)
	ctx := context.Background()

	u1, err := l.Acquire(ctx, "a")
	require.NoError(t, err)
	u2, err := l.Acquire(ctx, "b")
	require.NoError(t, err)

	require.NoError(t, u1(ctx))
	require.NoError(t, u2(ctx))
	assert.Empty(t, l.keys)
}

func TestLocalCancelledContext(t *testing.T) {
	l := NewLocal(time.Second)
	unlock, err := l.Acquire(context.Background(), "k")
	require.NoError(t, err)
	defer unlock(context.Background())

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err = l.Acquire(ctx, "k")
	require.ErrorIs(t, err, context.Canceled)
}

func TestLocalSerializesHolders(t *testing.T) {
	l := NewLocal(0)
	ctx := context.Background()

	var inside, maxInside int32
	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			unlock, err := l.Acquire(ctx, "k")
			if !assert.NoError(t, err) {
				return
			}
			n := atomic.AddInt32(&inside, 1)
			for {
				m := atomic.LoadInt32(&maxInside)
				if n <= m || atomic.CompareAndSwapInt32(&maxInside, m, n) {
					break
				}
			}
			time.Sleep(time.Millisecond)
			atomic.AddInt32(&inside, -1)
			_ = unlock(ctx)
		}()
	}
	wg.Wait()

	assert.Equal(t, int32(1), maxInside)
}

func TestLocalUnlockIsIdempotent(t *testing.T) {
	l := NewLocal(10 * time.Millisecond)
	ctx := context.Background()

	unlock, err := l.Acquire(ctx, "k")
	require.NoError(t, err)
	require.NoError(t, unlock(ctx))
	require.NoError(t, unlock(ctx))

	other, err := l.Acquire(ctx, "k")
	require.NoError(t, err)
	_, err = l.Acquire(ctx, "k")
	require.ErrorIs(t, err, ErrTimeout)
	require.NoError(t, other(ctx))
}
