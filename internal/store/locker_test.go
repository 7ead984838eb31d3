package store

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func exerciseLocker(t *testing.T, l Locker) {
	ctx := context.Background()

	// one writer per key at a time
	var inFlight, maxInFlight int32
	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			unlock, err := l.Lock(ctx, "perforacion:H1")
			if !assert.NoError(t, err) {
				return
			}
			n := atomic.AddInt32(&inFlight, 1)
			for {
				m := atomic.LoadInt32(&maxInFlight)
				if n <= m || atomic.CompareAndSwapInt32(&maxInFlight, m, n) {
					break
				}
			}
			time.Sleep(2 * time.Millisecond)
			atomic.AddInt32(&inFlight, -1)
			unlock()
		}()
	}
	wg.Wait()
	assert.Equal(t, int32(1), maxInFlight)

	// different keys do not block each other
	u1, err := l.Lock(ctx, "corte:H1")
	require.NoError(t, err)
	u2, err := l.Lock(ctx, "corte:H2")
	require.NoError(t, err)

	// a held key times out
	tctx, cancel := context.WithTimeout(ctx, 50*time.Millisecond)
	defer cancel()
	_, err = l.Lock(tctx, "corte:H1")
	assert.ErrorIs(t, err, ErrLockTimeout)

	u1()
	u1() // second call is a no-op
	u2()

	u3, err := l.Lock(ctx, "corte:H1")
	require.NoError(t, err)
	u3()
}

func TestMemoryLocker(t *testing.T) {
	l := NewMemoryLocker()
	exerciseLocker(t, l)
	assert.Empty(t, l.locks)
}

func TestRedisLocker(t *testing.T) {
	_, c := newTestRedis(t)
	exerciseLocker(t, NewRedisLocker(c, "geocore:lock:", 5*time.Second))
}

func TestRedisLocker_ReleaseKeepsForeignToken(t *testing.T) {
	mr, c := newTestRedis(t)
	l := NewRedisLocker(c, "lock:", time.Second)

	unlock, err := l.Lock(context.Background(), "k")
	require.NoError(t, err)

	// lease expired and another holder took the key
	mr.FastForward(2 * time.Second)
	require.NoError(t, mr.Set("lock:k", "someone-else"))

	unlock()
	v, err := mr.Get("lock:k")
	require.NoError(t, err)
	assert.Equal(t, "someone-else", v)
}
