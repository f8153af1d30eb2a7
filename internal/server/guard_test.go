package server

import (
	"sync"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestConnectionGuard_GlobalCap(t *testing.T) {
	guard := NewConnectionGuard(2, 1000, 1000)

	ok, _ := guard.Acquire("10.0.0.1")
	assert.True(t, ok)
	ok, _ = guard.Acquire("10.0.0.2")
	assert.True(t, ok)

	ok, reason := guard.Acquire("10.0.0.3")
	assert.False(t, ok)
	assert.Equal(t, RejectGlobalLimit, reason)
	assert.Equal(t, int64(2), guard.Current())

	guard.Release()
	ok, _ = guard.Acquire("10.0.0.3")
	assert.True(t, ok)
}

func TestConnectionGuard_RateLimit(t *testing.T) {
	guard := NewConnectionGuard(1000, 1, 2)

	ok, _ := guard.Acquire("10.0.0.1")
	assert.True(t, ok)
	ok, _ = guard.Acquire("10.0.0.1")
	assert.True(t, ok)

	// burst of 2 exhausted, third attempt inside the same instant is refused
	ok, reason := guard.Acquire("10.0.0.1")
	assert.False(t, ok)
	assert.Equal(t, RejectRateLimit, reason)

	// other IPs have their own bucket
	ok, _ = guard.Acquire("10.0.0.2")
	assert.True(t, ok)
}

func TestConnectionGuard_RateRefusalHoldsNoSlot(t *testing.T) {
	guard := NewConnectionGuard(1000, 1, 1)

	ok, _ := guard.Acquire("10.0.0.1")
	assert.True(t, ok)
	ok, _ = guard.Acquire("10.0.0.1")
	assert.False(t, ok)

	assert.Equal(t, int64(1), guard.Current())
}

func TestConnectionGuard_ConcurrentAcquire(t *testing.T) {
	guard := NewConnectionGuard(100, 100000, 100000)

	var success, failure int64
	start := make(chan struct{})
	var wg sync.WaitGroup

	for i := 0; i < 200; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			<-start
			if ok, _ := guard.Acquire("10.0.0.1"); ok {
				atomic.AddInt64(&success, 1)
			} else {
				atomic.AddInt64(&failure, 1)
			}
		}()
	}

	close(start)
	wg.Wait()

	assert.Equal(t, int64(100), atomic.LoadInt64(&success))
	assert.Equal(t, int64(100), atomic.LoadInt64(&failure))
	assert.Equal(t, int64(100), guard.Current())
}

func TestConnectionGuard_TracksBucketsPerIP(t *testing.T) {
	guard := NewConnectionGuard(1000, 10, 10)

	guard.Acquire("10.0.0.1")
	guard.Acquire("10.0.0.2")
	guard.Acquire("10.0.0.1")

	assert.Equal(t, 2, guard.activeBuckets())
}
