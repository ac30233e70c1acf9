package ratelimiter

import (
	"fmt"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	c.now = c.now.Add(d)
	c.mu.Unlock()
}

func newTestLimiter(t *testing.T) (*RateLimiter, *fakeClock) {
	clock := &fakeClock{now: time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)}
	rl := NewRateLimiter(WithClock(clock.Now), WithCleanupInterval(0))
	t.Cleanup(rl.Stop)
	return rl, clock
}

func TestRateLimiter_Allow(t *testing.T) {
	rl, clock := newTestLimiter(t)
	rl.SetPolicy(NamespaceSendTest, 3, time.Minute)

	for i := 0; i < 3; i++ {
		assert.True(t, rl.Allow(NamespaceSendTest, "user-1"), "attempt %d", i+1)
	}
	assert.False(t, rl.Allow(NamespaceSendTest, "user-1"))

	// other keys are independent
	assert.True(t, rl.Allow(NamespaceSendTest, "user-2"))

	clock.Advance(time.Minute)
	assert.True(t, rl.Allow(NamespaceSendTest, "user-1"))
}

func TestRateLimiter_MissingPolicyDenies(t *testing.T) {
	rl, _ := newTestLimiter(t)
	assert.False(t, rl.Allow("unknown", "user-1"))
	assert.Zero(t, rl.RetryAfter("unknown", "user-1"))
}

func TestRateLimiter_DisabledPolicy(t *testing.T) {
	rl, _ := newTestLimiter(t)
	rl.SetPolicy(NamespaceCompile, 0, time.Minute)
	for i := 0; i < 100; i++ {
		require.True(t, rl.Allow(NamespaceCompile, "user-1"))
	}
}

func TestRateLimiter_RetryAfter(t *testing.T) {
	rl, clock := newTestLimiter(t)
	rl.SetPolicy(NamespaceCompile, 2, 10*time.Second)

	assert.True(t, rl.Allow(NamespaceCompile, "k"))
	clock.Advance(4 * time.Second)
	assert.True(t, rl.Allow(NamespaceCompile, "k"))
	assert.Zero(t, rl.RetryAfter(NamespaceCompile, "k"), "not limited until the next attempt fails")

	assert.False(t, rl.Allow(NamespaceCompile, "k"))
	assert.Equal(t, 6*time.Second, rl.RetryAfter(NamespaceCompile, "k"))
}

func TestRateLimiter_Reset(t *testing.T) {
	rl, _ := newTestLimiter(t)
	rl.SetPolicy(NamespaceSendTest, 1, time.Hour)

	assert.True(t, rl.Allow(NamespaceSendTest, "k"))
	assert.False(t, rl.Allow(NamespaceSendTest, "k"))
	rl.Reset(NamespaceSendTest, "k")
	assert.True(t, rl.Allow(NamespaceSendTest, "k"))
}

func TestRateLimiter_Sweep(t *testing.T) {
	rl, clock := newTestLimiter(t)
	rl.SetPolicy(NamespaceSendTest, 5, time.Minute)

	rl.Allow(NamespaceSendTest, "old")
	clock.Advance(2 * time.Minute)
	rl.Allow(NamespaceSendTest, "fresh")
	rl.sweep()

	rl.mu.Lock()
	defer rl.mu.Unlock()
	assert.NotContains(t, rl.attempts[NamespaceSendTest], "old")
	assert.Contains(t, rl.attempts[NamespaceSendTest], "fresh")
}

func TestRateLimiter_Concurrent(t *testing.T) {
	rl, _ := newTestLimiter(t)
	rl.SetPolicy(NamespaceCompile, 50, time.Minute)

	var allowed int32
	var wg sync.WaitGroup
	for i := 0; i < 200; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			if rl.Allow(NamespaceCompile, fmt.Sprintf("user-%d", i%2)) {
				atomic.AddInt32(&allowed, 1)
			}
		}(i)
	}
	wg.Wait()

	assert.Equal(t, int32(100), allowed)
}

func TestRateLimiter_StopTwice(t *testing.T) {
	rl := NewRateLimiter(WithCleanupInterval(10 * time.Millisecond))
	rl.Stop()
	assert.NotPanics(t, rl.Stop)
}
