package ratelimiter

import (
	"sync"
	"time"
)

// Namespaces used by the API
const (
	NamespaceSendTest = "send_test"
	NamespaceCompile  = "compile"
)

// Policy bounds the attempts of one namespace within a sliding window
type Policy struct {
	MaxAttempts int
	Window      time.Duration
}

type Option func(*RateLimiter)

// WithClock replaces time.Now
func WithClock(now func() time.Time) Option {
	return func(rl *RateLimiter) {
		rl.now = now
	}
}

// WithCleanupInterval sets how often idle keys are dropped. Zero disables
// the background sweep.
func WithCleanupInterval(d time.Duration) Option {
	return func(rl *RateLimiter) {
		rl.cleanupInterval = d
	}
}

// RateLimiter counts attempts per namespace and key in memory. Namespaces
// without a policy are denied.
type RateLimiter struct {
	mu              sync.Mutex
	attempts        map[string]map[string][]time.Time
	policies        map[string]Policy
	now             func() time.Time
	cleanupInterval time.Duration
	stop            chan struct{}
	stopOnce        sync.Once
}

func NewRateLimiter(opts ...Option) *RateLimiter {
	rl := &RateLimiter{
		attempts:        make(map[string]map[string][]time.Time),
		policies:        make(map[string]Policy),
		now:             time.Now,
		cleanupInterval: time.Minute,
		stop:            make(chan struct{}),
	}
	for _, opt := range opts {
		opt(rl)
	}
	if rl.cleanupInterval > 0 {
		go rl.cleanupLoop()
	}
	return rl
}

// SetPolicy configures namespace. A non positive MaxAttempts disables limiting.
func (rl *RateLimiter) SetPolicy(namespace string, maxAttempts int, window time.Duration) {
	rl.mu.Lock()
	defer rl.mu.Unlock()
	rl.policies[namespace] = Policy{MaxAttempts: maxAttempts, Window: window}
}

// Allow records an attempt for key and reports whether it fits the policy.
// Rejected attempts are not recorded.
func (rl *RateLimiter) Allow(namespace, key string) bool {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	policy, ok := rl.policies[namespace]
	if !ok {
		return false
	}
	if policy.MaxAttempts <= 0 {
		return true
	}

	now := rl.now()
	keys := rl.attempts[namespace]
	if keys == nil {
		keys = make(map[string][]time.Time)
		rl.attempts[namespace] = keys
	}

	valid := prune(keys[key], now.Add(-policy.Window))
	if len(valid) >= policy.MaxAttempts {
		keys[key] = valid
		return false
	}
	keys[key] = append(valid, now)
	return true
}

// RetryAfter returns how long until key may attempt again, zero when it may now
func (rl *RateLimiter) RetryAfter(namespace, key string) time.Duration {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	policy, ok := rl.policies[namespace]
	if !ok || policy.MaxAttempts <= 0 {
		return 0
	}

	now := rl.now()
	valid := prune(rl.attempts[namespace][key], now.Add(-policy.Window))
	if len(valid) < policy.MaxAttempts {
		return 0
	}
	// attempts are appended in time order
	return valid[0].Add(policy.Window).Sub(now)
}

func (rl *RateLimiter) Reset(namespace, key string) {
	rl.mu.Lock()
	defer rl.mu.Unlock()
	delete(rl.attempts[namespace], key)
}

// Stop ends the background sweep. It is safe to call more than once.
func (rl *RateLimiter) Stop() {
	rl.stopOnce.Do(func() { close(rl.stop) })
}

func (rl *RateLimiter) cleanupLoop() {
	ticker := time.NewTicker(rl.cleanupInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			rl.sweep()
		case <-rl.stop:
			return
		}
	}
}

// sweep drops keys with no attempt inside their window
func (rl *RateLimiter) sweep() {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	now := rl.now()
	for namespace, keys := range rl.attempts {
		cutoff := now.Add(-rl.policies[namespace].Window)
		for key, times := range keys {
			if len(prune(times, cutoff)) == 0 {
				delete(keys, key)
			}
		}
		if len(keys) == 0 {
			delete(rl.attempts, namespace)
		}
	}
}

func prune(times []time.Time, cutoff time.Time) []time.Time {
	valid := make([]time.Time, 0, len(times))
	for _, t := range times {
		if t.After(cutoff) {
			valid = append(valid, t)
		}
	}
	return valid
}
