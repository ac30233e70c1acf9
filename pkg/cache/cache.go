package cache

import (
	"sync"
	"time"
)

// Cache is a bounded in-memory TTL cache keyed by string
type Cache[V any] interface {
	// Get returns the value and true if present and not expired
	Get(key string) (V, bool)

	// Set stores value for ttl. A non-positive ttl is ignored.
	Set(key string, value V, ttl time.Duration)

	Delete(key string)
	Clear()

	// Len returns the number of stored entries, expired ones included until swept
	Len() int

	// Stop ends the background sweep
	Stop()
}

type Option func(*options)

type options struct {
	now             func() time.Time
	cleanupInterval time.Duration
	maxEntries      int
}

// WithClock replaces time.Now
func WithClock(now func() time.Time) Option {
	return func(o *options) {
		o.now = now
	}
}

// WithCleanupInterval sets how often expired entries are removed. Zero
// disables the background sweep.
func WithCleanupInterval(d time.Duration) Option {
	return func(o *options) {
		o.cleanupInterval = d
	}
}

// WithMaxEntries caps the cache size. When full, the entry closest to
// expiry is evicted. Zero means unbounded.
func WithMaxEntries(n int) Option {
	return func(o *options) {
		o.maxEntries = n
	}
}

type entry[V any] struct {
	value     V
	expiresAt time.Time
}

// InMemoryCache is safe for concurrent use
type InMemoryCache[V any] struct {
	mu       sync.RWMutex
	items    map[string]entry[V]
	opts     options
	stop     chan struct{}
	stopOnce sync.Once
}

func NewInMemoryCache[V any](opts ...Option) *InMemoryCache[V] {
	o := options{
		now:             time.Now,
		cleanupInterval: time.Minute,
	}
	for _, opt := range opts {
		opt(&o)
	}

	c := &InMemoryCache[V]{
		items: make(map[string]entry[V]),
		opts:  o,
		stop:  make(chan struct{}),
	}
	if o.cleanupInterval > 0 {
		go c.sweep()
	}
	return c
}

func (c *InMemoryCache[V]) Get(key string) (V, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	var zero V
	e, ok := c.items[key]
	if !ok || !c.opts.now().Before(e.expiresAt) {
		return zero, false
	}
	return e.value, true
}

func (c *InMemoryCache[V]) Set(key string, value V, ttl time.Duration) {
	if ttl <= 0 {
		return
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	now := c.opts.now()
	if _, exists := c.items[key]; !exists && c.opts.maxEntries > 0 && len(c.items) >= c.opts.maxEntries {
		c.prune(now)
		if len(c.items) >= c.opts.maxEntries {
			c.evictOldest()
		}
	}
	c.items[key] = entry[V]{value: value, expiresAt: now.Add(ttl)}
}

func (c *InMemoryCache[V]) Delete(key string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.items, key)
}

func (c *InMemoryCache[V]) Clear() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.items = make(map[string]entry[V])
}

func (c *InMemoryCache[V]) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.items)
}

func (c *InMemoryCache[V]) Stop() {
	c.stopOnce.Do(func() {
		close(c.stop)
	})
}

func (c *InMemoryCache[V]) sweep() {
	ticker := time.NewTicker(c.opts.cleanupInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			c.mu.Lock()
			c.prune(c.opts.now())
			c.mu.Unlock()
		case <-c.stop:
			return
		}
	}
}

// prune drops expired entries. Caller holds the write lock.
func (c *InMemoryCache[V]) prune(now time.Time) {
	for key, e := range c.items {
		if !now.Before(e.expiresAt) {
			delete(c.items, key)
		}
	}
}

// evictOldest drops the entry closest to expiry. Caller holds the write lock.
func (c *InMemoryCache[V]) evictOldest() {
	var (
		victim string
		oldest time.Time
		found  bool
	)
	for key, e := range c.items {
		if !found || e.expiresAt.Before(oldest) {
			victim, oldest, found = key, e.expiresAt, true
		}
	}
	if found {
		delete(c.items, victim)
	}
}

var _ Cache[string] = (*InMemoryCache[string])(nil)
