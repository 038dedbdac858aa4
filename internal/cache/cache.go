// package cache implements a bounded key-value store with time-based expiry
//
// Entries expire TTL after they were last written. Reads check expiry lazily and delete stale entries; a background
// sweep started with [Cache.Start] removes the rest. Inserting past Capacity evicts the oldest insertion (not LRU).
package cache

import (
	"container/list"
	"context"
	"sync"
	"time"

	"github.com/PixelDroid19/EMOTIONQUEST-BACKEND/internal/shared"
	"github.com/charmbracelet/log"
)

// Clock returns the current time. Tests inject a fake one.
type Clock func() time.Time

// Options configures a [Cache].
type Options struct {
	Name          string // used in log output
	TTL           time.Duration
	Capacity      int
	SweepInterval time.Duration
	Clock         Clock
	Logger        *log.Logger
}

// Entry is a cached value and the time it was stored.
type Entry[T any] struct {
	Key       string
	Value     T
	Timestamp time.Time
}

// Cache is a mutex guarded expiring map with insertion-order eviction.
type Cache[T any] struct {
	mu      sync.Mutex
	entries map[string]*list.Element
	order   *list.List // front is oldest

	name          string
	ttl           time.Duration
	capacity      int
	sweepInterval time.Duration
	now           Clock
	logger        *log.Logger

	cancel context.CancelFunc
	done   chan struct{}
}

// New creates a cache. A non-positive Capacity means unbounded and a non-positive TTL means entries never expire.
func New[T any](opts Options) *Cache[T] {
	if opts.Clock == nil {
		opts.Clock = time.Now
	}
	if opts.Logger == nil {
		opts.Logger = shared.DiscardLogger()
	}
	return &Cache[T]{
		entries:       make(map[string]*list.Element),
		order:         list.New(),
		name:          opts.Name,
		ttl:           opts.TTL,
		capacity:      opts.Capacity,
		sweepInterval: opts.SweepInterval,
		now:           opts.Clock,
		logger:        opts.Logger.With("component", "cache", "cache", opts.Name),
	}
}

// Get returns the value for key. An expired entry is deleted and reported as a miss.
func (c *Cache[T]) Get(key string) (T, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	var zero T
	el, ok := c.entries[key]
	if !ok {
		return zero, false
	}

	e := el.Value.(*Entry[T])
	if c.expired(e, c.now()) {
		c.remove(el)
		return zero, false
	}

	return e.Value, true
}

// Put stores value under key. Writing an existing key refreshes its timestamp and makes it the newest insertion.
// When the cache is over capacity the oldest insertions are evicted.
func (c *Cache[T]) Put(key string, value T) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if el, ok := c.entries[key]; ok {
		c.remove(el)
	}

	e := &Entry[T]{Key: key, Value: value, Timestamp: c.now()}
	c.entries[key] = c.order.PushBack(e)

	c.evictOverCapacity()
}

// Delete removes key and reports whether it was stored, expired or not.
func (c *Cache[T]) Delete(key string) bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	el, ok := c.entries[key]
	if ok {
		c.remove(el)
	}
	return ok
}

// EvictExpired removes every expired entry and returns how many were removed.
func (c *Cache[T]) EvictExpired() int {
	c.mu.Lock()
	defer c.mu.Unlock()

	now := c.now()
	removed := 0
	for el := c.order.Front(); el != nil; {
		next := el.Next()
		if c.expired(el.Value.(*Entry[T]), now) {
			c.remove(el)
			removed++
		}
		el = next
	}

	return removed
}

// Len returns the number of stored entries, including expired entries not yet swept.
func (c *Cache[T]) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.entries)
}

// keys returns the stored keys from oldest to newest insertion.
func (c *Cache[T]) keys() []string {
	c.mu.Lock()
	defer c.mu.Unlock()

	keys := make([]string, 0, c.order.Len())
	for el := c.order.Front(); el != nil; el = el.Next() {
		keys = append(keys, el.Value.(*Entry[T]).Key)
	}
	return keys
}

// Start launches the periodic expiry sweep. It is a no-op when a sweep is already running or no interval is set.
// The sweep stops when ctx is cancelled or [Cache.Stop] is called.
func (c *Cache[T]) Start(ctx context.Context) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.cancel != nil || c.sweepInterval <= 0 {
		return
	}

	ctx, cancel := context.WithCancel(ctx)
	c.cancel = cancel
	c.done = make(chan struct{})

	go c.sweep(ctx, c.done)
}

// Stop halts the sweep and waits for it to exit.
func (c *Cache[T]) Stop() {
	c.mu.Lock()
	cancel, done := c.cancel, c.done
	c.cancel, c.done = nil, nil
	c.mu.Unlock()

	if cancel == nil {
		return
	}
	cancel()
	<-done
}

func (c *Cache[T]) sweep(ctx context.Context, done chan struct{}) {
	defer close(done)

	ticker := time.NewTicker(c.sweepInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if n := c.EvictExpired(); n > 0 {
				c.logger.Debug("swept expired entries", "removed", n)
			}
		}
	}
}

func (c *Cache[T]) expired(e *Entry[T], now time.Time) bool {
	return c.ttl > 0 && now.Sub(e.Timestamp) > c.ttl
}

func (c *Cache[T]) evictOverCapacity() {
	if c.capacity <= 0 {
		return
	}
	for c.order.Len() > c.capacity {
		oldest := c.order.Front()
		c.logger.Debug("evicting oldest entry", "key", oldest.Value.(*Entry[T]).Key)
		c.remove(oldest)
	}
}

func (c *Cache[T]) remove(el *list.Element) {
	delete(c.entries, el.Value.(*Entry[T]).Key)
	c.order.Remove(el)
}
