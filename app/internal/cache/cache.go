package cache

import (
	"strings"
	"sync"
	"time"
)

// Entry is a cached value together with its storage and expiry times
type Entry[V any] struct {
	Value     V
	StoredAt  time.Time
	ExpiresAt time.Time
}

// Cache is an in-memory TTL cache. Expired entries are invisible to readers
// and swept periodically by a background goroutine until Stop is called.
type Cache[V any] struct {
	mu          sync.RWMutex
	items       map[string]Entry[V]
	defaultTTL  time.Duration
	stopCleanup chan struct{}
	stopOnce    sync.Once
}

// New creates a cache with the given default TTL
func New[V any](defaultTTL time.Duration) *Cache[V] {
	if defaultTTL <= 0 {
		defaultTTL = time.Minute
	}
	c := &Cache[V]{
		items:       make(map[string]Entry[V]),
		defaultTTL:  defaultTTL,
		stopCleanup: make(chan struct{}),
	}
	go c.cleanup(time.NewTicker(defaultTTL))
	return c
}

func (c *Cache[V]) cleanup(ticker *time.Ticker) {
	defer ticker.Stop()
	for {
		select {
		case <-ticker.C:
			now := time.Now()
			c.mu.Lock()
			for key, e := range c.items {
				if now.After(e.ExpiresAt) {
					delete(c.items, key)
				}
			}
			c.mu.Unlock()
		case <-c.stopCleanup:
			return
		}
	}
}

// Stop ends the cleanup goroutine. Safe to call more than once.
func (c *Cache[V]) Stop() {
	c.stopOnce.Do(func() { close(c.stopCleanup) })
}

// Get returns the value for key if present and not expired
func (c *Cache[V]) Get(key string) (V, bool) {
	e, ok := c.GetEntry(key)
	return e.Value, ok
}

// GetEntry returns the full entry for key if present and not expired
func (c *Cache[V]) GetEntry(key string) (Entry[V], bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	e, ok := c.items[key]
	if !ok || time.Now().After(e.ExpiresAt) {
		return Entry[V]{}, false
	}
	return e, true
}

// Set stores value under key with the default TTL
func (c *Cache[V]) Set(key string, value V) {
	c.SetWithTTL(key, value, c.defaultTTL)
}

// SetWithTTL stores value under key with a custom TTL
func (c *Cache[V]) SetWithTTL(key string, value V, ttl time.Duration) {
	now := time.Now()
	c.mu.Lock()
	defer c.mu.Unlock()
	c.items[key] = Entry[V]{Value: value, StoredAt: now, ExpiresAt: now.Add(ttl)}
}

// Delete removes key
func (c *Cache[V]) Delete(key string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.items, key)
}

// DeletePrefix removes every key starting with prefix
func (c *Cache[V]) DeletePrefix(prefix string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	for key := range c.items {
		if strings.HasPrefix(key, prefix) {
			delete(c.items, key)
		}
	}
}

// Len returns the number of stored entries, expired ones included until swept
func (c *Cache[V]) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.items)
}

// Clear removes everything
func (c *Cache[V]) Clear() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.items = make(map[string]Entry[V])
}
