package cache

import (
	"crypto/sha256"
	"encoding/hex"
	"sync"
	"time"

	"golang.org/x/sync/singleflight"
)

// Cache stores computed values for a limited time.
// The export service keeps compiled MJML and rendered HTML in it, keyed by a
// hash of the document and settings.
type Cache[V any] interface {
	// Get returns the value and true when present and not expired
	Get(key string) (V, bool)

	// Set stores a value with the given TTL
	Set(key string, value V, ttl time.Duration)

	// GetOrSet returns the cached value or computes it. Concurrent callers for the
	// same key share one computation. Errors are not cached.
	GetOrSet(key string, ttl time.Duration, compute func() (V, error)) (V, error)

	Delete(key string)
	Clear()

	// Size includes expired entries not yet swept
	Size() int

	// Stop ends the sweeper goroutine; safe to call more than once
	Stop()
}

type entry[V any] struct {
	value      V
	expiration time.Time
}

func (e *entry[V]) expired(now time.Time) bool {
	return now.After(e.expiration)
}

// InMemoryCache is a thread-safe Cache with a background sweeper and an optional
// entry cap. When full, the entry closest to expiry is evicted.
type InMemoryCache[V any] struct {
	mu         sync.RWMutex
	items      map[string]*entry[V]
	maxEntries int
	group      singleflight.Group
	stop       chan struct{}
	stopOnce   sync.Once
	now        func() time.Time
}

// NewInMemoryCache creates a cache swept every cleanupInterval.
// maxEntries <= 0 means unbounded.
func NewInMemoryCache[V any](cleanupInterval time.Duration, maxEntries int) *InMemoryCache[V] {
	c := &InMemoryCache[V]{
		items:      make(map[string]*entry[V]),
		maxEntries: maxEntries,
		stop:       make(chan struct{}),
		now:        time.Now,
	}
	if cleanupInterval > 0 {
		go c.sweep(cleanupInterval)
	}
	return c
}

// Key derives a stable cache key from its parts
func Key(parts ...string) string {
	h := sha256.New()
	for _, p := range parts {
		h.Write([]byte(p))
		h.Write([]byte{0})
	}
	return hex.EncodeToString(h.Sum(nil))
}

func (c *InMemoryCache[V]) Get(key string) (V, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	var zero V
	item, found := c.items[key]
	if !found || item.expired(c.now()) {
		return zero, false
	}
	return item.value, true
}

func (c *InMemoryCache[V]) Set(key string, value V, ttl time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if _, exists := c.items[key]; !exists && c.maxEntries > 0 && len(c.items) >= c.maxEntries {
		c.evictLocked()
	}
	c.items[key] = &entry[V]{value: value, expiration: c.now().Add(ttl)}
}

func (c *InMemoryCache[V]) GetOrSet(key string, ttl time.Duration, compute func() (V, error)) (V, error) {
	if value, ok := c.Get(key); ok {
		return value, nil
	}

	result, err, _ := c.group.Do(key, func() (interface{}, error) {
		if value, ok := c.Get(key); ok {
			return value, nil
		}
		value, err := compute()
		if err != nil {
			return nil, err
		}
		c.Set(key, value, ttl)
		return value, nil
	})
	if err != nil {
		var zero V
		return zero, err
	}
	return result.(V), nil
}

func (c *InMemoryCache[V]) Delete(key string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.items, key)
}

func (c *InMemoryCache[V]) Clear() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.items = make(map[string]*entry[V])
}

func (c *InMemoryCache[V]) Size() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.items)
}

func (c *InMemoryCache[V]) Stop() {
	c.stopOnce.Do(func() { close(c.stop) })
}

func (c *InMemoryCache[V]) sweep(interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			c.removeExpired()
		case <-c.stop:
			return
		}
	}
}

func (c *InMemoryCache[V]) removeExpired() {
	c.mu.Lock()
	defer c.mu.Unlock()

	now := c.now()
	for key, item := range c.items {
		if item.expired(now) {
			delete(c.items, key)
		}
	}
}

// evictLocked drops the entry that expires first; c.mu must be held
func (c *InMemoryCache[V]) evictLocked() {
	var oldestKey string
	var oldest time.Time
	for key, item := range c.items {
		if oldestKey == "" || item.expiration.Before(oldest) {
			oldestKey, oldest = key, item.expiration
		}
	}
	if oldestKey != "" {
		delete(c.items, oldestKey)
	}
}
