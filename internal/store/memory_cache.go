package store

import (
	"context"
	"sync"
	"time"
)

// InMemoryCache implements Cache using an in-memory map
type InMemoryCache struct {
	data    map[string]cacheItem
	mu      sync.RWMutex
	maxSize int
	now     func() time.Time
	stop    chan struct{}
	once    sync.Once
}

type cacheItem struct {
	value     []byte
	expiresAt time.Time
}

// NewInMemoryCache creates a cache holding at most maxSize entries
func NewInMemoryCache(maxSize int) *InMemoryCache {
	c := &InMemoryCache{
		data:    make(map[string]cacheItem),
		maxSize: maxSize,
		now:     time.Now,
		stop:    make(chan struct{}),
	}
	go c.cleanup(time.Minute)
	return c
}

// Get retrieves a value from cache
func (c *InMemoryCache) Get(_ context.Context, key string) ([]byte, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	item, ok := c.data[key]
	if !ok || c.now().After(item.expiresAt) {
		return nil, ErrNotFound
	}
	return item.value, nil
}

// Set stores a value in cache with TTL
func (c *InMemoryCache) Set(_ context.Context, key string, value []byte, ttl time.Duration) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if _, exists := c.data[key]; !exists && c.maxSize > 0 && len(c.data) >= c.maxSize {
		c.evictLocked()
	}
	c.data[key] = cacheItem{value: value, expiresAt: c.now().Add(ttl)}
	return nil
}

// Delete removes keys from cache
func (c *InMemoryCache) Delete(_ context.Context, keys ...string) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	for _, k := range keys {
		delete(c.data, k)
	}
	return nil
}

// Size returns the number of entries in cache
func (c *InMemoryCache) Size() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.data)
}

// Close stops the cleanup goroutine
func (c *InMemoryCache) Close() {
	c.once.Do(func() { close(c.stop) })
}

// evictLocked drops an expired entry, or any entry when none has expired
func (c *InMemoryCache) evictLocked() {
	now := c.now()
	for k, v := range c.data {
		if now.After(v.expiresAt) {
			delete(c.data, k)
			return
		}
	}
	for k := range c.data {
		delete(c.data, k)
		return
	}
}

// cleanup periodically removes expired entries
func (c *InMemoryCache) cleanup(every time.Duration) {
	ticker := time.NewTicker(every)
	defer ticker.Stop()

	for {
		select {
		case <-c.stop:
			return
		case <-ticker.C:
			c.mu.Lock()
			now := c.now()
			for k, v := range c.data {
				if now.After(v.expiresAt) {
					delete(c.data, k)
				}
			}
			c.mu.Unlock()
		}
	}
}
