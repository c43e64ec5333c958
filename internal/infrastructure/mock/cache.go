// Copyright The Linux Foundation and each contributor to LFX.
// SPDX-License-Identifier: MIT

package mock

import (
	"context"
	"slices"
	"sync"
	"time"

	"github.com/linuxfoundation/lfx-v2-entity-store/internal/domain/port"
)

type cacheEntry struct {
	value   []byte
	expires time.Time
}

// MockCache is an in-memory namespaced cache
type MockCache struct {
	mu      sync.Mutex
	entries map[string]cacheEntry
	now     func() time.Time
	err     error
}

// Ensure MockCache implements the Cache interface
var _ port.Cache = (*MockCache)(nil)

// NewMockCache creates an empty in-memory cache
func NewMockCache() *MockCache {
	return &MockCache{
		entries: make(map[string]cacheEntry),
		now:     time.Now,
	}
}

// SetClock replaces the time source used for expiry checks.
func (c *MockCache) SetClock(now func() time.Time) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = now
}

// SetError makes every following call fail with err; a nil err clears it.
func (c *MockCache) SetError(err error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.err = err
}

// Keys returns the sorted live keys.
func (c *MockCache) Keys() []string {
	c.mu.Lock()
	defer c.mu.Unlock()
	keys := make([]string, 0, len(c.entries))
	for k, e := range c.entries {
		if !c.expired(e) {
			keys = append(keys, k)
		}
	}
	slices.Sort(keys)
	return keys
}

// Set stores value under key
func (c *MockCache) Set(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.err != nil {
		return c.err
	}
	e := cacheEntry{value: slices.Clone(value)}
	if ttl > 0 {
		e.expires = c.now().Add(ttl)
	}
	c.entries[key] = e
	return nil
}

// Get returns the value stored under key
func (c *MockCache) Get(ctx context.Context, key string) ([]byte, bool, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.err != nil {
		return nil, false, c.err
	}
	e, ok := c.entries[key]
	if !ok {
		return nil, false, nil
	}
	if c.expired(e) {
		delete(c.entries, key)
		return nil, false, nil
	}
	return slices.Clone(e.value), true, nil
}

// Invalidate removes keys
func (c *MockCache) Invalidate(ctx context.Context, keys ...string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.err != nil {
		return c.err
	}
	for _, k := range keys {
		delete(c.entries, k)
	}
	return nil
}

// InvalidateAll removes every key
func (c *MockCache) InvalidateAll(ctx context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.err != nil {
		return c.err
	}
	clear(c.entries)
	return nil
}

func (c *MockCache) expired(e cacheEntry) bool {
	return !e.expires.IsZero() && !c.now().Before(e.expires)
}

// MockCacheProvider hands out one MockCache per namespace
type MockCacheProvider struct {
	mu     sync.Mutex
	caches map[string]*MockCache
}

// Ensure MockCacheProvider implements the CacheProvider interface
var _ port.CacheProvider = (*MockCacheProvider)(nil)

// NewMockCacheProvider creates a new cache provider for testing
func NewMockCacheProvider() *MockCacheProvider {
	return &MockCacheProvider{caches: make(map[string]*MockCache)}
}

// Namespace returns the cache for name, creating it on first use
func (p *MockCacheProvider) Namespace(name string) port.Cache {
	return p.Cache(name)
}

// Cache returns the concrete mock cache for name
func (p *MockCacheProvider) Cache(name string) *MockCache {
	p.mu.Lock()
	defer p.mu.Unlock()
	c, ok := p.caches[name]
	if !ok {
		c = NewMockCache()
		p.caches[name] = c
	}
	return c
}
