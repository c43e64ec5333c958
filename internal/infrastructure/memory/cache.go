// Copyright The Linux Foundation and each contributor to LFX.
// SPDX-License-Identifier: MIT

package memory

import (
	"context"
	"encoding/json"
	"slices"
	"time"

	lru "github.com/hashicorp/golang-lru/v2"

	"github.com/linuxfoundation/lfx-v2-entity-store/internal/domain/port"
	"github.com/linuxfoundation/lfx-v2-entity-store/pkg/errors"
	"github.com/linuxfoundation/lfx-v2-entity-store/pkg/utils"
)

// entryScope is read from the cached document so batch changes can be scoped
type entryScope struct {
	OrganizationID string `json:"organization_id"`
	ProjectID      string `json:"project_id"`
}

func (s entryScope) within(organizationID, projectID string) bool {
	if organizationID != "" && s.OrganizationID != organizationID {
		return false
	}
	if projectID != "" && s.ProjectID != projectID {
		return false
	}
	return true
}

type entry struct {
	value     []byte
	scope     entryScope
	expiresAt time.Time
}

// Cache is a bounded least recently used cache local to the process
type Cache struct {
	entries *lru.Cache[string, entry]
	maxTTL  time.Duration
	now     func() time.Time
}

// Ensure Cache implements the ScopedCache interface
var _ port.ScopedCache = (*Cache)(nil)

// NewCache creates a local cache holding at most size entries
func NewCache(size int, maxTTL time.Duration) *Cache {
	if size <= 0 {
		size = DefaultConfig().Size
	}
	// lru.New only fails on a non-positive size
	entries, _ := lru.New[string, entry](size)
	return &Cache{
		entries: entries,
		maxTTL:  maxTTL,
		now:     utils.NowUTC,
	}
}

// Set stores the value; the ttl is capped by the configured maximum
func (c *Cache) Set(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	if key == "" {
		return errors.NewValidation("cache key is required")
	}
	if c.maxTTL > 0 && (ttl <= 0 || ttl > c.maxTTL) {
		ttl = c.maxTTL
	}

	e := entry{value: slices.Clone(value)}
	if ttl > 0 {
		e.expiresAt = c.now().Add(ttl)
	}
	// values that are not documents are only dropped by id or by a full invalidation
	_ = json.Unmarshal(value, &e.scope)

	c.entries.Add(key, e)
	return nil
}

// Get returns the value of key; expired entries are removed and reported as a miss
func (c *Cache) Get(ctx context.Context, key string) ([]byte, bool, error) {
	e, ok := c.entries.Get(key)
	if !ok {
		return nil, false, nil
	}
	if !e.expiresAt.IsZero() && !c.now().Before(e.expiresAt) {
		c.entries.Remove(key)
		return nil, false, nil
	}
	return slices.Clone(e.value), true, nil
}

// Invalidate removes the given keys
func (c *Cache) Invalidate(ctx context.Context, keys ...string) error {
	for _, key := range keys {
		c.entries.Remove(key)
	}
	return nil
}

// InvalidateAll removes every entry
func (c *Cache) InvalidateAll(ctx context.Context) error {
	c.entries.Purge()
	return nil
}

// InvalidateScope removes the entries of documents owned by the organization and,
// when projectID is set, by the project. Empty ids match any owner.
func (c *Cache) InvalidateScope(ctx context.Context, organizationID, projectID string) error {
	if organizationID == "" && projectID == "" {
		return c.InvalidateAll(ctx)
	}
	for _, key := range c.entries.Keys() {
		e, ok := c.entries.Peek(key)
		if ok && e.scope.within(organizationID, projectID) {
			c.entries.Remove(key)
		}
	}
	return nil
}

// Len returns the number of entries, expired ones included
func (c *Cache) Len() int {
	return c.entries.Len()
}
