// Copyright The Linux Foundation and each contributor to LFX.
// SPDX-License-Identifier: MIT

package memory

import (
	"context"
	"log/slog"
	"time"

	"github.com/linuxfoundation/lfx-v2-entity-store/internal/domain/port"
)

// TieredCache serves reads from the local tier and falls back to the shared cache.
// Writes and invalidations go to both tiers.
type TieredCache struct {
	local  *Cache
	shared port.Cache
}

// Ensure TieredCache implements the Cache interface
var _ port.Cache = (*TieredCache)(nil)

// NewTieredCache layers local in front of shared
func NewTieredCache(local *Cache, shared port.Cache) *TieredCache {
	return &TieredCache{local: local, shared: shared}
}

// Set stores the value in the shared cache, then in the local tier
func (t *TieredCache) Set(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	if err := t.shared.Set(ctx, key, value, ttl); err != nil {
		return err
	}
	return t.local.Set(ctx, key, value, ttl)
}

// Get reads the local tier first and keeps shared hits locally
func (t *TieredCache) Get(ctx context.Context, key string) ([]byte, bool, error) {
	if value, ok, _ := t.local.Get(ctx, key); ok {
		return value, true, nil
	}

	value, ok, err := t.shared.Get(ctx, key)
	if err != nil || !ok {
		return nil, false, err
	}
	if err := t.local.Set(ctx, key, value, 0); err != nil {
		slog.DebugContext(ctx, "failed to keep shared cache hit locally", "error", err, "key", key)
	}
	return value, true, nil
}

// Invalidate removes the keys from both tiers
func (t *TieredCache) Invalidate(ctx context.Context, keys ...string) error {
	if err := t.local.Invalidate(ctx, keys...); err != nil {
		return err
	}
	return t.shared.Invalidate(ctx, keys...)
}

// InvalidateAll clears both tiers
func (t *TieredCache) InvalidateAll(ctx context.Context) error {
	if err := t.local.InvalidateAll(ctx); err != nil {
		return err
	}
	return t.shared.InvalidateAll(ctx)
}

// Local returns the process-local tier
func (t *TieredCache) Local() *Cache {
	return t.local
}
