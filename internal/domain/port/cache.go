// Copyright The Linux Foundation and each contributor to LFX.
// SPDX-License-Identifier: MIT

package port

import (
	"context"
	"time"
)

// Cache is a key/value cache scoped to a single namespace.
// Implementations treat expired entries as misses.
type Cache interface {
	// Set stores the value under key for ttl; a zero ttl keeps it until invalidated.
	Set(ctx context.Context, key string, value []byte, ttl time.Duration) error
	// Get returns the value and true, or false on a miss.
	Get(ctx context.Context, key string) ([]byte, bool, error)
	// Invalidate removes the given keys. Missing keys are ignored.
	Invalidate(ctx context.Context, keys ...string) error
	// InvalidateAll removes every key of the namespace.
	InvalidateAll(ctx context.Context) error
}

// CacheProvider hands out caches scoped to a namespace
type CacheProvider interface {
	Namespace(name string) Cache
}

// ScopedCache is a cache that can drop the entries of documents owned by an
// organization or a project
type ScopedCache interface {
	Cache
	// InvalidateScope removes the entries owned by organizationID and, when set, projectID.
	InvalidateScope(ctx context.Context, organizationID, projectID string) error
}
