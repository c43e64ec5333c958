// Copyright The Linux Foundation and each contributor to LFX.
// SPDX-License-Identifier: MIT

package nats

import (
	"context"
	stderrors "errors"
	"log/slog"
	"time"

	"github.com/nats-io/nats.go/jetstream"
	"github.com/vmihailenco/msgpack/v5"

	"github.com/linuxfoundation/lfx-v2-entity-store/internal/domain/port"
	"github.com/linuxfoundation/lfx-v2-entity-store/pkg/constants"
	"github.com/linuxfoundation/lfx-v2-entity-store/pkg/errors"
)

// cacheEnvelope wraps cached values with their expiry; KV buckets only
// support a bucket wide TTL
type cacheEnvelope struct {
	Value     []byte `msgpack:"v"`
	ExpiresAt int64  `msgpack:"e,omitempty"` // unix milliseconds, 0 never expires
}

// cache implements port.Cache on a JetStream KV bucket, keys are <namespace>.<id>
type cache struct {
	kv        jetstream.KeyValue
	namespace string
	now       func() time.Time
}

// cacheProvider hands out namespaced caches sharing one bucket
type cacheProvider struct {
	kv jetstream.KeyValue
}

// NewCacheProvider creates a cache provider on the configured cache bucket
func NewCacheProvider(ctx context.Context, client *NATSClient) (port.CacheProvider, error) {
	kv, err := client.KeyValueStore(ctx, client.config.CacheBucket)
	if err != nil {
		return nil, errors.NewServiceUnavailable("KV bucket not available", err)
	}
	return &cacheProvider{kv: kv}, nil
}

// Namespace returns the cache for name
func (p *cacheProvider) Namespace(name string) port.Cache {
	return newCache(p.kv, name)
}

func newCache(kv jetstream.KeyValue, namespace string) *cache {
	return &cache{kv: kv, namespace: namespace, now: time.Now}
}

func (c *cache) key(id string) string {
	return c.namespace + constants.CacheKeySeparator + id
}

// Set stores value under key for ttl
func (c *cache) Set(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	if key == "" {
		return errors.NewValidation("cache key cannot be empty")
	}

	env := cacheEnvelope{Value: value}
	if ttl > 0 {
		env.ExpiresAt = c.now().Add(ttl).UnixMilli()
	}
	data, err := msgpack.Marshal(&env)
	if err != nil {
		return errors.NewUnexpected("failed to encode cache entry", err)
	}

	if _, err := c.kv.Put(ctx, c.key(key), data); err != nil {
		slog.ErrorContext(ctx, "failed to put cache entry", "error", err, "key", c.key(key))
		return errors.NewServiceUnavailable("failed to put cache entry", err)
	}
	return nil
}

// Get returns the value stored under key; expired entries are purged and reported as misses
func (c *cache) Get(ctx context.Context, key string) ([]byte, bool, error) {
	entry, err := c.kv.Get(ctx, c.key(key))
	if err != nil {
		if stderrors.Is(err, jetstream.ErrKeyNotFound) {
			return nil, false, nil
		}
		return nil, false, errors.NewServiceUnavailable("failed to get cache entry", err)
	}

	var env cacheEnvelope
	if err := msgpack.Unmarshal(entry.Value(), &env); err != nil {
		slog.WarnContext(ctx, "dropping undecodable cache entry", "error", err, "key", entry.Key())
		c.purge(ctx, entry.Key())
		return nil, false, nil
	}

	if env.ExpiresAt > 0 && c.now().UnixMilli() >= env.ExpiresAt {
		c.purge(ctx, entry.Key())
		return nil, false, nil
	}
	return env.Value, true, nil
}

// Invalidate removes keys
func (c *cache) Invalidate(ctx context.Context, keys ...string) error {
	for _, key := range keys {
		if err := c.kv.Delete(ctx, c.key(key)); err != nil && !stderrors.Is(err, jetstream.ErrKeyNotFound) {
			slog.ErrorContext(ctx, "failed to delete cache entry", "error", err, "key", c.key(key))
			return errors.NewServiceUnavailable("failed to delete cache entry", err)
		}
	}
	return nil
}

// InvalidateAll purges every key of the namespace
func (c *cache) InvalidateAll(ctx context.Context) error {
	lister, err := c.kv.ListKeysFiltered(ctx, c.namespace+constants.CacheKeySeparator+">")
	if err != nil {
		if stderrors.Is(err, jetstream.ErrNoKeysFound) {
			return nil
		}
		return errors.NewServiceUnavailable("failed to list cache keys", err)
	}
	defer func() {
		_ = lister.Stop()
	}()

	purged := 0
	for key := range lister.Keys() {
		if err := c.kv.Purge(ctx, key); err != nil && !stderrors.Is(err, jetstream.ErrKeyNotFound) {
			return errors.NewServiceUnavailable("failed to purge cache entry", err)
		}
		purged++
	}

	slog.DebugContext(ctx, "cache namespace invalidated", "namespace", c.namespace, "purged", purged)
	return nil
}

func (c *cache) purge(ctx context.Context, key string) {
	if err := c.kv.Purge(ctx, key); err != nil && !stderrors.Is(err, jetstream.ErrKeyNotFound) {
		slog.WarnContext(ctx, "failed to purge cache entry", "error", err, "key", key)
	}
}
