// Copyright The Linux Foundation and each contributor to LFX.
// SPDX-License-Identifier: MIT

package service

import (
	"context"
	"encoding/json"
	"log/slog"
	"time"

	"github.com/linuxfoundation/lfx-v2-entity-store/pkg/errors"
)

// GetByID returns a single document, reading through the cache when useCache is set.
// Concurrent store loads of the same id are collapsed into one request.
func (r *DocumentRepository[E, T]) GetByID(ctx context.Context, id string, useCache bool) (T, error) {
	if id == "" {
		return nil, errors.NewInvalidArgument("id is required")
	}

	useCache = useCache && r.cache != nil
	if useCache {
		data, ok, err := r.cache.Get(ctx, id)
		if err != nil {
			slog.WarnContext(ctx, "cache read failed, falling back to the index store",
				"error", err,
				"entity_type", r.descriptor.Name,
				"document_id", id,
			)
		}
		if ok {
			doc, err := r.decode(id, data)
			if err == nil {
				return doc, nil
			}
			slog.WarnContext(ctx, "discarding undecodable cache entry", "error", err, "document_id", id)
		}
	}

	v, err, _ := r.loads.Do(id, func() (any, error) {
		hit, err := r.store.Get(ctx, r.descriptor.ReadScope(), id)
		if err != nil {
			return nil, err
		}
		return []byte(hit.Source), nil
	})
	if err != nil {
		return nil, err
	}
	source := v.([]byte)

	doc, err := r.decode(id, source)
	if err != nil {
		return nil, err
	}

	if useCache {
		if err := r.cache.Set(ctx, id, source, r.config.DefaultCacheTTL); err != nil {
			slog.WarnContext(ctx, "failed to cache document", "error", err, "document_id", id)
		}
	}
	return doc, nil
}

// GetByIDs returns the stored documents among ids, bypassing the cache.
// Missing ids are skipped.
func (r *DocumentRepository[E, T]) GetByIDs(ctx context.Context, ids []string) ([]T, error) {
	if len(ids) == 0 {
		return nil, nil
	}
	hits, err := r.store.MultiGet(ctx, r.descriptor.ReadScope(), ids)
	if err != nil {
		slog.ErrorContext(ctx, "failed to load documents",
			"error", err,
			"entity_type", r.descriptor.Name,
			"documents", len(ids),
		)
		return nil, err
	}
	return r.decodeHits(hits)
}

// invalidate removes cache entries; a cache failure aborts the calling write so
// the cache never serves a value older than the store
func (r *DocumentRepository[E, T]) invalidate(ctx context.Context, ids ...string) error {
	if r.cache == nil || len(ids) == 0 {
		return nil
	}
	if err := r.cache.Invalidate(ctx, ids...); err != nil {
		slog.ErrorContext(ctx, "failed to invalidate cache",
			"error", err,
			"entity_type", r.descriptor.Name,
			"keys", len(ids),
		)
		return errors.NewServiceUnavailable("failed to invalidate cache", err)
	}
	return nil
}

// populate stores written documents in the cache; failures are logged only
func (r *DocumentRepository[E, T]) populate(ctx context.Context, docs []T, ttl time.Duration) {
	if r.cache == nil {
		return
	}
	if ttl <= 0 {
		ttl = r.config.DefaultCacheTTL
	}
	for _, doc := range docs {
		data, err := json.Marshal(doc)
		if err != nil {
			slog.WarnContext(ctx, "failed to encode document for cache", "error", err, "document_id", doc.GetID())
			continue
		}
		if err := r.cache.Set(ctx, doc.GetID(), data, ttl); err != nil {
			slog.WarnContext(ctx, "failed to cache document", "error", err, "document_id", doc.GetID())
		}
	}
}
