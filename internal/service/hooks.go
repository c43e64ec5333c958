// Copyright The Linux Foundation and each contributor to LFX.
// SPDX-License-Identifier: MIT

package service

import (
	"context"
	"log/slog"
	"time"

	"github.com/linuxfoundation/lfx-v2-entity-store/internal/domain/model"
)

// ChangeHook is called around every add, save and remove batch.
// Returning an error aborts the remaining steps of the write.
type ChangeHook[T model.Document] func(ctx context.Context, change *model.DocumentChange[T]) error

// OnBeforeChange registers a hook run after ids and timestamps are stamped and
// before the documents are validated and written.
// Hooks must be registered before the repository is used.
func (r *DocumentRepository[E, T]) OnBeforeChange(hook ChangeHook[T]) {
	r.beforeChange = append(r.beforeChange, hook)
}

// OnAfterChange registers a hook run after the write and its notifications.
// Hooks must be registered before the repository is used.
func (r *DocumentRepository[E, T]) OnAfterChange(hook ChangeHook[T]) {
	r.afterChange = append(r.afterChange, hook)
}

func (r *DocumentRepository[E, T]) runHooks(ctx context.Context, stage string, hooks []ChangeHook[T], change *model.DocumentChange[T]) error {
	for i, hook := range hooks {
		if err := hook(ctx, change); err != nil {
			slog.WarnContext(ctx, "change hook aborted write",
				"error", err,
				"entity_type", r.descriptor.Name,
				"change_type", change.ChangeType,
				"stage", stage,
				"hook_index", i,
			)
			return err
		}
	}
	return nil
}

// writeOptions holds the per-call options of a write
type writeOptions struct {
	addToCache        bool
	cacheTTL          time.Duration
	sendNotifications bool
	data              map[string]any
}

// WriteOption defines a function type for setting options on a single write
type WriteOption func(*writeOptions)

// AddToCache stores the written documents in the cache for ttl; a zero ttl
// uses the configured default
func AddToCache(ttl time.Duration) WriteOption {
	return func(o *writeOptions) {
		o.addToCache = true
		o.cacheTTL = ttl
	}
}

// SkipNotifications suppresses the entity changed messages of the write
func SkipNotifications() WriteOption {
	return func(o *writeOptions) {
		o.sendNotifications = false
	}
}

// NotificationData attaches data to every entity changed message of the write
func NotificationData(data map[string]any) WriteOption {
	return func(o *writeOptions) {
		o.data = data
	}
}

func newWriteOptions(opts []WriteOption) writeOptions {
	o := writeOptions{sendNotifications: true}
	for _, opt := range opts {
		opt(&o)
	}
	return o
}
