// Copyright The Linux Foundation and each contributor to LFX.
// SPDX-License-Identifier: MIT

package service

import (
	"context"
	stderrors "errors"
	"fmt"
	"log/slog"
	"slices"

	"github.com/linuxfoundation/lfx-v2-entity-store/internal/domain/model"
	"github.com/linuxfoundation/lfx-v2-entity-store/pkg/errors"
)

// Add inserts new documents. Every document receives an id and, for dated
// entities, created and updated timestamps when unset. Documents are modified in place.
func (r *DocumentRepository[E, T]) Add(ctx context.Context, docs []T, opts ...WriteOption) (err error) {
	ctx, span := r.startSpan(ctx, "Add", len(docs))
	defer func() { endSpan(span, err) }()

	if err := r.requireDocuments(docs); err != nil {
		return err
	}
	o := newWriteOptions(opts)

	now := r.now()
	for _, doc := range docs {
		if doc.GetID() == "" {
			doc.SetID(r.ids.NewID())
		}
		if d, ok := any(doc).(model.Dated); ok {
			if d.GetCreatedUTC().IsZero() {
				d.SetCreatedUTC(now)
			}
			d.SetUpdatedUTC(now)
		}
	}

	change := &model.DocumentChange[T]{ChangeType: model.ChangeTypeAdded, Documents: docs, Data: o.data}
	return r.write(ctx, change, o)
}

// Save updates documents. Documents without an id are inserted. The cache entry of
// every id is invalidated before the store is written, and the stored originals are
// handed to the change hooks.
func (r *DocumentRepository[E, T]) Save(ctx context.Context, docs []T, opts ...WriteOption) (err error) {
	ctx, span := r.startSpan(ctx, "Save", len(docs))
	defer func() { endSpan(span, err) }()

	if err := r.requireDocuments(docs); err != nil {
		return err
	}
	o := newWriteOptions(opts)

	existing := documentIDs(docs)
	if err := r.invalidate(ctx, existing...); err != nil {
		return err
	}

	originals := make(map[string]T, len(existing))
	if len(existing) > 0 {
		stored, err := r.GetByIDs(ctx, existing)
		if err != nil {
			return err
		}
		for _, s := range stored {
			originals[s.GetID()] = s
		}
	}

	now := r.now()
	for _, doc := range docs {
		if doc.GetID() == "" {
			doc.SetID(r.ids.NewID())
		} else if _, ok := originals[doc.GetID()]; !ok {
			slog.DebugContext(ctx, "saved document has no stored original, writing as insert",
				"entity_type", r.descriptor.Name,
				"document_id", doc.GetID(),
			)
		}
		if d, ok := any(doc).(model.Dated); ok {
			if d.GetCreatedUTC().IsZero() {
				if original, ok := originals[doc.GetID()]; ok {
					d.SetCreatedUTC(any(original).(model.Dated).GetCreatedUTC())
				}
			}
			if d.GetCreatedUTC().IsZero() {
				d.SetCreatedUTC(now)
			}
			d.SetUpdatedUTC(now)
		}
	}

	change := &model.DocumentChange[T]{
		ChangeType: model.ChangeTypeSaved,
		Documents:  docs,
		Originals:  originals,
		Data:       o.data,
	}
	return r.write(ctx, change, o)
}

// write runs the shared add/save pipeline: hooks, validation, bulk index,
// cache population, notifications and post hooks
func (r *DocumentRepository[E, T]) write(ctx context.Context, change *model.DocumentChange[T], o writeOptions) error {
	if err := r.runHooks(ctx, "before", r.beforeChange, change); err != nil {
		return err
	}

	for _, doc := range change.Documents {
		if err := r.validator.Validate(ctx, doc); err != nil {
			var vf errors.ValidationFailed
			if stderrors.As(err, &vf) {
				if vf.DocumentID == "" {
					vf.DocumentID = doc.GetID()
				}
				return vf
			}
			return errors.NewValidationFailed(fmt.Sprintf("%s %s is invalid", r.descriptor.Name, doc.GetID()), nil, err)
		}
	}

	if err := r.bulkIndex(ctx, change.Documents); err != nil {
		return err
	}
	r.metrics.written.Add(ctx, int64(len(change.Documents)), r.attrs)

	if o.addToCache {
		r.populate(ctx, change.Documents, o.cacheTTL)
	}
	if o.sendNotifications {
		r.publishChanges(ctx, change.ChangeType, change.Documents, o.data)
	}

	return r.runHooks(ctx, "after", r.afterChange, change)
}

// bulkIndex writes documents grouped by target index, one bulk request per index
func (r *DocumentRepository[E, T]) bulkIndex(ctx context.Context, docs []T) error {
	groups := make(map[string][]model.IndexDocument)
	for _, doc := range docs {
		index := r.descriptor.WriteIndex(doc)
		groups[index] = append(groups[index], model.IndexDocument{ID: doc.GetID(), Body: doc})
	}

	indices := make([]string, 0, len(groups))
	for index := range groups {
		indices = append(indices, index)
	}
	slices.Sort(indices)

	for _, index := range indices {
		group := groups[index]
		if err := r.store.BulkIndex(ctx, index, group); err != nil {
			slog.ErrorContext(ctx, "bulk index failed",
				"error", err,
				"entity_type", r.descriptor.Name,
				"index", index,
				"documents", len(group),
			)
			var swf errors.StoreWriteFailed
			if stderrors.As(err, &swf) {
				return swf
			}
			items := make([]errors.ItemError, 0, len(group))
			for _, d := range group {
				items = append(items, errors.ItemError{ID: d.ID, Index: index, Reason: err.Error()})
			}
			return errors.NewStoreWriteFailed(fmt.Sprintf("bulk index into %s failed", index), items, err)
		}
	}
	return nil
}

// RemoveByID removes a single document. The document is looked up first so its
// ownership can be used for notifications; a missing document is not an error.
func (r *DocumentRepository[E, T]) RemoveByID(ctx context.Context, id string, opts ...WriteOption) error {
	if id == "" {
		return errors.NewInvalidArgument("id is required")
	}

	doc, err := r.GetByID(ctx, id, true)
	if err == nil {
		return r.Remove(ctx, []T{doc}, opts...)
	}

	var notFound errors.NotFound
	if !stderrors.As(err, &notFound) {
		return err
	}

	slog.DebugContext(ctx, "document to remove not found, deleting by id",
		"entity_type", r.descriptor.Name,
		"document_id", id,
	)
	if err := r.invalidate(ctx, id); err != nil {
		return err
	}
	deleted, err := r.store.DeleteByIDs(ctx, r.descriptor.ReadScope(), []string{id})
	if err != nil {
		return err
	}
	r.metrics.removed.Add(ctx, deleted, r.attrs)
	return nil
}

// Remove deletes documents from the index store and the cache
func (r *DocumentRepository[E, T]) Remove(ctx context.Context, docs []T, opts ...WriteOption) (err error) {
	ctx, span := r.startSpan(ctx, "Remove", len(docs))
	defer func() { endSpan(span, err) }()

	_, err = r.remove(ctx, docs, newWriteOptions(opts))
	return err
}

// remove returns the number of documents the store actually deleted
func (r *DocumentRepository[E, T]) remove(ctx context.Context, docs []T, o writeOptions) (int64, error) {
	if err := r.requireDocuments(docs); err != nil {
		return 0, err
	}
	removeIDs := documentIDs(docs)
	if len(removeIDs) == 0 {
		return 0, errors.NewInvalidArgument("documents to remove have no id")
	}

	if err := r.invalidate(ctx, removeIDs...); err != nil {
		return 0, err
	}

	change := &model.DocumentChange[T]{ChangeType: model.ChangeTypeRemoved, Documents: docs, Data: o.data}
	if err := r.runHooks(ctx, "before", r.beforeChange, change); err != nil {
		return 0, err
	}

	deleted, err := r.store.DeleteByIDs(ctx, r.descriptor.ReadScope(), removeIDs)
	if err != nil {
		slog.ErrorContext(ctx, "failed to delete documents",
			"error", err,
			"entity_type", r.descriptor.Name,
			"documents", len(removeIDs),
		)
		return 0, err
	}
	r.metrics.removed.Add(ctx, deleted, r.attrs)

	if o.sendNotifications {
		r.publishChanges(ctx, model.ChangeTypeRemoved, docs, o.data)
	}

	return deleted, r.runHooks(ctx, "after", r.afterChange, change)
}

// RemoveAll deletes every document of the entity without notifications.
// Partitioned entities drop all their partitions.
func (r *DocumentRepository[E, T]) RemoveAll(ctx context.Context) (err error) {
	ctx, span := r.startSpan(ctx, "RemoveAll", 0)
	defer func() { endSpan(span, err) }()

	if r.cache != nil {
		if err := r.cache.InvalidateAll(ctx); err != nil {
			slog.ErrorContext(ctx, "failed to clear cache namespace",
				"error", err,
				"entity_type", r.descriptor.Name,
				"namespace", r.descriptor.CacheNamespace,
			)
			return err
		}
	}

	if r.caps.Partitioned {
		pattern := r.descriptor.ReadScope()
		if err := r.store.DeleteIndex(ctx, pattern); err != nil {
			slog.ErrorContext(ctx, "failed to drop partitions", "error", err, "pattern", pattern)
			return err
		}
		slog.InfoContext(ctx, "dropped all partitions", "entity_type", r.descriptor.Name, "pattern", pattern)
		return nil
	}

	removed, err := r.RemoveAllMatching(ctx, model.QueryOptions{IncludeDeleted: true}, false)
	slog.InfoContext(ctx, "removed all documents", "entity_type", r.descriptor.Name, "removed", removed)
	return err
}

func (r *DocumentRepository[E, T]) requireDocuments(docs []T) error {
	if len(docs) == 0 {
		return errors.NewInvalidArgument("documents are required")
	}
	for i, doc := range docs {
		if doc == nil {
			return errors.NewInvalidArgument(fmt.Sprintf("document at position %d is nil", i))
		}
	}
	return nil
}
