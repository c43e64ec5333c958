// Copyright The Linux Foundation and each contributor to LFX.
// SPDX-License-Identifier: MIT

package service

import (
	"context"
	"log/slog"
	"maps"

	"github.com/linuxfoundation/lfx-v2-entity-store/internal/domain/model"
	"github.com/linuxfoundation/lfx-v2-entity-store/pkg/errors"
	"github.com/linuxfoundation/lfx-v2-entity-store/pkg/log"
)

// RemoveAllMatching removes every document matching options, one page at a time,
// and returns the number of documents removed. The first page of the query is
// fetched again after every removal until it comes back empty. A failed page
// ends the loop and the partial count is returned.
func (r *DocumentRepository[E, T]) RemoveAllMatching(ctx context.Context, options model.QueryOptions, sendNotifications bool) (removed int64, err error) {
	ctx, span := r.startSpan(ctx, "RemoveAllMatching", 0)
	defer func() { endSpan(span, err) }()

	query := options.Query(r.caps)
	fields := r.caps.ProjectionFields()
	scope := r.descriptor.ReadScope()

	o := newWriteOptions(nil)
	o.sendNotifications = sendNotifications

	// ids of the previous page; a page holding nothing else means the store
	// has not caught up with the deletes yet
	var previous map[string]struct{}
	for {
		hits, err := r.store.Search(ctx, scope, query, fields, r.config.PageSize)
		if err != nil {
			slog.ErrorContext(ctx, "search page failed, stopping removal",
				"error", err,
				"entity_type", r.descriptor.Name,
				"removed", removed,
			)
			return removed, nil
		}
		if len(hits) == 0 {
			break
		}

		page := make(map[string]struct{}, len(hits))
		fresh := false
		for _, h := range hits {
			page[h.ID] = struct{}{}
			if _, ok := previous[h.ID]; !ok {
				fresh = true
			}
		}
		if !fresh {
			slog.WarnContext(ctx, "search returned only removed documents, stopping removal",
				"entity_type", r.descriptor.Name,
				"removed", removed,
			)
			break
		}
		previous = page

		docs, err := r.decodeHits(hits)
		if err != nil {
			slog.ErrorContext(ctx, "failed to decode search page, stopping removal",
				"error", err,
				"entity_type", r.descriptor.Name,
				"removed", removed,
			)
			return removed, nil
		}

		deleted, err := r.remove(ctx, docs, o)
		removed += deleted
		if err != nil {
			return removed, err
		}
	}

	slog.DebugContext(ctx, "removed matching documents",
		"entity_type", r.descriptor.Name,
		"removed", removed,
	)
	return removed, nil
}

// UpdateAll applies update to every document matching options for the given
// organizations through a scroll cursor, one bulk request per page. It returns
// the number of documents updated.
//
// Bulk updates are not atomic: when a page fails the pages already applied stay
// applied and 0 is returned. A failed scroll page returns the partial count.
func (r *DocumentRepository[E, T]) UpdateAll(ctx context.Context, organizationIDs []string, options model.QueryOptions, update model.Update, sendNotifications bool) (updated int64, err error) {
	ctx, span := r.startSpan(ctx, "UpdateAll", 0)
	defer func() { endSpan(span, err) }()

	if update.IsEmpty() {
		return 0, errors.NewInvalidArgument("update requires a patch or a script")
	}

	if len(organizationIDs) > 0 {
		options.OrganizationIDs = organizationIDs
	}
	query := options.Query(r.caps)
	update = r.stampUpdate(update)

	page, err := r.store.OpenScroll(ctx, r.descriptor.ReadScope(), query, []string{model.FieldID}, r.config.PageSize, r.config.ScrollTTL)
	if err != nil {
		slog.ErrorContext(ctx, "failed to open scroll cursor",
			"error", err,
			"entity_type", r.descriptor.Name,
		)
		return 0, nil
	}
	defer func() {
		if page.CursorID == "" {
			return
		}
		if err := r.store.CloseScroll(ctx, page.CursorID); err != nil {
			slog.WarnContext(ctx, "failed to close scroll cursor", "error", err, "cursor_id", page.CursorID)
		}
	}()

	for len(page.Hits) > 0 {
		targets := make([]model.UpdateTarget, 0, len(page.Hits))
		batch := make([]string, 0, len(page.Hits))
		for _, h := range page.Hits {
			targets = append(targets, model.UpdateTarget{ID: h.ID, Index: h.Index})
			batch = append(batch, h.ID)
		}

		if err := r.store.BulkUpdate(ctx, targets, update); err != nil {
			slog.ErrorContext(ctx, "bulk update failed, earlier pages are not rolled back",
				"error", err,
				"entity_type", r.descriptor.Name,
				"updated", updated,
				log.PriorityCritical(),
			)
			return 0, nil
		}

		if r.cache != nil {
			if err := r.cache.Invalidate(ctx, batch...); err != nil {
				slog.ErrorContext(ctx, "failed to invalidate cache after bulk update",
					"error", err,
					"entity_type", r.descriptor.Name,
					"keys", len(batch),
				)
			}
		}
		updated += int64(len(batch))
		r.metrics.updated.Add(ctx, int64(len(batch)), r.attrs)

		cursorID := page.CursorID
		page, err = r.store.NextScrollPage(ctx, cursorID, r.config.ScrollTTL)
		if err != nil {
			slog.ErrorContext(ctx, "scroll page failed, stopping bulk update",
				"error", err,
				"entity_type", r.descriptor.Name,
				"updated", updated,
			)
			page.CursorID = cursorID
			return updated, nil
		}
		if page.CursorID == "" {
			page.CursorID = cursorID
		}
	}

	if sendNotifications {
		r.publishOrganizationChanges(ctx, model.ChangeTypeSaved, organizationIDs, nil)
	}

	slog.DebugContext(ctx, "bulk update completed",
		"entity_type", r.descriptor.Name,
		"updated", updated,
	)
	return updated, nil
}

// stampUpdate adds the updated_utc timestamp to the update of dated entities
func (r *DocumentRepository[E, T]) stampUpdate(update model.Update) model.Update {
	if !r.caps.Dated {
		return update
	}
	now := r.now()
	if update.Script != nil {
		script := *update.Script
		script.Params = maps.Clone(script.Params)
		if script.Params == nil {
			script.Params = make(map[string]any)
		}
		script.Params[model.FieldUpdatedUTC] = now
		update.Script = &script
	}
	if update.Patch != nil {
		update.Patch = maps.Clone(update.Patch)
		update.Patch[model.FieldUpdatedUTC] = now
	}
	return update
}
