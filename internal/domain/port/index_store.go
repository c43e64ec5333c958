// Copyright The Linux Foundation and each contributor to LFX.
// SPDX-License-Identifier: MIT

// Package port defines the interfaces for external dependencies and adapters.
package port

import (
	"context"
	"time"

	"github.com/linuxfoundation/lfx-v2-entity-store/internal/domain/model"
)

// IndexWriter defines the write side of the document index store.
// A scope is an index name or a wildcard pattern covering several indices.
type IndexWriter interface {
	// BulkIndex upserts documents into a single index.
	// Items the store rejects are reported with errors.StoreWriteFailed.
	BulkIndex(ctx context.Context, index string, docs []model.IndexDocument) error
	// BulkUpdate applies the same partial update to every target.
	BulkUpdate(ctx context.Context, targets []model.UpdateTarget, update model.Update) error
	// DeleteByIDs deletes the documents with the given ids in scope and returns
	// the number of documents deleted. Unknown ids are not an error.
	DeleteByIDs(ctx context.Context, scope string, ids []string) (int64, error)
	// DeleteIndex drops every index matching the pattern.
	DeleteIndex(ctx context.Context, pattern string) error
}

// IndexReader defines the read side of the document index store.
type IndexReader interface {
	// Search returns the first size hits matching the query, projected to fields.
	// A nil fields slice returns the full source.
	Search(ctx context.Context, scope string, query model.Query, fields []string, size int) ([]model.Hit, error)
	// OpenScroll opens a cursor and returns its first page.
	OpenScroll(ctx context.Context, scope string, query model.Query, fields []string, size int, ttl time.Duration) (model.ScrollPage, error)
	// NextScrollPage returns the next page of an open cursor; an empty page ends it.
	NextScrollPage(ctx context.Context, cursorID string, ttl time.Duration) (model.ScrollPage, error)
	// CloseScroll releases the cursor.
	CloseScroll(ctx context.Context, cursorID string) error
	// Get returns a single document or errors.NotFound.
	Get(ctx context.Context, scope, id string) (*model.Hit, error)
	// MultiGet returns the documents found among ids, in no particular order.
	MultiGet(ctx context.Context, scope string, ids []string) ([]model.Hit, error)
}

// IndexStore is the full document index store
type IndexStore interface {
	IndexReader
	IndexWriter
	IsReady(ctx context.Context) error
}
