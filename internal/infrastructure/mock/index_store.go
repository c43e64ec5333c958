// Copyright The Linux Foundation and each contributor to LFX.
// SPDX-License-Identifier: MIT

// Package mock provides in-memory implementations of the ports for tests and local runs.
package mock

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"maps"
	"slices"
	"strconv"
	"sync"
	"time"

	"github.com/bmatcuk/doublestar/v4"

	"github.com/linuxfoundation/lfx-v2-entity-store/internal/domain/model"
	"github.com/linuxfoundation/lfx-v2-entity-store/internal/domain/port"
	"github.com/linuxfoundation/lfx-v2-entity-store/pkg/errors"
)

// Index store operations recorded by MockIndexStore
const (
	OpBulkIndex      = "bulk_index"
	OpBulkUpdate     = "bulk_update"
	OpDeleteByIDs    = "delete_by_ids"
	OpDeleteIndex    = "delete_index"
	OpSearch         = "search"
	OpOpenScroll     = "open_scroll"
	OpNextScrollPage = "next_scroll_page"
	OpCloseScroll    = "close_scroll"
	OpGet            = "get"
	OpMultiGet       = "multi_get"
)

// ScriptFunc applies a registered update script to a document source
type ScriptFunc func(source map[string]any, params map[string]any)

// IndexCall is a single recorded call against the mock index store
type IndexCall struct {
	Op    string
	Scope string
	IDs   []string
}

type scrollState struct {
	hits []model.Hit
	size int
}

// MockIndexStore is an in-memory index store. Scopes and index patterns are
// resolved with glob matching against the index names.
type MockIndexStore struct {
	mu         sync.RWMutex
	indices    map[string]map[string]map[string]any // index -> id -> source
	calls      []IndexCall
	errs       map[string]error
	rejected   map[string]string // id -> reason
	scripts    map[string]ScriptFunc
	scrolls    map[string]*scrollState
	nextCursor int
}

// Ensure MockIndexStore implements the IndexStore interface
var _ port.IndexStore = (*MockIndexStore)(nil)

// NewMockIndexStore creates an empty in-memory index store
func NewMockIndexStore() *MockIndexStore {
	return &MockIndexStore{
		indices:  make(map[string]map[string]map[string]any),
		errs:     make(map[string]error),
		rejected: make(map[string]string),
		scripts:  make(map[string]ScriptFunc),
		scrolls:  make(map[string]*scrollState),
	}
}

// SetError makes every following call of op fail with err; a nil err clears it.
func (m *MockIndexStore) SetError(op string, err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err == nil {
		delete(m.errs, op)
		return
	}
	m.errs[op] = err
}

// RejectID makes bulk index requests refuse the document with the given id.
func (m *MockIndexStore) RejectID(id, reason string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.rejected[id] = reason
}

// RegisterScript registers the behaviour of an update script by its source.
func (m *MockIndexStore) RegisterScript(source string, fn ScriptFunc) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.scripts[source] = fn
}

// Calls returns the recorded calls of op.
func (m *MockIndexStore) Calls(op string) []IndexCall {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var calls []IndexCall
	for _, c := range m.calls {
		if c.Op == op {
			calls = append(calls, c)
		}
	}
	return calls
}

// CallCount returns the number of recorded calls of op.
func (m *MockIndexStore) CallCount(op string) int {
	return len(m.Calls(op))
}

// TotalCalls returns the number of recorded calls of any operation.
func (m *MockIndexStore) TotalCalls() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.calls)
}

// ResetCalls clears the recorded calls.
func (m *MockIndexStore) ResetCalls() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.calls = nil
}

// Source returns a copy of the stored source of a document.
func (m *MockIndexStore) Source(index, id string) (map[string]any, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	src, ok := m.indices[index][id]
	if !ok {
		return nil, false
	}
	return maps.Clone(src), true
}

// Count returns the number of documents stored in indices matching scope.
func (m *MockIndexStore) Count(scope string) int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	total := 0
	for _, name := range m.matchingIndices(scope) {
		total += len(m.indices[name])
	}
	return total
}

// Indices returns the sorted names of the existing indices.
func (m *MockIndexStore) Indices() []string {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return slices.Sorted(maps.Keys(m.indices))
}

// record must be called with the lock held; it returns the configured error for op.
func (m *MockIndexStore) record(op, scope string, ids []string) error {
	m.calls = append(m.calls, IndexCall{Op: op, Scope: scope, IDs: slices.Clone(ids)})
	return m.errs[op]
}

func (m *MockIndexStore) matchingIndices(scope string) []string {
	var names []string
	for name := range m.indices {
		if ok, _ := doublestar.Match(scope, name); ok {
			names = append(names, name)
		}
	}
	slices.Sort(names)
	return names
}

// BulkIndex upserts documents into index
func (m *MockIndexStore) BulkIndex(ctx context.Context, index string, docs []model.IndexDocument) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	ids := make([]string, 0, len(docs))
	for _, d := range docs {
		ids = append(ids, d.ID)
	}
	if err := m.record(OpBulkIndex, index, ids); err != nil {
		return err
	}

	if m.indices[index] == nil {
		m.indices[index] = make(map[string]map[string]any)
	}

	var failed []errors.ItemError
	for i, d := range docs {
		if reason, ok := m.rejected[d.ID]; ok {
			failed = append(failed, errors.ItemError{ID: d.ID, Index: index, Status: 400, Reason: reason})
			continue
		}
		src, err := toSource(d.Body)
		if err != nil {
			failed = append(failed, errors.ItemError{ID: d.ID, Index: index, Status: 400, Reason: err.Error()})
			continue
		}
		m.indices[index][d.ID] = src
		slog.DebugContext(ctx, "mock index store: document indexed", "index", index, "id", d.ID, "position", i)
	}

	if len(failed) > 0 {
		return errors.NewStoreWriteFailed(fmt.Sprintf("bulk index into %s failed", index), failed)
	}
	return nil
}

// BulkUpdate applies a patch or a registered script to every target
func (m *MockIndexStore) BulkUpdate(ctx context.Context, targets []model.UpdateTarget, update model.Update) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	ids := make([]string, 0, len(targets))
	for _, t := range targets {
		ids = append(ids, t.ID)
	}
	if err := m.record(OpBulkUpdate, "", ids); err != nil {
		return err
	}

	var script ScriptFunc
	if update.Script != nil {
		fn, ok := m.scripts[update.Script.Source]
		if !ok {
			return errors.NewStoreWriteFailed("unknown update script", nil)
		}
		script = fn
	}

	var failed []errors.ItemError
	for _, t := range targets {
		src, ok := m.indices[t.Index][t.ID]
		if !ok {
			failed = append(failed, errors.ItemError{ID: t.ID, Index: t.Index, Status: 404, Reason: "document missing"})
			continue
		}
		if script != nil {
			script(src, update.Script.Params)
			continue
		}
		for k, v := range update.Patch {
			src[k] = v
		}
	}

	slog.DebugContext(ctx, "mock index store: bulk update applied", "targets", len(targets), "failed", len(failed))
	if len(failed) > 0 {
		return errors.NewStoreWriteFailed("bulk update failed", failed)
	}
	return nil
}

// DeleteByIDs deletes the given ids from every index matching scope
func (m *MockIndexStore) DeleteByIDs(ctx context.Context, scope string, ids []string) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if err := m.record(OpDeleteByIDs, scope, ids); err != nil {
		return 0, err
	}

	var deleted int64
	for _, name := range m.matchingIndices(scope) {
		for _, id := range ids {
			if _, ok := m.indices[name][id]; ok {
				delete(m.indices[name], id)
				deleted++
			}
		}
	}

	slog.DebugContext(ctx, "mock index store: documents deleted", "scope", scope, "requested", len(ids), "deleted", deleted)
	return deleted, nil
}

// DeleteIndex drops every index matching pattern
func (m *MockIndexStore) DeleteIndex(ctx context.Context, pattern string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if err := m.record(OpDeleteIndex, pattern, nil); err != nil {
		return err
	}
	for _, name := range m.matchingIndices(pattern) {
		delete(m.indices, name)
	}
	return nil
}

// Search returns up to size hits matching query
func (m *MockIndexStore) Search(ctx context.Context, scope string, query model.Query, fields []string, size int) ([]model.Hit, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if err := m.record(OpSearch, scope, query.IDs); err != nil {
		return nil, err
	}

	hits, err := m.find(scope, query, fields)
	if err != nil {
		return nil, err
	}
	if size > 0 && len(hits) > size {
		hits = hits[:size]
	}
	return hits, nil
}

// OpenScroll snapshots the matching hits and returns the first page
func (m *MockIndexStore) OpenScroll(ctx context.Context, scope string, query model.Query, fields []string, size int, ttl time.Duration) (model.ScrollPage, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if err := m.record(OpOpenScroll, scope, query.IDs); err != nil {
		return model.ScrollPage{}, err
	}

	hits, err := m.find(scope, query, fields)
	if err != nil {
		return model.ScrollPage{}, err
	}
	if size <= 0 {
		size = len(hits)
	}

	m.nextCursor++
	cursorID := "scroll-" + strconv.Itoa(m.nextCursor)
	m.scrolls[cursorID] = &scrollState{hits: hits, size: size}

	return model.ScrollPage{CursorID: cursorID, Hits: m.nextPage(cursorID)}, nil
}

// NextScrollPage returns the next page of an open cursor
func (m *MockIndexStore) NextScrollPage(ctx context.Context, cursorID string, ttl time.Duration) (model.ScrollPage, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if err := m.record(OpNextScrollPage, cursorID, nil); err != nil {
		return model.ScrollPage{}, err
	}
	if _, ok := m.scrolls[cursorID]; !ok {
		return model.ScrollPage{}, errors.NewStoreQueryFailed("scroll cursor not found")
	}
	return model.ScrollPage{CursorID: cursorID, Hits: m.nextPage(cursorID)}, nil
}

// CloseScroll releases the cursor
func (m *MockIndexStore) CloseScroll(ctx context.Context, cursorID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if err := m.record(OpCloseScroll, cursorID, nil); err != nil {
		return err
	}
	delete(m.scrolls, cursorID)
	return nil
}

// Get returns a single document or errors.NotFound
func (m *MockIndexStore) Get(ctx context.Context, scope, id string) (*model.Hit, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if err := m.record(OpGet, scope, []string{id}); err != nil {
		return nil, err
	}
	hits, err := m.find(scope, model.Query{IDs: []string{id}}, nil)
	if err != nil {
		return nil, err
	}
	if len(hits) == 0 {
		return nil, errors.NewNotFound(fmt.Sprintf("document %s not found in %s", id, scope))
	}
	return &hits[0], nil
}

// MultiGet returns the documents found among ids
func (m *MockIndexStore) MultiGet(ctx context.Context, scope string, ids []string) ([]model.Hit, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if err := m.record(OpMultiGet, scope, ids); err != nil {
		return nil, err
	}
	return m.find(scope, model.Query{IDs: ids}, nil)
}

// IsReady always reports the mock store as ready
func (m *MockIndexStore) IsReady(ctx context.Context) error {
	return nil
}

func (m *MockIndexStore) nextPage(cursorID string) []model.Hit {
	s := m.scrolls[cursorID]
	n := min(s.size, len(s.hits))
	page := s.hits[:n]
	s.hits = s.hits[n:]
	return page
}

func (m *MockIndexStore) find(scope string, query model.Query, fields []string) ([]model.Hit, error) {
	var hits []model.Hit
	for _, name := range m.matchingIndices(scope) {
		docs := m.indices[name]
		for _, id := range slices.Sorted(maps.Keys(docs)) {
			src := docs[id]
			if !query.Matches(src) {
				continue
			}
			raw, err := json.Marshal(project(src, fields))
			if err != nil {
				return nil, errors.NewStoreQueryFailed("failed to encode document source", err)
			}
			hits = append(hits, model.Hit{ID: id, Index: name, Source: raw})
		}
	}
	return hits, nil
}

func project(src map[string]any, fields []string) map[string]any {
	if fields == nil {
		return src
	}
	out := make(map[string]any, len(fields))
	for _, f := range fields {
		if v, ok := src[f]; ok {
			out[f] = v
		}
	}
	return out
}

func toSource(body any) (map[string]any, error) {
	raw, err := json.Marshal(body)
	if err != nil {
		return nil, err
	}
	var src map[string]any
	if err := json.Unmarshal(raw, &src); err != nil {
		return nil, err
	}
	return src, nil
}
