// Copyright The Linux Foundation and each contributor to LFX.
// SPDX-License-Identifier: MIT

package opensearch

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	stderrors "errors"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/linuxfoundation/lfx-v2-entity-store/internal/domain/model"
	"github.com/linuxfoundation/lfx-v2-entity-store/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type recordedRequest struct {
	Method string
	Path   string
	Query  map[string][]string
	Body   []byte
}

func newTestStore(t *testing.T, handler func(w http.ResponseWriter, r recordedRequest)) (*IndexStore, *[]recordedRequest) {
	t.Helper()

	var requests []recordedRequest
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		body, _ := io.ReadAll(r.Body)
		req := recordedRequest{Method: r.Method, Path: r.URL.Path, Query: r.URL.Query(), Body: body}
		requests = append(requests, req)
		w.Header().Set("Content-Type", "application/json")
		handler(w, req)
	}))
	t.Cleanup(server.Close)

	cfg := DefaultConfig()
	cfg.URL = server.URL
	cfg.MaxRetries = 0
	cfg.Timeout = 5 * time.Second

	store, err := NewIndexStore(cfg)
	require.NoError(t, err)
	return store, &requests
}

func writeJSON(w http.ResponseWriter, status int, body string) {
	w.WriteHeader(status)
	_, _ = w.Write([]byte(body))
}

func ndjsonLines(t *testing.T, body []byte) []map[string]any {
	t.Helper()
	var lines []map[string]any
	scanner := bufio.NewScanner(bytes.NewReader(body))
	for scanner.Scan() {
		var line map[string]any
		require.NoError(t, json.Unmarshal(scanner.Bytes(), &line))
		lines = append(lines, line)
	}
	return lines
}

func TestBuildQuery(t *testing.T) {
	tests := []struct {
		name     string
		query    model.Query
		expected string
	}{
		{
			name:     "empty query matches everything",
			query:    model.Query{},
			expected: `{"match_all":{}}`,
		},
		{
			name: "ids terms and exclusions",
			query: model.Query{
				IDs:      []string{"a", "b"},
				Terms:    []model.Term{{Field: "organization_id", Values: []any{"org-1"}}},
				NotTerms: []model.Term{{Field: "is_deleted", Values: []any{true}}},
			},
			expected: `{"bool":{
				"filter":[{"ids":{"values":["a","b"]}},{"terms":{"organization_id":["org-1"]}}],
				"must_not":[{"terms":{"is_deleted":[true]}}]}}`,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			actual, err := json.Marshal(buildQuery(tt.query))
			require.NoError(t, err)
			assert.JSONEq(t, tt.expected, string(actual))
		})
	}
}

func TestIndexStore_BulkIndex(t *testing.T) {
	store, requests := newTestStore(t, func(w http.ResponseWriter, _ recordedRequest) {
		writeJSON(w, http.StatusOK, `{"errors":false,"items":[{"index":{"_id":"s1","status":201}}]}`)
	})

	err := store.BulkIndex(context.Background(), "stacks", []model.IndexDocument{
		{ID: "s1", Body: map[string]any{"id": "s1", "title": "NPE"}},
	})
	require.NoError(t, err)

	require.Len(t, *requests, 1)
	req := (*requests)[0]
	assert.Equal(t, http.MethodPost, req.Method)
	assert.Equal(t, "/_bulk", req.Path)
	assert.Equal(t, []string{RefreshWaitFor}, req.Query["refresh"])

	lines := ndjsonLines(t, req.Body)
	require.Len(t, lines, 2)
	assert.Equal(t, map[string]any{"index": map[string]any{"_index": "stacks", "_id": "s1"}}, lines[0])
	assert.Equal(t, "NPE", lines[1]["title"])
}

func TestIndexStore_BulkIndex_ReportsRejectedItems(t *testing.T) {
	store, _ := newTestStore(t, func(w http.ResponseWriter, _ recordedRequest) {
		writeJSON(w, http.StatusOK, `{"errors":true,"items":[
			{"index":{"_id":"s1","_index":"stacks","status":201}},
			{"index":{"_id":"s2","_index":"stacks","status":400,"error":{"type":"mapper_parsing_exception","reason":"bad date"}}}
		]}`)
	})

	err := store.BulkIndex(context.Background(), "stacks", []model.IndexDocument{
		{ID: "s1", Body: map[string]any{}},
		{ID: "s2", Body: map[string]any{}},
	})

	var writeFailed errors.StoreWriteFailed
	require.True(t, stderrors.As(err, &writeFailed))
	require.Len(t, writeFailed.Items, 1)
	assert.Equal(t, "s2", writeFailed.Items[0].ID)
	assert.Equal(t, http.StatusBadRequest, writeFailed.Items[0].Status)
	assert.Contains(t, writeFailed.Items[0].Reason, "bad date")
}

func TestIndexStore_BulkUpdate(t *testing.T) {
	store, requests := newTestStore(t, func(w http.ResponseWriter, _ recordedRequest) {
		writeJSON(w, http.StatusOK, `{"errors":false,"items":[]}`)
	})

	err := store.BulkUpdate(context.Background(),
		[]model.UpdateTarget{{ID: "s1", Index: "stacks"}, {ID: "s2", Index: "stacks"}},
		model.Update{Script: &model.Script{Source: "ctx._source.occurrences += params.n", Params: map[string]any{"n": 1}}},
	)
	require.NoError(t, err)

	lines := ndjsonLines(t, (*requests)[0].Body)
	require.Len(t, lines, 4)
	assert.Equal(t, map[string]any{"update": map[string]any{"_index": "stacks", "_id": "s2", "retry_on_conflict": float64(bulkRetryOnConflict)}}, lines[2])
	assert.Equal(t, "ctx._source.occurrences += params.n", lines[3]["script"].(map[string]any)["source"])
}

func TestIndexStore_BulkUpdate_RejectsEmptyUpdate(t *testing.T) {
	store, requests := newTestStore(t, func(w http.ResponseWriter, _ recordedRequest) {
		writeJSON(w, http.StatusOK, `{}`)
	})

	err := store.BulkUpdate(context.Background(), []model.UpdateTarget{{ID: "s1", Index: "stacks"}}, model.Update{})

	var invalid errors.InvalidArgument
	assert.True(t, stderrors.As(err, &invalid))
	assert.Empty(t, *requests)
}

func TestIndexStore_DeleteByIDs(t *testing.T) {
	store, requests := newTestStore(t, func(w http.ResponseWriter, _ recordedRequest) {
		writeJSON(w, http.StatusOK, `{"deleted":2,"failures":[]}`)
	})

	deleted, err := store.DeleteByIDs(context.Background(), "events-*", []string{"e1", "e2", "e3"})
	require.NoError(t, err)
	assert.Equal(t, int64(2), deleted)

	req := (*requests)[0]
	assert.Equal(t, "/events-*/_delete_by_query", req.Path)
	assert.Equal(t, []string{"true"}, req.Query["refresh"])
	assert.JSONEq(t, `{"query":{"ids":{"values":["e1","e2","e3"]}}}`, string(req.Body))
}

func TestIndexStore_DeleteIndex_MissingIsNotAnError(t *testing.T) {
	store, _ := newTestStore(t, func(w http.ResponseWriter, _ recordedRequest) {
		writeJSON(w, http.StatusNotFound, `{"error":{"type":"index_not_found_exception"}}`)
	})

	assert.NoError(t, store.DeleteIndex(context.Background(), "events-*"))
}

func TestIndexStore_ScrollLifecycle(t *testing.T) {
	store, requests := newTestStore(t, func(w http.ResponseWriter, r recordedRequest) {
		switch {
		case r.Path == "/stacks/_search":
			writeJSON(w, http.StatusOK, `{"_scroll_id":"c1","hits":{"hits":[{"_id":"s1","_index":"stacks","_source":{"id":"s1"}}]}}`)
		case r.Path == "/_search/scroll" && r.Method == http.MethodPost:
			writeJSON(w, http.StatusOK, `{"_scroll_id":"c1","hits":{"hits":[]}}`)
		case r.Path == "/_search/scroll" && r.Method == http.MethodDelete:
			writeJSON(w, http.StatusOK, `{"succeeded":true}`)
		default:
			writeJSON(w, http.StatusBadRequest, `{}`)
		}
	})
	ctx := context.Background()

	page, err := store.OpenScroll(ctx, "stacks", model.Query{}, []string{"id", "organization_id"}, 500, 5*time.Minute)
	require.NoError(t, err)
	assert.Equal(t, "c1", page.CursorID)
	require.Len(t, page.Hits, 1)
	assert.Equal(t, "s1", page.Hits[0].ID)

	open := (*requests)[0]
	assert.Equal(t, []string{"300000ms"}, open.Query["scroll"])
	assert.JSONEq(t, `{"query":{"match_all":{}},"size":500,"_source":["id","organization_id"],"sort":["_doc"]}`, string(open.Body))

	page, err = store.NextScrollPage(ctx, page.CursorID, 5*time.Minute)
	require.NoError(t, err)
	assert.Empty(t, page.Hits)

	require.NoError(t, store.CloseScroll(ctx, "c1"))
	assert.JSONEq(t, `{"scroll_id":["c1"]}`, string((*requests)[2].Body))
}

func TestIndexStore_Search_FailureIsQueryError(t *testing.T) {
	store, _ := newTestStore(t, func(w http.ResponseWriter, _ recordedRequest) {
		writeJSON(w, http.StatusBadRequest, `{"error":{"type":"parsing_exception"}}`)
	})

	_, err := store.Search(context.Background(), "stacks", model.Query{}, nil, 10)

	var queryFailed errors.StoreQueryFailed
	assert.True(t, stderrors.As(err, &queryFailed))
}

func TestIndexStore_Get(t *testing.T) {
	store, _ := newTestStore(t, func(w http.ResponseWriter, r recordedRequest) {
		if r.Path == "/stacks/_doc/s1" {
			writeJSON(w, http.StatusOK, `{"_id":"s1","_index":"stacks","found":true,"_source":{"id":"s1"}}`)
			return
		}
		writeJSON(w, http.StatusNotFound, `{"_id":"x","found":false}`)
	})
	ctx := context.Background()

	hit, err := store.Get(ctx, "stacks", "s1")
	require.NoError(t, err)
	assert.JSONEq(t, `{"id":"s1"}`, string(hit.Source))

	_, err = store.Get(ctx, "stacks", "missing")
	var notFound errors.NotFound
	assert.True(t, stderrors.As(err, &notFound))
}

func TestIndexStore_MultiGet(t *testing.T) {
	store, requests := newTestStore(t, func(w http.ResponseWriter, r recordedRequest) {
		switch r.Path {
		case "/stacks/_mget":
			writeJSON(w, http.StatusOK, `{"docs":[
				{"_id":"s1","_index":"stacks","found":true,"_source":{"id":"s1"}},
				{"_id":"s2","_index":"stacks","found":false}
			]}`)
		case "/events-*/_search":
			writeJSON(w, http.StatusOK, `{"hits":{"hits":[{"_id":"e1","_index":"events-2026.03","_source":{"id":"e1"}}]}}`)
		}
	})
	ctx := context.Background()

	hits, err := store.MultiGet(ctx, "stacks", []string{"s1", "s2"})
	require.NoError(t, err)
	require.Len(t, hits, 1)
	assert.Equal(t, "s1", hits[0].ID)

	hits, err = store.MultiGet(ctx, "events-*", []string{"e1"})
	require.NoError(t, err)
	require.Len(t, hits, 1)
	assert.Equal(t, "events-2026.03", hits[0].Index)
	assert.JSONEq(t, `{"query":{"bool":{"filter":[{"ids":{"values":["e1"]}}]}},"size":1}`, string((*requests)[1].Body))
}

func TestIndexStore_IsReady(t *testing.T) {
	tests := []struct {
		name    string
		status  string
		wantErr bool
	}{
		{name: "green", status: "green"},
		{name: "yellow", status: "yellow"},
		{name: "red", status: "red", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			store, _ := newTestStore(t, func(w http.ResponseWriter, _ recordedRequest) {
				writeJSON(w, http.StatusOK, `{"status":"`+tt.status+`"}`)
			})

			err := store.IsReady(context.Background())
			if tt.wantErr {
				var unavailable errors.ServiceUnavailable
				assert.True(t, stderrors.As(err, &unavailable))
				return
			}
			assert.NoError(t, err)
		})
	}
}

func TestIndexStore_BasicAuth(t *testing.T) {
	var username, password string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		username, password, _ = r.BasicAuth()
		writeJSON(w, http.StatusOK, `{"status":"green"}`)
	}))
	defer server.Close()

	store, err := NewIndexStore(Config{URL: server.URL + "/", Username: "admin", Password: "secret", Timeout: time.Second})
	require.NoError(t, err)
	require.NoError(t, store.IsReady(context.Background()))
	assert.Equal(t, "admin", username)
	assert.Equal(t, "secret", password)
}

func TestEscapeScope(t *testing.T) {
	assert.Equal(t, "events-*", escapeScope("events-*"))
	assert.Equal(t, "stacks,projects", escapeScope("stacks,projects"))
	assert.Equal(t, "a%2Fb", escapeScope("a/b"))
}
