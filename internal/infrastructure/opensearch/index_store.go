// Copyright The Linux Foundation and each contributor to LFX.
// SPDX-License-Identifier: MIT

// Package opensearch implements the document index store on the OpenSearch REST API.
package opensearch

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/linuxfoundation/lfx-v2-entity-store/internal/domain/model"
	"github.com/linuxfoundation/lfx-v2-entity-store/internal/domain/port"
	"github.com/linuxfoundation/lfx-v2-entity-store/pkg/errors"
	"github.com/linuxfoundation/lfx-v2-entity-store/pkg/httpclient"
)

const (
	contentTypeJSON   = "application/json"
	contentTypeNDJSON = "application/x-ndjson"

	bulkRetryOnConflict = 3
)

// basicAuthRoundTripper injects the configured credentials into every request
type basicAuthRoundTripper struct {
	username string
	password string
}

// RoundTrip sets BasicAuth on the request
func (rt *basicAuthRoundTripper) RoundTrip(req *http.Request, next func(*http.Request) (*http.Response, error)) (*http.Response, error) {
	req.SetBasicAuth(rt.username, rt.password)
	return next(req)
}

// IndexStore implements port.IndexStore against an OpenSearch cluster
type IndexStore struct {
	config     Config
	httpClient *httpclient.Client
}

var _ port.IndexStore = (*IndexStore)(nil)

// NewIndexStore creates a new OpenSearch index store with the given configuration
func NewIndexStore(cfg Config) (*IndexStore, error) {
	if cfg.URL == "" {
		return nil, fmt.Errorf("url is required for OpenSearch index store")
	}
	cfg.URL = strings.TrimSuffix(cfg.URL, "/")
	if cfg.Refresh == "" {
		cfg.Refresh = RefreshWaitFor
	}

	httpConfig := httpclient.Config{
		Timeout:      cfg.Timeout,
		MaxRetries:   cfg.MaxRetries,
		RetryDelay:   cfg.RetryDelay,
		RetryBackoff: true,
		MaxDelay:     10 * time.Second,
	}

	store := &IndexStore{
		config:     cfg,
		httpClient: httpclient.NewClient(httpConfig),
	}
	if cfg.Username != "" {
		store.httpClient.AddRoundTripper(&basicAuthRoundTripper{
			username: cfg.Username,
			password: cfg.Password,
		})
	}

	slog.InfoContext(context.Background(), "OpenSearch index store initialized", "url", cfg.URL)

	return store, nil
}

// Name identifies the store in health checks
func (s *IndexStore) Name() string {
	return "OpenSearch"
}

// Ping reports whether the cluster is usable
func (s *IndexStore) Ping(ctx context.Context) error {
	return s.IsReady(ctx)
}

// IsReady fails when the cluster health is red or the cluster is unreachable
func (s *IndexStore) IsReady(ctx context.Context) error {
	var health clusterHealthResponse
	if err := s.do(ctx, http.MethodGet, "/_cluster/health", nil, nil, contentTypeJSON, &health); err != nil {
		return err
	}
	if health.Status == "red" {
		return errors.NewServiceUnavailable("OpenSearch cluster health is red")
	}
	return nil
}

// BulkIndex upserts docs into index in one _bulk request
func (s *IndexStore) BulkIndex(ctx context.Context, index string, docs []model.IndexDocument) error {
	if len(docs) == 0 {
		return nil
	}

	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	for _, doc := range docs {
		action := map[string]bulkAction{"index": {Index: index, ID: doc.ID}}
		if err := enc.Encode(action); err != nil {
			return errors.NewUnexpected("failed to encode bulk action", err)
		}
		if err := enc.Encode(doc.Body); err != nil {
			return errors.NewUnexpected("failed to encode document", err)
		}
	}

	return s.bulk(ctx, buf.Bytes(), len(docs))
}

// BulkUpdate applies update to every target in one _bulk request
func (s *IndexStore) BulkUpdate(ctx context.Context, targets []model.UpdateTarget, update model.Update) error {
	if len(targets) == 0 {
		return nil
	}
	if update.IsEmpty() {
		return errors.NewInvalidArgument("update cannot be empty")
	}

	payload := updateBody(update)

	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	for _, target := range targets {
		action := map[string]bulkAction{"update": {Index: target.Index, ID: target.ID, Retry: bulkRetryOnConflict}}
		if err := enc.Encode(action); err != nil {
			return errors.NewUnexpected("failed to encode bulk action", err)
		}
		if err := enc.Encode(payload); err != nil {
			return errors.NewUnexpected("failed to encode update", err)
		}
	}

	return s.bulk(ctx, buf.Bytes(), len(targets))
}

func (s *IndexStore) bulk(ctx context.Context, body []byte, count int) error {
	query := url.Values{"refresh": {s.config.Refresh}}

	var response bulkResponse
	if err := s.do(ctx, http.MethodPost, "/_bulk", query, body, contentTypeNDJSON, &response); err != nil {
		return errors.NewStoreWriteFailed("bulk request failed", nil, err)
	}

	if !response.Errors {
		slog.DebugContext(ctx, "bulk request applied", "items", count)
		return nil
	}

	var failed []errors.ItemError
	for _, item := range response.Items {
		for _, result := range item {
			if result.Error == nil {
				continue
			}
			failed = append(failed, errors.ItemError{
				ID:     result.ID,
				Index:  result.Index,
				Status: result.Status,
				Reason: fmt.Sprintf("%s: %s", result.Error.Type, result.Error.Reason),
			})
		}
	}

	slog.WarnContext(ctx, "bulk request partially rejected",
		"items", count,
		"failed", len(failed),
	)
	return errors.NewStoreWriteFailed("bulk request rejected items", failed)
}

// DeleteByIDs deletes the documents with ids from every index in scope
func (s *IndexStore) DeleteByIDs(ctx context.Context, scope string, ids []string) (int64, error) {
	if len(ids) == 0 {
		return 0, nil
	}

	body, err := json.Marshal(map[string]any{"query": idsQuery(ids)})
	if err != nil {
		return 0, errors.NewUnexpected("failed to encode delete query", err)
	}

	query := url.Values{
		"refresh":            {"true"},
		"conflicts":          {"proceed"},
		"ignore_unavailable": {"true"},
		"allow_no_indices":   {"true"},
	}

	var response deleteByQueryResponse
	if err := s.do(ctx, http.MethodPost, "/"+escapeScope(scope)+"/_delete_by_query", query, body, contentTypeJSON, &response); err != nil {
		if isNotFound(err) {
			return 0, nil
		}
		return 0, errors.NewStoreWriteFailed("delete by query failed", nil, err)
	}

	if len(response.Failures) > 0 {
		items := make([]errors.ItemError, 0, len(response.Failures))
		for _, failure := range response.Failures {
			items = append(items, errors.ItemError{Reason: string(failure)})
		}
		return response.Deleted, errors.NewStoreWriteFailed("delete by query reported failures", items)
	}

	return response.Deleted, nil
}

// DeleteIndex drops every index matching pattern; a missing index is not an error
func (s *IndexStore) DeleteIndex(ctx context.Context, pattern string) error {
	query := url.Values{
		"ignore_unavailable": {"true"},
		"allow_no_indices":   {"true"},
	}
	if err := s.do(ctx, http.MethodDelete, "/"+escapeScope(pattern), query, nil, contentTypeJSON, nil); err != nil {
		if isNotFound(err) {
			return nil
		}
		return err
	}
	slog.InfoContext(ctx, "index deleted", "pattern", pattern)
	return nil
}

// Search returns the first size hits matching query
func (s *IndexStore) Search(ctx context.Context, scope string, q model.Query, fields []string, size int) ([]model.Hit, error) {
	response, err := s.search(ctx, scope, searchBody(buildQuery(q), fields, size, false), nil)
	if err != nil {
		return nil, err
	}
	return response.Hits.Hits, nil
}

// OpenScroll opens a scroll cursor and returns its first page
func (s *IndexStore) OpenScroll(ctx context.Context, scope string, q model.Query, fields []string, size int, ttl time.Duration) (model.ScrollPage, error) {
	response, err := s.search(ctx, scope, searchBody(buildQuery(q), fields, size, true), url.Values{"scroll": {keepAlive(ttl)}})
	if err != nil {
		return model.ScrollPage{}, err
	}
	return model.ScrollPage{CursorID: response.ScrollID, Hits: response.Hits.Hits}, nil
}

// NextScrollPage fetches the next page of an open cursor
func (s *IndexStore) NextScrollPage(ctx context.Context, cursorID string, ttl time.Duration) (model.ScrollPage, error) {
	body, err := json.Marshal(map[string]any{
		"scroll":    keepAlive(ttl),
		"scroll_id": cursorID,
	})
	if err != nil {
		return model.ScrollPage{}, errors.NewUnexpected("failed to encode scroll request", err)
	}

	var response searchResponse
	if err := s.do(ctx, http.MethodPost, "/_search/scroll", nil, body, contentTypeJSON, &response); err != nil {
		return model.ScrollPage{}, errors.NewStoreQueryFailed("scroll page request failed", err)
	}
	return model.ScrollPage{CursorID: response.ScrollID, Hits: response.Hits.Hits}, nil
}

// CloseScroll releases a cursor; an expired cursor is not an error
func (s *IndexStore) CloseScroll(ctx context.Context, cursorID string) error {
	if cursorID == "" {
		return nil
	}
	body, err := json.Marshal(map[string]any{"scroll_id": []string{cursorID}})
	if err != nil {
		return errors.NewUnexpected("failed to encode clear scroll request", err)
	}
	if err := s.do(ctx, http.MethodDelete, "/_search/scroll", nil, body, contentTypeJSON, nil); err != nil && !isNotFound(err) {
		return err
	}
	return nil
}

// Get returns the document with id in scope or errors.NotFound
func (s *IndexStore) Get(ctx context.Context, scope, id string) (*model.Hit, error) {
	if isPattern(scope) {
		hits, err := s.MultiGet(ctx, scope, []string{id})
		if err != nil {
			return nil, err
		}
		if len(hits) == 0 {
			return nil, errors.NewNotFound(fmt.Sprintf("document %s not found", id))
		}
		return &hits[0], nil
	}

	var response getResponse
	path := "/" + url.PathEscape(scope) + "/_doc/" + url.PathEscape(id)
	if err := s.do(ctx, http.MethodGet, path, nil, nil, contentTypeJSON, &response); err != nil {
		if isNotFound(err) {
			return nil, errors.NewNotFound(fmt.Sprintf("document %s not found", id), err)
		}
		return nil, err
	}
	if !response.Found {
		return nil, errors.NewNotFound(fmt.Sprintf("document %s not found", id))
	}
	return &model.Hit{ID: response.ID, Index: response.Index, Source: response.Source}, nil
}

// MultiGet returns the documents found among ids
func (s *IndexStore) MultiGet(ctx context.Context, scope string, ids []string) ([]model.Hit, error) {
	if len(ids) == 0 {
		return nil, nil
	}

	// _mget needs a concrete index, patterns go through an ids query
	if isPattern(scope) {
		return s.Search(ctx, scope, model.Query{IDs: ids}, nil, len(ids))
	}

	body, err := json.Marshal(map[string]any{"ids": ids})
	if err != nil {
		return nil, errors.NewUnexpected("failed to encode multi get request", err)
	}

	var response mgetResponse
	if err := s.do(ctx, http.MethodPost, "/"+url.PathEscape(scope)+"/_mget", nil, body, contentTypeJSON, &response); err != nil {
		if isNotFound(err) {
			return nil, nil
		}
		return nil, errors.NewStoreQueryFailed("multi get failed", err)
	}

	hits := make([]model.Hit, 0, len(response.Docs))
	for _, doc := range response.Docs {
		if !doc.Found {
			continue
		}
		hits = append(hits, model.Hit{ID: doc.ID, Index: doc.Index, Source: doc.Source})
	}
	return hits, nil
}

func (s *IndexStore) search(ctx context.Context, scope string, body map[string]any, query url.Values) (*searchResponse, error) {
	payload, err := json.Marshal(body)
	if err != nil {
		return nil, errors.NewUnexpected("failed to encode search request", err)
	}

	if query == nil {
		query = url.Values{}
	}
	query.Set("ignore_unavailable", "true")
	query.Set("allow_no_indices", "true")

	var response searchResponse
	if err := s.do(ctx, http.MethodPost, "/"+escapeScope(scope)+"/_search", query, payload, contentTypeJSON, &response); err != nil {
		if isNotFound(err) {
			return &response, nil
		}
		return nil, errors.NewStoreQueryFailed("search request failed", err)
	}
	return &response, nil
}

// do sends a request to the cluster and decodes the JSON response into out
func (s *IndexStore) do(ctx context.Context, method, path string, query url.Values, body []byte, contentType string, out any) error {
	target := s.config.URL + path
	if len(query) > 0 {
		target += "?" + query.Encode()
	}

	headers := map[string]string{"Content-Type": contentType}
	response, err := s.httpClient.Request(ctx, method, target, body, headers)
	if err != nil {
		return MapHTTPError(ctx, err)
	}

	if out == nil || len(response.Body) == 0 {
		return nil
	}
	if err := json.Unmarshal(response.Body, out); err != nil {
		slog.ErrorContext(ctx, "failed to decode OpenSearch response",
			"error", err,
			"path", path,
		)
		return errors.NewUnexpected("failed to decode OpenSearch response", err)
	}
	return nil
}

func isPattern(scope string) bool {
	return strings.ContainsAny(scope, "*,")
}

// escapeScope escapes an index name or pattern while keeping wildcards and lists intact
func escapeScope(scope string) string {
	parts := strings.Split(scope, ",")
	for i, part := range parts {
		parts[i] = strings.ReplaceAll(url.PathEscape(part), "%2A", "*")
	}
	return strings.Join(parts, ",")
}
