// Copyright The Linux Foundation and each contributor to LFX.
// SPDX-License-Identifier: MIT

package opensearch

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/linuxfoundation/lfx-v2-entity-store/internal/domain/model"
)

// buildQuery translates a store filter into the query DSL
func buildQuery(q model.Query) map[string]any {
	if q.IsEmpty() {
		return map[string]any{"match_all": map[string]any{}}
	}

	filter := make([]any, 0, len(q.Terms)+1)
	if len(q.IDs) > 0 {
		filter = append(filter, idsQuery(q.IDs))
	}
	for _, t := range q.Terms {
		filter = append(filter, termsQuery(t))
	}

	boolQuery := map[string]any{"filter": filter}
	if len(q.NotTerms) > 0 {
		mustNot := make([]any, 0, len(q.NotTerms))
		for _, t := range q.NotTerms {
			mustNot = append(mustNot, termsQuery(t))
		}
		boolQuery["must_not"] = mustNot
	}

	return map[string]any{"bool": boolQuery}
}

func idsQuery(ids []string) map[string]any {
	return map[string]any{"ids": map[string]any{"values": ids}}
}

func termsQuery(t model.Term) map[string]any {
	return map[string]any{"terms": map[string]any{t.Field: t.Values}}
}

// searchBody builds a _search request body; nil fields returns the full source
func searchBody(query map[string]any, fields []string, size int, sorted bool) map[string]any {
	body := map[string]any{
		"query": query,
		"size":  size,
	}
	if fields != nil {
		body["_source"] = fields
	}
	if sorted {
		// scrolls do not need scoring
		body["sort"] = []string{"_doc"}
	}
	return body
}

// updateBody builds the payload line of a bulk update action
func updateBody(update model.Update) map[string]any {
	if update.Script != nil {
		script := map[string]any{"source": update.Script.Source}
		if update.Script.Lang != "" {
			script["lang"] = update.Script.Lang
		}
		if len(update.Script.Params) > 0 {
			script["params"] = update.Script.Params
		}
		return map[string]any{"script": script}
	}
	return map[string]any{"doc": update.Patch}
}

// keepAlive formats a scroll ttl the way the cluster expects it
func keepAlive(ttl time.Duration) string {
	if ttl <= 0 {
		ttl = time.Minute
	}
	return fmt.Sprintf("%dms", ttl.Milliseconds())
}

type bulkAction struct {
	Index  string `json:"_index"`
	ID     string `json:"_id"`
	Retry  int    `json:"retry_on_conflict,omitempty"`
	Status int    `json:"status,omitempty"`
	Error  *struct {
		Type   string `json:"type"`
		Reason string `json:"reason"`
	} `json:"error,omitempty"`
}

type bulkResponse struct {
	Errors bool                    `json:"errors"`
	Items  []map[string]bulkAction `json:"items"`
}

type searchResponse struct {
	ScrollID string `json:"_scroll_id"`
	Hits     struct {
		Hits []model.Hit `json:"hits"`
	} `json:"hits"`
}

type deleteByQueryResponse struct {
	Deleted  int64             `json:"deleted"`
	Failures []json.RawMessage `json:"failures"`
}

type getResponse struct {
	ID     string          `json:"_id"`
	Index  string          `json:"_index"`
	Found  bool            `json:"found"`
	Source json.RawMessage `json:"_source"`
}

type mgetResponse struct {
	Docs []getResponse `json:"docs"`
}

type clusterHealthResponse struct {
	Status string `json:"status"`
}
