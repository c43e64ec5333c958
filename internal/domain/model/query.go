// Copyright The Linux Foundation and each contributor to LFX.
// SPDX-License-Identifier: MIT

package model

import (
	"encoding/json"
	"fmt"
	"slices"
)

// QueryOptions restricts the documents a bulk operation touches.
// An empty value matches every document of the entity.
type QueryOptions struct {
	OrganizationIDs []string `json:"organization_ids,omitempty"`
	ProjectIDs      []string `json:"project_ids,omitempty"`
	StackIDs        []string `json:"stack_ids,omitempty"`
	IDs             []string `json:"ids,omitempty"`
	Terms           []Term   `json:"terms,omitempty"`
	IncludeDeleted  bool     `json:"include_deleted,omitempty"`
}

// Term matches documents whose field equals one of the values.
type Term struct {
	Field  string `json:"field"`
	Values []any  `json:"values"`
}

// Query is the store-level filter built from QueryOptions.
// All restrictions are combined with AND; values within a term with OR.
type Query struct {
	IDs      []string
	Terms    []Term
	NotTerms []Term
}

// Query builds the store filter for an entity with the given capabilities.
// Ownership restrictions the entity does not carry are ignored.
func (o QueryOptions) Query(caps Capabilities) Query {
	q := Query{IDs: o.IDs}

	if caps.OrganizationOwned && len(o.OrganizationIDs) > 0 {
		q.Terms = append(q.Terms, stringTerm(FieldOrganizationID, o.OrganizationIDs))
	}
	if caps.ProjectOwned && len(o.ProjectIDs) > 0 {
		q.Terms = append(q.Terms, stringTerm(FieldProjectID, o.ProjectIDs))
	}
	if caps.StackOwned && len(o.StackIDs) > 0 {
		q.Terms = append(q.Terms, stringTerm(FieldStackID, o.StackIDs))
	}
	q.Terms = append(q.Terms, o.Terms...)

	if caps.SoftDeletable && !o.IncludeDeleted {
		q.NotTerms = append(q.NotTerms, Term{Field: FieldIsDeleted, Values: []any{true}})
	}

	return q
}

// IsEmpty reports whether the query matches every document.
func (q Query) IsEmpty() bool {
	return len(q.IDs) == 0 && len(q.Terms) == 0 && len(q.NotTerms) == 0
}

// Matches evaluates the query against a decoded document source.
func (q Query) Matches(source map[string]any) bool {
	if len(q.IDs) > 0 {
		id, _ := source[FieldID].(string)
		if !slices.Contains(q.IDs, id) {
			return false
		}
	}
	for _, t := range q.Terms {
		if !t.matches(source) {
			return false
		}
	}
	for _, t := range q.NotTerms {
		if t.matches(source) {
			return false
		}
	}
	return true
}

func (t Term) matches(source map[string]any) bool {
	v, ok := source[t.Field]
	if !ok || v == nil {
		return false
	}
	actual := fmt.Sprint(v)
	for _, want := range t.Values {
		if fmt.Sprint(want) == actual {
			return true
		}
	}
	return false
}

func stringTerm(field string, values []string) Term {
	t := Term{Field: field, Values: make([]any, 0, len(values))}
	for _, v := range values {
		t.Values = append(t.Values, v)
	}
	return t
}

// Update is an opaque bulk partial update, either a merge patch or a script.
type Update struct {
	Patch  map[string]any
	Script *Script
}

// Script is a store-side update script with parameters.
type Script struct {
	Source string         `json:"source"`
	Lang   string         `json:"lang,omitempty"`
	Params map[string]any `json:"params,omitempty"`
}

// IsEmpty reports whether the update changes nothing.
func (u Update) IsEmpty() bool {
	return len(u.Patch) == 0 && u.Script == nil
}

// Hit is a single document returned by a search or scroll page.
type Hit struct {
	ID     string          `json:"_id"`
	Index  string          `json:"_index"`
	Source json.RawMessage `json:"_source"`
}

// ScrollPage is one batch of a scroll cursor.
type ScrollPage struct {
	CursorID string
	Hits     []Hit
}

// IndexDocument is a document queued for a bulk index request.
type IndexDocument struct {
	ID   string
	Body any
}

// UpdateTarget addresses a document in a bulk update request.
type UpdateTarget struct {
	ID    string
	Index string
}
