// Copyright The Linux Foundation and each contributor to LFX.
// SPDX-License-Identifier: MIT

package model

// ChangeType is the kind of mutation a change notification describes
type ChangeType string

// ChangeType constants
const (
	// ChangeTypeAdded is published after documents were added
	ChangeTypeAdded ChangeType = "Added"
	// ChangeTypeSaved is published after documents were saved or bulk updated
	ChangeTypeSaved ChangeType = "Saved"
	// ChangeTypeRemoved is published after documents were removed
	ChangeTypeRemoved ChangeType = "Removed"
)

// EntityChanged is the NATS message published when documents change.
// A nil ID means more than one document changed in the given scope.
type EntityChanged struct {
	ChangeType     ChangeType     `json:"change_type"`
	Type           string         `json:"type"`
	ID             *string        `json:"id"`
	OrganizationID *string        `json:"organization_id"`
	ProjectID      *string        `json:"project_id"`
	Data           map[string]any `json:"data"`
	// Origin identifies the publishing process so it can skip its own messages
	Origin string `json:"origin,omitempty"`
}

// IsBatch reports whether the message describes more than one document.
func (e EntityChanged) IsBatch() bool {
	return e.ID == nil
}

// DocumentChange is passed to change hooks around every write batch.
// Originals holds the stored version of saved documents keyed by id; inserts have no entry.
type DocumentChange[T Document] struct {
	ChangeType ChangeType
	Documents  []T
	Originals  map[string]T
	Data       map[string]any
}

// IDs returns the ids of the changed documents, skipping empty ones.
func (c *DocumentChange[T]) IDs() []string {
	ids := make([]string, 0, len(c.Documents))
	for _, doc := range c.Documents {
		if id := doc.GetID(); id != "" {
			ids = append(ids, id)
		}
	}
	return ids
}

// Original returns the stored version of the document with the given id.
func (c *DocumentChange[T]) Original(id string) (T, bool) {
	o, ok := c.Originals[id]
	return o, ok
}
