// Copyright The Linux Foundation and each contributor to LFX.
// SPDX-License-Identifier: MIT

package model

// OrganizationRemovedEvent requests removal of everything an organization owns
type OrganizationRemovedEvent struct {
	OrganizationID string `json:"organization_id"`
}

// StacksFixedEvent requests marking every stack of the given organizations as fixed.
// ProjectIDs optionally narrows the update; FixedAt defaults to the time of processing.
type StacksFixedEvent struct {
	OrganizationIDs []string `json:"organization_ids"`
	ProjectIDs      []string `json:"project_ids,omitempty"`
	// FixedAt is an RFC3339 timestamp
	FixedAt *string `json:"fixed_at,omitempty"`
}
