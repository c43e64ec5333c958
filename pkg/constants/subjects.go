// Copyright The Linux Foundation and each contributor to LFX.
// SPDX-License-Identifier: MIT

package constants

// NATS subject constants for message publishing and subscriptions
const (
	// EntityChangedSubject carries EntityChanged notifications for every entity type
	EntityChangedSubject = "lfx.entity-store.entity_changed"

	// OrganizationRemovedSubject requests removal of everything owned by an organization
	OrganizationRemovedSubject = "lfx.entity-store.organization_removed"

	// StacksFixedSubject requests marking all stacks of the given organizations as fixed
	StacksFixedSubject = "lfx.entity-store.stacks_fixed"
)

// EntityStoreQueue is the NATS queue group for entity store subscriptions
const EntityStoreQueue = "lfx-v2-entity-store"
