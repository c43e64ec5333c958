// Copyright The Linux Foundation and each contributor to LFX.
// SPDX-License-Identifier: MIT

// Package constants defines global constants used throughout the entity store service.
package constants

// Service constants
const (
	// ServiceName is the name of this service
	ServiceName = "entity-store"
)

// Environment variables
const (
	// EnvNATSURL is the environment variable for NATS server URL
	EnvNATSURL = "NATS_URL"
	// EnvNATSCredentials is the environment variable for NATS credentials
	EnvNATSCredentials = "NATS_CREDENTIALS"
	// EnvOpenSearchURL is the environment variable for the OpenSearch base URL
	EnvOpenSearchURL = "OPENSEARCH_URL"
	// EnvRepositoryConfig points to an optional YAML file with repository settings
	EnvRepositoryConfig = "ENTITY_STORE_CONFIG"
)

// Entity type names published in entity changed messages
const (
	EntityTypeOrganization = "Organization"
	EntityTypeProject      = "Project"
	EntityTypeStack        = "Stack"
	EntityTypeEvent        = "PersistentEvent"
)
