// Copyright The Linux Foundation and each contributor to LFX.
// SPDX-License-Identifier: MIT

package constants

const (
	// KVBucketNameEntityCache is the name of the KV bucket backing the document cache.
	KVBucketNameEntityCache = "entity-store-cache"

	// CacheKeySeparator joins a cache namespace and a document id into a KV key.
	CacheKeySeparator = "."
)

// Index aliases used by the entity repositories
const (
	IndexOrganizations = "organizations"
	IndexProjects      = "projects"
	IndexStacks        = "stacks"
	// IndexEventsPrefix is the prefix of the monthly event partitions (events-YYYY.MM)
	IndexEventsPrefix = "events"
)
