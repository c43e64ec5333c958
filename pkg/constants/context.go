// Copyright The Linux Foundation and each contributor to LFX.
// SPDX-License-Identifier: MIT

package constants

// ContextKey is the unified type for all context keys to prevent type mismatches
type ContextKey string

// Context keys used by the entity store
const (
	// RequestIDContextKey is the context key for request ID
	RequestIDContextKey ContextKey = "request-id"
)

// RequestIDHeader is the NATS/HTTP header name carrying the request ID
const RequestIDHeader = "X-Request-Id"
