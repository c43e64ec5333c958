// Copyright The Linux Foundation and each contributor to LFX.
// SPDX-License-Identifier: MIT

// Package memory provides the process-local cache tier kept in front of the shared cache.
// Only this tier is invalidated by entity changed messages of other processes.
package memory

import (
	"os"
	"strconv"
	"time"
)

const (
	// EnvLocalCacheSize bounds the entries kept per namespace
	EnvLocalCacheSize = "LOCAL_CACHE_SIZE"
	// EnvLocalCacheTTL caps how long an entry stays in the local tier
	EnvLocalCacheTTL = "LOCAL_CACHE_TTL"
)

// Config holds the local cache tier configuration
type Config struct {
	// Size is the maximum number of entries per namespace
	Size int
	// MaxTTL caps the lifetime of local entries, bounding staleness when a change message is missed
	MaxTTL time.Duration
}

// DefaultConfig returns the default local cache configuration
func DefaultConfig() Config {
	return Config{
		Size:   10000,
		MaxTTL: time.Minute,
	}
}

// NewConfigFromEnv creates a Config from environment variables
func NewConfigFromEnv() Config {
	config := DefaultConfig()

	if size := os.Getenv(EnvLocalCacheSize); size != "" {
		if n, err := strconv.Atoi(size); err == nil && n > 0 {
			config.Size = n
		}
	}
	if ttl := os.Getenv(EnvLocalCacheTTL); ttl != "" {
		if d, err := time.ParseDuration(ttl); err == nil && d > 0 {
			config.MaxTTL = d
		}
	}

	return config
}
