// Copyright The Linux Foundation and each contributor to LFX.
// SPDX-License-Identifier: MIT

package nats

import (
	"os"
	"strconv"
	"time"

	"github.com/linuxfoundation/lfx-v2-entity-store/pkg/constants"
)

// Config holds the configuration for the NATS client
type Config struct {
	// URL is the NATS server URL
	URL string

	// CredentialsFile is an optional NATS credentials file
	CredentialsFile string

	// Timeout is the connection and request timeout
	Timeout time.Duration

	// MaxReconnect is the maximum number of reconnect attempts
	MaxReconnect int

	// ReconnectWait is the delay between reconnect attempts
	ReconnectWait time.Duration

	// CacheBucket is the KV bucket backing the document cache
	CacheBucket string

	// CreateBuckets creates missing KV buckets instead of failing
	CreateBuckets bool

	// BucketMaxAge bounds how long KV entries are kept by the server when buckets are created
	BucketMaxAge time.Duration
}

// DefaultConfig returns a Config with sensible defaults
func DefaultConfig() Config {
	return Config{
		URL:           "nats://localhost:4222",
		Timeout:       10 * time.Second,
		MaxReconnect:  3,
		ReconnectWait: 2 * time.Second,
		CacheBucket:   constants.KVBucketNameEntityCache,
		CreateBuckets: true,
		BucketMaxAge:  24 * time.Hour,
	}
}

// NewConfigFromEnv creates a Config from environment variables
func NewConfigFromEnv() Config {
	config := DefaultConfig()

	if url := os.Getenv(constants.EnvNATSURL); url != "" {
		config.URL = url
	}

	if creds := os.Getenv(constants.EnvNATSCredentials); creds != "" {
		config.CredentialsFile = creds
	}

	if timeoutStr := os.Getenv("NATS_TIMEOUT"); timeoutStr != "" {
		if timeout, err := time.ParseDuration(timeoutStr); err == nil {
			config.Timeout = timeout
		}
	}

	if reconnectStr := os.Getenv("NATS_MAX_RECONNECT"); reconnectStr != "" {
		if reconnect, err := strconv.Atoi(reconnectStr); err == nil {
			config.MaxReconnect = reconnect
		}
	}

	if waitStr := os.Getenv("NATS_RECONNECT_WAIT"); waitStr != "" {
		if wait, err := time.ParseDuration(waitStr); err == nil {
			config.ReconnectWait = wait
		}
	}

	if bucket := os.Getenv("NATS_CACHE_BUCKET"); bucket != "" {
		config.CacheBucket = bucket
	}

	if create := os.Getenv("NATS_CREATE_BUCKETS"); create != "" {
		if b, err := strconv.ParseBool(create); err == nil {
			config.CreateBuckets = b
		}
	}

	if maxAgeStr := os.Getenv("NATS_BUCKET_MAX_AGE"); maxAgeStr != "" {
		if maxAge, err := time.ParseDuration(maxAgeStr); err == nil {
			config.BucketMaxAge = maxAge
		}
	}

	return config
}
