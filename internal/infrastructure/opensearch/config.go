// Copyright The Linux Foundation and each contributor to LFX.
// SPDX-License-Identifier: MIT

package opensearch

import (
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/linuxfoundation/lfx-v2-entity-store/pkg/constants"
)

// Refresh policies applied to write requests
const (
	RefreshNone    = "false"
	RefreshWaitFor = "wait_for"
	RefreshForce   = "true"
)

// Config holds the configuration for the OpenSearch index store
type Config struct {
	// URL is the cluster endpoint, e.g. http://localhost:9200
	URL string

	// Username and Password enable basic authentication when Username is set
	Username string
	Password string

	// Timeout is the HTTP client timeout for requests
	Timeout time.Duration

	// MaxRetries is the maximum number of retry attempts for failed requests
	MaxRetries int

	// RetryDelay is the delay between retry attempts
	RetryDelay time.Duration

	// Refresh is the refresh policy used by bulk writes
	Refresh string
}

// DefaultConfig returns a Config with sensible defaults
func DefaultConfig() Config {
	return Config{
		URL:        "http://localhost:9200",
		Timeout:    30 * time.Second,
		MaxRetries: 2,
		RetryDelay: 500 * time.Millisecond,
		Refresh:    RefreshWaitFor,
	}
}

// NewConfigFromEnv creates a Config from environment variables
func NewConfigFromEnv() Config {
	config := DefaultConfig()

	if url := os.Getenv(constants.EnvOpenSearchURL); url != "" {
		config.URL = strings.TrimSuffix(url, "/")
	}

	if username := os.Getenv("OPENSEARCH_USERNAME"); username != "" {
		config.Username = username
	}

	if password := os.Getenv("OPENSEARCH_PASSWORD"); password != "" {
		config.Password = password
	}

	if timeoutStr := os.Getenv("OPENSEARCH_TIMEOUT"); timeoutStr != "" {
		if timeout, err := time.ParseDuration(timeoutStr); err == nil {
			config.Timeout = timeout
		}
	}

	if retriesStr := os.Getenv("OPENSEARCH_MAX_RETRIES"); retriesStr != "" {
		if retries, err := strconv.Atoi(retriesStr); err == nil {
			config.MaxRetries = retries
		}
	}

	if delayStr := os.Getenv("OPENSEARCH_RETRY_DELAY"); delayStr != "" {
		if delay, err := time.ParseDuration(delayStr); err == nil {
			config.RetryDelay = delay
		}
	}

	switch refresh := os.Getenv("OPENSEARCH_REFRESH"); refresh {
	case RefreshNone, RefreshWaitFor, RefreshForce:
		config.Refresh = refresh
	}

	return config
}
