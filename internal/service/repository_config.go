// Copyright The Linux Foundation and each contributor to LFX.
// SPDX-License-Identifier: MIT

package service

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/linuxfoundation/lfx-v2-entity-store/pkg/errors"
)

// Repository configuration environment variables
const (
	EnvPageSize              = "ENTITY_STORE_PAGE_SIZE"
	EnvScrollTTL             = "ENTITY_STORE_SCROLL_TTL"
	EnvDefaultCacheTTL       = "ENTITY_STORE_CACHE_TTL"
	EnvNotificationDelay     = "ENTITY_STORE_NOTIFICATION_DELAY"
	EnvBulkNotificationDelay = "ENTITY_STORE_BULK_NOTIFICATION_DELAY"
	EnvIDFormat              = "ENTITY_STORE_ID_FORMAT"
)

// RepositoryConfig holds the tunables shared by every document repository
type RepositoryConfig struct {
	// PageSize bounds the documents fetched per search or scroll page in bulk paths
	PageSize int `yaml:"page_size"`
	// ScrollTTL keeps scroll cursors alive between pages
	ScrollTTL time.Duration `yaml:"scroll_ttl"`
	// DefaultCacheTTL is used when a write asks for caching without a TTL
	DefaultCacheTTL time.Duration `yaml:"default_cache_ttl"`
	// NotificationDelay delays entity changed messages of single writes
	NotificationDelay time.Duration `yaml:"notification_delay"`
	// BulkNotificationDelay delays the per-organization messages of bulk updates
	BulkNotificationDelay time.Duration `yaml:"bulk_notification_delay"`
	// IDFormat is the format of generated document ids (uuid or base58)
	IDFormat string `yaml:"id_format"`
}

// DefaultRepositoryConfig returns the default repository configuration
func DefaultRepositoryConfig() RepositoryConfig {
	return RepositoryConfig{
		PageSize:              500,
		ScrollTTL:             5 * time.Minute,
		DefaultCacheTTL:       5 * time.Minute,
		NotificationDelay:     1500 * time.Millisecond,
		BulkNotificationDelay: 1500 * time.Millisecond,
		IDFormat:              "base58",
	}
}

// LoadRepositoryConfig builds the configuration from defaults, the optional
// YAML file at path and environment overrides, in that order
func LoadRepositoryConfig(path string) (RepositoryConfig, error) {
	config := DefaultRepositoryConfig()

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return config, errors.NewUnexpected(fmt.Sprintf("failed to read repository config %s", path), err)
		}
		if err := yaml.Unmarshal(data, &config); err != nil {
			return config, errors.NewUnexpected(fmt.Sprintf("failed to parse repository config %s", path), err)
		}
	}

	if err := config.applyEnv(); err != nil {
		return config, err
	}

	return config, config.Validate()
}

func (c *RepositoryConfig) applyEnv() error {
	if v := os.Getenv(EnvPageSize); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			return errors.NewValidation(fmt.Sprintf("invalid %s", EnvPageSize), err)
		}
		c.PageSize = n
	}

	durations := map[string]*time.Duration{
		EnvScrollTTL:             &c.ScrollTTL,
		EnvDefaultCacheTTL:       &c.DefaultCacheTTL,
		EnvNotificationDelay:     &c.NotificationDelay,
		EnvBulkNotificationDelay: &c.BulkNotificationDelay,
	}
	for env, target := range durations {
		v := os.Getenv(env)
		if v == "" {
			continue
		}
		d, err := time.ParseDuration(v)
		if err != nil {
			return errors.NewValidation(fmt.Sprintf("invalid %s", env), err)
		}
		*target = d
	}

	if v := os.Getenv(EnvIDFormat); v != "" {
		c.IDFormat = v
	}
	return nil
}

// Validate checks the configuration values
func (c RepositoryConfig) Validate() error {
	if c.PageSize <= 0 {
		return errors.NewValidation("page size must be positive")
	}
	if c.ScrollTTL <= 0 {
		return errors.NewValidation("scroll TTL must be positive")
	}
	if c.DefaultCacheTTL < 0 || c.NotificationDelay < 0 || c.BulkNotificationDelay < 0 {
		return errors.NewValidation("durations cannot be negative")
	}
	return nil
}
