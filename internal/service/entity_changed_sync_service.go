// Copyright The Linux Foundation and each contributor to LFX.
// SPDX-License-Identifier: MIT

package service

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"sync"

	"github.com/nats-io/nats.go"

	"github.com/linuxfoundation/lfx-v2-entity-store/internal/domain/model"
	"github.com/linuxfoundation/lfx-v2-entity-store/internal/domain/port"
	"github.com/linuxfoundation/lfx-v2-entity-store/pkg/constants"
	"github.com/linuxfoundation/lfx-v2-entity-store/pkg/errors"
)

// EntityChangedSyncService keeps the process-local caches in line with entity
// changes made by other processes. The shared cache is never touched here, the
// writing process invalidates it before the store write.
type EntityChangedSyncService struct {
	instanceID string
	mu         sync.RWMutex
	caches     map[string]port.ScopedCache
}

// NewEntityChangedSyncService creates a sync service for the process identified by
// instanceID; messages published by that process are skipped
func NewEntityChangedSyncService(instanceID string) *EntityChangedSyncService {
	return &EntityChangedSyncService{
		instanceID: instanceID,
		caches:     make(map[string]port.ScopedCache),
	}
}

// Register routes entity changed messages of entityType to a process-local cache
func (s *EntityChangedSyncService) Register(entityType string, cache port.ScopedCache) {
	if cache == nil {
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.caches[entityType] = cache
}

// HandleMessage processes an entity changed message
func (s *EntityChangedSyncService) HandleMessage(ctx context.Context, msg *nats.Msg) error {
	if msg.Subject != constants.EntityChangedSubject {
		slog.WarnContext(ctx, "unknown entity changed subject", "subject", msg.Subject)
		return errors.NewValidation(fmt.Sprintf("unknown entity changed subject: %s", msg.Subject))
	}

	var event model.EntityChanged
	if err := json.Unmarshal(msg.Data, &event); err != nil {
		slog.ErrorContext(ctx, "failed to unmarshal entity changed event", "error", err)
		return errors.NewValidation("failed to unmarshal event", err)
	}

	if s.instanceID != "" && event.Origin == s.instanceID {
		slog.DebugContext(ctx, "skipping entity changed message published by this process",
			"entity_type", event.Type,
			"change_type", event.ChangeType,
		)
		return nil
	}

	s.mu.RLock()
	cache, ok := s.caches[event.Type]
	s.mu.RUnlock()
	if !ok {
		slog.DebugContext(ctx, "no cache registered for entity type, skipping", "entity_type", event.Type)
		return nil
	}

	if event.IsBatch() {
		organizationID := derefString(event.OrganizationID)
		projectID := derefString(event.ProjectID)
		slog.DebugContext(ctx, "invalidating cache scope for batch change",
			"entity_type", event.Type,
			"change_type", event.ChangeType,
			"organization_id", organizationID,
			"project_id", projectID,
		)
		if err := cache.InvalidateScope(ctx, organizationID, projectID); err != nil {
			slog.ErrorContext(ctx, "failed to invalidate cache scope", "error", err, "entity_type", event.Type)
			return err
		}
		return nil
	}

	if err := cache.Invalidate(ctx, *event.ID); err != nil {
		slog.ErrorContext(ctx, "failed to invalidate cache entry",
			"error", err,
			"entity_type", event.Type,
			"entity_id", *event.ID,
		)
		return err
	}

	slog.DebugContext(ctx, "cache entry invalidated",
		"entity_type", event.Type,
		"change_type", event.ChangeType,
		"entity_id", *event.ID,
	)
	return nil
}

func derefString(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}
