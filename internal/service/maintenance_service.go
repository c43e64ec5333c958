// Copyright The Linux Foundation and each contributor to LFX.
// SPDX-License-Identifier: MIT

package service

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/nats-io/nats.go"

	"github.com/linuxfoundation/lfx-v2-entity-store/internal/domain/model"
	"github.com/linuxfoundation/lfx-v2-entity-store/pkg/constants"
	"github.com/linuxfoundation/lfx-v2-entity-store/pkg/errors"
	"github.com/linuxfoundation/lfx-v2-entity-store/pkg/utils"
)

// BulkRemover removes documents matching a filter
type BulkRemover interface {
	RemoveAllMatching(ctx context.Context, options model.QueryOptions, sendNotifications bool) (int64, error)
	Descriptor() model.EntityDescriptor
}

// BulkUpdater updates documents matching a filter
type BulkUpdater interface {
	UpdateAll(ctx context.Context, organizationIDs []string, options model.QueryOptions, update model.Update, sendNotifications bool) (int64, error)
}

// SingleRemover removes a document by id
type SingleRemover interface {
	RemoveByID(ctx context.Context, id string, opts ...WriteOption) error
}

// MaintenanceService handles organization wide maintenance requests
type MaintenanceService struct {
	organizations SingleRemover
	owned         []BulkRemover
	stacks        BulkUpdater
	now           func() time.Time
}

// NewMaintenanceService creates a maintenance service. owned lists the
// organization owned repositories in removal order, children first.
func NewMaintenanceService(organizations SingleRemover, stacks BulkUpdater, owned ...BulkRemover) *MaintenanceService {
	return &MaintenanceService{
		organizations: organizations,
		owned:         owned,
		stacks:        stacks,
		now:           utils.NowUTC,
	}
}

// HandleMessage routes NATS messages to appropriate handlers based on subject
func (s *MaintenanceService) HandleMessage(ctx context.Context, msg *nats.Msg) error {
	subject := msg.Subject

	slog.DebugContext(ctx, "received maintenance request", "subject", subject)

	var err error
	switch subject {
	case constants.OrganizationRemovedSubject:
		err = s.handleOrganizationRemoved(ctx, msg)
	case constants.StacksFixedSubject:
		err = s.handleStacksFixed(ctx, msg)
	default:
		slog.WarnContext(ctx, "unknown maintenance subject", "subject", subject)
		return errors.NewValidation(fmt.Sprintf("unknown maintenance subject: %s", subject))
	}

	if err != nil {
		slog.ErrorContext(ctx, "error processing maintenance request",
			"error", err,
			"subject", subject)
		return err
	}

	return nil
}

// handleOrganizationRemoved removes every document owned by the organization, then the organization
func (s *MaintenanceService) handleOrganizationRemoved(ctx context.Context, msg *nats.Msg) error {
	var event model.OrganizationRemovedEvent
	if err := json.Unmarshal(msg.Data, &event); err != nil {
		slog.ErrorContext(ctx, "failed to unmarshal organization removed event", "error", err)
		return errors.NewValidation("failed to unmarshal event", err)
	}
	if event.OrganizationID == "" {
		return errors.NewValidation("organization id is required")
	}

	options := model.QueryOptions{OrganizationIDs: []string{event.OrganizationID}, IncludeDeleted: true}
	for _, repo := range s.owned {
		removed, err := repo.RemoveAllMatching(ctx, options, true)
		if err != nil {
			return fmt.Errorf("failed to remove %s documents: %w", repo.Descriptor().Name, err)
		}
		slog.InfoContext(ctx, "removed organization documents",
			"organization_id", event.OrganizationID,
			"entity_type", repo.Descriptor().Name,
			"removed", removed)
	}

	if s.organizations != nil {
		if err := s.organizations.RemoveByID(ctx, event.OrganizationID); err != nil {
			return fmt.Errorf("failed to remove organization: %w", err)
		}
	}

	slog.InfoContext(ctx, "organization removed event processed successfully",
		"organization_id", event.OrganizationID)
	return nil
}

// handleStacksFixed marks the stacks of the given organizations as fixed
func (s *MaintenanceService) handleStacksFixed(ctx context.Context, msg *nats.Msg) error {
	var event model.StacksFixedEvent
	if err := json.Unmarshal(msg.Data, &event); err != nil {
		slog.ErrorContext(ctx, "failed to unmarshal stacks fixed event", "error", err)
		return errors.NewValidation("failed to unmarshal event", err)
	}
	if len(event.OrganizationIDs) == 0 {
		return errors.NewValidation("at least one organization id is required")
	}

	fixedAt, err := utils.ParseTimestampPtr(event.FixedAt)
	if err != nil {
		return err
	}
	if fixedAt == nil {
		now := s.now()
		fixedAt = &now
	}

	update := model.Update{Patch: map[string]any{
		"status":     model.StackStatusFixed,
		"date_fixed": fixedAt.UTC(),
	}}
	updated, err := s.stacks.UpdateAll(ctx, event.OrganizationIDs, model.QueryOptions{ProjectIDs: event.ProjectIDs}, update, true)
	if err != nil {
		return err
	}

	slog.InfoContext(ctx, "stacks fixed event processed successfully",
		"organizations", len(event.OrganizationIDs),
		"updated", updated)
	return nil
}
