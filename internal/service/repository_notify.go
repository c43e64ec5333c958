// Copyright The Linux Foundation and each contributor to LFX.
// SPDX-License-Identifier: MIT

package service

import (
	"context"
	"log/slog"
	"maps"
	"time"

	"github.com/linuxfoundation/lfx-v2-entity-store/internal/domain/model"
	"github.com/linuxfoundation/lfx-v2-entity-store/pkg/constants"
	"github.com/linuxfoundation/lfx-v2-entity-store/pkg/log"
)

type notificationGroup struct {
	organizationID string
	projectID      string
	ids            []string
}

// publishChanges fans out entity changed messages for a write batch.
// Project owned entities get one message per project, organization owned
// entities one per organization, anything else one per document.
func (r *DocumentRepository[E, T]) publishChanges(ctx context.Context, changeType model.ChangeType, docs []T, data map[string]any) {
	if r.publisher == nil {
		return
	}

	switch {
	case r.caps.OrganizationOwned && r.caps.ProjectOwned:
		groups := groupDocuments(docs, func(doc T) string { return any(doc).(model.ProjectOwned).GetProjectID() })
		for _, g := range groups {
			r.publish(ctx, r.groupMessage(changeType, g, true, data), r.config.NotificationDelay)
		}
	case r.caps.OrganizationOwned:
		groups := groupDocuments(docs, func(doc T) string { return any(doc).(model.OrganizationOwned).GetOrganizationID() })
		for _, g := range groups {
			r.publish(ctx, r.groupMessage(changeType, g, false, data), r.config.NotificationDelay)
		}
	default:
		for _, doc := range docs {
			id := doc.GetID()
			r.publish(ctx, model.EntityChanged{
				ChangeType: changeType,
				Type:       r.descriptor.Name,
				ID:         &id,
				Data:       cloneData(data),
			}, r.config.NotificationDelay)
		}
	}
}

func (r *DocumentRepository[E, T]) groupMessage(changeType model.ChangeType, g *notificationGroup, withProject bool, data map[string]any) model.EntityChanged {
	msg := model.EntityChanged{
		ChangeType:     changeType,
		Type:           r.descriptor.Name,
		OrganizationID: &g.organizationID,
		Data:           cloneData(data),
	}
	if withProject {
		msg.ProjectID = &g.projectID
	}
	if len(g.ids) == 1 {
		msg.ID = &g.ids[0]
	}
	return msg
}

// publishOrganizationChanges publishes one batch message per organization
func (r *DocumentRepository[E, T]) publishOrganizationChanges(ctx context.Context, changeType model.ChangeType, organizationIDs []string, data map[string]any) {
	if r.publisher == nil {
		return
	}
	for _, organizationID := range organizationIDs {
		r.publish(ctx, model.EntityChanged{
			ChangeType:     changeType,
			Type:           r.descriptor.Name,
			OrganizationID: &organizationID,
			Data:           cloneData(data),
		}, r.config.BulkNotificationDelay)
	}
}

// publish sends a single message; failures are logged and swallowed
func (r *DocumentRepository[E, T]) publish(ctx context.Context, msg model.EntityChanged, delay time.Duration) {
	msg.Origin = r.instanceID
	if err := r.publisher.Publish(ctx, constants.EntityChangedSubject, msg, delay); err != nil {
		slog.ErrorContext(ctx, "failed to publish entity changed message",
			"error", err,
			"entity_type", msg.Type,
			"change_type", msg.ChangeType,
			"entity_id", log.LogOptionalString(msg.ID),
			"organization_id", log.LogOptionalString(msg.OrganizationID),
			"project_id", log.LogOptionalString(msg.ProjectID),
		)
		return
	}
	slog.DebugContext(ctx, "entity changed message published",
		"entity_type", msg.Type,
		"change_type", msg.ChangeType,
		"entity_id", log.LogOptionalString(msg.ID),
	)
}

// groupDocuments groups documents by key, keeping first-seen order
func groupDocuments[T model.Document](docs []T, key func(T) string) []*notificationGroup {
	var groups []*notificationGroup
	byKey := make(map[string]*notificationGroup)
	for _, doc := range docs {
		k := key(doc)
		g, ok := byKey[k]
		if !ok {
			g = &notificationGroup{}
			if o, ok := any(doc).(model.OrganizationOwned); ok {
				g.organizationID = o.GetOrganizationID()
			}
			if p, ok := any(doc).(model.ProjectOwned); ok {
				g.projectID = p.GetProjectID()
			}
			byKey[k] = g
			groups = append(groups, g)
		}
		g.ids = append(g.ids, doc.GetID())
	}
	return groups
}

func cloneData(data map[string]any) map[string]any {
	if data == nil {
		return map[string]any{}
	}
	return maps.Clone(data)
}
