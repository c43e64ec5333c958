// Copyright The Linux Foundation and each contributor to LFX.
// SPDX-License-Identifier: MIT

package service

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/nats-io/nats.go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/linuxfoundation/lfx-v2-entity-store/internal/domain/model"
	"github.com/linuxfoundation/lfx-v2-entity-store/internal/infrastructure/mock"
	"github.com/linuxfoundation/lfx-v2-entity-store/pkg/constants"
	errs "github.com/linuxfoundation/lfx-v2-entity-store/pkg/errors"
)

type maintenanceFixture struct {
	env      *testEnv
	orgs     *DocumentRepository[model.Organization, *model.Organization]
	projects *DocumentRepository[model.Project, *model.Project]
	stacks   *DocumentRepository[model.Stack, *model.Stack]
	events   *DocumentRepository[model.Event, *model.Event]
	service  *MaintenanceService
}

func newMaintenanceFixture(t *testing.T) *maintenanceFixture {
	t.Helper()
	f := &maintenanceFixture{env: newTestEnv()}
	var err error
	f.orgs, err = NewDocumentRepository[model.Organization](orgDescriptor, f.env.options(t)...)
	require.NoError(t, err)
	f.projects, err = NewDocumentRepository[model.Project](projectDescriptor, f.env.options(t)...)
	require.NoError(t, err)
	f.stacks = newStackRepo(t, f.env)
	f.events, err = NewDocumentRepository[model.Event](eventDescriptor, f.env.options(t)...)
	require.NoError(t, err)

	f.service = NewMaintenanceService(f.orgs, f.stacks, f.events, f.stacks, f.projects)
	f.service.now = func() time.Time { return testNow }
	return f
}

func maintenanceMsg(t *testing.T, subject string, event any) *nats.Msg {
	t.Helper()
	data, err := json.Marshal(event)
	require.NoError(t, err)
	return &nats.Msg{Subject: subject, Data: data}
}

func TestMaintenanceService_OrganizationRemoved(t *testing.T) {
	ctx := context.Background()
	f := newMaintenanceFixture(t)

	org := &model.Organization{Name: "acme"}
	other := &model.Organization{Name: "other"}
	require.NoError(t, f.orgs.Add(ctx, []*model.Organization{org, other}, SkipNotifications()))

	project := &model.Project{OrganizationID: org.ID, Name: "api"}
	require.NoError(t, f.projects.Add(ctx, []*model.Project{project, {OrganizationID: other.ID, Name: "web"}}, SkipNotifications()))

	stack := newStack(org.ID, project.ID)
	deletedStack := newStack(org.ID, project.ID)
	deletedStack.Deleted = true
	require.NoError(t, f.stacks.Add(ctx, []*model.Stack{stack, deletedStack}, SkipNotifications()))

	event := &model.Event{OrganizationID: org.ID, ProjectID: project.ID, StackID: "x", Date: testNow}
	require.NoError(t, f.events.Add(ctx, []*model.Event{event}, SkipNotifications()))

	err := f.service.HandleMessage(ctx, maintenanceMsg(t, constants.OrganizationRemovedSubject,
		model.OrganizationRemovedEvent{OrganizationID: org.ID}))
	require.NoError(t, err)

	assert.Zero(t, f.env.store.Count("events-*"))
	assert.Zero(t, f.env.store.Count("stacks"))
	assert.Equal(t, 1, f.env.store.Count("projects"))
	assert.Equal(t, 1, f.env.store.Count("organizations"))
	_, ok := f.env.store.Source("organizations", other.ID)
	assert.True(t, ok)
}

func TestMaintenanceService_StacksFixed(t *testing.T) {
	ctx := context.Background()

	t.Run("marks stacks of the organizations fixed", func(t *testing.T) {
		f := newMaintenanceFixture(t)
		stacks := []*model.Stack{newStack("org1", "p1"), newStack("org1", "p2"), newStack("org2", "p3")}
		require.NoError(t, f.stacks.Add(ctx, stacks, SkipNotifications()))

		fixedAt := "2024-05-01T10:00:00Z"
		err := f.service.HandleMessage(ctx, maintenanceMsg(t, constants.StacksFixedSubject,
			model.StacksFixedEvent{OrganizationIDs: []string{"org1"}, FixedAt: &fixedAt}))
		require.NoError(t, err)

		for i, s := range stacks {
			src, ok := f.env.store.Source("stacks", s.ID)
			require.True(t, ok)
			if i < 2 {
				assert.Equal(t, model.StackStatusFixed, src["status"])
				assert.Equal(t, time.Date(2024, 5, 1, 10, 0, 0, 0, time.UTC), src["date_fixed"])
			} else {
				assert.Equal(t, string(model.StackStatusOpen), src["status"])
			}
		}
		assert.Equal(t, 1, f.env.store.CallCount(mock.OpBulkUpdate))
	})

	t.Run("requires organizations", func(t *testing.T) {
		f := newMaintenanceFixture(t)
		err := f.service.HandleMessage(ctx, maintenanceMsg(t, constants.StacksFixedSubject, model.StacksFixedEvent{}))
		assert.Error(t, err)
	})

	t.Run("invalid timestamp", func(t *testing.T) {
		f := newMaintenanceFixture(t)
		bad := "yesterday"
		err := f.service.HandleMessage(ctx, maintenanceMsg(t, constants.StacksFixedSubject,
			model.StacksFixedEvent{OrganizationIDs: []string{"org1"}, FixedAt: &bad}))
		assert.Error(t, err)
	})
}

func TestMaintenanceService_UnknownSubject(t *testing.T) {
	f := newMaintenanceFixture(t)
	err := f.service.HandleMessage(context.Background(), &nats.Msg{Subject: "lfx.unknown"})
	assert.True(t, errs.IsPermanent(err))

	err = f.service.HandleMessage(context.Background(), &nats.Msg{Subject: constants.OrganizationRemovedSubject, Data: []byte("{")})
	assert.True(t, errs.IsPermanent(err), "malformed payloads are not redelivered")
}
