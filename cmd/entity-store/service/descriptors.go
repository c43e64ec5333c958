// Copyright The Linux Foundation and each contributor to LFX.
// SPDX-License-Identifier: MIT

package service

import (
	"github.com/linuxfoundation/lfx-v2-entity-store/internal/domain/model"
	"github.com/linuxfoundation/lfx-v2-entity-store/pkg/constants"
)

// Entity descriptors. Events are not cached, they are write once and read through search.
var (
	OrganizationDescriptor = model.EntityDescriptor{
		Name:           constants.EntityTypeOrganization,
		Index:          constants.IndexOrganizations,
		CacheNamespace: "organization",
	}
	ProjectDescriptor = model.EntityDescriptor{
		Name:           constants.EntityTypeProject,
		Index:          constants.IndexProjects,
		CacheNamespace: "project",
	}
	StackDescriptor = model.EntityDescriptor{
		Name:           constants.EntityTypeStack,
		Index:          constants.IndexStacks,
		CacheNamespace: "stack",
	}
	EventDescriptor = model.EntityDescriptor{
		Name:        constants.EntityTypeEvent,
		Index:       constants.IndexEventsPrefix,
		Partitioner: model.MonthlyPartitioner{Prefix: constants.IndexEventsPrefix},
	}
)
