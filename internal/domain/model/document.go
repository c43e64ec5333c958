// Copyright The Linux Foundation and each contributor to LFX.
// SPDX-License-Identifier: MIT

// Package model defines the domain models and entities for the entity store service.
package model

import "time"

// Document field names shared by every entity stored in the index.
const (
	FieldID             = "id"
	FieldOrganizationID = "organization_id"
	FieldProjectID      = "project_id"
	FieldStackID        = "stack_id"
	FieldDate           = "date"
	FieldIsDeleted      = "is_deleted"
	FieldCreatedUTC     = "created_utc"
	FieldUpdatedUTC     = "updated_utc"
)

// Document is any entity stored by a repository.
type Document interface {
	GetID() string
	SetID(id string)
}

// OrganizationOwned is implemented by documents that belong to an organization.
type OrganizationOwned interface {
	GetOrganizationID() string
}

// ProjectOwned is implemented by documents that belong to a project.
type ProjectOwned interface {
	GetProjectID() string
}

// StackOwned is implemented by documents that belong to a stack.
type StackOwned interface {
	GetStackID() string
}

// Dated is implemented by documents carrying created/updated timestamps.
type Dated interface {
	GetCreatedUTC() time.Time
	SetCreatedUTC(t time.Time)
	SetUpdatedUTC(t time.Time)
}

// Partitioned is implemented by documents stored in time partitioned indices.
// PartitionDate selects the partition the document is written to.
type Partitioned interface {
	PartitionDate() time.Time
}

// SoftDeletable is implemented by documents carrying an is_deleted flag.
// Soft deleted documents are excluded from default queries.
type SoftDeletable interface {
	IsDeleted() bool
}

// Capabilities lists the marker interfaces a document type implements.
type Capabilities struct {
	OrganizationOwned bool
	ProjectOwned      bool
	StackOwned        bool
	Dated             bool
	Partitioned       bool
	SoftDeletable     bool
}

// CapabilitiesOf resolves the capabilities of the document type T.
// T is expected to be a pointer type; its nil value is enough for the checks.
func CapabilitiesOf[T Document]() Capabilities {
	var zero T
	v := any(zero)

	var c Capabilities
	_, c.OrganizationOwned = v.(OrganizationOwned)
	_, c.ProjectOwned = v.(ProjectOwned)
	_, c.StackOwned = v.(StackOwned)
	_, c.Dated = v.(Dated)
	_, c.Partitioned = v.(Partitioned)
	_, c.SoftDeletable = v.(SoftDeletable)
	return c
}

// ProjectionFields returns the minimal set of fields needed to remove a document
// and group its change notifications.
func (c Capabilities) ProjectionFields() []string {
	fields := []string{FieldID}
	if c.OrganizationOwned {
		fields = append(fields, FieldOrganizationID)
	}
	if c.ProjectOwned {
		fields = append(fields, FieldProjectID)
	}
	if c.StackOwned {
		fields = append(fields, FieldStackID)
	}
	if c.Partitioned {
		fields = append(fields, FieldDate)
	}
	return fields
}

// EntityDescriptor describes where and how an entity type is stored.
type EntityDescriptor struct {
	// Name is the entity type name published in change notifications
	Name string `json:"name" yaml:"name"`
	// Index is the index name, or the index prefix for partitioned entities
	Index string `json:"index" yaml:"index"`
	// CacheNamespace scopes cache keys; empty disables caching
	CacheNamespace string `json:"cache_namespace" yaml:"cache_namespace"`
	// Partitioner selects the partition index for time partitioned entities
	Partitioner Partitioner `json:"-" yaml:"-"`
}

// WriteIndex returns the index a document is written to.
func (d EntityDescriptor) WriteIndex(doc Document) string {
	if d.Partitioner == nil {
		return d.Index
	}
	if p, ok := doc.(Partitioned); ok {
		return d.Partitioner.IndexFor(p.PartitionDate())
	}
	return d.Index
}

// ReadScope returns the index name or pattern used for reads and deletes.
func (d EntityDescriptor) ReadScope() string {
	if d.Partitioner == nil {
		return d.Index
	}
	return d.Partitioner.Pattern()
}

// CachingEnabled reports whether documents of this entity are cached.
func (d EntityDescriptor) CachingEnabled() bool {
	return d.CacheNamespace != ""
}
