// Copyright The Linux Foundation and each contributor to LFX.
// SPDX-License-Identifier: MIT

package model

import "time"

// StackStatus is the triage state of a stack
type StackStatus string

// StackStatus constants
const (
	StackStatusOpen      StackStatus = "open"
	StackStatusFixed     StackStatus = "fixed"
	StackStatusRegressed StackStatus = "regressed"
	StackStatusIgnored   StackStatus = "ignored"
)

// Organization is the top level tenant entity
type Organization struct {
	ID         string    `json:"id"`
	Name       string    `json:"name" validate:"required,max=100"`
	PlanID     string    `json:"plan_id,omitempty" validate:"omitempty,max=50"`
	CreatedUTC time.Time `json:"created_utc"`
	UpdatedUTC time.Time `json:"updated_utc"`
}

func (o *Organization) GetID() string             { return o.ID }
func (o *Organization) SetID(id string)           { o.ID = id }
func (o *Organization) GetCreatedUTC() time.Time  { return o.CreatedUTC }
func (o *Organization) SetCreatedUTC(t time.Time) { o.CreatedUTC = t }
func (o *Organization) SetUpdatedUTC(t time.Time) { o.UpdatedUTC = t }

// Project belongs to an organization
type Project struct {
	ID             string    `json:"id"`
	OrganizationID string    `json:"organization_id" validate:"required"`
	Name           string    `json:"name" validate:"required,max=100"`
	Description    string    `json:"description,omitempty" validate:"omitempty,max=500"`
	CreatedUTC     time.Time `json:"created_utc"`
	UpdatedUTC     time.Time `json:"updated_utc"`
}

func (p *Project) GetID() string             { return p.ID }
func (p *Project) SetID(id string)           { p.ID = id }
func (p *Project) GetOrganizationID() string { return p.OrganizationID }
func (p *Project) GetCreatedUTC() time.Time  { return p.CreatedUTC }
func (p *Project) SetCreatedUTC(t time.Time) { p.CreatedUTC = t }
func (p *Project) SetUpdatedUTC(t time.Time) { p.UpdatedUTC = t }

// Stack groups events sharing the same signature within a project
type Stack struct {
	ID               string      `json:"id"`
	OrganizationID   string      `json:"organization_id" validate:"required"`
	ProjectID        string      `json:"project_id" validate:"required"`
	SignatureHash    string      `json:"signature_hash" validate:"required"`
	Title            string      `json:"title,omitempty" validate:"omitempty,max=1000"`
	Status           StackStatus `json:"status" validate:"omitempty,oneof=open fixed regressed ignored"`
	TotalOccurrences int         `json:"total_occurrences" validate:"gte=0"`
	FirstOccurrence  time.Time   `json:"first_occurrence"`
	LastOccurrence   time.Time   `json:"last_occurrence"`
	DateFixed        *time.Time  `json:"date_fixed,omitempty"`
	Deleted          bool        `json:"is_deleted"`
	CreatedUTC       time.Time   `json:"created_utc"`
	UpdatedUTC       time.Time   `json:"updated_utc"`
}

func (s *Stack) GetID() string             { return s.ID }
func (s *Stack) SetID(id string)           { s.ID = id }
func (s *Stack) GetOrganizationID() string { return s.OrganizationID }
func (s *Stack) GetProjectID() string      { return s.ProjectID }
func (s *Stack) IsDeleted() bool           { return s.Deleted }
func (s *Stack) GetCreatedUTC() time.Time  { return s.CreatedUTC }
func (s *Stack) SetCreatedUTC(t time.Time) { s.CreatedUTC = t }
func (s *Stack) SetUpdatedUTC(t time.Time) { s.UpdatedUTC = t }

// Event is a single occurrence reported for a stack. Events are immutable once
// written and are stored in monthly partitions keyed by Date.
type Event struct {
	ID             string         `json:"id"`
	OrganizationID string         `json:"organization_id" validate:"required"`
	ProjectID      string         `json:"project_id" validate:"required"`
	StackID        string         `json:"stack_id" validate:"required"`
	Type           string         `json:"type,omitempty" validate:"omitempty,max=100"`
	Source         string         `json:"source,omitempty" validate:"omitempty,max=2000"`
	Message        string         `json:"message,omitempty"`
	Date           time.Time      `json:"date" validate:"required"`
	Tags           []string       `json:"tags,omitempty" validate:"omitempty,dive,max=255"`
	Data           map[string]any `json:"data,omitempty"`
}

func (e *Event) GetID() string             { return e.ID }
func (e *Event) SetID(id string)           { e.ID = id }
func (e *Event) GetOrganizationID() string { return e.OrganizationID }
func (e *Event) GetProjectID() string      { return e.ProjectID }
func (e *Event) GetStackID() string        { return e.StackID }
func (e *Event) PartitionDate() time.Time  { return e.Date }
