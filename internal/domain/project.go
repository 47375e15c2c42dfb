// Package domain contains core business types and interfaces.
//
// This file defines the Project domain type: work won from a lead.
package domain

import (
	"time"

	"github.com/google/uuid"
)

// ProjectStatus represents the lifecycle of a project.
type ProjectStatus string

const (
	ProjectStatusInDiscussion ProjectStatus = "in_discussion"
	ProjectStatusOngoing      ProjectStatus = "ongoing"
	ProjectStatusCompleted    ProjectStatus = "completed"
)

func (s ProjectStatus) String() string {
	return string(s)
}

// IsValid returns true if the status is a recognized value.
func (s ProjectStatus) IsValid() bool {
	switch s {
	case ProjectStatusInDiscussion, ProjectStatusOngoing, ProjectStatusCompleted:
		return true
	}
	return false
}

// LeadStatus returns the lead status a project in this state implies.
func (s ProjectStatus) LeadStatus() LeadStatus {
	return LeadStatus(s)
}

// Project represents an engagement created from a lead. There is at most one
// project per lead.
type Project struct {
	ID          uuid.UUID     `json:"id"`
	UserID      uuid.UUID     `json:"userId"`
	LeadID      uuid.UUID     `json:"leadId"`
	Title       string        `json:"title"`
	Company     string        `json:"company,omitempty"`
	Description string        `json:"description,omitempty"`
	Budget      string        `json:"budget,omitempty"`
	Deadline    *time.Time    `json:"deadline,omitempty"`
	Status      ProjectStatus `json:"status"`
	StartedAt   *time.Time    `json:"startedAt,omitempty"`
	CompletedAt *time.Time    `json:"completedAt,omitempty"`
	CreatedAt   time.Time     `json:"createdAt"`
	UpdatedAt   time.Time     `json:"updatedAt"`

	LeadName  string `json:"leadName,omitempty"`
	LeadEmail string `json:"leadEmail,omitempty"`
}

// IsActive returns true while work has not completed.
func (p *Project) IsActive() bool {
	return p.Status == ProjectStatusInDiscussion || p.Status == ProjectStatusOngoing
}

// CreateProjectParams contains validated parameters for creating a project.
type CreateProjectParams struct {
	UserID      uuid.UUID
	LeadID      uuid.UUID
	Title       string
	Company     string
	Description string
	Budget      string
	Deadline    *time.Time
}

// UpdateProjectParams contains validated parameters for editing a project.
type UpdateProjectParams struct {
	ID          uuid.UUID
	UserID      uuid.UUID
	Title       string
	Company     string
	Description string
	Budget      string
	Deadline    *time.Time
}

// GroupedProjects buckets projects by status.
type GroupedProjects struct {
	InDiscussion []Project `json:"in_discussion"`
	Ongoing      []Project `json:"ongoing"`
	Completed    []Project `json:"completed"`
}

// GroupProjects buckets projects by status, preserving their order.
func GroupProjects(projects []Project) GroupedProjects {
	g := GroupedProjects{
		InDiscussion: []Project{},
		Ongoing:      []Project{},
		Completed:    []Project{},
	}
	for _, p := range projects {
		switch p.Status {
		case ProjectStatusInDiscussion:
			g.InDiscussion = append(g.InDiscussion, p)
		case ProjectStatusOngoing:
			g.Ongoing = append(g.Ongoing, p)
		case ProjectStatusCompleted:
			g.Completed = append(g.Completed, p)
		}
	}
	return g
}
