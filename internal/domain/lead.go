// Package domain contains core business types and interfaces.
//
// This file defines the Lead domain type: a prospect fetched from an external
// platform and saved against an account's quota.
package domain

import (
	"strings"
	"time"

	"github.com/google/uuid"
)

// =============================================================================
// Lead Status
// =============================================================================

// LeadStatus tracks a lead through the outreach funnel.
type LeadStatus string

const (
	LeadStatusNew          LeadStatus = "new"
	LeadStatusContacted    LeadStatus = "contacted"
	LeadStatusResponded    LeadStatus = "responded"
	LeadStatusInDiscussion LeadStatus = "in_discussion"
	LeadStatusOngoing      LeadStatus = "ongoing"
	LeadStatusCompleted    LeadStatus = "completed"
	LeadStatusLost         LeadStatus = "lost"
)

func (s LeadStatus) String() string {
	return string(s)
}

// IsValid returns true if the status is a recognized value.
func (s LeadStatus) IsValid() bool {
	switch s {
	case LeadStatusNew, LeadStatusContacted, LeadStatusResponded,
		LeadStatusInDiscussion, LeadStatusOngoing, LeadStatusCompleted, LeadStatusLost:
		return true
	}
	return false
}

// DefaultPlatforms are searched when the caller names none.
var DefaultPlatforms = []string{"LinkedIn", "Upwork", "Twitter", "Facebook"}

// =============================================================================
// Lead Domain Type
// =============================================================================

// Lead represents a prospect saved by a user. Email is unique per user.
type Lead struct {
	ID              uuid.UUID  `json:"id"`
	UserID          uuid.UUID  `json:"userId"`
	Name            string     `json:"name"`
	Email           string     `json:"email"`
	Company         string     `json:"company,omitempty"`
	Title           string     `json:"title,omitempty"`
	Platform        string     `json:"platform"`
	ProfileURL      string     `json:"profileUrl,omitempty"`
	Description     string     `json:"description,omitempty"`
	Status          LeadStatus `json:"status"`
	EmailsSent      int        `json:"emailsSent"`
	LastContactedAt *time.Time `json:"lastContactedAt,omitempty"`
	CreatedAt       time.Time  `json:"createdAt"`
	UpdatedAt       time.Time  `json:"updatedAt"`
}

// NormalizeEmail lower-cases and trims an address for de-duplication.
func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

// =============================================================================
// Lead Service Parameters
// =============================================================================

// LeadSearchParams contains parameters for a lead search.
type LeadSearchParams struct {
	UserID    uuid.UUID
	Keyword   string
	Platforms []string
	DateFrom  *time.Time
	DateTo    *time.Time
}

// LeadSearchResult reports what a search fetched and what was saved.
type LeadSearchResult struct {
	Fetched int    `json:"fetched"`
	Saved   int    `json:"saved"`
	Leads   []Lead `json:"leads"`
}

// SaveLeadParams contains validated parameters for saving a single lead.
type SaveLeadParams struct {
	UserID      uuid.UUID
	Name        string
	Email       string
	Company     string
	Title       string
	Platform    string
	ProfileURL  string
	Description string
}
