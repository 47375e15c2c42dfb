// Package domain contains core business types and interfaces.
//
// This file defines follow-up campaign tracking records.
package domain

import (
	"time"

	"github.com/google/uuid"
)

// FollowUp tracks outreach volume for one job field on one platform.
type FollowUp struct {
	ID               uuid.UUID  `json:"id"`
	UserID           uuid.UUID  `json:"userId"`
	JobField         string     `json:"jobField"`
	Platform         string     `json:"platform"`
	TotalLeadsSent   int        `json:"totalLeadsSent"`
	FollowUpsSent    int        `json:"followUpsSent"`
	Responses        int        `json:"responses"`
	LastFollowUpDate *time.Time `json:"lastFollowUpDate,omitempty"`
	CreatedAt        time.Time  `json:"createdAt"`
	UpdatedAt        time.Time  `json:"updatedAt"`
}

// ResponseRate returns responses per follow-up sent as a percentage.
func (f *FollowUp) ResponseRate() float64 {
	if f.FollowUpsSent == 0 {
		return 0
	}
	return float64(f.Responses) / float64(f.FollowUpsSent) * 100
}

// FollowUpFilter narrows follow-up statistics.
type FollowUpFilter struct {
	UserID   uuid.UUID
	Platform string
	DateFrom *time.Time
	DateTo   *time.Time
}

// FollowUpStats aggregates a filtered set of follow-up records.
type FollowUpStats struct {
	TotalLeadsSent int        `json:"totalLeadsSent"`
	FollowUpsSent  int        `json:"followUpsSent"`
	Responses      int        `json:"responses"`
	Records        []FollowUp `json:"records"`
}

// SummarizeFollowUps totals a set of follow-up records.
func SummarizeFollowUps(records []FollowUp) FollowUpStats {
	stats := FollowUpStats{Records: records}
	if stats.Records == nil {
		stats.Records = []FollowUp{}
	}
	for _, r := range records {
		stats.TotalLeadsSent += r.TotalLeadsSent
		stats.FollowUpsSent += r.FollowUpsSent
		stats.Responses += r.Responses
	}
	return stats
}

// CreateFollowUpParams contains validated parameters for a new record.
type CreateFollowUpParams struct {
	UserID         uuid.UUID
	JobField       string
	Platform       string
	TotalLeadsSent int
}

// UpdateFollowUpParams contains counters to overwrite on a record.
type UpdateFollowUpParams struct {
	ID             uuid.UUID
	UserID         uuid.UUID
	TotalLeadsSent int
	FollowUpsSent  int
	Responses      int
}

// SendFollowUpParams contains a follow-up message for a record.
type SendFollowUpParams struct {
	ID         uuid.UUID
	UserID     uuid.UUID
	Subject    string
	Body       string
	Recipients []Recipient
}
