// Package domain contains core business types and interfaces.
//
// This file defines dashboard and admin reporting types.
package domain

import (
	"time"

	"github.com/google/uuid"
)

// MaxActiveProjects is how many active projects the dashboard shows.
const MaxActiveProjects = 5

// EmailBreakdown counts outreach email outcomes.
type EmailBreakdown struct {
	Sent      int64 `json:"sent"`
	Opened    int64 `json:"opened"`
	Responses int64 `json:"responses"`
	Bounced   int64 `json:"bounced"`
}

// OpenRate returns opened / sent as a percentage.
func (b EmailBreakdown) OpenRate() float64 {
	if b.Sent == 0 {
		return 0
	}
	return float64(b.Opened) / float64(b.Sent) * 100
}

// PlatformCount is the number of leads sourced from one platform.
type PlatformCount struct {
	Platform string `json:"platform"`
	Count    int64  `json:"count"`
}

// Funnel is the lead-to-project conversion funnel.
type Funnel struct {
	Leads     int64 `json:"leads"`
	Emails    int64 `json:"emails"`
	Responses int64 `json:"responses"`
	Projects  int64 `json:"projects"`
}

// DashboardStats is the per-user dashboard summary.
type DashboardStats struct {
	TotalEmailsSent   int64           `json:"totalEmailsSent"`
	TotalEmailsOpened int64           `json:"totalEmailsOpened"`
	TotalResponses    int64           `json:"totalResponses"`
	TotalLeads        int64           `json:"totalLeads"`
	EmailBreakdown    EmailBreakdown  `json:"emailBreakdown"`
	PlatformBreakdown []PlatformCount `json:"platformBreakdown"`
	ActiveProjects    []Project       `json:"activeProjects"`
	Funnel            Funnel          `json:"funnel"`
	Subscription      *Ledger         `json:"subscription"`
}

// =============================================================================
// Admin
// =============================================================================

// AdminStats summarizes the platform for administrators.
type AdminStats struct {
	TotalUsers    int64 `json:"totalUsers"`
	TotalLeads    int64 `json:"totalLeads"`
	TotalEarnings int64 `json:"totalEarnings"`
}

// AdminUserSummary is one row of the admin user list.
type AdminUserSummary struct {
	ID              uuid.UUID `json:"id"`
	Name            string    `json:"name"`
	Email           string    `json:"email"`
	CurrentPackage  string    `json:"currentPackage"`
	PreviousPackage string    `json:"previousPackage"`
	LeadCount       int64     `json:"leadCount"`
	IsBlocked       bool      `json:"isBlocked"`
	CreatedAt       time.Time `json:"createdAt"`
}

// AdminUserDetail is the admin view of one account.
type AdminUserDetail struct {
	User          *User                `json:"user"`
	Subscriptions []SubscriptionRecord `json:"subscriptions"`
	Leads         []Lead               `json:"leads"`
}
