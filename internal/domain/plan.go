// Package domain contains core business types and interfaces.
//
// This file defines the subscription plan catalog. The catalog is the only
// place plan prices and lead limits are declared; the quota gate, the
// transition handler and the default ledger factory all read from it.
package domain

import (
	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

// PlanID identifies a subscription plan.
type PlanID string

const (
	PlanFree     PlanID = "free"
	PlanPro      PlanID = "pro"
	PlanPlatinum PlanID = "platinum"
)

// UnlimitedLeads is the LeadsLimit sentinel for plans without a lead ceiling.
// It must never be compared numerically against LeadsUsed.
const UnlimitedLeads = -1

// Plan describes a subscription tier.
type Plan struct {
	ID           PlanID   `json:"id"`
	MonthlyPrice int      `json:"price"` // whole currency units per cycle
	LeadsLimit   int      `json:"leadsLimit"`
	Features     []string `json:"features"`
}

// planCatalog is ordered: free, pro, platinum.
var planCatalog = []Plan{
	{
		ID:           PlanFree,
		MonthlyPrice: 0,
		LeadsLimit:   30,
		Features: []string{
			"Up to 30 leads per month",
			"Basic email templates",
			"Limited follow-up tracking",
			"No bulk email feature",
		},
	},
	{
		ID:           PlanPro,
		MonthlyPrice: 29,
		LeadsLimit:   100,
		Features: []string{
			"Up to 100 leads per month",
			"Custom email sequences",
			"Bulk email feature",
			"AI-assisted email writing",
		},
	},
	{
		ID:           PlanPlatinum,
		MonthlyPrice: 99,
		LeadsLimit:   UnlimitedLeads,
		Features: []string{
			"Unlimited leads",
			"All advanced features",
			"Priority support",
			"Advanced analytics",
		},
	},
}

// ListPlans returns the plan catalog in display order.
func ListPlans() []Plan {
	plans := make([]Plan, len(planCatalog))
	for i, p := range planCatalog {
		p.Features = append([]string(nil), p.Features...)
		plans[i] = p
	}
	return plans
}

// ResolvePlan looks up a plan by id. Unknown ids fail with ErrInvalidPlan.
func ResolvePlan(id PlanID) (Plan, error) {
	for _, p := range planCatalog {
		if p.ID == id {
			p.Features = append([]string(nil), p.Features...)
			return p, nil
		}
	}
	return Plan{}, &Error{
		Code:    EINVALID,
		Op:      "plan.resolve",
		Message: "Invalid plan selected",
		Err:     ErrInvalidPlan,
	}
}

// IsUnlimited reports whether the plan has no lead ceiling.
func (p Plan) IsUnlimited() bool {
	return p.LeadsLimit == UnlimitedLeads
}

// AllowsBulkEmail reports whether the plan includes the bulk email feature.
func (p Plan) AllowsBulkEmail() bool {
	return p.ID != PlanFree
}

// DisplayName returns the title-cased plan name ("Pro").
func (p Plan) DisplayName() string {
	return p.ID.DisplayName()
}

// DisplayName returns the title-cased plan id.
func (id PlanID) DisplayName() string {
	return cases.Title(language.English).String(string(id))
}

// IsValid returns true if the id names a catalog plan.
func (id PlanID) IsValid() bool {
	_, err := ResolvePlan(id)
	return err == nil
}
