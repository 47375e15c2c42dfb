// Package domain contains core business types and interfaces.
//
// This file defines the quota ledger embedded in every account and the pure
// evaluation rules used by the quota gate.
package domain

import (
	"time"

	"github.com/google/uuid"
)

// CycleLength is the length of one billing/quota cycle.
const CycleLength = 30 * 24 * time.Hour

// Ledger tracks an account's current plan and lead consumption for the
// running cycle.
//
// LeadsLimit is copied from the catalog at the last transition; catalog
// changes do not affect existing ledgers until their next transition.
type Ledger struct {
	Plan       PlanID     `json:"plan"`
	LeadsLimit int        `json:"leadsLimit"`
	LeadsUsed  int        `json:"leadsUsed"`
	ResetDate  *time.Time `json:"resetDate"`
}

// NewLedger returns the ledger assigned to a newly created account: the free
// plan, nothing used, and a cycle ending one CycleLength from now.
func NewLedger(now time.Time) Ledger {
	free, _ := ResolvePlan(PlanFree)
	reset := now.Add(CycleLength)
	return Ledger{
		Plan:       free.ID,
		LeadsLimit: free.LeadsLimit,
		LeadsUsed:  0,
		ResetDate:  &reset,
	}
}

// LedgerForPlan returns a fresh ledger for plan whose cycle ends at resetDate.
func LedgerForPlan(plan Plan, resetDate time.Time) Ledger {
	return Ledger{
		Plan:       plan.ID,
		LeadsLimit: plan.LeadsLimit,
		LeadsUsed:  0,
		ResetDate:  &resetDate,
	}
}

// IsUnlimited reports whether the ledger carries the unlimited sentinel.
func (l Ledger) IsUnlimited() bool {
	return l.LeadsLimit == UnlimitedLeads
}

// CycleElapsed reports whether the current cycle has ended at now. A ledger
// without a reset date is treated as elapsed.
func (l Ledger) CycleElapsed(now time.Time) bool {
	return l.ResetDate == nil || !now.Before(*l.ResetDate)
}

// Remaining returns the number of leads left in the cycle, or
// UnlimitedLeads when the ledger has no ceiling.
func (l Ledger) Remaining() int {
	if l.IsUnlimited() {
		return UnlimitedLeads
	}
	if l.LeadsUsed >= l.LeadsLimit {
		return 0
	}
	return l.LeadsLimit - l.LeadsUsed
}

// Evaluate applies the gate rules to the ledger at now. It returns the ledger
// after any lazy cycle reset, whether a reset happened (and so must be
// persisted), and the admission decision.
func (l Ledger) Evaluate(now time.Time) (Ledger, bool, Decision) {
	next := l
	reset := false
	if next.CycleElapsed(now) {
		rd := now.Add(CycleLength)
		next.LeadsUsed = 0
		next.ResetDate = &rd
		reset = true
	}

	decision := Decision{
		Allowed:    true,
		LeadsUsed:  next.LeadsUsed,
		LeadsLimit: next.LeadsLimit,
	}
	if !next.IsUnlimited() && next.LeadsUsed >= next.LeadsLimit {
		decision.Allowed = false
	}
	return next, reset, decision
}

// Decision is the outcome of the quota gate. A denied decision is a normal
// result, not an error; callers must skip the metered action and surface
// LeadsUsed and LeadsLimit to the requester.
type Decision struct {
	Allowed    bool `json:"allowed"`
	LeadsUsed  int  `json:"leadsUsed"`
	LeadsLimit int  `json:"leadsLimit"`
}

// Denied returns true if the metered action must not run.
func (d Decision) Denied() bool {
	return !d.Allowed
}

// Remaining returns how many units the decision still admits, or
// UnlimitedLeads for unlimited plans.
func (d Decision) Remaining() int {
	if d.LeadsLimit == UnlimitedLeads {
		return UnlimitedLeads
	}
	if d.LeadsUsed >= d.LeadsLimit {
		return 0
	}
	return d.LeadsLimit - d.LeadsUsed
}

// =============================================================================
// Subscription history
// =============================================================================

// PaymentMethod values recorded on history entries.
const (
	PaymentMethodStripe = "stripe"
	PaymentMethodManual = "manual"
)

// SubscriptionRecord is an immutable entry in an account's plan history.
// One record is appended per transition; records are never updated or deleted.
type SubscriptionRecord struct {
	ID            uuid.UUID `json:"id"`
	UserID        uuid.UUID `json:"userId"`
	Plan          PlanID    `json:"plan"`
	Price         int       `json:"price"`
	PaymentMethod string    `json:"paymentMethod"`
	TransactionID string    `json:"transactionId"`
	StartDate     time.Time `json:"startDate"`
	EndDate       time.Time `json:"endDate"`
	CreatedAt     time.Time `json:"createdAt"`
}

// TransitionParams contains the inputs for a plan change.
type TransitionParams struct {
	UserID        uuid.UUID
	PlanID        PlanID
	PaymentMethod string
	TransactionID string
}
