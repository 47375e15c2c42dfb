// Package domain contains core business types and interfaces.
//
// This file defines the User domain type and related types for authentication.
// These types are separate from the repository models to allow for business logic
// enrichment and to decouple the domain layer from the database layer.
package domain

import (
	"database/sql"
	"time"

	"github.com/google/uuid"
)

// UserType distinguishes customer accounts from staff accounts.
type UserType string

const (
	UserTypeUser  UserType = "User"
	UserTypeAdmin UserType = "Admin"
)

// User represents a registered NexLeads account.
//
// Ledger is nil when the stored account has no quota ledger. That state is a
// data-integrity problem and the quota gate reports it rather than repairing it.
type User struct {
	ID               uuid.UUID  `json:"id"`
	Name             string     `json:"name"`
	Email            string     `json:"email"`
	PasswordHash     string     `json:"-"`
	NexleadsEmail    string     `json:"nexleadsEmail,omitempty"`
	ProfilePicture   string     `json:"profilePicture,omitempty"`
	Type             UserType   `json:"type"`
	IsVerified       bool       `json:"isVerified"`
	IsBlocked        bool       `json:"isBlocked"`
	StripeCustomerID string     `json:"-"`
	Ledger           *Ledger    `json:"subscription"`
	CreatedAt        time.Time  `json:"createdAt"`
	UpdatedAt        time.Time  `json:"updatedAt"`
	VerifiedAt       *time.Time `json:"-"`
}

// CurrentPlan returns the ledger's plan, or PlanFree when there is no ledger.
func (u *User) CurrentPlan() PlanID {
	if u.Ledger == nil {
		return PlanFree
	}
	return u.Ledger.Plan
}

// CanBulkEmail returns true if the account's plan includes bulk email.
func (u *User) CanBulkEmail() bool {
	plan, err := ResolvePlan(u.CurrentPlan())
	if err != nil {
		return false
	}
	return plan.AllowsBulkEmail()
}

// DisplayName returns the user's name or email if name is empty.
func (u *User) DisplayName() string {
	if u.Name != "" {
		return u.Name
	}
	return u.Email
}

// SignupParams contains the validated parameters for user registration.
type SignupParams struct {
	Name            string
	Email           string
	Password        string // Raw password, will be hashed by service
	ConfirmPassword string
}

// LoginResult contains the result of a successful login or verification.
type LoginResult struct {
	User  *User  `json:"user"`
	Token string `json:"token"`
}

// PasswordChangeParams contains parameters for changing a user's password.
type PasswordChangeParams struct {
	UserID          uuid.UUID
	CurrentPassword string
	NewPassword     string
}

// PersonalInfoParams contains parameters for updating name and email.
type PersonalInfoParams struct {
	UserID uuid.UUID
	Name   string
	Email  string
}

// =============================================================================
// Conversion helpers from repository types
// =============================================================================

// NullStringValue safely extracts a string from sql.NullString.
func NullStringValue(ns sql.NullString) string {
	if ns.Valid {
		return ns.String
	}
	return ""
}

// NullTimeValue safely extracts a time pointer from sql.NullTime.
func NullTimeValue(nt sql.NullTime) *time.Time {
	if nt.Valid {
		return &nt.Time
	}
	return nil
}

// ToNullString converts a string to sql.NullString.
func ToNullString(s string) sql.NullString {
	if s == "" {
		return sql.NullString{Valid: false}
	}
	return sql.NullString{String: s, Valid: true}
}

// ToNullTime converts a time pointer to sql.NullTime.
func ToNullTime(t *time.Time) sql.NullTime {
	if t == nil {
		return sql.NullTime{Valid: false}
	}
	return sql.NullTime{Time: *t, Valid: true}
}

// ToNullUUID converts a uuid pointer to uuid.NullUUID.
func ToNullUUID(id *uuid.UUID) uuid.NullUUID {
	if id == nil {
		return uuid.NullUUID{Valid: false}
	}
	return uuid.NullUUID{UUID: *id, Valid: true}
}

// ResetPasswordParams contains parameters for completing a password reset.
type ResetPasswordParams struct {
	Token           string
	Password        string
	ConfirmPassword string
}
