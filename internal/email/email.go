// Package email provides outbound mail for the NexLeads application.
//
// This package defines a Mailer interface with implementations for:
// - SMTP (Mailhog in development, any SMTP relay in production)
// - Log (prints messages instead of sending; used when SMTP is disabled)
package email

import (
	"context"
	"errors"
	"time"
)

// =============================================================================
// Interface Definition
// =============================================================================

// Mailer defines the interface for sending mail.
//
// Implementations:
// - SMTPMailer: Uses SMTP protocol with retry
// - LogMailer: Logs messages, sends nothing
//
// All methods are context-aware for timeout and cancellation support.
type Mailer interface {
	// SendVerificationCode sends the six-digit signup code.
	SendVerificationCode(ctx context.Context, to, name, code string) error

	// SendPasswordResetEmail sends a password reset link.
	// Parameters:
	// - to: Recipient email address
	// - name: Recipient's name for personalization
	// - token: Raw reset token to include in the link
	SendPasswordResetEmail(ctx context.Context, to, name, token string) error

	// Send delivers an outreach message composed by a user.
	Send(ctx context.Context, msg Message) error
}

// =============================================================================
// Email Data Types
// =============================================================================

// Message represents a single outbound message.
type Message struct {
	FromName    string // Display name; the envelope sender is always the configured From
	ReplyTo     string // Where replies go, e.g. the user's NexLeads address
	To          string
	Subject     string
	HTMLBody    string
	TextBody    string // Plain text fallback; derived from HTMLBody when empty
	Attachments []Attachment
}

// Attachment is a file carried inline in the message.
type Attachment struct {
	Filename    string
	ContentType string
	Data        []byte
}

// =============================================================================
// Configuration Types
// =============================================================================

// SMTPConfig holds SMTP server configuration.
type SMTPConfig struct {
	Host     string // SMTP server hostname (e.g., "localhost" for Mailhog)
	Port     int    // SMTP server port (e.g., 1025 for Mailhog)
	Username string // SMTP authentication username (empty for Mailhog)
	Password string // SMTP authentication password (empty for Mailhog)
	From     string // Envelope sender address
	FromName string // Default sender display name

	// MaxElapsedTime bounds the retry window of a single send. Zero uses
	// DefaultRetryWindow.
	MaxElapsedTime time.Duration
}

// =============================================================================
// Common Constants
// =============================================================================

const (
	// DefaultFromEmail is the default sender email for transactional emails.
	DefaultFromEmail = "noreply@nexleads.io"

	// DefaultFromName is the default sender display name.
	DefaultFromName = "NexLeads"

	// DefaultRetryWindow is how long a send is retried on transient errors.
	DefaultRetryWindow = 30 * time.Second
)

// ErrRejected marks a permanent SMTP rejection (5xx). Sends that fail with
// it are not retried.
var ErrRejected = errors.New("message rejected by mail server")
