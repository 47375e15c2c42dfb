// Package domain contains core business types and interfaces.
//
// This file defines the outreach Email record. These are the messages a user
// sends to leads, not the transactional mail the platform sends to users.
package domain

import (
	"time"

	"github.com/google/uuid"
)

// EmailType classifies a stored message.
type EmailType string

const (
	EmailTypeSent     EmailType = "sent"
	EmailTypeReceived EmailType = "received"
	EmailTypeDraft    EmailType = "draft"
)

// EmailFolder is the mailbox folder a message is filed in.
type EmailFolder string

const (
	FolderInbox  EmailFolder = "inbox"
	FolderSent   EmailFolder = "sent"
	FolderDrafts EmailFolder = "drafts"
	FolderSpam   EmailFolder = "spam"
	FolderTrash  EmailFolder = "trash"
)

// IsValid returns true if the folder is a recognized value.
func (f EmailFolder) IsValid() bool {
	switch f {
	case FolderInbox, FolderSent, FolderDrafts, FolderSpam, FolderTrash:
		return true
	}
	return false
}

const (
	// MaxAttachments is the most files a single compose request may carry.
	MaxAttachments = 5

	// MaxAttachmentSize is the per-file limit in bytes.
	MaxAttachmentSize = 10 << 20
)

// Attachment is a stored file linked from an outreach email. Key locates the
// object in storage for redelivery.
type Attachment struct {
	Filename    string `json:"filename"`
	URL         string `json:"url"`
	Key         string `json:"key,omitempty"`
	ContentType string `json:"contentType,omitempty"`
}

// AttachmentUpload is a file received with a compose request.
type AttachmentUpload struct {
	Filename string
	Data     []byte
}

// Email is an outreach message stored per user.
type Email struct {
	ID          uuid.UUID    `json:"id"`
	UserID      uuid.UUID    `json:"userId"`
	LeadID      *uuid.UUID   `json:"leadId,omitempty"`
	From        string       `json:"from"`
	To          string       `json:"to"`
	Subject     string       `json:"subject"`
	Body        string       `json:"body"`
	Attachments []Attachment `json:"attachments"`
	Type        EmailType    `json:"type"`
	Folder      EmailFolder  `json:"folder"`
	IsRead      bool         `json:"isRead"`
	IsOpened    bool         `json:"isOpened"`
	IsBounced   bool         `json:"isBounced"`
	SentAt      time.Time    `json:"sentAt"`
	CreatedAt   time.Time    `json:"createdAt"`
	UpdatedAt   time.Time    `json:"updatedAt"`

	// Populated by list queries.
	LeadName    string `json:"leadName,omitempty"`
	LeadCompany string `json:"leadCompany,omitempty"`
}

// =============================================================================
// Email Service Parameters
// =============================================================================

// ComposeParams contains a message addressed to saved leads.
type ComposeParams struct {
	UserID      uuid.UUID
	LeadIDs     []uuid.UUID
	Subject     string
	Body        string
	Attachments []AttachmentUpload
}

// ComposeResult lists the stored emails and delivery counts.
type ComposeResult struct {
	Emails []Email `json:"emailsSent"`
	Sent   int     `json:"sent"`
	Failed int     `json:"failed"`
}

// Recipient is a bulk/follow-up target. LeadID is optional.
type Recipient struct {
	Email  string     `json:"email" validate:"required,email"`
	LeadID *uuid.UUID `json:"leadId,omitempty"`
}

// BulkSendParams contains a message sent to a list of recipients.
type BulkSendParams struct {
	UserID     uuid.UUID
	Recipients []Recipient
	Subject    string
	Body       string
}

// SendResult counts delivery outcomes.
type SendResult struct {
	Sent   int `json:"sent"`
	Failed int `json:"failed"`
}

// DraftParams contains a message saved without sending.
type DraftParams struct {
	UserID  uuid.UUID
	To      string
	Subject string
	Body    string
}
