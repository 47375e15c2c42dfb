package repository

import (
	"database/sql"
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"github.com/sqlc-dev/pqtype"
)

type User struct {
	ID                  uuid.UUID
	Name                string
	Email               string
	PasswordHash        string
	NexleadsEmail       sql.NullString
	ProfilePicture      sql.NullString
	UserType            string
	IsVerified          bool
	VerifiedAt          sql.NullTime
	IsBlocked           bool
	OtpHash             sql.NullString
	OtpExpiresAt        sql.NullTime
	ResetTokenHash      sql.NullString
	ResetTokenExpiresAt sql.NullTime
	StripeCustomerID    sql.NullString
	Plan                sql.NullString
	LeadsLimit          sql.NullInt32
	LeadsUsed           sql.NullInt32
	ResetDate           sql.NullTime
	CreatedAt           time.Time
	UpdatedAt           time.Time
}

type SubscriptionHistory struct {
	ID            uuid.UUID
	UserID        uuid.UUID
	Plan          string
	Price         int32
	PaymentMethod string
	TransactionID string
	StartDate     time.Time
	EndDate       time.Time
	CreatedAt     time.Time
}

type Lead struct {
	ID              uuid.UUID
	UserID          uuid.UUID
	Name            string
	Email           string
	Company         sql.NullString
	Title           sql.NullString
	Platform        string
	ProfileUrl      sql.NullString
	Description     sql.NullString
	Status          string
	EmailsSent      int32
	LastContactedAt sql.NullTime
	CreatedAt       time.Time
	UpdatedAt       time.Time
}

type Project struct {
	ID          uuid.UUID
	UserID      uuid.UUID
	LeadID      uuid.UUID
	Title       string
	Company     sql.NullString
	Description sql.NullString
	Budget      sql.NullString
	Deadline    sql.NullTime
	Status      string
	StartedAt   sql.NullTime
	CompletedAt sql.NullTime
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

type Email struct {
	ID          uuid.UUID
	UserID      uuid.UUID
	LeadID      uuid.NullUUID
	FromAddress string
	ToAddress   string
	Subject     string
	Body        string
	Attachments pqtype.NullRawMessage
	EmailType   string
	Folder      string
	IsRead      bool
	IsOpened    bool
	IsBounced   bool
	SentAt      time.Time
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

type FollowUp struct {
	ID               uuid.UUID
	UserID           uuid.UUID
	JobField         string
	Platform         string
	TotalLeadsSent   int32
	FollowUpsSent    int32
	Responses        int32
	LastFollowUpDate sql.NullTime
	CreatedAt        time.Time
	UpdatedAt        time.Time
}

type Job struct {
	ID           uuid.UUID
	JobType      string
	Payload      json.RawMessage
	Status       string
	Priority     int32
	Attempts     int32
	MaxAttempts  int32
	ErrorMessage sql.NullString
	ScheduledAt  time.Time
	StartedAt    sql.NullTime
	CompletedAt  sql.NullTime
	CreatedAt    time.Time
}
