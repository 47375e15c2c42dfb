package repository

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/sqlc-dev/pqtype"
)

const emailColumns = `id, user_id, lead_id, from_address, to_address, subject, body, attachments,
    email_type, folder, is_read, is_opened, is_bounced, sent_at, created_at, updated_at`

func scanEmail(row scanner) (Email, error) {
	var i Email
	err := row.Scan(
		&i.ID,
		&i.UserID,
		&i.LeadID,
		&i.FromAddress,
		&i.ToAddress,
		&i.Subject,
		&i.Body,
		&i.Attachments,
		&i.EmailType,
		&i.Folder,
		&i.IsRead,
		&i.IsOpened,
		&i.IsBounced,
		&i.SentAt,
		&i.CreatedAt,
		&i.UpdatedAt,
	)
	return i, err
}

const createEmail = `-- name: CreateEmail :one
INSERT INTO emails (
    user_id, lead_id, from_address, to_address, subject, body, attachments,
    email_type, folder, sent_at
) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
RETURNING ` + emailColumns

type CreateEmailParams struct {
	UserID      uuid.UUID
	LeadID      uuid.NullUUID
	FromAddress string
	ToAddress   string
	Subject     string
	Body        string
	Attachments pqtype.NullRawMessage
	EmailType   string
	Folder      string
	SentAt      time.Time
}

func (q *Queries) CreateEmail(ctx context.Context, arg CreateEmailParams) (Email, error) {
	row := q.db.QueryRowContext(ctx, createEmail,
		arg.UserID,
		arg.LeadID,
		arg.FromAddress,
		arg.ToAddress,
		arg.Subject,
		arg.Body,
		arg.Attachments,
		arg.EmailType,
		arg.Folder,
		arg.SentAt,
	)
	return scanEmail(row)
}

const getEmailByIDAndUser = `-- name: GetEmailByIDAndUser :one
SELECT ` + emailColumns + ` FROM emails WHERE id = $1 AND user_id = $2`

func (q *Queries) GetEmailByIDAndUser(ctx context.Context, id, userID uuid.UUID) (Email, error) {
	return scanEmail(q.db.QueryRowContext(ctx, getEmailByIDAndUser, id, userID))
}

const markEmailOpened = `-- name: MarkEmailOpened :one
UPDATE emails SET is_opened = TRUE, is_read = TRUE, folder = 'inbox', updated_at = NOW()
WHERE id = $1
RETURNING ` + emailColumns

func (q *Queries) MarkEmailOpened(ctx context.Context, id uuid.UUID) (Email, error) {
	return scanEmail(q.db.QueryRowContext(ctx, markEmailOpened, id))
}

const markEmailRead = `-- name: MarkEmailRead :exec
UPDATE emails SET is_read = TRUE, updated_at = NOW() WHERE id = $1 AND user_id = $2`

func (q *Queries) MarkEmailRead(ctx context.Context, id, userID uuid.UUID) error {
	_, err := q.db.ExecContext(ctx, markEmailRead, id, userID)
	return err
}

const markEmailBounced = `-- name: MarkEmailBounced :exec
UPDATE emails SET is_bounced = TRUE, updated_at = NOW() WHERE id = $1`

func (q *Queries) MarkEmailBounced(ctx context.Context, id uuid.UUID) error {
	_, err := q.db.ExecContext(ctx, markEmailBounced, id)
	return err
}

const listEmailsByFolder = `-- name: ListEmailsByFolder :many
SELECT e.id, e.user_id, e.lead_id, e.from_address, e.to_address, e.subject, e.body, e.attachments,
    e.email_type, e.folder, e.is_read, e.is_opened, e.is_bounced, e.sent_at, e.created_at, e.updated_at,
    COALESCE(l.name, '') AS lead_name, COALESCE(l.company, '') AS lead_company
FROM emails e
LEFT JOIN leads l ON l.id = e.lead_id
WHERE e.user_id = $1 AND ($2::text = '' OR e.folder = $2)
ORDER BY e.sent_at DESC`

type ListEmailsByFolderRow struct {
	Email
	LeadName    string
	LeadCompany string
}

func (q *Queries) ListEmailsByFolder(ctx context.Context, userID uuid.UUID, folder string) ([]ListEmailsByFolderRow, error) {
	rows, err := q.db.QueryContext(ctx, listEmailsByFolder, userID, folder)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var items []ListEmailsByFolderRow
	for rows.Next() {
		var i ListEmailsByFolderRow
		if err := rows.Scan(
			&i.ID,
			&i.UserID,
			&i.LeadID,
			&i.FromAddress,
			&i.ToAddress,
			&i.Subject,
			&i.Body,
			&i.Attachments,
			&i.EmailType,
			&i.Folder,
			&i.IsRead,
			&i.IsOpened,
			&i.IsBounced,
			&i.SentAt,
			&i.CreatedAt,
			&i.UpdatedAt,
			&i.LeadName,
			&i.LeadCompany,
		); err != nil {
			return nil, err
		}
		items = append(items, i)
	}
	if err := rows.Close(); err != nil {
		return nil, err
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return items, nil
}

const updateEmailFolder = `-- name: UpdateEmailFolder :one
UPDATE emails SET folder = $3, updated_at = NOW() WHERE id = $1 AND user_id = $2
RETURNING ` + emailColumns

func (q *Queries) UpdateEmailFolder(ctx context.Context, id, userID uuid.UUID, folder string) (Email, error) {
	return scanEmail(q.db.QueryRowContext(ctx, updateEmailFolder, id, userID, folder))
}

const updateEmailForResend = `-- name: UpdateEmailForResend :one
UPDATE emails
SET body = $3, email_type = 'sent', folder = 'sent', is_opened = FALSE, is_bounced = FALSE,
    sent_at = NOW(), updated_at = NOW()
WHERE id = $1 AND user_id = $2
RETURNING ` + emailColumns

func (q *Queries) UpdateEmailForResend(ctx context.Context, id, userID uuid.UUID, body string) (Email, error) {
	return scanEmail(q.db.QueryRowContext(ctx, updateEmailForResend, id, userID, body))
}

const getEmailStatsByUser = `-- name: GetEmailStatsByUser :one
SELECT
    COUNT(*) FILTER (WHERE email_type = 'sent') AS sent,
    COUNT(*) FILTER (WHERE email_type = 'sent' AND is_opened) AS opened,
    COUNT(*) FILTER (WHERE email_type = 'received') AS received,
    COUNT(*) FILTER (WHERE is_bounced) AS bounced
FROM emails
WHERE user_id = $1`

type GetEmailStatsByUserRow struct {
	Sent     int64
	Opened   int64
	Received int64
	Bounced  int64
}

func (q *Queries) GetEmailStatsByUser(ctx context.Context, userID uuid.UUID) (GetEmailStatsByUserRow, error) {
	var i GetEmailStatsByUserRow
	err := q.db.QueryRowContext(ctx, getEmailStatsByUser, userID).Scan(
		&i.Sent,
		&i.Opened,
		&i.Received,
		&i.Bounced,
	)
	return i, err
}
