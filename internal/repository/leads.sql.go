package repository

import (
	"context"
	"database/sql"

	"github.com/google/uuid"
	"github.com/lib/pq"
)

const leadColumns = `id, user_id, name, email, company, title, platform, profile_url, description,
    status, emails_sent, last_contacted_at, created_at, updated_at`

func scanLead(row scanner) (Lead, error) {
	var i Lead
	err := row.Scan(
		&i.ID,
		&i.UserID,
		&i.Name,
		&i.Email,
		&i.Company,
		&i.Title,
		&i.Platform,
		&i.ProfileUrl,
		&i.Description,
		&i.Status,
		&i.EmailsSent,
		&i.LastContactedAt,
		&i.CreatedAt,
		&i.UpdatedAt,
	)
	return i, err
}

func scanLeads(rows *sql.Rows) ([]Lead, error) {
	defer rows.Close()
	var items []Lead
	for rows.Next() {
		i, err := scanLead(rows)
		if err != nil {
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

type CreateLeadParams struct {
	UserID      uuid.UUID
	Name        string
	Email       string
	Company     sql.NullString
	Title       sql.NullString
	Platform    string
	ProfileUrl  sql.NullString
	Description sql.NullString
}

const createLead = `-- name: CreateLead :one
INSERT INTO leads (user_id, name, email, company, title, platform, profile_url, description)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
RETURNING ` + leadColumns

func (q *Queries) CreateLead(ctx context.Context, arg CreateLeadParams) (Lead, error) {
	row := q.db.QueryRowContext(ctx, createLead,
		arg.UserID,
		arg.Name,
		arg.Email,
		arg.Company,
		arg.Title,
		arg.Platform,
		arg.ProfileUrl,
		arg.Description,
	)
	return scanLead(row)
}

// InsertLeadIfAbsent returns sql.ErrNoRows when the user already has a lead
// with the same email.
const insertLeadIfAbsent = `-- name: InsertLeadIfAbsent :one
INSERT INTO leads (user_id, name, email, company, title, platform, profile_url, description)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
ON CONFLICT (user_id, email) DO NOTHING
RETURNING ` + leadColumns

func (q *Queries) InsertLeadIfAbsent(ctx context.Context, arg CreateLeadParams) (Lead, error) {
	row := q.db.QueryRowContext(ctx, insertLeadIfAbsent,
		arg.UserID,
		arg.Name,
		arg.Email,
		arg.Company,
		arg.Title,
		arg.Platform,
		arg.ProfileUrl,
		arg.Description,
	)
	return scanLead(row)
}

const listExistingLeadEmails = `-- name: ListExistingLeadEmails :many
SELECT email FROM leads WHERE user_id = $1 AND email = ANY($2::text[])`

func (q *Queries) ListExistingLeadEmails(ctx context.Context, userID uuid.UUID, emails []string) ([]string, error) {
	rows, err := q.db.QueryContext(ctx, listExistingLeadEmails, userID, pq.Array(emails))
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var items []string
	for rows.Next() {
		var email string
		if err := rows.Scan(&email); err != nil {
			return nil, err
		}
		items = append(items, email)
	}
	if err := rows.Close(); err != nil {
		return nil, err
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return items, nil
}

const listLeadsByUser = `-- name: ListLeadsByUser :many
SELECT ` + leadColumns + ` FROM leads WHERE user_id = $1 ORDER BY created_at DESC`

func (q *Queries) ListLeadsByUser(ctx context.Context, userID uuid.UUID) ([]Lead, error) {
	rows, err := q.db.QueryContext(ctx, listLeadsByUser, userID)
	if err != nil {
		return nil, err
	}
	return scanLeads(rows)
}

const listLeadsByIDsAndUser = `-- name: ListLeadsByIDsAndUser :many
SELECT ` + leadColumns + ` FROM leads WHERE user_id = $1 AND id = ANY($2::uuid[]) ORDER BY created_at DESC`

func (q *Queries) ListLeadsByIDsAndUser(ctx context.Context, userID uuid.UUID, ids []uuid.UUID) ([]Lead, error) {
	strIDs := make([]string, len(ids))
	for i, id := range ids {
		strIDs[i] = id.String()
	}
	rows, err := q.db.QueryContext(ctx, listLeadsByIDsAndUser, userID, pq.Array(strIDs))
	if err != nil {
		return nil, err
	}
	return scanLeads(rows)
}

const getLeadByIDAndUser = `-- name: GetLeadByIDAndUser :one
SELECT ` + leadColumns + ` FROM leads WHERE id = $1 AND user_id = $2`

func (q *Queries) GetLeadByIDAndUser(ctx context.Context, id, userID uuid.UUID) (Lead, error) {
	return scanLead(q.db.QueryRowContext(ctx, getLeadByIDAndUser, id, userID))
}

const updateLeadStatus = `-- name: UpdateLeadStatus :one
UPDATE leads SET status = $3, updated_at = NOW() WHERE id = $1 AND user_id = $2
RETURNING ` + leadColumns

func (q *Queries) UpdateLeadStatus(ctx context.Context, id, userID uuid.UUID, status string) (Lead, error) {
	return scanLead(q.db.QueryRowContext(ctx, updateLeadStatus, id, userID, status))
}

// RecordLeadContacted only moves a lead to "contacted" from "new"; leads that
// progressed further keep their status.
const recordLeadContacted = `-- name: RecordLeadContacted :exec
UPDATE leads
SET emails_sent = emails_sent + 1,
    last_contacted_at = NOW(),
    status = CASE WHEN status = 'new' THEN 'contacted' ELSE status END,
    updated_at = NOW()
WHERE id = $1 AND user_id = $2`

func (q *Queries) RecordLeadContacted(ctx context.Context, id, userID uuid.UUID) error {
	_, err := q.db.ExecContext(ctx, recordLeadContacted, id, userID)
	return err
}

const countLeadsByUser = `-- name: CountLeadsByUser :one
SELECT COUNT(*) FROM leads WHERE user_id = $1`

func (q *Queries) CountLeadsByUser(ctx context.Context, userID uuid.UUID) (int64, error) {
	var count int64
	err := q.db.QueryRowContext(ctx, countLeadsByUser, userID).Scan(&count)
	return count, err
}

const countAllLeads = `-- name: CountAllLeads :one
SELECT COUNT(*) FROM leads`

func (q *Queries) CountAllLeads(ctx context.Context) (int64, error) {
	var count int64
	err := q.db.QueryRowContext(ctx, countAllLeads).Scan(&count)
	return count, err
}

const countLeadsByPlatform = `-- name: CountLeadsByPlatform :many
SELECT platform, COUNT(*) AS count FROM leads WHERE user_id = $1
GROUP BY platform ORDER BY count DESC, platform`

type CountLeadsByPlatformRow struct {
	Platform string
	Count    int64
}

func (q *Queries) CountLeadsByPlatform(ctx context.Context, userID uuid.UUID) ([]CountLeadsByPlatformRow, error) {
	rows, err := q.db.QueryContext(ctx, countLeadsByPlatform, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var items []CountLeadsByPlatformRow
	for rows.Next() {
		var i CountLeadsByPlatformRow
		if err := rows.Scan(&i.Platform, &i.Count); err != nil {
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
