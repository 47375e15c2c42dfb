package repository

import (
	"context"
	"database/sql"

	"github.com/google/uuid"
)

const followUpColumns = `id, user_id, job_field, platform, total_leads_sent, follow_ups_sent, responses,
    last_follow_up_date, created_at, updated_at`

func scanFollowUp(row scanner) (FollowUp, error) {
	var i FollowUp
	err := row.Scan(
		&i.ID,
		&i.UserID,
		&i.JobField,
		&i.Platform,
		&i.TotalLeadsSent,
		&i.FollowUpsSent,
		&i.Responses,
		&i.LastFollowUpDate,
		&i.CreatedAt,
		&i.UpdatedAt,
	)
	return i, err
}

const createFollowUp = `-- name: CreateFollowUp :one
INSERT INTO follow_ups (user_id, job_field, platform, total_leads_sent)
VALUES ($1, $2, $3, $4)
RETURNING ` + followUpColumns

type CreateFollowUpParams struct {
	UserID         uuid.UUID
	JobField       string
	Platform       string
	TotalLeadsSent int32
}

func (q *Queries) CreateFollowUp(ctx context.Context, arg CreateFollowUpParams) (FollowUp, error) {
	row := q.db.QueryRowContext(ctx, createFollowUp,
		arg.UserID,
		arg.JobField,
		arg.Platform,
		arg.TotalLeadsSent,
	)
	return scanFollowUp(row)
}

const getFollowUpByIDAndUser = `-- name: GetFollowUpByIDAndUser :one
SELECT ` + followUpColumns + ` FROM follow_ups WHERE id = $1 AND user_id = $2`

func (q *Queries) GetFollowUpByIDAndUser(ctx context.Context, id, userID uuid.UUID) (FollowUp, error) {
	return scanFollowUp(q.db.QueryRowContext(ctx, getFollowUpByIDAndUser, id, userID))
}

const listFollowUps = `-- name: ListFollowUps :many
SELECT ` + followUpColumns + `
FROM follow_ups
WHERE user_id = $1
  AND ($2::text = '' OR platform = $2)
  AND ($3::timestamptz IS NULL OR created_at >= $3)
  AND ($4::timestamptz IS NULL OR created_at <= $4)
ORDER BY created_at DESC`

type ListFollowUpsParams struct {
	UserID   uuid.UUID
	Platform string
	DateFrom sql.NullTime
	DateTo   sql.NullTime
}

func (q *Queries) ListFollowUps(ctx context.Context, arg ListFollowUpsParams) ([]FollowUp, error) {
	rows, err := q.db.QueryContext(ctx, listFollowUps,
		arg.UserID,
		arg.Platform,
		arg.DateFrom,
		arg.DateTo,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var items []FollowUp
	for rows.Next() {
		i, err := scanFollowUp(rows)
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

const updateFollowUpCounts = `-- name: UpdateFollowUpCounts :one
UPDATE follow_ups
SET total_leads_sent = $3, follow_ups_sent = $4, responses = $5, updated_at = NOW()
WHERE id = $1 AND user_id = $2
RETURNING ` + followUpColumns

type UpdateFollowUpCountsParams struct {
	ID             uuid.UUID
	UserID         uuid.UUID
	TotalLeadsSent int32
	FollowUpsSent  int32
	Responses      int32
}

func (q *Queries) UpdateFollowUpCounts(ctx context.Context, arg UpdateFollowUpCountsParams) (FollowUp, error) {
	row := q.db.QueryRowContext(ctx, updateFollowUpCounts,
		arg.ID,
		arg.UserID,
		arg.TotalLeadsSent,
		arg.FollowUpsSent,
		arg.Responses,
	)
	return scanFollowUp(row)
}

const recordFollowUpsSent = `-- name: RecordFollowUpsSent :one
UPDATE follow_ups
SET follow_ups_sent = follow_ups_sent + $3, last_follow_up_date = NOW(), updated_at = NOW()
WHERE id = $1 AND user_id = $2
RETURNING ` + followUpColumns

func (q *Queries) RecordFollowUpsSent(ctx context.Context, id, userID uuid.UUID, count int32) (FollowUp, error) {
	return scanFollowUp(q.db.QueryRowContext(ctx, recordFollowUpsSent, id, userID, count))
}
