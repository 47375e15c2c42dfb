package repository

import (
	"context"
	"database/sql"
	"time"

	"github.com/google/uuid"
)

const getUserLedger = `-- name: GetUserLedger :one
SELECT plan, leads_limit, leads_used, reset_date FROM users WHERE id = $1`

type GetUserLedgerRow struct {
	Plan       sql.NullString
	LeadsLimit sql.NullInt32
	LeadsUsed  sql.NullInt32
	ResetDate  sql.NullTime
}

func (q *Queries) GetUserLedger(ctx context.Context, id uuid.UUID) (GetUserLedgerRow, error) {
	row := q.db.QueryRowContext(ctx, getUserLedger, id)
	var i GetUserLedgerRow
	err := row.Scan(
		&i.Plan,
		&i.LeadsLimit,
		&i.LeadsUsed,
		&i.ResetDate,
	)
	return i, err
}

// The increment is a single UPDATE so concurrent callers never lose counts.
const incrementLeadsUsed = `-- name: IncrementLeadsUsed :one
UPDATE users
SET leads_used = leads_used + $2, updated_at = NOW()
WHERE id = $1 AND plan IS NOT NULL
RETURNING leads_used`

func (q *Queries) IncrementLeadsUsed(ctx context.Context, id uuid.UUID, amount int32) (int32, error) {
	var used int32
	err := q.db.QueryRowContext(ctx, incrementLeadsUsed, id, amount).Scan(&used)
	return used, err
}

const updateUserLedger = `-- name: UpdateUserLedger :execrows
UPDATE users
SET plan = $2, leads_limit = $3, leads_used = $4, reset_date = $5, updated_at = NOW()
WHERE id = $1`

type UpdateUserLedgerParams struct {
	ID         uuid.UUID
	Plan       string
	LeadsLimit int32
	LeadsUsed  int32
	ResetDate  time.Time
}

func (q *Queries) UpdateUserLedger(ctx context.Context, arg UpdateUserLedgerParams) (int64, error) {
	result, err := q.db.ExecContext(ctx, updateUserLedger,
		arg.ID,
		arg.Plan,
		arg.LeadsLimit,
		arg.LeadsUsed,
		arg.ResetDate,
	)
	if err != nil {
		return 0, err
	}
	return result.RowsAffected()
}

const createSubscriptionRecord = `-- name: CreateSubscriptionRecord :one
INSERT INTO subscription_history (
    user_id, plan, price, payment_method, transaction_id, start_date, end_date
) VALUES ($1, $2, $3, $4, $5, $6, $7)
RETURNING id, user_id, plan, price, payment_method, transaction_id, start_date, end_date, created_at`

type CreateSubscriptionRecordParams struct {
	UserID        uuid.UUID
	Plan          string
	Price         int32
	PaymentMethod string
	TransactionID string
	StartDate     time.Time
	EndDate       time.Time
}

func (q *Queries) CreateSubscriptionRecord(ctx context.Context, arg CreateSubscriptionRecordParams) (SubscriptionHistory, error) {
	row := q.db.QueryRowContext(ctx, createSubscriptionRecord,
		arg.UserID,
		arg.Plan,
		arg.Price,
		arg.PaymentMethod,
		arg.TransactionID,
		arg.StartDate,
		arg.EndDate,
	)
	var i SubscriptionHistory
	err := row.Scan(
		&i.ID,
		&i.UserID,
		&i.Plan,
		&i.Price,
		&i.PaymentMethod,
		&i.TransactionID,
		&i.StartDate,
		&i.EndDate,
		&i.CreatedAt,
	)
	return i, err
}

const listSubscriptionRecordsByUser = `-- name: ListSubscriptionRecordsByUser :many
SELECT id, user_id, plan, price, payment_method, transaction_id, start_date, end_date, created_at
FROM subscription_history
WHERE user_id = $1
ORDER BY start_date DESC, created_at DESC`

func (q *Queries) ListSubscriptionRecordsByUser(ctx context.Context, userID uuid.UUID) ([]SubscriptionHistory, error) {
	rows, err := q.db.QueryContext(ctx, listSubscriptionRecordsByUser, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var items []SubscriptionHistory
	for rows.Next() {
		var i SubscriptionHistory
		if err := rows.Scan(
			&i.ID,
			&i.UserID,
			&i.Plan,
			&i.Price,
			&i.PaymentMethod,
			&i.TransactionID,
			&i.StartDate,
			&i.EndDate,
			&i.CreatedAt,
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

const sumActiveSubscriptionEarnings = `-- name: SumActiveSubscriptionEarnings :one
SELECT COALESCE(SUM(price), 0)::bigint FROM subscription_history WHERE end_date > $1`

func (q *Queries) SumActiveSubscriptionEarnings(ctx context.Context, now time.Time) (int64, error) {
	var total int64
	err := q.db.QueryRowContext(ctx, sumActiveSubscriptionEarnings, now).Scan(&total)
	return total, err
}
