package repository

import (
	"context"
	"database/sql"
	"time"

	"github.com/google/uuid"
)

const userColumns = `id, name, email, password_hash, nexleads_email, profile_picture, user_type,
    is_verified, verified_at, is_blocked, otp_hash, otp_expires_at, reset_token_hash,
    reset_token_expires_at, stripe_customer_id, plan, leads_limit, leads_used, reset_date,
    created_at, updated_at`

func scanUser(row scanner) (User, error) {
	var i User
	err := row.Scan(
		&i.ID,
		&i.Name,
		&i.Email,
		&i.PasswordHash,
		&i.NexleadsEmail,
		&i.ProfilePicture,
		&i.UserType,
		&i.IsVerified,
		&i.VerifiedAt,
		&i.IsBlocked,
		&i.OtpHash,
		&i.OtpExpiresAt,
		&i.ResetTokenHash,
		&i.ResetTokenExpiresAt,
		&i.StripeCustomerID,
		&i.Plan,
		&i.LeadsLimit,
		&i.LeadsUsed,
		&i.ResetDate,
		&i.CreatedAt,
		&i.UpdatedAt,
	)
	return i, err
}

const createUser = `-- name: CreateUser :one
INSERT INTO users (
    name, email, password_hash, user_type, otp_hash, otp_expires_at,
    plan, leads_limit, leads_used, reset_date
) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
RETURNING ` + userColumns

type CreateUserParams struct {
	Name         string
	Email        string
	PasswordHash string
	UserType     string
	OtpHash      sql.NullString
	OtpExpiresAt sql.NullTime
	Plan         sql.NullString
	LeadsLimit   sql.NullInt32
	LeadsUsed    sql.NullInt32
	ResetDate    sql.NullTime
}

func (q *Queries) CreateUser(ctx context.Context, arg CreateUserParams) (User, error) {
	row := q.db.QueryRowContext(ctx, createUser,
		arg.Name,
		arg.Email,
		arg.PasswordHash,
		arg.UserType,
		arg.OtpHash,
		arg.OtpExpiresAt,
		arg.Plan,
		arg.LeadsLimit,
		arg.LeadsUsed,
		arg.ResetDate,
	)
	return scanUser(row)
}

const getUserByID = `-- name: GetUserByID :one
SELECT ` + userColumns + ` FROM users WHERE id = $1`

func (q *Queries) GetUserByID(ctx context.Context, id uuid.UUID) (User, error) {
	return scanUser(q.db.QueryRowContext(ctx, getUserByID, id))
}

const getUserByEmail = `-- name: GetUserByEmail :one
SELECT ` + userColumns + ` FROM users WHERE LOWER(email) = LOWER($1)`

func (q *Queries) GetUserByEmail(ctx context.Context, email string) (User, error) {
	return scanUser(q.db.QueryRowContext(ctx, getUserByEmail, email))
}

const getUserByResetTokenHash = `-- name: GetUserByResetTokenHash :one
SELECT ` + userColumns + ` FROM users WHERE reset_token_hash = $1`

func (q *Queries) GetUserByResetTokenHash(ctx context.Context, tokenHash string) (User, error) {
	return scanUser(q.db.QueryRowContext(ctx, getUserByResetTokenHash, tokenHash))
}

const getUserByStripeCustomerID = `-- name: GetUserByStripeCustomerID :one
SELECT ` + userColumns + ` FROM users WHERE stripe_customer_id = $1`

func (q *Queries) GetUserByStripeCustomerID(ctx context.Context, customerID string) (User, error) {
	return scanUser(q.db.QueryRowContext(ctx, getUserByStripeCustomerID, customerID))
}

const emailTakenByOther = `-- name: EmailTakenByOther :one
SELECT EXISTS (SELECT 1 FROM users WHERE LOWER(email) = LOWER($1) AND id <> $2)`

func (q *Queries) EmailTakenByOther(ctx context.Context, email string, id uuid.UUID) (bool, error) {
	var exists bool
	err := q.db.QueryRowContext(ctx, emailTakenByOther, email, id).Scan(&exists)
	return exists, err
}

const updateUserOTP = `-- name: UpdateUserOTP :exec
UPDATE users SET otp_hash = $2, otp_expires_at = $3, updated_at = NOW() WHERE id = $1`

func (q *Queries) UpdateUserOTP(ctx context.Context, id uuid.UUID, otpHash sql.NullString, expiresAt sql.NullTime) error {
	_, err := q.db.ExecContext(ctx, updateUserOTP, id, otpHash, expiresAt)
	return err
}

const markUserVerified = `-- name: MarkUserVerified :one
UPDATE users
SET is_verified = TRUE,
    verified_at = NOW(),
    otp_hash = NULL,
    otp_expires_at = NULL,
    nexleads_email = COALESCE(nexleads_email, $2),
    updated_at = NOW()
WHERE id = $1
RETURNING ` + userColumns

func (q *Queries) MarkUserVerified(ctx context.Context, id uuid.UUID, nexleadsEmail string) (User, error) {
	return scanUser(q.db.QueryRowContext(ctx, markUserVerified, id, nexleadsEmail))
}

const setPasswordResetToken = `-- name: SetPasswordResetToken :exec
UPDATE users SET reset_token_hash = $2, reset_token_expires_at = $3, updated_at = NOW() WHERE id = $1`

func (q *Queries) SetPasswordResetToken(ctx context.Context, id uuid.UUID, tokenHash string, expiresAt time.Time) error {
	_, err := q.db.ExecContext(ctx, setPasswordResetToken, id, tokenHash, expiresAt)
	return err
}

const resetUserPassword = `-- name: ResetUserPassword :exec
UPDATE users
SET password_hash = $2, reset_token_hash = NULL, reset_token_expires_at = NULL, updated_at = NOW()
WHERE id = $1`

func (q *Queries) ResetUserPassword(ctx context.Context, id uuid.UUID, passwordHash string) error {
	_, err := q.db.ExecContext(ctx, resetUserPassword, id, passwordHash)
	return err
}

const updateUserPassword = `-- name: UpdateUserPassword :exec
UPDATE users SET password_hash = $2, updated_at = NOW() WHERE id = $1`

func (q *Queries) UpdateUserPassword(ctx context.Context, id uuid.UUID, passwordHash string) error {
	_, err := q.db.ExecContext(ctx, updateUserPassword, id, passwordHash)
	return err
}

const updateUserPersonalInfo = `-- name: UpdateUserPersonalInfo :one
UPDATE users SET name = $2, email = $3, updated_at = NOW() WHERE id = $1
RETURNING ` + userColumns

func (q *Queries) UpdateUserPersonalInfo(ctx context.Context, id uuid.UUID, name, email string) (User, error) {
	return scanUser(q.db.QueryRowContext(ctx, updateUserPersonalInfo, id, name, email))
}

const updateUserProfilePicture = `-- name: UpdateUserProfilePicture :one
UPDATE users SET profile_picture = $2, updated_at = NOW() WHERE id = $1
RETURNING ` + userColumns

func (q *Queries) UpdateUserProfilePicture(ctx context.Context, id uuid.UUID, url string) (User, error) {
	return scanUser(q.db.QueryRowContext(ctx, updateUserProfilePicture, id, url))
}

const updateUserStripeCustomerID = `-- name: UpdateUserStripeCustomerID :exec
UPDATE users SET stripe_customer_id = $2, updated_at = NOW() WHERE id = $1`

func (q *Queries) UpdateUserStripeCustomerID(ctx context.Context, id uuid.UUID, customerID string) error {
	_, err := q.db.ExecContext(ctx, updateUserStripeCustomerID, id, customerID)
	return err
}

const toggleUserBlocked = `-- name: ToggleUserBlocked :one
UPDATE users SET is_blocked = NOT is_blocked, updated_at = NOW() WHERE id = $1
RETURNING is_blocked`

func (q *Queries) ToggleUserBlocked(ctx context.Context, id uuid.UUID) (bool, error) {
	var blocked bool
	err := q.db.QueryRowContext(ctx, toggleUserBlocked, id).Scan(&blocked)
	return blocked, err
}

const countUsersByType = `-- name: CountUsersByType :one
SELECT COUNT(*) FROM users WHERE user_type = $1`

func (q *Queries) CountUsersByType(ctx context.Context, userType string) (int64, error) {
	var count int64
	err := q.db.QueryRowContext(ctx, countUsersByType, userType).Scan(&count)
	return count, err
}

const listAdminUsers = `-- name: ListAdminUsers :many
SELECT u.id, u.name, u.email, u.plan, u.is_blocked, u.created_at,
    (SELECT COUNT(*) FROM leads l WHERE l.user_id = u.id) AS lead_count,
    (SELECT sh.plan FROM subscription_history sh
        WHERE sh.user_id = u.id
        ORDER BY sh.start_date DESC
        OFFSET 1 LIMIT 1) AS previous_plan
FROM users u
WHERE u.user_type = 'User'
  AND ($1::text = '' OR u.name ILIKE '%' || $1 || '%' OR u.email ILIKE '%' || $1 || '%')
ORDER BY u.created_at DESC`

type ListAdminUsersRow struct {
	ID           uuid.UUID
	Name         string
	Email        string
	Plan         sql.NullString
	IsBlocked    bool
	CreatedAt    time.Time
	LeadCount    int64
	PreviousPlan sql.NullString
}

func (q *Queries) ListAdminUsers(ctx context.Context, search string) ([]ListAdminUsersRow, error) {
	rows, err := q.db.QueryContext(ctx, listAdminUsers, search)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var items []ListAdminUsersRow
	for rows.Next() {
		var i ListAdminUsersRow
		if err := rows.Scan(
			&i.ID,
			&i.Name,
			&i.Email,
			&i.Plan,
			&i.IsBlocked,
			&i.CreatedAt,
			&i.LeadCount,
			&i.PreviousPlan,
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
