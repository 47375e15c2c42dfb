package repository

import (
	"context"
	"database/sql"

	"github.com/google/uuid"
)

const projectColumns = `p.id, p.user_id, p.lead_id, p.title, p.company, p.description, p.budget, p.deadline,
    p.status, p.started_at, p.completed_at, p.created_at, p.updated_at`

func scanProject(row scanner) (Project, error) {
	var i Project
	err := row.Scan(
		&i.ID,
		&i.UserID,
		&i.LeadID,
		&i.Title,
		&i.Company,
		&i.Description,
		&i.Budget,
		&i.Deadline,
		&i.Status,
		&i.StartedAt,
		&i.CompletedAt,
		&i.CreatedAt,
		&i.UpdatedAt,
	)
	return i, err
}

type ProjectWithLead struct {
	Project
	LeadName  string
	LeadEmail string
}

func scanProjectWithLead(row scanner) (ProjectWithLead, error) {
	var i ProjectWithLead
	err := row.Scan(
		&i.ID,
		&i.UserID,
		&i.LeadID,
		&i.Title,
		&i.Company,
		&i.Description,
		&i.Budget,
		&i.Deadline,
		&i.Status,
		&i.StartedAt,
		&i.CompletedAt,
		&i.CreatedAt,
		&i.UpdatedAt,
		&i.LeadName,
		&i.LeadEmail,
	)
	return i, err
}

func scanProjectsWithLead(rows *sql.Rows) ([]ProjectWithLead, error) {
	defer rows.Close()
	var items []ProjectWithLead
	for rows.Next() {
		i, err := scanProjectWithLead(rows)
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

const createProject = `-- name: CreateProject :one
INSERT INTO projects AS p (user_id, lead_id, title, company, description, budget, deadline, status)
VALUES ($1, $2, $3, $4, $5, $6, $7, 'in_discussion')
RETURNING ` + projectColumns

type CreateProjectParams struct {
	UserID      uuid.UUID
	LeadID      uuid.UUID
	Title       string
	Company     sql.NullString
	Description sql.NullString
	Budget      sql.NullString
	Deadline    sql.NullTime
}

func (q *Queries) CreateProject(ctx context.Context, arg CreateProjectParams) (Project, error) {
	row := q.db.QueryRowContext(ctx, createProject,
		arg.UserID,
		arg.LeadID,
		arg.Title,
		arg.Company,
		arg.Description,
		arg.Budget,
		arg.Deadline,
	)
	return scanProject(row)
}

const getProjectByLead = `-- name: GetProjectByLead :one
SELECT ` + projectColumns + ` FROM projects p WHERE p.user_id = $1 AND p.lead_id = $2`

func (q *Queries) GetProjectByLead(ctx context.Context, userID, leadID uuid.UUID) (Project, error) {
	return scanProject(q.db.QueryRowContext(ctx, getProjectByLead, userID, leadID))
}

const getProjectByIDAndUser = `-- name: GetProjectByIDAndUser :one
SELECT ` + projectColumns + `, l.name, l.email
FROM projects p JOIN leads l ON l.id = p.lead_id
WHERE p.id = $1 AND p.user_id = $2`

func (q *Queries) GetProjectByIDAndUser(ctx context.Context, id, userID uuid.UUID) (ProjectWithLead, error) {
	return scanProjectWithLead(q.db.QueryRowContext(ctx, getProjectByIDAndUser, id, userID))
}

const listProjectsByUser = `-- name: ListProjectsByUser :many
SELECT ` + projectColumns + `, l.name, l.email
FROM projects p JOIN leads l ON l.id = p.lead_id
WHERE p.user_id = $1 AND ($2::text = '' OR p.status = $2)
ORDER BY p.created_at DESC`

func (q *Queries) ListProjectsByUser(ctx context.Context, userID uuid.UUID, status string) ([]ProjectWithLead, error) {
	rows, err := q.db.QueryContext(ctx, listProjectsByUser, userID, status)
	if err != nil {
		return nil, err
	}
	return scanProjectsWithLead(rows)
}

const listActiveProjects = `-- name: ListActiveProjects :many
SELECT ` + projectColumns + `, l.name, l.email
FROM projects p JOIN leads l ON l.id = p.lead_id
WHERE p.user_id = $1 AND p.status IN ('in_discussion', 'ongoing')
ORDER BY p.created_at DESC
LIMIT $2`

func (q *Queries) ListActiveProjects(ctx context.Context, userID uuid.UUID, limit int32) ([]ProjectWithLead, error) {
	rows, err := q.db.QueryContext(ctx, listActiveProjects, userID, limit)
	if err != nil {
		return nil, err
	}
	return scanProjectsWithLead(rows)
}

const updateProject = `-- name: UpdateProject :one
UPDATE projects AS p
SET title = $3, company = $4, description = $5, budget = $6, deadline = $7, updated_at = NOW()
WHERE p.id = $1 AND p.user_id = $2
RETURNING ` + projectColumns

type UpdateProjectParams struct {
	ID          uuid.UUID
	UserID      uuid.UUID
	Title       string
	Company     sql.NullString
	Description sql.NullString
	Budget      sql.NullString
	Deadline    sql.NullTime
}

func (q *Queries) UpdateProject(ctx context.Context, arg UpdateProjectParams) (Project, error) {
	row := q.db.QueryRowContext(ctx, updateProject,
		arg.ID,
		arg.UserID,
		arg.Title,
		arg.Company,
		arg.Description,
		arg.Budget,
		arg.Deadline,
	)
	return scanProject(row)
}

// started_at and completed_at are stamped the first time a project enters
// the matching status and kept afterwards.
const updateProjectStatus = `-- name: UpdateProjectStatus :one
UPDATE projects AS p
SET status = $3,
    started_at = CASE WHEN $3 = 'ongoing' AND p.started_at IS NULL THEN NOW() ELSE p.started_at END,
    completed_at = CASE WHEN $3 = 'completed' AND p.completed_at IS NULL THEN NOW() ELSE p.completed_at END,
    updated_at = NOW()
WHERE p.id = $1 AND p.user_id = $2
RETURNING ` + projectColumns

func (q *Queries) UpdateProjectStatus(ctx context.Context, id, userID uuid.UUID, status string) (Project, error) {
	return scanProject(q.db.QueryRowContext(ctx, updateProjectStatus, id, userID, status))
}

const deleteProject = `-- name: DeleteProject :execrows
DELETE FROM projects WHERE id = $1 AND user_id = $2`

func (q *Queries) DeleteProject(ctx context.Context, id, userID uuid.UUID) (int64, error) {
	result, err := q.db.ExecContext(ctx, deleteProject, id, userID)
	if err != nil {
		return 0, err
	}
	return result.RowsAffected()
}

const countProjectsByUser = `-- name: CountProjectsByUser :one
SELECT COUNT(*) FROM projects WHERE user_id = $1`

func (q *Queries) CountProjectsByUser(ctx context.Context, userID uuid.UUID) (int64, error) {
	var count int64
	err := q.db.QueryRowContext(ctx, countProjectsByUser, userID).Scan(&count)
	return count, err
}
