package service

import (
	"context"
	"database/sql"
	"errors"
	"log/slog"
	"strings"

	"github.com/DukeRupert/nexleads/internal/domain"
	"github.com/DukeRupert/nexleads/internal/repository"
	"github.com/google/uuid"
)

// ProjectService defines the interface for project operations.
type ProjectService interface {
	// Create opens a project for a lead the user owns. When the lead already
	// has a project, that project is returned and created is false.
	Create(ctx context.Context, params domain.CreateProjectParams) (project *domain.Project, created bool, err error)

	// List returns the user's projects, optionally filtered by status.
	List(ctx context.Context, userID uuid.UUID, status domain.ProjectStatus) ([]domain.Project, error)

	// Get retrieves a project by ID, checking ownership.
	Get(ctx context.Context, userID, projectID uuid.UUID) (*domain.Project, error)

	Update(ctx context.Context, params domain.UpdateProjectParams) (*domain.Project, error)

	// UpdateStatus moves a project through its lifecycle and mirrors the
	// new status onto the lead.
	UpdateStatus(ctx context.Context, userID, projectID uuid.UUID, status domain.ProjectStatus) (*domain.Project, error)

	Delete(ctx context.Context, userID, projectID uuid.UUID) error
}

// ProjectStore is the subset of repository.Queries the project service needs.
type ProjectStore interface {
	GetLeadByIDAndUser(ctx context.Context, id, userID uuid.UUID) (repository.Lead, error)
	UpdateLeadStatus(ctx context.Context, id, userID uuid.UUID, status string) (repository.Lead, error)
	CreateProject(ctx context.Context, arg repository.CreateProjectParams) (repository.Project, error)
	GetProjectByLead(ctx context.Context, userID, leadID uuid.UUID) (repository.Project, error)
	GetProjectByIDAndUser(ctx context.Context, id, userID uuid.UUID) (repository.ProjectWithLead, error)
	ListProjectsByUser(ctx context.Context, userID uuid.UUID, status string) ([]repository.ProjectWithLead, error)
	UpdateProject(ctx context.Context, arg repository.UpdateProjectParams) (repository.Project, error)
	UpdateProjectStatus(ctx context.Context, id, userID uuid.UUID, status string) (repository.Project, error)
	DeleteProject(ctx context.Context, id, userID uuid.UUID) (int64, error)
}

type projectService struct {
	store  ProjectStore
	logger *slog.Logger
}

// NewProjectService creates a new ProjectService.
func NewProjectService(store ProjectStore, logger *slog.Logger) ProjectService {
	return &projectService{
		store:  store,
		logger: logger,
	}
}

// Create opens a project for a lead.
func (s *projectService) Create(ctx context.Context, params domain.CreateProjectParams) (*domain.Project, bool, error) {
	const op = "project.create"

	params.Title = strings.TrimSpace(params.Title)
	if params.LeadID == uuid.Nil {
		return nil, false, domain.NewValidationError(op, "leadId", "Lead is required")
	}
	if params.Title == "" {
		return nil, false, domain.NewValidationError(op, "title", "Title is required")
	}

	lead, err := s.store.GetLeadByIDAndUser(ctx, params.LeadID, params.UserID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, false, domain.NotFound(op, "lead", params.LeadID.String())
		}
		return nil, false, domain.Internal(err, op, "Failed to load lead")
	}

	existing, err := s.store.GetProjectByLead(ctx, params.UserID, params.LeadID)
	switch {
	case err == nil:
		return projectWithLead(existing, lead), false, nil
	case !errors.Is(err, sql.ErrNoRows):
		return nil, false, domain.Internal(err, op, "Failed to check existing project")
	}

	row, err := s.store.CreateProject(ctx, repository.CreateProjectParams{
		UserID:      params.UserID,
		LeadID:      params.LeadID,
		Title:       params.Title,
		Company:     domain.ToNullString(strings.TrimSpace(params.Company)),
		Description: domain.ToNullString(strings.TrimSpace(params.Description)),
		Budget:      domain.ToNullString(strings.TrimSpace(params.Budget)),
		Deadline:    domain.ToNullTime(params.Deadline),
	})
	if err != nil {
		if isUniqueViolation(err) {
			// Created by a concurrent request for the same lead.
			existing, getErr := s.store.GetProjectByLead(ctx, params.UserID, params.LeadID)
			if getErr == nil {
				return projectWithLead(existing, lead), false, nil
			}
		}
		return nil, false, domain.Internal(err, op, "Failed to create project")
	}

	if _, err := s.store.UpdateLeadStatus(ctx, lead.ID, params.UserID, string(domain.LeadStatusInDiscussion)); err != nil {
		s.logger.Warn("failed to sync lead status", "lead_id", lead.ID, "error", err)
	}

	s.logger.Info("project created", "user_id", params.UserID, "project_id", row.ID, "lead_id", lead.ID)
	return projectWithLead(row, lead), true, nil
}

// List returns projects newest first.
func (s *projectService) List(ctx context.Context, userID uuid.UUID, status domain.ProjectStatus) ([]domain.Project, error) {
	const op = "project.list"

	if status != "" && !status.IsValid() {
		return nil, domain.Invalid(op, "Invalid project status")
	}

	rows, err := s.store.ListProjectsByUser(ctx, userID, string(status))
	if err != nil {
		return nil, domain.Internal(err, op, "Failed to list projects")
	}

	projects := make([]domain.Project, len(rows))
	for i, r := range rows {
		projects[i] = *repoProjectWithLeadToDomain(r)
	}
	return projects, nil
}

func (s *projectService) Get(ctx context.Context, userID, projectID uuid.UUID) (*domain.Project, error) {
	const op = "project.get"

	row, err := s.store.GetProjectByIDAndUser(ctx, projectID, userID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.NotFound(op, "project", projectID.String())
		}
		return nil, domain.Internal(err, op, "Failed to get project")
	}
	return repoProjectWithLeadToDomain(row), nil
}

func (s *projectService) Update(ctx context.Context, params domain.UpdateProjectParams) (*domain.Project, error) {
	const op = "project.update"

	params.Title = strings.TrimSpace(params.Title)
	if params.Title == "" {
		return nil, domain.NewValidationError(op, "title", "Title is required")
	}

	row, err := s.store.UpdateProject(ctx, repository.UpdateProjectParams{
		ID:          params.ID,
		UserID:      params.UserID,
		Title:       params.Title,
		Company:     domain.ToNullString(strings.TrimSpace(params.Company)),
		Description: domain.ToNullString(strings.TrimSpace(params.Description)),
		Budget:      domain.ToNullString(strings.TrimSpace(params.Budget)),
		Deadline:    domain.ToNullTime(params.Deadline),
	})
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.NotFound(op, "project", params.ID.String())
		}
		return nil, domain.Internal(err, op, "Failed to update project")
	}
	return repoProjectToDomain(row), nil
}

// UpdateStatus changes the project status. The store stamps startedAt and
// completedAt the first time the matching status is reached.
func (s *projectService) UpdateStatus(ctx context.Context, userID, projectID uuid.UUID, status domain.ProjectStatus) (*domain.Project, error) {
	const op = "project.update_status"

	if !status.IsValid() {
		return nil, domain.Invalid(op, "Invalid project status")
	}

	row, err := s.store.UpdateProjectStatus(ctx, projectID, userID, string(status))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.NotFound(op, "project", projectID.String())
		}
		return nil, domain.Internal(err, op, "Failed to update project status")
	}

	if _, err := s.store.UpdateLeadStatus(ctx, row.LeadID, userID, string(status.LeadStatus())); err != nil {
		s.logger.Warn("failed to sync lead status", "lead_id", row.LeadID, "error", err)
	}

	s.logger.Info("project status updated", "project_id", projectID, "status", status)
	return repoProjectToDomain(row), nil
}

func (s *projectService) Delete(ctx context.Context, userID, projectID uuid.UUID) error {
	const op = "project.delete"

	n, err := s.store.DeleteProject(ctx, projectID, userID)
	if err != nil {
		return domain.Internal(err, op, "Failed to delete project")
	}
	if n == 0 {
		return domain.NotFound(op, "project", projectID.String())
	}

	s.logger.Info("project deleted", "user_id", userID, "project_id", projectID)
	return nil
}

func repoProjectToDomain(p repository.Project) *domain.Project {
	return &domain.Project{
		ID:          p.ID,
		UserID:      p.UserID,
		LeadID:      p.LeadID,
		Title:       p.Title,
		Company:     domain.NullStringValue(p.Company),
		Description: domain.NullStringValue(p.Description),
		Budget:      domain.NullStringValue(p.Budget),
		Deadline:    domain.NullTimeValue(p.Deadline),
		Status:      domain.ProjectStatus(p.Status),
		StartedAt:   domain.NullTimeValue(p.StartedAt),
		CompletedAt: domain.NullTimeValue(p.CompletedAt),
		CreatedAt:   p.CreatedAt,
		UpdatedAt:   p.UpdatedAt,
	}
}

func repoProjectWithLeadToDomain(p repository.ProjectWithLead) *domain.Project {
	project := repoProjectToDomain(p.Project)
	project.LeadName = p.LeadName
	project.LeadEmail = p.LeadEmail
	return project
}

func projectWithLead(p repository.Project, lead repository.Lead) *domain.Project {
	project := repoProjectToDomain(p)
	project.LeadName = lead.Name
	project.LeadEmail = lead.Email
	return project
}
