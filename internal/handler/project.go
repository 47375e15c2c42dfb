package handler

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/DukeRupert/nexleads/internal/domain"
	"github.com/DukeRupert/nexleads/internal/service"
	"github.com/google/uuid"
)

// ProjectHandler handles project tracking requests.
//
// Routes handled:
//   - POST   /user/create-project          -> Create
//   - GET    /user/get-projects            -> List (grouped by status)
//   - GET    /user/projects/{id}           -> Get
//   - PUT    /user/projects/{id}           -> Update
//   - PUT    /user/projects/{id}/status    -> UpdateStatus
//   - DELETE /user/projects/{id}           -> Delete
type ProjectHandler struct {
	projects service.ProjectService
	logger   *slog.Logger
}

// NewProjectHandler creates a new ProjectHandler.
func NewProjectHandler(projects service.ProjectService, logger *slog.Logger) *ProjectHandler {
	return &ProjectHandler{
		projects: projects,
		logger:   logger,
	}
}

// RegisterRoutes registers project routes on the provided mux.
func (h *ProjectHandler) RegisterRoutes(mux *http.ServeMux, requireUser func(http.Handler) http.Handler) {
	mux.Handle("POST /user/create-project", requireUser(http.HandlerFunc(h.Create)))
	mux.Handle("GET /user/get-projects", requireUser(http.HandlerFunc(h.List)))
	mux.Handle("GET /user/projects/{id}", requireUser(http.HandlerFunc(h.Get)))
	mux.Handle("PUT /user/projects/{id}", requireUser(http.HandlerFunc(h.Update)))
	mux.Handle("PUT /user/projects/{id}/status", requireUser(http.HandlerFunc(h.UpdateStatus)))
	mux.Handle("DELETE /user/projects/{id}", requireUser(http.HandlerFunc(h.Delete)))
}

type projectRequest struct {
	LeadID      string `json:"leadId" validate:"required,uuid"`
	Title       string `json:"title" validate:"required,max=200"`
	Company     string `json:"company" validate:"max=200"`
	Description string `json:"description"`
	Budget      string `json:"budget" validate:"max=100"`
	Deadline    string `json:"deadline"`
}

type projectUpdateRequest struct {
	Title       string `json:"title" validate:"required,max=200"`
	Company     string `json:"company" validate:"max=200"`
	Description string `json:"description"`
	Budget      string `json:"budget" validate:"max=100"`
	Deadline    string `json:"deadline"`
}

type projectStatusRequest struct {
	Status domain.ProjectStatus `json:"status" validate:"required,oneof=in_discussion ongoing completed"`
}

func parseDeadline(value, op string) (*time.Time, error) {
	return parseDateParam(value, op, "deadline", false)
}

// Create opens a project for a lead. Creating a project for a lead that
// already has one returns the existing project with 200.
func (h *ProjectHandler) Create(w http.ResponseWriter, r *http.Request) {
	const op = "project.create"

	user, ok := currentUser(w, r, h.logger)
	if !ok {
		return
	}

	var req projectRequest
	if err := decodeJSON(w, r, op, &req); err != nil {
		ErrorResponse(w, r, h.logger, err)
		return
	}
	deadline, err := parseDeadline(req.Deadline, op)
	if err != nil {
		ErrorResponse(w, r, h.logger, err)
		return
	}

	project, created, err := h.projects.Create(r.Context(), domain.CreateProjectParams{
		UserID:      user.ID,
		LeadID:      uuid.MustParse(req.LeadID),
		Title:       req.Title,
		Company:     req.Company,
		Description: req.Description,
		Budget:      req.Budget,
		Deadline:    deadline,
	})
	if err != nil {
		ErrorResponse(w, r, h.logger, err)
		return
	}

	if !created {
		writeJSON(w, http.StatusOK, map[string]any{
			"message": "Project already exists for this lead",
			"project": project,
		})
		return
	}

	writeJSON(w, http.StatusCreated, map[string]any{
		"message": "Project created successfully",
		"project": project,
	})
}

// List returns the user's projects grouped by status. ?status= narrows the
// result to one group.
func (h *ProjectHandler) List(w http.ResponseWriter, r *http.Request) {
	const op = "project.list"

	user, ok := currentUser(w, r, h.logger)
	if !ok {
		return
	}

	status := domain.ProjectStatus(r.URL.Query().Get("status"))
	if status != "" && !status.IsValid() {
		ErrorResponse(w, r, h.logger, domain.NewValidationError(op, "status", "Must be one of: in_discussion ongoing completed"))
		return
	}

	projects, err := h.projects.List(r.Context(), user.ID, status)
	if err != nil {
		ErrorResponse(w, r, h.logger, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"count":    len(projects),
		"projects": domain.GroupProjects(projects),
	})
}

// Get returns one project.
func (h *ProjectHandler) Get(w http.ResponseWriter, r *http.Request) {
	const op = "project.get"

	user, ok := currentUser(w, r, h.logger)
	if !ok {
		return
	}
	id, err := pathID(r, "id", op)
	if err != nil {
		ErrorResponse(w, r, h.logger, err)
		return
	}

	project, err := h.projects.Get(r.Context(), user.ID, id)
	if err != nil {
		ErrorResponse(w, r, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"project": project})
}

// Update edits a project's details.
func (h *ProjectHandler) Update(w http.ResponseWriter, r *http.Request) {
	const op = "project.update"

	user, ok := currentUser(w, r, h.logger)
	if !ok {
		return
	}
	id, err := pathID(r, "id", op)
	if err != nil {
		ErrorResponse(w, r, h.logger, err)
		return
	}

	var req projectUpdateRequest
	if err := decodeJSON(w, r, op, &req); err != nil {
		ErrorResponse(w, r, h.logger, err)
		return
	}
	deadline, err := parseDeadline(req.Deadline, op)
	if err != nil {
		ErrorResponse(w, r, h.logger, err)
		return
	}

	project, err := h.projects.Update(r.Context(), domain.UpdateProjectParams{
		ID:          id,
		UserID:      user.ID,
		Title:       req.Title,
		Company:     req.Company,
		Description: req.Description,
		Budget:      req.Budget,
		Deadline:    deadline,
	})
	if err != nil {
		ErrorResponse(w, r, h.logger, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"message": "Project updated successfully",
		"project": project,
	})
}

// UpdateStatus moves a project between in_discussion, ongoing and completed.
func (h *ProjectHandler) UpdateStatus(w http.ResponseWriter, r *http.Request) {
	const op = "project.update_status"

	user, ok := currentUser(w, r, h.logger)
	if !ok {
		return
	}
	id, err := pathID(r, "id", op)
	if err != nil {
		ErrorResponse(w, r, h.logger, err)
		return
	}

	var req projectStatusRequest
	if err := decodeJSON(w, r, op, &req); err != nil {
		ErrorResponse(w, r, h.logger, err)
		return
	}

	project, err := h.projects.UpdateStatus(r.Context(), user.ID, id, req.Status)
	if err != nil {
		ErrorResponse(w, r, h.logger, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"message": "Project status updated",
		"project": project,
	})
}

// Delete removes a project.
func (h *ProjectHandler) Delete(w http.ResponseWriter, r *http.Request) {
	const op = "project.delete"

	user, ok := currentUser(w, r, h.logger)
	if !ok {
		return
	}
	id, err := pathID(r, "id", op)
	if err != nil {
		ErrorResponse(w, r, h.logger, err)
		return
	}

	if err := h.projects.Delete(r.Context(), user.ID, id); err != nil {
		ErrorResponse(w, r, h.logger, err)
		return
	}

	writeJSON(w, http.StatusOK, messageResponse{Success: true, Message: "Project deleted successfully"})
}
