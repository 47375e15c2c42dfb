package handler

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/DukeRupert/nexleads/internal/domain"
	"github.com/google/uuid"
)

type mockProjectService struct {
	CreateFunc       func(ctx context.Context, params domain.CreateProjectParams) (*domain.Project, bool, error)
	ListFunc         func(ctx context.Context, userID uuid.UUID, status domain.ProjectStatus) ([]domain.Project, error)
	GetFunc          func(ctx context.Context, userID, projectID uuid.UUID) (*domain.Project, error)
	UpdateFunc       func(ctx context.Context, params domain.UpdateProjectParams) (*domain.Project, error)
	UpdateStatusFunc func(ctx context.Context, userID, projectID uuid.UUID, status domain.ProjectStatus) (*domain.Project, error)
	DeleteFunc       func(ctx context.Context, userID, projectID uuid.UUID) error
}

func (m *mockProjectService) Create(ctx context.Context, params domain.CreateProjectParams) (*domain.Project, bool, error) {
	if m.CreateFunc != nil {
		return m.CreateFunc(ctx, params)
	}
	return nil, false, errNotMocked
}

func (m *mockProjectService) List(ctx context.Context, userID uuid.UUID, status domain.ProjectStatus) ([]domain.Project, error) {
	if m.ListFunc != nil {
		return m.ListFunc(ctx, userID, status)
	}
	return nil, errNotMocked
}

func (m *mockProjectService) Get(ctx context.Context, userID, projectID uuid.UUID) (*domain.Project, error) {
	if m.GetFunc != nil {
		return m.GetFunc(ctx, userID, projectID)
	}
	return nil, errNotMocked
}

func (m *mockProjectService) Update(ctx context.Context, params domain.UpdateProjectParams) (*domain.Project, error) {
	if m.UpdateFunc != nil {
		return m.UpdateFunc(ctx, params)
	}
	return nil, errNotMocked
}

func (m *mockProjectService) UpdateStatus(ctx context.Context, userID, projectID uuid.UUID, status domain.ProjectStatus) (*domain.Project, error) {
	if m.UpdateStatusFunc != nil {
		return m.UpdateStatusFunc(ctx, userID, projectID, status)
	}
	return nil, errNotMocked
}

func (m *mockProjectService) Delete(ctx context.Context, userID, projectID uuid.UUID) error {
	if m.DeleteFunc != nil {
		return m.DeleteFunc(ctx, userID, projectID)
	}
	return errNotMocked
}

func newTestProjectMux(projects *mockProjectService) *http.ServeMux {
	mux := http.NewServeMux()
	NewProjectHandler(projects, newTestLogger()).RegisterRoutes(mux, passthrough)
	return mux
}

func TestProjectHandler_Create(t *testing.T) {
	user := testUser()
	leadID := uuid.New()

	tests := []struct {
		name       string
		body       string
		created    bool
		wantStatus int
		wantCalled bool
	}{
		{
			name:       "new project",
			body:       `{"leadId":"` + leadID.String() + `","title":"Website rebuild","deadline":"2026-12-01"}`,
			created:    true,
			wantStatus: http.StatusCreated,
			wantCalled: true,
		},
		{
			name:       "existing project for lead",
			body:       `{"leadId":"` + leadID.String() + `","title":"Website rebuild"}`,
			created:    false,
			wantStatus: http.StatusOK,
			wantCalled: true,
		},
		{
			name:       "missing title",
			body:       `{"leadId":"` + leadID.String() + `"}`,
			wantStatus: http.StatusBadRequest,
		},
		{
			name:       "lead id not a uuid",
			body:       `{"leadId":"abc","title":"x"}`,
			wantStatus: http.StatusBadRequest,
		},
		{
			name:       "bad deadline",
			body:       `{"leadId":"` + leadID.String() + `","title":"x","deadline":"next week"}`,
			wantStatus: http.StatusBadRequest,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var got domain.CreateProjectParams
			called := false
			projects := &mockProjectService{
				CreateFunc: func(ctx context.Context, params domain.CreateProjectParams) (*domain.Project, bool, error) {
					called = true
					got = params
					return &domain.Project{ID: uuid.New(), LeadID: params.LeadID, Title: params.Title, Status: domain.ProjectStatusInDiscussion}, tt.created, nil
				},
			}
			mux := newTestProjectMux(projects)

			req := httptest.NewRequest(http.MethodPost, "/user/create-project", strings.NewReader(tt.body))
			rec := httptest.NewRecorder()
			mux.ServeHTTP(rec, withUser(req, user))

			if rec.Code != tt.wantStatus {
				t.Fatalf("expected status %d, got %d: %s", tt.wantStatus, rec.Code, rec.Body.String())
			}
			if called != tt.wantCalled {
				t.Fatalf("service called = %v, want %v", called, tt.wantCalled)
			}
			if called && (got.UserID != user.ID || got.LeadID != leadID) {
				t.Errorf("unexpected params: %+v", got)
			}
		})
	}
}

func TestProjectHandler_List(t *testing.T) {
	projects := &mockProjectService{
		ListFunc: func(ctx context.Context, userID uuid.UUID, status domain.ProjectStatus) ([]domain.Project, error) {
			return []domain.Project{
				{ID: uuid.New(), Title: "a", Status: domain.ProjectStatusOngoing},
				{ID: uuid.New(), Title: "b", Status: domain.ProjectStatusCompleted},
				{ID: uuid.New(), Title: "c", Status: domain.ProjectStatusOngoing},
			}, nil
		},
	}
	mux := newTestProjectMux(projects)

	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, withUser(httptest.NewRequest(http.MethodGet, "/user/get-projects", nil), testUser()))

	if rec.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d", rec.Code)
	}

	var body struct {
		Count    int                    `json:"count"`
		Projects domain.GroupedProjects `json:"projects"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatalf("failed to decode body: %v", err)
	}
	if body.Count != 3 {
		t.Errorf("expected count 3, got %d", body.Count)
	}
	if len(body.Projects.Ongoing) != 2 || len(body.Projects.Completed) != 1 || len(body.Projects.InDiscussion) != 0 {
		t.Errorf("unexpected grouping: %+v", body.Projects)
	}

	// Unknown status filters are rejected before the service is called.
	rec = httptest.NewRecorder()
	mux.ServeHTTP(rec, withUser(httptest.NewRequest(http.MethodGet, "/user/get-projects?status=paused", nil), testUser()))
	if rec.Code != http.StatusBadRequest {
		t.Errorf("expected status 400 for unknown status, got %d", rec.Code)
	}
}

func TestProjectHandler_UpdateStatus(t *testing.T) {
	projectID := uuid.New()

	tests := []struct {
		name       string
		path       string
		body       string
		wantStatus int
	}{
		{"ongoing", "/user/projects/" + projectID.String() + "/status", `{"status":"ongoing"}`, http.StatusOK},
		{"invalid status", "/user/projects/" + projectID.String() + "/status", `{"status":"paused"}`, http.StatusBadRequest},
		{"bad id", "/user/projects/nope/status", `{"status":"ongoing"}`, http.StatusBadRequest},
		{"not owned", "/user/projects/" + uuid.NewString() + "/status", `{"status":"completed"}`, http.StatusNotFound},
	}

	projects := &mockProjectService{
		UpdateStatusFunc: func(ctx context.Context, userID, id uuid.UUID, status domain.ProjectStatus) (*domain.Project, error) {
			if id != projectID {
				return nil, domain.NotFound("project.update_status", "project", id.String())
			}
			return &domain.Project{ID: id, Status: status}, nil
		},
	}
	mux := newTestProjectMux(projects)

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodPut, tt.path, strings.NewReader(tt.body))
			rec := httptest.NewRecorder()
			mux.ServeHTTP(rec, withUser(req, testUser()))

			if rec.Code != tt.wantStatus {
				t.Errorf("expected status %d, got %d: %s", tt.wantStatus, rec.Code, rec.Body.String())
			}
		})
	}
}

func TestProjectHandler_Delete(t *testing.T) {
	var deleted uuid.UUID
	projects := &mockProjectService{
		DeleteFunc: func(ctx context.Context, userID, projectID uuid.UUID) error {
			deleted = projectID
			return nil
		},
	}
	mux := newTestProjectMux(projects)

	id := uuid.New()
	req := httptest.NewRequest(http.MethodDelete, "/user/projects/"+id.String(), nil)
	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, withUser(req, testUser()))

	if rec.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d", rec.Code)
	}
	if deleted != id {
		t.Errorf("expected project %s deleted, got %s", id, deleted)
	}
}
