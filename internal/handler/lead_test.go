package handler

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/DukeRupert/nexleads/internal/domain"
	"github.com/google/uuid"
)

func newTestLeadMux(leads *mockLeadService) *http.ServeMux {
	mux := http.NewServeMux()
	NewLeadHandler(leads, newTestLogger()).RegisterRoutes(mux, passthrough)
	return mux
}

func TestLeadHandler_Search(t *testing.T) {
	user := testUser()
	var got domain.LeadSearchParams
	leads := &mockLeadService{
		SearchFunc: func(ctx context.Context, params domain.LeadSearchParams) (*domain.LeadSearchResult, error) {
			got = params
			return &domain.LeadSearchResult{
				Fetched: 3,
				Saved:   2,
				Leads:   []domain.Lead{{ID: uuid.New(), Email: "a@example.com"}, {ID: uuid.New(), Email: "b@example.com"}},
			}, nil
		},
	}
	mux := newTestLeadMux(leads)

	req := httptest.NewRequest(http.MethodGet, "/user/search?keyword=golang&platforms=linkedin,%20upwork&dateFrom=2024-03-01&dateTo=2024-03-31", nil)
	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, withUser(req, user))

	if rec.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d: %s", rec.Code, rec.Body.String())
	}
	if got.UserID != user.ID || got.Keyword != "golang" {
		t.Errorf("unexpected params: %+v", got)
	}
	if len(got.Platforms) != 2 || got.Platforms[1] != "upwork" {
		t.Errorf("expected trimmed platforms, got %v", got.Platforms)
	}
	if got.DateFrom == nil || !got.DateFrom.Equal(time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC)) {
		t.Errorf("unexpected dateFrom: %v", got.DateFrom)
	}
	if got.DateTo == nil || got.DateTo.Day() != 31 || got.DateTo.Hour() != 23 {
		t.Errorf("dateTo should cover the whole day, got %v", got.DateTo)
	}

	var body searchResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatalf("invalid JSON: %v", err)
	}
	if body.Fetched != 3 || body.Saved != 2 || len(body.Leads) != 2 {
		t.Errorf("unexpected body: %+v", body)
	}
}

func TestLeadHandler_Search_NoResults(t *testing.T) {
	leads := &mockLeadService{
		SearchFunc: func(ctx context.Context, params domain.LeadSearchParams) (*domain.LeadSearchResult, error) {
			return &domain.LeadSearchResult{}, nil
		},
	}
	mux := newTestLeadMux(leads)

	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, withUser(httptest.NewRequest(http.MethodGet, "/user/search?keyword=cobol", nil), testUser()))

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	if !strings.Contains(rec.Body.String(), `"leads":[]`) {
		t.Errorf("expected empty leads array, got %s", rec.Body.String())
	}
}

func TestLeadHandler_Search_QuotaDenied(t *testing.T) {
	leads := &mockLeadService{
		SearchFunc: func(ctx context.Context, params domain.LeadSearchParams) (*domain.LeadSearchResult, error) {
			return nil, domain.QuotaExceeded("lead.search", 30, 30)
		},
	}
	mux := newTestLeadMux(leads)

	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, withUser(httptest.NewRequest(http.MethodGet, "/user/search?keyword=go", nil), testUser()))

	if rec.Code != http.StatusForbidden {
		t.Fatalf("expected 403, got %d", rec.Code)
	}
	var body QuotaErrorBody
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatalf("invalid JSON: %v", err)
	}
	if body.LeadsUsed != 30 || body.LeadsLimit != 30 {
		t.Errorf("expected counters 30/30, got %d/%d", body.LeadsUsed, body.LeadsLimit)
	}
}

func TestLeadHandler_Search_BadDate(t *testing.T) {
	mux := newTestLeadMux(&mockLeadService{})

	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, withUser(httptest.NewRequest(http.MethodGet, "/user/search?keyword=go&dateFrom=03/01/2024", nil), testUser()))

	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", rec.Code)
	}
	if !strings.Contains(rec.Body.String(), "dateFrom") {
		t.Errorf("expected dateFrom field error, got %s", rec.Body.String())
	}
}

func TestLeadHandler_Save(t *testing.T) {
	tests := []struct {
		name   string
		body   string
		status int
	}{
		{"valid", `{"name":"Ann","email":"ann@example.com","platform":"linkedin"}`, http.StatusCreated},
		{"missing email", `{"name":"Ann"}`, http.StatusBadRequest},
		{"bad profile url", `{"email":"ann@example.com","profileUrl":"not a url"}`, http.StatusBadRequest},
		{"malformed json", `{"email":`, http.StatusBadRequest},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			leads := &mockLeadService{
				SaveFunc: func(ctx context.Context, params domain.SaveLeadParams) (*domain.Lead, error) {
					return &domain.Lead{ID: uuid.New(), UserID: params.UserID, Email: params.Email}, nil
				},
			}
			mux := newTestLeadMux(leads)

			req := httptest.NewRequest(http.MethodPost, "/user/save-lead", strings.NewReader(tt.body))
			rec := httptest.NewRecorder()
			mux.ServeHTTP(rec, withUser(req, testUser()))

			if rec.Code != tt.status {
				t.Errorf("expected %d, got %d: %s", tt.status, rec.Code, rec.Body.String())
			}
		})
	}
}

func TestLeadHandler_UpdateStatus(t *testing.T) {
	leadID := uuid.New()
	leads := &mockLeadService{
		UpdateStatusFunc: func(ctx context.Context, userID, id uuid.UUID, status domain.LeadStatus) (*domain.Lead, error) {
			if id != leadID {
				return nil, domain.NotFound("lead.update_status", "lead", id.String())
			}
			return &domain.Lead{ID: id, Status: status}, nil
		},
	}
	mux := newTestLeadMux(leads)

	tests := []struct {
		name   string
		path   string
		body   string
		status int
	}{
		{"valid", "/user/leads/" + leadID.String() + "/status", `{"status":"contacted"}`, http.StatusOK},
		{"unknown status", "/user/leads/" + leadID.String() + "/status", `{"status":"won"}`, http.StatusBadRequest},
		{"bad id", "/user/leads/nope/status", `{"status":"contacted"}`, http.StatusBadRequest},
		{"not found", "/user/leads/" + uuid.NewString() + "/status", `{"status":"contacted"}`, http.StatusNotFound},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodPut, tt.path, strings.NewReader(tt.body))
			rec := httptest.NewRecorder()
			mux.ServeHTTP(rec, withUser(req, testUser()))

			if rec.Code != tt.status {
				t.Errorf("expected %d, got %d: %s", tt.status, rec.Code, rec.Body.String())
			}
		})
	}
}
