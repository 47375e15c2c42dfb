package handler

import (
	"log/slog"
	"net/http"

	"github.com/DukeRupert/nexleads/internal/domain"
	"github.com/DukeRupert/nexleads/internal/service"
)

// LeadHandler handles lead search and management requests.
//
// Search and save are metered by the quota gate inside LeadService; a denial
// surfaces as a 403 carrying leadsUsed and leadsLimit.
//
// Routes handled:
//   - GET  /user/search                   -> Search
//   - POST /user/save-lead                -> Save
//   - GET  /user/get-my-leads             -> List
//   - PUT  /user/leads/{leadId}/status    -> UpdateStatus
type LeadHandler struct {
	leads  service.LeadService
	logger *slog.Logger
}

// NewLeadHandler creates a new LeadHandler.
func NewLeadHandler(leads service.LeadService, logger *slog.Logger) *LeadHandler {
	return &LeadHandler{
		leads:  leads,
		logger: logger,
	}
}

// RegisterRoutes registers lead routes on the provided mux.
func (h *LeadHandler) RegisterRoutes(mux *http.ServeMux, requireUser func(http.Handler) http.Handler) {
	mux.Handle("GET /user/search", requireUser(http.HandlerFunc(h.Search)))
	mux.Handle("POST /user/save-lead", requireUser(http.HandlerFunc(h.Save)))
	mux.Handle("GET /user/get-my-leads", requireUser(http.HandlerFunc(h.List)))
	mux.Handle("PUT /user/leads/{leadId}/status", requireUser(http.HandlerFunc(h.UpdateStatus)))
}

type searchResponse struct {
	Message string        `json:"message"`
	Fetched int           `json:"fetched"`
	Saved   int           `json:"saved"`
	Leads   []domain.Lead `json:"leads"`
}

// Search fetches leads for a keyword and saves the new ones.
//
// Query parameters: keyword (required), platforms (comma separated),
// dateFrom and dateTo (YYYY-MM-DD or RFC 3339).
func (h *LeadHandler) Search(w http.ResponseWriter, r *http.Request) {
	const op = "lead.search"

	user, ok := currentUser(w, r, h.logger)
	if !ok {
		return
	}

	q := r.URL.Query()
	dateFrom, err := parseDateParam(q.Get("dateFrom"), op, "dateFrom", false)
	if err != nil {
		ErrorResponse(w, r, h.logger, err)
		return
	}
	dateTo, err := parseDateParam(q.Get("dateTo"), op, "dateTo", true)
	if err != nil {
		ErrorResponse(w, r, h.logger, err)
		return
	}

	result, err := h.leads.Search(r.Context(), domain.LeadSearchParams{
		UserID:    user.ID,
		Keyword:   q.Get("keyword"),
		Platforms: splitList(q.Get("platforms")),
		DateFrom:  dateFrom,
		DateTo:    dateTo,
	})
	if err != nil {
		ErrorResponse(w, r, h.logger, err)
		return
	}

	if result.Fetched == 0 {
		writeJSON(w, http.StatusOK, searchResponse{Message: "No leads found", Leads: []domain.Lead{}})
		return
	}

	writeJSON(w, http.StatusCreated, searchResponse{
		Message: "Leads fetched and saved successfully",
		Fetched: result.Fetched,
		Saved:   result.Saved,
		Leads:   result.Leads,
	})
}

type saveLeadRequest struct {
	Name        string `json:"name"`
	Email       string `json:"email" validate:"required,email"`
	Company     string `json:"company"`
	Title       string `json:"title"`
	Platform    string `json:"platform"`
	ProfileURL  string `json:"profileUrl" validate:"omitempty,url"`
	Description string `json:"description"`
}

// Save stores one lead entered by the user.
func (h *LeadHandler) Save(w http.ResponseWriter, r *http.Request) {
	const op = "lead.save"

	user, ok := currentUser(w, r, h.logger)
	if !ok {
		return
	}

	var req saveLeadRequest
	if err := decodeJSON(w, r, op, &req); err != nil {
		ErrorResponse(w, r, h.logger, err)
		return
	}

	lead, err := h.leads.Save(r.Context(), domain.SaveLeadParams{
		UserID:      user.ID,
		Name:        req.Name,
		Email:       req.Email,
		Company:     req.Company,
		Title:       req.Title,
		Platform:    req.Platform,
		ProfileURL:  req.ProfileURL,
		Description: req.Description,
	})
	if err != nil {
		ErrorResponse(w, r, h.logger, err)
		return
	}

	writeJSON(w, http.StatusCreated, map[string]any{
		"message": "Lead saved successfully",
		"lead":    lead,
	})
}

// List returns the user's leads, newest first.
func (h *LeadHandler) List(w http.ResponseWriter, r *http.Request) {
	user, ok := currentUser(w, r, h.logger)
	if !ok {
		return
	}

	leads, err := h.leads.List(r.Context(), user.ID)
	if err != nil {
		ErrorResponse(w, r, h.logger, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"count": len(leads),
		"leads": leads,
	})
}

type leadStatusRequest struct {
	Status domain.LeadStatus `json:"status" validate:"required,oneof=new contacted responded in_discussion ongoing completed lost"`
}

// UpdateStatus moves a lead through the outreach funnel.
func (h *LeadHandler) UpdateStatus(w http.ResponseWriter, r *http.Request) {
	const op = "lead.update_status"

	user, ok := currentUser(w, r, h.logger)
	if !ok {
		return
	}

	leadID, err := pathID(r, "leadId", op)
	if err != nil {
		ErrorResponse(w, r, h.logger, err)
		return
	}

	var req leadStatusRequest
	if err := decodeJSON(w, r, op, &req); err != nil {
		ErrorResponse(w, r, h.logger, err)
		return
	}

	lead, err := h.leads.UpdateStatus(r.Context(), user.ID, leadID, req.Status)
	if err != nil {
		ErrorResponse(w, r, h.logger, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"message": "Lead status updated",
		"lead":    lead,
	})
}
