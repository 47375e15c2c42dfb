package handler

import (
	"log/slog"
	"net/http"
	"strings"

	"github.com/DukeRupert/nexleads/internal/service"
)

// AdminHandler handles the staff console API.
//
// Routes handled (all behind requireAdmin):
//   - GET /admin/stats                   -> Stats
//   - GET /admin/users                   -> ListUsers
//   - GET /admin/users/{userId}          -> UserDetail
//   - PUT /admin/users/{userId}/block    -> ToggleBlocked
type AdminHandler struct {
	admin  service.AdminService
	logger *slog.Logger
}

// NewAdminHandler creates a new AdminHandler.
func NewAdminHandler(admin service.AdminService, logger *slog.Logger) *AdminHandler {
	return &AdminHandler{
		admin:  admin,
		logger: logger,
	}
}

// RegisterRoutes registers admin routes with the provided middleware.
func (h *AdminHandler) RegisterRoutes(
	mux *http.ServeMux,
	requireAdmin func(http.Handler) http.Handler,
) {
	mux.Handle("GET /admin/stats", requireAdmin(http.HandlerFunc(h.Stats)))
	mux.Handle("GET /admin/users", requireAdmin(http.HandlerFunc(h.ListUsers)))
	mux.Handle("GET /admin/users/{userId}", requireAdmin(http.HandlerFunc(h.UserDetail)))
	mux.Handle("PUT /admin/users/{userId}/block", requireAdmin(http.HandlerFunc(h.ToggleBlocked)))
}

// Stats returns platform totals.
func (h *AdminHandler) Stats(w http.ResponseWriter, r *http.Request) {
	stats, err := h.admin.Stats(r.Context())
	if err != nil {
		ErrorResponse(w, r, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, stats)
}

// ListUsers returns customer accounts, filtered by ?search= on name or email.
func (h *AdminHandler) ListUsers(w http.ResponseWriter, r *http.Request) {
	users, err := h.admin.ListUsers(r.Context(), strings.TrimSpace(r.URL.Query().Get("search")))
	if err != nil {
		ErrorResponse(w, r, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"count": len(users),
		"users": users,
	})
}

// UserDetail returns an account with its plan history and leads.
func (h *AdminHandler) UserDetail(w http.ResponseWriter, r *http.Request) {
	const op = "admin.user_detail"

	id, err := pathID(r, "userId", op)
	if err != nil {
		ErrorResponse(w, r, h.logger, err)
		return
	}

	detail, err := h.admin.GetUser(r.Context(), id)
	if err != nil {
		ErrorResponse(w, r, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, detail)
}

// ToggleBlocked blocks or unblocks an account.
func (h *AdminHandler) ToggleBlocked(w http.ResponseWriter, r *http.Request) {
	const op = "admin.toggle_blocked"

	id, err := pathID(r, "userId", op)
	if err != nil {
		ErrorResponse(w, r, h.logger, err)
		return
	}

	blocked, err := h.admin.ToggleBlocked(r.Context(), id)
	if err != nil {
		ErrorResponse(w, r, h.logger, err)
		return
	}

	message := "User unblocked successfully"
	if blocked {
		message = "User blocked successfully"
	}
	h.logger.Info("admin toggled user block", "user_id", id, "blocked", blocked)

	writeJSON(w, http.StatusOK, map[string]any{
		"message":   message,
		"isBlocked": blocked,
	})
}
