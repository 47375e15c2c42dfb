package handler

import (
	"log/slog"
	"net/http"

	"github.com/DukeRupert/nexleads/internal/service"
)

// DashboardHandler serves the user's dashboard summary.
type DashboardHandler struct {
	dashboard service.DashboardService
	logger    *slog.Logger
}

// NewDashboardHandler creates a new DashboardHandler.
func NewDashboardHandler(dashboard service.DashboardService, logger *slog.Logger) *DashboardHandler {
	return &DashboardHandler{
		dashboard: dashboard,
		logger:    logger,
	}
}

// RegisterRoutes registers GET /user/stats.
func (h *DashboardHandler) RegisterRoutes(mux *http.ServeMux, requireUser func(http.Handler) http.Handler) {
	mux.Handle("GET /user/stats", requireUser(http.HandlerFunc(h.Stats)))
}

func (h *DashboardHandler) Stats(w http.ResponseWriter, r *http.Request) {
	user, ok := currentUser(w, r, h.logger)
	if !ok {
		return
	}

	stats, err := h.dashboard.Stats(r.Context(), user.ID)
	if err != nil {
		ErrorResponse(w, r, h.logger, err)
		return
	}

	writeJSON(w, http.StatusOK, stats)
}
