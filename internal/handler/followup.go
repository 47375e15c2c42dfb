package handler

import (
	"log/slog"
	"net/http"

	"github.com/DukeRupert/nexleads/internal/domain"
	"github.com/DukeRupert/nexleads/internal/service"
)

// FollowUpHandler handles follow-up campaign tracking.
//
// Routes handled:
//   - GET  /user/followup-stats          -> Stats
//   - POST /user/followup-record         -> Record
//   - POST /user/followups/{id}/send     -> Send
//   - PUT  /user/followups/{id}          -> UpdateCounts
type FollowUpHandler struct {
	followUps service.FollowUpService
	logger    *slog.Logger
}

// NewFollowUpHandler creates a new FollowUpHandler.
func NewFollowUpHandler(followUps service.FollowUpService, logger *slog.Logger) *FollowUpHandler {
	return &FollowUpHandler{
		followUps: followUps,
		logger:    logger,
	}
}

// RegisterRoutes registers follow-up routes on the provided mux.
func (h *FollowUpHandler) RegisterRoutes(mux *http.ServeMux, requireUser func(http.Handler) http.Handler) {
	mux.Handle("GET /user/followup-stats", requireUser(http.HandlerFunc(h.Stats)))
	mux.Handle("POST /user/followup-record", requireUser(http.HandlerFunc(h.Record)))
	mux.Handle("POST /user/followups/{id}/send", requireUser(http.HandlerFunc(h.Send)))
	mux.Handle("PUT /user/followups/{id}", requireUser(http.HandlerFunc(h.UpdateCounts)))
}

// Stats totals follow-up records. Query parameters: platform, dateFrom and
// dateTo.
func (h *FollowUpHandler) Stats(w http.ResponseWriter, r *http.Request) {
	const op = "followup.stats"

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

	stats, err := h.followUps.Stats(r.Context(), domain.FollowUpFilter{
		UserID:   user.ID,
		Platform: q.Get("platform"),
		DateFrom: dateFrom,
		DateTo:   dateTo,
	})
	if err != nil {
		ErrorResponse(w, r, h.logger, err)
		return
	}

	writeJSON(w, http.StatusOK, stats)
}

type followUpRecordRequest struct {
	JobField       string `json:"jobField" validate:"required"`
	Platform       string `json:"platform" validate:"required"`
	TotalLeadsSent int    `json:"totalLeadsSent" validate:"min=0"`
}

// Record creates a follow-up record.
func (h *FollowUpHandler) Record(w http.ResponseWriter, r *http.Request) {
	const op = "followup.record"

	user, ok := currentUser(w, r, h.logger)
	if !ok {
		return
	}

	var req followUpRecordRequest
	if err := decodeJSON(w, r, op, &req); err != nil {
		ErrorResponse(w, r, h.logger, err)
		return
	}

	record, err := h.followUps.Record(r.Context(), domain.CreateFollowUpParams{
		UserID:         user.ID,
		JobField:       req.JobField,
		Platform:       req.Platform,
		TotalLeadsSent: req.TotalLeadsSent,
	})
	if err != nil {
		ErrorResponse(w, r, h.logger, err)
		return
	}

	writeJSON(w, http.StatusCreated, map[string]any{
		"message":  "Follow-up record created",
		"followUp": record,
	})
}

type followUpSendRequest struct {
	Subject    string             `json:"subject" validate:"required"`
	Body       string             `json:"body" validate:"required"`
	Recipients []domain.Recipient `json:"recipients" validate:"required,min=1,dive"`
}

// Send delivers a follow-up message and updates the record's counters.
func (h *FollowUpHandler) Send(w http.ResponseWriter, r *http.Request) {
	const op = "followup.send"

	user, ok := currentUser(w, r, h.logger)
	if !ok {
		return
	}
	id, err := pathID(r, "id", op)
	if err != nil {
		ErrorResponse(w, r, h.logger, err)
		return
	}

	var req followUpSendRequest
	if err := decodeJSON(w, r, op, &req); err != nil {
		ErrorResponse(w, r, h.logger, err)
		return
	}

	record, result, err := h.followUps.Send(r.Context(), domain.SendFollowUpParams{
		ID:         id,
		UserID:     user.ID,
		Subject:    req.Subject,
		Body:       req.Body,
		Recipients: req.Recipients,
	})
	if err != nil {
		ErrorResponse(w, r, h.logger, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"message":  "Follow-up sent",
		"sent":     result.Sent,
		"failed":   result.Failed,
		"followUp": record,
	})
}

type followUpCountsRequest struct {
	TotalLeadsSent int `json:"totalLeadsSent" validate:"min=0"`
	FollowUpsSent  int `json:"followUpsSent" validate:"min=0"`
	Responses      int `json:"responses" validate:"min=0"`
}

// UpdateCounts overwrites a record's counters.
func (h *FollowUpHandler) UpdateCounts(w http.ResponseWriter, r *http.Request) {
	const op = "followup.update"

	user, ok := currentUser(w, r, h.logger)
	if !ok {
		return
	}
	id, err := pathID(r, "id", op)
	if err != nil {
		ErrorResponse(w, r, h.logger, err)
		return
	}

	var req followUpCountsRequest
	if err := decodeJSON(w, r, op, &req); err != nil {
		ErrorResponse(w, r, h.logger, err)
		return
	}

	record, err := h.followUps.UpdateCounts(r.Context(), domain.UpdateFollowUpParams{
		ID:             id,
		UserID:         user.ID,
		TotalLeadsSent: req.TotalLeadsSent,
		FollowUpsSent:  req.FollowUpsSent,
		Responses:      req.Responses,
	})
	if err != nil {
		ErrorResponse(w, r, h.logger, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"message":  "Follow-up updated",
		"followUp": record,
	})
}
