package handler

import (
	"bytes"
	"encoding/json"
	"errors"
	"image"
	"image/color"
	"image/png"
	"io"
	"log/slog"
	"mime/multipart"
	"net/http"
	"strings"

	"github.com/DukeRupert/nexleads/internal/domain"
	"github.com/DukeRupert/nexleads/internal/service"
	"github.com/google/uuid"
)

const (
	// MaxComposeSize bounds a compose request: every attachment at the limit
	// plus room for the text fields.
	MaxComposeSize = domain.MaxAttachments*domain.MaxAttachmentSize + 1<<20

	// composeMemory is how much of a multipart form is held in memory before
	// spilling to temporary files.
	composeMemory = 8 << 20
)

// trackingPixel is a transparent 1x1 PNG.
var trackingPixel = func() []byte {
	img := image.NewNRGBA(image.Rect(0, 0, 1, 1))
	img.Set(0, 0, color.NRGBA{})
	var buf bytes.Buffer
	_ = png.Encode(&buf, img)
	return buf.Bytes()
}()

// EmailHandler handles outreach email requests.
//
// Routes handled:
//   - POST /user/compose                     -> Compose (multipart)
//   - GET  /user/open/{file}                 -> TrackOpen (public pixel)
//   - POST /user/bulk                        -> Bulk (paid plans)
//   - GET  /user/get-emails                  -> List
//   - GET  /user/emails/{emailId}            -> Get
//   - POST /user/draft                       -> SaveDraft
//   - PUT  /user/emails/{emailId}/move       -> Move
//   - PUT  /user/emails/{emailId}/resend     -> Resend
type EmailHandler struct {
	emails service.EmailService
	logger *slog.Logger
}

// NewEmailHandler creates a new EmailHandler.
func NewEmailHandler(emails service.EmailService, logger *slog.Logger) *EmailHandler {
	return &EmailHandler{
		emails: emails,
		logger: logger,
	}
}

// RegisterRoutes registers email routes on the provided mux. requirePaid
// must include the authentication check.
func (h *EmailHandler) RegisterRoutes(mux *http.ServeMux, requireUser, requirePaid func(http.Handler) http.Handler) {
	mux.HandleFunc("GET /user/open/{file}", h.TrackOpen)
	mux.Handle("POST /user/compose", requireUser(http.HandlerFunc(h.Compose)))
	mux.Handle("POST /user/bulk", requirePaid(http.HandlerFunc(h.Bulk)))
	mux.Handle("GET /user/get-emails", requireUser(http.HandlerFunc(h.List)))
	mux.Handle("GET /user/emails/{emailId}", requireUser(http.HandlerFunc(h.Get)))
	mux.Handle("POST /user/draft", requireUser(http.HandlerFunc(h.SaveDraft)))
	mux.Handle("PUT /user/emails/{emailId}/move", requireUser(http.HandlerFunc(h.Move)))
	mux.Handle("PUT /user/emails/{emailId}/resend", requireUser(http.HandlerFunc(h.Resend)))
}

// =============================================================================
// POST /user/compose
// =============================================================================

type composeResponse struct {
	Message    string         `json:"message"`
	EmailsSent []domain.Email `json:"emailsSent"`
	Count      int            `json:"count"`
	Sent       int            `json:"sent"`
	Failed     int            `json:"failed"`
}

// Compose sends a message to selected leads.
//
// Form fields: subject, body, leadIds (a JSON array or repeated field) and up
// to five files named attachments.
func (h *EmailHandler) Compose(w http.ResponseWriter, r *http.Request) {
	const op = "email.compose"

	user, ok := currentUser(w, r, h.logger)
	if !ok {
		return
	}

	r.Body = http.MaxBytesReader(w, r.Body, MaxComposeSize)
	if err := r.ParseMultipartForm(composeMemory); err != nil {
		var maxErr *http.MaxBytesError
		if errors.As(err, &maxErr) {
			ErrorResponse(w, r, h.logger, domain.Errorf(domain.ETOOLARGE, op, "Request body too large"))
			return
		}
		ErrorResponse(w, r, h.logger, domain.Invalid(op, "Expected multipart form data"))
		return
	}
	defer r.MultipartForm.RemoveAll()

	leadIDs, err := parseLeadIDs(r.MultipartForm.Value["leadIds"], op)
	if err != nil {
		ErrorResponse(w, r, h.logger, err)
		return
	}

	attachments, err := readAttachments(r.MultipartForm.File["attachments"], op)
	if err != nil {
		ErrorResponse(w, r, h.logger, err)
		return
	}

	result, err := h.emails.Compose(r.Context(), domain.ComposeParams{
		UserID:      user.ID,
		LeadIDs:     leadIDs,
		Subject:     r.FormValue("subject"),
		Body:        r.FormValue("body"),
		Attachments: attachments,
	})
	if err != nil {
		ErrorResponse(w, r, h.logger, err)
		return
	}

	writeJSON(w, http.StatusCreated, composeResponse{
		Message:    "Emails sent successfully",
		EmailsSent: result.Emails,
		Count:      len(result.Emails),
		Sent:       result.Sent,
		Failed:     result.Failed,
	})
}

// parseLeadIDs accepts leadIds as one JSON array or as repeated values.
func parseLeadIDs(values []string, op string) ([]uuid.UUID, error) {
	var raw []string
	for _, v := range values {
		v = strings.TrimSpace(v)
		if strings.HasPrefix(v, "[") {
			var arr []string
			if err := json.Unmarshal([]byte(v), &arr); err != nil {
				return nil, domain.NewValidationError(op, "leadIds", "Must be a JSON array of IDs")
			}
			raw = append(raw, arr...)
			continue
		}
		if v != "" {
			raw = append(raw, v)
		}
	}

	ids := make([]uuid.UUID, 0, len(raw))
	for _, s := range raw {
		id, err := uuid.Parse(strings.TrimSpace(s))
		if err != nil {
			return nil, domain.NewValidationError(op, "leadIds", "Must be a valid ID")
		}
		ids = append(ids, id)
	}
	return ids, nil
}

func readAttachments(files []*multipart.FileHeader, op string) ([]domain.AttachmentUpload, error) {
	if len(files) > domain.MaxAttachments {
		return nil, domain.Invalid(op, "At most 5 attachments are allowed")
	}

	uploads := make([]domain.AttachmentUpload, 0, len(files))
	for _, fh := range files {
		if fh.Size > domain.MaxAttachmentSize {
			return nil, domain.Errorf(domain.ETOOLARGE, op, "Attachment %q exceeds 10 MB", fh.Filename)
		}
		f, err := fh.Open()
		if err != nil {
			return nil, domain.Internal(err, op, "Failed to read attachment")
		}
		data, err := io.ReadAll(io.LimitReader(f, domain.MaxAttachmentSize+1))
		f.Close()
		if err != nil {
			return nil, domain.Internal(err, op, "Failed to read attachment")
		}
		uploads = append(uploads, domain.AttachmentUpload{Filename: fh.Filename, Data: data})
	}
	return uploads, nil
}

// =============================================================================
// GET /user/open/{file}
// =============================================================================

// TrackOpen records that an email was opened and serves the pixel. The path
// value is "<emailId>.png".
func (h *EmailHandler) TrackOpen(w http.ResponseWriter, r *http.Request) {
	const op = "email.track_open"

	id, err := uuid.Parse(strings.TrimSuffix(r.PathValue("file"), ".png"))
	if err != nil {
		ErrorResponse(w, r, h.logger, domain.Errorf(domain.ENOTFOUND, op, "Email not found"))
		return
	}

	if err := h.emails.TrackOpen(r.Context(), id); err != nil {
		ErrorResponse(w, r, h.logger, err)
		return
	}

	w.Header().Set("Content-Type", "image/png")
	w.Header().Set("Cache-Control", "no-store, no-cache, must-revalidate, private")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(trackingPixel)
}

// =============================================================================
// POST /user/bulk
// =============================================================================

type bulkRequest struct {
	Recipients []domain.Recipient `json:"recipients" validate:"required,min=1,dive"`
	Subject    string             `json:"subject" validate:"required"`
	Body       string             `json:"body" validate:"required"`
}

type sendResponse struct {
	Message string `json:"message"`
	Sent    int    `json:"sent"`
	Failed  int    `json:"failed"`
}

// Bulk sends one message to a list of recipients.
func (h *EmailHandler) Bulk(w http.ResponseWriter, r *http.Request) {
	const op = "email.bulk"

	user, ok := currentUser(w, r, h.logger)
	if !ok {
		return
	}

	var req bulkRequest
	if err := decodeJSON(w, r, op, &req); err != nil {
		ErrorResponse(w, r, h.logger, err)
		return
	}

	result, err := h.emails.SendBulk(r.Context(), domain.BulkSendParams{
		UserID:     user.ID,
		Recipients: req.Recipients,
		Subject:    req.Subject,
		Body:       req.Body,
	})
	if err != nil {
		ErrorResponse(w, r, h.logger, err)
		return
	}

	writeJSON(w, http.StatusOK, sendResponse{
		Message: "Bulk emails processed",
		Sent:    result.Sent,
		Failed:  result.Failed,
	})
}

// =============================================================================
// Mailbox
// =============================================================================

// List returns emails in the folder given by ?folder=, or all emails.
func (h *EmailHandler) List(w http.ResponseWriter, r *http.Request) {
	user, ok := currentUser(w, r, h.logger)
	if !ok {
		return
	}

	emails, err := h.emails.List(r.Context(), user.ID, r.URL.Query().Get("folder"))
	if err != nil {
		ErrorResponse(w, r, h.logger, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"count":  len(emails),
		"emails": emails,
	})
}

// Get returns one email.
func (h *EmailHandler) Get(w http.ResponseWriter, r *http.Request) {
	const op = "email.get"

	user, ok := currentUser(w, r, h.logger)
	if !ok {
		return
	}
	id, err := pathID(r, "emailId", op)
	if err != nil {
		ErrorResponse(w, r, h.logger, err)
		return
	}

	e, err := h.emails.Get(r.Context(), user.ID, id)
	if err != nil {
		ErrorResponse(w, r, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"email": e})
}

type draftRequest struct {
	To      string `json:"to" validate:"omitempty,email"`
	Subject string `json:"subject"`
	Body    string `json:"body"`
}

// SaveDraft stores a message without sending it.
func (h *EmailHandler) SaveDraft(w http.ResponseWriter, r *http.Request) {
	const op = "email.draft"

	user, ok := currentUser(w, r, h.logger)
	if !ok {
		return
	}

	var req draftRequest
	if err := decodeJSON(w, r, op, &req); err != nil {
		ErrorResponse(w, r, h.logger, err)
		return
	}

	e, err := h.emails.SaveDraft(r.Context(), domain.DraftParams{
		UserID:  user.ID,
		To:      req.To,
		Subject: req.Subject,
		Body:    req.Body,
	})
	if err != nil {
		ErrorResponse(w, r, h.logger, err)
		return
	}

	writeJSON(w, http.StatusCreated, map[string]any{
		"message": "Draft saved successfully",
		"email":   e,
	})
}

type moveRequest struct {
	Folder domain.EmailFolder `json:"folder" validate:"required,oneof=inbox sent drafts spam trash"`
}

// Move files an email into another folder.
func (h *EmailHandler) Move(w http.ResponseWriter, r *http.Request) {
	const op = "email.move"

	user, ok := currentUser(w, r, h.logger)
	if !ok {
		return
	}
	id, err := pathID(r, "emailId", op)
	if err != nil {
		ErrorResponse(w, r, h.logger, err)
		return
	}

	var req moveRequest
	if err := decodeJSON(w, r, op, &req); err != nil {
		ErrorResponse(w, r, h.logger, err)
		return
	}

	e, err := h.emails.Move(r.Context(), user.ID, id, req.Folder)
	if err != nil {
		ErrorResponse(w, r, h.logger, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"message": "Email moved to " + string(req.Folder),
		"email":   e,
	})
}

type resendRequest struct {
	Body string `json:"body" validate:"required"`
}

// Resend replaces the body of a stored email and sends it again.
func (h *EmailHandler) Resend(w http.ResponseWriter, r *http.Request) {
	const op = "email.resend"

	user, ok := currentUser(w, r, h.logger)
	if !ok {
		return
	}
	id, err := pathID(r, "emailId", op)
	if err != nil {
		ErrorResponse(w, r, h.logger, err)
		return
	}

	var req resendRequest
	if err := decodeJSON(w, r, op, &req); err != nil {
		ErrorResponse(w, r, h.logger, err)
		return
	}

	e, err := h.emails.Resend(r.Context(), user.ID, id, req.Body)
	if err != nil {
		ErrorResponse(w, r, h.logger, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"message": "Email updated and sent",
		"email":   e,
	})
}
