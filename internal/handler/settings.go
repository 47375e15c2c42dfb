package handler

import (
	"errors"
	"io"
	"log/slog"
	"net/http"

	"github.com/DukeRupert/nexleads/internal/domain"
	"github.com/DukeRupert/nexleads/internal/service"
)

// profilePictureField is the multipart field carrying the upload.
const profilePictureField = "profilePicture"

// SettingsHandler handles account settings and subscription requests.
//
// Routes handled:
//   - PUT  /user/personal                -> UpdatePersonalInfo
//   - POST /user/profile-picture         -> UploadProfilePicture
//   - PUT  /user/password                -> ChangePassword
//   - GET  /user/plans                   -> Plans (public)
//   - POST /user/subscription            -> Subscribe
//   - GET  /user/subscription/history    -> SubscriptionHistory
//   - GET  /user/quota                   -> Quota
type SettingsHandler struct {
	userService service.UserService
	pictures    service.ProfilePictureService
	quota       service.QuotaService
	logger      *slog.Logger
}

// NewSettingsHandler creates a new SettingsHandler.
func NewSettingsHandler(
	userService service.UserService,
	pictures service.ProfilePictureService,
	quota service.QuotaService,
	logger *slog.Logger,
) *SettingsHandler {
	return &SettingsHandler{
		userService: userService,
		pictures:    pictures,
		quota:       quota,
		logger:      logger,
	}
}

// RegisterRoutes registers settings routes on the provided mux.
func (h *SettingsHandler) RegisterRoutes(mux *http.ServeMux, requireUser func(http.Handler) http.Handler) {
	mux.HandleFunc("GET /user/plans", h.Plans)
	mux.Handle("PUT /user/personal", requireUser(http.HandlerFunc(h.UpdatePersonalInfo)))
	mux.Handle("POST /user/profile-picture", requireUser(http.HandlerFunc(h.UploadProfilePicture)))
	mux.Handle("PUT /user/password", requireUser(http.HandlerFunc(h.ChangePassword)))
	mux.Handle("POST /user/subscription", requireUser(http.HandlerFunc(h.Subscribe)))
	mux.Handle("GET /user/subscription/history", requireUser(http.HandlerFunc(h.SubscriptionHistory)))
	mux.Handle("GET /user/quota", requireUser(http.HandlerFunc(h.Quota)))
}

// =============================================================================
// Profile
// =============================================================================

type personalInfoRequest struct {
	Name  string `json:"name" validate:"required,max=100"`
	Email string `json:"email" validate:"required,email"`
}

// UpdatePersonalInfo changes the user's name and email.
func (h *SettingsHandler) UpdatePersonalInfo(w http.ResponseWriter, r *http.Request) {
	const op = "settings.personal"

	user, ok := currentUser(w, r, h.logger)
	if !ok {
		return
	}

	var req personalInfoRequest
	if err := decodeJSON(w, r, op, &req); err != nil {
		ErrorResponse(w, r, h.logger, err)
		return
	}

	updated, err := h.userService.UpdatePersonalInfo(r.Context(), domain.PersonalInfoParams{
		UserID: user.ID,
		Name:   req.Name,
		Email:  req.Email,
	})
	if err != nil {
		ErrorResponse(w, r, h.logger, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"message": "Personal information updated successfully",
		"user":    updated,
	})
}

// UploadProfilePicture accepts a multipart image of at most 5 MB.
func (h *SettingsHandler) UploadProfilePicture(w http.ResponseWriter, r *http.Request) {
	const op = "settings.profile_picture"

	user, ok := currentUser(w, r, h.logger)
	if !ok {
		return
	}

	r.Body = http.MaxBytesReader(w, r.Body, domain.MaxProfilePictureSize+1<<16)
	file, _, err := r.FormFile(profilePictureField)
	if err != nil {
		var maxErr *http.MaxBytesError
		switch {
		case errors.As(err, &maxErr):
			ErrorResponse(w, r, h.logger, domain.Errorf(domain.ETOOLARGE, op, "Profile picture must be 5 MB or smaller"))
		case errors.Is(err, http.ErrMissingFile):
			ErrorResponse(w, r, h.logger, domain.NewValidationError(op, profilePictureField, "This field is required"))
		default:
			ErrorResponse(w, r, h.logger, domain.Invalid(op, "Expected multipart form data"))
		}
		return
	}
	defer file.Close()

	data, err := io.ReadAll(io.LimitReader(file, domain.MaxProfilePictureSize+1))
	if err != nil {
		InternalErrorResponse(w, r, h.logger, err)
		return
	}

	updated, err := h.pictures.Upload(r.Context(), user.ID, data)
	if err != nil {
		ErrorResponse(w, r, h.logger, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"message": "Profile picture updated successfully",
		"user":    updated,
	})
}

type changePasswordRequest struct {
	CurrentPassword string `json:"currentPassword" validate:"required"`
	NewPassword     string `json:"newPassword" validate:"required"`
}

// ChangePassword replaces the password after checking the current one.
func (h *SettingsHandler) ChangePassword(w http.ResponseWriter, r *http.Request) {
	const op = "settings.password"

	user, ok := currentUser(w, r, h.logger)
	if !ok {
		return
	}

	var req changePasswordRequest
	if err := decodeJSON(w, r, op, &req); err != nil {
		ErrorResponse(w, r, h.logger, err)
		return
	}

	err := h.userService.ChangePassword(r.Context(), domain.PasswordChangeParams{
		UserID:          user.ID,
		CurrentPassword: req.CurrentPassword,
		NewPassword:     req.NewPassword,
	})
	if err != nil {
		ErrorResponse(w, r, h.logger, err)
		return
	}

	writeJSON(w, http.StatusOK, messageResponse{Success: true, Message: "Password changed successfully"})
}

// =============================================================================
// Plans and subscription
// =============================================================================

type planResponse struct {
	domain.Plan
	Name      string `json:"name"`
	Unlimited bool   `json:"unlimited"`
}

// Plans lists the plan catalog.
func (h *SettingsHandler) Plans(w http.ResponseWriter, r *http.Request) {
	plans := domain.ListPlans()
	out := make([]planResponse, len(plans))
	for i, p := range plans {
		out[i] = planResponse{Plan: p, Name: p.DisplayName(), Unlimited: p.IsUnlimited()}
	}
	writeJSON(w, http.StatusOK, map[string]any{"plans": out})
}

type subscribeRequest struct {
	Plan          domain.PlanID `json:"plan" validate:"required"`
	PaymentMethod string        `json:"paymentMethod"`
	TransactionID string        `json:"transactionId"`
}

// Subscribe moves the user to a plan and resets the quota cycle. Unknown plan
// names are rejected with 400 by the quota service.
func (h *SettingsHandler) Subscribe(w http.ResponseWriter, r *http.Request) {
	const op = "settings.subscribe"

	user, ok := currentUser(w, r, h.logger)
	if !ok {
		return
	}

	var req subscribeRequest
	if err := decodeJSON(w, r, op, &req); err != nil {
		ErrorResponse(w, r, h.logger, err)
		return
	}

	paymentMethod := req.PaymentMethod
	if paymentMethod == "" {
		paymentMethod = domain.PaymentMethodManual
	}

	record, err := h.quota.ApplyTransition(r.Context(), domain.TransitionParams{
		UserID:        user.ID,
		PlanID:        req.Plan,
		PaymentMethod: paymentMethod,
		TransactionID: req.TransactionID,
	})
	if err != nil {
		ErrorResponse(w, r, h.logger, err)
		return
	}

	ledger, err := h.quota.Current(r.Context(), user.ID)
	if err != nil {
		ErrorResponse(w, r, h.logger, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"message":      "Subscribed to " + record.Plan.DisplayName() + " plan successfully",
		"subscription": ledger,
		"record":       record,
	})
}

// SubscriptionHistory lists plan changes, newest first.
func (h *SettingsHandler) SubscriptionHistory(w http.ResponseWriter, r *http.Request) {
	user, ok := currentUser(w, r, h.logger)
	if !ok {
		return
	}

	records, err := h.quota.History(r.Context(), user.ID)
	if err != nil {
		ErrorResponse(w, r, h.logger, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"count":         len(records),
		"subscriptions": records,
	})
}

type quotaResponse struct {
	domain.Ledger
	Remaining int  `json:"remaining"`
	Unlimited bool `json:"unlimited"`
}

// Quota returns the current ledger after any due cycle reset.
func (h *SettingsHandler) Quota(w http.ResponseWriter, r *http.Request) {
	user, ok := currentUser(w, r, h.logger)
	if !ok {
		return
	}

	ledger, err := h.quota.Current(r.Context(), user.ID)
	if err != nil {
		ErrorResponse(w, r, h.logger, err)
		return
	}

	writeJSON(w, http.StatusOK, quotaResponse{
		Ledger:    *ledger,
		Remaining: ledger.Remaining(),
		Unlimited: ledger.IsUnlimited(),
	})
}
