// Package handler contains the HTTP handlers of the NexLeads API.
//
// Handlers decode JSON (or multipart) requests, call a service and write JSON
// responses. Errors go through ErrorResponse, which maps domain error codes
// to HTTP statuses.
//
// This file implements account handlers: signup with emailed verification
// code, login, password reset and the profile endpoint.
package handler

import (
	"log/slog"
	"net/http"

	"github.com/DukeRupert/nexleads/internal/domain"
	"github.com/DukeRupert/nexleads/internal/email"
	"github.com/DukeRupert/nexleads/internal/service"
)

// LoginResetter clears rate-limit state after a successful login.
type LoginResetter interface {
	ResetLogin(r *http.Request)
}

// AuthLimits holds the rate limiting middleware for auth routes. Nil fields
// leave the route unlimited.
type AuthLimits struct {
	Login         func(http.Handler) http.Handler
	Signup        func(http.Handler) http.Handler
	PasswordReset func(http.Handler) http.Handler
	Resetter      LoginResetter
}

// AuthHandler handles account and authentication requests.
//
// Routes handled:
//   - POST /user/signup                  -> Signup
//   - POST /user/resend-otp              -> ResendOTP
//   - POST /user/verify-email            -> VerifyEmail
//   - POST /user/login                   -> Login
//   - POST /user/forgot-password         -> ForgotPassword
//   - POST /user/reset-password/{token}  -> ResetPassword
//   - GET  /user/profile                 -> Profile
type AuthHandler struct {
	userService service.UserService
	mailer      email.Mailer
	limits      AuthLimits
	logger      *slog.Logger
}

// NewAuthHandler creates a new AuthHandler.
func NewAuthHandler(userService service.UserService, mailer email.Mailer, limits AuthLimits, logger *slog.Logger) *AuthHandler {
	return &AuthHandler{
		userService: userService,
		mailer:      mailer,
		limits:      limits,
		logger:      logger,
	}
}

// RegisterRoutes registers account routes on the provided mux.
func (h *AuthHandler) RegisterRoutes(mux *http.ServeMux, requireUser func(http.Handler) http.Handler) {
	limit := func(mw func(http.Handler) http.Handler, fn http.HandlerFunc) http.Handler {
		if mw == nil {
			return fn
		}
		return mw(fn)
	}

	mux.Handle("POST /user/signup", limit(h.limits.Signup, h.Signup))
	mux.Handle("POST /user/resend-otp", limit(h.limits.Signup, h.ResendOTP))
	mux.Handle("POST /user/verify-email", limit(h.limits.Signup, h.VerifyEmail))
	mux.Handle("POST /user/login", limit(h.limits.Login, h.Login))
	mux.Handle("POST /user/forgot-password", limit(h.limits.PasswordReset, h.ForgotPassword))
	mux.Handle("POST /user/reset-password/{token}", limit(h.limits.PasswordReset, h.ResetPassword))
	mux.Handle("GET /user/profile", requireUser(http.HandlerFunc(h.Profile)))
}

// =============================================================================
// Request Types
// =============================================================================

type signupRequest struct {
	Name            string `json:"name" validate:"required"`
	Email           string `json:"email" validate:"required,email"`
	Password        string `json:"password" validate:"required"`
	ConfirmPassword string `json:"confirmPassword" validate:"required"`
}

type emailRequest struct {
	Email string `json:"email" validate:"required,email"`
}

type verifyEmailRequest struct {
	Email string `json:"email" validate:"required,email"`
	OTP   string `json:"otp" validate:"required,len=6,numeric"`
}

type loginRequest struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required"`
}

type resetPasswordRequest struct {
	Password        string `json:"password" validate:"required"`
	ConfirmPassword string `json:"confirmPassword" validate:"required"`
}

// =============================================================================
// POST /user/signup
// =============================================================================

// Signup creates an unverified account and emails the verification code.
//
// The account exists once the service returns, so a failed code email is
// logged and the client is pointed at /user/resend-otp.
func (h *AuthHandler) Signup(w http.ResponseWriter, r *http.Request) {
	const op = "auth.signup"

	var req signupRequest
	if err := decodeJSON(w, r, op, &req); err != nil {
		ErrorResponse(w, r, h.logger, err)
		return
	}

	result, err := h.userService.Signup(r.Context(), domain.SignupParams{
		Name:            req.Name,
		Email:           req.Email,
		Password:        req.Password,
		ConfirmPassword: req.ConfirmPassword,
	})
	if err != nil {
		ErrorResponse(w, r, h.logger, err)
		return
	}

	message := "OTP sent to your email. Please verify your account."
	if err := h.mailer.SendVerificationCode(r.Context(), result.User.Email, result.User.Name, result.Code); err != nil {
		h.logger.Error("failed to send verification code", "user_id", result.User.ID, "error", err)
		message = "Account created, but the verification email could not be sent. Please request a new code."
	}

	writeJSON(w, http.StatusOK, messageResponse{Success: true, Message: message})
}

// ResendOTP issues a new verification code for an unverified account.
func (h *AuthHandler) ResendOTP(w http.ResponseWriter, r *http.Request) {
	const op = "auth.resend_otp"

	var req emailRequest
	if err := decodeJSON(w, r, op, &req); err != nil {
		ErrorResponse(w, r, h.logger, err)
		return
	}

	result, err := h.userService.ResendVerificationCode(r.Context(), req.Email)
	if err != nil {
		ErrorResponse(w, r, h.logger, err)
		return
	}

	if err := h.mailer.SendVerificationCode(r.Context(), result.User.Email, result.User.Name, result.Code); err != nil {
		InternalErrorResponse(w, r, h.logger, err)
		return
	}

	writeJSON(w, http.StatusOK, messageResponse{Success: true, Message: "A new OTP has been sent to your email."})
}

// =============================================================================
// POST /user/verify-email
// =============================================================================

type authResponse struct {
	Success bool         `json:"success"`
	Message string       `json:"message"`
	Token   string       `json:"token"`
	User    *domain.User `json:"user"`
}

// VerifyEmail checks the emailed code and returns an access token.
func (h *AuthHandler) VerifyEmail(w http.ResponseWriter, r *http.Request) {
	const op = "auth.verify_email"

	var req verifyEmailRequest
	if err := decodeJSON(w, r, op, &req); err != nil {
		ErrorResponse(w, r, h.logger, err)
		return
	}

	result, err := h.userService.VerifyEmail(r.Context(), req.Email, req.OTP)
	if err != nil {
		ErrorResponse(w, r, h.logger, err)
		return
	}

	writeJSON(w, http.StatusOK, authResponse{
		Success: true,
		Message: "Email verified successfully",
		Token:   result.Token,
		User:    result.User,
	})
}

// =============================================================================
// POST /user/login
// =============================================================================

// Login exchanges email and password for an access token.
func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	const op = "auth.login"

	var req loginRequest
	if err := decodeJSON(w, r, op, &req); err != nil {
		ErrorResponse(w, r, h.logger, err)
		return
	}

	result, err := h.userService.Login(r.Context(), req.Email, req.Password)
	if err != nil {
		ErrorResponse(w, r, h.logger, err)
		return
	}

	if h.limits.Resetter != nil {
		h.limits.Resetter.ResetLogin(r)
	}

	writeJSON(w, http.StatusOK, authResponse{
		Success: true,
		Message: "Login successful",
		Token:   result.Token,
		User:    result.User,
	})
}

// =============================================================================
// Password Reset
// =============================================================================

// ForgotPassword emails a password reset link.
func (h *AuthHandler) ForgotPassword(w http.ResponseWriter, r *http.Request) {
	const op = "auth.forgot_password"

	var req emailRequest
	if err := decodeJSON(w, r, op, &req); err != nil {
		ErrorResponse(w, r, h.logger, err)
		return
	}

	result, err := h.userService.CreatePasswordResetToken(r.Context(), req.Email)
	if err != nil {
		ErrorResponse(w, r, h.logger, err)
		return
	}

	if err := h.mailer.SendPasswordResetEmail(r.Context(), result.Email, result.Name, result.Token); err != nil {
		InternalErrorResponse(w, r, h.logger, err)
		return
	}

	writeJSON(w, http.StatusOK, messageResponse{Success: true, Message: "Password reset link sent to your email"})
}

// ResetPassword sets a new password with the token from the reset link.
func (h *AuthHandler) ResetPassword(w http.ResponseWriter, r *http.Request) {
	const op = "auth.reset_password"

	var req resetPasswordRequest
	if err := decodeJSON(w, r, op, &req); err != nil {
		ErrorResponse(w, r, h.logger, err)
		return
	}

	err := h.userService.ResetPassword(r.Context(), domain.ResetPasswordParams{
		Token:           r.PathValue("token"),
		Password:        req.Password,
		ConfirmPassword: req.ConfirmPassword,
	})
	if err != nil {
		ErrorResponse(w, r, h.logger, err)
		return
	}

	writeJSON(w, http.StatusOK, messageResponse{Success: true, Message: "Password has been reset successfully"})
}

// =============================================================================
// GET /user/profile
// =============================================================================

// Profile returns the authenticated user including the quota ledger.
func (h *AuthHandler) Profile(w http.ResponseWriter, r *http.Request) {
	user, ok := currentUser(w, r, h.logger)
	if !ok {
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"success": true, "user": user})
}
