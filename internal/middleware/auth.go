// Package middleware contains HTTP middleware for the NexLeads API.
//
// Middleware functions follow the standard Go pattern of wrapping http.Handler.
// They are designed to be composed using a middleware stack approach.
package middleware

import (
	"log/slog"
	"net/http"
	"strings"

	"github.com/DukeRupert/nexleads/internal/auth"
	"github.com/DukeRupert/nexleads/internal/domain"
	"github.com/DukeRupert/nexleads/internal/handler"
	"github.com/DukeRupert/nexleads/internal/service"
)

// BearerPrefix precedes the token in the Authorization header.
const BearerPrefix = "Bearer "

// =============================================================================
// Auth Middleware Configuration
// =============================================================================

// AuthMiddleware provides authentication middleware functionality.
//
// This struct holds dependencies needed by auth middleware functions.
// Create one instance and use its methods as middleware.
type AuthMiddleware struct {
	userService service.UserService
	adminEmails map[string]struct{}
	logger      *slog.Logger
}

// NewAuthMiddleware creates a new AuthMiddleware instance.
//
// adminEmails lists the accounts allowed through RequireAdmin in addition to
// accounts of type Admin.
func NewAuthMiddleware(userService service.UserService, adminEmails []string, logger *slog.Logger) *AuthMiddleware {
	admins := make(map[string]struct{}, len(adminEmails))
	for _, e := range adminEmails {
		if e = domain.NormalizeEmail(e); e != "" {
			admins[e] = struct{}{}
		}
	}
	return &AuthMiddleware{
		userService: userService,
		adminEmails: admins,
		logger:      logger,
	}
}

// =============================================================================
// WithUser Middleware
// =============================================================================

// WithUser loads the user named by the bearer token into the request context.
//
// Requests without an Authorization header continue anonymously. A token that
// fails validation is rejected with 401 and a blocked account with 403.
//
// The user can be retrieved in handlers using:
//
//	user := auth.GetUser(r.Context())
func (m *AuthMiddleware) WithUser(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		token, ok := bearerToken(r)
		if !ok {
			next.ServeHTTP(w, r)
			return
		}

		user, err := m.userService.Authenticate(r.Context(), token)
		if err != nil {
			handler.ErrorResponse(w, r, m.logger, err)
			return
		}

		if user.IsBlocked {
			m.logger.Info("blocked user rejected", "user_id", user.ID, "path", r.URL.Path)
			handler.ErrorResponse(w, r, m.logger, domain.Forbidden("", "User is blocked. Please contact support."))
			return
		}

		next.ServeHTTP(w, r.WithContext(auth.SetUser(r.Context(), user)))
	})
}

// =============================================================================
// RequireUser Middleware
// =============================================================================

// RequireUser is middleware that requires an authenticated user.
//
// IMPORTANT: This middleware must be used AFTER WithUser in the middleware chain.
//
//	mux.Handle("GET /user/profile", authMw.WithUser(authMw.RequireUser(profileHandler)))
func (m *AuthMiddleware) RequireUser(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if auth.GetUser(r.Context()) == nil {
			handler.ErrorResponse(w, r, m.logger, domain.Unauthorized("", "Not authorized, no token"))
			return
		}
		next.ServeHTTP(w, r)
	})
}

// =============================================================================
// RequirePaidPlan Middleware
// =============================================================================

// RequirePaidPlan rejects accounts on the free plan with 403.
//
// IMPORTANT: Use this AFTER RequireUser in the middleware chain.
func (m *AuthMiddleware) RequirePaidPlan(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		user := auth.GetUser(r.Context())
		if user == nil {
			// This shouldn't happen if RequireUser is used before this middleware
			m.logger.Error("RequirePaidPlan called without user in context")
			handler.UnauthorizedResponse(w, r, m.logger)
			return
		}

		if !user.CanBulkEmail() {
			handler.ErrorResponse(w, r, m.logger,
				domain.Forbidden("", "Bulk email feature is not available in Free plan. Please upgrade your plan."))
			return
		}

		next.ServeHTTP(w, r)
	})
}

// =============================================================================
// RequireAdmin Middleware
// =============================================================================

// RequireAdmin allows accounts of type Admin and configured admin emails.
//
// IMPORTANT: Use this AFTER RequireUser in the middleware chain.
func (m *AuthMiddleware) RequireAdmin(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		user := auth.GetUser(r.Context())
		if user == nil {
			m.logger.Error("RequireAdmin called without user in context")
			handler.UnauthorizedResponse(w, r, m.logger)
			return
		}

		if !m.IsAdmin(user) {
			m.logger.Warn("admin access denied", "user_id", user.ID, "path", r.URL.Path)
			handler.ForbiddenResponse(w, r, m.logger)
			return
		}

		next.ServeHTTP(w, r)
	})
}

// IsAdmin reports whether the user may use the admin API.
func (m *AuthMiddleware) IsAdmin(user *domain.User) bool {
	if user.Type == domain.UserTypeAdmin {
		return true
	}
	_, ok := m.adminEmails[domain.NormalizeEmail(user.Email)]
	return ok
}

// =============================================================================
// Request Helpers
// =============================================================================

// bearerToken extracts the token from "Authorization: Bearer <token>".
func bearerToken(r *http.Request) (string, bool) {
	header := r.Header.Get("Authorization")
	if len(header) < len(BearerPrefix) || !strings.EqualFold(header[:len(BearerPrefix)], BearerPrefix) {
		return "", false
	}
	token := strings.TrimSpace(header[len(BearerPrefix):])
	return token, token != ""
}

// =============================================================================
// Middleware Stack Helpers
// =============================================================================

// Stack composes multiple middleware functions into a single middleware.
//
// Middleware is applied in the order provided, meaning the first middleware
// in the slice is the outermost (runs first on request, last on response).
//
// Example:
//
//	stack := Stack(authMw.WithUser, authMw.RequireUser)
//	mux.Handle("GET /user/profile", stack(profileHandler))
func Stack(middlewares ...func(http.Handler) http.Handler) func(http.Handler) http.Handler {
	return func(final http.Handler) http.Handler {
		for i := len(middlewares) - 1; i >= 0; i-- {
			final = middlewares[i](final)
		}
		return final
	}
}

// Ensure middleware functions have correct signature
var (
	_ func(http.Handler) http.Handler = (&AuthMiddleware{}).WithUser
	_ func(http.Handler) http.Handler = (&AuthMiddleware{}).RequireUser
	_ func(http.Handler) http.Handler = (&AuthMiddleware{}).RequirePaidPlan
	_ func(http.Handler) http.Handler = (&AuthMiddleware{}).RequireAdmin
)
