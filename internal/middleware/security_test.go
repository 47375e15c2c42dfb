package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"
)

// =============================================================================
// Security Headers Middleware Tests
// =============================================================================

func TestSecurityHeadersMiddleware_SetsAllHeaders(t *testing.T) {
	mw := NewSecurityHeadersMiddleware(true)

	rec := httptest.NewRecorder()
	mw.Handler(okHandler()).ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/user/plans", nil))

	tests := []struct {
		header   string
		expected string
	}{
		{"X-Frame-Options", "DENY"},
		{"X-Content-Type-Options", "nosniff"},
		{"Referrer-Policy", "strict-origin-when-cross-origin"},
		{"Content-Security-Policy", apiCSP},
		{"Permissions-Policy", "geolocation=(), microphone=(), camera=()"},
		{"Strict-Transport-Security", "max-age=31536000; includeSubDomains"},
	}

	for _, tc := range tests {
		t.Run(tc.header, func(t *testing.T) {
			if got := rec.Header().Get(tc.header); got != tc.expected {
				t.Errorf("%s: expected %q, got %q", tc.header, tc.expected, got)
			}
		})
	}
}

func TestSecurityHeadersMiddleware_NoHSTSInDevelopment(t *testing.T) {
	mw := NewSecurityHeadersMiddleware(false)

	rec := httptest.NewRecorder()
	mw.Handler(okHandler()).ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))

	if hsts := rec.Header().Get("Strict-Transport-Security"); hsts != "" {
		t.Errorf("expected no HSTS header in development, got %q", hsts)
	}
}

func TestSecurityHeadersMiddleware_CORS(t *testing.T) {
	mw := NewSecurityHeadersMiddleware(false, "https://app.nexleads.io/", " ")

	tests := []struct {
		name        string
		method      string
		origin      string
		preflight   bool
		wantStatus  int
		wantAllowed string
	}{
		{"allowed origin", http.MethodGet, "https://app.nexleads.io", false, http.StatusOK, "https://app.nexleads.io"},
		{"unknown origin", http.MethodGet, "https://evil.example", false, http.StatusOK, ""},
		{"no origin", http.MethodGet, "", false, http.StatusOK, ""},
		{"preflight", http.MethodOptions, "https://app.nexleads.io", true, http.StatusNoContent, "https://app.nexleads.io"},
		{"preflight unknown origin", http.MethodOptions, "https://evil.example", true, http.StatusOK, ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(tt.method, "/user/compose", nil)
			if tt.origin != "" {
				req.Header.Set("Origin", tt.origin)
			}
			if tt.preflight {
				req.Header.Set("Access-Control-Request-Method", http.MethodPost)
			}
			rec := httptest.NewRecorder()
			mw.Handler(okHandler()).ServeHTTP(rec, req)

			if rec.Code != tt.wantStatus {
				t.Errorf("expected status %d, got %d", tt.wantStatus, rec.Code)
			}
			if got := rec.Header().Get("Access-Control-Allow-Origin"); got != tt.wantAllowed {
				t.Errorf("expected allow origin %q, got %q", tt.wantAllowed, got)
			}
			if tt.wantStatus == http.StatusNoContent && rec.Header().Get("Access-Control-Allow-Headers") == "" {
				t.Error("preflight should list allowed headers")
			}
		})
	}
}
