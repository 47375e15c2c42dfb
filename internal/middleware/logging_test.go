package middleware

import (
	"bytes"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
)

// =============================================================================
// Request Logging Middleware Tests
// =============================================================================

func serveLogged(t *testing.T, status int, req *http.Request) (string, *httptest.ResponseRecorder) {
	t.Helper()
	var buf bytes.Buffer
	logger := slog.New(slog.NewTextHandler(&buf, nil))

	mw := NewRequestLoggingMiddleware(logger)
	handler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(status)
		_, _ = w.Write([]byte("body"))
	})

	rec := httptest.NewRecorder()
	mw.Handler(handler).ServeHTTP(rec, req)
	return buf.String(), rec
}

func TestRequestLoggingMiddleware_LogsBasicInfo(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/user/get-my-leads", nil)
	req.RemoteAddr = "192.168.1.1:12345"
	req.Header.Set("User-Agent", "nexleads-test/1.0")

	logOutput, rec := serveLogged(t, http.StatusOK, req)

	for _, want := range []string{"GET", "/user/get-my-leads", "status=200", "duration_ms", "ip=192.168.1.1", "nexleads-test/1.0"} {
		if !strings.Contains(logOutput, want) {
			t.Errorf("log should contain %q, got: %s", want, logOutput)
		}
	}
	if rec.Body.String() != "body" {
		t.Errorf("expected body to pass through, got %q", rec.Body.String())
	}
}

func TestRequestLoggingMiddleware_ErrorStatusLevel(t *testing.T) {
	tests := []struct {
		status int
		level  string
	}{
		{http.StatusOK, "level=INFO"},
		{http.StatusForbidden, "level=INFO"},
		{http.StatusInternalServerError, "level=WARN"},
	}

	for _, tt := range tests {
		t.Run(http.StatusText(tt.status), func(t *testing.T) {
			logOutput, rec := serveLogged(t, tt.status, httptest.NewRequest(http.MethodPost, "/user/compose", nil))
			if rec.Code != tt.status {
				t.Errorf("expected status %d, got %d", tt.status, rec.Code)
			}
			if !strings.Contains(logOutput, tt.level) {
				t.Errorf("expected %s, got: %s", tt.level, logOutput)
			}
		})
	}
}

func TestRequestLoggingMiddleware_RedactsSecrets(t *testing.T) {
	tests := []struct {
		name   string
		target string
		secret string
		keep   string
	}{
		{"token query", "/user/verify?token=secrettoken123", "secrettoken123", "/user/verify"},
		{"otp query", "/user/verify?otp=482913&email=a@b.c", "482913", "email=a@b.c"},
		{"reset path token", "/user/reset-password/abc123secret", "abc123secret", "/user/reset-password/[REDACTED]"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			logOutput, _ := serveLogged(t, http.StatusOK, httptest.NewRequest(http.MethodGet, tt.target, nil))
			if strings.Contains(logOutput, tt.secret) {
				t.Errorf("log should not contain %q, got: %s", tt.secret, logOutput)
			}
			if !strings.Contains(logOutput, tt.keep) {
				t.Errorf("log should contain %q, got: %s", tt.keep, logOutput)
			}
		})
	}
}

func TestRequestLoggingMiddleware_SkipsQuietPaths(t *testing.T) {
	for _, path := range []string{"/health", "/metrics", "/user/open/0b7c8c1e-8f59-4d2d-9a55-5b1f3b1d8d2a.png", "/files/attachments/a.pdf"} {
		t.Run(path, func(t *testing.T) {
			logOutput, rec := serveLogged(t, http.StatusOK, httptest.NewRequest(http.MethodGet, path, nil))
			if logOutput != "" {
				t.Errorf("expected no log output, got: %s", logOutput)
			}
			if rec.Code != http.StatusOK {
				t.Errorf("expected request to pass through, got %d", rec.Code)
			}
		})
	}
}

func TestSanitizePath(t *testing.T) {
	tests := []struct {
		path, query, want string
	}{
		{"/user/search", "", "/user/search"},
		{"/user/search", "keyword=go&platforms=Upwork", "/user/search?keyword=go&platforms=Upwork"},
		{"/x", "Password=hunter2", "/x?Password=[REDACTED]"},
		{"/x", "flag", "/x"},
		{"/user/reset-password/", "", "/user/reset-password/"},
	}

	for _, tt := range tests {
		t.Run(tt.want, func(t *testing.T) {
			if got := sanitizePath(tt.path, tt.query); got != tt.want {
				t.Errorf("sanitizePath(%q, %q) = %q, want %q", tt.path, tt.query, got, tt.want)
			}
		})
	}
}

func TestResponseWriter_KeepsFirstStatus(t *testing.T) {
	rec := httptest.NewRecorder()
	rw := &responseWriter{ResponseWriter: rec, statusCode: http.StatusOK}

	rw.WriteHeader(http.StatusCreated)
	rw.WriteHeader(http.StatusInternalServerError)

	if rw.statusCode != http.StatusCreated {
		t.Errorf("expected 201, got %d", rw.statusCode)
	}
	if rw.Unwrap() != rec {
		t.Error("Unwrap should return the underlying writer")
	}
}
