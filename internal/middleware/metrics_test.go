package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"
)

func metricsHandler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte("metrics data"))
	})
}

func TestMetricsAuthMiddleware(t *testing.T) {
	mw := NewMetricsAuthMiddleware("admin", "secret123")

	tests := []struct {
		name       string
		setAuth    func(r *http.Request)
		wantStatus int
	}{
		{"valid credentials", func(r *http.Request) { r.SetBasicAuth("admin", "secret123") }, http.StatusOK},
		{"no credentials", func(r *http.Request) {}, http.StatusUnauthorized},
		{"wrong username", func(r *http.Request) { r.SetBasicAuth("root", "secret123") }, http.StatusUnauthorized},
		{"wrong password", func(r *http.Request) { r.SetBasicAuth("admin", "secret") }, http.StatusUnauthorized},
		{"empty credentials", func(r *http.Request) { r.SetBasicAuth("", "") }, http.StatusUnauthorized},
		{"malformed header", func(r *http.Request) { r.Header.Set("Authorization", "Basic !!notbase64") }, http.StatusUnauthorized},
		{"bearer token", func(r *http.Request) { r.Header.Set("Authorization", "Bearer secret123") }, http.StatusUnauthorized},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/metrics", nil)
			tt.setAuth(req)
			rec := httptest.NewRecorder()

			mw.Handler(metricsHandler()).ServeHTTP(rec, req)

			if rec.Code != tt.wantStatus {
				t.Fatalf("expected %d, got %d", tt.wantStatus, rec.Code)
			}
			if tt.wantStatus == http.StatusOK && rec.Body.String() != "metrics data" {
				t.Errorf("expected body 'metrics data', got %q", rec.Body.String())
			}
			if tt.wantStatus == http.StatusUnauthorized {
				if got := rec.Header().Get("WWW-Authenticate"); got != `Basic realm="nexleads metrics"` {
					t.Errorf("unexpected WWW-Authenticate %q", got)
				}
			}
		})
	}
}

func TestMetricsAuthMiddleware_DisabledWhenNoCredentials(t *testing.T) {
	mw := NewMetricsAuthMiddleware("", "")

	rec := httptest.NewRecorder()
	mw.Handler(metricsHandler()).ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))

	if rec.Code != http.StatusOK {
		t.Errorf("expected 200 with auth disabled, got %d", rec.Code)
	}
}
