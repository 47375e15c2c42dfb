package handler

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"os"
	"strings"
	"testing"

	"github.com/DukeRupert/nexleads/internal/domain"
)

func newTestLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelError}))
}

func serveError(err error) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodPost, "/user/save-lead", nil)
	rec := httptest.NewRecorder()
	ErrorResponse(rec, req, newTestLogger(), err)
	return rec
}

// =============================================================================
// Error Response Tests - Security Focus
// =============================================================================

func TestValidationErrorResponse_DoesNotExposeOperationName(t *testing.T) {
	ve := domain.NewValidationError("LeadService.Save", "email", "Email is required")

	rec := serveError(ve)
	body := rec.Body.String()

	if rec.Code != http.StatusBadRequest {
		t.Errorf("expected status 400, got %d", rec.Code)
	}
	if strings.Contains(body, "LeadService") {
		t.Errorf("response exposes internal operation name: %s", body)
	}

	var parsed JSONError
	if err := json.Unmarshal(rec.Body.Bytes(), &parsed); err != nil {
		t.Fatalf("response is not JSON: %v", err)
	}
	if parsed.Error.Code != domain.EINVALID {
		t.Errorf("expected code %q, got %q", domain.EINVALID, parsed.Error.Code)
	}
	if parsed.Error.Message != "Validation failed" {
		t.Errorf("expected message 'Validation failed', got %q", parsed.Error.Message)
	}
	if parsed.Error.Fields["email"] != "Email is required" {
		t.Errorf("expected email field error, got %v", parsed.Error.Fields)
	}
}

// genericInternalMessage is what clients see for every internal error.
var genericInternalMessage = domain.ErrorMessage(domain.Internal(nil, "", ""))

func TestInternalErrorResponse_HidesCause(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/user/stats", nil)
	rec := httptest.NewRecorder()

	InternalErrorResponse(rec, req, newTestLogger(), errors.New("pq: relation \"users\" does not exist"))

	if rec.Code != http.StatusInternalServerError {
		t.Errorf("expected status 500, got %d", rec.Code)
	}
	body := rec.Body.String()
	if strings.Contains(body, "pq:") || strings.Contains(body, "relation") {
		t.Errorf("response exposes database error: %s", body)
	}
	if !strings.Contains(body, genericInternalMessage) {
		t.Errorf("expected generic message, got: %s", body)
	}
}

func TestErrorResponse_InternalMessageIsGeneric(t *testing.T) {
	req := httptest.NewRequest(http.MethodPost, "/user/search", nil)
	rec := httptest.NewRecorder()

	err := domain.Internal(errors.New("connection reset"), "lead.search", "Failed to save leads")
	ErrorResponse(rec, req, newTestLogger(), err)

	var parsed JSONError
	if decodeErr := json.Unmarshal(rec.Body.Bytes(), &parsed); decodeErr != nil {
		t.Fatalf("failed to decode body: %v", decodeErr)
	}
	if parsed.Error.Message != genericInternalMessage {
		t.Errorf("expected %q, got %q", genericInternalMessage, parsed.Error.Message)
	}
	if strings.Contains(rec.Body.String(), "Failed to save leads") || strings.Contains(rec.Body.String(), "connection reset") {
		t.Errorf("response exposes internal detail: %s", rec.Body.String())
	}
}

func TestErrorResponse_StatusMapping(t *testing.T) {
	tests := []struct {
		name   string
		err    error
		status int
		code   string
	}{
		{"invalid", domain.Invalid("op", "bad"), http.StatusBadRequest, domain.EINVALID},
		{"unauthorized", domain.Unauthorized("op", "who"), http.StatusUnauthorized, domain.EUNAUTHORIZED},
		{"payment", domain.Errorf(domain.EPAYMENT, "op", "card declined"), http.StatusPaymentRequired, domain.EPAYMENT},
		{"forbidden", domain.Forbidden("op", "no"), http.StatusForbidden, domain.EFORBIDDEN},
		{"not found", domain.NotFound("op", "lead", "1"), http.StatusNotFound, domain.ENOTFOUND},
		{"conflict", domain.Conflict("op", "dup"), http.StatusConflict, domain.ECONFLICT},
		{"too large", domain.Errorf(domain.ETOOLARGE, "op", "big"), http.StatusRequestEntityTooLarge, domain.ETOOLARGE},
		{"rate limit", domain.RateLimit("op"), http.StatusTooManyRequests, domain.ERATELIMIT},
		{"not implemented", domain.Errorf(domain.ENOTIMPL, "op", "later"), http.StatusNotImplemented, domain.ENOTIMPL},
		{"plain error", errors.New("boom"), http.StatusInternalServerError, domain.EINTERNAL},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := serveError(tt.err)

			if rec.Code != tt.status {
				t.Errorf("expected status %d, got %d", tt.status, rec.Code)
			}
			if ct := rec.Header().Get("Content-Type"); !strings.HasPrefix(ct, "application/json") {
				t.Errorf("expected JSON content type, got %q", ct)
			}

			var body map[string]ErrorBody
			if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
				t.Fatalf("response is not JSON: %v", err)
			}
			if body["error"].Code != tt.code {
				t.Errorf("expected code %q, got %q", tt.code, body["error"].Code)
			}
		})
	}
}

func TestErrorResponse_QuotaExceeded(t *testing.T) {
	rec := serveError(domain.QuotaExceeded("lead.search", 30, 30))

	if rec.Code != http.StatusForbidden {
		t.Fatalf("expected status 403, got %d", rec.Code)
	}

	var body QuotaErrorBody
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatalf("response is not JSON: %v", err)
	}
	if body.Error.Code != domain.EQUOTA {
		t.Errorf("expected code %q, got %q", domain.EQUOTA, body.Error.Code)
	}
	if body.LeadsUsed != 30 || body.LeadsLimit != 30 {
		t.Errorf("expected leadsUsed=30 leadsLimit=30, got %d/%d", body.LeadsUsed, body.LeadsLimit)
	}
}

func TestErrorCodeToHTTPStatus_Unknown(t *testing.T) {
	if got := ErrorCodeToHTTPStatus("something_new"); got != http.StatusInternalServerError {
		t.Errorf("expected 500 for unknown code, got %d", got)
	}
}
