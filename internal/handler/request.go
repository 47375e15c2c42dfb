package handler

import (
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/DukeRupert/nexleads/internal/auth"
	"github.com/DukeRupert/nexleads/internal/domain"
	"github.com/google/uuid"
)

// dateLayout is the date-only form accepted in query parameters.
const dateLayout = "2006-01-02"

// currentUser returns the authenticated user or writes a 401.
func currentUser(w http.ResponseWriter, r *http.Request, logger *slog.Logger) (*domain.User, bool) {
	user := auth.GetUser(r.Context())
	if user == nil {
		UnauthorizedResponse(w, r, logger)
		return nil, false
	}
	return user, true
}

// pathID parses the named path value as a UUID.
func pathID(r *http.Request, name, op string) (uuid.UUID, error) {
	id, err := uuid.Parse(r.PathValue(name))
	if err != nil {
		return uuid.Nil, domain.Invalid(op, "Invalid "+name)
	}
	return id, nil
}

// parseDateParam parses a date-only or RFC 3339 query value. An empty value
// yields nil. With endOfDay set, a date-only value covers the whole day.
func parseDateParam(value, op, field string, endOfDay bool) (*time.Time, error) {
	value = strings.TrimSpace(value)
	if value == "" {
		return nil, nil
	}
	if t, err := time.Parse(time.RFC3339, value); err == nil {
		return &t, nil
	}
	t, err := time.Parse(dateLayout, value)
	if err != nil {
		return nil, domain.NewValidationError(op, field, "Must be a date (YYYY-MM-DD)")
	}
	if endOfDay {
		t = t.Add(24*time.Hour - time.Nanosecond)
	}
	return &t, nil
}

// splitList splits a comma separated query value, dropping blanks.
func splitList(value string) []string {
	var out []string
	for _, part := range strings.Split(value, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
