package service

import (
	"testing"
	"time"

	"github.com/DukeRupert/nexleads/internal/domain"
	"github.com/google/uuid"
)

// =============================================================================
// Access Token Duration Tests
// =============================================================================

func TestTokenDurationMinimum(t *testing.T) {
	testCases := []struct {
		name      string
		input     time.Duration
		shouldUse time.Duration
	}{
		{"below minimum uses minimum", 5 * time.Minute, MinTokenDuration},
		{"at minimum uses input", 15 * time.Minute, 15 * time.Minute},
		{"above minimum uses input", 1 * time.Hour, 1 * time.Hour},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			result := normalizeTokenDuration(tc.input)
			if result != tc.shouldUse {
				t.Errorf("expected %v, got %v", tc.shouldUse, result)
			}
		})
	}
}

func TestTokenDurationMaximum(t *testing.T) {
	testCases := []struct {
		name      string
		input     time.Duration
		shouldUse time.Duration
	}{
		{"below maximum uses input", 7 * 24 * time.Hour, 7 * 24 * time.Hour},
		{"at maximum uses input", 30 * 24 * time.Hour, 30 * 24 * time.Hour},
		{"above maximum uses maximum", 60 * 24 * time.Hour, MaxTokenDuration},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			result := normalizeTokenDuration(tc.input)
			if result != tc.shouldUse {
				t.Errorf("expected %v, got %v", tc.shouldUse, result)
			}
		})
	}
}

func TestTokenDurationZeroUsesDefault(t *testing.T) {
	if got := normalizeTokenDuration(0); got != domain.DefaultAccessTokenDuration {
		t.Errorf("expected default %v for zero input, got %v", domain.DefaultAccessTokenDuration, got)
	}
}

func TestNewTokenManager_ClampsExpiry(t *testing.T) {
	m := NewTokenManager("secret", time.Minute)
	if m.Expiry() != MinTokenDuration {
		t.Errorf("expected %v, got %v", MinTokenDuration, m.Expiry())
	}

	token, _, err := m.Issue(uuid.New(), "a@example.com")
	if err != nil {
		t.Fatalf("Issue: %v", err)
	}
	if _, err := m.Validate(token); err != nil {
		t.Errorf("Validate: %v", err)
	}
}
