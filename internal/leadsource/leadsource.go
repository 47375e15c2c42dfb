// Package leadsource fetches prospect leads from external platforms.
package leadsource

import (
	"context"
	"errors"
	"strings"
	"time"
)

// Fetcher defines the interface for lead aggregation backends.
type Fetcher interface {
	// Fetch returns candidates matching keyword on the given platforms.
	// A platform that fails is skipped; an error is returned only when the
	// request as a whole cannot be served.
	Fetch(ctx context.Context, keyword string, platforms []string, filters Filters) ([]Candidate, error)
}

// Filters narrows a search by posting date.
type Filters struct {
	DateFrom *time.Time
	DateTo   *time.Time
}

// Candidate is a lead as returned by a platform, before it is saved.
type Candidate struct {
	Name        string `json:"name"`
	Email       string `json:"email"`
	Company     string `json:"company,omitempty"`
	Title       string `json:"title,omitempty"`
	Platform    string `json:"platform"`
	ProfileURL  string `json:"profileUrl,omitempty"`
	Description string `json:"description,omitempty"`
}

// Config contains settings shared by fetchers.
type Config struct {
	MaxRetries     int           // Maximum attempts for transient errors
	RetryBaseDelay time.Duration // Base delay for exponential backoff
	RequestTimeout time.Duration // Timeout for a single platform request
}

// Error values for platform requests
var (
	// ErrUnavailable indicates the platform could not be reached or returned 5xx.
	ErrUnavailable = errors.New("lead source unavailable")

	// ErrRateLimit indicates the platform throttled the request.
	ErrRateLimit = errors.New("lead source rate limit exceeded")

	// ErrUnauthorized indicates bad credentials for the platform.
	ErrUnauthorized = errors.New("lead source rejected credentials")
)

// IsRetryable reports whether a platform error is worth retrying.
func IsRetryable(err error) bool {
	return errors.Is(err, ErrUnavailable) || errors.Is(err, ErrRateLimit)
}

// Dedupe drops candidates without an email and collapses duplicates by
// lower-cased email, keeping the first occurrence. Emails are normalized in
// the returned slice.
func Dedupe(candidates []Candidate) []Candidate {
	seen := make(map[string]struct{}, len(candidates))
	out := make([]Candidate, 0, len(candidates))
	for _, c := range candidates {
		email := strings.ToLower(strings.TrimSpace(c.Email))
		if email == "" {
			continue
		}
		if _, ok := seen[email]; ok {
			continue
		}
		seen[email] = struct{}{}
		c.Email = email
		out = append(out, c)
	}
	return out
}
