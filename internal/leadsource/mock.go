package leadsource

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
)

// MockFetcher returns deterministic candidates for development and tests.
type MockFetcher struct {
	logger *slog.Logger

	// Configurable responses for testing
	FetchResponse []Candidate
	FetchError    error

	// Call tracking for testing
	FetchCalls int
}

// NewMockFetcher creates a MockFetcher.
func NewMockFetcher(logger *slog.Logger) *MockFetcher {
	return &MockFetcher{logger: logger}
}

// Fetch returns the configured response or three canned candidates per platform.
func (m *MockFetcher) Fetch(ctx context.Context, keyword string, platforms []string, filters Filters) ([]Candidate, error) {
	m.FetchCalls++

	if m.FetchError != nil {
		return nil, m.FetchError
	}
	if m.FetchResponse != nil {
		return Dedupe(m.FetchResponse), nil
	}

	slug := strings.ToLower(strings.Join(strings.Fields(keyword), "-"))
	if slug == "" {
		slug = "lead"
	}

	var out []Candidate
	for _, platform := range platforms {
		p := strings.ToLower(platform)
		for i := 1; i <= 3; i++ {
			out = append(out, Candidate{
				Name:        fmt.Sprintf("%s %s prospect %d", platform, keyword, i),
				Email:       fmt.Sprintf("%s.%d@%s.example.com", slug, i, p),
				Company:     fmt.Sprintf("%s Labs %d", platform, i),
				Title:       "Hiring Manager",
				Platform:    platform,
				ProfileURL:  fmt.Sprintf("https://%s.example.com/in/%s-%d", p, slug, i),
				Description: fmt.Sprintf("Looking for help with %s", keyword),
			})
		}
	}

	if m.logger != nil {
		m.logger.Debug("mock lead source fetched", "keyword", keyword, "count", len(out))
	}
	return out, nil
}

var _ Fetcher = (*MockFetcher)(nil)
