package leadsource

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/DukeRupert/nexleads/internal/metrics"
	"github.com/cenkalti/backoff/v4"
	"github.com/sony/gobreaker/v2"
	"golang.org/x/sync/errgroup"
)

// maxResponseBytes bounds a single platform response.
const maxResponseBytes = 4 << 20

// HTTPConfig configures an HTTPFetcher.
type HTTPConfig struct {
	// URLTemplate is the platform endpoint with a "{platform}" placeholder,
	// e.g. "https://leads.example.com/v1/{platform}/search".
	URLTemplate string
	APIKey      string
	Config
}

// HTTPFetcher queries one JSON endpoint per platform. Each platform has its
// own circuit breaker so a failing platform stops being called for a while
// without affecting the others.
type HTTPFetcher struct {
	config HTTPConfig
	client *http.Client
	logger *slog.Logger

	mu       sync.Mutex
	breakers map[string]*gobreaker.CircuitBreaker[[]Candidate]
}

// NewHTTPFetcher creates an HTTPFetcher.
func NewHTTPFetcher(config HTTPConfig, logger *slog.Logger) (*HTTPFetcher, error) {
	if !strings.Contains(config.URLTemplate, "{platform}") {
		return nil, fmt.Errorf("lead source URL template must contain {platform}")
	}

	if config.MaxRetries == 0 {
		config.MaxRetries = 3
	}
	if config.RetryBaseDelay == 0 {
		config.RetryBaseDelay = 500 * time.Millisecond
	}
	if config.RequestTimeout == 0 {
		config.RequestTimeout = 15 * time.Second
	}

	return &HTTPFetcher{
		config:   config,
		client:   &http.Client{Timeout: config.RequestTimeout},
		logger:   logger,
		breakers: make(map[string]*gobreaker.CircuitBreaker[[]Candidate]),
	}, nil
}

// Fetch queries all platforms concurrently and merges their results.
func (f *HTTPFetcher) Fetch(ctx context.Context, keyword string, platforms []string, filters Filters) ([]Candidate, error) {
	results := make([][]Candidate, len(platforms))

	g, gctx := errgroup.WithContext(ctx)
	for i, platform := range platforms {
		g.Go(func() error {
			candidates, err := f.fetchPlatform(gctx, platform, keyword, filters)
			if err != nil {
				f.logger.Warn("lead source platform failed",
					"platform", platform,
					"error", err,
				)
				return nil
			}
			results[i] = candidates
			return nil
		})
	}
	_ = g.Wait()

	if err := ctx.Err(); err != nil {
		return nil, err
	}

	var merged []Candidate
	for _, r := range results {
		merged = append(merged, r...)
	}
	return Dedupe(merged), nil
}

// BreakerState returns the circuit state for a platform.
func (f *HTTPFetcher) BreakerState(platform string) gobreaker.State {
	return f.breaker(platform).State()
}

func (f *HTTPFetcher) fetchPlatform(ctx context.Context, platform, keyword string, filters Filters) ([]Candidate, error) {
	candidates, err := f.breaker(platform).Execute(func() ([]Candidate, error) {
		return f.executeWithRetry(ctx, platform, keyword, filters)
	})

	status := "ok"
	switch {
	case errors.Is(err, gobreaker.ErrOpenState), errors.Is(err, gobreaker.ErrTooManyRequests):
		status = "circuit_open"
	case err != nil:
		status = "error"
	}
	metrics.LeadSourceRequestsTotal.WithLabelValues(platform, status).Inc()

	if err != nil {
		return nil, err
	}
	for i := range candidates {
		if candidates[i].Platform == "" {
			candidates[i].Platform = platform
		}
	}
	return candidates, nil
}

// executeWithRetry retries transient failures with exponential backoff.
// MaxRetries bounds the total number of attempts.
func (f *HTTPFetcher) executeWithRetry(ctx context.Context, platform, keyword string, filters Filters) ([]Candidate, error) {
	attempt := 0
	operation := func() ([]Candidate, error) {
		attempt++
		candidates, err := f.executeRequest(ctx, platform, keyword, filters)
		if err == nil {
			return candidates, nil
		}
		if !IsRetryable(err) {
			return nil, backoff.Permanent(err)
		}
		f.logger.Debug("lead source request failed",
			"platform", platform,
			"attempt", attempt,
			"error", err,
		)
		return nil, err
	}

	bo := backoff.NewExponentialBackOff()
	bo.InitialInterval = f.config.RetryBaseDelay
	bo.MaxInterval = 10 * time.Second
	bo.MaxElapsedTime = 0

	retries := uint64(0)
	if f.config.MaxRetries > 1 {
		retries = uint64(f.config.MaxRetries - 1)
	}

	return backoff.RetryWithData(operation, backoff.WithContext(backoff.WithMaxRetries(bo, retries), ctx))
}

func (f *HTTPFetcher) executeRequest(ctx context.Context, platform, keyword string, filters Filters) ([]Candidate, error) {
	req, err := f.buildRequest(ctx, platform, keyword, filters)
	if err != nil {
		return nil, err
	}

	resp, err := f.client.Do(req)
	if err != nil {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		return nil, fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	if err != nil {
		return nil, fmt.Errorf("read response body: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		return nil, mapHTTPError(resp.StatusCode, body)
	}

	var candidates []Candidate
	if err := json.Unmarshal(body, &candidates); err != nil {
		return nil, fmt.Errorf("unmarshal response: %w", err)
	}
	return candidates, nil
}

func (f *HTTPFetcher) buildRequest(ctx context.Context, platform, keyword string, filters Filters) (*http.Request, error) {
	endpoint := strings.ReplaceAll(f.config.URLTemplate, "{platform}", url.PathEscape(strings.ToLower(platform)))

	u, err := url.Parse(endpoint)
	if err != nil {
		return nil, fmt.Errorf("parse lead source URL: %w", err)
	}

	q := u.Query()
	q.Set("keyword", keyword)
	if filters.DateFrom != nil {
		q.Set("dateFrom", filters.DateFrom.UTC().Format(time.RFC3339))
	}
	if filters.DateTo != nil {
		q.Set("dateTo", filters.DateTo.UTC().Format(time.RFC3339))
	}
	u.RawQuery = q.Encode()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u.String(), nil)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	if f.config.APIKey != "" {
		req.Header.Set("Authorization", "Bearer "+f.config.APIKey)
	}
	return req, nil
}

func (f *HTTPFetcher) breaker(platform string) *gobreaker.CircuitBreaker[[]Candidate] {
	f.mu.Lock()
	defer f.mu.Unlock()

	if b, ok := f.breakers[platform]; ok {
		return b
	}

	b := gobreaker.NewCircuitBreaker[[]Candidate](gobreaker.Settings{
		Name:        "leadsource:" + platform,
		MaxRequests: 1,
		Interval:    60 * time.Second,
		Timeout:     30 * time.Second,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= 5
		},
		IsSuccessful: func(err error) bool {
			// Cancellation by the caller says nothing about the platform.
			return err == nil || errors.Is(err, context.Canceled)
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			f.logger.Info("lead source circuit changed",
				"breaker", name,
				"from", from.String(),
				"to", to.String(),
			)
		},
	})
	f.breakers[platform] = b
	return b
}

// mapHTTPError maps platform status codes to error values.
func mapHTTPError(statusCode int, body []byte) error {
	switch statusCode {
	case http.StatusUnauthorized, http.StatusForbidden:
		return ErrUnauthorized
	case http.StatusTooManyRequests:
		return ErrRateLimit
	case http.StatusServiceUnavailable, http.StatusBadGateway, http.StatusGatewayTimeout, http.StatusInternalServerError:
		return ErrUnavailable
	default:
		snippet := string(body)
		if len(snippet) > 200 {
			snippet = snippet[:200]
		}
		return fmt.Errorf("lead source error (status %d): %s", statusCode, snippet)
	}
}

var _ Fetcher = (*HTTPFetcher)(nil)
