package service

import (
	"context"
	"database/sql"
	"errors"
	"log/slog"
	"strings"

	"github.com/DukeRupert/nexleads/internal/domain"
	"github.com/DukeRupert/nexleads/internal/leadsource"
	"github.com/DukeRupert/nexleads/internal/metrics"
	"github.com/DukeRupert/nexleads/internal/repository"
	"github.com/google/uuid"
)

// ManualPlatform is recorded for leads saved by hand.
const ManualPlatform = "Manual"

// LeadService defines the interface for lead acquisition and management.
//
// Search and Save consume lead quota: both run the quota gate first and
// record usage for the leads actually stored.
type LeadService interface {
	// Search fetches leads from external platforms and saves the ones the
	// user does not already have. Returns domain.EQUOTA when the gate denies.
	Search(ctx context.Context, params domain.LeadSearchParams) (*domain.LeadSearchResult, error)

	// Save stores a single lead. Returns domain.ECONFLICT when the user
	// already has a lead with that email.
	Save(ctx context.Context, params domain.SaveLeadParams) (*domain.Lead, error)

	// List returns the user's leads, newest first.
	List(ctx context.Context, userID uuid.UUID) ([]domain.Lead, error)

	// UpdateStatus moves a lead through the funnel.
	UpdateStatus(ctx context.Context, userID, leadID uuid.UUID, status domain.LeadStatus) (*domain.Lead, error)
}

// LeadStore is the subset of repository.Queries the lead service needs.
type LeadStore interface {
	InsertLeadIfAbsent(ctx context.Context, arg repository.CreateLeadParams) (repository.Lead, error)
	ListExistingLeadEmails(ctx context.Context, userID uuid.UUID, emails []string) ([]string, error)
	ListLeadsByUser(ctx context.Context, userID uuid.UUID) ([]repository.Lead, error)
	UpdateLeadStatus(ctx context.Context, id, userID uuid.UUID, status string) (repository.Lead, error)
}

type leadService struct {
	store   LeadStore
	quota   QuotaService
	fetcher leadsource.Fetcher
	logger  *slog.Logger
}

// NewLeadService creates a new LeadService.
func NewLeadService(store LeadStore, quota QuotaService, fetcher leadsource.Fetcher, logger *slog.Logger) LeadService {
	return &leadService{
		store:   store,
		quota:   quota,
		fetcher: fetcher,
		logger:  logger,
	}
}

// Search runs a gated lead search.
func (s *leadService) Search(ctx context.Context, params domain.LeadSearchParams) (*domain.LeadSearchResult, error) {
	const op = "lead.search"

	params.Keyword = strings.TrimSpace(params.Keyword)
	if params.Keyword == "" {
		return nil, domain.Invalid(op, "Keyword is required")
	}
	platforms := cleanPlatforms(params.Platforms)
	if len(platforms) == 0 {
		platforms = domain.DefaultPlatforms
	}
	if params.DateFrom != nil && params.DateTo != nil && params.DateTo.Before(*params.DateFrom) {
		return nil, domain.Invalid(op, "dateTo must not be before dateFrom")
	}

	decision, err := s.authorize(ctx, op, params.UserID)
	if err != nil {
		return nil, err
	}
	remaining := decision.Remaining()

	candidates, err := s.fetcher.Fetch(ctx, params.Keyword, platforms, leadsource.Filters{
		DateFrom: params.DateFrom,
		DateTo:   params.DateTo,
	})
	if err != nil {
		return nil, domain.Internal(err, op, "Failed to fetch leads")
	}
	candidates = leadsource.Dedupe(candidates)

	result := &domain.LeadSearchResult{Fetched: len(candidates), Leads: []domain.Lead{}}
	if len(candidates) == 0 {
		return result, nil
	}

	emails := make([]string, len(candidates))
	for i, c := range candidates {
		emails[i] = c.Email
	}
	existing, err := s.store.ListExistingLeadEmails(ctx, params.UserID, emails)
	if err != nil {
		return nil, domain.Internal(err, op, "Failed to check existing leads")
	}
	known := make(map[string]struct{}, len(existing))
	for _, e := range existing {
		known[domain.NormalizeEmail(e)] = struct{}{}
	}

	for _, c := range candidates {
		// A single search never saves more than the plan has left.
		if remaining != domain.UnlimitedLeads && len(result.Leads) >= remaining {
			break
		}
		if _, ok := known[c.Email]; ok {
			continue
		}
		row, err := s.store.InsertLeadIfAbsent(ctx, leadParamsFromCandidate(params.UserID, c))
		if err != nil {
			if errors.Is(err, sql.ErrNoRows) {
				// Saved concurrently by another request.
				continue
			}
			// Usage for leads already stored is still recorded.
			s.quota.RecordUsage(ctx, params.UserID, len(result.Leads))
			return nil, domain.Internal(err, op, "Failed to save leads")
		}
		result.Leads = append(result.Leads, *repoLeadToDomain(row))
		metrics.LeadsSavedTotal.WithLabelValues(row.Platform).Inc()
	}
	result.Saved = len(result.Leads)

	s.quota.RecordUsage(ctx, params.UserID, result.Saved)

	s.logger.Info("lead search completed",
		"user_id", params.UserID,
		"keyword", params.Keyword,
		"fetched", result.Fetched,
		"saved", result.Saved,
	)

	return result, nil
}

// Save stores a single lead after passing the quota gate.
func (s *leadService) Save(ctx context.Context, params domain.SaveLeadParams) (*domain.Lead, error) {
	const op = "lead.save"

	params.Email = domain.NormalizeEmail(params.Email)
	params.Name = strings.TrimSpace(params.Name)
	if err := validateEmail(params.Email); err != nil {
		return nil, domain.Wrap(err, domain.EINVALID, op, domain.ErrorMessage(err))
	}
	if params.Platform = strings.TrimSpace(params.Platform); params.Platform == "" {
		params.Platform = ManualPlatform
	}

	if _, err := s.authorize(ctx, op, params.UserID); err != nil {
		return nil, err
	}

	row, err := s.store.InsertLeadIfAbsent(ctx, repository.CreateLeadParams{
		UserID:      params.UserID,
		Name:        params.Name,
		Email:       params.Email,
		Company:     domain.ToNullString(strings.TrimSpace(params.Company)),
		Title:       domain.ToNullString(strings.TrimSpace(params.Title)),
		Platform:    params.Platform,
		ProfileUrl:  domain.ToNullString(strings.TrimSpace(params.ProfileURL)),
		Description: domain.ToNullString(strings.TrimSpace(params.Description)),
	})
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.Conflict(op, "Lead with this email is already saved")
		}
		return nil, domain.Internal(err, op, "Failed to save lead")
	}

	s.quota.RecordUsage(ctx, params.UserID, 1)
	metrics.LeadsSavedTotal.WithLabelValues(row.Platform).Inc()

	s.logger.Info("lead saved", "user_id", params.UserID, "lead_id", row.ID)
	return repoLeadToDomain(row), nil
}

// List returns the user's leads.
func (s *leadService) List(ctx context.Context, userID uuid.UUID) ([]domain.Lead, error) {
	const op = "lead.list"

	rows, err := s.store.ListLeadsByUser(ctx, userID)
	if err != nil {
		return nil, domain.Internal(err, op, "Failed to list leads")
	}

	leads := make([]domain.Lead, len(rows))
	for i, r := range rows {
		leads[i] = *repoLeadToDomain(r)
	}
	return leads, nil
}

// UpdateStatus changes a lead's status.
func (s *leadService) UpdateStatus(ctx context.Context, userID, leadID uuid.UUID, status domain.LeadStatus) (*domain.Lead, error) {
	const op = "lead.update_status"

	if !status.IsValid() {
		return nil, domain.Invalid(op, "Invalid lead status")
	}

	row, err := s.store.UpdateLeadStatus(ctx, leadID, userID, string(status))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.NotFound(op, "lead", leadID.String())
		}
		return nil, domain.Internal(err, op, "Failed to update lead")
	}
	return repoLeadToDomain(row), nil
}

// authorize runs the quota gate and turns a denial into domain.EQUOTA.
func (s *leadService) authorize(ctx context.Context, op string, userID uuid.UUID) (domain.Decision, error) {
	decision, err := s.quota.Authorize(ctx, userID)
	if err != nil {
		return decision, err
	}
	if decision.Denied() {
		return decision, domain.QuotaExceeded(op, decision.LeadsUsed, decision.LeadsLimit)
	}
	return decision, nil
}

// cleanPlatforms trims names and drops empties and repeats.
func cleanPlatforms(in []string) []string {
	seen := make(map[string]struct{}, len(in))
	var out []string
	for _, p := range in {
		p = strings.TrimSpace(p)
		if p == "" {
			continue
		}
		key := strings.ToLower(p)
		if _, ok := seen[key]; ok {
			continue
		}
		seen[key] = struct{}{}
		out = append(out, p)
	}
	return out
}

func leadParamsFromCandidate(userID uuid.UUID, c leadsource.Candidate) repository.CreateLeadParams {
	platform := c.Platform
	if platform == "" {
		platform = ManualPlatform
	}
	return repository.CreateLeadParams{
		UserID:      userID,
		Name:        strings.TrimSpace(c.Name),
		Email:       c.Email,
		Company:     domain.ToNullString(c.Company),
		Title:       domain.ToNullString(c.Title),
		Platform:    platform,
		ProfileUrl:  domain.ToNullString(c.ProfileURL),
		Description: domain.ToNullString(c.Description),
	}
}

func repoLeadToDomain(l repository.Lead) *domain.Lead {
	return &domain.Lead{
		ID:              l.ID,
		UserID:          l.UserID,
		Name:            l.Name,
		Email:           l.Email,
		Company:         domain.NullStringValue(l.Company),
		Title:           domain.NullStringValue(l.Title),
		Platform:        l.Platform,
		ProfileURL:      domain.NullStringValue(l.ProfileUrl),
		Description:     domain.NullStringValue(l.Description),
		Status:          domain.LeadStatus(l.Status),
		EmailsSent:      int(l.EmailsSent),
		LastContactedAt: domain.NullTimeValue(l.LastContactedAt),
		CreatedAt:       l.CreatedAt,
		UpdatedAt:       l.UpdatedAt,
	}
}
