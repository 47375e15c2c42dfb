package service

import (
	"context"
	"log/slog"

	"github.com/DukeRupert/nexleads/internal/domain"
	"github.com/DukeRupert/nexleads/internal/repository"
	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"
)

// DashboardService builds the per-user dashboard summary.
type DashboardService interface {
	Stats(ctx context.Context, userID uuid.UUID) (*domain.DashboardStats, error)
}

// DashboardStore is the subset of repository.Queries the dashboard reads.
type DashboardStore interface {
	GetEmailStatsByUser(ctx context.Context, userID uuid.UUID) (repository.GetEmailStatsByUserRow, error)
	CountLeadsByUser(ctx context.Context, userID uuid.UUID) (int64, error)
	CountLeadsByPlatform(ctx context.Context, userID uuid.UUID) ([]repository.CountLeadsByPlatformRow, error)
	ListActiveProjects(ctx context.Context, userID uuid.UUID, limit int32) ([]repository.ProjectWithLead, error)
	CountProjectsByUser(ctx context.Context, userID uuid.UUID) (int64, error)
}

type dashboardService struct {
	store  DashboardStore
	quota  QuotaService
	logger *slog.Logger
}

// NewDashboardService creates a new DashboardService.
func NewDashboardService(store DashboardStore, quota QuotaService, logger *slog.Logger) DashboardService {
	return &dashboardService{
		store:  store,
		quota:  quota,
		logger: logger,
	}
}

// Stats runs the dashboard queries concurrently. Received emails count as
// responses.
func (s *dashboardService) Stats(ctx context.Context, userID uuid.UUID) (*domain.DashboardStats, error) {
	const op = "dashboard.stats"

	var (
		emailStats repository.GetEmailStatsByUserRow
		leadCount  int64
		platforms  []repository.CountLeadsByPlatformRow
		active     []repository.ProjectWithLead
		projects   int64
		ledger     *domain.Ledger
	)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() (err error) {
		emailStats, err = s.store.GetEmailStatsByUser(gctx, userID)
		return err
	})
	g.Go(func() (err error) {
		leadCount, err = s.store.CountLeadsByUser(gctx, userID)
		return err
	})
	g.Go(func() (err error) {
		platforms, err = s.store.CountLeadsByPlatform(gctx, userID)
		return err
	})
	g.Go(func() (err error) {
		active, err = s.store.ListActiveProjects(gctx, userID, domain.MaxActiveProjects)
		return err
	})
	g.Go(func() (err error) {
		projects, err = s.store.CountProjectsByUser(gctx, userID)
		return err
	})
	if err := g.Wait(); err != nil {
		return nil, domain.Internal(err, op, "Failed to load dashboard stats")
	}

	// The dashboard still renders for accounts without a ledger.
	ledger, err := s.quota.Current(ctx, userID)
	if err != nil && domain.ErrorCode(err) == domain.EINTERNAL {
		return nil, err
	}

	stats := &domain.DashboardStats{
		TotalEmailsSent:   emailStats.Sent,
		TotalEmailsOpened: emailStats.Opened,
		TotalResponses:    emailStats.Received,
		TotalLeads:        leadCount,
		EmailBreakdown: domain.EmailBreakdown{
			Sent:      emailStats.Sent,
			Opened:    emailStats.Opened,
			Responses: emailStats.Received,
			Bounced:   emailStats.Bounced,
		},
		PlatformBreakdown: make([]domain.PlatformCount, len(platforms)),
		ActiveProjects:    make([]domain.Project, len(active)),
		Funnel: domain.Funnel{
			Leads:     leadCount,
			Emails:    emailStats.Sent,
			Responses: emailStats.Received,
			Projects:  projects,
		},
		Subscription: ledger,
	}
	for i, p := range platforms {
		stats.PlatformBreakdown[i] = domain.PlatformCount{Platform: p.Platform, Count: p.Count}
	}
	for i, p := range active {
		stats.ActiveProjects[i] = *repoProjectWithLeadToDomain(p)
	}
	return stats, nil
}
