package service

import (
	"context"
	"database/sql"
	"errors"
	"log/slog"
	"strings"
	"time"

	"github.com/DukeRupert/nexleads/internal/domain"
	"github.com/DukeRupert/nexleads/internal/repository"
	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"
)

// NoPreviousPlan is shown for accounts with fewer than two history records.
const NoPreviousPlan = "None"

// AdminService provides the platform-wide views used by administrators.
type AdminService interface {
	Stats(ctx context.Context) (*domain.AdminStats, error)

	// ListUsers returns customer accounts whose name or email contains search.
	ListUsers(ctx context.Context, search string) ([]domain.AdminUserSummary, error)

	GetUser(ctx context.Context, userID uuid.UUID) (*domain.AdminUserDetail, error)

	// ToggleBlocked flips the blocked flag and returns the new value.
	ToggleBlocked(ctx context.Context, userID uuid.UUID) (bool, error)
}

// AdminStore is the subset of repository.Queries the admin service needs.
type AdminStore interface {
	CountUsersByType(ctx context.Context, userType string) (int64, error)
	CountAllLeads(ctx context.Context) (int64, error)
	SumActiveSubscriptionEarnings(ctx context.Context, now time.Time) (int64, error)
	ListAdminUsers(ctx context.Context, search string) ([]repository.ListAdminUsersRow, error)
	GetUserByID(ctx context.Context, id uuid.UUID) (repository.User, error)
	ListLeadsByUser(ctx context.Context, userID uuid.UUID) ([]repository.Lead, error)
	ToggleUserBlocked(ctx context.Context, id uuid.UUID) (bool, error)
}

type adminService struct {
	store  AdminStore
	quota  QuotaService
	logger *slog.Logger
	now    func() time.Time
}

// NewAdminService creates a new AdminService.
func NewAdminService(store AdminStore, quota QuotaService, logger *slog.Logger) AdminService {
	return &adminService{
		store:  store,
		quota:  quota,
		logger: logger,
		now:    time.Now,
	}
}

// Stats counts customers and leads and sums the prices of subscriptions
// still running.
func (s *adminService) Stats(ctx context.Context) (*domain.AdminStats, error) {
	const op = "admin.stats"

	var stats domain.AdminStats
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() (err error) {
		stats.TotalUsers, err = s.store.CountUsersByType(gctx, string(domain.UserTypeUser))
		return err
	})
	g.Go(func() (err error) {
		stats.TotalLeads, err = s.store.CountAllLeads(gctx)
		return err
	})
	g.Go(func() (err error) {
		stats.TotalEarnings, err = s.store.SumActiveSubscriptionEarnings(gctx, s.now())
		return err
	})
	if err := g.Wait(); err != nil {
		return nil, domain.Internal(err, op, "Failed to load admin stats")
	}
	return &stats, nil
}

func (s *adminService) ListUsers(ctx context.Context, search string) ([]domain.AdminUserSummary, error) {
	const op = "admin.list_users"

	rows, err := s.store.ListAdminUsers(ctx, strings.TrimSpace(search))
	if err != nil {
		return nil, domain.Internal(err, op, "Failed to list users")
	}

	users := make([]domain.AdminUserSummary, len(rows))
	for i, r := range rows {
		users[i] = domain.AdminUserSummary{
			ID:              r.ID,
			Name:            r.Name,
			Email:           r.Email,
			CurrentPackage:  planLabel(r.Plan),
			PreviousPackage: planLabel(r.PreviousPlan),
			LeadCount:       r.LeadCount,
			IsBlocked:       r.IsBlocked,
			CreatedAt:       r.CreatedAt,
		}
	}
	return users, nil
}

func (s *adminService) GetUser(ctx context.Context, userID uuid.UUID) (*domain.AdminUserDetail, error) {
	const op = "admin.get_user"

	row, err := s.store.GetUserByID(ctx, userID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.NotFound(op, "user", userID.String())
		}
		return nil, domain.Internal(err, op, "Failed to get user")
	}

	history, err := s.quota.History(ctx, userID)
	if err != nil {
		return nil, err
	}

	leadRows, err := s.store.ListLeadsByUser(ctx, userID)
	if err != nil {
		return nil, domain.Internal(err, op, "Failed to list leads")
	}
	leads := make([]domain.Lead, len(leadRows))
	for i, l := range leadRows {
		leads[i] = *repoLeadToDomain(l)
	}

	return &domain.AdminUserDetail{
		User:          repoUserToDomain(row),
		Subscriptions: history,
		Leads:         leads,
	}, nil
}

func (s *adminService) ToggleBlocked(ctx context.Context, userID uuid.UUID) (bool, error) {
	const op = "admin.toggle_blocked"

	blocked, err := s.store.ToggleUserBlocked(ctx, userID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return false, domain.NotFound(op, "user", userID.String())
		}
		return false, domain.Internal(err, op, "Failed to update user")
	}

	s.logger.Info("user block toggled", "user_id", userID, "blocked", blocked)
	return blocked, nil
}

func planLabel(plan sql.NullString) string {
	if !plan.Valid || plan.String == "" {
		return NoPreviousPlan
	}
	return domain.PlanID(plan.String).DisplayName()
}
