// Package service contains the business logic layer.
//
// This file implements the quota core: the enforcement gate run before a
// lead-consuming action, the usage recorder run after it, and the plan
// transition handler invoked once a payment is confirmed.
package service

import (
	"context"
	"log/slog"
	"time"

	"github.com/DukeRupert/nexleads/internal/domain"
	"github.com/DukeRupert/nexleads/internal/metrics"
	"github.com/google/uuid"
)

// =============================================================================
// Interface Definition
// =============================================================================

// QuotaService gates and meters lead consumption.
//
// Authorize and RecordUsage are not linearized: a caller checks, performs its
// action, then records. Concurrent requests from one account can each pass the
// gate before any of them records usage, so an account may exceed its limit
// by up to (concurrency - 1) leads in a cycle. The limit is a soft limit.
type QuotaService interface {
	// Authorize decides whether the account may consume quota now. It performs
	// the lazy cycle reset and persists it before deciding. A denied decision
	// is returned with a nil error. Accounts without a ledger fail with
	// domain.ErrNoSubscription.
	Authorize(ctx context.Context, userID uuid.UUID) (domain.Decision, error)

	// RecordUsage adds count to the account's usage with an atomic increment.
	// Failures are logged and never returned.
	RecordUsage(ctx context.Context, userID uuid.UUID, count int)

	// ApplyTransition moves the account to a plan, appends a history record and
	// resets the ledger in one transaction. Unknown plans fail with
	// domain.ErrInvalidPlan.
	ApplyTransition(ctx context.Context, params domain.TransitionParams) (*domain.SubscriptionRecord, error)

	// Current returns the account's ledger after applying any due cycle reset.
	Current(ctx context.Context, userID uuid.UUID) (*domain.Ledger, error)

	// History lists the account's plan history, newest first.
	History(ctx context.Context, userID uuid.UUID) ([]domain.SubscriptionRecord, error)
}

// LedgerStore is the persistence the quota core needs.
type LedgerStore interface {
	// GetLedger returns nil, nil when the account exists but has no ledger.
	GetLedger(ctx context.Context, userID uuid.UUID) (*domain.Ledger, error)

	// IncrementLeadsUsed must add n atomically in the store.
	IncrementLeadsUsed(ctx context.Context, userID uuid.UUID, n int) error

	// PutLedger overwrites all ledger fields in one write.
	PutLedger(ctx context.Context, userID uuid.UUID, ledger domain.Ledger) error

	// ReplaceLedgerWithHistory appends record and overwrites the ledger
	// together, or does neither.
	ReplaceLedgerWithHistory(ctx context.Context, userID uuid.UUID, ledger domain.Ledger, record domain.SubscriptionRecord) (*domain.SubscriptionRecord, error)

	// ListHistory returns history records newest first.
	ListHistory(ctx context.Context, userID uuid.UUID) ([]domain.SubscriptionRecord, error)
}

// =============================================================================
// Implementation
// =============================================================================

type quotaService struct {
	store  LedgerStore
	logger *slog.Logger
	now    func() time.Time
}

// NewQuotaService creates a new QuotaService.
func NewQuotaService(store LedgerStore, logger *slog.Logger) QuotaService {
	return &quotaService{
		store:  store,
		logger: logger,
		now:    func() time.Time { return time.Now().UTC() },
	}
}

// Authorize runs the quota gate for an account.
func (s *quotaService) Authorize(ctx context.Context, userID uuid.UUID) (domain.Decision, error) {
	const op = "quota.authorize"

	ledger, err := s.store.GetLedger(ctx, userID)
	if err != nil {
		return domain.Decision{}, wrapStoreError(err, op, "failed to load subscription ledger")
	}
	if ledger == nil {
		metrics.QuotaDecisionsTotal.WithLabelValues("no_subscription").Inc()
		s.logger.Error("account has no subscription ledger", "user_id", userID)
		return domain.Decision{}, domain.NoSubscription(op)
	}

	next, reset, decision := ledger.Evaluate(s.now())
	if reset {
		// Persisted before the decision is returned so the new cycle sticks even
		// if the caller's action later fails.
		if err := s.store.PutLedger(ctx, userID, next); err != nil {
			return domain.Decision{}, wrapStoreError(err, op, "failed to reset quota cycle")
		}
		metrics.QuotaCycleResetsTotal.Inc()
		s.logger.Info("quota cycle reset",
			"user_id", userID,
			"plan", next.Plan,
			"reset_date", next.ResetDate,
		)
	}

	if decision.Denied() {
		metrics.QuotaDecisionsTotal.WithLabelValues("denied").Inc()
		s.logger.Info("lead quota exceeded",
			"user_id", userID,
			"plan", next.Plan,
			"leads_used", decision.LeadsUsed,
			"leads_limit", decision.LeadsLimit,
		)
		return decision, nil
	}

	metrics.QuotaDecisionsTotal.WithLabelValues("allowed").Inc()
	return decision, nil
}

// RecordUsage increments the account's usage counter.
func (s *quotaService) RecordUsage(ctx context.Context, userID uuid.UUID, count int) {
	if count <= 0 {
		return
	}

	if err := s.store.IncrementLeadsUsed(ctx, userID, count); err != nil {
		metrics.UsageRecordFailuresTotal.Inc()
		s.logger.Error("failed to record lead usage",
			"user_id", userID,
			"count", count,
			"error", err,
		)
		return
	}

	s.logger.Debug("lead usage recorded", "user_id", userID, "count", count)
}

// ApplyTransition changes an account's plan.
func (s *quotaService) ApplyTransition(ctx context.Context, params domain.TransitionParams) (*domain.SubscriptionRecord, error) {
	const op = "quota.apply_transition"

	plan, err := domain.ResolvePlan(params.PlanID)
	if err != nil {
		return nil, err
	}

	now := s.now()
	endDate := now.Add(domain.CycleLength)

	record := domain.SubscriptionRecord{
		UserID:        params.UserID,
		Plan:          plan.ID,
		Price:         plan.MonthlyPrice,
		PaymentMethod: params.PaymentMethod,
		TransactionID: params.TransactionID,
		StartDate:     now,
		EndDate:       endDate,
	}
	if record.PaymentMethod == "" {
		record.PaymentMethod = domain.PaymentMethodManual
	}

	saved, err := s.store.ReplaceLedgerWithHistory(ctx, params.UserID, domain.LedgerForPlan(plan, endDate), record)
	if err != nil {
		return nil, wrapStoreError(err, op, "failed to apply subscription change")
	}

	metrics.PlanTransitionsTotal.WithLabelValues(string(plan.ID), record.PaymentMethod).Inc()
	s.logger.Info("subscription plan changed",
		"user_id", params.UserID,
		"plan", plan.ID,
		"price", plan.MonthlyPrice,
		"payment_method", record.PaymentMethod,
		"transaction_id", params.TransactionID,
		"end_date", endDate,
	)

	return saved, nil
}

// Current returns the ledger with any due cycle reset applied and persisted.
func (s *quotaService) Current(ctx context.Context, userID uuid.UUID) (*domain.Ledger, error) {
	const op = "quota.current"

	ledger, err := s.store.GetLedger(ctx, userID)
	if err != nil {
		return nil, wrapStoreError(err, op, "failed to load subscription ledger")
	}
	if ledger == nil {
		return nil, domain.NoSubscription(op)
	}

	next, reset, _ := ledger.Evaluate(s.now())
	if reset {
		if err := s.store.PutLedger(ctx, userID, next); err != nil {
			return nil, wrapStoreError(err, op, "failed to reset quota cycle")
		}
		metrics.QuotaCycleResetsTotal.Inc()
	}
	return &next, nil
}

// History lists an account's subscription records.
func (s *quotaService) History(ctx context.Context, userID uuid.UUID) ([]domain.SubscriptionRecord, error) {
	const op = "quota.history"

	records, err := s.store.ListHistory(ctx, userID)
	if err != nil {
		return nil, wrapStoreError(err, op, "failed to list subscription history")
	}
	if records == nil {
		records = []domain.SubscriptionRecord{}
	}
	return records, nil
}

// wrapStoreError keeps domain errors from the store intact and wraps
// anything else as internal.
func wrapStoreError(err error, op, message string) error {
	if domain.ErrorCode(err) != domain.EINTERNAL {
		return err
	}
	return domain.Internal(err, op, message)
}
