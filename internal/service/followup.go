package service

import (
	"context"
	"database/sql"
	"errors"
	"log/slog"
	"strings"

	"github.com/DukeRupert/nexleads/internal/domain"
	"github.com/DukeRupert/nexleads/internal/repository"
	"github.com/google/uuid"
)

// FollowUpService tracks follow-up campaigns and sends follow-up messages.
type FollowUpService interface {
	// Stats totals the user's follow-up records matching the filter.
	Stats(ctx context.Context, filter domain.FollowUpFilter) (*domain.FollowUpStats, error)

	// Record creates a follow-up record for a job field and platform.
	Record(ctx context.Context, params domain.CreateFollowUpParams) (*domain.FollowUp, error)

	// Send delivers a follow-up message to the recipients and adds their
	// count to the record's followUpsSent.
	Send(ctx context.Context, params domain.SendFollowUpParams) (*domain.FollowUp, *domain.SendResult, error)

	// UpdateCounts overwrites the record's counters.
	UpdateCounts(ctx context.Context, params domain.UpdateFollowUpParams) (*domain.FollowUp, error)
}

// FollowUpStore is the subset of repository.Queries the follow-up service needs.
type FollowUpStore interface {
	CreateFollowUp(ctx context.Context, arg repository.CreateFollowUpParams) (repository.FollowUp, error)
	GetFollowUpByIDAndUser(ctx context.Context, id, userID uuid.UUID) (repository.FollowUp, error)
	ListFollowUps(ctx context.Context, arg repository.ListFollowUpsParams) ([]repository.FollowUp, error)
	UpdateFollowUpCounts(ctx context.Context, arg repository.UpdateFollowUpCountsParams) (repository.FollowUp, error)
	RecordFollowUpsSent(ctx context.Context, id, userID uuid.UUID, count int32) (repository.FollowUp, error)
}

type followUpService struct {
	store  FollowUpStore
	emails EmailService
	logger *slog.Logger
}

// NewFollowUpService creates a new FollowUpService.
func NewFollowUpService(store FollowUpStore, emails EmailService, logger *slog.Logger) FollowUpService {
	return &followUpService{
		store:  store,
		emails: emails,
		logger: logger,
	}
}

func (s *followUpService) Stats(ctx context.Context, filter domain.FollowUpFilter) (*domain.FollowUpStats, error) {
	const op = "followup.stats"

	if filter.DateFrom != nil && filter.DateTo != nil && filter.DateTo.Before(*filter.DateFrom) {
		return nil, domain.Invalid(op, "dateTo must not be before dateFrom")
	}

	rows, err := s.store.ListFollowUps(ctx, repository.ListFollowUpsParams{
		UserID:   filter.UserID,
		Platform: strings.TrimSpace(filter.Platform),
		DateFrom: domain.ToNullTime(filter.DateFrom),
		DateTo:   domain.ToNullTime(filter.DateTo),
	})
	if err != nil {
		return nil, domain.Internal(err, op, "Failed to load follow-up stats")
	}

	records := make([]domain.FollowUp, len(rows))
	for i, r := range rows {
		records[i] = *repoFollowUpToDomain(r)
	}
	stats := domain.SummarizeFollowUps(records)
	return &stats, nil
}

func (s *followUpService) Record(ctx context.Context, params domain.CreateFollowUpParams) (*domain.FollowUp, error) {
	const op = "followup.record"

	params.JobField = strings.TrimSpace(params.JobField)
	params.Platform = strings.TrimSpace(params.Platform)

	var verr *domain.ValidationError
	if params.JobField == "" {
		verr = domain.NewValidationError(op, "jobField", "Job field is required")
	}
	if params.Platform == "" {
		verr = addField(verr, op, "platform", "Platform is required")
	}
	if params.TotalLeadsSent < 0 {
		verr = addField(verr, op, "totalLeadsSent", "Must not be negative")
	}
	if verr != nil {
		return nil, verr
	}

	row, err := s.store.CreateFollowUp(ctx, repository.CreateFollowUpParams{
		UserID:         params.UserID,
		JobField:       params.JobField,
		Platform:       params.Platform,
		TotalLeadsSent: int32(params.TotalLeadsSent),
	})
	if err != nil {
		return nil, domain.Internal(err, op, "Failed to record follow-up")
	}

	s.logger.Info("follow-up recorded", "user_id", params.UserID, "follow_up_id", row.ID, "platform", row.Platform)
	return repoFollowUpToDomain(row), nil
}

// Send delivers the message through the same path as bulk email. Follow-ups
// are available on every plan.
func (s *followUpService) Send(ctx context.Context, params domain.SendFollowUpParams) (*domain.FollowUp, *domain.SendResult, error) {
	const op = "followup.send"

	if _, err := s.store.GetFollowUpByIDAndUser(ctx, params.ID, params.UserID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil, domain.NotFound(op, "follow-up", params.ID.String())
		}
		return nil, nil, domain.Internal(err, op, "Failed to load follow-up")
	}

	result, err := s.emails.SendToRecipients(ctx, domain.BulkSendParams{
		UserID:     params.UserID,
		Recipients: params.Recipients,
		Subject:    params.Subject,
		Body:       params.Body,
	}, KindFollowUp)
	if err != nil {
		return nil, nil, err
	}

	row, err := s.store.RecordFollowUpsSent(ctx, params.ID, params.UserID, int32(len(params.Recipients)))
	if err != nil {
		return nil, nil, domain.Internal(err, op, "Failed to update follow-up")
	}

	s.logger.Info("follow-up sent",
		"user_id", params.UserID,
		"follow_up_id", params.ID,
		"sent", result.Sent,
		"failed", result.Failed,
	)
	return repoFollowUpToDomain(row), result, nil
}

func (s *followUpService) UpdateCounts(ctx context.Context, params domain.UpdateFollowUpParams) (*domain.FollowUp, error) {
	const op = "followup.update"

	if params.TotalLeadsSent < 0 || params.FollowUpsSent < 0 || params.Responses < 0 {
		return nil, domain.Invalid(op, "Counts must not be negative")
	}

	row, err := s.store.UpdateFollowUpCounts(ctx, repository.UpdateFollowUpCountsParams{
		ID:             params.ID,
		UserID:         params.UserID,
		TotalLeadsSent: int32(params.TotalLeadsSent),
		FollowUpsSent:  int32(params.FollowUpsSent),
		Responses:      int32(params.Responses),
	})
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.NotFound(op, "follow-up", params.ID.String())
		}
		return nil, domain.Internal(err, op, "Failed to update follow-up")
	}
	return repoFollowUpToDomain(row), nil
}

// addField appends a field error, creating the ValidationError on first use.
func addField(verr *domain.ValidationError, op, field, message string) *domain.ValidationError {
	if verr == nil {
		return domain.NewValidationError(op, field, message)
	}
	verr.Fields[field] = message
	return verr
}

func repoFollowUpToDomain(f repository.FollowUp) *domain.FollowUp {
	return &domain.FollowUp{
		ID:               f.ID,
		UserID:           f.UserID,
		JobField:         f.JobField,
		Platform:         f.Platform,
		TotalLeadsSent:   int(f.TotalLeadsSent),
		FollowUpsSent:    int(f.FollowUpsSent),
		Responses:        int(f.Responses),
		LastFollowUpDate: domain.NullTimeValue(f.LastFollowUpDate),
		CreatedAt:        f.CreatedAt,
		UpdatedAt:        f.UpdatedAt,
	}
}
