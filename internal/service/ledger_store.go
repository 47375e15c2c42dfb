package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/DukeRupert/nexleads/internal/domain"
	"github.com/DukeRupert/nexleads/internal/repository"
	"github.com/google/uuid"
)

// pgLedgerStore keeps the ledger in the users table and history in
// subscription_history.
type pgLedgerStore struct {
	db      *sql.DB
	queries *repository.Queries
}

// NewLedgerStore creates the Postgres-backed LedgerStore.
func NewLedgerStore(db *sql.DB, queries *repository.Queries) LedgerStore {
	return &pgLedgerStore{db: db, queries: queries}
}

func (s *pgLedgerStore) GetLedger(ctx context.Context, userID uuid.UUID) (*domain.Ledger, error) {
	row, err := s.queries.GetUserLedger(ctx, userID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.NotFound("ledger.get", "user", userID.String())
		}
		return nil, err
	}
	return ledgerFromRow(row.Plan, row.LeadsLimit, row.LeadsUsed, row.ResetDate), nil
}

func (s *pgLedgerStore) IncrementLeadsUsed(ctx context.Context, userID uuid.UUID, n int) error {
	_, err := s.queries.IncrementLeadsUsed(ctx, userID, int32(n))
	if errors.Is(err, sql.ErrNoRows) {
		return domain.NoSubscription("ledger.increment")
	}
	return err
}

func (s *pgLedgerStore) PutLedger(ctx context.Context, userID uuid.UUID, ledger domain.Ledger) error {
	rows, err := s.queries.UpdateUserLedger(ctx, ledgerParams(userID, ledger))
	if err != nil {
		return err
	}
	if rows == 0 {
		return domain.NotFound("ledger.put", "user", userID.String())
	}
	return nil
}

func (s *pgLedgerStore) ReplaceLedgerWithHistory(ctx context.Context, userID uuid.UUID, ledger domain.Ledger, record domain.SubscriptionRecord) (*domain.SubscriptionRecord, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("begin transaction: %w", err)
	}
	defer tx.Rollback()

	qtx := s.queries.WithTx(tx)

	saved, err := qtx.CreateSubscriptionRecord(ctx, repository.CreateSubscriptionRecordParams{
		UserID:        userID,
		Plan:          string(record.Plan),
		Price:         int32(record.Price),
		PaymentMethod: record.PaymentMethod,
		TransactionID: record.TransactionID,
		StartDate:     record.StartDate,
		EndDate:       record.EndDate,
	})
	if err != nil {
		return nil, fmt.Errorf("insert subscription record: %w", err)
	}

	rows, err := qtx.UpdateUserLedger(ctx, ledgerParams(userID, ledger))
	if err != nil {
		return nil, fmt.Errorf("update ledger: %w", err)
	}
	if rows == 0 {
		return nil, domain.NotFound("ledger.replace", "user", userID.String())
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("commit transition: %w", err)
	}

	out := subscriptionRecordFromRepo(saved)
	return &out, nil
}

func (s *pgLedgerStore) ListHistory(ctx context.Context, userID uuid.UUID) ([]domain.SubscriptionRecord, error) {
	rows, err := s.queries.ListSubscriptionRecordsByUser(ctx, userID)
	if err != nil {
		return nil, err
	}
	records := make([]domain.SubscriptionRecord, len(rows))
	for i, r := range rows {
		records[i] = subscriptionRecordFromRepo(r)
	}
	return records, nil
}

func ledgerParams(userID uuid.UUID, l domain.Ledger) repository.UpdateUserLedgerParams {
	p := repository.UpdateUserLedgerParams{
		ID:         userID,
		Plan:       string(l.Plan),
		LeadsLimit: int32(l.LeadsLimit),
		LeadsUsed:  int32(l.LeadsUsed),
	}
	if l.ResetDate != nil {
		p.ResetDate = *l.ResetDate
	}
	return p
}

// ledgerFromRow returns nil unless the plan, limit and usage columns are all
// set. A missing reset date is kept as nil and triggers a reset on next use.
func ledgerFromRow(plan sql.NullString, limit, used sql.NullInt32, reset sql.NullTime) *domain.Ledger {
	if !plan.Valid || !limit.Valid || !used.Valid {
		return nil
	}
	return &domain.Ledger{
		Plan:       domain.PlanID(plan.String),
		LeadsLimit: int(limit.Int32),
		LeadsUsed:  int(used.Int32),
		ResetDate:  domain.NullTimeValue(reset),
	}
}

func subscriptionRecordFromRepo(r repository.SubscriptionHistory) domain.SubscriptionRecord {
	return domain.SubscriptionRecord{
		ID:            r.ID,
		UserID:        r.UserID,
		Plan:          domain.PlanID(r.Plan),
		Price:         int(r.Price),
		PaymentMethod: r.PaymentMethod,
		TransactionID: r.TransactionID,
		StartDate:     r.StartDate,
		EndDate:       r.EndDate,
		CreatedAt:     r.CreatedAt,
	}
}
