package jobs

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/DukeRupert/nexleads/internal/worker"
	"github.com/google/uuid"
)

// Redeliverer sends a stored outreach email again.
type Redeliverer interface {
	Redeliver(ctx context.Context, userID, emailID uuid.UUID, kind string) error
}

// DeliverEmailHandler retries outreach emails whose first send failed.
type DeliverEmailHandler struct {
	emails Redeliverer
	logger *slog.Logger
}

// NewDeliverEmailHandler creates a new handler for email redelivery jobs.
func NewDeliverEmailHandler(emails Redeliverer, logger *slog.Logger) *DeliverEmailHandler {
	return &DeliverEmailHandler{
		emails: emails,
		logger: logger,
	}
}

// Type returns the job type identifier.
func (h *DeliverEmailHandler) Type() string {
	return worker.JobTypeDeliverEmail
}

// Handle sends the email named in the payload. Errors from Redeliver keep
// their permanence so rejected mail is not retried.
func (h *DeliverEmailHandler) Handle(ctx context.Context, payload []byte) error {
	var p worker.DeliverEmailPayload
	if err := json.Unmarshal(payload, &p); err != nil {
		return worker.NewPermanentError(fmt.Errorf("invalid payload: %w", err))
	}
	if p.EmailID == uuid.Nil || p.UserID == uuid.Nil {
		return worker.NewPermanentError(fmt.Errorf("payload missing email or user id"))
	}

	if err := h.emails.Redeliver(ctx, p.UserID, p.EmailID, p.Kind); err != nil {
		return fmt.Errorf("redeliver email %s: %w", p.EmailID, err)
	}

	h.logger.Info("Redelivered email", "email_id", p.EmailID, "user_id", p.UserID, "kind", p.Kind)
	return nil
}

var _ worker.JobHandler = (*DeliverEmailHandler)(nil)
