package worker

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/DukeRupert/nexleads/internal/repository"
	"github.com/google/uuid"
)

// Job type constants - these must match the JobHandler.Type() values
const (
	JobTypeDeliverEmail = "deliver_email"
)

// Priority constants for job scheduling
const (
	PriorityLow    = 0
	PriorityNormal = 10
	PriorityHigh   = 20
)

// DeliverEmailPayload is the payload for outreach redelivery jobs. The email
// row already exists; the job only sends it.
type DeliverEmailPayload struct {
	EmailID uuid.UUID `json:"email_id"`
	UserID  uuid.UUID `json:"user_id"`
	Kind    string    `json:"kind"` // compose, bulk, followup, resend
}

// Enqueuer inserts jobs. *repository.Queries satisfies it.
type Enqueuer interface {
	EnqueueJob(ctx context.Context, arg repository.EnqueueJobParams) (repository.Job, error)
}

// EnqueueOption is a functional option for customizing job enqueue parameters.
type EnqueueOption func(*repository.EnqueueJobParams)

// WithPriority sets the job priority.
func WithPriority(priority int32) EnqueueOption {
	return func(p *repository.EnqueueJobParams) {
		p.Priority = priority
	}
}

// WithMaxAttempts sets the maximum number of attempts.
func WithMaxAttempts(attempts int32) EnqueueOption {
	return func(p *repository.EnqueueJobParams) {
		p.MaxAttempts = attempts
	}
}

// WithDelay schedules the job to run after a delay.
func WithDelay(delay time.Duration) EnqueueOption {
	return func(p *repository.EnqueueJobParams) {
		p.ScheduledAt = time.Now().Add(delay)
	}
}

// EnqueueJob marshals payload and inserts a pending job.
func EnqueueJob(
	ctx context.Context,
	q Enqueuer,
	jobType string,
	payload interface{},
	opts ...EnqueueOption,
) (repository.Job, error) {
	payloadJSON, err := json.Marshal(payload)
	if err != nil {
		return repository.Job{}, fmt.Errorf("marshal payload: %w", err)
	}

	params := repository.EnqueueJobParams{
		JobType:     jobType,
		Payload:     payloadJSON,
		Priority:    PriorityNormal,
		MaxAttempts: 3,
		ScheduledAt: time.Now(),
	}
	for _, opt := range opts {
		opt(&params)
	}

	job, err := q.EnqueueJob(ctx, params)
	if err != nil {
		return repository.Job{}, fmt.Errorf("enqueue job: %w", err)
	}
	return job, nil
}

// EnqueueDeliverEmail schedules redelivery of a stored email. The first
// retry waits a minute so a flapping SMTP relay has time to recover.
func EnqueueDeliverEmail(
	ctx context.Context,
	q Enqueuer,
	emailID, userID uuid.UUID,
	kind string,
	opts ...EnqueueOption,
) (repository.Job, error) {
	payload := DeliverEmailPayload{
		EmailID: emailID,
		UserID:  userID,
		Kind:    kind,
	}
	opts = append([]EnqueueOption{WithDelay(time.Minute), WithMaxAttempts(5)}, opts...)
	return EnqueueJob(ctx, q, JobTypeDeliverEmail, payload, opts...)
}
