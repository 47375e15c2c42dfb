package worker

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/DukeRupert/nexleads/internal/repository"
	"github.com/google/uuid"
)

func TestConfig_Validate(t *testing.T) {
	tests := []struct {
		name    string
		config  Config
		wantErr bool
	}{
		{
			name:    "valid default config",
			config:  DefaultConfig(),
			wantErr: false,
		},
		{
			name: "concurrency too low",
			config: Config{
				Concurrency:       0,
				PollInterval:      5 * time.Second,
				JobTimeout:        5 * time.Minute,
				ShutdownTimeout:   30 * time.Second,
				StaleJobThreshold: 10 * time.Minute,
			},
			wantErr: true,
		},
		{
			name: "concurrency too high",
			config: Config{
				Concurrency:       101,
				PollInterval:      5 * time.Second,
				JobTimeout:        5 * time.Minute,
				ShutdownTimeout:   30 * time.Second,
				StaleJobThreshold: 10 * time.Minute,
			},
			wantErr: true,
		},
		{
			name: "poll interval too short",
			config: Config{
				Concurrency:       2,
				PollInterval:      500 * time.Millisecond,
				JobTimeout:        5 * time.Minute,
				ShutdownTimeout:   30 * time.Second,
				StaleJobThreshold: 10 * time.Minute,
			},
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.config.Validate()
			if (err != nil) != tt.wantErr {
				t.Errorf("Config.Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestIsPermanent(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want bool
	}{
		{
			name: "permanent error",
			err:  NewPermanentError(context.Canceled),
			want: true,
		},
		{
			name: "regular error",
			err:  context.Canceled,
			want: false,
		},
		{
			name: "nil error",
			err:  nil,
			want: false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := IsPermanent(tt.err); got != tt.want {
				t.Errorf("IsPermanent() = %v, want %v", got, tt.want)
			}
		})
	}
}

type mockEnqueuer struct {
	EnqueueJobFunc func(ctx context.Context, arg repository.EnqueueJobParams) (repository.Job, error)
	calls          []repository.EnqueueJobParams
}

func (m *mockEnqueuer) EnqueueJob(ctx context.Context, arg repository.EnqueueJobParams) (repository.Job, error) {
	m.calls = append(m.calls, arg)
	if m.EnqueueJobFunc != nil {
		return m.EnqueueJobFunc(ctx, arg)
	}
	return repository.Job{ID: uuid.New(), JobType: arg.JobType, Payload: arg.Payload}, nil
}

func TestEnqueueDeliverEmail(t *testing.T) {
	q := &mockEnqueuer{}
	emailID := uuid.New()
	userID := uuid.New()

	before := time.Now()
	job, err := EnqueueDeliverEmail(context.Background(), q, emailID, userID, "bulk", WithPriority(PriorityHigh))
	if err != nil {
		t.Fatalf("EnqueueDeliverEmail() error = %v", err)
	}
	if job.JobType != JobTypeDeliverEmail {
		t.Errorf("JobType = %q, want %q", job.JobType, JobTypeDeliverEmail)
	}
	if len(q.calls) != 1 {
		t.Fatalf("expected 1 enqueue call, got %d", len(q.calls))
	}

	params := q.calls[0]
	if params.Priority != PriorityHigh {
		t.Errorf("Priority = %d, want %d", params.Priority, PriorityHigh)
	}
	if params.MaxAttempts != 5 {
		t.Errorf("MaxAttempts = %d, want 5", params.MaxAttempts)
	}
	if params.ScheduledAt.Before(before.Add(time.Minute)) {
		t.Errorf("ScheduledAt = %v, want at least a minute after %v", params.ScheduledAt, before)
	}

	var payload DeliverEmailPayload
	if err := json.Unmarshal(params.Payload, &payload); err != nil {
		t.Fatalf("unmarshal payload: %v", err)
	}
	if payload.EmailID != emailID || payload.UserID != userID || payload.Kind != "bulk" {
		t.Errorf("payload = %+v", payload)
	}
}

func TestEnqueueJob_Error(t *testing.T) {
	q := &mockEnqueuer{
		EnqueueJobFunc: func(context.Context, repository.EnqueueJobParams) (repository.Job, error) {
			return repository.Job{}, errors.New("connection reset")
		},
	}

	if _, err := EnqueueJob(context.Background(), q, JobTypeDeliverEmail, DeliverEmailPayload{}); err == nil {
		t.Error("expected error")
	}
}

func TestEnqueueJob_UnmarshalablePayload(t *testing.T) {
	q := &mockEnqueuer{}

	if _, err := EnqueueJob(context.Background(), q, JobTypeDeliverEmail, make(chan int)); err == nil {
		t.Error("expected marshal error")
	}
	if len(q.calls) != 0 {
		t.Errorf("expected no enqueue calls, got %d", len(q.calls))
	}
}
