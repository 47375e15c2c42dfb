package service

import (
	"bytes"
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/DukeRupert/nexleads/internal/domain"
	"github.com/DukeRupert/nexleads/internal/email"
	"github.com/DukeRupert/nexleads/internal/metrics"
	"github.com/DukeRupert/nexleads/internal/repository"
	"github.com/DukeRupert/nexleads/internal/storage"
	"github.com/DukeRupert/nexleads/internal/worker"
	"github.com/google/uuid"
	"github.com/sqlc-dev/pqtype"
	"golang.org/x/sync/errgroup"
)

// Delivery kinds, used as metric labels and job payloads.
const (
	KindCompose  = "compose"
	KindBulk     = "bulk"
	KindFollowUp = "followup"
	KindResend   = "resend"
)

// DefaultSendConcurrency bounds parallel SMTP sends for one request.
const DefaultSendConcurrency = 5

// EmailService defines the interface for outreach email operations.
type EmailService interface {
	// Compose sends one message to each of the user's selected leads.
	Compose(ctx context.Context, params domain.ComposeParams) (*domain.ComposeResult, error)

	// SendBulk sends to arbitrary recipients. Paid plans only.
	SendBulk(ctx context.Context, params domain.BulkSendParams) (*domain.SendResult, error)

	// SendToRecipients is the delivery path shared by bulk and follow-ups.
	// It does not check the plan.
	SendToRecipients(ctx context.Context, params domain.BulkSendParams, kind string) (*domain.SendResult, error)

	List(ctx context.Context, userID uuid.UUID, folder string) ([]domain.Email, error)

	// Get returns one email, marking received mail as read.
	Get(ctx context.Context, userID, emailID uuid.UUID) (*domain.Email, error)

	SaveDraft(ctx context.Context, params domain.DraftParams) (*domain.Email, error)
	Move(ctx context.Context, userID, emailID uuid.UUID, folder domain.EmailFolder) (*domain.Email, error)

	// Resend replaces the body of a stored email and sends it again.
	Resend(ctx context.Context, userID, emailID uuid.UUID, body string) (*domain.Email, error)

	// TrackOpen records a tracking pixel hit.
	TrackOpen(ctx context.Context, emailID uuid.UUID) error

	// Redeliver sends a stored email again. Called by the deliver_email job.
	Redeliver(ctx context.Context, userID, emailID uuid.UUID, kind string) error
}

// EmailStore is the subset of repository.Queries the email service needs.
type EmailStore interface {
	GetUserByID(ctx context.Context, id uuid.UUID) (repository.User, error)
	CreateEmail(ctx context.Context, arg repository.CreateEmailParams) (repository.Email, error)
	GetEmailByIDAndUser(ctx context.Context, id, userID uuid.UUID) (repository.Email, error)
	ListEmailsByFolder(ctx context.Context, userID uuid.UUID, folder string) ([]repository.ListEmailsByFolderRow, error)
	MarkEmailOpened(ctx context.Context, id uuid.UUID) (repository.Email, error)
	MarkEmailRead(ctx context.Context, id, userID uuid.UUID) error
	MarkEmailBounced(ctx context.Context, id uuid.UUID) error
	UpdateEmailFolder(ctx context.Context, id, userID uuid.UUID, folder string) (repository.Email, error)
	UpdateEmailForResend(ctx context.Context, id, userID uuid.UUID, body string) (repository.Email, error)
	ListLeadsByIDsAndUser(ctx context.Context, userID uuid.UUID, ids []uuid.UUID) ([]repository.Lead, error)
	RecordLeadContacted(ctx context.Context, id, userID uuid.UUID) error
}

// EmailServiceConfig holds the email service settings.
type EmailServiceConfig struct {
	// APIBaseURL prefixes tracking pixel URLs, e.g. "https://api.nexleads.io".
	APIBaseURL string

	// Concurrency bounds parallel sends. Zero uses DefaultSendConcurrency.
	Concurrency int
}

type emailService struct {
	store  EmailStore
	mailer email.Mailer
	files  storage.Storage
	jobs   worker.Enqueuer
	cfg    EmailServiceConfig
	logger *slog.Logger
	now    func() time.Time
}

// NewEmailService creates a new EmailService.
func NewEmailService(
	store EmailStore,
	mailer email.Mailer,
	files storage.Storage,
	jobs worker.Enqueuer,
	cfg EmailServiceConfig,
	logger *slog.Logger,
) EmailService {
	if cfg.Concurrency <= 0 {
		cfg.Concurrency = DefaultSendConcurrency
	}
	cfg.APIBaseURL = strings.TrimSuffix(cfg.APIBaseURL, "/")
	return &emailService{
		store:  store,
		mailer: mailer,
		files:  files,
		jobs:   jobs,
		cfg:    cfg,
		logger: logger,
		now:    time.Now,
	}
}

// outgoing is one message queued for delivery.
type outgoing struct {
	email       repository.Email
	attachments []email.Attachment
}

// Compose stores one sent email per lead and delivers them.
func (s *emailService) Compose(ctx context.Context, params domain.ComposeParams) (*domain.ComposeResult, error) {
	const op = "email.compose"

	if err := validateMessage(op, params.Subject, params.Body); err != nil {
		return nil, err
	}
	if len(params.LeadIDs) == 0 {
		return nil, domain.NewValidationError(op, "leadIds", "Select at least one lead")
	}
	if len(params.Attachments) > domain.MaxAttachments {
		return nil, domain.Invalid(op, fmt.Sprintf("At most %d attachments are allowed", domain.MaxAttachments))
	}
	for _, a := range params.Attachments {
		if len(a.Data) > domain.MaxAttachmentSize {
			return nil, domain.Errorf(domain.ETOOLARGE, op, "Attachment %q exceeds 10 MB", a.Filename)
		}
	}

	user, err := s.loadUser(ctx, op, params.UserID)
	if err != nil {
		return nil, err
	}

	leads, err := s.store.ListLeadsByIDsAndUser(ctx, params.UserID, params.LeadIDs)
	if err != nil {
		return nil, domain.Internal(err, op, "Failed to load leads")
	}
	if len(leads) == 0 {
		return nil, domain.Errorf(domain.ENOTFOUND, op, "No leads found for these IDs")
	}

	stored, mailAttachments, err := s.storeAttachments(ctx, op, params.UserID, params.Attachments)
	if err != nil {
		return nil, err
	}
	attachmentsJSON, err := marshalAttachments(stored)
	if err != nil {
		return nil, domain.Internal(err, op, "Failed to encode attachments")
	}

	batch := make([]outgoing, 0, len(leads))
	for _, lead := range leads {
		row, err := s.store.CreateEmail(ctx, repository.CreateEmailParams{
			UserID:      params.UserID,
			LeadID:      uuid.NullUUID{UUID: lead.ID, Valid: true},
			FromAddress: senderAddress(user),
			ToAddress:   lead.Email,
			Subject:     params.Subject,
			Body:        params.Body,
			Attachments: attachmentsJSON,
			EmailType:   string(domain.EmailTypeSent),
			Folder:      string(domain.FolderSent),
			SentAt:      s.now(),
		})
		if err != nil {
			return nil, domain.Internal(err, op, "Failed to save email")
		}
		batch = append(batch, outgoing{email: row, attachments: mailAttachments})
	}

	sent, failed := s.deliverAll(ctx, user, batch, KindCompose)

	result := &domain.ComposeResult{
		Emails: make([]domain.Email, len(batch)),
		Sent:   sent,
		Failed: failed,
	}
	for i, o := range batch {
		result.Emails[i] = *repoEmailToDomain(o.email)
	}

	s.logger.Info("compose completed",
		"user_id", params.UserID,
		"leads", len(leads),
		"sent", sent,
		"failed", failed,
	)
	return result, nil
}

// SendBulk checks the plan and sends to every recipient.
func (s *emailService) SendBulk(ctx context.Context, params domain.BulkSendParams) (*domain.SendResult, error) {
	const op = "email.bulk"

	user, err := s.loadUser(ctx, op, params.UserID)
	if err != nil {
		return nil, err
	}
	if !user.CanBulkEmail() {
		return nil, domain.Forbidden(op, "Bulk email feature is not available in Free plan. Please upgrade your plan.")
	}
	return s.sendToRecipients(ctx, op, user, params, KindBulk)
}

func (s *emailService) SendToRecipients(ctx context.Context, params domain.BulkSendParams, kind string) (*domain.SendResult, error) {
	const op = "email.send_recipients"

	user, err := s.loadUser(ctx, op, params.UserID)
	if err != nil {
		return nil, err
	}
	return s.sendToRecipients(ctx, op, user, params, kind)
}

func (s *emailService) sendToRecipients(ctx context.Context, op string, user *domain.User, params domain.BulkSendParams, kind string) (*domain.SendResult, error) {
	if len(params.Recipients) == 0 {
		return nil, domain.NewValidationError(op, "recipients", "Recipients array is required")
	}
	if err := validateMessage(op, params.Subject, params.Body); err != nil {
		return nil, err
	}
	for i, r := range params.Recipients {
		if err := validateEmail(domain.NormalizeEmail(r.Email)); err != nil {
			return nil, domain.NewValidationError(op, fmt.Sprintf("recipients[%d].email", i), domain.ErrorMessage(err))
		}
	}

	// Lead ids that do not belong to the user are dropped rather than linked.
	owned, err := s.ownedLeadIDs(ctx, user.ID, params.Recipients)
	if err != nil {
		return nil, domain.Internal(err, op, "Failed to load leads")
	}

	batch := make([]outgoing, 0, len(params.Recipients))
	for _, r := range params.Recipients {
		leadID := uuid.NullUUID{}
		if r.LeadID != nil {
			if _, ok := owned[*r.LeadID]; ok {
				leadID = uuid.NullUUID{UUID: *r.LeadID, Valid: true}
			}
		}
		row, err := s.store.CreateEmail(ctx, repository.CreateEmailParams{
			UserID:      user.ID,
			LeadID:      leadID,
			FromAddress: senderAddress(user),
			ToAddress:   domain.NormalizeEmail(r.Email),
			Subject:     params.Subject,
			Body:        params.Body,
			EmailType:   string(domain.EmailTypeSent),
			Folder:      string(domain.FolderSent),
			SentAt:      s.now(),
		})
		if err != nil {
			return nil, domain.Internal(err, op, "Failed to save email")
		}
		batch = append(batch, outgoing{email: row})
	}

	sent, failed := s.deliverAll(ctx, user, batch, kind)

	s.logger.Info("bulk send completed",
		"user_id", user.ID,
		"kind", kind,
		"recipients", len(batch),
		"sent", sent,
		"failed", failed,
	)
	return &domain.SendResult{Sent: sent, Failed: failed}, nil
}

// List returns the user's emails in a folder; an empty folder lists all.
func (s *emailService) List(ctx context.Context, userID uuid.UUID, folder string) ([]domain.Email, error) {
	const op = "email.list"

	if folder != "" && !domain.EmailFolder(folder).IsValid() {
		return nil, domain.Invalid(op, "Invalid folder")
	}

	rows, err := s.store.ListEmailsByFolder(ctx, userID, folder)
	if err != nil {
		return nil, domain.Internal(err, op, "Failed to list emails")
	}

	emails := make([]domain.Email, len(rows))
	for i, r := range rows {
		e := repoEmailToDomain(r.Email)
		e.LeadName = r.LeadName
		e.LeadCompany = r.LeadCompany
		emails[i] = *e
	}
	return emails, nil
}

func (s *emailService) Get(ctx context.Context, userID, emailID uuid.UUID) (*domain.Email, error) {
	const op = "email.get"

	row, err := s.store.GetEmailByIDAndUser(ctx, emailID, userID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.Errorf(domain.ENOTFOUND, op, "Email not found")
		}
		return nil, domain.Internal(err, op, "Failed to load email")
	}

	if !row.IsRead && row.EmailType == string(domain.EmailTypeReceived) {
		if err := s.store.MarkEmailRead(ctx, emailID, userID); err != nil {
			return nil, domain.Internal(err, op, "Failed to mark email read")
		}
		row.IsRead = true
	}
	return repoEmailToDomain(row), nil
}

func (s *emailService) SaveDraft(ctx context.Context, params domain.DraftParams) (*domain.Email, error) {
	const op = "email.draft"

	user, err := s.loadUser(ctx, op, params.UserID)
	if err != nil {
		return nil, err
	}

	row, err := s.store.CreateEmail(ctx, repository.CreateEmailParams{
		UserID:      params.UserID,
		FromAddress: senderAddress(user),
		ToAddress:   strings.TrimSpace(params.To),
		Subject:     params.Subject,
		Body:        params.Body,
		EmailType:   string(domain.EmailTypeDraft),
		Folder:      string(domain.FolderDrafts),
		SentAt:      s.now(),
	})
	if err != nil {
		return nil, domain.Internal(err, op, "Failed to save draft")
	}
	return repoEmailToDomain(row), nil
}

func (s *emailService) Move(ctx context.Context, userID, emailID uuid.UUID, folder domain.EmailFolder) (*domain.Email, error) {
	const op = "email.move"

	if !folder.IsValid() {
		return nil, domain.Invalid(op, "Invalid folder")
	}

	row, err := s.store.UpdateEmailFolder(ctx, emailID, userID, string(folder))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.Errorf(domain.ENOTFOUND, op, "Email not found")
		}
		return nil, domain.Internal(err, op, "Failed to move email")
	}
	return repoEmailToDomain(row), nil
}

func (s *emailService) Resend(ctx context.Context, userID, emailID uuid.UUID, body string) (*domain.Email, error) {
	const op = "email.resend"

	if strings.TrimSpace(body) == "" {
		return nil, domain.NewValidationError(op, "body", "Body is required")
	}

	user, err := s.loadUser(ctx, op, userID)
	if err != nil {
		return nil, err
	}

	row, err := s.store.UpdateEmailForResend(ctx, emailID, userID, body)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.Errorf(domain.ENOTFOUND, op, "Email not found")
		}
		return nil, domain.Internal(err, op, "Failed to update email")
	}
	if row.ToAddress == "" {
		return nil, domain.Invalid(op, "Email has no recipient")
	}

	attachments, err := s.loadAttachments(ctx, row)
	if err != nil {
		return nil, domain.Internal(err, op, "Failed to load attachments")
	}

	if err := s.deliver(ctx, user, outgoing{email: row, attachments: attachments}); err != nil {
		metrics.EmailsSentTotal.WithLabelValues(KindResend, "failed").Inc()
		return nil, domain.Internal(err, op, "Failed to send email")
	}
	metrics.EmailsSentTotal.WithLabelValues(KindResend, "sent").Inc()

	return repoEmailToDomain(row), nil
}

func (s *emailService) TrackOpen(ctx context.Context, emailID uuid.UUID) error {
	const op = "email.track_open"

	if _, err := s.store.MarkEmailOpened(ctx, emailID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return domain.Errorf(domain.ENOTFOUND, op, "Email not found")
		}
		return domain.Internal(err, op, "Failed to record open")
	}
	metrics.EmailsOpenedTotal.Inc()
	return nil
}

// Redeliver sends a stored email. Permanent rejections mark it bounced and
// are reported as worker.PermanentError so the job is not retried.
func (s *emailService) Redeliver(ctx context.Context, userID, emailID uuid.UUID, kind string) error {
	row, err := s.store.GetEmailByIDAndUser(ctx, emailID, userID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return worker.NewPermanentError(fmt.Errorf("email %s not found", emailID))
		}
		return fmt.Errorf("load email: %w", err)
	}

	repoUser, err := s.store.GetUserByID(ctx, userID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return worker.NewPermanentError(fmt.Errorf("user %s not found", userID))
		}
		return fmt.Errorf("load user: %w", err)
	}

	attachments, err := s.loadAttachments(ctx, row)
	if err != nil {
		if storage.IsNotFound(err) {
			return worker.NewPermanentError(err)
		}
		return fmt.Errorf("load attachments: %w", err)
	}

	if err := s.deliver(ctx, repoUserToDomain(repoUser), outgoing{email: row, attachments: attachments}); err != nil {
		if errors.Is(err, email.ErrRejected) {
			if bounceErr := s.store.MarkEmailBounced(ctx, row.ID); bounceErr != nil {
				s.logger.Error("failed to mark email bounced", "email_id", row.ID, "error", bounceErr)
			}
			metrics.EmailsSentTotal.WithLabelValues(kind, "bounced").Inc()
			return worker.NewPermanentError(err)
		}
		return err
	}

	metrics.EmailsSentTotal.WithLabelValues(kind, "sent").Inc()
	s.recordContacted(ctx, row)
	return nil
}

// =============================================================================
// Delivery
// =============================================================================

// deliverAll sends the batch with bounded concurrency. Transient failures
// are queued for redelivery; permanent rejections mark the email bounced.
func (s *emailService) deliverAll(ctx context.Context, user *domain.User, batch []outgoing, kind string) (sent, failed int) {
	var (
		mu sync.Mutex
		g  errgroup.Group
	)
	g.SetLimit(s.cfg.Concurrency)

	for _, o := range batch {
		g.Go(func() error {
			err := s.deliver(ctx, user, o)

			mu.Lock()
			defer mu.Unlock()
			if err == nil {
				sent++
				metrics.EmailsSentTotal.WithLabelValues(kind, "sent").Inc()
				s.recordContacted(ctx, o.email)
				return nil
			}
			failed++
			s.handleDeliveryFailure(ctx, o.email, kind, err)
			return nil
		})
	}
	_ = g.Wait()
	return sent, failed
}

func (s *emailService) handleDeliveryFailure(ctx context.Context, row repository.Email, kind string, err error) {
	if errors.Is(err, email.ErrRejected) {
		metrics.EmailsSentTotal.WithLabelValues(kind, "bounced").Inc()
		if bounceErr := s.store.MarkEmailBounced(ctx, row.ID); bounceErr != nil {
			s.logger.Error("failed to mark email bounced", "email_id", row.ID, "error", bounceErr)
		}
		return
	}

	metrics.EmailsSentTotal.WithLabelValues(kind, "queued").Inc()
	if _, qErr := worker.EnqueueDeliverEmail(ctx, s.jobs, row.ID, row.UserID, kind); qErr != nil {
		s.logger.Error("failed to queue email redelivery",
			"email_id", row.ID,
			"send_error", err,
			"error", qErr,
		)
		return
	}
	s.logger.Warn("email delivery failed, queued for retry", "email_id", row.ID, "error", err)
}

// deliver sends one stored email with its tracking pixel.
func (s *emailService) deliver(ctx context.Context, user *domain.User, o outgoing) error {
	return s.mailer.Send(ctx, email.Message{
		FromName:    user.DisplayName(),
		ReplyTo:     senderAddress(user),
		To:          o.email.ToAddress,
		Subject:     o.email.Subject,
		HTMLBody:    o.email.Body + s.trackingPixel(o.email.ID),
		Attachments: o.attachments,
	})
}

// recordContacted bumps the lead's counters. Failures are logged only; the
// email has already gone out.
func (s *emailService) recordContacted(ctx context.Context, row repository.Email) {
	if !row.LeadID.Valid {
		return
	}
	if err := s.store.RecordLeadContacted(ctx, row.LeadID.UUID, row.UserID); err != nil {
		s.logger.Error("failed to record lead contact",
			"lead_id", row.LeadID.UUID,
			"email_id", row.ID,
			"error", err,
		)
	}
}

// TrackingPixelURL returns the open-tracking URL for an email.
func TrackingPixelURL(apiBaseURL string, emailID uuid.UUID) string {
	return fmt.Sprintf("%s/user/open/%s.png", strings.TrimSuffix(apiBaseURL, "/"), emailID)
}

func (s *emailService) trackingPixel(emailID uuid.UUID) string {
	return fmt.Sprintf(`<img src="%s" width="1" height="1" alt="" style="display:none" />`,
		TrackingPixelURL(s.cfg.APIBaseURL, emailID))
}

// =============================================================================
// Attachments
// =============================================================================

// storeAttachments uploads compose attachments and returns both the stored
// references and the in-memory copies used for the first delivery.
func (s *emailService) storeAttachments(ctx context.Context, op string, userID uuid.UUID, uploads []domain.AttachmentUpload) ([]domain.Attachment, []email.Attachment, error) {
	stored := make([]domain.Attachment, 0, len(uploads))
	mailAttachments := make([]email.Attachment, 0, len(uploads))

	for _, u := range uploads {
		// The content decides what is allowed; the extension only refines the
		// label (office formats all sniff as zip).
		sniffed := storage.SniffContentType(u.Data)
		if !storage.IsAllowedAttachmentType(sniffed) {
			return nil, nil, domain.Invalid(op, fmt.Sprintf("File type of %q is not allowed", u.Filename))
		}
		contentType := storage.DetectContentType("", u.Filename, nil)
		if !storage.IsAllowedAttachmentType(contentType) {
			contentType = sniffed
		}

		key := storage.AttachmentKey(userID, u.Filename)
		if err := s.files.Put(ctx, key, bytes.NewReader(u.Data), storage.PutOptions{
			ContentType: contentType,
			MaxSize:     domain.MaxAttachmentSize,
		}); err != nil {
			if errors.Is(err, storage.ErrTooLarge) {
				return nil, nil, domain.Errorf(domain.ETOOLARGE, op, "Attachment %q exceeds 10 MB", u.Filename)
			}
			return nil, nil, domain.Internal(err, op, "Failed to store attachment")
		}

		url, err := s.files.URL(ctx, key, 0)
		if err != nil {
			return nil, nil, domain.Internal(err, op, "Failed to store attachment")
		}

		stored = append(stored, domain.Attachment{
			Filename:    u.Filename,
			URL:         url,
			Key:         key,
			ContentType: contentType,
		})
		mailAttachments = append(mailAttachments, email.Attachment{
			Filename:    u.Filename,
			ContentType: contentType,
			Data:        u.Data,
		})
	}
	return stored, mailAttachments, nil
}

// loadAttachments reads a stored email's attachments back from storage.
func (s *emailService) loadAttachments(ctx context.Context, row repository.Email) ([]email.Attachment, error) {
	refs, err := unmarshalAttachments(row.Attachments)
	if err != nil {
		return nil, err
	}

	out := make([]email.Attachment, 0, len(refs))
	for _, ref := range refs {
		if ref.Key == "" {
			continue
		}
		rc, info, err := s.files.Get(ctx, ref.Key)
		if err != nil {
			return nil, err
		}
		data, err := io.ReadAll(io.LimitReader(rc, domain.MaxAttachmentSize+1))
		rc.Close()
		if err != nil {
			return nil, fmt.Errorf("read attachment %s: %w", ref.Key, err)
		}

		contentType := ref.ContentType
		if contentType == "" {
			contentType = info.ContentType
		}
		out = append(out, email.Attachment{
			Filename:    ref.Filename,
			ContentType: contentType,
			Data:        data,
		})
	}
	return out, nil
}

func marshalAttachments(refs []domain.Attachment) (pqtype.NullRawMessage, error) {
	if len(refs) == 0 {
		return pqtype.NullRawMessage{}, nil
	}
	raw, err := json.Marshal(refs)
	if err != nil {
		return pqtype.NullRawMessage{}, err
	}
	return pqtype.NullRawMessage{RawMessage: raw, Valid: true}, nil
}

func unmarshalAttachments(raw pqtype.NullRawMessage) ([]domain.Attachment, error) {
	if !raw.Valid || len(raw.RawMessage) == 0 {
		return nil, nil
	}
	var refs []domain.Attachment
	if err := json.Unmarshal(raw.RawMessage, &refs); err != nil {
		return nil, fmt.Errorf("decode attachments: %w", err)
	}
	return refs, nil
}

// =============================================================================
// Helpers
// =============================================================================

func (s *emailService) loadUser(ctx context.Context, op string, userID uuid.UUID) (*domain.User, error) {
	row, err := s.store.GetUserByID(ctx, userID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.Errorf(domain.ENOTFOUND, op, "User not found")
		}
		return nil, domain.Internal(err, op, "Failed to load user")
	}
	return repoUserToDomain(row), nil
}

func (s *emailService) ownedLeadIDs(ctx context.Context, userID uuid.UUID, recipients []domain.Recipient) (map[uuid.UUID]struct{}, error) {
	var ids []uuid.UUID
	for _, r := range recipients {
		if r.LeadID != nil {
			ids = append(ids, *r.LeadID)
		}
	}
	owned := make(map[uuid.UUID]struct{}, len(ids))
	if len(ids) == 0 {
		return owned, nil
	}
	leads, err := s.store.ListLeadsByIDsAndUser(ctx, userID, ids)
	if err != nil {
		return nil, err
	}
	for _, l := range leads {
		owned[l.ID] = struct{}{}
	}
	return owned, nil
}

// senderAddress is the user's NexLeads address, falling back to their login
// email for accounts verified before addresses were assigned.
func senderAddress(u *domain.User) string {
	if u.NexleadsEmail != "" {
		return u.NexleadsEmail
	}
	return u.Email
}

func validateMessage(op, subject, body string) error {
	var verr *domain.ValidationError
	if strings.TrimSpace(subject) == "" {
		verr = domain.NewValidationError(op, "subject", "Subject is required")
	}
	if strings.TrimSpace(body) == "" {
		if verr == nil {
			verr = domain.NewValidationError(op, "body", "Body is required")
		} else {
			verr.Fields["body"] = "Body is required"
		}
	}
	if verr != nil {
		return verr
	}
	return nil
}

func repoEmailToDomain(e repository.Email) *domain.Email {
	attachments, _ := unmarshalAttachments(e.Attachments)
	if attachments == nil {
		attachments = []domain.Attachment{}
	}

	var leadID *uuid.UUID
	if e.LeadID.Valid {
		id := e.LeadID.UUID
		leadID = &id
	}

	return &domain.Email{
		ID:          e.ID,
		UserID:      e.UserID,
		LeadID:      leadID,
		From:        e.FromAddress,
		To:          e.ToAddress,
		Subject:     e.Subject,
		Body:        e.Body,
		Attachments: attachments,
		Type:        domain.EmailType(e.EmailType),
		Folder:      domain.EmailFolder(e.Folder),
		IsRead:      e.IsRead,
		IsOpened:    e.IsOpened,
		IsBounced:   e.IsBounced,
		SentAt:      e.SentAt,
		CreatedAt:   e.CreatedAt,
		UpdatedAt:   e.UpdatedAt,
	}
}
