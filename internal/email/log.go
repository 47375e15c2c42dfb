package email

import (
	"context"
	"log/slog"
)

// LogMailer writes messages to the logger instead of sending them.
type LogMailer struct {
	logger *slog.Logger
}

// NewLogMailer creates a mailer that only logs.
func NewLogMailer(logger *slog.Logger) *LogMailer {
	return &LogMailer{logger: logger}
}

func (m *LogMailer) SendVerificationCode(ctx context.Context, to, name, code string) error {
	m.logger.InfoContext(ctx, "verification code (not sent)", "to", to, "name", name, "code", code)
	return nil
}

func (m *LogMailer) SendPasswordResetEmail(ctx context.Context, to, name, token string) error {
	m.logger.InfoContext(ctx, "password reset (not sent)", "to", to, "name", name, "token", token)
	return nil
}

func (m *LogMailer) Send(ctx context.Context, msg Message) error {
	m.logger.InfoContext(ctx, "email (not sent)",
		"to", msg.To,
		"reply_to", msg.ReplyTo,
		"subject", msg.Subject,
		"attachments", len(msg.Attachments),
	)
	return nil
}

var _ Mailer = (*LogMailer)(nil)
