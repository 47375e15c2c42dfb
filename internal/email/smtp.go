package email

import (
	"bytes"
	"context"
	"embed"
	"encoding/base64"
	"errors"
	"fmt"
	"html"
	"html/template"
	"io"
	"log/slog"
	"mime"
	"mime/multipart"
	"mime/quotedprintable"
	"net/mail"
	"net/smtp"
	"net/textproto"
	"regexp"
	"strings"
	"time"

	"github.com/cenkalti/backoff/v4"
)

//go:embed templates/*.html
var templateFS embed.FS

// =============================================================================
// SMTP Mailer Implementation
// =============================================================================

// SMTPMailer sends mail via SMTP.
//
// This implementation works with:
// - Mailhog (development): No authentication required
// - Any standard SMTP relay (production): username/password authentication
//
// Transactional templates are embedded in the binary and rendered with
// html/template. Transient failures are retried with exponential backoff.
type SMTPMailer struct {
	config      SMTPConfig
	frontendURL string
	templates   *template.Template
	logger      *slog.Logger

	initialInterval time.Duration

	// sendMail is smtp.SendMail; replaced in tests.
	sendMail func(addr string, a smtp.Auth, from string, to []string, msg []byte) error
}

// NewSMTPMailer creates a new SMTP-based mailer.
//
// frontendURL is the web client's base URL used in password reset links
// (e.g., "http://localhost:3000").
func NewSMTPMailer(config SMTPConfig, frontendURL string, logger *slog.Logger) (*SMTPMailer, error) {
	if config.From == "" {
		config.From = DefaultFromEmail
	}
	if config.FromName == "" {
		config.FromName = DefaultFromName
	}
	if config.MaxElapsedTime == 0 {
		config.MaxElapsedTime = DefaultRetryWindow
	}

	templates, err := template.New("email").Funcs(emailTemplateFuncs()).ParseFS(templateFS, "templates/*.html")
	if err != nil {
		return nil, fmt.Errorf("failed to parse email templates: %w", err)
	}

	return &SMTPMailer{
		config:      config,
		frontendURL: strings.TrimSuffix(frontendURL, "/"),
		templates:   templates,
		logger:      logger,

		initialInterval: 500 * time.Millisecond,
		sendMail:        smtp.SendMail,
	}, nil
}

// =============================================================================
// Mailer Interface Implementation
// =============================================================================

// SendVerificationCode sends the signup verification code.
func (s *SMTPMailer) SendVerificationCode(ctx context.Context, to, name, code string) error {
	data := map[string]interface{}{
		"Name": name,
		"Code": code,
	}

	htmlBody, err := s.renderTemplate("verification_code.html", data)
	if err != nil {
		return fmt.Errorf("failed to render verification email template: %w", err)
	}

	textBody := fmt.Sprintf(`Hi %s,

Your NexLeads verification code is:

%s

This code will expire in 10 minutes.

If you did not request this, please ignore this email.

The NexLeads Team
`, name, code)

	return s.Send(ctx, Message{
		To:       to,
		Subject:  "Verification Code",
		HTMLBody: htmlBody,
		TextBody: textBody,
	})
}

// SendPasswordResetEmail sends a password reset link to a user.
func (s *SMTPMailer) SendPasswordResetEmail(ctx context.Context, to, name, token string) error {
	resetURL := fmt.Sprintf("%s/login?token=%s", s.frontendURL, token)

	data := map[string]interface{}{
		"Name":     name,
		"ResetURL": resetURL,
	}

	htmlBody, err := s.renderTemplate("password_reset.html", data)
	if err != nil {
		return fmt.Errorf("failed to render password reset email template: %w", err)
	}

	textBody := fmt.Sprintf(`Hi %s,

We received a request to reset your password. Open the link below to choose a new one:

%s

This link will expire in 10 minutes.

If you didn't request a password reset, you can safely ignore this email.

The NexLeads Team
`, name, resetURL)

	return s.Send(ctx, Message{
		To:       to,
		Subject:  "Password Reset Request",
		HTMLBody: htmlBody,
		TextBody: textBody,
	})
}

// Send builds and delivers a message, retrying transient failures.
func (s *SMTPMailer) Send(ctx context.Context, msg Message) error {
	if _, err := mail.ParseAddress(msg.To); err != nil {
		return fmt.Errorf("%w: invalid recipient %q", ErrRejected, msg.To)
	}
	if msg.TextBody == "" {
		msg.TextBody = htmlToText(msg.HTMLBody)
	}

	raw, err := s.buildMessage(msg)
	if err != nil {
		return fmt.Errorf("build message: %w", err)
	}

	addr := fmt.Sprintf("%s:%d", s.config.Host, s.config.Port)

	var auth smtp.Auth
	if s.config.Username != "" && s.config.Password != "" {
		auth = smtp.PlainAuth("", s.config.Username, s.config.Password, s.config.Host)
	}

	attempt := 0
	operation := func() error {
		attempt++
		err := s.sendMail(addr, auth, s.config.From, []string{msg.To}, raw)
		if err == nil {
			return nil
		}
		if isPermanentSMTPError(err) {
			return backoff.Permanent(fmt.Errorf("%w: %v", ErrRejected, err))
		}
		s.logger.Warn("email send failed, retrying",
			"to", msg.To,
			"attempt", attempt,
			"error", err,
		)
		return err
	}

	bo := backoff.NewExponentialBackOff()
	bo.InitialInterval = s.initialInterval
	bo.MaxInterval = 10 * time.Second
	bo.MaxElapsedTime = s.config.MaxElapsedTime

	if err := backoff.Retry(operation, backoff.WithContext(bo, ctx)); err != nil {
		s.logger.Error("failed to send email",
			"to", msg.To,
			"subject", msg.Subject,
			"attempts", attempt,
			"error", err,
		)
		return fmt.Errorf("failed to send email: %w", err)
	}

	s.logger.Info("email sent",
		"to", msg.To,
		"subject", msg.Subject,
		"attachments", len(msg.Attachments),
	)
	return nil
}

// =============================================================================
// Internal Methods
// =============================================================================

// buildMessage constructs the raw MIME message.
//
// Without attachments the body is multipart/alternative (text + HTML). With
// attachments it is multipart/mixed wrapping that alternative part.
func (s *SMTPMailer) buildMessage(msg Message) ([]byte, error) {
	var buf bytes.Buffer

	fromName := msg.FromName
	if fromName == "" {
		fromName = s.config.FromName
	}
	from := mail.Address{Name: fromName, Address: s.config.From}

	header := textproto.MIMEHeader{}
	header.Set("From", from.String())
	header.Set("To", msg.To)
	if msg.ReplyTo != "" {
		header.Set("Reply-To", msg.ReplyTo)
	}
	header.Set("Subject", mime.QEncoding.Encode("utf-8", msg.Subject))
	header.Set("Date", time.Now().UTC().Format(time.RFC1123Z))
	header.Set("MIME-Version", "1.0")

	altBoundary, altBody, err := alternativeBody(msg)
	if err != nil {
		return nil, err
	}
	altType := fmt.Sprintf("multipart/alternative; boundary=%q", altBoundary)

	if len(msg.Attachments) == 0 {
		header.Set("Content-Type", altType)
		return append(headerBytes(header), altBody...), nil
	}

	mixed := multipart.NewWriter(&buf)
	header.Set("Content-Type", fmt.Sprintf("multipart/mixed; boundary=%q", mixed.Boundary()))

	part, err := mixed.CreatePart(textproto.MIMEHeader{
		"Content-Type": {altType},
	})
	if err != nil {
		return nil, err
	}
	if _, err := part.Write(altBody); err != nil {
		return nil, err
	}

	for _, a := range msg.Attachments {
		contentType := a.ContentType
		if contentType == "" {
			contentType = "application/octet-stream"
		}
		part, err := mixed.CreatePart(textproto.MIMEHeader{
			"Content-Type":              {mime.FormatMediaType(contentType, map[string]string{"name": a.Filename})},
			"Content-Disposition":       {mime.FormatMediaType("attachment", map[string]string{"filename": a.Filename})},
			"Content-Transfer-Encoding": {"base64"},
		})
		if err != nil {
			return nil, err
		}
		if err := writeBase64Lines(part, a.Data); err != nil {
			return nil, err
		}
	}
	if err := mixed.Close(); err != nil {
		return nil, err
	}

	return append(headerBytes(header), buf.Bytes()...), nil
}

// alternativeBody renders the text and HTML parts as a multipart/alternative
// body and returns its boundary.
func alternativeBody(msg Message) (string, []byte, error) {
	var out bytes.Buffer
	inner := multipart.NewWriter(&out)

	for _, p := range []struct {
		contentType string
		body        string
	}{
		{"text/plain; charset=utf-8", msg.TextBody},
		{"text/html; charset=utf-8", msg.HTMLBody},
	} {
		part, err := inner.CreatePart(textproto.MIMEHeader{
			"Content-Type":              {p.contentType},
			"Content-Transfer-Encoding": {"quoted-printable"},
		})
		if err != nil {
			return "", nil, err
		}
		qp := quotedprintable.NewWriter(part)
		if _, err := qp.Write([]byte(p.body)); err != nil {
			return "", nil, err
		}
		if err := qp.Close(); err != nil {
			return "", nil, err
		}
	}
	if err := inner.Close(); err != nil {
		return "", nil, err
	}
	return inner.Boundary(), out.Bytes(), nil
}

// renderTemplate renders an email template with the given data.
func (s *SMTPMailer) renderTemplate(name string, data interface{}) (string, error) {
	var buf bytes.Buffer
	if err := s.templates.ExecuteTemplate(&buf, name, data); err != nil {
		return "", err
	}
	return buf.String(), nil
}

func headerBytes(h textproto.MIMEHeader) []byte {
	var b bytes.Buffer
	for _, k := range []string{"From", "To", "Reply-To", "Subject", "Date", "MIME-Version", "Content-Type"} {
		if v := h.Get(k); v != "" {
			fmt.Fprintf(&b, "%s: %s\r\n", k, v)
		}
	}
	b.WriteString("\r\n")
	return b.Bytes()
}

// writeBase64Lines writes data base64-encoded in 76-character lines.
func writeBase64Lines(w io.Writer, data []byte) error {
	encoded := base64.StdEncoding.EncodeToString(data)
	for len(encoded) > 76 {
		if _, err := fmt.Fprintf(w, "%s\r\n", encoded[:76]); err != nil {
			return err
		}
		encoded = encoded[76:]
	}
	if encoded != "" {
		if _, err := fmt.Fprintf(w, "%s\r\n", encoded); err != nil {
			return err
		}
	}
	return nil
}

// isPermanentSMTPError reports 5xx replies, which retrying cannot fix.
func isPermanentSMTPError(err error) bool {
	var tpErr *textproto.Error
	if errors.As(err, &tpErr) {
		return tpErr.Code >= 500
	}
	return false
}

var (
	tagPattern   = regexp.MustCompile(`(?s)<[^>]*>`)
	blankPattern = regexp.MustCompile(`\n{3,}`)
	brPattern    = regexp.MustCompile(`(?i)<br\s*/?>|</p>|</div>`)
)

// htmlToText produces a readable plain text fallback from an HTML body.
func htmlToText(body string) string {
	text := brPattern.ReplaceAllString(body, "\n")
	text = tagPattern.ReplaceAllString(text, "")
	text = html.UnescapeString(text)
	text = blankPattern.ReplaceAllString(text, "\n\n")
	return strings.TrimSpace(text)
}

// =============================================================================
// Template Functions
// =============================================================================

// emailTemplateFuncs returns template functions available in email templates.
func emailTemplateFuncs() template.FuncMap {
	return template.FuncMap{
		"currentYear": func() int {
			return time.Now().Year()
		},
	}
}

// =============================================================================
// Compile-time interface check
// =============================================================================

var _ Mailer = (*SMTPMailer)(nil)
