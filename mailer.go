package identity

import (
	"context"
	"fmt"

	"github.com/goliatone/go-errors"
	mail "github.com/wneessen/go-mail"
)

// SMTPConfig holds the mail transport settings.
type SMTPConfig struct {
	Host     string
	Port     int
	Username string
	Password string
	From     string
}

// SMTPMailer delivers messages over SMTP.
type SMTPMailer struct {
	client *mail.Client
	from   string
	logger Logger
}

// NewSMTPMailer builds a mailer from transport settings.
func NewSMTPMailer(cfg SMTPConfig, logger Logger) (*SMTPMailer, error) {
	if logger == nil {
		logger = defLogger{}
	}

	client, err := mail.NewClient(cfg.Host,
		mail.WithPort(cfg.Port),
		mail.WithSMTPAuth(mail.SMTPAuthPlain),
		mail.WithUsername(cfg.Username),
		mail.WithPassword(cfg.Password),
		mail.WithTLSPortPolicy(mail.TLSOpportunistic),
	)
	if err != nil {
		return nil, errors.Wrap(err, errors.CategoryInternal, "failed to build mail client")
	}

	return &SMTPMailer{
		client: client,
		from:   cfg.From,
		logger: logger,
	}, nil
}

// Send delivers a single HTML message to the recipients.
func (m *SMTPMailer) Send(ctx context.Context, to []string, subject, html string) error {
	msg := mail.NewMsg()

	if err := msg.From(m.from); err != nil {
		return errors.Wrap(err, errors.CategoryInternal, "invalid sender address")
	}
	if err := msg.To(to...); err != nil {
		return errors.Wrap(err, errors.CategoryBadInput, "invalid recipient address")
	}

	msg.Subject(subject)
	msg.SetBodyString(mail.TypeTextHTML, html)

	if err := m.client.DialAndSendWithContext(ctx, msg); err != nil {
		m.logger.Error("mail send failed: %v", err)
		return errors.Wrap(err, errors.CategoryInternal, "failed to send mail")
	}

	return nil
}

// LogMailer writes messages to the logger instead of delivering them.
// Default for local development when no SMTP host is configured.
type LogMailer struct {
	logger Logger
}

// NewLogMailer builds a logging mailer.
func NewLogMailer(logger Logger) *LogMailer {
	if logger == nil {
		logger = defLogger{}
	}
	return &LogMailer{logger: logger}
}

// Send logs the message and succeeds.
func (m *LogMailer) Send(_ context.Context, to []string, subject, html string) error {
	m.logger.Info("mail to=%v subject=%q body=%q", to, subject, html)
	return nil
}

// VerificationEmail renders the account-verification message pointing at
// scheme://domain/auth/verify/{token}.
func VerificationEmail(domain, token string) (subject, html string) {
	link := fmt.Sprintf("%s/auth/verify/%s", domain, token)
	subject = "Verify your account"
	html = fmt.Sprintf(`<h1>Verify your email</h1><p>Click this <a href=%q>link</a> to verify your account.</p>`, link)
	return subject, html
}

// PasswordResetEmail renders the password-reset message.
func PasswordResetEmail(domain, token string) (subject, html string) {
	link := fmt.Sprintf("%s/auth/password_reset/%s", domain, token)
	subject = "Reset your password"
	html = fmt.Sprintf(`<h1>Password reset</h1><p>Click this <a href=%q>link</a> to choose a new password.</p>`, link)
	return subject, html
}
