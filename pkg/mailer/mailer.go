package mailer

import (
	"context"
	"fmt"

	mail "github.com/wneessen/go-mail"

	"github.com/ojt-labs/account-api/pkg/config"
	appErrors "github.com/ojt-labs/account-api/pkg/errors"
)

// Sender delivers notification messages to a single recipient.
type Sender interface {
	Send(ctx context.Context, to, subject, body string) error
}

// SMTPMailer sends plain-text mail over SMTP with mandatory STARTTLS.
type SMTPMailer struct {
	client      *mail.Client
	senderName  string
	senderEmail string
}

// New builds an SMTPMailer from configuration. A missing host or sender
// address is an unconfigured condition surfaced at startup.
func New(cfg config.SMTPConfig) (*SMTPMailer, error) {
	if cfg.Host == "" || cfg.SenderEmail == "" {
		return nil, appErrors.Clone(appErrors.ErrUnconfigured, "SMTP host or sender email is not configured")
	}

	client, err := mail.NewClient(cfg.Host,
		mail.WithPort(cfg.Port),
		mail.WithSMTPAuth(mail.SMTPAuthPlain),
		mail.WithUsername(cfg.Username),
		mail.WithPassword(cfg.Password),
		mail.WithTLSPolicy(mail.TLSMandatory),
	)
	if err != nil {
		return nil, fmt.Errorf("create smtp client: %w", err)
	}

	return &SMTPMailer{
		client:      client,
		senderName:  cfg.SenderName,
		senderEmail: cfg.SenderEmail,
	}, nil
}

// Send delivers a single message. Failures propagate to the caller; the
// mailer never retries.
func (m *SMTPMailer) Send(ctx context.Context, to, subject, body string) error {
	msg := mail.NewMsg()
	if err := msg.FromFormat(m.senderName, m.senderEmail); err != nil {
		return fmt.Errorf("set sender: %w", err)
	}
	if err := msg.To(to); err != nil {
		return fmt.Errorf("set recipient: %w", err)
	}
	msg.Subject(subject)
	msg.SetBodyString(mail.TypeTextPlain, body)

	if err := m.client.DialAndSendWithContext(ctx, msg); err != nil {
		return fmt.Errorf("send mail: %w", err)
	}
	return nil
}
