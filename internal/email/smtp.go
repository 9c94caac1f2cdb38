package email

import (
	"bytes"
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/wneessen/go-mail"
)

// SMTPConfig holds SMTP connection parameters.
type SMTPConfig struct {
	Host     string
	Port     int
	Username string // optional - some servers allow unauthenticated relay
	Password string // optional
	From     string // default sender address
	FromName string // optional sender display name
}

// SMTPSender implements Sender over go-mail. TLS mode follows the port:
// implicit TLS on 465, mandatory STARTTLS on 587, opportunistic otherwise.
type SMTPSender struct {
	config  *SMTPConfig
	logger  *slog.Logger
	timeout time.Duration
}

// NewSMTPSender creates an SMTP sender from a config struct.
func NewSMTPSender(config *SMTPConfig, logger *slog.Logger) *SMTPSender {
	return &SMTPSender{
		config:  config,
		logger:  logger,
		timeout: 30 * time.Second,
	}
}

// Send sends an email via SMTP.
func (s *SMTPSender) Send(ctx context.Context, email *Email) (string, error) {
	if len(email.To) == 0 {
		return "", ErrNoRecipients
	}

	msg := mail.NewMsg()

	if email.From != "" {
		if err := msg.From(email.From); err != nil {
			return "", fmt.Errorf("%w: %v", ErrInvalidFromAddress, err)
		}
	} else if s.config.FromName != "" {
		if err := msg.FromFormat(s.config.FromName, s.config.From); err != nil {
			return "", fmt.Errorf("%w: %v", ErrInvalidFromAddress, err)
		}
	} else if err := msg.From(s.config.From); err != nil {
		return "", fmt.Errorf("%w: %v", ErrInvalidFromAddress, err)
	}

	if err := msg.To(email.To...); err != nil {
		return "", fmt.Errorf("%w: %v", ErrInvalidToAddress, err)
	}
	msg.Subject(email.Subject)

	switch {
	case email.HTMLBody != "" && email.TextBody != "":
		msg.SetBodyString(mail.TypeTextPlain, email.TextBody)
		msg.AddAlternativeString(mail.TypeTextHTML, email.HTMLBody)
	case email.HTMLBody != "":
		msg.SetBodyString(mail.TypeTextHTML, email.HTMLBody)
	default:
		msg.SetBodyString(mail.TypeTextPlain, email.TextBody)
	}

	for key, value := range email.Headers {
		msg.SetGenHeader(mail.Header(key), value)
	}

	for _, att := range email.Attachments {
		if err := msg.AttachReader(att.Filename, bytes.NewReader(att.Content),
			mail.WithFileContentType(mail.ContentType(att.ContentType))); err != nil {
			return "", fmt.Errorf("failed to attach file %s: %w", att.Filename, err)
		}
	}

	client, err := mail.NewClient(s.config.Host, clientOptions(s.config, s.timeout)...)
	if err != nil {
		return "", fmt.Errorf("failed to create SMTP client: %w", err)
	}

	if err := client.DialAndSendWithContext(ctx, msg); err != nil {
		s.logger.Error("smtp: failed to send email", "to", email.To, "error", err)
		return "", fmt.Errorf("failed to send email: %w", err)
	}

	s.logger.Info("smtp: email sent", "to", email.To, "subject", email.Subject)
	return fmt.Sprintf("smtp-%d", time.Now().UnixNano()), nil
}

// Ping verifies connectivity and authentication without sending mail.
func (s *SMTPSender) Ping(ctx context.Context) error {
	client, err := mail.NewClient(s.config.Host, clientOptions(s.config, 10*time.Second)...)
	if err != nil {
		return fmt.Errorf("failed to create SMTP client: %w", err)
	}
	if err := client.DialWithContext(ctx); err != nil {
		return fmt.Errorf("connection failed: %w", err)
	}
	return client.Close()
}

func clientOptions(cfg *SMTPConfig, timeout time.Duration) []mail.Option {
	opts := []mail.Option{
		mail.WithPort(cfg.Port),
		mail.WithTimeout(timeout),
	}

	switch cfg.Port {
	case 465:
		opts = append(opts, mail.WithSSL())
	case 587:
		opts = append(opts, mail.WithTLSPolicy(mail.TLSMandatory))
	default:
		// Includes 25 and local catchers such as Mailpit on 1025.
		opts = append(opts, mail.WithTLSPolicy(mail.TLSOpportunistic))
	}

	if cfg.Username != "" && cfg.Password != "" {
		opts = append(opts,
			mail.WithUsername(cfg.Username),
			mail.WithPassword(cfg.Password),
			mail.WithSMTPAuth(mail.SMTPAuthAutoDiscover),
		)
	}
	return opts
}
