// Package email composes and delivers transactional mail: wish list
// invitations and proposal notifications.
package email

import (
	"context"
	"log/slog"
)

// Email represents an email message to be sent.
type Email struct {
	To          []string // Recipient email addresses
	From        string   // Sender; the transport default when empty
	Subject     string
	TextBody    string
	HTMLBody    string            // optional
	Attachments []Attachment      // optional
	Headers     map[string]string // optional
}

// Attachment represents a file attachment for an email.
type Attachment struct {
	Filename    string
	ContentType string
	Content     []byte
}

// Sender delivers a message and returns the transport's message id.
type Sender interface {
	Send(ctx context.Context, email *Email) (string, error)
}

// LogSender writes messages to the log instead of delivering them. Used
// when no SMTP host is configured.
type LogSender struct {
	Logger *slog.Logger
}

func (s *LogSender) Send(ctx context.Context, email *Email) (string, error) {
	s.Logger.Info("email: delivery disabled, logging message",
		"to", email.To,
		"subject", email.Subject,
		"attachments", len(email.Attachments),
	)
	return "", nil
}
