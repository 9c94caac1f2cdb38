package email

import (
	"errors"
	"fmt"
)

var (
	// ErrNoRecipients is returned when a message has no To address.
	ErrNoRecipients = errors.New("email has no recipients")

	// ErrInvalidFromAddress is returned when the from address is invalid.
	ErrInvalidFromAddress = errors.New("invalid from email address")

	// ErrInvalidToAddress is returned when a recipient address is invalid.
	ErrInvalidToAddress = errors.New("invalid to email address")
)

// ErrTemplateNotFound reports a template name that was never parsed.
func ErrTemplateNotFound(name string) error {
	return fmt.Errorf("email template %s not found", name)
}
