package domain

import (
	"errors"
	"fmt"
	"maps"
	"strings"
)

// Error codes. The HTTP layer maps each to a status.
const (
	EINVALID      = "invalid"         // 400, bad input or illegal state change
	EUNAUTHORIZED = "unauthorized"    // 401
	EFORBIDDEN    = "forbidden"       // 403
	ENOTFOUND     = "not_found"       // 404
	ECONFLICT     = "conflict"        // 409, duplicate slug, email or member
	EGONE         = "gone"            // 410, expired invitation or proposal
	ETOOLARGE     = "too_large"       // 413
	ERATELIMIT    = "rate_limit"      // 429
	EINTERNAL     = "internal"        // 500, details never reach the client
	ENOTIMPL      = "not_implemented" // 501
)

const internalMessage = "An internal error occurred. Please try again later."

// Error is an application error. Message is safe to show to clients; Op and
// Err are for logs only.
type Error struct {
	Code    string
	Message string
	Op      string // e.g. "wishlist.invite"
	Err     error
}

func (e *Error) Error() string {
	parts := make([]string, 0, 3)
	if e.Op != "" {
		parts = append(parts, e.Op)
	}
	parts = append(parts, e.Message)
	if e.Err != nil {
		parts = append(parts, e.Err.Error())
	}
	return strings.Join(parts, ": ")
}

func (e *Error) Unwrap() error {
	return e.Err
}

// Is lets a copy made by WithOp still match its sentinel.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	return ok && t.Code == e.Code && t.Message == e.Message
}

func as[T error](err error) (T, bool) {
	var target T
	ok := errors.As(err, &target)
	return target, ok
}

// ErrorCode returns the code carried by err: EINVALID for validation
// errors, EINTERNAL for anything foreign and "" for nil.
func ErrorCode(err error) string {
	if err == nil {
		return ""
	}
	if IsValidationError(err) {
		return EINVALID
	}
	if e, ok := as[*Error](err); ok {
		return e.Code
	}
	return EINTERNAL
}

// ErrorMessage returns the client-facing message for err.
func ErrorMessage(err error) string {
	switch code := ErrorCode(err); code {
	case "":
		return ""
	case EINVALID:
		if IsValidationError(err) {
			return "Validation failed"
		}
	case EINTERNAL:
		return internalMessage
	}
	e, _ := as[*Error](err)
	return e.Message
}

// ErrorOp returns the operation that produced err, if recorded.
func ErrorOp(err error) string {
	if e, ok := as[*Error](err); ok {
		return e.Op
	}
	if ve, ok := as[*ValidationError](err); ok {
		return ve.Op
	}
	return ""
}

// Errorf builds an error with a formatted client message.
//
//	domain.Errorf(domain.EINVALID, "version.quote", "quantity %d below 1", qty)
func Errorf(code, op, format string, args ...interface{}) error {
	return &Error{Code: code, Op: op, Message: fmt.Sprintf(format, args...)}
}

// IsCode reports whether err carries code.
func IsCode(err error, code string) bool {
	return ErrorCode(err) == code
}

// WithOp returns a copy of a sentinel tagged with op. Other errors pass
// through unchanged.
func WithOp(err error, op string) error {
	e, ok := as[*Error](err)
	if !ok {
		return err
	}
	cp := *e
	cp.Op = op
	return &cp
}

// ValidationError holds per-field failures keyed by JSON field path, for
// example "items[0].quantity".
type ValidationError struct {
	Fields map[string]string
	Op     string
}

func (e *ValidationError) Error() string {
	var msg string
	if len(e.Fields) == 1 {
		for field, m := range e.Fields {
			msg = field + ": " + m
		}
	} else {
		msg = fmt.Sprintf("validation failed for %d fields", len(e.Fields))
	}
	if e.Op == "" {
		return msg
	}
	return e.Op + ": " + msg
}

// NewValidationError reports a single bad field.
func NewValidationError(op, field, message string) error {
	return &ValidationError{Op: op, Fields: map[string]string{field: message}}
}

// AddFieldError records another bad field on err, starting a new
// ValidationError when err is not one.
func AddFieldError(err error, field, message string) error {
	if ve, ok := as[*ValidationError](err); ok {
		ve.Fields[field] = message
		return ve
	}
	return &ValidationError{Fields: map[string]string{field: message}}
}

// MergeValidation folds the fields of next into acc. Either may be nil.
func MergeValidation(acc, next error) error {
	if acc == nil {
		return next
	}
	ve, ok := as[*ValidationError](acc)
	if !ok {
		return acc
	}
	maps.Copy(ve.Fields, GetValidationFields(next))
	return ve
}

func IsValidationError(err error) bool {
	_, ok := as[*ValidationError](err)
	return ok
}

// GetValidationFields returns the field map of a ValidationError, or nil.
func GetValidationFields(err error) map[string]string {
	if ve, ok := as[*ValidationError](err); ok {
		return ve.Fields
	}
	return nil
}

// NotFound reports a missing resource by kind and identifier.
func NotFound(op, resource, identifier string) error {
	return Errorf(ENOTFOUND, op, "%s not found: %s", resource, identifier)
}

func Unauthorized(op, message string) error {
	return &Error{Code: EUNAUTHORIZED, Op: op, Message: message}
}

func Forbidden(op, message string) error {
	return &Error{Code: EFORBIDDEN, Op: op, Message: message}
}

func Invalid(op, message string) error {
	return &Error{Code: EINVALID, Op: op, Message: message}
}

func Gone(op, message string) error {
	return &Error{Code: EGONE, Op: op, Message: message}
}

// Internal wraps an unexpected failure. Clients only ever see a generic
// message.
func Internal(err error, op, message string) error {
	return &Error{Code: EINTERNAL, Op: op, Message: message, Err: err}
}
