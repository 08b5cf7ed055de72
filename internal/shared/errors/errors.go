// Package errors defines the error taxonomy shared by the waitlist engine.
//
// Errors are built with NewError/WithError and classified with Mark against one
// of the sentinel markers below, so callers can branch with errors.Is regardless
// of how many times the error was wrapped on its way up.
package errors

import (
	"net/http"

	"github.com/cockroachdb/errors"
)

// Markers. Compare with Is / the Is* helpers, never by message.
var (
	ErrNotFound          = errors.New("not found")
	ErrInvalidState      = errors.New("invalid state")
	ErrCapacityExhausted = errors.New("capacity exhausted")
	ErrValidation        = errors.New("validation failed")
	ErrTransient         = errors.New("dependency failure")
)

// ErrorBuilder accumulates context before the error is marked.
type ErrorBuilder struct {
	err     error
	details map[string]interface{}
}

// NewError starts a new error with the given message.
func NewError(msg string) *ErrorBuilder {
	return &ErrorBuilder{err: errors.New(msg)}
}

// NewErrorf starts a new error with a formatted message.
func NewErrorf(format string, args ...interface{}) *ErrorBuilder {
	return &ErrorBuilder{err: errors.Newf(format, args...)}
}

// WithError starts from an existing error, typically one returned by a driver.
func WithError(err error) *ErrorBuilder {
	if err == nil {
		err = errors.New("unknown error")
	}
	return &ErrorBuilder{err: err}
}

// WithMessage prefixes the wrapped error with msg.
func (b *ErrorBuilder) WithMessage(msg string) *ErrorBuilder {
	b.err = errors.Wrap(b.err, msg)
	return b
}

// WithMessagef is WithMessage with formatting.
func (b *ErrorBuilder) WithMessagef(format string, args ...interface{}) *ErrorBuilder {
	b.err = errors.Wrapf(b.err, format, args...)
	return b
}

// WithHint attaches a user facing hint.
func (b *ErrorBuilder) WithHint(hint string) *ErrorBuilder {
	b.err = errors.WithHint(b.err, hint)
	return b
}

// WithReportableDetails attaches structured details that are safe to return to callers.
func (b *ErrorBuilder) WithReportableDetails(details map[string]interface{}) *ErrorBuilder {
	if b.details == nil {
		b.details = make(map[string]interface{}, len(details))
	}
	for k, v := range details {
		b.details[k] = v
	}
	return b
}

// Mark finalizes the error and classifies it with the given marker.
func (b *ErrorBuilder) Mark(marker error) error {
	err := b.err
	if len(b.details) > 0 {
		err = &detailedError{cause: err, details: b.details}
	}
	return errors.Mark(err, marker)
}

type detailedError struct {
	cause   error
	details map[string]interface{}
}

func (e *detailedError) Error() string { return e.cause.Error() }
func (e *detailedError) Unwrap() error { return e.cause }

// Details returns the reportable details attached anywhere in the chain.
func Details(err error) map[string]interface{} {
	var de *detailedError
	if errors.As(err, &de) {
		return de.details
	}
	return nil
}

// Hint returns the flattened hints attached to err.
func Hint(err error) string {
	return errors.FlattenHints(err)
}

func IsNotFound(err error) bool          { return errors.Is(err, ErrNotFound) }
func IsInvalidState(err error) bool      { return errors.Is(err, ErrInvalidState) }
func IsCapacityExhausted(err error) bool { return errors.Is(err, ErrCapacityExhausted) }
func IsValidation(err error) bool        { return errors.Is(err, ErrValidation) }
func IsTransient(err error) bool         { return errors.Is(err, ErrTransient) }

// Kind names the class of err for partial-error reports.
func Kind(err error) string {
	switch {
	case err == nil:
		return ""
	case IsNotFound(err):
		return "not_found"
	case IsInvalidState(err):
		return "invalid_state"
	case IsCapacityExhausted(err):
		return "capacity_exhausted"
	case IsValidation(err):
		return "validation"
	case IsTransient(err):
		return "transient"
	default:
		return "internal"
	}
}

// HTTPStatus maps err onto a response status code.
func HTTPStatus(err error) int {
	switch {
	case IsNotFound(err):
		return http.StatusNotFound
	case IsInvalidState(err), IsCapacityExhausted(err):
		return http.StatusConflict
	case IsValidation(err):
		return http.StatusBadRequest
	case IsTransient(err):
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}
