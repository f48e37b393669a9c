// Package errs defines the error types returned by handlers and services.
//
// Every failure that reaches the HTTP layer is an *HTTPError: it carries the
// status code the client sees, a stable machine-readable code, and the
// underlying cause for the logs. The cause is never serialized.
package errs

import (
	"strings"
)

// FieldError represents a field-level validation error.
// Example:
//
//	{ "field": "email", "error": "is required" }
type FieldError struct {
	// Field is the JSON name of the offending field (e.g. "email").
	Field string `json:"field"`

	// Error is the human-readable error message.
	Error string `json:"error"`
}

// HTTPError is the error type for API responses.
//
// Fields:
//   - Code: machine-friendly error code (e.g. "POST_NOT_FOUND").
//   - Message: human-friendly message.
//   - Status: HTTP status code.
//   - Override: the message is safe to show to clients as-is.
//   - Errors: list of per-field errors (validation).
//   - Cause: the error that triggered this one, logged but never sent.
type HTTPError struct {
	Code     string `json:"code"`
	Message  string `json:"message"`
	Status   int    `json:"status"`
	Override bool   `json:"override"`

	// Errors holds field-level validation errors.
	Errors []FieldError `json:"errors"`

	Cause error `json:"-"`
}

// Error returns the client-facing message.
func (e *HTTPError) Error() string {
	return e.Message
}

// Unwrap exposes Cause to errors.Is and errors.As.
func (e *HTTPError) Unwrap() error {
	return e.Cause
}

// Is reports whether target is also an *HTTPError.
//
// Only the type is compared, not Code or Status, so
// errors.Is(err, &errs.HTTPError{}) answers "is this an API error at all".
func (e *HTTPError) Is(target error) bool {
	_, ok := target.(*HTTPError)

	return ok
}

// WithCause returns a copy of this HTTPError wrapping cause.
func (e *HTTPError) WithCause(cause error) *HTTPError {
	clone := *e
	clone.Cause = cause
	return &clone
}

// MakeUpperCaseWithUnderscores converts a string into an UPPER_CASE_WITH_UNDERSCORES format.
//
// Example:
//
//	"Bad Request" -> "BAD_REQUEST"
//
// Used to create stable machine-readable error codes from HTTP status text.
func MakeUpperCaseWithUnderscores(str string) string {
	return strings.ToUpper(strings.ReplaceAll(str, " ", "_"))
}
