// Package apperr defines the error taxonomy shared by the ledger, report and tax packages.
package apperr

import "fmt"

// Error codes.
const (
	CodeNotFound      = "NOT_FOUND"
	CodeInvalidPeriod = "INVALID_PERIOD"
	CodeUnbalanced    = "UNBALANCED_ENTRY"
	CodeValidation    = "VALIDATION_ERROR"
	CodeConflict      = "CONFLICT"
	CodeInternal      = "INTERNAL_ERROR"
)

// Sentinels for errors.Is. Matching is by code only.
var (
	ErrNotFound      = Error{Code: CodeNotFound}
	ErrInvalidPeriod = Error{Code: CodeInvalidPeriod}
	ErrUnbalanced    = Error{Code: CodeUnbalanced}
	ErrValidation    = Error{Code: CodeValidation}
	ErrConflict      = Error{Code: CodeConflict}
	ErrInternal      = Error{Code: CodeInternal}
)

// Error is a domain error carrying a stable code.
type Error struct {
	Code    string
	Message string
	Err     error
	Details map[string]any
}

func (e Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Code, e.Message, e.Err)
	}
	if e.Message == "" {
		return e.Code
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// Is implements the errors.Is interface.
func (e Error) Is(target error) bool {
	if t, ok := target.(Error); ok {
		return t.Code == e.Code
	}
	return false
}

// Unwrap returns the underlying error.
func (e Error) Unwrap() error {
	return e.Err
}

// WithDetail adds a single detail to the error.
func (e Error) WithDetail(key string, value any) Error {
	details := make(map[string]any, len(e.Details)+1)
	for k, v := range e.Details {
		details[k] = v
	}
	details[key] = value
	e.Details = details
	return e
}

// NotFound reports a missing account, entry, invoice or declaration.
func NotFound(kind string, id any) Error {
	return Error{
		Code:    CodeNotFound,
		Message: fmt.Sprintf("%s %v not found", kind, id),
		Details: map[string]any{"kind": kind, "id": id},
	}
}

// InvalidPeriod reports a malformed or contradictory date window.
func InvalidPeriod(format string, args ...any) Error {
	return Error{Code: CodeInvalidPeriod, Message: fmt.Sprintf(format, args...)}
}

// Unbalanced reports an entry whose debits and credits differ.
func Unbalanced(message string) Error {
	return Error{Code: CodeUnbalanced, Message: message}
}

// Validation reports invalid input.
func Validation(format string, args ...any) Error {
	return Error{Code: CodeValidation, Message: fmt.Sprintf(format, args...)}
}

// Conflict reports a write refused because of existing state.
func Conflict(format string, args ...any) Error {
	return Error{Code: CodeConflict, Message: fmt.Sprintf(format, args...)}
}

// Internal wraps an unexpected failure.
func Internal(message string, err error) Error {
	return Error{Code: CodeInternal, Message: message, Err: err}
}
