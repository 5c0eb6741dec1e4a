// Package errors defines the domain error type shared by every ledger service.
// Each error carries a stable code that the HTTP layer maps to a status once.
package errors

import (
	stderrors "errors"
	"fmt"
)

// Error codes. The set is closed; services never invent new ones.
const (
	CodeNotFound            = "NOT_FOUND"
	CodeInsufficientBalance = "INSUFFICIENT_BALANCE"
	CodeInvalidAmount       = "INVALID_AMOUNT"
	CodeAlreadyProcessed    = "ALREADY_PROCESSED"
	CodeRateLimited         = "RATE_LIMITED"
	CodeTimeDriftDetected   = "TIME_DRIFT_DETECTED"
	CodeBanned              = "BANNED"
	CodeStoreUnavailable    = "STORE_UNAVAILABLE"
	CodeVersionConflict     = "VERSION_CONFLICT"
	CodeInvalidRequest      = "INVALID_REQUEST"
)

// DomainError is a coded, human-readable failure.
type DomainError struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

func (e *DomainError) Error() string {
	return e.Message
}

// Is matches any DomainError with the same code, so a sentinel such as
// ErrNotFound matches the more specific ErrPlanNotFound.
func (e *DomainError) Is(target error) bool {
	t, ok := target.(*DomainError)
	if !ok {
		return false
	}
	return e.Code == t.Code
}

// New builds a DomainError.
func New(code, message string) *DomainError {
	return &DomainError{Code: code, Message: message}
}

// Newf builds a DomainError with a formatted message.
func Newf(code, format string, args ...interface{}) *DomainError {
	return &DomainError{Code: code, Message: fmt.Sprintf(format, args...)}
}

// CodeOf returns the code of the first DomainError in err's chain.
// Anything else is reported as a store failure: callers must treat it as
// "nothing happened".
func CodeOf(err error) string {
	if err == nil {
		return ""
	}
	var de *DomainError
	if stderrors.As(err, &de) {
		return de.Code
	}
	return CodeStoreUnavailable
}

// MessageOf returns the user-facing message for err.
func MessageOf(err error) string {
	var de *DomainError
	if stderrors.As(err, &de) {
		return de.Message
	}
	return "service temporarily unavailable"
}

// Unavailable wraps a store failure as STORE_UNAVAILABLE while keeping the cause.
func Unavailable(op string, cause error) error {
	return fmt.Errorf("%w: %s: %v", ErrStoreUnavailable, op, cause)
}
