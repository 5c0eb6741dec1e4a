package errors

// Generic sentinels, one per code. Services derive narrower errors from these.
var (
	ErrNotFound = &DomainError{
		Code:    CodeNotFound,
		Message: "not found",
	}
	ErrInsufficientBalance = &DomainError{
		Code:    CodeInsufficientBalance,
		Message: "insufficient balance",
	}
	ErrInvalidAmount = &DomainError{
		Code:    CodeInvalidAmount,
		Message: "invalid amount",
	}
	ErrAlreadyProcessed = &DomainError{
		Code:    CodeAlreadyProcessed,
		Message: "already processed",
	}
	ErrRateLimited = &DomainError{
		Code:    CodeRateLimited,
		Message: "too many requests, try again later",
	}
	ErrTimeDriftDetected = &DomainError{
		Code:    CodeTimeDriftDetected,
		Message: "device clock does not match server time",
	}
	ErrBanned = &DomainError{
		Code:    CodeBanned,
		Message: "account is banned",
	}
	ErrStoreUnavailable = &DomainError{
		Code:    CodeStoreUnavailable,
		Message: "service temporarily unavailable",
	}
	ErrVersionConflict = &DomainError{
		Code:    CodeVersionConflict,
		Message: "record was modified concurrently",
	}
	ErrInvalidRequest = &DomainError{
		Code:    CodeInvalidRequest,
		Message: "invalid request",
	}
)
