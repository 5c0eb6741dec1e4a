package withdrawal

import apperrors "happyinvest/internal/errors"

var (
	ErrWithdrawalNotFound = apperrors.New(apperrors.CodeNotFound, "withdrawal not found")
	ErrAmountPrecision    = apperrors.New(apperrors.CodeInvalidAmount, "amount must not have more than two decimal places")
	ErrBelowMinimum       = apperrors.New(apperrors.CodeInvalidAmount, "amount is below the minimum withdrawal")
	ErrDailyLimit         = apperrors.New(apperrors.CodeRateLimited, "only one withdrawal is allowed per day")
	ErrBankDetailsMissing = apperrors.New(apperrors.CodeInvalidRequest, "bank details are required")
	ErrInvalidDecision    = apperrors.New(apperrors.CodeInvalidRequest, "decision must be completed or rejected")
	ErrAlreadyResolved    = apperrors.New(apperrors.CodeAlreadyProcessed, "withdrawal already resolved")
	ErrNotCompleted       = apperrors.New(apperrors.CodeInvalidRequest, "references can only be set on a completed withdrawal")
)
