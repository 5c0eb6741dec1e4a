package recharge

import apperrors "happyinvest/internal/errors"

var (
	ErrRechargeNotFound = apperrors.New(apperrors.CodeNotFound, "recharge not found")
	ErrAmountPrecision  = apperrors.New(apperrors.CodeInvalidAmount, "amount must not have more than two decimal places")
	ErrBelowMinimum     = apperrors.New(apperrors.CodeInvalidAmount, "amount is below the minimum recharge")
	ErrInvalidDecision  = apperrors.New(apperrors.CodeInvalidRequest, "decision must be approved or rejected")
	ErrAlreadyResolved  = apperrors.New(apperrors.CodeAlreadyProcessed, "recharge already resolved")
)
