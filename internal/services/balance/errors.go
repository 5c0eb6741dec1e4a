package balance

import apperrors "happyinvest/internal/errors"

var (
	ErrUserNotFound        = apperrors.New(apperrors.CodeNotFound, "user not found")
	ErrUserBanned          = apperrors.New(apperrors.CodeBanned, "account is banned")
	ErrInsufficientBalance = apperrors.New(apperrors.CodeInsufficientBalance, "insufficient balance")
)
