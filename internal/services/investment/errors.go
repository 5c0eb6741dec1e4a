package investment

import apperrors "happyinvest/internal/errors"

var (
	ErrInvestmentNotFound = apperrors.New(apperrors.CodeNotFound, "investment not found")
)
