package referral

import apperrors "happyinvest/internal/errors"

var (
	ErrCommissionAlreadyPaid = apperrors.New(apperrors.CodeAlreadyProcessed, "referral commission already paid")
	ErrReferrerNotFound      = apperrors.New(apperrors.CodeNotFound, "referrer not found")
)
