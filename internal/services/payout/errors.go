package payout

import apperrors "happyinvest/internal/errors"

var (
	ErrCheckCooldown = apperrors.New(apperrors.CodeRateLimited, "income was checked recently, please wait")
	ErrPenaltyActive = apperrors.New(apperrors.CodeRateLimited, "checks are paused after a clock violation, please wait")
)
