package anticheat

import apperrors "happyinvest/internal/errors"

var (
	ErrClockDrift = apperrors.New(apperrors.CodeTimeDriftDetected, "your device time does not match server time, please correct it and try again later")
	ErrUserBanned = apperrors.New(apperrors.CodeBanned, "account banned for repeated time manipulation")
)
