package plan

import apperrors "happyinvest/internal/errors"

var (
	ErrPlanNotFound = apperrors.New(apperrors.CodeNotFound, "plan not found")
	ErrInvalidPlan  = apperrors.New(apperrors.CodeInvalidRequest, "invalid plan definition")
)
