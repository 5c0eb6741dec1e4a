package handlers

import (
	"time"

	"happyinvest/internal/services/payout"
	"happyinvest/internal/utils/response"

	"github.com/gofiber/fiber/v2"
)

type PayoutHandler struct {
	payouts payout.Service
}

func NewPayoutHandler(payouts payout.Service) *PayoutHandler {
	return &PayoutHandler{payouts: payouts}
}

type checkRequest struct {
	// ClientTimestamp is the device clock in Unix milliseconds.
	ClientTimestamp int64 `json:"clientTimestamp" validate:"required,gt=0"`
}

// Check reconciles the caller's due income. Refusals (cooldown, drift, ban)
// come back as a result carrying a code and are mapped to their status here.
func (h *PayoutHandler) Check(c *fiber.Ctx) error {
	claims, err := extractUserClaims(c)
	if err != nil {
		return response.Unauthorized(c)
	}

	var req checkRequest
	if ok, err := bind(c, &req); !ok {
		return err
	}

	result, err := h.payouts.CheckPayout(c.UserContext(), claims.UserID, time.UnixMilli(req.ClientTimestamp))
	if err != nil {
		return response.FromError(c, err)
	}
	if result.Code != "" {
		return c.Status(response.StatusFor(result.Code)).JSON(fiber.Map{
			"success": false,
			"code":    result.Code,
			"error":   result.Message,
			"data":    result,
		})
	}
	return response.Success(c, result.Message, result)
}
