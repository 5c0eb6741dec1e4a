package handlers

import (
	"happyinvest/internal/services/recharge"
	"happyinvest/internal/utils/response"

	"github.com/gofiber/fiber/v2"
	"github.com/shopspring/decimal"
)

type RechargeHandler struct {
	recharges recharge.Service
}

func NewRechargeHandler(recharges recharge.Service) *RechargeHandler {
	return &RechargeHandler{recharges: recharges}
}

type rechargeRequest struct {
	Amount    decimal.Decimal `json:"amount" validate:"required"`
	Method    string          `json:"method" validate:"max=32"`
	Reference string          `json:"reference" validate:"required,max=64"`
}

type resolveRechargeRequest struct {
	Decision string `json:"decision" validate:"required,oneof=approved rejected"`
}

func (h *RechargeHandler) Create(c *fiber.Ctx) error {
	claims, err := extractUserClaims(c)
	if err != nil {
		return response.Unauthorized(c)
	}

	var req rechargeRequest
	if ok, err := bind(c, &req); !ok {
		return err
	}

	r, err := h.recharges.Create(c.UserContext(), claims.UserID, req.Amount, req.Method, req.Reference)
	if err != nil {
		return response.FromError(c, err)
	}
	return response.Created(c, "Recharge submitted", r)
}

func (h *RechargeHandler) Pending(c *fiber.Ctx) error {
	list, err := h.recharges.Pending(c.UserContext())
	if err != nil {
		return response.FromError(c, err)
	}
	return response.Success(c, "Pending recharges retrieved", list)
}

func (h *RechargeHandler) Resolve(c *fiber.Ctx) error {
	claims, err := extractUserClaims(c)
	if err != nil {
		return response.Unauthorized(c)
	}

	var req resolveRechargeRequest
	if ok, err := bind(c, &req); !ok {
		return err
	}

	r, err := h.recharges.Resolve(c.UserContext(), c.Params("id"), req.Decision, claims.UserID)
	if err != nil {
		return response.FromError(c, err)
	}
	return response.Success(c, "Recharge "+r.Status, r)
}
