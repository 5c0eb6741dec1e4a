package handlers

import (
	"happyinvest/internal/services/investment"
	"happyinvest/internal/services/plan"
	"happyinvest/internal/utils/response"

	"github.com/gofiber/fiber/v2"
)

type InvestmentHandler struct {
	investments investment.Service
	catalog     plan.Catalog
}

func NewInvestmentHandler(investments investment.Service, catalog plan.Catalog) *InvestmentHandler {
	return &InvestmentHandler{
		investments: investments,
		catalog:     catalog,
	}
}

type purchaseRequest struct {
	PlanID string `json:"planId" validate:"required,max=32"`
}

// Purchase buys one unit of a plan from the caller's spendable balance.
func (h *InvestmentHandler) Purchase(c *fiber.Ctx) error {
	claims, err := extractUserClaims(c)
	if err != nil {
		return response.Unauthorized(c)
	}

	var req purchaseRequest
	if ok, err := bind(c, &req); !ok {
		return err
	}

	result, err := h.investments.Purchase(c.UserContext(), claims.UserID, req.PlanID)
	if err != nil {
		return response.FromError(c, err)
	}
	return response.Created(c, "Investment purchased", result)
}

func (h *InvestmentHandler) List(c *fiber.Ctx) error {
	claims, err := extractUserClaims(c)
	if err != nil {
		return response.Unauthorized(c)
	}

	list, err := h.investments.List(c.UserContext(), claims.UserID)
	if err != nil {
		return response.FromError(c, err)
	}
	return response.Success(c, "Investments retrieved", list)
}

func (h *InvestmentHandler) Plans(c *fiber.Ctx) error {
	return response.Success(c, "Plans retrieved", h.catalog.List())
}
