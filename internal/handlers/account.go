package handlers

import (
	"strings"

	"happyinvest/internal/services/account"
	"happyinvest/internal/services/checkin"
	"happyinvest/internal/services/referral"
	"happyinvest/internal/utils/pagination"
	"happyinvest/internal/utils/response"

	"github.com/gofiber/fiber/v2"
)

type AccountHandler struct {
	accounts  account.Service
	referrals referral.Service
	checkins  checkin.Service
}

func NewAccountHandler(accounts account.Service, referrals referral.Service, checkins checkin.Service) *AccountHandler {
	return &AccountHandler{
		accounts:  accounts,
		referrals: referrals,
		checkins:  checkins,
	}
}

func (h *AccountHandler) Summary(c *fiber.Ctx) error {
	claims, err := extractUserClaims(c)
	if err != nil {
		return response.Unauthorized(c)
	}

	summary, err := h.accounts.Summary(c.UserContext(), claims.UserID)
	if err != nil {
		return response.FromError(c, err)
	}
	return response.Success(c, "Account retrieved", summary)
}

// Transactions lists the caller's audit log, newest first. ?kind= takes a
// comma separated list of kinds.
func (h *AccountHandler) Transactions(c *fiber.Ctx) error {
	claims, err := extractUserClaims(c)
	if err != nil {
		return response.Unauthorized(c)
	}

	var kinds []string
	for _, k := range strings.Split(c.Query("kind"), ",") {
		if k = strings.TrimSpace(k); k != "" {
			kinds = append(kinds, k)
		}
	}

	p := pagination.ParseFromRequest(c)
	txs, total, err := h.accounts.Transactions(c.UserContext(), claims.UserID, kinds, p.Limit, p.Offset)
	if err != nil {
		return response.FromError(c, err)
	}
	p.Total = total
	return c.JSON(pagination.Response(p, txs))
}

func (h *AccountHandler) IncomeStats(c *fiber.Ctx) error {
	claims, err := extractUserClaims(c)
	if err != nil {
		return response.Unauthorized(c)
	}

	stats, err := h.accounts.IncomeStats(c.UserContext(), claims.UserID)
	if err != nil {
		return response.FromError(c, err)
	}
	return response.Success(c, "Income statistics retrieved", stats)
}

func (h *AccountHandler) Referrals(c *fiber.Ctx) error {
	claims, err := extractUserClaims(c)
	if err != nil {
		return response.Unauthorized(c)
	}

	team, err := h.referrals.Team(c.UserContext(), claims.UserID)
	if err != nil {
		return response.FromError(c, err)
	}
	return response.Success(c, "Referrals retrieved", team)
}

func (h *AccountHandler) TeamStats(c *fiber.Ctx) error {
	claims, err := extractUserClaims(c)
	if err != nil {
		return response.Unauthorized(c)
	}

	stats, err := h.referrals.TeamStats(c.UserContext(), claims.UserID)
	if err != nil {
		return response.FromError(c, err)
	}
	return response.Success(c, "Team statistics retrieved", stats)
}

func (h *AccountHandler) CheckInStatus(c *fiber.Ctx) error {
	claims, err := extractUserClaims(c)
	if err != nil {
		return response.Unauthorized(c)
	}

	status, err := h.accounts.CheckInStatus(c.UserContext(), claims.UserID)
	if err != nil {
		return response.FromError(c, err)
	}
	return response.Success(c, "Check-in status retrieved", status)
}

func (h *AccountHandler) CheckIn(c *fiber.Ctx) error {
	claims, err := extractUserClaims(c)
	if err != nil {
		return response.Unauthorized(c)
	}

	result, err := h.checkins.CheckIn(c.UserContext(), claims.UserID)
	if err != nil {
		return response.FromError(c, err)
	}
	return response.Success(c, "Checked in", result)
}
