package handlers

import (
	"happyinvest/internal/models"
	"happyinvest/internal/services/withdrawal"
	"happyinvest/internal/utils/response"

	"github.com/gofiber/fiber/v2"
	"github.com/shopspring/decimal"
)

type WithdrawalHandler struct {
	withdrawals withdrawal.Service
}

func NewWithdrawalHandler(withdrawals withdrawal.Service) *WithdrawalHandler {
	return &WithdrawalHandler{withdrawals: withdrawals}
}

type withdrawRequest struct {
	Amount      decimal.Decimal     `json:"amount" validate:"required"`
	BankDetails *models.BankDetails `json:"bankDetails"`
}

type bankRequest struct {
	BankDetails models.BankDetails `json:"bankDetails" validate:"required"`
}

type resolveWithdrawalRequest struct {
	Decision       string `json:"decision" validate:"required,oneof=completed rejected"`
	TransactionRef string `json:"transactionRef" validate:"max=64"`
	UTR            string `json:"utr" validate:"max=64"`
}

type referenceRequest struct {
	TransactionRef string `json:"transactionRef" validate:"max=64"`
	UTR            string `json:"utr" validate:"max=64"`
}

func (h *WithdrawalHandler) Request(c *fiber.Ctx) error {
	claims, err := extractUserClaims(c)
	if err != nil {
		return response.Unauthorized(c)
	}

	var req withdrawRequest
	if ok, err := bind(c, &req); !ok {
		return err
	}

	result, err := h.withdrawals.Request(c.UserContext(), claims.UserID, req.Amount, req.BankDetails)
	if err != nil {
		return response.FromError(c, err)
	}
	return response.Created(c, "Withdrawal requested", result)
}

func (h *WithdrawalHandler) SaveBankDetails(c *fiber.Ctx) error {
	claims, err := extractUserClaims(c)
	if err != nil {
		return response.Unauthorized(c)
	}

	var req bankRequest
	if ok, err := bind(c, &req); !ok {
		return err
	}

	if err := h.withdrawals.SaveBankDetails(c.UserContext(), claims.UserID, req.BankDetails); err != nil {
		return response.FromError(c, err)
	}
	return response.Success(c, "Bank details saved", nil)
}

func (h *WithdrawalHandler) History(c *fiber.Ctx) error {
	claims, err := extractUserClaims(c)
	if err != nil {
		return response.Unauthorized(c)
	}

	list, err := h.withdrawals.History(c.UserContext(), claims.UserID)
	if err != nil {
		return response.FromError(c, err)
	}
	return response.Success(c, "Withdrawals retrieved", list)
}

func (h *WithdrawalHandler) Pending(c *fiber.Ctx) error {
	list, err := h.withdrawals.Pending(c.UserContext())
	if err != nil {
		return response.FromError(c, err)
	}
	return response.Success(c, "Pending withdrawals retrieved", list)
}

func (h *WithdrawalHandler) Resolve(c *fiber.Ctx) error {
	claims, err := extractUserClaims(c)
	if err != nil {
		return response.Unauthorized(c)
	}

	var req resolveWithdrawalRequest
	if ok, err := bind(c, &req); !ok {
		return err
	}

	w, err := h.withdrawals.Resolve(c.UserContext(), c.Params("id"), withdrawal.Resolution{
		Decision:       req.Decision,
		TransactionRef: req.TransactionRef,
		UTR:            req.UTR,
		OperatorID:     claims.UserID,
	})
	if err != nil {
		return response.FromError(c, err)
	}
	return response.Success(c, "Withdrawal "+w.Status, w)
}

func (h *WithdrawalHandler) UpdateReference(c *fiber.Ctx) error {
	var req referenceRequest
	if ok, err := bind(c, &req); !ok {
		return err
	}
	if req.TransactionRef == "" && req.UTR == "" {
		return response.BadRequest(c, "transactionRef or utr is required")
	}

	w, err := h.withdrawals.UpdateReference(c.UserContext(), c.Params("id"), req.TransactionRef, req.UTR)
	if err != nil {
		return response.FromError(c, err)
	}
	return response.Success(c, "Reference updated", w)
}
