package handlers

import (
	"happyinvest/internal/services/account"

	"github.com/gofiber/fiber/v2"
)

type HealthHandler struct {
	accounts account.Service
	version  string
}

func NewHealthHandler(accounts account.Service, version string) *HealthHandler {
	return &HealthHandler{accounts: accounts, version: version}
}

func (h *HealthHandler) Check(c *fiber.Ctx) error {
	health := h.accounts.Health(c.UserContext())
	status, code := "ok", fiber.StatusOK
	if !health.Healthy() {
		status, code = "degraded", fiber.StatusServiceUnavailable
	}
	return c.Status(code).JSON(fiber.Map{
		"status":  status,
		"version": h.version,
		"services": fiber.Map{
			"database": health.Store,
			"redis":    health.Cache,
		},
	})
}
