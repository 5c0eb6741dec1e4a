package handlers

import (
	"time"

	"happyinvest/internal/models"
	"happyinvest/internal/services/account"
	"happyinvest/internal/services/anticheat"
	"happyinvest/internal/services/scheduler"
	"happyinvest/internal/utils/pagination"
	"happyinvest/internal/utils/response"

	"github.com/gofiber/fiber/v2"
	"github.com/pkg/errors"
)

type AdminHandler struct {
	guard     anticheat.Service
	accounts  account.Service
	scheduler *scheduler.Scheduler
}

func NewAdminHandler(guard anticheat.Service, accounts account.Service, sched *scheduler.Scheduler) *AdminHandler {
	return &AdminHandler{
		guard:     guard,
		accounts:  accounts,
		scheduler: sched,
	}
}

// Users pages every account summary, newest first.
func (h *AdminHandler) Users(c *fiber.Ctx) error {
	p := pagination.ParseFromRequest(c)
	users, total, err := h.accounts.Users(c.UserContext(), p.Limit, p.Offset)
	if err != nil {
		return response.FromError(c, err)
	}
	p.Total = total
	return c.JSON(pagination.Response(p, users))
}

type banRequest struct {
	Reason    string     `json:"reason" validate:"required,max=255"`
	ExpiresAt *time.Time `json:"expiresAt"`
}

func (h *AdminHandler) Ban(c *fiber.Ctx) error {
	var req banRequest
	if ok, err := bind(c, &req); !ok {
		return err
	}

	if err := h.guard.Ban(c.UserContext(), c.Params("id"), req.Reason, models.BanSourceOperator, req.ExpiresAt); err != nil {
		return response.FromError(c, err)
	}
	return response.Success(c, "User banned", fiber.Map{"userId": c.Params("id")})
}

func (h *AdminHandler) Unban(c *fiber.Ctx) error {
	if err := h.guard.Unban(c.UserContext(), c.Params("id")); err != nil {
		return response.FromError(c, err)
	}
	return response.Success(c, "User unbanned", fiber.Map{"userId": c.Params("id")})
}

func (h *AdminHandler) Violations(c *fiber.Ctx) error {
	list, err := h.guard.Violations(c.UserContext(), c.Params("id"))
	if err != nil {
		return response.FromError(c, err)
	}
	return response.Success(c, "Violations retrieved", list)
}

// Sweep runs the payout sweep now instead of waiting for the schedule.
func (h *AdminHandler) Sweep(c *fiber.Ctx) error {
	result, err := h.scheduler.RunOnce(c.UserContext())
	if errors.Is(err, scheduler.ErrSweepRunning) {
		return response.Error(c, fiber.StatusConflict, "SWEEP_RUNNING", err.Error())
	}
	if err != nil {
		return response.FromError(c, err)
	}
	return response.Success(c, "Sweep completed", result)
}

func (h *AdminHandler) LastSweep(c *fiber.Ctx) error {
	return response.Success(c, "Last sweep", h.scheduler.LastRun())
}
