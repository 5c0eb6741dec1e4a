// Package routes defines the API routing configuration.
package routes

import (
	"happyinvest/internal/handlers"
	"happyinvest/internal/middleware"
	"happyinvest/internal/services/account"
	"happyinvest/internal/services/anticheat"
	"happyinvest/internal/services/checkin"
	"happyinvest/internal/services/investment"
	"happyinvest/internal/services/payout"
	"happyinvest/internal/services/plan"
	"happyinvest/internal/services/recharge"
	"happyinvest/internal/services/referral"
	"happyinvest/internal/services/scheduler"
	"happyinvest/internal/services/withdrawal"

	"github.com/gofiber/fiber/v2"
)

// Dependencies are the services the HTTP surface is built on.
type Dependencies struct {
	Catalog     plan.Catalog
	Investments investment.Service
	Payouts     payout.Service
	Withdrawals withdrawal.Service
	Recharges   recharge.Service
	Referrals   referral.Service
	Guard       anticheat.Service
	CheckIns    checkin.Service
	Accounts    account.Service
	Scheduler   *scheduler.Scheduler
	JWTSecret   string
	Version     string
}

// SetupRoutes configures all application routes.
func SetupRoutes(app *fiber.App, deps Dependencies) {
	health := handlers.NewHealthHandler(deps.Accounts, deps.Version)
	investments := handlers.NewInvestmentHandler(deps.Investments, deps.Catalog)
	payouts := handlers.NewPayoutHandler(deps.Payouts)
	withdrawals := handlers.NewWithdrawalHandler(deps.Withdrawals)
	recharges := handlers.NewRechargeHandler(deps.Recharges)
	accounts := handlers.NewAccountHandler(deps.Accounts, deps.Referrals, deps.CheckIns)
	admin := handlers.NewAdminHandler(deps.Guard, deps.Accounts, deps.Scheduler)

	app.Get("/health", health.Check)

	api := app.Group("/api")
	api.Get("/plans", investments.Plans)

	authMiddleware := middleware.NewAuthMiddleware(deps.JWTSecret)
	protected := api.Group("", authMiddleware.Handler)

	setupUserRoutes(protected, investments, payouts, withdrawals, recharges, accounts)
	setupAdminRoutes(protected, withdrawals, recharges, admin)
}

func setupUserRoutes(
	router fiber.Router,
	investments *handlers.InvestmentHandler,
	payouts *handlers.PayoutHandler,
	withdrawals *handlers.WithdrawalHandler,
	recharges *handlers.RechargeHandler,
	accounts *handlers.AccountHandler,
) {
	router.Post("/invest", investments.Purchase)
	router.Get("/investments", investments.List)

	router.Post("/payout/check", payouts.Check)

	router.Post("/withdraw", withdrawals.Request)
	router.Post("/bank", withdrawals.SaveBankDetails)
	router.Get("/withdrawals", withdrawals.History)

	router.Post("/recharge", recharges.Create)
	router.Post("/checkin", accounts.CheckIn)
	router.Get("/checkin-status", accounts.CheckInStatus)

	router.Get("/account", accounts.Summary)
	router.Get("/transactions", accounts.Transactions)
	router.Get("/income-stats", accounts.IncomeStats)
	router.Get("/referrals", accounts.Referrals)
	router.Get("/team-stats", accounts.TeamStats)
}

func setupAdminRoutes(
	router fiber.Router,
	withdrawals *handlers.WithdrawalHandler,
	recharges *handlers.RechargeHandler,
	admin *handlers.AdminHandler,
) {
	ops := router.Group("/admin", middleware.OperatorOnly)

	ops.Get("/withdrawals/pending", withdrawals.Pending)
	ops.Post("/withdrawals/:id/resolve", withdrawals.Resolve)
	ops.Post("/withdrawals/:id/reference", withdrawals.UpdateReference)

	ops.Get("/recharges/pending", recharges.Pending)
	ops.Post("/recharges/:id/resolve", recharges.Resolve)

	ops.Get("/users", admin.Users)
	ops.Post("/users/:id/ban", admin.Ban)
	ops.Post("/users/:id/unban", admin.Unban)
	ops.Get("/users/:id/violations", admin.Violations)

	ops.Post("/sweep", admin.Sweep)
	ops.Get("/sweep/last", admin.LastSweep)
}
