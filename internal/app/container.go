// Package app wires the ledger services together over one store.
package app

import (
	"time"

	"happyinvest/internal/config"
	"happyinvest/internal/metrics"
	"happyinvest/internal/repositories"
	"happyinvest/internal/repositories/cache"
	"happyinvest/internal/routes"
	"happyinvest/internal/services/account"
	"happyinvest/internal/services/anticheat"
	"happyinvest/internal/services/balance"
	"happyinvest/internal/services/checkin"
	"happyinvest/internal/services/investment"
	"happyinvest/internal/services/payout"
	"happyinvest/internal/services/plan"
	"happyinvest/internal/services/recharge"
	"happyinvest/internal/services/referral"
	"happyinvest/internal/services/scheduler"
	"happyinvest/internal/services/withdrawal"
)

// Options configure Build. Cache and Metrics are optional.
type Options struct {
	Store    *repositories.Store
	Cache    *cache.CacheService
	Catalog  plan.Catalog
	Settings config.Settings
	Metrics  metrics.Collector
	Now      func() time.Time
}

type Container struct {
	Catalog     plan.Catalog
	Balances    balance.Service
	Guard       anticheat.Service
	Referrals   referral.Service
	Investments investment.Service
	Payouts     payout.Service
	Withdrawals withdrawal.Service
	Recharges   recharge.Service
	CheckIns    checkin.Service
	Accounts    account.Service
	Scheduler   *scheduler.Scheduler
}

// Build constructs every service from opts.
func Build(opts Options) *Container {
	if opts.Store == nil {
		panic("store is required")
	}
	if opts.Catalog == nil {
		panic("plan catalog is required")
	}
	if opts.Metrics == nil {
		opts.Metrics = metrics.NoopCollector{}
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}

	s := opts.Settings
	loc := s.Location()

	// a nil *CacheService must not reach the services as a non-nil interface
	var invalidator balance.Invalidator
	var accountCache account.Cache
	if opts.Cache != nil {
		invalidator = opts.Cache
		accountCache = opts.Cache
	}

	balances := balance.NewService(opts.Store, invalidator, balance.Config{
		StoreTimeout: s.StoreTimeout,
		MaxRetries:   s.MaxRetries,
		Now:          opts.Now,
	}, opts.Metrics)

	guard := anticheat.NewService(opts.Store, balances, anticheat.Config{
		DriftTolerance: s.DriftTolerance,
		Penalty:        s.DriftPenalty,
		BanThreshold:   s.BanThreshold,
		StoreTimeout:   s.StoreTimeout,
		Now:            opts.Now,
	}, opts.Metrics)

	referrals := referral.NewService(opts.Store, balances, referral.Config{
		Bonus:        s.ReferralBonus,
		StoreTimeout: s.StoreTimeout,
		MaxRetries:   s.MaxRetries,
		Now:          opts.Now,
	}, opts.Metrics)

	investments := investment.NewService(opts.Store, opts.Catalog, balances, referrals, investment.Config{
		PayoutPeriod: s.PayoutPeriod,
		StoreTimeout: s.StoreTimeout,
		Now:          opts.Now,
	}, opts.Metrics)

	payouts := payout.NewService(opts.Store, balances, guard, payout.Config{
		Period:       s.PayoutPeriod,
		Cooldown:     s.CheckCooldown,
		StoreTimeout: s.StoreTimeout,
		MaxRetries:   s.MaxRetries,
		Workers:      s.SweepWorkers,
		Now:          opts.Now,
	}, opts.Metrics)

	withdrawals := withdrawal.NewService(opts.Store, balances, withdrawal.Config{
		MinAmount:    s.MinWithdrawal,
		Location:     loc,
		StoreTimeout: s.StoreTimeout,
		MaxRetries:   s.MaxRetries,
		Now:          opts.Now,
	}, opts.Metrics)

	recharges := recharge.NewService(opts.Store, balances, recharge.Config{
		MinAmount:    s.MinRecharge,
		StoreTimeout: s.StoreTimeout,
		MaxRetries:   s.MaxRetries,
		Now:          opts.Now,
	}, opts.Metrics)

	checkins := checkin.NewService(balances, checkin.Config{
		Reward:      s.CheckInReward,
		StreakBonus: s.CheckInStreakBonus,
		StreakDays:  s.CheckInStreakDays,
		Location:    loc,
		Now:         opts.Now,
	})

	accounts := account.NewService(opts.Store, balances, accountCache, account.Config{
		Location:     loc,
		StoreTimeout: s.StoreTimeout,
		Now:          opts.Now,
	}, opts.Metrics)

	return &Container{
		Catalog:     opts.Catalog,
		Balances:    balances,
		Guard:       guard,
		Referrals:   referrals,
		Investments: investments,
		Payouts:     payouts,
		Withdrawals: withdrawals,
		Recharges:   recharges,
		CheckIns:    checkins,
		Accounts:    accounts,
		Scheduler:   scheduler.New(payouts, loc, s.SweepTimeout),
	}
}

// Routes exposes the container to the HTTP layer.
func (c *Container) Routes(jwtSecret, version string) routes.Dependencies {
	return routes.Dependencies{
		Catalog:     c.Catalog,
		Investments: c.Investments,
		Payouts:     c.Payouts,
		Withdrawals: c.Withdrawals,
		Recharges:   c.Recharges,
		Referrals:   c.Referrals,
		Guard:       c.Guard,
		CheckIns:    c.CheckIns,
		Accounts:    c.Accounts,
		Scheduler:   c.Scheduler,
		JWTSecret:   jwtSecret,
		Version:     version,
	}
}
