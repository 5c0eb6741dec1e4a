// Package payout credits daily income for due investments, either for one
// user on demand or for every investment in the scheduled sweep.
//
// An investment is claimed by a compare-and-swap that advances its anchor;
// only the claimer credits the user. If the credit fails the claim is undone
// by a second compare-and-swap, so a period is never credited twice and never
// lost.
package payout

import (
	"context"
	"fmt"
	"math"
	"sync"
	"time"

	apperrors "happyinvest/internal/errors"
	"happyinvest/internal/metrics"
	"happyinvest/internal/models"
	"happyinvest/internal/repositories"
	"happyinvest/internal/services/anticheat"
	"happyinvest/internal/services/balance"

	"github.com/pkg/errors"
	"github.com/shopspring/decimal"
	log "github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"
)

// Service defines the payout reconciler
type Service interface {
	CheckPayout(ctx context.Context, userID string, clientTime time.Time) (*CheckResult, error)
	RunSweep(ctx context.Context) (*SweepResult, error)
	Reconcile(ctx context.Context, inv *models.Investment, now time.Time) (*Credit, error)
}

type service struct {
	investments repositories.InvestmentRepository
	balances    balance.Service
	guard       anticheat.Service
	config      Config
	metrics     metrics.Collector
}

func NewService(
	store *repositories.Store,
	balances balance.Service,
	guard anticheat.Service,
	config Config,
	collector metrics.Collector,
) Service {
	if store == nil || store.Investments == nil {
		panic("store is required")
	}
	if balances == nil {
		panic("balance service is required")
	}
	if guard == nil {
		panic("anticheat service is required")
	}
	if config.Period <= 0 {
		config.Period = 24 * time.Hour
	}
	if config.Cooldown <= 0 {
		config.Cooldown = time.Hour
	}
	if config.StoreTimeout <= 0 {
		config.StoreTimeout = 5 * time.Second
	}
	if config.MaxRetries <= 0 {
		config.MaxRetries = 5
	}
	if config.Workers <= 0 {
		config.Workers = 8
	}
	if config.PageSize <= 0 {
		config.PageSize = 200
	}
	if config.Now == nil {
		config.Now = time.Now
	}
	if collector == nil {
		collector = metrics.NoopCollector{}
	}
	return &service{
		investments: store.Investments,
		balances:    balances,
		guard:       guard,
		config:      config,
		metrics:     collector,
	}
}

func waitMinutes(d time.Duration) int {
	if d <= 0 {
		return 0
	}
	return int(math.Ceil(d.Minutes()))
}

func (s *service) CheckPayout(ctx context.Context, userID string, clientTime time.Time) (*CheckResult, error) {
	now := s.config.Now()

	u, err := s.balances.Get(ctx, userID)
	if err != nil {
		return nil, err
	}
	if err := s.balances.CheckActive(ctx, userID); err != nil || u.IsBanned(now) {
		if err != nil && !errors.Is(err, balance.ErrUserBanned) {
			return nil, err
		}
		return banned(balance.ErrUserBanned.Message), nil
	}

	verdict, err := s.guard.Inspect(ctx, userID, now, clientTime)
	if err != nil {
		return nil, err
	}
	if verdict.Banned {
		return banned(anticheat.ErrUserBanned.Message), nil
	}
	if verdict.Violation {
		return &CheckResult{
			Status:         CheckStatusDrift,
			Code:           anticheat.ErrClockDrift.Code,
			Message:        anticheat.ErrClockDrift.Message,
			WaitMinutes:    waitMinutes(verdict.PenaltyUntil.Sub(now)),
			DriftSeconds:   int64(verdict.Drift / time.Second),
			ViolationCount: verdict.ViolationCount,
		}, nil
	}

	// Claim the check slot. Two concurrent checks cannot both pass this.
	var wait time.Duration
	var refusal *apperrors.DomainError
	next := now.Add(s.config.Cooldown)
	_, err = s.balances.ApplyActive(ctx, userID, func(u *models.User) error {
		if u.PenaltyUntil != nil && now.Before(*u.PenaltyUntil) {
			wait, refusal = u.PenaltyUntil.Sub(now), ErrPenaltyActive
			return ErrPenaltyActive
		}
		if u.NextCheckAllowedAt != nil && now.Before(*u.NextCheckAllowedAt) {
			wait, refusal = u.NextCheckAllowedAt.Sub(now), ErrCheckCooldown
			return ErrCheckCooldown
		}
		u.NextCheckAllowedAt = &next
		return nil
	})
	if err != nil {
		if refusal != nil && errors.Is(err, refusal) {
			return &CheckResult{
				Status:      CheckStatusWait,
				Code:        refusal.Code,
				Message:     fmt.Sprintf("%s %d minutes", refusal.Message, waitMinutes(wait)),
				WaitMinutes: waitMinutes(wait),
			}, nil
		}
		if errors.Is(err, balance.ErrUserBanned) {
			return banned(balance.ErrUserBanned.Message), nil
		}
		return nil, err
	}

	invs, err := s.listActive(ctx, userID)
	if err != nil {
		return nil, err
	}

	res := &CheckResult{
		Status:             CheckStatusCredited,
		IncomeAdded:        decimal.Zero,
		RegularIncome:      decimal.Zero,
		LockedIncome:       decimal.Zero,
		NextCheckAllowedAt: &next,
	}
	var firstErr error
	for _, inv := range invs {
		credit, err := s.Reconcile(ctx, inv, now)
		if err != nil {
			if firstErr == nil {
				firstErr = err
			}
			log.WithError(err).WithFields(log.Fields{
				"user_id":       userID,
				"investment_id": inv.ID,
			}).Warn("on-demand reconcile failed")
			continue
		}
		if credit == nil {
			continue
		}
		res.PeriodsCredited += credit.Periods
		res.IncomeAdded = res.IncomeAdded.Add(credit.Amount)
		if credit.Pool == models.PoolLocked {
			res.LockedIncome = res.LockedIncome.Add(credit.Amount)
		} else {
			res.RegularIncome = res.RegularIncome.Add(credit.Amount)
		}
	}
	if firstErr != nil && res.PeriodsCredited == 0 {
		return nil, firstErr
	}

	if res.PeriodsCredited > 0 {
		res.Message = fmt.Sprintf("%s income added", res.IncomeAdded.StringFixed(2))
	} else {
		res.Message = "no income due yet"
	}
	return res, nil
}

func banned(message string) *CheckResult {
	return &CheckResult{
		Status:  CheckStatusBanned,
		Code:    apperrors.CodeBanned,
		Message: message,
	}
}

func (s *service) listActive(ctx context.Context, userID string) ([]*models.Investment, error) {
	ctx, cancel := context.WithTimeout(ctx, s.config.StoreTimeout)
	defer cancel()
	invs, err := s.investments.ListActiveByUser(ctx, userID)
	if err != nil {
		return nil, apperrors.Unavailable("list active investments", err)
	}
	return invs, nil
}

// Reconcile credits every period of inv due at now. It returns a nil Credit
// when nothing is due. inv may be stale; it is re-read on conflict.
func (s *service) Reconcile(ctx context.Context, inv *models.Investment, now time.Time) (*Credit, error) {
	if DuePeriods(inv, now, s.config.Period) == 0 {
		return nil, nil
	}
	if err := s.balances.CheckActive(ctx, inv.UserID); err != nil {
		return nil, err
	}

	current := inv.Clone()
	for attempt := 0; attempt < s.config.MaxRetries; attempt++ {
		k := DuePeriods(current, now, s.config.Period)
		if k == 0 {
			return nil, nil
		}

		before := current.Clone()
		claimed := current.Clone()
		advance(claimed, k, s.config.Period, now)

		err := s.swap(ctx, claimed, before.Version)
		if errors.Is(err, repositories.ErrVersionConflict) {
			current, err = s.reload(ctx, inv.ID)
			if err != nil {
				return nil, err
			}
			continue
		}
		if err != nil {
			return nil, apperrors.Unavailable("claim investment", err)
		}

		return s.credit(ctx, before, claimed, k, now)
	}
	return nil, apperrors.Unavailable("claim investment", repositories.ErrVersionConflict)
}

func (s *service) credit(ctx context.Context, before, claimed *models.Investment, k int, now time.Time) (*Credit, error) {
	snap := claimed.Plan
	amount := snap.DailyIncome.Mul(decimalInt(k))
	pool := models.PoolSpendable
	if snap.LockedBalance {
		pool = models.PoolLocked
	}

	_, err := s.balances.ApplyActive(ctx, claimed.UserID, func(u *models.User) error {
		if pool == models.PoolLocked {
			u.LockedBalance = u.LockedBalance.Add(amount)
		} else {
			u.SpendableBalance = u.SpendableBalance.Add(amount)
		}
		u.LifetimeEarnings = u.LifetimeEarnings.Add(amount)
		return nil
	})
	if err != nil {
		s.release(ctx, before, claimed)
		s.metrics.RecordError("payout_credit", apperrors.CodeOf(err))
		return nil, err
	}

	for i := 0; i < k; i++ {
		period := before.PayoutCount + i + 1
		s.balances.Record(ctx, &models.Transaction{
			UserID:      claimed.UserID,
			Kind:        models.TransactionKindDailyIncome,
			Amount:      snap.DailyIncome,
			Pool:        pool,
			Reference:   claimed.ID,
			Description: fmt.Sprintf("Daily income from %s (day %d of %d)", snap.PlanName, period, snap.TermDays),
			Metadata: models.Metadata{
				"plan_id": snap.PlanID,
				"period":  period,
				"due_at":  before.LastPayoutAt.Add(time.Duration(i+1) * s.config.Period).Format(time.RFC3339),
			},
			CreatedAt: now,
		})
		s.metrics.RecordPayout(pool, snap.DailyIncome.InexactFloat64())
	}

	log.WithFields(log.Fields{
		"user_id":       claimed.UserID,
		"investment_id": claimed.ID,
		"periods":       k,
		"amount":        amount.String(),
		"pool":          pool,
		"completed":     claimed.Status == models.InvestmentStatusCompleted,
	}).Info("daily income credited")

	return &Credit{
		UserID:       claimed.UserID,
		InvestmentID: claimed.ID,
		Periods:      k,
		Amount:       amount,
		Pool:         pool,
		Completed:    claimed.Status == models.InvestmentStatusCompleted,
	}, nil
}

// release puts the investment back to its pre-claim state after a failed credit.
func (s *service) release(ctx context.Context, before, claimed *models.Investment) {
	restored := before.Clone()
	var err error
	for attempt := 0; attempt < s.config.MaxRetries; attempt++ {
		err = s.swap(ctx, restored, claimed.Version)
		if err == nil || errors.Is(err, repositories.ErrVersionConflict) {
			break
		}
	}
	if err != nil {
		s.metrics.RecordError("payout_release", apperrors.CodeOf(err))
		log.WithError(err).WithFields(log.Fields{
			"user_id":       claimed.UserID,
			"investment_id": claimed.ID,
		}).Error("failed to release investment claim after credit failure")
	}
}

func (s *service) swap(ctx context.Context, inv *models.Investment, expected int64) error {
	ctx, cancel := context.WithTimeout(ctx, s.config.StoreTimeout)
	defer cancel()
	return s.investments.CompareAndSwap(ctx, inv, expected)
}

func (s *service) reload(ctx context.Context, id string) (*models.Investment, error) {
	ctx, cancel := context.WithTimeout(ctx, s.config.StoreTimeout)
	defer cancel()
	inv, err := s.investments.GetByID(ctx, id)
	if err != nil {
		return nil, apperrors.Unavailable("reload investment", err)
	}
	return inv, nil
}

// RunSweep reconciles every due investment. A failing record is logged and
// skipped. Concurrent sweeps are safe; each period is claimed once.
func (s *service) RunSweep(ctx context.Context) (*SweepResult, error) {
	now := s.config.Now()
	started := time.Now()
	res := &SweepResult{TotalDistributed: decimal.Zero, StartedAt: now}
	users := make(map[string]struct{})
	var mu sync.Mutex

	afterID := ""
	for {
		page, err := s.listDue(ctx, now, afterID)
		if err != nil {
			res.UsersPaid = len(users)
			res.Duration = time.Since(started)
			return res, err
		}
		if len(page) == 0 {
			break
		}

		g, gctx := errgroup.WithContext(ctx)
		g.SetLimit(s.config.Workers)
		for _, inv := range page {
			g.Go(func() error {
				credit, err := s.Reconcile(gctx, inv, now)

				mu.Lock()
				defer mu.Unlock()
				switch {
				case errors.Is(err, balance.ErrUserBanned):
					res.Skipped++
				case err != nil:
					res.Failures++
					log.WithError(err).WithFields(log.Fields{
						"user_id":       inv.UserID,
						"investment_id": inv.ID,
					}).Error("sweep reconcile failed")
				case credit != nil:
					res.InvestmentsPaid++
					res.PeriodsCredited += credit.Periods
					res.TotalDistributed = res.TotalDistributed.Add(credit.Amount)
					users[credit.UserID] = struct{}{}
				}
				return nil
			})
		}
		_ = g.Wait()

		afterID = page[len(page)-1].ID
		if len(page) < s.config.PageSize {
			break
		}
	}

	res.UsersPaid = len(users)
	res.Duration = time.Since(started)
	s.metrics.RecordOperationDuration("sweep", res.Duration)

	log.WithFields(log.Fields{
		"total_distributed": res.TotalDistributed.String(),
		"users_paid":        res.UsersPaid,
		"investments_paid":  res.InvestmentsPaid,
		"periods":           res.PeriodsCredited,
		"skipped":           res.Skipped,
		"failures":          res.Failures,
		"duration":          res.Duration,
	}).Info("payout sweep finished")
	return res, nil
}

func (s *service) listDue(ctx context.Context, now time.Time, afterID string) ([]*models.Investment, error) {
	ctx, cancel := context.WithTimeout(ctx, s.config.StoreTimeout)
	defer cancel()
	page, err := s.investments.ListDue(ctx, now, afterID, s.config.PageSize)
	if err != nil {
		return nil, apperrors.Unavailable("list due investments", err)
	}
	return page, nil
}

func decimalInt(k int) decimal.Decimal {
	return decimal.NewFromInt(int64(k))
}
