// Package investment implements plan purchases and the investment registry.
package investment

import (
	"context"
	"time"

	apperrors "happyinvest/internal/errors"
	"happyinvest/internal/metrics"
	"happyinvest/internal/models"
	"happyinvest/internal/repositories"
	"happyinvest/internal/services/balance"
	"happyinvest/internal/services/plan"

	"github.com/google/uuid"
	"github.com/pkg/errors"
	log "github.com/sirupsen/logrus"
)

// Service defines the investment registry
type Service interface {
	Purchase(ctx context.Context, userID, planID string) (*PurchaseResult, error)
	Get(ctx context.Context, id string) (*models.Investment, error)
	List(ctx context.Context, userID string) ([]*models.Investment, error)
}

type service struct {
	investments repositories.InvestmentRepository
	catalog     plan.Catalog
	balances    balance.Service
	referrals   Cascader
	config      Config
	metrics     metrics.Collector
}

// NewService creates a new investment service. referrals may be nil.
func NewService(
	store *repositories.Store,
	catalog plan.Catalog,
	balances balance.Service,
	referrals Cascader,
	config Config,
	collector metrics.Collector,
) Service {
	if store == nil || store.Investments == nil {
		panic("store is required")
	}
	if catalog == nil {
		panic("plan catalog is required")
	}
	if balances == nil {
		panic("balance service is required")
	}
	if config.PayoutPeriod <= 0 {
		config.PayoutPeriod = 24 * time.Hour
	}
	if config.StoreTimeout <= 0 {
		config.StoreTimeout = 5 * time.Second
	}
	if config.Now == nil {
		config.Now = time.Now
	}
	if collector == nil {
		collector = metrics.NoopCollector{}
	}
	return &service{
		investments: store.Investments,
		catalog:     catalog,
		balances:    balances,
		referrals:   referrals,
		config:      config,
		metrics:     collector,
	}
}

func (s *service) Purchase(ctx context.Context, userID, planID string) (*PurchaseResult, error) {
	start := time.Now()
	defer func() {
		s.metrics.RecordOperationDuration("purchase", time.Since(start))
	}()

	p, err := s.catalog.Get(planID)
	if err != nil {
		return nil, err
	}
	price := p.Price

	var first bool
	user, err := s.balances.ApplyActive(ctx, userID, func(u *models.User) error {
		if u.SpendableBalance.LessThan(price) {
			return balance.ErrInsufficientBalance
		}
		u.SpendableBalance = u.SpendableBalance.Sub(price)
		u.TotalInvested = u.TotalInvested.Add(price)
		first = !u.HasInvested
		u.HasInvested = true
		return nil
	})
	if err != nil {
		s.metrics.RecordOperationResult("purchase", apperrors.CodeOf(err))
		return nil, err
	}

	now := s.config.Now()
	inv := &models.Investment{
		ID:            uuid.NewString(),
		UserID:        userID,
		Plan:          p.Snapshot(),
		Status:        models.InvestmentStatusActive,
		DaysRemaining: p.TermDays,
		LastPayoutAt:  now,
		NextPayoutDue: now.Add(s.config.PayoutPeriod),
		PurchasedAt:   now,
	}

	if err := s.create(ctx, inv); err != nil {
		s.refund(ctx, userID, inv, first)
		s.metrics.RecordOperationResult("purchase", apperrors.CodeStoreUnavailable)
		return nil, apperrors.Unavailable("create investment", err)
	}

	s.balances.Record(ctx, &models.Transaction{
		UserID:      userID,
		Kind:        models.TransactionKindInvestment,
		Amount:      price.Neg(),
		Pool:        models.PoolSpendable,
		Reference:   inv.ID,
		Description: "Purchased " + p.Name,
		Metadata: models.Metadata{
			"plan_id":   p.ID,
			"category":  string(p.Category),
			"term_days": p.TermDays,
		},
	})

	log.WithFields(log.Fields{
		"user_id":       userID,
		"investment_id": inv.ID,
		"plan_id":       p.ID,
		"amount":        price.String(),
	}).Info("investment purchased")

	// A claim released by a failed credit is retried here on the next purchase.
	if s.referrals != nil {
		if err := s.referrals.OnFirstInvestment(ctx, userID, inv); err != nil {
			log.WithError(err).WithField("user_id", userID).Warn("referral cascade failed")
		}
	}

	s.metrics.RecordOperationResult("purchase", "ok")
	return &PurchaseResult{
		InvestmentID: inv.ID,
		Investment:   inv,
		NewBalance:   user.SpendableBalance,
		FirstOfUser:  first,
	}, nil
}

func (s *service) create(ctx context.Context, inv *models.Investment) error {
	ctx, cancel := context.WithTimeout(ctx, s.config.StoreTimeout)
	defer cancel()
	return s.investments.Create(ctx, inv)
}

// refund reverses the debit of a purchase whose record could not be written.
func (s *service) refund(ctx context.Context, userID string, inv *models.Investment, first bool) {
	price := inv.Plan.Price
	_, err := s.balances.Apply(ctx, userID, func(u *models.User) error {
		u.SpendableBalance = u.SpendableBalance.Add(price)
		u.TotalInvested = u.TotalInvested.Sub(price)
		if first && u.TotalInvested.IsZero() {
			u.HasInvested = false
		}
		return nil
	})
	if err != nil {
		log.WithError(err).WithFields(log.Fields{
			"user_id": userID,
			"amount":  price.String(),
		}).Error("failed to refund purchase after investment write failure")
	}
}

func (s *service) Get(ctx context.Context, id string) (*models.Investment, error) {
	ctx, cancel := context.WithTimeout(ctx, s.config.StoreTimeout)
	defer cancel()
	inv, err := s.investments.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, repositories.ErrNotFound) {
			return nil, ErrInvestmentNotFound
		}
		return nil, apperrors.Unavailable("get investment", err)
	}
	return inv, nil
}

func (s *service) List(ctx context.Context, userID string) ([]*models.Investment, error) {
	ctx, cancel := context.WithTimeout(ctx, s.config.StoreTimeout)
	defer cancel()
	invs, err := s.investments.ListByUser(ctx, userID)
	if err != nil {
		return nil, apperrors.Unavailable("list investments", err)
	}
	return invs, nil
}
