// Package referral pays the one-time commission a referrer earns when a
// referred user makes their first investment.
package referral

import (
	"context"
	"time"

	apperrors "happyinvest/internal/errors"
	"happyinvest/internal/metrics"
	"happyinvest/internal/models"
	"happyinvest/internal/repositories"
	"happyinvest/internal/services/balance"

	"github.com/pkg/errors"
	"github.com/shopspring/decimal"
	log "github.com/sirupsen/logrus"
)

// Service defines the referral cascade
type Service interface {
	// OnFirstInvestment pays the referrer of referredID, at most once per referred user.
	// It is safe to call after every purchase; a released claim is picked up again.
	OnFirstInvestment(ctx context.Context, referredID string, inv *models.Investment) error
	Team(ctx context.Context, referrerID string) ([]*models.ReferralEdge, error)
	TeamStats(ctx context.Context, referrerID string) (*TeamStats, error)
}

// TeamStats aggregates a referrer's direct team. Members are referred users
// whose edge exists, which happens on their first purchase.
type TeamStats struct {
	Members          int             `json:"members"`
	InvestedMembers  int             `json:"investedMembers"`
	PaidCommissions  int             `json:"paidCommissions"`
	CommissionEarned decimal.Decimal `json:"commissionEarned"`
}

type Config struct {
	Bonus        decimal.Decimal
	StoreTimeout time.Duration
	MaxRetries   int
	Now          func() time.Time
}

type service struct {
	users     repositories.UserRepository
	referrals repositories.ReferralRepository
	balances  balance.Service
	config    Config
	metrics   metrics.Collector
}

func NewService(store *repositories.Store, balances balance.Service, config Config, collector metrics.Collector) Service {
	if store == nil || store.Referrals == nil || store.Users == nil {
		panic("store is required")
	}
	if balances == nil {
		panic("balance service is required")
	}
	if config.Bonus.IsZero() {
		config.Bonus = decimal.NewFromInt(100)
	}
	if config.StoreTimeout <= 0 {
		config.StoreTimeout = 5 * time.Second
	}
	if config.MaxRetries <= 0 {
		config.MaxRetries = 5
	}
	if config.Now == nil {
		config.Now = time.Now
	}
	if collector == nil {
		collector = metrics.NoopCollector{}
	}
	return &service{
		users:     store.Users,
		referrals: store.Referrals,
		balances:  balances,
		config:    config,
		metrics:   collector,
	}
}

func (s *service) OnFirstInvestment(ctx context.Context, referredID string, inv *models.Investment) error {
	referred, err := s.balances.Get(ctx, referredID)
	if err != nil {
		return err
	}
	if referred.ReferredBy == "" {
		return nil
	}

	referrer, err := s.lookupReferrer(ctx, referred.ReferredBy)
	if err != nil {
		return err
	}
	if referrer.ID == referredID {
		return nil
	}

	if err := s.ensureEdge(ctx, referrer.ID, referredID); err != nil {
		return err
	}

	// Claim the edge. Whoever moves it out of "none" is the only payer.
	firstInvestmentID := inv.ID
	err = s.updateEdge(ctx, referredID, func(e *models.ReferralEdge) error {
		if e.CommissionStatus != models.CommissionStatusNone {
			return ErrCommissionAlreadyPaid
		}
		e.CommissionStatus = models.CommissionStatusPaying
		e.HasInvested = true
		e.TotalInvested = referred.TotalInvested
		if e.FirstInvestmentID == "" {
			e.FirstInvestmentID = inv.ID
		}
		firstInvestmentID = e.FirstInvestmentID
		return nil
	})
	if err != nil {
		if errors.Is(err, ErrCommissionAlreadyPaid) {
			log.WithField("referred_id", referredID).Debug("referral commission already settled")
			return nil
		}
		return err
	}

	bonus := s.config.Bonus
	_, err = s.balances.ApplyActive(ctx, referrer.ID, func(u *models.User) error {
		u.SpendableBalance = u.SpendableBalance.Add(bonus)
		u.CommissionEarned = u.CommissionEarned.Add(bonus)
		u.LifetimeEarnings = u.LifetimeEarnings.Add(bonus)
		return nil
	})
	if err != nil {
		s.release(ctx, referredID)
		s.metrics.RecordError("referral_commission", apperrors.CodeOf(err))
		return err
	}

	now := s.config.Now()
	err = s.updateEdge(ctx, referredID, func(e *models.ReferralEdge) error {
		e.CommissionStatus = models.CommissionStatusPaid
		e.CommissionEarned = bonus
		e.PaidAt = &now
		return nil
	})
	if err != nil {
		// The bonus is paid and the edge stays "paying", which still blocks a second payment.
		log.WithError(err).WithField("referred_id", referredID).Error("failed to mark referral commission paid")
	}

	s.balances.Record(ctx, &models.Transaction{
		UserID:      referrer.ID,
		Kind:        models.TransactionKindReferralCommission,
		Amount:      bonus,
		Pool:        models.PoolSpendable,
		Reference:   referredID,
		Description: "Referral commission from " + referred.Name,
		Metadata: models.Metadata{
			"referred_user_id": referredID,
			"investment_id":    firstInvestmentID,
		},
	})
	s.metrics.RecordOperationResult("referral_commission", "paid")

	log.WithFields(log.Fields{
		"referrer_id":   referrer.ID,
		"referred_id":   referredID,
		"investment_id": firstInvestmentID,
		"amount":        bonus.String(),
	}).Info("referral commission paid")
	return nil
}

func (s *service) Team(ctx context.Context, referrerID string) ([]*models.ReferralEdge, error) {
	ctx, cancel := context.WithTimeout(ctx, s.config.StoreTimeout)
	defer cancel()
	edges, err := s.referrals.ListByReferrer(ctx, referrerID)
	if err != nil {
		return nil, apperrors.Unavailable("list referrals", err)
	}
	return edges, nil
}

func (s *service) TeamStats(ctx context.Context, referrerID string) (*TeamStats, error) {
	edges, err := s.Team(ctx, referrerID)
	if err != nil {
		return nil, err
	}

	stats := &TeamStats{
		Members:          len(edges),
		CommissionEarned: decimal.Zero,
	}
	for _, e := range edges {
		if e.HasInvested {
			stats.InvestedMembers++
		}
		if e.CommissionStatus == models.CommissionStatusPaid {
			stats.PaidCommissions++
			stats.CommissionEarned = stats.CommissionEarned.Add(e.CommissionEarned)
		}
	}
	return stats, nil
}

func (s *service) lookupReferrer(ctx context.Context, code string) (*models.User, error) {
	ctx, cancel := context.WithTimeout(ctx, s.config.StoreTimeout)
	defer cancel()
	u, err := s.users.GetByReferralCode(ctx, code)
	if err != nil {
		if errors.Is(err, repositories.ErrNotFound) {
			return nil, ErrReferrerNotFound
		}
		return nil, apperrors.Unavailable("get referrer", err)
	}
	return u, nil
}

func (s *service) ensureEdge(ctx context.Context, referrerID, referredID string) error {
	ctx, cancel := context.WithTimeout(ctx, s.config.StoreTimeout)
	defer cancel()
	err := s.referrals.Create(ctx, &models.ReferralEdge{
		ReferredID:       referredID,
		ReferrerID:       referrerID,
		CommissionStatus: models.CommissionStatusNone,
	})
	if err != nil && !errors.Is(err, repositories.ErrDuplicate) {
		return apperrors.Unavailable("create referral edge", err)
	}
	return nil
}

func (s *service) updateEdge(ctx context.Context, referredID string, mutate func(e *models.ReferralEdge) error) error {
	for attempt := 0; attempt < s.config.MaxRetries; attempt++ {
		err := func() error {
			ctx, cancel := context.WithTimeout(ctx, s.config.StoreTimeout)
			defer cancel()

			edge, err := s.referrals.Get(ctx, referredID)
			if err != nil {
				if errors.Is(err, repositories.ErrNotFound) {
					return ErrReferrerNotFound
				}
				return apperrors.Unavailable("get referral edge", err)
			}
			expected := edge.Version
			if err := mutate(edge); err != nil {
				return err
			}
			err = s.referrals.CompareAndSwap(ctx, edge, expected)
			if err != nil && !errors.Is(err, repositories.ErrVersionConflict) {
				return apperrors.Unavailable("update referral edge", err)
			}
			return err
		}()
		if errors.Is(err, repositories.ErrVersionConflict) {
			continue
		}
		return err
	}
	return apperrors.Unavailable("update referral edge", repositories.ErrVersionConflict)
}

// release returns a claimed edge to "none" after the referrer credit failed.
func (s *service) release(ctx context.Context, referredID string) {
	err := s.updateEdge(ctx, referredID, func(e *models.ReferralEdge) error {
		if e.CommissionStatus != models.CommissionStatusPaying {
			return ErrCommissionAlreadyPaid
		}
		e.CommissionStatus = models.CommissionStatusNone
		return nil
	})
	if err != nil {
		log.WithError(err).WithField("referred_id", referredID).Error("failed to release referral claim")
	}
}
