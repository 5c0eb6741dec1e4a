// Package recharge records deposit requests and credits them once an
// operator confirms the external payment.
package recharge

import (
	"context"
	"time"

	apperrors "happyinvest/internal/errors"
	"happyinvest/internal/metrics"
	"happyinvest/internal/models"
	"happyinvest/internal/repositories"
	"happyinvest/internal/services/balance"

	"github.com/google/uuid"
	"github.com/pkg/errors"
	"github.com/shopspring/decimal"
	log "github.com/sirupsen/logrus"
)

type Service interface {
	Create(ctx context.Context, userID string, amount decimal.Decimal, method, reference string) (*models.Recharge, error)
	Resolve(ctx context.Context, rechargeID, decision, operatorID string) (*models.Recharge, error)
	Pending(ctx context.Context) ([]*models.Recharge, error)
}

type Config struct {
	MinAmount    decimal.Decimal
	StoreTimeout time.Duration
	MaxRetries   int
	Now          func() time.Time
}

type service struct {
	recharges repositories.RechargeRepository
	balances  balance.Service
	config    Config
	metrics   metrics.Collector
}

func NewService(store *repositories.Store, balances balance.Service, config Config, collector metrics.Collector) Service {
	if store == nil || store.Recharges == nil {
		panic("store is required")
	}
	if balances == nil {
		panic("balance service is required")
	}
	if config.MinAmount.IsZero() {
		config.MinAmount = decimal.NewFromInt(100)
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
		recharges: store.Recharges,
		balances:  balances,
		config:    config,
		metrics:   collector,
	}
}

func (s *service) Create(ctx context.Context, userID string, amount decimal.Decimal, method, reference string) (*models.Recharge, error) {
	if !amount.IsPositive() || amount.LessThan(s.config.MinAmount) {
		return nil, ErrBelowMinimum
	}
	if !models.IsCents(amount) {
		return nil, ErrAmountPrecision
	}
	if _, err := s.balances.Get(ctx, userID); err != nil {
		return nil, err
	}
	if err := s.balances.CheckActive(ctx, userID); err != nil {
		return nil, err
	}
	if method == "" {
		method = "manual"
	}

	r := &models.Recharge{
		ID:            uuid.NewString(),
		UserID:        userID,
		Amount:        amount,
		PaymentMethod: method,
		Reference:     reference,
		Status:        models.RechargeStatusPending,
		CreatedAt:     s.config.Now(),
	}

	ctx, cancel := context.WithTimeout(ctx, s.config.StoreTimeout)
	defer cancel()
	if err := s.recharges.Create(ctx, r); err != nil {
		return nil, apperrors.Unavailable("create recharge", err)
	}

	log.WithFields(log.Fields{
		"user_id":     userID,
		"recharge_id": r.ID,
		"amount":      amount.String(),
	}).Info("recharge requested")
	return r, nil
}

func (s *service) Resolve(ctx context.Context, rechargeID, decision, operatorID string) (*models.Recharge, error) {
	if decision != models.RechargeStatusApproved && decision != models.RechargeStatusRejected {
		return nil, ErrInvalidDecision
	}

	now := s.config.Now()
	r, version, err := s.update(ctx, rechargeID, func(r *models.Recharge) error {
		if r.Status != models.RechargeStatusPending {
			return ErrAlreadyResolved
		}
		r.Status = decision
		r.ApprovedBy = operatorID
		r.ResolvedAt = &now
		return nil
	})
	if err != nil {
		return nil, err
	}

	if decision == models.RechargeStatusApproved {
		_, err := s.balances.Apply(ctx, r.UserID, func(u *models.User) error {
			u.SpendableBalance = u.SpendableBalance.Add(r.Amount)
			u.RechargeTotal = u.RechargeTotal.Add(r.Amount)
			return nil
		})
		if err != nil {
			s.reopen(ctx, r, version)
			return nil, err
		}
		s.balances.Record(ctx, &models.Transaction{
			UserID:      r.UserID,
			Kind:        models.TransactionKindRecharge,
			Amount:      r.Amount,
			Pool:        models.PoolSpendable,
			Reference:   r.ID,
			Description: "Recharge via " + r.PaymentMethod,
			Metadata:    models.Metadata{"external_reference": r.Reference},
		})
	}

	s.metrics.RecordOperationResult("recharge_resolve", decision)
	log.WithFields(log.Fields{
		"recharge_id": r.ID,
		"user_id":     r.UserID,
		"amount":      r.Amount.String(),
		"decision":    decision,
	}).Info("recharge resolved")
	return r, nil
}

func (s *service) reopen(ctx context.Context, r *models.Recharge, version int64) {
	restored := r.Clone()
	restored.Status = models.RechargeStatusPending
	restored.ApprovedBy = ""
	restored.ResolvedAt = nil

	ctx, cancel := context.WithTimeout(ctx, s.config.StoreTimeout)
	defer cancel()
	if err := s.recharges.CompareAndSwap(ctx, restored, version); err != nil {
		log.WithError(err).WithField("recharge_id", r.ID).Error("recharge approved but credit and reopen failed")
	}
}

func (s *service) update(ctx context.Context, id string, mutate func(r *models.Recharge) error) (*models.Recharge, int64, error) {
	for attempt := 0; attempt < s.config.MaxRetries; attempt++ {
		r, err := s.get(ctx, id)
		if err != nil {
			return nil, 0, err
		}
		expected := r.Version
		if err := mutate(r); err != nil {
			return nil, 0, err
		}

		err = func() error {
			ctx, cancel := context.WithTimeout(ctx, s.config.StoreTimeout)
			defer cancel()
			return s.recharges.CompareAndSwap(ctx, r, expected)
		}()
		if err == nil {
			return r, r.Version, nil
		}
		if !errors.Is(err, repositories.ErrVersionConflict) {
			return nil, 0, apperrors.Unavailable("update recharge", err)
		}
	}
	return nil, 0, apperrors.Unavailable("update recharge", repositories.ErrVersionConflict)
}

func (s *service) get(ctx context.Context, id string) (*models.Recharge, error) {
	ctx, cancel := context.WithTimeout(ctx, s.config.StoreTimeout)
	defer cancel()
	r, err := s.recharges.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, repositories.ErrNotFound) {
			return nil, ErrRechargeNotFound
		}
		return nil, apperrors.Unavailable("get recharge", err)
	}
	return r, nil
}

func (s *service) Pending(ctx context.Context) ([]*models.Recharge, error) {
	ctx, cancel := context.WithTimeout(ctx, s.config.StoreTimeout)
	defer cancel()
	rs, err := s.recharges.ListByStatus(ctx, models.RechargeStatusPending)
	if err != nil {
		return nil, apperrors.Unavailable("list pending recharges", err)
	}
	return rs, nil
}
