// Package withdrawal gates withdrawal requests and applies operator decisions.
// Funds are reserved when the request is made; a rejection refunds them.
package withdrawal

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

// Service defines the withdrawal gate
type Service interface {
	Request(ctx context.Context, userID string, amount decimal.Decimal, bank *models.BankDetails) (*RequestResult, error)
	Resolve(ctx context.Context, withdrawalID string, res Resolution) (*models.Withdrawal, error)
	UpdateReference(ctx context.Context, withdrawalID, transactionRef, utr string) (*models.Withdrawal, error)
	SaveBankDetails(ctx context.Context, userID string, bank models.BankDetails) error
	History(ctx context.Context, userID string) ([]*models.Withdrawal, error)
	Pending(ctx context.Context) ([]*models.Withdrawal, error)
}

type service struct {
	withdrawals repositories.WithdrawalRepository
	balances    balance.Service
	config      Config
	metrics     metrics.Collector
}

func NewService(store *repositories.Store, balances balance.Service, config Config, collector metrics.Collector) Service {
	if store == nil || store.Withdrawals == nil {
		panic("store is required")
	}
	if balances == nil {
		panic("balance service is required")
	}
	if config.MinAmount.IsZero() {
		config.MinAmount = decimal.NewFromInt(100)
	}
	if config.Location == nil {
		config.Location = time.UTC
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
		withdrawals: store.Withdrawals,
		balances:    balances,
		config:      config,
		metrics:     collector,
	}
}

func (s *service) Request(ctx context.Context, userID string, amount decimal.Decimal, bank *models.BankDetails) (*RequestResult, error) {
	if !amount.IsPositive() || amount.LessThan(s.config.MinAmount) {
		return nil, ErrBelowMinimum
	}
	if !models.IsCents(amount) {
		return nil, ErrAmountPrecision
	}

	now := s.config.Now()
	today := now.In(s.config.Location).Format("2006-01-02")

	var (
		previousDate string
		details      models.BankDetails
		userName     string
	)
	user, err := s.balances.ApplyActive(ctx, userID, func(u *models.User) error {
		if u.LastWithdrawalDate == today {
			return ErrDailyLimit
		}
		if bank != nil && bank.Present() {
			u.BankDetails = *bank
		}
		if !u.BankDetails.Present() {
			return ErrBankDetailsMissing
		}
		if u.SpendableBalance.LessThan(amount) {
			return balance.ErrInsufficientBalance
		}
		previousDate = u.LastWithdrawalDate
		details = u.BankDetails
		userName = u.Name

		u.SpendableBalance = u.SpendableBalance.Sub(amount)
		u.WithdrawnTotal = u.WithdrawnTotal.Add(amount)
		u.LastWithdrawalDate = today
		return nil
	})
	if err != nil {
		s.metrics.RecordOperationResult("withdrawal_request", apperrors.CodeOf(err))
		return nil, err
	}

	w := &models.Withdrawal{
		ID:          uuid.NewString(),
		UserID:      userID,
		UserName:    userName,
		Amount:      amount,
		BankDetails: details,
		Status:      models.WithdrawalStatusPending,
		RequestDate: today,
		CreatedAt:   now,
	}
	if err := s.create(ctx, w); err != nil {
		s.unreserve(ctx, userID, amount, today, previousDate)
		return nil, apperrors.Unavailable("create withdrawal", err)
	}

	s.balances.Record(ctx, &models.Transaction{
		UserID:      userID,
		Kind:        models.TransactionKindWithdrawalRequest,
		Amount:      amount.Neg(),
		Pool:        models.PoolSpendable,
		Reference:   w.ID,
		Description: "Withdrawal requested",
	})
	s.metrics.RecordOperationResult("withdrawal_request", "ok")

	log.WithFields(log.Fields{
		"user_id":       userID,
		"withdrawal_id": w.ID,
		"amount":        amount.String(),
	}).Info("withdrawal requested")

	return &RequestResult{
		WithdrawalID: w.ID,
		Withdrawal:   w,
		NewBalance:   user.SpendableBalance,
	}, nil
}

func (s *service) create(ctx context.Context, w *models.Withdrawal) error {
	ctx, cancel := context.WithTimeout(ctx, s.config.StoreTimeout)
	defer cancel()
	return s.withdrawals.Create(ctx, w)
}

// unreserve reverses a reservation whose withdrawal record could not be written.
func (s *service) unreserve(ctx context.Context, userID string, amount decimal.Decimal, today, previousDate string) {
	_, err := s.balances.Apply(ctx, userID, func(u *models.User) error {
		u.SpendableBalance = u.SpendableBalance.Add(amount)
		u.WithdrawnTotal = u.WithdrawnTotal.Sub(amount)
		if u.LastWithdrawalDate == today {
			u.LastWithdrawalDate = previousDate
		}
		return nil
	})
	if err != nil {
		log.WithError(err).WithFields(log.Fields{
			"user_id": userID,
			"amount":  amount.String(),
		}).Error("failed to release withdrawal reservation")
	}
}

func (s *service) Resolve(ctx context.Context, withdrawalID string, res Resolution) (*models.Withdrawal, error) {
	if res.Decision != models.WithdrawalStatusCompleted && res.Decision != models.WithdrawalStatusRejected {
		return nil, ErrInvalidDecision
	}

	now := s.config.Now()
	w, claimedVersion, err := s.update(ctx, withdrawalID, func(w *models.Withdrawal) error {
		if w.IsTerminal() {
			return ErrAlreadyResolved
		}
		w.Status = res.Decision
		w.ProcessedBy = res.OperatorID
		w.ProcessedAt = &now
		w.TransactionRef = res.TransactionRef
		w.UTR = res.UTR
		return nil
	})
	if err != nil {
		return nil, err
	}

	if res.Decision == models.WithdrawalStatusRejected {
		if err := s.refund(ctx, w); err != nil {
			s.reopen(ctx, w, claimedVersion)
			return nil, err
		}
	}

	s.metrics.RecordOperationResult("withdrawal_resolve", res.Decision)
	log.WithFields(log.Fields{
		"withdrawal_id": w.ID,
		"user_id":       w.UserID,
		"amount":        w.Amount.String(),
		"decision":      res.Decision,
		"operator":      res.OperatorID,
	}).Info("withdrawal resolved")
	return w, nil
}

func (s *service) refund(ctx context.Context, w *models.Withdrawal) error {
	_, err := s.balances.Apply(ctx, w.UserID, func(u *models.User) error {
		u.SpendableBalance = u.SpendableBalance.Add(w.Amount)
		u.WithdrawnTotal = u.WithdrawnTotal.Sub(w.Amount)
		return nil
	})
	if err != nil {
		return err
	}
	s.balances.Record(ctx, &models.Transaction{
		UserID:      w.UserID,
		Kind:        models.TransactionKindWithdrawalRefund,
		Amount:      w.Amount,
		Pool:        models.PoolSpendable,
		Reference:   w.ID,
		Description: "Withdrawal rejected, amount refunded",
	})
	return nil
}

// reopen returns a rejected withdrawal to pending when its refund failed, so
// the operator can resolve it again.
func (s *service) reopen(ctx context.Context, w *models.Withdrawal, version int64) {
	restored := w.Clone()
	restored.Status = models.WithdrawalStatusPending
	restored.ProcessedAt = nil
	restored.ProcessedBy = ""

	swapCtx, cancel := context.WithTimeout(ctx, s.config.StoreTimeout)
	defer cancel()
	if err := s.withdrawals.CompareAndSwap(swapCtx, restored, version); err != nil {
		log.WithError(err).WithFields(log.Fields{
			"withdrawal_id": w.ID,
			"user_id":       w.UserID,
		}).Error("withdrawal rejected but refund failed and reopen failed")
	}
}

func (s *service) UpdateReference(ctx context.Context, withdrawalID, transactionRef, utr string) (*models.Withdrawal, error) {
	w, _, err := s.update(ctx, withdrawalID, func(w *models.Withdrawal) error {
		if w.Status != models.WithdrawalStatusCompleted {
			return ErrNotCompleted
		}
		if transactionRef != "" {
			w.TransactionRef = transactionRef
		}
		if utr != "" {
			w.UTR = utr
		}
		return nil
	})
	return w, err
}

// update applies mutate under compare-and-swap and returns the written record
// and its new version.
func (s *service) update(ctx context.Context, id string, mutate func(w *models.Withdrawal) error) (*models.Withdrawal, int64, error) {
	for attempt := 0; attempt < s.config.MaxRetries; attempt++ {
		w, err := s.get(ctx, id)
		if err != nil {
			return nil, 0, err
		}
		expected := w.Version
		if err := mutate(w); err != nil {
			return nil, 0, err
		}

		err = func() error {
			ctx, cancel := context.WithTimeout(ctx, s.config.StoreTimeout)
			defer cancel()
			return s.withdrawals.CompareAndSwap(ctx, w, expected)
		}()
		if err == nil {
			return w, w.Version, nil
		}
		if !errors.Is(err, repositories.ErrVersionConflict) {
			return nil, 0, apperrors.Unavailable("update withdrawal", err)
		}
	}
	return nil, 0, apperrors.Unavailable("update withdrawal", repositories.ErrVersionConflict)
}

func (s *service) get(ctx context.Context, id string) (*models.Withdrawal, error) {
	ctx, cancel := context.WithTimeout(ctx, s.config.StoreTimeout)
	defer cancel()
	w, err := s.withdrawals.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, repositories.ErrNotFound) {
			return nil, ErrWithdrawalNotFound
		}
		return nil, apperrors.Unavailable("get withdrawal", err)
	}
	return w, nil
}

func (s *service) SaveBankDetails(ctx context.Context, userID string, bank models.BankDetails) error {
	if !bank.Present() {
		return ErrBankDetailsMissing
	}
	_, err := s.balances.Apply(ctx, userID, func(u *models.User) error {
		u.BankDetails = bank
		return nil
	})
	return err
}

func (s *service) History(ctx context.Context, userID string) ([]*models.Withdrawal, error) {
	ctx, cancel := context.WithTimeout(ctx, s.config.StoreTimeout)
	defer cancel()
	ws, err := s.withdrawals.ListByUser(ctx, userID)
	if err != nil {
		return nil, apperrors.Unavailable("list withdrawals", err)
	}
	return ws, nil
}

func (s *service) Pending(ctx context.Context) ([]*models.Withdrawal, error) {
	ctx, cancel := context.WithTimeout(ctx, s.config.StoreTimeout)
	defer cancel()
	ws, err := s.withdrawals.ListByStatus(ctx, models.WithdrawalStatusPending)
	if err != nil {
		return nil, apperrors.Unavailable("list pending withdrawals", err)
	}
	return ws, nil
}
