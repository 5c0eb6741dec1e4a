package repositories

import (
	"context"
	"errors"
	"time"

	apperrors "happyinvest/internal/errors"
	"happyinvest/internal/models"
)

var (
	ErrNotFound        = apperrors.New(apperrors.CodeNotFound, "record not found")
	ErrVersionConflict = apperrors.ErrVersionConflict
	ErrDuplicate       = errors.New("record already exists")
)

// UserRepository stores per-user balance records.
type UserRepository interface {
	GetByID(ctx context.Context, id string) (*models.User, error)
	GetByReferralCode(ctx context.Context, code string) (*models.User, error)
	Create(ctx context.Context, user *models.User) error
	// CompareAndSwap writes user if the stored version equals expected and
	// bumps user.Version. ErrVersionConflict otherwise.
	CompareAndSwap(ctx context.Context, user *models.User, expected int64) error
	// List pages every user, newest first.
	List(ctx context.Context, limit, offset int) ([]*models.User, int64, error)
}

// InvestmentRepository stores purchased plan instances.
type InvestmentRepository interface {
	Create(ctx context.Context, inv *models.Investment) error
	GetByID(ctx context.Context, id string) (*models.Investment, error)
	ListByUser(ctx context.Context, userID string) ([]*models.Investment, error)
	ListActiveByUser(ctx context.Context, userID string) ([]*models.Investment, error)
	// ListDue pages active records due at or before dueBy, ordered by id, after afterID.
	ListDue(ctx context.Context, dueBy time.Time, afterID string, limit int) ([]*models.Investment, error)
	CompareAndSwap(ctx context.Context, inv *models.Investment, expected int64) error
}

// TransactionRepository is the append-only audit log.
type TransactionRepository interface {
	Create(ctx context.Context, tx *models.Transaction) error
	// ListByUser returns newest first. Empty kinds means every kind.
	ListByUser(ctx context.Context, userID string, kinds []string, limit, offset int) ([]*models.Transaction, int64, error)
}

// WithdrawalRepository stores withdrawal requests.
type WithdrawalRepository interface {
	Create(ctx context.Context, w *models.Withdrawal) error
	GetByID(ctx context.Context, id string) (*models.Withdrawal, error)
	ListByUser(ctx context.Context, userID string) ([]*models.Withdrawal, error)
	ListByStatus(ctx context.Context, status string) ([]*models.Withdrawal, error)
	CompareAndSwap(ctx context.Context, w *models.Withdrawal, expected int64) error
}

// RechargeRepository stores deposit requests.
type RechargeRepository interface {
	Create(ctx context.Context, r *models.Recharge) error
	GetByID(ctx context.Context, id string) (*models.Recharge, error)
	ListByStatus(ctx context.Context, status string) ([]*models.Recharge, error)
	CompareAndSwap(ctx context.Context, r *models.Recharge, expected int64) error
}

// BanRepository stores one ban record per banned user.
type BanRepository interface {
	Get(ctx context.Context, userID string) (*models.Ban, error)
	Put(ctx context.Context, ban *models.Ban) error
	Delete(ctx context.Context, userID string) error
}

// ViolationRepository is the append-only anti-cheat log.
type ViolationRepository interface {
	Create(ctx context.Context, v *models.CheatViolation) error
	ListByUser(ctx context.Context, userID string) ([]*models.CheatViolation, error)
}

// ReferralRepository stores referrer/referred edges.
type ReferralRepository interface {
	Get(ctx context.Context, referredID string) (*models.ReferralEdge, error)
	// Create returns ErrDuplicate if an edge for the referred user exists.
	Create(ctx context.Context, edge *models.ReferralEdge) error
	ListByReferrer(ctx context.Context, referrerID string) ([]*models.ReferralEdge, error)
	CompareAndSwap(ctx context.Context, edge *models.ReferralEdge, expected int64) error
}

// Store bundles every repository the ledger engine needs.
type Store struct {
	Users        UserRepository
	Investments  InvestmentRepository
	Transactions TransactionRepository
	Withdrawals  WithdrawalRepository
	Recharges    RechargeRepository
	Bans         BanRepository
	Violations   ViolationRepository
	Referrals    ReferralRepository
	// Ping reports store reachability for health checks.
	Ping func(ctx context.Context) error
}
