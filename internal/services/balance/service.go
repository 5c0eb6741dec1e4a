package balance

import (
	"context"
	"time"

	apperrors "happyinvest/internal/errors"
	"happyinvest/internal/metrics"
	"happyinvest/internal/models"
	"happyinvest/internal/repositories"

	"github.com/google/uuid"
	"github.com/pkg/errors"
	log "github.com/sirupsen/logrus"
)

// MutateFunc edits u in place. Returning an error aborts the write.
type MutateFunc func(u *models.User) error

// Service defines balance record access
type Service interface {
	Get(ctx context.Context, userID string) (*models.User, error)
	Apply(ctx context.Context, userID string, mutate MutateFunc) (*models.User, error)
	ApplyActive(ctx context.Context, userID string, mutate MutateFunc) (*models.User, error)
	CheckActive(ctx context.Context, userID string) error
	Record(ctx context.Context, tx *models.Transaction)
}

// Invalidator drops cached projections of a user's record.
type Invalidator interface {
	InvalidateAccount(ctx context.Context, userID string) error
}

type Config struct {
	StoreTimeout time.Duration
	MaxRetries   int
	Now          func() time.Time
}

type service struct {
	users        repositories.UserRepository
	bans         repositories.BanRepository
	transactions repositories.TransactionRepository
	cache        Invalidator
	config       Config
	metrics      metrics.Collector
}

// NewService creates a new balance service. cache and collector may be nil.
func NewService(store *repositories.Store, cache Invalidator, config Config, collector metrics.Collector) Service {
	if store == nil || store.Users == nil || store.Bans == nil || store.Transactions == nil {
		panic("store is required")
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
		users:        store.Users,
		bans:         store.Bans,
		transactions: store.Transactions,
		cache:        cache,
		config:       config,
		metrics:      collector,
	}
}

func (s *service) Get(ctx context.Context, userID string) (*models.User, error) {
	ctx, cancel := context.WithTimeout(ctx, s.config.StoreTimeout)
	defer cancel()

	u, err := s.users.GetByID(ctx, userID)
	if err != nil {
		if errors.Is(err, repositories.ErrNotFound) {
			return nil, ErrUserNotFound
		}
		return nil, apperrors.Unavailable("get user", err)
	}
	return u, nil
}

func (s *service) Apply(ctx context.Context, userID string, mutate MutateFunc) (*models.User, error) {
	start := time.Now()
	defer func() {
		s.metrics.RecordOperationDuration("balance_apply", time.Since(start))
	}()

	for attempt := 1; attempt <= s.config.MaxRetries; attempt++ {
		u, err := s.Get(ctx, userID)
		if err != nil {
			return nil, err
		}

		expected := u.Version
		if err := mutate(u); err != nil {
			return nil, err
		}
		if u.SpendableBalance.IsNegative() || u.LockedBalance.IsNegative() || u.WithdrawnTotal.IsNegative() {
			return nil, ErrInsufficientBalance
		}

		err = s.swap(ctx, u, expected)
		if err == nil {
			s.invalidate(ctx, userID)
			return u, nil
		}
		if !errors.Is(err, repositories.ErrVersionConflict) {
			s.metrics.RecordError("balance_apply", apperrors.CodeStoreUnavailable)
			return nil, apperrors.Unavailable("update user", err)
		}
		log.WithFields(log.Fields{
			"user_id": userID,
			"attempt": attempt,
		}).Debug("balance version conflict, retrying")
	}

	s.metrics.RecordError("balance_apply", apperrors.CodeVersionConflict)
	return nil, apperrors.Unavailable("update user", repositories.ErrVersionConflict)
}

func (s *service) swap(ctx context.Context, u *models.User, expected int64) error {
	ctx, cancel := context.WithTimeout(ctx, s.config.StoreTimeout)
	defer cancel()
	return s.users.CompareAndSwap(ctx, u, expected)
}

func (s *service) ApplyActive(ctx context.Context, userID string, mutate MutateFunc) (*models.User, error) {
	if err := s.CheckActive(ctx, userID); err != nil {
		return nil, err
	}
	return s.Apply(ctx, userID, func(u *models.User) error {
		if u.IsBanned(s.config.Now()) {
			return ErrUserBanned
		}
		return mutate(u)
	})
}

// CheckActive consults the ban record, which wins over the mirrored user status.
func (s *service) CheckActive(ctx context.Context, userID string) error {
	ctx, cancel := context.WithTimeout(ctx, s.config.StoreTimeout)
	defer cancel()

	ban, err := s.bans.Get(ctx, userID)
	if err != nil {
		if errors.Is(err, repositories.ErrNotFound) {
			return nil
		}
		return apperrors.Unavailable("get ban", err)
	}
	if ban.ActiveAt(s.config.Now()) {
		return ErrUserBanned
	}
	return nil
}

// Record appends an audit entry. The balance change it describes has already
// happened, so a failure is logged and not returned.
func (s *service) Record(ctx context.Context, tx *models.Transaction) {
	if tx.ID == "" {
		tx.ID = uuid.NewString()
	}
	if tx.CreatedAt.IsZero() {
		tx.CreatedAt = s.config.Now()
	}

	ctx, cancel := context.WithTimeout(ctx, s.config.StoreTimeout)
	defer cancel()
	if err := s.transactions.Create(ctx, tx); err != nil {
		s.metrics.RecordError("audit_record", apperrors.CodeStoreUnavailable)
		log.WithError(err).WithFields(log.Fields{
			"user_id":   tx.UserID,
			"kind":      tx.Kind,
			"amount":    tx.Amount.String(),
			"reference": tx.Reference,
		}).Error("failed to record audit transaction")
	}
}

func (s *service) invalidate(ctx context.Context, userID string) {
	if s.cache == nil {
		return
	}
	if err := s.cache.InvalidateAccount(ctx, userID); err != nil {
		log.WithError(err).WithField("user_id", userID).Warn("failed to invalidate account cache")
	}
}
