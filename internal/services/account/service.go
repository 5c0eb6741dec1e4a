// Package account serves read models: the cached account summary, the audit
// log, income statistics and check-in status. Operators also page through
// every account here.
package account

import (
	"context"
	"time"

	apperrors "happyinvest/internal/errors"
	"happyinvest/internal/metrics"
	"happyinvest/internal/models"
	"happyinvest/internal/repositories"
	"happyinvest/internal/services/balance"

	"github.com/shopspring/decimal"
	log "github.com/sirupsen/logrus"
)

const statsPageSize = 500

var incomeKinds = []string{
	models.TransactionKindDailyIncome,
	models.TransactionKindReferralCommission,
	models.TransactionKindCheckIn,
}

// Cache stores account summaries.
type Cache interface {
	GetAccount(ctx context.Context, userID string, dest interface{}) (bool, error)
	CacheAccount(ctx context.Context, userID string, summary interface{}) error
	InvalidateAccount(ctx context.Context, userID string) error
	HealthCheck(ctx context.Context) error
}

type Service interface {
	Summary(ctx context.Context, userID string) (*Summary, error)
	Transactions(ctx context.Context, userID string, kinds []string, limit, offset int) ([]*models.Transaction, int64, error)
	IncomeStats(ctx context.Context, userID string) (*IncomeStats, error)
	CheckInStatus(ctx context.Context, userID string) (*CheckInStatus, error)
	// Users pages every account for operators, newest first.
	Users(ctx context.Context, limit, offset int) ([]*Summary, int64, error)
	Health(ctx context.Context) Health
}

type Config struct {
	Location     *time.Location
	StoreTimeout time.Duration
	Now          func() time.Time
}

type service struct {
	store    *repositories.Store
	balances balance.Service
	cache    Cache
	config   Config
	metrics  metrics.Collector
}

// NewService creates the read model service. cache may be nil.
func NewService(store *repositories.Store, balances balance.Service, cache Cache, config Config, collector metrics.Collector) Service {
	if store == nil || store.Transactions == nil || store.Users == nil {
		panic("store is required")
	}
	if balances == nil {
		panic("balance service is required")
	}
	if config.Location == nil {
		config.Location = time.UTC
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
		store:    store,
		balances: balances,
		cache:    cache,
		config:   config,
		metrics:  collector,
	}
}

func (s *service) Summary(ctx context.Context, userID string) (*Summary, error) {
	if s.cache != nil {
		var cached Summary
		found, err := s.cache.GetAccount(ctx, userID, &cached)
		if err != nil {
			log.WithError(err).WithField("user_id", userID).Warn("account cache read failed")
		}
		if found {
			s.metrics.RecordCacheHit("account")
			return &cached, nil
		}
		s.metrics.RecordCacheMiss("account")
	}

	u, err := s.balances.Get(ctx, userID)
	if err != nil {
		return nil, err
	}
	summary := summarize(u)

	if s.cache != nil {
		if err := s.cache.CacheAccount(ctx, userID, summary); err != nil {
			log.WithError(err).WithField("user_id", userID).Warn("account cache write failed")
		} else {
			s.evictIfStale(ctx, summary)
		}
	}
	return summary, nil
}

// evictIfStale drops the entry just written when a balance write landed
// between our read and the cache write. A write that lands after this check
// invalidates the entry itself.
func (s *service) evictIfStale(ctx context.Context, summary *Summary) {
	current, err := s.balances.Get(ctx, summary.UserID)
	if err == nil && current.Version == summary.Version {
		return
	}
	if err := s.cache.InvalidateAccount(ctx, summary.UserID); err != nil {
		log.WithError(err).WithField("user_id", summary.UserID).Warn("failed to evict stale account summary")
		return
	}
	s.metrics.RecordOperationResult("account_summary", "stale_evicted")
}

func summarize(u *models.User) *Summary {
	return &Summary{
		UserID:              u.ID,
		Name:                u.Name,
		ReferralCode:        u.ReferralCode,
		Status:              u.Status,
		SpendableBalance:    u.SpendableBalance,
		LockedBalance:       u.LockedBalance,
		WithdrawnTotal:      u.WithdrawnTotal,
		LifetimeEarnings:    u.LifetimeEarnings,
		CommissionEarned:    u.CommissionEarned,
		RechargeTotal:       u.RechargeTotal,
		TotalInvested:       u.TotalInvested,
		CheatViolationCount: u.CheatViolationCount,
		PenaltyUntil:        u.PenaltyUntil,
		NextCheckAllowedAt:  u.NextCheckAllowedAt,
		LastWithdrawalDate:  u.LastWithdrawalDate,
		LastCheckInDate:     u.LastCheckInDate,
		CheckInStreak:       u.CheckInStreak,
		BankDetailsSaved:    u.BankDetails.Present(),
		JoinedAt:            u.CreatedAt,
		Version:             u.Version,
	}
}

func (s *service) Transactions(ctx context.Context, userID string, kinds []string, limit, offset int) ([]*models.Transaction, int64, error) {
	ctx, cancel := context.WithTimeout(ctx, s.config.StoreTimeout)
	defer cancel()
	txs, total, err := s.store.Transactions.ListByUser(ctx, userID, kinds, limit, offset)
	if err != nil {
		return nil, 0, apperrors.Unavailable("list transactions", err)
	}
	return txs, total, nil
}

func (s *service) IncomeStats(ctx context.Context, userID string) (*IncomeStats, error) {
	today := s.config.Now().In(s.config.Location).Format("2006-01-02")
	stats := &IncomeStats{
		Today:  decimal.Zero,
		Total:  decimal.Zero,
		ByKind: make(map[string]decimal.Decimal, len(incomeKinds)),
	}
	for _, k := range incomeKinds {
		stats.ByKind[k] = decimal.Zero
	}

	for offset := 0; ; offset += statsPageSize {
		txs, total, err := s.Transactions(ctx, userID, incomeKinds, statsPageSize, offset)
		if err != nil {
			return nil, err
		}
		for _, tx := range txs {
			if !tx.IsIncome() {
				continue
			}
			stats.Total = stats.Total.Add(tx.Amount)
			stats.ByKind[tx.Kind] = stats.ByKind[tx.Kind].Add(tx.Amount)
			if tx.CreatedAt.In(s.config.Location).Format("2006-01-02") == today {
				stats.Today = stats.Today.Add(tx.Amount)
			}
		}
		if int64(offset+len(txs)) >= total || len(txs) == 0 {
			break
		}
	}
	return stats, nil
}

func (s *service) CheckInStatus(ctx context.Context, userID string) (*CheckInStatus, error) {
	u, err := s.balances.Get(ctx, userID)
	if err != nil {
		return nil, err
	}

	local := s.config.Now().In(s.config.Location)
	today := local.Format("2006-01-02")
	yesterday := local.AddDate(0, 0, -1).Format("2006-01-02")

	status := &CheckInStatus{
		CheckedInToday:  u.LastCheckInDate == today,
		LastCheckInDate: u.LastCheckInDate,
	}
	if u.LastCheckInDate == today || u.LastCheckInDate == yesterday {
		status.Streak = u.CheckInStreak
	}
	return status, nil
}

func (s *service) Users(ctx context.Context, limit, offset int) ([]*Summary, int64, error) {
	ctx, cancel := context.WithTimeout(ctx, s.config.StoreTimeout)
	defer cancel()
	users, total, err := s.store.Users.List(ctx, limit, offset)
	if err != nil {
		return nil, 0, apperrors.Unavailable("list users", err)
	}

	out := make([]*Summary, 0, len(users))
	for _, u := range users {
		out = append(out, summarize(u))
	}
	return out, total, nil
}

func (s *service) Health(ctx context.Context) Health {
	h := Health{Store: "ok", Cache: "disabled"}

	ctx, cancel := context.WithTimeout(ctx, s.config.StoreTimeout)
	defer cancel()
	if s.store.Ping != nil {
		if err := s.store.Ping(ctx); err != nil {
			h.Store = err.Error()
		}
	}
	if s.cache != nil {
		h.Cache = "ok"
		if err := s.cache.HealthCheck(ctx); err != nil {
			h.Cache = err.Error()
		}
	}
	return h
}
