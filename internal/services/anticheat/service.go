// Package anticheat detects client clock manipulation on the on-demand payout
// path and escalates repeat offenders to a ban. It also owns the operator
// ban and unban actions, since both write the same ban record.
package anticheat

import (
	"context"
	"fmt"
	"time"

	apperrors "happyinvest/internal/errors"
	"happyinvest/internal/metrics"
	"happyinvest/internal/models"
	"happyinvest/internal/repositories"
	"happyinvest/internal/services/balance"

	"github.com/google/uuid"
	log "github.com/sirupsen/logrus"
)

// Verdict is the outcome of comparing a client clock with the server clock.
type Verdict struct {
	Drift          time.Duration
	Violation      bool
	ViolationCount int
	PenaltyUntil   *time.Time
	Banned         bool
}

// Service defines the anti-cheat guard
type Service interface {
	// Inspect compares clientTime with serverTime. A drift beyond tolerance is
	// recorded and penalised; reaching the threshold bans the user.
	Inspect(ctx context.Context, userID string, serverTime, clientTime time.Time) (*Verdict, error)
	Ban(ctx context.Context, userID, reason, source string, expiresAt *time.Time) error
	Unban(ctx context.Context, userID string) error
	Violations(ctx context.Context, userID string) ([]*models.CheatViolation, error)
}

type Config struct {
	DriftTolerance time.Duration
	Penalty        time.Duration
	BanThreshold   int
	StoreTimeout   time.Duration
	Now            func() time.Time
}

type service struct {
	bans       repositories.BanRepository
	violations repositories.ViolationRepository
	balances   balance.Service
	config     Config
	metrics    metrics.Collector
}

func NewService(store *repositories.Store, balances balance.Service, config Config, collector metrics.Collector) Service {
	if store == nil || store.Bans == nil || store.Violations == nil {
		panic("store is required")
	}
	if balances == nil {
		panic("balance service is required")
	}
	if config.DriftTolerance <= 0 {
		config.DriftTolerance = 2 * time.Minute
	}
	if config.Penalty <= 0 {
		config.Penalty = time.Hour
	}
	if config.BanThreshold <= 0 {
		config.BanThreshold = 3
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
		bans:       store.Bans,
		violations: store.Violations,
		balances:   balances,
		config:     config,
		metrics:    collector,
	}
}

func drift(a, b time.Time) time.Duration {
	d := a.Sub(b)
	if d < 0 {
		return -d
	}
	return d
}

func (s *service) Inspect(ctx context.Context, userID string, serverTime, clientTime time.Time) (*Verdict, error) {
	d := drift(serverTime, clientTime)
	if d <= s.config.DriftTolerance {
		return &Verdict{Drift: d}, nil
	}

	penaltyUntil := serverTime.Add(s.config.Penalty)
	u, err := s.balances.Apply(ctx, userID, func(u *models.User) error {
		u.CheatViolationCount++
		u.PenaltyUntil = &penaltyUntil
		return nil
	})
	if err != nil {
		return nil, err
	}
	s.metrics.RecordViolation()

	s.logViolation(ctx, &models.CheatViolation{
		ID:           uuid.NewString(),
		UserID:       userID,
		ServerTime:   serverTime,
		ClientTime:   clientTime,
		DriftSeconds: int64(d / time.Second),
		CountAfter:   u.CheatViolationCount,
		CreatedAt:    serverTime,
	})

	log.WithFields(log.Fields{
		"user_id":         userID,
		"drift_seconds":   int64(d / time.Second),
		"violation_count": u.CheatViolationCount,
	}).Warn("clock drift violation")

	verdict := &Verdict{
		Drift:          d,
		Violation:      true,
		ViolationCount: u.CheatViolationCount,
		PenaltyUntil:   &penaltyUntil,
	}
	if u.CheatViolationCount >= s.config.BanThreshold {
		reason := fmt.Sprintf("automatic: %d clock drift violations", u.CheatViolationCount)
		if err := s.Ban(ctx, userID, reason, models.BanSourceAntiCheat, nil); err != nil {
			return nil, err
		}
		verdict.Banned = true
	}
	return verdict, nil
}

func (s *service) logViolation(ctx context.Context, v *models.CheatViolation) {
	ctx, cancel := context.WithTimeout(ctx, s.config.StoreTimeout)
	defer cancel()
	if err := s.violations.Create(ctx, v); err != nil {
		log.WithError(err).WithField("user_id", v.UserID).Error("failed to log clock drift violation")
	}
}

// Ban writes the ban record, then mirrors it onto the user record.
func (s *service) Ban(ctx context.Context, userID, reason, source string, expiresAt *time.Time) error {
	if _, err := s.balances.Get(ctx, userID); err != nil {
		return err
	}

	now := s.config.Now()
	ban := &models.Ban{
		UserID:    userID,
		Reason:    reason,
		Source:    source,
		BannedAt:  now,
		ExpiresAt: expiresAt,
	}
	if err := s.putBan(ctx, ban); err != nil {
		return apperrors.Unavailable("put ban", err)
	}

	_, err := s.balances.Apply(ctx, userID, func(u *models.User) error {
		u.Status = models.UserStatusBanned
		u.BannedUntil = expiresAt
		return nil
	})
	if err != nil {
		// The ban record alone already blocks every mutation.
		log.WithError(err).WithField("user_id", userID).Error("failed to mirror ban onto user")
	}

	s.metrics.RecordBan(source)
	log.WithFields(log.Fields{
		"user_id": userID,
		"reason":  reason,
		"source":  source,
	}).Warn("user banned")
	return nil
}

func (s *service) putBan(ctx context.Context, ban *models.Ban) error {
	ctx, cancel := context.WithTimeout(ctx, s.config.StoreTimeout)
	defer cancel()
	return s.bans.Put(ctx, ban)
}

func (s *service) Unban(ctx context.Context, userID string) error {
	if _, err := s.balances.Get(ctx, userID); err != nil {
		return err
	}

	err := func() error {
		ctx, cancel := context.WithTimeout(ctx, s.config.StoreTimeout)
		defer cancel()
		return s.bans.Delete(ctx, userID)
	}()
	if err != nil {
		return apperrors.Unavailable("delete ban", err)
	}

	_, err = s.balances.Apply(ctx, userID, func(u *models.User) error {
		u.Status = models.UserStatusActive
		u.BannedUntil = nil
		u.PenaltyUntil = nil
		return nil
	})
	if err != nil {
		return err
	}

	log.WithField("user_id", userID).Info("user unbanned")
	return nil
}

func (s *service) Violations(ctx context.Context, userID string) ([]*models.CheatViolation, error) {
	ctx, cancel := context.WithTimeout(ctx, s.config.StoreTimeout)
	defer cancel()
	vs, err := s.violations.ListByUser(ctx, userID)
	if err != nil {
		return nil, apperrors.Unavailable("list violations", err)
	}
	return vs, nil
}
