// Package checkin pays the daily check-in reward and tracks streaks.
package checkin

import (
	"context"
	"fmt"
	"time"

	apperrors "happyinvest/internal/errors"
	"happyinvest/internal/models"
	"happyinvest/internal/services/balance"

	"github.com/shopspring/decimal"
	log "github.com/sirupsen/logrus"
)

var ErrAlreadyCheckedIn = apperrors.New(apperrors.CodeAlreadyProcessed, "already checked in today")

// Result is returned by a successful check-in.
type Result struct {
	Reward     decimal.Decimal `json:"reward"`
	Streak     int             `json:"streak"`
	NewBalance decimal.Decimal `json:"newBalance"`
}

type Service interface {
	CheckIn(ctx context.Context, userID string) (*Result, error)
}

type Config struct {
	Reward      decimal.Decimal
	StreakBonus decimal.Decimal
	StreakDays  int
	Location    *time.Location
	Now         func() time.Time
}

type service struct {
	balances balance.Service
	config   Config
}

func NewService(balances balance.Service, config Config) Service {
	if balances == nil {
		panic("balance service is required")
	}
	if config.Reward.IsZero() {
		config.Reward = decimal.NewFromInt(50)
	}
	if config.StreakBonus.IsZero() {
		config.StreakBonus = decimal.NewFromInt(500)
	}
	if config.StreakDays <= 0 {
		config.StreakDays = 7
	}
	if config.Location == nil {
		config.Location = time.UTC
	}
	if config.Now == nil {
		config.Now = time.Now
	}
	return &service{balances: balances, config: config}
}

func (s *service) CheckIn(ctx context.Context, userID string) (*Result, error) {
	local := s.config.Now().In(s.config.Location)
	today := local.Format("2006-01-02")
	yesterday := local.AddDate(0, 0, -1).Format("2006-01-02")

	var reward decimal.Decimal
	var streak int
	u, err := s.balances.ApplyActive(ctx, userID, func(u *models.User) error {
		if u.LastCheckInDate == today {
			return ErrAlreadyCheckedIn
		}
		streak = 1
		if u.LastCheckInDate == yesterday {
			streak = u.CheckInStreak + 1
		}
		reward = s.config.Reward
		if streak%s.config.StreakDays == 0 {
			reward = s.config.StreakBonus
		}

		u.CheckInStreak = streak
		u.LastCheckInDate = today
		u.SpendableBalance = u.SpendableBalance.Add(reward)
		u.LifetimeEarnings = u.LifetimeEarnings.Add(reward)
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.balances.Record(ctx, &models.Transaction{
		UserID:      userID,
		Kind:        models.TransactionKindCheckIn,
		Amount:      reward,
		Pool:        models.PoolSpendable,
		Description: fmt.Sprintf("Daily check-in, day %d", streak),
		Metadata:    models.Metadata{"streak": streak},
	})
	log.WithFields(log.Fields{
		"user_id": userID,
		"streak":  streak,
		"amount":  reward.String(),
	}).Debug("checked in")

	return &Result{Reward: reward, Streak: streak, NewBalance: u.SpendableBalance}, nil
}
