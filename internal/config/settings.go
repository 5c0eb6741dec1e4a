package config

import (
	"time"

	"github.com/shopspring/decimal"
	log "github.com/sirupsen/logrus"
)

// Settings holds the tunable rules of the ledger engine.
type Settings struct {
	PayoutPeriod       time.Duration
	CheckCooldown      time.Duration
	DriftTolerance     time.Duration
	DriftPenalty       time.Duration
	BanThreshold       int
	MinWithdrawal      decimal.Decimal
	MinRecharge        decimal.Decimal
	ReferralBonus      decimal.Decimal
	CheckInReward      decimal.Decimal
	CheckInStreakBonus decimal.Decimal
	CheckInStreakDays  int
	StoreTimeout       time.Duration
	MaxRetries         int
	SweepSchedule      string
	SweepTimezone      string
	SweepWorkers       int
	SweepTimeout       time.Duration
	PlansFile          string
}

// DefaultSettings returns the rules the program launched with.
func DefaultSettings() Settings {
	return Settings{
		PayoutPeriod:       24 * time.Hour,
		CheckCooldown:      time.Hour,
		DriftTolerance:     2 * time.Minute,
		DriftPenalty:       time.Hour,
		BanThreshold:       3,
		MinWithdrawal:      decimal.NewFromInt(100),
		MinRecharge:        decimal.NewFromInt(100),
		ReferralBonus:      decimal.NewFromInt(100),
		CheckInReward:      decimal.NewFromInt(50),
		CheckInStreakBonus: decimal.NewFromInt(500),
		CheckInStreakDays:  7,
		StoreTimeout:       5 * time.Second,
		MaxRetries:         5,
		SweepSchedule:      "0 0 0 * * *",
		SweepTimezone:      "Asia/Kolkata",
		SweepWorkers:       8,
		SweepTimeout:       30 * time.Minute,
		PlansFile:          "plans.yaml",
	}
}

// LoadSettings overlays environment values on DefaultSettings.
func LoadSettings() Settings {
	d := DefaultSettings()
	s := Settings{
		PayoutPeriod:       GetDurationEnv("PAYOUT_PERIOD", d.PayoutPeriod),
		CheckCooldown:      GetDurationEnv("PAYOUT_CHECK_COOLDOWN", d.CheckCooldown),
		DriftTolerance:     GetDurationEnv("CLOCK_DRIFT_TOLERANCE", d.DriftTolerance),
		DriftPenalty:       GetDurationEnv("CLOCK_DRIFT_PENALTY", d.DriftPenalty),
		BanThreshold:       GetIntEnv("CHEAT_BAN_THRESHOLD", d.BanThreshold),
		MinWithdrawal:      GetDecimalEnv("MIN_WITHDRAWAL", d.MinWithdrawal),
		MinRecharge:        GetDecimalEnv("MIN_RECHARGE", d.MinRecharge),
		ReferralBonus:      GetDecimalEnv("REFERRAL_BONUS", d.ReferralBonus),
		CheckInReward:      GetDecimalEnv("CHECKIN_REWARD", d.CheckInReward),
		CheckInStreakBonus: GetDecimalEnv("CHECKIN_STREAK_REWARD", d.CheckInStreakBonus),
		CheckInStreakDays:  GetIntEnv("CHECKIN_STREAK_DAYS", d.CheckInStreakDays),
		StoreTimeout:       GetDurationEnv("STORE_TIMEOUT", d.StoreTimeout),
		MaxRetries:         GetIntEnv("STORE_MAX_RETRIES", d.MaxRetries),
		SweepSchedule:      GetEnv("SWEEP_SCHEDULE", d.SweepSchedule),
		SweepTimezone:      GetEnv("SWEEP_TIMEZONE", d.SweepTimezone),
		SweepWorkers:       GetIntEnv("SWEEP_WORKERS", d.SweepWorkers),
		SweepTimeout:       GetDurationEnv("SWEEP_TIMEOUT", d.SweepTimeout),
		PlansFile:          GetEnv("PLANS_FILE", d.PlansFile),
	}

	if s.BanThreshold < 1 {
		log.WithField("value", s.BanThreshold).Warn("CHEAT_BAN_THRESHOLD must be positive, using default")
		s.BanThreshold = d.BanThreshold
	}
	if s.MaxRetries < 1 {
		s.MaxRetries = d.MaxRetries
	}
	if s.SweepWorkers < 1 {
		s.SweepWorkers = 1
	}
	return s
}

// Location resolves SweepTimezone, falling back to UTC.
func (s Settings) Location() *time.Location {
	loc, err := time.LoadLocation(s.SweepTimezone)
	if err != nil {
		log.WithError(err).WithField("timezone", s.SweepTimezone).Warn("load location failed, using UTC")
		return time.UTC
	}
	return loc
}
