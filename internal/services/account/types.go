package account

import (
	"time"

	"github.com/shopspring/decimal"
)

// Summary is the cached projection of a user's balance record.
type Summary struct {
	UserID              string          `json:"userId"`
	Name                string          `json:"name"`
	ReferralCode        string          `json:"referralCode"`
	Status              string          `json:"status"`
	SpendableBalance    decimal.Decimal `json:"spendableBalance"`
	LockedBalance       decimal.Decimal `json:"lockedBalance"`
	WithdrawnTotal      decimal.Decimal `json:"withdrawnTotal"`
	LifetimeEarnings    decimal.Decimal `json:"lifetimeEarnings"`
	CommissionEarned    decimal.Decimal `json:"commissionEarned"`
	RechargeTotal       decimal.Decimal `json:"rechargeTotal"`
	TotalInvested       decimal.Decimal `json:"totalInvested"`
	CheatViolationCount int             `json:"cheatViolationCount"`
	PenaltyUntil        *time.Time      `json:"penaltyUntil,omitempty"`
	NextCheckAllowedAt  *time.Time      `json:"nextCheckAllowedAt,omitempty"`
	LastWithdrawalDate  string          `json:"lastWithdrawalDate,omitempty"`
	LastCheckInDate     string          `json:"lastCheckInDate,omitempty"`
	CheckInStreak       int             `json:"checkInStreak"`
	BankDetailsSaved    bool            `json:"bankDetailsSaved"`
	JoinedAt            time.Time       `json:"joinedAt"`
	Version             int64           `json:"version"`
}

// CheckInStatus tells the client whether today's reward was already taken.
// Streak is zero once a day has been missed.
type CheckInStatus struct {
	CheckedInToday  bool   `json:"checkedInToday"`
	Streak          int    `json:"streak"`
	LastCheckInDate string `json:"lastCheckInDate,omitempty"`
}

// IncomeStats sums income transactions.
type IncomeStats struct {
	Today  decimal.Decimal            `json:"today"`
	Total  decimal.Decimal            `json:"total"`
	ByKind map[string]decimal.Decimal `json:"byKind"`
}

// Health reports collaborator reachability.
type Health struct {
	Store string `json:"store"`
	Cache string `json:"cache"`
}

// Healthy reports whether every required collaborator answered.
func (h Health) Healthy() bool {
	return h.Store == "ok"
}
