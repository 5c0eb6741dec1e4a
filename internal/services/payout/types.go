package payout

import (
	"time"

	"github.com/shopspring/decimal"
)

// Check outcomes
const (
	CheckStatusCredited = "credited"
	CheckStatusWait     = "wait"
	CheckStatusDrift    = "drift"
	CheckStatusBanned   = "banned"
)

// CheckResult is the outcome of an on-demand payout check. Code is empty
// when income was reconciled and carries the refusal code otherwise.
type CheckResult struct {
	Status             string          `json:"status"`
	Code               string          `json:"code,omitempty"`
	Message            string          `json:"message"`
	IncomeAdded        decimal.Decimal `json:"incomeAdded"`
	RegularIncome      decimal.Decimal `json:"regularIncome"`
	LockedIncome       decimal.Decimal `json:"lockedIncome"`
	PeriodsCredited    int             `json:"periodsCredited"`
	NextCheckAllowedAt *time.Time      `json:"nextCheckAllowedAt,omitempty"`
	WaitMinutes        int             `json:"waitMinutes,omitempty"`
	DriftSeconds       int64           `json:"driftSeconds,omitempty"`
	ViolationCount     int             `json:"violationCount,omitempty"`
}

// Credit describes the periods credited for one investment in one reconcile.
type Credit struct {
	UserID       string
	InvestmentID string
	Periods      int
	Amount       decimal.Decimal
	Pool         string
	Completed    bool
}

// SweepResult summarises one scheduled sweep.
type SweepResult struct {
	TotalDistributed decimal.Decimal `json:"totalDistributed"`
	UsersPaid        int             `json:"usersPaid"`
	InvestmentsPaid  int             `json:"investmentsPaid"`
	PeriodsCredited  int             `json:"periodsCredited"`
	Skipped          int             `json:"skipped"`
	Failures         int             `json:"failures"`
	StartedAt        time.Time       `json:"startedAt"`
	Duration         time.Duration   `json:"duration"`
}

type Config struct {
	Period       time.Duration
	Cooldown     time.Duration
	StoreTimeout time.Duration
	MaxRetries   int
	Workers      int
	PageSize     int
	Now          func() time.Time
}
