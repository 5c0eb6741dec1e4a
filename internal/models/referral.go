package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// Referral commission states
const (
	CommissionStatusNone   = "none"
	CommissionStatusPaying = "paying"
	CommissionStatusPaid   = "paid"
)

// ReferralEdge links a referrer to one referred user. CommissionStatus moves
// none -> paying -> paid at most once per edge.
type ReferralEdge struct {
	ReferredID        string          `gorm:"primaryKey;size:64"`
	ReferrerID        string          `gorm:"index;not null;size:64"`
	HasInvested       bool            `gorm:"not null;default:false"`
	TotalInvested     decimal.Decimal `gorm:"type:numeric(20,2);not null;default:0"`
	CommissionEarned  decimal.Decimal `gorm:"type:numeric(20,2);not null;default:0"`
	CommissionStatus  string          `gorm:"not null;default:'none'"`
	FirstInvestmentID string          `gorm:"size:64"`
	PaidAt            *time.Time
	Version           int64 `gorm:"not null;default:0"`
	CreatedAt         time.Time
	UpdatedAt         time.Time
}

// Clone returns a deep copy.
func (e *ReferralEdge) Clone() *ReferralEdge {
	c := *e
	c.PaidAt = cloneTime(e.PaidAt)
	return &c
}
