package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// Investment statuses
const (
	InvestmentStatusActive    = "active"
	InvestmentStatusCompleted = "completed"
)

// Investment is one purchased plan instance. Records are never deleted.
type Investment struct {
	ID     string       `gorm:"primaryKey;size:64"`
	UserID string       `gorm:"index;not null;size:64"`
	Plan   PlanSnapshot `gorm:"embedded;embeddedPrefix:plan_"`

	Status        string          `gorm:"index;not null;default:'active'"`
	DaysRemaining int             `gorm:"not null"`
	TotalEarned   decimal.Decimal `gorm:"type:numeric(20,2);not null;default:0"`
	PayoutCount   int             `gorm:"not null;default:0"`
	LastPayoutAt  time.Time       `gorm:"not null"`
	NextPayoutDue time.Time       `gorm:"index;not null"`
	PurchasedAt   time.Time       `gorm:"not null"`
	CompletedAt   *time.Time
	Version       int64 `gorm:"not null;default:0"`
	CreatedAt     time.Time
	UpdatedAt     time.Time
}

// IsActive reports whether the record can still be paid.
func (i *Investment) IsActive() bool {
	return i.Status == InvestmentStatusActive && i.DaysRemaining > 0
}

// Clone returns a deep copy.
func (i *Investment) Clone() *Investment {
	c := *i
	c.CompletedAt = cloneTime(i.CompletedAt)
	return &c
}
