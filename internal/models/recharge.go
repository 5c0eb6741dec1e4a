package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// Recharge statuses
const (
	RechargeStatusPending  = "pending"
	RechargeStatusApproved = "approved"
	RechargeStatusRejected = "rejected"
)

// Recharge is a deposit request confirmed by an operator against an external reference.
type Recharge struct {
	ID            string          `gorm:"primaryKey;size:64"`
	UserID        string          `gorm:"index;not null;size:64"`
	Amount        decimal.Decimal `gorm:"type:numeric(20,2);not null"`
	PaymentMethod string          `gorm:"default:'manual'"`
	Reference     string
	Status        string `gorm:"index;not null;default:'pending'"`
	ApprovedBy    string
	ResolvedAt    *time.Time
	Version       int64 `gorm:"not null;default:0"`
	CreatedAt     time.Time
	UpdatedAt     time.Time
}

// Clone returns a deep copy.
func (r *Recharge) Clone() *Recharge {
	c := *r
	c.ResolvedAt = cloneTime(r.ResolvedAt)
	return &c
}
