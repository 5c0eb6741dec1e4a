package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// Withdrawal statuses
const (
	WithdrawalStatusPending   = "pending"
	WithdrawalStatusCompleted = "completed"
	WithdrawalStatusRejected  = "rejected"
)

// Withdrawal is a payout request. Amount is frozen at creation; once resolved
// the record is terminal.
type Withdrawal struct {
	ID          string          `gorm:"primaryKey;size:64"`
	UserID      string          `gorm:"index;not null;size:64"`
	UserName    string
	Amount      decimal.Decimal `gorm:"type:numeric(20,2);not null"`
	BankDetails BankDetails     `gorm:"type:jsonb"`
	Status      string          `gorm:"index;not null;default:'pending'"`
	RequestDate string          `gorm:"size:10;index"`

	TransactionRef string
	UTR            string
	ProcessedBy    string
	ProcessedAt    *time.Time

	Version   int64 `gorm:"not null;default:0"`
	CreatedAt time.Time
	UpdatedAt time.Time
}

// IsTerminal reports whether the withdrawal has been resolved.
func (w *Withdrawal) IsTerminal() bool {
	return w.Status == WithdrawalStatusCompleted || w.Status == WithdrawalStatusRejected
}

// Clone returns a deep copy.
func (w *Withdrawal) Clone() *Withdrawal {
	c := *w
	c.ProcessedAt = cloneTime(w.ProcessedAt)
	return &c
}
