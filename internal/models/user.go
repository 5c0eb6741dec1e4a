package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// User statuses
const (
	UserStatusActive = "active"
	UserStatusBanned = "banned"
)

// User is the per-user balance record. Every read-modify-write goes through a
// compare-and-swap on Version.
type User struct {
	ID           string `gorm:"primaryKey;size:64"`
	Name         string
	Phone        string `gorm:"index"`
	ReferralCode string `gorm:"uniqueIndex;size:16"`
	ReferredBy   string `gorm:"index;size:16"`

	SpendableBalance decimal.Decimal `gorm:"type:numeric(20,2);not null;default:0"`
	LockedBalance    decimal.Decimal `gorm:"type:numeric(20,2);not null;default:0"`
	WithdrawnTotal   decimal.Decimal `gorm:"type:numeric(20,2);not null;default:0"`
	LifetimeEarnings decimal.Decimal `gorm:"type:numeric(20,2);not null;default:0"`
	CommissionEarned decimal.Decimal `gorm:"type:numeric(20,2);not null;default:0"`
	RechargeTotal    decimal.Decimal `gorm:"type:numeric(20,2);not null;default:0"`
	TotalInvested    decimal.Decimal `gorm:"type:numeric(20,2);not null;default:0"`
	HasInvested      bool            `gorm:"not null;default:false"`

	Status              string `gorm:"not null;default:'active'"`
	BannedUntil         *time.Time
	CheatViolationCount int `gorm:"not null;default:0"`
	PenaltyUntil        *time.Time
	NextCheckAllowedAt  *time.Time

	LastWithdrawalDate string      `gorm:"size:10"` // YYYY-MM-DD in the ledger timezone
	BankDetails        BankDetails `gorm:"type:jsonb"`

	LastCheckInDate string `gorm:"size:10"`
	CheckInStreak   int    `gorm:"not null;default:0"`

	Version   int64 `gorm:"not null;default:0"`
	CreatedAt time.Time
	UpdatedAt time.Time
}

// IsBanned reports whether the ban mirrored on the record is in force at now.
func (u *User) IsBanned(now time.Time) bool {
	if u.Status != UserStatusBanned {
		return false
	}
	return u.BannedUntil == nil || now.Before(*u.BannedUntil)
}

// Total is spendable + locked + withdrawn, the quantity the conservation rule tracks.
func (u *User) Total() decimal.Decimal {
	return u.SpendableBalance.Add(u.LockedBalance).Add(u.WithdrawnTotal)
}

// Clone returns a deep copy so callers can mutate without aliasing the original.
func (u *User) Clone() *User {
	c := *u
	c.BannedUntil = cloneTime(u.BannedUntil)
	c.PenaltyUntil = cloneTime(u.PenaltyUntil)
	c.NextCheckAllowedAt = cloneTime(u.NextCheckAllowedAt)
	return &c
}

func cloneTime(t *time.Time) *time.Time {
	if t == nil {
		return nil
	}
	v := *t
	return &v
}
