package models

import "time"

// Ban sources
const (
	BanSourceAntiCheat = "anticheat"
	BanSourceOperator  = "operator"
)

// Ban is the authoritative record that a user may not mutate balances.
// ExpiresAt == nil means permanent.
type Ban struct {
	UserID    string `gorm:"primaryKey;size:64"`
	Reason    string `gorm:"not null"`
	Source    string `gorm:"size:16"`
	BannedAt  time.Time
	ExpiresAt *time.Time
}

// ActiveAt reports whether the ban is in force at now.
func (b *Ban) ActiveAt(now time.Time) bool {
	return b.ExpiresAt == nil || now.Before(*b.ExpiresAt)
}

// CheatViolation is an append-only log of a clock drift detection.
type CheatViolation struct {
	ID           string    `gorm:"primaryKey;size:64"`
	UserID       string    `gorm:"index;not null;size:64"`
	ServerTime   time.Time `gorm:"not null"`
	ClientTime   time.Time `gorm:"not null"`
	DriftSeconds int64     `gorm:"not null"`
	CountAfter   int       `gorm:"not null"`
	CreatedAt    time.Time
}
