package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// Audit transaction kinds
const (
	TransactionKindInvestment         = "investment"
	TransactionKindDailyIncome        = "daily_income"
	TransactionKindReferralCommission = "referral_commission"
	TransactionKindWithdrawalRequest  = "withdrawal_request"
	TransactionKindWithdrawalRefund   = "withdrawal_refund"
	TransactionKindRecharge           = "recharge"
	TransactionKindCheckIn            = "checkin"
)

// Balance pools a transaction can touch
const (
	PoolSpendable = "spendable"
	PoolLocked    = "locked"
)

// Transaction is an append-only audit entry. It is never read back to derive balances.
type Transaction struct {
	ID          string          `gorm:"primaryKey;size:64"`
	UserID      string          `gorm:"index:idx_tx_user_created;not null;size:64"`
	Kind        string          `gorm:"index;not null;size:32"`
	Amount      decimal.Decimal `gorm:"type:numeric(20,2);not null"`
	Pool        string          `gorm:"size:16"`
	Reference   string          `gorm:"index;size:64"` // investment, withdrawal or recharge id
	Description string
	Metadata    Metadata  `gorm:"type:jsonb"`
	CreatedAt   time.Time `gorm:"index:idx_tx_user_created"`
}

// IsIncome reports whether the kind counts toward income statistics.
func (t *Transaction) IsIncome() bool {
	switch t.Kind {
	case TransactionKindDailyIncome, TransactionKindReferralCommission, TransactionKindCheckIn:
		return true
	}
	return false
}
