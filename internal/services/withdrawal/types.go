package withdrawal

import (
	"time"

	"happyinvest/internal/models"

	"github.com/shopspring/decimal"
)

// RequestResult is returned by a successful withdrawal request.
type RequestResult struct {
	WithdrawalID string             `json:"withdrawalId"`
	Withdrawal   *models.Withdrawal `json:"withdrawal"`
	NewBalance   decimal.Decimal    `json:"newBalance"`
}

// Resolution is an operator decision on a pending withdrawal.
type Resolution struct {
	Decision       string
	TransactionRef string
	UTR            string
	OperatorID     string
}

type Config struct {
	MinAmount    decimal.Decimal
	Location     *time.Location
	StoreTimeout time.Duration
	MaxRetries   int
	Now          func() time.Time
}
