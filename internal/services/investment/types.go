package investment

import (
	"context"
	"time"

	"happyinvest/internal/models"

	"github.com/shopspring/decimal"
)

// PurchaseResult is returned by a successful purchase.
type PurchaseResult struct {
	InvestmentID string             `json:"investmentId"`
	Investment   *models.Investment `json:"investment"`
	NewBalance   decimal.Decimal    `json:"newBalance"`
	FirstOfUser  bool               `json:"firstInvestment"`
}

// Cascader is notified after every purchase lands. It settles the commission
// for the user's first investment and is a no-op once that is paid.
type Cascader interface {
	OnFirstInvestment(ctx context.Context, referredID string, inv *models.Investment) error
}

type Config struct {
	PayoutPeriod time.Duration
	StoreTimeout time.Duration
	Now          func() time.Time
}
