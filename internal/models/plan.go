package models

import "github.com/shopspring/decimal"

// PlanCategory is the closed set of plan families. The category alone decides
// which balance pool a plan's daily income lands in.
type PlanCategory string

const (
	PlanCategoryBasic    PlanCategory = "basic"
	PlanCategoryVIP      PlanCategory = "vip"
	PlanCategoryRich     PlanCategory = "rich"
	PlanCategoryUltimate PlanCategory = "ultimate"
)

// Valid reports whether c is one of the known categories.
func (c PlanCategory) Valid() bool {
	switch c {
	case PlanCategoryBasic, PlanCategoryVIP, PlanCategoryRich, PlanCategoryUltimate:
		return true
	}
	return false
}

// PaysLocked reports whether income from this category accrues to the locked pool.
func (c PlanCategory) PaysLocked() bool {
	return c == PlanCategoryVIP || c == PlanCategoryRich || c == PlanCategoryUltimate
}

// Plan is a catalog entry.
type Plan struct {
	ID          string          `json:"id" mapstructure:"id"`
	Name        string          `json:"name" mapstructure:"name"`
	Category    PlanCategory    `json:"category" mapstructure:"category"`
	Currency    string          `json:"currency" mapstructure:"currency"`
	Price       decimal.Decimal `json:"price" mapstructure:"price"`
	DailyIncome decimal.Decimal `json:"dailyIncome" mapstructure:"daily_income"`
	TotalIncome decimal.Decimal `json:"totalIncome" mapstructure:"total_income"`
	TermDays    int             `json:"termDays" mapstructure:"term_days"`
}

// Snapshot freezes the plan economics for an investment record.
func (p Plan) Snapshot() PlanSnapshot {
	return PlanSnapshot{
		PlanID:        p.ID,
		PlanName:      p.Name,
		Category:      p.Category,
		Price:         p.Price,
		DailyIncome:   p.DailyIncome,
		TotalIncome:   p.TotalIncome,
		TermDays:      p.TermDays,
		LockedBalance: p.Category.PaysLocked(),
	}
}

// PlanSnapshot is the immutable copy of plan economics stored with an investment.
type PlanSnapshot struct {
	PlanID        string          `gorm:"size:64;index"`
	PlanName      string
	Category      PlanCategory    `gorm:"size:16"`
	Price         decimal.Decimal `gorm:"type:numeric(20,2);not null"`
	DailyIncome   decimal.Decimal `gorm:"type:numeric(20,2);not null"`
	TotalIncome   decimal.Decimal `gorm:"type:numeric(20,2);not null"`
	TermDays      int             `gorm:"not null"`
	LockedBalance bool            `gorm:"not null;default:false"`
}
