package models

import "github.com/shopspring/decimal"

// MoneyScale is the number of decimal places every money column stores.
const MoneyScale = 2

// IsCents reports whether d is representable in a numeric(20,2) column without rounding.
func IsCents(d decimal.Decimal) bool {
	return d.Equal(d.Round(MoneyScale))
}
