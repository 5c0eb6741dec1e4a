package payout

import (
	"time"

	"happyinvest/internal/models"
)

// DuePeriods is the number of whole periods elapsed since the investment's
// anchor, capped at the remaining term.
func DuePeriods(inv *models.Investment, now time.Time, period time.Duration) int {
	if !inv.IsActive() || period <= 0 {
		return 0
	}
	elapsed := now.Sub(inv.LastPayoutAt)
	if elapsed < period {
		return 0
	}
	k := int(elapsed / period)
	if k > inv.DaysRemaining {
		k = inv.DaysRemaining
	}
	return k
}

// advance applies k credited periods to inv. The anchor moves by whole
// periods, never to now, so a late reconcile does not lose a period.
func advance(inv *models.Investment, k int, period time.Duration, now time.Time) {
	amount := inv.Plan.DailyIncome.Mul(decimalInt(k))
	inv.TotalEarned = inv.TotalEarned.Add(amount)
	inv.PayoutCount += k
	inv.DaysRemaining -= k
	inv.LastPayoutAt = inv.LastPayoutAt.Add(time.Duration(k) * period)
	inv.NextPayoutDue = inv.LastPayoutAt.Add(period)
	if inv.DaysRemaining <= 0 {
		inv.DaysRemaining = 0
		inv.Status = models.InvestmentStatusCompleted
		inv.CompletedAt = &now
	}
}
