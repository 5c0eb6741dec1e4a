/*
Package balance owns every mutation of a user's balance record.

A mutation is a closure applied to a freshly read copy of the record and
written back with a compare-and-swap on the record version. On a version
conflict the record is re-read and the closure re-applied, up to the retry
budget. The closure may refuse the change by returning an error, in which
case nothing is written.

	u, err := svc.ApplyActive(ctx, userID, func(u *models.User) error {
	    if u.SpendableBalance.LessThan(price) {
	        return balance.ErrInsufficientBalance
	    }
	    u.SpendableBalance = u.SpendableBalance.Sub(price)
	    return nil
	})

ApplyActive additionally refuses banned users, checking the ban record
before the read and the mirrored status inside the compare-and-swap.
*/
package balance
