// Package testutil holds fixtures shared by service and handler tests.
package testutil

import (
	"context"
	"sync"
	"testing"
	"time"

	"happyinvest/internal/models"
	"happyinvest/internal/repositories"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
)

// Epoch is the default starting instant of a test Clock.
var Epoch = time.Date(2024, 3, 10, 9, 0, 0, 0, time.UTC)

// Clock is a manually advanced clock.
type Clock struct {
	mu  sync.Mutex
	now time.Time
}

func NewClock() *Clock {
	return &Clock{now: Epoch}
}

func (c *Clock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *Clock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

func (c *Clock) Set(t time.Time) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = t
}

// SeedUser creates an active user with the given spendable balance.
func SeedUser(t *testing.T, store *repositories.Store, id string, spendable int64) *models.User {
	t.Helper()
	u := &models.User{
		ID:               id,
		Name:             "user " + id,
		ReferralCode:     "RC" + id,
		SpendableBalance: decimal.NewFromInt(spendable),
		Status:           models.UserStatusActive,
	}
	require.NoError(t, store.Users.Create(context.Background(), u))
	return u
}

// LoadUser reads a user back from the store.
func LoadUser(t *testing.T, store *repositories.Store, id string) *models.User {
	t.Helper()
	u, err := store.Users.GetByID(context.Background(), id)
	require.NoError(t, err)
	return u
}

// Dec is shorthand for decimal.NewFromInt.
func Dec(v int64) decimal.Decimal {
	return decimal.NewFromInt(v)
}
