package anticheat

import (
	"context"
	"testing"
	"time"

	apperrors "happyinvest/internal/errors"
	"happyinvest/internal/models"
	"happyinvest/internal/repositories"
	"happyinvest/internal/repositories/memory"
	"happyinvest/internal/services/balance"
	"happyinvest/internal/testutil"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestService(t *testing.T) (Service, *repositories.Store, *testutil.Clock) {
	t.Helper()
	store := memory.NewStore()
	clock := testutil.NewClock()
	balances := balance.NewService(store, nil, balance.Config{Now: clock.Now}, nil)
	svc := NewService(store, balances, Config{Now: clock.Now}, nil)
	testutil.SeedUser(t, store, "u1", 100)
	return svc, store, clock
}

func TestInspect_WithinTolerance(t *testing.T) {
	svc, store, clock := newTestService(t)
	now := clock.Now()

	for _, client := range []time.Time{now, now.Add(2 * time.Minute), now.Add(-119 * time.Second)} {
		v, err := svc.Inspect(context.Background(), "u1", now, client)
		require.NoError(t, err)
		assert.False(t, v.Violation)
	}
	assert.Equal(t, 0, testutil.LoadUser(t, store, "u1").CheatViolationCount)
}

func TestInspect_ViolationPenalises(t *testing.T) {
	svc, store, clock := newTestService(t)
	now := clock.Now()

	v, err := svc.Inspect(context.Background(), "u1", now, now.Add(-10*time.Minute))
	require.NoError(t, err)
	assert.True(t, v.Violation)
	assert.False(t, v.Banned)
	assert.Equal(t, 1, v.ViolationCount)
	assert.Equal(t, 10*time.Minute, v.Drift)

	u := testutil.LoadUser(t, store, "u1")
	assert.Equal(t, 1, u.CheatViolationCount)
	require.NotNil(t, u.PenaltyUntil)
	assert.Equal(t, now.Add(time.Hour), *u.PenaltyUntil)

	logged, err := svc.Violations(context.Background(), "u1")
	require.NoError(t, err)
	require.Len(t, logged, 1)
	assert.Equal(t, int64(600), logged[0].DriftSeconds)
	assert.Equal(t, now.Add(-10*time.Minute), logged[0].ClientTime)
}

func TestInspect_ThirdViolationBans(t *testing.T) {
	svc, store, clock := newTestService(t)
	ctx := context.Background()

	var v *Verdict
	var err error
	for i := 0; i < 3; i++ {
		now := clock.Now()
		v, err = svc.Inspect(ctx, "u1", now, now.Add(5*time.Minute))
		require.NoError(t, err)
		clock.Advance(time.Minute)
	}
	assert.True(t, v.Banned)

	u := testutil.LoadUser(t, store, "u1")
	assert.Equal(t, 3, u.CheatViolationCount)
	assert.Equal(t, models.UserStatusBanned, u.Status)

	ban, err := store.Bans.Get(ctx, "u1")
	require.NoError(t, err)
	assert.Equal(t, models.BanSourceAntiCheat, ban.Source)
	assert.Nil(t, ban.ExpiresAt)
}

func TestBanAndUnban(t *testing.T) {
	svc, store, _ := newTestService(t)
	ctx := context.Background()

	require.NoError(t, svc.Ban(ctx, "u1", "chargeback", models.BanSourceOperator, nil))
	assert.Equal(t, models.UserStatusBanned, testutil.LoadUser(t, store, "u1").Status)

	require.NoError(t, svc.Unban(ctx, "u1"))
	u := testutil.LoadUser(t, store, "u1")
	assert.Equal(t, models.UserStatusActive, u.Status)
	_, err := store.Bans.Get(ctx, "u1")
	assert.ErrorIs(t, err, repositories.ErrNotFound)

	err = svc.Ban(ctx, "ghost", "x", models.BanSourceOperator, nil)
	assert.ErrorIs(t, err, apperrors.ErrNotFound)
}
