package payout

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	apperrors "happyinvest/internal/errors"
	"happyinvest/internal/models"
	"happyinvest/internal/repositories"
	"happyinvest/internal/repositories/memory"
	"happyinvest/internal/services/anticheat"
	"happyinvest/internal/services/balance"
	"happyinvest/internal/testutil"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const day = 24 * time.Hour

type fixture struct {
	store *repositories.Store
	clock *testutil.Clock
	svc   Service
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	store := memory.NewStore()
	return newFixtureWithStore(t, store)
}

func newFixtureWithStore(t *testing.T, store *repositories.Store) *fixture {
	t.Helper()
	clock := testutil.NewClock()
	balances := balance.NewService(store, nil, balance.Config{MaxRetries: 100, Now: clock.Now}, nil)
	guard := anticheat.NewService(store, balances, anticheat.Config{Now: clock.Now}, nil)
	svc := NewService(store, balances, guard, Config{MaxRetries: 100, Workers: 4, PageSize: 2, Now: clock.Now}, nil)
	return &fixture{store: store, clock: clock, svc: svc}
}

func (f *fixture) seedInvestment(t *testing.T, id, userID string, daily int64, term int, locked bool) *models.Investment {
	t.Helper()
	now := f.clock.Now()
	inv := &models.Investment{
		ID:     id,
		UserID: userID,
		Plan: models.PlanSnapshot{
			PlanID:        "plan-" + id,
			PlanName:      "Plan " + id,
			DailyIncome:   testutil.Dec(daily),
			TotalIncome:   testutil.Dec(daily * int64(term)),
			TermDays:      term,
			LockedBalance: locked,
		},
		Status:        models.InvestmentStatusActive,
		DaysRemaining: term,
		LastPayoutAt:  now,
		NextPayoutDue: now.Add(day),
		PurchasedAt:   now,
	}
	require.NoError(t, f.store.Investments.Create(context.Background(), inv))
	return inv
}

func (f *fixture) load(t *testing.T, id string) *models.Investment {
	t.Helper()
	inv, err := f.store.Investments.GetByID(context.Background(), id)
	require.NoError(t, err)
	return inv
}

func TestDuePeriods(t *testing.T) {
	start := testutil.Epoch
	tests := []struct {
		name      string
		elapsed   time.Duration
		remaining int
		status    string
		want      int
	}{
		{"not yet due", 23*time.Hour + 59*time.Minute, 5, models.InvestmentStatusActive, 0},
		{"exactly one period", day, 5, models.InvestmentStatusActive, 1},
		{"catch up", 3*day + 5*time.Hour, 5, models.InvestmentStatusActive, 3},
		{"capped at remaining term", 30 * day, 4, models.InvestmentStatusActive, 4},
		{"completed", 5 * day, 0, models.InvestmentStatusCompleted, 0},
		{"clock behind anchor", -time.Hour, 5, models.InvestmentStatusActive, 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			inv := &models.Investment{Status: tt.status, DaysRemaining: tt.remaining, LastPayoutAt: start}
			assert.Equal(t, tt.want, DuePeriods(inv, start.Add(tt.elapsed), day))
		})
	}
}

func TestReconcile_AtMostOncePerWindow(t *testing.T) {
	f := newFixture(t)
	testutil.SeedUser(t, f.store, "u1", 0)
	inv := f.seedInvestment(t, "i1", "u1", 100, 5, false)
	ctx := context.Background()

	f.clock.Advance(day + time.Hour)
	credit, err := f.svc.Reconcile(ctx, inv, f.clock.Now())
	require.NoError(t, err)
	require.NotNil(t, credit)
	assert.Equal(t, 1, credit.Periods)

	// the stale copy still looks due; the store must refuse a second credit
	credit, err = f.svc.Reconcile(ctx, inv, f.clock.Now())
	require.NoError(t, err)
	assert.Nil(t, credit)

	f.clock.Advance(22 * time.Hour)
	credit, err = f.svc.Reconcile(ctx, f.load(t, "i1"), f.clock.Now())
	require.NoError(t, err)
	assert.Nil(t, credit)

	u := testutil.LoadUser(t, f.store, "u1")
	assert.True(t, u.SpendableBalance.Equal(testutil.Dec(100)))
	assert.Equal(t, 1, f.load(t, "i1").PayoutCount)
}

func TestReconcile_CompletionConvergence(t *testing.T) {
	f := newFixture(t)
	testutil.SeedUser(t, f.store, "u1", 0)
	f.seedInvestment(t, "i1", "u1", 100, 10, false)
	ctx := context.Background()

	// irregular call times, mixing the sweep with on-demand reconciles
	steps := []time.Duration{25 * time.Hour, 30 * time.Hour, 2 * time.Hour, 3 * day, 47 * time.Hour, day, 4 * day}
	for i, step := range steps {
		f.clock.Advance(step)
		if i%2 == 0 {
			_, err := f.svc.RunSweep(ctx)
			require.NoError(t, err)
		} else {
			_, err := f.svc.Reconcile(ctx, f.load(t, "i1"), f.clock.Now())
			require.NoError(t, err)
		}
	}

	inv := f.load(t, "i1")
	assert.Equal(t, models.InvestmentStatusCompleted, inv.Status)
	assert.Equal(t, 0, inv.DaysRemaining)
	assert.Equal(t, 10, inv.PayoutCount)
	assert.True(t, inv.TotalEarned.Equal(testutil.Dec(1000)))
	assert.NotNil(t, inv.CompletedAt)

	u := testutil.LoadUser(t, f.store, "u1")
	assert.True(t, u.SpendableBalance.Equal(testutil.Dec(1000)))
	assert.True(t, u.LifetimeEarnings.Equal(testutil.Dec(1000)))

	_, total, err := f.store.Transactions.ListByUser(ctx, "u1", []string{models.TransactionKindDailyIncome}, 100, 0)
	require.NoError(t, err)
	assert.Equal(t, int64(10), total)
}

func TestReconcile_CatchUpKeepsAnchorOnGrid(t *testing.T) {
	f := newFixture(t)
	testutil.SeedUser(t, f.store, "u1", 0)
	start := f.clock.Now()
	f.seedInvestment(t, "i1", "u1", 50, 10, false)

	f.clock.Advance(3*day + 7*time.Hour)
	credit, err := f.svc.Reconcile(context.Background(), f.load(t, "i1"), f.clock.Now())
	require.NoError(t, err)
	require.NotNil(t, credit)
	assert.Equal(t, 3, credit.Periods)
	assert.True(t, credit.Amount.Equal(testutil.Dec(150)))

	inv := f.load(t, "i1")
	assert.Equal(t, start.Add(3*day), inv.LastPayoutAt)
	assert.Equal(t, start.Add(4*day), inv.NextPayoutDue)
	assert.Equal(t, 7, inv.DaysRemaining)
}

func TestReconcile_LockedPlanCreditsLockedPool(t *testing.T) {
	f := newFixture(t)
	testutil.SeedUser(t, f.store, "u1", 0)
	f.seedInvestment(t, "i1", "u1", 7350, 8, true)

	f.clock.Advance(day)
	credit, err := f.svc.Reconcile(context.Background(), f.load(t, "i1"), f.clock.Now())
	require.NoError(t, err)
	assert.Equal(t, models.PoolLocked, credit.Pool)

	u := testutil.LoadUser(t, f.store, "u1")
	assert.True(t, u.LockedBalance.Equal(testutil.Dec(7350)))
	assert.True(t, u.SpendableBalance.IsZero())

	txs, _, err := f.store.Transactions.ListByUser(context.Background(), "u1", nil, 10, 0)
	require.NoError(t, err)
	require.Len(t, txs, 1)
	assert.Equal(t, models.PoolLocked, txs[0].Pool)
}

func TestReconcile_ConcurrentCallersCreditOnce(t *testing.T) {
	f := newFixture(t)
	testutil.SeedUser(t, f.store, "u1", 0)
	inv := f.seedInvestment(t, "i1", "u1", 100, 5, false)
	f.clock.Advance(day)
	now := f.clock.Now()

	var wg sync.WaitGroup
	for i := 0; i < 16; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := f.svc.Reconcile(context.Background(), inv, now)
			assert.NoError(t, err)
		}()
	}
	wg.Wait()

	assert.Equal(t, 1, f.load(t, "i1").PayoutCount)
	assert.True(t, testutil.LoadUser(t, f.store, "u1").SpendableBalance.Equal(testutil.Dec(100)))
}

type failingUsers struct {
	repositories.UserRepository
}

func (failingUsers) CompareAndSwap(context.Context, *models.User, int64) error {
	return errors.New("write timeout")
}

func TestReconcile_CreditFailureReleasesClaim(t *testing.T) {
	store := memory.NewStore()
	f := newFixtureWithStore(t, store)
	testutil.SeedUser(t, store, "u1", 0)
	f.seedInvestment(t, "i1", "u1", 100, 5, false)
	store.Users = failingUsers{store.Users}
	f = newFixtureWithStore(t, store)
	f.clock.Advance(day)

	_, err := f.svc.Reconcile(context.Background(), f.load(t, "i1"), f.clock.Now())
	assert.ErrorIs(t, err, apperrors.ErrStoreUnavailable)

	inv := f.load(t, "i1")
	assert.Equal(t, 0, inv.PayoutCount)
	assert.Equal(t, 5, inv.DaysRemaining)
	assert.Equal(t, testutil.Epoch, inv.LastPayoutAt)
}

func TestCheckPayout_CreditsAndCoolsDown(t *testing.T) {
	f := newFixture(t)
	testutil.SeedUser(t, f.store, "u1", 0)
	f.seedInvestment(t, "basic", "u1", 279, 22, false)
	f.seedInvestment(t, "vip", "u1", 7350, 8, true)
	ctx := context.Background()

	f.clock.Advance(day)
	res, err := f.svc.CheckPayout(ctx, "u1", f.clock.Now())
	require.NoError(t, err)
	assert.Equal(t, CheckStatusCredited, res.Status)
	assert.True(t, res.IncomeAdded.Equal(testutil.Dec(7629)))
	assert.True(t, res.RegularIncome.Equal(testutil.Dec(279)))
	assert.True(t, res.LockedIncome.Equal(testutil.Dec(7350)))
	require.NotNil(t, res.NextCheckAllowedAt)
	assert.Equal(t, f.clock.Now().Add(time.Hour), *res.NextCheckAllowedAt)

	f.clock.Advance(20 * time.Minute)
	res, err = f.svc.CheckPayout(ctx, "u1", f.clock.Now())
	require.NoError(t, err)
	assert.Equal(t, CheckStatusWait, res.Status)
	assert.Equal(t, apperrors.CodeRateLimited, res.Code)
	assert.Equal(t, 40, res.WaitMinutes)

	f.clock.Advance(40 * time.Minute)
	res, err = f.svc.CheckPayout(ctx, "u1", f.clock.Now())
	require.NoError(t, err)
	assert.Equal(t, CheckStatusCredited, res.Status)
	assert.True(t, res.IncomeAdded.IsZero())
	assert.Equal(t, 0, res.PeriodsCredited)
}

func TestCheckPayout_ThreeDriftsBan(t *testing.T) {
	f := newFixture(t)
	testutil.SeedUser(t, f.store, "u1", 500)
	f.seedInvestment(t, "i1", "u1", 100, 5, false)
	ctx := context.Background()
	f.clock.Advance(day)

	for i := 1; i <= 2; i++ {
		res, err := f.svc.CheckPayout(ctx, "u1", f.clock.Now().Add(-3*time.Minute))
		require.NoError(t, err)
		assert.Equal(t, CheckStatusDrift, res.Status)
		assert.Equal(t, apperrors.CodeTimeDriftDetected, res.Code)
		assert.Equal(t, i, res.ViolationCount)
		assert.Equal(t, 60, res.WaitMinutes)
	}

	// penalty window refuses an honest clock too
	res, err := f.svc.CheckPayout(ctx, "u1", f.clock.Now())
	require.NoError(t, err)
	assert.Equal(t, CheckStatusWait, res.Status)

	res, err = f.svc.CheckPayout(ctx, "u1", f.clock.Now().Add(10*time.Minute))
	require.NoError(t, err)
	assert.Equal(t, CheckStatusBanned, res.Status)

	u := testutil.LoadUser(t, f.store, "u1")
	assert.Equal(t, 3, u.CheatViolationCount)
	assert.Equal(t, models.UserStatusBanned, u.Status)

	f.clock.Advance(2 * time.Hour)
	res, err = f.svc.CheckPayout(ctx, "u1", f.clock.Now())
	require.NoError(t, err)
	assert.Equal(t, CheckStatusBanned, res.Status)

	after := testutil.LoadUser(t, f.store, "u1")
	assert.Equal(t, u.Version, after.Version)
	assert.True(t, after.SpendableBalance.Equal(testutil.Dec(500)))
	assert.Equal(t, 0, f.load(t, "i1").PayoutCount)
}

func TestCheckPayout_UnknownUser(t *testing.T) {
	f := newFixture(t)
	_, err := f.svc.CheckPayout(context.Background(), "ghost", f.clock.Now())
	assert.ErrorIs(t, err, apperrors.ErrNotFound)
}

type flakyInvestments struct {
	repositories.InvestmentRepository
	failID string
}

func (r flakyInvestments) CompareAndSwap(ctx context.Context, inv *models.Investment, expected int64) error {
	if inv.ID == r.failID {
		return errors.New("disk full")
	}
	return r.InvestmentRepository.CompareAndSwap(ctx, inv, expected)
}

func TestRunSweep(t *testing.T) {
	store := memory.NewStore()
	f := newFixtureWithStore(t, store)
	for _, id := range []string{"u1", "u2", "u3", "banned"} {
		testutil.SeedUser(t, store, id, 0)
	}
	f.seedInvestment(t, "a", "u1", 100, 5, false)
	f.seedInvestment(t, "b", "u1", 200, 5, true)
	f.seedInvestment(t, "c", "u2", 300, 5, false)
	f.seedInvestment(t, "d", "u3", 400, 5, false)
	f.seedInvestment(t, "e", "banned", 500, 5, false)
	require.NoError(t, store.Bans.Put(context.Background(), &models.Ban{UserID: "banned", Reason: "cheat"}))

	store.Investments = flakyInvestments{InvestmentRepository: store.Investments, failID: "d"}
	f = newFixtureWithStore(t, store)
	f.clock.Advance(day)

	res, err := f.svc.RunSweep(context.Background())
	require.NoError(t, err)
	assert.True(t, res.TotalDistributed.Equal(testutil.Dec(600)), "got %s", res.TotalDistributed)
	assert.Equal(t, 2, res.UsersPaid)
	assert.Equal(t, 3, res.InvestmentsPaid)
	assert.Equal(t, 1, res.Failures)
	assert.Equal(t, 1, res.Skipped)

	again, err := f.svc.RunSweep(context.Background())
	require.NoError(t, err)
	assert.True(t, again.TotalDistributed.IsZero())

	u1 := testutil.LoadUser(t, store, "u1")
	assert.True(t, u1.SpendableBalance.Equal(testutil.Dec(100)))
	assert.True(t, u1.LockedBalance.Equal(testutil.Dec(200)))
	assert.True(t, testutil.LoadUser(t, store, "banned").SpendableBalance.IsZero())
}
