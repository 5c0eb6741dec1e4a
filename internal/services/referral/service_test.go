package referral

import (
	"context"
	"sync"
	"testing"

	apperrors "happyinvest/internal/errors"
	"happyinvest/internal/models"
	"happyinvest/internal/repositories"
	"happyinvest/internal/repositories/memory"
	"happyinvest/internal/services/balance"
	"happyinvest/internal/testutil"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fixture struct {
	store *repositories.Store
	clock *testutil.Clock
	svc   Service
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	store := memory.NewStore()
	clock := testutil.NewClock()
	balances := balance.NewService(store, nil, balance.Config{MaxRetries: 50, Now: clock.Now}, nil)
	svc := NewService(store, balances, Config{Bonus: testutil.Dec(100), MaxRetries: 50, Now: clock.Now}, nil)

	testutil.SeedUser(t, store, "r", 0)
	require.NoError(t, store.Users.Create(context.Background(), &models.User{
		ID:            "u",
		Name:          "referred",
		ReferralCode:  "RCu",
		ReferredBy:    "RCr",
		HasInvested:   true,
		TotalInvested: testutil.Dec(800),
	}))
	return &fixture{store: store, clock: clock, svc: svc}
}

func investment(id string) *models.Investment {
	return &models.Investment{
		ID:     id,
		UserID: "u",
		Plan:   models.PlanSnapshot{PlanID: "wind_1", Price: testutil.Dec(800)},
	}
}

func TestReferral_PaysExactlyOnce(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	require.NoError(t, f.svc.OnFirstInvestment(ctx, "u", investment("inv-1")))
	require.NoError(t, f.svc.OnFirstInvestment(ctx, "u", investment("inv-2")))

	r := testutil.LoadUser(t, f.store, "r")
	assert.True(t, r.SpendableBalance.Equal(testutil.Dec(100)))
	assert.True(t, r.CommissionEarned.Equal(testutil.Dec(100)))

	edge, err := f.store.Referrals.Get(ctx, "u")
	require.NoError(t, err)
	assert.Equal(t, models.CommissionStatusPaid, edge.CommissionStatus)
	assert.Equal(t, "inv-1", edge.FirstInvestmentID)
	assert.True(t, edge.TotalInvested.Equal(testutil.Dec(800)))

	txs, total, err := f.store.Transactions.ListByUser(ctx, "r", []string{models.TransactionKindReferralCommission}, 10, 0)
	require.NoError(t, err)
	require.Equal(t, int64(1), total)
	assert.Equal(t, "u", txs[0].Reference)
	assert.Equal(t, "inv-1", txs[0].Metadata["investment_id"])

	team, err := f.svc.Team(ctx, "r")
	require.NoError(t, err)
	assert.Len(t, team, 1)
}

func TestReferral_ConcurrentTriggersPayOnce(t *testing.T) {
	f := newFixture(t)

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			assert.NoError(t, f.svc.OnFirstInvestment(context.Background(), "u", investment("inv-1")))
		}()
	}
	wg.Wait()

	r := testutil.LoadUser(t, f.store, "r")
	assert.True(t, r.SpendableBalance.Equal(testutil.Dec(100)), "got %s", r.SpendableBalance)
}

func TestReferral_NoReferrer(t *testing.T) {
	f := newFixture(t)
	testutil.SeedUser(t, f.store, "solo", 0)

	assert.NoError(t, f.svc.OnFirstInvestment(context.Background(), "solo", investment("inv-1")))
}

func TestReferral_UnknownCode(t *testing.T) {
	f := newFixture(t)
	require.NoError(t, f.store.Users.Create(context.Background(), &models.User{ID: "lost", ReferredBy: "NOPE"}))

	err := f.svc.OnFirstInvestment(context.Background(), "lost", investment("inv-1"))
	assert.ErrorIs(t, err, apperrors.ErrNotFound)
}

func TestReferral_BannedReferrerReleasesClaim(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	require.NoError(t, f.store.Bans.Put(ctx, &models.Ban{UserID: "r", Reason: "fraud", BannedAt: f.clock.Now()}))

	err := f.svc.OnFirstInvestment(ctx, "u", investment("inv-1"))
	assert.ErrorIs(t, err, apperrors.ErrBanned)

	edge, err := f.store.Referrals.Get(ctx, "u")
	require.NoError(t, err)
	assert.Equal(t, models.CommissionStatusNone, edge.CommissionStatus)

	r := testutil.LoadUser(t, f.store, "r")
	assert.True(t, r.SpendableBalance.IsZero())
}

func TestReferral_TeamStats(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	require.NoError(t, f.store.Users.Create(ctx, &models.User{ID: "u2", ReferralCode: "RCu2", ReferredBy: "RCr"}))
	require.NoError(t, f.store.Users.Create(ctx, &models.User{ID: "u3", ReferralCode: "RCu3", ReferredBy: "RCr"}))

	require.NoError(t, f.svc.OnFirstInvestment(ctx, "u", investment("inv-1")))
	require.NoError(t, f.svc.OnFirstInvestment(ctx, "u2", investment("inv-2")))

	// u3's referrer credit fails, so the edge exists but stays unpaid.
	require.NoError(t, f.store.Bans.Put(ctx, &models.Ban{UserID: "r", Reason: "review", BannedAt: f.clock.Now()}))
	assert.ErrorIs(t, f.svc.OnFirstInvestment(ctx, "u3", investment("inv-3")), apperrors.ErrBanned)

	stats, err := f.svc.TeamStats(ctx, "r")
	require.NoError(t, err)
	assert.Equal(t, 3, stats.Members)
	assert.Equal(t, 3, stats.InvestedMembers)
	assert.Equal(t, 2, stats.PaidCommissions)
	assert.True(t, stats.CommissionEarned.Equal(testutil.Dec(200)))

	empty, err := f.svc.TeamStats(ctx, "u")
	require.NoError(t, err)
	assert.Zero(t, empty.Members)
	assert.True(t, empty.CommissionEarned.IsZero())
}
