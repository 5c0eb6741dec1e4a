package account

import (
	"context"
	"errors"
	"testing"
	"time"

	"happyinvest/internal/models"
	"happyinvest/internal/repositories"
	"happyinvest/internal/repositories/memory"
	"happyinvest/internal/services/balance"
	"happyinvest/internal/testutil"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

type MockCache struct {
	mock.Mock
}

func (m *MockCache) GetAccount(ctx context.Context, userID string, dest interface{}) (bool, error) {
	args := m.Called(ctx, userID, dest)
	return args.Bool(0), args.Error(1)
}

func (m *MockCache) CacheAccount(ctx context.Context, userID string, summary interface{}) error {
	args := m.Called(ctx, userID, summary)
	return args.Error(0)
}

func (m *MockCache) InvalidateAccount(ctx context.Context, userID string) error {
	args := m.Called(ctx, userID)
	return args.Error(0)
}

func (m *MockCache) HealthCheck(ctx context.Context) error {
	args := m.Called(ctx)
	return args.Error(0)
}

func newTestService(t *testing.T, cache Cache) (Service, *repositories.Store, *testutil.Clock) {
	t.Helper()
	store := memory.NewStore()
	clock := testutil.NewClock()
	balances := balance.NewService(store, nil, balance.Config{Now: clock.Now}, nil)
	return NewService(store, balances, cache, Config{Now: clock.Now}, nil), store, clock
}

func TestSummary_CacheMissThenFill(t *testing.T) {
	cache := new(MockCache)
	svc, store, _ := newTestService(t, cache)
	testutil.SeedUser(t, store, "u1", 750)

	cache.On("GetAccount", mock.Anything, "u1", mock.Anything).Return(false, nil).Once()
	cache.On("CacheAccount", mock.Anything, "u1", mock.AnythingOfType("*account.Summary")).Return(nil).Once()

	s, err := svc.Summary(context.Background(), "u1")
	require.NoError(t, err)
	assert.True(t, s.SpendableBalance.Equal(testutil.Dec(750)))
	assert.Equal(t, models.UserStatusActive, s.Status)
	cache.AssertExpectations(t)
	cache.AssertNotCalled(t, "InvalidateAccount", mock.Anything, mock.Anything)
}

func TestSummary_EvictsWhenWriteRacesFill(t *testing.T) {
	cache := new(MockCache)
	svc, store, _ := newTestService(t, cache)
	testutil.SeedUser(t, store, "u1", 750)
	ctx := context.Background()

	cache.On("GetAccount", mock.Anything, "u1", mock.Anything).Return(false, nil).Once()
	cache.On("CacheAccount", mock.Anything, "u1", mock.Anything).
		Run(func(mock.Arguments) {
			// A withdrawal lands after the summary was read but before it is cached.
			u := testutil.LoadUser(t, store, "u1")
			u.SpendableBalance = testutil.Dec(150)
			require.NoError(t, store.Users.CompareAndSwap(ctx, u, u.Version))
		}).
		Return(nil).Once()
	cache.On("InvalidateAccount", mock.Anything, "u1").Return(nil).Once()

	s, err := svc.Summary(ctx, "u1")
	require.NoError(t, err)
	assert.True(t, s.SpendableBalance.Equal(testutil.Dec(750)))
	assert.Equal(t, int64(0), s.Version)
	cache.AssertExpectations(t)
}

func TestSummary_CacheHit(t *testing.T) {
	cache := new(MockCache)
	svc, _, _ := newTestService(t, cache)

	cache.On("GetAccount", mock.Anything, "u1", mock.Anything).
		Run(func(args mock.Arguments) {
			dest := args.Get(2).(*Summary)
			dest.UserID = "u1"
			dest.SpendableBalance = testutil.Dec(42)
		}).
		Return(true, nil).Once()

	s, err := svc.Summary(context.Background(), "u1")
	require.NoError(t, err)
	assert.True(t, s.SpendableBalance.Equal(testutil.Dec(42)))
	cache.AssertNotCalled(t, "CacheAccount", mock.Anything, mock.Anything, mock.Anything)
}

func TestSummary_CacheErrorFallsThrough(t *testing.T) {
	cache := new(MockCache)
	svc, store, _ := newTestService(t, cache)
	testutil.SeedUser(t, store, "u1", 10)

	cache.On("GetAccount", mock.Anything, "u1", mock.Anything).Return(false, errors.New("redis down"))
	cache.On("CacheAccount", mock.Anything, "u1", mock.Anything).Return(errors.New("redis down"))

	s, err := svc.Summary(context.Background(), "u1")
	require.NoError(t, err)
	assert.True(t, s.SpendableBalance.Equal(testutil.Dec(10)))
}

func TestIncomeStats(t *testing.T) {
	svc, store, clock := newTestService(t, nil)
	ctx := context.Background()
	yesterday := clock.Now().Add(-24 * time.Hour)

	entries := []models.Transaction{
		{ID: "1", UserID: "u1", Kind: models.TransactionKindDailyIncome, Amount: testutil.Dec(100), CreatedAt: yesterday},
		{ID: "2", UserID: "u1", Kind: models.TransactionKindDailyIncome, Amount: testutil.Dec(100), CreatedAt: clock.Now()},
		{ID: "3", UserID: "u1", Kind: models.TransactionKindReferralCommission, Amount: testutil.Dec(100), CreatedAt: clock.Now()},
		{ID: "4", UserID: "u1", Kind: models.TransactionKindCheckIn, Amount: testutil.Dec(50), CreatedAt: yesterday},
		{ID: "5", UserID: "u1", Kind: models.TransactionKindInvestment, Amount: testutil.Dec(-800), CreatedAt: clock.Now()},
		{ID: "6", UserID: "u2", Kind: models.TransactionKindDailyIncome, Amount: testutil.Dec(999), CreatedAt: clock.Now()},
	}
	for i := range entries {
		require.NoError(t, store.Transactions.Create(ctx, &entries[i]))
	}

	stats, err := svc.IncomeStats(ctx, "u1")
	require.NoError(t, err)
	assert.True(t, stats.Total.Equal(testutil.Dec(350)))
	assert.True(t, stats.Today.Equal(testutil.Dec(200)))
	assert.True(t, stats.ByKind[models.TransactionKindDailyIncome].Equal(testutil.Dec(200)))

	txs, total, err := svc.Transactions(ctx, "u1", nil, 2, 0)
	require.NoError(t, err)
	assert.Equal(t, int64(5), total)
	assert.Len(t, txs, 2)
	assert.Equal(t, "5", txs[0].ID)
}

func TestHealth(t *testing.T) {
	cache := new(MockCache)
	cache.On("HealthCheck", mock.Anything).Return(nil)
	svc, _, _ := newTestService(t, cache)

	h := svc.Health(context.Background())
	assert.True(t, h.Healthy())
	assert.Equal(t, "ok", h.Cache)
}

func TestCheckInStatus(t *testing.T) {
	svc, store, clock := newTestService(t, nil)
	ctx := context.Background()
	today := clock.Now().Format("2006-01-02")
	yesterday := clock.Now().AddDate(0, 0, -1).Format("2006-01-02")

	tests := []struct {
		name       string
		lastDate   string
		streak     int
		wantToday  bool
		wantStreak int
	}{
		{name: "never", wantToday: false, wantStreak: 0},
		{name: "today", lastDate: today, streak: 4, wantToday: true, wantStreak: 4},
		{name: "yesterday", lastDate: yesterday, streak: 6, wantToday: false, wantStreak: 6},
		{name: "missed a day", lastDate: "2024-03-01", streak: 6, wantToday: false, wantStreak: 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			id := "u-" + tt.name
			u := testutil.SeedUser(t, store, id, 0)
			u.LastCheckInDate = tt.lastDate
			u.CheckInStreak = tt.streak
			require.NoError(t, store.Users.CompareAndSwap(ctx, u, u.Version))

			status, err := svc.CheckInStatus(ctx, id)
			require.NoError(t, err)
			assert.Equal(t, tt.wantToday, status.CheckedInToday)
			assert.Equal(t, tt.wantStreak, status.Streak)
			assert.Equal(t, tt.lastDate, status.LastCheckInDate)
		})
	}

	_, err := svc.CheckInStatus(ctx, "ghost")
	assert.ErrorIs(t, err, balance.ErrUserNotFound)
}

func TestUsers(t *testing.T) {
	svc, store, _ := newTestService(t, nil)
	ctx := context.Background()
	testutil.SeedUser(t, store, "u1", 10)
	testutil.SeedUser(t, store, "u2", 20)
	testutil.SeedUser(t, store, "u3", 30)

	page, total, err := svc.Users(ctx, 2, 0)
	require.NoError(t, err)
	assert.Equal(t, int64(3), total)
	assert.Len(t, page, 2)

	rest, _, err := svc.Users(ctx, 2, 2)
	require.NoError(t, err)
	require.Len(t, rest, 1)

	seen := map[string]bool{rest[0].UserID: true}
	for _, s := range page {
		seen[s.UserID] = true
		assert.NotEmpty(t, s.ReferralCode)
	}
	assert.Len(t, seen, 3)
}
