package balance

import (
	"context"
	"sync"
	"testing"
	"time"

	apperrors "happyinvest/internal/errors"
	"happyinvest/internal/models"
	"happyinvest/internal/repositories"
	"happyinvest/internal/repositories/memory"
	"happyinvest/internal/testutil"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

type MockCache struct {
	mock.Mock
}

func (m *MockCache) InvalidateAccount(ctx context.Context, userID string) error {
	args := m.Called(ctx, userID)
	return args.Error(0)
}

func newTestService(t *testing.T, cache Invalidator) (Service, *repositories.Store, *testutil.Clock) {
	t.Helper()
	store := memory.NewStore()
	clock := testutil.NewClock()
	svc := NewService(store, cache, Config{MaxRetries: 1000, Now: clock.Now}, nil)
	return svc, store, clock
}

func TestBalanceService_Apply(t *testing.T) {
	tests := []struct {
		name    string
		start   int64
		mutate  MutateFunc
		want    int64
		wantErr error
	}{
		{
			name:  "credit",
			start: 100,
			mutate: func(u *models.User) error {
				u.SpendableBalance = u.SpendableBalance.Add(testutil.Dec(50))
				return nil
			},
			want: 150,
		},
		{
			name:  "refused by closure",
			start: 100,
			mutate: func(u *models.User) error {
				return ErrInsufficientBalance
			},
			want:    100,
			wantErr: apperrors.ErrInsufficientBalance,
		},
		{
			name:  "negative result rejected",
			start: 10,
			mutate: func(u *models.User) error {
				u.SpendableBalance = u.SpendableBalance.Sub(testutil.Dec(20))
				return nil
			},
			want:    10,
			wantErr: apperrors.ErrInsufficientBalance,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cache := new(MockCache)
			cache.On("InvalidateAccount", mock.Anything, "u1").Return(nil).Maybe()
			svc, store, _ := newTestService(t, cache)
			testutil.SeedUser(t, store, "u1", tt.start)

			_, err := svc.Apply(context.Background(), "u1", tt.mutate)
			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
				cache.AssertNotCalled(t, "InvalidateAccount", mock.Anything, "u1")
			} else {
				assert.NoError(t, err)
				cache.AssertCalled(t, "InvalidateAccount", mock.Anything, "u1")
			}
			got := testutil.LoadUser(t, store, "u1")
			assert.True(t, got.SpendableBalance.Equal(testutil.Dec(tt.want)), "balance %s", got.SpendableBalance)
		})
	}
}

func TestBalanceService_ApplyUnknownUser(t *testing.T) {
	svc, _, _ := newTestService(t, nil)
	_, err := svc.Apply(context.Background(), "ghost", func(u *models.User) error { return nil })
	assert.ErrorIs(t, err, ErrUserNotFound)
	assert.Equal(t, apperrors.CodeNotFound, apperrors.CodeOf(err))
}

func TestBalanceService_ConcurrentCreditsAllLand(t *testing.T) {
	svc, store, _ := newTestService(t, nil)
	testutil.SeedUser(t, store, "u1", 0)

	var wg sync.WaitGroup
	for g := 0; g < 10; g++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := 0; i < 10; i++ {
				_, err := svc.Apply(context.Background(), "u1", func(u *models.User) error {
					u.SpendableBalance = u.SpendableBalance.Add(testutil.Dec(1))
					return nil
				})
				assert.NoError(t, err)
			}
		}()
	}
	wg.Wait()

	got := testutil.LoadUser(t, store, "u1")
	assert.True(t, got.SpendableBalance.Equal(testutil.Dec(100)))
	assert.Equal(t, int64(100), got.Version)
}

func TestBalanceService_ApplyActive(t *testing.T) {
	svc, store, clock := newTestService(t, nil)
	testutil.SeedUser(t, store, "u1", 100)
	credit := func(u *models.User) error {
		u.SpendableBalance = u.SpendableBalance.Add(testutil.Dec(1))
		return nil
	}

	t.Run("active user", func(t *testing.T) {
		_, err := svc.ApplyActive(context.Background(), "u1", credit)
		assert.NoError(t, err)
	})

	t.Run("ban record refuses", func(t *testing.T) {
		require.NoError(t, store.Bans.Put(context.Background(), &models.Ban{UserID: "u1", Reason: "test", BannedAt: clock.Now()}))
		_, err := svc.ApplyActive(context.Background(), "u1", credit)
		assert.ErrorIs(t, err, apperrors.ErrBanned)
	})

	t.Run("expired ban allows", func(t *testing.T) {
		expires := clock.Now().Add(time.Hour)
		require.NoError(t, store.Bans.Put(context.Background(), &models.Ban{UserID: "u1", Reason: "test", ExpiresAt: &expires}))
		clock.Advance(2 * time.Hour)
		_, err := svc.ApplyActive(context.Background(), "u1", credit)
		assert.NoError(t, err)
	})

	t.Run("mirrored status refuses", func(t *testing.T) {
		require.NoError(t, store.Bans.Delete(context.Background(), "u1"))
		u := testutil.LoadUser(t, store, "u1")
		u.Status = models.UserStatusBanned
		require.NoError(t, store.Users.CompareAndSwap(context.Background(), u, u.Version))
		_, err := svc.ApplyActive(context.Background(), "u1", credit)
		assert.ErrorIs(t, err, ErrUserBanned)
	})
}

func TestBalanceService_Record(t *testing.T) {
	svc, store, clock := newTestService(t, nil)
	svc.Record(context.Background(), &models.Transaction{
		UserID: "u1",
		Kind:   models.TransactionKindRecharge,
		Amount: testutil.Dec(500),
	})

	txs, total, err := store.Transactions.ListByUser(context.Background(), "u1", nil, 10, 0)
	require.NoError(t, err)
	require.Equal(t, int64(1), total)
	assert.NotEmpty(t, txs[0].ID)
	assert.Equal(t, clock.Now(), txs[0].CreatedAt)
}
