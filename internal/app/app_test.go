package app

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"happyinvest/internal/config"
	"happyinvest/internal/models"
	"happyinvest/internal/repositories"
	"happyinvest/internal/repositories/memory"
	"happyinvest/internal/routes"
	"happyinvest/internal/services/plan"
	"happyinvest/internal/testutil"
	"happyinvest/internal/utils"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const secret = "test-secret"

type harness struct {
	t     *testing.T
	app   *fiber.App
	store *repositories.Store
	clock *testutil.Clock
}

func newHarness(t *testing.T) *harness {
	t.Helper()
	settings := config.DefaultSettings()
	settings.SweepTimezone = "UTC"

	catalog, err := plan.NewCatalog(plan.BuiltinPlans())
	require.NoError(t, err)

	store := memory.NewStore()
	clock := testutil.NewClock()
	c := Build(Options{
		Store:    store,
		Catalog:  catalog,
		Settings: settings,
		Now:      clock.Now,
	})

	app := fiber.New()
	routes.SetupRoutes(app, c.Routes(secret, "test"))
	return &harness{t: t, app: app, store: store, clock: clock}
}

func (h *harness) token(userID, role string) string {
	token, err := utils.GenerateToken(secret, userID, role, time.Hour)
	require.NoError(h.t, err)
	return token
}

func (h *harness) do(method, path, token string, body interface{}) (int, map[string]interface{}) {
	h.t.Helper()
	var reader io.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		require.NoError(h.t, err)
		reader = bytes.NewReader(raw)
	}
	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	resp, err := h.app.Test(req, -1)
	require.NoError(h.t, err)
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	require.NoError(h.t, err)
	out := map[string]interface{}{}
	if len(raw) > 0 {
		require.NoError(h.t, json.Unmarshal(raw, &out), string(raw))
	}
	return resp.StatusCode, out
}

func (h *harness) now() int64 {
	return h.clock.Now().UnixMilli()
}

func TestHTTP_InvestCheckWithdraw(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()

	testutil.SeedUser(t, h.store, "ref", 0)
	require.NoError(t, h.store.Users.Create(ctx, &models.User{
		ID:               "u1",
		Name:             "user u1",
		ReferralCode:     "RCu1",
		ReferredBy:       "RCref",
		SpendableBalance: testutil.Dec(1000),
		Status:           models.UserStatusActive,
	}))
	user := h.token("u1", models.RoleUser)
	operator := h.token("op", models.RoleOperator)

	status, _ := h.do(http.MethodGet, "/api/account", "", nil)
	assert.Equal(t, fiber.StatusUnauthorized, status)

	status, body := h.do(http.MethodGet, "/api/plans", "", nil)
	require.Equal(t, fiber.StatusOK, status)
	assert.Len(t, body["data"], len(plan.BuiltinPlans()))

	status, _ = h.do(http.MethodPost, "/api/invest", user, map[string]string{"planId": "nope"})
	assert.Equal(t, fiber.StatusNotFound, status)

	status, _ = h.do(http.MethodPost, "/api/invest", user, map[string]string{})
	assert.Equal(t, fiber.StatusBadRequest, status)

	status, _ = h.do(http.MethodPost, "/api/invest", user, map[string]string{"planId": "wind_1"})
	require.Equal(t, fiber.StatusCreated, status)
	assert.True(t, testutil.LoadUser(t, h.store, "u1").SpendableBalance.Equal(testutil.Dec(200)))
	assert.True(t, testutil.LoadUser(t, h.store, "ref").SpendableBalance.Equal(testutil.Dec(100)))

	status, _ = h.do(http.MethodPost, "/api/payout/check", user, map[string]int64{"clientTimestamp": h.now()})
	require.Equal(t, fiber.StatusOK, status)

	status, body = h.do(http.MethodPost, "/api/payout/check", user, map[string]int64{"clientTimestamp": h.now()})
	assert.Equal(t, fiber.StatusTooManyRequests, status)
	assert.Equal(t, "RATE_LIMITED", body["code"])

	h.clock.Advance(25 * time.Hour)
	status, _ = h.do(http.MethodPost, "/api/payout/check", user, map[string]int64{"clientTimestamp": h.now()})
	require.Equal(t, fiber.StatusOK, status)
	assert.True(t, testutil.LoadUser(t, h.store, "u1").SpendableBalance.Equal(testutil.Dec(479)))

	status, body = h.do(http.MethodPost, "/api/withdraw", user, map[string]interface{}{"amount": 200})
	assert.Equal(t, fiber.StatusBadRequest, status)
	assert.Equal(t, "INVALID_REQUEST", body["code"])

	bank := map[string]interface{}{"bankDetails": map[string]string{
		"accountHolder": "User One",
		"accountNumber": "1234567890",
		"ifsc":          "HDFC0000001",
	}}
	status, _ = h.do(http.MethodPost, "/api/bank", user, bank)
	require.Equal(t, fiber.StatusOK, status)

	status, body = h.do(http.MethodPost, "/api/withdraw", user, map[string]interface{}{"amount": 200})
	require.Equal(t, fiber.StatusCreated, status)
	withdrawalID := body["data"].(map[string]interface{})["withdrawalId"].(string)
	assert.True(t, testutil.LoadUser(t, h.store, "u1").SpendableBalance.Equal(testutil.Dec(279)))

	status, body = h.do(http.MethodPost, "/api/withdraw", user, map[string]interface{}{"amount": 100})
	assert.Equal(t, fiber.StatusTooManyRequests, status)
	assert.Equal(t, "RATE_LIMITED", body["code"])

	resolve := "/api/admin/withdrawals/" + withdrawalID + "/resolve"
	status, _ = h.do(http.MethodPost, resolve, user, map[string]string{"decision": "rejected"})
	assert.Equal(t, fiber.StatusForbidden, status)

	status, _ = h.do(http.MethodPost, resolve, operator, map[string]string{"decision": "rejected"})
	require.Equal(t, fiber.StatusOK, status)
	assert.True(t, testutil.LoadUser(t, h.store, "u1").SpendableBalance.Equal(testutil.Dec(479)))

	status, body = h.do(http.MethodPost, resolve, operator, map[string]string{"decision": "completed"})
	assert.Equal(t, fiber.StatusConflict, status)
	assert.Equal(t, "ALREADY_PROCESSED", body["code"])

	status, body = h.do(http.MethodGet, "/api/account", user, nil)
	require.Equal(t, fiber.StatusOK, status)
	assert.Equal(t, "479", body["data"].(map[string]interface{})["spendableBalance"])

	status, body = h.do(http.MethodGet, "/api/transactions?kind=daily_income", user, nil)
	require.Equal(t, fiber.StatusOK, status)
	assert.Len(t, body["data"], 1)

	status, body = h.do(http.MethodGet, "/api/referrals", h.token("ref", models.RoleUser), nil)
	require.Equal(t, fiber.StatusOK, status)
	assert.Len(t, body["data"], 1)
}

func TestHTTP_DriftBansAfterThreshold(t *testing.T) {
	h := newHarness(t)
	testutil.SeedUser(t, h.store, "u1", 0)
	user := h.token("u1", models.RoleUser)

	skewed := h.clock.Now().Add(time.Hour).UnixMilli()
	for i := 0; i < 2; i++ {
		status, body := h.do(http.MethodPost, "/api/payout/check", user, map[string]int64{"clientTimestamp": skewed})
		assert.Equal(t, fiber.StatusConflict, status)
		assert.Equal(t, "TIME_DRIFT_DETECTED", body["code"])
	}

	status, body := h.do(http.MethodPost, "/api/payout/check", user, map[string]int64{"clientTimestamp": skewed})
	assert.Equal(t, fiber.StatusForbidden, status)
	assert.Equal(t, "BANNED", body["code"])

	status, _ = h.do(http.MethodPost, "/api/checkin", user, nil)
	assert.Equal(t, fiber.StatusForbidden, status)
}

func TestHTTP_AdminSweepAndRecharge(t *testing.T) {
	h := newHarness(t)
	testutil.SeedUser(t, h.store, "u1", 0)
	user := h.token("u1", models.RoleUser)
	operator := h.token("op", models.RoleOperator)

	status, body := h.do(http.MethodPost, "/api/recharge", user, map[string]interface{}{
		"amount":    500,
		"method":    "upi",
		"reference": "UPI-1",
	})
	require.Equal(t, fiber.StatusCreated, status)
	rechargeID := body["data"].(map[string]interface{})["ID"].(string)

	status, body = h.do(http.MethodGet, "/api/admin/recharges/pending", operator, nil)
	require.Equal(t, fiber.StatusOK, status)
	assert.Len(t, body["data"], 1)

	status, _ = h.do(http.MethodPost, "/api/admin/recharges/"+rechargeID+"/resolve", operator, map[string]string{"decision": "approved"})
	require.Equal(t, fiber.StatusOK, status)
	assert.True(t, testutil.LoadUser(t, h.store, "u1").SpendableBalance.Equal(testutil.Dec(500)))

	status, _ = h.do(http.MethodPost, "/api/admin/sweep", operator, nil)
	require.Equal(t, fiber.StatusOK, status)

	status, body = h.do(http.MethodGet, "/health", "", nil)
	require.Equal(t, fiber.StatusOK, status)
	assert.Equal(t, "ok", body["status"])
}

func TestHTTP_ReadModels(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	testutil.SeedUser(t, h.store, "ref", 0)
	require.NoError(t, h.store.Users.Create(ctx, &models.User{
		ID:               "u1",
		Name:             "user u1",
		ReferralCode:     "RCu1",
		ReferredBy:       "RCref",
		SpendableBalance: testutil.Dec(1000),
		Status:           models.UserStatusActive,
	}))
	user := h.token("u1", models.RoleUser)
	referrer := h.token("ref", models.RoleUser)
	operator := h.token("op", models.RoleOperator)

	status, body := h.do(http.MethodGet, "/api/checkin-status", user, nil)
	require.Equal(t, fiber.StatusOK, status)
	assert.Equal(t, false, body["data"].(map[string]interface{})["checkedInToday"])

	status, _ = h.do(http.MethodPost, "/api/checkin", user, nil)
	require.Equal(t, fiber.StatusOK, status)

	status, body = h.do(http.MethodGet, "/api/checkin-status", user, nil)
	require.Equal(t, fiber.StatusOK, status)
	checkin := body["data"].(map[string]interface{})
	assert.Equal(t, true, checkin["checkedInToday"])
	assert.Equal(t, float64(1), checkin["streak"])

	status, _ = h.do(http.MethodPost, "/api/invest", user, map[string]string{"planId": "wind_1"})
	require.Equal(t, fiber.StatusCreated, status)

	status, body = h.do(http.MethodGet, "/api/team-stats", referrer, nil)
	require.Equal(t, fiber.StatusOK, status)
	team := body["data"].(map[string]interface{})
	assert.Equal(t, float64(1), team["members"])
	assert.Equal(t, float64(1), team["paidCommissions"])
	assert.Equal(t, "100", team["commissionEarned"])

	status, body = h.do(http.MethodPost, "/api/withdraw", user, map[string]interface{}{})
	assert.Equal(t, fiber.StatusBadRequest, status)
	assert.Equal(t, "INVALID_REQUEST", body["code"])

	status, _ = h.do(http.MethodGet, "/api/admin/users", user, nil)
	assert.Equal(t, fiber.StatusForbidden, status)

	status, body = h.do(http.MethodGet, "/api/admin/users?limit=1", operator, nil)
	require.Equal(t, fiber.StatusOK, status)
	assert.Len(t, body["data"], 1)
	assert.Equal(t, float64(2), body["meta"].(map[string]interface{})["total_items"])
}
