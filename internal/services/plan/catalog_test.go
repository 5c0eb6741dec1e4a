package plan

import (
	"os"
	"path/filepath"
	"testing"

	apperrors "happyinvest/internal/errors"
	"happyinvest/internal/models"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBuiltinCatalog(t *testing.T) {
	c, err := Load("")
	require.NoError(t, err)
	assert.Len(t, c.List(), 9)

	p, err := c.Get("wind_5")
	require.NoError(t, err)
	assert.True(t, p.Snapshot().LockedBalance)
	assert.True(t, p.DailyIncome.Equal(decimal.NewFromInt(7350)))

	p, err = c.Get("wind_1")
	require.NoError(t, err)
	assert.False(t, p.Snapshot().LockedBalance)
	assert.Equal(t, 22, p.TermDays)

	currencies := map[string]string{
		"wind_1":       "₹",
		"wind_4":       "₹",
		"wind_5":       "$",
		"wind_6":       "¥",
		"wind_7":       "$",
		"wind_power_a": "¥",
		"wind_power_b": "¥",
	}
	for id, want := range currencies {
		p, err := c.Get(id)
		require.NoError(t, err)
		assert.Equal(t, want, p.Currency, id)
	}

	_, err = c.Get("wind_9")
	assert.ErrorIs(t, err, ErrPlanNotFound)
	assert.Equal(t, apperrors.CodeNotFound, apperrors.CodeOf(err))
}

func TestLoadMissingFileFallsBack(t *testing.T) {
	c, err := Load(filepath.Join(t.TempDir(), "absent.yaml"))
	require.NoError(t, err)
	assert.Len(t, c.List(), 9)
}

func TestLoadYAML(t *testing.T) {
	path := filepath.Join(t.TempDir(), "plans.yaml")
	content := `
plans:
  - id: starter
    name: Starter
    category: basic
    currency: "₹"
    price: 100
    daily_income: "12.50"
    total_income: 125
    term_days: 10
  - id: gold
    name: Gold
    category: ultimate
    price: 1000.5
    daily_income: 200
    total_income: 2000
    term_days: 10
`
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))

	c, err := Load(path)
	require.NoError(t, err)
	require.Len(t, c.List(), 2)

	starter, err := c.Get("starter")
	require.NoError(t, err)
	assert.True(t, starter.DailyIncome.Equal(decimal.RequireFromString("12.5")))
	assert.Equal(t, models.PlanCategoryBasic, starter.Category)

	gold, err := c.Get("gold")
	require.NoError(t, err)
	assert.True(t, gold.Price.Equal(decimal.RequireFromString("1000.5")))
	assert.True(t, gold.Category.PaysLocked())
}

func TestNewCatalogRejectsBadPlans(t *testing.T) {
	good := BuiltinPlans()[0]

	unknown := good
	unknown.Category = "platinum"
	_, err := NewCatalog([]models.Plan{unknown})
	assert.ErrorIs(t, err, ErrInvalidPlan)

	noTerm := good
	noTerm.TermDays = 0
	_, err = NewCatalog([]models.Plan{noTerm})
	assert.ErrorIs(t, err, ErrInvalidPlan)

	fractional := good
	fractional.DailyIncome = decimal.RequireFromString("279.005")
	_, err = NewCatalog([]models.Plan{fractional})
	assert.ErrorIs(t, err, ErrInvalidPlan)

	_, err = NewCatalog([]models.Plan{good, good})
	assert.ErrorIs(t, err, ErrInvalidPlan)
}
