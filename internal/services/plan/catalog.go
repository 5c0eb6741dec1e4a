// Package plan serves the read-only plan catalog. Plans are looked up only at
// purchase time; investments keep their own snapshot afterwards.
package plan

import (
	"sort"

	"happyinvest/internal/models"

	"github.com/shopspring/decimal"
)

// Catalog is the read-only plan mapping.
type Catalog interface {
	Get(id string) (models.Plan, error)
	List() []models.Plan
}

type catalog struct {
	plans map[string]models.Plan
	order []string
}

// NewCatalog validates plans and indexes them by id.
func NewCatalog(plans []models.Plan) (Catalog, error) {
	c := &catalog{plans: make(map[string]models.Plan, len(plans))}
	for _, p := range plans {
		if err := validate(p); err != nil {
			return nil, err
		}
		if _, dup := c.plans[p.ID]; dup {
			return nil, ErrInvalidPlan
		}
		c.plans[p.ID] = p
		c.order = append(c.order, p.ID)
	}
	sort.Strings(c.order)
	return c, nil
}

func validate(p models.Plan) error {
	switch {
	case p.ID == "":
		return ErrInvalidPlan
	case !p.Category.Valid():
		return ErrInvalidPlan
	case !p.Price.IsPositive(), !p.DailyIncome.IsPositive():
		return ErrInvalidPlan
	case !models.IsCents(p.Price), !models.IsCents(p.DailyIncome), !models.IsCents(p.TotalIncome):
		return ErrInvalidPlan
	case p.TermDays <= 0:
		return ErrInvalidPlan
	}
	return nil
}

func (c *catalog) Get(id string) (models.Plan, error) {
	p, ok := c.plans[id]
	if !ok {
		return models.Plan{}, ErrPlanNotFound
	}
	return p, nil
}

func (c *catalog) List() []models.Plan {
	out := make([]models.Plan, 0, len(c.order))
	for _, id := range c.order {
		out = append(out, c.plans[id])
	}
	return out
}

func builtin(id, name string, category models.PlanCategory, currency string, price, daily, total int64, days int) models.Plan {
	return models.Plan{
		ID:          id,
		Name:        name,
		Category:    category,
		Currency:    currency,
		Price:       decimal.NewFromInt(price),
		DailyIncome: decimal.NewFromInt(daily),
		TotalIncome: decimal.NewFromInt(total),
		TermDays:    days,
	}
}

// BuiltinPlans is the catalog the program launched with.
func BuiltinPlans() []models.Plan {
	return []models.Plan{
		builtin("wind_1", "Wind 1", models.PlanCategoryBasic, "₹", 800, 279, 6138, 22),
		builtin("wind_2", "Wind 2", models.PlanCategoryBasic, "₹", 560, 1447, 13023, 9),
		builtin("wind_3", "Wind 3", models.PlanCategoryBasic, "₹", 1000, 3900, 39000, 10),
		builtin("wind_4", "Wind 4", models.PlanCategoryBasic, "₹", 1600, 4730, 28380, 6),
		builtin("wind_5", "Wind 5", models.PlanCategoryVIP, "$", 1600, 7350, 58800, 8),
		builtin("wind_6", "Wind 6", models.PlanCategoryVIP, "¥", 2800, 17687, 70748, 4),
		builtin("wind_7", "Wind 7", models.PlanCategoryVIP, "$", 5000, 32600, 32600, 1),
		builtin("wind_power_a", "Wind Power - A", models.PlanCategoryBasic, "¥", 450, 1830, 5490, 3),
		builtin("wind_power_b", "Wind Power - B", models.PlanCategoryBasic, "¥", 900, 3900, 15600, 4),
	}
}
