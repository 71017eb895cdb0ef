package finance

import (
	"math"

	"github.com/iwvelando/saas-forecast/pkg/constants"
)

// FixedCosts are the named monthly fixed cost categories. Marketing is carried
// separately by CostInputs.MarketingSpend so it is never counted twice.
type FixedCosts struct {
	Infrastructure float64
	Salary         float64
	Support        float64
	Wages          float64
	Hosting        float64
}

// Total sums the fixed categories.
func (f FixedCosts) Total() float64 {
	return f.Infrastructure + f.Salary + f.Support + f.Wages + f.Hosting
}

// VariableCostModel computes the period's variable cost.
type VariableCostModel interface {
	Variable(flow Flow, revenue Revenue) float64
}

// PerUserVariableCost charges a flat rate per average user.
type PerUserVariableCost struct {
	Rate float64
}

func (m PerUserVariableCost) Variable(flow Flow, _ Revenue) float64 {
	return flow.Average() * m.Rate
}

// ScaledInfrastructureCost charges a per-user rate plus an infrastructure
// cost that steps up every InfrastructureUsersPerStep total users.
type ScaledInfrastructureCost struct {
	Rate float64
	Base float64
	Step float64
}

func (m ScaledInfrastructureCost) Variable(flow Flow, _ Revenue) float64 {
	steps := math.Floor(float64(flow.TotalUsers) / constants.InfrastructureUsersPerStep)
	return flow.Average()*m.Rate + m.Base + steps*m.Step
}

// RevenueShareCost charges a share of revenue that shrinks as the total user
// base grows.
type RevenueShareCost struct {
	Percent float64
}

// ScaleFactor returns the economies-of-scale multiplier for a user count.
func (m RevenueShareCost) ScaleFactor(totalUsers int) float64 {
	switch {
	case totalUsers < 1000:
		return 1.0
	case totalUsers < 10000:
		return 0.9
	default:
		return 0.8
	}
}

func (m RevenueShareCost) Variable(flow Flow, revenue Revenue) float64 {
	return revenue.Total * m.Percent * m.ScaleFactor(flow.TotalUsers)
}

// CostModel assembles fixed, variable, marketing and capital costs.
type CostModel struct {
	Fixed            FixedCosts
	MarketingSpend   float64
	CapitalPurchases []float64
	Variable         VariableCostModel
}

// CapitalAt returns the capital purchase for a zero-based period, zero beyond
// the configured schedule.
func (m CostModel) CapitalAt(period int) float64 {
	if period < 0 || period >= len(m.CapitalPurchases) {
		return 0
	}
	return m.CapitalPurchases[period]
}

// Costs computes the period's cost breakdown.
func (m CostModel) Costs(period int, flow Flow, revenue Revenue) Costs {
	variable := 0.0
	if m.Variable != nil {
		variable = m.Variable.Variable(flow, revenue)
	}
	return Costs{
		Fixed:     m.Fixed.Total(),
		Variable:  variable,
		Marketing: m.MarketingSpend,
		Capital:   m.CapitalAt(period),
	}.withTotal()
}
