// Package finance provides the projection engine: growth, revenue and cost
// models folded month by month into a cash balance, plus the analyzers that
// read the finished series.
package finance

import (
	"fmt"

	"github.com/iwvelando/saas-forecast/pkg/constants"
	"github.com/iwvelando/saas-forecast/pkg/datetime"
	"github.com/iwvelando/saas-forecast/pkg/mathutil"
	"go.uber.org/zap"
)

// Strategy bundles the models a projection mode plugs into the engine.
type Strategy struct {
	Growth  GrowthModel
	Revenue RevenueModel
	Cost    CostModel
}

// RunParams are the run-level inputs shared by every mode.
type RunParams struct {
	StartDate    string
	Months       int
	StartingCash float64
	// ChurnRate feeds the per-period LTV estimate.
	ChurnRate float64
}

// ForecastEngine coordinates the period loop.
type ForecastEngine struct {
	strategy Strategy
	logger   *zap.Logger
}

// NewForecastEngine creates a new forecast engine for the given strategy.
func NewForecastEngine(logger *zap.Logger, strategy Strategy) (*ForecastEngine, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	if strategy.Growth == nil || strategy.Revenue == nil {
		return nil, fmt.Errorf("forecast engine requires growth and revenue models")
	}
	return &ForecastEngine{strategy: strategy, logger: logger}, nil
}

// Run executes the period loop. Cash is a strict left fold over the periods:
// cash[i] = cash[i-1] + profit[i], starting from params.StartingCash. Raw
// values are carried between periods; only emitted records are rounded.
func (fe *ForecastEngine) Run(params RunParams) ([]MonthlyRecord, []BreakEvenRecord, error) {
	if params.Months <= 0 {
		return nil, nil, fmt.Errorf("projection months must be positive, got %d", params.Months)
	}
	dates, err := datetime.MonthSeries(params.StartDate, params.Months)
	if err != nil {
		return nil, nil, err
	}

	monthly := make([]MonthlyRecord, 0, params.Months)
	breakEven := make([]BreakEvenRecord, 0, params.Months)

	prev := fe.strategy.Growth.Initial()
	cash := params.StartingCash
	prevARPU := 0.0

	for i, date := range dates {
		flow := fe.strategy.Growth.Next(i, prev)
		revenue := fe.strategy.Revenue.Revenue(flow)
		costs := fe.strategy.Cost.Costs(i, flow, revenue)
		profit := revenue.Total - costs.Total
		cash += profit

		avg := flow.Average()
		arpu := mathutil.SafeDivide(revenue.Total, avg)
		cac := 0.0
		if flow.New > 0 {
			cac = costs.Marketing / float64(flow.New)
		}

		record := MonthlyRecord{
			Month:               i + 1,
			Date:                date,
			StartUsers:          flow.Start,
			Users:               flow.End,
			NewUsers:            flow.New,
			PaidUsers:           flow.PaidNew,
			OrganicUsers:        flow.OrganicNew,
			ChurnedUsers:        flow.Churned,
			AverageUsers:        avg,
			TotalUsers:          flow.TotalUsers,
			ChurnedTotalUsers:   flow.ChurnedTotalUsers,
			UsersPerTenant:      mathutil.Round(flow.UsersPerEntity),
			UsagePerTenant:      mathutil.Round(flow.UsagePerEntity),
			Revenue:             roundRevenue(revenue),
			Costs:               roundCosts(costs),
			Profit:              mathutil.Round(profit),
			Cash:                mathutil.Round(cash),
			ARPU:                mathutil.Round(arpu),
			MRR:                 mathutil.Round(float64(flow.End) * arpu),
			CAC:                 mathutil.Round(cac),
			LTV:                 mathutil.Round(LifetimeValue(arpu, params.ChurnRate)),
			RetentionRate:       mathutil.Round(retentionRate(flow)),
			NetRevenueRetention: mathutil.Round(netRevenueRetention(flow, arpu, prevARPU, i)),
			PaybackMonths:       mathutil.Round(PaybackMonths(cac, arpu)),
		}
		monthly = append(monthly, record)

		breakEven = append(breakEven, BreakEven(BreakEvenInput{
			Month:     i + 1,
			Date:      date,
			Flow:      flow,
			Revenue:   revenue,
			Costs:     costs,
			UnitPrice: fe.strategy.Revenue.UnitPrice(flow, revenue),
			Profit:    profit,
		}))

		fe.logger.Debug("projected period",
			zap.String("op", "finance.ForecastEngine.Run"),
			zap.String("date", date),
			zap.String("mode", fe.strategy.Growth.Name()),
			zap.Int("users", flow.End),
			zap.Float64("revenue", record.Revenue.Total),
			zap.Float64("profit", record.Profit),
			zap.Float64("cash", record.Cash),
		)

		prev = flow
		prevARPU = arpu
	}

	return monthly, breakEven, nil
}

// LifetimeValue estimates LTV as ARPU × expected lifetime × gross margin.
// Zero churn uses the capped lifetime; any positive churn uses 1/churn.
func LifetimeValue(arpu, churnRate float64) float64 {
	lifetime := constants.MaxCustomerLifetimeMonths
	if churnRate > 0 {
		lifetime = 1 / churnRate
	}
	return arpu * lifetime * constants.GrossMarginFactor
}

// PaybackMonths is the months of gross-margin revenue needed to recover CAC.
func PaybackMonths(cac, arpu float64) float64 {
	if cac <= 0 || arpu <= 0 {
		return 0
	}
	return cac / (arpu * constants.GrossMarginFactor)
}

func retentionRate(flow Flow) float64 {
	if flow.Start == 0 {
		return 100
	}
	return float64(flow.Start-flow.Churned) / float64(flow.Start) * 100
}

// netRevenueRetention compares revenue kept from the starting cohort with
// what that cohort paid in the previous period.
func netRevenueRetention(flow Flow, arpu, prevARPU float64, period int) float64 {
	if period == 0 || flow.Start == 0 || prevARPU <= 0 {
		return 100
	}
	return arpu * float64(flow.Start-flow.Churned) / (prevARPU * float64(flow.Start)) * 100
}

func roundRevenue(r Revenue) Revenue {
	return Revenue{
		Base:         mathutil.Round(r.Base),
		Addon:        mathutil.Round(r.Addon),
		UserOverage:  mathutil.Round(r.UserOverage),
		UsageOverage: mathutil.Round(r.UsageOverage),
		Total:        mathutil.Round(r.Total),
	}
}

func roundCosts(c Costs) Costs {
	return Costs{
		Fixed:     mathutil.Round(c.Fixed),
		Variable:  mathutil.Round(c.Variable),
		Marketing: mathutil.Round(c.Marketing),
		Capital:   mathutil.Round(c.Capital),
		Total:     mathutil.Round(c.Total),
	}
}
