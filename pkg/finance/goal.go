package finance

import (
	"math"

	"github.com/iwvelando/saas-forecast/pkg/constants"
	"github.com/iwvelando/saas-forecast/pkg/mathutil"
)

// GoalParams are the run-level figures the goal analyzer needs besides the
// monthly series.
type GoalParams struct {
	Target           float64
	MonthlyFixedCost float64
	UnitPrice        float64
}

// AnalyzeRevenueGoal measures the series against the annual revenue target
// and extrapolates the trailing revenue trend to estimate months-to-goal.
//
// With twelve or more periods the current annual revenue is the trailing
// twelve-month sum; shorter series are extrapolated as mean × 12.
func AnalyzeRevenueGoal(monthly []MonthlyRecord, params GoalParams) RevenueGoalSummary {
	target := params.Target
	if target <= 0 {
		target = constants.RevenueGoalTarget
	}

	summary := RevenueGoalSummary{
		Target:              target,
		MonthlyGoal:         mathutil.Round(target / constants.MonthsPerYear),
		AnnualizationMethod: AnnualizationTrailing12,
	}

	n := len(monthly)
	current := 0.0
	if n >= constants.MonthsPerYear {
		for _, m := range monthly[n-constants.MonthsPerYear:] {
			current += m.Revenue.Total
		}
	} else if n > 0 {
		for _, m := range monthly {
			current += m.Revenue.Total
		}
		current = current / float64(n) * constants.MonthsPerYear
		summary.AnnualizationMethod = AnnualizationExtrapolated
	}
	current = mathutil.Round(current)
	summary.CurrentAnnualRevenue = current
	summary.ProgressPercentage = mathutil.Round(mathutil.ClampPercent(current / target * 100))

	if params.UnitPrice > 0 {
		required := int(math.Ceil((target/constants.MonthsPerYear + params.MonthlyFixedCost) / params.UnitPrice))
		summary.RequiredUsersForGoal = &required

		avgUsers := 0.0
		for _, m := range monthly {
			avgUsers += float64(m.Users)
		}
		if n > 0 {
			avgUsers /= float64(n)
		}
		if additional := required - int(math.Round(avgUsers)); additional > 0 {
			summary.AdditionalUsersNeeded = additional
		}
	}

	if n == 0 {
		return summary
	}

	window := constants.TrendWindowMonths
	if n < window {
		window = n
	}
	trailing := 0.0
	for _, m := range monthly[n-window:] {
		trailing += m.Revenue.Total
	}
	projected := mathutil.Round(trailing / float64(window) * constants.MonthsPerYear)
	summary.ProjectedAnnualRevenue = projected

	switch {
	case current >= target:
		zero := 0
		summary.MonthsToReachGoal = &zero
	case current <= 0:
		// nothing to extrapolate from
	case projected > current:
		growth := (projected - current) / current / constants.MonthsPerYear
		summary.ImpliedMonthlyGrowthRate = growth
		months := int(math.Ceil(math.Log(1+(target-current)/current) / math.Log(1+growth)))
		summary.MonthsToReachGoal = &months
	}

	return summary
}
