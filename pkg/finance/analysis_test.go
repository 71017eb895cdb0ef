package finance

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestBreakEvenReachable(t *testing.T) {
	record := BreakEven(BreakEvenInput{
		Month:     1,
		Date:      "2025-01",
		Flow:      Flow{Start: 100, End: 100},
		Revenue:   Revenue{Total: 10000},
		Costs:     Costs{Fixed: 8000, Variable: 500, Marketing: 1000, Capital: 500, Total: 10000},
		UnitPrice: 100,
		Profit:    0,
	})

	require.True(t, record.Reachable)
	require.NotNil(t, record.RequiredUsers)
	// margin = 100 - 5 = 95, required = 9500
	require.Equal(t, 100, *record.RequiredUsers)
	require.Equal(t, 95.0, record.ContributionMargin)
	require.Equal(t, 9500.0, record.RequiredRevenue)
	require.Equal(t, 10000.0, record.BreakEvenRevenue)
	require.True(t, record.IsBreakEven)
	require.True(t, record.RevenueCoversRequirement)
	require.Equal(t, 100.0, record.PercentToBreakEven)
}

func TestBreakEvenUnreachableMargin(t *testing.T) {
	record := BreakEven(BreakEvenInput{
		Flow:      Flow{Start: 10, End: 10},
		Revenue:   Revenue{Total: 50},
		Costs:     Costs{Fixed: 1000, Variable: 100, Total: 1100},
		UnitPrice: 5,
		Profit:    -1050,
	})

	require.False(t, record.Reachable)
	require.Nil(t, record.RequiredUsers)
	require.Zero(t, record.PercentToBreakEven)
	require.False(t, record.IsBreakEven)
}

func TestBreakEvenPercentIsClamped(t *testing.T) {
	record := BreakEven(BreakEvenInput{
		Flow:      Flow{Start: 1000, End: 1000},
		Revenue:   Revenue{Total: 100000},
		Costs:     Costs{Fixed: 1000, Total: 1000},
		UnitPrice: 100,
		Profit:    99000,
	})
	require.Equal(t, 100.0, record.PercentToBreakEven)

	zeroCost := BreakEven(BreakEvenInput{
		Flow:      Flow{Start: 0, End: 0},
		UnitPrice: 100,
	})
	require.True(t, zeroCost.Reachable)
	require.Equal(t, 0, *zeroCost.RequiredUsers)
	require.Equal(t, 100.0, zeroCost.PercentToBreakEven)
}

func flatSeries(revenues ...float64) []MonthlyRecord {
	monthly := make([]MonthlyRecord, len(revenues))
	for i, r := range revenues {
		monthly[i] = MonthlyRecord{Month: i + 1, Users: 100, Revenue: Revenue{Total: r}}
	}
	return monthly
}

func TestAnalyzeRevenueGoalAnnualization(t *testing.T) {
	short := AnalyzeRevenueGoal(flatSeries(1000, 1000, 1000), GoalParams{Target: 1000000, UnitPrice: 100})
	require.Equal(t, AnnualizationExtrapolated, short.AnnualizationMethod)
	require.Equal(t, 12000.0, short.CurrentAnnualRevenue)

	revenues := make([]float64, 18)
	for i := range revenues {
		revenues[i] = float64(i + 1)
	}
	long := AnalyzeRevenueGoal(flatSeries(revenues...), GoalParams{Target: 1000000, UnitPrice: 100})
	require.Equal(t, AnnualizationTrailing12, long.AnnualizationMethod)
	// 7 + 8 + ... + 18
	require.Equal(t, 150.0, long.CurrentAnnualRevenue)
}

func TestAnalyzeRevenueGoalRequiredUsers(t *testing.T) {
	summary := AnalyzeRevenueGoal(flatSeries(1000), GoalParams{
		Target:           1200000,
		MonthlyFixedCost: 20000,
		UnitPrice:        100,
	})

	require.Equal(t, 100000.0, summary.MonthlyGoal)
	require.NotNil(t, summary.RequiredUsersForGoal)
	require.Equal(t, 1200, *summary.RequiredUsersForGoal)
	require.Equal(t, 1100, summary.AdditionalUsersNeeded)
}

func TestAnalyzeRevenueGoalMonthsToGoal(t *testing.T) {
	tests := []struct {
		name     string
		revenues []float64
		target   float64
		expected *int
	}{
		{"Goal already met", []float64{100000, 100000}, 1000000, intPtr(0)},
		{"No revenue", []float64{0, 0, 0}, 1000000, nil},
		{"Flat trend", []float64{1000, 1000, 1000}, 1000000, nil},
		{"Declining trend", []float64{3000, 2000, 1000}, 1000000, nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			summary := AnalyzeRevenueGoal(flatSeries(tt.revenues...), GoalParams{Target: tt.target, UnitPrice: 50})
			if tt.expected == nil {
				require.Nil(t, summary.MonthsToReachGoal)
				return
			}
			require.NotNil(t, summary.MonthsToReachGoal)
			require.Equal(t, *tt.expected, *summary.MonthsToReachGoal)
		})
	}
}

func TestAnalyzeRevenueGoalRisingTrend(t *testing.T) {
	revenues := make([]float64, 12)
	for i := range revenues {
		revenues[i] = 1000 * float64(i+1)
	}
	summary := AnalyzeRevenueGoal(flatSeries(revenues...), GoalParams{Target: 1000000, UnitPrice: 100})

	require.Greater(t, summary.ProjectedAnnualRevenue, summary.CurrentAnnualRevenue)
	require.NotNil(t, summary.MonthsToReachGoal)
	require.Positive(t, *summary.MonthsToReachGoal)
	require.Positive(t, summary.ImpliedMonthlyGrowthRate)
}

func TestAnalyzeRevenueGoalZeroUnitPrice(t *testing.T) {
	summary := AnalyzeRevenueGoal(flatSeries(1000), GoalParams{Target: 1000000})
	require.Nil(t, summary.RequiredUsersForGoal)
	require.Zero(t, summary.AdditionalUsersNeeded)
}

func TestAnalyzeMarketing(t *testing.T) {
	monthly := []MonthlyRecord{
		{NewUsers: 20, PaidUsers: 12, Revenue: Revenue{Total: 10000}, Costs: Costs{Marketing: 2000}, LTV: 1600, PaybackMonths: 2},
		{NewUsers: 20, PaidUsers: 12, Revenue: Revenue{Total: 12000}, Costs: Costs{Marketing: 2000}, LTV: 1600, PaybackMonths: 4},
	}
	summary := AnalyzeMarketing(monthly, MarketingParams{ConversionRate: 0.1, LeadQualityScore: 70})

	require.Equal(t, 4000.0, summary.TotalSpend)
	require.Equal(t, 40, summary.TotalNewUsers)
	require.Equal(t, 100.0, summary.BlendedCAC)
	require.Equal(t, 1600.0, summary.BlendedLTV)
	require.Equal(t, 16.0, summary.LTVToCACRatio)
	require.Equal(t, 3.0, summary.AveragePaybackMonths)
	require.Equal(t, 4.5, summary.ROI)
	require.Equal(t, 240.0, summary.TotalLeads)
	require.Len(t, summary.Channels, len(DefaultChannels))

	spend, acquisitions := 0.0, 0.0
	for _, c := range summary.Channels {
		spend += c.Spend
		acquisitions += c.Acquisitions
	}
	require.InDelta(t, 4000, spend, 0.05)
	require.InDelta(t, 40, acquisitions, 0.05)
}

func TestAnalyzeMarketingWithoutSpend(t *testing.T) {
	summary := AnalyzeMarketing(flatSeries(100, 200), MarketingParams{})
	require.Zero(t, summary.BlendedCAC)
	require.Zero(t, summary.LTVToCACRatio)
	require.Zero(t, summary.ROI)
}

func TestChannelsFromSpend(t *testing.T) {
	channels := ChannelsFromSpend(map[string]float64{"content": 250, "performance": 750, "podcast": 0})
	require.Len(t, channels, 3)
	require.Equal(t, "content", channels[0].Name)
	require.Equal(t, 0.25, channels[0].Weight)
	require.Equal(t, 0.9, channels[0].Efficiency)
	require.Equal(t, "podcast", channels[2].Name)
	require.Equal(t, 1.0, channels[2].Efficiency)

	require.Equal(t, DefaultChannels, ChannelsFromSpend(nil))
}

func intPtr(v int) *int { return &v }
