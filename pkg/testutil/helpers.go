// Package testutil provides common configuration builders for tests.
package testutil

import (
	"github.com/iwvelando/saas-forecast/internal/config"
)

// Float returns a pointer to v.
func Float(v float64) *float64 {
	return &v
}

// FlatPattern returns a growth pattern of n identical entries.
func FlatPattern(n, value int) []int {
	pattern := make([]int, n)
	for i := range pattern {
		pattern[i] = value
	}
	return pattern
}

// BasicConfig returns a valid twelve-month basic configuration: 100 users at
// $50, 5% churn, 10 new users a month and $3,000 of fixed costs.
func BasicConfig() config.Configuration {
	return config.Configuration{
		Name:             "basic",
		Mode:             "basic",
		StartDate:        "2025-01",
		ProjectionMonths: 12,
		StartingCash:     Float(10000),
		FixedCosts: config.MonthlyFixedCosts{
			Infrastructure: 500,
			Salary:         2000,
			Hosting:        500,
		},
		Subscription: &config.SubscriptionConfig{
			PricePerUser:   50,
			ChurnRate:      Float(0.05),
			InitialUsers:   100,
			SeasonalGrowth: FlatPattern(12, 10),
		},
	}
}

// EnhancedConfig returns a valid twelve-month enhanced configuration with a
// marketing block.
func EnhancedConfig() config.Configuration {
	conf := BasicConfig()
	conf.Name = "enhanced"
	conf.Mode = "enhanced"
	conf.Subscription.GrowthRate = Float(0.2)
	conf.Subscription.UserChurnRate = Float(0.04)
	conf.Subscription.InfrastructureBase = 100
	conf.Marketing = &config.MarketingMetrics{
		MonthlySpend:     2000,
		CAC:              100,
		LTV:              900,
		ConversionRate:   0.05,
		LeadQualityScore: 65,
	}
	return conf
}

// HybridConfig returns a valid twelve-month hybrid configuration on the
// professional tier and moderate scenario.
func HybridConfig() config.Configuration {
	return config.Configuration{
		Name:             "hybrid",
		Mode:             "hybrid",
		StartDate:        "2025-01",
		ProjectionMonths: 12,
		StartingCash:     Float(50000),
		FixedCosts: config.MonthlyFixedCosts{
			Infrastructure: 1000,
			Salary:         8000,
		},
		Hybrid: &config.HybridConfig{
			Tier:              "professional",
			InitialTenants:    20,
			AvgUsersPerTenant: 25,
			AvgUsagePerTenant: 4000,
			Scenario:          "moderate",
			Addons:            []string{"advanced-analytics"},
		},
	}
}
