// Package adapters converts configuration into the models and parameters the
// finance engine runs on.
package adapters

import (
	"fmt"

	"github.com/iwvelando/saas-forecast/internal/config"
	"github.com/iwvelando/saas-forecast/pkg/constants"
	"github.com/iwvelando/saas-forecast/pkg/finance"
)

// StrategyFromConfig selects and builds the growth, revenue and cost models
// for the configuration's mode.
func StrategyFromConfig(conf config.Configuration) (finance.Strategy, error) {
	conf = conf.Clone()
	conf.ApplyDefaults()
	if err := conf.CheckMode(); err != nil {
		return finance.Strategy{}, err
	}

	switch conf.Mode {
	case constants.ModeBasic:
		return basicStrategy(conf)
	case constants.ModeEnhanced:
		return enhancedStrategy(conf)
	default:
		return hybridStrategy(conf)
	}
}

func costModel(conf config.Configuration, variable finance.VariableCostModel) finance.CostModel {
	return finance.CostModel{
		Fixed: finance.FixedCosts{
			Infrastructure: conf.FixedCosts.Infrastructure,
			Salary:         conf.FixedCosts.Salary,
			Support:        conf.FixedCosts.Support,
			Wages:          conf.FixedCosts.Wages,
			Hosting:        conf.FixedCosts.Hosting,
		},
		MarketingSpend:   conf.MarketingSpend(),
		CapitalPurchases: conf.CapitalPurchases,
		Variable:         variable,
	}
}

func flatRevenue(s *config.SubscriptionConfig) finance.FlatRevenue {
	return finance.FlatRevenue{
		PricePerUser:     s.PricePerUser,
		AddonCount:       len(s.EnabledAddons),
		AddonBaseFee:     s.AddonPricing.BaseFee,
		AddonPerUserRate: s.AddonPricing.PerUserRate,
	}
}

func basicStrategy(conf config.Configuration) (finance.Strategy, error) {
	s := conf.Subscription
	if s == nil {
		return finance.Strategy{}, fmt.Errorf("%s mode requires a subscription block", conf.Mode)
	}
	churn := 0.0
	if s.ChurnRate != nil {
		churn = *s.ChurnRate
	}
	growth, err := finance.NewBasicGrowth(s.InitialUsers, churn, s.SeasonalGrowth)
	if err != nil {
		return finance.Strategy{}, err
	}
	return finance.Strategy{
		Growth:  growth,
		Revenue: flatRevenue(s),
		Cost:    costModel(conf, finance.PerUserVariableCost{Rate: *s.VariableCostPerUser}),
	}, nil
}

func enhancedStrategy(conf config.Configuration) (finance.Strategy, error) {
	s := conf.Subscription
	if s == nil {
		return finance.Strategy{}, fmt.Errorf("%s mode requires a subscription block", conf.Mode)
	}

	input := finance.MarketingGrowth{
		InitialUsers:   s.InitialUsers,
		ChurnRate:      s.EffectiveChurnRate(),
		Pattern:        s.SeasonalGrowth,
		MarketingSpend: conf.MarketingSpend(),
	}
	if s.GrowthRate != nil {
		input.GrowthRate = *s.GrowthRate
	}
	if m := conf.Marketing; m != nil {
		input.CAC = m.CAC
		input.PaidShare = *m.PaidShare
	}
	growth, err := finance.NewMarketingGrowth(input)
	if err != nil {
		return finance.Strategy{}, err
	}

	return finance.Strategy{
		Growth:  growth,
		Revenue: flatRevenue(s),
		Cost: costModel(conf, finance.ScaledInfrastructureCost{
			Rate: *s.VariableCostPerUser,
			Base: s.InfrastructureBase,
			Step: *s.InfrastructureStep,
		}),
	}, nil
}

func hybridStrategy(conf config.Configuration) (finance.Strategy, error) {
	h := conf.Hybrid
	if h == nil {
		return finance.Strategy{}, fmt.Errorf("%s mode requires a hybrid block", conf.Mode)
	}
	tier, err := h.ResolveTier()
	if err != nil {
		return finance.Strategy{}, err
	}
	scenario, err := h.ResolveScenario()
	if err != nil {
		return finance.Strategy{}, err
	}
	addons, err := h.ResolveAddonPrices()
	if err != nil {
		return finance.Strategy{}, err
	}

	return finance.Strategy{
		Growth: &finance.TenantGrowth{
			InitialTenants:   h.InitialTenants,
			UsersPerTenant:   h.AvgUsersPerTenant,
			UsagePerTenant:   h.AvgUsagePerTenant,
			TenantGrowthRate: scenario.TenantGrowthRate,
			UserGrowthRate:   scenario.UserGrowthRate,
			UsageGrowthRate:  scenario.UsageGrowthRate,
			ChurnRate:        scenario.ChurnRate,
			UserChurnDamping: *h.UserChurnDamping,
		},
		Revenue: finance.TieredRevenue{
			Tier: finance.Tier{
				Name:             tier.Name,
				BaseFee:          tier.BaseFee,
				IncludedUsers:    tier.IncludedUsers,
				PerUserRate:      tier.PerUserRate,
				IncludedUsage:    tier.IncludedUsage,
				UsageOverageRate: tier.UsageOverageRate,
			},
			AddonPrices: addons,
		},
		Cost: costModel(conf, finance.RevenueShareCost{Percent: *h.VariableCostPercent}),
	}, nil
}

// ChurnRate is the entity churn rate the configuration projects with.
func ChurnRate(conf config.Configuration) float64 {
	switch conf.Mode {
	case constants.ModeHybrid:
		if scenario, err := conf.Hybrid.ResolveScenario(); err == nil {
			return scenario.ChurnRate
		}
		return 0
	case constants.ModeEnhanced:
		return conf.Subscription.EffectiveChurnRate()
	default:
		if conf.Subscription != nil && conf.Subscription.ChurnRate != nil {
			return *conf.Subscription.ChurnRate
		}
		return 0
	}
}

// RunParamsFromConfig builds the engine run parameters. The start date must
// already be set.
func RunParamsFromConfig(conf config.Configuration) (finance.RunParams, error) {
	if conf.StartDate == "" {
		return finance.RunParams{}, fmt.Errorf("start date is required")
	}
	if conf.StartingCash == nil {
		return finance.RunParams{}, fmt.Errorf("starting cash is required")
	}
	months := conf.ProjectionMonths
	if months == 0 {
		months = constants.DefaultProjectionMonths
	}
	return finance.RunParams{
		StartDate:    conf.StartDate,
		Months:       months,
		StartingCash: *conf.StartingCash,
		ChurnRate:    ChurnRate(conf),
	}, nil
}

// GoalParamsFromConfig builds the revenue goal inputs. In hybrid mode the
// unit price is the last period's per-tenant ARPU.
func GoalParamsFromConfig(conf config.Configuration, monthly []finance.MonthlyRecord) finance.GoalParams {
	params := finance.GoalParams{
		Target:           constants.RevenueGoalTarget,
		MonthlyFixedCost: conf.FixedCosts.Total() + conf.MarketingSpend(),
	}
	if conf.Mode == constants.ModeHybrid {
		if n := len(monthly); n > 0 {
			params.UnitPrice = monthly[n-1].ARPU
		}
	} else if conf.Subscription != nil {
		params.UnitPrice = conf.Subscription.PricePerUser
	}
	return params
}

// HasMarketing reports whether marketing analytics apply to the
// configuration.
func HasMarketing(conf config.Configuration) bool {
	return conf.Marketing != nil || conf.MarketingSpend() > 0
}

// MarketingParamsFromConfig builds the marketing analytics inputs.
func MarketingParamsFromConfig(conf config.Configuration) finance.MarketingParams {
	m := conf.Marketing
	if m == nil {
		return finance.MarketingParams{Channels: finance.DefaultChannels}
	}
	return finance.MarketingParams{
		ConversionRate:   m.ConversionRate,
		LeadQualityScore: m.LeadQualityScore,
		Channels:         finance.ChannelsFromSpend(m.SpendByChannel),
	}
}
