// Package forecast runs end-to-end projections: it validates a
// configuration, selects the engine strategy for its mode, runs the period
// loop and assembles the analyses into a Result.
package forecast

import (
	"errors"
	"fmt"
	"strings"

	"github.com/iwvelando/saas-forecast/internal/config"
	"github.com/iwvelando/saas-forecast/pkg/adapters"
	"github.com/iwvelando/saas-forecast/pkg/constants"
	"github.com/iwvelando/saas-forecast/pkg/finance"
	"github.com/iwvelando/saas-forecast/pkg/mathutil"
	"github.com/iwvelando/saas-forecast/pkg/optimization"
	"go.uber.org/zap"
)

// Result holds everything computed for one projection.
type Result struct {
	Name               string                             `json:"name,omitempty"`
	Mode               string                             `json:"mode"`
	StartDate          string                             `json:"startDate"`
	ProjectionMonths   int                                `json:"projectionMonths"`
	MonthlyData        []finance.MonthlyRecord            `json:"monthlyData"`
	BreakEvenData      []finance.BreakEvenRecord          `json:"breakEvenData"`
	RevenueGoalData    finance.RevenueGoalSummary         `json:"revenueGoalData"`
	MarketingAnalytics *finance.MarketingAnalyticsSummary `json:"marketingAnalytics,omitempty"`
	Summary            Summary                            `json:"summary"`
	Warnings           []string                           `json:"warnings,omitempty"`
	Findings           []Finding                          `json:"findings,omitempty"`
	Optimizations      []optimization.Summary             `json:"optimizations,omitempty"`
}

// Summary holds run totals over the monthly series.
type Summary struct {
	TotalRevenue           float64 `json:"totalRevenue"`
	TotalExpenses          float64 `json:"totalExpenses"`
	TotalProfit            float64 `json:"totalProfit"`
	FinalCash              float64 `json:"finalCash"`
	BreakEvenMonth         *int    `json:"breakEvenMonth"`
	MaxUsers               int     `json:"maxUsers"`
	MaxTotalUsers          int     `json:"maxTotalUsers"`
	AverageMonthlyProfit   float64 `json:"averageMonthlyProfit"`
	MinimumCash            float64 `json:"minimumCash"`
	MinimumCashMonth       int     `json:"minimumCashMonth"`
	FirstNegativeCashMonth *int    `json:"firstNegativeCashMonth"`
}

// ValidationError reports why a configuration was rejected before
// projection.
type ValidationError struct {
	Problems []string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid configuration: %s", strings.Join(e.Problems, "; "))
}

// IsValidationError reports whether err wraps a *ValidationError.
func IsValidationError(err error) bool {
	var ve *ValidationError
	return errors.As(err, &ve)
}

// GetForecast computes the projection for a configuration. The start date
// must be set; callers fill it with config.ParseStartDate.
//
// Structural problems (unknown mode, tier or scenario) are returned as
// wrapped sentinel errors; everything else the validator reports is returned
// as a *ValidationError.
func GetForecast(logger *zap.Logger, conf config.Configuration) (*Result, error) {
	if logger == nil {
		logger = zap.NewNop()
	}

	conf = conf.Clone()
	conf.ApplyDefaults()

	if err := checkStructure(conf); err != nil {
		return nil, err
	}
	if problems := conf.Validate(); len(problems) > 0 {
		return nil, &ValidationError{Problems: problems}
	}
	if conf.StartDate == "" {
		return nil, &ValidationError{Problems: []string{"startDate is required"}}
	}

	strategy, err := adapters.StrategyFromConfig(conf)
	if err != nil {
		return nil, fmt.Errorf("building %s strategy: %w", conf.Mode, err)
	}
	params, err := adapters.RunParamsFromConfig(conf)
	if err != nil {
		return nil, err
	}
	engine, err := finance.NewForecastEngine(logger, strategy)
	if err != nil {
		return nil, err
	}
	monthly, breakEven, err := engine.Run(params)
	if err != nil {
		return nil, fmt.Errorf("running %s projection: %w", conf.Mode, err)
	}

	result := &Result{
		Name:             conf.Name,
		Mode:             conf.Mode,
		StartDate:        conf.StartDate,
		ProjectionMonths: params.Months,
		MonthlyData:      monthly,
		BreakEvenData:    breakEven,
		RevenueGoalData:  finance.AnalyzeRevenueGoal(monthly, adapters.GoalParamsFromConfig(conf, monthly)),
		Summary:          Summarize(monthly, breakEven),
		Warnings:         conf.Warnings(),
	}
	if adapters.HasMarketing(conf) {
		analytics := finance.AnalyzeMarketing(monthly, adapters.MarketingParamsFromConfig(conf))
		result.MarketingAnalytics = &analytics
	}
	result.Findings = SelfTest(result, conf)

	for _, w := range result.Warnings {
		logger.Warn(w,
			zap.String("op", "forecast.GetForecast"),
			zap.String("name", conf.Name),
		)
	}
	logger.Info("projection complete",
		zap.String("op", "forecast.GetForecast"),
		zap.String("name", conf.Name),
		zap.String("mode", conf.Mode),
		zap.Int("months", params.Months),
		zap.Float64("finalCash", result.Summary.FinalCash),
		zap.Int("findings", len(result.Findings)),
	)

	return result, nil
}

// checkStructure rejects identifiers the engine cannot resolve.
func checkStructure(conf config.Configuration) error {
	if err := conf.CheckMode(); err != nil {
		return err
	}
	if conf.Mode != constants.ModeHybrid || conf.Hybrid == nil {
		return nil
	}
	if conf.Hybrid.Tier != "" {
		if _, err := conf.Hybrid.ResolveTier(); err != nil {
			return err
		}
	}
	if conf.Hybrid.Scenario != "" {
		if _, err := conf.Hybrid.ResolveScenario(); err != nil {
			return err
		}
	}
	if _, err := conf.Hybrid.ResolveAddonPrices(); err != nil {
		return err
	}
	return nil
}

// Summarize totals the monthly series.
func Summarize(monthly []finance.MonthlyRecord, breakEven []finance.BreakEvenRecord) Summary {
	var s Summary
	if len(monthly) == 0 {
		return s
	}

	s.MinimumCash = monthly[0].Cash
	s.MinimumCashMonth = monthly[0].Month
	for _, m := range monthly {
		s.TotalRevenue += m.Revenue.Total
		s.TotalExpenses += m.Costs.Total
		s.TotalProfit += m.Profit
		if m.Users > s.MaxUsers {
			s.MaxUsers = m.Users
		}
		if m.TotalUsers > s.MaxTotalUsers {
			s.MaxTotalUsers = m.TotalUsers
		}
		if m.Cash < s.MinimumCash {
			s.MinimumCash = m.Cash
			s.MinimumCashMonth = m.Month
		}
		if m.Cash < 0 && s.FirstNegativeCashMonth == nil {
			month := m.Month
			s.FirstNegativeCashMonth = &month
		}
	}
	for _, b := range breakEven {
		if b.IsBreakEven {
			month := b.Month
			s.BreakEvenMonth = &month
			break
		}
	}

	s.TotalRevenue = mathutil.Round(s.TotalRevenue)
	s.TotalExpenses = mathutil.Round(s.TotalExpenses)
	s.TotalProfit = mathutil.Round(s.TotalProfit)
	s.FinalCash = monthly[len(monthly)-1].Cash
	s.AverageMonthlyProfit = mathutil.Round(s.TotalProfit / float64(len(monthly)))
	return s
}
