package forecast

import (
	"fmt"

	"github.com/iwvelando/saas-forecast/internal/config"
	"github.com/iwvelando/saas-forecast/pkg/constants"
	"github.com/iwvelando/saas-forecast/pkg/mathutil"
)

// Finding severities.
const (
	SeverityError   = "error"
	SeverityWarning = "warning"
)

// cashTolerance absorbs the independent rounding of cash and profit.
const cashTolerance = 0.011

// Finding is one failed self-test check.
type Finding struct {
	Check    string `json:"check"`
	Severity string `json:"severity"`
	Message  string `json:"message"`
}

// SelfTest checks a finished result for internal consistency and returns the
// checks that failed. An empty result means every check passed.
func SelfTest(result *Result, conf config.Configuration) []Finding {
	if result == nil {
		return []Finding{{Check: "result present", Severity: SeverityError, Message: "no result to check"}}
	}
	var findings []Finding
	add := func(check, severity, format string, args ...interface{}) {
		findings = append(findings, Finding{Check: check, Severity: severity, Message: fmt.Sprintf(format, args...)})
	}

	horizon := conf.ProjectionMonths
	if horizon == 0 {
		horizon = constants.DefaultProjectionMonths
	}
	if len(result.MonthlyData) != horizon {
		add("monthly data length", SeverityError, "expected %d periods, got %d", horizon, len(result.MonthlyData))
	}
	if len(result.BreakEvenData) != len(result.MonthlyData) {
		add("break-even data length", SeverityError, "expected %d break-even records, got %d",
			len(result.MonthlyData), len(result.BreakEvenData))
	}
	if result.Summary.TotalRevenue <= 0 {
		add("total revenue positive", SeverityError, "total revenue is %.2f", result.Summary.TotalRevenue)
	}

	var disagreements, firstDisagreement int
	previous := 0.0
	if conf.StartingCash != nil {
		previous = *conf.StartingCash
	}
	for i, m := range result.MonthlyData {
		if !mathutil.WithinTolerance(m.Cash, previous+m.Profit, cashTolerance) {
			add("cash identity", SeverityError, "month %d cash %.2f != %.2f + %.2f", m.Month, m.Cash, previous, m.Profit)
		}
		previous = m.Cash

		for _, v := range []float64{m.Cash, m.Profit, m.Revenue.Total, m.Costs.Total} {
			if !mathutil.HasAtMostTwoDecimals(v) {
				add("money in cents", SeverityError, "month %d carries unrounded amount %v", m.Month, v)
				break
			}
		}

		if m.Users < 0 || m.NewUsers < 0 || m.ChurnedUsers < 0 || m.TotalUsers < 0 {
			add("non-negative counts", SeverityError, "month %d has a negative count", m.Month)
		}

		if i >= len(result.BreakEvenData) {
			continue
		}
		b := result.BreakEvenData[i]
		if b.IsBreakEven != (m.Profit >= 0) {
			add("break-even flag", SeverityError, "month %d isBreakEven=%t with profit %.2f", m.Month, b.IsBreakEven, m.Profit)
		}
		if b.Reachable && b.IsBreakEven != b.RevenueCoversRequirement {
			if disagreements == 0 {
				firstDisagreement = m.Month
			}
			disagreements++
		}
		if b.PercentToBreakEven < 0 || b.PercentToBreakEven > 100 {
			add("break-even percent", SeverityError, "month %d percent %.2f outside [0, 100]", m.Month, b.PercentToBreakEven)
		}
	}

	if disagreements > 0 {
		add("break-even agreement", SeverityWarning,
			"profit sign and break-even revenue disagree in %d months, first in month %d", disagreements, firstDisagreement)
	}
	if ma := result.MarketingAnalytics; ma != nil && ma.BlendedCAC > 0 && ma.LTVToCACRatio < constants.HealthyLTVToCACRatio {
		add("LTV/CAC ratio", SeverityWarning, "blended LTV/CAC %.2f is below %.0f", ma.LTVToCACRatio, constants.HealthyLTVToCACRatio)
	}

	return findings
}

// HasErrors reports whether any finding is an error.
func HasErrors(findings []Finding) bool {
	for _, f := range findings {
		if f.Severity == SeverityError {
			return true
		}
	}
	return false
}
