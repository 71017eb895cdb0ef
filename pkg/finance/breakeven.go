package finance

import (
	"math"

	"github.com/iwvelando/saas-forecast/pkg/mathutil"
)

// maxRequiredUsers bounds the break-even user count; a margin so thin that it
// needs more users than this is treated as unreachable.
const maxRequiredUsers = 1e12

// BreakEvenInput carries the raw figures for one period.
type BreakEvenInput struct {
	Month     int
	Date      string
	Flow      Flow
	Revenue   Revenue
	Costs     Costs
	UnitPrice float64
	Profit    float64
}

// BreakEven derives the users and revenue a period needs to cover its fixed,
// capital and marketing costs at the period's contribution margin.
//
// IsBreakEven follows the sign of the emitted profit and is computed
// independently of RevenueCoversRequirement; both are reported.
func BreakEven(in BreakEvenInput) BreakEvenRecord {
	required := in.Costs.Fixed + in.Costs.Capital + in.Costs.Marketing

	variablePerUser := 0.0
	if avg := in.Flow.Average(); avg > 0 {
		variablePerUser = in.Costs.Variable / avg
	}
	margin := in.UnitPrice - variablePerUser

	record := BreakEvenRecord{
		Month:              in.Month,
		Date:               in.Date,
		RequiredRevenue:    mathutil.Round(required),
		ContributionMargin: mathutil.Round(margin),
		ActualRevenue:      mathutil.Round(in.Revenue.Total),
		IsBreakEven:        mathutil.Round(in.Profit) >= 0,
	}

	if margin <= 0 || math.IsNaN(margin) {
		return record
	}

	users := 0.0
	if required > 0 {
		users = math.Ceil(required / margin)
	}
	if users > maxRequiredUsers {
		return record
	}

	requiredUsers := int(users)
	breakEvenRevenue := float64(requiredUsers) * in.UnitPrice

	record.Reachable = true
	record.RequiredUsers = &requiredUsers
	record.BreakEvenRevenue = mathutil.Round(breakEvenRevenue)
	record.RevenueCoversRequirement = record.ActualRevenue >= record.BreakEvenRevenue
	if breakEvenRevenue <= 0 {
		record.PercentToBreakEven = 100
	} else {
		record.PercentToBreakEven = mathutil.Round(mathutil.ClampPercent(in.Revenue.Total / breakEvenRevenue * 100))
	}
	return record
}
