// Package output renders projection results as a table, CSV or JSON.
package output

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"github.com/iwvelando/saas-forecast/internal/forecast"
	"github.com/iwvelando/saas-forecast/pkg/constants"
	"github.com/iwvelando/saas-forecast/pkg/format"
	"golang.org/x/text/language"
	"golang.org/x/text/message"
)

// Write renders result in the named output format.
func Write(w io.Writer, outputFormat string, result *forecast.Result) error {
	switch outputFormat {
	case constants.OutputFormatPretty, "":
		return PrettyFormat(w, result)
	case constants.OutputFormatCSV:
		return CsvFormat(w, result)
	case constants.OutputFormatJSON:
		return JSONFormat(w, result)
	default:
		return fmt.Errorf("unsupported output format %q", outputFormat)
	}
}

// PrettyFormat outputs a human-readable rather than machine-readable report.
func PrettyFormat(w io.Writer, result *forecast.Result) error {
	p := message.NewPrinter(language.English)
	var b strings.Builder

	title := result.Name
	if title == "" {
		title = "projection"
	}
	fmt.Fprintf(&b, "--- Results for %s (%s mode, %d months from %s) ---\n",
		title, result.Mode, result.ProjectionMonths, result.StartDate)

	usersHeader := "Users"
	if result.Mode == constants.ModeHybrid {
		usersHeader = "Tenants"
	}
	fmt.Fprintf(&b, "%-7s | %8s | %6s | %7s | %14s | %14s | %14s | %15s\n",
		"Date", usersHeader, "New", "Churned", "Revenue", "Expenses", "Profit", "Cash")
	fmt.Fprintf(&b, "%s\n", strings.Repeat("_", 102))
	for _, m := range result.MonthlyData {
		_, _ = p.Fprintf(&b, "%-7s | %8d | %6d | %7d | %14s | %14s | %14s | %15s\n",
			m.Date, m.Users, m.NewUsers, m.ChurnedUsers,
			format.Currency(m.Revenue.Total),
			format.Currency(m.Costs.Total),
			format.Currency(m.Profit),
			format.Currency(m.Cash),
		)
	}

	s := result.Summary
	fmt.Fprintf(&b, "\nSummary\n")
	fmt.Fprintf(&b, "  Total revenue:          %s\n", format.Currency(s.TotalRevenue))
	fmt.Fprintf(&b, "  Total expenses:         %s\n", format.Currency(s.TotalExpenses))
	fmt.Fprintf(&b, "  Total profit:           %s\n", format.Currency(s.TotalProfit))
	fmt.Fprintf(&b, "  Average monthly profit: %s\n", format.Currency(s.AverageMonthlyProfit))
	fmt.Fprintf(&b, "  Final cash:             %s\n", format.Currency(s.FinalCash))
	fmt.Fprintf(&b, "  Minimum cash:           %s (month %d)\n", format.Currency(s.MinimumCash), s.MinimumCashMonth)
	fmt.Fprintf(&b, "  Peak %s:%s%s\n", strings.ToLower(usersHeader), strings.Repeat(" ", 18-len(usersHeader)), format.Count(s.MaxUsers))
	if result.Mode == constants.ModeHybrid {
		fmt.Fprintf(&b, "  Peak total users:       %s\n", format.Count(s.MaxTotalUsers))
	}
	fmt.Fprintf(&b, "  Break-even month:       %s\n", monthOrNever(s.BreakEvenMonth))
	fmt.Fprintf(&b, "  First negative cash:    %s\n", monthOrNever(s.FirstNegativeCashMonth))

	g := result.RevenueGoalData
	fmt.Fprintf(&b, "\nRevenue goal (%s)\n", format.Currency(g.Target))
	fmt.Fprintf(&b, "  Current annual revenue: %s (%s)\n", format.Currency(g.CurrentAnnualRevenue), g.AnnualizationMethod)
	fmt.Fprintf(&b, "  Progress:               %s\n", format.Percent(g.ProgressPercentage))
	if g.RequiredUsersForGoal != nil {
		fmt.Fprintf(&b, "  Users required:         %s (%s more)\n", format.Count(*g.RequiredUsersForGoal), format.Count(g.AdditionalUsersNeeded))
	}
	fmt.Fprintf(&b, "  Months to goal:         %s\n", monthOrNever(g.MonthsToReachGoal))

	if ma := result.MarketingAnalytics; ma != nil {
		fmt.Fprintf(&b, "\nMarketing\n")
		fmt.Fprintf(&b, "  Total spend:            %s\n", format.Currency(ma.TotalSpend))
		fmt.Fprintf(&b, "  New users:              %s\n", format.Count(ma.TotalNewUsers))
		fmt.Fprintf(&b, "  Blended CAC / LTV:      %s / %s (ratio %.2f)\n", format.Currency(ma.BlendedCAC), format.Currency(ma.BlendedLTV), ma.LTVToCACRatio)
		fmt.Fprintf(&b, "  ROI:                    %s\n", format.Percent(ma.ROI))
		for _, ch := range ma.Channels {
			fmt.Fprintf(&b, "    %-12s %s spend, %.1f acquisitions, ROI %s\n", ch.Name, format.Currency(ch.Spend), ch.Acquisitions, format.Percent(ch.ROI))
		}
	}

	for _, opt := range result.Optimizations {
		status := "converged"
		if !opt.Converged {
			status = "not converged"
		}
		fmt.Fprintf(&b, "\nOptimized %s: %s -> %s (minimum cash %s, %s after %d iterations)\n",
			opt.Field, opt.OriginalDisplay, opt.ValueDisplay, format.Currency(opt.MinimumCash), status, opt.Iterations)
		for _, note := range opt.Notes {
			fmt.Fprintf(&b, "  note: %s\n", note)
		}
	}

	if len(result.Warnings) > 0 {
		fmt.Fprintf(&b, "\nWarnings\n")
		for _, warning := range result.Warnings {
			fmt.Fprintf(&b, "  - %s\n", warning)
		}
	}
	if len(result.Findings) > 0 {
		fmt.Fprintf(&b, "\nSelf-test findings\n")
		for _, f := range result.Findings {
			fmt.Fprintf(&b, "  [%s] %s: %s\n", f.Severity, f.Check, f.Message)
		}
	}

	_, err := io.WriteString(w, b.String())
	return err
}

// CsvFormat outputs the monthly series in comma-separated value format.
func CsvFormat(w io.Writer, result *forecast.Result) error {
	return WriteMonthlyCSV(w, result.MonthlyData)
}

// JSONFormat outputs the whole result as indented JSON.
func JSONFormat(w io.Writer, result *forecast.Result) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(result)
}

func monthOrNever(month *int) string {
	if month == nil {
		return "not reached"
	}
	return fmt.Sprintf("%d", *month)
}
