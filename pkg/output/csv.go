package output

import (
	"encoding/csv"
	"fmt"
	"io"
	"strconv"

	"github.com/iwvelando/saas-forecast/pkg/constants"
	"github.com/iwvelando/saas-forecast/pkg/finance"
	"github.com/shopspring/decimal"
)

// column maps one CSV column onto a field of T.
type column[T any] struct {
	name string
	get  func(*T) string
	set  func(*T, string) error
}

func intColumn[T any](name string, field func(*T) *int) column[T] {
	return column[T]{
		name: name,
		get:  func(r *T) string { return strconv.Itoa(*field(r)) },
		set: func(r *T, s string) error {
			v, err := strconv.Atoi(s)
			if err != nil {
				return err
			}
			*field(r) = v
			return nil
		},
	}
}

func optionalIntColumn[T any](name string, field func(*T) **int) column[T] {
	return column[T]{
		name: name,
		get: func(r *T) string {
			if p := *field(r); p != nil {
				return strconv.Itoa(*p)
			}
			return ""
		},
		set: func(r *T, s string) error {
			if s == "" {
				*field(r) = nil
				return nil
			}
			v, err := strconv.Atoi(s)
			if err != nil {
				return err
			}
			*field(r) = &v
			return nil
		},
	}
}

func moneyColumn[T any](name string, field func(*T) *float64) column[T] {
	return column[T]{
		name: name,
		get:  func(r *T) string { return formatMoney(*field(r)) },
		set: func(r *T, s string) error {
			v, err := parseMoney(s)
			if err != nil {
				return err
			}
			*field(r) = v
			return nil
		},
	}
}

// rateColumn keeps full float precision for unrounded ratios.
func rateColumn[T any](name string, field func(*T) *float64) column[T] {
	return column[T]{
		name: name,
		get:  func(r *T) string { return strconv.FormatFloat(*field(r), 'g', -1, 64) },
		set: func(r *T, s string) error {
			v, err := strconv.ParseFloat(s, 64)
			if err != nil {
				return err
			}
			*field(r) = v
			return nil
		},
	}
}

func boolColumn[T any](name string, field func(*T) *bool) column[T] {
	return column[T]{
		name: name,
		get:  func(r *T) string { return strconv.FormatBool(*field(r)) },
		set: func(r *T, s string) error {
			v, err := strconv.ParseBool(s)
			if err != nil {
				return err
			}
			*field(r) = v
			return nil
		},
	}
}

func stringColumn[T any](name string, field func(*T) *string) column[T] {
	return column[T]{
		name: name,
		get:  func(r *T) string { return *field(r) },
		set: func(r *T, s string) error {
			*field(r) = s
			return nil
		},
	}
}

func formatMoney(v float64) string {
	return decimal.NewFromFloat(v).StringFixed(constants.DecimalPlaces)
}

func parseMoney(s string) (float64, error) {
	d, err := decimal.NewFromString(s)
	if err != nil {
		return 0, err
	}
	v, _ := d.Float64()
	return v, nil
}

var monthlyColumns = []column[finance.MonthlyRecord]{
	intColumn("month", func(r *finance.MonthlyRecord) *int { return &r.Month }),
	stringColumn("date", func(r *finance.MonthlyRecord) *string { return &r.Date }),
	intColumn("startUsers", func(r *finance.MonthlyRecord) *int { return &r.StartUsers }),
	intColumn("users", func(r *finance.MonthlyRecord) *int { return &r.Users }),
	intColumn("newUsers", func(r *finance.MonthlyRecord) *int { return &r.NewUsers }),
	intColumn("paidUsers", func(r *finance.MonthlyRecord) *int { return &r.PaidUsers }),
	intColumn("organicUsers", func(r *finance.MonthlyRecord) *int { return &r.OrganicUsers }),
	intColumn("churnedUsers", func(r *finance.MonthlyRecord) *int { return &r.ChurnedUsers }),
	moneyColumn("averageUsers", func(r *finance.MonthlyRecord) *float64 { return &r.AverageUsers }),
	intColumn("totalUsers", func(r *finance.MonthlyRecord) *int { return &r.TotalUsers }),
	intColumn("churnedTotalUsers", func(r *finance.MonthlyRecord) *int { return &r.ChurnedTotalUsers }),
	moneyColumn("usersPerTenant", func(r *finance.MonthlyRecord) *float64 { return &r.UsersPerTenant }),
	moneyColumn("usagePerTenant", func(r *finance.MonthlyRecord) *float64 { return &r.UsagePerTenant }),
	moneyColumn("baseRevenue", func(r *finance.MonthlyRecord) *float64 { return &r.Revenue.Base }),
	moneyColumn("addonRevenue", func(r *finance.MonthlyRecord) *float64 { return &r.Revenue.Addon }),
	moneyColumn("userOverageRevenue", func(r *finance.MonthlyRecord) *float64 { return &r.Revenue.UserOverage }),
	moneyColumn("usageOverageRevenue", func(r *finance.MonthlyRecord) *float64 { return &r.Revenue.UsageOverage }),
	moneyColumn("totalRevenue", func(r *finance.MonthlyRecord) *float64 { return &r.Revenue.Total }),
	moneyColumn("fixedCosts", func(r *finance.MonthlyRecord) *float64 { return &r.Costs.Fixed }),
	moneyColumn("variableCosts", func(r *finance.MonthlyRecord) *float64 { return &r.Costs.Variable }),
	moneyColumn("marketingCosts", func(r *finance.MonthlyRecord) *float64 { return &r.Costs.Marketing }),
	moneyColumn("capitalCosts", func(r *finance.MonthlyRecord) *float64 { return &r.Costs.Capital }),
	moneyColumn("totalCosts", func(r *finance.MonthlyRecord) *float64 { return &r.Costs.Total }),
	moneyColumn("profit", func(r *finance.MonthlyRecord) *float64 { return &r.Profit }),
	moneyColumn("cash", func(r *finance.MonthlyRecord) *float64 { return &r.Cash }),
	moneyColumn("arpu", func(r *finance.MonthlyRecord) *float64 { return &r.ARPU }),
	moneyColumn("mrr", func(r *finance.MonthlyRecord) *float64 { return &r.MRR }),
	moneyColumn("cac", func(r *finance.MonthlyRecord) *float64 { return &r.CAC }),
	moneyColumn("ltv", func(r *finance.MonthlyRecord) *float64 { return &r.LTV }),
	moneyColumn("retentionRate", func(r *finance.MonthlyRecord) *float64 { return &r.RetentionRate }),
	moneyColumn("netRevenueRetention", func(r *finance.MonthlyRecord) *float64 { return &r.NetRevenueRetention }),
	moneyColumn("paybackMonths", func(r *finance.MonthlyRecord) *float64 { return &r.PaybackMonths }),
}

var breakEvenColumns = []column[finance.BreakEvenRecord]{
	intColumn("month", func(r *finance.BreakEvenRecord) *int { return &r.Month }),
	stringColumn("date", func(r *finance.BreakEvenRecord) *string { return &r.Date }),
	moneyColumn("requiredRevenue", func(r *finance.BreakEvenRecord) *float64 { return &r.RequiredRevenue }),
	moneyColumn("contributionMargin", func(r *finance.BreakEvenRecord) *float64 { return &r.ContributionMargin }),
	boolColumn("reachable", func(r *finance.BreakEvenRecord) *bool { return &r.Reachable }),
	optionalIntColumn("requiredUsers", func(r *finance.BreakEvenRecord) **int { return &r.RequiredUsers }),
	moneyColumn("breakEvenRevenue", func(r *finance.BreakEvenRecord) *float64 { return &r.BreakEvenRevenue }),
	moneyColumn("actualRevenue", func(r *finance.BreakEvenRecord) *float64 { return &r.ActualRevenue }),
	boolColumn("isBreakEven", func(r *finance.BreakEvenRecord) *bool { return &r.IsBreakEven }),
	boolColumn("revenueCoversRequirement", func(r *finance.BreakEvenRecord) *bool { return &r.RevenueCoversRequirement }),
	moneyColumn("percentToBreakEven", func(r *finance.BreakEvenRecord) *float64 { return &r.PercentToBreakEven }),
}

var goalColumns = []column[finance.RevenueGoalSummary]{
	moneyColumn("target", func(r *finance.RevenueGoalSummary) *float64 { return &r.Target }),
	moneyColumn("currentAnnualRevenue", func(r *finance.RevenueGoalSummary) *float64 { return &r.CurrentAnnualRevenue }),
	stringColumn("annualizationMethod", func(r *finance.RevenueGoalSummary) *string { return &r.AnnualizationMethod }),
	moneyColumn("monthlyGoal", func(r *finance.RevenueGoalSummary) *float64 { return &r.MonthlyGoal }),
	optionalIntColumn("requiredUsersForGoal", func(r *finance.RevenueGoalSummary) **int { return &r.RequiredUsersForGoal }),
	intColumn("additionalUsersNeeded", func(r *finance.RevenueGoalSummary) *int { return &r.AdditionalUsersNeeded }),
	moneyColumn("progressPercentage", func(r *finance.RevenueGoalSummary) *float64 { return &r.ProgressPercentage }),
	moneyColumn("projectedAnnualRevenue", func(r *finance.RevenueGoalSummary) *float64 { return &r.ProjectedAnnualRevenue }),
	rateColumn("impliedMonthlyGrowthRate", func(r *finance.RevenueGoalSummary) *float64 { return &r.ImpliedMonthlyGrowthRate }),
	optionalIntColumn("monthsToReachGoal", func(r *finance.RevenueGoalSummary) **int { return &r.MonthsToReachGoal }),
}

// WriteMonthlyCSV writes one row per monthly record under a header row.
func WriteMonthlyCSV(w io.Writer, records []finance.MonthlyRecord) error {
	return writeRows(w, monthlyColumns, records)
}

// ReadMonthlyCSV parses the output of WriteMonthlyCSV.
func ReadMonthlyCSV(r io.Reader) ([]finance.MonthlyRecord, error) {
	return readRows(r, monthlyColumns)
}

// WriteBreakEvenCSV writes one row per break-even record under a header row.
func WriteBreakEvenCSV(w io.Writer, records []finance.BreakEvenRecord) error {
	return writeRows(w, breakEvenColumns, records)
}

// ReadBreakEvenCSV parses the output of WriteBreakEvenCSV.
func ReadBreakEvenCSV(r io.Reader) ([]finance.BreakEvenRecord, error) {
	return readRows(r, breakEvenColumns)
}

// WriteGoalCSV writes the revenue goal summary as a header and a single row.
func WriteGoalCSV(w io.Writer, goal finance.RevenueGoalSummary) error {
	return writeRows(w, goalColumns, []finance.RevenueGoalSummary{goal})
}

// ReadGoalCSV parses the output of WriteGoalCSV.
func ReadGoalCSV(r io.Reader) (finance.RevenueGoalSummary, error) {
	goals, err := readRows(r, goalColumns)
	if err != nil {
		return finance.RevenueGoalSummary{}, err
	}
	if len(goals) != 1 {
		return finance.RevenueGoalSummary{}, fmt.Errorf("expected one revenue goal row, got %d", len(goals))
	}
	return goals[0], nil
}

func writeRows[T any](w io.Writer, columns []column[T], rows []T) error {
	cw := csv.NewWriter(w)

	header := make([]string, len(columns))
	for i, col := range columns {
		header[i] = col.name
	}
	if err := cw.Write(header); err != nil {
		return err
	}

	line := make([]string, len(columns))
	for i := range rows {
		for j, col := range columns {
			line[j] = col.get(&rows[i])
		}
		if err := cw.Write(line); err != nil {
			return err
		}
	}

	cw.Flush()
	return cw.Error()
}

func readRows[T any](r io.Reader, columns []column[T]) ([]T, error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = len(columns)

	lines, err := cr.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("failed to read CSV: %w", err)
	}
	if len(lines) == 0 {
		return nil, fmt.Errorf("missing CSV header")
	}
	for i, col := range columns {
		if lines[0][i] != col.name {
			return nil, fmt.Errorf("unexpected CSV column %d: expected %q, got %q", i+1, col.name, lines[0][i])
		}
	}

	rows := make([]T, len(lines)-1)
	for i, line := range lines[1:] {
		for j, col := range columns {
			if err := col.set(&rows[i], line[j]); err != nil {
				return nil, fmt.Errorf("row %d column %s: %w", i+1, col.name, err)
			}
		}
	}
	return rows, nil
}
