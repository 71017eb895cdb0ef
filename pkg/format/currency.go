// Package format renders money and rates for display.
package format

import (
	"math"

	"golang.org/x/text/language"
	"golang.org/x/text/message"
)

var printer = message.NewPrinter(language.English)

// Currency returns a currency string with a dollar sign and thousands separators (e.g., "-$1,234.56").
func Currency(amount float64) string {
	formatted := NumericCurrency(math.Abs(amount))
	if amount < 0 && formatted != "0.00" {
		return "-$" + formatted
	}
	return "$" + formatted
}

// NumericCurrency returns a currency string without a currency symbol but with separators (e.g., "-1,234.56").
func NumericCurrency(amount float64) string {
	return printer.Sprintf("%.2f", amount)
}

// Percent returns a percentage with two decimals (e.g., "12.50%").
func Percent(pct float64) string {
	return printer.Sprintf("%.2f%%", pct)
}

// Count returns an integer with thousands separators.
func Count(n int) string {
	return printer.Sprintf("%d", n)
}
