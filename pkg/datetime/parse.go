// Package datetime provides date and time utility functions.
package datetime

import (
	"fmt"
	"time"

	"github.com/iwvelando/saas-forecast/pkg/constants"
)

const (
	// DateTimeLayout is the format expected in config files and is also the output
	// date format.
	DateTimeLayout = constants.DateTimeLayout
)

// OffsetDate returns the string-formatted date offset by the given number of
// months relative to the given date.
func OffsetDate(date, layout string, months int) (string, error) {
	t, err := time.Parse(layout, date)
	if err != nil {
		return date, err
	}
	return t.AddDate(0, months, 0).Format(layout), nil
}

// MonthSeries returns count consecutive month labels starting at start.
func MonthSeries(start string, count int) ([]string, error) {
	if count < 0 {
		return nil, fmt.Errorf("month count cannot be negative: %d", count)
	}
	series := make([]string, count)
	for i := range series {
		date, err := OffsetDate(start, DateTimeLayout, i)
		if err != nil {
			return nil, fmt.Errorf("invalid start date %q: %w", start, err)
		}
		series[i] = date
	}
	return series, nil
}
