package datetime

import (
	"testing"
)

func TestOffsetDate(t *testing.T) {
	tests := []struct {
		name     string
		date     string
		months   int
		expected string
		wantErr  bool
	}{
		{"Next month", "2025-01", 1, "2025-02", false},
		{"Year rollover", "2025-12", 1, "2026-01", false},
		{"Backwards", "2025-01", -1, "2024-12", false},
		{"Five years", "2025-06", 60, "2030-06", false},
		{"Invalid date", "2025/06", 1, "2025/06", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := OffsetDate(tt.date, DateTimeLayout, tt.months)
			if (err != nil) != tt.wantErr {
				t.Fatalf("OffsetDate() error = %v, wantErr %v", err, tt.wantErr)
			}
			if got != tt.expected {
				t.Errorf("OffsetDate() = %s, expected %s", got, tt.expected)
			}
		})
	}
}

func TestMonthSeries(t *testing.T) {
	series, err := MonthSeries("2025-11", 4)
	if err != nil {
		t.Fatalf("MonthSeries() error = %v", err)
	}
	expected := []string{"2025-11", "2025-12", "2026-01", "2026-02"}
	if len(series) != len(expected) {
		t.Fatalf("expected %d months, got %d", len(expected), len(series))
	}
	for i := range expected {
		if series[i] != expected[i] {
			t.Errorf("series[%d] = %s, expected %s", i, series[i], expected[i])
		}
	}

	if _, err := MonthSeries("bad", 3); err == nil {
		t.Error("expected error for invalid start date")
	}
	if _, err := MonthSeries("2025-01", -1); err == nil {
		t.Error("expected error for negative count")
	}
}
