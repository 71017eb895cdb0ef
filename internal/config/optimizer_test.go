package config

import "testing"

func TestCanonicalOptimizerField(t *testing.T) {
	testCases := []struct {
		name     string
		input    string
		expected string
	}{
		{name: "empty defaults to price", input: "", expected: OptimizerFieldPricePerUser},
		{name: "price casing", input: "PricePerUser", expected: OptimizerFieldPricePerUser},
		{name: "starting cash snake", input: "starting_cash", expected: OptimizerFieldStartingCash},
		{name: "marketing kebab", input: "Marketing-Spend", expected: OptimizerFieldMarketingSpend},
		{name: "unknown lowered", input: "Custom", expected: "custom"},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			actual := CanonicalOptimizerField(tc.input)
			if actual != tc.expected {
				t.Fatalf("expected %q, got %q", tc.expected, actual)
			}
		})
	}
}

func TestOptimizerConfigNormalize(t *testing.T) {
	cfg := &OptimizerConfig{Field: "cash", Min: floatPtr(0), Max: floatPtr(1)}
	cfg.Normalize()

	if cfg.Field != OptimizerFieldStartingCash {
		t.Fatalf("expected field %q, got %q", OptimizerFieldStartingCash, cfg.Field)
	}
	if cfg.Kind != OptimizerKindCashFloor {
		t.Fatalf("expected kind %q, got %q", OptimizerKindCashFloor, cfg.Kind)
	}
	if cfg.Tolerance != defaultToleranceAmount {
		t.Fatalf("expected tolerance %.2f, got %.2f", defaultToleranceAmount, cfg.Tolerance)
	}
	if cfg.MaxIterations != defaultMaxIterations {
		t.Fatalf("expected %d iterations, got %d", defaultMaxIterations, cfg.MaxIterations)
	}
}

func TestOptimizerConfigValidate(t *testing.T) {
	testCases := []struct {
		name    string
		cfg     *OptimizerConfig
		wantErr bool
	}{
		{name: "nil", cfg: nil, wantErr: true},
		{name: "valid price", cfg: &OptimizerConfig{Min: floatPtr(10), Max: floatPtr(200)}},
		{name: "valid cash", cfg: &OptimizerConfig{Field: "startingCash", Min: floatPtr(-1000), Max: floatPtr(1000)}},
		{name: "unsupported field", cfg: &OptimizerConfig{Field: "churn", Min: floatPtr(0), Max: floatPtr(1)}, wantErr: true},
		{name: "unsupported kind", cfg: &OptimizerConfig{Kind: "max_profit", Min: floatPtr(1), Max: floatPtr(2)}, wantErr: true},
		{name: "missing min", cfg: &OptimizerConfig{Max: floatPtr(2)}, wantErr: true},
		{name: "missing max", cfg: &OptimizerConfig{Min: floatPtr(2)}, wantErr: true},
		{name: "inverted bounds", cfg: &OptimizerConfig{Min: floatPtr(5), Max: floatPtr(2)}, wantErr: true},
		{name: "non-positive price", cfg: &OptimizerConfig{Min: floatPtr(0), Max: floatPtr(2)}, wantErr: true},
		{name: "negative marketing", cfg: &OptimizerConfig{Field: "marketingSpend", Min: floatPtr(-1), Max: floatPtr(2)}, wantErr: true},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			err := tc.cfg.Validate()
			if (err != nil) != tc.wantErr {
				t.Fatalf("Validate() error = %v, wantErr %v", err, tc.wantErr)
			}
		})
	}
}
