package config

import (
	"fmt"
	"strings"
)

const (
	OptimizerFieldPricePerUser   = "pricePerUser"
	OptimizerFieldStartingCash   = "startingCash"
	OptimizerFieldMarketingSpend = "marketingSpend"

	OptimizerKindCashFloor = "cash_floor"

	defaultToleranceAmount = 0.01
	defaultMaxIterations   = 50
)

// OptimizerConfig defines a single-parameter optimization directive: find the
// value of Field within [Min, Max] that keeps the minimum projected cash at
// or above Floor.
type OptimizerConfig struct {
	Field         string   `yaml:"field,omitempty" json:"field,omitempty" mapstructure:"field"`
	Kind          string   `yaml:"kind,omitempty" json:"kind,omitempty" mapstructure:"kind"`
	Floor         float64  `yaml:"floor,omitempty" json:"floor,omitempty" mapstructure:"floor"`
	Min           *float64 `yaml:"min,omitempty" json:"min,omitempty" mapstructure:"min"`
	Max           *float64 `yaml:"max,omitempty" json:"max,omitempty" mapstructure:"max"`
	Tolerance     float64  `yaml:"tolerance,omitempty" json:"tolerance,omitempty" mapstructure:"tolerance"`
	MaxIterations int      `yaml:"maxIterations,omitempty" json:"maxIterations,omitempty" mapstructure:"maxIterations"`
}

// CanonicalOptimizerField returns the canonical identifier for an optimizer field.
func CanonicalOptimizerField(value string) string {
	trimmed := strings.TrimSpace(value)
	if trimmed == "" {
		return OptimizerFieldPricePerUser
	}
	switch strings.ToLower(strings.NewReplacer("_", "", "-", "").Replace(trimmed)) {
	case "priceperuser", "price":
		return OptimizerFieldPricePerUser
	case "startingcash", "cash":
		return OptimizerFieldStartingCash
	case "marketingspend", "marketing":
		return OptimizerFieldMarketingSpend
	default:
		return strings.ToLower(trimmed)
	}
}

// Normalize ensures defaults and canonical values are applied before validation.
func (o *OptimizerConfig) Normalize() {
	if o == nil {
		return
	}
	o.Field = CanonicalOptimizerField(o.Field)

	o.Kind = strings.ToLower(strings.TrimSpace(o.Kind))
	if o.Kind == "" {
		o.Kind = OptimizerKindCashFloor
	}
	if o.Tolerance <= 0 {
		o.Tolerance = defaultToleranceAmount
	}
	if o.MaxIterations <= 0 {
		o.MaxIterations = defaultMaxIterations
	}
}

// Validate returns an error when the optimizer configuration is unsupported.
func (o *OptimizerConfig) Validate() error {
	if o == nil {
		return fmt.Errorf("optimizer configuration cannot be nil")
	}

	o.Normalize()

	switch o.Field {
	case OptimizerFieldPricePerUser, OptimizerFieldStartingCash, OptimizerFieldMarketingSpend:
		// supported fields
	default:
		return fmt.Errorf("optimizer field %q is not supported", o.Field)
	}
	if o.Kind != OptimizerKindCashFloor {
		return fmt.Errorf("optimizer kind %q is not supported", o.Kind)
	}
	if o.Min == nil {
		return fmt.Errorf("optimizer requires a minimum bound")
	}
	if o.Max == nil {
		return fmt.Errorf("optimizer requires a maximum bound")
	}
	if *o.Min >= *o.Max {
		return fmt.Errorf("optimizer minimum %.2f must be less than maximum %.2f", *o.Min, *o.Max)
	}
	if o.Field == OptimizerFieldPricePerUser && *o.Min <= 0 {
		return fmt.Errorf("optimizer %s minimum %.2f must be positive", o.Field, *o.Min)
	}
	if o.Field == OptimizerFieldMarketingSpend && *o.Min < 0 {
		return fmt.Errorf("optimizer %s minimum %.2f cannot be negative", o.Field, *o.Min)
	}
	return nil
}
