// Package optimizer searches one configuration field for the value that keeps
// projected cash at or above a floor.
package optimizer

import (
	"fmt"
	"math"

	"github.com/iwvelando/saas-forecast/internal/config"
	"github.com/iwvelando/saas-forecast/internal/forecast"
	"github.com/iwvelando/saas-forecast/pkg/format"
	"github.com/iwvelando/saas-forecast/pkg/mathutil"
	"github.com/iwvelando/saas-forecast/pkg/optimization"
	"go.uber.org/zap"
)

// Runner executes the optimizer directive of a configuration.
type Runner struct {
	logger *zap.Logger
	conf   *config.Configuration
}

type evaluation struct {
	value   float64
	minCash float64
	floor   float64
}

func (e evaluation) feasible() bool {
	return e.minCash >= e.floor
}

func (e evaluation) headroom() float64 {
	return e.minCash - e.floor
}

// NewRunner constructs a Runner for the provided configuration.
func NewRunner(logger *zap.Logger, conf *config.Configuration) (*Runner, error) {
	if conf == nil {
		return nil, fmt.Errorf("configuration cannot be nil")
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Runner{logger: logger, conf: conf}, nil
}

// Run executes the optimizer directive and writes the chosen value back into
// the configuration. It returns nil when no directive is configured.
//
// The search assumes minimum cash moves monotonically with the field. Price
// and starting cash search for the lowest value that holds the floor;
// marketing spend searches for the highest.
func (r *Runner) Run() (*optimization.Summary, error) {
	cfg := r.conf.Optimizer
	if cfg == nil {
		return nil, nil
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	original, err := getFieldValue(r.conf, cfg.Field)
	if err != nil {
		return nil, err
	}

	minVal, maxVal := *cfg.Min, *cfg.Max
	lowerEval, err := r.evaluate(cfg.Field, minVal, cfg.Floor)
	if err != nil {
		return nil, err
	}
	upperEval, err := r.evaluate(cfg.Field, maxVal, cfg.Floor)
	if err != nil {
		return nil, err
	}

	preferHigher := cfg.Field == config.OptimizerFieldMarketingSpend
	iterations := 0
	var finalEval evaluation
	converged := true

	switch {
	case !preferHigher && lowerEval.feasible():
		finalEval = lowerEval
	case preferHigher && upperEval.feasible():
		finalEval = upperEval
	case !lowerEval.feasible() && !upperEval.feasible():
		finalEval = upperEval
		if lowerEval.headroom() > upperEval.headroom() {
			finalEval = lowerEval
		}
		converged = false
	default:
		// One bound is feasible and the other is not: bisect between them,
		// keeping the feasible end.
		feasibleEval, infeasibleEval := upperEval, lowerEval
		if preferHigher {
			feasibleEval, infeasibleEval = lowerEval, upperEval
		}
		for iterations < cfg.MaxIterations && math.Abs(feasibleEval.value-infeasibleEval.value) > cfg.Tolerance {
			mid := infeasibleEval.value + (feasibleEval.value-infeasibleEval.value)/2
			evalMid, err := r.evaluate(cfg.Field, mid, cfg.Floor)
			if err != nil {
				return nil, err
			}
			iterations++
			if evalMid.value == feasibleEval.value || evalMid.value == infeasibleEval.value {
				break
			}
			if evalMid.feasible() {
				feasibleEval = evalMid
			} else {
				infeasibleEval = evalMid
			}
		}
		finalEval = feasibleEval
	}

	if err := setFieldValue(r.conf, cfg.Field, finalEval.value); err != nil {
		return nil, err
	}

	summary := &optimization.Summary{
		Name:            r.conf.Name,
		Field:           cfg.Field,
		Original:        original,
		OriginalDisplay: format.Currency(original),
		Value:           finalEval.value,
		ValueDisplay:    format.Currency(finalEval.value),
		Floor:           cfg.Floor,
		MinimumCash:     finalEval.minCash,
		Headroom:        mathutil.Round(finalEval.headroom()),
		Iterations:      iterations,
		Converged:       converged,
	}
	if !converged {
		summary.Notes = []string{fmt.Sprintf(
			"unable to satisfy minimum cash %s within bounds %s to %s",
			format.Currency(cfg.Floor),
			format.Currency(minVal),
			format.Currency(maxVal),
		)}
	}

	r.logger.Info("optimizer adjusted configuration field",
		zap.String("op", "optimizer.Runner.Run"),
		zap.String("field", cfg.Field),
		zap.Float64("original", original),
		zap.Float64("optimized", summary.Value),
		zap.Float64("floor", summary.Floor),
		zap.Float64("minCash", summary.MinimumCash),
		zap.Float64("headroom", summary.Headroom),
		zap.Int("iterations", summary.Iterations),
		zap.Bool("converged", summary.Converged),
	)

	return summary, nil
}

func (r *Runner) evaluate(field string, value, floor float64) (evaluation, error) {
	value = mathutil.Round(value)
	trial := r.conf.Clone()
	trial.Optimizer = nil
	if err := setFieldValue(&trial, field, value); err != nil {
		return evaluation{}, err
	}

	result, err := forecast.GetForecast(r.logger, trial)
	if err != nil {
		return evaluation{}, fmt.Errorf("optimizer forecast evaluation failed: %w", err)
	}

	r.logger.Debug("optimizer evaluation",
		zap.String("op", "optimizer.Runner.evaluate"),
		zap.String("field", field),
		zap.Float64("value", value),
		zap.Float64("minCash", result.Summary.MinimumCash),
	)
	return evaluation{value: value, minCash: result.Summary.MinimumCash, floor: floor}, nil
}

func getFieldValue(conf *config.Configuration, field string) (float64, error) {
	switch field {
	case config.OptimizerFieldPricePerUser:
		if conf.Subscription == nil {
			return 0, fmt.Errorf("optimizer field %s requires a subscription block", field)
		}
		return conf.Subscription.PricePerUser, nil
	case config.OptimizerFieldStartingCash:
		if conf.StartingCash == nil {
			return 0, nil
		}
		return *conf.StartingCash, nil
	case config.OptimizerFieldMarketingSpend:
		return conf.MarketingSpend(), nil
	default:
		return 0, fmt.Errorf("optimizer field %q is not supported", field)
	}
}

func setFieldValue(conf *config.Configuration, field string, value float64) error {
	switch field {
	case config.OptimizerFieldPricePerUser:
		if conf.Subscription == nil {
			return fmt.Errorf("optimizer field %s requires a subscription block", field)
		}
		conf.Subscription.PricePerUser = value
	case config.OptimizerFieldStartingCash:
		conf.StartingCash = &value
	case config.OptimizerFieldMarketingSpend:
		if conf.Marketing != nil {
			conf.Marketing.MonthlySpend = value
		} else {
			conf.FixedCosts.Marketing = value
		}
	default:
		return fmt.Errorf("optimizer field %q is not supported", field)
	}
	return nil
}
