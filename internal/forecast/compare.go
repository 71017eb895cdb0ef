package forecast

import (
	"context"
	"fmt"
	"sort"

	"github.com/iwvelando/saas-forecast/internal/config"
	"github.com/iwvelando/saas-forecast/pkg/constants"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

// CompareScenarios projects independent configurations concurrently and
// returns the results in input order. The first failure cancels the
// projections that have not started yet.
func CompareScenarios(ctx context.Context, logger *zap.Logger, confs []config.Configuration) ([]*Result, error) {
	if logger == nil {
		logger = zap.NewNop()
	}

	results := make([]*Result, len(confs))
	g, ctx := errgroup.WithContext(ctx)
	for i := range confs {
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}
			result, err := GetForecast(logger, confs[i])
			if err != nil {
				return fmt.Errorf("scenario %d (%s): %w", i, confs[i].Name, err)
			}
			results[i] = result
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	logger.Debug("compared scenarios",
		zap.String("op", "forecast.CompareScenarios"),
		zap.Int("count", len(confs)),
	)
	return results, nil
}

// ScenarioVariants returns one copy of a hybrid configuration per catalog
// growth scenario, in name order. Other modes return the configuration alone.
func ScenarioVariants(conf config.Configuration) []config.Configuration {
	conf = conf.Clone()
	conf.ApplyDefaults()
	if conf.Mode != constants.ModeHybrid || conf.Hybrid == nil {
		return []config.Configuration{conf}
	}

	names := make([]string, 0, len(config.Scenarios))
	for name := range config.Scenarios {
		names = append(names, name)
	}
	sort.Strings(names)

	variants := make([]config.Configuration, 0, len(names))
	for _, name := range names {
		v := conf.Clone()
		v.Hybrid.Scenario = name
		v.Hybrid.CustomScenario = nil
		if conf.Name != "" {
			v.Name = conf.Name + " (" + name + ")"
		} else {
			v.Name = name
		}
		variants = append(variants, v)
	}
	return variants
}
