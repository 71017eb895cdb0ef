package integration

import (
	"context"
	"testing"
	"time"

	"github.com/iwvelando/saas-forecast/internal/forecast"
	"go.uber.org/zap"
)

// TestPerformance projects a ten-year horizon in every mode.
func TestPerformance(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping performance test in short mode")
	}
	logger := zap.NewNop()

	for _, fx := range fixtures {
		conf := load(t, fx.file)
		conf.ProjectionMonths = 120
		conf.CapitalPurchases = nil
		if conf.Subscription != nil {
			conf.Subscription.SeasonalGrowth = conf.Subscription.SeasonalGrowth[:12]
		}

		start := time.Now()
		result, err := forecast.GetForecast(logger, *conf)
		elapsed := time.Since(start)
		if err != nil {
			t.Fatalf("%s: GetForecast failed: %v", fx.mode, err)
		}

		t.Logf("%s: %d months in %v", fx.mode, len(result.MonthlyData), elapsed)
		if elapsed > 5*time.Second {
			t.Errorf("%s: projection took %v, exceeding 5 second threshold", fx.mode, elapsed)
		}
	}
}

func BenchmarkGetForecast(b *testing.B) {
	for _, fx := range fixtures {
		conf := load(b, fx.file)
		b.Run(fx.mode, func(b *testing.B) {
			b.ReportAllocs()
			for i := 0; i < b.N; i++ {
				if _, err := forecast.GetForecast(nil, *conf); err != nil {
					b.Fatal(err)
				}
			}
		})
	}
}

func BenchmarkCompareScenarios(b *testing.B) {
	variants := forecast.ScenarioVariants(*load(b, "hybrid_config.yaml"))
	ctx := context.Background()

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		if _, err := forecast.CompareScenarios(ctx, nil, variants); err != nil {
			b.Fatal(err)
		}
	}
}
