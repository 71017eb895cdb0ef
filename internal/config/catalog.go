package config

import (
	"errors"
	"fmt"
	"sort"
)

// CustomIdentifier selects the customTier or customScenario block instead of
// a catalog entry.
const CustomIdentifier = "custom"

var (
	// ErrUnknownTier is returned for a hybrid tier missing from the catalog.
	ErrUnknownTier = errors.New("unknown pricing tier")
	// ErrUnknownScenario is returned for a hybrid growth scenario missing
	// from the catalog.
	ErrUnknownScenario = errors.New("unknown growth scenario")
	// ErrUnknownAddon is returned for a hybrid add-on missing from the
	// catalog.
	ErrUnknownAddon = errors.New("unknown add-on")
)

// Tiers is the built-in hybrid pricing tier catalog.
var Tiers = map[string]TierSpec{
	"starter": {
		Name:             "Starter",
		BaseFee:          99,
		IncludedUsers:    5,
		PerUserRate:      15,
		IncludedUsage:    1000,
		UsageOverageRate: 0.02,
	},
	"professional": {
		Name:             "Professional",
		BaseFee:          299,
		IncludedUsers:    20,
		PerUserRate:      12,
		IncludedUsage:    5000,
		UsageOverageRate: 0.015,
	},
	"enterprise": {
		Name:             "Enterprise",
		BaseFee:          999,
		IncludedUsers:    100,
		PerUserRate:      10,
		IncludedUsage:    25000,
		UsageOverageRate: 0.01,
	},
}

// Scenarios is the built-in hybrid growth scenario catalog. Rates are
// monthly.
var Scenarios = map[string]ScenarioSpec{
	"conservative": {Name: "Conservative", TenantGrowthRate: 0.05, UserGrowthRate: 0.02, UsageGrowthRate: 0.03, ChurnRate: 0.03},
	"moderate":     {Name: "Moderate", TenantGrowthRate: 0.10, UserGrowthRate: 0.04, UsageGrowthRate: 0.05, ChurnRate: 0.02},
	"aggressive":   {Name: "Aggressive", TenantGrowthRate: 0.20, UserGrowthRate: 0.06, UsageGrowthRate: 0.08, ChurnRate: 0.015},
}

// HybridAddons maps hybrid add-on identifiers to their flat monthly price per
// tenant.
var HybridAddons = map[string]float64{
	"advanced-analytics":  49,
	"priority-support":    99,
	"custom-integrations": 149,
	"white-label":         199,
}

// ResolveTier returns the configured tier, from the catalog or the custom
// block.
func (h *HybridConfig) ResolveTier() (TierSpec, error) {
	if h == nil {
		return TierSpec{}, fmt.Errorf("%w: hybrid configuration missing", ErrUnknownTier)
	}
	if h.Tier == CustomIdentifier {
		if h.CustomTier == nil {
			return TierSpec{}, fmt.Errorf("%w: tier %q requires customTier", ErrUnknownTier, h.Tier)
		}
		return *h.CustomTier, nil
	}
	tier, ok := Tiers[h.Tier]
	if !ok {
		return TierSpec{}, fmt.Errorf("%w: %q (known: %v)", ErrUnknownTier, h.Tier, catalogKeys(Tiers))
	}
	return tier, nil
}

// ResolveScenario returns the configured growth scenario, from the catalog or
// the custom block.
func (h *HybridConfig) ResolveScenario() (ScenarioSpec, error) {
	if h == nil {
		return ScenarioSpec{}, fmt.Errorf("%w: hybrid configuration missing", ErrUnknownScenario)
	}
	if h.Scenario == CustomIdentifier {
		if h.CustomScenario == nil {
			return ScenarioSpec{}, fmt.Errorf("%w: scenario %q requires customScenario", ErrUnknownScenario, h.Scenario)
		}
		return *h.CustomScenario, nil
	}
	scenario, ok := Scenarios[h.Scenario]
	if !ok {
		return ScenarioSpec{}, fmt.Errorf("%w: %q (known: %v)", ErrUnknownScenario, h.Scenario, catalogKeys(Scenarios))
	}
	return scenario, nil
}

// ResolveAddonPrices returns the per-tenant price of each selected add-on in
// configuration order.
func (h *HybridConfig) ResolveAddonPrices() ([]float64, error) {
	if h == nil {
		return nil, nil
	}
	prices := make([]float64, 0, len(h.Addons))
	for _, id := range h.Addons {
		price, ok := HybridAddons[id]
		if !ok {
			return nil, fmt.Errorf("%w: %q", ErrUnknownAddon, id)
		}
		prices = append(prices, price)
	}
	return prices, nil
}

func catalogKeys[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
