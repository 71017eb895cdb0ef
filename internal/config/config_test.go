package config

import (
	"strings"
	"testing"
	"time"

	"github.com/iwvelando/saas-forecast/pkg/constants"
)

func TestLoadConfiguration(t *testing.T) {
	tests := []struct {
		name       string
		configPath string
		wantMode   string
		wantError  bool
	}{
		{
			name:       "Non-existent config file",
			configPath: "nonexistent.yaml",
			wantError:  true,
		},
		{
			name:       "Basic example",
			configPath: "../../test/basic_config.yaml",
			wantMode:   constants.ModeBasic,
		},
		{
			name:       "Enhanced example",
			configPath: "../../test/enhanced_config.yaml",
			wantMode:   constants.ModeEnhanced,
		},
		{
			name:       "Hybrid example",
			configPath: "../../test/hybrid_config.yaml",
			wantMode:   constants.ModeHybrid,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			config, err := LoadConfiguration(tt.configPath)
			if tt.wantError {
				if err == nil {
					t.Errorf("LoadConfiguration() expected error but got none")
				}
				return
			}
			if err != nil {
				t.Fatalf("LoadConfiguration() error = %v", err)
			}
			if config.Mode != tt.wantMode {
				t.Errorf("Mode = %q, expected %q", config.Mode, tt.wantMode)
			}
			if problems := config.Validate(); len(problems) != 0 {
				t.Errorf("example config should be valid, got %v", problems)
			}
		})
	}
}

func TestLoadConfigurationStructure(t *testing.T) {
	config, err := LoadConfiguration("../../test/enhanced_config.yaml")
	if err != nil {
		t.Fatalf("LoadConfiguration() error = %v", err)
	}

	if config.StartingCash == nil || *config.StartingCash != 250000 {
		t.Errorf("Expected StartingCash = 250000, got %v", config.StartingCash)
	}
	if config.ProjectionMonths != 24 {
		t.Errorf("Expected ProjectionMonths = 24, got %d", config.ProjectionMonths)
	}
	if config.FixedCosts.Total() != 44800 {
		t.Errorf("Expected fixed total 44800, got %v", config.FixedCosts.Total())
	}
	if config.Marketing == nil {
		t.Fatal("Expected marketing block")
	}
	if config.Marketing.SpendByChannel["content"] != 3000 {
		t.Errorf("Expected content spend 3000, got %v", config.Marketing.SpendByChannel["content"])
	}
	if config.Marketing.PaidShare == nil || *config.Marketing.PaidShare != constants.DefaultPaidShare {
		t.Errorf("Expected default paid share, got %v", config.Marketing.PaidShare)
	}
	s := config.Subscription
	if s == nil {
		t.Fatal("Expected subscription block")
	}
	if len(s.SeasonalGrowth) != 12 {
		t.Errorf("Expected 12 seasonal entries, got %d", len(s.SeasonalGrowth))
	}
	if got := s.EffectiveChurnRate(); got != 0.035 {
		t.Errorf("Expected user churn override 0.035, got %v", got)
	}
	if s.GrowthRate == nil || *s.GrowthRate != 0.5 {
		t.Errorf("Expected growth rate 0.5, got %v", s.GrowthRate)
	}
}

func TestLoadConfigurationEnvOverride(t *testing.T) {
	t.Setenv("SAAS_PROJECTIONMONTHS", "6")

	config, err := LoadConfiguration("../../test/basic_config.yaml")
	if err != nil {
		t.Fatalf("LoadConfiguration() error = %v", err)
	}
	if config.ProjectionMonths != 6 {
		t.Errorf("Expected env override to set 6 months, got %d", config.ProjectionMonths)
	}
}

func TestLoadConfigurationFromReader(t *testing.T) {
	yamlDoc := `
mode: Hybrid
startingCash: 0
hybrid:
  tier: Starter
  scenario: conservative
  initialTenants: 10
  avgUsersPerTenant: 4
`
	config, err := LoadConfigurationFromReader(strings.NewReader(yamlDoc), "yaml")
	if err != nil {
		t.Fatalf("LoadConfigurationFromReader() error = %v", err)
	}
	if config.Mode != constants.ModeHybrid {
		t.Errorf("Mode = %q, expected hybrid", config.Mode)
	}
	if config.Hybrid.Tier != "starter" {
		t.Errorf("Tier = %q, expected lower-cased starter", config.Hybrid.Tier)
	}
	if config.StartingCash == nil || *config.StartingCash != 0 {
		t.Errorf("explicit zero starting cash should be kept, got %v", config.StartingCash)
	}

	jsonDoc := `{"mode": "basic", "startingCash": -100, "subscription": {"pricePerUser": 10, "churnRate": 0, "seasonalGrowth": [1]}}`
	config, err = LoadConfigurationFromReader(strings.NewReader(jsonDoc), "json")
	if err != nil {
		t.Fatalf("LoadConfigurationFromReader(json) error = %v", err)
	}
	if *config.StartingCash != -100 {
		t.Errorf("StartingCash = %v, expected -100", *config.StartingCash)
	}
	if config.Subscription.ChurnRate == nil || *config.Subscription.ChurnRate != 0 {
		t.Errorf("explicit zero churn should be kept, got %v", config.Subscription.ChurnRate)
	}
}

func TestApplyDefaults(t *testing.T) {
	config := Configuration{
		Subscription: &SubscriptionConfig{},
		Hybrid:       &HybridConfig{Tier: " Enterprise "},
		Marketing:    &MarketingMetrics{},
	}
	config.ApplyDefaults()

	if config.Mode != constants.ModeBasic {
		t.Errorf("Mode = %q, expected basic", config.Mode)
	}
	if config.ProjectionMonths != constants.DefaultProjectionMonths {
		t.Errorf("ProjectionMonths = %d, expected %d", config.ProjectionMonths, constants.DefaultProjectionMonths)
	}
	if config.StartDate != "" {
		t.Errorf("ApplyDefaults must not fill the start date, got %q", config.StartDate)
	}
	if *config.Subscription.VariableCostPerUser != constants.DefaultVariableCostPerUser {
		t.Errorf("VariableCostPerUser = %v", *config.Subscription.VariableCostPerUser)
	}
	if config.Subscription.AddonPricing.BaseFee != constants.DefaultAddonBaseFee {
		t.Errorf("AddonPricing.BaseFee = %v", config.Subscription.AddonPricing.BaseFee)
	}
	if *config.Subscription.InfrastructureStep != constants.DefaultInfrastructureStep {
		t.Errorf("InfrastructureStep = %v", *config.Subscription.InfrastructureStep)
	}
	if config.Hybrid.Tier != "enterprise" {
		t.Errorf("Tier = %q, expected enterprise", config.Hybrid.Tier)
	}
	if *config.Hybrid.UserChurnDamping != constants.DefaultUserChurnDamping {
		t.Errorf("UserChurnDamping = %v", *config.Hybrid.UserChurnDamping)
	}
	if *config.Hybrid.VariableCostPercent != constants.DefaultHybridVariableCostPercent {
		t.Errorf("VariableCostPercent = %v", *config.Hybrid.VariableCostPercent)
	}
	if *config.Marketing.PaidShare != constants.DefaultPaidShare {
		t.Errorf("PaidShare = %v", *config.Marketing.PaidShare)
	}
}

func TestParseStartDateWithFixedTime(t *testing.T) {
	fixedTime := time.Date(2025, 6, 15, 0, 0, 0, 0, time.UTC)

	config := Configuration{}
	if err := config.ParseStartDateWithFixedTime(fixedTime); err != nil {
		t.Fatalf("ParseStartDateWithFixedTime() error = %v", err)
	}
	if config.StartDate != "2025-06" {
		t.Errorf("StartDate = %q, expected 2025-06", config.StartDate)
	}

	config.StartDate = "2024-11"
	if err := config.ParseStartDateWithFixedTime(fixedTime); err != nil || config.StartDate != "2024-11" {
		t.Errorf("configured start date should be kept, got %q (%v)", config.StartDate, err)
	}

	config.StartDate = "11/2024"
	if err := config.ParseStartDateWithFixedTime(fixedTime); err == nil {
		t.Error("expected error for malformed start date")
	}
}

func TestMarketingSpendSingleSource(t *testing.T) {
	config := Configuration{FixedCosts: MonthlyFixedCosts{Salary: 1000, Marketing: 700}}
	if got := config.MarketingSpend(); got != 700 {
		t.Errorf("MarketingSpend() without marketing block = %v, expected 700", got)
	}

	config.Marketing = &MarketingMetrics{MonthlySpend: 2500}
	if got := config.MarketingSpend(); got != 2500 {
		t.Errorf("MarketingSpend() with marketing block = %v, expected 2500", got)
	}
	if got := config.FixedCosts.Total(); got != 1000 {
		t.Errorf("FixedCosts.Total() must exclude marketing, got %v", got)
	}
}

func TestCloneIsDeep(t *testing.T) {
	config, err := LoadConfiguration("../../test/enhanced_config.yaml")
	if err != nil {
		t.Fatalf("LoadConfiguration() error = %v", err)
	}

	clone := config.Clone()
	*clone.StartingCash = 1
	clone.Subscription.SeasonalGrowth[0] = 999
	clone.Subscription.PricePerUser = 1
	clone.Marketing.SpendByChannel["content"] = 0

	if *config.StartingCash == 1 {
		t.Error("clone shares StartingCash")
	}
	if config.Subscription.SeasonalGrowth[0] == 999 {
		t.Error("clone shares SeasonalGrowth")
	}
	if config.Subscription.PricePerUser == 1 {
		t.Error("clone shares Subscription")
	}
	if config.Marketing.SpendByChannel["content"] == 0 {
		t.Error("clone shares SpendByChannel")
	}
}

func TestCheckMode(t *testing.T) {
	for _, mode := range []string{constants.ModeBasic, constants.ModeEnhanced, constants.ModeHybrid} {
		c := Configuration{Mode: mode}
		if err := c.CheckMode(); err != nil {
			t.Errorf("CheckMode(%q) error = %v", mode, err)
		}
	}
	c := Configuration{Mode: "premium"}
	if err := c.CheckMode(); err == nil || !strings.Contains(err.Error(), ErrUnknownMode.Error()) {
		t.Errorf("CheckMode(premium) = %v, expected ErrUnknownMode", err)
	}
}
