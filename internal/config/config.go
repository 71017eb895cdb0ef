// Package config defines the data structures related to configuration and
// includes functions for loading, defaulting and validating it.
package config

import (
	"errors"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/iwvelando/saas-forecast/pkg/constants"
	"github.com/spf13/viper"
)

// DateTimeLayout is the format expected in config files and is also the output
// date format.
const DateTimeLayout = constants.DateTimeLayout

// ErrUnknownMode is returned for a projection mode other than basic, enhanced
// or hybrid.
var ErrUnknownMode = errors.New("unknown projection mode")

// Configuration holds all configuration for one projection.
type Configuration struct {
	Name             string              `yaml:"name,omitempty" json:"name,omitempty" mapstructure:"name"`
	Mode             string              `yaml:"mode,omitempty" json:"mode,omitempty" mapstructure:"mode"`
	StartDate        string              `yaml:"startDate,omitempty" json:"startDate,omitempty" mapstructure:"startDate" validate:"omitempty,datetime=2006-01"`
	ProjectionMonths int                 `yaml:"projectionMonths,omitempty" json:"projectionMonths,omitempty" mapstructure:"projectionMonths" validate:"gte=1,lte=600"`
	StartingCash     *float64            `yaml:"startingCash,omitempty" json:"startingCash,omitempty" mapstructure:"startingCash" validate:"required"`
	FixedCosts       MonthlyFixedCosts   `yaml:"monthlyFixedCosts,omitempty" json:"monthlyFixedCosts" mapstructure:"monthlyFixedCosts"`
	CapitalPurchases []float64           `yaml:"capitalPurchases,omitempty" json:"capitalPurchases,omitempty" mapstructure:"capitalPurchases" validate:"dive,gte=0"`
	Marketing        *MarketingMetrics   `yaml:"marketing,omitempty" json:"marketing,omitempty" mapstructure:"marketing"`
	Subscription     *SubscriptionConfig `yaml:"subscription,omitempty" json:"subscription,omitempty" mapstructure:"subscription"`
	Hybrid           *HybridConfig       `yaml:"hybrid,omitempty" json:"hybrid,omitempty" mapstructure:"hybrid"`
	Optimizer        *OptimizerConfig    `yaml:"optimizer,omitempty" json:"optimizer,omitempty" mapstructure:"optimizer" validate:"-"`
	Logging          LoggingConfig       `yaml:"logging,omitempty" json:"logging,omitempty" mapstructure:"logging"`
	Output           OutputConfig        `yaml:"output,omitempty" json:"output,omitempty" mapstructure:"output"`
}

// LoggingConfig holds logging configuration options
type LoggingConfig struct {
	Level      string `yaml:"level,omitempty" json:"level,omitempty" mapstructure:"level" validate:"omitempty,oneof=debug info warn error"`
	Format     string `yaml:"format,omitempty" json:"format,omitempty" mapstructure:"format" validate:"omitempty,oneof=json console"`
	OutputFile string `yaml:"outputFile,omitempty" json:"outputFile,omitempty" mapstructure:"outputFile"`
}

// OutputConfig holds output format configuration options
type OutputConfig struct {
	Format string `yaml:"format,omitempty" json:"format,omitempty" mapstructure:"format" validate:"omitempty,oneof=pretty csv json"`
}

// MonthlyFixedCosts is the named breakdown of recurring monthly costs.
// Marketing here is only used when no marketing block is configured.
type MonthlyFixedCosts struct {
	Infrastructure float64 `yaml:"infrastructure,omitempty" json:"infrastructure" mapstructure:"infrastructure" validate:"gte=0"`
	Salary         float64 `yaml:"salary,omitempty" json:"salary" mapstructure:"salary" validate:"gte=0"`
	Support        float64 `yaml:"support,omitempty" json:"support" mapstructure:"support" validate:"gte=0"`
	Wages          float64 `yaml:"wages,omitempty" json:"wages" mapstructure:"wages" validate:"gte=0"`
	Hosting        float64 `yaml:"hosting,omitempty" json:"hosting" mapstructure:"hosting" validate:"gte=0"`
	Marketing      float64 `yaml:"marketing,omitempty" json:"marketing" mapstructure:"marketing" validate:"gte=0"`
}

// Total sums the fixed categories, excluding marketing.
func (f MonthlyFixedCosts) Total() float64 {
	return f.Infrastructure + f.Salary + f.Support + f.Wages + f.Hosting
}

// MarketingMetrics configures paid acquisition.
type MarketingMetrics struct {
	MonthlySpend     float64            `yaml:"monthlySpend,omitempty" json:"monthlySpend" mapstructure:"monthlySpend" validate:"gte=0"`
	CAC              float64            `yaml:"cac,omitempty" json:"cac" mapstructure:"cac" validate:"gt=0"`
	LTV              float64            `yaml:"ltv,omitempty" json:"ltv" mapstructure:"ltv" validate:"gt=0"`
	ConversionRate   float64            `yaml:"conversionRate,omitempty" json:"conversionRate" mapstructure:"conversionRate" validate:"gte=0,lte=1"`
	LeadQualityScore float64            `yaml:"leadQualityScore,omitempty" json:"leadQualityScore" mapstructure:"leadQualityScore" validate:"gte=0,lte=100"`
	SpendByChannel   map[string]float64 `yaml:"spendByChannel,omitempty" json:"spendByChannel,omitempty" mapstructure:"spendByChannel" validate:"dive,keys,required,endkeys,gte=0"`
	PaidShare        *float64           `yaml:"paidShare,omitempty" json:"paidShare,omitempty" mapstructure:"paidShare" validate:"omitempty,gte=0,lte=1"`
}

// AddonPricing is the flat add-on approximation used by basic and enhanced
// modes.
type AddonPricing struct {
	BaseFee     float64 `yaml:"baseFee,omitempty" json:"baseFee" mapstructure:"baseFee" validate:"gte=0"`
	PerUserRate float64 `yaml:"perUserRate,omitempty" json:"perUserRate" mapstructure:"perUserRate" validate:"gte=0"`
}

// SubscriptionConfig holds the single-price inputs for basic and enhanced
// modes.
type SubscriptionConfig struct {
	PricePerUser        float64       `yaml:"pricePerUser,omitempty" json:"pricePerUser" mapstructure:"pricePerUser" validate:"gt=0"`
	ChurnRate           *float64      `yaml:"churnRate,omitempty" json:"churnRate,omitempty" mapstructure:"churnRate" validate:"required,gte=0,lte=1"`
	InitialUsers        int           `yaml:"initialUsers,omitempty" json:"initialUsers" mapstructure:"initialUsers" validate:"gte=0"`
	SeasonalGrowth      []int         `yaml:"seasonalGrowth,omitempty" json:"seasonalGrowth" mapstructure:"seasonalGrowth" validate:"required,min=1,dive,gte=0"`
	VariableCostPerUser *float64      `yaml:"variableCostPerUser,omitempty" json:"variableCostPerUser,omitempty" mapstructure:"variableCostPerUser" validate:"omitempty,gte=0"`
	GrowthRate          *float64      `yaml:"growthRate,omitempty" json:"growthRate,omitempty" mapstructure:"growthRate" validate:"omitempty,gt=-1,lte=5"`
	UserChurnRate       *float64      `yaml:"userChurnRate,omitempty" json:"userChurnRate,omitempty" mapstructure:"userChurnRate" validate:"omitempty,gte=0,lte=1"`
	EnabledAddons       []string      `yaml:"enabledAddons,omitempty" json:"enabledAddons,omitempty" mapstructure:"enabledAddons" validate:"dive,required"`
	AddonPricing        *AddonPricing `yaml:"addonPricing,omitempty" json:"addonPricing,omitempty" mapstructure:"addonPricing"`
	InfrastructureBase  float64       `yaml:"infrastructureBase,omitempty" json:"infrastructureBase" mapstructure:"infrastructureBase" validate:"gte=0"`
	InfrastructureStep  *float64      `yaml:"infrastructureStep,omitempty" json:"infrastructureStep,omitempty" mapstructure:"infrastructureStep" validate:"omitempty,gte=0"`
}

// EffectiveChurnRate returns the user churn override when set, otherwise the
// base churn rate.
func (s *SubscriptionConfig) EffectiveChurnRate() float64 {
	if s == nil {
		return 0
	}
	if s.UserChurnRate != nil {
		return *s.UserChurnRate
	}
	if s.ChurnRate != nil {
		return *s.ChurnRate
	}
	return 0
}

// TierSpec is a hybrid pricing tier.
type TierSpec struct {
	Name             string  `yaml:"name,omitempty" json:"name" mapstructure:"name"`
	BaseFee          float64 `yaml:"baseFee" json:"baseFee" mapstructure:"baseFee" validate:"gte=0"`
	IncludedUsers    float64 `yaml:"includedUsers" json:"includedUsers" mapstructure:"includedUsers" validate:"gte=0"`
	PerUserRate      float64 `yaml:"perUserRate" json:"perUserRate" mapstructure:"perUserRate" validate:"gte=0"`
	IncludedUsage    float64 `yaml:"includedUsage" json:"includedUsage" mapstructure:"includedUsage" validate:"gte=0"`
	UsageOverageRate float64 `yaml:"usageOverageRate" json:"usageOverageRate" mapstructure:"usageOverageRate" validate:"gte=0"`
}

// ScenarioSpec holds the monthly growth and churn rates of a hybrid growth
// scenario.
type ScenarioSpec struct {
	Name             string  `yaml:"name,omitempty" json:"name" mapstructure:"name"`
	TenantGrowthRate float64 `yaml:"tenantGrowthRate" json:"tenantGrowthRate" mapstructure:"tenantGrowthRate" validate:"gt=-1,lte=5"`
	UserGrowthRate   float64 `yaml:"userGrowthRate" json:"userGrowthRate" mapstructure:"userGrowthRate" validate:"gt=-1,lte=5"`
	UsageGrowthRate  float64 `yaml:"usageGrowthRate" json:"usageGrowthRate" mapstructure:"usageGrowthRate" validate:"gt=-1,lte=5"`
	ChurnRate        float64 `yaml:"churnRate" json:"churnRate" mapstructure:"churnRate" validate:"gte=0,lte=1"`
}

// HybridConfig holds the multi-tenant tiered pricing inputs.
type HybridConfig struct {
	Tier                string        `yaml:"tier" json:"tier" mapstructure:"tier" validate:"required"`
	CustomTier          *TierSpec     `yaml:"customTier,omitempty" json:"customTier,omitempty" mapstructure:"customTier"`
	InitialTenants      int           `yaml:"initialTenants" json:"initialTenants" mapstructure:"initialTenants" validate:"gte=0"`
	AvgUsersPerTenant   float64       `yaml:"avgUsersPerTenant" json:"avgUsersPerTenant" mapstructure:"avgUsersPerTenant" validate:"gte=0"`
	AvgUsagePerTenant   float64       `yaml:"avgUsagePerTenant" json:"avgUsagePerTenant" mapstructure:"avgUsagePerTenant" validate:"gte=0"`
	Scenario            string        `yaml:"scenario" json:"scenario" mapstructure:"scenario" validate:"required"`
	CustomScenario      *ScenarioSpec `yaml:"customScenario,omitempty" json:"customScenario,omitempty" mapstructure:"customScenario"`
	Addons              []string      `yaml:"addons,omitempty" json:"addons,omitempty" mapstructure:"addons" validate:"dive,required"`
	UserChurnDamping    *float64      `yaml:"userChurnDamping,omitempty" json:"userChurnDamping,omitempty" mapstructure:"userChurnDamping" validate:"omitempty,gte=0,lte=1"`
	VariableCostPercent *float64      `yaml:"variableCostPercent,omitempty" json:"variableCostPercent,omitempty" mapstructure:"variableCostPercent" validate:"omitempty,gte=0,lte=1"`
}

// LoadConfiguration takes a file path as input and loads the YAML- or
// JSON-formatted configuration there. Values may be overridden by SAAS_
// prefixed environment variables.
func LoadConfiguration(configPath string) (*Configuration, error) {
	v := newViper()
	v.SetConfigFile(configPath)
	if strings.HasSuffix(strings.ToLower(configPath), ".json") {
		v.SetConfigType("json")
	} else {
		v.SetConfigType("yml")
	}

	if err := v.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("error reading config file, %s", err)
	}
	return decode(v)
}

// LoadConfigurationFromReader loads a configuration of the given type (yaml
// or json) from r.
func LoadConfigurationFromReader(r io.Reader, configType string) (*Configuration, error) {
	if configType == "" {
		configType = "yml"
	}
	v := newViper()
	v.SetConfigType(configType)
	if err := v.ReadConfig(r); err != nil {
		return nil, fmt.Errorf("error reading config, %s", err)
	}
	return decode(v)
}

func newViper() *viper.Viper {
	v := viper.New()
	v.SetEnvPrefix(constants.EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	return v
}

func decode(v *viper.Viper) (*Configuration, error) {
	var configuration Configuration
	if err := v.Unmarshal(&configuration); err != nil {
		return nil, fmt.Errorf("unable to decode into struct, %s", err)
	}
	configuration.ApplyDefaults()
	return &configuration, nil
}

// ApplyDefaults fills unset optional values. It never fills the start date,
// which depends on the caller's clock.
func (c *Configuration) ApplyDefaults() {
	c.Mode = strings.ToLower(strings.TrimSpace(c.Mode))
	if c.Mode == "" {
		c.Mode = constants.ModeBasic
	}
	if c.ProjectionMonths == 0 {
		c.ProjectionMonths = constants.DefaultProjectionMonths
	}
	if c.Output.Format == "" {
		c.Output.Format = constants.OutputFormatPretty
	}

	if s := c.Subscription; s != nil {
		if s.VariableCostPerUser == nil {
			s.VariableCostPerUser = floatPtr(constants.DefaultVariableCostPerUser)
		}
		if s.AddonPricing == nil {
			s.AddonPricing = &AddonPricing{
				BaseFee:     constants.DefaultAddonBaseFee,
				PerUserRate: constants.DefaultAddonPerUserRate,
			}
		}
		if s.InfrastructureStep == nil {
			s.InfrastructureStep = floatPtr(constants.DefaultInfrastructureStep)
		}
	}

	if m := c.Marketing; m != nil && m.PaidShare == nil {
		m.PaidShare = floatPtr(constants.DefaultPaidShare)
	}

	if h := c.Hybrid; h != nil {
		h.Tier = strings.ToLower(strings.TrimSpace(h.Tier))
		h.Scenario = strings.ToLower(strings.TrimSpace(h.Scenario))
		if h.UserChurnDamping == nil {
			h.UserChurnDamping = floatPtr(constants.DefaultUserChurnDamping)
		}
		if h.VariableCostPercent == nil {
			h.VariableCostPercent = floatPtr(constants.DefaultHybridVariableCostPercent)
		}
	}
}

// ParseStartDate fills an empty start date with the current month.
func (c *Configuration) ParseStartDate() error {
	return c.ParseStartDateWithFixedTime(time.Now())
}

// ParseStartDateWithFixedTime fills an empty start date from fixedTime and
// checks that a configured one parses.
func (c *Configuration) ParseStartDateWithFixedTime(fixedTime time.Time) error {
	if strings.TrimSpace(c.StartDate) == "" {
		c.StartDate = fixedTime.Format(DateTimeLayout)
		return nil
	}
	if _, err := time.Parse(DateTimeLayout, c.StartDate); err != nil {
		return fmt.Errorf("invalid start date %q: %w", c.StartDate, err)
	}
	return nil
}

// CheckMode returns ErrUnknownMode for an unsupported mode.
func (c *Configuration) CheckMode() error {
	switch c.Mode {
	case constants.ModeBasic, constants.ModeEnhanced, constants.ModeHybrid:
		return nil
	default:
		return fmt.Errorf("%w: %q", ErrUnknownMode, c.Mode)
	}
}

// MarketingSpend returns the single marketing spend figure the projection
// uses: the marketing block's monthly spend when configured, otherwise the
// marketing line of the fixed costs.
func (c *Configuration) MarketingSpend() float64 {
	if c.Marketing != nil {
		return c.Marketing.MonthlySpend
	}
	return c.FixedCosts.Marketing
}

// Clone returns a deep copy, so callers such as the optimizer can vary a
// field without touching the original.
func (c Configuration) Clone() Configuration {
	out := c
	out.StartingCash = clonePtr(c.StartingCash)
	out.CapitalPurchases = append([]float64(nil), c.CapitalPurchases...)
	if c.Marketing != nil {
		m := *c.Marketing
		m.PaidShare = clonePtr(c.Marketing.PaidShare)
		if c.Marketing.SpendByChannel != nil {
			m.SpendByChannel = make(map[string]float64, len(c.Marketing.SpendByChannel))
			for k, v := range c.Marketing.SpendByChannel {
				m.SpendByChannel[k] = v
			}
		}
		out.Marketing = &m
	}
	if c.Subscription != nil {
		s := *c.Subscription
		s.ChurnRate = clonePtr(c.Subscription.ChurnRate)
		s.SeasonalGrowth = append([]int(nil), c.Subscription.SeasonalGrowth...)
		s.VariableCostPerUser = clonePtr(c.Subscription.VariableCostPerUser)
		s.GrowthRate = clonePtr(c.Subscription.GrowthRate)
		s.UserChurnRate = clonePtr(c.Subscription.UserChurnRate)
		s.EnabledAddons = append([]string(nil), c.Subscription.EnabledAddons...)
		s.InfrastructureStep = clonePtr(c.Subscription.InfrastructureStep)
		if c.Subscription.AddonPricing != nil {
			p := *c.Subscription.AddonPricing
			s.AddonPricing = &p
		}
		out.Subscription = &s
	}
	if c.Hybrid != nil {
		h := *c.Hybrid
		h.Addons = append([]string(nil), c.Hybrid.Addons...)
		h.UserChurnDamping = clonePtr(c.Hybrid.UserChurnDamping)
		h.VariableCostPercent = clonePtr(c.Hybrid.VariableCostPercent)
		if c.Hybrid.CustomTier != nil {
			t := *c.Hybrid.CustomTier
			h.CustomTier = &t
		}
		if c.Hybrid.CustomScenario != nil {
			s := *c.Hybrid.CustomScenario
			h.CustomScenario = &s
		}
		out.Hybrid = &h
	}
	if c.Optimizer != nil {
		o := *c.Optimizer
		o.Min = clonePtr(c.Optimizer.Min)
		o.Max = clonePtr(c.Optimizer.Max)
		out.Optimizer = &o
	}
	return out
}

func floatPtr(v float64) *float64 { return &v }

func clonePtr(p *float64) *float64 {
	if p == nil {
		return nil
	}
	v := *p
	return &v
}
