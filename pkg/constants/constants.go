// Package constants provides shared constants for the saas-forecast application.
package constants

// DateTimeLayout is the format expected in config files and is also the output
// date format.
const DateTimeLayout = "2006-01"

// Financial constants
const (
	// MonthsPerYear is the number of months in a year
	MonthsPerYear = 12

	// DecimalPlaces is the number of decimal places money is emitted with
	DecimalPlaces = 2

	// DefaultProjectionMonths is the horizon used when none is configured
	DefaultProjectionMonths = 12

	// RevenueGoalTarget is the annual revenue target tracked by the goal analyzer
	RevenueGoalTarget = 1000000.0

	// TrendWindowMonths is the trailing window used for the revenue trend
	TrendWindowMonths = 3
)

// Model defaults
const (
	// DefaultVariableCostPerUser is the basic per-user variable cost
	DefaultVariableCostPerUser = 5.0

	// DefaultAddonBaseFee is the flat monthly revenue per enabled add-on
	DefaultAddonBaseFee = 50.0

	// DefaultAddonPerUserRate is the per-user monthly revenue per enabled add-on
	DefaultAddonPerUserRate = 2.0

	// DefaultInfrastructureStep is the enhanced-mode infrastructure cost added per
	// InfrastructureUsersPerStep users
	DefaultInfrastructureStep = 250.0

	// InfrastructureUsersPerStep is the user count per infrastructure cost step
	InfrastructureUsersPerStep = 1000

	// DefaultPaidShare is the share of new users attributed to paid acquisition
	DefaultPaidShare = 0.6

	// DefaultUserChurnDamping scales tenant churn when applied to total users in
	// hybrid mode. Tunable through hybrid.userChurnDamping.
	DefaultUserChurnDamping = 0.8

	// DefaultHybridVariableCostPercent is the hybrid variable cost share of revenue
	DefaultHybridVariableCostPercent = 0.20

	// GrossMarginFactor is the assumed gross margin applied to LTV and payback
	GrossMarginFactor = 0.8

	// MaxCustomerLifetimeMonths caps LTV lifetime when churn is zero
	MaxCustomerLifetimeMonths = 60.0

	// HealthyLTVToCACRatio is the ratio below which a warning is reported
	HealthyLTVToCACRatio = 3.0
)

// Projection modes
const (
	ModeBasic    = "basic"
	ModeEnhanced = "enhanced"
	ModeHybrid   = "hybrid"
)

// Output format constants
const (
	// OutputFormatPretty is the human-readable output format
	OutputFormatPretty = "pretty"

	// OutputFormatCSV is the CSV output format
	OutputFormatCSV = "csv"

	// OutputFormatJSON is the JSON output format
	OutputFormatJSON = "json"
)

// Configuration file constants
const (
	// DefaultConfigFile is the default configuration file name
	DefaultConfigFile = "config.yaml"

	// DefaultServerConfigFile is the default server configuration file name
	DefaultServerConfigFile = "server-config.yaml"

	// EnvPrefix is the prefix for environment overrides of configuration keys
	EnvPrefix = "SAAS"
)

// Server configuration defaults
const (
	// DefaultServerAddress is the default HTTP listen address
	DefaultServerAddress = ":8080"

	// DefaultMaxUploadSizeBytes is the default maximum upload size for YAML configs (256 KB)
	DefaultMaxUploadSizeBytes int64 = 256 * 1024
)

// Validation constants
const (
	// PercentageMultiplier is used for percentage conversions
	PercentageMultiplier = 100.0
)
