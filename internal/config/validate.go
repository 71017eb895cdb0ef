package config

import (
	"errors"
	"fmt"
	"reflect"
	"strings"

	"github.com/go-playground/locales/en"
	ut "github.com/go-playground/universal-translator"
	"github.com/go-playground/validator/v10"
	en_translations "github.com/go-playground/validator/v10/translations/en"
	"github.com/iwvelando/saas-forecast/pkg/constants"
)

var (
	validate   *validator.Validate
	translator ut.Translator
)

func init() {
	validate = validator.New()

	english := en.New()
	uni := ut.New(english, english)
	translator, _ = uni.GetTranslator("en")
	_ = en_translations.RegisterDefaultTranslations(validate, translator)

	// Report problems by their config key rather than the Go field name.
	validate.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})
}

// Validate checks required fields and numeric ranges and returns one
// human-readable message per problem. An empty result means the configuration
// can be projected. Defaults are applied to a copy first, so a partial
// configuration is judged the way it would be projected.
func (c *Configuration) Validate() []string {
	if c == nil {
		return []string{"configuration is required"}
	}
	conf := c.Clone()
	conf.ApplyDefaults()

	var problems []string
	if err := validate.Struct(conf); err != nil {
		var fieldErrs validator.ValidationErrors
		if errors.As(err, &fieldErrs) {
			for _, fe := range fieldErrs {
				problems = append(problems, translateFieldError(fe))
			}
		} else {
			problems = append(problems, err.Error())
		}
	}

	if err := conf.CheckMode(); err != nil {
		problems = append(problems, fmt.Sprintf("mode must be one of %s, %s or %s, got %q",
			constants.ModeBasic, constants.ModeEnhanced, constants.ModeHybrid, conf.Mode))
		return problems
	}

	horizon := conf.ProjectionMonths
	if n := len(conf.CapitalPurchases); n > 0 && !expectedLength(n, horizon) {
		problems = append(problems, fmt.Sprintf("capitalPurchases must have %d or %d entries, got %d",
			constants.MonthsPerYear, horizon, n))
	}

	switch conf.Mode {
	case constants.ModeBasic, constants.ModeEnhanced:
		problems = append(problems, conf.validateSubscription(horizon)...)
	case constants.ModeHybrid:
		problems = append(problems, conf.validateHybrid()...)
	}

	return problems
}

func (c *Configuration) validateSubscription(horizon int) []string {
	s := c.Subscription
	if s == nil {
		return []string{fmt.Sprintf("subscription is required for %s mode", c.Mode)}
	}
	var problems []string
	if n := len(s.SeasonalGrowth); n > 0 && !expectedLength(n, horizon) {
		problems = append(problems, fmt.Sprintf("subscription.seasonalGrowth must have %d or %d entries, got %d",
			constants.MonthsPerYear, horizon, n))
	}
	return problems
}

func (c *Configuration) validateHybrid() []string {
	h := c.Hybrid
	if h == nil {
		return []string{"hybrid is required for hybrid mode"}
	}
	var problems []string
	if h.Tier != "" {
		if _, err := h.ResolveTier(); err != nil {
			problems = append(problems, "hybrid.tier: "+err.Error())
		}
	}
	if h.Scenario != "" {
		if _, err := h.ResolveScenario(); err != nil {
			problems = append(problems, "hybrid.scenario: "+err.Error())
		}
	}
	if _, err := h.ResolveAddonPrices(); err != nil {
		problems = append(problems, "hybrid.addons: "+err.Error())
	}
	return problems
}

// Warnings reports non-fatal issues that change how the configuration is
// interpreted.
func (c *Configuration) Warnings() []string {
	if c == nil {
		return nil
	}
	conf := c.Clone()
	conf.ApplyDefaults()

	var warnings []string
	if conf.Marketing != nil && conf.FixedCosts.Marketing > 0 {
		warnings = append(warnings, fmt.Sprintf(
			"monthlyFixedCosts.marketing (%.2f) is ignored because marketing.monthlySpend (%.2f) is configured",
			conf.FixedCosts.Marketing, conf.Marketing.MonthlySpend))
	}
	if conf.Marketing != nil && conf.Marketing.CAC > 0 {
		if ratio := conf.Marketing.LTV / conf.Marketing.CAC; ratio < constants.HealthyLTVToCACRatio {
			warnings = append(warnings, fmt.Sprintf("marketing LTV/CAC ratio %.2f is below %.0f", ratio, constants.HealthyLTVToCACRatio))
		}
	}

	switch conf.Mode {
	case constants.ModeBasic, constants.ModeEnhanced:
		if s := conf.Subscription; s != nil {
			if n := len(s.SeasonalGrowth); n > 0 && n < conf.ProjectionMonths {
				warnings = append(warnings, fmt.Sprintf(
					"subscription.seasonalGrowth has %d entries and repeats over %d months", n, conf.ProjectionMonths))
			}
			if conf.Mode == constants.ModeBasic && (s.GrowthRate != nil || s.UserChurnRate != nil) {
				warnings = append(warnings, "subscription.growthRate and userChurnRate only apply in enhanced mode")
			}
		}
		if conf.Mode == constants.ModeEnhanced && conf.Marketing == nil {
			warnings = append(warnings, "enhanced mode without a marketing block projects organic growth only")
		}
		if conf.Hybrid != nil {
			warnings = append(warnings, fmt.Sprintf("hybrid block is ignored in %s mode", conf.Mode))
		}
	case constants.ModeHybrid:
		if conf.Subscription != nil {
			warnings = append(warnings, "subscription block is ignored in hybrid mode")
		}
	}

	return warnings
}

func expectedLength(n, horizon int) bool {
	return n == constants.MonthsPerYear || n == horizon
}

// translateFieldError renders a field error with its full config path.
func translateFieldError(fe validator.FieldError) string {
	path := fe.Namespace()
	if i := strings.Index(path, "."); i >= 0 {
		path = path[i+1:]
	}
	msg := fe.Translate(translator)
	if strings.HasPrefix(msg, fe.Field()) {
		return path + msg[len(fe.Field()):]
	}
	return path + ": " + msg
}
