package finance

import (
	"fmt"
	"math"

	"github.com/iwvelando/saas-forecast/pkg/constants"
)

// GrowthModel advances the entity count by one period. period is zero-based.
type GrowthModel interface {
	Name() string
	Initial() Flow
	Next(period int, prev Flow) Flow
}

func churnCount(start int, rate float64) int {
	churned := int(math.Round(float64(start) * rate))
	if churned > start {
		churned = start
	}
	if churned < 0 {
		churned = 0
	}
	return churned
}

func endingCount(start, churned, added int) int {
	end := start - churned + added
	if end < 0 {
		return 0
	}
	return end
}

// patternAt indexes the growth pattern cyclically.
func patternAt(pattern []int, period int) int {
	if len(pattern) == 0 {
		return 0
	}
	return pattern[period%len(pattern)]
}

// BasicGrowth adds users from a repeating seasonal pattern after churning the
// starting count.
type BasicGrowth struct {
	InitialUsers int
	ChurnRate    float64
	Pattern      []int
}

// NewBasicGrowth validates the pattern and builds a BasicGrowth.
func NewBasicGrowth(initialUsers int, churnRate float64, pattern []int) (*BasicGrowth, error) {
	if len(pattern) == 0 {
		return nil, fmt.Errorf("growth pattern cannot be empty")
	}
	return &BasicGrowth{InitialUsers: initialUsers, ChurnRate: churnRate, Pattern: pattern}, nil
}

func (g *BasicGrowth) Name() string { return constants.ModeBasic }

func (g *BasicGrowth) Initial() Flow {
	n := g.InitialUsers
	if n < 0 {
		n = 0
	}
	return Flow{End: n, TotalUsers: n}
}

func (g *BasicGrowth) Next(period int, prev Flow) Flow {
	start := prev.End
	churned := churnCount(start, g.ChurnRate)
	added := patternAt(g.Pattern, period)
	if added < 0 {
		added = 0
	}
	end := endingCount(start, churned, added)
	return Flow{
		Start:      start,
		New:        added,
		OrganicNew: added,
		Churned:    churned,
		End:        end,
		TotalUsers: end,
	}
}

// MarketingGrowth blends paid acquisition (spend / CAC) with the organic
// seasonal pattern, compounding organic growth annually by GrowthRate.
type MarketingGrowth struct {
	InitialUsers   int
	ChurnRate      float64
	Pattern        []int
	GrowthRate     float64
	MarketingSpend float64
	CAC            float64
	PaidShare      float64
}

// NewMarketingGrowth validates the inputs and builds a MarketingGrowth.
func NewMarketingGrowth(g MarketingGrowth) (*MarketingGrowth, error) {
	if len(g.Pattern) == 0 {
		return nil, fmt.Errorf("growth pattern cannot be empty")
	}
	if g.PaidShare < 0 || g.PaidShare > 1 {
		return nil, fmt.Errorf("paid share %.2f outside [0, 1]", g.PaidShare)
	}
	if g.GrowthRate <= -1 {
		return nil, fmt.Errorf("growth rate %.2f must be greater than -1", g.GrowthRate)
	}
	return &g, nil
}

func (g *MarketingGrowth) Name() string { return constants.ModeEnhanced }

func (g *MarketingGrowth) Initial() Flow {
	n := g.InitialUsers
	if n < 0 {
		n = 0
	}
	return Flow{End: n, TotalUsers: n}
}

func (g *MarketingGrowth) Next(period int, prev Flow) Flow {
	start := prev.End
	churned := churnCount(start, g.ChurnRate)

	paidShare := g.PaidShare
	paid := 0.0
	if g.CAC > 0 && g.MarketingSpend > 0 {
		paid = g.MarketingSpend / g.CAC * paidShare
	} else {
		paidShare = 0
	}

	yearFraction := float64(period) / constants.MonthsPerYear
	organic := float64(patternAt(g.Pattern, period)) * (1 - paidShare) * math.Pow(1+g.GrowthRate, yearFraction)
	if organic < 0 {
		organic = 0
	}

	paidNew := int(math.Round(paid))
	organicNew := int(math.Round(organic))
	added := paidNew + organicNew
	end := endingCount(start, churned, added)
	return Flow{
		Start:      start,
		New:        added,
		PaidNew:    paidNew,
		OrganicNew: organicNew,
		Churned:    churned,
		End:        end,
		TotalUsers: end,
	}
}

// TenantGrowth grows tenants by a monthly rate and, independently, the users
// and usage carried by each tenant. Total-user churn is tenant churn scaled by
// UserChurnDamping.
type TenantGrowth struct {
	InitialTenants   int
	UsersPerTenant   float64
	UsagePerTenant   float64
	TenantGrowthRate float64
	UserGrowthRate   float64
	UsageGrowthRate  float64
	ChurnRate        float64
	UserChurnDamping float64
}

func (g *TenantGrowth) Name() string { return constants.ModeHybrid }

func (g *TenantGrowth) Initial() Flow {
	n := g.InitialTenants
	if n < 0 {
		n = 0
	}
	return Flow{
		End:            n,
		UsersPerEntity: g.UsersPerTenant,
		UsagePerEntity: g.UsagePerTenant,
		TotalUsers:     int(math.Round(float64(n) * g.UsersPerTenant)),
	}
}

func (g *TenantGrowth) Next(period int, prev Flow) Flow {
	start := prev.End
	churned := churnCount(start, g.ChurnRate)
	added := int(math.Round(float64(start) * g.TenantGrowthRate))
	if added < 0 {
		added = 0
	}
	end := endingCount(start, churned, added)

	usersPer := prev.UsersPerEntity * (1 + g.UserGrowthRate)
	usagePer := prev.UsagePerEntity * (1 + g.UsageGrowthRate)

	return Flow{
		Start:             start,
		New:               added,
		OrganicNew:        added,
		Churned:           churned,
		End:               end,
		UsersPerEntity:    usersPer,
		UsagePerEntity:    usagePer,
		TotalUsers:        int(math.Round(float64(end) * usersPer)),
		ChurnedTotalUsers: churnCount(prev.TotalUsers, g.ChurnRate*g.UserChurnDamping),
	}
}
