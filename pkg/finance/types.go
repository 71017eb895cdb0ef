package finance

// Flow is the entity movement for one period. Entities are users in
// single-tier modes and tenants in hybrid mode.
type Flow struct {
	Start      int
	New        int
	PaidNew    int
	OrganicNew int
	Churned    int
	End        int

	// Hybrid only: per-tenant scalars and the derived total user count.
	UsersPerEntity    float64
	UsagePerEntity    float64
	TotalUsers        int
	ChurnedTotalUsers int
}

// Average is the arithmetic mean of the start and end entity counts; revenue
// and variable cost are charged against it.
func (f Flow) Average() float64 {
	return float64(f.Start+f.End) / 2
}

// Revenue is the revenue breakdown for a period.
type Revenue struct {
	Base         float64 `json:"base"`
	Addon        float64 `json:"addon"`
	UserOverage  float64 `json:"userOverage"`
	UsageOverage float64 `json:"usageOverage"`
	Total        float64 `json:"total"`
}

func (r Revenue) withTotal() Revenue {
	r.Total = r.Base + r.Addon + r.UserOverage + r.UsageOverage
	return r
}

// Costs is the expense breakdown for a period.
type Costs struct {
	Fixed     float64 `json:"fixed"`
	Variable  float64 `json:"variable"`
	Marketing float64 `json:"marketing"`
	Capital   float64 `json:"capital"`
	Total     float64 `json:"total"`
}

func (c Costs) withTotal() Costs {
	c.Total = c.Fixed + c.Variable + c.Marketing + c.Capital
	return c
}

// MonthlyRecord is one emitted period of a projection. Money is rounded to
// cents.
type MonthlyRecord struct {
	Month             int     `json:"month"`
	Date              string  `json:"date"`
	StartUsers        int     `json:"startUsers"`
	Users             int     `json:"users"`
	NewUsers          int     `json:"newUsers"`
	PaidUsers         int     `json:"paidUsers"`
	OrganicUsers      int     `json:"organicUsers"`
	ChurnedUsers      int     `json:"churnedUsers"`
	AverageUsers      float64 `json:"averageUsers"`
	TotalUsers        int     `json:"totalUsers"`
	ChurnedTotalUsers int     `json:"churnedTotalUsers"`
	UsersPerTenant    float64 `json:"usersPerTenant"`
	UsagePerTenant    float64 `json:"usagePerTenant"`

	Revenue Revenue `json:"revenue"`
	Costs   Costs   `json:"costs"`
	Profit  float64 `json:"profit"`
	Cash    float64 `json:"cash"`

	ARPU                float64 `json:"arpu"`
	MRR                 float64 `json:"mrr"`
	CAC                 float64 `json:"cac"`
	LTV                 float64 `json:"ltv"`
	RetentionRate       float64 `json:"retentionRate"`
	NetRevenueRetention float64 `json:"netRevenueRetention"`
	PaybackMonths       float64 `json:"paybackMonths"`
}

// BreakEvenRecord describes how far a period is from covering its costs.
type BreakEvenRecord struct {
	Month                    int     `json:"month"`
	Date                     string  `json:"date"`
	RequiredRevenue          float64 `json:"requiredRevenue"`
	ContributionMargin       float64 `json:"contributionMargin"`
	Reachable                bool    `json:"reachable"`
	RequiredUsers            *int    `json:"requiredUsers"`
	BreakEvenRevenue         float64 `json:"breakEvenRevenue"`
	ActualRevenue            float64 `json:"actualRevenue"`
	IsBreakEven              bool    `json:"isBreakEven"`
	RevenueCoversRequirement bool    `json:"revenueCoversRequirement"`
	PercentToBreakEven       float64 `json:"percentToBreakEven"`
}

// Annualization methods reported by the revenue goal analyzer.
const (
	AnnualizationTrailing12   = "trailing12"
	AnnualizationExtrapolated = "extrapolated"
)

// RevenueGoalSummary tracks progress toward the annual revenue target.
type RevenueGoalSummary struct {
	Target                   float64 `json:"target"`
	CurrentAnnualRevenue     float64 `json:"currentAnnualRevenue"`
	AnnualizationMethod      string  `json:"annualizationMethod"`
	MonthlyGoal              float64 `json:"monthlyGoal"`
	RequiredUsersForGoal     *int    `json:"requiredUsersForGoal"`
	AdditionalUsersNeeded    int     `json:"additionalUsersNeeded"`
	ProgressPercentage       float64 `json:"progressPercentage"`
	ProjectedAnnualRevenue   float64 `json:"projectedAnnualRevenue"`
	ImpliedMonthlyGrowthRate float64 `json:"impliedMonthlyGrowthRate"`
	MonthsToReachGoal        *int    `json:"monthsToReachGoal"`
}

// ChannelSummary is the heuristic attribution for one marketing channel.
type ChannelSummary struct {
	Name         string  `json:"name"`
	Weight       float64 `json:"weight"`
	Spend        float64 `json:"spend"`
	Acquisitions float64 `json:"acquisitions"`
	CAC          float64 `json:"cac"`
	ROI          float64 `json:"roi"`
}

// MarketingAnalyticsSummary aggregates acquisition efficiency over a run.
// Channel figures come from static weights, not measured attribution.
type MarketingAnalyticsSummary struct {
	TotalSpend           float64          `json:"totalSpend"`
	TotalNewUsers        int              `json:"totalNewUsers"`
	TotalLeads           float64          `json:"totalLeads"`
	BlendedCAC           float64          `json:"blendedCac"`
	BlendedLTV           float64          `json:"blendedLtv"`
	LTVToCACRatio        float64          `json:"ltvToCacRatio"`
	AveragePaybackMonths float64          `json:"averagePaybackMonths"`
	ROI                  float64          `json:"roi"`
	LeadQualityScore     float64          `json:"leadQualityScore"`
	Channels             []ChannelSummary `json:"channels"`
}
