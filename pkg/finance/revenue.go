package finance

import "math"

// RevenueModel prices a period's entity flow.
type RevenueModel interface {
	Revenue(flow Flow) Revenue
	// UnitPrice is the recurring price of one entity, used as the
	// contribution-margin numerator by break-even analysis.
	UnitPrice(flow Flow, revenue Revenue) float64
}

// FlatRevenue charges a single price per user plus a flat add-on
// approximation: every enabled add-on earns BaseFee plus PerUserRate per
// average user. Add-ons are not individually priced.
type FlatRevenue struct {
	PricePerUser     float64
	AddonCount       int
	AddonBaseFee     float64
	AddonPerUserRate float64
}

func (m FlatRevenue) Revenue(flow Flow) Revenue {
	avg := flow.Average()
	addons := float64(m.AddonCount)
	return Revenue{
		Base:  avg * m.PricePerUser,
		Addon: m.AddonBaseFee*addons + m.AddonPerUserRate*avg*addons,
	}.withTotal()
}

func (m FlatRevenue) UnitPrice(Flow, Revenue) float64 {
	return m.PricePerUser
}

// Tier is a hybrid pricing tier.
type Tier struct {
	Name             string
	BaseFee          float64
	IncludedUsers    float64
	PerUserRate      float64
	IncludedUsage    float64
	UsageOverageRate float64
}

// TieredRevenue bills each tenant a base fee, per-user overage above the
// tier allowance, usage overage above the credit allowance and flat add-on
// prices, scaled by the average tenant count.
type TieredRevenue struct {
	Tier        Tier
	AddonPrices []float64
}

func (m TieredRevenue) perTenant(flow Flow) (base, userOverage, usageOverage, addon float64) {
	base = m.Tier.BaseFee
	userOverage = math.Max(0, flow.UsersPerEntity-m.Tier.IncludedUsers) * m.Tier.PerUserRate
	usageOverage = math.Max(0, flow.UsagePerEntity-m.Tier.IncludedUsage) * m.Tier.UsageOverageRate
	for _, price := range m.AddonPrices {
		addon += price
	}
	return base, userOverage, usageOverage, addon
}

func (m TieredRevenue) Revenue(flow Flow) Revenue {
	avg := flow.Average()
	base, userOverage, usageOverage, addon := m.perTenant(flow)
	return Revenue{
		Base:         base * avg,
		Addon:        addon * avg,
		UserOverage:  userOverage * avg,
		UsageOverage: usageOverage * avg,
	}.withTotal()
}

func (m TieredRevenue) UnitPrice(flow Flow, _ Revenue) float64 {
	base, userOverage, usageOverage, addon := m.perTenant(flow)
	return base + userOverage + usageOverage + addon
}
