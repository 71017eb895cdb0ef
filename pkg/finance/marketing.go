package finance

import (
	"sort"

	"github.com/iwvelando/saas-forecast/pkg/mathutil"
)

// Channel is a marketing channel with its share of spend and a relative
// efficiency multiplier.
type Channel struct {
	Name       string
	Weight     float64
	Efficiency float64
}

// DefaultChannels is the static channel mix used when spend by channel is not
// configured.
var DefaultChannels = []Channel{
	{Name: "performance", Weight: 0.40, Efficiency: 1.2},
	{Name: "content", Weight: 0.25, Efficiency: 0.9},
	{Name: "brand", Weight: 0.20, Efficiency: 0.6},
	{Name: "affiliate", Weight: 0.15, Efficiency: 1.1},
}

// ChannelsFromSpend turns configured spend by channel into weights. Channels
// without a known efficiency get 1.0. Names are sorted for stable output.
func ChannelsFromSpend(spend map[string]float64) []Channel {
	total := 0.0
	for _, v := range spend {
		total += v
	}
	if total <= 0 {
		return DefaultChannels
	}
	efficiency := make(map[string]float64, len(DefaultChannels))
	for _, c := range DefaultChannels {
		efficiency[c.Name] = c.Efficiency
	}

	names := make([]string, 0, len(spend))
	for name := range spend {
		names = append(names, name)
	}
	sort.Strings(names)

	channels := make([]Channel, 0, len(names))
	for _, name := range names {
		eff, ok := efficiency[name]
		if !ok {
			eff = 1.0
		}
		channels = append(channels, Channel{Name: name, Weight: spend[name] / total, Efficiency: eff})
	}
	return channels
}

// MarketingParams are the run-level marketing inputs.
type MarketingParams struct {
	ConversionRate   float64
	LeadQualityScore float64
	Channels         []Channel
}

// AnalyzeMarketing aggregates spend efficiency across the series and splits
// it over channels by static weights.
func AnalyzeMarketing(monthly []MonthlyRecord, params MarketingParams) MarketingAnalyticsSummary {
	var (
		spend       float64
		revenue     float64
		newUsers    int
		paidUsers   int
		ltvSum      float64
		paybackSum  float64
		paybackSeen int
	)
	for _, m := range monthly {
		spend += m.Costs.Marketing
		revenue += m.Revenue.Total
		newUsers += m.NewUsers
		paidUsers += m.PaidUsers
		ltvSum += m.LTV
		if m.PaybackMonths > 0 {
			paybackSum += m.PaybackMonths
			paybackSeen++
		}
	}

	summary := MarketingAnalyticsSummary{
		TotalSpend:       mathutil.Round(spend),
		TotalNewUsers:    newUsers,
		LeadQualityScore: params.LeadQualityScore,
	}
	if len(monthly) > 0 {
		summary.BlendedLTV = mathutil.Round(ltvSum / float64(len(monthly)))
	}
	if newUsers > 0 {
		summary.BlendedCAC = mathutil.Round(spend / float64(newUsers))
	}
	if summary.BlendedCAC > 0 {
		summary.LTVToCACRatio = mathutil.Round(summary.BlendedLTV / summary.BlendedCAC)
	}
	if paybackSeen > 0 {
		summary.AveragePaybackMonths = mathutil.Round(paybackSum / float64(paybackSeen))
	}
	if spend > 0 {
		summary.ROI = mathutil.Round((revenue - spend) / spend)
	}
	if params.ConversionRate > 0 {
		acquired := paidUsers
		if acquired == 0 {
			acquired = newUsers
		}
		summary.TotalLeads = mathutil.Round(float64(acquired) / params.ConversionRate)
	}

	channels := params.Channels
	if len(channels) == 0 {
		channels = DefaultChannels
	}
	effectiveTotal := 0.0
	for _, c := range channels {
		effectiveTotal += c.Weight * c.Efficiency
	}
	for _, c := range channels {
		channelSpend := spend * c.Weight
		acquisitions := 0.0
		if effectiveTotal > 0 {
			acquisitions = float64(newUsers) * c.Weight * c.Efficiency / effectiveTotal
		}
		cs := ChannelSummary{
			Name:         c.Name,
			Weight:       c.Weight,
			Spend:        mathutil.Round(channelSpend),
			Acquisitions: mathutil.Round(acquisitions),
		}
		if acquisitions > 0 {
			cs.CAC = mathutil.Round(channelSpend / acquisitions)
		}
		if channelSpend > 0 && newUsers > 0 {
			attributedRevenue := revenue * acquisitions / float64(newUsers)
			cs.ROI = mathutil.Round((attributedRevenue - channelSpend) / channelSpend)
		}
		summary.Channels = append(summary.Channels, cs)
	}

	return summary
}
