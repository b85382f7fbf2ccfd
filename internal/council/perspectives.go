package council

import (
	"fmt"

	"github.com/pricelens/backend/internal/models"
	"github.com/pricelens/backend/internal/utils"
)

// Context is everything a perspective may weigh besides the option itself.
type Context struct {
	Segments    []models.Segment
	Economics   models.EconomicsSnapshot
	Competitive *models.CompetitiveContext
}

// Perspective is a deterministic heuristic over the same impact model; the
// four fixed perspectives are pure functions so synthesis stays reproducible.
type Perspective func(opt models.PricingOption, ctx Context) models.AgentView

// Perspectives returns the fixed council in evaluation order.
func Perspectives() []Perspective {
	return []Perspective{financeView, growthView, productView, strategyView}
}

// Evaluate runs the full council over one option and synthesizes a verdict.
func Evaluate(opt models.PricingOption, ctx Context) models.CouncilEvaluation {
	views := make([]models.AgentView, 0, 4)
	for _, p := range Perspectives() {
		views = append(views, p(opt, ctx))
	}
	return models.CouncilEvaluation{
		OptionID:       opt.ID,
		Views:          views,
		Recommendation: Synthesize(views),
	}
}

// financeView weighs expected ARR gain against the pessimistic bound.
func financeView(opt models.PricingOption, ctx Context) models.AgentView {
	expected := opt.Impact.ExpectedARRChange
	downside := opt.Impact.PessimisticARRChange
	arr := ctx.Economics.TotalARR

	rec := models.RecNeutral
	confidence := 0.6
	switch {
	case arr > 0 && expected >= arr*0.05 && downside > 0:
		rec = models.RecStronglySupport
		confidence = 0.85
	case expected > 0 && downside >= -arr*0.02:
		rec = models.RecSupport
		confidence = 0.7
	case expected <= 0 && downside < 0:
		rec = models.RecOppose
		confidence = 0.7
	case arr > 0 && downside < -arr*0.05:
		rec = models.RecStronglyOppose
		confidence = 0.8
	}

	points := []string{
		fmt.Sprintf("expected ARR change %.0f", expected),
		fmt.Sprintf("pessimistic bound %.0f", downside),
	}
	if downside < 0 {
		points = append(points, "downside risk if churn outpaces the model")
	}
	return models.AgentView{
		Perspective:    models.PerspectiveFinance,
		Reasoning:      fmt.Sprintf("Projected ARR delta of %.0f against a downside of %.0f over %d months.", expected, downside, opt.Impact.TimeToFullImpactMonths),
		KeyPoints:      points,
		Recommendation: rec,
		Confidence:     confidence,
		Impact:         impactLabel(expected, arr),
	}
}

// growthView weighs expected churn by how much revenue sits in fragile
// segments.
func growthView(opt models.PricingOption, ctx Context) models.AgentView {
	churn := opt.Impact.ExpectedChurnIncrease
	fragileShare := 0.0
	for _, s := range ctx.Segments {
		if s.IsActive && s.ChurnRate > 0.15 {
			fragileShare += s.RevenueShare
		}
	}

	rec := models.RecSupport
	confidence := 0.7
	switch {
	case churn <= 0.002:
		rec = models.RecStronglySupport
		confidence = 0.8
	case churn <= 0.01:
		rec = models.RecSupport
	case churn <= 0.02 || fragileShare > 0.3:
		rec = models.RecOppose
		confidence = 0.65
	default:
		rec = models.RecStronglyOppose
		confidence = 0.75
	}
	if opt.Impact.ExpectedARRChange <= 0 {
		rec = models.RecOppose
	}

	points := []string{fmt.Sprintf("expected churn increase %.2f%%", churn*100)}
	if churn > 0.002 {
		points = append(points, "churn pressure concentrated on fragile segments")
	}
	if fragileShare > 0 {
		points = append(points, fmt.Sprintf("%.0f%% of revenue sits in high-churn segments", fragileShare*100))
	}
	return models.AgentView{
		Perspective:    models.PerspectiveGrowth,
		Reasoning:      fmt.Sprintf("Churn exposure of %.2f%% with %.0f%% of revenue in high-churn segments.", churn*100, fragileShare*100),
		KeyPoints:      points,
		Recommendation: rec,
		Confidence:     confidence,
		Impact:         churnImpactLabel(churn),
	}
}

// productView weighs alignment with the value metric and packaging clarity.
func productView(opt models.PricingOption, ctx Context) models.AgentView {
	rec := models.RecNeutral
	confidence := 0.6
	points := []string{}

	switch opt.OptionType {
	case models.OptionValueMetricChange:
		rec = models.RecStronglySupport
		confidence = 0.8
		points = append(points, "aligns price with the metric customers expand on", "migration complexity for existing plans")
	case models.OptionRepackaging:
		rec = models.RecSupport
		confidence = 0.7
		points = append(points, "sharper tier differentiation", "packaging complexity during transition")
	case models.OptionNewTier:
		rec = models.RecSupport
		confidence = 0.7
		points = append(points, "captures upgraders lost in the price gap")
	case models.OptionPriceIncrease:
		rec = models.RecNeutral
		points = append(points, "no packaging change; value story must carry the increase")
	case models.OptionMinimumFee:
		rec = models.RecOppose
		confidence = 0.65
		points = append(points, "punishes the price-sensitive tail without added value")
	}

	return models.AgentView{
		Perspective:    models.PerspectiveProduct,
		Reasoning:      fmt.Sprintf("Option %s judged on value-metric alignment and packaging clarity.", opt.OptionType),
		KeyPoints:      points,
		Recommendation: rec,
		Confidence:     confidence,
		Impact:         "product",
	}
}

// strategyView weighs competitive positioning and concentration risk.
func strategyView(opt models.PricingOption, ctx Context) models.AgentView {
	rec := models.RecSupport
	confidence := 0.65
	points := []string{}

	underpriced := false
	if ctx.Competitive != nil {
		for _, c := range ctx.Competitive.Competitors {
			if c.EntryPrice > 0 {
				points = append(points, fmt.Sprintf("%s prices entry at %.0f", c.Name, c.EntryPrice))
				underpriced = true
			}
		}
	}

	switch {
	case opt.OptionType == models.OptionPriceIncrease && underpriced:
		rec = models.RecOppose
		points = append(points, "competitors can undercut a broad increase")
	case opt.OptionType == models.OptionNewTier:
		rec = models.RecStronglySupport
		confidence = 0.75
		points = append(points, "widens the ladder against competitive entry offers")
	case opt.OptionType == models.OptionMinimumFee && ctx.Economics.RiskLevel != models.RiskLow:
		// Concentrated books benefit from trimming unprofitable tail accounts.
		rec = models.RecSupport
		points = append(points, "reduces dependence on unprofitable tail revenue")
	case opt.Impact.ExpectedARRChange <= 0:
		rec = models.RecNeutral
	}

	return models.AgentView{
		Perspective:    models.PerspectiveStrategy,
		Reasoning:      fmt.Sprintf("Positioning read for %s with concentration risk %s.", opt.OptionType, ctx.Economics.RiskLevel),
		KeyPoints:      points,
		Recommendation: rec,
		Confidence:     confidence,
		Impact:         "strategic",
	}
}

func impactLabel(expected, arr float64) string {
	share := utils.SafeDiv(expected, arr)
	switch {
	case share >= 0.05:
		return "major"
	case share >= 0.01:
		return "moderate"
	case share > 0:
		return "minor"
	default:
		return "negative"
	}
}

func churnImpactLabel(churn float64) string {
	switch {
	case churn <= 0.002:
		return "minimal"
	case churn <= 0.01:
		return "manageable"
	default:
		return "significant"
	}
}
