package pricing

import (
	"fmt"
	"math"
	"sort"

	"github.com/pricelens/backend/internal/models"
	"github.com/pricelens/backend/internal/utils"
)

const (
	RiskProfileLow    = "low"
	RiskProfileMedium = "medium"
	RiskProfileHigh   = "high"
)

const (
	ComplexityLow    = "low"
	ComplexityMedium = "medium"
	ComplexityHigh   = "high"
)

// Input is the ontology slice the generator projects options from.
type Input struct {
	OrgID        string
	Segments     []models.Segment
	Economics    models.EconomicsSnapshot
	Tiers        []models.PricingTier
	ValueMetrics []models.ValueMetric
	Competitive  *models.CompetitiveContext
}

// Generate synthesizes 3-5 candidate structural changes. It is a pure
// function of its input: option ids are hash-derived and no lever samples
// randomness, so the same ontology always yields the same set.
func Generate(in Input) []models.PricingOption {
	options := []models.PricingOption{
		priceIncrease(in),
		valueMetricChange(in),
		repackaging(in),
	}
	if opt, ok := newTier(in); ok {
		options = append(options, opt)
	}
	if opt, ok := minimumFee(in); ok {
		options = append(options, opt)
	}
	return options
}

func optionID(orgID, optionType string) string {
	return fmt.Sprintf("opt-%s-%06x", optionType, utils.HashStringToUint64(orgID+":"+optionType)&0xffffff)
}

func elasticityFor(in Input, segmentID string) float64 {
	for _, s := range in.Economics.PriceSensitivity {
		if s.SegmentID == segmentID {
			return s.Elasticity
		}
	}
	return -0.4
}

func churnPerPercentFor(in Input, segmentID string) float64 {
	for _, s := range in.Economics.PriceSensitivity {
		if s.SegmentID == segmentID {
			return s.ChurnPerPercentIncrease
		}
	}
	return 0.004
}

// impactModel widens the optimistic/pessimistic band with the risk profile.
func impactModel(expected, churnIncrease float64, risk string, months int) models.ImpactModel {
	factor := 1.0
	confidence := 0.8
	switch risk {
	case RiskProfileMedium:
		factor = 2.0
		confidence = 0.65
	case RiskProfileHigh:
		factor = 3.0
		confidence = 0.5
	}
	// Band width comes from the magnitude so the ordering holds when
	// expected is negative (elasticity below -1 can flip the sign).
	width := math.Abs(expected)
	return models.ImpactModel{
		ExpectedARRChange:      utils.Round2(expected),
		OptimisticARRChange:    utils.Round2(expected + width*0.2*factor),
		PessimisticARRChange:   utils.Round2(expected - width*0.3*factor),
		ExpectedChurnIncrease:  utils.Round4(churnIncrease),
		TimeToFullImpactMonths: months,
		Confidence:             confidence,
	}
}

func priceIncrease(in Input) models.PricingOption {
	pct := 0.08
	if in.Economics.NetRevenueRetention >= 110 {
		pct = 0.10
	}
	if in.Economics.RiskLevel == models.RiskHigh || in.Economics.RiskLevel == models.RiskCritical {
		pct = 0.06
	}
	if underpricedByCompetitors(in) {
		pct = 0.05
	}

	var expected, churnIncrease float64
	for _, seg := range in.Segments {
		if !seg.IsActive {
			continue
		}
		segARR := in.Economics.TotalARR * seg.RevenueShare
		e := elasticityFor(in, seg.ID)
		expected += segARR * pct * (1 + e)
		churnIncrease += seg.RevenueShare * churnPerPercentFor(in, seg.ID) * pct * 100
	}

	risk := RiskProfileMedium
	if pct <= 0.05 {
		risk = RiskProfileLow
	}

	changes := make([]models.PricingChange, 0, len(in.Tiers))
	for _, t := range in.Tiers {
		if !t.IsActive {
			continue
		}
		changes = append(changes, models.PricingChange{
			Target: "tier:" + t.Name,
			From:   fmt.Sprintf("%.2f/mo", t.PriceMonthly),
			To:     fmt.Sprintf("%.2f/mo", t.PriceMonthly*(1+pct)),
		})
	}
	if len(changes) == 0 {
		changes = append(changes, models.PricingChange{Target: "all_tiers", From: "current", To: fmt.Sprintf("+%.0f%%", pct*100)})
	}

	return models.PricingOption{
		ID:          optionID(in.OrgID, models.OptionPriceIncrease),
		OptionType:  models.OptionPriceIncrease,
		Description: fmt.Sprintf("Across-the-board %.0f%% price increase on all active tiers", pct*100),
		Changes:     changes,
		Impact:      impactModel(expected, churnIncrease, risk, 6),
		RiskProfile: risk,
		Complexity:  ComplexityLow,
	}
}

func valueMetricChange(in Input) models.PricingOption {
	// Promote the secondary metric most correlated with expansion; when no
	// metrics exist yet, the option proposes introducing a usage metric.
	var best *models.ValueMetric
	for i := range in.ValueMetrics {
		m := &in.ValueMetrics[i]
		if m.MetricType != models.MetricSecondary {
			continue
		}
		if best == nil || m.CorrelationToExpansion > best.CorrelationToExpansion {
			best = m
		}
	}

	description := "Introduce a usage-based value metric alongside seat pricing"
	target := "value_metric:new"
	from := "none"
	to := "usage-based metric"
	correlation := 0.4
	if best != nil {
		description = fmt.Sprintf("Promote %s to the primary value metric", best.Name)
		target = "value_metric:" + best.Name
		from = models.MetricSecondary
		to = models.MetricPrimary
		correlation = best.CorrelationToExpansion
	}

	expected := in.Economics.TotalARR * 0.03 * utils.Clamp(correlation, 0, 1)
	return models.PricingOption{
		ID:          optionID(in.OrgID, models.OptionValueMetricChange),
		OptionType:  models.OptionValueMetricChange,
		Description: description,
		Changes:     []models.PricingChange{{Target: target, From: from, To: to}},
		Impact:      impactModel(expected, 0.001, RiskProfileMedium, 9),
		RiskProfile: RiskProfileMedium,
		Complexity:  ComplexityHigh,
	}
}

func repackaging(in Input) models.PricingOption {
	driver := "advanced capabilities"
	if len(in.Segments) > 0 && len(in.Segments[0].ValueDrivers) > 0 {
		driver = in.Segments[0].ValueDrivers[0]
	}
	expected := in.Economics.TotalARR * 0.02
	return models.PricingOption{
		ID:          optionID(in.OrgID, models.OptionRepackaging),
		OptionType:  models.OptionRepackaging,
		Description: fmt.Sprintf("Repackage %s into upper tiers to sharpen differentiation", driver),
		Changes: []models.PricingChange{
			{Target: "packaging:" + driver, From: "all tiers", To: "upper tiers"},
		},
		Impact:      impactModel(expected, 0.002, RiskProfileMedium, 6),
		RiskProfile: RiskProfileMedium,
		Complexity:  ComplexityMedium,
	}
}

// newTier fires only when adjacent tier prices leave a gap wide enough to
// lose upgraders in.
func newTier(in Input) (models.PricingOption, bool) {
	tiers := activeTiersByPosition(in.Tiers)
	if len(tiers) < 2 {
		return models.PricingOption{}, false
	}

	gapIdx := -1
	gapRatio := 0.0
	for i := 0; i+1 < len(tiers); i++ {
		if tiers[i].PriceMonthly <= 0 {
			continue
		}
		ratio := tiers[i+1].PriceMonthly / tiers[i].PriceMonthly
		if ratio > gapRatio {
			gapRatio = ratio
			gapIdx = i
		}
	}
	if gapIdx < 0 || gapRatio < 2.5 {
		return models.PricingOption{}, false
	}

	lower, upper := tiers[gapIdx], tiers[gapIdx+1]
	price := utils.Round2(math.Sqrt(lower.PriceMonthly * upper.PriceMonthly))
	expected := in.Economics.TotalARR * 0.04

	return models.PricingOption{
		ID:          optionID(in.OrgID, models.OptionNewTier),
		OptionType:  models.OptionNewTier,
		Description: fmt.Sprintf("Insert a tier at %.0f/mo between %s and %s", price, lower.Name, upper.Name),
		Changes: []models.PricingChange{
			{Target: "tier:new", From: "none", To: fmt.Sprintf("%.2f/mo at position %d", price, lower.Position+1)},
		},
		Impact:      impactModel(expected, 0.001, RiskProfileLow, 4),
		RiskProfile: RiskProfileLow,
		Complexity:  ComplexityMedium,
	}, true
}

// minimumFee fires when a low-MRR tail drags unit economics.
func minimumFee(in Input) (models.PricingOption, bool) {
	var tail *models.Segment
	for i := range in.Segments {
		s := &in.Segments[i]
		if s.IsActive && s.CustomerCount > 0 && s.AvgMRR > 0 && s.AvgMRR < 100 {
			tail = s
			break
		}
	}
	if tail == nil {
		return models.PricingOption{}, false
	}

	fee := 49.0
	uplift := (fee - tail.AvgMRR) * 12 * float64(tail.CustomerCount)
	churn := churnPerPercentFor(in, tail.ID) * utils.SafeDiv(fee-tail.AvgMRR, tail.AvgMRR) * 100
	// Assume a churn-discounted 60% of the mechanical uplift materializes.
	expected := uplift * 0.6

	return models.PricingOption{
		ID:          optionID(in.OrgID, models.OptionMinimumFee),
		OptionType:  models.OptionMinimumFee,
		Description: fmt.Sprintf("Introduce a %.0f/mo minimum fee for the %s segment", fee, tail.Name),
		Changes: []models.PricingChange{
			{Target: "segment:" + tail.Name, From: fmt.Sprintf("avg %.2f/mo", tail.AvgMRR), To: fmt.Sprintf("min %.2f/mo", fee)},
		},
		Impact:      impactModel(expected, churn, RiskProfileHigh, 3),
		RiskProfile: RiskProfileHigh,
		Complexity:  ComplexityLow,
	}, true
}

func activeTiersByPosition(tiers []models.PricingTier) []models.PricingTier {
	out := make([]models.PricingTier, 0, len(tiers))
	for _, t := range tiers {
		if t.IsActive {
			out = append(out, t)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Position < out[j].Position })
	return out
}

func underpricedByCompetitors(in Input) bool {
	if in.Competitive == nil || len(in.Competitive.Competitors) == 0 {
		return false
	}
	tiers := activeTiersByPosition(in.Tiers)
	if len(tiers) == 0 {
		return false
	}
	entry := tiers[0].PriceMonthly
	for _, c := range in.Competitive.Competitors {
		if c.EntryPrice > 0 && c.EntryPrice < entry {
			return true
		}
	}
	return false
}
