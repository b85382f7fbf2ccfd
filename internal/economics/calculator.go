package economics

import (
	"math"
	"sort"

	"github.com/pricelens/backend/internal/models"
	"github.com/pricelens/backend/internal/utils"
)

// HHI risk thresholds, percentage-point formulation (0-10000). Treated as
// the product contract; change in one place only.
const (
	HHILowBelow      = 1500.0
	HHIModerateBelow = 2500.0
	// CriticalTopDecileShare gates critical on top-decile concentration.
	CriticalTopDecileShare = 0.7
)

// Elasticity bounds for the per-segment estimate.
const (
	elasticityBase = -0.4
	elasticityMin  = -1.5
	elasticityMax  = -0.05
)

// Compute aggregates one immutable economics snapshot from the customer set
// and the active segments. Zero customers degrade to zero totals and low
// risk; every ratio guards its denominator.
func Compute(orgID string, customers []models.Customer, segments []models.Segment) models.EconomicsSnapshot {
	snap := models.EconomicsSnapshot{
		OrganizationID: orgID,
		RiskLevel:      models.RiskLow,
	}

	var activeMRR []float64
	for _, c := range customers {
		if c.Status == models.CustomerChurned {
			continue
		}
		snap.TotalCustomers++
		snap.TotalMRR += c.MRR
		activeMRR = append(activeMRR, c.MRR)
	}
	snap.TotalMRR = utils.Round2(snap.TotalMRR)
	snap.TotalARR = utils.Round2(snap.TotalMRR * 12)

	if snap.TotalCustomers == 0 {
		snap.PriceSensitivity = sensitivities(segments)
		return snap
	}

	snap.Top10PercentRevenueShare, snap.TopCustomerRevenueShare = concentration(activeMRR, snap.TotalMRR)
	snap.HHIIndex = HHI(segments)
	snap.RiskLevel = RiskLevel(snap.HHIIndex, snap.Top10PercentRevenueShare)
	snap.NetRevenueRetention, snap.GrossRevenueRetention = retention(customers)
	snap.MRRGrowthRate = growthRate(customers, snap.TotalMRR)
	snap.PriceSensitivity = sensitivities(segments)
	return snap
}

// concentration sorts descending by MRR and measures the top decile and the
// single largest customer against total MRR.
func concentration(mrr []float64, totalMRR float64) (topDecile, topCustomer float64) {
	if len(mrr) == 0 || totalMRR == 0 {
		return 0, 0
	}
	sorted := make([]float64, len(mrr))
	copy(sorted, mrr)
	sort.Sort(sort.Reverse(sort.Float64Slice(sorted)))

	decileCount := int(math.Ceil(float64(len(sorted)) / 10))
	if decileCount < 1 {
		decileCount = 1
	}
	decileSum := 0.0
	for i := 0; i < decileCount; i++ {
		decileSum += sorted[i]
	}
	return utils.Round4(decileSum / totalMRR), utils.Round4(sorted[0] / totalMRR)
}

// HHI is the Herfindahl-Hirschman index over active segment revenue shares,
// shares expressed in percentage points so the range is [0, 10000].
func HHI(segments []models.Segment) float64 {
	sum := 0.0
	for _, s := range segments {
		if !s.IsActive {
			continue
		}
		pct := s.RevenueShare * 100
		sum += pct * pct
	}
	return utils.Round2(sum)
}

// RiskLevel maps HHI to a concentration risk band; critical additionally
// requires the top decile to hold more than 70% of revenue.
func RiskLevel(hhi, topDecileShare float64) string {
	switch {
	case hhi < HHILowBelow:
		return models.RiskLow
	case hhi <= HHIModerateBelow:
		return models.RiskModerate
	case topDecileShare > CriticalTopDecileShare:
		return models.RiskCritical
	default:
		return models.RiskHigh
	}
}

// retention compares the cohort that existed at the start of the window
// (starting_mrr > 0) against its MRR today. NRR keeps expansion; GRR caps
// each customer at its starting level. Both are percentages.
func retention(customers []models.Customer) (nrr, grr float64) {
	var starting, ending, endingCapped float64
	for _, c := range customers {
		if c.StartingMRR <= 0 {
			continue
		}
		starting += c.StartingMRR
		current := c.MRR
		if c.Status == models.CustomerChurned {
			current = 0
		}
		ending += current
		endingCapped += math.Min(current, c.StartingMRR)
	}
	if starting == 0 {
		return 0, 0
	}
	return utils.Round2(ending / starting * 100), utils.Round2(endingCapped / starting * 100)
}

// growthRate is the percentage MRR delta against the cohort baseline.
func growthRate(customers []models.Customer, totalMRR float64) float64 {
	var starting float64
	for _, c := range customers {
		starting += c.StartingMRR
	}
	if starting == 0 {
		return 0
	}
	return utils.Round2((totalMRR - starting) / starting * 100)
}

// sensitivities estimates a price-elasticity coefficient per segment and the
// churn expected per 1% price increase (fraction of the segment's base).
func sensitivities(segments []models.Segment) []models.SegmentSensitivity {
	out := make([]models.SegmentSensitivity, 0, len(segments))
	for _, s := range segments {
		if !s.IsActive {
			continue
		}
		e := EstimateElasticity(s)
		out = append(out, models.SegmentSensitivity{
			SegmentID:               s.ID,
			SegmentName:             s.Name,
			Elasticity:              e,
			ChurnPerPercentIncrease: utils.Round4(math.Abs(e) * 0.01),
		})
	}
	return out
}

// EstimateElasticity derives a coefficient from segment behavior: high-MRR
// segments are stickier, churn-heavy segments are more price sensitive.
func EstimateElasticity(s models.Segment) float64 {
	e := elasticityBase
	if s.AvgMRR >= 5000 {
		e += 0.2
	} else if s.AvgMRR >= 1000 {
		e += 0.1
	} else if s.AvgMRR < 200 {
		e -= 0.2
	}
	e -= s.ChurnRate * 0.5
	if s.ExpansionRate > 0.2 {
		e += 0.05
	}
	return utils.Round4(utils.Clamp(e, elasticityMin, elasticityMax))
}
