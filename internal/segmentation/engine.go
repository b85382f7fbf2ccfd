package segmentation

import (
	"math"
	"sort"
	"time"

	"github.com/pricelens/backend/internal/models"
	"github.com/pricelens/backend/internal/utils"
)

// RetentionCurvePoints is the monthly horizon of the per-segment curve.
const RetentionCurvePoints = 12

// DefaultTrailingWindowMonths is the churn observation window.
const DefaultTrailingWindowMonths = 12

// Band is a preset criteria bucket used when (re)generating segments.
type Band struct {
	Name         string
	MinMRR       float64
	ValueDrivers []string
}

// B2BSaaSBands is the default seeding preset, ordered from highest floor to
// lowest so the first match wins.
var B2BSaaSBands = []Band{
	{Name: "Enterprise", MinMRR: 5000, ValueDrivers: []string{"dedicated support", "security & compliance", "custom integrations"}},
	{Name: "Mid-Market", MinMRR: 1000, ValueDrivers: []string{"team collaboration", "advanced reporting"}},
	{Name: "SMB", MinMRR: 200, ValueDrivers: []string{"ease of setup", "core workflow"}},
	{Name: "Self-Serve", MinMRR: 0, ValueDrivers: []string{"price", "time to value"}},
}

// MatchBand returns the first band whose floor the customer clears.
func MatchBand(c models.Customer, bands []Band) Band {
	for _, b := range bands {
		if c.MRR >= b.MinMRR {
			return b
		}
	}
	return bands[len(bands)-1]
}

// Group is one named cluster of customers plus the criteria that formed it.
type Group struct {
	Name         string
	SegmentID    string
	Criteria     []models.SegmentCriterion
	ValueDrivers []string
	Customers    []models.Customer
}

// GroupByAssignment clusters customers by their stored segment pointer.
// Customers without an assignment are skipped; callers regenerate via bands
// when that loses too much revenue.
func GroupByAssignment(customers []models.Customer, segments []models.Segment) []Group {
	byID := map[string]*Group{}
	order := []string{}
	for _, seg := range segments {
		byID[seg.ID] = &Group{Name: seg.Name, SegmentID: seg.ID, Criteria: seg.Criteria, ValueDrivers: seg.ValueDrivers}
		order = append(order, seg.ID)
	}
	for _, c := range customers {
		if c.SegmentID == nil {
			continue
		}
		g, ok := byID[*c.SegmentID]
		if !ok {
			continue
		}
		g.Customers = append(g.Customers, c)
	}

	out := make([]Group, 0, len(order))
	for _, id := range order {
		out = append(out, *byID[id])
	}
	return out
}

// GroupByBands clusters customers into preset bands, producing criteria
// predicates alongside each group.
func GroupByBands(customers []models.Customer, bands []Band) []Group {
	byName := map[string]*Group{}
	order := []string{}
	for _, b := range bands {
		byName[b.Name] = &Group{
			Name:         b.Name,
			Criteria:     []models.SegmentCriterion{{Field: "mrr", Op: "gte", Value: b.MinMRR}},
			ValueDrivers: b.ValueDrivers,
		}
		order = append(order, b.Name)
	}
	for _, c := range customers {
		band := MatchBand(c, bands)
		byName[band.Name].Customers = append(byName[band.Name].Customers, c)
	}

	out := make([]Group, 0, len(order))
	for _, name := range order {
		out = append(out, *byName[name])
	}
	return out
}

// BuildSegments computes segment metrics for every group. Revenue shares
// come from raw MRR totals so the sum-to-one invariant survives rounding.
// A group with no customers yields a segment of zero metrics, not an error.
func BuildSegments(orgID string, groups []Group, now time.Time, windowMonths int) []models.Segment {
	if windowMonths <= 0 {
		windowMonths = DefaultTrailingWindowMonths
	}

	totalMRR := 0.0
	for _, g := range groups {
		for _, c := range g.Customers {
			if c.Status != models.CustomerChurned {
				totalMRR += c.MRR
			}
		}
	}

	out := make([]models.Segment, 0, len(groups))
	for _, g := range groups {
		seg := computeSegment(orgID, g, totalMRR, now, windowMonths)
		out = append(out, seg)
	}

	sort.SliceStable(out, func(i, j int) bool {
		if out[i].TotalRevenue == out[j].TotalRevenue {
			return out[i].Name < out[j].Name
		}
		return out[i].TotalRevenue > out[j].TotalRevenue
	})
	return out
}

func computeSegment(orgID string, g Group, totalMRR float64, now time.Time, windowMonths int) models.Segment {
	seg := models.Segment{
		ID:                g.SegmentID,
		OrganizationID:    orgID,
		Name:              g.Name,
		Criteria:          g.Criteria,
		ValueDrivers:      g.ValueDrivers,
		RetentionCurve:    make([]float64, RetentionCurvePoints),
		IsSystemGenerated: true,
		IsActive:          true,
	}
	if len(g.Customers) == 0 {
		return seg
	}

	windowStart := now.AddDate(0, -windowMonths, 0)
	var (
		revenue   float64
		ltvSum    float64
		ltvValues []float64
		active    int
		churned   int
		expanded  int
	)
	for _, c := range g.Customers {
		ltvSum += c.LTV
		ltvValues = append(ltvValues, c.LTV)
		if c.Status == models.CustomerChurned {
			if c.ChurnedAt != nil && c.ChurnedAt.After(windowStart) {
				churned++
			}
			continue
		}
		active++
		revenue += c.MRR
		if c.StartingMRR > 0 && c.MRR > c.StartingMRR {
			expanded++
		}
	}

	seg.CustomerCount = active
	seg.TotalRevenue = revenue
	seg.RevenueShare = utils.Round4(utils.SafeDiv(revenue, totalMRR))
	seg.AvgMRR = utils.Round2(utils.SafeDiv(revenue, float64(active)))
	seg.AvgLTV = utils.Round2(utils.SafeDiv(ltvSum, float64(len(g.Customers))))
	seg.MedianLTV = utils.Round2(utils.Median(ltvValues))
	seg.ChurnRate = utils.Round4(utils.SafeDiv(float64(churned), float64(active+churned)))
	seg.RetentionRate = utils.Round4(1 - seg.ChurnRate)
	seg.ExpansionRate = utils.Round4(utils.SafeDiv(float64(expanded), float64(active)))
	seg.RetentionCurve = retentionCurve(seg.ChurnRate)
	return seg
}

// retentionCurve projects the observed trailing churn into a monthly decay
// series: point m is the share of a cohort expected to survive m+1 months.
func retentionCurve(annualChurn float64) []float64 {
	curve := make([]float64, RetentionCurvePoints)
	survival := 1 - utils.Clamp(annualChurn, 0, 1)
	monthly := math.Pow(survival, 1.0/float64(RetentionCurvePoints))
	if survival == 0 {
		monthly = 0
	}
	for i := range curve {
		curve[i] = utils.Round4(math.Pow(monthly, float64(i+1)))
	}
	return curve
}

// RevenueShareSum is used by callers asserting the partition invariant.
func RevenueShareSum(segments []models.Segment) float64 {
	sum := 0.0
	for _, s := range segments {
		if s.IsActive {
			sum += s.RevenueShare
		}
	}
	return sum
}
