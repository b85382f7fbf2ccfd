package economics

import (
	"testing"

	"github.com/pricelens/backend/internal/models"
)

func activeSegments(shares ...float64) []models.Segment {
	out := make([]models.Segment, 0, len(shares))
	for i, s := range shares {
		out = append(out, models.Segment{ID: string(rune('a' + i)), RevenueShare: s, IsActive: true})
	}
	return out
}

func TestHHIPercentagePointFormulation(t *testing.T) {
	segments := activeSegments(0.6, 0.25, 0.15)
	if got := HHI(segments); got != 4450 {
		t.Fatalf("expected HHI 4450, got %f", got)
	}
	if got := HHI(activeSegments(1)); got != 10000 {
		t.Fatalf("expected single-segment HHI 10000, got %f", got)
	}
	if got := HHI(nil); got != 0 {
		t.Fatalf("expected HHI 0 with no segments, got %f", got)
	}
}

func TestHHISkipsArchivedSegments(t *testing.T) {
	segments := activeSegments(0.5, 0.5)
	segments[1].IsActive = false
	if got := HHI(segments); got != 2500 {
		t.Fatalf("expected archived segment excluded, got %f", got)
	}
}

func TestRiskLevelThresholds(t *testing.T) {
	cases := []struct {
		hhi       float64
		topDecile float64
		want      string
	}{
		{1000, 0.3, models.RiskLow},
		{1499.99, 0.9, models.RiskLow},
		{1500, 0.3, models.RiskModerate},
		{2500, 0.9, models.RiskModerate},
		{2600, 0.5, models.RiskHigh},
		{2600, 0.71, models.RiskCritical},
		{4450, 0.7, models.RiskHigh},
	}
	for _, tc := range cases {
		if got := RiskLevel(tc.hhi, tc.topDecile); got != tc.want {
			t.Fatalf("RiskLevel(%f, %f) = %s, want %s", tc.hhi, tc.topDecile, got, tc.want)
		}
	}
}

func TestComputeZeroCustomers(t *testing.T) {
	snap := Compute("org-1", nil, nil)
	if snap.TotalMRR != 0 || snap.TotalARR != 0 || snap.TotalCustomers != 0 {
		t.Fatalf("expected zero totals, got %+v", snap)
	}
	if snap.RiskLevel != models.RiskLow {
		t.Fatalf("expected low risk with no customers, got %s", snap.RiskLevel)
	}
}

func TestComputeRetentionAndConcentration(t *testing.T) {
	churned := models.Customer{ID: "c4", MRR: 0, StartingMRR: 50, Status: models.CustomerChurned}
	customers := []models.Customer{
		{ID: "c1", MRR: 600, StartingMRR: 500, Status: models.CustomerActive},
		{ID: "c2", MRR: 250, StartingMRR: 250, Status: models.CustomerActive},
		{ID: "c3", MRR: 150, StartingMRR: 200, Status: models.CustomerActive},
		churned,
	}

	snap := Compute("org-1", customers, nil)
	if snap.TotalCustomers != 3 {
		t.Fatalf("expected 3 active customers, got %d", snap.TotalCustomers)
	}
	if snap.TotalMRR != 1000 || snap.TotalARR != 12000 {
		t.Fatalf("unexpected totals: %+v", snap)
	}
	// 3 active customers: the top decile is the single largest.
	if snap.Top10PercentRevenueShare != 0.6 || snap.TopCustomerRevenueShare != 0.6 {
		t.Fatalf("unexpected concentration: %+v", snap)
	}
	// Starting cohort 1000 MRR; ending 1000 with the churned account at zero.
	if snap.NetRevenueRetention != 100 {
		t.Fatalf("expected NRR 100, got %f", snap.NetRevenueRetention)
	}
	// Capped at starting levels: 500 + 250 + 150 + 0 = 900.
	if snap.GrossRevenueRetention != 90 {
		t.Fatalf("expected GRR 90, got %f", snap.GrossRevenueRetention)
	}
	if snap.MRRGrowthRate != 0 {
		t.Fatalf("expected flat growth, got %f", snap.MRRGrowthRate)
	}
}

func TestEstimateElasticityBoundsAndOrdering(t *testing.T) {
	sticky := models.Segment{AvgMRR: 6000, ChurnRate: 0.02}
	fragile := models.Segment{AvgMRR: 50, ChurnRate: 0.3}

	es := EstimateElasticity(sticky)
	ef := EstimateElasticity(fragile)
	if es >= 0 || ef >= 0 {
		t.Fatalf("elasticities must be negative, got %f and %f", es, ef)
	}
	if ef >= es {
		t.Fatalf("expected fragile segment more price sensitive: %f vs %f", ef, es)
	}
	if es < -1.5 || es > -0.05 || ef < -1.5 || ef > -0.05 {
		t.Fatalf("elasticity out of bounds: %f, %f", es, ef)
	}
}

func TestSensitivitiesSkipArchived(t *testing.T) {
	segments := []models.Segment{
		{ID: "a", Name: "A", IsActive: true},
		{ID: "b", Name: "B", IsActive: false},
	}
	out := sensitivities(segments)
	if len(out) != 1 || out[0].SegmentID != "a" {
		t.Fatalf("expected only active segment, got %+v", out)
	}
	if out[0].ChurnPerPercentIncrease <= 0 {
		t.Fatalf("expected positive churn-per-percent, got %f", out[0].ChurnPerPercentIncrease)
	}
}
