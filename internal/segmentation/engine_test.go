package segmentation

import (
	"math"
	"testing"
	"time"

	"github.com/pricelens/backend/internal/models"
)

func TestMatchBandFirstFloorWins(t *testing.T) {
	if got := MatchBand(models.Customer{MRR: 7500}, B2BSaaSBands); got.Name != "Enterprise" {
		t.Fatalf("expected Enterprise, got %s", got.Name)
	}
	if got := MatchBand(models.Customer{MRR: 1000}, B2BSaaSBands); got.Name != "Mid-Market" {
		t.Fatalf("expected Mid-Market at the floor, got %s", got.Name)
	}
	if got := MatchBand(models.Customer{MRR: 0}, B2BSaaSBands); got.Name != "Self-Serve" {
		t.Fatalf("expected Self-Serve, got %s", got.Name)
	}
}

func TestBuildSegmentsRevenueSharesPartition(t *testing.T) {
	now := time.Date(2026, 8, 1, 0, 0, 0, 0, time.UTC)
	churnedAt := now.AddDate(0, -1, 0)
	groups := []Group{
		{
			Name: "High",
			Customers: []models.Customer{
				{ID: "c1", MRR: 300, StartingMRR: 200, LTV: 9000, Status: models.CustomerActive},
				{ID: "c2", MRR: 0, StartingMRR: 150, LTV: 3000, Status: models.CustomerChurned, ChurnedAt: &churnedAt},
			},
		},
		{
			Name: "Low",
			Customers: []models.Customer{
				{ID: "c3", MRR: 100, StartingMRR: 100, LTV: 2000, Status: models.CustomerActive},
			},
		},
	}

	segments := BuildSegments("org-1", groups, now, 12)
	if len(segments) != 2 {
		t.Fatalf("expected 2 segments, got %d", len(segments))
	}
	if segments[0].Name != "High" {
		t.Fatalf("expected High first by revenue, got %s", segments[0].Name)
	}
	if sum := RevenueShareSum(segments); math.Abs(sum-1) > 0.001 {
		t.Fatalf("expected revenue shares to sum to 1, got %f", sum)
	}

	high := segments[0]
	if high.RevenueShare != 0.75 {
		t.Fatalf("expected share 0.75, got %f", high.RevenueShare)
	}
	if high.CustomerCount != 1 {
		t.Fatalf("expected churned customers excluded from count, got %d", high.CustomerCount)
	}
	if high.ChurnRate != 0.5 {
		t.Fatalf("expected churn 0.5, got %f", high.ChurnRate)
	}
	if high.ExpansionRate != 1 {
		t.Fatalf("expected expansion 1 (300 > 200 starting), got %f", high.ExpansionRate)
	}
	if len(high.RetentionCurve) != RetentionCurvePoints {
		t.Fatalf("expected %d curve points, got %d", RetentionCurvePoints, len(high.RetentionCurve))
	}
	if last := high.RetentionCurve[RetentionCurvePoints-1]; last != 0.5 {
		t.Fatalf("expected 12-month survival to equal retention rate, got %f", last)
	}
}

func TestBuildSegmentsEmptyGroupYieldsZeroMetrics(t *testing.T) {
	segments := BuildSegments("org-1", []Group{{Name: "Empty"}}, time.Now().UTC(), 12)
	if len(segments) != 1 {
		t.Fatalf("expected 1 segment, got %d", len(segments))
	}
	seg := segments[0]
	if seg.CustomerCount != 0 || seg.TotalRevenue != 0 || seg.RevenueShare != 0 {
		t.Fatalf("expected zero metrics, got %+v", seg)
	}
	if !seg.IsActive || !seg.IsSystemGenerated {
		t.Fatalf("expected active system-generated segment")
	}
}

func TestChurnOutsideWindowIgnored(t *testing.T) {
	now := time.Date(2026, 8, 1, 0, 0, 0, 0, time.UTC)
	old := now.AddDate(0, -18, 0)
	groups := []Group{
		{
			Name: "A",
			Customers: []models.Customer{
				{ID: "c1", MRR: 100, Status: models.CustomerActive},
				{ID: "c2", Status: models.CustomerChurned, ChurnedAt: &old},
			},
		},
	}
	segments := BuildSegments("org-1", groups, now, 12)
	if segments[0].ChurnRate != 0 {
		t.Fatalf("expected churn outside window ignored, got %f", segments[0].ChurnRate)
	}
}

func TestGroupByAssignmentSkipsUnassigned(t *testing.T) {
	segID := "seg-1"
	segments := []models.Segment{{ID: segID, Name: "Known"}}
	customers := []models.Customer{
		{ID: "c1", SegmentID: &segID},
		{ID: "c2"},
	}
	groups := GroupByAssignment(customers, segments)
	if len(groups) != 1 {
		t.Fatalf("expected 1 group, got %d", len(groups))
	}
	if len(groups[0].Customers) != 1 || groups[0].Customers[0].ID != "c1" {
		t.Fatalf("expected only assigned customer in group, got %+v", groups[0].Customers)
	}
}

func TestGroupByBandsCarriesCriteria(t *testing.T) {
	customers := []models.Customer{
		{ID: "c1", MRR: 6000},
		{ID: "c2", MRR: 50},
	}
	groups := GroupByBands(customers, B2BSaaSBands)
	if len(groups) != len(B2BSaaSBands) {
		t.Fatalf("expected a group per band, got %d", len(groups))
	}
	if groups[0].Name != "Enterprise" || len(groups[0].Customers) != 1 {
		t.Fatalf("expected c1 in Enterprise, got %+v", groups[0])
	}
	if groups[0].Criteria[0].Field != "mrr" || groups[0].Criteria[0].Value != 5000 {
		t.Fatalf("expected mrr gte 5000 criterion, got %+v", groups[0].Criteria)
	}
}
