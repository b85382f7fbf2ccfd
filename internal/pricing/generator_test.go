package pricing

import (
	"reflect"
	"testing"

	"github.com/pricelens/backend/internal/models"
)

func baseInput() Input {
	return Input{
		OrgID: "org-1",
		Segments: []models.Segment{
			{ID: "s1", Name: "Enterprise", RevenueShare: 0.6, AvgMRR: 6000, CustomerCount: 10, IsActive: true, ValueDrivers: []string{"dedicated support"}},
			{ID: "s2", Name: "SMB", RevenueShare: 0.4, AvgMRR: 400, CustomerCount: 50, IsActive: true},
		},
		Economics: models.EconomicsSnapshot{
			TotalARR:  1200000,
			RiskLevel: models.RiskLow,
			PriceSensitivity: []models.SegmentSensitivity{
				{SegmentID: "s1", Elasticity: -0.2, ChurnPerPercentIncrease: 0.002},
				{SegmentID: "s2", Elasticity: -0.6, ChurnPerPercentIncrease: 0.006},
			},
		},
		Tiers: []models.PricingTier{
			{ID: "t1", Name: "Growth", PriceMonthly: 100, Position: 1, IsActive: true},
			{ID: "t2", Name: "Scale", PriceMonthly: 200, Position: 2, IsActive: true},
		},
		ValueMetrics: []models.ValueMetric{
			{Name: "seats", MetricType: models.MetricPrimary, CorrelationToExpansion: 0.45},
			{Name: "api_calls", MetricType: models.MetricSecondary, CorrelationToExpansion: 0.62},
		},
	}
}

func TestGenerateDeterministic(t *testing.T) {
	a := Generate(baseInput())
	b := Generate(baseInput())
	if !reflect.DeepEqual(a, b) {
		t.Fatalf("expected identical option sets for identical input")
	}
}

func TestGenerateBaseOptionSet(t *testing.T) {
	options := Generate(baseInput())
	if len(options) != 3 {
		t.Fatalf("expected 3 options without gap or tail triggers, got %d", len(options))
	}

	types := map[string]bool{}
	for _, opt := range options {
		types[opt.OptionType] = true
		if opt.ID == "" || opt.Description == "" || len(opt.Changes) == 0 {
			t.Fatalf("incomplete option: %+v", opt)
		}
	}
	for _, want := range []string{models.OptionPriceIncrease, models.OptionValueMetricChange, models.OptionRepackaging} {
		if !types[want] {
			t.Fatalf("missing option type %s", want)
		}
	}
}

func TestImpactBandsOrdered(t *testing.T) {
	for _, opt := range Generate(baseInput()) {
		im := opt.Impact
		if im.OptimisticARRChange < im.ExpectedARRChange || im.ExpectedARRChange < im.PessimisticARRChange {
			t.Fatalf("impact bands out of order for %s: %+v", opt.OptionType, im)
		}
		if im.Confidence <= 0 || im.Confidence > 1 {
			t.Fatalf("confidence out of range for %s: %f", opt.OptionType, im.Confidence)
		}
		if im.TimeToFullImpactMonths <= 0 {
			t.Fatalf("missing impact horizon for %s", opt.OptionType)
		}
	}
}

func TestImpactBandsOrderedForNegativeExpected(t *testing.T) {
	im := impactModel(-10000, 0.01, RiskProfileMedium, 6)
	if im.OptimisticARRChange < im.ExpectedARRChange || im.ExpectedARRChange < im.PessimisticARRChange {
		t.Fatalf("impact bands out of order: %+v", im)
	}
	if im.OptimisticARRChange != -6000 {
		t.Fatalf("optimistic = %f, want -6000", im.OptimisticARRChange)
	}
	if im.PessimisticARRChange != -16000 {
		t.Fatalf("pessimistic = %f, want -16000", im.PessimisticARRChange)
	}
}

func TestNewTierFiresOnWideGap(t *testing.T) {
	in := baseInput()
	in.Tiers = []models.PricingTier{
		{ID: "t1", Name: "Starter", PriceMonthly: 29, Position: 1, IsActive: true},
		{ID: "t2", Name: "Scale", PriceMonthly: 299, Position: 2, IsActive: true},
	}

	var tier *models.PricingOption
	for _, opt := range Generate(in) {
		if opt.OptionType == models.OptionNewTier {
			o := opt
			tier = &o
		}
	}
	if tier == nil {
		t.Fatalf("expected new_tier option for a 10x price gap")
	}
	if tier.RiskProfile != RiskProfileLow {
		t.Fatalf("expected low risk for gap fill, got %s", tier.RiskProfile)
	}
}

func TestMinimumFeeFiresOnCheapTail(t *testing.T) {
	in := baseInput()
	in.Segments = append(in.Segments, models.Segment{
		ID: "s3", Name: "Self-Serve", RevenueShare: 0.05, AvgMRR: 40, CustomerCount: 200, IsActive: true,
	})

	found := false
	for _, opt := range Generate(in) {
		if opt.OptionType == models.OptionMinimumFee {
			found = true
			if opt.RiskProfile != RiskProfileHigh {
				t.Fatalf("expected high risk profile, got %s", opt.RiskProfile)
			}
		}
	}
	if !found {
		t.Fatalf("expected minimum_fee option for a sub-100 MRR segment")
	}
}

func TestPriceIncreaseSoftensWhenUnderpriced(t *testing.T) {
	in := baseInput()
	withCompetitor := baseInput()
	withCompetitor.Competitive = &models.CompetitiveContext{
		Competitors: []models.Competitor{{Name: "Rival", EntryPrice: 49}},
	}

	base := Generate(in)[0]
	soft := Generate(withCompetitor)[0]
	if base.OptionType != models.OptionPriceIncrease || soft.OptionType != models.OptionPriceIncrease {
		t.Fatalf("expected price_increase first")
	}
	if soft.Impact.ExpectedARRChange >= base.Impact.ExpectedARRChange {
		t.Fatalf("expected a smaller increase when competitors undercut entry: %f vs %f",
			soft.Impact.ExpectedARRChange, base.Impact.ExpectedARRChange)
	}
}

func TestOptionIDsStablePerOrgAndType(t *testing.T) {
	a := optionID("org-1", models.OptionRepackaging)
	b := optionID("org-1", models.OptionRepackaging)
	c := optionID("org-2", models.OptionRepackaging)
	if a != b {
		t.Fatalf("expected stable ids, got %s and %s", a, b)
	}
	if a == c {
		t.Fatalf("expected org-scoped ids to differ")
	}
}
