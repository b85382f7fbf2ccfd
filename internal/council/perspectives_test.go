package council

import (
	"reflect"
	"testing"

	"github.com/pricelens/backend/internal/models"
)

func evalContext() Context {
	return Context{
		Segments: []models.Segment{
			{ID: "s1", Name: "Enterprise", RevenueShare: 0.7, ChurnRate: 0.05, IsActive: true},
			{ID: "s2", Name: "SMB", RevenueShare: 0.3, ChurnRate: 0.2, IsActive: true},
		},
		Economics: models.EconomicsSnapshot{TotalARR: 1000000, RiskLevel: models.RiskModerate},
	}
}

func TestEvaluateRunsAllFourPerspectives(t *testing.T) {
	opt := models.PricingOption{
		ID:         "opt-1",
		OptionType: models.OptionNewTier,
		Impact:     models.ImpactModel{ExpectedARRChange: 40000, PessimisticARRChange: 10000, ExpectedChurnIncrease: 0.001, TimeToFullImpactMonths: 4},
	}

	eval := Evaluate(opt, evalContext())
	if eval.OptionID != "opt-1" {
		t.Fatalf("expected option id carried through, got %s", eval.OptionID)
	}
	if len(eval.Views) != 4 {
		t.Fatalf("expected 4 views, got %d", len(eval.Views))
	}
	wantOrder := []string{models.PerspectiveFinance, models.PerspectiveGrowth, models.PerspectiveProduct, models.PerspectiveStrategy}
	for i, v := range eval.Views {
		if v.Perspective != wantOrder[i] {
			t.Fatalf("expected %s at position %d, got %s", wantOrder[i], i, v.Perspective)
		}
		if v.Reasoning == "" || v.Recommendation == "" {
			t.Fatalf("incomplete view: %+v", v)
		}
		if v.Confidence <= 0 || v.Confidence > 1 {
			t.Fatalf("confidence out of range: %+v", v)
		}
	}
}

func TestEvaluateDeterministic(t *testing.T) {
	opt := models.PricingOption{
		ID:         "opt-1",
		OptionType: models.OptionPriceIncrease,
		Impact:     models.ImpactModel{ExpectedARRChange: 50000, PessimisticARRChange: -5000, ExpectedChurnIncrease: 0.005},
	}
	ctx := evalContext()
	if !reflect.DeepEqual(Evaluate(opt, ctx), Evaluate(opt, ctx)) {
		t.Fatalf("expected identical evaluations for identical input")
	}
}

func TestGrowthViewOpposesHeavyChurn(t *testing.T) {
	opt := models.PricingOption{
		OptionType: models.OptionPriceIncrease,
		Impact:     models.ImpactModel{ExpectedARRChange: 10000, ExpectedChurnIncrease: 0.05},
	}
	view := growthView(opt, evalContext())
	if view.Recommendation != models.RecStronglyOppose {
		t.Fatalf("expected strong opposition to 5%% churn, got %s", view.Recommendation)
	}
}

func TestGrowthViewRewardsMinimalChurn(t *testing.T) {
	opt := models.PricingOption{
		OptionType: models.OptionNewTier,
		Impact:     models.ImpactModel{ExpectedARRChange: 10000, ExpectedChurnIncrease: 0.001},
	}
	view := growthView(opt, evalContext())
	if view.Recommendation != models.RecStronglySupport {
		t.Fatalf("expected strong support for minimal churn, got %s", view.Recommendation)
	}
	if view.Impact != "minimal" {
		t.Fatalf("expected minimal churn impact label, got %s", view.Impact)
	}
}

func TestStrategyViewOpposesIncreaseUnderCompetitivePressure(t *testing.T) {
	ctx := evalContext()
	ctx.Competitive = &models.CompetitiveContext{
		Competitors: []models.Competitor{{Name: "Rival", EntryPrice: 19}},
	}
	opt := models.PricingOption{
		OptionType: models.OptionPriceIncrease,
		Impact:     models.ImpactModel{ExpectedARRChange: 30000},
	}
	view := strategyView(opt, ctx)
	if view.Recommendation != models.RecOppose {
		t.Fatalf("expected opposition with competitors present, got %s", view.Recommendation)
	}
}

func TestProductViewBacksValueMetricAlignment(t *testing.T) {
	opt := models.PricingOption{OptionType: models.OptionValueMetricChange}
	view := productView(opt, evalContext())
	if view.Recommendation != models.RecStronglySupport {
		t.Fatalf("expected strong support for value-metric change, got %s", view.Recommendation)
	}
	found := false
	for _, p := range view.KeyPoints {
		if p == "migration complexity for existing plans" {
			found = true
		}
	}
	if !found {
		t.Fatalf("expected migration complexity named as a cost, got %v", view.KeyPoints)
	}
}

func TestFinanceViewOpposesNegativeExpectation(t *testing.T) {
	opt := models.PricingOption{
		OptionType: models.OptionMinimumFee,
		Impact:     models.ImpactModel{ExpectedARRChange: -2000, PessimisticARRChange: -8000},
	}
	view := financeView(opt, evalContext())
	if view.Recommendation != models.RecOppose {
		t.Fatalf("expected finance opposition, got %s", view.Recommendation)
	}
}
