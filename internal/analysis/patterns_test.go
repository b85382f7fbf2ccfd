package analysis

import (
	"testing"

	"github.com/pricelens/backend/internal/models"
)

func TestDetectPatternsExpansionAndChurn(t *testing.T) {
	segments := []models.Segment{
		{ID: "s1", Name: "Enterprise", RevenueShare: 0.4, ExpansionRate: 0.3, ChurnRate: 0.02, AvgMRR: 6000, CustomerCount: 10, IsActive: true},
		{ID: "s2", Name: "Self-Serve", RevenueShare: 0.1, ExpansionRate: 0.05, ChurnRate: 0.2, AvgMRR: 40, CustomerCount: 200, IsActive: true},
	}

	patterns := DetectPatterns("org-1", segments)
	byType := map[string][]models.Pattern{}
	for _, p := range patterns {
		byType[p.PatternType] = append(byType[p.PatternType], p)
		if p.Confidence <= 0 || p.Confidence > 0.95 {
			t.Fatalf("confidence out of range: %+v", p)
		}
		if p.RecommendedAction == "" || len(p.AffectedSegments) == 0 {
			t.Fatalf("incomplete pattern: %+v", p)
		}
	}

	expansion := byType[models.PatternExpansionReady]
	if len(expansion) != 1 || expansion[0].AffectedSegments[0] != "Enterprise" {
		t.Fatalf("expected expansion_ready on Enterprise, got %+v", expansion)
	}
	churn := byType[models.PatternChurnSignal]
	if len(churn) != 1 || churn[0].AffectedSegments[0] != "Self-Serve" {
		t.Fatalf("expected churn_signal on Self-Serve, got %+v", churn)
	}
	discount := byType[models.PatternDiscountSensitive]
	if len(discount) != 1 || discount[0].AffectedSegments[0] != "Self-Serve" {
		t.Fatalf("expected discount_sensitive on the cheap churny tail, got %+v", discount)
	}
}

func TestDetectPatternsUpgradeTriggerNeedsShareAndExpansion(t *testing.T) {
	segments := []models.Segment{
		{ID: "s1", Name: "Mid-Market", RevenueShare: 0.3, ExpansionRate: 0.15, AvgMRR: 1500, CustomerCount: 20, IsActive: true},
	}
	patterns := DetectPatterns("org-1", segments)
	found := false
	for _, p := range patterns {
		if p.PatternType == models.PatternUpgradeTrigger {
			found = true
		}
	}
	if !found {
		t.Fatalf("expected upgrade_trigger, got %+v", patterns)
	}
}

func TestDetectPatternsPriceAnchorOnDominantSegment(t *testing.T) {
	segments := []models.Segment{
		{ID: "s1", Name: "Enterprise", RevenueShare: 0.6, AvgMRR: 6000, CustomerCount: 5, IsActive: true},
		{ID: "s2", Name: "SMB", RevenueShare: 0.4, AvgMRR: 300, CustomerCount: 40, IsActive: true},
	}
	patterns := DetectPatterns("org-1", segments)
	found := false
	for _, p := range patterns {
		if p.PatternType == models.PatternPriceAnchor && p.AffectedSegments[0] == "Enterprise" {
			found = true
		}
	}
	if !found {
		t.Fatalf("expected price_anchor on the dominant segment, got %+v", patterns)
	}
}

func TestDetectPatternsSkipsEmptyAndArchivedSegments(t *testing.T) {
	segments := []models.Segment{
		{ID: "s1", Name: "Archived", RevenueShare: 0.4, ExpansionRate: 0.5, CustomerCount: 10, IsActive: false},
		{ID: "s2", Name: "Empty", RevenueShare: 0.1, ExpansionRate: 0.5, CustomerCount: 0, IsActive: true},
	}
	if patterns := DetectPatterns("org-1", segments); len(patterns) != 0 {
		t.Fatalf("expected no patterns, got %+v", patterns)
	}
}
