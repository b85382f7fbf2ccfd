package analysis

import (
	"github.com/pricelens/backend/internal/models"
	"github.com/pricelens/backend/internal/utils"
)

// DetectPatterns applies fixed behavioral rules over computed segments.
// Rules are deterministic; confidence scales with the strength of the
// underlying signal.
func DetectPatterns(orgID string, segments []models.Segment) []models.Pattern {
	var out []models.Pattern
	for _, seg := range segments {
		if !seg.IsActive || seg.CustomerCount == 0 {
			continue
		}

		if seg.ExpansionRate > 0.2 {
			out = append(out, models.Pattern{
				OrganizationID:    orgID,
				PatternType:       models.PatternExpansionReady,
				AffectedSegments:  []string{seg.Name},
				Confidence:        utils.Clamp(0.5+seg.ExpansionRate, 0, 0.95),
				Frequency:         "monthly",
				RecommendedAction: "Target " + seg.Name + " with expansion offers before the next renewal cycle",
				IsActive:          true,
			})
		}
		if seg.ChurnRate > 0.15 {
			out = append(out, models.Pattern{
				OrganizationID:    orgID,
				PatternType:       models.PatternChurnSignal,
				AffectedSegments:  []string{seg.Name},
				Confidence:        utils.Clamp(0.4+seg.ChurnRate, 0, 0.95),
				Frequency:         "ongoing",
				RecommendedAction: "Review onboarding and pricing fit for " + seg.Name,
				IsActive:          true,
			})
		}
		if seg.ExpansionRate > 0.1 && seg.RevenueShare > 0.2 {
			out = append(out, models.Pattern{
				OrganizationID:    orgID,
				PatternType:       models.PatternUpgradeTrigger,
				AffectedSegments:  []string{seg.Name},
				Confidence:        0.6,
				Frequency:         "monthly",
				RecommendedAction: "Surface upgrade prompts when " + seg.Name + " accounts near plan limits",
				IsActive:          true,
			})
		}
		if seg.AvgMRR > 0 && seg.AvgMRR < 200 && seg.ChurnRate > 0.1 {
			out = append(out, models.Pattern{
				OrganizationID:    orgID,
				PatternType:       models.PatternDiscountSensitive,
				AffectedSegments:  []string{seg.Name},
				Confidence:        0.55,
				Frequency:         "per-cycle",
				RecommendedAction: "Test annual-prepay discounts for " + seg.Name,
				IsActive:          true,
			})
		}
	}

	if len(segments) > 0 && segments[0].RevenueShare > 0.5 {
		out = append(out, models.Pattern{
			OrganizationID:    orgID,
			PatternType:       models.PatternPriceAnchor,
			AffectedSegments:  []string{segments[0].Name},
			Confidence:        utils.Clamp(segments[0].RevenueShare, 0, 0.95),
			Frequency:         "ongoing",
			RecommendedAction: "Anchor packaging and roadmap around " + segments[0].Name,
			IsActive:          true,
		})
	}
	return out
}
