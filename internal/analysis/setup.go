package analysis

import (
	"context"
	"time"

	"github.com/pricelens/backend/internal/economics"
	"github.com/pricelens/backend/internal/errs"
	"github.com/pricelens/backend/internal/models"
	"github.com/pricelens/backend/internal/ontology"
	"github.com/pricelens/backend/internal/segmentation"
)

// SetupSummary reports what seeding created, or that nothing needed doing.
type SetupSummary struct {
	AlreadySeeded   bool `json:"already_seeded"`
	SegmentsCreated int  `json:"segments_created"`
	TiersCreated    int  `json:"tiers_created"`
	MetricsCreated  int  `json:"metrics_created"`
	PatternsCreated int  `json:"patterns_created"`
	SnapshotVersion int  `json:"snapshot_version"`
}

// Setup seeds an organization's ontology from its customer base. It is
// idempotent: existing active segments are detected before any write and
// short-circuit the whole operation.
func (s *Service) Setup(ctx context.Context, orgID, preset string) (SetupSummary, error) {
	existing, err := s.Store.ListSegments(ctx, orgID, true)
	if err != nil {
		return SetupSummary{}, errs.Persistence("check existing segments", err)
	}
	if len(existing) > 0 {
		s.Logger.Info().Str("organization_id", orgID).Int("segments", len(existing)).
			Msg("setup skipped; organization already seeded")
		return SetupSummary{AlreadySeeded: true, SegmentsCreated: len(existing)}, nil
	}

	bands := presetBands(preset)
	customers, err := s.Store.ListCustomers(ctx, orgID)
	if err != nil {
		return SetupSummary{}, errs.Persistence("load customers", err)
	}

	summary := SetupSummary{}
	now := time.Now().UTC()
	mut := ontology.Mutation{TriggeredBy: "setup"}

	groups := segmentation.GroupByBands(customers, bands)
	segments := segmentation.BuildSegments(orgID, groups, now, segmentation.DefaultTrailingWindowMonths)
	memberByName := map[string][]models.Customer{}
	for _, g := range groups {
		memberByName[g.Name] = g.Customers
	}
	for i := range segments {
		created, err := s.Repo.CreateSegment(ctx, segments[i], mut)
		if err != nil {
			return summary, err
		}
		segments[i] = created
		summary.SegmentsCreated++
		for _, c := range memberByName[created.Name] {
			if err := s.Store.AssignCustomerSegment(ctx, orgID, c.ID, created.ID); err != nil {
				return summary, errs.Persistence("assign customer segment", err)
			}
		}
	}

	n, err := s.seedValueMetrics(ctx, orgID, mut)
	if err != nil {
		return summary, err
	}
	summary.MetricsCreated = n

	n, err = s.seedTiers(ctx, orgID, mut)
	if err != nil {
		return summary, err
	}
	summary.TiersCreated = n

	for _, p := range DetectPatterns(orgID, segments) {
		if _, err := s.Repo.CreatePattern(ctx, p, mut); err != nil {
			return summary, err
		}
		summary.PatternsCreated++
	}

	econ := economics.Compute(orgID, customers, segments)
	if _, err := s.Repo.CreateEconomicsSnapshot(ctx, econ, mut); err != nil {
		return summary, err
	}

	snap, err := s.Repo.CreateSnapshot(ctx, orgID, "setup")
	if err != nil {
		return summary, err
	}
	summary.SnapshotVersion = snap.Version
	return summary, nil
}

func presetBands(preset string) []segmentation.Band {
	// Presets beyond the default can hang off this switch.
	switch preset {
	default:
		return segmentation.B2BSaaSBands
	}
}

func (s *Service) seedValueMetrics(ctx context.Context, orgID string, mut ontology.Mutation) (int, error) {
	existing, err := s.Store.ListValueMetrics(ctx, orgID)
	if err != nil {
		return 0, errs.Persistence("check existing value metrics", err)
	}
	if len(existing) > 0 {
		return 0, nil
	}

	defaults := []models.ValueMetric{
		{OrganizationID: orgID, Name: "seats", MetricType: models.MetricPrimary, CorrelationToExpansion: 0.45, MeasurementMethod: "active users per billing period"},
		{OrganizationID: orgID, Name: "api_calls", MetricType: models.MetricSecondary, CorrelationToExpansion: 0.62, MeasurementMethod: "metered monthly volume"},
		{OrganizationID: orgID, Name: "projects", MetricType: models.MetricSecondary, CorrelationToExpansion: 0.38, MeasurementMethod: "count of active projects"},
	}
	for _, m := range defaults {
		if _, err := s.Repo.CreateValueMetric(ctx, m, mut); err != nil {
			return 0, err
		}
	}
	return len(defaults), nil
}

func (s *Service) seedTiers(ctx context.Context, orgID string, mut ontology.Mutation) (int, error) {
	existing, err := s.Store.ListTiers(ctx, orgID, false)
	if err != nil {
		return 0, errs.Persistence("check existing tiers", err)
	}
	if len(existing) > 0 {
		return 0, nil
	}

	defaults := []models.PricingTier{
		{OrganizationID: orgID, Name: "Starter", PriceMonthly: 29, PriceAnnual: 290, Position: 1,
			ValueMetricLimits: map[string]float64{"seats": 5, "api_calls": 10000}, IsActive: true},
		{OrganizationID: orgID, Name: "Growth", PriceMonthly: 99, PriceAnnual: 990, Position: 2,
			ValueMetricLimits: map[string]float64{"seats": 25, "api_calls": 100000}, IsActive: true},
		{OrganizationID: orgID, Name: "Scale", PriceMonthly: 299, PriceAnnual: 2990, Position: 3,
			ValueMetricLimits: map[string]float64{"seats": 100, "api_calls": 1000000}, IsActive: true},
		{OrganizationID: orgID, Name: "Enterprise", PriceMonthly: 999, PriceAnnual: 9990, Position: 4,
			ValueMetricLimits: map[string]float64{"seats": models.UnlimitedMetric, "api_calls": models.UnlimitedMetric}, IsActive: true},
	}
	for _, t := range defaults {
		if _, err := s.Repo.CreateTier(ctx, t, mut); err != nil {
			return 0, err
		}
	}
	return len(defaults), nil
}
