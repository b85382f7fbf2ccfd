package analysis

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"github.com/pricelens/backend/internal/council"
	"github.com/pricelens/backend/internal/db"
	"github.com/pricelens/backend/internal/economics"
	"github.com/pricelens/backend/internal/errs"
	"github.com/pricelens/backend/internal/metrics"
	"github.com/pricelens/backend/internal/models"
	"github.com/pricelens/backend/internal/ontology"
	"github.com/pricelens/backend/internal/pricing"
	"github.com/pricelens/backend/internal/segmentation"
)

// Service runs the synchronous analytics-to-decision pipeline for one
// organization per call. A run either returns its full result set or fails;
// partial results are never surfaced.
type Service struct {
	Store   *db.Store
	Repo    *ontology.Repository
	Logger  zerolog.Logger
	Metrics *metrics.OntologyMetrics
}

// Result is the analysis response contract.
type Result struct {
	Segments          []models.Segment           `json:"segments"`
	Options           []models.PricingOption     `json:"options"`
	Evaluations       []models.CouncilEvaluation `json:"evaluations"`
	RecommendedOption *models.PricingOption      `json:"recommended_option"`
	Economics         models.EconomicsSnapshot   `json:"economics"`
	PricingStructure  []models.PricingTier       `json:"pricing_structure"`
}

// Run executes segmentation refresh → economics → option synthesis →
// council evaluation → ranking.
func (s *Service) Run(ctx context.Context, orgID string, competitive *models.CompetitiveContext) (Result, error) {
	stored, err := s.Store.ListSegments(ctx, orgID, true)
	if err != nil {
		return Result{}, errs.Persistence("load segments", err)
	}
	if len(stored) == 0 {
		return Result{}, errs.NotFound(fmt.Sprintf("no segments found for organization %s; run setup first", orgID))
	}

	customers, err := s.Store.ListCustomers(ctx, orgID)
	if err != nil {
		return Result{}, errs.Persistence("load customers", err)
	}

	segments, err := s.refreshSegments(ctx, orgID, stored, customers)
	if err != nil {
		return Result{}, err
	}

	econ := economics.Compute(orgID, customers, segments)
	econ, err = s.Repo.CreateEconomicsSnapshot(ctx, econ, ontology.Mutation{TriggeredBy: "analysis"})
	if err != nil {
		return Result{}, err
	}

	tiers, err := s.Store.ListTiers(ctx, orgID, true)
	if err != nil {
		return Result{}, errs.Persistence("load pricing tiers", err)
	}
	valueMetrics, err := s.Store.ListValueMetrics(ctx, orgID)
	if err != nil {
		return Result{}, errs.Persistence("load value metrics", err)
	}

	options := pricing.Generate(pricing.Input{
		OrgID:        orgID,
		Segments:     segments,
		Economics:    econ,
		Tiers:        tiers,
		ValueMetrics: valueMetrics,
		Competitive:  competitive,
	})

	evalCtx := council.Context{Segments: segments, Economics: econ, Competitive: competitive}
	evaluations := make([]models.CouncilEvaluation, 0, len(options))
	for _, opt := range options {
		evaluations = append(evaluations, council.Evaluate(opt, evalCtx))
	}

	result := Result{
		Segments:         segments,
		Options:          options,
		Evaluations:      evaluations,
		Economics:        econ,
		PricingStructure: tiers,
	}
	ranked := council.RankOptions(options, evaluations)
	if len(ranked) > 0 {
		for i := range options {
			if options[i].ID == ranked[0] {
				result.RecommendedOption = &options[i]
				break
			}
		}
	}

	s.Logger.Info().Str("organization_id", orgID).
		Int("segments", len(segments)).
		Int("options", len(options)).
		Msg("analysis run complete")
	return result, nil
}

// refreshSegments recomputes stored segment metrics from the current
// customer set and persists the deltas through the audited layer.
func (s *Service) refreshSegments(ctx context.Context, orgID string, stored []models.Segment, customers []models.Customer) ([]models.Segment, error) {
	groups := segmentation.GroupByAssignment(customers, stored)
	computed := segmentation.BuildSegments(orgID, groups, time.Now().UTC(), segmentation.DefaultTrailingWindowMonths)

	storedByID := map[string]models.Segment{}
	for _, seg := range stored {
		storedByID[seg.ID] = seg
	}

	out := make([]models.Segment, 0, len(computed))
	for _, seg := range computed {
		prev, ok := storedByID[seg.ID]
		if !ok {
			out = append(out, seg)
			continue
		}
		seg.IsSystemGenerated = prev.IsSystemGenerated
		seg.CreatedAt = prev.CreatedAt
		updated, err := s.Repo.UpdateSegment(ctx, seg, ontology.Mutation{TriggeredBy: "analysis"})
		if err != nil {
			return nil, err
		}
		out = append(out, updated)
	}
	return out, nil
}
