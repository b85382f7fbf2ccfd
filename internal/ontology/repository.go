package ontology

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/rs/zerolog"

	"github.com/pricelens/backend/internal/db"
	"github.com/pricelens/backend/internal/errs"
	"github.com/pricelens/backend/internal/metrics"
	"github.com/pricelens/backend/internal/models"
)

// Repository is the system of record for the five ontology entity kinds.
// Every create/update goes read-current → primary write → diff → audit row.
type Repository struct {
	Store    *db.Store
	Recorder *Recorder
	Logger   zerolog.Logger
	Metrics  *metrics.OntologyMetrics
}

func createEntity[T models.Entity](ctx context.Context, r *Repository, e T, insert func(context.Context, T) error, mut Mutation) error {
	if err := insert(ctx, e); err != nil {
		return errs.Persistence(fmt.Sprintf("insert %s", e.EntityType()), err)
	}
	mut.Action = models.ActionCreate
	r.Recorder.Record(ctx, e.EntityOrg(), nil, e, mut)
	return nil
}

func updateEntity[T models.Entity](ctx context.Context, r *Repository, e T, fetch func(context.Context, string, string) (T, error), update func(context.Context, T) error, mut Mutation) error {
	previous, err := fetch(ctx, e.EntityOrg(), e.EntityID())
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return errs.NotFound(fmt.Sprintf("%s %s not found", e.EntityType(), e.EntityID()))
		}
		return errs.Persistence(fmt.Sprintf("load %s", e.EntityType()), err)
	}
	if err := update(ctx, e); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return errs.NotFound(fmt.Sprintf("%s %s not found", e.EntityType(), e.EntityID()))
		}
		return errs.Persistence(fmt.Sprintf("update %s", e.EntityType()), err)
	}
	if mut.Action == "" {
		mut.Action = models.ActionUpdate
	}
	r.Recorder.Record(ctx, e.EntityOrg(), previous, e, mut)
	return nil
}

// ---- segments ----

func (r *Repository) CreateSegment(ctx context.Context, seg models.Segment, mut Mutation) (models.Segment, error) {
	if err := validateSegment(seg); err != nil {
		return seg, err
	}
	if seg.ID == "" {
		seg.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	seg.CreatedAt = now
	seg.UpdatedAt = now
	if err := createEntity(ctx, r, seg, r.Store.InsertSegment, mut); err != nil {
		return seg, err
	}
	return seg, nil
}

func (r *Repository) UpdateSegment(ctx context.Context, seg models.Segment, mut Mutation) (models.Segment, error) {
	if err := validateSegment(seg); err != nil {
		return seg, err
	}
	seg.UpdatedAt = time.Now().UTC()
	err := updateEntity(ctx, r, seg, r.Store.GetSegment, r.Store.UpdateSegment, mut)
	return seg, err
}

// ArchiveSegment deactivates a segment; segments are never hard-deleted.
func (r *Repository) ArchiveSegment(ctx context.Context, orgID, id string, mut Mutation) (models.Segment, error) {
	seg, err := r.Store.GetSegment(ctx, orgID, id)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return seg, errs.NotFound("segment " + id + " not found")
		}
		return seg, errs.Persistence("load segment", err)
	}
	previous := seg
	seg.IsActive = false
	seg.UpdatedAt = time.Now().UTC()
	if err := r.Store.UpdateSegment(ctx, seg); err != nil {
		return seg, errs.Persistence("archive segment", err)
	}
	mut.Action = models.ActionArchive
	r.Recorder.Record(ctx, orgID, previous, seg, mut)
	return seg, nil
}

func validateSegment(seg models.Segment) error {
	if seg.OrganizationID == "" {
		return errs.InvalidInput("segment organization_id is required")
	}
	if seg.Name == "" {
		return errs.InvalidInput("segment name is required")
	}
	if seg.RevenueShare < 0 || seg.RevenueShare > 1 {
		return errs.InvalidInput("segment revenue_share must be within [0,1]")
	}
	return nil
}

// ---- pricing tiers ----

func (r *Repository) CreateTier(ctx context.Context, t models.PricingTier, mut Mutation) (models.PricingTier, error) {
	if err := validateTier(t); err != nil {
		return t, err
	}
	if t.ID == "" {
		t.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	t.CreatedAt = now
	t.UpdatedAt = now
	if err := createEntity(ctx, r, t, r.Store.InsertTier, mut); err != nil {
		return t, err
	}
	return t, nil
}

func (r *Repository) UpdateTier(ctx context.Context, t models.PricingTier, mut Mutation) (models.PricingTier, error) {
	if err := validateTier(t); err != nil {
		return t, err
	}
	t.UpdatedAt = time.Now().UTC()
	err := updateEntity(ctx, r, t, r.Store.GetTier, r.Store.UpdateTier, mut)
	return t, err
}

func validateTier(t models.PricingTier) error {
	if t.OrganizationID == "" {
		return errs.InvalidInput("tier organization_id is required")
	}
	if t.Name == "" {
		return errs.InvalidInput("tier name is required")
	}
	if t.Position < 1 {
		return errs.InvalidInput("tier position must be >= 1")
	}
	if t.PriceMonthly < 0 || t.PriceAnnual < 0 {
		return errs.InvalidInput("tier prices must not be negative")
	}
	return nil
}

// ---- value metrics ----

func (r *Repository) CreateValueMetric(ctx context.Context, m models.ValueMetric, mut Mutation) (models.ValueMetric, error) {
	if err := validateValueMetric(m); err != nil {
		return m, err
	}
	if m.ID == "" {
		m.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	m.CreatedAt = now
	m.UpdatedAt = now
	if err := createEntity(ctx, r, m, r.Store.InsertValueMetric, mut); err != nil {
		return m, err
	}
	return m, nil
}

func (r *Repository) UpdateValueMetric(ctx context.Context, m models.ValueMetric, mut Mutation) (models.ValueMetric, error) {
	if err := validateValueMetric(m); err != nil {
		return m, err
	}
	m.UpdatedAt = time.Now().UTC()
	err := updateEntity(ctx, r, m, r.Store.GetValueMetric, r.Store.UpdateValueMetric, mut)
	return m, err
}

func validateValueMetric(m models.ValueMetric) error {
	if m.OrganizationID == "" {
		return errs.InvalidInput("value metric organization_id is required")
	}
	if m.Name == "" {
		return errs.InvalidInput("value metric name is required")
	}
	if m.MetricType != models.MetricPrimary && m.MetricType != models.MetricSecondary {
		return errs.InvalidInput("value metric type must be primary or secondary")
	}
	if m.CorrelationToExpansion < -1 || m.CorrelationToExpansion > 1 {
		return errs.InvalidInput("correlation_to_expansion must be within [-1,1]")
	}
	return nil
}

// ---- patterns ----

func (r *Repository) CreatePattern(ctx context.Context, p models.Pattern, mut Mutation) (models.Pattern, error) {
	if err := validatePattern(p); err != nil {
		return p, err
	}
	if p.ID == "" {
		p.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	p.CreatedAt = now
	p.UpdatedAt = now
	if err := createEntity(ctx, r, p, r.Store.InsertPattern, mut); err != nil {
		return p, err
	}
	return p, nil
}

func (r *Repository) UpdatePattern(ctx context.Context, p models.Pattern, mut Mutation) (models.Pattern, error) {
	if err := validatePattern(p); err != nil {
		return p, err
	}
	p.UpdatedAt = time.Now().UTC()
	err := updateEntity(ctx, r, p, r.Store.GetPattern, r.Store.UpdatePattern, mut)
	return p, err
}

var validPatternTypes = map[string]bool{
	models.PatternUpgradeTrigger:    true,
	models.PatternChurnSignal:       true,
	models.PatternExpansionReady:    true,
	models.PatternSeasonal:          true,
	models.PatternDiscountSensitive: true,
	models.PatternPriceAnchor:       true,
}

func validatePattern(p models.Pattern) error {
	if p.OrganizationID == "" {
		return errs.InvalidInput("pattern organization_id is required")
	}
	if !validPatternTypes[p.PatternType] {
		return errs.InvalidInput("unknown pattern_type " + p.PatternType)
	}
	if p.Confidence < 0 || p.Confidence > 1 {
		return errs.InvalidInput("pattern confidence must be within [0,1]")
	}
	return nil
}

// ---- economics snapshots ----

func (r *Repository) CreateEconomicsSnapshot(ctx context.Context, e models.EconomicsSnapshot, mut Mutation) (models.EconomicsSnapshot, error) {
	if e.OrganizationID == "" {
		return e, errs.InvalidInput("economics snapshot organization_id is required")
	}
	if e.ID == "" {
		e.ID = uuid.NewString()
	}
	e.CreatedAt = time.Now().UTC()
	if err := createEntity(ctx, r, e, r.Store.InsertEconomicsSnapshot, mut); err != nil {
		return e, err
	}
	return e, nil
}

// ---- ontology snapshots ----

// CreateSnapshot serializes the whole current ontology as one versioned
// record. A version collision from a concurrent writer is retried once.
func (r *Repository) CreateSnapshot(ctx context.Context, orgID, triggeredBy string) (models.OntologySnapshot, error) {
	payload, err := r.buildPayload(ctx, orgID)
	if err != nil {
		return models.OntologySnapshot{}, err
	}

	snap := models.OntologySnapshot{
		ID:             uuid.NewString(),
		OrganizationID: orgID,
		TriggeredBy:    triggeredBy,
		Payload:        payload,
		CreatedAt:      time.Now().UTC(),
	}

	err = r.Store.CreateSnapshot(ctx, &snap)
	if err != nil && db.IsUniqueViolation(err) {
		if r.Metrics != nil {
			r.Metrics.SnapshotVersionConflict()
		}
		err = r.Store.CreateSnapshot(ctx, &snap)
	}
	if err != nil {
		return snap, errs.Persistence("create ontology snapshot", err)
	}
	if r.Metrics != nil {
		r.Metrics.SnapshotCreated()
	}
	r.Logger.Info().Str("organization_id", orgID).Int("version", snap.Version).
		Str("triggered_by", triggeredBy).Msg("ontology snapshot created")
	return snap, nil
}

func (r *Repository) buildPayload(ctx context.Context, orgID string) ([]byte, error) {
	segments, err := r.Store.ListSegments(ctx, orgID, false)
	if err != nil {
		return nil, errs.Persistence("load segments", err)
	}
	tiers, err := r.Store.ListTiers(ctx, orgID, false)
	if err != nil {
		return nil, errs.Persistence("load tiers", err)
	}
	metricsList, err := r.Store.ListValueMetrics(ctx, orgID)
	if err != nil {
		return nil, errs.Persistence("load value metrics", err)
	}
	patterns, err := r.Store.ListPatterns(ctx, orgID, "")
	if err != nil {
		return nil, errs.Persistence("load patterns", err)
	}

	payload := models.SnapshotPayload{
		Segments:     segments,
		Tiers:        tiers,
		ValueMetrics: metricsList,
		Patterns:     patterns,
	}
	if econ, err := r.Store.LatestEconomicsSnapshot(ctx, orgID); err == nil {
		payload.Economics = &econ
	} else if !errors.Is(err, pgx.ErrNoRows) {
		return nil, errs.Persistence("load economics snapshot", err)
	}

	return marshalPayload(payload)
}
