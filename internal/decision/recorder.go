package decision

import (
	"context"
	"errors"
	"math"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/rs/zerolog"

	"github.com/pricelens/backend/internal/db"
	"github.com/pricelens/backend/internal/errs"
	"github.com/pricelens/backend/internal/metrics"
	"github.com/pricelens/backend/internal/models"
	"github.com/pricelens/backend/internal/ontology"
	"github.com/pricelens/backend/internal/utils"
)

// Recorder binds chosen pricing options to the ontology state they were
// decided against.
type Recorder struct {
	Store   *db.Store
	Repo    *ontology.Repository
	Logger  zerolog.Logger
	Metrics *metrics.OntologyMetrics
}

type CreateInput struct {
	Question          string
	OptionsConsidered []string
	ChosenOptionID    string
	Reasoning         string
	// Options carries the generated candidates so the chosen one can be
	// frozen into the record; options are not otherwise persisted.
	Options []models.PricingOption
}

// Create snapshots the ontology first, then stores the record referencing
// that snapshot, so the decision always points at the state it was made on.
func (r *Recorder) Create(ctx context.Context, orgID string, in CreateInput) (models.DecisionRecord, error) {
	if in.Question == "" {
		return models.DecisionRecord{}, errs.InvalidInput("decision question is required")
	}
	if in.Reasoning == "" {
		return models.DecisionRecord{}, errs.InvalidInput("decision reasoning is required")
	}
	if in.ChosenOptionID == "" {
		return models.DecisionRecord{}, errs.InvalidInput("chosen_option_id is required")
	}
	if !contains(in.OptionsConsidered, in.ChosenOptionID) {
		return models.DecisionRecord{}, errs.InvalidInput("chosen option must be among options considered")
	}

	var chosen *models.PricingOption
	for i := range in.Options {
		if in.Options[i].ID == in.ChosenOptionID {
			chosen = &in.Options[i]
			break
		}
	}

	id := uuid.NewString()
	snap, err := r.Repo.CreateSnapshot(ctx, orgID, "decision:"+id)
	if err != nil {
		return models.DecisionRecord{}, err
	}

	record := models.DecisionRecord{
		ID:                 id,
		OrganizationID:     orgID,
		Question:           in.Question,
		OptionsConsidered:  in.OptionsConsidered,
		ChosenOptionID:     in.ChosenOptionID,
		ChosenOption:       chosen,
		Reasoning:          in.Reasoning,
		OntologySnapshotID: snap.ID,
		CreatedAt:          time.Now().UTC(),
	}
	if err := r.Store.InsertDecision(ctx, record); err != nil {
		return models.DecisionRecord{}, errs.Persistence("insert decision record", err)
	}
	if r.Metrics != nil {
		r.Metrics.DecisionCreated()
	}
	r.Logger.Info().Str("organization_id", orgID).Str("decision_id", id).
		Int("snapshot_version", snap.Version).Msg("decision recorded")
	return record, nil
}

type OutcomeInput struct {
	ActualARRChange   float64
	ActualChurnChange float64
	Learnings         string
}

// RecordOutcome sets the measured result exactly once.
func (r *Recorder) RecordOutcome(ctx context.Context, orgID, decisionID string, in OutcomeInput) (models.DecisionRecord, error) {
	record, err := r.Store.GetDecision(ctx, orgID, decisionID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return record, errs.NotFound("decision " + decisionID + " not found")
		}
		return record, errs.Persistence("load decision record", err)
	}
	if record.Outcome != nil {
		return record, errs.InvalidInput("decision outcome already recorded")
	}

	var predictedARR, predictedChurn float64
	if record.ChosenOption != nil {
		predictedARR = record.ChosenOption.Impact.ExpectedARRChange
		predictedChurn = record.ChosenOption.Impact.ExpectedChurnIncrease
	}

	outcome := models.DecisionOutcome{
		ActualARRChange:   in.ActualARRChange,
		ActualChurnChange: in.ActualChurnChange,
		AccuracyScore:     AccuracyScore(predictedARR, in.ActualARRChange, predictedChurn, in.ActualChurnChange),
		Learnings:         in.Learnings,
		RecordedAt:        time.Now().UTC(),
	}
	if err := r.Store.SetDecisionOutcome(ctx, orgID, decisionID, outcome); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return record, errs.InvalidInput("decision outcome already recorded")
		}
		return record, errs.Persistence("record decision outcome", err)
	}
	record.Outcome = &outcome
	return record, nil
}

// AccuracyScore is the mean normalized closeness between the predicted and
// actual ARR and churn deltas, each component clamped to [0,1].
func AccuracyScore(predictedARR, actualARR, predictedChurn, actualChurn float64) float64 {
	return utils.Round4((closeness(predictedARR, actualARR) + closeness(predictedChurn, actualChurn)) / 2)
}

func closeness(predicted, actual float64) float64 {
	if predicted == 0 && actual == 0 {
		return 1
	}
	denom := math.Max(math.Abs(predicted), math.Abs(actual))
	return utils.Clamp(1-math.Abs(actual-predicted)/denom, 0, 1)
}

func contains(list []string, v string) bool {
	for _, item := range list {
		if item == v {
			return true
		}
	}
	return false
}
