package ontology

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/pricelens/backend/internal/events"
	"github.com/pricelens/backend/internal/metrics"
	"github.com/pricelens/backend/internal/models"
)

// AuditSink is where audit rows land; *db.Store satisfies it.
type AuditSink interface {
	AppendAudit(ctx context.Context, a models.OntologyAuditLog) error
}

// Mutation describes the intent behind a write for audit purposes.
type Mutation struct {
	Action           string
	TriggeredBy      string
	DecisionRecordID *string
	Reason           *string
}

// Recorder appends one audit row per mutation. Appending is best-effort:
// losing a history row is preferable to failing the primary write, so
// failures are logged, counted, and emitted, never returned to the mutator.
type Recorder struct {
	Sink    AuditSink
	Events  events.Publisher
	Logger  zerolog.Logger
	Metrics *metrics.OntologyMetrics
}

func (r *Recorder) Record(ctx context.Context, orgID string, previous, next models.Entity, mut Mutation) models.OntologyAuditLog {
	prevState := MarshalState(previous)
	newState := MarshalState(next)

	entityType := ""
	entityID := ""
	if next != nil {
		entityType = next.EntityType()
		entityID = next.EntityID()
	} else if previous != nil {
		entityType = previous.EntityType()
		entityID = previous.EntityID()
	}

	row := models.OntologyAuditLog{
		ID:               uuid.NewString(),
		OrganizationID:   orgID,
		EntityType:       entityType,
		EntityID:         entityID,
		Action:           mut.Action,
		PreviousState:    prevState,
		NewState:         newState,
		ChangedFields:    ChangedFields(prevState, newState),
		TriggeredBy:      mut.TriggeredBy,
		DecisionRecordID: mut.DecisionRecordID,
		Reason:           mut.Reason,
		CreatedAt:        time.Now().UTC(),
	}

	if err := r.Sink.AppendAudit(ctx, row); err != nil {
		r.Logger.Warn().Err(err).
			Str("entity_type", entityType).
			Str("entity_id", entityID).
			Str("action", mut.Action).
			Msg("audit append failed; primary write kept")
		if r.Metrics != nil {
			r.Metrics.AuditAppendFailed(entityType)
		}
	} else if r.Metrics != nil {
		r.Metrics.AuditAppended(entityType, mut.Action)
	}

	if r.Events != nil {
		if err := r.Events.Publish(ctx, []byte(orgID+":"+entityID), MarshalAuditEvent(row)); err != nil {
			r.Logger.Debug().Err(err).Msg("audit event publish failed")
		}
	}
	return row
}
