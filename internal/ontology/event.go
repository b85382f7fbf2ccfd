package ontology

import (
	"encoding/json"

	"github.com/pricelens/backend/internal/models"
)

type auditEvent struct {
	ID             string   `json:"id"`
	OrganizationID string   `json:"organization_id"`
	EntityType     string   `json:"entity_type"`
	EntityID       string   `json:"entity_id"`
	Action         string   `json:"action"`
	ChangedFields  []string `json:"changed_fields"`
	TriggeredBy    string   `json:"triggered_by"`
}

// MarshalAuditEvent builds the lean stream payload; full states stay in the
// audit table only.
func MarshalAuditEvent(row models.OntologyAuditLog) []byte {
	b, _ := json.Marshal(auditEvent{
		ID:             row.ID,
		OrganizationID: row.OrganizationID,
		EntityType:     row.EntityType,
		EntityID:       row.EntityID,
		Action:         row.Action,
		ChangedFields:  row.ChangedFields,
		TriggeredBy:    row.TriggeredBy,
	})
	return b
}
