package ontology

import (
	"encoding/json"

	"github.com/pricelens/backend/internal/errs"
	"github.com/pricelens/backend/internal/models"
)

func marshalPayload(p models.SnapshotPayload) ([]byte, error) {
	b, err := json.Marshal(p)
	if err != nil {
		return nil, errs.Persistence("serialize ontology payload", err)
	}
	return b, nil
}

// DecodePayload reads a stored snapshot back into its structured form.
func DecodePayload(snap models.OntologySnapshot) (models.SnapshotPayload, error) {
	var p models.SnapshotPayload
	if err := json.Unmarshal(snap.Payload, &p); err != nil {
		return p, errs.Persistence("decode ontology payload", err)
	}
	return p, nil
}
