package ontology

import (
	"encoding/json"
	"reflect"
	"sort"

	"github.com/pricelens/backend/internal/models"
)

// MarshalState serializes an entity for audit storage. Marshal failures
// degrade to nil state rather than blocking the mutation.
func MarshalState(e models.Entity) []byte {
	if e == nil {
		return nil
	}
	b, err := json.Marshal(e)
	if err != nil {
		return nil
	}
	return b
}

// ChangedFields returns the sorted set of top-level keys whose values differ
// between two serialized states. A nil previous state marks every key of the
// new state as changed.
func ChangedFields(previous, next []byte) []string {
	prevMap := stateMap(previous)
	nextMap := stateMap(next)

	keys := map[string]struct{}{}
	for k := range prevMap {
		keys[k] = struct{}{}
	}
	for k := range nextMap {
		keys[k] = struct{}{}
	}

	var changed []string
	for k := range keys {
		pv, pok := prevMap[k]
		nv, nok := nextMap[k]
		if pok != nok || !reflect.DeepEqual(pv, nv) {
			changed = append(changed, k)
		}
	}
	sort.Strings(changed)
	return changed
}

func stateMap(state []byte) map[string]any {
	if len(state) == 0 {
		return map[string]any{}
	}
	var m map[string]any
	if err := json.Unmarshal(state, &m); err != nil {
		return map[string]any{}
	}
	return m
}
