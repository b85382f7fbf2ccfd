package ontology

import (
	"reflect"
	"testing"

	"github.com/pricelens/backend/internal/models"
)

func TestChangedFieldsSortedTopLevelDiff(t *testing.T) {
	prev := []byte(`{"name":"SMB","churn_rate":0.1,"is_active":true}`)
	next := []byte(`{"name":"SMB Plus","churn_rate":0.2,"is_active":true}`)

	got := ChangedFields(prev, next)
	want := []string{"churn_rate", "name"}
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("expected %v, got %v", want, got)
	}
}

func TestChangedFieldsNilPreviousMarksAllKeys(t *testing.T) {
	next := []byte(`{"b":1,"a":2}`)
	got := ChangedFields(nil, next)
	want := []string{"a", "b"}
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("expected %v, got %v", want, got)
	}
}

func TestChangedFieldsDetectsRemovedKeys(t *testing.T) {
	prev := []byte(`{"a":1,"b":2}`)
	next := []byte(`{"a":1}`)
	got := ChangedFields(prev, next)
	if !reflect.DeepEqual(got, []string{"b"}) {
		t.Fatalf("expected removed key flagged, got %v", got)
	}
}

func TestChangedFieldsNestedValuesCompared(t *testing.T) {
	prev := []byte(`{"criteria":[{"field":"mrr","op":"gte","value":200}]}`)
	same := []byte(`{"criteria":[{"field":"mrr","op":"gte","value":200}]}`)
	changed := []byte(`{"criteria":[{"field":"mrr","op":"gte","value":500}]}`)

	if got := ChangedFields(prev, same); len(got) != 0 {
		t.Fatalf("expected no changes, got %v", got)
	}
	if got := ChangedFields(prev, changed); !reflect.DeepEqual(got, []string{"criteria"}) {
		t.Fatalf("expected criteria flagged, got %v", got)
	}
}

func TestMarshalStateRoundTripsEntities(t *testing.T) {
	seg := models.Segment{ID: "seg-1", OrganizationID: "org-1", Name: "SMB"}
	state := MarshalState(seg)
	if len(state) == 0 {
		t.Fatalf("expected serialized state")
	}
	if MarshalState(nil) != nil {
		t.Fatalf("expected nil state for nil entity")
	}
}
