package analysis

import (
	"context"
	"os"
	"testing"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/pricelens/backend/internal/db"
	"github.com/pricelens/backend/internal/ontology"
)

func TestSetupIdempotentIntegration(t *testing.T) {
	url := os.Getenv("TEST_DATABASE_URL")
	if url == "" {
		t.Skip("TEST_DATABASE_URL not set")
	}

	ctx := context.Background()
	store, err := db.New(ctx, url)
	if err != nil {
		t.Fatalf("db connect: %v", err)
	}
	defer store.Close()

	recorder := &ontology.Recorder{Sink: store, Logger: zerolog.Nop()}
	repo := &ontology.Repository{Store: store, Recorder: recorder, Logger: zerolog.Nop()}
	svc := &Service{Store: store, Repo: repo, Logger: zerolog.Nop()}

	orgID := "setup-test-" + uuid.NewString()

	first, err := svc.Setup(ctx, orgID, "")
	if err != nil {
		t.Fatalf("first setup: %v", err)
	}
	if first.AlreadySeeded {
		t.Fatalf("first setup reported already seeded")
	}
	if first.SegmentsCreated == 0 {
		t.Fatalf("first setup created no segments")
	}

	second, err := svc.Setup(ctx, orgID, "")
	if err != nil {
		t.Fatalf("second setup: %v", err)
	}
	if !second.AlreadySeeded {
		t.Fatalf("second setup reseeded the organization")
	}
	if second.SegmentsCreated != first.SegmentsCreated {
		t.Fatalf("active segment count drifted: first %d, second %d", first.SegmentsCreated, second.SegmentsCreated)
	}

	segments, err := store.ListSegments(ctx, orgID, true)
	if err != nil {
		t.Fatalf("list segments: %v", err)
	}
	if len(segments) != first.SegmentsCreated {
		t.Fatalf("expected %d active segments after double setup, got %d", first.SegmentsCreated, len(segments))
	}

	version, err := store.LatestSnapshotVersion(ctx, orgID)
	if err != nil {
		t.Fatalf("latest snapshot version: %v", err)
	}
	if version != 1 {
		t.Fatalf("expected snapshot version 1 after double setup, got %d", version)
	}
}
