package ontology

import (
	"context"
	"os"
	"testing"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/pricelens/backend/internal/db"
)

func TestSnapshotVersionsMonotonicIntegration(t *testing.T) {
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

	repo := &Repository{
		Store:    store,
		Recorder: &Recorder{Sink: store, Logger: zerolog.Nop()},
		Logger:   zerolog.Nop(),
	}
	orgID := "snapshot-test-" + uuid.NewString()

	for want := 1; want <= 3; want++ {
		snap, err := repo.CreateSnapshot(ctx, orgID, "manual")
		if err != nil {
			t.Fatalf("create snapshot %d: %v", want, err)
		}
		if snap.Version != want {
			t.Fatalf("snapshot version = %d, want %d", snap.Version, want)
		}
	}

	version, err := store.LatestSnapshotVersion(ctx, orgID)
	if err != nil {
		t.Fatalf("latest snapshot version: %v", err)
	}
	if version != 3 {
		t.Fatalf("latest version = %d, want 3", version)
	}
}
