package storage

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/eitatech/gatomia/pkg/domain/review"
)

func TestLoadLanes_MissingFile(t *testing.T) {
	repo := NewFilesystemRepository(t.TempDir())

	lanes, err := repo.LoadLanes(context.Background())
	if err != nil {
		t.Fatalf("LoadLanes failed: %v", err)
	}
	if len(lanes.Review) != 0 || len(lanes.Archived) != 0 || lanes.Version != 0 {
		t.Errorf("expected empty lanes, got %+v", lanes)
	}
}

func TestInitialize(t *testing.T) {
	repo := NewFilesystemRepository(t.TempDir())
	if repo.IsInitialized() {
		t.Fatal("fresh workspace reported initialized")
	}
	if err := repo.Initialize(); err != nil {
		t.Fatal(err)
	}
	if !repo.IsInitialized() {
		t.Error("expected workspace initialized")
	}
}

func TestSaveLanes_RoundTrip(t *testing.T) {
	repo := NewFilesystemRepository(t.TempDir())
	if err := repo.Initialize(); err != nil {
		t.Fatal(err)
	}

	completed := time.Date(2025, 4, 1, 9, 0, 0, 0, time.UTC)
	archived := completed.Add(time.Hour)
	lanes := &Lanes{
		Review: []review.Specification{{
			ID:           "001-login",
			Title:        "Login",
			PendingTasks: 2,
			ChangeRequests: []review.ChangeRequest{
				{ID: "cr1", Status: review.ChangeRequestOpen, Tasks: []review.Task{{ID: "t1", Status: review.TaskPending}}},
			},
			Links: review.Links{DocURL: "specs/001-login/spec.md"},
		}},
		Archived: []review.Specification{{ID: "000-setup", Title: "Setup", CompletedAt: &completed, ArchivedAt: &archived}},
	}

	if err := repo.SaveLanes(lanes); err != nil {
		t.Fatalf("SaveLanes failed: %v", err)
	}
	if lanes.Version != 1 {
		t.Errorf("Version = %d, want 1", lanes.Version)
	}

	loaded, err := repo.LoadLanes(context.Background())
	if err != nil {
		t.Fatalf("LoadLanes failed: %v", err)
	}
	if loaded.Version != 1 || len(loaded.Review) != 1 || len(loaded.Archived) != 1 {
		t.Fatalf("unexpected lanes: %+v", loaded)
	}
	got := loaded.Review[0]
	if got.ChangeRequests[0].Tasks[0].Status != review.TaskPending || got.Links.DocURL != "specs/001-login/spec.md" {
		t.Errorf("nested fields lost: %+v", got)
	}
	if !loaded.Archived[0].ArchivedAt.Equal(archived) {
		t.Errorf("ArchivedAt = %v, want %v", loaded.Archived[0].ArchivedAt, archived)
	}
}

func TestSaveLanes_ConflictDetected(t *testing.T) {
	repo := NewFilesystemRepository(t.TempDir())
	if err := repo.SaveLanes(&Lanes{Review: []review.Specification{{ID: "a"}}}); err != nil {
		t.Fatal(err)
	}

	reader1, _ := repo.LoadLanes(context.Background())
	reader2, _ := repo.LoadLanes(context.Background())

	if err := repo.SaveLanes(reader1); err != nil {
		t.Fatalf("first writer failed: %v", err)
	}
	err := repo.SaveLanes(reader2)
	if !errors.Is(err, ErrConflict) {
		t.Fatalf("expected ErrConflict, got %v", err)
	}
}

func TestSaveLanes_RejectsOverlappingLanes(t *testing.T) {
	repo := NewFilesystemRepository(t.TempDir())

	err := repo.SaveLanes(&Lanes{
		Review:   []review.Specification{{ID: "a"}},
		Archived: []review.Specification{{ID: "a"}},
	})
	if err == nil {
		t.Fatal("expected error for a spec in both lanes")
	}
	if _, statErr := os.Stat(filepath.Join(repo.DataPath(), SpecsFile)); !os.IsNotExist(statErr) {
		t.Error("invalid lanes were written")
	}
}

func TestResolvePath_Traversal(t *testing.T) {
	repo := NewFilesystemRepository(t.TempDir())

	for _, name := range []string{"../secret", "nested/file.yaml", ""} {
		if _, err := repo.ResolvePath(name); err == nil {
			t.Errorf("ResolvePath(%q) should fail", name)
		}
	}
	if _, err := repo.ResolvePath(SpecsFile); err != nil {
		t.Errorf("ResolvePath(%q) failed: %v", SpecsFile, err)
	}
}

func TestLoadLanes_RejectsMalformedDocument(t *testing.T) {
	repo := NewFilesystemRepository(t.TempDir())
	if err := repo.Initialize(); err != nil {
		t.Fatal(err)
	}
	doc := `version: 1
review:
  - id: 001-login
    title: Login
    change_requests:
      - id: cr1
        status: open
        tasks:
          - title: no id
            status: pending
archived: []
`
	path, err := repo.ResolvePath(SpecsFile)
	if err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(path, []byte(doc), 0600); err != nil {
		t.Fatal(err)
	}

	lanes, err := repo.LoadLanes(context.Background())
	if !errors.Is(err, ErrInvalidLanes) {
		t.Fatalf("expected ErrInvalidLanes, got %v", err)
	}
	if lanes != nil {
		t.Errorf("expected no lanes on invalid document, got %+v", lanes)
	}
}
