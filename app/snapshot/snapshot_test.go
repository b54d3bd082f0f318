package snapshot

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestUpdateFirstSnapshotHasNoDiff(t *testing.T) {
	snapshots := map[string]Snapshot{}

	snap := Update("Page", "first body", snapshots, "2024-01-01T00:00:00")
	if snap.Diff != "" {
		t.Errorf("Expected no diff for first snapshot, got: %q", snap.Diff)
	}
	if snap.Content != "first body" {
		t.Errorf("Expected content to be stored, got: %q", snap.Content)
	}
	if snap.Timestamp != "2024-01-01T00:00:00" {
		t.Errorf("Expected timestamp to be stored, got: %q", snap.Timestamp)
	}
}

func TestUpdateChangedContentProducesDiff(t *testing.T) {
	snapshots := map[string]Snapshot{
		"Page": {PageName: "Page", Content: "old line\nshared line", Timestamp: "t0"},
	}

	snap := Update("Page", "new line\nshared line", snapshots, "t1")
	if snap.Diff == "" {
		t.Fatal("Expected a diff for changed content")
	}
	if !strings.Contains(snap.Diff, "+new line") || !strings.Contains(snap.Diff, "-old line") {
		t.Errorf("Expected added and removed lines in diff, got: %q", snap.Diff)
	}
}

func TestUpdateIdenticalContentHasNoDiff(t *testing.T) {
	snapshots := map[string]Snapshot{
		"Page": {PageName: "Page", Content: "same body", Timestamp: "t0"},
	}

	snap := Update("Page", "same body", snapshots, "t1")
	if snap.Diff != "" {
		t.Errorf("Expected no diff for identical content, got: %q", snap.Diff)
	}
}

func TestStoreLoadMissingFile(t *testing.T) {
	store := NewStore(filepath.Join(t.TempDir(), "snapshots.json"))
	if got := store.LoadAll(); len(got) != 0 {
		t.Errorf("Expected empty map for missing file, got: %v", got)
	}
}

func TestStoreLoadMalformedFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "snapshots.json")
	if err := os.WriteFile(path, []byte("not json at all"), 0o644); err != nil {
		t.Fatalf("Failed to write test file: %v", err)
	}

	if got := NewStore(path).LoadAll(); len(got) != 0 {
		t.Errorf("Expected empty map for malformed file, got: %v", got)
	}
}

func TestStoreSaveLoadRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "snapshots.json")
	store := NewStore(path)

	snapshots := map[string]Snapshot{
		"WithDiff":    {PageName: "WithDiff", Content: "body", Timestamp: "t1", Diff: "+body"},
		"WithoutDiff": {PageName: "WithoutDiff", Content: "初回の本文", Timestamp: "t2"},
	}
	if err := store.SaveAll(snapshots); err != nil {
		t.Fatalf("SaveAll failed: %v", err)
	}

	loaded := store.LoadAll()
	if len(loaded) != 2 {
		t.Fatalf("Expected 2 snapshots, got: %d", len(loaded))
	}
	if loaded["WithDiff"].Diff != "+body" {
		t.Errorf("Expected diff to round-trip, got: %q", loaded["WithDiff"].Diff)
	}
	if loaded["WithoutDiff"].Diff != "" {
		t.Errorf("Expected empty diff to round-trip as empty, got: %q", loaded["WithoutDiff"].Diff)
	}
	if loaded["WithoutDiff"].Content != "初回の本文" {
		t.Errorf("Expected multibyte content to round-trip, got: %q", loaded["WithoutDiff"].Content)
	}
}
