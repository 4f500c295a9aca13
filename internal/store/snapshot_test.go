package store

import (
	"testing"
	"time"

	"github.com/KenL-TW/travel-planner-pro/internal/model"
)

func TestSnapshotLifecycle(t *testing.T) {
	ss := NewSnapshotStore(setupTestDB(t))

	sn, err := ss.Create("planner-2026-08-23.json.enc", "snapshots/planner-2026-08-23.json.enc")
	if err != nil {
		t.Fatalf("create snapshot: %v", err)
	}
	if sn.Status != model.SnapshotStatusPending {
		t.Errorf("status = %q, want pending", sn.Status)
	}

	if err := ss.UpdateStatus(sn.ID, model.SnapshotStatusUploading, ""); err != nil {
		t.Fatalf("update status: %v", err)
	}
	got, _ := ss.GetByID(sn.ID)
	if got.Status != model.SnapshotStatusUploading {
		t.Errorf("status = %q, want uploading", got.Status)
	}

	if err := ss.UpdateCompleted(sn.ID, 4096); err != nil {
		t.Fatalf("update completed: %v", err)
	}
	got, _ = ss.GetByID(sn.ID)
	if got.Status != model.SnapshotStatusCompleted {
		t.Errorf("status = %q, want completed", got.Status)
	}
	if got.SizeBytes != 4096 {
		t.Errorf("size = %d, want 4096", got.SizeBytes)
	}
	if got.CompletedAt == nil {
		t.Error("completed_at should be set")
	}
}

func TestSnapshotFailureKeepsMessage(t *testing.T) {
	ss := NewSnapshotStore(setupTestDB(t))

	sn, _ := ss.Create("f.json.enc", "snapshots/f.json.enc")
	if err := ss.UpdateStatus(sn.ID, model.SnapshotStatusFailed, "bucket unreachable"); err != nil {
		t.Fatalf("update status: %v", err)
	}

	got, _ := ss.GetByID(sn.ID)
	if got.Status != model.SnapshotStatusFailed {
		t.Errorf("status = %q, want failed", got.Status)
	}
	if got.ErrorMessage != "bucket unreachable" {
		t.Errorf("error_message = %q", got.ErrorMessage)
	}
}

func TestSnapshotListOlderThan(t *testing.T) {
	ss := NewSnapshotStore(setupTestDB(t))

	old, _ := ss.Create("old.json.enc", "snapshots/old.json.enc")
	ss.UpdateCompleted(old.ID, 10)
	pending, _ := ss.Create("pending.json.enc", "snapshots/pending.json.enc")

	// Everything so far is "older" than a future cutoff, but only
	// completed snapshots qualify for cleanup.
	snaps, err := ss.ListOlderThan(time.Now().UTC().Add(time.Hour))
	if err != nil {
		t.Fatalf("list older than: %v", err)
	}
	if len(snaps) != 1 || snaps[0].ID != old.ID {
		t.Fatalf("cleanup candidates = %v, want only the completed one", snaps)
	}

	// A cutoff in the past matches nothing.
	snaps, _ = ss.ListOlderThan(time.Now().UTC().Add(-time.Hour))
	if len(snaps) != 0 {
		t.Errorf("expected no candidates, got %d", len(snaps))
	}

	_ = pending
	if err := ss.Delete(old.ID); err != nil {
		t.Fatalf("delete snapshot: %v", err)
	}
	if got, _ := ss.GetByID(old.ID); got != nil {
		t.Error("expected nil for deleted snapshot")
	}
}
