package store

import "testing"

func TestSettingsGetMissingKey(t *testing.T) {
	ss := NewSettingsStore(setupTestDB(t))

	v, err := ss.Get("nonexistent")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if v != "" {
		t.Errorf("value = %q, want empty", v)
	}
}

func TestSettingsSetUpserts(t *testing.T) {
	ss := NewSettingsStore(setupTestDB(t))

	if err := ss.Set("snapshot_hour", "3"); err != nil {
		t.Fatalf("set: %v", err)
	}
	if err := ss.Set("snapshot_hour", "4"); err != nil {
		t.Fatalf("overwrite: %v", err)
	}

	v, _ := ss.Get("snapshot_hour")
	if v != "4" {
		t.Errorf("value = %q, want 4", v)
	}
}

func TestGetSnapshotSettings(t *testing.T) {
	ss := NewSettingsStore(setupTestDB(t))

	ss.Set("snapshot_enabled", "true")
	ss.Set("snapshot_retention_days", "14")

	settings, err := ss.GetSnapshotSettings()
	if err != nil {
		t.Fatalf("get snapshot settings: %v", err)
	}
	if settings["snapshot_enabled"] != "true" {
		t.Errorf("enabled = %q", settings["snapshot_enabled"])
	}
	if settings["snapshot_retention_days"] != "14" {
		t.Errorf("retention = %q", settings["snapshot_retention_days"])
	}
	// Unset keys come back empty rather than missing.
	if _, ok := settings["snapshot_hour"]; !ok {
		t.Error("unset keys should still be present in the map")
	}
}
