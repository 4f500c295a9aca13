package store

import (
	"database/sql"
	"fmt"
	"time"
)

// Snapshot scheduling settings.
var snapshotKeys = []string{
	"snapshot_enabled",
	"snapshot_hour",
	"snapshot_retention_days",
	"snapshot_passphrase_salt",
}

type SettingsStore struct {
	db *sql.DB
}

func NewSettingsStore(db *sql.DB) *SettingsStore {
	return &SettingsStore{db: db}
}

func (s *SettingsStore) Get(key string) (string, error) {
	var value string
	err := s.db.QueryRow(`SELECT value FROM settings WHERE key = ?`, key).Scan(&value)
	if err == sql.ErrNoRows {
		return "", nil
	}
	if err != nil {
		return "", fmt.Errorf("get setting %q: %w", key, err)
	}
	return value, nil
}

func (s *SettingsStore) Set(key, value string) error {
	_, err := s.db.Exec(
		`INSERT INTO settings (key, value, updated_at) VALUES (?, ?, ?)
		 ON CONFLICT(key) DO UPDATE SET value = excluded.value, updated_at = excluded.updated_at`,
		key, value, time.Now().UTC(),
	)
	if err != nil {
		return fmt.Errorf("set setting %q: %w", key, err)
	}
	return nil
}

func (s *SettingsStore) getKeys(keys []string) (map[string]string, error) {
	settings := make(map[string]string, len(keys))
	for _, key := range keys {
		value, err := s.Get(key)
		if err != nil {
			return nil, err
		}
		settings[key] = value
	}
	return settings, nil
}

// GetSnapshotSettings returns the snapshot schedule configuration. Missing
// keys come back as empty strings.
func (s *SettingsStore) GetSnapshotSettings() (map[string]string, error) {
	return s.getKeys(snapshotKeys)
}
