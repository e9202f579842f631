package store

import (
	"database/sql"
	"errors"
	"fmt"
	"time"
)

// Setting keys the service reads as overrides of file configuration.
const (
	KeyUsername       = "xuexitong.username"
	KeyPassword       = "xuexitong.password"
	KeyTargetURL      = "xuexitong.target_url"
	KeyFolder         = "xuexitong.folder"
	KeyExecutablePath = "xuexitong.executable_path"
	KeyMailTo         = "mail.to"
)

// KnownKeys lists the keys accepted by Set through the API.
var KnownKeys = []string{KeyUsername, KeyPassword, KeyTargetURL, KeyFolder, KeyExecutablePath, KeyMailTo}

// Settings is a string key/value store. Get returns "" and false for
// unknown keys.
type Settings interface {
	Get(key string) (string, bool, error)
	Set(key, value string) error
}

func (db *DB) Get(key string) (string, bool, error) {
	var v string
	err := db.conn.QueryRow(`SELECT value FROM settings WHERE key = ?`, key).Scan(&v)
	if errors.Is(err, sql.ErrNoRows) {
		return "", false, nil
	}
	if err != nil {
		return "", false, fmt.Errorf("store: get %s: %w", key, err)
	}
	return v, true, nil
}

// Set upserts a setting. An empty value removes the override.
func (db *DB) Set(key, value string) error {
	if value == "" {
		if _, err := db.conn.Exec(`DELETE FROM settings WHERE key = ?`, key); err != nil {
			return fmt.Errorf("store: clear %s: %w", key, err)
		}
		return nil
	}
	_, err := db.conn.Exec(`
		INSERT INTO settings (key, value, updated_at) VALUES (?, ?, ?)
		ON CONFLICT(key) DO UPDATE SET
			value      = excluded.value,
			updated_at = excluded.updated_at
	`, key, value, time.Now().UTC())
	if err != nil {
		return fmt.Errorf("store: set %s: %w", key, err)
	}
	return nil
}

// IsKnownKey reports whether key is one of KnownKeys.
func IsKnownKey(key string) bool {
	for _, k := range KnownKeys {
		if k == key {
			return true
		}
	}
	return false
}
