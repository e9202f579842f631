package store

import (
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/starford/worklog/internal/models"
)

// SyncLog records publish attempts.
type SyncLog interface {
	RecordSync(r models.SyncResult) (int64, error)
	ListSyncs(limit, offset int) ([]models.SyncResult, int, error)
	// LastPublishedChecksum returns the checksum of the latest successful
	// publish for date, or "" when there is none.
	LastPublishedChecksum(date string) (string, error)
}

func (db *DB) RecordSync(r models.SyncResult) (int64, error) {
	if r.SyncedAt.IsZero() {
		r.SyncedAt = time.Now()
	}
	res, err := db.conn.Exec(`
		INSERT INTO sync_history (date, title, success, error, checksum, synced_at)
		VALUES (?, ?, ?, ?, ?, ?)
	`, r.Date, r.Title, r.Success, r.Error, r.Checksum, r.SyncedAt.UTC())
	if err != nil {
		return 0, fmt.Errorf("store: record sync: %w", err)
	}
	return res.LastInsertId()
}

// ListSyncs returns the newest attempts first together with the total count.
func (db *DB) ListSyncs(limit, offset int) ([]models.SyncResult, int, error) {
	if limit <= 0 {
		limit = 50
	}
	var total int
	if err := db.conn.QueryRow(`SELECT count(*) FROM sync_history`).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("store: count syncs: %w", err)
	}
	rows, err := db.conn.Query(`
		SELECT id, date, title, success, error, checksum, synced_at
		FROM sync_history
		ORDER BY synced_at DESC, id DESC
		LIMIT ? OFFSET ?
	`, limit, offset)
	if err != nil {
		return nil, 0, fmt.Errorf("store: list syncs: %w", err)
	}
	defer rows.Close()

	var out []models.SyncResult
	for rows.Next() {
		var r models.SyncResult
		if err := rows.Scan(&r.ID, &r.Date, &r.Title, &r.Success, &r.Error, &r.Checksum, &r.SyncedAt); err != nil {
			return nil, 0, err
		}
		out = append(out, r)
	}
	return out, total, rows.Err()
}

func (db *DB) LastPublishedChecksum(date string) (string, error) {
	var cs string
	err := db.conn.QueryRow(`
		SELECT checksum FROM sync_history
		WHERE date = ? AND success = 1
		ORDER BY synced_at DESC, id DESC
		LIMIT 1
	`, date).Scan(&cs)
	if errors.Is(err, sql.ErrNoRows) {
		return "", nil
	}
	if err != nil {
		return "", fmt.Errorf("store: last checksum: %w", err)
	}
	return cs, nil
}
