package store

import (
	"os"
	"testing"
	"time"

	"github.com/starford/worklog/internal/models"
)

func testDB(t *testing.T) *DB {
	t.Helper()
	f, err := os.CreateTemp(t.TempDir(), "worklog-test-*.db")
	if err != nil {
		t.Fatal(err)
	}
	f.Close()

	db, err := Open(f.Name())
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	return db
}

func TestSchemaCreation(t *testing.T) {
	db := testDB(t)
	var count int
	if err := db.conn.QueryRow(`SELECT count(*) FROM settings`).Scan(&count); err != nil {
		t.Fatalf("settings table missing: %v", err)
	}
	if err := db.conn.QueryRow(`SELECT count(*) FROM sync_history`).Scan(&count); err != nil {
		t.Fatalf("sync_history table missing: %v", err)
	}
}

func TestSettings_SetGetClear(t *testing.T) {
	db := testDB(t)

	if _, ok, err := db.Get(KeyUsername); err != nil || ok {
		t.Fatalf("unset key: ok=%v err=%v", ok, err)
	}
	if err := db.Set(KeyUsername, "13800000000"); err != nil {
		t.Fatalf("Set: %v", err)
	}
	if err := db.Set(KeyUsername, "13900000000"); err != nil {
		t.Fatalf("Set again: %v", err)
	}
	v, ok, err := db.Get(KeyUsername)
	if err != nil || !ok || v != "13900000000" {
		t.Errorf("Get = %q, %v, %v", v, ok, err)
	}

	if err := db.Set(KeyUsername, ""); err != nil {
		t.Fatalf("clear: %v", err)
	}
	if _, ok, _ := db.Get(KeyUsername); ok {
		t.Error("empty value should remove the override")
	}
}

func TestIsKnownKey(t *testing.T) {
	if !IsKnownKey(KeyFolder) {
		t.Error("folder key should be known")
	}
	if IsKnownKey("app.log_level") {
		t.Error("unexpected known key")
	}
}

func TestSyncHistory(t *testing.T) {
	db := testDB(t)
	base := time.Date(2026, 1, 28, 18, 0, 0, 0, time.UTC)

	records := []models.SyncResult{
		{Date: "20260127", Title: "工作日志 2026-01-27", Success: true, Checksum: "aaa", SyncedAt: base},
		{Date: "20260128", Title: "工作日志 2026-01-28", Success: false, Error: "save: no matching element", Checksum: "bbb", SyncedAt: base.Add(time.Minute)},
		{Date: "20260128", Title: "工作日志 2026-01-28", Success: true, Checksum: "ccc", SyncedAt: base.Add(2 * time.Minute)},
	}
	for _, r := range records {
		if _, err := db.RecordSync(r); err != nil {
			t.Fatalf("RecordSync: %v", err)
		}
	}

	list, total, err := db.ListSyncs(2, 0)
	if err != nil {
		t.Fatalf("ListSyncs: %v", err)
	}
	if total != 3 || len(list) != 2 {
		t.Fatalf("total=%d len=%d", total, len(list))
	}
	if list[0].Checksum != "ccc" || !list[0].Success {
		t.Errorf("newest first expected, got %+v", list[0])
	}
	if list[1].Error != "save: no matching element" {
		t.Errorf("error not stored: %+v", list[1])
	}

	cs, err := db.LastPublishedChecksum("20260128")
	if err != nil || cs != "ccc" {
		t.Errorf("LastPublishedChecksum = %q, %v", cs, err)
	}
	if cs, _ := db.LastPublishedChecksum("20260126"); cs != "" {
		t.Errorf("unpublished date checksum = %q", cs)
	}
}
