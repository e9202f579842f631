// Package models defines the domain types shared by the API, the assistant
// tools and the work-log service.
package models

import "time"

// DraftKind tells daily and weekly logs apart.
type DraftKind string

const (
	DraftDaily  DraftKind = "daily"
	DraftWeekly DraftKind = "weekly"
)

// Draft is a generated work log waiting to be published.
type Draft struct {
	Path      string    `json:"path"`
	Title     string    `json:"title"`
	Kind      DraftKind `json:"kind"`
	Date      string    `json:"date"`
	Markdown  string    `json:"markdown"`
	Checksum  string    `json:"checksum"`
	UpdatedAt time.Time `json:"updated_at"`
}

// DraftMetadata is a lightweight representation returned by list operations.
type DraftMetadata struct {
	Path      string    `json:"path"`
	Checksum  string    `json:"checksum"`
	UpdatedAt time.Time `json:"updated_at"`
}

// SyncResult records one publish attempt.
type SyncResult struct {
	ID       int64     `json:"id,omitempty"`
	Date     string    `json:"date"`
	Title    string    `json:"title"`
	Success  bool      `json:"success"`
	Error    string    `json:"error,omitempty"`
	Checksum string    `json:"checksum,omitempty"`
	SyncedAt time.Time `json:"synced_at"`
}

// CheckReport summarises a missing-log check. MissingDates use YYYYMMDD.
type CheckReport struct {
	MissingDates     []string `json:"missing_dates"`
	FoundTitlesCount int      `json:"found_titles_count"`
	CheckedCount     int      `json:"checked_count"`
}

// Notification is a user-facing message about a check or publish.
type Notification struct {
	Title  string `json:"title"`
	Body   string `json:"body"`
	Silent bool   `json:"silent"`
}
