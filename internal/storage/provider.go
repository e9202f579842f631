// Package storage keeps generated drafts as Markdown files on disk.
package storage

import "github.com/starford/worklog/internal/models"

// Provider is the interface for draft file operations. Paths are relative
// to the drafts root.
type Provider interface {
	// List returns metadata for every draft under dir, newest first.
	List(dir string) ([]models.DraftMetadata, error)
	// Read and Delete report apperr.ErrNotFound for a missing draft.
	Read(path string) ([]byte, error)
	// Write atomically replaces the file at path.
	Write(path string, content []byte) error
	Delete(path string) error
}
