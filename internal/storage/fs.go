package storage

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/starford/worklog/internal/apperr"
	"github.com/starford/worklog/internal/checksum"
	"github.com/starford/worklog/internal/models"
)

// DraftExt is the extension of every stored draft.
const DraftExt = ".md"

const tempPattern = ".worklog-tmp-*"

// FS implements Provider on a local directory.
type FS struct {
	root string // absolute
}

var _ Provider = (*FS)(nil)

// NewFS opens the drafts directory at root, creating it when missing.
func NewFS(root string) (*FS, error) {
	abs, err := filepath.Abs(root)
	if err != nil {
		return nil, fmt.Errorf("storage: resolve root: %w", err)
	}
	if err := os.MkdirAll(abs, 0o755); err != nil {
		return nil, fmt.Errorf("storage: create root: %w", err)
	}
	if info, err := os.Stat(abs); err != nil {
		return nil, fmt.Errorf("storage: stat root: %w", err)
	} else if !info.IsDir() {
		return nil, fmt.Errorf("storage: root is not a directory: %s", abs)
	}
	return &FS{root: abs}, nil
}

// Root returns the absolute drafts directory.
func (f *FS) Root() string { return f.root }

// resolve maps a slash-separated relative path to an absolute one under
// root. Absolute paths and paths escaping root are invalid input.
func (f *FS) resolve(rel string) (string, error) {
	if rel == "" {
		return f.root, nil
	}
	cleaned := filepath.Clean(filepath.FromSlash(rel))
	if filepath.IsAbs(cleaned) {
		return "", fmt.Errorf("storage: %w: absolute path %q", apperr.ErrInvalidInput, rel)
	}
	abs := filepath.Join(f.root, cleaned)
	if abs != f.root && !strings.HasPrefix(abs, f.root+string(os.PathSeparator)) {
		return "", fmt.Errorf("storage: %w: %q escapes the drafts directory", apperr.ErrInvalidInput, rel)
	}
	return abs, nil
}

func notFound(op, path string, err error) error {
	if errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("storage: %s %s: %w", op, path, apperr.ErrNotFound)
	}
	return fmt.Errorf("storage: %s %s: %w", op, path, err)
}

// List returns every draft under dir, newest name first. Draft names start
// with their date, so this puts the latest day or week on top. A missing
// dir is an empty list.
func (f *FS) List(dir string) ([]models.DraftMetadata, error) {
	base, err := f.resolve(dir)
	if err != nil {
		return nil, err
	}
	var out []models.DraftMetadata
	walkErr := filepath.WalkDir(base, func(p string, d fs.DirEntry, err error) error {
		switch {
		case errors.Is(err, fs.ErrNotExist) && p == base:
			return filepath.SkipDir
		case err != nil:
			return err
		case d.IsDir(), strings.HasPrefix(d.Name(), "."), filepath.Ext(p) != DraftExt:
			return nil
		}
		info, err := d.Info()
		if err != nil {
			return err
		}
		data, err := os.ReadFile(p)
		if err != nil {
			return err
		}
		rel, _ := filepath.Rel(f.root, p)
		out = append(out, models.DraftMetadata{
			Path:      filepath.ToSlash(rel),
			Checksum:  checksum.Sum(data),
			UpdatedAt: info.ModTime(),
		})
		return nil
	})
	if walkErr != nil {
		return nil, fmt.Errorf("storage: list %q: %w", dir, walkErr)
	}
	sort.Slice(out, func(i, j int) bool {
		bi, bj := filepath.Base(out[i].Path), filepath.Base(out[j].Path)
		if bi != bj {
			return bi > bj
		}
		return out[i].Path < out[j].Path
	})
	return out, nil
}

// Read returns the raw bytes of a draft.
func (f *FS) Read(path string) ([]byte, error) {
	abs, err := f.resolve(path)
	if err != nil {
		return nil, err
	}
	data, err := os.ReadFile(abs)
	if err != nil {
		return nil, notFound("read", path, err)
	}
	return data, nil
}

// Write replaces a draft atomically. Readers and the drafts watcher never
// observe a partially written file.
func (f *FS) Write(path string, content []byte) error {
	if filepath.Ext(path) != DraftExt {
		return fmt.Errorf("storage: %w: draft %q must end in %s", apperr.ErrInvalidInput, path, DraftExt)
	}
	abs, err := f.resolve(path)
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(abs), 0o755); err != nil {
		return fmt.Errorf("storage: mkdir: %w", err)
	}
	return replaceFile(abs, content)
}

// replaceFile writes content to a hidden temp file next to dst, syncs it
// and renames it over dst.
func replaceFile(dst string, content []byte) (err error) {
	tmp, err := os.CreateTemp(filepath.Dir(dst), tempPattern)
	if err != nil {
		return fmt.Errorf("storage: create temp: %w", err)
	}
	defer func() {
		if err != nil {
			_ = tmp.Close()
			_ = os.Remove(tmp.Name())
		}
	}()

	if _, err = tmp.Write(content); err != nil {
		return fmt.Errorf("storage: write temp: %w", err)
	}
	if err = tmp.Sync(); err != nil {
		return fmt.Errorf("storage: fsync: %w", err)
	}
	if err = tmp.Close(); err != nil {
		return fmt.Errorf("storage: close temp: %w", err)
	}
	if err = os.Rename(tmp.Name(), dst); err != nil {
		return fmt.Errorf("storage: rename: %w", err)
	}
	return nil
}

// Delete removes a draft.
func (f *FS) Delete(path string) error {
	abs, err := f.resolve(path)
	if err != nil {
		return err
	}
	if abs == f.root {
		return fmt.Errorf("storage: %w: refusing to delete the drafts directory", apperr.ErrInvalidInput)
	}
	if err := os.Remove(abs); err != nil {
		return notFound("delete", path, err)
	}
	return nil
}
