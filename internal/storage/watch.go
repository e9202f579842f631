package storage

import (
	"context"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/fsnotify/fsnotify"
)

// EventCallback is called for every draft change seen by Watch.
// kind is one of "created", "updated", "deleted".
type EventCallback func(kind string, path string)

// Watch reports changes to Markdown drafts under root until ctx is
// cancelled. Paths passed to cb are relative to root with forward slashes.
// Directories created at runtime are watched too; hidden files such as
// in-flight temp files are ignored.
func Watch(ctx context.Context, root string, logger *slog.Logger, cb EventCallback) error {
	w, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	defer w.Close()

	if err := addDirsRecursive(w, root); err != nil {
		return err
	}
	logger.Info("drafts watcher: started", slog.String("root", root))

	emit := func(kind, abs string) {
		rel, err := filepath.Rel(root, abs)
		if err != nil {
			return
		}
		rel = filepath.ToSlash(rel)
		logger.Debug("drafts watcher: change", slog.String("path", rel), slog.String("op", kind))
		if cb != nil {
			cb(kind, rel)
		}
	}

	for {
		select {
		case <-ctx.Done():
			logger.Info("drafts watcher: stopped")
			return nil

		case ev, ok := <-w.Events:
			if !ok {
				return nil
			}
			if strings.HasPrefix(filepath.Base(ev.Name), ".") {
				continue
			}

			if ev.Op&fsnotify.Create != 0 {
				if info, statErr := os.Stat(ev.Name); statErr == nil && info.IsDir() {
					if addErr := addDirsRecursive(w, ev.Name); addErr != nil {
						logger.Warn("drafts watcher: add new dir failed",
							slog.String("path", ev.Name),
							slog.String("error", addErr.Error()))
					}
					emitExisting(ev.Name, func(p string) { emit("created", p) })
					continue
				}
			}

			if !strings.HasSuffix(ev.Name, ".md") {
				continue
			}

			switch {
			case ev.Op&fsnotify.Create != 0:
				emit("created", ev.Name)
			case ev.Op&fsnotify.Write != 0:
				emit("updated", ev.Name)
			case ev.Op&(fsnotify.Remove|fsnotify.Rename) != 0:
				emit("deleted", ev.Name)
			}

		case watchErr, ok := <-w.Errors:
			if !ok {
				return nil
			}
			logger.Error("drafts watcher: error", slog.String("error", watchErr.Error()))
		}
	}
}

// emitExisting reports drafts already present in a newly created directory.
func emitExisting(dir string, fn func(abs string)) {
	_ = filepath.WalkDir(dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil || d.IsDir() || !strings.HasSuffix(path, ".md") || strings.HasPrefix(d.Name(), ".") {
			return nil
		}
		fn(path)
		return nil
	})
}

// addDirsRecursive adds root and all its subdirectories to the watcher.
func addDirsRecursive(w *fsnotify.Watcher, root string) error {
	return filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			return w.Add(path)
		}
		return nil
	})
}
