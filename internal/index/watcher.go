package index

import (
	"context"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/fsnotify/fsnotify"
)

// EventCallback is called for every document change seen in the vault.
// kind is one of "created", "updated", "deleted".
type EventCallback func(kind string, path string)

// Watch starts an fsnotify watcher on the vault root and the directory of the
// configuration document and processes events until ctx is cancelled.
//
// Markdown changes in the vault are reported through cb. Writes to the
// configuration document trigger a debounced store.Reload so that edits made
// by other processes become visible. New directories created at runtime are
// added to the watch list.
func Watch(ctx context.Context, store *Store, vaultRoot, docPath string, logger *slog.Logger, cb EventCallback) error {
	w, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	defer w.Close()

	if vaultRoot != "" {
		if err := addDirsRecursive(w, vaultRoot); err != nil {
			return err
		}
	}
	var docAbs string
	if docPath != "" {
		if docAbs, err = filepath.Abs(docPath); err != nil {
			return err
		}
		// Editors replace files by rename; watch the directory, not the file.
		if err := w.Add(filepath.Dir(docAbs)); err != nil {
			return err
		}
	}

	logger.Info("watcher: started", slog.String("root", vaultRoot), slog.String("document", docAbs))

	var reloadTimer *time.Timer
	var reloadCh <-chan time.Time

	scheduleReload := func() {
		if reloadTimer == nil {
			reloadTimer = time.NewTimer(200 * time.Millisecond)
			reloadCh = reloadTimer.C
		} else {
			reloadTimer.Reset(200 * time.Millisecond)
		}
	}

	for {
		select {
		case <-ctx.Done():
			if reloadTimer != nil {
				reloadTimer.Stop()
			}
			logger.Info("watcher: stopped")
			return nil

		case <-reloadCh:
			changed, rerr := store.Reload(ctx)
			if rerr != nil {
				logger.Warn("watcher: reload failed", slog.String("error", rerr.Error()))
				continue
			}
			if changed {
				logger.Debug("watcher: index reloaded", slog.String("document", docAbs))
			}

		case ev, ok := <-w.Events:
			if !ok {
				return nil
			}
			absPath := ev.Name

			if docAbs != "" && absPath == docAbs {
				if ev.Op&(fsnotify.Create|fsnotify.Write|fsnotify.Rename) != 0 {
					scheduleReload()
				}
				continue
			}

			if ev.Op&fsnotify.Create != 0 {
				if info, statErr := os.Stat(absPath); statErr == nil && info.IsDir() {
					if addErr := addDirsRecursive(w, absPath); addErr != nil {
						logger.Warn("watcher: add new dir failed",
							slog.String("path", absPath),
							slog.String("error", addErr.Error()))
					}
					reportNewDir(vaultRoot, absPath, cb)
					continue
				}
			}

			if vaultRoot == "" || !strings.HasSuffix(absPath, ".md") {
				continue
			}
			rel, relErr := filepath.Rel(vaultRoot, absPath)
			if relErr != nil || strings.HasPrefix(rel, "..") {
				continue
			}
			rel = filepath.ToSlash(rel)

			var kind string
			switch {
			case ev.Op&fsnotify.Create != 0:
				kind = "created"
			case ev.Op&fsnotify.Write != 0:
				kind = "updated"
			case ev.Op&(fsnotify.Remove|fsnotify.Rename) != 0:
				// Rename fires on the old path only; the new path arrives as
				// a separate Create.
				kind = "deleted"
			default:
				continue
			}
			logger.Debug("watcher: document event", slog.String("path", rel), slog.String("op", kind))
			if cb != nil {
				cb(kind, rel)
			}

		case watchErr, ok := <-w.Errors:
			if !ok {
				return nil
			}
			logger.Error("watcher: error", slog.String("error", watchErr.Error()))
		}
	}
}

// reportNewDir reports .md files already present in a newly created
// directory.
func reportNewDir(vaultRoot, dirPath string, cb EventCallback) {
	if cb == nil || vaultRoot == "" {
		return
	}
	_ = filepath.WalkDir(dirPath, func(path string, d fs.DirEntry, err error) error {
		if err != nil || d.IsDir() || !strings.HasSuffix(path, ".md") {
			return nil
		}
		rel, relErr := filepath.Rel(vaultRoot, path)
		if relErr != nil {
			return nil
		}
		cb("created", filepath.ToSlash(rel))
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
			if strings.HasPrefix(d.Name(), ".") && path != root {
				return filepath.SkipDir
			}
			return w.Add(path)
		}
		return nil
	})
}
