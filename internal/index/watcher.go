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
	"github.com/starford/nodepad/internal/storage"
)

// Event kinds reported to an EventCallback.
const (
	EventCreated = "created"
	EventUpdated = "updated"
	EventDeleted = "deleted"
)

// EventCallback is called after a watcher-driven cache change.
// kind is one of EventCreated, EventUpdated, EventDeleted.
type EventCallback func(kind string, path string)

const reconcileDelay = 200 * time.Millisecond

// Watch starts an fsnotify watcher on the pages root and processes file
// change events until ctx is cancelled. It calls cb (if non-nil) after
// each successful cache mutation.
//
// New folders created at runtime are added to the watch list. Renames and
// folder removals trigger a debounced reconciliation pass.
func Watch(ctx context.Context, db *DB, store storage.Provider, logger *slog.Logger, cb EventCallback) error {
	root := store.Root()
	w, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	defer w.Close()

	if err := addDirsRecursive(w, root); err != nil {
		return err
	}

	logger.Info("watcher: started", slog.String("root", root))

	var reconcileTimer *time.Timer
	var reconcileCh <-chan time.Time

	scheduleReconcile := func() {
		if reconcileTimer == nil {
			reconcileTimer = time.NewTimer(reconcileDelay)
			reconcileCh = reconcileTimer.C
		} else {
			reconcileTimer.Reset(reconcileDelay)
		}
	}

	for {
		select {
		case <-ctx.Done():
			if reconcileTimer != nil {
				reconcileTimer.Stop()
			}
			logger.Info("watcher: stopped")
			return nil

		case <-reconcileCh:
			reconcile(db, store, logger, cb)

		case ev, ok := <-w.Events:
			if !ok {
				return nil
			}

			rel, relErr := filepath.Rel(root, ev.Name)
			if relErr != nil || hiddenPath(rel) {
				continue
			}
			rel = filepath.ToSlash(rel)

			if ev.Op&fsnotify.Create != 0 {
				if info, statErr := os.Stat(ev.Name); statErr == nil && info.IsDir() {
					if addErr := addDirsRecursive(w, ev.Name); addErr != nil {
						logger.Warn("watcher: add new dir failed",
							slog.String("path", rel),
							slog.String("error", addErr.Error()))
					} else {
						logger.Debug("watcher: watching new dir", slog.String("path", rel))
					}
					scheduleReconcile()
					continue
				}
			}

			page, isTags := pageFor(rel)
			if page == "" {
				if ev.Op&(fsnotify.Remove|fsnotify.Rename) != 0 {
					// Possibly a folder; its pages are swept by the reconciliation pass.
					scheduleReconcile()
				}
				continue
			}

			switch {
			case ev.Op&(fsnotify.Create|fsnotify.Write) != 0, isTags && ev.Op&fsnotify.Remove != 0:
				existed, _ := db.GetPage(page)
				if idxErr := IndexPage(db, store, page); idxErr != nil {
					logger.Debug("watcher: index skipped", slog.String("path", page), slog.String("error", idxErr.Error()))
					continue
				}
				kind := EventUpdated
				if existed == nil {
					kind = EventCreated
				}
				logger.Debug("watcher: indexed", slog.String("path", page), slog.String("op", kind))
				if cb != nil {
					cb(kind, page)
				}

			case ev.Op&fsnotify.Remove != 0:
				if delErr := db.DeletePage(page); delErr != nil {
					logger.Warn("watcher: delete failed", slog.String("path", page), slog.String("error", delErr.Error()))
					continue
				}
				logger.Debug("watcher: deleted", slog.String("path", page))
				if cb != nil {
					cb(EventDeleted, page)
				}

			case ev.Op&fsnotify.Rename != 0:
				// fsnotify fires Rename on the old path only; the new path
				// arrives as a separate Create when it stays in a watched dir.
				if !isTags {
					if delErr := db.DeletePage(page); delErr == nil && cb != nil {
						cb(EventDeleted, page)
					}
				}
				scheduleReconcile()
			}

		case watchErr, ok := <-w.Errors:
			if !ok {
				return nil
			}
			logger.Error("watcher: error", slog.String("error", watchErr.Error()))
		}
	}
}

// reconcile runs Sync and reports the difference as events.
func reconcile(db *DB, store storage.Provider, logger *slog.Logger, cb EventCallback) {
	before, err := db.AllChecksums()
	if err != nil {
		logger.Warn("reconcile: all checksums failed", slog.String("error", err.Error()))
		return
	}
	if err := Sync(db, store, logger); err != nil {
		logger.Warn("reconcile: sync failed", slog.String("error", err.Error()))
		return
	}
	after, err := db.AllChecksums()
	if err != nil {
		return
	}
	if cb == nil {
		return
	}
	for p := range before {
		if _, ok := after[p]; !ok {
			cb(EventDeleted, p)
		}
	}
	for p, cs := range after {
		old, ok := before[p]
		switch {
		case !ok:
			cb(EventCreated, p)
		case old != cs:
			cb(EventUpdated, p)
		}
	}
}

// pageFor maps a page or sidecar path onto the page path.
func pageFor(rel string) (page string, isTags bool) {
	ext := filepath.Ext(rel)
	switch {
	case strings.EqualFold(ext, storage.DocExt):
		return rel, false
	case strings.EqualFold(ext, storage.TagExt):
		return strings.TrimSuffix(rel, ext) + storage.DocExt, true
	default:
		return "", false
	}
}

// hiddenPath reports whether any segment of rel is dot-prefixed.
func hiddenPath(rel string) bool {
	for _, seg := range strings.Split(filepath.ToSlash(rel), "/") {
		if strings.HasPrefix(seg, ".") && seg != "." {
			return true
		}
	}
	return false
}

// addDirsRecursive adds root and all its visible subdirectories to the watcher.
func addDirsRecursive(w *fsnotify.Watcher, root string) error {
	return filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if !d.IsDir() {
			return nil
		}
		if path != root && strings.HasPrefix(d.Name(), ".") {
			return filepath.SkipDir
		}
		return w.Add(path)
	})
}
