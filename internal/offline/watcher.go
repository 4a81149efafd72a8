package offline

import (
	"context"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/fsnotify/fsnotify"
)

const reinstallDebounce = 500 * time.Millisecond

// Watch starts an fsnotify watcher on the asset directory and processes
// change events until ctx is cancelled. Asset changes are debounced and
// then re-fingerprint the manifest through Manager.Install: an unchanged
// fingerprint is a no-op, a new one installs a fresh cache version (which
// then waits for activation or auto-activates per the manager's
// configuration).
func Watch(ctx context.Context, mgr *Manager, assetDir string, logger *slog.Logger) error {
	w, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	defer w.Close()

	if err := addDirsRecursive(w, assetDir); err != nil {
		return err
	}

	logger.Info("offline: asset watcher started", slog.String("root", assetDir))

	// debounce collapses editor save bursts into one install.
	var debounceTimer *time.Timer
	var debounceCh <-chan time.Time

	scheduleInstall := func() {
		if debounceTimer == nil {
			debounceTimer = time.NewTimer(reinstallDebounce)
			debounceCh = debounceTimer.C
		} else {
			debounceTimer.Reset(reinstallDebounce)
		}
	}

	for {
		select {
		case <-ctx.Done():
			if debounceTimer != nil {
				debounceTimer.Stop()
			}
			logger.Info("offline: asset watcher stopped")
			return nil

		case <-debounceCh:
			bucket, installErr := mgr.Install(ctx)
			if installErr != nil {
				// The previous version keeps serving; the next change
				// (or restart) retries.
				logger.Warn("offline: reinstall failed", slog.String("error", installErr.Error()))
				continue
			}
			logger.Info("offline: reinstall complete", slog.String("bucket", bucket))

		case ev, ok := <-w.Events:
			if !ok {
				return nil
			}

			if ev.Op&fsnotify.Create != 0 {
				if info, statErr := os.Stat(ev.Name); statErr == nil && info.IsDir() {
					if addErr := addDirsRecursive(w, ev.Name); addErr != nil {
						logger.Warn("offline: watch new dir failed",
							slog.String("path", ev.Name),
							slog.String("error", addErr.Error()))
					}
				}
			}

			if ev.Op&(fsnotify.Create|fsnotify.Write|fsnotify.Remove|fsnotify.Rename) != 0 {
				logger.Debug("offline: asset changed", slog.String("path", ev.Name), slog.String("op", ev.Op.String()))
				scheduleInstall()
			}

		case watchErr, ok := <-w.Errors:
			if !ok {
				return nil
			}
			logger.Error("offline: watcher error", slog.String("error", watchErr.Error()))
		}
	}
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
