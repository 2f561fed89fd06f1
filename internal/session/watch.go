package session

import (
	"context"
	"log/slog"
	"path/filepath"
	"time"

	"github.com/fsnotify/fsnotify"
)

// debounce is the time to wait for further writes before reloading. Editors
// tend to write files in several steps.
const debounce = 100 * time.Millisecond

// Watch reloads the description at path whenever it changes and invokes
// onChange with it. Invalid descriptions are logged and skipped. Blocks until
// the context is canceled.
func Watch(ctx context.Context, path string, onChange func(*Description)) error {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	defer watcher.Close()

	// Watch the directory rather than the file, as editors commonly replace
	// files by renaming
	path = filepath.Clean(path)
	if err := watcher.Add(filepath.Dir(path)); err != nil {
		return err
	}

	timer := time.NewTimer(debounce)
	timer.Stop()
	defer timer.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil
		case event, ok := <-watcher.Events:
			if !ok {
				return nil
			}

			if filepath.Clean(event.Name) != path {
				continue
			}

			if event.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Rename) == 0 {
				continue
			}

			timer.Reset(debounce)
		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			slog.Warn("Failed to watch session", slog.Any("error", err))
		case <-timer.C:
			description, err := Load(path)
			if err != nil {
				slog.Warn("Failed to reload session", slog.String("path", path), slog.Any("error", err))
				continue
			}

			slog.Info("Reloaded session", slog.String("path", path))
			onChange(description)
		}
	}
}
