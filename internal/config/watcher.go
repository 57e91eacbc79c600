package config

import (
	"context"
	"log/slog"
	"path/filepath"
	"time"

	"github.com/fsnotify/fsnotify"
)

// Watch reloads cfg from path whenever the file changes, until ctx is
// cancelled. Editors often replace the file rather than write in
// place, so the parent directory is watched and events are coalesced.
func Watch(ctx context.Context, path string, cfg *Config) error {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	defer watcher.Close()

	abs, err := filepath.Abs(ExpandHome(path))
	if err != nil {
		return err
	}
	if err := watcher.Add(filepath.Dir(abs)); err != nil {
		return err
	}

	var pending <-chan time.Time
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case ev, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			if filepath.Clean(ev.Name) != abs {
				continue
			}
			if ev.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Rename) == 0 {
				continue
			}
			pending = time.After(250 * time.Millisecond)
		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			slog.Warn("config watcher error", "error", err)
		case <-pending:
			pending = nil
			next, err := Load(abs)
			if err != nil {
				slog.Warn("config reload failed, keeping previous", "error", err)
				continue
			}
			cfg.ReplaceFrom(next)
			slog.Info("config reloaded", "path", abs)
		}
	}
}
