package config

import (
	"context"
	"errors"
	"log/slog"
	"os"

	"github.com/fsnotify/fsnotify"
)

// Watch monitors the YAML file at path and the dotenv file at envFile and
// calls onChange with the reloaded Config each time either is written. Empty
// or nonexistent paths are skipped. It runs until ctx is cancelled.
//
// If a reload fails (invalid YAML, a required key removed) the error is
// logged and onChange is not called; the previous config stays active.
func Watch(ctx context.Context, path, envFile string, onChange func(*Config)) error {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	defer watcher.Close()

	var watched []string
	for _, p := range []string{path, envFile} {
		if p == "" {
			continue
		}
		if _, err := os.Stat(p); err != nil {
			continue
		}
		if err := watcher.Add(p); err != nil {
			return err
		}
		watched = append(watched, p)
	}
	if len(watched) == 0 {
		return errors.New("config: no files to watch")
	}

	slog.Info("config: watching for changes", "paths", watched)

	for {
		select {
		case <-ctx.Done():
			return nil

		case event, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			// Editors often save via rename, so also catch Create.
			if !event.Has(fsnotify.Write) && !event.Has(fsnotify.Create) {
				continue
			}

			cfg, err := Load(path, envFile)
			if err != nil {
				slog.Error("config: reload failed, keeping previous config",
					"path", event.Name, "err", err)
				continue
			}

			slog.Info("config: reloaded", "path", event.Name)
			onChange(cfg)

			// Re-add in case an atomic save replaced the inode.
			_ = watcher.Add(event.Name)

		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			slog.Error("config: watcher error", "err", err)
		}
	}
}
