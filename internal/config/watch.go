package config

import (
	"fmt"
	"log/slog"
	"path/filepath"

	"github.com/fsnotify/fsnotify"
)

// Watch re-loads the config whenever the file at path changes and delivers
// the result on the returned channel. Invalid edits are logged and skipped,
// keeping the previous config in effect. The returned stop function releases
// the watcher.
func Watch(path string, log *slog.Logger) (<-chan *Config, func(), error) {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, nil, fmt.Errorf("failed to create config watcher: %w", err)
	}

	// Watch the directory, not the file: editors typically write a
	// temporary file and rename it over the original, which would drop
	// a file-level watch.
	dir := filepath.Dir(path)
	if err := watcher.Add(dir); err != nil {
		watcher.Close()
		return nil, nil, fmt.Errorf("failed to watch %s: %w", dir, err)
	}

	updates := make(chan *Config, 1)

	go func() {
		defer close(updates)
		for {
			select {
			case event, ok := <-watcher.Events:
				if !ok {
					return
				}
				if event.Name != path {
					continue
				}
				if !event.Has(fsnotify.Write) && !event.Has(fsnotify.Create) {
					continue
				}
				cfg, err := LoadFromPath(path)
				if err != nil {
					log.Warn("ignoring config change", "path", path, "error", err)
					continue
				}
				// Drop a stale pending update in favor of this one.
				select {
				case <-updates:
				default:
				}
				updates <- cfg

			case err, ok := <-watcher.Errors:
				if !ok {
					return
				}
				log.Warn("config watcher error", "error", err)
			}
		}
	}()

	return updates, func() { watcher.Close() }, nil
}
