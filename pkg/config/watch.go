package config

import (
	"context"
	"fmt"
	"log/slog"
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
)

// Watcher watches a configuration file and reloads it on change.
// Editors often replace files with rename+create, so the watch is on
// the parent directory and events are filtered by name. Rapid event
// bursts are debounced.
type Watcher struct {
	path     string
	environ  []string
	interval time.Duration
	logger   *slog.Logger

	mu    sync.Mutex
	timer *time.Timer
}

// WatchInterval is the debounce window for reloads.
const WatchInterval = 200 * time.Millisecond

// NewWatcher creates a watcher for the given config file. The environ
// slice is reapplied on every reload so environment settings keep
// precedence over the file.
func NewWatcher(path string, environ []string, logger *slog.Logger) *Watcher {
	if logger == nil {
		logger = slog.Default()
	}
	return &Watcher{
		path:     path,
		environ:  environ,
		interval: WatchInterval,
		logger:   logger,
	}
}

// Watch blocks until ctx is cancelled, invoking onReload with the
// freshly loaded configuration after each change. A reload that fails
// to parse or validate is logged and skipped, leaving the previous
// configuration in effect.
func (w *Watcher) Watch(ctx context.Context, onReload func(*Config)) error {
	fw, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("config: creating watcher: %w", err)
	}
	defer fw.Close()

	dir := filepath.Dir(w.path)
	if err := fw.Add(dir); err != nil {
		return fmt.Errorf("config: watching %s: %w", dir, err)
	}

	w.logger.Info("config watcher started", "path", w.path, "debounce_ms", w.interval.Milliseconds())

	for {
		select {
		case <-ctx.Done():
			w.cancelPending()
			return nil

		case event, ok := <-fw.Events:
			if !ok {
				return fmt.Errorf("config: watcher events channel closed")
			}
			if !w.relevant(event) {
				continue
			}
			w.logger.Debug("config file event", "path", event.Name, "op", event.Op.String())
			w.schedule(func() { w.reload(onReload) })

		case err, ok := <-fw.Errors:
			if !ok {
				return fmt.Errorf("config: watcher errors channel closed")
			}
			w.logger.Error("config watcher error", "error", err)
		}
	}
}

func (w *Watcher) relevant(event fsnotify.Event) bool {
	if event.Op&fsnotify.Chmod == fsnotify.Chmod {
		return false
	}
	return filepath.Clean(event.Name) == filepath.Clean(w.path)
}

func (w *Watcher) schedule(fn func()) {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.timer != nil {
		w.timer.Stop()
	}
	w.timer = time.AfterFunc(w.interval, fn)
}

func (w *Watcher) cancelPending() {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.timer != nil {
		w.timer.Stop()
		w.timer = nil
	}
}

func (w *Watcher) reload(onReload func(*Config)) {
	cfg, err := Load(w.path)
	if err != nil {
		w.logger.Error("config reload failed", "path", w.path, "error", err)
		return
	}
	ApplyEnviron(cfg, w.environ)
	if err := Validate(cfg); err != nil {
		w.logger.Error("config reload rejected", "path", w.path, "error", err)
		return
	}
	w.logger.Info("config reloaded", "path", w.path)
	onReload(cfg)
}
