package config

import (
	"context"
	"fmt"
	"log/slog"
	"path/filepath"
	"sync"
	"sync/atomic"
	"time"

	"github.com/fsnotify/fsnotify"
)

const defaultDebounce = 200 * time.Millisecond

// Reloader keeps the current config and reloads it when the file changes.
type Reloader struct {
	path      string
	current   atomic.Pointer[Config]
	mu        sync.Mutex
	listeners []func(*Config)
	debounce  time.Duration
}

// NewReloader creates a Reloader with the given initial config.
func NewReloader(path string, initial *Config) *Reloader {
	r := &Reloader{path: path, debounce: defaultDebounce}
	r.current.Store(initial)
	return r
}

// Current returns the current config.
func (r *Reloader) Current() *Config {
	return r.current.Load()
}

// OnReload registers a callback invoked after a successful reload.
func (r *Reloader) OnReload(fn func(*Config)) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.listeners = append(r.listeners, fn)
}

// Reload re-reads the file and notifies listeners. The current config is
// kept when the file does not parse.
func (r *Reloader) Reload() error {
	r.mu.Lock()
	defer r.mu.Unlock()

	cfg, err := Load(r.path)
	if err != nil {
		return fmt.Errorf("reload config: %w", err)
	}

	r.current.Store(cfg)
	slog.Info("config reloaded", "path", r.path)

	for _, fn := range r.listeners {
		fn(cfg)
	}
	return nil
}

// Watch reloads the config whenever its file is written until ctx is done.
// The parent directory is watched so that editors replacing the file by
// rename are noticed.
func (r *Reloader) Watch(ctx context.Context) error {
	if r.path == "" {
		<-ctx.Done()
		return nil
	}

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("create config watcher: %w", err)
	}
	defer watcher.Close()

	if err := watcher.Add(filepath.Dir(r.path)); err != nil {
		return fmt.Errorf("watch %s: %w", r.path, err)
	}

	target := filepath.Clean(r.path)
	var pending <-chan time.Time
	for {
		select {
		case <-ctx.Done():
			return nil

		case event, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			if filepath.Clean(event.Name) != target {
				continue
			}
			if !event.Has(fsnotify.Write) && !event.Has(fsnotify.Create) {
				continue
			}
			// Editors tend to write in several steps.
			pending = time.After(r.debounce)

		case <-pending:
			pending = nil
			if err := r.Reload(); err != nil {
				slog.Warn("config reload failed", "error", err)
			}

		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			slog.Warn("config watcher error", "error", err)
		}
	}
}
