package config

import (
	"context"
	"os"
	"sync"
	"testing"
	"time"
)

func TestReloadNotifiesListeners(t *testing.T) {
	path := writeConfig(t, "companion:\n  hands_free: false\n")
	initial, err := Load(path)
	if err != nil {
		t.Fatalf("Load() error: %v", err)
	}

	reloader := NewReloader(path, initial)
	var got *Config
	reloader.OnReload(func(cfg *Config) { got = cfg })

	if err := os.WriteFile(path, []byte("companion:\n  hands_free: true\n"), 0o600); err != nil {
		t.Fatalf("failed to rewrite config: %v", err)
	}
	if err := reloader.Reload(); err != nil {
		t.Fatalf("Reload() error: %v", err)
	}

	if got == nil || !got.Companion.HandsFree {
		t.Fatalf("expected listener to see hands_free enabled, got %+v", got)
	}
	if reloader.Current() != got {
		t.Fatalf("expected current config to be swapped")
	}
}

func TestReloadKeepsCurrentOnError(t *testing.T) {
	path := writeConfig(t, "log_level: info\n")
	initial, err := Load(path)
	if err != nil {
		t.Fatalf("Load() error: %v", err)
	}

	reloader := NewReloader(path, initial)
	called := false
	reloader.OnReload(func(*Config) { called = true })

	if err := os.WriteFile(path, []byte("log_level: shouting\n"), 0o600); err != nil {
		t.Fatalf("failed to rewrite config: %v", err)
	}
	if err := reloader.Reload(); err == nil {
		t.Fatalf("expected reload of an invalid file to fail")
	}
	if called {
		t.Fatalf("expected listeners not to be notified")
	}
	if reloader.Current() != initial {
		t.Fatalf("expected the initial config to be kept")
	}
}

func TestWatchReloadsOnWrite(t *testing.T) {
	path := writeConfig(t, "companion:\n  playback: true\n")
	initial, err := Load(path)
	if err != nil {
		t.Fatalf("Load() error: %v", err)
	}

	reloader := NewReloader(path, initial)
	reloader.debounce = 10 * time.Millisecond

	var mu sync.Mutex
	playback := true
	reloader.OnReload(func(cfg *Config) {
		mu.Lock()
		defer mu.Unlock()
		playback = cfg.Companion.Playback
	})

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- reloader.Watch(ctx) }()
	defer func() {
		cancel()
		if err := <-done; err != nil {
			t.Errorf("Watch() error: %v", err)
		}
	}()

	deadline := time.Now().Add(3 * time.Second)
	for time.Now().Before(deadline) {
		// The watcher may not be registered yet, so keep writing.
		if err := os.WriteFile(path, []byte("companion:\n  playback: false\n"), 0o600); err != nil {
			t.Fatalf("failed to rewrite config: %v", err)
		}
		time.Sleep(50 * time.Millisecond)

		mu.Lock()
		disabled := !playback
		mu.Unlock()
		if disabled {
			return
		}
	}
	t.Fatalf("timed out waiting for the watcher to reload")
}
