package watcher

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"
)

func waitForChange(t *testing.T, w *Watcher) {
	t.Helper()
	select {
	case <-w.Changes():
	case <-time.After(3 * time.Second):
		t.Fatalf("no change reported for %s", w.Path())
	}
}

func TestWatcherReportsWrites(t *testing.T) {
	for _, tc := range []struct {
		name string
		opts []Option
	}{
		{"fsnotify", nil},
		{"polling", []Option{WithPolling(), WithPollInterval(20 * time.Millisecond)}},
	} {
		t.Run(tc.name, func(t *testing.T) {
			path := filepath.Join(t.TempDir(), "canvas.json")
			if err := os.WriteFile(path, []byte(`{}`), 0o644); err != nil {
				t.Fatal(err)
			}

			opts := append([]Option{WithDebounceDuration(10 * time.Millisecond)}, tc.opts...)
			w, err := New(path, opts...)
			if err != nil {
				t.Fatalf("New: %v", err)
			}
			if err := w.Start(context.Background()); err != nil {
				t.Fatalf("Start: %v", err)
			}
			defer w.Stop()

			if tc.name == "polling" && !w.Polling() {
				t.Errorf("expected polling mode")
			}

			// Let the poller take its baseline before writing.
			time.Sleep(50 * time.Millisecond)
			if err := os.WriteFile(path, []byte(`{"changed":true}`), 0o644); err != nil {
				t.Fatal(err)
			}
			waitForChange(t, w)
		})
	}
}

func TestWatcherIgnoresSiblings(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "canvas.json")
	if err := os.WriteFile(path, []byte(`{}`), 0o644); err != nil {
		t.Fatal(err)
	}

	w, err := New(path, WithDebounceDuration(10*time.Millisecond))
	if err != nil {
		t.Fatal(err)
	}
	if err := w.Start(context.Background()); err != nil {
		t.Fatal(err)
	}
	defer w.Stop()

	if err := os.WriteFile(filepath.Join(dir, "other.json"), []byte(`{}`), 0o644); err != nil {
		t.Fatal(err)
	}
	select {
	case <-w.Changes():
		if !w.Polling() {
			t.Errorf("change reported for a sibling file")
		}
	case <-time.After(150 * time.Millisecond):
	}
}

func TestWatcherStartTwice(t *testing.T) {
	path := filepath.Join(t.TempDir(), "c.json")
	w, err := New(path, WithPolling())
	if err != nil {
		t.Fatal(err)
	}
	if err := w.Start(context.Background()); err != nil {
		t.Fatal(err)
	}
	defer w.Stop()
	if err := w.Start(context.Background()); err != ErrAlreadyStarted {
		t.Errorf("expected ErrAlreadyStarted, got %v", err)
	}
}
