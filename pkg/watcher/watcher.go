package watcher

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/Dicklesworthstone/canvas_viewer/pkg/logger"
)

// DefaultPollInterval is used when native file notifications are unavailable.
const DefaultPollInterval = 2 * time.Second

// ErrAlreadyStarted is returned by a second Start
var ErrAlreadyStarted = errors.New("watcher already started")

// Watcher reports changes to a single file. It watches the file's directory
// so that editors replacing the file by rename are still seen, and falls
// back to polling the modification time when fsnotify cannot be used.
type Watcher struct {
	path         string
	debounce     time.Duration
	pollInterval time.Duration
	forcePoll    bool

	changes   chan struct{}
	debouncer *Debouncer

	mu      sync.Mutex
	started bool
	polling bool
	cancel  context.CancelFunc
	wg      sync.WaitGroup
}

// Option configures a Watcher
type Option func(*Watcher)

// WithDebounceDuration sets the quiet period before a change is reported
func WithDebounceDuration(d time.Duration) Option {
	return func(w *Watcher) {
		w.debounce = d
	}
}

// WithPollInterval sets the fallback polling interval
func WithPollInterval(d time.Duration) Option {
	return func(w *Watcher) {
		if d > 0 {
			w.pollInterval = d
		}
	}
}

// WithPolling forces polling even when fsnotify is available
func WithPolling() Option {
	return func(w *Watcher) {
		w.forcePoll = true
	}
}

// New creates a Watcher for path. Nothing is watched until Start.
func New(path string, opts ...Option) (*Watcher, error) {
	abs, err := filepath.Abs(path)
	if err != nil {
		return nil, fmt.Errorf("resolve watch path: %w", err)
	}
	if dir, err := filepath.EvalSymlinks(filepath.Dir(abs)); err == nil {
		abs = filepath.Join(dir, filepath.Base(abs))
	}
	w := &Watcher{
		path:         abs,
		debounce:     DefaultDebounceDuration,
		pollInterval: DefaultPollInterval,
		changes:      make(chan struct{}, 1),
	}
	for _, opt := range opts {
		opt(w)
	}
	w.debouncer = NewDebouncer(w.debounce)
	return w, nil
}

// Path returns the absolute path being watched
func (w *Watcher) Path() string {
	return w.path
}

// Changes receives one value per debounced burst of changes. A change not
// yet received absorbs later ones.
func (w *Watcher) Changes() <-chan struct{} {
	return w.changes
}

// Polling reports whether the watcher fell back to polling
func (w *Watcher) Polling() bool {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.polling
}

// Start begins watching until ctx ends or Stop is called
func (w *Watcher) Start(ctx context.Context) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.started {
		return ErrAlreadyStarted
	}

	ctx, cancel := context.WithCancel(ctx)

	var fsw *fsnotify.Watcher
	if !w.forcePoll {
		var err error
		fsw, err = fsnotify.NewWatcher()
		if err == nil {
			if addErr := fsw.Add(filepath.Dir(w.path)); addErr != nil {
				fsw.Close()
				fsw, err = nil, addErr
			}
		}
		if err != nil {
			logger.Warn("File notifications unavailable, polling instead", "path", w.path, "error", err)
		}
	}

	w.started = true
	w.cancel = cancel
	w.wg.Add(1)
	if fsw != nil {
		go w.watchLoop(ctx, fsw)
	} else {
		w.polling = true
		go w.pollLoop(ctx)
	}
	return nil
}

// Stop ends watching and waits for the background goroutine
func (w *Watcher) Stop() {
	w.mu.Lock()
	cancel := w.cancel
	w.cancel = nil
	w.mu.Unlock()

	if cancel != nil {
		cancel()
	}
	w.debouncer.Cancel()
	w.wg.Wait()
}

func (w *Watcher) notify() {
	w.debouncer.Trigger(func() {
		select {
		case w.changes <- struct{}{}:
		default:
		}
	})
}

func (w *Watcher) watchLoop(ctx context.Context, fsw *fsnotify.Watcher) {
	defer w.wg.Done()
	defer fsw.Close()

	for {
		select {
		case <-ctx.Done():
			return
		case event, ok := <-fsw.Events:
			if !ok {
				return
			}
			if filepath.Clean(event.Name) != w.path {
				continue
			}
			if event.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Rename|fsnotify.Remove) != 0 {
				logger.Debug("Watched file changed", "path", w.path, "op", event.Op.String())
				w.notify()
			}
		case err, ok := <-fsw.Errors:
			if !ok {
				return
			}
			logger.Error("File watcher error", "path", w.path, "error", err)
		}
	}
}

func (w *Watcher) pollLoop(ctx context.Context) {
	defer w.wg.Done()

	last := stat(w.path)
	ticker := time.NewTicker(w.pollInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			current := stat(w.path)
			if current != last {
				last = current
				w.notify()
			}
		}
	}
}

type stamp struct {
	mod  int64
	size int64
}

func stat(path string) stamp {
	info, err := os.Stat(path)
	if err != nil {
		return stamp{}
	}
	return stamp{mod: info.ModTime().UnixNano(), size: info.Size()}
}
