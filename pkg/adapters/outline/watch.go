package outline

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"runtime/debug"
	"strings"
	"sync"
	"time"

	"github.com/aretw0/lifecycle"
	"github.com/fsnotify/fsnotify"
)

// DefaultDebounce coalesces bursts of writes to the same document.
const DefaultDebounce = 50 * time.Millisecond

// Change reports that a document was written or removed.
type Change struct {
	Path    string
	Removed bool
}

func (c Change) String() string {
	if c.Removed {
		return "removed " + c.Path
	}
	return "changed " + c.Path
}

// Watch observes the documents below Root (and those the host has touched)
// and emits one Change per settled burst of events. The channel is closed
// when ctx is cancelled or the watcher fails.
func (h *Host) Watch(ctx context.Context, debounce time.Duration) (<-chan Change, error) {
	if debounce <= 0 {
		debounce = DefaultDebounce
	}

	h.mu.Lock()
	if h.watching {
		h.mu.Unlock()
		return nil, fmt.Errorf("watcher already started")
	}
	h.watching = true
	h.mu.Unlock()

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		h.setWatching(false)
		return nil, fmt.Errorf("failed to create watcher: %w", err)
	}
	if err := h.addWatches(watcher); err != nil {
		_ = watcher.Close()
		h.setWatching(false)
		return nil, err
	}

	out := make(chan Change)
	w := &watchLoop{
		host:      h,
		watcher:   watcher,
		out:       out,
		debouncer: newDebouncer(debounce),
	}

	lifecycle.Go(ctx, w.run, lifecycle.WithErrorHandler(func(err error) {
		h.config.Logger.Error("document watcher failed", "error", err)
	}))
	return out, nil
}

func (h *Host) setWatching(active bool) {
	h.mu.Lock()
	h.watching = active
	h.mu.Unlock()
}

// addWatches registers Root recursively plus the directories of touched files.
func (h *Host) addWatches(watcher *fsnotify.Watcher) error {
	if h.config.Root != "" {
		if err := addTree(watcher, h.config.Root); err != nil {
			return err
		}
	}

	h.mu.Lock()
	dirs := make(map[string]bool)
	for path := range h.touched {
		dirs[filepath.Dir(path)] = true
	}
	h.mu.Unlock()

	for dir := range dirs {
		if err := watcher.Add(dir); err != nil {
			h.config.Logger.Debug("cannot watch directory", "dir", dir, "error", err)
		}
	}
	return nil
}

// addTree watches dir and its non-hidden subdirectories.
func addTree(watcher *fsnotify.Watcher, dir string) error {
	return filepath.WalkDir(dir, func(path string, d os.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if !d.IsDir() {
			return nil
		}
		if path != dir && strings.HasPrefix(d.Name(), ".") {
			return filepath.SkipDir
		}
		return watcher.Add(path)
	})
}

type watchLoop struct {
	host      *Host
	watcher   *fsnotify.Watcher
	out       chan Change
	debouncer *debouncer
}

func (w *watchLoop) run(ctx context.Context) (err error) {
	logger := w.host.config.Logger
	defer func() {
		if recovered := recover(); recovered != nil {
			err = fmt.Errorf("watcher panic: %v", recovered)
			if logger.Enabled(ctx, slog.LevelDebug) {
				logger.Error("watcher panic", "error", err, "stack", string(debug.Stack()))
			} else {
				logger.Error("watcher panic", "error", err)
			}
		}
	}()
	defer close(w.out)
	defer w.host.setWatching(false)
	defer w.watcher.Close()
	// in-flight timers may still send; they must finish before out closes
	defer w.debouncer.stopAndWait(5 * time.Second)

	return w.loop(ctx)
}

func (w *watchLoop) loop(ctx context.Context) error {
	for {
		select {
		case <-ctx.Done():
			return nil

		case event, ok := <-w.watcher.Events:
			if !ok {
				if ctx.Err() != nil {
					return nil
				}
				return fmt.Errorf("watcher events channel closed")
			}
			w.handle(ctx, event)

		case werr, ok := <-w.watcher.Errors:
			if !ok {
				if ctx.Err() != nil {
					return nil
				}
				return fmt.Errorf("watcher errors channel closed")
			}
			w.host.config.Logger.Error("fsnotify error", "error", werr)
		}
	}
}

func (w *watchLoop) handle(ctx context.Context, event fsnotify.Event) {
	logger := w.host.config.Logger
	logger.Debug("event received", "name", event.Name, "op", event.Op.String())

	if event.Has(fsnotify.Create) {
		if info, err := os.Stat(event.Name); err == nil && info.IsDir() {
			if !strings.HasPrefix(filepath.Base(event.Name), ".") {
				if err := addTree(w.watcher, event.Name); err != nil {
					logger.Debug("cannot watch new directory", "dir", event.Name, "error", err)
				}
			}
			return
		}
	}

	if !w.host.Included(event.Name) {
		return
	}

	change := Change{Path: event.Name}
	switch {
	case event.Has(fsnotify.Remove), event.Has(fsnotify.Rename):
		if _, err := os.Stat(event.Name); os.IsNotExist(err) {
			change.Removed = true
			w.host.Forget(event.Name)
		}
	case event.Has(fsnotify.Write), event.Has(fsnotify.Create):
	default:
		return
	}

	w.debouncer.add(change.Path, func() {
		defer func() {
			// out is closed if the loop gave up waiting for us
			_ = recover()
		}()
		// the last event of a burst decides whether the file is gone
		if _, err := os.Stat(change.Path); os.IsNotExist(err) {
			change.Removed = true
		} else {
			change.Removed = false
		}
		select {
		case w.out <- change:
		case <-ctx.Done():
		}
	})
}

// debouncer runs the latest fn registered for a key once the key has been
// quiet for delay.
type debouncer struct {
	delay time.Duration

	mu      sync.Mutex
	timers  map[string]*time.Timer
	stopped bool
	wg      sync.WaitGroup
}

func newDebouncer(delay time.Duration) *debouncer {
	return &debouncer{
		delay:  delay,
		timers: make(map[string]*time.Timer),
	}
}

func (d *debouncer) add(key string, fn func()) {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.stopped {
		return
	}
	if t, ok := d.timers[key]; ok && t.Stop() {
		d.wg.Done()
	}

	d.wg.Add(1)
	var t *time.Timer
	t = time.AfterFunc(d.delay, func() {
		defer d.wg.Done()

		d.mu.Lock()
		if d.timers[key] == t {
			delete(d.timers, key)
		}
		d.mu.Unlock()

		fn()
	})
	d.timers[key] = t
}

// stopAndWait cancels pending timers and waits for running ones.
func (d *debouncer) stopAndWait(timeout time.Duration) {
	d.mu.Lock()
	d.stopped = true
	for key, t := range d.timers {
		if t.Stop() {
			d.wg.Done()
		}
		delete(d.timers, key)
	}
	d.mu.Unlock()

	done := make(chan struct{})
	go func() {
		d.wg.Wait()
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(timeout):
	}
}
