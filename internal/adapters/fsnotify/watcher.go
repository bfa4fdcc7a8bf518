// Package fsnotify implements the ports.Watcher interface using github.com/fsnotify/fsnotify.
// It watches the parent directory of every requested file (editors often save by
// writing a temp file and renaming it over the original, which a watch on the file
// itself would lose), filters events down to the requested files, and debounces
// bursts so one save produces one callback.
package fsnotify

import (
	"fmt"
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
)

// DefaultDebounce is how long a file must stay quiet before onChange fires.
const DefaultDebounce = 100 * time.Millisecond

// Watcher implements ports.Watcher using fsnotify.
type Watcher struct {
	fw       *fsnotify.Watcher
	debounce time.Duration
	done     chan struct{}
	loop     sync.WaitGroup
	inflight sync.WaitGroup

	mu      sync.Mutex
	stopped bool
	timers  map[string]*time.Timer
}

// NewWatcher creates a new file system watcher with the default debounce.
func NewWatcher() (*Watcher, error) {
	return NewWatcherWithDebounce(DefaultDebounce)
}

// NewWatcherWithDebounce creates a watcher that waits d after the last event
// on a file before reporting it.
func NewWatcherWithDebounce(d time.Duration) (*Watcher, error) {
	fw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}
	return &Watcher{
		fw:       fw,
		debounce: d,
		done:     make(chan struct{}),
		timers:   make(map[string]*time.Timer),
	}, nil
}

// WatchFiles starts monitoring paths. onChange is called with the absolute
// path of each changed file. The files need not exist yet, but their
// directories must. onChange must not call Stop.
func (w *Watcher) WatchFiles(paths []string, onChange func(filePath string)) error {
	if len(paths) == 0 {
		return fmt.Errorf("no files to watch")
	}

	wanted := make(map[string]bool, len(paths))
	dirs := make(map[string]bool)
	for _, p := range paths {
		abs, err := filepath.Abs(p)
		if err != nil {
			return err
		}
		wanted[abs] = true
		dirs[filepath.Dir(abs)] = true
	}
	for dir := range dirs {
		if err := w.fw.Add(dir); err != nil {
			return fmt.Errorf("watch %s: %w", dir, err)
		}
	}

	w.loop.Add(1)
	go func() {
		defer w.loop.Done()
		for {
			select {
			case event, ok := <-w.fw.Events:
				if !ok {
					return
				}
				path := filepath.Clean(event.Name)
				if !wanted[path] {
					continue
				}
				if event.Has(fsnotify.Write) || event.Has(fsnotify.Create) ||
					event.Has(fsnotify.Remove) || event.Has(fsnotify.Rename) {
					w.schedule(path, onChange)
				}

			case _, ok := <-w.fw.Errors:
				if !ok {
					return
				}
				// Errors are swallowed; fsnotify recovers on its own

			case <-w.done:
				return
			}
		}
	}()

	return nil
}

// schedule (re)starts the quiet-period timer for path.
func (w *Watcher) schedule(path string, onChange func(string)) {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.stopped {
		return
	}
	if t, ok := w.timers[path]; ok {
		t.Stop()
	}
	w.timers[path] = time.AfterFunc(w.debounce, func() {
		w.mu.Lock()
		if w.stopped {
			w.mu.Unlock()
			return
		}
		delete(w.timers, path)
		w.inflight.Add(1)
		w.mu.Unlock()

		defer w.inflight.Done()
		onChange(path)
	})
}

// Stop ends monitoring and releases all resources. Pending debounced
// callbacks are cancelled; callbacks already running are waited for.
// Safe to call multiple times.
func (w *Watcher) Stop() error {
	w.mu.Lock()
	if w.stopped {
		w.mu.Unlock()
		return nil
	}
	w.stopped = true
	for path, t := range w.timers {
		t.Stop()
		delete(w.timers, path)
	}
	w.mu.Unlock()

	close(w.done)
	err := w.fw.Close()
	w.loop.Wait()
	w.inflight.Wait()
	return err
}
