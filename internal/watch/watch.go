// Package watch reports changes to the files a shader build read.
//
// Directories are watched rather than the files themselves so that
// editors which save by renaming a temporary file over the original keep
// triggering events.
package watch

import (
	"fmt"
	"path/filepath"
	"sort"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
	"go.uber.org/multierr"
)

// DefaultDebounce is how long the watcher waits for a burst of events to settle.
const DefaultDebounce = 100 * time.Millisecond

// Event is a settled batch of changes.
type Event struct {
	// Files are the watched files that changed, sorted.
	Files []string
}

// Watcher watches a set of files for changes.
type Watcher struct {
	mu sync.RWMutex

	fsWatcher *fsnotify.Watcher

	// files is the set of watched files.
	files map[string]bool

	// dirs counts the watched files in each watched directory.
	dirs map[string]int

	debounce time.Duration

	// Events receives one Event per settled burst of changes.
	Events chan Event

	// Errors receives watcher errors.
	Errors chan error

	done chan struct{}
	wg   sync.WaitGroup
}

// Option configures a Watcher.
type Option func(*Watcher)

// WithDebounce sets the settle delay. Zero reports every change at once.
func WithDebounce(d time.Duration) Option {
	return func(w *Watcher) { w.debounce = d }
}

// New creates a watcher with nothing watched.
func New(opts ...Option) (*Watcher, error) {
	fsWatcher, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("creating watcher: %w", err)
	}

	w := &Watcher{
		fsWatcher: fsWatcher,
		files:     make(map[string]bool),
		dirs:      make(map[string]int),
		debounce:  DefaultDebounce,
		Events:    make(chan Event, 16),
		Errors:    make(chan error, 10),
		done:      make(chan struct{}),
	}
	for _, opt := range opts {
		opt(w)
	}

	w.wg.Add(1)
	go w.run()

	return w, nil
}

// Set replaces the watched set with files. Call it after every build
// with the build's inputs so that added and dropped includes are tracked.
// Files already watched stay watched without interruption. Files whose
// directory cannot be watched are skipped and reported together.
func (w *Watcher) Set(files []string) error {
	next := make(map[string]bool, len(files))
	for _, f := range files {
		abs, err := filepath.Abs(f)
		if err != nil {
			return fmt.Errorf("getting absolute path: %w", err)
		}
		next[abs] = true
	}

	w.mu.Lock()
	defer w.mu.Unlock()

	var errs error
	for f := range next {
		if w.files[f] {
			continue
		}
		dir := filepath.Dir(f)
		if w.dirs[dir] == 0 {
			if err := w.fsWatcher.Add(dir); err != nil {
				errs = multierr.Append(errs, fmt.Errorf("watching %s: %w", dir, err))
				continue
			}
		}
		w.dirs[dir]++
		w.files[f] = true
	}

	for f := range w.files {
		if next[f] {
			continue
		}
		delete(w.files, f)
		dir := filepath.Dir(f)
		w.dirs[dir]--
		if w.dirs[dir] == 0 {
			delete(w.dirs, dir)
			_ = w.fsWatcher.Remove(dir)
		}
	}

	return errs
}

// WatchedFiles returns the watched files, sorted.
func (w *Watcher) WatchedFiles() []string {
	w.mu.RLock()
	defer w.mu.RUnlock()

	files := make([]string, 0, len(w.files))
	for f := range w.files {
		files = append(files, f)
	}
	sort.Strings(files)
	return files
}

// Close stops the watcher and releases resources.
func (w *Watcher) Close() error {
	close(w.done)
	err := w.fsWatcher.Close()
	w.wg.Wait()
	return err
}

func (w *Watcher) run() {
	defer w.wg.Done()

	pending := make(map[string]bool)
	var timer *time.Timer
	var fire <-chan time.Time

	flush := func() {
		if len(pending) == 0 {
			return
		}
		ev := Event{Files: make([]string, 0, len(pending))}
		for f := range pending {
			ev.Files = append(ev.Files, f)
		}
		sort.Strings(ev.Files)
		clear(pending)

		select {
		case w.Events <- ev:
		case <-w.done:
		}
	}

	for {
		select {
		case <-w.done:
			if timer != nil {
				timer.Stop()
			}
			return

		case event, ok := <-w.fsWatcher.Events:
			if !ok {
				return
			}
			if !w.relevant(event) {
				continue
			}
			abs, _ := filepath.Abs(event.Name)
			pending[abs] = true

			if w.debounce <= 0 {
				flush()
				continue
			}
			if timer == nil {
				timer = time.NewTimer(w.debounce)
			} else {
				timer.Reset(w.debounce)
			}
			fire = timer.C

		case <-fire:
			fire = nil
			flush()

		case err, ok := <-w.fsWatcher.Errors:
			if !ok {
				return
			}
			select {
			case w.Errors <- err:
			default:
			}
		}
	}
}

// relevant reports whether event touches a watched file in a way that
// can change a build.
func (w *Watcher) relevant(event fsnotify.Event) bool {
	if event.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Remove|fsnotify.Rename) == 0 {
		return false
	}
	abs, err := filepath.Abs(event.Name)
	if err != nil {
		return false
	}

	w.mu.RLock()
	defer w.mu.RUnlock()
	return w.files[abs]
}
