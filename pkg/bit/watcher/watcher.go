// Package watcher reports batches of changed paths below a repository root,
// for re-running status while files change.
package watcher

import (
	"context"
	"io/fs"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/jamesainslie/bit/pkg/bit/ignore"
	"github.com/jamesainslie/bit/pkg/bit/logging"
)

// DefaultDebounce is the quiet period used when none is configured.
const DefaultDebounce = 250 * time.Millisecond

// Option configures a Watcher.
type Option func(*Watcher)

// WithIgnore drops events for paths matched by m. Matched directories are
// not watched.
func WithIgnore(m *ignore.Matcher) Option {
	return func(w *Watcher) {
		w.ignore = m
	}
}

// WithDebounce sets how long the watcher waits for events to stop before
// delivering a batch.
func WithDebounce(d time.Duration) Option {
	return func(w *Watcher) {
		if d > 0 {
			w.debounce = d
		}
	}
}

// Watcher watches a directory tree recursively.
type Watcher struct {
	root     string
	ignore   *ignore.Matcher
	debounce time.Duration
	watcher  *fsnotify.Watcher
	paths    map[string]bool
	mu       sync.RWMutex
	closed   bool
}

// New creates a Watcher for root. Call Watch to register the directories.
func New(root string, opts ...Option) (*Watcher, error) {
	absRoot, err := filepath.Abs(root)
	if err != nil {
		return nil, err
	}

	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}

	w := &Watcher{
		root:     absRoot,
		debounce: DefaultDebounce,
		watcher:  fsw,
		paths:    make(map[string]bool),
	}
	for _, opt := range opts {
		opt(w)
	}
	return w, nil
}

// Watch adds watches to the root and every directory below it that is not
// ignored. Symlinks are not followed.
func (w *Watcher) Watch() error {
	info, err := os.Lstat(w.root)
	if err != nil {
		return err
	}
	if !info.IsDir() {
		return &fs.PathError{Op: "watch", Path: w.root, Err: fs.ErrInvalid}
	}
	return w.addTree(w.root)
}

func (w *Watcher) addTree(dir string) error {
	return filepath.WalkDir(dir, func(path string, d fs.DirEntry, walkErr error) error {
		if walkErr != nil {
			if path == dir {
				return walkErr
			}
			return nil //nolint:nilerr // entries vanishing mid-walk are expected
		}
		if !d.IsDir() {
			return nil
		}
		if rel, ok := w.rel(path); ok && rel != "." && w.ignored(rel, true) {
			return filepath.SkipDir
		}
		return w.addWatch(path)
	})
}

func (w *Watcher) addWatch(path string) error {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.closed || w.paths[path] {
		return nil
	}

	if err := w.watcher.Add(path); err != nil {
		logging.Get("watcher").Error("failed to add watch", "path", path, "error", err)
		return err
	}
	w.paths[path] = true
	logging.Get("watcher").Trace("watching", "path", path)
	return nil
}

// Watched returns the watched directories in sorted order.
func (w *Watcher) Watched() []string {
	w.mu.RLock()
	defer w.mu.RUnlock()

	out := make([]string, 0, len(w.paths))
	for p := range w.paths {
		out = append(out, p)
	}
	slices.Sort(out)
	return out
}

// Run delivers batches of root-relative slash paths to onChange once events
// have stopped arriving for the debounce period. It blocks until ctx is
// done or the watcher is closed.
func (w *Watcher) Run(ctx context.Context, onChange func(paths []string)) {
	pending := make(map[string]struct{})
	var timer *time.Timer
	var fire <-chan time.Time

	defer func() {
		if timer != nil {
			timer.Stop()
		}
	}()

	for {
		select {
		case <-ctx.Done():
			return

		case event, ok := <-w.watcher.Events:
			if !ok {
				return
			}
			rel, keep := w.handleEvent(event)
			if !keep {
				continue
			}
			pending[rel] = struct{}{}
			if timer == nil {
				timer = time.NewTimer(w.debounce)
			} else {
				timer.Reset(w.debounce)
			}
			fire = timer.C

		case <-fire:
			fire = nil
			batch := make([]string, 0, len(pending))
			for p := range pending {
				batch = append(batch, p)
			}
			clear(pending)
			slices.Sort(batch)
			logging.Get("watcher").Debug("changes settled", "paths", len(batch))
			if onChange != nil {
				onChange(batch)
			}

		case err, ok := <-w.watcher.Errors:
			if !ok {
				return
			}
			logging.Get("watcher").Error("watcher error", "error", err)
		}
	}
}

// handleEvent keeps the watch set in sync and reports whether the event
// belongs in the next batch.
func (w *Watcher) handleEvent(event fsnotify.Event) (string, bool) {
	rel, ok := w.rel(event.Name)
	if !ok || rel == "." {
		return "", false
	}

	switch {
	case event.Op&fsnotify.Create != 0:
		info, err := os.Lstat(event.Name)
		if err != nil {
			// Gone again before we looked.
			return rel, !w.ignored(rel, false)
		}
		isDir := info.IsDir()
		if w.ignored(rel, isDir) {
			return "", false
		}
		if isDir {
			_ = w.addTree(event.Name)
		}
		return rel, true

	case event.Op&(fsnotify.Remove|fsnotify.Rename) != 0:
		wasDir := w.removeWatches(event.Name)
		return rel, !w.ignored(rel, wasDir)

	case event.Op&(fsnotify.Write|fsnotify.Chmod) != 0:
		return rel, !w.ignored(rel, false)
	}
	return "", false
}

// removeWatches drops path and everything below it from the watch set and
// reports whether path itself was watched.
func (w *Watcher) removeWatches(path string) bool {
	w.mu.Lock()
	defer w.mu.Unlock()

	was := w.paths[path]
	for p := range w.paths {
		if p == path || isSubPath(p, path) {
			_ = w.watcher.Remove(p)
			delete(w.paths, p)
		}
	}
	return was
}

// ignored reports whether rel or one of its parent directories is ignored.
func (w *Watcher) ignored(rel string, isDir bool) bool {
	if w.ignore == nil {
		return false
	}
	for i := 0; i < len(rel); i++ {
		if rel[i] == '/' && w.ignore.Match(rel[:i], true) {
			return true
		}
	}
	return w.ignore.Match(rel, isDir)
}

func (w *Watcher) rel(path string) (string, bool) {
	rel, err := filepath.Rel(w.root, path)
	if err != nil || rel == ".." || strings.HasPrefix(rel, ".."+string(filepath.Separator)) {
		return "", false
	}
	return filepath.ToSlash(rel), true
}

// Close closes the watcher and releases resources.
func (w *Watcher) Close() error {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.closed {
		return nil
	}

	w.closed = true
	w.paths = make(map[string]bool)
	return w.watcher.Close()
}

// isSubPath checks if path is under parent directory.
func isSubPath(path, parent string) bool {
	return len(path) > len(parent) && path[:len(parent)+1] == parent+string(filepath.Separator)
}
