package watcher

import (
	"context"
	"os"
	"path/filepath"
	"slices"
	"sync"
	"testing"
	"time"

	"github.com/jamesainslie/bit/pkg/bit/ignore"
)

// collector records delivered batches.
type collector struct {
	mu      sync.Mutex
	batches [][]string
}

func (c *collector) add(paths []string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.batches = append(c.batches, paths)
}

func (c *collector) seen(path string) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	for _, b := range c.batches {
		if slices.Contains(b, path) {
			return true
		}
	}
	return false
}

func (c *collector) waitFor(t *testing.T, path string) {
	t.Helper()
	deadline := time.Now().Add(3 * time.Second)
	for time.Now().Before(deadline) {
		if c.seen(path) {
			return
		}
		time.Sleep(20 * time.Millisecond)
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	t.Fatalf("no batch contained %q, got %v", path, c.batches)
}

func newWatcher(t *testing.T, root string) *Watcher {
	t.Helper()
	m, err := ignore.New("/.bit/")
	if err != nil {
		t.Fatalf("ignore.New() error = %v", err)
	}
	w, err := New(root, WithIgnore(m), WithDebounce(30*time.Millisecond))
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	t.Cleanup(func() { _ = w.Close() })
	if err := w.Watch(); err != nil {
		t.Fatalf("Watch() error = %v", err)
	}
	return w
}

func start(t *testing.T, w *Watcher) *collector {
	t.Helper()
	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)

	c := &collector{}
	go w.Run(ctx, c.add)
	time.Sleep(50 * time.Millisecond)
	return c
}

func mkdir(t *testing.T, p string) {
	t.Helper()
	if err := os.MkdirAll(p, 0o755); err != nil {
		t.Fatalf("failed to create %s: %v", p, err)
	}
}

func write(t *testing.T, p, content string) {
	t.Helper()
	if err := os.WriteFile(p, []byte(content), 0o644); err != nil {
		t.Fatalf("failed to write %s: %v", p, err)
	}
}

func TestWatchSkipsIgnoredDirectories(t *testing.T) {
	root := t.TempDir()
	mkdir(t, filepath.Join(root, "src", "deep"))
	mkdir(t, filepath.Join(root, ".bit", "data"))

	w := newWatcher(t, root)

	want := []string{root, filepath.Join(root, "src"), filepath.Join(root, "src", "deep")}
	if got := w.Watched(); !slices.Equal(got, want) {
		t.Errorf("Watched() = %v, want %v", got, want)
	}
}

func TestWatchErrors(t *testing.T) {
	w, err := New(filepath.Join(t.TempDir(), "missing"))
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	defer w.Close()

	if err := w.Watch(); err == nil {
		t.Error("Watch() should fail for a missing root")
	}

	file := filepath.Join(t.TempDir(), "file")
	write(t, file, "x")
	w2, err := New(file)
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	defer w2.Close()

	if err := w2.Watch(); err == nil {
		t.Error("Watch() should fail for a file root")
	}
}

func TestRunDeliversRelativePaths(t *testing.T) {
	root := t.TempDir()
	w := newWatcher(t, root)
	c := start(t, w)

	write(t, filepath.Join(root, "a.txt"), "hello")
	c.waitFor(t, "a.txt")
}

func TestRunWatchesNewDirectories(t *testing.T) {
	root := t.TempDir()
	w := newWatcher(t, root)
	c := start(t, w)

	mkdir(t, filepath.Join(root, "fresh"))
	c.waitFor(t, "fresh")

	write(t, filepath.Join(root, "fresh", "inner.txt"), "x")
	c.waitFor(t, "fresh/inner.txt")
}

func TestRunIgnoresBitFolder(t *testing.T) {
	root := t.TempDir()
	mkdir(t, filepath.Join(root, ".bit"))
	w := newWatcher(t, root)
	c := start(t, w)

	write(t, filepath.Join(root, ".bit", "index"), "BIDX")
	write(t, filepath.Join(root, "marker"), "m")
	c.waitFor(t, "marker")

	if c.seen(".bit") || c.seen(".bit/index") {
		t.Errorf("ignored paths were delivered: %v", c.batches)
	}
}

func TestRunDebouncesBursts(t *testing.T) {
	root := t.TempDir()
	w := newWatcher(t, root)
	c := start(t, w)

	for _, name := range []string{"one", "two", "three"} {
		write(t, filepath.Join(root, name), name)
	}
	c.waitFor(t, "three")

	c.mu.Lock()
	defer c.mu.Unlock()
	total := 0
	for _, b := range c.batches {
		total += len(b)
		for i := 1; i < len(b); i++ {
			if b[i-1] >= b[i] {
				t.Errorf("batch not sorted and unique: %v", b)
			}
		}
	}
	if total < 3 {
		t.Errorf("expected three paths in total, got %v", c.batches)
	}
}

func TestRunRemoveDropsWatches(t *testing.T) {
	root := t.TempDir()
	sub := filepath.Join(root, "sub")
	mkdir(t, filepath.Join(sub, "deeper"))
	w := newWatcher(t, root)
	c := start(t, w)

	if err := os.RemoveAll(sub); err != nil {
		t.Fatalf("failed to remove: %v", err)
	}
	c.waitFor(t, "sub")

	if got := w.Watched(); !slices.Equal(got, []string{root}) {
		t.Errorf("Watched() = %v, want only the root", got)
	}
}

func TestRunContextCancellation(t *testing.T) {
	w := newWatcher(t, t.TempDir())

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		w.Run(ctx, nil)
		close(done)
	}()

	time.Sleep(50 * time.Millisecond)
	cancel()

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Error("Run() did not return after context cancellation")
	}
}

func TestCloseIsIdempotent(t *testing.T) {
	w := newWatcher(t, t.TempDir())
	if err := w.Close(); err != nil {
		t.Errorf("Close() error = %v", err)
	}
	if err := w.Close(); err != nil {
		t.Errorf("second Close() error = %v", err)
	}
	if len(w.Watched()) != 0 {
		t.Error("Close() should clear watches")
	}
}
