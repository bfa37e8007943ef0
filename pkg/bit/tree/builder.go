package tree

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path"
	"path/filepath"
	"slices"
	"strings"
	"sync"
	"time"

	"github.com/charlievieth/fastwalk"

	"github.com/jamesainslie/bit/pkg/bit/ignore"
	"github.com/jamesainslie/bit/pkg/bit/storage"
)

// BuildOption configures FromDirectory.
type BuildOption func(*buildConfig)

type buildConfig struct {
	ignore *ignore.Matcher
}

// WithIgnore excludes every entry whose root-relative slash path matches m.
// A matched directory is skipped together with its subtree.
func WithIgnore(m *ignore.Matcher) BuildOption {
	return func(c *buildConfig) {
		c.ignore = m
	}
}

// walked is one entry collected during the parallel walk.
type walked struct {
	entry Entry
	rel   string
}

// walkState holds entries grouped by the slash path of their parent
// directory ("." for children of the root).
type walkState struct {
	mu       sync.Mutex
	byParent map[string][]walked
}

// FromDirectory snapshots the directory hierarchy below root. Directories
// are recorded without metadata, files with their length, creation time and
// last write time. Within each directory, subdirectories come before files
// and both groups are in byte-wise name order. Symlinks are not followed;
// they are recorded as files carrying the link's own metadata.
//
// Any error during the walk aborts the build.
func FromDirectory(root string, opts ...BuildOption) (*Tree, error) {
	cfg := &buildConfig{}
	for _, opt := range opts {
		opt(cfg)
	}

	absRoot, err := filepath.Abs(root)
	if err != nil {
		return nil, fmt.Errorf("resolving %s: %w", root, err)
	}

	info, err := os.Stat(absRoot)
	if err != nil {
		return nil, fmt.Errorf("snapshot %s: %w", absRoot, err)
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("snapshot %s: %w", absRoot, ErrNotDirectory)
	}

	state := &walkState{byParent: make(map[string][]walked)}
	if err := walkDirectory(absRoot, cfg, state); err != nil {
		return nil, fmt.Errorf("snapshot %s: %w", absRoot, err)
	}

	t := New()
	if err := t.assemble(Root, ".", state.byParent); err != nil {
		return nil, fmt.Errorf("snapshot %s: %w", absRoot, err)
	}
	return t, nil
}

func walkDirectory(absRoot string, cfg *buildConfig, state *walkState) error {
	conf := fastwalk.Config{
		Follow: false,
	}

	return fastwalk.Walk(&conf, absRoot, func(p string, d fs.DirEntry, walkErr error) error {
		if walkErr != nil {
			return walkErr
		}

		rel, err := filepath.Rel(absRoot, p)
		if err != nil {
			return err
		}
		if rel == "." {
			return nil
		}
		rel = filepath.ToSlash(rel)

		isDir := d.IsDir()
		if cfg.ignore != nil && cfg.ignore.Match(rel, isDir) {
			if isDir {
				return filepath.SkipDir
			}
			return nil
		}

		w := walked{rel: rel, entry: Entry{Name: d.Name(), IsDir: isDir}}
		if !isDir {
			info, err := os.Lstat(p)
			if err != nil {
				return err
			}
			w.entry.Length = info.Size()
			w.entry.CreationTime = creationTime(p, info).UTC()
			w.entry.LastWriteTime = info.ModTime().UTC()
		}

		state.mu.Lock()
		parent := path.Dir(rel)
		state.byParent[parent] = append(state.byParent[parent], w)
		state.mu.Unlock()
		return nil
	})
}

// assemble appends the collected children of dir under id: directories
// first, then files, then recurses into the directories.
func (t *Tree) assemble(id NodeID, dir string, byParent map[string][]walked) error {
	children := byParent[dir]
	slices.SortFunc(children, func(a, b walked) int {
		if a.entry.IsDir != b.entry.IsDir {
			if a.entry.IsDir {
				return -1
			}
			return 1
		}
		return strings.Compare(a.entry.Name, b.entry.Name)
	})

	type pending struct {
		id  NodeID
		rel string
	}
	var dirs []pending

	for _, c := range children {
		child, err := t.Append(id, c.entry)
		if err != nil {
			return err
		}
		if c.entry.IsDir {
			dirs = append(dirs, pending{id: child, rel: c.rel})
		}
	}

	for _, d := range dirs {
		if err := t.assemble(d.id, d.rel, byParent); err != nil {
			return err
		}
	}
	return nil
}

// FromIndex loads the recorded snapshot at indexPath through dev. A missing
// index yields an empty tree.
func FromIndex(dev storage.Device, indexPath string) (t *Tree, err error) {
	exists, err := dev.Exists(indexPath)
	if err != nil {
		return nil, fmt.Errorf("checking index %s: %w", indexPath, err)
	}
	if !exists {
		return New(), nil
	}

	f, err := dev.Open(indexPath, storage.ModeRead)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return New(), nil
		}
		return nil, fmt.Errorf("opening index %s: %w", indexPath, err)
	}
	defer func() {
		if closeErr := f.Close(); closeErr != nil && err == nil {
			err = fmt.Errorf("closing index %s: %w", indexPath, closeErr)
		}
	}()

	t, err = Decode(f)
	if err != nil {
		return nil, fmt.Errorf("loading index %s: %w", indexPath, err)
	}
	return t, nil
}

// unixTime converts a seconds/nanoseconds pair from a stat structure.
func unixTime(sec, nsec int64) time.Time {
	return time.Unix(sec, nsec)
}
