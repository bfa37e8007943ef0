// Package repository ties the tree engine to a working directory: it locates
// and initializes the .bit folder, compares the disk against the recorded
// index and records new snapshots.
package repository

import (
	"errors"
	"fmt"
	"path/filepath"
	"strings"

	"github.com/jamesainslie/bit/pkg/bit/ignore"
	"github.com/jamesainslie/bit/pkg/bit/logging"
	"github.com/jamesainslie/bit/pkg/bit/storage"
	"github.com/jamesainslie/bit/pkg/bit/tree"
)

// Names inside a repository.
const (
	FolderName     = ".bit"
	IndexName      = "index"
	ConfigName     = "config"
	DataFolderName = "data"
)

// folderPattern keeps the .bit folder out of every physical snapshot.
const folderPattern = "/" + FolderName + "/"

var (
	// ErrNotFound is returned when no .bit folder exists at or above the
	// starting directory.
	ErrNotFound = errors.New("not a bit repository")

	// ErrAlreadyExists is returned by Init inside an existing repository
	// when Force is not set.
	ErrAlreadyExists = errors.New("cannot initialize inside of an existing repository")

	// ErrNestedRepository is returned by a forced Init whose enclosing
	// repository lives higher up in the directory hierarchy.
	ErrNestedRepository = errors.New("cannot forcefully overwrite a repository that is higher up in the directory hierarchy")

	// ErrPathNotFound is returned by Lookup for paths absent from the index.
	ErrPathNotFound = errors.New("path not found in index")
)

// Repository is an opened working directory with a .bit folder.
type Repository struct {
	dev      storage.Device
	root     string
	settings Settings
	opts     Options
}

// Options adds user-level preferences on top of the repository settings.
type Options struct {
	// Ignore patterns are applied in addition to the repository's own.
	Ignore []string

	// IgnoreCreationTime skips creation time comparison even when the
	// repository does not.
	IgnoreCreationTime bool
}

// InitOptions configures Init.
type InitOptions struct {
	// Force replaces a .bit folder in the target directory itself.
	Force bool

	// Settings seeds .bit/config. A zero ID is replaced by a fresh one.
	Settings Settings
}

// Find returns the directory holding the nearest .bit folder at or above
// start.
func Find(dev storage.Device, start string) (string, error) {
	dir, err := filepath.Abs(start)
	if err != nil {
		return "", fmt.Errorf("resolving %s: %w", start, err)
	}

	for {
		ok, err := dev.IsDir(filepath.Join(dir, FolderName))
		if err != nil {
			return "", err
		}
		if ok {
			return dir, nil
		}

		parent := filepath.Dir(dir)
		if parent == dir {
			return "", fmt.Errorf("%w (or any of the parent directories): %s", ErrNotFound, start)
		}
		dir = parent
	}
}

// Init creates the .bit folder in dir, its config file and its data folder.
func Init(dev storage.Device, dir string, opts InitOptions) (*Repository, error) {
	logger := logging.Get("repository")

	root, err := filepath.Abs(dir)
	if err != nil {
		return nil, fmt.Errorf("resolving %s: %w", dir, err)
	}

	existing, err := Find(dev, root)
	switch {
	case err == nil:
		previous := filepath.Join(existing, FolderName)
		if !opts.Force {
			return nil, fmt.Errorf("%w; previous bit folder: %s", ErrAlreadyExists, previous)
		}
		if !strings.EqualFold(existing, root) {
			return nil, fmt.Errorf("%w; previous bit folder: %s", ErrNestedRepository, previous)
		}
		logger.Trace("previous .bit repository found, overwriting due to --force", "path", previous)
		if err := dev.DeleteFolder(previous); err != nil {
			return nil, err
		}
	case !errors.Is(err, ErrNotFound):
		return nil, err
	}

	bitPath := filepath.Join(root, FolderName)
	logger.Trace("initializing", "path", bitPath)

	if err := dev.CreateFolder(bitPath, true); err != nil {
		return nil, err
	}

	settings := opts.Settings
	if settings.ID == "" {
		fresh := NewSettings()
		settings.ID = fresh.ID
		if settings.Created.IsZero() {
			settings.Created = fresh.Created
		}
	}

	data, err := settings.marshal()
	if err != nil {
		return nil, fmt.Errorf("encoding config: %w", err)
	}
	if err := dev.WriteAllBytes(filepath.Join(bitPath, ConfigName), data); err != nil {
		return nil, err
	}
	if err := dev.CreateFolder(filepath.Join(bitPath, DataFolderName), false); err != nil {
		return nil, err
	}

	logger.Success("initialized", "path", bitPath)
	return &Repository{dev: dev, root: root, settings: settings}, nil
}

// Open finds the repository enclosing start and loads its settings.
func Open(dev storage.Device, start string, opts Options) (*Repository, error) {
	root, err := Find(dev, start)
	if err != nil {
		return nil, err
	}

	r := &Repository{dev: dev, root: root, opts: opts}
	data, err := dev.ReadAllBytes(r.ConfigPath())
	if err != nil {
		return nil, fmt.Errorf("reading repository config: %w", err)
	}
	if _, r.settings, err = parseSettings(data); err != nil {
		return nil, fmt.Errorf("parsing %s: %w", r.ConfigPath(), err)
	}

	logging.Get("repository").Debug("opened", "root", root, "id", r.settings.ID)
	return r, nil
}

// Root returns the working directory of the repository.
func (r *Repository) Root() string { return r.root }

// BitPath returns the path of the .bit folder.
func (r *Repository) BitPath() string { return filepath.Join(r.root, FolderName) }

// IndexPath returns the path of the recorded index.
func (r *Repository) IndexPath() string { return filepath.Join(r.BitPath(), IndexName) }

// ConfigPath returns the path of the repository config.
func (r *Repository) ConfigPath() string { return filepath.Join(r.BitPath(), ConfigName) }

// Settings returns the loaded repository settings.
func (r *Repository) Settings() Settings { return r.settings }

// Ignore returns the matcher used for physical snapshots. The .bit folder
// is always excluded.
func (r *Repository) Ignore() (*ignore.Matcher, error) {
	patterns := make([]string, 0, 1+len(r.settings.Ignore)+len(r.opts.Ignore))
	patterns = append(patterns, r.settings.Ignore...)
	patterns = append(patterns, r.opts.Ignore...)
	// Last match wins, so a negation cannot re-include .bit.
	patterns = append(patterns, folderPattern)
	return ignore.New(patterns...)
}

// Snapshot walks the working directory.
func (r *Repository) Snapshot() (*tree.Tree, error) {
	m, err := r.Ignore()
	if err != nil {
		return nil, err
	}
	return tree.FromDirectory(r.root, tree.WithIgnore(m))
}

// Recorded loads the index. A repository without an index yields an empty
// tree.
func (r *Repository) Recorded() (*tree.Tree, error) {
	return tree.FromIndex(r.dev, r.IndexPath())
}

// HasIndex reports whether an index has been recorded.
func (r *Repository) HasIndex() (bool, error) {
	return r.dev.Exists(r.IndexPath())
}

// Status is the outcome of PendingChanges.
type Status struct {
	// HasIndex is false before the first Record.
	HasIndex bool

	// Physical and Recorded are the two compared snapshots.
	Physical *tree.Tree
	Recorded *tree.Tree

	// Changes compares Physical (left) against Recorded (right): entries
	// only on disk are RightMissing, entries only in the index LeftMissing.
	Changes []tree.Difference
}

// PendingChanges compares the working directory against the index.
func (r *Repository) PendingChanges() (*Status, error) {
	logger := logging.Get("repository")

	hasIndex, err := r.HasIndex()
	if err != nil {
		return nil, err
	}

	physical, err := r.Snapshot()
	if err != nil {
		return nil, err
	}
	logger.Trace("physical snapshot", "entries", physical.Len())

	recorded, err := r.Recorded()
	if err != nil {
		return nil, err
	}
	logger.Trace("recorded snapshot", "entries", recorded.Len())

	opts := tree.DiffOptions{
		IgnoreCreationTime: r.settings.IgnoreCreationTime || r.opts.IgnoreCreationTime,
	}
	changes := tree.DiffWithOptions(physical, recorded, opts)
	logger.Debug("pending changes", "count", len(changes))

	return &Status{
		HasIndex: hasIndex,
		Physical: physical,
		Recorded: recorded,
		Changes:  changes,
	}, nil
}

// Record snapshots the working directory and replaces the index with it.
func (r *Repository) Record() (*tree.Tree, error) {
	physical, err := r.Snapshot()
	if err != nil {
		return nil, err
	}
	if err := physical.Save(r.dev, r.IndexPath()); err != nil {
		return nil, err
	}
	logging.Get("repository").Success("recorded", "entries", physical.Len(), "index", r.IndexPath())
	return physical, nil
}

// Lookup finds path in the recorded index and returns the recorded full
// path with the entry. Segments match case-insensitively.
func (r *Repository) Lookup(path string) (string, tree.Entry, error) {
	recorded, err := r.Recorded()
	if err != nil {
		return "", tree.Entry{}, err
	}
	id, ok := recorded.Lookup(filepath.ToSlash(path))
	if !ok {
		return "", tree.Entry{}, fmt.Errorf("%w: %s", ErrPathNotFound, path)
	}
	return recorded.FullPath(id), recorded.Entry(id), nil
}

// Get returns the repository config value for a section.name key.
func (r *Repository) Get(key string) (string, error) {
	section, name, err := splitKey(key)
	if err != nil {
		return "", err
	}

	data, err := r.dev.ReadAllBytes(r.ConfigPath())
	if err != nil {
		return "", err
	}
	cfg, _, err := parseSettings(data)
	if err != nil {
		return "", err
	}

	if !cfg.Section(section).HasKey(name) {
		return "", fmt.Errorf("%w: %s", ErrKeyNotFound, key)
	}
	return cfg.Section(section).Key(name).String(), nil
}

// Set stores value under a section.name key. Values the repository itself
// reads are validated before the file is written.
func (r *Repository) Set(key, value string) error {
	section, name, err := splitKey(key)
	if err != nil {
		return err
	}

	data, err := r.dev.ReadAllBytes(r.ConfigPath())
	if err != nil {
		return err
	}
	cfg, _, err := parseSettings(data)
	if err != nil {
		return err
	}

	cfg.Section(section).Key(name).SetValue(value)
	settings, err := settingsFrom(cfg)
	if err != nil {
		return err
	}

	var buf strings.Builder
	if _, err := cfg.WriteTo(&buf); err != nil {
		return err
	}
	if err := r.dev.WriteAllText(r.ConfigPath(), buf.String()); err != nil {
		return err
	}

	r.settings = settings
	logging.Get("repository").Debug("config updated", "key", key)
	return nil
}
