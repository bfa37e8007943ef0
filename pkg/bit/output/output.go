// Package output provides formatters for displaying pending changes and
// recorded index listings in various output formats (pretty, plain, paths,
// json, yaml, markdown).
//
// The package uses a registry pattern to allow registration of multiple
// formatter implementations that can be selected at runtime.
//
// Basic usage:
//
//	formatter, err := output.Get("pretty")
//	if err != nil {
//	    return err
//	}
//	var buf bytes.Buffer
//	if err := formatter.Format(&buf, output.FromStatus(root, index, true, diffs)); err != nil {
//	    return err
//	}
//	fmt.Print(buf.String())
package output

import (
	"bytes"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/dustin/go-humanize"

	"github.com/jamesainslie/bit/pkg/bit/tree"
)

// View selects what a Result holds.
type View string

const (
	// ViewStatus shows the changes between the disk and the index.
	ViewStatus View = "status"

	// ViewList shows every entry of the recorded index.
	ViewList View = "list"
)

// Status classifies a pending change.
type Status string

const (
	// StatusNew marks entries on disk that the index does not have.
	StatusNew Status = "new"

	// StatusDeleted marks entries in the index that are gone from disk.
	StatusDeleted Status = "deleted"

	// StatusModified marks entries whose metadata differs.
	StatusModified Status = "modified"

	// StatusTypeChanged marks a file that became a directory or the reverse.
	StatusTypeChanged Status = "type-changed"
)

// EntryInfo is one side of an entry with display fields filled in.
type EntryInfo struct {
	Path          string    `json:"path" yaml:"path"`
	IsDir         bool      `json:"is_dir" yaml:"is_dir"`
	Size          int64     `json:"size" yaml:"size"`
	SizeHuman     string    `json:"size_human" yaml:"size_human"`
	CreationTime  time.Time `json:"creation_time" yaml:"creation_time"`
	LastWriteTime time.Time `json:"last_write_time" yaml:"last_write_time"`
	Depth         int       `json:"depth,omitempty" yaml:"depth,omitempty"`
}

// Change is a pending change between the disk and the index.
type Change struct {
	Path   string `json:"path" yaml:"path"`
	Status Status `json:"status" yaml:"status"`

	// Fields names the mismatching metadata of a modified entry.
	Fields []string `json:"fields,omitempty" yaml:"fields,omitempty"`

	// Current is the entry on disk; nil when deleted.
	Current *EntryInfo `json:"current,omitempty" yaml:"current,omitempty"`

	// Recorded is the entry in the index; nil when new.
	Recorded *EntryInfo `json:"recorded,omitempty" yaml:"recorded,omitempty"`
}

// Display returns the side shown in single-row formats: the disk entry when
// present, else the recorded one.
func (c Change) Display() *EntryInfo {
	if c.Current != nil {
		return c.Current
	}
	return c.Recorded
}

// Summary counts changes per status.
type Summary struct {
	New         int `json:"new" yaml:"new"`
	Deleted     int `json:"deleted" yaml:"deleted"`
	Modified    int `json:"modified" yaml:"modified"`
	TypeChanged int `json:"type_changed" yaml:"type_changed"`
}

// Total returns the number of changes.
func (s Summary) Total() int {
	return s.New + s.Deleted + s.Modified + s.TypeChanged
}

// Result contains the complete output data for formatting.
type Result struct {
	View View `json:"view" yaml:"view"`

	// Root is the repository working directory.
	Root string `json:"root" yaml:"root"`

	// Index is the path of the recorded index.
	Index string `json:"index" yaml:"index"`

	// HasIndex is false before anything was recorded.
	HasIndex bool `json:"has_index" yaml:"has_index"`

	// Changes is filled for ViewStatus, in diff order.
	Changes []Change `json:"changes,omitempty" yaml:"changes,omitempty"`

	// Entries is filled for ViewList, depth-first.
	Entries []EntryInfo `json:"entries,omitempty" yaml:"entries,omitempty"`

	// Warnings contains any warning messages to show with the result.
	Warnings []string `json:"warnings,omitempty" yaml:"warnings,omitempty"`
}

// Summary counts the changes of the result.
func (r *Result) Summary() Summary {
	var s Summary
	for _, c := range r.Changes {
		switch c.Status {
		case StatusNew:
			s.New++
		case StatusDeleted:
			s.Deleted++
		case StatusModified:
			s.Modified++
		case StatusTypeChanged:
			s.TypeChanged++
		}
	}
	return s
}

// TotalSize returns the sum of all listed file sizes.
func (r *Result) TotalSize() int64 {
	var total int64
	for _, e := range r.Entries {
		total += e.Size
	}
	return total
}

// FromStatus builds a status result. diffs compares the disk (left) against
// the index (right).
func FromStatus(root, index string, hasIndex bool, diffs []tree.Difference) *Result {
	r := &Result{
		View:     ViewStatus,
		Root:     root,
		Index:    index,
		HasIndex: hasIndex,
		Changes:  make([]Change, 0, len(diffs)),
	}
	for _, d := range diffs {
		c := Change{Path: d.Path}
		if d.Left != nil {
			c.Current = NewEntryInfo(d.Path, *d.Left, 0)
		}
		if d.Right != nil {
			c.Recorded = NewEntryInfo(d.Path, *d.Right, 0)
		}

		switch {
		case d.Kind.Has(tree.RightMissing):
			c.Status = StatusNew
		case d.Kind.Has(tree.LeftMissing):
			c.Status = StatusDeleted
		case d.Kind.Has(tree.IsDirectoryMismatch):
			c.Status = StatusTypeChanged
		default:
			c.Status = StatusModified
			c.Fields = d.Kind.Names()
		}
		r.Changes = append(r.Changes, c)
	}
	if !hasIndex {
		r.Warnings = append(r.Warnings, "no index recorded yet; run bit record")
	}
	return r
}

// FromTree builds a listing of every entry in t.
func FromTree(root, index string, t *tree.Tree) *Result {
	r := &Result{
		View:     ViewList,
		Root:     root,
		Index:    index,
		HasIndex: true,
		Entries:  make([]EntryInfo, 0, t.Len()),
	}
	_ = t.Walk(func(id tree.NodeID) error {
		r.Entries = append(r.Entries, *NewEntryInfo(t.FullPath(id), t.Entry(id), t.Depth(id)))
		return nil
	})
	return r
}

// NewEntryInfo fills in the display fields of e.
func NewEntryInfo(path string, e tree.Entry, depth int) *EntryInfo {
	out := &EntryInfo{
		Path:          path,
		IsDir:         e.IsDir,
		Size:          e.Length,
		CreationTime:  e.CreationTime,
		LastWriteTime: e.LastWriteTime,
		Depth:         depth,
	}
	if !e.IsDir {
		out.SizeHuman = humanize.IBytes(uint64(e.Length))
	}
	return out
}

// Formatter is the interface that all output formatters must implement.
type Formatter interface {
	// Format writes the formatted output to the buffer.
	Format(w *bytes.Buffer, r *Result) error
}

// FormatterFactory is a function that creates a new Formatter instance.
type FormatterFactory func() Formatter

// Registry manages formatter registration and lookup.
type Registry struct {
	mu        sync.RWMutex
	factories map[string]FormatterFactory
}

// NewRegistry creates a new formatter registry.
func NewRegistry() *Registry {
	return &Registry{
		factories: make(map[string]FormatterFactory),
	}
}

// Register adds a formatter factory to the registry.
// It will replace any existing formatter with the same name.
func (r *Registry) Register(name string, factory FormatterFactory) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.factories[name] = factory
}

// Get returns a new formatter instance by name.
func (r *Registry) Get(name string) (Formatter, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	factory, ok := r.factories[name]
	if !ok {
		return nil, fmt.Errorf("unknown formatter: %s", name)
	}
	return factory(), nil
}

// Available returns a sorted list of all registered formatter names.
func (r *Registry) Available() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	names := make([]string, 0, len(r.factories))
	for name := range r.factories {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// DefaultRegistry is the global formatter registry.
var DefaultRegistry = NewRegistry()

// Register adds a formatter factory to the default registry.
func Register(name string, factory FormatterFactory) {
	DefaultRegistry.Register(name, factory)
}

// Get returns a new formatter instance from the default registry.
func Get(name string) (Formatter, error) {
	return DefaultRegistry.Get(name)
}

// Available returns all formatter names from the default registry.
func Available() []string {
	return DefaultRegistry.Available()
}
