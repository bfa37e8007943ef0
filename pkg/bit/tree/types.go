// Package tree provides the ordered file-tree snapshot used by bit: an
// arena-backed hierarchy of directory entries that can be built from disk,
// encoded to and decoded from the binary index, and diffed against another
// snapshot.
package tree

import (
	"errors"
	"fmt"
	"strings"
	"time"
	"unicode"
	"unicode/utf8"
)

// Tick is the resolution of timestamps stored in a tree and in the index.
const Tick = 100 * time.Nanosecond

// RootName is the name of the synthetic root node.
const RootName = "root"

var (
	// ErrDuplicateName is returned when a child name collides with an
	// existing sibling under case-insensitive comparison.
	ErrDuplicateName = errors.New("duplicate sibling name")

	// ErrNotDirectory is returned when appending a child to a non-directory.
	ErrNotDirectory = errors.New("parent is not a directory")

	// ErrInvalidName is returned for empty names, names containing a slash
	// and names longer than MaxNameLength bytes.
	ErrInvalidName = errors.New("invalid entry name")
)

// Entry describes one file-system object.
type Entry struct {
	Name          string    `json:"name" yaml:"name"`
	IsDir         bool      `json:"is_dir" yaml:"is_dir"`
	Length        int64     `json:"length" yaml:"length"`
	CreationTime  time.Time `json:"creation_time" yaml:"creation_time"`
	LastWriteTime time.Time `json:"last_write_time" yaml:"last_write_time"`
}

// NodeID addresses a node inside the arena of its Tree.
type NodeID int32

// Root is the NodeID of the synthetic root of every tree.
const Root NodeID = 0

// None marks an absent link (no parent, sibling or child).
const None NodeID = -1

// node is one arena slot. Links are NodeIDs into the same arena; the parent
// link is a back reference only, ownership stays with the Tree.
type node struct {
	entry Entry

	parent     NodeID
	prev       NodeID
	next       NodeID
	firstChild NodeID
	lastChild  NodeID

	subfolders int
	files      int

	// index maps folded child names to child IDs. Nil until the first child.
	index map[string]NodeID

	fullPath     string
	fullPathDone bool
}

// Tree owns all nodes of one snapshot. The zero value is not usable; call New.
type Tree struct {
	nodes []node
}

// New returns a tree holding only the synthetic root.
func New() *Tree {
	t := &Tree{}
	t.nodes = append(t.nodes, node{
		entry:      Entry{Name: RootName, IsDir: true},
		parent:     None,
		prev:       None,
		next:       None,
		firstChild: None,
		lastChild:  None,
	})
	return t
}

// Len returns the number of nodes, excluding the root.
func (t *Tree) Len() int {
	return len(t.nodes) - 1
}

// Append adds a child entry at the end of parent's child list and returns
// its ID. Timestamps are stored in UTC at tick precision.
func (t *Tree) Append(parent NodeID, e Entry) (NodeID, error) {
	if e.Name == "" || len(e.Name) > MaxNameLength || strings.ContainsRune(e.Name, '/') {
		return None, fmt.Errorf("append %q: %w", e.Name, ErrInvalidName)
	}

	p := t.at(parent)
	if !p.entry.IsDir {
		return None, fmt.Errorf("append %q under %q: %w", e.Name, t.FullPath(parent), ErrNotDirectory)
	}

	key := t.key(e.Name)
	if _, exists := p.index[key]; exists {
		return None, fmt.Errorf("append %q under %q: %w", e.Name, t.FullPath(parent), ErrDuplicateName)
	}

	e.CreationTime = normalizeTime(e.CreationTime)
	e.LastWriteTime = normalizeTime(e.LastWriteTime)
	if e.IsDir {
		e.Length = 0
	}

	id := NodeID(len(t.nodes))
	t.nodes = append(t.nodes, node{
		entry:      e,
		parent:     parent,
		prev:       None,
		next:       None,
		firstChild: None,
		lastChild:  None,
	})

	// Re-fetch: the append above may have moved the arena.
	p = &t.nodes[parent]
	if p.index == nil {
		p.index = make(map[string]NodeID)
	}
	p.index[key] = id

	if e.IsDir {
		p.subfolders++
	} else {
		p.files++
	}

	if p.firstChild == None {
		p.firstChild = id
		p.lastChild = id
		return id, nil
	}

	last := p.lastChild
	t.nodes[last].next = id
	t.nodes[id].prev = last
	p.lastChild = id
	return id, nil
}

// Entry returns the entry stored at id.
func (t *Tree) Entry(id NodeID) Entry {
	return t.at(id).entry
}

// Parent returns the parent of id, or None for the root.
func (t *Tree) Parent(id NodeID) NodeID { return t.at(id).parent }

// FirstChild returns the first child of id, or None.
func (t *Tree) FirstChild(id NodeID) NodeID { return t.at(id).firstChild }

// LastChild returns the last child of id, or None.
func (t *Tree) LastChild(id NodeID) NodeID { return t.at(id).lastChild }

// Next returns the following sibling of id, or None.
func (t *Tree) Next(id NodeID) NodeID { return t.at(id).next }

// Prev returns the preceding sibling of id, or None.
func (t *Tree) Prev(id NodeID) NodeID { return t.at(id).prev }

// SubfolderCount returns how many direct children of id are directories.
func (t *Tree) SubfolderCount(id NodeID) int { return t.at(id).subfolders }

// FileCount returns how many direct children of id are not directories.
func (t *Tree) FileCount(id NodeID) int { return t.at(id).files }

// Children returns the children of id in insertion order.
func (t *Tree) Children(id NodeID) []NodeID {
	n := t.at(id)
	children := make([]NodeID, 0, n.subfolders+n.files)
	for c := n.firstChild; c != None; c = t.nodes[c].next {
		children = append(children, c)
	}
	return children
}

// FindChild returns the child of parent whose name equals name under
// case-insensitive comparison.
func (t *Tree) FindChild(parent NodeID, name string) (NodeID, bool) {
	id, ok := t.at(parent).index[t.key(name)]
	if !ok {
		return None, false
	}
	return id, true
}

// FullPath returns the slash-separated path of id from the root, excluding
// the root itself. The root's path is empty. The result is cached per node.
func (t *Tree) FullPath(id NodeID) string {
	n := t.at(id)
	if n.fullPathDone {
		return n.fullPath
	}

	var parts []string
	for cur := id; cur != Root && cur != None; cur = t.nodes[cur].parent {
		parts = append(parts, t.nodes[cur].entry.Name)
	}

	var sb strings.Builder
	for i := len(parts) - 1; i >= 0; i-- {
		if sb.Len() != 0 {
			sb.WriteByte('/')
		}
		sb.WriteString(parts[i])
	}

	n.fullPath = sb.String()
	n.fullPathDone = true
	return n.fullPath
}

// Depth returns the depth of id below the root (children of the root are 1).
func (t *Tree) Depth(id NodeID) int {
	depth := 0
	for cur := t.at(id).parent; cur != None; cur = t.nodes[cur].parent {
		depth++
	}
	return depth
}

// Walk visits every node below the root depth-first in child order. Returning
// an error from fn stops the walk and returns that error.
func (t *Tree) Walk(fn func(id NodeID) error) error {
	return t.walk(Root, fn)
}

func (t *Tree) walk(parent NodeID, fn func(id NodeID) error) error {
	for c := t.nodes[parent].firstChild; c != None; c = t.nodes[c].next {
		if err := fn(c); err != nil {
			return err
		}
		if err := t.walk(c, fn); err != nil {
			return err
		}
	}
	return nil
}

// Equal reports whether a and b hold the same entries in the same order.
func Equal(a, b *Tree) bool {
	if a.Len() != b.Len() {
		return false
	}
	return equalChildren(a, Root, b, Root)
}

func equalChildren(a *Tree, pa NodeID, b *Tree, pb NodeID) bool {
	ca, cb := a.nodes[pa].firstChild, b.nodes[pb].firstChild
	for ca != None && cb != None {
		if !sameEntry(a.nodes[ca].entry, b.nodes[cb].entry) {
			return false
		}
		if !equalChildren(a, ca, b, cb) {
			return false
		}
		ca, cb = a.nodes[ca].next, b.nodes[cb].next
	}
	return ca == None && cb == None
}

func sameEntry(x, y Entry) bool {
	return x.Name == y.Name &&
		x.IsDir == y.IsDir &&
		x.Length == y.Length &&
		x.CreationTime.Equal(y.CreationTime) &&
		x.LastWriteTime.Equal(y.LastWriteTime)
}

func (t *Tree) at(id NodeID) *node {
	if id < 0 || int(id) >= len(t.nodes) {
		panic(fmt.Sprintf("tree: node %d out of range", id))
	}
	return &t.nodes[id]
}

// key maps a name to its case-insensitive form. Each rune is replaced by the
// smallest rune of its simple folding orbit, the equivalence used by
// strings.EqualFold; multi-rune foldings such as ß and ss stay distinct.
func (t *Tree) key(name string) string {
	ascii := true
	for i := 0; i < len(name); i++ {
		if name[i] >= utf8.RuneSelf {
			ascii = false
			break
		}
	}
	if ascii {
		// The least rune of an ASCII letter's orbit is its upper case.
		return strings.ToUpper(name)
	}

	var sb strings.Builder
	sb.Grow(len(name))
	for _, r := range name {
		sb.WriteRune(foldRune(r))
	}
	return sb.String()
}

func foldRune(r rune) rune {
	least := r
	for f := unicode.SimpleFold(r); f != r; f = unicode.SimpleFold(f) {
		if f < least {
			least = f
		}
	}
	return least
}

// normalizeTime converts t to UTC and truncates it to tick precision.
// Truncate is relative to the zero time, which is also the tick epoch.
func normalizeTime(t time.Time) time.Time {
	return t.UTC().Truncate(Tick)
}
