package tree

import "strings"

// Kind is a bitset describing how an entry differs between two trees.
type Kind uint8

// Difference kinds. LeftMissing and RightMissing are never combined with the
// metadata mismatch bits.
const (
	LeftMissing Kind = 1 << iota
	RightMissing
	IsDirectoryMismatch
	LengthMismatch
	CreationTimeMismatch
	LastWriteTimeMismatch
)

// NoDifference means the entries match.
const NoDifference Kind = 0

var kindNames = []struct {
	kind Kind
	name string
}{
	{LeftMissing, "left-missing"},
	{RightMissing, "right-missing"},
	{IsDirectoryMismatch, "is-directory"},
	{LengthMismatch, "length"},
	{CreationTimeMismatch, "creation-time"},
	{LastWriteTimeMismatch, "last-write-time"},
}

// Has reports whether every bit of flag is set in k.
func (k Kind) Has(flag Kind) bool {
	return k&flag == flag
}

// Names returns the names of the bits set in k, in bit order.
func (k Kind) Names() []string {
	var names []string
	for _, kn := range kindNames {
		if k.Has(kn.kind) {
			names = append(names, kn.name)
		}
	}
	return names
}

// String joins the set bit names with "|"; "none" when no bit is set.
func (k Kind) String() string {
	if k == NoDifference {
		return "none"
	}
	return strings.Join(k.Names(), "|")
}

// Difference is one entry present on only one side, or present on both with
// differing metadata.
type Difference struct {
	// Path is the full path of the entry, taken from the left side when
	// present there.
	Path string

	// Left and Right are nil on the side where the entry is missing.
	Left  *Entry
	Right *Entry

	Kind Kind
}

// DiffOptions tunes which metadata fields are compared.
type DiffOptions struct {
	// IgnoreCreationTime drops CreationTimeMismatch, for file systems that
	// cannot report a birth time.
	IgnoreCreationTime bool
}

// Diff compares left against right with all metadata fields enabled.
func Diff(left, right *Tree) []Difference {
	return DiffWithOptions(left, right, DiffOptions{})
}

// DiffWithOptions compares left against right level by level. Left children
// are visited depth-first in child order, then right-only children in right
// child order. Matching directories are recursed into and never reported
// themselves.
func DiffWithOptions(left, right *Tree, opts DiffOptions) []Difference {
	d := &differ{left: left, right: right, opts: opts}
	d.compare(Root, Root)
	return d.out
}

type differ struct {
	left, right *Tree
	opts        DiffOptions
	out         []Difference
}

func (d *differ) compare(l, r NodeID) {
	// Right children already reconciled with a left child at this level.
	matched := make(map[NodeID]struct{})

	for lc := d.left.nodes[l].firstChild; lc != None; lc = d.left.nodes[lc].next {
		lentry := d.left.nodes[lc].entry

		rc, ok := d.right.FindChild(r, lentry.Name)
		if !ok {
			e := lentry
			d.out = append(d.out, Difference{
				Path: d.left.FullPath(lc),
				Left: &e,
				Kind: RightMissing,
			})
			continue
		}
		matched[rc] = struct{}{}

		rentry := d.right.nodes[rc].entry
		if lentry.IsDir && rentry.IsDir {
			d.compare(lc, rc)
			continue
		}

		if kind := d.metadata(lentry, rentry); kind != NoDifference {
			le, re := lentry, rentry
			d.out = append(d.out, Difference{
				Path:  d.left.FullPath(lc),
				Left:  &le,
				Right: &re,
				Kind:  kind,
			})
		}
	}

	for rc := d.right.nodes[r].firstChild; rc != None; rc = d.right.nodes[rc].next {
		if _, ok := matched[rc]; ok {
			continue
		}
		e := d.right.nodes[rc].entry
		d.out = append(d.out, Difference{
			Path:  d.right.FullPath(rc),
			Right: &e,
			Kind:  LeftMissing,
		})
	}
}

func (d *differ) metadata(l, r Entry) Kind {
	var kind Kind
	if l.IsDir != r.IsDir {
		kind |= IsDirectoryMismatch
	}
	if l.Length != r.Length {
		kind |= LengthMismatch
	}
	if !d.opts.IgnoreCreationTime && !l.CreationTime.Equal(r.CreationTime) {
		kind |= CreationTimeMismatch
	}
	if !l.LastWriteTime.Equal(r.LastWriteTime) {
		kind |= LastWriteTimeMismatch
	}
	return kind
}
