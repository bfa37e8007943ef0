package tree_test

import (
	"bytes"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/jamesainslie/bit/pkg/bit/tree"
)

var (
	t0 = time.Date(2021, 3, 14, 15, 9, 26, 535897900, time.UTC)
	t1 = t0.Add(time.Hour)
)

func dir(name string) tree.Entry {
	return tree.Entry{Name: name, IsDir: true}
}

func file(name string, length int64) tree.Entry {
	return tree.Entry{Name: name, Length: length, CreationTime: t0, LastWriteTime: t0}
}

// shape describes a tree in insertion order; children apply to directories.
type shape struct {
	entry    tree.Entry
	children []shape
}

func d(name string, children ...shape) shape {
	return shape{entry: dir(name), children: children}
}

func f(name string, length int64) shape {
	return shape{entry: file(name, length)}
}

func fe(e tree.Entry) shape {
	return shape{entry: e}
}

func build(t *testing.T, shapes ...shape) *tree.Tree {
	t.Helper()
	tr := tree.New()
	var add func(parent tree.NodeID, shapes []shape)
	add = func(parent tree.NodeID, shapes []shape) {
		for _, s := range shapes {
			id, err := tr.Append(parent, s.entry)
			require.NoError(t, err)
			if s.entry.IsDir {
				add(id, s.children)
			}
		}
	}
	add(tree.Root, shapes)
	return tr
}

// paths lists every full path depth-first.
func paths(t *testing.T, tr *tree.Tree) []string {
	t.Helper()
	var out []string
	require.NoError(t, tr.Walk(func(id tree.NodeID) error {
		out = append(out, tr.FullPath(id))
		return nil
	}))
	return out
}

func bytesOf(t *testing.T, tr *tree.Tree) *bytes.Reader {
	t.Helper()
	var buf bytes.Buffer
	require.NoError(t, tree.EncodeStream(tr, &buf))
	return bytes.NewReader(buf.Bytes())
}
