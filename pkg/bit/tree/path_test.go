package tree_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jamesainslie/bit/pkg/bit/tree"
)

func TestSplitPath(t *testing.T) {
	tests := []struct {
		path string
		want []string
	}{
		{"", nil},
		{"/", nil},
		{"//", nil},
		{"a", []string{"a"}},
		{"/a", []string{"a"}},
		{"a/", []string{"a"}},
		{"a//", []string{"a"}},
		{"a/b", []string{"a", "b"}},
		{"a//b", []string{"a", "b"}},
		{"aa/bb", []string{"aa", "bb"}},
		{"aa//bb", []string{"aa", "bb"}},
		{"a/b/", []string{"a", "b"}},
		{"a//b//", []string{"a", "b"}},
		{"a/b/c", []string{"a", "b", "c"}},
		{"a///b//c", []string{"a", "b", "c"}},
		{"/a/b", []string{"a", "b"}},
		{"//a/b", []string{"a", "b"}},
		{"/a/b/", []string{"a", "b"}},
	}

	for _, tt := range tests {
		t.Run(tt.path, func(t *testing.T) {
			got := tree.SplitPath(tt.path)
			assert.Len(t, got, len(tt.want))
			if len(tt.want) > 0 {
				assert.Equal(t, tt.want, got)
			}
		})
	}
}

func TestFind(t *testing.T) {
	tr := build(t,
		d("a", d("b", f("c", 42))),
		f("readme", 7),
	)

	t.Run("finds nested file", func(t *testing.T) {
		e, ok := tr.Find("a/b/c")
		require.True(t, ok)
		assert.Equal(t, "c", e.Name)
		assert.Equal(t, int64(42), e.Length)
	})

	t.Run("finds directory", func(t *testing.T) {
		e, ok := tr.Find("a/b")
		require.True(t, ok)
		assert.True(t, e.IsDir)
	})

	t.Run("ignores case and extra slashes", func(t *testing.T) {
		e, ok := tr.Find("//A/B//C/")
		require.True(t, ok)
		assert.Equal(t, "c", e.Name)
	})

	t.Run("missing segment", func(t *testing.T) {
		_, ok := tr.Find("a/x/c")
		assert.False(t, ok)
	})

	t.Run("path continues below a file", func(t *testing.T) {
		_, ok := tr.Find("readme/more")
		assert.False(t, ok)
	})

	for _, empty := range []string{"", "/", "///"} {
		t.Run("empty path "+empty+" is not found", func(t *testing.T) {
			_, ok := tr.Find(empty)
			assert.False(t, ok)

			id, ok := tr.Lookup(empty)
			assert.False(t, ok)
			assert.Equal(t, tree.None, id)
		})
	}
}
