package output

import (
	"bytes"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jamesainslie/bit/pkg/bit/tree"
)

var when = time.Date(2024, 5, 6, 7, 8, 9, 0, time.UTC)

func entry(name string, length int64) *tree.Entry {
	return &tree.Entry{Name: name, Length: length, CreationTime: when, LastWriteTime: when}
}

func sampleDiffs() []tree.Difference {
	return []tree.Difference{
		{Path: "src", Left: &tree.Entry{Name: "src", IsDir: true}, Kind: tree.RightMissing},
		{Path: "grow.txt", Left: entry("grow.txt", 2048), Right: entry("grow.txt", 10), Kind: tree.LengthMismatch | tree.LastWriteTimeMismatch},
		{Path: "swap", Left: &tree.Entry{Name: "swap", IsDir: true}, Right: entry("swap", 3), Kind: tree.IsDirectoryMismatch | tree.LengthMismatch | tree.CreationTimeMismatch | tree.LastWriteTimeMismatch},
		{Path: "gone.txt", Right: entry("gone.txt", 5), Kind: tree.LeftMissing},
	}
}

func sampleStatus() *Result {
	return FromStatus("/work/proj", "/work/proj/.bit/index", true, sampleDiffs())
}

func sampleListing(t *testing.T) *Result {
	t.Helper()
	tr := tree.New()
	src, err := tr.Append(tree.Root, tree.Entry{Name: "src", IsDir: true})
	require.NoError(t, err)
	_, err = tr.Append(src, *entry("main.go", 1536))
	require.NoError(t, err)
	_, err = tr.Append(tree.Root, *entry("README.md", 100))
	require.NoError(t, err)
	return FromTree("/work/proj", "/work/proj/.bit/index", tr)
}

func TestFromStatus(t *testing.T) {
	r := sampleStatus()

	require.Len(t, r.Changes, 4)
	assert.Equal(t, ViewStatus, r.View)

	t.Run("statuses", func(t *testing.T) {
		var got []Status
		for _, c := range r.Changes {
			got = append(got, c.Status)
		}
		assert.Equal(t, []Status{StatusNew, StatusModified, StatusTypeChanged, StatusDeleted}, got)
	})

	t.Run("sides", func(t *testing.T) {
		assert.Nil(t, r.Changes[0].Recorded)
		assert.Nil(t, r.Changes[3].Current)
		assert.Equal(t, "2.0 KiB", r.Changes[1].Display().SizeHuman)
		assert.Equal(t, "5 B", r.Changes[3].Display().SizeHuman)
		assert.Empty(t, r.Changes[0].Display().SizeHuman, "directories have no size")
	})

	t.Run("fields only for modified", func(t *testing.T) {
		assert.Equal(t, []string{"length", "last-write-time"}, r.Changes[1].Fields)
		assert.Empty(t, r.Changes[2].Fields)
	})

	t.Run("summary", func(t *testing.T) {
		assert.Equal(t, Summary{New: 1, Deleted: 1, Modified: 1, TypeChanged: 1}, r.Summary())
		assert.Equal(t, 4, r.Summary().Total())
	})

	t.Run("warns without index", func(t *testing.T) {
		r := FromStatus("/w", "/w/.bit/index", false, nil)
		assert.NotEmpty(t, r.Warnings)
		assert.Empty(t, r.Changes)
	})
}

func TestFromTree(t *testing.T) {
	r := sampleListing(t)

	require.Len(t, r.Entries, 3)
	assert.Equal(t, ViewList, r.View)
	assert.Equal(t, "src", r.Entries[0].Path)
	assert.Equal(t, "src/main.go", r.Entries[1].Path)
	assert.Equal(t, 2, r.Entries[1].Depth)
	assert.Equal(t, "README.md", r.Entries[2].Path)
	assert.EqualValues(t, 1636, r.TotalSize())
}

func TestRegistry(t *testing.T) {
	t.Run("default formatters", func(t *testing.T) {
		assert.Equal(t, []string{"json", "markdown", "paths", "plain", "pretty", "yaml"}, Available())
	})

	t.Run("unknown formatter", func(t *testing.T) {
		_, err := Get("xml")
		assert.ErrorContains(t, err, "unknown formatter")
	})

	t.Run("register replaces", func(t *testing.T) {
		reg := NewRegistry()
		reg.Register("x", func() Formatter { return &PlainFormatter{} })
		reg.Register("x", func() Formatter { return &PathsFormatter{} })

		f, err := reg.Get("x")
		require.NoError(t, err)
		assert.IsType(t, &PathsFormatter{}, f)
	})

	t.Run("every formatter handles both views", func(t *testing.T) {
		for _, name := range Available() {
			f, err := Get(name)
			require.NoError(t, err)

			for _, r := range []*Result{sampleStatus(), sampleListing(t), FromStatus("/w", "/w/i", false, nil)} {
				var buf bytes.Buffer
				assert.NoError(t, f.Format(&buf, r), name)
			}
		}
	})
}
