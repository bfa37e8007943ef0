package ignore_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jamesainslie/bit/pkg/bit/ignore"
)

func TestMatch(t *testing.T) {
	m, err := ignore.New(
		".bit",
		"*.log",
		"build/",
		"docs/*.tmp",
		"/vendor",
		"cache/**",
		"!keep.log",
	)
	require.NoError(t, err)

	tests := []struct {
		name  string
		rel   string
		isDir bool
		want  bool
	}{
		{"repository folder", ".bit", true, true},
		{"log at root", "app.log", false, true},
		{"log nested", "a/b/app.log", false, true},
		{"negated log", "keep.log", false, false},
		{"negated log nested", "x/keep.log", false, false},
		{"dir-only matches dir", "build", true, true},
		{"dir-only skips file", "build", false, false},
		{"dir-only nested", "src/build", true, true},
		{"full path pattern", "docs/a.tmp", false, true},
		{"star does not cross slash", "docs/sub/a.tmp", false, false},
		{"full path pattern elsewhere", "other/docs/a.tmp", false, false},
		{"anchored", "vendor", true, true},
		{"anchored not nested", "src/vendor", true, false},
		{"double star", "cache/a/b/c", false, true},
		{"plain file", "main.go", false, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, m.Match(tt.rel, tt.isDir))
		})
	}
}

func TestNew(t *testing.T) {
	t.Run("skips blanks and comments", func(t *testing.T) {
		m, err := ignore.New("", "  ", "# comment", "*.o")
		require.NoError(t, err)
		assert.Equal(t, 1, m.Len())
		assert.Equal(t, []string{"*.o"}, m.Patterns())
	})

	t.Run("rejects invalid glob", func(t *testing.T) {
		_, err := ignore.New("[a-")
		assert.ErrorIs(t, err, ignore.ErrInvalidPattern)
	})

	t.Run("rejects bare slash", func(t *testing.T) {
		_, err := ignore.New("/")
		assert.ErrorIs(t, err, ignore.ErrInvalidPattern)
	})
}

func TestParse(t *testing.T) {
	m, err := ignore.Parse("# build output\r\nbin/\n*.exe\n")
	require.NoError(t, err)

	assert.True(t, m.Match("bin", true))
	assert.True(t, m.Match("tool.exe", false))
	assert.False(t, m.Match("main.go", false))
}

func TestNilMatcher(t *testing.T) {
	var m *ignore.Matcher
	assert.False(t, m.Match("anything", false))
	assert.Zero(t, m.Len())
	assert.Nil(t, m.Patterns())
}
