package output

import (
	"bytes"
	"encoding/json"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"
)

func render(t *testing.T, f Formatter, r *Result) string {
	t.Helper()
	var buf bytes.Buffer
	require.NoError(t, f.Format(&buf, r))
	return buf.String()
}

func TestPrettyFormatter(t *testing.T) {
	t.Run("status", func(t *testing.T) {
		out := render(t, &PrettyFormatter{}, sampleStatus())

		assert.Contains(t, out, "/work/proj")
		assert.Contains(t, out, "STATUS")
		assert.Contains(t, out, "src/")
		assert.Contains(t, out, "grow.txt")
		assert.Contains(t, out, "2.0 KiB")
		assert.Contains(t, out, "length, last-write-time")
		assert.Contains(t, out, "1 new")
		assert.Contains(t, out, "1 type-changed")
		assert.Contains(t, out, "bit record")
	})

	t.Run("clean", func(t *testing.T) {
		out := render(t, &PrettyFormatter{}, FromStatus("/w", "/w/.bit/index", true, nil))
		assert.Contains(t, out, "matches the index")
		assert.NotContains(t, out, "bit record")
	})

	t.Run("no index", func(t *testing.T) {
		out := render(t, &PrettyFormatter{}, FromStatus("/w", "/w/.bit/index", false, nil))
		assert.Contains(t, out, "none recorded")
		assert.Contains(t, out, "Warnings:")
	})

	t.Run("listing", func(t *testing.T) {
		out := render(t, &PrettyFormatter{}, sampleListing(t))
		assert.Contains(t, out, "src/")
		assert.Contains(t, out, "main.go")
		assert.Contains(t, out, "1.5 KiB")
		assert.Contains(t, out, "Entries:")
	})
}

func TestPlainFormatter(t *testing.T) {
	t.Run("status", func(t *testing.T) {
		lines := strings.Split(strings.TrimSpace(render(t, &PlainFormatter{}, sampleStatus())), "\n")
		require.Len(t, lines, 5)
		assert.True(t, strings.HasPrefix(lines[0], "STATUS"))
		assert.Equal(t, []string{"new", "src"}, strings.Fields(lines[1]))
		assert.Equal(t, []string{"modified", "2.0", "KiB", "grow.txt", "length,last-write-time"}, strings.Fields(lines[2]))
		assert.Equal(t, []string{"deleted", "5", "B", "gone.txt"}, strings.Fields(lines[4]))
	})

	t.Run("listing", func(t *testing.T) {
		lines := strings.Split(strings.TrimSpace(render(t, &PlainFormatter{}, sampleListing(t))), "\n")
		require.Len(t, lines, 4)
		assert.Equal(t, []string{"dir", "-", "src"}, strings.Fields(lines[1]))
		assert.Equal(t, []string{"file", "1.5", "KiB", "2024-05-06T07:08:09Z", "src/main.go"}, strings.Fields(lines[2]))
	})
}

func TestPathsFormatter(t *testing.T) {
	assert.Equal(t, "src\ngrow.txt\nswap\ngone.txt\n", render(t, &PathsFormatter{}, sampleStatus()))
	assert.Equal(t, "src\nsrc/main.go\nREADME.md\n", render(t, &PathsFormatter{}, sampleListing(t)))
}

func TestJSONFormatter(t *testing.T) {
	t.Run("status", func(t *testing.T) {
		var parsed map[string]interface{}
		require.NoError(t, json.Unmarshal([]byte(render(t, &JSONFormatter{}, sampleStatus())), &parsed))

		assert.Contains(t, parsed, "meta")
		assert.NotContains(t, parsed, "entries")

		meta := parsed["meta"].(map[string]interface{})
		assert.Equal(t, "status", meta["view"])
		summary := meta["summary"].(map[string]interface{})
		assert.Equal(t, float64(1), summary["deleted"])

		changes := parsed["changes"].([]interface{})
		require.Len(t, changes, 4)
		grow := changes[1].(map[string]interface{})
		assert.Equal(t, "modified", grow["status"])
		assert.Equal(t, float64(2048), grow["current"].(map[string]interface{})["size"])
		assert.Equal(t, float64(10), grow["recorded"].(map[string]interface{})["size"])

		gone := changes[3].(map[string]interface{})
		assert.NotContains(t, gone, "current")
	})

	t.Run("listing", func(t *testing.T) {
		var parsed document
		require.NoError(t, json.Unmarshal([]byte(render(t, &JSONFormatter{}, sampleListing(t))), &parsed))
		assert.Len(t, parsed.Entries, 3)
		assert.EqualValues(t, 1636, parsed.Meta.Total)
		assert.Nil(t, parsed.Meta.Summary)
	})
}

func TestYAMLFormatter(t *testing.T) {
	var parsed document
	require.NoError(t, yaml.Unmarshal([]byte(render(t, &YAMLFormatter{}, sampleStatus())), &parsed))

	assert.Equal(t, ViewStatus, parsed.Meta.View)
	assert.Equal(t, "/work/proj", parsed.Meta.Root)
	require.Len(t, parsed.Changes, 4)
	assert.Equal(t, StatusTypeChanged, parsed.Changes[2].Status)
	assert.Equal(t, []string{"length", "last-write-time"}, parsed.Changes[1].Fields)
	require.NotNil(t, parsed.Changes[1].Recorded)
	assert.True(t, parsed.Changes[1].Recorded.LastWriteTime.Equal(when))
}

func TestMarkdownFormatter(t *testing.T) {
	r := FromStatus("/w", "/w/i", true, sampleDiffs()[:1])
	r.Changes[0].Path = "a|b"

	out := render(t, &MarkdownFormatter{}, r)
	assert.Contains(t, out, "| STATUS | SIZE | PATH | FIELDS |")
	assert.Contains(t, out, `| new |  | a\|b |  |`)

	out = render(t, &MarkdownFormatter{}, sampleListing(t))
	assert.Contains(t, out, "| file | 1.5 KiB | 2024-05-06T07:08:09Z | src/main.go |")
}
