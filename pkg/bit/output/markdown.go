package output

import (
	"bytes"
	"fmt"
	"strings"
)

// MarkdownFormatter formats output as a GitHub-flavored Markdown table.
type MarkdownFormatter struct{}

// Format writes the formatted output to the buffer.
func (f *MarkdownFormatter) Format(w *bytes.Buffer, r *Result) error {
	if r.View == ViewList {
		w.WriteString("| TYPE | SIZE | MODIFIED | PATH |\n")
		w.WriteString("|------|------|----------|------|\n")
		for _, e := range r.Entries {
			fmt.Fprintf(w, "| %s | %s | %s | %s |\n",
				kindOf(e.IsDir), e.SizeHuman, stamp(e), escapeMarkdownPipe(e.Path))
		}
		return nil
	}

	w.WriteString("| STATUS | SIZE | PATH | FIELDS |\n")
	w.WriteString("|--------|------|------|--------|\n")
	for _, c := range r.Changes {
		fmt.Fprintf(w, "| %s | %s | %s | %s |\n",
			c.Status, c.Display().SizeHuman, escapeMarkdownPipe(c.Path), strings.Join(c.Fields, ", "))
	}
	return nil
}

// escapeMarkdownPipe escapes pipe characters in a string for Markdown tables.
func escapeMarkdownPipe(s string) string {
	return strings.ReplaceAll(s, "|", `\|`)
}

func init() {
	Register("markdown", func() Formatter {
		return &MarkdownFormatter{}
	})
}

// Ensure MarkdownFormatter implements Formatter.
var _ Formatter = (*MarkdownFormatter)(nil)
