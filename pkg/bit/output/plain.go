package output

import (
	"bytes"
	"fmt"
	"strings"
	"text/tabwriter"
	"time"
)

// PlainFormatter formats output as a simple aligned table without styling,
// suitable for scripting and piping.
type PlainFormatter struct{}

// Format writes the formatted output to the buffer.
func (f *PlainFormatter) Format(w *bytes.Buffer, r *Result) error {
	tw := tabwriter.NewWriter(w, 0, 0, 1, ' ', 0)

	if r.View == ViewList {
		fmt.Fprintln(tw, "TYPE\tSIZE\tMODIFIED\tPATH")
		for _, e := range r.Entries {
			fmt.Fprintf(tw, "%s\t%s\t%s\t%s\n", kindOf(e.IsDir), e.SizeHuman, stamp(e), e.Path)
		}
		return tw.Flush()
	}

	fmt.Fprintln(tw, "STATUS\tSIZE\tPATH\tFIELDS")
	for _, c := range r.Changes {
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\n", c.Status, c.Display().SizeHuman, c.Path, strings.Join(c.Fields, ","))
	}
	return tw.Flush()
}

func kindOf(isDir bool) string {
	if isDir {
		return "dir"
	}
	return "file"
}

func stamp(e EntryInfo) string {
	if e.IsDir || e.LastWriteTime.IsZero() {
		return "-"
	}
	return e.LastWriteTime.UTC().Format(time.RFC3339)
}

func init() {
	Register("plain", func() Formatter {
		return &PlainFormatter{}
	})
}

// Ensure PlainFormatter implements Formatter.
var _ Formatter = (*PlainFormatter)(nil)

// PathsFormatter writes one path per line, suitable for piping to other
// tools.
type PathsFormatter struct{}

// Format writes the formatted output to the buffer.
func (f *PathsFormatter) Format(w *bytes.Buffer, r *Result) error {
	if r.View == ViewList {
		for _, e := range r.Entries {
			w.WriteString(e.Path)
			w.WriteByte('\n')
		}
		return nil
	}
	for _, c := range r.Changes {
		w.WriteString(c.Path)
		w.WriteByte('\n')
	}
	return nil
}

func init() {
	Register("paths", func() Formatter {
		return &PathsFormatter{}
	})
}

// Ensure PathsFormatter implements Formatter.
var _ Formatter = (*PathsFormatter)(nil)
