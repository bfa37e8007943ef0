package output

import (
	"bytes"
	"fmt"
	"strings"

	"github.com/dustin/go-humanize"
)

// PrettyFormatter formats output with colors and styling using lipgloss.
type PrettyFormatter struct{}

// Format writes the formatted output to the buffer.
func (f *PrettyFormatter) Format(w *bytes.Buffer, r *Result) error {
	w.WriteString(f.formatHeader(r))
	w.WriteString("\n")

	switch r.View {
	case ViewList:
		w.WriteString(f.formatEntries(r))
	default:
		w.WriteString(f.formatChanges(r))
	}

	w.WriteString(f.formatFooter(r))
	w.WriteString("\n")

	if len(r.Warnings) > 0 {
		w.WriteString(f.formatWarnings(r.Warnings))
	}
	return nil
}

func (f *PrettyFormatter) formatHeader(r *Result) string {
	lines := []string{
		LabelStyle.Render("Repository:") + " " + ValueStyle.Render(r.Root),
	}
	if r.HasIndex {
		lines = append(lines, LabelStyle.Render("Index:")+" "+ValueStyle.Render(r.Index))
	} else {
		lines = append(lines, LabelStyle.Render("Index:")+" "+MutedStyle.Render("none recorded"))
	}
	return HeaderBox.Render(strings.Join(lines, "\n"))
}

func (f *PrettyFormatter) formatChanges(r *Result) string {
	if len(r.Changes) == 0 {
		return SuccessStyle.Render("  Working tree matches the index") + "\n"
	}

	width := len(StatusTypeChanged)
	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("  %s  %s  %s\n",
		TableHeaderStyle.Render(padRight("STATUS", width)),
		TableHeaderStyle.Render(padLeft("SIZE", 10)),
		TableHeaderStyle.Render("PATH")))

	for _, c := range r.Changes {
		e := c.Display()
		status := statusStyles[c.Status].Render(padRight(string(c.Status), width))
		size := SizeStyle.Render(padLeft(e.SizeHuman, 10))

		path := PathStyle.Render(c.Path)
		if e.IsDir {
			path = DirStyle.Render(c.Path + "/")
		}
		if len(c.Fields) > 0 {
			path += " " + MutedStyle.Render("("+strings.Join(c.Fields, ", ")+")")
		}
		sb.WriteString(fmt.Sprintf("  %s  %s  %s\n", status, size, path))
	}
	return sb.String()
}

func (f *PrettyFormatter) formatEntries(r *Result) string {
	if len(r.Entries) == 0 {
		return MutedStyle.Render("  The index is empty") + "\n"
	}

	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("  %s  %s  %s\n",
		TableHeaderStyle.Render(padLeft("SIZE", 10)),
		TableHeaderStyle.Render(padRight("MODIFIED", 14)),
		TableHeaderStyle.Render("PATH")))

	for _, e := range r.Entries {
		indent := strings.Repeat("  ", max(e.Depth-1, 0))
		if e.IsDir {
			sb.WriteString(fmt.Sprintf("  %s  %s  %s\n",
				padLeft("", 10), padRight("", 14), indent+DirStyle.Render(lastSegment(e.Path)+"/")))
			continue
		}
		sb.WriteString(fmt.Sprintf("  %s  %s  %s\n",
			SizeStyle.Render(padLeft(e.SizeHuman, 10)),
			MutedStyle.Render(padRight(humanize.Time(e.LastWriteTime), 14)),
			indent+PathStyle.Render(lastSegment(e.Path))))
	}
	return sb.String()
}

func (f *PrettyFormatter) formatFooter(r *Result) string {
	var parts []string

	if r.View == ViewList {
		files := 0
		for _, e := range r.Entries {
			if !e.IsDir {
				files++
			}
		}
		parts = append(parts,
			LabelStyle.Render("Entries:")+" "+ValueStyle.Render(fmt.Sprint(len(r.Entries))),
			LabelStyle.Render("Files:")+" "+ValueStyle.Render(fmt.Sprint(files)),
			LabelStyle.Render("Total:")+" "+SizeStyle.Render(humanize.IBytes(uint64(r.TotalSize()))),
		)
		return FooterBox.Render(strings.Join(parts, "  "))
	}

	s := r.Summary()
	parts = append(parts,
		statusStyles[StatusNew].Render(fmt.Sprintf("%d new", s.New)),
		statusStyles[StatusDeleted].Render(fmt.Sprintf("%d deleted", s.Deleted)),
		statusStyles[StatusModified].Render(fmt.Sprintf("%d modified", s.Modified)),
	)
	if s.TypeChanged > 0 {
		parts = append(parts, statusStyles[StatusTypeChanged].Render(fmt.Sprintf("%d type-changed", s.TypeChanged)))
	}
	if s.Total() > 0 {
		parts = append(parts, MutedStyle.Render("Use bit record to update the index"))
	}
	return FooterBox.Render(strings.Join(parts, "  "))
}

func (f *PrettyFormatter) formatWarnings(warnings []string) string {
	var sb strings.Builder
	sb.WriteString(WarningStyle.Bold(true).Render("Warnings:"))
	sb.WriteString("\n")
	for _, warning := range warnings {
		sb.WriteString(WarningStyle.Render("  " + warning))
		sb.WriteString("\n")
	}
	return sb.String()
}

func padLeft(s string, width int) string {
	if len(s) >= width {
		return s
	}
	return strings.Repeat(" ", width-len(s)) + s
}

func padRight(s string, width int) string {
	if len(s) >= width {
		return s
	}
	return s + strings.Repeat(" ", width-len(s))
}

func lastSegment(p string) string {
	if i := strings.LastIndexByte(p, '/'); i >= 0 {
		return p[i+1:]
	}
	return p
}

func init() {
	Register("pretty", func() Formatter {
		return &PrettyFormatter{}
	})
}

// Ensure PrettyFormatter implements Formatter.
var _ Formatter = (*PrettyFormatter)(nil)
