package output

import (
	"bytes"
	"encoding/json"
)

// document is the structure written by the json and yaml formatters.
type document struct {
	Meta    meta        `json:"meta" yaml:"meta"`
	Changes []Change    `json:"changes,omitempty" yaml:"changes,omitempty"`
	Entries []EntryInfo `json:"entries,omitempty" yaml:"entries,omitempty"`
}

type meta struct {
	View     View     `json:"view" yaml:"view"`
	Root     string   `json:"root" yaml:"root"`
	Index    string   `json:"index" yaml:"index"`
	HasIndex bool     `json:"has_index" yaml:"has_index"`
	Summary  *Summary `json:"summary,omitempty" yaml:"summary,omitempty"`
	Total    int64    `json:"total_size,omitempty" yaml:"total_size,omitempty"`
	Warnings []string `json:"warnings,omitempty" yaml:"warnings,omitempty"`
}

func buildDocument(r *Result) document {
	doc := document{
		Meta: meta{
			View:     r.View,
			Root:     r.Root,
			Index:    r.Index,
			HasIndex: r.HasIndex,
			Warnings: r.Warnings,
		},
	}
	if r.View == ViewList {
		doc.Entries = r.Entries
		doc.Meta.Total = r.TotalSize()
		return doc
	}
	s := r.Summary()
	doc.Meta.Summary = &s
	doc.Changes = r.Changes
	return doc
}

// JSONFormatter formats output as a single indented JSON object.
type JSONFormatter struct{}

// Format writes the formatted output to the buffer.
func (f *JSONFormatter) Format(w *bytes.Buffer, r *Result) error {
	encoder := json.NewEncoder(w)
	encoder.SetIndent("", "  ")
	return encoder.Encode(buildDocument(r))
}

func init() {
	Register("json", func() Formatter {
		return &JSONFormatter{}
	})
}

// Ensure JSONFormatter implements Formatter.
var _ Formatter = (*JSONFormatter)(nil)
