package tree

import "strings"

// SplitPath splits a slash-separated path into its non-empty segments.
// Leading, trailing and repeated slashes produce no segments.
func SplitPath(path string) []string {
	return strings.FieldsFunc(path, func(r rune) bool { return r == '/' })
}

// Lookup resolves path to a node, matching each segment against child names
// case-insensitively. A path without segments does not resolve: the root is
// not content.
func (t *Tree) Lookup(path string) (NodeID, bool) {
	parts := SplitPath(path)
	if len(parts) == 0 {
		return None, false
	}

	cur := Root
	for _, part := range parts {
		child, ok := t.FindChild(cur, part)
		if !ok {
			return None, false
		}
		cur = child
	}
	return cur, true
}

// Find returns the entry at path. See Lookup for the matching rules.
func (t *Tree) Find(path string) (Entry, bool) {
	id, ok := t.Lookup(path)
	if !ok {
		return Entry{}, false
	}
	return t.Entry(id), true
}
