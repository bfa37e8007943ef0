// Package ignore matches repository-relative paths against glob patterns to
// exclude them from the physical snapshot.
//
// Patterns use gitignore-like rules:
//   - blank lines and lines starting with '#' are skipped
//   - a trailing '/' matches directories only
//   - a pattern without '/' matches the base name at any depth
//   - a pattern with '/' (or a leading '/') matches the whole path
//   - '*' does not cross '/', '**' does
//   - a leading '!' re-includes a path excluded by an earlier pattern
package ignore

import (
	"errors"
	"fmt"
	"path"
	"strings"

	"github.com/gobwas/glob"
)

// ErrInvalidPattern is returned when a pattern does not compile.
var ErrInvalidPattern = errors.New("invalid ignore pattern")

type rule struct {
	raw      string
	g        glob.Glob
	dirOnly  bool
	fullPath bool
	negate   bool
}

// Matcher holds compiled ignore rules. A nil Matcher matches nothing.
type Matcher struct {
	rules []rule
}

// New compiles patterns into a Matcher.
func New(patterns ...string) (*Matcher, error) {
	m := &Matcher{}
	for _, p := range patterns {
		r, ok, err := compile(p)
		if err != nil {
			return nil, err
		}
		if ok {
			m.rules = append(m.rules, r)
		}
	}
	return m, nil
}

// Parse reads patterns one per line, as found in an ignore file.
func Parse(text string) (*Matcher, error) {
	return New(strings.Split(strings.ReplaceAll(text, "\r\n", "\n"), "\n")...)
}

func compile(p string) (rule, bool, error) {
	raw := p
	p = strings.TrimSpace(p)
	if p == "" || strings.HasPrefix(p, "#") {
		return rule{}, false, nil
	}

	r := rule{raw: raw}
	if strings.HasPrefix(p, "!") {
		r.negate = true
		p = p[1:]
	}
	if strings.HasSuffix(p, "/") {
		r.dirOnly = true
		p = strings.TrimRight(p, "/")
	}
	if strings.Contains(p, "/") {
		r.fullPath = true
		p = strings.TrimPrefix(p, "/")
	}
	if p == "" {
		return rule{}, false, fmt.Errorf("%w: %q", ErrInvalidPattern, raw)
	}

	g, err := glob.Compile(p, '/')
	if err != nil {
		return rule{}, false, fmt.Errorf("%w: %q: %w", ErrInvalidPattern, raw, err)
	}
	r.g = g
	return r, true, nil
}

// Match reports whether rel, a slash-separated path relative to the
// repository root, is ignored. The last matching rule wins.
func (m *Matcher) Match(rel string, isDir bool) bool {
	if m == nil {
		return false
	}

	rel = strings.Trim(rel, "/")
	base := path.Base(rel)

	ignored := false
	for _, r := range m.rules {
		if r.dirOnly && !isDir {
			continue
		}
		subject := base
		if r.fullPath {
			subject = rel
		}
		if r.g.Match(subject) {
			ignored = !r.negate
		}
	}
	return ignored
}

// Patterns returns the source patterns of the compiled rules.
func (m *Matcher) Patterns() []string {
	if m == nil {
		return nil
	}
	out := make([]string, len(m.rules))
	for i, r := range m.rules {
		out[i] = r.raw
	}
	return out
}

// Len returns the number of compiled rules.
func (m *Matcher) Len() int {
	if m == nil {
		return 0
	}
	return len(m.rules)
}
