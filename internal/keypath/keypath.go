// Package keypath tokenizes free-text search queries into dot-delimited
// segments and matches names, ids and property names against them.
package keypath

import (
	"strings"
	"unicode"
)

// Query is a parsed search query.
type Query struct {
	Raw        string
	Normalized string   // trimmed and lower-cased Raw
	Segments   []string // lower-cased, never empty strings
	// Strict is set when the query starts with '.'. It is recorded but does
	// not yet change matching.
	Strict bool
}

// Parse tokenizes raw in a single left-to-right scan.
//
// Whitespace is dropped without ending a segment. A '.' ends the current
// segment; a new one is opened only once a real character arrives, so runs
// of dots and spaces never produce empty segments. Brackets are literal.
func Parse(raw string) Query {
	q := Query{Raw: raw, Normalized: Normalize(raw)}
	if q.Normalized == "" {
		return q
	}

	startNext := true
	var cur *strings.Builder
	var segments []*strings.Builder
	for i, r := range raw {
		if i == 0 && r == '.' {
			q.Strict = true
			continue
		}
		if unicode.IsSpace(r) {
			continue
		}
		if r == '.' {
			startNext = true
			continue
		}
		if startNext {
			cur = &strings.Builder{}
			segments = append(segments, cur)
			startNext = false
		}
		cur.WriteRune(unicode.ToLower(r))
	}

	q.Segments = make([]string, len(segments))
	for i, b := range segments {
		q.Segments[i] = b.String()
	}
	return q
}

// Active reports whether the query filters anything.
func (q Query) Active() bool {
	return q.Normalized != ""
}

// Segment returns the i-th segment, if present.
func (q Query) Segment(i int) (string, bool) {
	if i < 0 || i >= len(q.Segments) {
		return "", false
	}
	return q.Segments[i], true
}

// Normalize lower-cases and trims s for comparisons.
func Normalize(s string) string {
	return strings.ToLower(strings.TrimSpace(s))
}

// Matches tests candidate against segment. Both must already be normalized.
func Matches(candidate, segment string, exact bool) bool {
	if exact {
		return candidate == segment
	}
	return strings.HasPrefix(candidate, segment)
}
