// Package search owns the current query of a panel and evaluates tree nodes
// against it. Results are memoized per node key until the query changes or
// the cache is invalidated.
package search

import (
	"github.com/oakwood-commons/vmscope/internal/keypath"
)

// Data is the normalized identity a node is matched by.
type Data struct {
	Name string
	ID   string
}

// NewData normalizes name and id for matching.
func NewData(name, id string) Data {
	return Data{Name: keypath.Normalize(name), ID: keypath.Normalize(id)}
}

// Match is the evaluation of one node against the current query.
type Match struct {
	Fitted               bool
	FittedByID           bool
	FittedByName         bool
	FittedByPropertyPath bool
	FittedAllProperties  bool
	// FullFittedProperty is the first property matching its segment exactly.
	FullFittedProperty string
	FittedProperties   []string
	// PropertySegment is the segment index direct properties are matched
	// against. It equals the segment count for drill-in matches and is -1
	// while the query is inactive.
	PropertySegment int
}

var inactive = Match{Fitted: true, PropertySegment: -1}

// Engine evaluates nodes against a query. It is not safe for concurrent use.
type Engine struct {
	query      keypath.Query
	cache      map[string]Match
	fittedKeys map[string]bool
}

// New returns an engine with an inactive query.
func New() *Engine {
	e := &Engine{}
	e.reset()
	return e
}

func (e *Engine) reset() {
	e.cache = make(map[string]Match)
	e.fittedKeys = make(map[string]bool)
}

// SetQuery parses raw and reports whether the normalized query changed.
// The memoized results are cleared when it did.
func (e *Engine) SetQuery(raw string) bool {
	q := keypath.Parse(raw)
	changed := q.Normalized != e.query.Normalized
	e.query = q
	if changed {
		e.reset()
	}
	return changed
}

// Query returns the parsed query.
func (e *Engine) Query() keypath.Query { return e.query }

// Active reports whether a query is set.
func (e *Engine) Active() bool { return e.query.Active() }

// Segments returns the query segments.
func (e *Engine) Segments() []string { return e.query.Segments }

// Invalidate drops memoized results without changing the query.
func (e *Engine) Invalidate() { e.reset() }

// HasFitted reports whether the node with key matched by id or name.
func (e *Engine) HasFitted(key string) bool { return e.fittedKeys[key] }

// MatchNode evaluates a node identified by key with identity data and its
// direct property names.
func (e *Engine) MatchNode(key string, data Data, properties []string) Match {
	if !e.Active() {
		return inactive
	}
	if m, ok := e.cache[key]; ok {
		return m
	}

	segments := e.query.Segments
	if len(segments) == 0 {
		// Only a lone '.' reaches here; nothing to match against.
		m := Match{PropertySegment: len(segments)}
		e.cache[key] = m
		return m
	}
	s0 := segments[0]
	exact := len(segments) > 1

	var m Match
	m.FittedByID = data.ID != "" && keypath.Matches(data.ID, s0, exact)
	m.FittedByName = keypath.Matches(data.Name, s0, exact)
	matched := m.FittedByID || m.FittedByName
	if matched {
		e.fittedKeys[key] = true
	}

	switch {
	case matched && exact:
		m.PropertySegment = 1
	case !matched:
		m.PropertySegment = 0
	default:
		m.PropertySegment = len(segments)
		m.FittedAllProperties = true
		m.FittedProperties = append([]string(nil), properties...)
	}

	if !m.FittedAllProperties {
		seg := segments[m.PropertySegment]
		for _, p := range properties {
			np := keypath.Normalize(p)
			if np == seg {
				if m.FullFittedProperty == "" {
					m.FullFittedProperty = p
				}
				m.FittedProperties = append(m.FittedProperties, p)
				continue
			}
			if keypath.Matches(np, seg, false) {
				m.FittedProperties = append(m.FittedProperties, p)
			}
		}
		m.FittedByPropertyPath = len(m.FittedProperties) > 0
	}

	m.Fitted = matched || m.FittedByPropertyPath
	e.cache[key] = m
	return m
}

// PropertyFitted reports whether a property named prop fits, given the match
// of the node owning it. level is the nesting depth below the owner, 1 for
// direct properties. chain lists the keys of the owner and its ancestors.
//
// Callers must check the parent property first; a nested property only fits
// under a fitted parent.
func (e *Engine) PropertyFitted(owner Match, level int, prop string, chain []string) bool {
	if !e.Active() {
		return true
	}
	if level <= 1 {
		for _, p := range owner.FittedProperties {
			if p == prop {
				return true
			}
		}
		return false
	}
	idx := owner.PropertySegment + level - 1
	if seg, ok := e.query.Segment(idx); ok {
		return keypath.Matches(keypath.Normalize(prop), seg, false)
	}
	// Drill-in below a matched path only counts when something in the
	// ancestry matched by id or name.
	return e.anyFitted(chain)
}

// Deeper reports whether a segment remains to be matched by the children of
// a property nested level deep below an owner with match m.
func (e *Engine) Deeper(owner Match, level int) bool {
	if !e.Active() || owner.PropertySegment < 0 {
		return false
	}
	_, ok := e.query.Segment(owner.PropertySegment + level)
	return ok
}

func (e *Engine) anyFitted(chain []string) bool {
	for _, k := range chain {
		if e.fittedKeys[k] {
			return true
		}
	}
	return false
}
