// Package categories implements the Category Extractor component: the
// structural walk over a schema+instance pair that yields a (path,
// categories) annotation for every property carrying a declared category
// set, including through $ref, allOf, and array items.
package categories

import (
	"strconv"
	"strings"

	"github.com/go-openapi/jsonpointer"
)

// Path is a sequence of alternating object keys (string) and array indices
// (int) from the event root to an annotated property. It is the Go analogue
// of the original implementation's tuple-of-absolute-path-plus-property.
type Path []any

// WithKey returns a new Path with an object-key segment appended. Path
// values are never mutated in place; Extract relies on this to build
// sibling paths off a shared prefix without aliasing.
func (p Path) WithKey(key string) Path {
	out := make(Path, len(p)+1)
	copy(out, p)
	out[len(p)] = key
	return out
}

// WithIndex returns a new Path with an array-index segment appended.
func (p Path) WithIndex(i int) Path {
	out := make(Path, len(p)+1)
	copy(out, p)
	out[len(p)] = i
	return out
}

// String renders p as an RFC 6901 JSON Pointer, escaping each object-key
// segment the same way helpers.EscapeJSONPointerSegment does in the teacher
// codebase.
func (p Path) String() string {
	if len(p) == 0 {
		return ""
	}
	var b strings.Builder
	for _, seg := range p {
		b.WriteByte('/')
		switch s := seg.(type) {
		case string:
			b.WriteString(jsonpointer.Escape(s))
		case int:
			b.WriteString(strconv.Itoa(s))
		}
	}
	return b.String()
}

// Key returns a comparable map key for p, since []any / Path values aren't
// themselves comparable. Annotation maps are keyed by this string form.
func (p Path) Key() string { return p.String() }

// Head returns the root segment of p (path[0] in spec.md's notation) and
// whether p is non-empty. For a top-level property this is always that
// property's name.
func (p Path) Head() (string, bool) {
	if len(p) == 0 {
		return "", false
	}
	s, ok := p[0].(string)
	return s, ok
}
