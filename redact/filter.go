// Package redact implements the Redaction Filter component: given category
// annotations and a policy, it produces a redacted deep copy of an event,
// nulling disallowed values without ever touching the caller's original.
package redact

import (
	"encoding/json"
	"sort"

	"github.com/telemetry-go/eventlog/categories"
)

// Apply returns a redacted deep copy of event. allowedCategories and
// allowedProperties are sets: a member is a key mapped to true (a key
// mapped to false counts as absent). The caller's event is never mutated
// (F6/I5) and the shape of the result equals the shape of event — no key is
// ever deleted, only nulled (I4).
func Apply(event map[string]any, annotations map[string]categories.Annotation, allowedCategories, allowedProperties map[string]bool) map[string]any {
	out := deepCopy(event)

	topAnnotated := make(map[string]bool)
	for _, ann := range annotations {
		if len(ann.Path) == 1 {
			if head, ok := ann.Path.Head(); ok {
				topAnnotated[head] = true
			}
		}
	}

	// F1: top-level properties the schema never annotated are nulled
	// outright — F2 only applies where there is an annotation to check.
	for key := range out {
		if !topAnnotated[key] {
			out[key] = nil
		}
	}

	// F2/F3, parent-before-child (F4 tie-break is safe either order, but
	// shallow-first is the natural, deterministic choice).
	sorted := sortedAnnotations(annotations)
	for _, ann := range sorted {
		if allowed(ann, allowedCategories, allowedProperties) {
			continue
		}
		nullAt(out, ann.Path)
	}

	return out
}

// allowed implements F2: a property passes either because its full
// category set is a subset of allowedCategories, or because its top-level
// ancestor is in allowedProperties.
func allowed(ann categories.Annotation, allowedCategories, allowedProperties map[string]bool) bool {
	if head, ok := ann.Path.Head(); ok && allowedProperties[head] {
		return true
	}
	for _, c := range ann.Categories {
		if !allowedCategories[c] {
			return false
		}
	}
	return true
}

// nullAt sets the value at path to nil within root. A missing or
// already-nil parent (F4: an ancestor was already nulled by an earlier,
// shallower pass) is detected and silently skipped rather than treated as
// an error.
func nullAt(root any, path categories.Path) {
	if len(path) == 0 {
		return
	}
	parent, ok := navigateToParent(root, path[:len(path)-1])
	if !ok {
		return
	}
	switch last := path[len(path)-1].(type) {
	case string:
		m, ok := parent.(map[string]any)
		if !ok {
			return
		}
		if _, exists := m[last]; exists {
			m[last] = nil
		}
	case int:
		arr, ok := parent.([]any)
		if !ok || last < 0 || last >= len(arr) {
			return
		}
		arr[last] = nil
	}
}

// navigateToParent walks root through the given prefix of path segments,
// returning false the moment it hits a missing key, an out-of-range index,
// or a nil value standing in for an already-redacted subtree.
func navigateToParent(root any, prefix categories.Path) (any, bool) {
	cur := root
	for _, seg := range prefix {
		switch s := seg.(type) {
		case string:
			m, ok := cur.(map[string]any)
			if !ok {
				return nil, false
			}
			v, exists := m[s]
			if !exists || v == nil {
				return nil, false
			}
			cur = v
		case int:
			arr, ok := cur.([]any)
			if !ok || s < 0 || s >= len(arr) || arr[s] == nil {
				return nil, false
			}
			cur = arr[s]
		}
	}
	return cur, true
}

// sortedAnnotations orders annotations shallowest-path-first so a parent is
// always nulled before its children are considered (F4).
func sortedAnnotations(annotations map[string]categories.Annotation) []categories.Annotation {
	out := make([]categories.Annotation, 0, len(annotations))
	for _, ann := range annotations {
		out = append(out, ann)
	}
	sort.Slice(out, func(i, j int) bool {
		if len(out[i].Path) != len(out[j].Path) {
			return len(out[i].Path) < len(out[j].Path)
		}
		return out[i].Path.String() < out[j].Path.String()
	})
	return out
}

// deepCopy clones event via a JSON marshal/unmarshal round trip — the same
// idiom the retrieved corpus uses elsewhere for document cloning — so the
// redacted copy shares no backing maps/slices with the caller's original.
func deepCopy(event map[string]any) map[string]any {
	raw, err := json.Marshal(event)
	if err != nil {
		// event was produced by the caller and has already passed schema
		// validation by the time the filter runs; a marshal failure here
		// means it contains a value encoding/json cannot represent (e.g. a
		// channel or func), which schema validation itself would not have
		// caught. Fall back to a shallow copy rather than lose the event.
		out := make(map[string]any, len(event))
		for k, v := range event {
			out[k] = v
		}
		return out
	}
	var out map[string]any
	if err := json.Unmarshal(raw, &out); err != nil {
		out = make(map[string]any, len(event))
		for k, v := range event {
			out[k] = v
		}
	}
	return out
}
