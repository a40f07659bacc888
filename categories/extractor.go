package categories

import (
	"sort"
	"strings"

	"github.com/telemetry-go/eventlog/schema"
)

// Annotation pairs a property's path with the category set declared on its
// schema node.
type Annotation struct {
	Path       Path
	Categories []string
}

// Extract walks event against s, returning every category annotation
// reachable via a structural walk: descending into properties (rule 1) and
// array items (rule 2), following $ref (rule 3) and allOf (rule 4, unioning
// branch results), and skipping if/not/anyOf/oneOf/then/else (rule 5) by
// simply never looking inside them.
//
// A property present in the event but absent from the schema yields no
// annotation. A property declared in the schema but absent from the event
// contributes nothing — the walk only descends where instance data exists,
// which also bounds circular $ref graphs by the event's own depth.
func Extract(event map[string]any, s *schema.Schema) map[string]Annotation {
	out := make(map[string]Annotation)
	walk(s.Raw, s.Raw, event, Path{}, out, map[string]bool{})
	return out
}

// walk applies rules 1-5 for one schema node against one instance value.
// root is the whole document, used to resolve $ref; visiting guards against
// a $ref cycle that never consumes instance data.
func walk(root, node map[string]any, instance any, path Path, out map[string]Annotation, visiting map[string]bool) {
	if node == nil {
		return
	}

	if refRaw, ok := node["$ref"]; ok {
		if ref, ok := refRaw.(string); ok {
			// Guarded by (ref, path), not ref alone: the same $ref is
			// routinely revisited at different, deeper paths in a
			// recursive schema (a tree node referencing itself), and each
			// such visit consumes real instance data. Only a ref that
			// resolves to itself without the path advancing is an actual
			// cycle.
			guardKey := ref + "@" + path.Key()
			if !visiting[guardKey] {
				if resolved := resolveRef(root, ref); resolved != nil {
					visiting[guardKey] = true
					walk(root, resolved, instance, path, out, visiting)
					delete(visiting, guardKey)
				}
			}
		}
	}

	if allOfRaw, ok := node["allOf"]; ok {
		if branches, ok := allOfRaw.([]any); ok {
			for _, branchRaw := range branches {
				if branch, ok := branchRaw.(map[string]any); ok {
					walk(root, branch, instance, path, out, visiting)
				}
			}
		}
	}

	if instMap, ok := instance.(map[string]any); ok {
		walkProperties(root, node, instMap, path, out, visiting)
	}

	if instArr, ok := instance.([]any); ok {
		walkItems(root, node, instArr, path, out, visiting)
	}
}

// walkProperties implements rule 1: for every (key, subschema) pair present
// in both schema and instance, record an annotation if the subschema
// carries categories, then recurse into the value.
func walkProperties(root, node map[string]any, instMap map[string]any, path Path, out map[string]Annotation, visiting map[string]bool) {
	propsRaw, ok := node["properties"]
	if !ok {
		return
	}
	props, ok := propsRaw.(map[string]any)
	if !ok {
		return
	}

	for _, key := range sortedKeys(props) {
		sub, ok := props[key].(map[string]any)
		if !ok {
			continue
		}
		val, present := instMap[key]
		if !present {
			continue
		}

		childPath := path.WithKey(key)
		if cats, ok := categoriesOf(sub); ok {
			mergeAnnotation(out, childPath, cats)
		}
		walk(root, sub, val, childPath, out, visiting)
	}
}

// walkItems implements rule 2: descend into items against each index of an
// array instance, applying rule 1 at parent_path + i.
func walkItems(root, node map[string]any, instArr []any, path Path, out map[string]Annotation, visiting map[string]bool) {
	itemsRaw, ok := node["items"]
	if !ok {
		return
	}
	items, ok := itemsRaw.(map[string]any)
	if !ok {
		return
	}

	for i, elem := range instArr {
		walk(root, items, elem, path.WithIndex(i), out, visiting)
	}
}

// mergeAnnotation records cats at path, unioning with any categories
// already recorded at the same path from another composition branch (e.g.
// an allOf sibling) rather than overwriting them.
func mergeAnnotation(out map[string]Annotation, path Path, cats []string) {
	key := path.Key()
	existing, ok := out[key]
	if !ok {
		out[key] = Annotation{Path: path, Categories: append([]string(nil), cats...)}
		return
	}

	seen := make(map[string]bool, len(existing.Categories))
	union := append([]string(nil), existing.Categories...)
	for _, c := range union {
		seen[c] = true
	}
	for _, c := range cats {
		if !seen[c] {
			seen[c] = true
			union = append(union, c)
		}
	}
	out[key] = Annotation{Path: path, Categories: union}
}

// categoriesOf reads a "categories" field off a schema node as a []string.
func categoriesOf(node map[string]any) ([]string, bool) {
	raw, ok := node["categories"]
	if !ok {
		return nil, false
	}
	slice, ok := raw.([]any)
	if !ok {
		return nil, false
	}
	cats := make([]string, 0, len(slice))
	for _, c := range slice {
		if s, ok := c.(string); ok {
			cats = append(cats, s)
		}
	}
	return cats, true
}

// resolveRef resolves a same-document $ref ("#/a/b/c") against root. It
// returns nil for anything it can't resolve — an external ref, a malformed
// pointer, or a pointer into a non-object — since this library only ever
// registers already-parsed, self-contained schema documents.
func resolveRef(root map[string]any, ref string) map[string]any {
	if !strings.HasPrefix(ref, "#") {
		return nil
	}
	pointer := strings.TrimPrefix(ref, "#")
	pointer = strings.TrimPrefix(pointer, "/")
	if pointer == "" {
		return root
	}

	var cur any = root
	for _, rawTok := range strings.Split(pointer, "/") {
		tok := unescapeJSONPointerToken(rawTok)
		m, ok := cur.(map[string]any)
		if !ok {
			return nil
		}
		next, ok := m[tok]
		if !ok {
			return nil
		}
		cur = next
	}
	m, _ := cur.(map[string]any)
	return m
}

func unescapeJSONPointerToken(tok string) string {
	tok = strings.ReplaceAll(tok, "~1", "/")
	tok = strings.ReplaceAll(tok, "~0", "~")
	return tok
}

func sortedKeys(m map[string]any) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
