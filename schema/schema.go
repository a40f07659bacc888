// Package schema defines the Schema document type and the registry that
// owns the (id, version) -> Schema mapping. Shape validation lives here too:
// a schema is rejected at registration time, never at emission time, if it
// violates the library's category-list invariants.
package schema

import (
	"encoding/json"
	"fmt"
	"sort"

	liberrors "github.com/telemetry-go/eventlog/errors"
)

// UnrestrictedCategory is the distinguished category token that must stand
// alone on any property that carries it; properties tagged with it are
// always emitted regardless of policy.
const UnrestrictedCategory = "unrestricted"

// Schema is an immutable, already-decoded JSON-Schema-compatible document.
// It carries the two custom extensions this library requires: a top-level
// integer version and, on every direct property, a non-empty categories
// list.
type Schema struct {
	// ID is the schema's $id.
	ID string
	// Version identifies this revision of the schema under ID.
	Version int
	// Raw is the full decoded document, unmodified, as produced by
	// json.Unmarshal or a YAML decode. It is what gets handed to a
	// Validator for compilation.
	Raw map[string]any
}

// Key identifies a Schema by its (id, version) pair.
type Key struct {
	ID      string
	Version int
}

func (k Key) String() string { return fmt.Sprintf("%s@%d", k.ID, k.Version) }

// FromDocument builds a Schema from an already-decoded JSON/YAML document
// (a map[string]any, as produced by encoding/json or goccy/go-yaml), after
// validating its shape. It does not consult a Validator — check_schema-level
// JSON-Schema-meta-schema validation is the Validator's job (component A);
// this function enforces only this library's own required fields and the
// category-list invariants (I1, I2, the unrestricted-alone rule).
func FromDocument(doc map[string]any) (*Schema, error) {
	id, ok := doc["$id"].(string)
	if !ok || id == "" {
		return nil, &liberrors.SchemaError{Reason: `schema is missing required field "$id"`}
	}

	versionRaw, ok := doc["version"]
	if !ok {
		return nil, &liberrors.SchemaError{SchemaID: id, Reason: `schema is missing required field "version"`}
	}
	version, ok := asInt(versionRaw)
	if !ok {
		return nil, &liberrors.SchemaError{SchemaID: id, Reason: `schema field "version" must be an integer`}
	}

	propertiesRaw, ok := doc["properties"]
	if !ok {
		return nil, &liberrors.SchemaError{SchemaID: id, Reason: `schema is missing required field "properties"`}
	}
	properties, ok := propertiesRaw.(map[string]any)
	if !ok {
		return nil, &liberrors.SchemaError{SchemaID: id, Reason: `schema field "properties" must be an object`}
	}

	for _, name := range sortedKeys(properties) {
		sub, ok := properties[name].(map[string]any)
		if !ok {
			return nil, &liberrors.SchemaError{SchemaID: id, Property: name, Reason: "property schema must be an object"}
		}
		if err := validateDirectProperty(id, name, sub); err != nil {
			return nil, err
		}
	}

	return &Schema{ID: id, Version: version, Raw: doc}, nil
}

// validateDirectProperty enforces I1 (non-empty categories on every direct
// property), I2 (no __-prefixed property names) and the unrestricted-alone
// rule on a single top-level property schema node.
func validateDirectProperty(schemaID, name string, sub map[string]any) error {
	if len(name) >= 2 && name[:2] == "__" {
		return &liberrors.SchemaError{
			SchemaID: schemaID,
			Property: name,
			Reason:   "property names beginning with __ are reserved for the envelope and not allowed",
		}
	}

	catsRaw, ok := sub["categories"]
	if !ok {
		return &liberrors.SchemaError{
			SchemaID: schemaID,
			Property: name,
			Reason:   `every direct property must have a "categories" field describing the type of data being collected`,
		}
	}

	catsSlice, ok := catsRaw.([]any)
	if !ok {
		return &liberrors.SchemaError{
			SchemaID: schemaID,
			Property: name,
			Reason:   `the "categories" field must be a list`,
		}
	}

	cats := make([]string, 0, len(catsSlice))
	for _, c := range catsSlice {
		s, ok := c.(string)
		if !ok {
			return &liberrors.SchemaError{
				SchemaID: schemaID,
				Property: name,
				Reason:   `the "categories" field must be a list of strings`,
			}
		}
		cats = append(cats, s)
	}
	if len(cats) == 0 {
		return &liberrors.SchemaError{
			SchemaID: schemaID,
			Property: name,
			Reason:   `the "categories" field must not be empty`,
		}
	}

	hasUnrestricted := false
	for _, c := range cats {
		if c == UnrestrictedCategory {
			hasUnrestricted = true
			break
		}
	}
	if hasUnrestricted && len(cats) > 1 {
		return &liberrors.SchemaError{
			SchemaID: schemaID,
			Property: name,
			Reason: "`unrestricted` is a special category and must be the only entry in categories; " +
				"properties tagged unrestricted are always emitted in full",
		}
	}

	return nil
}

func asInt(v any) (int, bool) {
	switch n := v.(type) {
	case int:
		return n, true
	case int64:
		return int(n), true
	case uint:
		return int(n), true
	case uint64:
		return int(n), true
	case float64:
		if n != float64(int(n)) {
			return 0, false
		}
		return int(n), true
	case json.Number:
		i, err := n.Int64()
		if err != nil {
			return 0, false
		}
		return int(i), true
	default:
		return 0, false
	}
}

func sortedKeys(m map[string]any) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
