package validate

import (
	"fmt"
	"sync"

	liberrors "github.com/telemetry-go/eventlog/errors"
	"github.com/telemetry-go/eventlog/schema"
)

// CompiledValidator is the fast-path Validator implementation. It precompiles
// a tree of validation closures once per schema — type checks, required-key
// checks, and recursive descent into nested object/array schemas — and
// reuses that tree on every subsequent Validate call, skipping the general
// Draft-7 evaluation machinery JSONSchemaValidator runs on every call.
//
// It supports the subset of JSON Schema this library's own schema documents
// actually need for instance validation: type, required, properties, items,
// enum and additionalProperties. It does not resolve $ref, allOf, anyOf,
// oneOf, if/then/else, or format/pattern assertions — schemas relying on
// those for *validation* (as opposed to *category extraction*, which the
// categories package handles separately and does resolve $ref/allOf) should
// use JSONSchemaValidator instead. This mirrors the original's
// FastJSONSchemaValidator/JSONSchemaValidator duality: the fast path trades
// completeness for speed on the common case.
type CompiledValidator struct {
	mu       sync.Mutex
	compiled map[schema.Key]checkFunc
}

// checkFunc validates a single decoded JSON value against a precompiled node
// and returns a violation path + message, or ("", "") on success.
type checkFunc func(v any, path string) (failPath, reason string)

// NewCompiledValidator returns a CompiledValidator.
func NewCompiledValidator() *CompiledValidator {
	return &CompiledValidator{compiled: make(map[schema.Key]checkFunc)}
}

// CheckSchema verifies that s compiles under this validator's supported
// subset: every type/items/properties node must have a recognizable shape.
func (v *CompiledValidator) CheckSchema(s *schema.Schema) error {
	_, err := v.compile(s)
	return err
}

// Validate runs event through s's precompiled check tree.
func (v *CompiledValidator) Validate(event map[string]any, s *schema.Schema) error {
	check, err := v.compile(s)
	if err != nil {
		return err
	}
	if failPath, reason := check(event, ""); reason != "" {
		return &liberrors.ValidationError{SchemaID: s.ID, Version: s.Version, Reason: reason, Location: failPath}
	}
	return nil
}

func (v *CompiledValidator) compile(s *schema.Schema) (checkFunc, error) {
	key := schema.Key{ID: s.ID, Version: s.Version}

	v.mu.Lock()
	defer v.mu.Unlock()

	if cached, ok := v.compiled[key]; ok {
		return cached, nil
	}

	check, err := compileNode(s.Raw)
	if err != nil {
		return nil, &liberrors.SchemaError{SchemaID: s.ID, Reason: err.Error()}
	}
	v.compiled[key] = check
	return check, nil
}

// compileNode builds a checkFunc for one schema node (a top-level schema or
// any properties/items subschema).
func compileNode(node map[string]any) (checkFunc, error) {
	var typeChecks []string
	if raw, ok := node["type"]; ok {
		switch t := raw.(type) {
		case string:
			typeChecks = []string{t}
		case []any:
			for _, e := range t {
				s, ok := e.(string)
				if !ok {
					return nil, fmt.Errorf(`"type" entries must be strings`)
				}
				typeChecks = append(typeChecks, s)
			}
		default:
			return nil, fmt.Errorf(`"type" must be a string or list of strings`)
		}
	}

	var required []string
	if raw, ok := node["required"]; ok {
		reqSlice, ok := raw.([]any)
		if !ok {
			return nil, fmt.Errorf(`"required" must be a list`)
		}
		for _, e := range reqSlice {
			s, ok := e.(string)
			if !ok {
				return nil, fmt.Errorf(`"required" entries must be strings`)
			}
			required = append(required, s)
		}
	}

	propertyChecks := map[string]checkFunc{}
	if raw, ok := node["properties"]; ok {
		props, ok := raw.(map[string]any)
		if !ok {
			return nil, fmt.Errorf(`"properties" must be an object`)
		}
		for name, sub := range props {
			subNode, ok := sub.(map[string]any)
			if !ok {
				return nil, fmt.Errorf("property %q schema must be an object", name)
			}
			check, err := compileNode(subNode)
			if err != nil {
				return nil, fmt.Errorf("property %q: %w", name, err)
			}
			propertyChecks[name] = check
		}
	}

	var itemsCheck checkFunc
	if raw, ok := node["items"]; ok {
		itemsNode, ok := raw.(map[string]any)
		if !ok {
			return nil, fmt.Errorf(`"items" must be an object`)
		}
		check, err := compileNode(itemsNode)
		if err != nil {
			return nil, fmt.Errorf("items: %w", err)
		}
		itemsCheck = check
	}

	var enum []any
	if raw, ok := node["enum"]; ok {
		enumSlice, ok := raw.([]any)
		if !ok {
			return nil, fmt.Errorf(`"enum" must be a list`)
		}
		enum = enumSlice
	}

	additionalPropertiesFalse := false
	if raw, ok := node["additionalProperties"]; ok {
		if b, ok := raw.(bool); ok && !b {
			additionalPropertiesFalse = true
		}
	}

	return func(v any, path string) (string, string) {
		if len(typeChecks) > 0 && !matchesAnyType(v, typeChecks) {
			return path, fmt.Sprintf("value does not match type %v", typeChecks)
		}

		if len(enum) > 0 && !inEnum(v, enum) {
			return path, "value is not one of the enumerated values"
		}

		switch vv := v.(type) {
		case map[string]any:
			for _, name := range required {
				if _, ok := vv[name]; !ok {
					return path + "/" + name, fmt.Sprintf("missing required property %q", name)
				}
			}
			for name, check := range propertyChecks {
				val, ok := vv[name]
				if !ok {
					continue
				}
				if failPath, reason := check(val, path+"/"+name); reason != "" {
					return failPath, reason
				}
			}
			if additionalPropertiesFalse {
				for name := range vv {
					if _, declared := propertyChecks[name]; !declared {
						return path + "/" + name, fmt.Sprintf("additional property %q is not allowed", name)
					}
				}
			}
		case []any:
			if itemsCheck != nil {
				for i, elem := range vv {
					elemPath := fmt.Sprintf("%s/%d", path, i)
					if failPath, reason := itemsCheck(elem, elemPath); reason != "" {
						return failPath, reason
					}
				}
			}
		}

		return "", ""
	}, nil
}

func matchesAnyType(v any, types []string) bool {
	for _, t := range types {
		if matchesType(v, t) {
			return true
		}
	}
	return false
}

func matchesType(v any, t string) bool {
	switch t {
	case "object":
		_, ok := v.(map[string]any)
		return ok
	case "array":
		_, ok := v.([]any)
		return ok
	case "string":
		_, ok := v.(string)
		return ok
	case "boolean":
		_, ok := v.(bool)
		return ok
	case "null":
		return v == nil
	case "integer":
		switch n := v.(type) {
		case float64:
			return n == float64(int64(n))
		case int, int64:
			return true
		}
		return false
	case "number":
		switch v.(type) {
		case float64, int, int64:
			return true
		}
		return false
	default:
		return true
	}
}

func inEnum(v any, enum []any) bool {
	for _, e := range enum {
		if equalJSON(v, e) {
			return true
		}
	}
	return false
}

func equalJSON(a, b any) bool {
	switch av := a.(type) {
	case map[string]any:
		bv, ok := b.(map[string]any)
		if !ok || len(av) != len(bv) {
			return false
		}
		for k, v := range av {
			if !equalJSON(v, bv[k]) {
				return false
			}
		}
		return true
	case []any:
		bv, ok := b.([]any)
		if !ok || len(av) != len(bv) {
			return false
		}
		for i := range av {
			if !equalJSON(av[i], bv[i]) {
				return false
			}
		}
		return true
	default:
		return a == b
	}
}
