package schema

import (
	"errors"
	"fmt"
	"io"
	"sync"

	goyaml "github.com/goccy/go-yaml"
	yamlnode "go.yaml.in/yaml/v4"

	liberrors "github.com/telemetry-go/eventlog/errors"
)

// DuplicatePolicy controls what Register does when a schema is registered
// under an (id, version) pair that's already present.
type DuplicatePolicy string

const (
	// DuplicateRaise fails the registration with a SchemaConflictError. The
	// default.
	DuplicateRaise DuplicatePolicy = "raise"
	// DuplicateSkip keeps the existing entry and returns without error.
	DuplicateSkip DuplicatePolicy = "skip"
	// DuplicateAllow overwrites the existing entry with the new one.
	DuplicateAllow DuplicatePolicy = "allow"
)

// Registry owns the process-lifetime (id, version) -> Schema mapping. It is
// created empty, mutated only by Register/RegisterFromSource, and never
// invalidated by emission. Concurrent Lookup calls never block each other;
// Register calls take an exclusive lock.
type Registry struct {
	mu      sync.RWMutex
	schemas map[Key]*Schema
}

// NewRegistry returns an empty Registry, ready to accept registrations.
func NewRegistry() *Registry {
	return &Registry{schemas: make(map[Key]*Schema)}
}

// Register validates a decoded schema document's shape and adds it to the
// registry under its (id, version) key, applying policy on conflict.
func (r *Registry) Register(doc map[string]any, policy DuplicatePolicy) (*Schema, error) {
	if policy == "" {
		policy = DuplicateRaise
	}
	switch policy {
	case DuplicateRaise, DuplicateSkip, DuplicateAllow:
	default:
		return nil, &liberrors.SchemaConflictError{
			Policy: string(policy),
			Reason: "unrecognized duplicate policy, must be one of raise, skip, allow",
		}
	}

	s, err := FromDocument(doc)
	if err != nil {
		return nil, err
	}
	key := Key{ID: s.ID, Version: s.Version}

	r.mu.Lock()
	defer r.mu.Unlock()

	existing, conflict := r.schemas[key]
	if conflict {
		switch policy {
		case DuplicateRaise:
			return nil, &liberrors.SchemaConflictError{
				SchemaID: s.ID,
				Version:  s.Version,
				Policy:   string(policy),
				Reason:   "a schema is already registered under this (id, version) pair",
			}
		case DuplicateSkip:
			return existing, nil
		case DuplicateAllow:
			// fall through to overwrite below
		}
	}

	r.schemas[key] = s
	return s, nil
}

// RegisterFromSource decodes YAML-or-JSON bytes (YAML is a JSON superset, so
// one parser handles both) and delegates to Register. On a shape-validation
// failure, the returned SchemaError's Line/Column are populated by walking
// the same source a second time as a YAML node tree and locating the
// offending property.
func (r *Registry) RegisterFromSource(src io.Reader, policy DuplicatePolicy) (*Schema, error) {
	raw, err := io.ReadAll(src)
	if err != nil {
		return nil, fmt.Errorf("reading schema source: %w", err)
	}

	var doc map[string]any
	if err := goyaml.Unmarshal(raw, &doc); err != nil {
		return nil, &liberrors.SchemaError{Reason: fmt.Sprintf("source is not valid YAML/JSON: %s", err)}
	}

	s, err := r.Register(doc, policy)
	if err != nil {
		var se *liberrors.SchemaError
		if errors.As(err, &se) {
			se.Line, se.Column = locatePropertyNode(raw, se.Property)
		}
		return nil, err
	}
	return s, nil
}

// Lookup returns the schema registered under (id, version), or ok=false if
// absent.
func (r *Registry) Lookup(id string, version int) (*Schema, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	s, ok := r.schemas[Key{ID: id, Version: version}]
	return s, ok
}

// Len reports how many (id, version) entries are currently registered.
// Used by the Emitter to derive its constructed/configured/ready lifecycle
// state without tracking a redundant counter of its own.
func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.schemas)
}

// MustLookup is a convenience wrapper returning UnregisteredSchemaError in
// the shape record_event needs.
func (r *Registry) MustLookup(id string, version int) (*Schema, error) {
	s, ok := r.Lookup(id, version)
	if !ok {
		return nil, &liberrors.UnregisteredSchemaError{SchemaID: id, Version: version}
	}
	return s, nil
}

// locatePropertyNode re-parses raw as a YAML node tree and returns the
// line/column of properties.<name>, or (0, 0) if it can't be found (name
// empty, source not parseable, or the property genuinely absent — all
// non-fatal, since Line/Column are a diagnostic nicety, not load-bearing).
func locatePropertyNode(raw []byte, name string) (line, col int) {
	if name == "" {
		return 0, 0
	}
	var root yamlnode.Node
	if err := yamlnode.Unmarshal(raw, &root); err != nil {
		return 0, 0
	}
	doc := &root
	if doc.Kind == yamlnode.DocumentNode && len(doc.Content) > 0 {
		doc = doc.Content[0]
	}
	props := findMappingValue(doc, "properties")
	if props == nil {
		return 0, 0
	}
	node := findMappingValue(props, name)
	if node == nil {
		return 0, 0
	}
	return node.Line, node.Column
}

// findMappingValue returns the value node paired with key in a YAML mapping
// node, or nil if key is absent. When the value is itself a block mapping,
// its position is that of its first entry, not of the key naming it.
func findMappingValue(mapping *yamlnode.Node, key string) *yamlnode.Node {
	if mapping == nil || mapping.Kind != yamlnode.MappingNode {
		return nil
	}
	for i := 0; i+1 < len(mapping.Content); i += 2 {
		k := mapping.Content[i]
		v := mapping.Content[i+1]
		if k.Value == key {
			return v
		}
	}
	return nil
}
