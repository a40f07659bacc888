// Package validate provides the Schema Validator component: an abstract
// CheckSchema/Validate contract, with two independent implementations
// sharing the same uniform error taxonomy.
package validate

import (
	"github.com/telemetry-go/eventlog/schema"
)

// Validator checks that a schema document is itself well-formed JSON
// Schema, and validates event instances against a compiled schema. It does
// not extract category information — that is the categories package's job,
// even when it's built atop the same traversal machinery.
type Validator interface {
	// CheckSchema verifies that s.Raw is valid JSON Schema (Draft 7
	// semantics). Returns a *errors.SchemaError on failure.
	CheckSchema(s *schema.Schema) error

	// Validate verifies that event satisfies s. Returns a
	// *errors.ValidationError carrying the first (best-match) violation on
	// failure.
	Validate(event map[string]any, s *schema.Schema) error
}
