// Package errors defines the uniform error taxonomy surfaced by every
// component of the telemetry library: a schema that won't compile, a
// conflicting registration, an emission against an unknown schema, an event
// that fails validation, or a configuration with unrecognized keys.
//
// Every exported type here implements error and wraps one of the sentinel
// values below, so callers can branch with errors.Is instead of a type
// switch.
package errors

import (
	"errors"
	"fmt"
)

// Sentinels. Every concrete error type below wraps exactly one of these, so
// errors.Is(err, ErrSchemaConflict) works regardless of which field values
// a particular SchemaConflictError carries.
var (
	ErrSchema             = errors.New("schema error")
	ErrSchemaConflict     = errors.New("schema conflict")
	ErrUnregisteredSchema = errors.New("unregistered schema")
	ErrValidation         = errors.New("validation error")
	ErrPolicy             = errors.New("policy error")
)

// SchemaError reports that a schema document itself is not well-formed: it
// fails JSON-Schema meta-schema validation, is missing a required top-level
// field, or violates one of the category-list invariants (I1, I2, or the
// unrestricted-must-stand-alone rule).
type SchemaError struct {
	// SchemaID is the schema's declared $id, if one could be read before the
	// failure occurred.
	SchemaID string
	// Property is the offending property name, when the failure is
	// property-scoped (missing/malformed categories, __-prefixed name).
	Property string
	// Reason is a human-readable description of what's wrong.
	Reason string
	// Line and Column locate the offending node when the schema was loaded
	// from source bytes (RegisterFromSource); zero otherwise.
	Line, Column int
}

func (e *SchemaError) Error() string {
	if e.Property != "" {
		return fmt.Sprintf("schema %q: property %q: %s", e.SchemaID, e.Property, e.Reason)
	}
	return fmt.Sprintf("schema %q: %s", e.SchemaID, e.Reason)
}

func (e *SchemaError) Unwrap() error { return ErrSchema }

// SchemaConflictError reports a registration that collided with an existing
// (id, version) entry under a duplicate policy of "raise", or that named an
// unrecognized duplicate policy token.
type SchemaConflictError struct {
	SchemaID string
	Version  int
	Policy   string
	Reason   string
}

func (e *SchemaConflictError) Error() string {
	return fmt.Sprintf("schema %q version %d: %s (policy=%q)", e.SchemaID, e.Version, e.Reason, e.Policy)
}

func (e *SchemaConflictError) Unwrap() error { return ErrSchemaConflict }

// UnregisteredSchemaError reports that record_event referenced an (id,
// version) pair absent from the registry.
type UnregisteredSchemaError struct {
	SchemaID string
	Version  int
}

func (e *UnregisteredSchemaError) Error() string {
	return fmt.Sprintf("schema %q version %d is not registered", e.SchemaID, e.Version)
}

func (e *UnregisteredSchemaError) Unwrap() error { return ErrUnregisteredSchema }

// ValidationError reports that an event instance failed to satisfy its
// schema. Reason carries the first (best-match) violation message; Location
// is its RFC 6901 JSON Pointer within the event, when known.
type ValidationError struct {
	SchemaID string
	Version  int
	Reason   string
	Location string
}

func (e *ValidationError) Error() string {
	if e.Location != "" {
		return fmt.Sprintf("event does not match schema %q version %d at %s: %s", e.SchemaID, e.Version, e.Location, e.Reason)
	}
	return fmt.Sprintf("event does not match schema %q version %d: %s", e.SchemaID, e.Version, e.Reason)
}

func (e *ValidationError) Unwrap() error { return ErrValidation }

// PolicyError reports a malformed allowed_schemas configuration: a policy
// entry containing a key this library doesn't recognize, a recognized key
// whose value has the wrong type, or a configuration value of the wrong
// shape. Key names the offending policy key, when there is one.
type PolicyError struct {
	SchemaID string
	Key      string
	Reason   string
}

func (e *PolicyError) Error() string {
	prefix := "policy"
	if e.SchemaID != "" {
		prefix = fmt.Sprintf("policy for schema %q", e.SchemaID)
	}
	if e.Key != "" {
		return fmt.Sprintf("%s: key %q: %s", prefix, e.Key, e.Reason)
	}
	return fmt.Sprintf("%s: %s", prefix, e.Reason)
}

func (e *PolicyError) Unwrap() error { return ErrPolicy }
