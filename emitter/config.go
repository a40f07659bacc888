// Package emitter implements the Event Emitter component: it orchestrates
// the allow-list check, schema lookup, validation, category extraction,
// redaction, envelope construction and sink fan-out that together make up
// record_event.
package emitter

import (
	"fmt"
	"log/slog"

	liberrors "github.com/telemetry-go/eventlog/errors"
	"github.com/telemetry-go/eventlog/schema"
	"github.com/telemetry-go/eventlog/sink"
	"github.com/telemetry-go/eventlog/validate"
)

// SchemaPolicy is the per-schema policy entry in allowed_schemas: the set
// of categories allowed through in full, and the set of top-level property
// names whitelisted regardless of category.
type SchemaPolicy struct {
	AllowedCategories []string
	AllowedProperties []string
}

// Config holds the Emitter's configuration surface (spec.md §4.E): the
// sinks to fan out to and the allowed_schemas policy map. It's built with
// the same functional-options pattern the teacher codebase uses for its own
// ValidationOptions.
type Config struct {
	Sinks          []sink.Sink
	AllowedSchemas map[string]SchemaPolicy
	Registry       *schema.Registry
	Validator      validate.Validator
	Logger         *slog.Logger

	err error
}

// Option mutates a Config under construction, following the teacher's
// With... fluent-options convention.
type Option func(*Config)

// NewConfig builds a Config with defaults (an empty registry, the
// reference JSONSchemaValidator, a discarding-by-default logger) and
// applies opts in order. Any Option that recorded a configuration error
// (WithAllowedSchemasConfig on malformed input) surfaces that error here.
func NewConfig(opts ...Option) (*Config, error) {
	c := &Config{
		AllowedSchemas: map[string]SchemaPolicy{},
	}
	for _, opt := range opts {
		if opt != nil {
			opt(c)
		}
	}
	if c.err != nil {
		return nil, c.err
	}
	if c.Registry == nil {
		c.Registry = schema.NewRegistry()
	}
	if c.Validator == nil {
		c.Validator = validate.NewJSONSchemaValidator(nil)
	}
	if c.Logger == nil {
		c.Logger = slog.New(slog.NewJSONHandler(discardWriter{}, nil))
	}
	return c, nil
}

// WithSinks sets the ordered list of sinks record_event fans out to.
// Passing no sinks at all (the default) makes record_event a silent no-op,
// per spec.md §4.E.
func WithSinks(sinks ...sink.Sink) Option {
	return func(c *Config) { c.Sinks = sinks }
}

// WithAllowedSchemas sets allowed_schemas using the typed Go form.
func WithAllowedSchemas(policies map[string]SchemaPolicy) Option {
	return func(c *Config) {
		if policies == nil {
			policies = map[string]SchemaPolicy{}
		}
		c.AllowedSchemas = policies
	}
}

// WithAllowedSchemasConfig sets allowed_schemas from the external
// configuration surface described in spec.md §6: either a bare list of
// schema ids (normalized to the default policy, allowed_categories empty,
// allowed_properties empty — "unrestricted" is unioned in at emission
// time, not stored here) or a map from id to an explicit policy object.
// Unknown keys in a policy object are rejected with a PolicyError, which
// NewConfig surfaces once all options have been applied.
func WithAllowedSchemasConfig(raw any) Option {
	return func(c *Config) {
		parsed, err := ParseAllowedSchemasConfig(raw)
		if err != nil {
			c.err = err
			return
		}
		c.AllowedSchemas = parsed
	}
}

// WithRegistry overrides the schema registry the emitter looks schemas up
// in. Mostly useful for tests that want to share a registry across
// multiple emitters, or pre-populate one before construction.
func WithRegistry(r *schema.Registry) Option {
	return func(c *Config) { c.Registry = r }
}

// WithValidator overrides the Validator used to validate events against
// their schema (e.g. swapping in validate.NewCompiledValidator() for the
// fast path).
func WithValidator(v validate.Validator) Option {
	return func(c *Config) { c.Validator = v }
}

// WithLogger sets the Emitter's private logger. Each Emitter must own a
// distinct logger — this is never shared globally across instances, so
// passing the same *slog.Logger to two Emitters is the caller's choice,
// not something the library does implicitly.
func WithLogger(l *slog.Logger) Option {
	return func(c *Config) { c.Logger = l }
}

// ParseAllowedSchemasConfig normalizes the external allowed_schemas
// configuration surface (spec.md §6) into the typed map NewConfig and the
// Emitter use internally.
func ParseAllowedSchemasConfig(raw any) (map[string]SchemaPolicy, error) {
	out := map[string]SchemaPolicy{}

	switch v := raw.(type) {
	case nil:
		return out, nil
	case []any:
		// Legacy list form: [id1, id2, ...], normalized to {id: {}}.
		for _, idRaw := range v {
			id, ok := idRaw.(string)
			if !ok {
				return nil, &liberrors.PolicyError{Reason: fmt.Sprintf("allowed_schemas list entries must be strings, got %T", idRaw)}
			}
			out[id] = SchemaPolicy{}
		}
		return out, nil
	case []string:
		for _, id := range v {
			out[id] = SchemaPolicy{}
		}
		return out, nil
	case map[string]any:
		for id, policyRaw := range v {
			policy, err := parseSchemaPolicy(id, policyRaw)
			if err != nil {
				return nil, err
			}
			out[id] = policy
		}
		return out, nil
	case map[string]SchemaPolicy:
		for id, p := range v {
			out[id] = p
		}
		return out, nil
	default:
		return nil, &liberrors.PolicyError{Reason: fmt.Sprintf("allowed_schemas must be a list of ids or a map of id to policy, got %T", raw)}
	}
}

func parseSchemaPolicy(id string, raw any) (SchemaPolicy, error) {
	if raw == nil {
		return SchemaPolicy{}, nil
	}
	m, ok := raw.(map[string]any)
	if !ok {
		return SchemaPolicy{}, &liberrors.PolicyError{SchemaID: id, Reason: fmt.Sprintf("policy must be an object, got %T", raw)}
	}

	var policy SchemaPolicy
	for key, val := range m {
		switch key {
		case "allowed_categories":
			cats, err := stringList(id, key, val)
			if err != nil {
				return SchemaPolicy{}, err
			}
			policy.AllowedCategories = cats
		case "allowed_properties":
			props, err := stringList(id, key, val)
			if err != nil {
				return SchemaPolicy{}, err
			}
			policy.AllowedProperties = props
		default:
			return SchemaPolicy{}, &liberrors.PolicyError{SchemaID: id, Key: key, Reason: "unrecognized policy key"}
		}
	}
	return policy, nil
}

func stringList(id, key string, raw any) ([]string, error) {
	slice, ok := raw.([]any)
	if !ok {
		return nil, &liberrors.PolicyError{SchemaID: id, Key: key, Reason: "must be a list of strings"}
	}
	out := make([]string, 0, len(slice))
	for _, e := range slice {
		s, ok := e.(string)
		if !ok {
			return nil, &liberrors.PolicyError{SchemaID: id, Key: key, Reason: "must be a list of strings"}
		}
		out = append(out, s)
	}
	return out, nil
}

// discardWriter is a minimal io.Writer that throws everything away, used
// as the default logger's sink so an Emitter constructed without
// WithLogger stays silent rather than writing to stdout/stderr.
type discardWriter struct{}

func (discardWriter) Write(p []byte) (int, error) { return len(p), nil }
