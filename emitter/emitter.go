package emitter

import (
	"bytes"
	"fmt"
	"io"
	"log/slog"
	"time"

	goyaml "github.com/goccy/go-yaml"

	"github.com/telemetry-go/eventlog/categories"
	"github.com/telemetry-go/eventlog/envelope"
	"github.com/telemetry-go/eventlog/redact"
	"github.com/telemetry-go/eventlog/schema"
	"github.com/telemetry-go/eventlog/sink"
	"github.com/telemetry-go/eventlog/validate"
)

// State reports where an Emitter sits in its constructed -> configured ->
// ready lifecycle (spec.md §4.F). There is no terminal state: teardown is
// simply dropping references, since sinks own their own close semantics.
type State int

const (
	// StateConstructed: no sinks attached yet.
	StateConstructed State = iota
	// StateConfigured: sinks attached, but no schema registered yet.
	StateConfigured
	// StateReady: sinks attached and at least one schema registered.
	StateReady
)

func (s State) String() string {
	switch s {
	case StateConstructed:
		return "constructed"
	case StateConfigured:
		return "configured"
	case StateReady:
		return "ready"
	default:
		return "unknown"
	}
}

// Emitter orchestrates record_event: allow-list check, schema lookup,
// validation, category extraction, redaction and sink fan-out. Each
// instance owns its own sinks, registry reference and logger — nothing is
// shared globally, so multiple Emitters in one process never cross-talk.
type Emitter struct {
	sinks          []sink.Sink
	allowedSchemas map[string]SchemaPolicy
	registry       *schema.Registry
	validator      validate.Validator
	logger         *slog.Logger
}

// New builds an Emitter from the given options. Registration is expected
// to happen afterward, via RegisterSchema / RegisterSchemaFromSource.
func New(opts ...Option) (*Emitter, error) {
	cfg, err := NewConfig(opts...)
	if err != nil {
		return nil, err
	}
	return &Emitter{
		sinks:          cfg.Sinks,
		allowedSchemas: cfg.AllowedSchemas,
		registry:       cfg.Registry,
		validator:      cfg.Validator,
		logger:         cfg.Logger,
	}, nil
}

// State reports the Emitter's current lifecycle state.
func (e *Emitter) State() State {
	switch {
	case len(e.sinks) == 0:
		return StateConstructed
	case e.registry.Len() == 0:
		return StateConfigured
	default:
		return StateReady
	}
}

// RegisterSchema registers a decoded schema document with this Emitter's
// registry. Safe to call concurrently with RecordEvent; the registry's own
// read-write lock serializes registrations against lookups. Mirrors the
// original's register_schema, which calls check_schema before adding the
// schema to its map (eventlog.py): the document's shape is checked, then it
// is run through this Emitter's Validator.CheckSchema, and only once both
// pass is it handed to the registry — a document that fails Draft-7
// validation is rejected here rather than surfacing only at the first
// RecordEvent.
func (e *Emitter) RegisterSchema(doc map[string]any, policy schema.DuplicatePolicy) (*schema.Schema, error) {
	s, err := schema.FromDocument(doc)
	if err != nil {
		return nil, err
	}
	if err := e.validator.CheckSchema(s); err != nil {
		return nil, err
	}
	return e.registry.Register(doc, policy)
}

// RegisterSchemaFromSource decodes YAML-or-JSON schema source bytes,
// check-schemas the result against this Emitter's Validator, and registers
// it with this Emitter's registry.
func (e *Emitter) RegisterSchemaFromSource(src io.Reader, policy schema.DuplicatePolicy) (*schema.Schema, error) {
	raw, err := io.ReadAll(src)
	if err != nil {
		return nil, fmt.Errorf("reading schema source: %w", err)
	}

	var doc map[string]any
	if err := goyaml.Unmarshal(raw, &doc); err == nil {
		if s, ferr := schema.FromDocument(doc); ferr == nil {
			if verr := e.validator.CheckSchema(s); verr != nil {
				return nil, verr
			}
		}
	}

	return e.registry.RegisterFromSource(bytes.NewReader(raw), policy)
}

// RecordEvent runs event through the full record_event pipeline (spec.md
// §4.E steps 1-7), using the wall-clock time as the envelope timestamp.
func (e *Emitter) RecordEvent(id string, version int, event map[string]any) error {
	return e.recordEvent(id, version, event, time.Now().UTC())
}

// RecordEventAt is RecordEvent with an explicit timestamp override,
// exercised by tests and by callers re-emitting historical events.
func (e *Emitter) RecordEventAt(id string, version int, event map[string]any, timestamp time.Time) error {
	return e.recordEvent(id, version, event, timestamp)
}

func (e *Emitter) recordEvent(id string, version int, event map[string]any, timestamp time.Time) error {
	policy, allowed := e.allowedSchemas[id]
	if !allowed || len(e.sinks) == 0 {
		// Dropping unauthorized or sink-less events is not an error
		// (spec.md §4.E preconditions).
		return nil
	}

	s, err := e.registry.MustLookup(id, version)
	if err != nil {
		return err
	}

	if err := e.validator.Validate(event, s); err != nil {
		return err
	}

	annotations := categories.Extract(event, s)

	defaultAllowedCategories := withUnrestricted(policy.AllowedCategories)
	allowedProperties := toSet(policy.AllowedProperties)

	defaultFiltered := redact.Apply(event, annotations, defaultAllowedCategories, allowedProperties)
	defaultCapsule := envelope.New(defaultFiltered, id, version, timestamp)

	for _, snk := range e.sinks {
		capsule := defaultCapsule
		if hint, ok := snk.(sink.CategoryHintSink); ok {
			if override := hint.AllowedCategories(); override != nil {
				filtered := redact.Apply(event, annotations, withUnrestricted(override), allowedProperties)
				capsule = envelope.New(filtered, id, version, timestamp)
			}
		}
		if err := snk.Accept(capsule); err != nil {
			e.logger.Error("sink rejected event",
				slog.String("schema", id),
				slog.Int("version", version),
				slog.Any("error", err),
			)
			return err
		}
	}

	return nil
}

// withUnrestricted builds an allowed-categories set from a policy's
// category list, implicitly unioning in "unrestricted" — spec.md F5 and
// the resolved Open Question in §9: this library always allows
// unrestricted-tagged properties through regardless of policy.
func withUnrestricted(cats []string) map[string]bool {
	set := toSet(cats)
	set[schema.UnrestrictedCategory] = true
	return set
}

func toSet(items []string) map[string]bool {
	set := make(map[string]bool, len(items))
	for _, item := range items {
		set[item] = true
	}
	return set
}
