package validate

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"sync"

	"github.com/santhosh-tekuri/jsonschema/v6"
	"golang.org/x/text/language"
	"golang.org/x/text/message"

	liberrors "github.com/telemetry-go/eventlog/errors"
	"github.com/telemetry-go/eventlog/schema"
)

// RegexEngine lets callers plug in an alternate regular-expression engine —
// for example one backed by github.com/dlclark/regexp2, for ECMAScript
// pattern semantics — for the "pattern" and "patternProperties" keywords.
type RegexEngine = jsonschema.RegexpEngine

// JSONSchemaValidator is the reference Validator implementation: it compiles
// each schema once, through a github.com/santhosh-tekuri/jsonschema/v6
// Compiler, and caches the compiled form for reuse across Validate calls.
// This is the Go-ecosystem analogue of the original's Draft7Validator-backed
// JSONSchemaValidator.
type JSONSchemaValidator struct {
	regexEngine RegexEngine

	mu       sync.Mutex
	compiled map[schema.Key]*jsonschema.Schema
}

// NewJSONSchemaValidator returns a JSONSchemaValidator. A nil regexEngine
// uses the compiler's built-in regexp engine.
func NewJSONSchemaValidator(regexEngine RegexEngine) *JSONSchemaValidator {
	return &JSONSchemaValidator{
		regexEngine: regexEngine,
		compiled:    make(map[schema.Key]*jsonschema.Schema),
	}
}

func (v *JSONSchemaValidator) newCompiler() *jsonschema.Compiler {
	c := jsonschema.NewCompiler()
	c.DefaultDraft(jsonschema.Draft7)
	if v.regexEngine != nil {
		c.UseRegexpEngine(v.regexEngine)
	}
	return c
}

func (v *JSONSchemaValidator) compile(s *schema.Schema) (*jsonschema.Schema, error) {
	key := schema.Key{ID: s.ID, Version: s.Version}

	v.mu.Lock()
	defer v.mu.Unlock()

	if cached, ok := v.compiled[key]; ok {
		return cached, nil
	}

	raw, err := json.Marshal(s.Raw)
	if err != nil {
		return nil, &liberrors.SchemaError{SchemaID: s.ID, Reason: fmt.Sprintf("schema cannot be re-encoded as JSON: %s", err)}
	}
	decoded, err := jsonschema.UnmarshalJSON(bytes.NewReader(raw))
	if err != nil {
		return nil, &liberrors.SchemaError{SchemaID: s.ID, Reason: fmt.Sprintf("schema cannot be decoded: %s", err)}
	}

	resourceName := fmt.Sprintf("%s@%d.json", s.ID, s.Version)
	compiler := v.newCompiler()
	if err := compiler.AddResource(resourceName, decoded); err != nil {
		return nil, &liberrors.SchemaError{SchemaID: s.ID, Reason: fmt.Sprintf("schema is not valid JSON Schema: %s", err)}
	}
	jsch, err := compiler.Compile(resourceName)
	if err != nil {
		return nil, &liberrors.SchemaError{SchemaID: s.ID, Reason: fmt.Sprintf("schema is not valid JSON Schema: %s", err)}
	}

	v.compiled[key] = jsch
	return jsch, nil
}

// CheckSchema compiles s. The compiler itself validates the document against
// the JSON-Schema meta-schema before returning a usable *jsonschema.Schema,
// which is sufficient to verify Draft-7-level well-formedness.
func (v *JSONSchemaValidator) CheckSchema(s *schema.Schema) error {
	_, err := v.compile(s)
	return err
}

// Validate validates event against s's compiled schema, returning the first
// (best-match) violation as a *errors.ValidationError.
func (v *JSONSchemaValidator) Validate(event map[string]any, s *schema.Schema) error {
	jsch, err := v.compile(s)
	if err != nil {
		return err
	}

	if verr := jsch.Validate(event); verr != nil {
		var ve *jsonschema.ValidationError
		if errors.As(verr, &ve) {
			reason, location := firstViolation(ve)
			return &liberrors.ValidationError{SchemaID: s.ID, Version: s.Version, Reason: reason, Location: location}
		}
		return &liberrors.ValidationError{SchemaID: s.ID, Version: s.Version, Reason: verr.Error()}
	}
	return nil
}

// firstViolation flattens a jsonschema.ValidationError's basic output into a
// single human-readable message and instance location, localized the same
// way the reference implementation this is grounded on does.
func firstViolation(ve *jsonschema.ValidationError) (reason, location string) {
	printer := message.NewPrinter(language.Tag{})
	for _, u := range ve.BasicOutput().Errors {
		if u.Error == nil {
			continue
		}
		msg := u.Error.Kind.LocalizedString(printer)
		if msg == "" {
			continue
		}
		return msg, u.InstanceLocation
	}
	return ve.Error(), "/" + strings.Join(ve.InstanceLocation, "/")
}
