// Command eventctl exercises the telemetry library end to end from the
// command line: register a schema, validate and redact a sample event
// against it, and print the resulting capsule.
package main

import (
	"bytes"
	"encoding/json"
	"flag"
	"fmt"
	"log/slog"
	"os"

	"github.com/dlclark/regexp2"
	goyaml "github.com/goccy/go-yaml"
	"github.com/santhosh-tekuri/jsonschema/v6"

	"github.com/telemetry-go/eventlog/emitter"
	"github.com/telemetry-go/eventlog/schema"
	"github.com/telemetry-go/eventlog/sink"
	"github.com/telemetry-go/eventlog/validate"
)

type customRegexp regexp2.Regexp

func (re *customRegexp) MatchString(s string) bool {
	matched, err := (*regexp2.Regexp)(re).MatchString(s)
	return err == nil && matched
}

func (re *customRegexp) String() string {
	return (*regexp2.Regexp)(re).String()
}

var regexParsingOptionsMap = map[string]regexp2.RegexOptions{
	"none":       regexp2.None,
	"ignorecase": regexp2.IgnoreCase,
	"multiline":  regexp2.Multiline,
	"singleline": regexp2.Singleline,
	"ecmascript": regexp2.ECMAScript,
	"re2":        regexp2.RE2,
	"unicode":    regexp2.Unicode,
}

var (
	schemaFile   = flag.String("schema", "", "Path to a JSON or YAML schema document (required).")
	eventFile    = flag.String("event", "", "Path to a JSON event to validate and redact (required).")
	categoriesFl = flag.String("allowed-categories", "", "Comma-separated list of allowed categories.")
	propertiesFl = flag.String("allowed-properties", "", "Comma-separated list of whitelisted top-level properties.")
	regexEngine  = flag.String("regexengine", "", `Regex engine to use for "pattern"/"patternProperties" assertions.
Supported values: re2 (default), ecmascript, ignorecase, multiline, singleline, unicode, none.`)
	fastValidator = flag.Bool("fast", false, "Use the compiled fast-path validator instead of the reference one.")
)

func main() {
	flag.Usage = func() {
		fmt.Fprintf(os.Stderr, `Usage: eventctl -schema <file> -event <file> [OPTIONS]

Registers a schema and runs one event through the telemetry pipeline
(validate, extract categories, redact, envelope), printing the resulting
capsule as JSON.

Options:
  -schema string              Path to a JSON or YAML schema document (required).
  -event string                Path to a JSON event to validate and redact (required).
  -allowed-categories string   Comma-separated list of allowed categories.
  -allowed-properties string   Comma-separated list of whitelisted top-level properties.
  -regexengine string          Regex engine for pattern assertions (re2, ecmascript, ...).
  -fast                        Use the compiled fast-path validator.
`)
	}
	flag.Parse()

	logger := slog.New(slog.NewJSONHandler(os.Stdout, nil))

	if *schemaFile == "" || *eventFile == "" {
		logger.Error("both -schema and -event are required")
		flag.Usage()
		os.Exit(1)
	}

	var validatorOpt emitter.Option
	if *fastValidator {
		validatorOpt = emitter.WithValidator(validate.NewCompiledValidator())
	} else {
		var regexEng validate.RegexEngine
		if *regexEngine != "" {
			opt, ok := regexParsingOptionsMap[*regexEngine]
			if !ok {
				logger.Error("unsupported regex engine", slog.String("provided", *regexEngine))
				os.Exit(1)
			}
			regexEng = func(s string) (jsonschema.Regexp, error) {
				re, err := regexp2.Compile(s, opt)
				if err != nil {
					return nil, err
				}
				return (*customRegexp)(re), nil
			}
		}
		validatorOpt = emitter.WithValidator(validate.NewJSONSchemaValidator(regexEng))
	}

	schemaDoc, schemaID, err := readSchema(*schemaFile)
	if err != nil {
		logger.Error("reading schema", slog.Any("error", err))
		os.Exit(1)
	}

	event, err := readEvent(*eventFile)
	if err != nil {
		logger.Error("reading event", slog.Any("error", err))
		os.Exit(1)
	}

	buf := &bytes.Buffer{}
	policy := emitter.SchemaPolicy{
		AllowedCategories: splitCSV(*categoriesFl),
		AllowedProperties: splitCSV(*propertiesFl),
	}

	em, err := emitter.New(
		emitter.WithSinks(sink.NewWriterSink(buf)),
		emitter.WithAllowedSchemas(map[string]emitter.SchemaPolicy{schemaID.ID: policy}),
		emitter.WithLogger(logger),
		validatorOpt,
	)
	if err != nil {
		logger.Error("building emitter", slog.Any("error", err))
		os.Exit(1)
	}

	if _, err := em.RegisterSchema(schemaDoc, schema.DuplicateRaise); err != nil {
		logger.Error("registering schema", slog.Any("error", err))
		os.Exit(1)
	}

	if err := em.RecordEvent(schemaID.ID, schemaID.Version, event); err != nil {
		logger.Error("recording event", slog.Any("error", err))
		os.Exit(1)
	}

	os.Stdout.Write(buf.Bytes())
}

func readSchema(path string) (map[string]any, schema.Key, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, schema.Key{}, err
	}
	// YAML is a JSON superset, so one decoder handles both formats.
	var doc map[string]any
	if err := goyaml.Unmarshal(data, &doc); err != nil {
		return nil, schema.Key{}, err
	}
	s, err := schema.FromDocument(doc)
	if err != nil {
		return nil, schema.Key{}, err
	}
	return doc, schema.Key{ID: s.ID, Version: s.Version}, nil
}

func readEvent(path string) (map[string]any, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var event map[string]any
	if err := json.Unmarshal(data, &event); err != nil {
		return nil, err
	}
	return event, nil
}

func splitCSV(s string) []string {
	if s == "" {
		return nil
	}
	var out []string
	start := 0
	for i := 0; i <= len(s); i++ {
		if i == len(s) || s[i] == ',' {
			out = append(out, s[start:i])
			start = i + 1
		}
	}
	return out
}
