// Package jsonschema wraps compiled JSON Schema validation with aggregated,
// readable error output.
package jsonschema

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/santhosh-tekuri/jsonschema/v5"
)

// ValidationErrors collects every leaf failure from a schema validation.
type ValidationErrors []error

// Error implements the error interface for ValidationErrors.
func (ve ValidationErrors) Error() string {
	if len(ve) == 0 {
		return ""
	}

	var sb strings.Builder
	for i, err := range ve {
		if i > 0 {
			sb.WriteString("; ")
		}
		sb.WriteString(err.Error())
	}
	return sb.String()
}

// Schema is a compiled JSON Schema, safe for concurrent use. Compile once
// per schema definition; virtual users validate against it on every
// iteration.
type Schema struct {
	name     string
	compiled *jsonschema.Schema
}

// Compile parses and compiles a schema. The name appears in error messages.
func Compile(name, schemaJSON string) (*Schema, error) {
	compiler := jsonschema.NewCompiler()
	resource := name + ".json"
	if err := compiler.AddResource(resource, strings.NewReader(schemaJSON)); err != nil {
		return nil, fmt.Errorf("invalid schema %q: %w", name, err)
	}
	compiled, err := compiler.Compile(resource)
	if err != nil {
		return nil, fmt.Errorf("invalid schema %q: %w", name, err)
	}
	return &Schema{name: name, compiled: compiled}, nil
}

// Name returns the name the schema was compiled under.
func (s *Schema) Name() string {
	return s.name
}

// Validate checks a JSON document against the schema. It returns nil when
// the document conforms, ValidationErrors with every failure otherwise, and
// a plain error when the document is not valid JSON at all.
func (s *Schema) Validate(data []byte) error {
	var doc interface{}
	if err := json.Unmarshal(data, &doc); err != nil {
		return fmt.Errorf("invalid JSON: %w", err)
	}

	err := s.compiled.Validate(doc)
	if err == nil {
		return nil
	}
	if validationErr, ok := err.(*jsonschema.ValidationError); ok {
		if errs := collectLeafErrors(validationErr); len(errs) > 0 {
			return errs
		}
	}
	return ValidationErrors{err}
}

// collectLeafErrors flattens the cause tree into per-location messages.
func collectLeafErrors(err *jsonschema.ValidationError) ValidationErrors {
	var errs ValidationErrors
	if len(err.Causes) == 0 {
		errs = append(errs, fmt.Errorf("validation error at %q: %s", err.InstanceLocation, err.Message))
		return errs
	}
	for _, cause := range err.Causes {
		errs = append(errs, collectLeafErrors(cause)...)
	}
	return errs
}
