// Package validation runs response checks: status codes, headers, JSON
// path values, JSON schemas and custom functions. A Validator is built once
// per request definition and shared by every virtual user, so it must not
// be mutated after construction.
package validation

import (
	"encoding/json"
	"fmt"
	"sort"
	"strings"

	"github.com/ahmed-madyan/surge/internal/config"
	"github.com/ahmed-madyan/surge/internal/httpclient"
	"github.com/ahmed-madyan/surge/pkg/jsonpath"
	"github.com/ahmed-madyan/surge/pkg/jsonschema"
)

// Kind identifies what a check inspects.
type Kind string

const (
	KindStatus   Kind = "status"
	KindHeader   Kind = "header"
	KindJSONPath Kind = "jsonPath"
	KindSchema   Kind = "schema"
	KindCustom   Kind = "custom"
)

// Result is the outcome of one check against one response.
type Result struct {
	Kind     Kind
	Name     string
	OK       bool
	Expected string
	Actual   string
	Message  string
}

// CheckFunc is a custom check. A nil return means the response passed.
type CheckFunc func(resp *httpclient.Response) error

type check struct {
	kind Kind
	name string
	run  func(resp *httpclient.Response) Result
}

// Validator is a fluent chain of response checks.
type Validator struct {
	checks []check
	err    error
}

// NewValidator creates an empty validator.
func NewValidator() *Validator {
	return &Validator{}
}

// Err returns the first construction error, such as a schema that failed to
// compile. A validator with a non-nil Err must not be used.
func (v *Validator) Err() error {
	return v.err
}

// Len returns the number of checks.
func (v *Validator) Len() int {
	return len(v.checks)
}

// ExpectStatus requires the response status to be one of codes.
func (v *Validator) ExpectStatus(codes ...int) *Validator {
	expected := formatCodes(codes)
	v.checks = append(v.checks, check{
		kind: KindStatus,
		name: "status",
		run: func(resp *httpclient.Response) Result {
			actual := resp.StatusCode()
			ok := false
			for _, code := range codes {
				if actual == code {
					ok = true
					break
				}
			}
			r := Result{
				Kind:     KindStatus,
				Name:     "status",
				OK:       ok,
				Expected: expected,
				Actual:   fmt.Sprintf("%d", actual),
			}
			if ok {
				r.Message = fmt.Sprintf("status code is %d", actual)
			} else {
				r.Message = fmt.Sprintf("status code is %d, expected %s", actual, expected)
			}
			return r
		},
	})
	return v
}

// ExpectHeader requires the named header to equal value exactly.
func (v *Validator) ExpectHeader(key, value string) *Validator {
	name := "header " + key
	v.checks = append(v.checks, check{
		kind: KindHeader,
		name: name,
		run: func(resp *httpclient.Response) Result {
			actual := resp.Header().Get(key)
			ok := actual == value
			r := Result{
				Kind:     KindHeader,
				Name:     name,
				OK:       ok,
				Expected: value,
				Actual:   actual,
			}
			if ok {
				r.Message = fmt.Sprintf("header %s is %q", key, actual)
			} else {
				r.Message = fmt.Sprintf("header %s is %q, expected %q", key, actual, value)
			}
			return r
		},
	})
	return v
}

// ExpectJSONPath requires the value at a JSONPath expression to equal want.
// Comparison is loose: numbers, booleans and strings compare through their
// canonical string forms, so a YAML `2` matches a JSON `2.0`.
func (v *Validator) ExpectJSONPath(path string, want interface{}) *Validator {
	expected := fmt.Sprintf("%v", want)
	v.checks = append(v.checks, check{
		kind: KindJSONPath,
		name: path,
		run: func(resp *httpclient.Response) Result {
			r := Result{
				Kind:     KindJSONPath,
				Name:     path,
				Expected: expected,
			}
			result, found := jsonpath.Lookup(resp.BodyString(), path)
			if !found {
				r.Message = fmt.Sprintf("path %s not found", path)
				return r
			}
			r.Actual = result.String()
			r.OK = r.Actual == expected
			if r.OK {
				r.Message = fmt.Sprintf("%s is %q", path, r.Actual)
			} else {
				r.Message = fmt.Sprintf("%s is %q, expected %q", path, r.Actual, expected)
			}
			return r
		},
	})
	return v
}

// ExpectJSONSchema requires the body to conform to a JSON Schema. The
// schema is compiled here; a compile failure poisons the validator and is
// reported by Err.
func (v *Validator) ExpectJSONSchema(name, schemaJSON string) *Validator {
	schema, err := jsonschema.Compile(name, schemaJSON)
	if err != nil {
		if v.err == nil {
			v.err = err
		}
		return v
	}
	checkName := "schema " + name
	v.checks = append(v.checks, check{
		kind: KindSchema,
		name: checkName,
		run: func(resp *httpclient.Response) Result {
			r := Result{
				Kind:     KindSchema,
				Name:     checkName,
				Expected: "document conforms to schema " + name,
			}
			if err := schema.Validate(resp.Body()); err != nil {
				r.Actual = err.Error()
				r.Message = fmt.Sprintf("schema %s: %v", name, err)
				return r
			}
			r.OK = true
			r.Actual = r.Expected
			r.Message = fmt.Sprintf("document conforms to schema %s", name)
			return r
		},
	})
	return v
}

// ExpectFunc adds a custom check under the given name.
func (v *Validator) ExpectFunc(name string, fn CheckFunc) *Validator {
	v.checks = append(v.checks, check{
		kind: KindCustom,
		name: name,
		run: func(resp *httpclient.Response) Result {
			r := Result{
				Kind:     KindCustom,
				Name:     name,
				Expected: name,
			}
			if err := fn(resp); err != nil {
				r.Actual = err.Error()
				r.Message = fmt.Sprintf("%s: %v", name, err)
				return r
			}
			r.OK = true
			r.Actual = "ok"
			r.Message = name
			return r
		},
	})
	return v
}

// Validate runs every check against the response. All checks run even when
// earlier ones fail.
func (v *Validator) Validate(resp *httpclient.Response) []Result {
	results := make([]Result, 0, len(v.checks))
	for _, c := range v.checks {
		results = append(results, c.run(resp))
	}
	return results
}

// AssertValid runs the checks and returns the first failure as an error,
// nil when everything passed.
func (v *Validator) AssertValid(resp *httpclient.Response) error {
	if v.err != nil {
		return v.err
	}
	for _, r := range v.Validate(resp) {
		if !r.OK {
			return fmt.Errorf("validation failed: %s", r.Message)
		}
	}
	return nil
}

// FromConfig builds a validator from a request's validate block. Schema
// references are resolved against the top-level schemas map.
func FromConfig(cfg *config.ChecksConfig, schemas map[string]interface{}) (*Validator, error) {
	v := NewValidator()

	if len(cfg.Status) > 0 {
		v.ExpectStatus(cfg.Status...)
	}

	for _, key := range sortedKeys(cfg.Headers) {
		v.ExpectHeader(key, cfg.Headers[key])
	}

	pathKeys := make([]string, 0, len(cfg.JSONPath))
	for path := range cfg.JSONPath {
		pathKeys = append(pathKeys, path)
	}
	sort.Strings(pathKeys)
	for _, path := range pathKeys {
		v.ExpectJSONPath(path, cfg.JSONPath[path])
	}

	if cfg.Schema != "" {
		raw, ok := schemas[cfg.Schema]
		if !ok {
			return nil, fmt.Errorf("schema not found: %s", cfg.Schema)
		}
		schemaJSON, err := json.Marshal(raw)
		if err != nil {
			return nil, fmt.Errorf("schema %s: %w", cfg.Schema, err)
		}
		v.ExpectJSONSchema(cfg.Schema, string(schemaJSON))
	}

	if err := v.Err(); err != nil {
		return nil, err
	}
	return v, nil
}

func sortedKeys(m map[string]string) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

func formatCodes(codes []int) string {
	if len(codes) == 1 {
		return fmt.Sprintf("%d", codes[0])
	}
	parts := make([]string, len(codes))
	for i, code := range codes {
		parts[i] = fmt.Sprintf("%d", code)
	}
	return "one of [" + strings.Join(parts, " ") + "]"
}
