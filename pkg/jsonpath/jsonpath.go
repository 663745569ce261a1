// Package jsonpath extracts values from JSON documents using JSONPath-style
// expressions, backed by gjson.
package jsonpath

import (
	"fmt"
	"strings"

	"github.com/tidwall/gjson"
)

// Lookup resolves a JSONPath expression against a JSON document and reports
// whether the path exists. Expressions may use JSONPath syntax ($.users[0].name,
// $['name']) or plain gjson dotted paths (users.0.name).
func Lookup(json, path string) (gjson.Result, bool) {
	if json == "" || path == "" {
		return gjson.Result{}, false
	}
	result := gjson.Get(json, normalize(path))
	return result, result.Exists()
}

// Exists reports whether the path resolves to a value in the document.
func Exists(json, path string) bool {
	_, ok := Lookup(json, path)
	return ok
}

// Extract returns the value at the path as a string. Null values yield
// "null". Missing paths are an error.
func Extract(json, path string) (string, error) {
	if json == "" {
		return "", fmt.Errorf("empty JSON string")
	}
	if path == "" {
		return "", fmt.Errorf("empty JSONPath expression")
	}

	result, ok := Lookup(json, path)
	if !ok {
		return "", fmt.Errorf("path not found: %s", path)
	}
	if result.Type == gjson.Null {
		return "null", nil
	}
	return result.String(), nil
}

// normalize converts a JSONPath expression to gjson path format:
// $.users[0].name -> users.0.name. Plain gjson paths pass through.
func normalize(path string) string {
	if path == "$" {
		return "@this"
	}

	path = strings.TrimPrefix(path, "$")
	if path == "" {
		return "@this"
	}
	path = strings.TrimPrefix(path, ".")

	// Bracket notation: ['name'] / ["name"]
	path = strings.ReplaceAll(path, "['", ".")
	path = strings.ReplaceAll(path, "']", "")
	path = strings.ReplaceAll(path, `["`, ".")
	path = strings.ReplaceAll(path, `"]`, "")

	// Array indices: [0] -> .0
	path = strings.ReplaceAll(path, "[", ".")
	path = strings.ReplaceAll(path, "]", "")

	return strings.TrimPrefix(path, ".")
}
