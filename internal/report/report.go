// Package report persists finished run results as JSON files.
package report

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/ahmed-madyan/surge/internal/engine"
)

// WriteJSON encodes a run result as indented JSON and writes it to path.
// Parent directories are created as needed.
func WriteJSON(result *engine.Result, path string) error {
	data, err := JSONBytes(result)
	if err != nil {
		return err
	}

	if dir := filepath.Dir(path); dir != "." && dir != "" {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return fmt.Errorf("creating report directory: %w", err)
		}
	}

	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("writing report: %w", err)
	}

	return nil
}

// JSONBytes encodes a run result as indented JSON terminated by a newline,
// so reports concatenate cleanly and diff nicely under version control.
func JSONBytes(result *engine.Result) ([]byte, error) {
	if result == nil {
		return nil, fmt.Errorf("result cannot be nil")
	}

	data, err := json.MarshalIndent(result, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("encoding report: %w", err)
	}

	return append(data, '\n'), nil
}
