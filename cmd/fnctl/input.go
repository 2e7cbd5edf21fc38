package main

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"

	"insights/internal/funnel"
)

// readInput loads a funnel snapshot from a JSON or YAML file, or from stdin
// when path is "-". Both formats use the same keys as the HTTP API.
func readInput(path string) (funnel.Input, error) {
	var (
		data []byte
		err  error
	)
	if path == "-" {
		data, err = io.ReadAll(os.Stdin)
	} else {
		data, err = os.ReadFile(path)
	}
	if err != nil {
		return funnel.Input{}, fmt.Errorf("failed to read input: %w", err)
	}

	return parseInput(data, strings.ToLower(filepath.Ext(path)))
}

func parseInput(data []byte, ext string) (funnel.Input, error) {
	var in funnel.Input

	switch ext {
	case ".yaml", ".yml":
		var doc map[string]any
		if err := yaml.Unmarshal(data, &doc); err != nil {
			return in, fmt.Errorf("invalid YAML input: %w", err)
		}
		// Re-encode so dates and field names go through the JSON decoder.
		asJSON, err := json.Marshal(doc)
		if err != nil {
			return in, fmt.Errorf("invalid YAML input: %w", err)
		}
		data = asJSON
	}

	if err := json.Unmarshal(data, &in); err != nil {
		return in, fmt.Errorf("invalid input: %w", err)
	}

	if err := in.Validate(); err != nil {
		return in, err
	}
	return in.Normalize(), nil
}

func writeJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
