package policy

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"
)

// LoadDocument reads a policy Document from a YAML or JSON file, selected by
// file extension (.json is JSON, everything else is parsed as YAML).
// The document is returned unvalidated; use Load to also compile it.
func LoadDocument(path string) (*Document, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read policy file: %w", err)
	}

	var doc Document
	if strings.EqualFold(filepath.Ext(path), ".json") {
		if err := json.Unmarshal(data, &doc); err != nil {
			return nil, fmt.Errorf("parse policy file %q: %w", path, err)
		}
	} else {
		if err := yaml.Unmarshal(data, &doc); err != nil {
			return nil, fmt.Errorf("parse policy file %q: %w", path, err)
		}
	}
	return &doc, nil
}

// Load reads, validates, and compiles the policy file at path.
// Validation failures are returned as a *ConfigurationError listing every
// problem; no evaluation can occur against an invalid policy.
func Load(path string) (*Policy, error) {
	doc, err := LoadDocument(path)
	if err != nil {
		return nil, err
	}
	p, err := Compile(doc)
	if err != nil {
		return nil, fmt.Errorf("policy file %q: %w", path, err)
	}
	return p, nil
}
