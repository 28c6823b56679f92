package models

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"
)

// Attributes is a free-form attribute map. Values may be scalars, lists, or
// nested maps; nested values are addressed with dotted paths.
type Attributes map[string]any

// EvalContext is the read-only input to a policy evaluation: the attributes
// of the subject requesting access, the resource being evaluated, and the
// surrounding environment, plus the action identifier.
//
// An EvalContext is never mutated during evaluation. Anything a rule needs
// must be resolved into the context before evaluation starts; conditions
// never perform lookups against external systems.
type EvalContext struct {
	// Name identifies the context in reports and audit records, e.g. a
	// resource ARN, a bucket name, or "namespace/pod".
	Name string `json:"name,omitempty" yaml:"name,omitempty"`

	Subject     Attributes `json:"subject,omitempty" yaml:"subject,omitempty"`
	Resource    Attributes `json:"resource,omitempty" yaml:"resource,omitempty"`
	Environment Attributes `json:"environment,omitempty" yaml:"environment,omitempty"`

	// Action is the operation being requested, e.g. "deploy" or "s3:PutObject".
	Action string `json:"action,omitempty" yaml:"action,omitempty"`
}

// Lookup resolves a dotted attribute path against the context. The first
// path segment selects the namespace: "subject", "resource", "environment",
// or "action" (which resolves to the action string itself). Remaining
// segments walk nested maps.
//
// The second return value is false when the path does not resolve.
func (c *EvalContext) Lookup(path string) (any, bool) {
	if c == nil || path == "" {
		return nil, false
	}
	segments := strings.Split(path, ".")

	var current any
	switch segments[0] {
	case "subject":
		current = map[string]any(c.Subject)
	case "resource":
		current = map[string]any(c.Resource)
	case "environment":
		current = map[string]any(c.Environment)
	case "action":
		if len(segments) > 1 {
			return nil, false
		}
		return c.Action, true
	default:
		return nil, false
	}

	for _, seg := range segments[1:] {
		m, ok := toStringMap(current)
		if !ok {
			return nil, false
		}
		current, ok = m[seg]
		if !ok {
			return nil, false
		}
	}
	return current, true
}

// toStringMap normalises the map types produced by the JSON and YAML
// decoders (and the Attributes alias) into a plain map[string]any.
func toStringMap(v any) (map[string]any, bool) {
	switch m := v.(type) {
	case map[string]any:
		return m, true
	case Attributes:
		return m, true
	default:
		return nil, false
	}
}

// Clone returns a deep copy of the context. Decisions snapshot the context
// they were evaluated against so later reuse of the original cannot alter
// the audit record.
func (c *EvalContext) Clone() *EvalContext {
	if c == nil {
		return nil
	}
	return &EvalContext{
		Name:        c.Name,
		Subject:     cloneAttributes(c.Subject),
		Resource:    cloneAttributes(c.Resource),
		Environment: cloneAttributes(c.Environment),
		Action:      c.Action,
	}
}

func cloneAttributes(a Attributes) Attributes {
	if a == nil {
		return nil
	}
	out := make(Attributes, len(a))
	for k, v := range a {
		out[k] = cloneValue(v)
	}
	return out
}

func cloneValue(v any) any {
	switch t := v.(type) {
	case map[string]any:
		m := make(map[string]any, len(t))
		for k, e := range t {
			m[k] = cloneValue(e)
		}
		return m
	case Attributes:
		return map[string]any(cloneAttributes(t))
	case []any:
		s := make([]any, len(t))
		for i, e := range t {
			s[i] = cloneValue(e)
		}
		return s
	default:
		return v
	}
}

// LoadContext reads an EvalContext from a YAML or JSON file, selected by
// file extension (.json is JSON, everything else is parsed as YAML).
func LoadContext(path string) (*EvalContext, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read context file: %w", err)
	}

	var ec EvalContext
	if strings.EqualFold(filepath.Ext(path), ".json") {
		if err := json.Unmarshal(data, &ec); err != nil {
			return nil, fmt.Errorf("parse context file %q: %w", path, err)
		}
	} else {
		if err := yaml.Unmarshal(data, &ec); err != nil {
			return nil, fmt.Errorf("parse context file %q: %w", path, err)
		}
	}
	return &ec, nil
}
