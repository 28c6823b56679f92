// Package condition implements the declarative condition language used by
// policy rules: a single attribute comparison (attribute, operator, literal)
// or a composition of sub-conditions via all / any / not. Conditions are
// plain data evaluated by one generic interpreter, never executable code.
package condition

import (
	"fmt"
	"regexp"
)

// Operator is a comparison operator applied to an attribute value.
type Operator string

const (
	OpEqual        Operator = "eq"
	OpNotEqual     Operator = "ne"
	OpGreater      Operator = "gt"
	OpGreaterEqual Operator = "gte"
	OpLess         Operator = "lt"
	OpLessEqual    Operator = "lte"
	OpIn           Operator = "in"
	OpNotIn        Operator = "not_in"
	OpContains     Operator = "contains"
	OpStartsWith   Operator = "starts_with"
	OpEndsWith     Operator = "ends_with"
	OpMatches      Operator = "matches"
	OpExists       Operator = "exists"
	OpAbsent       Operator = "absent"
)

var validOperators = map[Operator]struct{}{
	OpEqual: {}, OpNotEqual: {},
	OpGreater: {}, OpGreaterEqual: {}, OpLess: {}, OpLessEqual: {},
	OpIn: {}, OpNotIn: {},
	OpContains: {}, OpStartsWith: {}, OpEndsWith: {}, OpMatches: {},
	OpExists: {}, OpAbsent: {},
}

// Condition is either a leaf comparison (Attribute + Operator + Value) or
// exactly one of the composites All, Any, Not.
type Condition struct {
	// Attribute is a dotted path into the evaluation context, e.g.
	// "resource.encryption.enabled" or "environment.region".
	Attribute string   `json:"attribute,omitempty" yaml:"attribute,omitempty"`
	Operator  Operator `json:"operator,omitempty" yaml:"operator,omitempty"`
	Value     any      `json:"value,omitempty" yaml:"value,omitempty"`

	// All is satisfied when every sub-condition is satisfied.
	All []Condition `json:"all,omitempty" yaml:"all,omitempty"`
	// Any is satisfied when at least one sub-condition is satisfied.
	Any []Condition `json:"any,omitempty" yaml:"any,omitempty"`
	// Not inverts its sub-condition.
	Not *Condition `json:"not,omitempty" yaml:"not,omitempty"`
}

// IsZero reports whether the condition is entirely empty.
func (c Condition) IsZero() bool {
	return c.Attribute == "" && c.Operator == "" && c.Value == nil &&
		len(c.All) == 0 && len(c.Any) == 0 && c.Not == nil
}

// Validate checks the condition for structural correctness and returns every
// problem found. It never stops at the first error.
func (c Condition) Validate() []error {
	var errs []error

	composites := 0
	if len(c.All) > 0 {
		composites++
	}
	if len(c.Any) > 0 {
		composites++
	}
	if c.Not != nil {
		composites++
	}

	switch {
	case composites > 1:
		errs = append(errs, fmt.Errorf("condition must use at most one of all/any/not"))
	case composites == 1:
		if c.Attribute != "" || c.Operator != "" {
			errs = append(errs, fmt.Errorf("composite condition must not also set attribute/operator"))
		}
		for i, sub := range c.All {
			for _, err := range sub.Validate() {
				errs = append(errs, fmt.Errorf("all[%d]: %w", i, err))
			}
		}
		for i, sub := range c.Any {
			for _, err := range sub.Validate() {
				errs = append(errs, fmt.Errorf("any[%d]: %w", i, err))
			}
		}
		if c.Not != nil {
			for _, err := range c.Not.Validate() {
				errs = append(errs, fmt.Errorf("not: %w", err))
			}
		}
	default:
		errs = append(errs, c.validateLeaf()...)
	}

	return errs
}

// validateLeaf checks a leaf comparison: attribute and operator must be set,
// the operator must be known, and the value must fit the operator.
func (c Condition) validateLeaf() []error {
	var errs []error

	if c.Attribute == "" {
		errs = append(errs, fmt.Errorf("condition is missing an attribute"))
	}
	if c.Operator == "" {
		errs = append(errs, fmt.Errorf("condition is missing an operator"))
		return errs
	}
	if _, ok := validOperators[c.Operator]; !ok {
		errs = append(errs, fmt.Errorf("unknown operator %q", c.Operator))
		return errs
	}

	switch c.Operator {
	case OpExists, OpAbsent:
		if c.Value != nil {
			errs = append(errs, fmt.Errorf("operator %q takes no value", c.Operator))
		}
	case OpIn, OpNotIn:
		if _, ok := toList(c.Value); !ok {
			errs = append(errs, fmt.Errorf("operator %q requires a list value", c.Operator))
		}
	case OpMatches:
		pattern, ok := c.Value.(string)
		if !ok {
			errs = append(errs, fmt.Errorf("operator %q requires a string pattern", c.Operator))
			break
		}
		if _, err := regexp.Compile(pattern); err != nil {
			errs = append(errs, fmt.Errorf("operator %q: invalid pattern: %w", c.Operator, err))
		}
	default:
		if c.Value == nil {
			errs = append(errs, fmt.Errorf("operator %q requires a value", c.Operator))
		}
	}

	return errs
}
