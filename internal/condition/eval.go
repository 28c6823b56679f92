package condition

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/secgate-io/secgate/internal/models"
)

// Evaluate applies the condition to ctx and reports whether it holds.
//
// Evaluation is a pure function of the context and safe to run concurrently
// against a shared context. An error is returned when the condition cannot be
// applied: the referenced attribute is missing (except for exists/absent) or
// its type does not fit the operator.
// Callers fold such errors into critical findings; they must never be
// interpreted as "condition did not match".
func (c Condition) Evaluate(ctx *models.EvalContext) (bool, error) {
	switch {
	case len(c.All) > 0:
		for i, sub := range c.All {
			ok, err := sub.Evaluate(ctx)
			if err != nil {
				return false, fmt.Errorf("all[%d]: %w", i, err)
			}
			if !ok {
				return false, nil
			}
		}
		return true, nil

	case len(c.Any) > 0:
		var firstErr error
		for i, sub := range c.Any {
			ok, err := sub.Evaluate(ctx)
			if err != nil {
				if firstErr == nil {
					firstErr = fmt.Errorf("any[%d]: %w", i, err)
				}
				continue
			}
			if ok {
				return true, nil
			}
		}
		// No branch matched; an undecidable branch makes the whole
		// disjunction undecidable.
		if firstErr != nil {
			return false, firstErr
		}
		return false, nil

	case c.Not != nil:
		ok, err := c.Not.Evaluate(ctx)
		if err != nil {
			return false, fmt.Errorf("not: %w", err)
		}
		return !ok, nil

	default:
		return c.evaluateLeaf(ctx)
	}
}

func (c Condition) evaluateLeaf(ctx *models.EvalContext) (bool, error) {
	val, present := ctx.Lookup(c.Attribute)

	switch c.Operator {
	case OpExists:
		return present, nil
	case OpAbsent:
		return !present, nil
	}

	if !present {
		return false, fmt.Errorf("attribute %q not present in context", c.Attribute)
	}

	switch c.Operator {
	case OpEqual:
		return looseEqual(val, c.Value), nil
	case OpNotEqual:
		return !looseEqual(val, c.Value), nil

	case OpGreater, OpGreaterEqual, OpLess, OpLessEqual:
		left, lok := toNumber(val)
		right, rok := toNumber(c.Value)
		if !lok {
			return false, fmt.Errorf("attribute %q: %v (%T) is not numeric", c.Attribute, val, val)
		}
		if !rok {
			return false, fmt.Errorf("operator %q: literal %v (%T) is not numeric", c.Operator, c.Value, c.Value)
		}
		switch c.Operator {
		case OpGreater:
			return left > right, nil
		case OpGreaterEqual:
			return left >= right, nil
		case OpLess:
			return left < right, nil
		default:
			return left <= right, nil
		}

	case OpIn, OpNotIn:
		list, ok := toList(c.Value)
		if !ok {
			return false, fmt.Errorf("operator %q requires a list value", c.Operator)
		}
		found := false
		for _, item := range list {
			if looseEqual(val, item) {
				found = true
				break
			}
		}
		if c.Operator == OpIn {
			return found, nil
		}
		return !found, nil

	case OpContains:
		switch v := val.(type) {
		case string:
			needle, ok := c.Value.(string)
			if !ok {
				return false, fmt.Errorf("operator %q on string attribute %q requires a string value", c.Operator, c.Attribute)
			}
			return strings.Contains(v, needle), nil
		default:
			list, ok := toList(val)
			if !ok {
				return false, fmt.Errorf("attribute %q: %T does not support %q", c.Attribute, val, c.Operator)
			}
			for _, item := range list {
				if looseEqual(item, c.Value) {
					return true, nil
				}
			}
			return false, nil
		}

	case OpStartsWith, OpEndsWith:
		s, prefix, err := stringPair(c.Attribute, val, c.Value, c.Operator)
		if err != nil {
			return false, err
		}
		if c.Operator == OpStartsWith {
			return strings.HasPrefix(s, prefix), nil
		}
		return strings.HasSuffix(s, prefix), nil

	case OpMatches:
		s, pattern, err := stringPair(c.Attribute, val, c.Value, c.Operator)
		if err != nil {
			return false, err
		}
		re, err := regexp.Compile(pattern)
		if err != nil {
			return false, fmt.Errorf("operator %q: invalid pattern %q: %w", c.Operator, pattern, err)
		}
		return re.MatchString(s), nil

	default:
		return false, fmt.Errorf("unknown operator %q", c.Operator)
	}
}

// stringPair coerces an attribute value and operator literal into strings,
// erring with the attribute name when either is not a string.
func stringPair(attr string, val, literal any, op Operator) (string, string, error) {
	s, ok := val.(string)
	if !ok {
		return "", "", fmt.Errorf("attribute %q: %v (%T) is not a string", attr, val, val)
	}
	lit, ok := literal.(string)
	if !ok {
		return "", "", fmt.Errorf("operator %q requires a string value", op)
	}
	return s, lit, nil
}

// looseEqual compares two values with numeric coercion: 80 and 80.0 are
// equal regardless of whether the decoder produced an int or a float64.
// Non-numeric values must agree on type as well as value.
func looseEqual(a, b any) bool {
	if na, ok := toNumber(a); ok {
		if nb, ok := toNumber(b); ok {
			return na == nb
		}
		return false
	}
	switch av := a.(type) {
	case string:
		bv, ok := b.(string)
		return ok && av == bv
	case bool:
		bv, ok := b.(bool)
		return ok && av == bv
	default:
		return false
	}
}

// toNumber coerces the numeric types produced by the YAML and JSON decoders
// into float64.
func toNumber(v any) (float64, bool) {
	switch n := v.(type) {
	case int:
		return float64(n), true
	case int32:
		return float64(n), true
	case int64:
		return float64(n), true
	case uint:
		return float64(n), true
	case uint32:
		return float64(n), true
	case uint64:
		return float64(n), true
	case float32:
		return float64(n), true
	case float64:
		return n, true
	default:
		return 0, false
	}
}

// toList normalises list values produced by the YAML and JSON decoders.
func toList(v any) ([]any, bool) {
	switch l := v.(type) {
	case []any:
		return l, true
	case []string:
		out := make([]any, len(l))
		for i, s := range l {
			out[i] = s
		}
		return out, true
	default:
		return nil, false
	}
}
