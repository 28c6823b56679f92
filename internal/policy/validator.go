package policy

import "fmt"

// Validate checks doc for semantic correctness and returns all validation
// errors found. An empty slice means the document is valid.
//
// Checks performed:
//   - version must be 1
//   - rule IDs must be present and unique
//   - severities must be one of CRITICAL, HIGH, MEDIUM, LOW, INFO
//   - categories, when set, must be recognised
//   - weights must be non-negative
//   - effects, when set, must be "allow" or "deny"
//   - conditions must be structurally valid (known operator, value fits)
//   - thresholds must satisfy 0 <= conditional <= approval <= 100
//
// All errors are collected before returning; Validate never stops at the
// first error. Each error names the offending rule.
func Validate(doc *Document) []error {
	if doc == nil {
		return []error{fmt.Errorf("policy document is nil")}
	}

	var errs []error

	if doc.Version != SupportedVersion {
		errs = append(errs, fmt.Errorf("version: unsupported value %d; must be %d", doc.Version, SupportedVersion))
	}

	if doc.Thresholds != nil {
		t := doc.Thresholds
		if t.Conditional < 0 || t.Approval > 100 || t.Conditional > t.Approval {
			errs = append(errs, fmt.Errorf(
				"thresholds: must satisfy 0 <= conditional (%g) <= approval (%g) <= 100",
				t.Conditional, t.Approval))
		}
	}

	seen := make(map[string]struct{}, len(doc.Rules))
	for i, r := range doc.Rules {
		label := r.ID
		if label == "" {
			label = fmt.Sprintf("#%d", i)
			errs = append(errs, fmt.Errorf("rules.%s: missing rule id", label))
		}

		if _, dup := seen[r.ID]; dup && r.ID != "" {
			errs = append(errs, fmt.Errorf("rules.%s: duplicate rule id", label))
		}
		seen[r.ID] = struct{}{}

		if !r.Severity.Valid() {
			errs = append(errs, fmt.Errorf("rules.%s: invalid severity %q; valid values: CRITICAL, HIGH, MEDIUM, LOW, INFO", label, r.Severity))
		}
		if !r.Category.Valid() {
			errs = append(errs, fmt.Errorf("rules.%s: unknown category %q", label, r.Category))
		}
		if r.Weight < 0 {
			errs = append(errs, fmt.Errorf("rules.%s: weight must be non-negative, got %g", label, r.Weight))
		}
		if !r.Effect.Valid() {
			errs = append(errs, fmt.Errorf("rules.%s: invalid effect %q; valid values: allow, deny", label, r.Effect))
		}

		if r.Condition.IsZero() {
			errs = append(errs, fmt.Errorf("rules.%s: missing condition", label))
			continue
		}
		for _, cerr := range r.Condition.Validate() {
			errs = append(errs, fmt.Errorf("rules.%s: condition: %w", label, cerr))
		}
	}

	return errs
}