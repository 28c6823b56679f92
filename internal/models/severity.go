package models

import (
	"fmt"
	"strings"
)

// Severity represents the impact level of a rule violation.
type Severity string

const (
	SeverityCritical Severity = "CRITICAL"
	SeverityHigh     Severity = "HIGH"
	SeverityMedium   Severity = "MEDIUM"
	SeverityLow      Severity = "LOW"
	SeverityInfo     Severity = "INFO"
)

// severityRank orders severities for comparison and sorting.
// Higher rank = more severe. Unknown severities rank 0.
var severityRank = map[Severity]int{
	SeverityCritical: 5,
	SeverityHigh:     4,
	SeverityMedium:   3,
	SeverityLow:      2,
	SeverityInfo:     1,
}

// Rank returns the numeric ordering for s: CRITICAL (5) > HIGH (4) >
// MEDIUM (3) > LOW (2) > INFO (1). Unknown values return 0.
func (s Severity) Rank() int {
	return severityRank[s]
}

// Valid reports whether s is one of the five recognised severity levels.
func (s Severity) Valid() bool {
	_, ok := severityRank[s]
	return ok
}

// ParseSeverity canonicalises raw (case-insensitive) into a Severity.
// Returns an error naming the valid values when raw is not recognised.
func ParseSeverity(raw string) (Severity, error) {
	s := Severity(strings.ToUpper(strings.TrimSpace(raw)))
	if !s.Valid() {
		return "", fmt.Errorf("invalid severity %q; valid values: CRITICAL, HIGH, MEDIUM, LOW, INFO", raw)
	}
	return s, nil
}

// Category classifies what aspect of security posture a rule covers.
type Category string

const (
	CategoryEncryption    Category = "encryption"
	CategoryAccessControl Category = "access_control"
	CategoryNetwork       Category = "network"
	CategoryIntegrity     Category = "integrity"
	CategoryConfiguration Category = "configuration"
)

var validCategories = map[Category]struct{}{
	CategoryEncryption:    {},
	CategoryAccessControl: {},
	CategoryNetwork:       {},
	CategoryIntegrity:     {},
	CategoryConfiguration: {},
}

// Valid reports whether c is a recognised category. The empty category is
// valid: rules are not required to declare one.
func (c Category) Valid() bool {
	if c == "" {
		return true
	}
	_, ok := validCategories[c]
	return ok
}

// Effect states what a rule match means for the overall decision.
type Effect string

const (
	// EffectDeny marks a matched rule as a violation: its weight is
	// subtracted from the score and it pushes the verdict toward Deny.
	EffectDeny Effect = "deny"

	// EffectAllow marks a matched rule as an explicit grant. Grants never
	// contribute weight; an explicit deny always overrides them.
	EffectAllow Effect = "allow"
)

// Valid reports whether e is a recognised effect. The empty effect is valid
// and is treated as deny (most restrictive default).
func (e Effect) Valid() bool {
	return e == "" || e == EffectDeny || e == EffectAllow
}
