package models

import (
	"encoding/json"
	"fmt"
	"time"
)

// Verdict is the final outcome of evaluating a policy against a context.
type Verdict string

const (
	VerdictAllow       Verdict = "ALLOW"
	VerdictDeny        Verdict = "DENY"
	VerdictConditional Verdict = "CONDITIONAL_APPROVAL"
)

// ExitCode maps a verdict to the process exit code contract:
// 0 Allow, 1 Deny, 2 ConditionalApproval. Unknown verdicts map to 1.
func (v Verdict) ExitCode() int {
	switch v {
	case VerdictAllow:
		return 0
	case VerdictConditional:
		return 2
	default:
		return 1
	}
}

// SeverityCounts tallies matched findings by severity.
type SeverityCounts struct {
	Critical int `json:"critical"`
	High     int `json:"high"`
	Medium   int `json:"medium"`
	Low      int `json:"low"`
	Info     int `json:"info"`
}

// Add increments the counter for sev. Unknown severities are ignored.
func (c *SeverityCounts) Add(sev Severity) {
	switch sev {
	case SeverityCritical:
		c.Critical++
	case SeverityHigh:
		c.High++
	case SeverityMedium:
		c.Medium++
	case SeverityLow:
		c.Low++
	case SeverityInfo:
		c.Info++
	}
}

// Decision is the immutable, auditable result of one policy evaluation.
// It captures the input context snapshot, every relevant finding, the
// weighted score, and the final verdict. A Decision is created once per
// evaluation and never modified afterwards; it remains valid even when
// persisting it to the audit store fails.
type Decision struct {
	ID            string    `json:"id"`
	EvaluatedAt   time.Time `json:"evaluated_at"`
	PolicyName    string    `json:"policy_name"`
	PolicyVersion int       `json:"policy_version"`

	// Context is a deep copy of the evaluated context taken at decision
	// time, so later mutation of the caller's context cannot alter the
	// audit record.
	Context *EvalContext `json:"context,omitempty"`

	// Findings lists matched and errored findings. When the policy's
	// verbose option is set it lists every finding, including rules that
	// did not match.
	Findings []Finding `json:"findings"`

	// Score is 100 minus the summed weights of matched deny-effect
	// findings, floored at 0.
	Score float64 `json:"score"`

	// Counts tallies matched findings by severity.
	Counts SeverityCounts `json:"severity_counts"`

	Verdict Verdict `json:"verdict"`

	// CriticalViolations lists the rule IDs of matched critical findings
	// that forced the verdict to Deny.
	CriticalViolations []string `json:"critical_violations,omitempty"`

	// Rationale is a generated one-line summary naming the rules that
	// drove the decision.
	Rationale string `json:"rationale"`
}

// ExitCode returns the process exit code for the decision's verdict.
func (d *Decision) ExitCode() int {
	return d.Verdict.ExitCode()
}

// Matched returns the subset of findings that matched.
func (d *Decision) Matched() []Finding {
	var out []Finding
	for _, f := range d.Findings {
		if f.Matched {
			out = append(out, f)
		}
	}
	return out
}

// Storable serialises the decision for persistence. A serialisation failure
// is reported to the caller; it never invalidates the in-memory decision.
func (d *Decision) Storable() ([]byte, error) {
	data, err := json.Marshal(d)
	if err != nil {
		return nil, fmt.Errorf("serialise decision %s: %w", d.ID, err)
	}
	return data, nil
}
