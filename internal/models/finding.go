package models

// Finding is the outcome of evaluating one rule against one context.
// It is the atomic output unit of the evaluator.
type Finding struct {
	RuleID      string   `json:"rule_id"`
	Description string   `json:"description,omitempty"`
	Category    Category `json:"category,omitempty"`
	Severity    Severity `json:"severity"`
	Effect      Effect   `json:"effect"`
	Priority    int      `json:"priority"`

	// Matched is true when the rule's condition held for the context, or
	// when the condition could not be evaluated (fail-safe: an unevaluable
	// rule counts as matched so it can never silently grant access).
	Matched bool `json:"matched"`

	// Weight is the score contribution of this finding. Only matched
	// deny-effect findings subtract their weight from the score.
	Weight float64 `json:"weight"`

	// Critical marks a finding whose match forces an overall Deny
	// regardless of the aggregate score.
	Critical bool `json:"critical"`

	// Error carries the evaluation error when the rule's condition could
	// not be applied to the context (missing attribute, type mismatch).
	// Such findings are always Matched, Critical, and CRITICAL severity.
	Error string `json:"error,omitempty"`
}

// Violation reports whether this finding counts against the score: a matched
// finding whose effect is deny (the default effect).
func (f Finding) Violation() bool {
	return f.Matched && f.Effect != EffectAllow
}
