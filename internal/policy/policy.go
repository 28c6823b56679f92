// Package policy defines the declarative policy document format, its
// validation, and compilation into the immutable form the engine evaluates.
//
// Policies are data, not code: a list of rules, each a condition with
// severity/weight metadata, loaded from YAML or JSON. Once compiled a Policy
// is read-only; policy updates are performed by compiling a new Policy and
// swapping the reference, never by mutating rules in place.
package policy

import (
	"sort"

	"github.com/secgate-io/secgate/internal/condition"
	"github.com/secgate-io/secgate/internal/models"
)

// SupportedVersion is the only policy document version this build accepts.
const SupportedVersion = 1

// Default verdict thresholds, applied when the document omits them.
const (
	DefaultApprovalThreshold    = 80
	DefaultConditionalThreshold = 60
)

// RuleSpec is one declarative rule in a policy document.
type RuleSpec struct {
	// ID uniquely identifies the rule within its policy (e.g. "S3_PUBLIC_BUCKET").
	ID          string          `json:"id" yaml:"id"`
	Description string          `json:"description,omitempty" yaml:"description,omitempty"`
	Category    models.Category `json:"category,omitempty" yaml:"category,omitempty"`
	Severity    models.Severity `json:"severity" yaml:"severity"`

	// Weight is the non-negative score deduction applied when the rule
	// matches with deny effect.
	Weight float64 `json:"weight" yaml:"weight"`

	// Critical forces an overall Deny when the rule matches, regardless of
	// the aggregate score.
	Critical bool `json:"critical,omitempty" yaml:"critical,omitempty"`

	// Priority orders evaluation: higher values are evaluated first.
	// Rules with equal priority keep document order.
	Priority int `json:"priority,omitempty" yaml:"priority,omitempty"`

	// Effect states what a match means: "deny" (violation, the default)
	// or "allow" (explicit grant). An explicit deny always overrides an
	// allow, regardless of priority.
	Effect models.Effect `json:"effect,omitempty" yaml:"effect,omitempty"`

	Condition condition.Condition `json:"condition" yaml:"condition"`
}

// Thresholds holds the score cut-offs that map a score to a verdict.
// Invariant (validated at load): 0 <= Conditional <= Approval <= 100.
type Thresholds struct {
	// Approval is the minimum score for an Allow verdict. Default 80.
	Approval float64 `json:"approval" yaml:"approval"`

	// Conditional is the minimum score for a ConditionalApproval verdict.
	// Scores below it yield Deny. Default 60.
	Conditional float64 `json:"conditional" yaml:"conditional"`
}

// Options are per-policy evaluation switches.
type Options struct {
	// FailFast permits the evaluator to stop once the highest-priority
	// deny-effect rule has matched. Off by default: every rule is
	// evaluated so the decision captures all applicable findings.
	FailFast bool `json:"fail_fast,omitempty" yaml:"fail_fast,omitempty"`

	// Verbose records every finding on the decision, including rules that
	// did not match. Off by default: only matched and errored findings
	// are recorded.
	Verbose bool `json:"verbose,omitempty" yaml:"verbose,omitempty"`
}

// Document is the on-disk policy format as written by users.
// An omitted thresholds block means "use the defaults" (80/60); a present
// block is taken literally, so an explicit 0 is honoured.
type Document struct {
	Version    int         `json:"version" yaml:"version"`
	Name       string      `json:"name,omitempty" yaml:"name,omitempty"`
	Thresholds *Thresholds `json:"thresholds,omitempty" yaml:"thresholds,omitempty"`
	Options    Options     `json:"options,omitempty" yaml:"options,omitempty"`
	Rules      []RuleSpec  `json:"rules" yaml:"rules"`
}

// Policy is the compiled, immutable form of a Document. Rules are sorted by
// descending priority (stable, so document order breaks ties) and defaults
// are applied. A Policy is safe for concurrent use by any number of
// evaluations; it is never mutated after compilation.
type Policy struct {
	name       string
	version    int
	thresholds Thresholds
	options    Options
	rules      []RuleSpec
}

// Compile validates doc and produces an immutable Policy. All validation
// errors are collected into the returned *ConfigurationError; no partially
// valid policy is ever produced.
func Compile(doc *Document) (*Policy, error) {
	if errs := Validate(doc); len(errs) > 0 {
		return nil, &ConfigurationError{Errs: errs}
	}

	th := Thresholds{
		Approval:    DefaultApprovalThreshold,
		Conditional: DefaultConditionalThreshold,
	}
	if doc.Thresholds != nil {
		th = *doc.Thresholds
	}

	rules := make([]RuleSpec, len(doc.Rules))
	copy(rules, doc.Rules)
	for i := range rules {
		if rules[i].Effect == "" {
			rules[i].Effect = models.EffectDeny
		}
	}
	sort.SliceStable(rules, func(i, j int) bool {
		return rules[i].Priority > rules[j].Priority
	})

	return &Policy{
		name:       doc.Name,
		version:    doc.Version,
		thresholds: th,
		options:    doc.Options,
		rules:      rules,
	}, nil
}

// MustCompile is Compile for statically defined policies (built-in policy
// packs). It panics on validation failure so wiring mistakes surface at
// startup.
func MustCompile(doc *Document) *Policy {
	p, err := Compile(doc)
	if err != nil {
		panic(err)
	}
	return p
}

// Name returns the policy's display name.
func (p *Policy) Name() string { return p.name }

// Version returns the document version the policy was compiled from.
func (p *Policy) Version() int { return p.version }

// Thresholds returns the effective verdict thresholds.
func (p *Policy) Thresholds() Thresholds { return p.thresholds }

// Options returns the policy's evaluation options.
func (p *Policy) Options() Options { return p.options }

// Rules returns the compiled rules in evaluation order (priority descending,
// stable). Callers must treat the returned slice as read-only.
func (p *Policy) Rules() []RuleSpec { return p.rules }

// RuleCount returns the number of compiled rules.
func (p *Policy) RuleCount() int { return len(p.rules) }
