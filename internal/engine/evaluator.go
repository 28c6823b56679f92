// Package engine evaluates compiled policies against contexts and aggregates
// the per-rule findings into an immutable, auditable Decision.
package engine

import (
	"go.uber.org/zap"

	"github.com/secgate-io/secgate/internal/models"
	"github.com/secgate-io/secgate/internal/policy"
)

// Evaluator applies a compiled Policy to an EvalContext.
//
// Evaluation is stateless and side-effect free per call: any number of
// goroutines may evaluate contexts against a shared, immutable Policy
// concurrently without synchronisation.
type Evaluator struct {
	logger *zap.Logger
}

// NewEvaluator returns an Evaluator logging through logger.
// A nil logger disables logging.
func NewEvaluator(logger *zap.Logger) *Evaluator {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Evaluator{logger: logger}
}

// Evaluate runs every rule of p against ec and returns the aggregated
// Decision. It never fails: a rule whose condition cannot be evaluated is
// folded into a matched, critical finding carrying the error annotation, and
// evaluation continues with the remaining rules. Evaluation errors default to
// deny, never to allow.
//
// Rules are evaluated in priority order (descending, stable). When the
// policy's fail_fast option is set, evaluation stops after the first matched
// deny-effect rule; the rules already evaluated still contribute findings.
func (e *Evaluator) Evaluate(p *policy.Policy, ec *models.EvalContext) *models.Decision {
	if ec == nil {
		ec = &models.EvalContext{}
	}

	rules := p.Rules()
	findings := make([]models.Finding, 0, len(rules))

	for _, rule := range rules {
		f := models.Finding{
			RuleID:      rule.ID,
			Description: rule.Description,
			Category:    rule.Category,
			Severity:    rule.Severity,
			Effect:      rule.Effect,
			Priority:    rule.Priority,
			Weight:      rule.Weight,
			Critical:    rule.Critical,
		}

		matched, err := rule.Condition.Evaluate(ec)
		if err != nil {
			// Fail-safe: an unevaluable rule denies and reports.
			f.Matched = true
			f.Critical = true
			f.Severity = models.SeverityCritical
			f.Error = err.Error()
			e.logger.Warn("rule evaluation error",
				zap.String("rule_id", rule.ID),
				zap.String("context", ec.Name),
				zap.Error(err))
		} else {
			f.Matched = matched
		}
		findings = append(findings, f)

		if p.Options().FailFast && f.Matched && f.Effect == models.EffectDeny {
			e.logger.Debug("fail-fast: stopping after matched deny rule",
				zap.String("rule_id", rule.ID))
			break
		}
	}

	d := aggregate(p, ec, findings)
	e.logger.Debug("evaluated context",
		zap.String("policy", p.Name()),
		zap.String("context", ec.Name),
		zap.Float64("score", d.Score),
		zap.String("verdict", string(d.Verdict)))
	return d
}
