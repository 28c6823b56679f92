package engine

import (
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/secgate-io/secgate/internal/models"
	"github.com/secgate-io/secgate/internal/policy"
)

// aggregate combines per-rule findings into a Decision:
//
//  1. Matched deny-effect findings subtract their weight from a base score
//     of 100, floored at 0.
//  2. Any matched critical finding (including evaluation errors) forces
//     verdict Deny regardless of score.
//  3. Otherwise the verdict follows the policy thresholds: Allow when
//     score >= approval, ConditionalApproval when score >= conditional,
//     Deny below.
//
// An explicit deny always overrides an explicit allow: allow-effect matches
// are recorded as grants but never raise the score or soften the verdict.
func aggregate(p *policy.Policy, ec *models.EvalContext, findings []models.Finding) *models.Decision {
	var (
		deduction float64
		counts    models.SeverityCounts
		criticals []string
	)

	for _, f := range findings {
		if !f.Matched {
			continue
		}
		counts.Add(f.Severity)
		if f.Violation() {
			deduction += f.Weight
		}
		if f.Critical {
			criticals = append(criticals, f.RuleID)
		}
	}

	score := 100 - deduction
	if score < 0 {
		score = 0
	}

	verdict := models.VerdictDeny
	switch {
	case len(criticals) > 0:
		verdict = models.VerdictDeny
	case score >= p.Thresholds().Approval:
		verdict = models.VerdictAllow
	case score >= p.Thresholds().Conditional:
		verdict = models.VerdictConditional
	}

	recorded := findings
	if !p.Options().Verbose {
		recorded = make([]models.Finding, 0, len(findings))
		for _, f := range findings {
			if f.Matched || f.Error != "" {
				recorded = append(recorded, f)
			}
		}
	}

	return &models.Decision{
		ID:                 uuid.NewString(),
		EvaluatedAt:        time.Now().UTC(),
		PolicyName:         p.Name(),
		PolicyVersion:      p.Version(),
		Context:            ec.Clone(),
		Findings:           recorded,
		Score:              score,
		Counts:             counts,
		Verdict:            verdict,
		CriticalViolations: criticals,
		Rationale:          rationale(verdict, score, criticals, findings),
	}
}

// rationale generates the one-line explanation stored on the decision,
// naming the critical violations or the highest-weight matched violations.
func rationale(verdict models.Verdict, score float64, criticals []string, findings []models.Finding) string {
	if len(criticals) > 0 {
		return fmt.Sprintf("denied: critical violation of %s", strings.Join(criticals, ", "))
	}

	var violations []models.Finding
	for _, f := range findings {
		if f.Violation() {
			violations = append(violations, f)
		}
	}
	if len(violations) == 0 {
		return fmt.Sprintf("%s: no violations, score %g", strings.ToLower(string(verdict)), score)
	}

	sort.SliceStable(violations, func(i, j int) bool {
		return violations[i].Weight > violations[j].Weight
	})
	const top = 3
	n := len(violations)
	if n > top {
		n = top
	}
	parts := make([]string, 0, n)
	for _, f := range violations[:n] {
		parts = append(parts, fmt.Sprintf("%s (-%g)", f.RuleID, f.Weight))
	}
	summary := strings.Join(parts, ", ")
	if len(violations) > top {
		summary += fmt.Sprintf(" and %d more", len(violations)-top)
	}
	return fmt.Sprintf("%s: score %g after %s", strings.ToLower(string(verdict)), score, summary)
}
