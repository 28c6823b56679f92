// Package output renders decisions for terminal consumption.
package output

import (
	"fmt"
	"io"
	"strings"

	"github.com/secgate-io/secgate/internal/models"
)

// ANSI color codes for severity output (used when Colored=true).
const (
	ansiReset   = "\033[0m"
	ansiBoldRed = "\033[1;31m"
	ansiRed     = "\033[0;31m"
	ansiYellow  = "\033[0;33m"
	ansiBlue    = "\033[0;34m"
)

// ColorSeverity wraps a severity string with ANSI codes when colored is true.
// When colored is false the string is returned unchanged (CI-safe default).
func ColorSeverity(sev models.Severity, colored bool) string {
	s := string(sev)
	if !colored {
		return s
	}
	switch sev {
	case models.SeverityCritical:
		return ansiBoldRed + s + ansiReset
	case models.SeverityHigh:
		return ansiRed + s + ansiReset
	case models.SeverityMedium:
		return ansiYellow + s + ansiReset
	case models.SeverityLow:
		return ansiBlue + s + ansiReset
	default:
		return s
	}
}

// RenderDecision writes a human-readable view of a single decision: a header
// with the score and verdict, followed by a findings table.
func RenderDecision(w io.Writer, d *models.Decision, colored bool) {
	fmt.Fprintf(w, "Policy:   %s\n", d.PolicyName)
	if d.Context != nil && d.Context.Name != "" {
		fmt.Fprintf(w, "Context:  %s\n", d.Context.Name)
	}
	if d.Context != nil && d.Context.Action != "" {
		fmt.Fprintf(w, "Action:   %s\n", d.Context.Action)
	}
	fmt.Fprintf(w, "Score:    %g\n", d.Score)
	fmt.Fprintf(w, "Verdict:  %s\n", d.Verdict)
	fmt.Fprintf(w, "Rationale: %s\n", d.Rationale)

	if len(d.Findings) == 0 {
		fmt.Fprintln(w, "No findings.")
		return
	}

	fmt.Fprintln(w)
	fmt.Fprintf(w, "%-36s  %-16s  %-10s  %-6s  %-8s  %s\n",
		"RULE ID", "CATEGORY", "SEVERITY", "WEIGHT", "EFFECT", "STATUS")
	fmt.Fprintln(w, strings.Repeat("-", 96))
	for _, f := range d.Findings {
		fmt.Fprintf(w, "%-36s  %-16s  %-10s  %-6g  %-8s  %s\n",
			f.RuleID,
			string(f.Category),
			ColorSeverity(f.Severity, colored),
			f.Weight,
			string(f.Effect),
			findingStatus(f),
		)
	}
}

// findingStatus summarises a finding for the STATUS column.
func findingStatus(f models.Finding) string {
	switch {
	case f.Error != "":
		return "error: " + f.Error
	case f.Matched && f.Critical:
		return "matched (critical)"
	case f.Matched:
		return "matched"
	default:
		return "passed"
	}
}

// RenderRunSummary writes a compact summary for a multi-context gate run:
// verdict counts, total matched findings by severity, and one row per
// evaluated context.
func RenderRunSummary(w io.Writer, decisions []*models.Decision) {
	var allow, conditional, deny int
	var counts models.SeverityCounts
	for _, d := range decisions {
		switch d.Verdict {
		case models.VerdictAllow:
			allow++
		case models.VerdictConditional:
			conditional++
		default:
			deny++
		}
		counts.Critical += d.Counts.Critical
		counts.High += d.Counts.High
		counts.Medium += d.Counts.Medium
		counts.Low += d.Counts.Low
		counts.Info += d.Counts.Info
	}

	fmt.Fprintf(w, "Contexts evaluated:  %d\n", len(decisions))
	fmt.Fprintf(w, "Allow: %d  Conditional: %d  Deny: %d\n", allow, conditional, deny)
	fmt.Fprintln(w)
	fmt.Fprintln(w, "Matched Findings by Severity")
	fmt.Fprintf(w, "  %-10s  %d\n", "CRITICAL", counts.Critical)
	fmt.Fprintf(w, "  %-10s  %d\n", "HIGH", counts.High)
	fmt.Fprintf(w, "  %-10s  %d\n", "MEDIUM", counts.Medium)
	fmt.Fprintf(w, "  %-10s  %d\n", "LOW", counts.Low)

	if len(decisions) == 0 {
		return
	}

	fmt.Fprintln(w)
	fmt.Fprintf(w, "%-48s  %-7s  %-9s  %s\n", "CONTEXT", "SCORE", "CRITICAL", "VERDICT")
	fmt.Fprintln(w, strings.Repeat("-", 90))
	for _, d := range decisions {
		name := ""
		if d.Context != nil {
			name = d.Context.Name
		}
		fmt.Fprintf(w, "%-48s  %-7g  %-9d  %s\n",
			name, d.Score, d.Counts.Critical, d.Verdict)
	}
}

// WorstVerdict returns the most restrictive verdict across decisions:
// Deny > ConditionalApproval > Allow. An empty run is an Allow.
func WorstVerdict(decisions []*models.Decision) models.Verdict {
	worst := models.VerdictAllow
	for _, d := range decisions {
		switch d.Verdict {
		case models.VerdictDeny:
			return models.VerdictDeny
		case models.VerdictConditional:
			worst = models.VerdictConditional
		}
	}
	return worst
}
