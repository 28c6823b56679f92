package kubernetes

import (
	"testing"

	"github.com/secgate-io/secgate/internal/engine"
	"github.com/secgate-io/secgate/internal/models"
)

func podContext(mutate func(models.Attributes)) *models.EvalContext {
	res := models.Attributes{
		"type":            "pod",
		"name":            "api-1",
		"namespace":       "payments",
		"privileged":      false,
		"run_as_non_root": true,
		"host_network":    false,
		"host_pid":        false,
		"latest_image":    false,
	}
	if mutate != nil {
		mutate(res)
	}
	return &models.EvalContext{Name: "pod/payments/api-1", Resource: res}
}

func TestPackCompiles(t *testing.T) {
	p := New()
	if p.RuleCount() == 0 {
		t.Fatal("pack has no rules")
	}
}

func TestHardenedPodIsAllowed(t *testing.T) {
	d := engine.NewEvaluator(nil).Evaluate(New(), podContext(nil))
	if d.Verdict != models.VerdictAllow {
		t.Errorf("verdict = %s (score %g), want ALLOW", d.Verdict, d.Score)
	}
	if d.Score != 100 {
		t.Errorf("score = %g, want 100", d.Score)
	}
}

func TestPrivilegedPodIsDenied(t *testing.T) {
	d := engine.NewEvaluator(nil).Evaluate(New(), podContext(func(r models.Attributes) {
		r["privileged"] = true
	}))
	if d.Verdict != models.VerdictDeny {
		t.Errorf("verdict = %s, want DENY for a privileged pod", d.Verdict)
	}
}

func TestSoftViolationsDegradeTowardsDeny(t *testing.T) {
	// runAsRoot (-15) + latest image (-15): conditional band.
	d := engine.NewEvaluator(nil).Evaluate(New(), podContext(func(r models.Attributes) {
		r["run_as_non_root"] = false
		r["latest_image"] = true
	}))
	if d.Verdict != models.VerdictConditional {
		t.Errorf("verdict = %s (score %g), want CONDITIONAL_APPROVAL", d.Verdict, d.Score)
	}

	// Adding both host namespaces (-60 more) drops below the floor.
	d = engine.NewEvaluator(nil).Evaluate(New(), podContext(func(r models.Attributes) {
		r["run_as_non_root"] = false
		r["latest_image"] = true
		r["host_network"] = true
		r["host_pid"] = true
	}))
	if d.Verdict != models.VerdictDeny {
		t.Errorf("verdict = %s (score %g), want DENY", d.Verdict, d.Score)
	}
}
