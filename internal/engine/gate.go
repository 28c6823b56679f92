package engine

import (
	"context"
	"fmt"
	"sync/atomic"

	"github.com/secgate-io/secgate/internal/audit"
	"github.com/secgate-io/secgate/internal/models"
	"github.com/secgate-io/secgate/internal/policy"
)

// Gate couples an Evaluator with the currently active Policy and an audit
// Store.
//
// The active policy is held behind an atomic pointer: SetPolicy installs a
// fully compiled snapshot in one atomic swap (copy-on-write), so concurrent
// Evaluate calls always see either the old policy or the new one, never a
// partially updated rule set, and need no locks.
type Gate struct {
	active    atomic.Pointer[policy.Policy]
	evaluator *Evaluator
	store     audit.Store
}

// NewGate returns a Gate evaluating against p. A nil store disables the
// audit trail.
func NewGate(p *policy.Policy, evaluator *Evaluator, store audit.Store) *Gate {
	if store == nil {
		store = audit.NopStore{}
	}
	g := &Gate{evaluator: evaluator, store: store}
	g.active.Store(p)
	return g
}

// SetPolicy atomically replaces the active policy. In-flight evaluations
// complete against the snapshot they started with.
func (g *Gate) SetPolicy(p *policy.Policy) {
	g.active.Store(p)
}

// Policy returns the currently active policy snapshot.
func (g *Gate) Policy() *policy.Policy {
	return g.active.Load()
}

// Evaluate evaluates ec against the active policy and appends the decision
// to the audit store. The returned Decision is always non-nil and final; a
// non-nil error reports only that persisting the record failed, never that
// the verdict changed.
func (g *Gate) Evaluate(ctx context.Context, ec *models.EvalContext) (*models.Decision, error) {
	d := g.evaluator.Evaluate(g.active.Load(), ec)
	if err := g.store.Append(ctx, d); err != nil {
		return d, fmt.Errorf("record decision: %w", err)
	}
	return d, nil
}
