package engine

import (
	"context"

	"github.com/dhowell/redline/internal/logging"
	"github.com/dhowell/redline/internal/planerr"
	"github.com/dhowell/redline/internal/planner"
)

// Apply compiles the plan against the document snapshot, checks every
// precondition, executes every mutation step in one transaction, and
// commits. The document is untouched unless every step succeeds.
//
// Algorithm steps:
//  1. Compile: resolve selectors and refs, enforce cardinality, detect
//     overlapping targets
//  2. Evaluate assert steps against the snapshot
//  3. Execute mutation steps left to right, remapping positions through
//     edits already made
//  4. Commit, bumping the revision
func (e *Engine) Apply(ctx context.Context, req *ApplyRequest) (*PlanReceipt, error) {
	plan, err := planner.Compile(req.Doc, req.Steps, e.registry, e.searcher, e.limits)
	if err != nil {
		return e.failedReceipt(PhaseCompile, err), err
	}

	tx := req.Doc.Begin()
	ec := &ExecContext{Tx: tx, NewID: e.newID, Registry: e.registry}

	for _, a := range plan.AssertSteps {
		if err := e.evaluateAssert(req.Doc, a); err != nil {
			return e.failedReceipt(PhaseExecute, err), err
		}
	}

	outcomes := make([]StepOutcome, 0, len(plan.MutationSteps))
	for _, cs := range plan.MutationSteps {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		out, err := e.runStep(ec, cs)
		if err != nil {
			return e.failedReceipt(PhaseExecute, err), err
		}
		outcomes = append(outcomes, out)
	}

	changed := tx.Changed()
	if err := tx.Commit(); err != nil {
		err = planerr.Newf(planerr.CodeInternal, "commit failed: %v", err)
		return e.failedReceipt(PhaseExecute, err), err
	}

	logging.Engine().Info().
		Int("steps", len(outcomes)).
		Bool("changed", changed).
		Str("revision", req.Doc.Revision()).
		Msg("plan applied")

	return &PlanReceipt{
		Success:   true,
		Steps:     outcomes,
		AppliedAt: e.clock.Now(),
		Revision:  req.Doc.Revision(),
	}, nil
}

// runStep dispatches one compiled step to its executor, once per resolved
// target in document order.
func (e *Engine) runStep(ec *ExecContext, cs planner.CompiledStep) (StepOutcome, error) {
	ex, err := e.registry.executor(cs.Step.Op)
	if err != nil {
		return StepOutcome{}, stamp(err, cs.Step.ID)
	}

	out := StepOutcome{
		StepID:     cs.Step.ID,
		Op:         cs.Step.Op,
		Effect:     EffectNoop,
		MatchCount: len(cs.Targets),
	}
	for _, target := range cs.Targets {
		eff, data, err := ex(ec, cs.Step, target)
		if err != nil {
			return StepOutcome{}, err
		}
		if eff == EffectChanged {
			out.Effect = EffectChanged
		}
		if data != nil && len(cs.Targets) == 1 {
			out.Data = data
		}
	}
	return out, nil
}

func (e *Engine) failedReceipt(phase Phase, err error) *PlanReceipt {
	r := &PlanReceipt{AppliedAt: e.clock.Now()}
	if f, ok := failureFrom(phase, err); ok {
		r.Failure = &f
	}
	return r
}
