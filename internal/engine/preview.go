package engine

import (
	"context"

	"github.com/dhowell/redline/internal/planner"
)

// Preview runs the same pipeline as Apply but never commits: the shared
// transaction is discarded whether the plan succeeds or not. Plan failures
// come back inside the result; only infrastructure errors are returned.
func (e *Engine) Preview(ctx context.Context, req *PreviewRequest) (*PreviewResult, error) {
	result := &PreviewResult{EvaluatedRevision: req.Doc.Revision()}

	plan, err := planner.Compile(req.Doc, req.Steps, e.registry, e.searcher, e.limits)
	if err != nil {
		f, ok := failureFrom(PhaseCompile, err)
		if !ok {
			return nil, err
		}
		result.Failures = append(result.Failures, f)
		return result, nil
	}

	// Assert failures are all collected so a caller sees every unmet
	// precondition at once.
	for _, a := range plan.AssertSteps {
		if err := e.evaluateAssert(req.Doc, a); err != nil {
			f, ok := failureFrom(PhaseExecute, err)
			if !ok {
				return nil, err
			}
			result.Failures = append(result.Failures, f)
		}
	}

	tx := req.Doc.Begin()
	ec := &ExecContext{Tx: tx, NewID: e.newID, Registry: e.registry}
	for _, cs := range plan.MutationSteps {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		out, err := e.runStep(ec, cs)
		if err != nil {
			f, ok := failureFrom(PhaseExecute, err)
			if !ok {
				return nil, err
			}
			result.Failures = append(result.Failures, f)
			break
		}
		result.Steps = append(result.Steps, out)
	}
	// tx is dropped here without Commit; the document never sees it.

	result.Valid = len(result.Failures) == 0
	return result, nil
}
