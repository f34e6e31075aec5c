package engine

import (
	"errors"
	"time"

	"github.com/dhowell/redline/internal/planerr"
	"github.com/dhowell/redline/internal/planner"
)

// Phase names where in the pipeline a plan failed.
type Phase string

// Pipeline phases.
const (
	PhaseCompile Phase = "compile"
	PhaseExecute Phase = "execute"
)

// StepOutcome reports what one mutation step did.
type StepOutcome struct {
	StepID     string         `json:"stepId"`
	Op         planner.Op     `json:"op"`
	Effect     Effect         `json:"effect"`
	MatchCount int            `json:"matchCount"`
	Data       map[string]any `json:"data,omitempty"`
}

// Failure describes why a plan was rejected.
type Failure struct {
	Phase   Phase          `json:"phase"`
	Code    planerr.Code   `json:"code"`
	StepID  string         `json:"stepId,omitempty"`
	Message string         `json:"message"`
	Details map[string]any `json:"details,omitempty"`
}

// PlanReceipt is the result of an Apply. On success Revision is the
// post-commit revision, usable for minting follow-up references.
type PlanReceipt struct {
	Success   bool         `json:"success"`
	Steps     []StepOutcome `json:"steps,omitempty"`
	Failure   *Failure     `json:"failure,omitempty"`
	AppliedAt time.Time    `json:"appliedAt"`
	Revision  string       `json:"revision,omitempty"`
}

// PreviewResult is the result of a Preview. The document is never changed;
// EvaluatedRevision names the snapshot the plan was checked against.
type PreviewResult struct {
	EvaluatedRevision string        `json:"evaluatedRevision"`
	Steps             []StepOutcome `json:"steps,omitempty"`
	Valid             bool          `json:"valid"`
	Failures          []Failure     `json:"failures,omitempty"`
}

// failureFrom converts a plan error into a reportable Failure. Non-plan
// errors are left to the caller to propagate.
func failureFrom(phase Phase, err error) (Failure, bool) {
	var pe *planerr.Error
	if !errors.As(err, &pe) {
		return Failure{}, false
	}
	return Failure{
		Phase:   phase,
		Code:    pe.Code,
		StepID:  pe.StepID,
		Message: pe.Message,
		Details: pe.Details,
	}, true
}
