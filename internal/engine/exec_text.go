package engine

import (
	"encoding/json"

	"github.com/dhowell/redline/internal/planerr"
	"github.com/dhowell/redline/internal/planner"
)

// decodeArgs unmarshals a step's args into v. Absent args leave v at its
// zero value.
func decodeArgs(step planner.Step, v any) error {
	if len(step.Args) == 0 {
		return nil
	}
	if err := json.Unmarshal(step.Args, v); err != nil {
		return planerr.Newf(planerr.CodeInvalidInput, "malformed args: %v", err).WithStep(step.ID)
	}
	return nil
}

// rangeOf asserts that a compiled target is single-block. The compiler
// guarantees this for ops outside the span-capable set.
func rangeOf(step planner.Step, target planner.CompiledTarget) (*planner.RangeTarget, error) {
	rt, ok := target.(*planner.RangeTarget)
	if !ok {
		return nil, planerr.Newf(planerr.CodeInternal, "op %q received a cross-block target", step.Op).WithStep(step.ID)
	}
	return rt, nil
}

// internalErr wraps a transaction failure. Targets were validated at
// compile time, so a mutation rejecting its range is an engine bug.
func internalErr(stepID string, err error) error {
	return planerr.Newf(planerr.CodeInternal, "mutation failed: %v", err).WithStep(stepID)
}

func execTextRewrite(ec *ExecContext, step planner.Step, target planner.CompiledTarget) (Effect, map[string]any, error) {
	var args struct {
		Replacement struct {
			Text string `json:"text"`
		} `json:"replacement"`
		PreserveStyle bool `json:"preserveStyle"`
	}
	if err := decodeArgs(step, &args); err != nil {
		return EffectNoop, nil, err
	}
	rt, err := rangeOf(step, target)
	if err != nil {
		return EffectNoop, nil, err
	}

	from, to := ec.Tx.MapRange(rt.BlockID, rt.From, rt.To)
	changed, err := ec.Tx.ReplaceText(rt.BlockID, from, to, args.Replacement.Text)
	if err != nil {
		return EffectNoop, nil, internalErr(step.ID, err)
	}

	if args.PreserveStyle && rt.Style != nil && rt.Style.IsUniform && len(rt.Style.Runs) == 1 {
		end := from + len(args.Replacement.Text)
		for _, m := range rt.Style.Runs[0].Marks {
			marked, err := ec.Tx.AddMark(rt.BlockID, from, end, m)
			if err != nil {
				return EffectNoop, nil, internalErr(step.ID, err)
			}
			changed = changed || marked
		}
	}

	return effect(changed), map[string]any{"previousText": rt.Text}, nil
}

func execTextInsert(ec *ExecContext, step planner.Step, target planner.CompiledTarget) (Effect, map[string]any, error) {
	var args struct {
		Text     string `json:"text"`
		Position string `json:"position"`
	}
	if err := decodeArgs(step, &args); err != nil {
		return EffectNoop, nil, err
	}
	rt, err := rangeOf(step, target)
	if err != nil {
		return EffectNoop, nil, err
	}

	var anchor int
	switch args.Position {
	case "", "before":
		anchor = rt.From
	case "after":
		anchor = rt.To
	default:
		return EffectNoop, nil, planerr.Newf(planerr.CodeInvalidInput,
			"position must be %q or %q, got %q", "before", "after", args.Position).WithStep(step.ID)
	}

	pos := ec.Tx.MapPos(rt.BlockID, anchor)
	changed, err := ec.Tx.InsertText(rt.BlockID, pos, args.Text)
	if err != nil {
		return EffectNoop, nil, internalErr(step.ID, err)
	}
	return effect(changed), nil, nil
}

func execTextDelete(ec *ExecContext, step planner.Step, target planner.CompiledTarget) (Effect, map[string]any, error) {
	changed := false
	for _, fr := range target.Flatten() {
		from, to := ec.Tx.MapRange(fr.BlockID, fr.From, fr.To)
		c, err := ec.Tx.DeleteText(fr.BlockID, from, to)
		if err != nil {
			return EffectNoop, nil, internalErr(step.ID, err)
		}
		changed = changed || c
	}
	return effect(changed), nil, nil
}

func effect(changed bool) Effect {
	if changed {
		return EffectChanged
	}
	return EffectNoop
}
