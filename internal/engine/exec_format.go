package engine

import (
	"github.com/dhowell/redline/internal/document"
	"github.com/dhowell/redline/internal/planerr"
	"github.com/dhowell/redline/internal/planner"
)

func execFormatApply(ec *ExecContext, step planner.Step, target planner.CompiledTarget) (Effect, map[string]any, error) {
	var args struct {
		Add []struct {
			Type  string            `json:"type"`
			Attrs map[string]string `json:"attrs"`
		} `json:"add"`
		Remove []string `json:"remove"`
	}
	if err := decodeArgs(step, &args); err != nil {
		return EffectNoop, nil, err
	}
	if len(args.Add) == 0 && len(args.Remove) == 0 {
		return EffectNoop, nil, planerr.New(planerr.CodeInvalidInput,
			"format.apply needs at least one mark to add or remove").WithStep(step.ID)
	}
	for _, a := range args.Add {
		if a.Type == "" {
			return EffectNoop, nil, planerr.New(planerr.CodeInvalidInput,
				"mark to add has empty type").WithStep(step.ID)
		}
	}
	for _, r := range args.Remove {
		if r == "" {
			return EffectNoop, nil, planerr.New(planerr.CodeInvalidInput,
				"mark type to remove is empty").WithStep(step.ID)
		}
	}

	// Removes run before adds so a type named by both ends up applied.
	changed := false
	for _, fr := range target.Flatten() {
		from, to := ec.Tx.MapRange(fr.BlockID, fr.From, fr.To)
		for _, markType := range args.Remove {
			c, err := ec.Tx.RemoveMark(fr.BlockID, from, to, markType)
			if err != nil {
				return EffectNoop, nil, internalErr(step.ID, err)
			}
			changed = changed || c
		}
		for _, a := range args.Add {
			c, err := ec.Tx.AddMark(fr.BlockID, from, to, document.Mark{Type: a.Type, Attrs: a.Attrs})
			if err != nil {
				return EffectNoop, nil, internalErr(step.ID, err)
			}
			changed = changed || c
		}
	}
	return effect(changed), nil, nil
}
