package engine

import (
	"encoding/json"
	"strconv"

	"github.com/dhowell/redline/internal/planerr"
	"github.com/dhowell/redline/internal/planner"
)

func execDomainCommand(ec *ExecContext, step planner.Step, target planner.CompiledTarget) (Effect, map[string]any, error) {
	var args struct {
		Command string          `json:"command"`
		Params  json.RawMessage `json:"params"`
	}
	if err := decodeArgs(step, &args); err != nil {
		return EffectNoop, nil, err
	}
	fn, err := ec.Registry.command(args.Command)
	if err != nil {
		return EffectNoop, nil, err
	}
	return fn(ec, step, target, args.Params)
}

// cmdBlockDelete removes the targeted block entirely.
func cmdBlockDelete(ec *ExecContext, step planner.Step, target planner.CompiledTarget, _ json.RawMessage) (Effect, map[string]any, error) {
	rt, err := rangeOf(step, target)
	if err != nil {
		return EffectNoop, nil, err
	}
	if rt.BlockID == "" {
		return EffectNoop, nil, planerr.New(planerr.CodeTargetNotFound,
			"block.delete resolved to no block").WithStep(step.ID)
	}
	if err := ec.Tx.DeleteBlock(rt.BlockID); err != nil {
		return EffectNoop, nil, internalErr(step.ID, err)
	}
	return EffectChanged, map[string]any{"blockId": rt.BlockID}, nil
}

// cmdBlockSetType retypes the targeted block.
func cmdBlockSetType(ec *ExecContext, step planner.Step, target planner.CompiledTarget, params json.RawMessage) (Effect, map[string]any, error) {
	var p struct {
		BlockType string `json:"blockType"`
		Level     int    `json:"level"`
	}
	if len(params) > 0 {
		if err := json.Unmarshal(params, &p); err != nil {
			return EffectNoop, nil, planerr.Newf(planerr.CodeInvalidInput, "malformed params: %v", err).WithStep(step.ID)
		}
	}
	if p.BlockType == "" {
		return EffectNoop, nil, planerr.New(planerr.CodeInvalidInput,
			"block.setType needs a blockType param").WithStep(step.ID)
	}
	if p.Level < 0 || p.Level > 6 {
		return EffectNoop, nil, planerr.Newf(planerr.CodeInvalidInput,
			"level must be 1 through 6, got %d", p.Level).WithStep(step.ID)
	}

	rt, err := rangeOf(step, target)
	if err != nil {
		return EffectNoop, nil, err
	}
	if rt.BlockID == "" {
		return EffectNoop, nil, planerr.New(planerr.CodeTargetNotFound,
			"block.setType resolved to no block").WithStep(step.ID)
	}

	var attrs map[string]string
	if p.Level > 0 {
		attrs = map[string]string{"level": strconv.Itoa(p.Level)}
	}
	changed, err := ec.Tx.SetBlockType(rt.BlockID, p.BlockType, attrs)
	if err != nil {
		return EffectNoop, nil, internalErr(step.ID, err)
	}
	return effect(changed), map[string]any{"blockId": rt.BlockID}, nil
}
