package engine

import (
	"strconv"

	"github.com/dhowell/redline/internal/document"
	"github.com/dhowell/redline/internal/planerr"
	"github.com/dhowell/redline/internal/planner"
)

func execCreateParagraph(ec *ExecContext, step planner.Step, target planner.CompiledTarget) (Effect, map[string]any, error) {
	var args struct {
		Text string `json:"text"`
	}
	if err := decodeArgs(step, &args); err != nil {
		return EffectNoop, nil, err
	}
	return insertNewBlock(ec, step, target, &document.Block{Type: "paragraph", Text: args.Text})
}

func execCreateHeading(ec *ExecContext, step planner.Step, target planner.CompiledTarget) (Effect, map[string]any, error) {
	var args struct {
		Text  string `json:"text"`
		Level int    `json:"level"`
	}
	if err := decodeArgs(step, &args); err != nil {
		return EffectNoop, nil, err
	}
	if args.Level == 0 {
		args.Level = 1
	}
	if args.Level < 1 || args.Level > 6 {
		return EffectNoop, nil, planerr.Newf(planerr.CodeInvalidInput,
			"heading level must be 1 through 6, got %d", args.Level).WithStep(step.ID)
	}
	return insertNewBlock(ec, step, target, &document.Block{
		Type:  "heading",
		Text:  args.Text,
		Attrs: map[string]string{"level": strconv.Itoa(args.Level)},
	})
}

// insertNewBlock places a freshly minted block after the target's block.
// The synthetic document-end target carries the last block's id, or no id
// at all when the document is empty, which appends.
func insertNewBlock(ec *ExecContext, step planner.Step, target planner.CompiledTarget, block *document.Block) (Effect, map[string]any, error) {
	rt, err := rangeOf(step, target)
	if err != nil {
		return EffectNoop, nil, err
	}
	block.ID = ec.NewID()
	if err := ec.Tx.InsertBlockAfter(rt.BlockID, block); err != nil {
		return EffectNoop, nil, internalErr(step.ID, err)
	}
	return EffectChanged, map[string]any{"blockId": block.ID}, nil
}
