package engine

import (
	"github.com/dhowell/redline/internal/document"
	"github.com/dhowell/redline/internal/planerr"
	"github.com/dhowell/redline/internal/planner"
	"github.com/dhowell/redline/internal/refs"
	"github.com/dhowell/redline/internal/selector"
)

// evaluateAssert checks one assert step against the document snapshot. A
// failed expectation is PRECONDITION_FAILED; resolution errors keep their
// own codes.
func (e *Engine) evaluateAssert(doc *document.Document, step planner.Step) error {
	var args struct {
		ExpectedMatches *int `json:"expectedMatches"`
	}
	if err := decodeArgs(step, &args); err != nil {
		return err
	}

	count, err := e.countMatches(doc, step)
	if err != nil {
		return err
	}

	if args.ExpectedMatches != nil {
		if count != *args.ExpectedMatches {
			return planerr.Newf(planerr.CodePreconditionFailed,
				"expected %d matches, found %d", *args.ExpectedMatches, count).
				WithStep(step.ID).
				WithDetail("expected", *args.ExpectedMatches).
				WithDetail("actual", count)
		}
		return nil
	}
	if count == 0 {
		return planerr.New(planerr.CodePreconditionFailed, "expected at least one match, found none").
			WithStep(step.ID).
			WithDetail("expected", ">=1").
			WithDetail("actual", 0)
	}
	return nil
}

// countMatches resolves an assert's where clause and returns how many
// distinct targets it names in the snapshot.
func (e *Engine) countMatches(doc *document.Document, step planner.Step) (int, error) {
	w := step.Where
	switch w.By {
	case planner.ByRef:
		decoded, err := refs.Decode(w.Ref)
		if err != nil {
			return 0, stamp(err, step.ID)
		}
		if decoded.IsBlockRef() {
			if _, _, ok := doc.BlockByID(decoded.BlockID); ok {
				return 1, nil
			}
			return 0, nil
		}
		p := decoded.Payload
		if err := refs.CheckRevision(p, doc.Revision()); err != nil {
			return 0, stamp(err, step.ID)
		}
		addrs := make([]selector.TextAddress, len(p.Segments))
		for i, seg := range p.Segments {
			addrs[i] = selector.TextAddress{
				BlockID: seg.BlockID,
				Range:   selector.Range{Start: seg.Start, End: seg.End},
			}
		}
		if _, err := selector.NormalizeSpan(doc, addrs); err != nil {
			return 0, stamp(err, step.ID)
		}
		return 1, nil

	case planner.BySelect:
		sel := w.Select
		if sel == nil {
			return 0, planerr.New(planerr.CodeInvalidInput, "select where clause has no selector").WithStep(step.ID)
		}
		resolver := selector.NewResolver(doc, e.searcher, e.limits)
		switch sel.Type {
		case "text":
			res, err := resolver.ResolveText(selector.TextSelector{
				Pattern:       sel.Pattern,
				Mode:          sel.Mode,
				CaseSensitive: sel.CaseSensitive,
			}, w.Within)
			if err != nil {
				return 0, stamp(err, step.ID)
			}
			return len(res.Matches), nil
		case "node":
			res, err := resolver.ResolveNode(selector.NodeSelector{
				NodeType: sel.NodeType,
				Kind:     sel.Kind,
			}, w.Within)
			if err != nil {
				return 0, stamp(err, step.ID)
			}
			return len(res.Matches), nil
		default:
			return 0, planerr.Newf(planerr.CodeInvalidInput, "unknown selector type %q", sel.Type).WithStep(step.ID)
		}

	default:
		return 0, planerr.Newf(planerr.CodeInvalidInput, "unknown where discriminator %q", w.By).WithStep(step.ID)
	}
}

// stamp attributes a plan error to a step when it lacks one.
func stamp(err error, stepID string) error {
	if planerr.StepOf(err) != "" {
		return err
	}
	if pe, ok := err.(*planerr.Error); ok {
		return pe.WithStep(stepID)
	}
	return err
}
