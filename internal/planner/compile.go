package planner

import (
	"encoding/json"
	"fmt"
	"sort"

	"github.com/dhowell/redline/internal/config"
	"github.com/dhowell/redline/internal/document"
	"github.com/dhowell/redline/internal/logging"
	"github.com/dhowell/redline/internal/planerr"
	"github.com/dhowell/redline/internal/refs"
	"github.com/dhowell/redline/internal/selector"
	"github.com/dhowell/redline/internal/style"
)

// RegistryView is the compiler's read-only view of the executor registry.
type RegistryView interface {
	// HasExecutor reports whether op has a registered mutation executor.
	HasExecutor(op Op) bool

	// HasCommand reports whether a domain command name is registered.
	HasCommand(name string) bool

	// CommandNeedsTarget reports whether a domain command operates on a
	// resolved target. Commands that do may not omit their where clause.
	CommandNeedsTarget(name string) bool
}

// Compile resolves every step's target against the document snapshot and
// returns a conflict-free plan, or the first error encountered. It never
// mutates the document.
func Compile(doc *document.Document, steps []Step, reg RegistryView, search document.Searcher, limits config.Limits) (*CompiledPlan, error) {
	if len(steps) > limits.MaxSteps {
		return nil, planerr.Newf(planerr.CodeInvalidInput,
			"plan has %d steps, limit is %d", len(steps), limits.MaxSteps)
	}
	seen := make(map[string]bool, len(steps))
	for _, s := range steps {
		if s.ID == "" {
			return nil, planerr.New(planerr.CodeInvalidInput, "step has empty id")
		}
		if seen[s.ID] {
			return nil, planerr.Newf(planerr.CodeInvalidInput, "duplicate step id %q", s.ID)
		}
		seen[s.ID] = true
	}

	c := &compiler{
		doc:      doc,
		reg:      reg,
		limits:   limits,
		resolver: selector.NewResolver(doc, search, limits),
	}

	plan := &CompiledPlan{Revision: doc.Revision()}
	for _, s := range steps {
		if s.Op == OpAssert {
			if s.Where == nil {
				return nil, planerr.New(planerr.CodeInvalidInput, "assert step has no where clause").WithStep(s.ID)
			}
			plan.AssertSteps = append(plan.AssertSteps, s)
			continue
		}

		if !reg.HasExecutor(s.Op) {
			return nil, planerr.Newf(planerr.CodeInvalidInput, "no executor registered for op %q", s.Op).WithStep(s.ID)
		}
		if s.Op == OpDomainCommand {
			if err := c.checkCommand(s); err != nil {
				return nil, err
			}
		}

		targets, err := c.resolveStep(s)
		if err != nil {
			return nil, err
		}

		c.targetTotal += len(targets)
		if c.targetTotal > limits.MaxTargets {
			return nil, planerr.Newf(planerr.CodeInvalidInput,
				"plan resolved more than %d targets", limits.MaxTargets)
		}

		plan.MutationSteps = append(plan.MutationSteps, CompiledStep{Step: s, Targets: targets})
	}

	if err := detectOverlaps(plan.MutationSteps); err != nil {
		return nil, err
	}

	logging.Engine().Debug().
		Int("mutationSteps", len(plan.MutationSteps)).
		Int("assertSteps", len(plan.AssertSteps)).
		Int("targets", c.targetTotal).
		Str("revision", plan.Revision).
		Msg("plan compiled")
	return plan, nil
}

type compiler struct {
	doc         *document.Document
	reg         RegistryView
	limits      config.Limits
	resolver    *selector.Resolver
	targetTotal int
}

func (c *compiler) checkCommand(s Step) error {
	var args struct {
		Command string `json:"command"`
	}
	if len(s.Args) > 0 {
		if err := json.Unmarshal(s.Args, &args); err != nil {
			return planerr.Newf(planerr.CodeInvalidInput, "malformed args: %v", err).WithStep(s.ID)
		}
	}
	if args.Command == "" {
		return planerr.New(planerr.CodeInvalidInput, "domain.command step names no command").WithStep(s.ID)
	}
	if !c.reg.HasCommand(args.Command) {
		return planerr.Newf(planerr.CodeInvalidInput, "unknown domain command %q", args.Command).WithStep(s.ID)
	}
	if s.Where == nil && c.reg.CommandNeedsTarget(args.Command) {
		return planerr.Newf(planerr.CodeInvalidInput,
			"domain command %q requires a where clause", args.Command).WithStep(s.ID)
	}
	return nil
}

// resolveStep resolves one mutation step's where clause into targets.
func (c *compiler) resolveStep(s Step) ([]CompiledTarget, error) {
	if s.Where == nil {
		if !whereOptionalOps[s.Op] {
			return nil, planerr.Newf(planerr.CodeInvalidInput, "op %q requires a where clause", s.Op).WithStep(s.ID)
		}
		return []CompiledTarget{c.documentEndTarget(s)}, nil
	}

	var (
		targets []CompiledTarget
		err     error
	)
	switch s.Where.By {
	case ByRef:
		targets, err = c.resolveRef(s)
	case BySelect:
		targets, err = c.resolveSelect(s)
	default:
		err = planerr.Newf(planerr.CodeInvalidInput, "unknown where discriminator %q", s.Where.By).WithStep(s.ID)
	}
	if err != nil {
		return nil, err
	}

	// Span capability check: a cross-block match bound to a single-block op
	// is a compile-time rejection, not an execution surprise.
	if !spanCapableOps[s.Op] {
		for _, t := range targets {
			if _, isSpan := t.(*SpanTarget); isSpan {
				return nil, planerr.Newf(planerr.CodeCrossBlockMatch,
					"op %q cannot apply to a match spanning multiple blocks", s.Op).WithStep(s.ID)
			}
		}
	}
	return targets, nil
}

// documentEndTarget builds the synthetic zero-width target used by create
// steps without a where clause.
func (c *compiler) documentEndTarget(s Step) CompiledTarget {
	blocks := c.doc.Blocks()
	if len(blocks) == 0 {
		return &RangeTarget{StepID: s.ID, Op: s.Op}
	}
	last := blocks[len(blocks)-1]
	end := last.Length()
	absFrom, absTo, _ := c.doc.AbsRange(last.ID, end, end)
	return &RangeTarget{
		StepID:  s.ID,
		Op:      s.Op,
		BlockID: last.ID,
		From:    end,
		To:      end,
		AbsFrom: absFrom,
		AbsTo:   absTo,
	}
}

func (c *compiler) resolveRef(s Step) ([]CompiledTarget, error) {
	decoded, err := refs.Decode(s.Where.Ref)
	if err != nil {
		return nil, attribute(err, s.ID)
	}

	if decoded.IsBlockRef() {
		b, _, ok := c.doc.BlockByID(decoded.BlockID)
		if !ok {
			return nil, planerr.Newf(planerr.CodeTargetNotFound, "block %q not found", decoded.BlockID).WithStep(s.ID)
		}
		t, err := c.buildTarget(s, []selector.Segment{c.wholeBlockSegment(b)})
		if err != nil {
			return nil, attribute(err, s.ID)
		}
		return []CompiledTarget{t}, nil
	}

	p := decoded.Payload
	if err := refs.CheckRevision(p, c.doc.Revision()); err != nil {
		return nil, attribute(err, s.ID)
	}

	addrs := make([]selector.TextAddress, len(p.Segments))
	for i, seg := range p.Segments {
		addrs[i] = selector.TextAddress{
			BlockID: seg.BlockID,
			Range:   selector.Range{Start: seg.Start, End: seg.End},
		}
	}
	segments, err := selector.NormalizeSpan(c.doc, addrs)
	if err != nil {
		return nil, attribute(err, s.ID)
	}
	if len(segments) == 0 {
		return nil, planerr.New(planerr.CodeMatchNotFound, "reference resolved to no target").WithStep(s.ID)
	}

	t, err := c.buildTargetWithMatchID(s, segments, p.MatchID)
	if err != nil {
		return nil, attribute(err, s.ID)
	}
	return []CompiledTarget{t}, nil
}

func (c *compiler) wholeBlockSegment(b *document.Block) selector.Segment {
	absFrom, absTo, _ := c.doc.AbsRange(b.ID, 0, b.Length())
	return selector.Segment{BlockID: b.ID, From: 0, To: b.Length(), AbsFrom: absFrom, AbsTo: absTo}
}

func (c *compiler) resolveSelect(s Step) ([]CompiledTarget, error) {
	sel := s.Where.Select
	if sel == nil {
		return nil, planerr.New(planerr.CodeInvalidInput, "select where clause has no selector").WithStep(s.ID)
	}

	var targets []CompiledTarget
	switch sel.Type {
	case "text":
		res, err := c.resolver.ResolveText(selector.TextSelector{
			Pattern:       sel.Pattern,
			Mode:          sel.Mode,
			CaseSensitive: sel.CaseSensitive,
		}, s.Where.Within)
		if err != nil {
			return nil, attribute(err, s.ID)
		}
		for _, m := range res.Matches {
			segments, err := selector.NormalizeSpan(c.doc, m.Addresses)
			if err != nil {
				return nil, attribute(err, s.ID)
			}
			t, err := c.buildTarget(s, segments)
			if err != nil {
				return nil, attribute(err, s.ID)
			}
			targets = append(targets, t)
		}
	case "node":
		res, err := c.resolver.ResolveNode(selector.NodeSelector{
			NodeType: sel.NodeType,
			Kind:     sel.Kind,
		}, s.Where.Within)
		if err != nil {
			return nil, attribute(err, s.ID)
		}
		for _, m := range res.Matches {
			t, err := c.buildTarget(s, []selector.Segment{{
				BlockID: m.BlockID,
				From:    m.From,
				To:      m.To,
				AbsFrom: m.AbsFrom,
				AbsTo:   m.AbsTo,
			}})
			if err != nil {
				return nil, attribute(err, s.ID)
			}
			targets = append(targets, t)
		}
	default:
		return nil, planerr.Newf(planerr.CodeInvalidInput, "unknown selector type %q", sel.Type).WithStep(s.ID)
	}

	// Deterministic order before cardinality: absolute position ascending.
	sort.SliceStable(targets, func(i, j int) bool {
		ai, _ := targets[i].Abs()
		aj, _ := targets[j].Abs()
		return ai < aj
	})

	// De-duplicate identical resolutions.
	deduped := targets[:0:0]
	keys := make(map[string]bool, len(targets))
	for _, t := range targets {
		k := TargetKey(t)
		if keys[k] {
			continue
		}
		keys[k] = true
		deduped = append(deduped, t)
	}

	return applyCardinality(s, deduped)
}

func applyCardinality(s Step, targets []CompiledTarget) ([]CompiledTarget, error) {
	count := len(targets)
	switch s.Where.Require {
	case RequireExactlyOne:
		if count == 0 {
			return nil, notFound(s)
		}
		if count > 1 {
			return nil, planerr.Newf(planerr.CodeAmbiguousMatch,
				"selector matched %d times, exactly one required", count).
				WithStep(s.ID).WithDetail("matchCount", count)
		}
	case RequireFirst:
		if count == 0 {
			return nil, notFound(s)
		}
		targets = targets[:1]
	case RequireAll, "":
		if s.Where.Require == RequireAll && count == 0 {
			return nil, notFound(s)
		}
	default:
		return nil, planerr.Newf(planerr.CodeInvalidInput, "unknown cardinality rule %q", s.Where.Require).WithStep(s.ID)
	}
	return targets, nil
}

func notFound(s Step) error {
	return planerr.New(planerr.CodeMatchNotFound, "selector matched nothing").
		WithStep(s.ID).WithDetail("matchCount", 0)
}

// buildTarget constructs a range or span target from normalized segments,
// snapshotting text and, for style-capturing ops, inline style.
func (c *compiler) buildTarget(s Step, segments []selector.Segment) (CompiledTarget, error) {
	matchID := fmt.Sprintf("m-%d-%d", segments[0].AbsFrom, segments[len(segments)-1].AbsTo)
	return c.buildTargetWithMatchID(s, segments, matchID)
}

func (c *compiler) buildTargetWithMatchID(s Step, segments []selector.Segment, matchID string) (CompiledTarget, error) {
	text := selector.SegmentsText(c.doc, segments)

	if len(segments) == 1 {
		seg := segments[0]
		t := &RangeTarget{
			StepID:  s.ID,
			Op:      s.Op,
			BlockID: seg.BlockID,
			From:    seg.From,
			To:      seg.To,
			AbsFrom: seg.AbsFrom,
			AbsTo:   seg.AbsTo,
			Text:    text,
		}
		if styleCapturingOps[s.Op] {
			captured, err := c.captureStyle(seg)
			if err != nil {
				return nil, err
			}
			t.Style = captured
		}
		return t, nil
	}

	t := &SpanTarget{
		StepID:   s.ID,
		Op:       s.Op,
		MatchID:  matchID,
		Segments: make([]Segment, len(segments)),
		Text:     text,
	}
	for i, seg := range segments {
		t.Segments[i] = Segment{
			BlockID: seg.BlockID,
			From:    seg.From,
			To:      seg.To,
			AbsFrom: seg.AbsFrom,
			AbsTo:   seg.AbsTo,
		}
	}
	if styleCapturingOps[s.Op] {
		t.StyleBySegment = make([]*style.CapturedStyle, len(segments))
		for i, seg := range segments {
			captured, err := c.captureStyle(seg)
			if err != nil {
				return nil, err
			}
			t.StyleBySegment[i] = captured
		}
	}
	return t, nil
}

func (c *compiler) captureStyle(seg selector.Segment) (*style.CapturedStyle, error) {
	b, _, ok := c.doc.BlockByID(seg.BlockID)
	if !ok {
		return nil, planerr.Newf(planerr.CodeInternal, "segment names vanished block %q", seg.BlockID)
	}
	return style.Capture(b, seg.From, seg.To)
}

// attribute stamps a plan error with the step id when it lacks one.
func attribute(err error, stepID string) error {
	if planerr.StepOf(err) != "" {
		return err
	}
	if pe, ok := err.(*planerr.Error); ok {
		return pe.WithStep(stepID)
	}
	return err
}
