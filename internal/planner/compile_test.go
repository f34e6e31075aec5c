package planner

import (
	"encoding/json"
	"errors"
	"reflect"
	"strings"
	"testing"

	"github.com/dhowell/redline/internal/config"
	"github.com/dhowell/redline/internal/document"
	"github.com/dhowell/redline/internal/hash"
	"github.com/dhowell/redline/internal/planerr"
	"github.com/dhowell/redline/internal/refs"
)

// fakeRegistry implements RegistryView with the full built-in op set. The
// commands map records which registered commands operate on a target.
type fakeRegistry struct {
	commands map[string]bool
}

func newFakeRegistry() *fakeRegistry {
	return &fakeRegistry{commands: map[string]bool{
		"block.delete":  true,
		"block.setType": true,
		"doc.touch":     false,
	}}
}

func (r *fakeRegistry) HasExecutor(op Op) bool {
	switch op {
	case OpTextRewrite, OpTextInsert, OpTextDelete, OpFormatApply,
		OpCreateParagraph, OpCreateHeading, OpDomainCommand:
		return true
	}
	return false
}

func (r *fakeRegistry) HasCommand(name string) bool {
	_, ok := r.commands[name]
	return ok
}

func (r *fakeRegistry) CommandNeedsTarget(name string) bool {
	needsTarget, ok := r.commands[name]
	return !ok || needsTarget
}

func testDoc(t *testing.T, blocks ...*document.Block) *document.Document {
	t.Helper()
	doc, err := document.New(hash.NewSHA256Hasher(), blocks)
	if err != nil {
		t.Fatalf("document.New failed: %v", err)
	}
	return doc
}

func para(id, text string) *document.Block {
	return &document.Block{Type: "paragraph", ID: id, Text: text}
}

func compileSteps(t *testing.T, doc *document.Document, steps []Step) (*CompiledPlan, error) {
	t.Helper()
	return Compile(doc, steps, newFakeRegistry(), document.NewRegexSearcher(), config.DefaultLimits())
}

func selectText(pattern string, require Require) *Where {
	return &Where{
		By:      BySelect,
		Select:  &Selector{Type: "text", Pattern: pattern},
		Require: require,
	}
}

func rawArgs(t *testing.T, v any) json.RawMessage {
	t.Helper()
	data, err := json.Marshal(v)
	if err != nil {
		t.Fatalf("marshal args: %v", err)
	}
	return data
}

func TestCompileResolvesSingleMatch(t *testing.T) {
	doc := testDoc(t, para("b1", "Hello world"))
	plan, err := compileSteps(t, doc, []Step{
		{ID: "s1", Op: OpTextRewrite, Where: selectText("world", RequireExactlyOne)},
	})
	if err != nil {
		t.Fatalf("Compile failed: %v", err)
	}
	if len(plan.MutationSteps) != 1 || len(plan.MutationSteps[0].Targets) != 1 {
		t.Fatalf("plan = %+v", plan)
	}

	rt, ok := plan.MutationSteps[0].Targets[0].(*RangeTarget)
	if !ok {
		t.Fatalf("expected RangeTarget, got %T", plan.MutationSteps[0].Targets[0])
	}
	if rt.BlockID != "b1" || rt.From != 6 || rt.To != 11 || rt.Text != "world" {
		t.Errorf("target = %+v", rt)
	}
	if rt.AbsFrom != 6 || rt.AbsTo != 11 {
		t.Errorf("abs range = [%d,%d)", rt.AbsFrom, rt.AbsTo)
	}
	if rt.Style == nil {
		t.Error("text.rewrite target should capture style")
	}
	if plan.Revision != doc.Revision() {
		t.Errorf("plan revision = %q, doc revision = %q", plan.Revision, doc.Revision())
	}
}

func TestCompileIsDeterministic(t *testing.T) {
	doc := testDoc(t, para("b1", "alpha beta alpha"), para("b2", "beta alpha"))
	steps := []Step{
		{ID: "s1", Op: OpTextDelete, Where: selectText("alpha", RequireAll)},
	}

	first, err := compileSteps(t, doc, steps)
	if err != nil {
		t.Fatalf("first Compile failed: %v", err)
	}
	second, err := compileSteps(t, doc, steps)
	if err != nil {
		t.Fatalf("second Compile failed: %v", err)
	}
	if !reflect.DeepEqual(first, second) {
		t.Error("identical steps against an unchanged snapshot compiled differently")
	}
	if len(first.MutationSteps[0].Targets) != 3 {
		t.Fatalf("expected 3 targets, got %d", len(first.MutationSteps[0].Targets))
	}

	// Targets arrive in ascending document order.
	prev := -1
	for _, tgt := range first.MutationSteps[0].Targets {
		from, _ := tgt.Abs()
		if from <= prev {
			t.Errorf("targets out of order: %d after %d", from, prev)
		}
		prev = from
	}
}

func TestCompileExactlyOneCardinality(t *testing.T) {
	doc := testDoc(t, para("b1", "foo and foo"))

	_, err := compileSteps(t, doc, []Step{
		{ID: "s1", Op: OpTextRewrite, Where: selectText("foo", RequireExactlyOne)},
	})
	if !planerr.IsCode(err, planerr.CodeAmbiguousMatch) {
		t.Fatalf("2 matches should be AMBIGUOUS_MATCH, got %v", err)
	}
	var pe *planerr.Error
	if !errors.As(err, &pe) || pe.Details["matchCount"] != 2 || pe.StepID != "s1" {
		t.Errorf("error = %+v", pe)
	}

	_, err = compileSteps(t, doc, []Step{
		{ID: "s1", Op: OpTextRewrite, Where: selectText("xyz", RequireExactlyOne)},
	})
	if !planerr.IsCode(err, planerr.CodeMatchNotFound) {
		t.Errorf("0 matches should be MATCH_NOT_FOUND, got %v", err)
	}
}

func TestCompileFirstTruncates(t *testing.T) {
	doc := testDoc(t, para("b1", "foo and foo and foo"))
	plan, err := compileSteps(t, doc, []Step{
		{ID: "s1", Op: OpTextDelete, Where: selectText("foo", RequireFirst)},
	})
	if err != nil {
		t.Fatalf("Compile failed: %v", err)
	}
	targets := plan.MutationSteps[0].Targets
	if len(targets) != 1 {
		t.Fatalf("first should keep only the earliest match, got %d", len(targets))
	}
	from, _ := targets[0].Abs()
	if from != 0 {
		t.Errorf("kept match at %d, want earliest at 0", from)
	}
}

func TestCompileAbsentRequireKeepsAll(t *testing.T) {
	doc := testDoc(t, para("b1", "foo and foo"))
	plan, err := compileSteps(t, doc, []Step{
		{ID: "s1", Op: OpTextDelete, Where: selectText("foo", "")},
	})
	if err != nil {
		t.Fatalf("Compile failed: %v", err)
	}
	if len(plan.MutationSteps[0].Targets) != 2 {
		t.Errorf("absent require should keep all matches, got %d", len(plan.MutationSteps[0].Targets))
	}
}

func TestCompilePlanShapeErrors(t *testing.T) {
	doc := testDoc(t, para("b1", "text"))

	_, err := compileSteps(t, doc, []Step{
		{ID: "", Op: OpTextDelete, Where: selectText("text", "")},
	})
	if !planerr.IsCode(err, planerr.CodeInvalidInput) {
		t.Errorf("empty id should be INVALID_INPUT, got %v", err)
	}

	_, err = compileSteps(t, doc, []Step{
		{ID: "dup", Op: OpTextDelete, Where: selectText("text", "")},
		{ID: "dup", Op: OpTextDelete, Where: selectText("text", "")},
	})
	if !planerr.IsCode(err, planerr.CodeInvalidInput) {
		t.Errorf("duplicate ids should be INVALID_INPUT, got %v", err)
	}

	_, err = compileSteps(t, doc, []Step{
		{ID: "s1", Op: Op("text.unknown"), Where: selectText("text", "")},
	})
	if !planerr.IsCode(err, planerr.CodeInvalidInput) {
		t.Errorf("unregistered op should be INVALID_INPUT, got %v", err)
	}

	_, err = compileSteps(t, doc, []Step{
		{ID: "s1", Op: OpTextRewrite}, // text ops require a where clause
	})
	if !planerr.IsCode(err, planerr.CodeInvalidInput) {
		t.Errorf("missing where should be INVALID_INPUT, got %v", err)
	}
}

func TestCompileStepCap(t *testing.T) {
	doc := testDoc(t, para("b1", "text"))
	limits := config.DefaultLimits()
	limits.MaxSteps = 2

	steps := []Step{
		{ID: "s1", Op: OpTextDelete, Where: selectText("t", "")},
		{ID: "s2", Op: OpTextDelete, Where: selectText("e", "")},
		{ID: "s3", Op: OpTextDelete, Where: selectText("x", "")},
	}
	_, err := Compile(doc, steps, newFakeRegistry(), document.NewRegexSearcher(), limits)
	if !planerr.IsCode(err, planerr.CodeInvalidInput) {
		t.Errorf("step cap breach should be INVALID_INPUT, got %v", err)
	}
}

func TestCompileTargetCapAbortsWholePlan(t *testing.T) {
	doc := testDoc(t, para("b1", strings.Repeat("x ", 50)))
	limits := config.DefaultLimits()
	limits.MaxTargets = 10

	steps := []Step{
		{ID: "s1", Op: OpTextDelete, Where: selectText("x", RequireAll)},
	}
	_, err := Compile(doc, steps, newFakeRegistry(), document.NewRegexSearcher(), limits)
	if !planerr.IsCode(err, planerr.CodeInvalidInput) {
		t.Errorf("target cap breach should be INVALID_INPUT, got %v", err)
	}
}

func TestCompileOverlapConflict(t *testing.T) {
	doc := testDoc(t, para("b1", "the only foo here"))
	steps := []Step{
		{ID: "s1", Op: OpTextRewrite, Where: selectText("foo", RequireExactlyOne), Args: rawArgs(t, map[string]any{"replacement": map[string]string{"text": "bar"}})},
		{ID: "s2", Op: OpTextRewrite, Where: selectText("foo", RequireExactlyOne), Args: rawArgs(t, map[string]any{"replacement": map[string]string{"text": "qux"}})},
	}
	_, err := compileSteps(t, doc, steps)
	if !planerr.IsCode(err, planerr.CodeConflictOverlap) {
		t.Fatalf("expected PLAN_CONFLICT_OVERLAP, got %v", err)
	}
	var pe *planerr.Error
	if !errors.As(err, &pe) {
		t.Fatal("expected *planerr.Error")
	}
	names := []any{pe.Details["stepA"], pe.Details["stepB"]}
	if !((names[0] == "s1" && names[1] == "s2") || (names[0] == "s2" && names[1] == "s1")) {
		t.Errorf("conflict must name both steps, details = %v", pe.Details)
	}
}

func TestCompilePartialRangeOverlapConflict(t *testing.T) {
	doc := testDoc(t, para("b1", "abcdefgh"))
	steps := []Step{
		{ID: "s1", Op: OpTextDelete, Where: selectText("abcd", RequireExactlyOne)},
		{ID: "s2", Op: OpTextDelete, Where: selectText("cdef", RequireExactlyOne)},
	}
	_, err := compileSteps(t, doc, steps)
	if !planerr.IsCode(err, planerr.CodeConflictOverlap) {
		t.Errorf("partial overlap should conflict, got %v", err)
	}
}

func TestCompileAdjacentRangesDoNotConflict(t *testing.T) {
	doc := testDoc(t, para("b1", "abcdefgh"))
	steps := []Step{
		{ID: "s1", Op: OpTextDelete, Where: selectText("abcd", RequireExactlyOne)},
		{ID: "s2", Op: OpTextDelete, Where: selectText("efgh", RequireExactlyOne)},
	}
	if _, err := compileSteps(t, doc, steps); err != nil {
		t.Errorf("touching-but-disjoint ranges must not conflict: %v", err)
	}
}

func TestCompileSpanTargetForSpanCapableOp(t *testing.T) {
	doc := testDoc(t, para("b1", "first half"), para("b2", "second half"))
	steps := []Step{
		{ID: "s1", Op: OpTextDelete, Where: &Where{
			By:      BySelect,
			Select:  &Selector{Type: "text", Pattern: `half.second`, Mode: "regex"},
			Require: RequireExactlyOne,
		}},
	}
	plan, err := compileSteps(t, doc, steps)
	if err != nil {
		t.Fatalf("Compile failed: %v", err)
	}
	st, ok := plan.MutationSteps[0].Targets[0].(*SpanTarget)
	if !ok {
		t.Fatalf("expected SpanTarget, got %T", plan.MutationSteps[0].Targets[0])
	}
	if len(st.Segments) != 2 || st.Segments[0].BlockID != "b1" || st.Segments[1].BlockID != "b2" {
		t.Errorf("segments = %+v", st.Segments)
	}
	if st.MatchID == "" {
		t.Error("span target has no match id")
	}
}

func TestCompileSpanRejectedForSingleBlockOp(t *testing.T) {
	doc := testDoc(t, para("b1", "first half"), para("b2", "second half"))
	steps := []Step{
		{ID: "s1", Op: OpTextRewrite, Where: &Where{
			By:      BySelect,
			Select:  &Selector{Type: "text", Pattern: `half.second`, Mode: "regex"},
			Require: RequireExactlyOne,
		}},
	}
	_, err := compileSteps(t, doc, steps)
	if !planerr.IsCode(err, planerr.CodeCrossBlockMatch) {
		t.Errorf("cross-block rewrite should be CROSS_BLOCK_MATCH, got %v", err)
	}
}

func TestCompileNodeSelector(t *testing.T) {
	doc := testDoc(t,
		&document.Block{Type: "heading", ID: "h1", Text: "Title"},
		para("b1", "body"),
	)
	steps := []Step{
		{ID: "s1", Op: OpTextDelete, Where: &Where{
			By:      BySelect,
			Select:  &Selector{Type: "node", NodeType: "heading"},
			Require: RequireExactlyOne,
		}},
	}
	plan, err := compileSteps(t, doc, steps)
	if err != nil {
		t.Fatalf("Compile failed: %v", err)
	}
	rt := plan.MutationSteps[0].Targets[0].(*RangeTarget)
	if rt.BlockID != "h1" || rt.From != 0 || rt.To != 5 {
		t.Errorf("target = %+v", rt)
	}
}

func TestCompileRefTarget(t *testing.T) {
	doc := testDoc(t, para("b1", "Hello world"))
	ref, err := refs.Encode(refs.Payload{
		Rev:      doc.Revision(),
		MatchID:  "m-6-11",
		Segments: []refs.SegmentRef{{BlockID: "b1", Start: 6, End: 11}},
	})
	if err != nil {
		t.Fatalf("Encode failed: %v", err)
	}

	plan, err := compileSteps(t, doc, []Step{
		{ID: "s1", Op: OpTextRewrite, Where: &Where{By: ByRef, Ref: ref}},
	})
	if err != nil {
		t.Fatalf("Compile failed: %v", err)
	}
	rt := plan.MutationSteps[0].Targets[0].(*RangeTarget)
	if rt.BlockID != "b1" || rt.From != 6 || rt.To != 11 || rt.Text != "world" {
		t.Errorf("target = %+v", rt)
	}
}

func TestCompileStaleRefAlwaysFails(t *testing.T) {
	doc := testDoc(t, para("b1", "Hello world"))
	ref, err := refs.Encode(refs.Payload{
		Rev:      doc.Revision(),
		MatchID:  "m-6-11",
		Segments: []refs.SegmentRef{{BlockID: "b1", Start: 6, End: 11}},
	})
	if err != nil {
		t.Fatalf("Encode failed: %v", err)
	}

	// An intervening edit elsewhere bumps the revision; the referenced
	// text itself is untouched.
	tx := doc.Begin()
	if _, err := tx.InsertText("b1", 0, "Oh. "); err != nil {
		t.Fatalf("InsertText failed: %v", err)
	}
	if err := tx.Commit(); err != nil {
		t.Fatalf("Commit failed: %v", err)
	}

	_, err = compileSteps(t, doc, []Step{
		{ID: "s1", Op: OpTextRewrite, Where: &Where{By: ByRef, Ref: ref}},
	})
	if !planerr.IsCode(err, planerr.CodeRevisionMismatch) {
		t.Errorf("stale ref should be REVISION_MISMATCH, got %v", err)
	}
}

func TestCompileRawBlockRef(t *testing.T) {
	doc := testDoc(t, para("b1", "whole block"))

	plan, err := compileSteps(t, doc, []Step{
		{ID: "s1", Op: OpTextDelete, Where: &Where{By: ByRef, Ref: "b1"}},
	})
	if err != nil {
		t.Fatalf("Compile failed: %v", err)
	}
	rt := plan.MutationSteps[0].Targets[0].(*RangeTarget)
	if rt.BlockID != "b1" || rt.From != 0 || rt.To != 11 {
		t.Errorf("target = %+v", rt)
	}

	_, err = compileSteps(t, doc, []Step{
		{ID: "s1", Op: OpTextDelete, Where: &Where{By: ByRef, Ref: "missing"}},
	})
	if !planerr.IsCode(err, planerr.CodeTargetNotFound) {
		t.Errorf("missing block ref should be TARGET_NOT_FOUND, got %v", err)
	}
}

func TestCompileRejectsForeignDomainRef(t *testing.T) {
	doc := testDoc(t, para("b1", "text"))
	_, err := compileSteps(t, doc, []Step{
		{ID: "s1", Op: OpTextDelete, Where: &Where{By: ByRef, Ref: "tc:whatever"}},
	})
	if !planerr.IsCode(err, planerr.CodeInvalidInput) {
		t.Errorf("tc: ref should be INVALID_INPUT, got %v", err)
	}
}

func TestCompilePartitionsAsserts(t *testing.T) {
	doc := testDoc(t, para("b1", "Hello world"))
	plan, err := compileSteps(t, doc, []Step{
		{ID: "a1", Op: OpAssert, Where: selectText("Hello", "")},
		{ID: "s1", Op: OpTextDelete, Where: selectText("world", RequireExactlyOne)},
	})
	if err != nil {
		t.Fatalf("Compile failed: %v", err)
	}
	if len(plan.AssertSteps) != 1 || plan.AssertSteps[0].ID != "a1" {
		t.Errorf("assert steps = %+v", plan.AssertSteps)
	}
	if len(plan.MutationSteps) != 1 {
		t.Errorf("mutation steps = %+v", plan.MutationSteps)
	}
}

func TestCompileCreateWithoutWhere(t *testing.T) {
	doc := testDoc(t, para("b1", "only"))
	plan, err := compileSteps(t, doc, []Step{
		{ID: "s1", Op: OpCreateParagraph, Args: rawArgs(t, map[string]string{"text": "appended"})},
	})
	if err != nil {
		t.Fatalf("Compile failed: %v", err)
	}
	rt := plan.MutationSteps[0].Targets[0].(*RangeTarget)
	if rt.BlockID != "b1" || rt.From != 4 || rt.To != 4 {
		t.Errorf("synthetic end target = %+v", rt)
	}
}

func TestCompileDomainCommandRequiresWhereForTargetedCommands(t *testing.T) {
	doc := testDoc(t, para("b1", "keep me"), para("b2", "and me"))

	_, err := compileSteps(t, doc, []Step{
		{ID: "s1", Op: OpDomainCommand,
			Args: rawArgs(t, map[string]string{"command": "block.delete"})},
	})
	if !planerr.IsCode(err, planerr.CodeInvalidInput) {
		t.Errorf("where-less block.delete should be INVALID_INPUT, got %v", err)
	}
}

func TestCompileDomainCommandWithoutWhereForTargetlessCommand(t *testing.T) {
	doc := testDoc(t, para("b1", "text"))

	plan, err := compileSteps(t, doc, []Step{
		{ID: "s1", Op: OpDomainCommand,
			Args: rawArgs(t, map[string]string{"command": "doc.touch"})},
	})
	if err != nil {
		t.Fatalf("Compile failed: %v", err)
	}
	rt := plan.MutationSteps[0].Targets[0].(*RangeTarget)
	if rt.BlockID != "b1" || rt.From != rt.To {
		t.Errorf("synthetic target = %+v", rt)
	}
}

func TestCompileUnknownDomainCommand(t *testing.T) {
	doc := testDoc(t, para("b1", "text"))
	_, err := compileSteps(t, doc, []Step{
		{ID: "s1", Op: OpDomainCommand, Where: &Where{By: ByRef, Ref: "b1"},
			Args: rawArgs(t, map[string]string{"command": "nope"})},
	})
	if !planerr.IsCode(err, planerr.CodeInvalidInput) {
		t.Errorf("unknown command should be INVALID_INPUT, got %v", err)
	}
}
