package engine

import (
	"context"
	"testing"

	"github.com/dhowell/redline/internal/planerr"
	"github.com/dhowell/redline/internal/planner"
)

func TestPreviewValidPlanLeavesDocumentUntouched(t *testing.T) {
	e := newTestEngine()
	doc := newTestDoc(t, para("b1", "Hello world"))
	before := doc.Revision()

	result, err := e.Preview(context.Background(), &PreviewRequest{
		Doc: doc,
		Steps: []planner.Step{
			step(t, "s1", planner.OpTextRewrite, selectOne("world"),
				map[string]any{"replacement": map[string]string{"text": "there"}}),
		},
	})
	if err != nil {
		t.Fatalf("Preview failed: %v", err)
	}
	if !result.Valid || len(result.Failures) != 0 {
		t.Errorf("result = %+v", result)
	}
	if result.EvaluatedRevision != before {
		t.Errorf("evaluated revision = %q, want %q", result.EvaluatedRevision, before)
	}
	if len(result.Steps) != 1 || result.Steps[0].Effect != EffectChanged {
		t.Errorf("steps = %+v", result.Steps)
	}
	if doc.Text() != "Hello world" || doc.Revision() != before {
		t.Error("preview mutated the document")
	}
}

func TestPreviewReportsCompileFailure(t *testing.T) {
	e := newTestEngine()
	doc := newTestDoc(t, para("b1", "Hello world"))

	result, err := e.Preview(context.Background(), &PreviewRequest{
		Doc:   doc,
		Steps: []planner.Step{step(t, "s1", planner.OpTextDelete, selectOne("absent"), nil)},
	})
	if err != nil {
		t.Fatalf("Preview failed: %v", err)
	}
	if result.Valid || len(result.Failures) != 1 {
		t.Fatalf("result = %+v", result)
	}
	f := result.Failures[0]
	if f.Phase != PhaseCompile || f.Code != planerr.CodeMatchNotFound || f.StepID != "s1" {
		t.Errorf("failure = %+v", f)
	}
}

func TestPreviewCollectsEveryAssertFailure(t *testing.T) {
	e := newTestEngine()
	doc := newTestDoc(t, para("b1", "one two"))

	result, err := e.Preview(context.Background(), &PreviewRequest{
		Doc: doc,
		Steps: []planner.Step{
			step(t, "a1", planner.OpAssert, selectAll("one"), map[string]any{"expectedMatches": 5}),
			step(t, "a2", planner.OpAssert, selectAll("missing"), nil),
			step(t, "s1", planner.OpTextDelete, selectOne("two"), nil),
		},
	})
	if err != nil {
		t.Fatalf("Preview failed: %v", err)
	}
	if result.Valid {
		t.Error("unmet preconditions reported valid")
	}
	if len(result.Failures) != 2 {
		t.Fatalf("failures = %+v", result.Failures)
	}
	for _, f := range result.Failures {
		if f.Phase != PhaseExecute || f.Code != planerr.CodePreconditionFailed {
			t.Errorf("failure = %+v", f)
		}
	}
	if result.Failures[0].Details["expected"] != 5 || result.Failures[0].Details["actual"] != 1 {
		t.Errorf("details = %v", result.Failures[0].Details)
	}
	if doc.Text() != "one two" {
		t.Error("preview mutated the document")
	}
}

func TestPreviewReportsExecuteFailure(t *testing.T) {
	e := newTestEngine()
	doc := newTestDoc(t, para("b1", "resize me"))

	result, err := e.Preview(context.Background(), &PreviewRequest{
		Doc: doc,
		Steps: []planner.Step{
			step(t, "s1", planner.OpTextInsert, selectOne("resize"),
				map[string]string{"text": "x", "position": "sideways"}),
		},
	})
	if err != nil {
		t.Fatalf("Preview failed: %v", err)
	}
	if result.Valid || len(result.Failures) != 1 {
		t.Fatalf("result = %+v", result)
	}
	f := result.Failures[0]
	if f.Phase != PhaseExecute || f.Code != planerr.CodeInvalidInput || f.StepID != "s1" {
		t.Errorf("failure = %+v", f)
	}
}

func TestPreviewThenApplySeesSameResolution(t *testing.T) {
	e := newTestEngine()
	doc := newTestDoc(t, para("b1", "stable text"))

	steps := []planner.Step{
		step(t, "s1", planner.OpTextRewrite, selectOne("stable"),
			map[string]any{"replacement": map[string]string{"text": "settled"}}),
	}

	preview, err := e.Preview(context.Background(), &PreviewRequest{Doc: doc, Steps: steps})
	if err != nil || !preview.Valid {
		t.Fatalf("Preview failed: %v / %+v", err, preview)
	}

	receipt, err := e.Apply(context.Background(), &ApplyRequest{Doc: doc, Steps: steps})
	if err != nil {
		t.Fatalf("Apply failed: %v", err)
	}
	if preview.Steps[0].MatchCount != receipt.Steps[0].MatchCount {
		t.Error("preview and apply resolved different match counts")
	}
	if doc.Text() != "settled text" {
		t.Errorf("text = %q", doc.Text())
	}
}
