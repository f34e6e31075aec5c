package planner

import (
	"fmt"

	"github.com/dhowell/redline/internal/style"
)

// Segment is one per-block piece of a compiled target.
type Segment struct {
	BlockID string
	From    int
	To      int
	AbsFrom int
	AbsTo   int
}

// FlatRange is a compiled target range flattened for overlap detection.
type FlatRange struct {
	BlockID string
	From    int
	To      int
	StepID  string
}

// CompiledTarget is the resolved target of one step: either a single-block
// range or a cross-block span. The set of implementations is closed;
// consumers switch exhaustively on the concrete type.
type CompiledTarget interface {
	isCompiledTarget()

	// Step returns the owning step id.
	Step() string

	// Operation returns the owning step's op.
	Operation() Op

	// Abs returns the target's absolute start and end in the snapshot.
	Abs() (int, int)

	// Flatten returns the target's per-block ranges for overlap checks.
	Flatten() []FlatRange
}

// RangeTarget is a target confined to one block.
type RangeTarget struct {
	StepID  string
	Op      Op
	BlockID string
	From    int
	To      int
	AbsFrom int
	AbsTo   int
	Text    string
	Style   *style.CapturedStyle
}

func (t *RangeTarget) isCompiledTarget() {}

// Step returns the owning step id.
func (t *RangeTarget) Step() string { return t.StepID }

// Operation returns the owning step's op.
func (t *RangeTarget) Operation() Op { return t.Op }

// Abs returns the target's absolute range.
func (t *RangeTarget) Abs() (int, int) { return t.AbsFrom, t.AbsTo }

// Flatten returns the target's single block range.
func (t *RangeTarget) Flatten() []FlatRange {
	return []FlatRange{{BlockID: t.BlockID, From: t.From, To: t.To, StepID: t.StepID}}
}

// SpanTarget is a target covering ordered segments across adjacent blocks,
// all belonging to one logical match.
type SpanTarget struct {
	StepID         string
	Op             Op
	MatchID        string
	Segments       []Segment
	Text           string
	StyleBySegment []*style.CapturedStyle
}

func (t *SpanTarget) isCompiledTarget() {}

// Step returns the owning step id.
func (t *SpanTarget) Step() string { return t.StepID }

// Operation returns the owning step's op.
func (t *SpanTarget) Operation() Op { return t.Op }

// Abs returns the absolute range from the first segment's start to the
// last segment's end.
func (t *SpanTarget) Abs() (int, int) {
	return t.Segments[0].AbsFrom, t.Segments[len(t.Segments)-1].AbsTo
}

// Flatten returns one range per segment.
func (t *SpanTarget) Flatten() []FlatRange {
	out := make([]FlatRange, len(t.Segments))
	for i, s := range t.Segments {
		out[i] = FlatRange{BlockID: s.BlockID, From: s.From, To: s.To, StepID: t.StepID}
	}
	return out
}

// CompiledStep pairs a step with its resolved targets.
type CompiledStep struct {
	Step    Step
	Targets []CompiledTarget
}

// CompiledPlan is the output of compilation: mutation steps with resolved
// targets plus the assert steps partitioned out, bound to the snapshot
// revision they were compiled against.
type CompiledPlan struct {
	Revision      string
	MutationSteps []CompiledStep
	AssertSteps   []Step
}

// TargetKey returns a stable identity for de-duplicating resolved targets.
func TargetKey(t CompiledTarget) string {
	switch tt := t.(type) {
	case *RangeTarget:
		return fmt.Sprintf("r:%s:%d:%d", tt.BlockID, tt.From, tt.To)
	case *SpanTarget:
		key := "s"
		for _, s := range tt.Segments {
			key += fmt.Sprintf(":%s:%d:%d", s.BlockID, s.From, s.To)
		}
		return key
	default:
		return ""
	}
}
