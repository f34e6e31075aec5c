// Package style captures and summarizes inline formatting runs.
//
// A run is a maximal contiguous sub-range of a block sharing one exact
// ordered mark signature. Captured runs for a range always tile it exactly;
// a gap or overlap means the upstream decomposition is broken and surfaces
// as INTERNAL_ERROR, never as a user-input problem.
package style

import (
	"sort"

	"github.com/dhowell/redline/internal/document"
	"github.com/dhowell/redline/internal/planerr"
)

// CapturedRun is a maximal sub-range [From, To) sharing one formatting
// signature.
type CapturedRun struct {
	From      int
	To        int
	CharCount int
	Marks     []document.Mark
}

// CapturedStyle is the style of a queried range, decomposed into runs.
type CapturedStyle struct {
	Runs      []CapturedRun
	IsUniform bool
}

// MarksEqual compares two mark lists positionally: same length, same types,
// same attribute values, same order.
func MarksEqual(a, b []document.Mark) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if !a[i].Equal(b[i]) {
			return false
		}
	}
	return true
}

// CaptureRuns decomposes the block-relative range [from, to) into runs.
func CaptureRuns(b *document.Block, from, to int) ([]CapturedRun, error) {
	if from < 0 || to > b.Length() || from > to {
		return nil, planerr.Newf(planerr.CodeInvalidInput,
			"style range [%d,%d) out of bounds for block %q (length %d)", from, to, b.ID, b.Length())
	}
	if from == to {
		return nil, nil
	}

	// Boundaries: the range edges plus every mark endpoint inside it.
	bounds := []int{from, to}
	for _, mr := range b.Marks {
		if mr.From > from && mr.From < to {
			bounds = append(bounds, mr.From)
		}
		if mr.To > from && mr.To < to {
			bounds = append(bounds, mr.To)
		}
	}
	sort.Ints(bounds)

	runs := make([]CapturedRun, 0, len(bounds)-1)
	for i := 0; i+1 < len(bounds); i++ {
		lo, hi := bounds[i], bounds[i+1]
		if lo == hi {
			continue
		}
		var marks []document.Mark
		for _, mr := range b.Marks {
			if mr.From <= lo && mr.To >= hi {
				marks = append(marks, mr.Mark)
			}
		}
		runs = append(runs, CapturedRun{From: lo, To: hi, CharCount: hi - lo, Marks: marks})
	}

	if err := VerifyTiling(runs, from, to); err != nil {
		return nil, err
	}
	return runs, nil
}

// Capture returns the coalesced style of the block-relative range [from, to).
func Capture(b *document.Block, from, to int) (*CapturedStyle, error) {
	runs, err := CaptureRuns(b, from, to)
	if err != nil {
		return nil, err
	}
	coalesced := CoalesceRuns(runs)
	return &CapturedStyle{
		Runs:      coalesced,
		IsUniform: isUniform(coalesced, from, to),
	}, nil
}

// CoalesceRuns sorts runs by start, discards zero-width runs, and merges
// adjacent runs with identical signatures. It is idempotent.
func CoalesceRuns(runs []CapturedRun) []CapturedRun {
	kept := make([]CapturedRun, 0, len(runs))
	for _, r := range runs {
		if r.From < r.To {
			kept = append(kept, r)
		}
	}
	sort.Slice(kept, func(i, j int) bool { return kept[i].From < kept[j].From })

	out := kept[:0:0]
	for _, r := range kept {
		if n := len(out); n > 0 && out[n-1].To == r.From && MarksEqual(out[n-1].Marks, r.Marks) {
			out[n-1].To = r.To
			out[n-1].CharCount += r.CharCount
			continue
		}
		out = append(out, r)
	}
	return out
}

// isUniform reports whether the coalesced runs reduce to exactly one run
// spanning the full queried range.
func isUniform(coalesced []CapturedRun, from, to int) bool {
	return len(coalesced) == 1 && coalesced[0].From == from && coalesced[0].To == to
}

// VerifyTiling asserts that runs exactly tile [from, to): the first run
// starts at from, the last ends at to, and consecutive runs are adjacent.
func VerifyTiling(runs []CapturedRun, from, to int) error {
	if from == to {
		if len(runs) != 0 {
			return planerr.Newf(planerr.CodeInternal, "runs captured for empty range [%d,%d)", from, to)
		}
		return nil
	}
	if len(runs) == 0 {
		return planerr.Newf(planerr.CodeInternal, "no runs captured for range [%d,%d)", from, to)
	}
	if runs[0].From != from {
		return planerr.Newf(planerr.CodeInternal, "first run starts at %d, range starts at %d", runs[0].From, from)
	}
	if runs[len(runs)-1].To != to {
		return planerr.Newf(planerr.CodeInternal, "last run ends at %d, range ends at %d", runs[len(runs)-1].To, to)
	}
	for i := 0; i+1 < len(runs); i++ {
		if runs[i].To != runs[i+1].From {
			return planerr.Newf(planerr.CodeInternal,
				"runs %d and %d do not tile: [%d,%d) then [%d,%d)",
				i, i+1, runs[i].From, runs[i].To, runs[i+1].From, runs[i+1].To)
		}
	}
	return nil
}
