package planner

import (
	"sort"

	"github.com/dhowell/redline/internal/planerr"
)

// detectOverlaps rejects any two targets from different steps whose ranges
// intersect within one block. It runs after every step has resolved and
// before any mutation, so a conflicting plan leaves the document untouched.
//
// Ranges from one step may legitimately overlap each other (a dual-kind
// node selector yields a block range containing its inline ranges), so the
// scan tracks, per block, the furthest-reaching open range for each of the
// two most recent distinct steps.
func detectOverlaps(steps []CompiledStep) error {
	var flat []FlatRange
	for _, cs := range steps {
		for _, t := range cs.Targets {
			flat = append(flat, t.Flatten()...)
		}
	}

	sort.SliceStable(flat, func(i, j int) bool {
		if flat[i].BlockID != flat[j].BlockID {
			return flat[i].BlockID < flat[j].BlockID
		}
		if flat[i].From != flat[j].From {
			return flat[i].From < flat[j].From
		}
		return flat[i].To < flat[j].To
	})

	// best and bestOther hold the maximal To seen so far in the current
	// block, for two distinct owning steps.
	var best, bestOther FlatRange
	block := ""
	for _, cur := range flat {
		if cur.BlockID != block {
			block = cur.BlockID
			best, bestOther = FlatRange{To: -1}, FlatRange{To: -1}
		}

		open := best
		if open.StepID == cur.StepID {
			open = bestOther
		}
		if open.To > cur.From {
			return planerr.Newf(planerr.CodeConflictOverlap,
				"steps %q and %q target overlapping ranges [%d,%d) and [%d,%d) in block %q",
				open.StepID, cur.StepID, open.From, open.To, cur.From, cur.To, cur.BlockID).
				WithDetail("stepA", open.StepID).
				WithDetail("stepB", cur.StepID).
				WithDetail("blockId", cur.BlockID).
				WithDetail("rangeA", [2]int{open.From, open.To}).
				WithDetail("rangeB", [2]int{cur.From, cur.To})
		}

		if cur.To > best.To {
			if best.To >= 0 && best.StepID != cur.StepID && best.To > bestOther.To {
				bestOther = best
			}
			best = cur
		} else if cur.StepID != best.StepID && cur.To > bestOther.To {
			bestOther = cur
		}
	}
	return nil
}
