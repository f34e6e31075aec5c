package selector

import (
	"sort"
	"strings"

	"github.com/dhowell/redline/internal/document"
	"github.com/dhowell/redline/internal/planerr"
)

// Segment is one per-block piece of a normalized match, with both
// block-relative and absolute positions.
type Segment struct {
	BlockID string
	From    int
	To      int
	AbsFrom int
	AbsTo   int
}

// NormalizeSpan merges the ordered raw ranges of one logical match into
// per-block segments.
//
// A single-block match coalesces into exactly one contiguous range; a gap
// between its ranges is INVALID_INPUT. A multi-block match must visit
// immediately adjacent blocks in document order: a skipped block between
// segments is INVALID_INPUT. Zero input ranges is always INVALID_INPUT.
func NormalizeSpan(doc *document.Document, addrs []TextAddress) ([]Segment, error) {
	if len(addrs) == 0 {
		return nil, planerr.New(planerr.CodeInvalidInput, "match has no ranges")
	}

	// Validate bounds and group by block, preserving first-encounter order.
	var order []string
	grouped := make(map[string][]Range)
	for _, a := range addrs {
		b, _, ok := doc.BlockByID(a.BlockID)
		if !ok {
			return nil, planerr.Newf(planerr.CodeInvalidInput, "match names unknown block %q", a.BlockID)
		}
		if a.Range.Start < 0 || a.Range.End > b.Length() || a.Range.Start > a.Range.End {
			return nil, planerr.Newf(planerr.CodeInvalidInput,
				"match range [%d,%d) out of bounds for block %q (length %d)",
				a.Range.Start, a.Range.End, a.BlockID, b.Length())
		}
		if _, seen := grouped[a.BlockID]; !seen {
			order = append(order, a.BlockID)
		}
		grouped[a.BlockID] = append(grouped[a.BlockID], a.Range)
	}

	segments := make([]Segment, 0, len(order))
	prevOrdinal := -1
	for i, blockID := range order {
		merged, err := mergeContiguous(blockID, grouped[blockID])
		if err != nil {
			return nil, err
		}

		_, ordinal, _ := doc.BlockByID(blockID)
		if i > 0 && ordinal != prevOrdinal+1 {
			return nil, planerr.Newf(planerr.CodeInvalidInput,
				"span segments must cover immediately adjacent blocks: %q does not follow the previous segment's block", blockID)
		}
		prevOrdinal = ordinal

		absFrom, absTo, _ := doc.AbsRange(blockID, merged.Start, merged.End)
		segments = append(segments, Segment{
			BlockID: blockID,
			From:    merged.Start,
			To:      merged.End,
			AbsFrom: absFrom,
			AbsTo:   absTo,
		})
	}
	return segments, nil
}

// mergeContiguous sorts the ranges of one block by start and merges them,
// rejecting gaps.
func mergeContiguous(blockID string, ranges []Range) (Range, error) {
	sorted := append([]Range(nil), ranges...)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i].Start < sorted[j].Start })

	merged := sorted[0]
	for _, r := range sorted[1:] {
		if merged.End < r.Start {
			return Range{}, planerr.Newf(planerr.CodeInvalidInput,
				"match ranges in block %q leave a gap between %d and %d", blockID, merged.End, r.Start)
		}
		if r.End > merged.End {
			merged.End = r.End
		}
	}
	return merged, nil
}

// SegmentsText returns the text covered by the segments, joined with the
// block separator.
func SegmentsText(doc *document.Document, segments []Segment) string {
	parts := make([]string, 0, len(segments))
	for _, s := range segments {
		b, _, ok := doc.BlockByID(s.BlockID)
		if !ok {
			continue
		}
		parts = append(parts, b.Text[s.From:s.To])
	}
	return strings.Join(parts, "\n")
}
