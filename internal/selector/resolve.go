package selector

import (
	"fmt"
	"regexp"
	"sort"
	"unicode/utf8"

	"github.com/dhowell/redline/internal/config"
	"github.com/dhowell/redline/internal/document"
	"github.com/dhowell/redline/internal/planerr"
)

// Resolver resolves selectors against one document snapshot.
type Resolver struct {
	doc    *document.Document
	search document.Searcher
	limits config.Limits
}

// NewResolver creates a resolver over the given snapshot. The searcher may
// be nil when the host offers no text search; text selectors then fail with
// CAPABILITY_UNAVAILABLE.
func NewResolver(doc *document.Document, search document.Searcher, limits config.Limits) *Resolver {
	return &Resolver{doc: doc, search: search, limits: limits}
}

// ResolveText resolves a text selector, optionally scoped to a within
// target, into logical matches in ascending document order.
func (r *Resolver) ResolveText(sel TextSelector, within *NodeSelector) (*TextResult, error) {
	if sel.Pattern == "" {
		return nil, planerr.New(planerr.CodeInvalidInput, "text selector pattern is empty")
	}
	if utf8.RuneCountInString(sel.Pattern) > r.limits.MaxPatternLength {
		return nil, planerr.Newf(planerr.CodeInvalidInput,
			"text selector pattern exceeds %d characters", r.limits.MaxPatternLength)
	}
	if r.search == nil {
		return nil, planerr.New(planerr.CodeCapabilityUnavailable, "document host has no text search backend")
	}

	var pattern string
	switch sel.Mode {
	case "", ModeContains:
		// Escaped literal: never forward a raw string to a backend that
		// might auto-detect delimiter syntax.
		pattern = regexp.QuoteMeta(sel.Pattern)
	case ModeRegex:
		pattern = sel.Pattern
	default:
		return nil, planerr.Newf(planerr.CodeInvalidInput, "unknown text selector mode %q", sel.Mode)
	}

	result := &TextResult{}

	scopeFrom, scopeTo := 0, r.doc.Length()
	if within != nil {
		node, ok := r.firstWithinTarget(*within)
		if !ok {
			result.Diagnostics = append(result.Diagnostics,
				fmt.Sprintf("within target %q resolved to no node", within.NodeType))
			return result, nil
		}
		scopeFrom, scopeTo = node.AbsFrom, node.AbsTo
	}

	raw, err := r.search.Search(r.doc.Text(), pattern, sel.CaseSensitive)
	if err != nil {
		return nil, planerr.Newf(planerr.CodeInvalidInput, "search failed: %v", err)
	}

	for _, m := range raw {
		if m.From < scopeFrom || m.To > scopeTo {
			continue
		}
		addrs := r.splitMatch(m)
		if len(addrs) == 0 {
			// Position resolves to no known block: dropped, not errored.
			continue
		}
		result.Matches = append(result.Matches, TextMatch{
			Addresses: addrs,
			AbsFrom:   m.From,
			AbsTo:     m.To,
		})
	}
	return result, nil
}

// splitMatch intersects an absolute match range with every block, yielding
// block-relative addresses in document order.
func (r *Resolver) splitMatch(m document.MatchRange) []TextAddress {
	var addrs []TextAddress
	start := 0
	for _, b := range r.doc.Blocks() {
		end := start + b.Length()
		lo, hi := m.From, m.To
		if lo < start {
			lo = start
		}
		if hi > end {
			hi = end
		}
		if lo < hi {
			addrs = append(addrs, TextAddress{
				BlockID: b.ID,
				Range:   Range{Start: lo - start, End: hi - start},
			})
		}
		start = end + 1
		if start > m.To {
			break
		}
	}
	return addrs
}

// ResolveNode resolves a node selector. An unspecified kind runs the block
// and inline strategies independently and merges: sorted by absolute
// position, block results before inline results at equal position.
func (r *Resolver) ResolveNode(sel NodeSelector, within *NodeSelector) (*NodeResult, error) {
	if sel.NodeType == "" {
		return nil, planerr.New(planerr.CodeInvalidInput, "node selector type is empty")
	}
	switch sel.Kind {
	case "", KindBlock, KindInline:
	default:
		return nil, planerr.Newf(planerr.CodeInvalidInput, "unknown node selector kind %q", sel.Kind)
	}

	result := &NodeResult{}

	scopeFrom, scopeTo := 0, r.doc.Length()
	if within != nil {
		node, ok := r.firstWithinTarget(*within)
		if !ok {
			result.Diagnostics = append(result.Diagnostics,
				fmt.Sprintf("within target %q resolved to no node", within.NodeType))
			return result, nil
		}
		scopeFrom, scopeTo = node.AbsFrom, node.AbsTo
	}

	var matches []NodeMatch
	if sel.Kind == "" || sel.Kind == KindBlock {
		matches = append(matches, r.blockMatches(sel.NodeType)...)
	}
	if sel.Kind == "" || sel.Kind == KindInline {
		matches = append(matches, r.inlineMatches(sel.NodeType)...)
	}

	for _, m := range matches {
		if m.AbsFrom >= scopeFrom && m.AbsTo <= scopeTo {
			result.Matches = append(result.Matches, m)
		}
	}

	// Deterministic order: absolute position ascending, blocks before
	// inline nodes at equal position.
	sort.SliceStable(result.Matches, func(i, j int) bool {
		a, b := result.Matches[i], result.Matches[j]
		if a.AbsFrom != b.AbsFrom {
			return a.AbsFrom < b.AbsFrom
		}
		if a.Kind != b.Kind {
			return a.Kind == KindBlock
		}
		return a.AbsTo < b.AbsTo
	})
	return result, nil
}

func (r *Resolver) blockMatches(nodeType string) []NodeMatch {
	var out []NodeMatch
	for ordinal, b := range r.doc.Blocks() {
		if b.Type != nodeType {
			continue
		}
		start := r.doc.BlockStart(ordinal)
		out = append(out, NodeMatch{
			Kind:     KindBlock,
			NodeType: b.Type,
			NodeID:   b.ID,
			BlockID:  b.ID,
			From:     0,
			To:       b.Length(),
			AbsFrom:  start,
			AbsTo:    start + b.Length(),
		})
	}
	return out
}

func (r *Resolver) inlineMatches(nodeType string) []NodeMatch {
	var out []NodeMatch
	for ordinal, b := range r.doc.Blocks() {
		start := r.doc.BlockStart(ordinal)
		for _, in := range b.Inlines {
			if in.Type != nodeType {
				continue
			}
			out = append(out, NodeMatch{
				Kind:     KindInline,
				NodeType: in.Type,
				NodeID:   in.ID,
				BlockID:  b.ID,
				From:     in.From,
				To:       in.To,
				AbsFrom:  start + in.From,
				AbsTo:    start + in.To,
			})
		}
	}
	return out
}

// firstWithinTarget resolves a within selector to its first node in
// document order.
func (r *Resolver) firstWithinTarget(sel NodeSelector) (NodeMatch, bool) {
	res, err := r.ResolveNode(sel, nil)
	if err != nil || len(res.Matches) == 0 {
		return NodeMatch{}, false
	}
	return res.Matches[0], true
}
