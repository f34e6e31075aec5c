// Package selector resolves logical selectors into concrete character
// ranges against a document snapshot.
//
// Text selectors run through the free-text search backend; node selectors
// resolve directly against the block and inline indexes. The span
// normalizer turns the raw per-block ranges of one logical match into a
// single-block range or an ordered cross-block span.
package selector

// Text selector modes.
const (
	ModeContains = "contains"
	ModeRegex    = "regex"
)

// Node selector kinds.
const (
	KindBlock  = "block"
	KindInline = "inline"
)

// TextSelector finds text matches by pattern. Contains mode treats the
// pattern as a literal; regex mode forwards it as regular expression source.
type TextSelector struct {
	Pattern       string `json:"pattern"`
	Mode          string `json:"mode,omitempty"`
	CaseSensitive bool   `json:"caseSensitive,omitempty"`
}

// NodeSelector finds blocks or inline nodes by type, optionally
// disambiguated by kind.
type NodeSelector struct {
	NodeType string `json:"nodeType"`
	Kind     string `json:"kind,omitempty"`
}

// Range is a half-open block-relative character range.
type Range struct {
	Start int `json:"start"`
	End   int `json:"end"`
}

// TextAddress addresses a text range within one block.
type TextAddress struct {
	BlockID string `json:"blockId"`
	Range   Range  `json:"range"`
}

// TextMatch is one logical search match, split into per-block addresses in
// document order.
type TextMatch struct {
	Addresses []TextAddress
	AbsFrom   int
	AbsTo     int
}

// TextResult is the outcome of resolving a text selector. Diagnostics carry
// non-fatal conditions such as an unresolved within target.
type TextResult struct {
	Matches     []TextMatch
	Diagnostics []string
}

// NodeMatch is one node selector hit.
type NodeMatch struct {
	Kind     string
	NodeType string
	NodeID   string
	BlockID  string
	From     int
	To       int
	AbsFrom  int
	AbsTo    int
}

// NodeResult is the outcome of resolving a node selector.
type NodeResult struct {
	Matches     []NodeMatch
	Diagnostics []string
}
