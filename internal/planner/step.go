package planner

import (
	"encoding/json"

	"github.com/dhowell/redline/internal/planerr"
	"github.com/dhowell/redline/internal/selector"
)

// Op identifies a mutation step operation.
type Op string

// The closed set of step operations.
const (
	OpTextRewrite     Op = "text.rewrite"
	OpTextInsert      Op = "text.insert"
	OpTextDelete      Op = "text.delete"
	OpFormatApply     Op = "format.apply"
	OpAssert          Op = "assert"
	OpCreateParagraph Op = "create.paragraph"
	OpCreateHeading   Op = "create.heading"
	OpDomainCommand   Op = "domain.command"
)

// Require is the cardinality rule governing how many selector matches a
// step may bind to.
type Require string

// Cardinality rules. The empty value applies no enforcement.
const (
	RequireFirst      Require = "first"
	RequireExactlyOne Require = "exactlyOne"
	RequireAll        Require = "all"
)

// Where selection kinds.
const (
	BySelect = "select"
	ByRef    = "ref"
)

// Selector is the discriminated selector carried by a select where clause.
// Type "text" uses Pattern/Mode/CaseSensitive; type "node" uses
// NodeType/Kind.
type Selector struct {
	Type          string `json:"type"`
	Pattern       string `json:"pattern,omitempty"`
	Mode          string `json:"mode,omitempty"`
	CaseSensitive bool   `json:"caseSensitive,omitempty"`
	NodeType      string `json:"nodeType,omitempty"`
	Kind          string `json:"kind,omitempty"`
}

// Where names a step's target: either a selector resolved at compile time
// or an opaque reference captured earlier.
type Where struct {
	By      string                 `json:"by"`
	Select  *Selector              `json:"select,omitempty"`
	Within  *selector.NodeSelector `json:"within,omitempty"`
	Require Require                `json:"require,omitempty"`
	Ref     string                 `json:"ref,omitempty"`
}

// Step is one declarative mutation step. Args is op-specific and decoded by
// the step's executor.
type Step struct {
	ID    string          `json:"id"`
	Op    Op              `json:"op"`
	Where *Where          `json:"where,omitempty"`
	Args  json.RawMessage `json:"args,omitempty"`
}

// whereOptionalOps lists the ops that may omit a where clause; they fall
// back to a synthetic zero-width target at the document end.
var whereOptionalOps = map[Op]bool{
	OpCreateParagraph: true,
	OpCreateHeading:   true,
	OpDomainCommand:   true,
}

// spanCapableOps lists the ops that can apply to a cross-block span.
// The rest reject SpanTargets at compile time with CROSS_BLOCK_MATCH.
var spanCapableOps = map[Op]bool{
	OpTextDelete:  true,
	OpFormatApply: true,
}

// styleCapturingOps lists the ops whose targets snapshot inline style at
// compile time.
var styleCapturingOps = map[Op]bool{
	OpTextRewrite: true,
	OpFormatApply: true,
}

// ParseSteps decodes a JSON array of mutation steps.
func ParseSteps(data []byte) ([]Step, error) {
	var steps []Step
	if err := json.Unmarshal(data, &steps); err != nil {
		return nil, planerr.Newf(planerr.CodeInvalidInput, "malformed plan: %v", err)
	}
	return steps, nil
}
