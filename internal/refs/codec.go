// Package refs encodes and decodes opaque target references.
//
// A text reference is a strictly versioned serialization:
// "text:" + base64(JSON payload). The payload binds the match to the
// document revision it was captured from; it is a snapshot-bound capability
// token, not a content hash, so resolution must fail on a revision mismatch
// even when the referenced text is unchanged. Unrecognized payload versions
// are rejected outright rather than migrated. A string with no recognized
// domain prefix is a raw block-id reference.
package refs

import (
	"encoding/base64"
	"encoding/json"
	"strings"

	"github.com/dhowell/redline/internal/planerr"
)

// Version is the only payload version this codec accepts.
const Version = 3

// Domain prefixes.
const (
	TextPrefix    = "text:"
	TrackPrefix   = "tc:"
	CommentPrefix = "comment:"
)

// SegmentRef is one per-block piece of a referenced match.
type SegmentRef struct {
	BlockID string `json:"blockId"`
	Start   int    `json:"start"`
	End     int    `json:"end"`
}

// Payload is the v3 reference payload.
type Payload struct {
	V          int          `json:"v"`
	Rev        string       `json:"rev"`
	MatchID    string       `json:"matchId"`
	Scope      string       `json:"scope,omitempty"`
	Segments   []SegmentRef `json:"segments"`
	BlockIndex *int         `json:"blockIndex,omitempty"`
	RunIndex   *int         `json:"runIndex,omitempty"`
}

// Decoded is the result of decoding a reference string.
type Decoded struct {
	// Payload is set for text references.
	Payload *Payload

	// BlockID is set for raw block-id references.
	BlockID string
}

// IsBlockRef reports whether the reference is a raw block-id reference.
func (d *Decoded) IsBlockRef() bool {
	return d.Payload == nil
}

// Encode serializes a payload as an opaque text reference string.
func Encode(p Payload) (string, error) {
	p.V = Version
	data, err := json.Marshal(p)
	if err != nil {
		return "", planerr.Newf(planerr.CodeInternal, "failed to encode reference payload: %v", err)
	}
	return TextPrefix + base64.StdEncoding.EncodeToString(data), nil
}

// Decode parses a reference string for use as a text-mutation target.
// References from other domains (tracked changes, comments) are rejected
// with INVALID_INPUT: a type-confusion guard, not a best-effort coercion.
func Decode(ref string) (*Decoded, error) {
	if ref == "" {
		return nil, planerr.New(planerr.CodeInvalidInput, "reference is empty")
	}
	if strings.HasPrefix(ref, TrackPrefix) || strings.HasPrefix(ref, CommentPrefix) {
		return nil, planerr.Newf(planerr.CodeInvalidInput,
			"reference %q is not a text reference and cannot target a text mutation", prefixOf(ref))
	}
	if !strings.HasPrefix(ref, TextPrefix) {
		// No recognized prefix: a raw block id.
		return &Decoded{BlockID: ref}, nil
	}

	raw, err := base64.StdEncoding.DecodeString(strings.TrimPrefix(ref, TextPrefix))
	if err != nil {
		return nil, planerr.New(planerr.CodeInvalidInput, "reference payload is not valid base64")
	}
	var p Payload
	if err := json.Unmarshal(raw, &p); err != nil {
		return nil, planerr.New(planerr.CodeInvalidInput, "reference payload is not valid JSON")
	}
	if p.V != Version {
		return nil, planerr.Newf(planerr.CodeInvalidInput, "unsupported reference version %d", p.V)
	}
	if len(p.Segments) == 0 {
		return nil, planerr.New(planerr.CodeInvalidInput, "reference payload has no segments")
	}
	return &Decoded{Payload: &p}, nil
}

// CheckRevision verifies a payload was captured against the current
// revision.
func CheckRevision(p *Payload, current string) error {
	if p.Rev != current {
		return planerr.New(planerr.CodeRevisionMismatch,
			"reference was captured against a stale document snapshot").
			WithDetail("expected", p.Rev).
			WithDetail("current", current)
	}
	return nil
}

func prefixOf(ref string) string {
	if i := strings.Index(ref, ":"); i >= 0 {
		return ref[:i+1]
	}
	return ref
}
