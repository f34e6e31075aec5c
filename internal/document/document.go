// Package document provides the in-memory structured document the plan
// engine mutates.
//
// A document is an ordered list of blocks (paragraphs, headings, ...), each
// with a stable type+id address, UTF-8 text, inline formatting marks, and
// optional inline nodes anchored to character offsets. Absolute document
// positions treat blocks as joined by a single separator character, so block
// boundaries occupy one position each.
//
// All mutations go through a Transaction, which works on a private copy and
// only publishes its effects on Commit. Every committed content change
// recomputes the document revision, the staleness token carried by opaque
// references.
package document

import (
	"fmt"

	"github.com/dhowell/redline/internal/hash"
)

// Mark is one inline formatting mark (bold, italic, link, ...). Attrs holds
// mark-specific attributes such as a link href.
type Mark struct {
	Type  string            `json:"type" yaml:"type"`
	Attrs map[string]string `json:"attrs,omitempty" yaml:"attrs,omitempty"`
}

// Equal reports whether two marks have the same type and attributes.
func (m Mark) Equal(other Mark) bool {
	if m.Type != other.Type || len(m.Attrs) != len(other.Attrs) {
		return false
	}
	for k, v := range m.Attrs {
		if other.Attrs[k] != v {
			return false
		}
	}
	return true
}

// MarkRange applies a mark to the half-open block-relative range [From, To).
type MarkRange struct {
	From int  `yaml:"from"`
	To   int  `yaml:"to"`
	Mark Mark `yaml:"mark"`
}

// InlineNode is a non-text node anchored to a block-relative range, for
// example a footnote anchor or a structured-content marker.
type InlineNode struct {
	Type string `yaml:"type"`
	ID   string `yaml:"id"`
	From int    `yaml:"from"`
	To   int    `yaml:"to"`
}

// Block is a top-level structural node with a stable type+id address.
type Block struct {
	Type    string            `yaml:"type"`
	ID      string            `yaml:"id"`
	Text    string            `yaml:"text"`
	Attrs   map[string]string `yaml:"attrs,omitempty"`
	Marks   []MarkRange       `yaml:"marks,omitempty"`
	Inlines []InlineNode      `yaml:"inlines,omitempty"`
}

// Length returns the block's text length in bytes.
func (b *Block) Length() int {
	return len(b.Text)
}

// Clone returns a deep copy of the block.
func (b *Block) Clone() *Block {
	clone := &Block{
		Type: b.Type,
		ID:   b.ID,
		Text: b.Text,
	}
	if b.Attrs != nil {
		clone.Attrs = make(map[string]string, len(b.Attrs))
		for k, v := range b.Attrs {
			clone.Attrs[k] = v
		}
	}
	if b.Marks != nil {
		clone.Marks = make([]MarkRange, len(b.Marks))
		for i, mr := range b.Marks {
			clone.Marks[i] = MarkRange{From: mr.From, To: mr.To, Mark: cloneMark(mr.Mark)}
		}
	}
	if b.Inlines != nil {
		clone.Inlines = append([]InlineNode(nil), b.Inlines...)
	}
	return clone
}

func cloneMark(m Mark) Mark {
	clone := Mark{Type: m.Type}
	if m.Attrs != nil {
		clone.Attrs = make(map[string]string, len(m.Attrs))
		for k, v := range m.Attrs {
			clone.Attrs[k] = v
		}
	}
	return clone
}

// Document is an ordered sequence of blocks plus the revision tracker.
type Document struct {
	blocks     []*Block
	hasher     hash.Hasher
	revCounter uint64
	revision   string
}

// New creates a document from the given blocks. Block ids must be unique
// and mark/inline ranges must be within bounds.
func New(hasher hash.Hasher, blocks []*Block) (*Document, error) {
	d := &Document{blocks: blocks, hasher: hasher}
	if err := d.validate(); err != nil {
		return nil, err
	}
	d.recomputeRevision()
	return d, nil
}

func (d *Document) validate() error {
	seen := make(map[string]bool, len(d.blocks))
	for _, b := range d.blocks {
		if b.ID == "" {
			return fmt.Errorf("block of type %q has empty id", b.Type)
		}
		if seen[b.ID] {
			return fmt.Errorf("duplicate block id %q", b.ID)
		}
		seen[b.ID] = true
		for _, mr := range b.Marks {
			if mr.From < 0 || mr.To > b.Length() || mr.From > mr.To {
				return fmt.Errorf("block %q: mark %q range [%d,%d) out of bounds (length %d)",
					b.ID, mr.Mark.Type, mr.From, mr.To, b.Length())
			}
		}
		for _, in := range b.Inlines {
			if in.From < 0 || in.To > b.Length() || in.From > in.To {
				return fmt.Errorf("block %q: inline %q range [%d,%d) out of bounds (length %d)",
					b.ID, in.ID, in.From, in.To, b.Length())
			}
		}
	}
	return nil
}

// BlockCount returns the number of blocks.
func (d *Document) BlockCount() int {
	return len(d.blocks)
}

// Blocks returns the blocks in document order. Callers must not mutate the
// returned blocks; mutations go through a Transaction.
func (d *Document) Blocks() []*Block {
	return d.blocks
}

// BlockByID returns the block with the given id and its ordinal position.
func (d *Document) BlockByID(id string) (*Block, int, bool) {
	for i, b := range d.blocks {
		if b.ID == id {
			return b, i, true
		}
	}
	return nil, 0, false
}

// BlockStart returns the absolute position of the block at the given
// ordinal. Blocks are separated by one position each.
func (d *Document) BlockStart(ordinal int) int {
	start := 0
	for i := 0; i < ordinal && i < len(d.blocks); i++ {
		start += d.blocks[i].Length() + 1
	}
	return start
}

// Text returns the full document text with blocks joined by a newline.
// Absolute positions index into this string.
func (d *Document) Text() string {
	total := 0
	for _, b := range d.blocks {
		total += b.Length() + 1
	}
	buf := make([]byte, 0, total)
	for i, b := range d.blocks {
		if i > 0 {
			buf = append(buf, '\n')
		}
		buf = append(buf, b.Text...)
	}
	return string(buf)
}

// Length returns the length of Text().
func (d *Document) Length() int {
	if len(d.blocks) == 0 {
		return 0
	}
	n := len(d.blocks) - 1
	for _, b := range d.blocks {
		n += b.Length()
	}
	return n
}

// BlockAt maps an absolute character position to its containing block and
// block-relative offset. Positions that land on a block separator belong to
// no block.
func (d *Document) BlockAt(abs int) (*Block, int, bool) {
	if abs < 0 {
		return nil, 0, false
	}
	start := 0
	for _, b := range d.blocks {
		end := start + b.Length()
		if abs >= start && abs < end {
			return b, abs - start, true
		}
		start = end + 1
	}
	return nil, 0, false
}

// AbsRange returns the absolute positions for a block-relative range.
func (d *Document) AbsRange(blockID string, from, to int) (int, int, bool) {
	_, ordinal, ok := d.BlockByID(blockID)
	if !ok {
		return 0, 0, false
	}
	start := d.BlockStart(ordinal)
	return start + from, start + to, true
}

// Revision returns the current revision token. It is opaque to callers and
// changes on every committed content mutation.
func (d *Document) Revision() string {
	return d.revision
}

func (d *Document) recomputeRevision() {
	d.revCounter++
	digest := d.hasher.HashText(d.Text())
	if len(digest) > 8 {
		digest = digest[:8]
	}
	d.revision = fmt.Sprintf("%d-%s", d.revCounter, digest)
}
