package document

import (
	"fmt"
)

// edit records one text replacement inside a block, used to remap positions
// compiled against the pre-transaction snapshot.
type edit struct {
	blockID string
	pos     int
	oldLen  int
	newLen  int
}

// Transaction is an in-flight mutation of a document. It works on a deep
// copy of the host's blocks; nothing is visible to the host until Commit.
// A transaction is exclusively owned by one compile+execute cycle and is
// not safe for concurrent use.
type Transaction struct {
	host      *Document
	work      []*Block
	edits     []edit
	dirty     bool
	committed bool
}

// Begin starts a new transaction against the document.
func (d *Document) Begin() *Transaction {
	work := make([]*Block, len(d.blocks))
	for i, b := range d.blocks {
		work[i] = b.Clone()
	}
	return &Transaction{host: d, work: work}
}

// Changed reports whether the transaction holds any content change.
func (t *Transaction) Changed() bool {
	return t.dirty
}

// Commit publishes the transaction's effects into the host document and, if
// any content changed, recomputes the revision.
func (t *Transaction) Commit() error {
	if t.committed {
		return fmt.Errorf("transaction already committed")
	}
	t.committed = true
	if !t.dirty {
		return nil
	}
	t.host.blocks = t.work
	t.host.recomputeRevision()
	return nil
}

// --- reads against the working copy ---

// BlockByID returns the working copy of a block and its ordinal.
func (t *Transaction) BlockByID(id string) (*Block, int, bool) {
	for i, b := range t.work {
		if b.ID == id {
			return b, i, true
		}
	}
	return nil, 0, false
}

// Blocks returns the working blocks in order.
func (t *Transaction) Blocks() []*Block {
	return t.work
}

// BlockStart returns the absolute start of the block at ordinal within the
// working copy.
func (t *Transaction) BlockStart(ordinal int) int {
	start := 0
	for i := 0; i < ordinal && i < len(t.work); i++ {
		start += t.work[i].Length() + 1
	}
	return start
}

// --- position remapping ---

// MapPos remaps a block-relative position compiled against the snapshot
// through every edit applied so far. Positions inside a replaced region are
// clamped into the replacement.
func (t *Transaction) MapPos(blockID string, pos int) int {
	for _, e := range t.edits {
		if e.blockID != blockID {
			continue
		}
		switch {
		case pos < e.pos:
			// before the edit: unchanged
		case pos >= e.pos+e.oldLen:
			pos += e.newLen - e.oldLen
		default:
			off := pos - e.pos
			if off > e.newLen {
				off = e.newLen
			}
			pos = e.pos + off
		}
	}
	return pos
}

// MapRange remaps a block-relative range through the edits applied so far.
func (t *Transaction) MapRange(blockID string, from, to int) (int, int) {
	nf := t.MapPos(blockID, from)
	nt := t.MapPos(blockID, to)
	if nt < nf {
		nt = nf
	}
	return nf, nt
}

// --- mutations ---

// ReplaceText replaces the block-relative range [from, to) with text.
// It reports whether the content actually changed.
func (t *Transaction) ReplaceText(blockID string, from, to int, text string) (bool, error) {
	b, _, ok := t.BlockByID(blockID)
	if !ok {
		return false, fmt.Errorf("block %q not found", blockID)
	}
	if from < 0 || to > b.Length() || from > to {
		return false, fmt.Errorf("range [%d,%d) out of bounds for block %q (length %d)", from, to, blockID, b.Length())
	}

	old := b.Text[from:to]
	if old == text {
		return false, nil
	}

	b.Text = b.Text[:from] + text + b.Text[to:]
	adjustRanges(b, from, to-from, len(text))
	t.edits = append(t.edits, edit{blockID: blockID, pos: from, oldLen: to - from, newLen: len(text)})
	t.dirty = true
	return true, nil
}

// InsertText inserts text at a block-relative position.
func (t *Transaction) InsertText(blockID string, pos int, text string) (bool, error) {
	if text == "" {
		return false, nil
	}
	return t.ReplaceText(blockID, pos, pos, text)
}

// DeleteText removes the block-relative range [from, to).
func (t *Transaction) DeleteText(blockID string, from, to int) (bool, error) {
	return t.ReplaceText(blockID, from, to, "")
}

// AddMark applies a mark over [from, to), merging with existing ranges of
// an equal mark. It reports whether coverage actually changed.
func (t *Transaction) AddMark(blockID string, from, to int, mark Mark) (bool, error) {
	b, _, ok := t.BlockByID(blockID)
	if !ok {
		return false, fmt.Errorf("block %q not found", blockID)
	}
	if from < 0 || to > b.Length() || from > to {
		return false, fmt.Errorf("range [%d,%d) out of bounds for block %q (length %d)", from, to, blockID, b.Length())
	}
	if from == to {
		return false, nil
	}

	// Collect uncovered gaps of [from, to) under existing equal marks.
	covered := make([]MarkRange, 0, 4)
	for _, mr := range b.Marks {
		if mr.Mark.Equal(mark) {
			covered = append(covered, mr)
		}
	}
	gaps := subtractRanges(from, to, covered)
	if len(gaps) == 0 {
		return false, nil
	}
	for _, g := range gaps {
		b.Marks = append(b.Marks, MarkRange{From: g[0], To: g[1], Mark: cloneMark(mark)})
	}
	mergeEqualMarkRanges(b)
	t.dirty = true
	return true, nil
}

// RemoveMark removes all coverage of marks with the given type from
// [from, to). It reports whether coverage actually changed.
func (t *Transaction) RemoveMark(blockID string, from, to int, markType string) (bool, error) {
	b, _, ok := t.BlockByID(blockID)
	if !ok {
		return false, fmt.Errorf("block %q not found", blockID)
	}
	if from < 0 || to > b.Length() || from > to {
		return false, fmt.Errorf("range [%d,%d) out of bounds for block %q (length %d)", from, to, blockID, b.Length())
	}

	changed := false
	next := b.Marks[:0]
	var added []MarkRange
	for _, mr := range b.Marks {
		if mr.Mark.Type != markType || mr.To <= from || mr.From >= to {
			next = append(next, mr)
			continue
		}
		changed = true
		if mr.From < from {
			next = append(next, MarkRange{From: mr.From, To: from, Mark: mr.Mark})
		}
		if mr.To > to {
			added = append(added, MarkRange{From: to, To: mr.To, Mark: mr.Mark})
		}
	}
	b.Marks = append(next, added...)
	if changed {
		t.dirty = true
	}
	return changed, nil
}

// InsertBlockAfter inserts a new block immediately after the block with the
// given id. An empty afterID appends at the end of the document.
func (t *Transaction) InsertBlockAfter(afterID string, block *Block) error {
	if block.ID == "" {
		return fmt.Errorf("new block has empty id")
	}
	if _, _, exists := t.BlockByID(block.ID); exists {
		return fmt.Errorf("block id %q already exists", block.ID)
	}
	if afterID == "" {
		t.work = append(t.work, block)
		t.dirty = true
		return nil
	}
	_, ordinal, ok := t.BlockByID(afterID)
	if !ok {
		return fmt.Errorf("block %q not found", afterID)
	}
	t.work = append(t.work, nil)
	copy(t.work[ordinal+2:], t.work[ordinal+1:])
	t.work[ordinal+1] = block
	t.dirty = true
	return nil
}

// DeleteBlock removes the block with the given id.
func (t *Transaction) DeleteBlock(blockID string) error {
	_, ordinal, ok := t.BlockByID(blockID)
	if !ok {
		return fmt.Errorf("block %q not found", blockID)
	}
	t.work = append(t.work[:ordinal], t.work[ordinal+1:]...)
	t.dirty = true
	return nil
}

// SetBlockType changes a block's type and merges attrs into its attribute
// map. It reports whether anything changed.
func (t *Transaction) SetBlockType(blockID, blockType string, attrs map[string]string) (bool, error) {
	b, _, ok := t.BlockByID(blockID)
	if !ok {
		return false, fmt.Errorf("block %q not found", blockID)
	}
	changed := false
	if blockType != "" && b.Type != blockType {
		b.Type = blockType
		changed = true
	}
	for k, v := range attrs {
		if b.Attrs == nil {
			b.Attrs = make(map[string]string)
		}
		if b.Attrs[k] != v {
			b.Attrs[k] = v
			changed = true
		}
	}
	if changed {
		t.dirty = true
	}
	return changed, nil
}

// adjustRanges shifts mark and inline ranges after a text replacement at
// pos replacing oldLen bytes with newLen bytes.
func adjustRanges(b *Block, pos, oldLen, newLen int) {
	delta := newLen - oldLen
	mapEnd := func(p int) int {
		switch {
		case p <= pos:
			return p
		case p >= pos+oldLen:
			return p + delta
		default:
			return pos + newLen
		}
	}
	mapStart := func(p int) int {
		switch {
		case p < pos:
			return p
		case p >= pos+oldLen:
			return p + delta
		default:
			return pos
		}
	}

	kept := b.Marks[:0]
	for _, mr := range b.Marks {
		mr.From = mapStart(mr.From)
		mr.To = mapEnd(mr.To)
		if mr.From < mr.To {
			kept = append(kept, mr)
		}
	}
	b.Marks = kept

	keptIn := b.Inlines[:0]
	for _, in := range b.Inlines {
		in.From = mapStart(in.From)
		in.To = mapEnd(in.To)
		if in.From <= in.To {
			keptIn = append(keptIn, in)
		}
	}
	b.Inlines = keptIn
}

// subtractRanges returns the sub-ranges of [from, to) not covered by any of
// the given mark ranges, in ascending order.
func subtractRanges(from, to int, covered []MarkRange) [][2]int {
	gaps := [][2]int{{from, to}}
	for _, c := range covered {
		next := gaps[:0:0]
		for _, g := range gaps {
			if c.To <= g[0] || c.From >= g[1] {
				next = append(next, g)
				continue
			}
			if c.From > g[0] {
				next = append(next, [2]int{g[0], c.From})
			}
			if c.To < g[1] {
				next = append(next, [2]int{c.To, g[1]})
			}
		}
		gaps = next
	}
	return gaps
}

// mergeEqualMarkRanges coalesces adjacent or overlapping ranges carrying an
// equal mark.
func mergeEqualMarkRanges(b *Block) {
	if len(b.Marks) < 2 {
		return
	}
	out := make([]MarkRange, 0, len(b.Marks))
	used := make([]bool, len(b.Marks))
	for i := range b.Marks {
		if used[i] {
			continue
		}
		cur := b.Marks[i]
		for {
			merged := false
			for j := i + 1; j < len(b.Marks); j++ {
				if used[j] || !b.Marks[j].Mark.Equal(cur.Mark) {
					continue
				}
				other := b.Marks[j]
				if other.From > cur.To || other.To < cur.From {
					continue
				}
				if other.From < cur.From {
					cur.From = other.From
				}
				if other.To > cur.To {
					cur.To = other.To
				}
				used[j] = true
				merged = true
			}
			if !merged {
				break
			}
		}
		out = append(out, cur)
	}
	sortMarkRanges(out)
	b.Marks = out
}

func sortMarkRanges(marks []MarkRange) {
	// insertion sort by (From, To, Type); mark lists stay short.
	for i := 1; i < len(marks); i++ {
		for j := i; j > 0 && lessMarkRange(marks[j], marks[j-1]); j-- {
			marks[j], marks[j-1] = marks[j-1], marks[j]
		}
	}
}

func lessMarkRange(a, b MarkRange) bool {
	if a.From != b.From {
		return a.From < b.From
	}
	if a.To != b.To {
		return a.To < b.To
	}
	return a.Mark.Type < b.Mark.Type
}
