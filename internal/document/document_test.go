package document

import (
	"testing"

	"github.com/dhowell/redline/internal/hash"
)

func newTestDoc(t *testing.T, blocks ...*Block) *Document {
	t.Helper()
	doc, err := New(hash.NewSHA256Hasher(), blocks)
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}
	return doc
}

func para(id, text string) *Block {
	return &Block{Type: "paragraph", ID: id, Text: text}
}

func TestNewRejectsDuplicateBlockIDs(t *testing.T) {
	_, err := New(hash.NewSHA256Hasher(), []*Block{para("b1", "a"), para("b1", "b")})
	if err == nil {
		t.Fatal("expected error for duplicate block ids")
	}
}

func TestNewRejectsOutOfBoundsMark(t *testing.T) {
	b := para("b1", "short")
	b.Marks = []MarkRange{{From: 0, To: 99, Mark: Mark{Type: "bold"}}}
	if _, err := New(hash.NewSHA256Hasher(), []*Block{b}); err == nil {
		t.Fatal("expected error for out-of-bounds mark")
	}
}

func TestTextAndPositions(t *testing.T) {
	doc := newTestDoc(t, para("b1", "Hello"), para("b2", "world"))

	if got := doc.Text(); got != "Hello\nworld" {
		t.Errorf("Text() = %q", got)
	}
	if got := doc.Length(); got != 11 {
		t.Errorf("Length() = %d, want 11", got)
	}
	if got := doc.BlockStart(1); got != 6 {
		t.Errorf("BlockStart(1) = %d, want 6", got)
	}

	b, off, ok := doc.BlockAt(7)
	if !ok || b.ID != "b2" || off != 1 {
		t.Errorf("BlockAt(7) = %v %d %v, want b2 1 true", b, off, ok)
	}

	// Position 5 is the block separator and belongs to no block.
	if _, _, ok := doc.BlockAt(5); ok {
		t.Error("BlockAt(separator) should report no block")
	}

	from, to, ok := doc.AbsRange("b2", 0, 5)
	if !ok || from != 6 || to != 11 {
		t.Errorf("AbsRange(b2, 0, 5) = %d %d %v", from, to, ok)
	}
}

func TestRevisionChangesOnCommitOnly(t *testing.T) {
	doc := newTestDoc(t, para("b1", "Hello world"))
	rev := doc.Revision()
	if rev == "" {
		t.Fatal("empty initial revision")
	}

	// A transaction that is never committed leaves the revision alone.
	tx := doc.Begin()
	if _, err := tx.ReplaceText("b1", 6, 11, "there"); err != nil {
		t.Fatalf("ReplaceText failed: %v", err)
	}
	if doc.Revision() != rev {
		t.Error("uncommitted transaction changed the revision")
	}
	if doc.Blocks()[0].Text != "Hello world" {
		t.Error("uncommitted transaction changed the document")
	}

	tx2 := doc.Begin()
	if _, err := tx2.ReplaceText("b1", 6, 11, "there"); err != nil {
		t.Fatalf("ReplaceText failed: %v", err)
	}
	if err := tx2.Commit(); err != nil {
		t.Fatalf("Commit failed: %v", err)
	}
	if doc.Revision() == rev {
		t.Error("committed content change did not change the revision")
	}
	if doc.Blocks()[0].Text != "Hello there" {
		t.Errorf("document text = %q, want %q", doc.Blocks()[0].Text, "Hello there")
	}
}

func TestNoopCommitKeepsRevision(t *testing.T) {
	doc := newTestDoc(t, para("b1", "Hello"))
	rev := doc.Revision()

	tx := doc.Begin()
	changed, err := tx.ReplaceText("b1", 0, 5, "Hello")
	if err != nil {
		t.Fatalf("ReplaceText failed: %v", err)
	}
	if changed {
		t.Error("identical replacement reported as changed")
	}
	if err := tx.Commit(); err != nil {
		t.Fatalf("Commit failed: %v", err)
	}
	if doc.Revision() != rev {
		t.Error("no-op commit changed the revision")
	}
}
