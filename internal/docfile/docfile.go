// Package docfile loads and saves documents as YAML files.
//
// The on-disk shape mirrors the in-memory document: an ordered list of
// blocks, each with a type, id, text, and optional attrs, marks, and inline
// nodes. Saves are atomic through the fsops layer.
package docfile

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/dhowell/redline/internal/document"
	"github.com/dhowell/redline/internal/fsops"
	"github.com/dhowell/redline/internal/hash"
)

// File is the YAML document file schema.
type File struct {
	Blocks []BlockYAML `yaml:"blocks"`
}

// BlockYAML is one block in the file schema.
type BlockYAML struct {
	Type    string            `yaml:"type"`
	ID      string            `yaml:"id"`
	Text    string            `yaml:"text"`
	Attrs   map[string]string `yaml:"attrs,omitempty"`
	Marks   []MarkYAML        `yaml:"marks,omitempty"`
	Inlines []InlineYAML      `yaml:"inlines,omitempty"`
}

// MarkYAML is one mark range in the file schema.
type MarkYAML struct {
	Type  string            `yaml:"type"`
	From  int               `yaml:"from"`
	To    int               `yaml:"to"`
	Attrs map[string]string `yaml:"attrs,omitempty"`
}

// InlineYAML is one inline node in the file schema.
type InlineYAML struct {
	Type string `yaml:"type"`
	ID   string `yaml:"id"`
	From int    `yaml:"from"`
	To   int    `yaml:"to"`
}

// Load reads a YAML document file and builds a document around it.
func Load(fs fsops.FS, hasher hash.Hasher, path string) (*document.Document, error) {
	data, err := fs.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read document file: %w", err)
	}

	var f File
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("failed to parse document file: %w", err)
	}

	blocks := make([]*document.Block, len(f.Blocks))
	for i, by := range f.Blocks {
		b := &document.Block{
			Type:  by.Type,
			ID:    by.ID,
			Text:  by.Text,
			Attrs: by.Attrs,
		}
		for _, m := range by.Marks {
			b.Marks = append(b.Marks, document.MarkRange{
				From: m.From,
				To:   m.To,
				Mark: document.Mark{Type: m.Type, Attrs: m.Attrs},
			})
		}
		for _, in := range by.Inlines {
			b.Inlines = append(b.Inlines, document.InlineNode{
				Type: in.Type,
				ID:   in.ID,
				From: in.From,
				To:   in.To,
			})
		}
		blocks[i] = b
	}

	doc, err := document.New(hasher, blocks)
	if err != nil {
		return nil, fmt.Errorf("invalid document file: %w", err)
	}
	return doc, nil
}

// Save writes the document back to path atomically.
func Save(fs fsops.FS, doc *document.Document, path string) error {
	f := File{}
	for _, b := range doc.Blocks() {
		by := BlockYAML{
			Type:  b.Type,
			ID:    b.ID,
			Text:  b.Text,
			Attrs: b.Attrs,
		}
		for _, m := range b.Marks {
			by.Marks = append(by.Marks, MarkYAML{
				Type:  m.Mark.Type,
				From:  m.From,
				To:    m.To,
				Attrs: m.Mark.Attrs,
			})
		}
		for _, in := range b.Inlines {
			by.Inlines = append(by.Inlines, InlineYAML{
				Type: in.Type,
				ID:   in.ID,
				From: in.From,
				To:   in.To,
			})
		}
		f.Blocks = append(f.Blocks, by)
	}

	data, err := yaml.Marshal(&f)
	if err != nil {
		return fmt.Errorf("failed to serialize document: %w", err)
	}
	if err := fs.AtomicWrite(path, data, os.FileMode(0644)); err != nil {
		return fmt.Errorf("failed to write document file: %w", err)
	}
	return nil
}
