package cli

import (
	"fmt"

	"github.com/spf13/cobra"
)

// blockSummary is the JSON shape of one block in describe output.
type blockSummary struct {
	ID      string            `json:"id"`
	Type    string            `json:"type"`
	Length  int               `json:"length"`
	Attrs   map[string]string `json:"attrs,omitempty"`
	Marks   int               `json:"marks"`
	Inlines int               `json:"inlines"`
}

var describeCmd = &cobra.Command{
	Use:   "describe <document>",
	Short: "Show a document's revision and block structure",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		doc, err := loadDocument(args[0])
		if err != nil {
			return err
		}

		blocks := doc.Blocks()
		summaries := make([]blockSummary, len(blocks))
		for i, b := range blocks {
			summaries[i] = blockSummary{
				ID:      b.ID,
				Type:    b.Type,
				Length:  b.Length(),
				Attrs:   b.Attrs,
				Marks:   len(b.Marks),
				Inlines: len(b.Inlines),
			}
		}

		if jsonOutput {
			return outputJSON(struct {
				Revision string         `json:"revision"`
				Length   int            `json:"length"`
				Blocks   []blockSummary `json:"blocks"`
			}{doc.Revision(), doc.Length(), summaries})
		}

		PrintLabelValue("Revision", doc.Revision())
		PrintLabelValue("Length", fmt.Sprintf("%d bytes", doc.Length()))
		PrintLabelValue("Blocks", fmt.Sprintf("%d", doc.BlockCount()))
		if len(blocks) == 0 {
			PrintEmptyState("Document is empty")
			return nil
		}
		for _, s := range summaries {
			detail := fmt.Sprintf("%s, %d bytes", s.Type, s.Length)
			if s.Marks > 0 {
				detail += fmt.Sprintf(", %s", PrintCount(s.Marks, "mark", "marks"))
			}
			if s.Inlines > 0 {
				detail += fmt.Sprintf(", %s", PrintCount(s.Inlines, "inline", "inlines"))
			}
			PrintLabelValue(s.ID, detail)
		}
		return nil
	},
}
