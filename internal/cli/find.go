package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/dhowell/redline/internal/document"
	"github.com/dhowell/redline/internal/refs"
	"github.com/dhowell/redline/internal/selector"
)

var (
	findPattern       string
	findMode          string
	findCaseSensitive bool
	findNodeType      string
	findKind          string
	findEmitRefs      bool
)

// foundMatch is the JSON shape of one find result.
type foundMatch struct {
	AbsFrom  int               `json:"absFrom"`
	AbsTo    int               `json:"absTo"`
	Text     string            `json:"text,omitempty"`
	Segments []refs.SegmentRef `json:"segments"`
	Ref      string            `json:"ref,omitempty"`
}

var findCmd = &cobra.Command{
	Use:   "find <document>",
	Short: "Resolve a selector against a document and list its matches",
	Long: `Find resolves a text or node selector against the document and prints
every match. With --emit-refs each match also carries an opaque reference
bound to the document's current revision; a later apply can target the
exact match even if other selectors have become ambiguous, and fails
cleanly if the document has changed underneath it.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		_, limits, err := newEngine()
		if err != nil {
			return err
		}
		doc, err := loadDocument(args[0])
		if err != nil {
			return err
		}
		if findPattern == "" && findNodeType == "" {
			return fmt.Errorf("either --pattern or --node-type is required")
		}

		resolver := selector.NewResolver(doc, document.NewRegexSearcher(), limits)

		var matches []foundMatch
		if findPattern != "" {
			res, err := resolver.ResolveText(selector.TextSelector{
				Pattern:       findPattern,
				Mode:          findMode,
				CaseSensitive: findCaseSensitive,
			}, nil)
			if err != nil {
				return err
			}
			for _, w := range res.Diagnostics {
				PrintWarning(w)
			}
			for _, m := range res.Matches {
				fm := foundMatch{AbsFrom: m.AbsFrom, AbsTo: m.AbsTo}
				for _, a := range m.Addresses {
					fm.Segments = append(fm.Segments, refs.SegmentRef{
						BlockID: a.BlockID,
						Start:   a.Range.Start,
						End:     a.Range.End,
					})
				}
				if segs, err := selector.NormalizeSpan(doc, m.Addresses); err == nil {
					fm.Text = selector.SegmentsText(doc, segs)
				}
				matches = append(matches, fm)
			}
		} else {
			res, err := resolver.ResolveNode(selector.NodeSelector{
				NodeType: findNodeType,
				Kind:     findKind,
			}, nil)
			if err != nil {
				return err
			}
			for _, m := range res.Matches {
				matches = append(matches, foundMatch{
					AbsFrom:  m.AbsFrom,
					AbsTo:    m.AbsTo,
					Segments: []refs.SegmentRef{{BlockID: m.BlockID, Start: m.From, End: m.To}},
				})
			}
		}

		if findEmitRefs {
			for i := range matches {
				ref, err := refs.Encode(refs.Payload{
					Rev:      doc.Revision(),
					MatchID:  fmt.Sprintf("m-%d-%d", matches[i].AbsFrom, matches[i].AbsTo),
					Segments: matches[i].Segments,
				})
				if err != nil {
					return fmt.Errorf("failed to encode reference: %w", err)
				}
				matches[i].Ref = ref
			}
		}

		if jsonOutput {
			return outputJSON(struct {
				Revision string       `json:"revision"`
				Matches  []foundMatch `json:"matches"`
			}{doc.Revision(), matches})
		}

		if len(matches) == 0 {
			PrintEmptyState("No matches")
			return nil
		}
		PrintInfo(fmt.Sprintf("%s at revision %s", PrintCount(len(matches), "match", "matches"), doc.Revision()))
		for _, m := range matches {
			loc := ""
			for i, s := range m.Segments {
				if i > 0 {
					loc += " + "
				}
				loc += fmt.Sprintf("%s[%d,%d)", s.BlockID, s.Start, s.End)
			}
			if m.Text != "" {
				PrintLabelValue(loc, fmt.Sprintf("%q", m.Text))
			} else {
				PrintLabelValue(loc, "")
			}
			if m.Ref != "" {
				PrintList([]string{m.Ref}, 2)
			}
		}
		return nil
	},
}

func init() {
	findCmd.Flags().StringVarP(&findPattern, "pattern", "p", "", "Text pattern to search for")
	findCmd.Flags().StringVarP(&findMode, "mode", "m", "contains", "Pattern mode (contains or regex)")
	findCmd.Flags().BoolVar(&findCaseSensitive, "case-sensitive", false, "Match case exactly")
	findCmd.Flags().StringVar(&findNodeType, "node-type", "", "Node type to select instead of text")
	findCmd.Flags().StringVar(&findKind, "kind", "", "Node kind filter (block or inline)")
	findCmd.Flags().BoolVar(&findEmitRefs, "emit-refs", false, "Mint revision-bound references for each match")
}
