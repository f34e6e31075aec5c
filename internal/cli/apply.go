package cli

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/dhowell/redline/internal/engine"
)

var applyCmd = &cobra.Command{
	Use:   "apply <document> <plan>",
	Short: "Apply a mutation plan to a document file",
	Long: `Apply compiles the plan against the document, checks every step for
conflicts, runs all mutations in one transaction, and writes the document
back. The file is untouched unless every step succeeds.`,
	Args: cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		eng, _, err := newEngine()
		if err != nil {
			return err
		}
		doc, err := loadDocument(args[0])
		if err != nil {
			return err
		}
		steps, err := loadPlan(args[1])
		if err != nil {
			return err
		}

		receipt, err := eng.Apply(context.Background(), &engine.ApplyRequest{Doc: doc, Steps: steps})
		if err != nil {
			if jsonOutput && receipt != nil {
				_ = outputJSON(receipt)
			} else if receipt != nil && receipt.Failure != nil {
				printFailure(*receipt.Failure)
			}
			return err
		}

		if err := saveDocument(doc, args[0]); err != nil {
			return err
		}

		if jsonOutput {
			return outputJSON(receipt)
		}

		PrintSuccess(fmt.Sprintf("Applied %s", PrintCount(len(receipt.Steps), "step", "steps")))
		for _, out := range receipt.Steps {
			PrintLabelValue(out.StepID, fmt.Sprintf("%s (%s, %s)",
				out.Op, out.Effect, PrintCount(out.MatchCount, "match", "matches")))
		}
		PrintLabelValue("Revision", receipt.Revision)
		return nil
	},
}

// printFailure renders a plan failure for human consumption.
func printFailure(f engine.Failure) {
	if f.StepID != "" {
		PrintError(fmt.Sprintf("[%s] step %s: %s (%s phase)", f.Code, f.StepID, f.Message, f.Phase))
	} else {
		PrintError(fmt.Sprintf("[%s] %s (%s phase)", f.Code, f.Message, f.Phase))
	}
	for k, v := range f.Details {
		PrintLabelValue(k, fmt.Sprintf("%v", v))
	}
}
