package cli

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/dhowell/redline/internal/engine"
)

var previewCmd = &cobra.Command{
	Use:   "preview <document> <plan>",
	Short: "Evaluate a mutation plan without changing the document",
	Long: `Preview runs the same pipeline as apply but never commits: the document
file is left exactly as it was. The report lists what each step would do,
or every reason the plan is invalid.`,
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

		result, err := eng.Preview(context.Background(), &engine.PreviewRequest{Doc: doc, Steps: steps})
		if err != nil {
			return err
		}

		if jsonOutput {
			if err := outputJSON(result); err != nil {
				return err
			}
		} else if result.Valid {
			PrintSuccess(fmt.Sprintf("Plan is valid: %s would apply",
				PrintCount(len(result.Steps), "step", "steps")))
			for _, out := range result.Steps {
				PrintLabelValue(out.StepID, fmt.Sprintf("%s (%s, %s)",
					out.Op, out.Effect, PrintCount(out.MatchCount, "match", "matches")))
			}
			PrintLabelValue("Evaluated revision", result.EvaluatedRevision)
		} else {
			PrintWarning(fmt.Sprintf("Plan is invalid: %s",
				PrintCount(len(result.Failures), "failure", "failures")))
			PrintSection("Failures")
			for _, f := range result.Failures {
				printFailure(f)
			}
		}

		if !result.Valid {
			return fmt.Errorf("plan is not valid against revision %s", result.EvaluatedRevision)
		}
		return nil
	},
}
