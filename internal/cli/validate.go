package cli

import (
	"errors"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"archplan/internal/plan"
)

// ValidationResult holds validation results for output.
type ValidationResult struct {
	Valid    bool     `json:"valid"`
	Changes  int      `json:"changes"`
	Problems []string `json:"problems,omitempty"`
}

// NewValidateCommand creates the validate command.
func NewValidateCommand(rootOpts *RootOptions) *cobra.Command {
	var maxChanges int

	cmd := &cobra.Command{
		Use:   "validate <batch.json>",
		Short: "Validate a batch file without submitting it",
		Long: `Validate a change-plan batch file locally.

Runs schema validation, decoding, and semantic checks exactly as the
server would at submission, without touching any server or model.`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runValidate(rootOpts, args[0], maxChanges, cmd)
		},
	}

	cmd.Flags().IntVar(&maxChanges, "max-changes", 500, "maximum changes per batch")

	return cmd
}

func runValidate(opts *RootOptions, path string, maxChanges int, cmd *cobra.Command) error {
	formatter := &OutputFormatter{
		Format:    opts.Format,
		Writer:    cmd.OutOrStdout(),
		ErrWriter: cmd.ErrOrStderr(),
		Verbose:   opts.Verbose,
	}

	raw, err := os.ReadFile(path)
	if err != nil {
		formatter.Error("E_READ", fmt.Sprintf("cannot read %s", path), err.Error())
		return WrapExitError(ExitCommandError, "cannot read batch file", err)
	}
	formatter.VerboseLog("read %d bytes from %s", len(raw), path)

	var problems []string
	if err := plan.ValidateSchema(raw); err != nil {
		problems = collectProblems(err)
	}
	var batch *plan.Batch
	if len(problems) == 0 {
		batch, err = plan.ParseBatch(raw)
		if err != nil {
			problems = collectProblems(err)
		}
	}
	if len(problems) == 0 {
		if err := plan.Validate(batch, maxChanges); err != nil {
			problems = collectProblems(err)
		}
	}

	if len(problems) > 0 {
		result := ValidationResult{Valid: false, Problems: problems}
		if opts.Format == "json" {
			formatter.Success(result)
		} else {
			fmt.Fprintf(cmd.OutOrStdout(), "invalid: %d problem(s)\n", len(problems))
			for _, p := range problems {
				fmt.Fprintf(cmd.OutOrStdout(), "  - %s\n", p)
			}
		}
		return NewExitError(ExitFailure, "batch is invalid")
	}

	return formatter.SuccessText(
		fmt.Sprintf("valid: %d change(s)", len(batch.Changes)),
		ValidationResult{Valid: true, Changes: len(batch.Changes)},
	)
}

func collectProblems(err error) []string {
	var verr *plan.ValidationError
	if errors.As(err, &verr) {
		return verr.Problems
	}
	return []string{err.Error()}
}
