package cli

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"archplan/internal/plan"
)

// SubmitOptions holds flags for the submit command.
type SubmitOptions struct {
	*RootOptions
	Server string
	Wait   bool
}

// NewSubmitCommand creates the submit command.
func NewSubmitCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &SubmitOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "submit <batch.json>",
		Short: "Submit a batch to a running server",
		Long: `Submit a change-plan batch file to a running server.

Prints the queued operation snapshot. With --wait, polls until the
operation reaches a terminal state and prints the final snapshot.`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runSubmit(opts, args[0], cmd)
		},
	}

	cmd.Flags().StringVar(&opts.Server, "server", "http://127.0.0.1:8184", "server base URL")
	cmd.Flags().BoolVar(&opts.Wait, "wait", false, "poll until the operation is terminal")

	return cmd
}

func runSubmit(opts *SubmitOptions, path string, cmd *cobra.Command) error {
	formatter := &OutputFormatter{
		Format:    opts.Format,
		Writer:    cmd.OutOrStdout(),
		ErrWriter: cmd.ErrOrStderr(),
		Verbose:   opts.Verbose,
	}

	raw, err := os.ReadFile(path)
	if err != nil {
		return WrapExitError(ExitCommandError, "cannot read batch file", err)
	}

	client := newAPIClient(opts.Server)
	var op plan.Operation
	if err := client.post("/v1/operations", raw, &op); err != nil {
		formatter.Error("E_SUBMIT", "submission rejected", err.Error())
		return WrapExitError(ExitFailure, "submission rejected", err)
	}
	formatter.VerboseLog("operation %s accepted (status %s)", op.ID, op.Status)

	if opts.Wait {
		op, err = pollUntilTerminal(client, op.ID)
		if err != nil {
			return WrapExitError(ExitCommandError, "polling failed", err)
		}
	}

	if err := formatter.SuccessText(describeOperation(op), op); err != nil {
		return err
	}
	if op.Status == plan.StatusError {
		return NewExitError(ExitFailure, "operation finished with errors")
	}
	return nil
}

func describeOperation(op plan.Operation) string {
	t := op.Digest.Totals
	return fmt.Sprintf("operation %s: %s (requested %d, executed %d, skipped %d, failed %d)",
		op.ID, op.Status, t.Requested, t.Executed, t.Skipped, t.Failed)
}
