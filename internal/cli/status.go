package cli

import (
	"fmt"
	"net/url"
	"time"

	"github.com/spf13/cobra"

	"archplan/internal/plan"
)

// StatusOptions holds flags for the status command.
type StatusOptions struct {
	*RootOptions
	Server   string
	Cursor   string
	PageSize int
	Summary  bool
	Wait     bool
}

// NewStatusCommand creates the status command.
func NewStatusCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &StatusOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "status <operation-id>",
		Short: "Poll one operation's status",
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runStatus(opts, args[0], cmd)
		},
	}

	cmd.Flags().StringVar(&opts.Server, "server", "http://127.0.0.1:8184", "server base URL")
	cmd.Flags().StringVar(&opts.Cursor, "cursor", "", "results page cursor")
	cmd.Flags().IntVar(&opts.PageSize, "page-size", 0, "results page size")
	cmd.Flags().BoolVar(&opts.Summary, "summary", false, "omit per-change results")
	cmd.Flags().BoolVar(&opts.Wait, "wait", false, "poll until the operation is terminal")

	return cmd
}

func runStatus(opts *StatusOptions, id string, cmd *cobra.Command) error {
	formatter := &OutputFormatter{
		Format:    opts.Format,
		Writer:    cmd.OutOrStdout(),
		ErrWriter: cmd.ErrOrStderr(),
		Verbose:   opts.Verbose,
	}

	client := newAPIClient(opts.Server)

	var op plan.Operation
	var err error
	if opts.Wait {
		op, err = pollUntilTerminal(client, id)
	} else {
		err = client.get(statusPath(id, opts.Cursor, opts.PageSize, opts.Summary), &op)
	}
	if err != nil {
		formatter.Error("E_STATUS", "status read failed", err.Error())
		return WrapExitError(ExitCommandError, "status read failed", err)
	}

	if opts.Format == "json" {
		return formatter.Success(op)
	}
	fmt.Fprintln(cmd.OutOrStdout(), describeOperation(op))
	for _, r := range op.Results {
		line := fmt.Sprintf("  [%d] %s: %s", r.Index, r.Kind, r.Outcome)
		if r.ProducedID != "" {
			line += " -> " + r.ProducedID
		}
		if r.Reason != "" {
			line += " (" + r.Reason + ")"
		}
		fmt.Fprintln(cmd.OutOrStdout(), line)
	}
	if op.HasMore {
		fmt.Fprintf(cmd.OutOrStdout(), "  ... more results, next cursor %s\n", op.NextCursor)
	}
	return nil
}

func statusPath(id, cursor string, pageSize int, summary bool) string {
	q := url.Values{}
	if cursor != "" {
		q.Set("cursor", cursor)
	}
	if pageSize > 0 {
		q.Set("pageSize", fmt.Sprint(pageSize))
	}
	if summary {
		q.Set("summary", "true")
	}
	path := "/v1/operations/" + url.PathEscape(id)
	if len(q) > 0 {
		path += "?" + q.Encode()
	}
	return path
}

// pollUntilTerminal polls an operation with a short backoff until it
// reaches a terminal state.
func pollUntilTerminal(client *apiClient, id string) (plan.Operation, error) {
	delay := 100 * time.Millisecond
	for {
		var op plan.Operation
		if err := client.get(statusPath(id, "", 0, false), &op); err != nil {
			return plan.Operation{}, err
		}
		if op.Status.Terminal() {
			return op, nil
		}
		time.Sleep(delay)
		if delay < 2*time.Second {
			delay *= 2
		}
	}
}
