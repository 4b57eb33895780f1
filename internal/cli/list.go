package cli

import (
	"fmt"
	"net/url"

	"github.com/spf13/cobra"

	"archplan/internal/plan"
)

// ListOptions holds flags for the list command.
type ListOptions struct {
	*RootOptions
	Server   string
	Cursor   string
	PageSize int
	Status   string
}

// NewListCommand creates the list command.
func NewListCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &ListOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List recent operations",
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runList(opts, cmd)
		},
	}

	cmd.Flags().StringVar(&opts.Server, "server", "http://127.0.0.1:8184", "server base URL")
	cmd.Flags().StringVar(&opts.Cursor, "cursor", "", "listing page cursor")
	cmd.Flags().IntVar(&opts.PageSize, "page-size", 0, "listing page size")
	cmd.Flags().StringVar(&opts.Status, "status", "", "only show operations in this state (queued|processing|complete|error)")

	return cmd
}

func runList(opts *ListOptions, cmd *cobra.Command) error {
	formatter := &OutputFormatter{
		Format:    opts.Format,
		Writer:    cmd.OutOrStdout(),
		ErrWriter: cmd.ErrOrStderr(),
		Verbose:   opts.Verbose,
	}

	q := url.Values{}
	if opts.Cursor != "" {
		q.Set("cursor", opts.Cursor)
	}
	if opts.PageSize > 0 {
		q.Set("pageSize", fmt.Sprint(opts.PageSize))
	}
	if opts.Status != "" {
		q.Set("status", opts.Status)
	}
	path := "/v1/operations"
	if len(q) > 0 {
		path += "?" + q.Encode()
	}

	client := newAPIClient(opts.Server)
	var list plan.OperationList
	if err := client.get(path, &list); err != nil {
		formatter.Error("E_LIST", "listing failed", err.Error())
		return WrapExitError(ExitCommandError, "listing failed", err)
	}

	if opts.Format == "json" {
		return formatter.Success(list)
	}
	if len(list.Operations) == 0 {
		fmt.Fprintln(cmd.OutOrStdout(), "no operations")
		return nil
	}
	for _, op := range list.Operations {
		fmt.Fprintln(cmd.OutOrStdout(), describeOperation(op))
	}
	if list.HasMore {
		fmt.Fprintf(cmd.OutOrStdout(), "... more operations, next cursor %s\n", list.NextCursor)
	}
	return nil
}
