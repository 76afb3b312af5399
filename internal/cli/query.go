package cli

import (
	"fmt"

	"github.com/maruel/csvdb/internal/csvdb"
	"github.com/spf13/cobra"
)

// NewSelectCommand creates the select command.
func NewSelectCommand(opts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "select",
		Short: "Print every record",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runQuery(cmd, opts, func(t *csvdb.Table) []csvdb.Record { return t.SelectAll() })
		},
	}
}

// NewFindCommand creates the find command.
func NewFindCommand(opts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "find <column> <value>",
		Short: "Print the records whose column equals value",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runQuery(cmd, opts, func(t *csvdb.Table) []csvdb.Record { return t.SearchExact(args[0], args[1]) })
		},
	}
}

// NewSearchCommand creates the search command.
func NewSearchCommand(opts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "search <column> <substring>",
		Short: "Print the records whose column contains substring, ignoring case",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runQuery(cmd, opts, func(t *csvdb.Table) []csvdb.Record { return t.SearchLike(args[0], args[1]) })
		},
	}
}

// GetOptions holds flags for the get command.
type GetOptions struct {
	*RootOptions
	Column string
}

// NewGetCommand creates the get command.
func NewGetCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &GetOptions{RootOptions: rootOpts}
	cmd := &cobra.Command{
		Use:   "get <value>",
		Short: "Print the first record with the numeric key value",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			table, err := opts.openTable(cmd)
			if err != nil {
				return err
			}
			row, ok := table.FindByKey(args[0], opts.Column)
			if !ok {
				return fmt.Errorf("%s: %w", args[0], csvdb.ErrNotFound)
			}
			return opts.output(cmd).record(table.Columns(), row)
		},
	}
	cmd.Flags().StringVar(&opts.Column, "column", "", "column to match instead of the key column")
	return cmd
}

func runQuery(cmd *cobra.Command, opts *RootOptions, query func(*csvdb.Table) []csvdb.Record) error {
	table, err := opts.openTable(cmd)
	if err != nil {
		return err
	}
	return opts.output(cmd).records(table.Columns(), query(table))
}
