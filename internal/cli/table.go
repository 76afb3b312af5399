package cli

import (
	"fmt"
	"strings"

	"github.com/maruel/csvdb/internal/csvdb"
	"github.com/spf13/cobra"
)

// NewInitCommand creates the init command.
func NewInitCommand(opts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "init <column>...",
		Short: "Create a table file holding only a header",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			path, err := opts.tablePath()
			if err != nil {
				return err
			}
			table, err := csvdb.Create(path, args, opts.tableOptions())
			if err != nil {
				return err
			}
			if opts.Config.History.Enabled {
				repo, err := opts.openHistory(cmd)
				if err != nil {
					return err
				}
				if err := repo.Commit(cmd.Context(), path, "init: "+strings.Join(args, ";")); err != nil {
					return err
				}
			}
			return opts.output(cmd).value(
				map[string]any{"path": table.Path(), "columns": table.Columns()},
				fmt.Sprintf("created %s with %d columns", table.Path(), len(table.Columns())))
		},
	}
}

// tableInfo describes a table.
type tableInfo struct {
	Path      string   `json:"path" yaml:"path"`
	Columns   []string `json:"columns" yaml:"columns"`
	KeyColumn string   `json:"key_column" yaml:"key_column"`
	Rows      int      `json:"rows" yaml:"rows"`
	NextID    int64    `json:"next_id" yaml:"next_id"`
}

func (i *tableInfo) String() string {
	return fmt.Sprintf("path:     %s\ncolumns:  %s\nkey:      %s\nrows:     %d\nnext id:  %d",
		i.Path, strings.Join(i.Columns, ";"), i.KeyColumn, i.Rows, i.NextID)
}

// NewInfoCommand creates the info command.
func NewInfoCommand(opts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "info",
		Short: "Describe the table",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			table, err := opts.openTable(cmd)
			if err != nil {
				return err
			}
			// NextID stays 0 once the key space is exhausted.
			next, _ := table.NextID("")
			info := &tableInfo{
				Path:      table.Path(),
				Columns:   table.Columns(),
				KeyColumn: table.KeyColumn(),
				Rows:      table.Len(),
				NextID:    next,
			}
			return opts.output(cmd).value(info, info.String())
		},
	}
}

// NewSchemaCommand creates the schema command.
func NewSchemaCommand(opts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "schema",
		Short: "Print the JSON schema of a record",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			table, err := opts.openTable(cmd)
			if err != nil {
				return err
			}
			// The schema is JSON whatever the format.
			out := &output{format: "json", w: cmd.OutOrStdout()}
			return out.json(table.JSONSchema())
		},
	}
}

// LogOptions holds flags for the log command.
type LogOptions struct {
	*RootOptions
	N int
}

// NewLogCommand creates the log command.
func NewLogCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &LogOptions{RootOptions: rootOpts}
	cmd := &cobra.Command{
		Use:   "log",
		Short: "Print the recent changes recorded in git",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			repo, err := opts.openHistory(cmd)
			if err != nil {
				return err
			}
			commits, err := repo.Log(cmd.Context(), opts.N)
			if err != nil {
				return err
			}
			var b strings.Builder
			for _, c := range commits {
				fmt.Fprintf(&b, "%s %s %s\n", c.Hash[:8], c.When.Format("2006-01-02 15:04:05"), c.Message)
			}
			return opts.output(cmd).value(commits, strings.TrimSuffix(b.String(), "\n"))
		},
	}
	cmd.Flags().IntVarP(&opts.N, "max-count", "n", 20, "number of changes to print")
	return cmd
}
