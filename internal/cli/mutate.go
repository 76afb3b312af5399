package cli

import (
	"fmt"
	"strconv"

	"github.com/maruel/csvdb/internal/csvdb"
	"github.com/spf13/cobra"
)

// NewInsertCommand creates the insert command.
func NewInsertCommand(opts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "insert <column=value>...",
		Short: "Append a record",
		Long: `Append a record. The key column is set to the next free identifier when
it is not assigned. Values must not contain ';' or line breaks.`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			row, err := parseAssignments(args)
			if err != nil {
				return err
			}
			table, err := opts.openTable(cmd)
			if err != nil {
				return err
			}
			if key := table.KeyColumn(); row[key] == "" {
				id, err := table.NextID("")
				if err != nil {
					return err
				}
				row[key] = strconv.FormatInt(id, 10)
			}
			if err := table.Insert(row); err != nil {
				return err
			}
			return opts.output(cmd).record(table.Columns(), row)
		},
	}
}

// UpdateOptions holds flags for the update command.
type UpdateOptions struct {
	*RootOptions
	Column  string
	Replace bool
}

// NewUpdateCommand creates the update command.
func NewUpdateCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &UpdateOptions{RootOptions: rootOpts}
	cmd := &cobra.Command{
		Use:   "update <key> <column=value>...",
		Short: "Change the first record with the numeric key",
		Long: `Change the first record with the numeric key. The given values are merged
into the current record unless --replace is set, in which case the record is
replaced by exactly the given values.`,
		Args: cobra.MinimumNArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			changes, err := parseAssignments(args[1:])
			if err != nil {
				return err
			}
			table, err := opts.openTable(cmd)
			if err != nil {
				return err
			}
			row := changes
			if !opts.Replace {
				cur, ok := table.FindByKey(args[0], opts.Column)
				if !ok {
					if !csvdb.IsNumeric(args[0]) {
						return csvdb.ErrInvalidKey
					}
					return fmt.Errorf("%s: %w", args[0], csvdb.ErrNotFound)
				}
				for k, v := range changes {
					cur[k] = v
				}
				row = cur
			}
			if err := table.Update(args[0], row, opts.Column); err != nil {
				return err
			}
			return opts.output(cmd).record(table.Columns(), row)
		},
	}
	cmd.Flags().StringVar(&opts.Column, "column", "", "column to match instead of the key column")
	cmd.Flags().BoolVar(&opts.Replace, "replace", false, "replace the whole record instead of merging")
	return cmd
}

// DeleteOptions holds flags for the delete command.
type DeleteOptions struct {
	*RootOptions
	Column string
	All    bool
}

// NewDeleteCommand creates the delete command.
func NewDeleteCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &DeleteOptions{RootOptions: rootOpts}
	cmd := &cobra.Command{
		Use:   "delete <id>",
		Short: "Delete the last record with the numeric id, or all of them with --all",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			table, err := opts.openTable(cmd)
			if err != nil {
				return err
			}
			n, err := table.Delete(args[0], opts.Column, !opts.All)
			if err != nil {
				return err
			}
			return opts.output(cmd).value(map[string]int{"deleted": n}, fmt.Sprintf("deleted %d", n))
		},
	}
	cmd.Flags().StringVar(&opts.Column, "column", "", "column to match instead of the key column")
	cmd.Flags().BoolVar(&opts.All, "all", false, "delete every matching record")
	return cmd
}

// NextIDOptions holds flags for the nextid command.
type NextIDOptions struct {
	*RootOptions
	Column string
}

// NewNextIDCommand creates the nextid command.
func NewNextIDCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &NextIDOptions{RootOptions: rootOpts}
	cmd := &cobra.Command{
		Use:   "nextid",
		Short: "Print the next free numeric identifier",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			table, err := opts.openTable(cmd)
			if err != nil {
				return err
			}
			id, err := table.NextID(opts.Column)
			if err != nil {
				return err
			}
			return opts.output(cmd).value(map[string]int64{"next_id": id}, strconv.FormatInt(id, 10))
		},
	}
	cmd.Flags().StringVar(&opts.Column, "column", "", "column to scan instead of the key column")
	return cmd
}
