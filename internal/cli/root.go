// Package cli implements the csvdb command line.
package cli

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/lmittmann/tint"
	"github.com/maruel/csvdb/internal/config"
	"github.com/maruel/csvdb/internal/csvdb"
	"github.com/maruel/csvdb/internal/history"
	"github.com/mattn/go-colorable"
	"github.com/mattn/go-isatty"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

// RootOptions holds global flags for all commands.
type RootOptions struct {
	ConfigFile string

	// Config is loaded before any subcommand runs.
	Config *config.Config

	v *viper.Viper
}

// ValidFormats defines the allowed output formats.
var ValidFormats = []string{"text", "json", "yaml"}

// NewRootCommand creates the root command for the csvdb CLI.
func NewRootCommand() *cobra.Command {
	opts := &RootOptions{v: config.New()}

	cmd := &cobra.Command{
		Use:   "csvdb",
		Short: "csvdb - a flat-file record store",
		Long: `Query and edit a semicolon separated table file as a small database.

The first line of the file is the header. Every change rewrites the whole file.
Settings come from flags, CSVDB_* environment variables and an optional
csvdb.yaml config file, in that order of precedence.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(opts.v, opts.ConfigFile)
			if err != nil {
				return err
			}
			opts.Config = cfg
			slog.SetDefault(newLogger(cmd.ErrOrStderr(), cfg.LogLevel))
			return nil
		},
	}

	f := cmd.PersistentFlags()
	f.StringVar(&opts.ConfigFile, "config", "", "config file (default "+config.DefaultFile+" when present)")
	f.StringP("file", "f", "", "table file")
	f.Bool("latin1", false, "the table file is ISO-8859-1 encoded")
	f.String("key", csvdb.DefaultKeyColumn, "identifier column")
	f.Int("header-offset", 0, "number of lines before the header")
	f.String("log-level", "info", "log level (debug|info|warn|error)")
	f.String("format", "text", "output format ("+strings.Join(ValidFormats, "|")+")")
	bindFlags(opts.v, f, map[string]string{
		"file":          "file",
		"latin1":        "latin1",
		"key":           "key",
		"header-offset": "header_offset",
		"log-level":     "log_level",
		"format":        "format",
	})

	cmd.AddCommand(NewInitCommand(opts))
	cmd.AddCommand(NewInfoCommand(opts))
	cmd.AddCommand(NewSelectCommand(opts))
	cmd.AddCommand(NewFindCommand(opts))
	cmd.AddCommand(NewSearchCommand(opts))
	cmd.AddCommand(NewGetCommand(opts))
	cmd.AddCommand(NewInsertCommand(opts))
	cmd.AddCommand(NewUpdateCommand(opts))
	cmd.AddCommand(NewDeleteCommand(opts))
	cmd.AddCommand(NewNextIDCommand(opts))
	cmd.AddCommand(NewSchemaCommand(opts))
	cmd.AddCommand(NewServeCommand(opts))
	cmd.AddCommand(NewLogCommand(opts))

	return cmd
}

// bindFlags binds each flag of fs named in keys to its viper key. Binding an
// undefined flag panics.
func bindFlags(v *viper.Viper, fs *pflag.FlagSet, keys map[string]string) {
	for flag, key := range keys {
		if err := v.BindPFlag(key, fs.Lookup(flag)); err != nil {
			panic(fmt.Sprintf("failed to bind --%s to %s: %v", flag, key, err))
		}
	}
}

// tableOptions converts the loaded config to csvdb options.
func (o *RootOptions) tableOptions() *csvdb.Options {
	return &csvdb.Options{
		Latin1:       o.Config.Latin1,
		KeyColumn:    o.Config.KeyColumn,
		HeaderOffset: o.Config.HeaderOffset,
	}
}

func (o *RootOptions) tablePath() (string, error) {
	if o.Config.File == "" {
		return "", errors.New("no table file, use --file or CSVDB_FILE")
	}
	return o.Config.File, nil
}

// openTable opens the configured table. When history is enabled, every change
// is committed to the git repository of the table's directory.
func (o *RootOptions) openTable(cmd *cobra.Command) (*csvdb.Table, error) {
	path, err := o.tablePath()
	if err != nil {
		return nil, err
	}
	table, err := csvdb.Open(path, o.tableOptions())
	if err != nil {
		return nil, err
	}
	if o.Config.History.Enabled {
		repo, err := o.openHistory(cmd)
		if err != nil {
			return nil, err
		}
		obs, err := repo.Observer(cmd.Context(), table)
		if err != nil {
			return nil, err
		}
		table.AddObserver(obs)
	}
	return table, nil
}

func (o *RootOptions) openHistory(cmd *cobra.Command) (*history.Repo, error) {
	path, err := o.tablePath()
	if err != nil {
		return nil, err
	}
	h := o.Config.History
	return history.Open(cmd.Context(), filepath.Dir(path), h.AuthorName, h.AuthorEmail)
}

func (o *RootOptions) output(cmd *cobra.Command) *output {
	return &output{format: o.Config.Format, w: cmd.OutOrStdout()}
}

// newLogger returns a tint logger writing to w. Colors are only used on a
// terminal.
func newLogger(w io.Writer, level string) *slog.Logger {
	var ll slog.Level
	if err := ll.UnmarshalText([]byte(level)); err != nil {
		ll = slog.LevelInfo
	}
	noColor := true
	if f, ok := w.(*os.File); ok {
		noColor = !isatty.IsTerminal(f.Fd())
		w = colorable.NewColorable(f)
	}
	underSystemd := os.Getenv("JOURNAL_STREAM") != ""
	return slog.New(tint.NewHandler(w, &tint.Options{
		Level:      ll,
		TimeFormat: "15:04:05.000",
		NoColor:    noColor,
		ReplaceAttr: func(groups []string, a slog.Attr) slog.Attr {
			if underSystemd && a.Key == slog.TimeKey && len(groups) == 0 {
				return slog.Attr{}
			}
			switch v := a.Value.Any().(type) {
			case string:
				if v == "" {
					return slog.Attr{}
				}
			case time.Duration:
				if v == 0 {
					return slog.Attr{}
				}
			case nil:
				return slog.Attr{}
			}
			return a
		},
	}))
}

// parseAssignments parses COL=VAL arguments into a record.
func parseAssignments(args []string) (csvdb.Record, error) {
	row := make(csvdb.Record, len(args))
	for _, arg := range args {
		col, val, ok := strings.Cut(arg, "=")
		if !ok || col == "" {
			return nil, fmt.Errorf("invalid assignment %q, want COL=VALUE", arg)
		}
		row[col] = val
	}
	return row, nil
}
