package cli

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"
	"text/tabwriter"

	"github.com/maruel/csvdb/internal/csvdb"
	"gopkg.in/yaml.v3"
)

// output writes command results in the selected format.
type output struct {
	format string
	w      io.Writer
}

// records prints rows with their values in columns order.
func (o *output) records(columns []string, rows []csvdb.Record) error {
	switch o.format {
	case "json":
		if rows == nil {
			rows = []csvdb.Record{}
		}
		return o.json(rows)
	case "yaml":
		seq := &yaml.Node{Kind: yaml.SequenceNode}
		for _, r := range rows {
			seq.Content = append(seq.Content, recordNode(columns, r))
		}
		return o.yaml(seq)
	default:
		tw := tabwriter.NewWriter(o.w, 0, 4, 2, ' ', 0)
		if _, err := fmt.Fprintln(tw, strings.Join(columns, "\t")); err != nil {
			return err
		}
		for _, r := range rows {
			cells := make([]string, len(columns))
			for i, c := range columns {
				cells[i] = r[c]
			}
			if _, err := fmt.Fprintln(tw, strings.Join(cells, "\t")); err != nil {
				return err
			}
		}
		return tw.Flush()
	}
}

// record prints a single row.
func (o *output) record(columns []string, row csvdb.Record) error {
	switch o.format {
	case "json":
		return o.json(row)
	case "yaml":
		return o.yaml(recordNode(columns, row))
	default:
		tw := tabwriter.NewWriter(o.w, 0, 4, 2, ' ', 0)
		for _, c := range columns {
			if _, err := fmt.Fprintf(tw, "%s:\t%s\n", c, row[c]); err != nil {
				return err
			}
		}
		return tw.Flush()
	}
}

// value prints v as JSON or YAML, or text in text format.
func (o *output) value(v any, text string) error {
	switch o.format {
	case "json":
		return o.json(v)
	case "yaml":
		return o.yaml(v)
	default:
		_, err := fmt.Fprintln(o.w, text)
		return err
	}
}

func (o *output) json(v any) error {
	enc := json.NewEncoder(o.w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func (o *output) yaml(v any) error {
	enc := yaml.NewEncoder(o.w)
	enc.SetIndent(2)
	if err := enc.Encode(v); err != nil {
		return err
	}
	return enc.Close()
}

// recordNode builds a YAML mapping keeping the header order, which a Go map
// would lose.
func recordNode(columns []string, row csvdb.Record) *yaml.Node {
	m := &yaml.Node{Kind: yaml.MappingNode}
	for _, c := range columns {
		m.Content = append(m.Content,
			&yaml.Node{Kind: yaml.ScalarNode, Tag: "!!str", Value: c},
			&yaml.Node{Kind: yaml.ScalarNode, Tag: "!!str", Value: row[c]},
		)
	}
	return m
}
