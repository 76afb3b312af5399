package csvdb

import "github.com/invopop/jsonschema"

// JSONSchema describes a record of the table as a JSON object with one string
// property per column, in header order. The key column, when present, is
// required and must be numeric.
func (t *Table) JSONSchema() *jsonschema.Schema {
	columns := t.Columns()
	props := jsonschema.NewProperties()
	s := &jsonschema.Schema{
		Version:              jsonschema.Version,
		Title:                t.path,
		Type:                 "object",
		Properties:           props,
		AdditionalProperties: jsonschema.FalseSchema,
	}
	for _, col := range columns {
		prop := &jsonschema.Schema{Type: "string"}
		if col == t.opts.KeyColumn {
			prop.Pattern = numericRe.String()
			s.Required = append(s.Required, col)
		}
		props.Set(col, prop)
	}
	return s
}
