// Read-only linear scans over the loaded rows.

package csvdb

import "strings"

// SelectAll returns clones of every row in file order.
func (t *Table) SelectAll() []Record {
	return t.filter(func(Record) bool { return true })
}

// SearchExact returns every row whose value in column equals value.
func (t *Table) SearchExact(column, value string) []Record {
	return t.filter(func(r Record) bool { return r[column] == value })
}

// SearchLike returns every row whose value in column contains substr,
// ignoring case.
func (t *Table) SearchLike(column, substr string) []Record {
	substr = strings.ToLower(substr)
	return t.filter(func(r Record) bool {
		return strings.Contains(strings.ToLower(r[column]), substr)
	})
}

// FindByKey returns the first row whose value in column equals value.
//
// An empty column means the key column. The value must be a non-empty number,
// surrounding whitespace is ignored; anything else is reported as not found
// without scanning.
func (t *Table) FindByKey(value, column string) (Record, bool) {
	if !IsNumeric(value) {
		return nil, false
	}
	value = strings.TrimSpace(value)
	column = t.column(column)
	t.mu.RLock()
	defer t.mu.RUnlock()
	if t.err != nil {
		return nil, false
	}
	for _, r := range t.doc.rows {
		if r[column] == value {
			return r.Clone(), true
		}
	}
	return nil, false
}

func (t *Table) filter(match func(Record) bool) []Record {
	t.mu.RLock()
	defer t.mu.RUnlock()
	if t.err != nil {
		return nil
	}
	out := []Record{}
	for _, r := range t.doc.rows {
		if match(r) {
			out = append(out, r.Clone())
		}
	}
	return out
}

// column resolves an empty column name to the key column.
func (t *Table) column(name string) string {
	if name == "" {
		return t.opts.KeyColumn
	}
	return name
}
