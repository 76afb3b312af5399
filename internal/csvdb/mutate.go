// Insert, update and delete, each followed by a full rewrite of the file.

package csvdb

import (
	"slices"
	"strings"
)

// Insert appends row and persists the table.
//
// No uniqueness check is made on the key column: the caller is responsible for
// supplying an unused identifier, typically from NextID. Values containing the
// separator or a line break are written verbatim and will not load back as a
// single cell.
func (t *Table) Insert(row Record) error {
	t.mu.Lock()
	if t.err != nil {
		t.mu.Unlock()
		return t.err
	}
	if len(t.doc.columns) == 0 {
		t.mu.Unlock()
		return ErrNoColumns
	}
	next := make([]Record, len(t.doc.rows), len(t.doc.rows)+1)
	copy(next, t.doc.rows)
	next = append(next, row.Clone())
	err := t.commit("insert", next)
	t.mu.Unlock()
	if err != nil {
		return err
	}
	t.notify(func(o Observer) { o.OnInsert(row.Clone()) })
	return nil
}

// Update replaces the first row whose value in column equals keyValue with row.
//
// An empty column means the key column. keyValue must be a non-empty number,
// surrounding whitespace is ignored, and row must hold at least one value. The row is replaced entirely, not
// merged. ErrNotFound is returned, and nothing is written, when no row matches.
func (t *Table) Update(keyValue string, row Record, column string) error {
	if !IsNumeric(keyValue) {
		return ErrInvalidKey
	}
	if len(row) == 0 {
		return ErrEmptyRecord
	}
	keyValue = strings.TrimSpace(keyValue)
	column = t.column(column)
	t.mu.Lock()
	if t.err != nil {
		t.mu.Unlock()
		return t.err
	}
	i := slices.IndexFunc(t.doc.rows, func(r Record) bool { return r[column] == keyValue })
	if i < 0 {
		t.mu.Unlock()
		return ErrNotFound
	}
	prev := t.doc.rows[i].Clone()
	next := slices.Clone(t.doc.rows)
	next[i] = row.Clone()
	err := t.commit("update", next)
	t.mu.Unlock()
	if err != nil {
		return err
	}
	t.notify(func(o Observer) { o.OnUpdate(prev.Clone(), row.Clone()) })
	return nil
}

// Delete removes the rows whose value in column equals idValue and returns how
// many were removed.
//
// Rows are scanned from the last to the first. With onlyFirst, only the first
// match met in that order, i.e. the last one in the file, is removed. The table
// is persisted even when nothing matched, in which case Delete returns 0 and a
// nil error. Surrounding whitespace in idValue is ignored.
func (t *Table) Delete(idValue, column string, onlyFirst bool) (int, error) {
	if !IsNumeric(idValue) {
		return 0, ErrInvalidKey
	}
	idValue = strings.TrimSpace(idValue)
	column = t.column(column)
	t.mu.Lock()
	if t.err != nil {
		t.mu.Unlock()
		return 0, t.err
	}
	next := slices.Clone(t.doc.rows)
	var removed []Record
	for i := len(next) - 1; i >= 0; i-- {
		if next[i][column] != idValue {
			continue
		}
		removed = append(removed, next[i].Clone())
		next = slices.Delete(next, i, i+1)
		if onlyFirst {
			break
		}
	}
	err := t.commit("delete", next)
	t.mu.Unlock()
	if err != nil {
		return 0, err
	}
	for _, r := range removed {
		t.notify(func(o Observer) { o.OnDelete(r.Clone()) })
	}
	return len(removed), nil
}
