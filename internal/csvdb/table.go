package csvdb

import (
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"slices"
	"sync"
)

// DefaultKeyColumn is the identifier column used when none is configured.
const DefaultKeyColumn = "id"

// Record is one data row, mapping column names to values.
//
// An absent key reads as the empty string.
type Record map[string]string

// Clone returns an independent copy of r.
func (r Record) Clone() Record {
	if r == nil {
		return nil
	}
	c := make(Record, len(r))
	for k, v := range r {
		c[k] = v
	}
	return c
}

// Options configures how a table file is read and written.
type Options struct {
	// Latin1 declares the file as ISO-8859-1. Lines are converted to UTF-8 on
	// load and back on save. The default is UTF-8.
	Latin1 bool
	// KeyColumn is the identifier column used when an operation is given an
	// empty column name. Defaults to DefaultKeyColumn.
	KeyColumn string
	// HeaderOffset is the number of lines preceding the header. They are kept
	// verbatim on save.
	HeaderOffset int
}

// Table holds one table file in memory.
type Table struct {
	path       string
	opts       Options
	fileExists bool

	mu        sync.RWMutex
	err       error
	doc       *document
	observers []Observer
}

// New creates a Table and loads path.
//
// New never fails. If path is not a readable file, the returned table carries
// a sticky error reported by Err and every operation fails until a new Table
// is constructed.
func New(path string, opts *Options) *Table {
	t := &Table{path: path, doc: &document{}}
	if opts != nil {
		t.opts = *opts
	}
	if t.opts.KeyColumn == "" {
		t.opts.KeyColumn = DefaultKeyColumn
	}
	fi, err := os.Stat(path)
	switch {
	case err != nil:
		t.err = fmt.Errorf("%w: %s: %w: %w", ErrUnusable, path, ErrFileNotFound, err)
		return t
	case !fi.Mode().IsRegular():
		t.err = fmt.Errorf("%w: %s: %w: not a regular file", ErrUnusable, path, ErrFileNotFound)
		return t
	}
	t.fileExists = true
	doc, err := t.read()
	if err != nil {
		t.err = fmt.Errorf("%w: %w", ErrUnusable, err)
		return t
	}
	t.doc = doc
	return t
}

// Open is New for callers that want the construction error right away.
func Open(path string, opts *Options) (*Table, error) {
	t := New(path, opts)
	if err := t.Err(); err != nil {
		return nil, err
	}
	return t, nil
}

// Create writes a header-only file with the given columns and opens it.
//
// It refuses to overwrite an existing file.
func Create(path string, columns []string, opts *Options) (*Table, error) {
	if len(columns) == 0 {
		return nil, ErrNoColumns
	}
	if _, err := os.Stat(path); err == nil {
		return nil, fmt.Errorf("%w: %s", ErrFileExists, path)
	} else if !errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("failed to stat %s: %w", path, err)
	}
	var latin1 bool
	if opts != nil {
		latin1 = opts.Latin1
	}
	data, err := encode(&document{columns: columns}, latin1)
	if err != nil {
		return nil, &PersistError{Op: "create", Path: path, Err: err}
	}
	if err := os.WriteFile(path, data, 0o644); err != nil { //nolint:gosec // G306: table files are meant to be shared
		return nil, &PersistError{Op: "create", Path: path, Err: err}
	}
	slog.Debug("Created table", "path", path, "columns", len(columns))
	return Open(path, opts)
}

// Err returns the sticky construction error, or nil if the table is usable.
func (t *Table) Err() error {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.err
}

// FileExists reports whether the path resolved to a regular file at
// construction time.
func (t *Table) FileExists() bool {
	return t.fileExists
}

// Path returns the path of the backing file.
func (t *Table) Path() string {
	return t.path
}

// KeyColumn returns the configured identifier column.
func (t *Table) KeyColumn() string {
	return t.opts.KeyColumn
}

// Len returns the number of rows.
func (t *Table) Len() int {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return len(t.doc.rows)
}

// Columns returns a copy of the column names in header order.
func (t *Table) Columns() []string {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return slices.Clone(t.doc.columns)
}

// Reload re-reads the file. On failure the in-memory table is unchanged.
func (t *Table) Reload() error {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.err != nil {
		return t.err
	}
	doc, err := t.read()
	if err != nil {
		return err
	}
	t.doc = doc
	return nil
}

// read loads and decodes the file.
func (t *Table) read() (*document, error) {
	data, err := os.ReadFile(t.path)
	if err != nil {
		return nil, fmt.Errorf("failed to read table file %s: %w", t.path, err)
	}
	doc, err := decode(data, t.opts.HeaderOffset, t.opts.Latin1)
	if err != nil {
		return nil, fmt.Errorf("failed to decode table file %s: %w", t.path, err)
	}
	slog.Debug("Loaded table", "path", t.path, "columns", len(doc.columns), "rows", len(doc.rows))
	return doc, nil
}

// commit writes rows to disk, reloads the file and makes the reloaded content
// the live table. t.mu must be held for writing.
//
// Nothing in memory changes when the write fails.
func (t *Table) commit(op string, rows []Record) error {
	next := &document{preamble: t.doc.preamble, columns: t.doc.columns, rows: rows}
	data, err := encode(next, t.opts.Latin1)
	if err != nil {
		return &PersistError{Op: op, Path: t.path, Err: err}
	}
	if err := os.WriteFile(t.path, data, 0o644); err != nil { //nolint:gosec // G306: table files are meant to be shared
		return &PersistError{Op: op, Path: t.path, Err: err}
	}
	doc, err := t.read()
	if err != nil {
		// The file holds data; decode it directly so memory matches disk.
		slog.Warn("Failed to reload table after write", "path", t.path, "err", err)
		if doc, err = decode(data, t.opts.HeaderOffset, t.opts.Latin1); err != nil {
			return &PersistError{Op: op, Path: t.path, Err: err}
		}
	}
	t.doc = doc
	slog.Debug("Saved table", "op", op, "path", t.path, "rows", len(doc.rows))
	return nil
}
