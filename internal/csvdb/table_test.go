package csvdb

import (
	"errors"
	"io/fs"
	"os"
	"path/filepath"
	"reflect"
	"testing"
)

// writeTable writes content to a new file in the test's temp directory.
func writeTable(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "table.csv")
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("WriteFile failed: %v", err)
	}
	return path
}

// setupTable opens a table holding content.
func setupTable(t *testing.T, content string) (*Table, string) {
	t.Helper()
	path := writeTable(t, content)
	table, err := Open(path, nil)
	if err != nil {
		t.Fatalf("Open failed: %v", err)
	}
	return table, path
}

func readFile(t *testing.T, path string) string {
	t.Helper()
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("ReadFile failed: %v", err)
	}
	return string(data)
}

func TestNew(t *testing.T) {
	t.Run("valid", func(t *testing.T) {
		table, path := setupTable(t, "id;name\r\n1;Ann\r\n2;Bob")
		if err := table.Err(); err != nil {
			t.Fatalf("Err() = %v, want nil", err)
		}
		if !table.FileExists() {
			t.Error("FileExists() = false, want true")
		}
		if table.Path() != path {
			t.Errorf("Path() = %q, want %q", table.Path(), path)
		}
		if table.KeyColumn() != DefaultKeyColumn {
			t.Errorf("KeyColumn() = %q, want %q", table.KeyColumn(), DefaultKeyColumn)
		}
		if table.Len() != 2 {
			t.Errorf("Len() = %d, want 2", table.Len())
		}
		if got, want := table.Columns(), []string{"id", "name"}; !reflect.DeepEqual(got, want) {
			t.Errorf("Columns() = %q, want %q", got, want)
		}
	})

	t.Run("empty file", func(t *testing.T) {
		table, _ := setupTable(t, "")
		if table.Len() != 0 || len(table.Columns()) != 0 {
			t.Errorf("Len() = %d, Columns() = %q, want empty", table.Len(), table.Columns())
		}
	})

	t.Run("columns returns copy", func(t *testing.T) {
		table, _ := setupTable(t, "id;name")
		cols := table.Columns()
		cols[0] = "changed"
		if table.Columns()[0] != "id" {
			t.Error("Columns() returned reference instead of copy")
		}
	})

	t.Run("options", func(t *testing.T) {
		path := writeTable(t, "Kundenliste\r\nnr;name\r\n7;M\xfcller")
		table, err := Open(path, &Options{Latin1: true, KeyColumn: "nr", HeaderOffset: 1})
		if err != nil {
			t.Fatalf("Open failed: %v", err)
		}
		row, ok := table.FindByKey("7", "")
		if !ok || row["name"] != "Müller" {
			t.Errorf("FindByKey(7) = %v, %v; want Müller", row, ok)
		}
	})

	t.Run("errors", func(t *testing.T) {
		tests := []struct {
			name string
			path func(t *testing.T) string
		}{
			{"missing file", func(t *testing.T) string { return filepath.Join(t.TempDir(), "missing.csv") }},
			{"directory", func(t *testing.T) string { return t.TempDir() }},
		}
		for _, tt := range tests {
			t.Run(tt.name, func(t *testing.T) {
				table := New(tt.path(t), nil)
				err := table.Err()
				if !errors.Is(err, ErrUnusable) || !errors.Is(err, ErrFileNotFound) {
					t.Fatalf("Err() = %v, want ErrUnusable and ErrFileNotFound", err)
				}
				if table.FileExists() {
					t.Error("FileExists() = true, want false")
				}
				// The error is sticky: every operation fails.
				if rows := table.SelectAll(); len(rows) != 0 {
					t.Errorf("SelectAll() = %v, want empty", rows)
				}
				if _, ok := table.FindByKey("1", ""); ok {
					t.Error("FindByKey() found a row on an unusable table")
				}
				if err := table.Insert(Record{"id": "1"}); !errors.Is(err, ErrUnusable) {
					t.Errorf("Insert() error = %v, want ErrUnusable", err)
				}
				if err := table.Update("1", Record{"id": "1"}, ""); !errors.Is(err, ErrUnusable) {
					t.Errorf("Update() error = %v, want ErrUnusable", err)
				}
				if _, err := table.Delete("1", "", true); !errors.Is(err, ErrUnusable) {
					t.Errorf("Delete() error = %v, want ErrUnusable", err)
				}
				if err := table.Reload(); !errors.Is(err, ErrUnusable) {
					t.Errorf("Reload() error = %v, want ErrUnusable", err)
				}
				if id, err := table.NextID(""); id != 1 || err != nil {
					t.Errorf("NextID() = %d, %v; want 1", id, err)
				}
			})
		}

		t.Run("open missing", func(t *testing.T) {
			table, err := Open(filepath.Join(t.TempDir(), "missing.csv"), nil)
			if table != nil || !errors.Is(err, fs.ErrNotExist) {
				t.Errorf("Open() = %v, %v; want nil, fs.ErrNotExist", table, err)
			}
		})
	})
}

func TestCreate(t *testing.T) {
	t.Run("valid", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "new.csv")
		table, err := Create(path, []string{"id", "name"}, nil)
		if err != nil {
			t.Fatalf("Create failed: %v", err)
		}
		if got := readFile(t, path); got != "id;name" {
			t.Errorf("file = %q, want %q", got, "id;name")
		}
		if table.Len() != 0 {
			t.Errorf("Len() = %d, want 0", table.Len())
		}
		if err := table.Insert(Record{"id": "1", "name": "Ann"}); err != nil {
			t.Fatalf("Insert failed: %v", err)
		}
		if got := readFile(t, path); got != "id;name\r\n1;Ann" {
			t.Errorf("file = %q, want %q", got, "id;name\r\n1;Ann")
		}
	})

	t.Run("errors", func(t *testing.T) {
		path := writeTable(t, "id")
		if _, err := Create(path, []string{"id"}, nil); !errors.Is(err, ErrFileExists) {
			t.Errorf("Create() error = %v, want ErrFileExists", err)
		}
		if _, err := Create(filepath.Join(t.TempDir(), "x.csv"), nil, nil); !errors.Is(err, ErrNoColumns) {
			t.Errorf("Create() error = %v, want ErrNoColumns", err)
		}
	})
}

func TestReload(t *testing.T) {
	table, path := setupTable(t, "id;name\r\n1;Ann")
	if err := os.WriteFile(path, []byte("id;name\r\n1;Ann\r\n2;Bob"), 0o644); err != nil {
		t.Fatal(err)
	}
	if err := table.Reload(); err != nil {
		t.Fatalf("Reload failed: %v", err)
	}
	if table.Len() != 2 {
		t.Errorf("Len() = %d, want 2", table.Len())
	}

	// A failed reload keeps the current rows.
	if err := os.Remove(path); err != nil {
		t.Fatal(err)
	}
	if err := table.Reload(); err == nil {
		t.Error("Reload() error = nil, want error")
	}
	if table.Len() != 2 {
		t.Errorf("Len() = %d after failed reload, want 2", table.Len())
	}
}

func TestSaveRoundTrip(t *testing.T) {
	const content = "id;name;city\r\n1;\"Ann\";Berlin\r\n2;Bob\r\n3;Zoë;Köln"
	table, path := setupTable(t, content)
	before := table.SelectAll()

	// Deleting an unknown id rewrites the file without changing any row.
	if n, err := table.Delete("99", "", false); err != nil || n != 0 {
		t.Fatalf("Delete() = %d, %v; want 0, nil", n, err)
	}
	if got, want := readFile(t, path), "id;name;city\r\n1;Ann;Berlin\r\n2;Bob\r\n3;Zoë;Köln"; got != want {
		t.Errorf("file = %q, want %q", got, want)
	}
	reopened, err := Open(path, nil)
	if err != nil {
		t.Fatal(err)
	}
	if after := reopened.SelectAll(); !reflect.DeepEqual(before, after) {
		t.Errorf("rows = %v, want %v", after, before)
	}

	t.Run("short rows", func(t *testing.T) {
		table, path := setupTable(t, "id;name\r\n1;a\r\n2")
		before := table.SelectAll()
		if n, err := table.Delete("99", "", true); err != nil || n != 0 {
			t.Fatalf("Delete() = %d, %v; want 0, nil", n, err)
		}
		if got, want := readFile(t, path), "id;name\r\n1;a\r\n2"; got != want {
			t.Errorf("file = %q, want %q", got, want)
		}
		if after := table.SelectAll(); !reflect.DeepEqual(before, after) {
			t.Errorf("rows = %v, want %v", after, before)
		}
	})
}

func TestHeaderOffsetPreserved(t *testing.T) {
	path := writeTable(t, "generated by export\r\nid;name\r\n1;Ann")
	table, err := Open(path, &Options{HeaderOffset: 1})
	if err != nil {
		t.Fatal(err)
	}
	if err := table.Insert(Record{"id": "2", "name": "Bob"}); err != nil {
		t.Fatalf("Insert failed: %v", err)
	}
	if got, want := readFile(t, path), "generated by export\r\nid;name\r\n1;Ann\r\n2;Bob"; got != want {
		t.Errorf("file = %q, want %q", got, want)
	}
}

func TestRecordClone(t *testing.T) {
	var nilRecord Record
	if nilRecord.Clone() != nil {
		t.Error("nil.Clone() != nil")
	}
	r := Record{"id": "1"}
	c := r.Clone()
	c["id"] = "2"
	if r["id"] != "1" {
		t.Error("Clone() shares storage with the original")
	}
}
