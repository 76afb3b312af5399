package csvdb

import (
	"errors"
	"testing"
)

func TestIsNumeric(t *testing.T) {
	tests := []struct {
		in   string
		want bool
	}{
		{"1", true},
		{"0", true},
		{"-3", true},
		{"+3", true},
		{"007", true},
		{"1.5", true},
		{".5", true},
		{"5.", true},
		{"1e3", true},
		{"1.5E-2", true},
		{" 42 ", true},
		{"", false},
		{" ", false},
		{"abc", false},
		{"1a", false},
		{"0x1A", false},
		{"1_000", false},
		{"NaN", false},
		{"Inf", false},
		{"1e", false},
		{".", false},
		{"-", false},
	}
	for _, tt := range tests {
		if got := IsNumeric(tt.in); got != tt.want {
			t.Errorf("IsNumeric(%q) = %v, want %v", tt.in, got, tt.want)
		}
	}
}

func TestNextID(t *testing.T) {
	tests := []struct {
		name    string
		content string
		column  string
		want    int64
	}{
		{"empty table", "id;name", "", 1},
		{"empty file", "", "", 1},
		{"non numeric ignored", "id;name\r\n3;a\r\n7;b\r\nx;c", "", 8},
		{"unordered", "id;name\r\n12;a\r\n4;b", "id", 13},
		{"no numeric values", "id;name\r\nx;a\r\n;b", "", 1},
		{"negative ignored", "id;name\r\n-5;a", "", 1},
		{"fraction floored", "id;name\r\n3.7;a", "", 4},
		{"other column", "id;nr\r\n1;100\r\n2;250", "nr", 251},
		{"missing column", "id;name\r\n5;a", "nr", 1},
		{"short rows", "name;id\r\nA;9\r\nB", "", 10},
		{"beyond float precision", "id;name\r\n9007199254740993;a", "", 9007199254740994},
		{"integer above fraction", "id;name\r\n9007199254740993;a\r\n2.5;b", "", 9007199254740994},
		{"exponent", "id;name\r\n1e3;a\r\n7;b", "", 1001},
		{"padded", "id;name\r\n 12 ;a", "", 13},
		{"largest usable", "id;name\r\n9223372036854775806;a", "", 9223372036854775807},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			table, _ := setupTable(t, tt.content)
			got, err := table.NextID(tt.column)
			if err != nil || got != tt.want {
				t.Errorf("NextID(%q) = %d, %v; want %d", tt.column, got, err, tt.want)
			}
		})
	}

	t.Run("insert with allocated id", func(t *testing.T) {
		table, _ := setupTable(t, "id;name\r\n1;Ann")
		id, _ := table.NextID("")
		if id != 2 {
			t.Fatalf("NextID() = %d, want 2", id)
		}
		if err := table.Insert(Record{"id": "2", "name": "Bob"}); err != nil {
			t.Fatal(err)
		}
		if got, _ := table.NextID(""); got != 3 {
			t.Errorf("NextID() = %d, want 3", got)
		}
	})

	t.Run("errors", func(t *testing.T) {
		for _, content := range []string{
			"id;name\r\n9223372036854775807;a",
			"id;name\r\n99999999999999999999;a",
			"id;name\r\n1e30;a",
		} {
			table, _ := setupTable(t, content)
			if id, err := table.NextID(""); !errors.Is(err, ErrIDExhausted) {
				t.Errorf("NextID() on %q = %d, %v; want ErrIDExhausted", content, id, err)
			}
		}
	})
}
