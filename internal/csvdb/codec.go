// Converts between the on-disk text representation and in-memory rows.

package csvdb

import (
	"fmt"
	"strings"

	"golang.org/x/text/encoding/charmap"
)

const (
	// Separator separates the fields of a line.
	Separator = ";"
	// LineEnding terminates lines on write, regardless of platform.
	LineEnding = "\r\n"
)

// document is the decoded content of a table file.
type document struct {
	// preamble holds the lines before the header, kept verbatim.
	preamble []string
	columns  []string
	rows     []Record
}

// decode parses data into a document.
//
// The first headerOffset lines are kept as preamble. When latin1 is set each
// line is converted from ISO-8859-1 to UTF-8 before being split.
func decode(data []byte, headerOffset int, latin1 bool) (*document, error) {
	lines := splitLines(string(data))
	if latin1 {
		dec := charmap.ISO8859_1.NewDecoder()
		for i, line := range lines {
			s, err := dec.String(line)
			if err != nil {
				return nil, fmt.Errorf("failed to decode line %d: %w", i+1, err)
			}
			lines[i] = s
		}
	}
	doc := &document{rows: []Record{}}
	if headerOffset < 0 {
		headerOffset = 0
	}
	if len(lines) <= headerOffset {
		doc.preamble = lines
		return doc, nil
	}
	doc.preamble = lines[:headerOffset]
	if header := sanitizeHeader(lines[headerOffset]); header != "" {
		doc.columns = strings.Split(header, Separator)
	}
	for _, line := range lines[headerOffset+1:] {
		if strings.TrimSpace(line) == "" {
			continue
		}
		doc.rows = append(doc.rows, decodeRow(doc.columns, line))
	}
	return doc, nil
}

// decodeRow maps the cells of line onto columns.
//
// Missing trailing cells are left absent and cells beyond the header are
// dropped.
func decodeRow(columns []string, line string) Record {
	cells := strings.Split(line, Separator)
	row := make(Record, len(columns))
	for i, cell := range cells {
		if i >= len(columns) {
			break
		}
		row[columns[i]] = cleanCell(cell)
	}
	return row
}

// cleanCell removes every double quote, then surrounding whitespace.
func cleanCell(s string) string {
	return strings.TrimSpace(strings.ReplaceAll(s, `"`, ""))
}

// sanitizeHeader strips every rune that is not allowed in a column name.
//
// Allowed are ASCII letters and digits, German umlauts and sharp s, the
// underscore and the separator itself.
func sanitizeHeader(s string) string {
	var b strings.Builder
	b.Grow(len(s))
	for _, r := range s {
		if isHeaderRune(r) {
			b.WriteRune(r)
		}
	}
	return strings.TrimSpace(b.String())
}

func isHeaderRune(r rune) bool {
	switch {
	case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9':
		return true
	}
	switch r {
	case '_', ';', 'ä', 'ö', 'ü', 'Ä', 'Ö', 'Ü', 'ß':
		return true
	}
	return false
}

// splitLines splits s on LF, CRLF or CR. A terminator at the very end does not
// produce an empty last line.
func splitLines(s string) []string {
	var lines []string
	start := 0
	for i := 0; i < len(s); i++ {
		switch s[i] {
		case '\n':
			lines = append(lines, s[start:i])
			start = i + 1
		case '\r':
			lines = append(lines, s[start:i])
			if i+1 < len(s) && s[i+1] == '\n' {
				i++
			}
			start = i + 1
		}
	}
	if start < len(s) {
		lines = append(lines, s[start:])
	}
	return lines
}

// encode serializes doc.
//
// Rows are written with their values in column order up to the last column
// present in the row, so a short row stays short. An absent value before that
// column is written as an empty cell. Lines are joined with LineEnding and the
// output has no trailing terminator.
func encode(doc *document, latin1 bool) ([]byte, error) {
	lines := make([]string, 0, len(doc.preamble)+1+len(doc.rows))
	lines = append(lines, doc.preamble...)
	lines = append(lines, strings.Join(doc.columns, Separator))
	values := make([]string, len(doc.columns))
	for _, row := range doc.rows {
		if row == nil {
			continue
		}
		n := 0
		for i, col := range doc.columns {
			v, ok := row[col]
			values[i] = v
			if ok {
				n = i + 1
			}
		}
		lines = append(lines, strings.Join(values[:n], Separator))
	}
	out := strings.Join(lines, LineEnding)
	if latin1 {
		s, err := charmap.ISO8859_1.NewEncoder().String(out)
		if err != nil {
			return nil, fmt.Errorf("failed to encode as ISO-8859-1: %w", err)
		}
		out = s
	}
	return []byte(out), nil
}
