// Package csvdb provides a flat-file record store backed by a single
// semicolon separated text file.
//
// # Overview
//
// [Table] loads the whole file into memory on construction. Queries are linear
// scans over the in-memory rows and return clones. Every mutation rewrites the
// whole file and then reloads it, so the on-disk file stays the source of truth.
//
// # File Format
//
// The first line (after an optional number of preamble lines, see
// [Options.HeaderOffset]) holds the column names. Each following line is one
// [Record]. Fields are separated by [Separator] and lines are written with
// [LineEnding]; any of LF, CRLF or CR is accepted on read.
//
// There is no quoting or escaping. Double quotes are stripped from data cells
// on load, and a value containing the separator or a line break cannot be
// represented: it is written verbatim and splits into extra cells or rows on the
// next load.
//
// # Commit Protocol
//
// Insert, Update and Delete build a candidate row list, write it, reload the
// file, and only then swap the live state. A failed write leaves memory as it
// was.
//
// # Concurrency
//
// Table is safe for use by multiple goroutines of one process. Nothing
// coordinates several processes writing the same file.
package csvdb
