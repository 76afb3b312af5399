package csvdb

import (
	"errors"
	"fmt"
)

var (
	// ErrUnusable is wrapped by the sticky error of a table whose file could
	// not be loaded at construction time.
	ErrUnusable = errors.New("table unusable")
	// ErrFileNotFound is returned when the path is not a readable regular file.
	ErrFileNotFound = errors.New("file not found")
	// ErrFileExists is returned by Create when the path already exists.
	ErrFileExists = errors.New("file already exists")
	// ErrInvalidKey is returned when a key value is empty or not numeric.
	ErrInvalidKey = errors.New("key value must be a non-empty number")
	// ErrEmptyRecord is returned when Update receives a record without values.
	ErrEmptyRecord = errors.New("record is empty")
	// ErrNotFound is returned when no record matches.
	ErrNotFound = errors.New("record not found")
	// ErrNoColumns is returned when inserting into a table without header.
	ErrNoColumns = errors.New("table has no columns")
	// ErrIDExhausted is returned by NextID when no larger identifier fits in
	// an int64.
	ErrIDExhausted = errors.New("no identifier left above the current maximum")
)

// PersistError reports a failure to write the table back to disk.
//
// The in-memory table is left as it was before the operation.
type PersistError struct {
	Op   string
	Path string
	Err  error
}

func (e *PersistError) Error() string {
	return fmt.Sprintf("%s %s: %v", e.Op, e.Path, e.Err)
}

func (e *PersistError) Unwrap() error {
	return e.Err
}
