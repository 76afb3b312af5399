package csvdb

import (
	"errors"
	"math"
	"regexp"
	"strconv"
	"strings"
)

var numericRe = regexp.MustCompile(`^[+-]?(?:[0-9]+(?:\.[0-9]*)?|\.[0-9]+)(?:[eE][+-]?[0-9]+)?$`)

// IsNumeric reports whether s is a decimal number, optionally signed, with an
// optional fraction and exponent. Surrounding whitespace is allowed.
func IsNumeric(s string) bool {
	return numericRe.MatchString(strings.TrimSpace(s))
}

// NextID returns a fresh identifier for column: one more than the largest
// numeric value found, or 1 when there is none.
//
// Non-numeric values are ignored. Integers are compared exactly; values with a
// fraction or an exponent count by their integer part. An empty column means
// the key column. ErrIDExhausted is returned when the largest value is
// math.MaxInt64 or beyond, since no larger identifier fits in an int64. An
// unusable table yields 1.
func (t *Table) NextID(column string) (int64, error) {
	column = t.column(column)
	t.mu.RLock()
	defer t.mu.RUnlock()
	if t.err != nil {
		return 1, nil
	}
	var maxInt int64
	maxFloat := 0.0
	for _, r := range t.doc.rows {
		v := strings.TrimSpace(r[column])
		if !IsNumeric(v) {
			continue
		}
		if i, err := strconv.ParseInt(v, 10, 64); err == nil {
			maxInt = max(maxInt, i)
			continue
		}
		// Fraction, exponent or an integer out of the int64 range.
		if f, err := strconv.ParseFloat(v, 64); err == nil || errors.Is(err, strconv.ErrRange) {
			maxFloat = max(maxFloat, math.Floor(f))
		}
	}
	// float64(math.MaxInt64) rounds up to 2^63.
	if maxFloat >= float64(math.MaxInt64) || maxInt == math.MaxInt64 {
		return 0, ErrIDExhausted
	}
	return max(maxInt, int64(maxFloat)) + 1, nil
}
