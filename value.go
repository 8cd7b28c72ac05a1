package idxtable

import (
	"math"
	"strconv"
)

// Value is a single column value. Stored values are unsigned 32-bit integers;
// Absent marks a column that did not exist when the row was written.
type Value uint64

// Absent is the placeholder for columns added to a type after its data was
// persisted. It never compares equal to a stored value, including zero.
const Absent Value = math.MaxUint64

// MaxValue is the largest value that can be stored in an index column.
const MaxValue Value = math.MaxUint32

func (v Value) IsAbsent() bool {
	return v == Absent
}

// Valid reports whether v can be stored.
func (v Value) Valid() bool {
	return v <= MaxValue
}

func (v Value) String() string {
	if v == Absent {
		return "-"
	}
	return strconv.FormatUint(uint64(v), 10)
}

// less orders values for the order column. Absent sorts below every stored value.
func (v Value) less(o Value) bool {
	if v == Absent {
		return o != Absent
	}
	if o == Absent {
		return false
	}
	return v < o
}

// Record is one row of an index, a value per column. Column 0 is the row key.
type Record []Value

// R builds a Record from plain integers.
func R(values ...uint32) Record {
	rec := make(Record, len(values))
	for i, v := range values {
		rec[i] = Value(v)
	}
	return rec
}

// ParseValue parses a decimal column value.
func ParseValue(s string) (Value, error) {
	v, err := strconv.ParseUint(s, 10, 32)
	if err != nil {
		return 0, invalidArgf("value %q is not an unsigned 32-bit integer", s)
	}
	return Value(v), nil
}

// ParseID parses a decimal index key.
func ParseID(s string) (uint64, error) {
	v, err := strconv.ParseUint(s, 10, 64)
	if err != nil {
		return 0, configErrf("index key %q is not numeric", s)
	}
	return v, nil
}
