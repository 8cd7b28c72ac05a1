package idxtable

import (
	"fmt"
	"slices"

	"github.com/RoaringBitmap/roaring/v2"
)

// Set holds the rows of a single index key, column by column.
//
// Rows are kept in non-increasing order of the type's order column, and the
// values of column 0 are unique. All columns always have the same length; the
// methods of Set are the only way to modify them.
//
// A Set is not safe for concurrent mutation.
type Set struct {
	typ  *Type
	cols [][]Value
}

func NewSet(typ *Type) *Set {
	cols := make([][]Value, typ.columns)
	for c := range cols {
		cols[c] = []Value{}
	}
	return &Set{typ, cols}
}

// DecodeSet decodes an encoded buffer into a Set of the given type.
func DecodeSet(typ *Type, buf []byte) (*Set, error) {
	cols, err := Decode(buf, typ.columns)
	if err != nil {
		return nil, err
	}
	return newSetFromColumns(typ, cols)
}

func newSetFromColumns(typ *Type, cols [][]Value) (*Set, error) {
	if len(cols) != typ.columns {
		return nil, configErrf("%s: got %d columns, expected %d", typ.name, len(cols), typ.columns)
	}
	n := len(cols[0])
	for c, col := range cols {
		if len(col) != n {
			return nil, fmt.Errorf("%w: column %d has %d values, column 0 has %d", ErrRowCountMismatch, c, len(col), n)
		}
	}
	return &Set{typ, cols}, nil
}

// Encode returns the wire representation of the set.
func (s *Set) Encode() ([]byte, error) {
	return Encode(s.cols, s.Count())
}

func (s *Set) Type() *Type {
	return s.typ
}

func (s *Set) Count() int {
	return len(s.cols[0])
}

// Append inserts rec keeping the set ordered by the order column, descending.
//
// If a row with the same key (column 0) already exists, Append does nothing
// and returns false; existing rows are never updated. A record whose order
// value ties with existing rows goes after them.
func (s *Set) Append(rec Record) (bool, error) {
	if err := s.validate(rec); err != nil {
		return false, err
	}
	if s.IndexOf(rec[0]) >= 0 {
		return false, nil
	}

	oc := s.typ.orderColumn
	order := s.cols[oc]
	n := len(order)
	pos := n
	if n > 0 && !rec[oc].less(order[n-1]) {
		for i, v := range order {
			if v.less(rec[oc]) {
				pos = i
				break
			}
		}
	}
	s.insertAt(pos, rec)
	return true, nil
}

func (s *Set) validate(rec Record) error {
	if len(rec) != s.typ.columns {
		return invalidArgf("%s: record has %d values, expected %d", s.typ.name, len(rec), s.typ.columns)
	}
	for c, v := range rec {
		if v == Absent {
			return invalidArgf("%s: column %d has no value in %v", s.typ.name, c, rec)
		}
		if !v.Valid() {
			return invalidArgf("%s: column %d value %d exceeds %d", s.typ.name, c, uint64(v), uint64(MaxValue))
		}
	}
	return nil
}

func (s *Set) insertAt(pos int, rec Record) {
	for c := range s.cols {
		s.cols[c] = slices.Insert(s.cols[c], pos, rec[c])
	}
}

// RemoveByColumn deletes rows whose value in the given column equals value,
// at most limit of them (limit <= 0 removes all). Returns the number of
// removed rows.
func (s *Set) RemoveByColumn(column int, value Value, limit int) (int, error) {
	if err := s.checkColumn(column); err != nil {
		return 0, err
	}
	if !value.Valid() {
		return 0, invalidArgf("%s: cannot remove by non-integer value %v", s.typ.name, value)
	}
	return s.removeWhere(column, func(v Value) bool { return v == value }, limit), nil
}

// RemoveByColumnIn deletes rows whose value in the given column is contained
// in values, at most limit of them (limit <= 0 removes all).
func (s *Set) RemoveByColumnIn(column int, values *roaring.Bitmap, limit int) (int, error) {
	if err := s.checkColumn(column); err != nil {
		return 0, err
	}
	if values == nil || values.IsEmpty() {
		return 0, nil
	}
	return s.removeWhere(column, func(v Value) bool {
		return v.Valid() && values.Contains(uint32(v))
	}, limit), nil
}

// removeWhere compacts all columns in a single pass, keeping row order.
func (s *Set) removeWhere(column int, match func(Value) bool, limit int) int {
	src := s.cols[column]
	n := len(src)
	var removed, w int
	for r := 0; r < n; r++ {
		if (limit <= 0 || removed < limit) && match(src[r]) {
			removed++
			continue
		}
		if w != r {
			for c := range s.cols {
				s.cols[c][w] = s.cols[c][r]
			}
		}
		w++
	}
	if removed > 0 {
		for c := range s.cols {
			s.cols[c] = s.cols[c][:w]
		}
	}
	return removed
}

// Clean drops all rows.
func (s *Set) Clean() {
	for c := range s.cols {
		s.cols[c] = s.cols[c][:0]
	}
}

// Columns returns a copy of the full column-major data.
func (s *Set) Columns() [][]Value {
	result := make([][]Value, len(s.cols))
	for c, col := range s.cols {
		result[c] = slices.Clone(col)
	}
	return result
}

// Slice returns rows [offset, offset+length) as records, in index order.
// A negative offset counts from the end; a negative length means "up to the end".
func (s *Set) Slice(offset, length int) []Record {
	start, end := sliceBounds(s.Count(), offset, length)
	rows := make([]Record, 0, end-start)
	for r := start; r < end; r++ {
		rows = append(rows, s.row(r))
	}
	return rows
}

// Rows returns all rows as records.
func (s *Set) Rows() []Record {
	return s.Slice(0, -1)
}

// Row returns a copy of the i-th row.
func (s *Set) Row(i int) Record {
	if i < 0 || i >= s.Count() {
		panic(fmt.Errorf("%s: row %d out of range [0, %d)", s.typ.name, i, s.Count()))
	}
	return s.row(i)
}

func (s *Set) row(i int) Record {
	rec := make(Record, len(s.cols))
	for c, col := range s.cols {
		rec[c] = col[i]
	}
	return rec
}

// Column returns a copy of a slice of one column, see Slice for the meaning
// of offset and length.
func (s *Set) Column(column, offset, length int) ([]Value, error) {
	if err := s.checkColumn(column); err != nil {
		return nil, err
	}
	start, end := sliceBounds(s.Count(), offset, length)
	return slices.Clone(s.cols[column][start:end]), nil
}

// ColumnBitmap returns the distinct stored values of a column.
func (s *Set) ColumnBitmap(column int) (*roaring.Bitmap, error) {
	if err := s.checkColumn(column); err != nil {
		return nil, err
	}
	bm := roaring.New()
	for _, v := range s.cols[column] {
		if v.Valid() {
			bm.Add(uint32(v))
		}
	}
	return bm, nil
}

// IndexOf returns the position of the row with the given key, or -1.
func (s *Set) IndexOf(key Value) int {
	return slices.Index(s.cols[0], key)
}

func (s *Set) Contains(key Value) bool {
	return s.IndexOf(key) >= 0
}

func (s *Set) checkColumn(column int) error {
	if column < 0 || column >= s.typ.columns {
		return outOfRangef("%s: column %d, have %d", s.typ.name, column, s.typ.columns)
	}
	return nil
}

func sliceBounds(n, offset, length int) (start, end int) {
	if offset < 0 {
		offset += n
		if offset < 0 {
			offset = 0
		}
	}
	if offset > n {
		offset = n
	}
	end = n
	if length >= 0 && length < n-offset {
		end = offset + length
	}
	return offset, end
}
