package idxtable

import (
	"fmt"
	"math"
)

const (
	formatVer1      = 1
	formatVerLatest = formatVer1

	headerSize = 6
	valueSize  = 4
)

// Encode serializes column-major data into the index wire format:
//
//	version:u16 columns:u16 rows:u16 (columns × rows × u32)
//
// All integers are big-endian. Absent values are written as zero.
func Encode(columns [][]Value, rows int) ([]byte, error) {
	if len(columns) > math.MaxUint16 {
		return nil, invalidArgf("%d columns do not fit into the header", len(columns))
	}
	if rows < 0 || rows > math.MaxUint16 {
		return nil, invalidArgf("%d rows do not fit into the header", rows)
	}
	for i, col := range columns {
		if len(col) != rows {
			return nil, fmt.Errorf("%w: column %d has %d values, expected %d", ErrRowCountMismatch, i, len(col), rows)
		}
	}

	var bb bytesBuilder
	bb.EnsureExtra(encodedSize(len(columns), rows))
	bb.AppendFixedUint16(formatVerLatest)
	bb.AppendFixedUint16(uint16(len(columns)))
	bb.AppendFixedUint16(uint16(rows))
	for _, col := range columns {
		for _, v := range col {
			if v == Absent {
				v = 0
			}
			bb.AppendFixedUint32(uint32(v))
		}
	}
	return bb.Buf, nil
}

// Decode parses a buffer produced by Encode into columns arrays.
//
// An empty buffer decodes into empty columns. A buffer written with fewer
// columns than requested gets the missing trailing columns filled with Absent.
func Decode(buf []byte, columns int) ([][]Value, error) {
	if columns < 0 {
		return nil, configErrf("negative column count %d", columns)
	}
	if len(buf) == 0 {
		result := make([][]Value, columns)
		for c := range result {
			result[c] = []Value{}
		}
		return result, nil
	}

	d := makeByteDecoder(buf)
	ver, err := d.Uint16()
	if err != nil {
		return nil, err
	}
	bufCols, err := d.Uint16()
	if err != nil {
		return nil, err
	}
	bufRows, err := d.Uint16()
	if err != nil {
		return nil, err
	}
	if ver != formatVerLatest {
		return nil, dataErrf(buf, 0, ErrVersionMismatch, "version %d", ver)
	}

	nc, nr := int(bufCols), int(bufRows)
	if expected := encodedSize(nc, nr); len(buf) != expected {
		return nil, dataErrf(buf, headerSize, ErrCorrupt, "%d columns × %d rows need %d bytes, got %d", nc, nr, expected, len(buf))
	}
	if nc > columns {
		return nil, dataErrf(buf, 2, ErrInvalidConfig, "buffer has %d columns, type defines %d", nc, columns)
	}

	result := make([][]Value, columns)
	for c := 0; c < nc; c++ {
		col := make([]Value, nr)
		for r := range col {
			v, err := d.Uint32()
			if err != nil {
				return nil, err
			}
			col[r] = Value(v)
		}
		result[c] = col
	}
	for c := nc; c < columns; c++ {
		col := make([]Value, nr)
		for r := range col {
			col[r] = Absent
		}
		result[c] = col
	}
	return result, nil
}

func encodedSize(columns, rows int) int {
	return headerSize + columns*rows*valueSize
}
