package idxtable

import (
	"errors"
	"math"
	"testing"
)

func TestEncode_Layout(t *testing.T) {
	buf, err := Encode([][]Value{{3, 9}, {20, 15}}, 2)
	noErr(t, err)
	deepEqual(t, buf, []byte{
		0, 1, 0, 2, 0, 2,
		0, 0, 0, 3, 0, 0, 0, 9,
		0, 0, 0, 20, 0, 0, 0, 15,
	})
}

func TestEncode_AbsentAsZero(t *testing.T) {
	buf, err := Encode([][]Value{{7}, {Absent}}, 1)
	noErr(t, err)
	deepEqual(t, buf[headerSize:], []byte{0, 0, 0, 7, 0, 0, 0, 0})
}

func TestEncode_Errors(t *testing.T) {
	_, err := Encode([][]Value{{1, 2}, {3}}, 2)
	isErr(t, err, ErrRowCountMismatch)

	_, err = Encode([][]Value{{}, {}}, math.MaxUint16+1)
	isErr(t, err, ErrInvalidArgument)

	_, err = Encode(make([][]Value, math.MaxUint16+1), 0)
	isErr(t, err, ErrInvalidArgument)
}

func TestCodec_RoundTrip(t *testing.T) {
	tests := []struct {
		name string
		cols [][]Value
		rows int
	}{
		{"empty", [][]Value{{}, {}}, 0},
		{"single", [][]Value{{1}, {2}}, 1},
		{"three columns", [][]Value{{5, 9, 1}, {30, 20, 10}, {0, MaxValue, 7}}, 3},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			buf, err := Encode(tt.cols, tt.rows)
			noErr(t, err)
			if len(buf) != encodedSize(len(tt.cols), tt.rows) {
				t.Fatalf("len(buf) = %d, wanted %d", len(buf), encodedSize(len(tt.cols), tt.rows))
			}
			cols, err := Decode(buf, len(tt.cols))
			noErr(t, err)
			deepEqual(t, cols, tt.cols)
		})
	}
}

func TestDecode_EmptyBuffer(t *testing.T) {
	cols, err := Decode(nil, 3)
	noErr(t, err)
	deepEqual(t, cols, [][]Value{{}, {}, {}})
}

func TestDecode_VersionMismatch(t *testing.T) {
	buf := must(Encode([][]Value{{1}, {2}}, 1))
	buf[1] = 2
	_, err := Decode(buf, 2)
	isErr(t, err, ErrVersionMismatch)
	var de *DataError
	if !errors.As(err, &de) {
		t.Fatalf("err = %T, wanted *DataError", err)
	}
}

func TestDecode_LengthMismatch(t *testing.T) {
	buf := must(Encode([][]Value{{1, 2}, {3, 4}}, 2))

	_, err := Decode(buf[:len(buf)-1], 2)
	isErr(t, err, ErrCorrupt)

	_, err = Decode(append(buf, 0), 2)
	isErr(t, err, ErrCorrupt)

	_, err = Decode(buf[:3], 2)
	isErr(t, err, ErrCorrupt)
}

func TestDecode_SchemaGrowth(t *testing.T) {
	buf := must(Encode([][]Value{{5, 3}, {10, 20}}, 2))
	cols, err := Decode(buf, 4)
	noErr(t, err)
	deepEqual(t, cols, [][]Value{{5, 3}, {10, 20}, {Absent, Absent}, {Absent, Absent}})
}

func TestDecode_MoreColumnsThanConfigured(t *testing.T) {
	buf := must(Encode([][]Value{{1}, {2}, {3}}, 1))
	_, err := Decode(buf, 2)
	isErr(t, err, ErrInvalidConfig)
}
