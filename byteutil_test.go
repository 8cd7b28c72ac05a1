package idxtable

import (
	"errors"
	"reflect"
	"testing"
)

func TestBytesBuilder_Basics(t *testing.T) {
	var bb bytesBuilder
	bb.EnsureExtra(128)
	if cap(bb.Buf) < 128 {
		t.Fatalf("cap(bb.Buf) = %d, wanted >= 128", cap(bb.Buf))
	}

	bb.AppendFixedUint16(0x0102)
	bb.AppendFixedUint32(0x03040506)
	if !reflect.DeepEqual(bb.Buf, []byte{1, 2, 3, 4, 5, 6}) {
		t.Fatalf("bb.Buf = %x, wanted 010203040506", bb.Buf)
	}

	if off := bb.Grow(3); off != 6 || len(bb.Buf) != 9 {
		t.Fatalf("Grow = %d, len %d, wanted 6, 9", off, len(bb.Buf))
	}
}

func TestEnsureCapacity_Grows(t *testing.T) {
	buf := make([]byte, 3, 4)
	copy(buf, []byte{1, 2, 3})
	buf = ensureCapacity(buf, 40)
	if cap(buf) < 40 || len(buf) != 3 || buf[2] != 3 {
		t.Fatalf("ensureCapacity = len %d cap %d %x", len(buf), cap(buf), buf)
	}
}

func TestByteDecoder(t *testing.T) {
	d := makeByteDecoder([]byte{0x00, 0x01, 0xDE, 0xAD, 0xBE, 0xEF, 0xFF})
	v16, err := d.Uint16()
	if err != nil || v16 != 1 {
		t.Fatalf("Uint16 = (%d, %v), wanted (1, nil)", v16, err)
	}
	v32, err := d.Uint32()
	if err != nil || v32 != 0xDEADBEEF {
		t.Fatalf("Uint32 = (%x, %v), wanted (deadbeef, nil)", v32, err)
	}
	if d.Off() != 6 {
		t.Fatalf("Off = %d, wanted 6", d.Off())
	}

	_, err = d.Uint16()
	var de *DataError
	if !errors.As(err, &de) || de.Off != 6 {
		t.Fatalf("Uint16 past end: err = %v, wanted *DataError at 6", err)
	}
	isErr(t, err, ErrCorrupt)
}
