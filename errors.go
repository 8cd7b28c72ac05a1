package idxtable

import (
	"errors"
	"fmt"
	"strings"
)

var (
	// ErrInvalidConfig is returned for index type misconfiguration: bad column
	// counts, an order column out of range, a non-numeric index key.
	ErrInvalidConfig = errors.New("invalid index configuration")

	// ErrInvalidArgument is returned for malformed mutation input.
	ErrInvalidArgument = errors.New("invalid argument")

	// ErrOutOfRange is returned when a column index is not within the type's columns.
	ErrOutOfRange = errors.New("column out of range")

	// ErrRowCountMismatch is returned by Encode when a column's length differs
	// from the declared row count.
	ErrRowCountMismatch = errors.New("column length does not match row count")

	// ErrVersionMismatch is returned when an encoded buffer has an unknown
	// format version. It is never recovered from.
	ErrVersionMismatch = errors.New("unsupported index format version")

	// ErrCorrupt is returned for truncated or otherwise malformed buffers.
	ErrCorrupt = errors.New("truncated or corrupt index data")
)

type DataError struct {
	Data []byte
	Off  int
	Err  error
	Msg  string
}

func dataErrf(data []byte, off int, err error, format string, args ...any) error {
	return &DataError{data, off, err, fmt.Sprintf(format, args...)}
}

func (e *DataError) Unwrap() error {
	return e.Err
}

func (e *DataError) Error() string {
	const prefixLen = 64
	const suffixLen = 32
	n := len(e.Data)
	if n <= prefixLen+suffixLen {
		if e.Err != nil {
			return fmt.Sprintf("%s: %v: (%d) %x", e.Msg, e.Err, n, e.Data)
		} else {
			return fmt.Sprintf("%s: (%d) %x", e.Msg, n, e.Data)
		}
	} else {
		p, s := e.Data[:prefixLen], e.Data[n-suffixLen:]
		if e.Err != nil {
			return fmt.Sprintf("%s: %v: (%d) %x...%x", e.Msg, e.Err, n, p, s)
		} else {
			return fmt.Sprintf("%s: (%d) %x...%x", e.Msg, n, p, s)
		}
	}
}

// IndexError describes a failure of an orchestrated operation on one index key.
type IndexError struct {
	Type *Type
	ID   uint64
	Op   string
	Err  error
}

func indexErr(typ *Type, id uint64, op string, err error) error {
	return &IndexError{typ, id, op, err}
}

func (e *IndexError) Unwrap() error {
	return e.Err
}

func (e *IndexError) Error() string {
	var buf strings.Builder
	if e.Type != nil {
		buf.WriteString(e.Type.Name())
	} else {
		buf.WriteString("<untyped>")
	}
	fmt.Fprintf(&buf, "/%d", e.ID)
	if e.Op != "" {
		buf.WriteString(": ")
		buf.WriteString(e.Op)
	}
	if e.Err != nil {
		buf.WriteString(": ")
		buf.WriteString(e.Err.Error())
	}
	return buf.String()
}

func invalidArgf(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrInvalidArgument, fmt.Sprintf(format, args...))
}

func configErrf(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrInvalidConfig, fmt.Sprintf(format, args...))
}

func outOfRangef(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrOutOfRange, fmt.Sprintf(format, args...))
}
