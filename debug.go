package idxtable

import (
	"fmt"
	"strings"
)

var (
	dumpSep1 = strings.Repeat("=", 80)
	dumpSep2 = strings.Repeat("-", 60)
)

// Dump renders the table for humans: a header, the stats, then one line per row.
func (t *Table) Dump() string {
	var buf strings.Builder
	prefix := t.Key().String()
	fmt.Fprintln(&buf, dumpSep1)
	var flags string
	if t.dirty {
		flags = " DIRTY"
	}
	fmt.Fprintf(&buf, "%s (%d rows)%s\n", prefix, t.Count(), flags)
	s := t.Stats()
	fmt.Fprintf(&buf, "%s.stats: columns = %d, order_column = %d, encoded_size = %d, updated = %d\n", prefix, s.Columns, t.typ.orderColumn, s.EncodedSize, t.updatedAt)
	if s.Rows > 0 {
		fmt.Fprintln(&buf, dumpSep2)
	}
	dumpRows(&buf, prefix, t.set)
	return buf.String()
}

func dumpRows(w *strings.Builder, prefix string, s *Set) {
	for r := 0; r < s.Count(); r++ {
		fmt.Fprintf(w, "%s.%d = %s\n", prefix, r, s.row(r))
	}
}

func (rec Record) String() string {
	var buf strings.Builder
	buf.WriteByte('(')
	for i, v := range rec {
		if i > 0 {
			buf.WriteByte(',')
		}
		buf.WriteString(v.String())
	}
	buf.WriteByte(')')
	return buf.String()
}
