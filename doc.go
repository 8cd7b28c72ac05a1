/*
Package idxtable implements ordered columnar indexes stored as single blobs in
a key-value backend.

An index type defines a fixed number of unsigned 32-bit integer columns.
Column 0 is the row key, unique within an index; one column (the order
column) keeps rows sorted in descending order. For every index key (say, a
user ID) the whole set of rows is read into memory, mutated, and written
back in one piece.

We implement:

1. Set, the in-memory rows of one index, with ordered Append, RemoveByColumn
and Clean.

2. A compact binary encoding of a Set (Encode, Decode).

3. Table, which binds a Set to a backend key and handles Load, Commit and
Destroy.

4. Registry, a bounded process-local cache of loaded tables.

Backends live in package store and its subpackages.

# Technical Details

**Ordering.** Append inserts a record before the first row whose order value
is strictly smaller, so records with equal order values keep insertion
order. Appending a key that is already present is a no-op.

**Concurrency.** A blob is always read and written as a whole. There is no
locking and no version check, so two processes committing the same key
race, and the last write wins. Callers must ensure a single writer per key.

## Binary encoding

Header, then column blocks:

1. Format version (u16, always 1).
2. Column count (u16).
3. Row count (u16).
4. For each column: row count × value (u32).

All integers are big-endian. The total length must be exactly
6 + columns × rows × 4.

**Schema growth.** Columns can be appended to an index type. Decoding data
written with fewer columns fills the new ones with Absent. Absent values are
written as zero.
*/
package idxtable
