// Package prbuf implements a partitioned ring buffer: a fixed capacity,
// append-only log of size-prefixed records that lives entirely inside one
// caller supplied byte region.
//
// Everything needed to read the log back, cursors included, is stored in the
// region itself. A process can append diagnostics into a shared mapping or a
// memory mapped file, die abruptly, and a separate tool can later Open the same
// bytes and iterate every record that was committed.
//
// # Layout (version 1)
//
// All integers are little-endian uint32.
//
//	+--------------------------+ 0
//	| version | size | begin | end |   16 byte header
//	+--------------------------+ 16 (BaseOffset)
//	| len | payload ... | pad  |   record, footprint = alignUp(4+len, 4)
//	| len | payload ... | pad  |
//	| ...                      |
//	| len|FAKE | unused ...    |   padding record closing a pass
//	+--------------------------+ limit = alignDown(size, 4)
//	| never used               |
//	+--------------------------+ size
//
// begin is the offset of the oldest record and end is one past the newest
// committed record. When end is below begin the log has wrapped: live records
// run from begin to the end of the pass, then from BaseOffset up to end. An
// empty buffer has begin == end == BaseOffset and that is the only state where
// the two are equal.
//
// The top bit of a length word marks a padding ("fake") record. One is written
// when a record does not fit between end and the end of the pass; it covers the
// remaining tail exactly and readers step over it.
//
// # Writing
//
//	buf := prbuf.Create(region)
//	p := buf.Prepare(len(msg))
//	if p != nil {
//		copy(p, msg)
//		buf.Commit()
//	}
//
// Prepare never fails for lack of free space: it evicts the oldest records
// until the new one fits. It returns nil only when the record is too large for
// the region (see Buffer.MaxPayload).
//
// # Reading
//
//	buf, err := prbuf.Open(region)
//	if err != nil {
//		// the region is corrupt; discard it
//	}
//	it := buf.Iterator()
//	for p, ok := it.Next(); ok; p, ok = it.Next() {
//		...
//	}
//
// Open validates the header and walks the whole record chain before returning
// a handle, so iteration over an opened buffer never leaves the region.
//
// # Concurrency
//
// Nothing here is synchronised. There must be at most one writer, and readers
// must only look at the region while no writer is active, or at a copy of it.
package prbuf
