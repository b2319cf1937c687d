package prbuf

import "fmt"

// Prepare reserves room for an n byte payload and returns the span to fill,
// or nil if a record of that size can never fit in this region.
//
// Room is made by dropping the oldest records. When the record does not fit
// between the write position and the end of the pass, the rest of the pass is
// covered by a padding record and writing continues at the start of the region.
//
// The reservation becomes visible only after Commit. Prepare is not reentrant:
// calling it twice without a Commit in between may return the same span.
func (b *Buffer) Prepare(n int) []byte {
	if n < 0 {
		panic(fmt.Sprintf("prbuf: negative payload size %d", n))
	}
	fp64 := Footprint(uint64(n))
	if fp64 >= uint64(b.ring.capacity()) {
		return nil
	}
	fp := uint32(fp64)
	limit := b.ring.limit

	for {
		begin, end := b.v.begin(), b.v.end()

		switch {
		case begin == end:
			// Empty. Every empty state is normalised to BaseOffset.
			return b.reserve(uint32(n))

		case begin < end:
			// Live records occupy [begin, end); free space is [end, limit)
			// and [BaseOffset, begin).
			next := uint64(end) + fp64
			if next < uint64(limit) {
				return b.reserve(uint32(n))
			}
			if next == uint64(limit) && begin != BaseOffset {
				return b.reserve(uint32(n))
			}
			if begin == BaseOffset {
				// Either the new end would wrap onto begin, or we are about
				// to wrap and BaseOffset is still occupied.
				b.dropOldest()
				continue
			}
			b.padTail(end)
			b.v.setEnd(BaseOffset)

		default:
			// Wrapped: free space is [end, begin).
			if end+fp < begin {
				return b.reserve(uint32(n))
			}
			b.dropOldest()
		}
	}
}

// Commit publishes the record reserved by the last Prepare. Calling it without
// a pending reservation is a programming error and panics.
func (b *Buffer) Commit() {
	if !b.pending {
		panic("prbuf: commit without prepare")
	}
	end := b.v.end()
	rec := b.v.record(end)
	b.v.setEnd(b.ring.advance(end, uint32(rec.footprint())))
	b.pending = false
}

// reserve stamps the length word at end and returns the payload span.
func (b *Buffer) reserve(n uint32) []byte {
	off := b.v.end()
	b.v.putU32(off, n)
	b.pending = true
	return b.v.span(off+RecordHeaderBytes, n)
}

// dropOldest evicts the record at begin. Once the last record is gone both
// cursors go back to BaseOffset.
func (b *Buffer) dropOldest() {
	begin, end := b.v.begin(), b.v.end()
	if begin == end {
		panic("prbuf: eviction from an empty buffer")
	}
	rec := b.v.record(begin)
	fp := rec.footprint()
	if uint64(begin)+fp > uint64(b.ring.limit) {
		panic(fmt.Sprintf("prbuf: record at %d runs past the end of the pass", begin))
	}
	next := b.ring.advance(begin, uint32(fp))
	if !rec.fake() {
		b.evictions++
	}
	if next == end {
		b.v.setBegin(BaseOffset)
		b.v.setEnd(BaseOffset)
		return
	}
	b.v.setBegin(next)
}

// padTail covers [end, limit) with a padding record so readers can step over
// the unused tail of the pass.
func (b *Buffer) padTail(end uint32) {
	room := b.ring.limit - end
	if room == 0 {
		return
	}
	b.v.putU32(end, (room-RecordHeaderBytes)|FakeFlag)
}
