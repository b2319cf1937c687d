package prbuf

// Buffer is a handle over a region holding a partitioned ring buffer. All
// state lives in the region itself; the handle only caches the ring geometry
// and tracks the reservation made by Prepare.
//
// A Buffer is not safe for concurrent use. Writers must be serialised by the
// caller, and nothing may iterate the region while a writer mutates it.
type Buffer struct {
	v    view
	ring ring

	pending   bool
	evictions uint64
}

func newBuffer(region []byte) *Buffer {
	return &Buffer{
		v:    view{mem: region},
		ring: ring{limit: ringLimit(uint32(len(region)))},
	}
}

// Size returns the region size recorded in the header.
func (b *Buffer) Size() uint32 { return b.v.size() }

// Capacity returns the bytes available to records.
func (b *Buffer) Capacity() uint32 { return b.ring.capacity() }

// Empty reports whether the buffer holds no records.
func (b *Buffer) Empty() bool {
	return b.v.begin() == BaseOffset && b.v.end() == BaseOffset
}

// MaxPayload returns the largest payload Prepare can ever accept, or -1 when
// the region is too small for any record.
//
// A record may not fill the whole capacity: end would wrap onto begin and the
// header could no longer tell a full buffer from an empty one.
func (b *Buffer) MaxPayload() int {
	c := b.ring.capacity()
	if c < 2*RecordAlign {
		return -1
	}
	return int(c - RecordAlign - RecordHeaderBytes)
}

// Stats returns the current cursor state.
func (b *Buffer) Stats() Stats {
	begin, end := b.v.begin(), b.v.end()
	return Stats{
		Size:      b.v.size(),
		Capacity:  b.ring.capacity(),
		Used:      b.ring.used(begin, end),
		Begin:     begin,
		End:       end,
		Evictions: b.evictions,
	}
}
