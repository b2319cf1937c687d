package prbuf

// Iterator walks the live records from oldest to newest. It reads the region
// directly and holds no lock; the bytes must not change while it runs.
type Iterator struct {
	v       view
	ring    ring
	cur     uint32
	started bool
	done    bool
}

// Iterator returns an iterator positioned before the first record.
func (b *Buffer) Iterator() *Iterator {
	return &Iterator{v: b.v, ring: b.ring}
}

// Next returns the payload of the next record. ok is false once every record
// has been returned. Padding records are skipped.
//
// The returned slice aliases the region.
func (it *Iterator) Next() (payload []byte, ok bool) {
	if it.done {
		return nil, false
	}
	begin, end := it.v.begin(), it.v.end()
	if !it.started {
		it.started = true
		if begin == end {
			it.done = true
			return nil, false
		}
		it.cur = begin
	}

	for {
		if it.cur == end {
			it.done = true
			return nil, false
		}
		rec := it.v.record(it.cur)
		it.cur = it.ring.advance(it.cur, uint32(rec.footprint()))
		if rec.fake() {
			continue
		}
		return it.v.span(rec.payloadOff(), rec.length()), true
	}
}

// Count returns the number of live records. It walks the whole chain.
func (b *Buffer) Count() int {
	n := 0
	it := b.Iterator()
	for {
		if _, ok := it.Next(); !ok {
			return n
		}
		n++
	}
}
