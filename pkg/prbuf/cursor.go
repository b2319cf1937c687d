package prbuf

// ring owns all circular arithmetic. Offsets live in [BaseOffset, limit); an
// offset that lands exactly on limit continues at BaseOffset.
type ring struct {
	limit uint32
}

func (r ring) capacity() uint32 { return r.limit - BaseOffset }

func (r ring) wrap(off uint32) uint32 {
	if off == r.limit {
		return BaseOffset
	}
	return off
}

// advance moves off forward by n bytes. The caller guarantees off+n <= limit.
func (r ring) advance(off, n uint32) uint32 {
	return r.wrap(off + n)
}

// used returns the bytes occupied between begin and end, following the wrap.
func (r ring) used(begin, end uint32) uint32 {
	if begin <= end {
		return end - begin
	}
	return (r.limit - begin) + (end - BaseOffset)
}

// inRange reports whether off is a valid aligned cursor position.
func (r ring) inRange(off uint32) bool {
	return off >= BaseOffset && off < r.limit && off%RecordAlign == 0
}
