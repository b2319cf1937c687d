package prbuf

// Open reconstructs a buffer from bytes written by an earlier Create (possibly
// by another process that has since died). Nothing in the region is trusted
// until the header and the whole record chain have been validated.
//
// Any inconsistency is reported as a *CorruptionError and the region must be
// discarded; no attempt is made to salvage a valid prefix.
func Open(region []byte) (*Buffer, error) {
	if len(region) <= HeaderBytesV1 || len(region) > MaxRegionBytes {
		return nil, corrupt(ErrBadRegionSize, 0, "%d bytes", len(region))
	}

	b := newBuffer(region)
	if v := b.v.version(); v != VersionV1 {
		return nil, corrupt(ErrBadVersion, offVersion, "got %d, want %d", v, VersionV1)
	}
	if s := b.v.size(); s != uint32(len(region)) {
		return nil, corrupt(ErrSizeMismatch, offSize, "header says %d, region has %d", s, len(region))
	}

	begin, end := b.v.begin(), b.v.end()
	if begin == BaseOffset && end == BaseOffset {
		return b, nil
	}
	if !b.ring.inRange(begin) {
		return nil, corrupt(ErrBadCursor, offBegin, "begin %d outside [%d,%d)", begin, BaseOffset, b.ring.limit)
	}
	if !b.ring.inRange(end) {
		return nil, corrupt(ErrBadCursor, offEnd, "end %d outside [%d,%d)", end, BaseOffset, b.ring.limit)
	}
	if begin == end {
		return nil, corrupt(ErrBadCursor, offBegin, "begin and end both %d in a non-empty buffer", begin)
	}

	if err := b.validateChain(begin, end); err != nil {
		return nil, err
	}
	return b, nil
}

// validateChain walks every record from begin to end. When the buffer is
// wrapped (begin > end) the walk first covers [begin, limit), which must be
// tiled exactly by records with at most one fake record closing it, then
// [BaseOffset, end), which must hold only real records ending exactly on end.
func (b *Buffer) validateChain(begin, end uint32) error {
	cur := begin
	if begin > end {
		for {
			rec := b.v.record(cur)
			fp := rec.footprint()
			room := uint64(b.ring.limit - cur)
			if fp > room {
				return corrupt(ErrBadRecord, cur, "footprint %d exceeds the %d bytes left in the pass", fp, room)
			}
			if rec.fake() && fp != room {
				return corrupt(ErrBadRecord, cur, "padding of %d bytes does not reach the end of the pass", fp)
			}
			if fp == room {
				cur = BaseOffset
				break
			}
			cur += uint32(fp)
		}
	}

	for cur != end {
		rec := b.v.record(cur)
		if rec.fake() {
			return corrupt(ErrBadRecord, cur, "padding record inside the live range")
		}
		fp := rec.footprint()
		if fp > uint64(end-cur) {
			return corrupt(ErrBadRecord, cur, "footprint %d overruns end %d", fp, end)
		}
		cur += uint32(fp)
	}
	return nil
}
