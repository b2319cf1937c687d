package prbuf

import (
	"encoding/binary"
	"fmt"
)

func readU32LE(b []byte) uint32     { return binary.LittleEndian.Uint32(b) }
func writeU32LE(b []byte, v uint32) { binary.LittleEndian.PutUint32(b, v) }

// Footprint returns the number of region bytes a record with an n byte payload
// occupies: the length word plus payload, rounded up to RecordAlign.
//
// The result is computed in 64 bits so an absurd n cannot wrap around.
func Footprint(n uint64) uint64 {
	return alignUp(n+RecordHeaderBytes, RecordAlign)
}

func alignUp(v uint64, align uint64) uint64 {
	return (v + align - 1) &^ (align - 1)
}

// ringLimit is the physical end of a pass: the region size rounded down to
// RecordAlign. Bytes past it are never used.
func ringLimit(size uint32) uint32 {
	return size &^ (RecordAlign - 1)
}

// view is a bounds checked window over a region. Every header or record access
// goes through it; an out of range offset is an invariant violation and panics
// with a descriptive message instead of a bare index error.
type view struct {
	mem []byte
}

func (v view) u32(off uint32) uint32 {
	v.check(off, 4)
	return readU32LE(v.mem[off : off+4])
}

func (v view) putU32(off uint32, val uint32) {
	v.check(off, 4)
	writeU32LE(v.mem[off:off+4], val)
}

func (v view) span(off, n uint32) []byte {
	v.check(off, n)
	return v.mem[off : off+n : off+n]
}

func (v view) check(off, n uint32) {
	if uint64(off)+uint64(n) > uint64(len(v.mem)) {
		panic(fmt.Sprintf("prbuf: access [%d,%d) outside region of %d bytes", off, uint64(off)+uint64(n), len(v.mem)))
	}
}

func (v view) version() uint32 { return v.u32(offVersion) }
func (v view) size() uint32    { return v.u32(offSize) }
func (v view) begin() uint32   { return v.u32(offBegin) }
func (v view) end() uint32     { return v.u32(offEnd) }

func (v view) setBegin(off uint32) { v.putU32(offBegin, off) }
func (v view) setEnd(off uint32)   { v.putU32(offEnd, off) }

// record decodes the length word at off.
func (v view) record(off uint32) record {
	return record{off: off, word: v.u32(off)}
}

type record struct {
	off  uint32
	word uint32
}

func (r record) fake() bool     { return r.word&FakeFlag != 0 }
func (r record) length() uint32 { return r.word & SizeMask }

// footprint of the record. Flags are ignored.
func (r record) footprint() uint64 { return Footprint(uint64(r.length())) }

func (r record) payloadOff() uint32 { return r.off + RecordHeaderBytes }
