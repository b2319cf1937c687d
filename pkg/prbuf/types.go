package prbuf

import (
	"errors"
	"fmt"
)

const (
	// VersionV1 tags the only layout this package reads or writes. Bump it
	// whenever the header or record format changes.
	VersionV1 uint32 = 1

	// HeaderBytesV1 is the fixed header size: version, size, begin, end, each a
	// little-endian uint32. It is also the first offset usable for records.
	HeaderBytesV1 = 16

	// BaseOffset is the offset of the first record slot.
	BaseOffset uint32 = HeaderBytesV1

	// RecordHeaderBytes is the width of the length word in front of every payload.
	RecordHeaderBytes = 4

	// RecordAlign is the alignment of every record, and so of every payload.
	RecordAlign = 4

	// FakeFlag marks a padding record in the length word.
	FakeFlag uint32 = 1 << 31

	// SizeMask extracts the payload length from a length word.
	SizeMask = FakeFlag - 1

	// MaxRegionBytes is the largest region an offset can address without
	// touching the fake flag bit.
	MaxRegionBytes = int(SizeMask)
)

// Header field offsets.
const (
	offVersion = 0
	offSize    = 4
	offBegin   = 8
	offEnd     = 12
)

var (
	// ErrCorrupt is matched by every error Open reports.
	ErrCorrupt = errors.New("prbuf: region corrupt")

	ErrBadRegionSize = errors.New("prbuf: region size invalid")
	ErrBadVersion    = errors.New("prbuf: header version unsupported")
	ErrSizeMismatch  = errors.New("prbuf: header size does not match region")
	ErrBadCursor     = errors.New("prbuf: header cursor invalid")
	ErrBadRecord     = errors.New("prbuf: record chain inconsistent")
)

// CorruptionError describes why Open refused a region. The region must be
// discarded as a whole; nothing in it should be trusted.
type CorruptionError struct {
	Reason error  // one of the ErrBad* sentinels
	Offset uint32 // offending offset, 0 for header level failures
	Detail string
}

func (e *CorruptionError) Error() string {
	if e.Detail == "" {
		return fmt.Sprintf("%v (offset %d)", e.Reason, e.Offset)
	}
	return fmt.Sprintf("%v: %s (offset %d)", e.Reason, e.Detail, e.Offset)
}

func (e *CorruptionError) Unwrap() error { return e.Reason }

// Is makes errors.Is(err, ErrCorrupt) hold for any CorruptionError.
func (e *CorruptionError) Is(target error) bool { return target == ErrCorrupt }

func corrupt(reason error, offset uint32, format string, args ...any) *CorruptionError {
	return &CorruptionError{Reason: reason, Offset: offset, Detail: fmt.Sprintf(format, args...)}
}

// Stats is a cheap snapshot of the buffer's cursors.
type Stats struct {
	Size      uint32 // region size, header included
	Capacity  uint32 // bytes available to records
	Used      uint32 // bytes between begin and end, padding included
	Begin     uint32
	End       uint32
	Evictions uint64 // records dropped by this handle since Create or Open
}
