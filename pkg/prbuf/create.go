package prbuf

import "fmt"

// CreateOption tunes Create.
type CreateOption func(*createOptions)

type createOptions struct {
	fill    bool
	fillVal byte
}

// WithFill poisons the whole region with val before the header is stamped, so
// bytes that were never written stand out in a dump.
func WithFill(val byte) CreateOption {
	return func(o *createOptions) {
		o.fill = true
		o.fillVal = val
	}
}

// Create initializes an empty buffer in region. Any previous content is
// abandoned. The region must be larger than the header and no larger than
// MaxRegionBytes; violating that is a programming error and panics.
//
// The capacity of the buffer is less than len(region): the header and any
// bytes past the last RecordAlign boundary are not available to records.
func Create(region []byte, opts ...CreateOption) *Buffer {
	if len(region) <= HeaderBytesV1 || len(region) > MaxRegionBytes {
		panic(fmt.Sprintf("prbuf: cannot create buffer in a region of %d bytes", len(region)))
	}

	var o createOptions
	for _, opt := range opts {
		opt(&o)
	}
	if o.fill {
		for i := range region {
			region[i] = o.fillVal
		}
	}

	b := newBuffer(region)
	b.v.putU32(offVersion, VersionV1)
	b.v.putU32(offSize, uint32(len(region)))
	b.v.setBegin(BaseOffset)
	b.v.setEnd(BaseOffset)
	return b
}
