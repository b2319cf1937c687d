// Package region provides the byte regions ring buffers live in: plain heap
// slices for tests and short-lived processes, and shared file mappings that
// outlive the writer.
package region

import (
	"errors"
	"fmt"
	"os"
)

var (
	ErrSizeMismatch    = errors.New("region: existing file has a different size")
	ErrInvalidSize     = errors.New("region: size must be positive")
	ErrClosed          = errors.New("region: closed")
	ErrMmapUnsupported = errors.New("region: memory mapping not supported on this platform")
)

// Region is a fixed size byte range. Bytes returns the same slice for the
// lifetime of the region; it must not be used after Close.
type Region interface {
	Bytes() []byte
	// Sync makes written bytes durable where that means anything.
	Sync() error
	Close() error
}

// Heap is a Region backed by an ordinary slice.
type Heap struct {
	mem []byte
}

// NewHeap allocates a zeroed heap region.
func NewHeap(size int) *Heap {
	return &Heap{mem: make([]byte, size)}
}

// Wrap uses mem as a region without copying it.
func Wrap(mem []byte) *Heap {
	return &Heap{mem: mem}
}

func (h *Heap) Bytes() []byte { return h.mem }
func (h *Heap) Sync() error   { return nil }
func (h *Heap) Close() error  { return nil }

// Snapshot returns a private copy of src, for readers that must not observe a
// writer's later changes.
func Snapshot(src []byte) []byte {
	dst := make([]byte, len(src))
	copy(dst, src)
	return dst
}

// Load reads the whole file at path into memory. The result is a snapshot; it
// does not track later writes through a mapping.
func Load(path string) ([]byte, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read region file: %w", err)
	}
	return data, nil
}

// Exists reports whether a region file is present at path.
func Exists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}
