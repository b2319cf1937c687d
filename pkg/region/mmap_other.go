//go:build !unix

package region

// Mapped is unavailable on this platform.
type Mapped struct{ Heap }

// OpenMapped always fails with ErrMmapUnsupported.
func OpenMapped(path string, size int) (*Mapped, error) {
	return nil, ErrMmapUnsupported
}

func (m *Mapped) Created() bool { return false }
func (m *Mapped) Path() string  { return "" }
