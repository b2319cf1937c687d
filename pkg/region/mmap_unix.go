//go:build unix

package region

import (
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"golang.org/x/sys/unix"
)

// Mapped is a Region backed by a MAP_SHARED file mapping. Writes land in the
// page cache immediately, so they survive the writing process crashing; Sync
// additionally flushes them to disk.
type Mapped struct {
	mu      sync.Mutex
	file    *os.File
	mem     []byte
	path    string
	created bool
}

// OpenMapped maps the file at path, creating it with the given size if it does
// not exist. An existing file must already be exactly size bytes.
func OpenMapped(path string, size int) (*Mapped, error) {
	if size <= 0 {
		return nil, fmt.Errorf("%w: %d", ErrInvalidSize, size)
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o750); err != nil {
		return nil, fmt.Errorf("failed to create region directory: %w", err)
	}

	created := false
	f, err := os.OpenFile(path, os.O_RDWR|os.O_CREATE|os.O_EXCL, 0o600)
	switch {
	case err == nil:
		created = true
		if err := f.Truncate(int64(size)); err != nil {
			f.Close()
			return nil, fmt.Errorf("failed to size region file: %w", err)
		}
	case os.IsExist(err):
		f, err = os.OpenFile(path, os.O_RDWR, 0)
		if err != nil {
			return nil, fmt.Errorf("failed to open region file: %w", err)
		}
		info, err := f.Stat()
		if err != nil {
			f.Close()
			return nil, fmt.Errorf("failed to stat region file: %w", err)
		}
		if info.Size() != int64(size) {
			f.Close()
			return nil, fmt.Errorf("%w: %s is %d bytes, want %d", ErrSizeMismatch, path, info.Size(), size)
		}
	default:
		return nil, fmt.Errorf("failed to create region file: %w", err)
	}

	mem, err := unix.Mmap(int(f.Fd()), 0, size, unix.PROT_READ|unix.PROT_WRITE, unix.MAP_SHARED)
	if err != nil {
		f.Close()
		return nil, fmt.Errorf("failed to map region file: %w", err)
	}

	return &Mapped{file: f, mem: mem, path: path, created: created}, nil
}

// Created reports whether OpenMapped made a new file, in which case the
// mapping is all zeroes.
func (m *Mapped) Created() bool { return m.created }

// Path returns the mapped file's path.
func (m *Mapped) Path() string { return m.path }

func (m *Mapped) Bytes() []byte { return m.mem }

func (m *Mapped) Sync() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.mem == nil {
		return ErrClosed
	}
	if err := unix.Msync(m.mem, unix.MS_SYNC); err != nil {
		return fmt.Errorf("failed to msync region: %w", err)
	}
	return nil
}

// Close unmaps the region and closes the file. It is safe to call twice.
func (m *Mapped) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.mem == nil {
		return nil
	}

	var firstErr error
	if err := unix.Munmap(m.mem); err != nil {
		firstErr = fmt.Errorf("failed to unmap region: %w", err)
	}
	m.mem = nil
	if err := m.file.Close(); err != nil && firstErr == nil {
		firstErr = fmt.Errorf("failed to close region file: %w", err)
	}
	return firstErr
}
