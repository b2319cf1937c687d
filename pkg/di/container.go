// Package di provides dependency injection container
package di

import (
	"github.com/ssargent/prbuf/pkg/api" //nolint:depguard
	"github.com/ssargent/prbuf/pkg/region"
)

// RegionOpener opens the region a command works on. mmap selects a shared
// file mapping; otherwise the region is an in-memory slice.
type RegionOpener func(path string, size int, mmap bool) (region.Region, error)

// Container holds all the dependencies for the application
type Container struct {
	regionOpener  RegionOpener
	serverFactory api.ServerFactory
}

// NewContainer creates a new dependency injection container
func NewContainer() *Container {
	return &Container{
		regionOpener:  OpenRegion,
		serverFactory: api.NewServerFactory(),
	}
}

// OpenRegion is the default RegionOpener.
func OpenRegion(path string, size int, mmap bool) (region.Region, error) {
	if size <= 0 {
		return nil, region.ErrInvalidSize
	}
	if !mmap {
		return region.NewHeap(size), nil
	}
	m, err := region.OpenMapped(path, size)
	if err != nil {
		return nil, err
	}
	return m, nil
}

// GetRegionOpener returns the region opener
func (c *Container) GetRegionOpener() RegionOpener {
	return c.regionOpener
}

// GetServerFactory returns the server factory
func (c *Container) GetServerFactory() api.ServerFactory {
	return c.serverFactory
}

// SetRegionOpener allows overriding the region opener (for testing)
func (c *Container) SetRegionOpener(opener RegionOpener) {
	c.regionOpener = opener
}

// SetServerFactory allows overriding the server factory (for testing)
func (c *Container) SetServerFactory(factory api.ServerFactory) {
	c.serverFactory = factory
}
