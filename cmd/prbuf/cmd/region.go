package cmd

import (
	"errors"
	"fmt"

	"github.com/ssargent/prbuf/pkg/collector"
	"github.com/ssargent/prbuf/pkg/prbuf"
	"github.com/ssargent/prbuf/pkg/region"
)

var errNoContainer = errors.New("dependency container not initialized")

// openCollector opens the configured region and resumes the buffer in it. A
// region that has never been written is started fresh.
func openCollector(e *env, metrics *collector.Metrics) (*collector.Collector, error) {
	if container == nil {
		return nil, errNoContainer
	}
	r, err := container.GetRegionOpener()(e.cfg.Region.Path, e.cfg.Region.Size, e.cfg.Region.Mmap)
	if err != nil {
		return nil, fmt.Errorf("failed to open region %s: %w", e.cfg.Region.Path, err)
	}

	opts := collector.Options{
		MaxBodyBytes:   e.cfg.Collector.MaxBodyBytes,
		ResetOnCorrupt: e.cfg.Collector.ResetOnCorrupt,
		Logger:         e.log,
		Metrics:        metrics,
	}
	var c *collector.Collector
	if blank(r.Bytes()) {
		c, err = collector.New(r, opts)
	} else {
		c, err = collector.Recover(r, opts)
	}
	if err != nil {
		_ = r.Close()
		return nil, err
	}
	return c, nil
}

func blank(mem []byte) bool {
	for _, b := range mem {
		if b != 0 {
			return false
		}
	}
	return true
}

// readRegion loads a frozen copy of the region file for the read-only tools.
func readRegion(e *env) ([]byte, error) {
	if !region.Exists(e.cfg.Region.Path) {
		return nil, fmt.Errorf("no region at %s (run 'prbuf init' first)", e.cfg.Region.Path)
	}
	mem, err := region.Load(e.cfg.Region.Path)
	if err != nil {
		return nil, err
	}
	if len(mem) <= prbuf.HeaderBytesV1 {
		return nil, fmt.Errorf("%s is too small to hold a ring buffer", e.cfg.Region.Path)
	}
	return mem, nil
}
