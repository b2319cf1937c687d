// Package collector appends diagnostic entries to a ring buffer region. It is
// the single writer prbuf requires: every mutation goes through one mutex.
package collector

import (
	"errors"
	"fmt"
	"sync"

	"github.com/segmentio/ksuid"
	"go.uber.org/zap"

	"github.com/ssargent/prbuf/pkg/codec"
	"github.com/ssargent/prbuf/pkg/prbuf"
	"github.com/ssargent/prbuf/pkg/region"
)

var (
	// ErrNoSpace means the entry is larger than the region can ever hold.
	ErrNoSpace = errors.New("collector: entry does not fit in region")
	// ErrBodyTooLarge means the body exceeds Options.MaxBodyBytes.
	ErrBodyTooLarge = errors.New("collector: body exceeds configured limit")
	// ErrRegionSize means the region cannot hold a ring buffer at all.
	ErrRegionSize = errors.New("collector: region size unusable")
)

// Options configure a Collector.
type Options struct {
	// MaxBodyBytes caps entry bodies; 0 leaves only the region's own limit.
	MaxBodyBytes int
	// ResetOnCorrupt makes Recover start a fresh buffer instead of failing
	// when the region does not validate.
	ResetOnCorrupt bool
	// Fill poisons a freshly created region with '#'.
	Fill    bool
	Logger  *zap.Logger
	Metrics *Metrics
}

// Collector is a ring buffer writer that stores codec entries.
type Collector struct {
	mu      sync.Mutex
	region  region.Region
	buf     *prbuf.Buffer
	codec   *codec.EntryCodec
	opts    Options
	log     *zap.Logger
	metrics *Metrics
}

// New starts an empty buffer in r, discarding whatever it held.
func New(r region.Region, opts Options) (*Collector, error) {
	mem := r.Bytes()
	if len(mem) <= prbuf.HeaderBytesV1 || len(mem) > prbuf.MaxRegionBytes {
		return nil, fmt.Errorf("%w: %d bytes", ErrRegionSize, len(mem))
	}

	var createOpts []prbuf.CreateOption
	if opts.Fill {
		createOpts = append(createOpts, prbuf.WithFill('#'))
	}
	c := newCollector(r, prbuf.Create(mem, createOpts...), opts)
	c.log.Info("created ring buffer",
		zap.Uint32("size", c.buf.Size()),
		zap.Uint32("capacity", c.buf.Capacity()),
		zap.Int("max_body", c.MaxBody()))
	return c, nil
}

// Recover continues writing to a buffer left in r by an earlier process.
// Records already in the region are kept. A region that fails validation is
// an error wrapping prbuf.ErrCorrupt unless opts.ResetOnCorrupt is set.
func Recover(r region.Region, opts Options) (*Collector, error) {
	buf, err := prbuf.Open(r.Bytes())
	if err != nil {
		if !opts.ResetOnCorrupt || !errors.Is(err, prbuf.ErrCorrupt) {
			return nil, fmt.Errorf("failed to recover region: %w", err)
		}
		logger(opts).Warn("discarding corrupt ring buffer", zap.Error(err))
		return New(r, opts)
	}

	c := newCollector(r, buf, opts)
	st := buf.Stats()
	c.log.Info("recovered ring buffer",
		zap.Uint32("size", st.Size),
		zap.Uint32("used", st.Used),
		zap.Int("records", buf.Count()))
	return c, nil
}

func logger(opts Options) *zap.Logger {
	if opts.Logger == nil {
		return zap.NewNop()
	}
	return opts.Logger
}

func newCollector(r region.Region, buf *prbuf.Buffer, opts Options) *Collector {
	c := &Collector{
		region:  r,
		buf:     buf,
		codec:   codec.NewEntryCodec(),
		opts:    opts,
		log:     logger(opts),
		metrics: opts.Metrics,
	}
	st := buf.Stats()
	c.metrics.recordUsage(st.Used, st.Capacity)
	return c
}

// MaxBody returns the largest body Append accepts, or -1 if none fits.
func (c *Collector) MaxBody() int {
	limit := c.buf.MaxPayload() - codec.HeaderSize
	if limit < 0 {
		return -1
	}
	if c.opts.MaxBodyBytes > 0 && c.opts.MaxBodyBytes < limit {
		return c.opts.MaxBodyBytes
	}
	return limit
}

// Append stores body as a new entry and returns its id. The oldest entries
// are evicted as needed.
func (c *Collector) Append(kind codec.Kind, body []byte) (ksuid.KSUID, error) {
	if !kind.Valid() {
		c.metrics.recordRejected("kind")
		return ksuid.Nil, fmt.Errorf("%w: %d", codec.ErrUnknownKind, kind)
	}
	if c.opts.MaxBodyBytes > 0 && len(body) > c.opts.MaxBodyBytes {
		c.metrics.recordRejected("too_large")
		return ksuid.Nil, fmt.Errorf("%w: %d > %d", ErrBodyTooLarge, len(body), c.opts.MaxBodyBytes)
	}

	e := codec.NewEntry(kind, body)

	c.mu.Lock()
	defer c.mu.Unlock()

	before := c.buf.Stats().Evictions
	p := c.buf.Prepare(e.Size())
	if p == nil {
		c.metrics.recordRejected("no_space")
		return ksuid.Nil, fmt.Errorf("%w: %d byte entry, region allows %d", ErrNoSpace, e.Size(), c.buf.MaxPayload())
	}
	if err := c.codec.EncodeInto(p, e); err != nil {
		// Unreachable while Prepare honours the requested size. The
		// reservation stays uncommitted and is reused by the next Prepare.
		return ksuid.Nil, fmt.Errorf("failed to encode entry: %w", err)
	}
	c.buf.Commit()

	st := c.buf.Stats()
	evicted := st.Evictions - before
	c.metrics.recordAppend(kind.String(), e.Size(), evicted, st.Used, st.Capacity)
	if evicted > 0 {
		c.log.Debug("evicted entries", zap.Uint64("count", evicted), zap.Stringer("id", e.ID))
	}
	return e.ID, nil
}

// Snapshot returns a private copy of the region taken between appends, safe to
// hand to readers.
func (c *Collector) Snapshot() []byte {
	c.mu.Lock()
	defer c.mu.Unlock()
	return region.Snapshot(c.region.Bytes())
}

// Stats returns the buffer's cursor state.
func (c *Collector) Stats() prbuf.Stats {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.buf.Stats()
}

// Count returns the number of live entries.
func (c *Collector) Count() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.buf.Count()
}

// Sync flushes the region to stable storage.
func (c *Collector) Sync() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.region.Sync()
}

// Close syncs and releases the region.
func (c *Collector) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if err := c.region.Sync(); err != nil {
		c.log.Warn("failed to sync region on close", zap.Error(err))
	}
	return c.region.Close()
}
