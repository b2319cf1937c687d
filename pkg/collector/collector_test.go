package collector

import (
	"bytes"
	"fmt"
	"sync"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ssargent/prbuf/pkg/codec"
	"github.com/ssargent/prbuf/pkg/logging"
	"github.com/ssargent/prbuf/pkg/prbuf"
	"github.com/ssargent/prbuf/pkg/region"
)

func newTestCollector(t *testing.T, size int, opts Options) (*Collector, *region.Heap) {
	t.Helper()
	r := region.NewHeap(size)
	if opts.Logger == nil {
		opts.Logger = logging.Nop()
	}
	c, err := New(r, opts)
	require.NoError(t, err)
	return c, r
}

// entries decodes every entry in a snapshot of mem.
func entries(t *testing.T, mem []byte) []*codec.Entry {
	t.Helper()
	buf, err := prbuf.Open(region.Snapshot(mem))
	require.NoError(t, err)

	dec := codec.NewEntryCodec()
	var out []*codec.Entry
	it := buf.Iterator()
	for p, ok := it.Next(); ok; p, ok = it.Next() {
		e, err := dec.Decode(p)
		require.NoError(t, err)
		require.NoError(t, e.Validate())
		out = append(out, e)
	}
	return out
}

func TestNew_RegionTooSmall(t *testing.T) {
	_, err := New(region.NewHeap(prbuf.HeaderBytesV1), Options{})
	assert.ErrorIs(t, err, ErrRegionSize)
}

func TestAppend(t *testing.T) {
	c, r := newTestCollector(t, 1024, Options{})

	id, err := c.Append(codec.KindLog, []byte("listening on :8080"))
	require.NoError(t, err)
	assert.NotEqual(t, "", id.String())
	assert.Equal(t, 1, c.Count())

	got := entries(t, r.Bytes())
	require.Len(t, got, 1)
	assert.Equal(t, id, got[0].ID)
	assert.Equal(t, codec.KindLog, got[0].Kind)
	assert.Equal(t, "listening on :8080", string(got[0].Body))
}

func TestAppend_Rejections(t *testing.T) {
	metrics := NewMetrics(prometheus.NewRegistry())

	t.Run("unknown kind", func(t *testing.T) {
		c, _ := newTestCollector(t, 1024, Options{Metrics: metrics})
		_, err := c.Append(codec.Kind(99), []byte("x"))
		assert.ErrorIs(t, err, codec.ErrUnknownKind)
		assert.Equal(t, 0, c.Count())
	})

	t.Run("body over configured limit", func(t *testing.T) {
		c, _ := newTestCollector(t, 1024, Options{MaxBodyBytes: 8, Metrics: metrics})
		assert.Equal(t, 8, c.MaxBody())

		_, err := c.Append(codec.KindLog, []byte("123456789"))
		assert.ErrorIs(t, err, ErrBodyTooLarge)
		_, err = c.Append(codec.KindLog, []byte("12345678"))
		assert.NoError(t, err)
	})

	t.Run("entry larger than region", func(t *testing.T) {
		// 48 bytes of capacity leave room for a 4 byte body.
		c, _ := newTestCollector(t, 64, Options{Metrics: metrics})
		assert.Equal(t, 4, c.MaxBody())

		_, err := c.Append(codec.KindLog, []byte("12345"))
		assert.ErrorIs(t, err, ErrNoSpace)
		_, err = c.Append(codec.KindLog, []byte("1234"))
		assert.NoError(t, err)
	})

	assert.Equal(t, float64(1), testutil.ToFloat64(metrics.rejectedTotal.WithLabelValues("kind")))
	assert.Equal(t, float64(1), testutil.ToFloat64(metrics.rejectedTotal.WithLabelValues("too_large")))
	assert.Equal(t, float64(1), testutil.ToFloat64(metrics.rejectedTotal.WithLabelValues("no_space")))
	assert.Equal(t, float64(2), testutil.ToFloat64(metrics.appendsTotal.WithLabelValues("log")))
}

func TestAppend_EvictsOldest(t *testing.T) {
	metrics := NewMetrics(prometheus.NewRegistry())
	// 240 bytes of capacity; each entry is 36+20 bytes, 60 with its length
	// word, so three fit at once.
	c, r := newTestCollector(t, 256, Options{Metrics: metrics})

	for i := 0; i < 20; i++ {
		_, err := c.Append(codec.KindSample, []byte(fmt.Sprintf("sample-%013d", i)))
		require.NoError(t, err)
	}

	got := entries(t, r.Bytes())
	require.Len(t, got, 3)
	for j, e := range got {
		assert.Equal(t, fmt.Sprintf("sample-%013d", 17+j), string(e.Body))
	}
	assert.Equal(t, uint64(17), c.Stats().Evictions)
	assert.Equal(t, float64(17), testutil.ToFloat64(metrics.evictionsTotal))
	assert.Equal(t, float64(20*56), testutil.ToFloat64(metrics.bytesTotal))
	assert.Equal(t, float64(240), testutil.ToFloat64(metrics.capacityBytes))
	assert.Equal(t, float64(c.Stats().Used), testutil.ToFloat64(metrics.usedBytes))
}

func TestRecover(t *testing.T) {
	c, r := newTestCollector(t, 1024, Options{})
	first, err := c.Append(codec.KindMark, []byte("before crash"))
	require.NoError(t, err)

	// A new process attaches to the same bytes.
	again, err := Recover(r, Options{Logger: logging.Nop()})
	require.NoError(t, err)
	assert.Equal(t, 1, again.Count())

	second, err := again.Append(codec.KindMark, []byte("after restart"))
	require.NoError(t, err)

	got := entries(t, r.Bytes())
	require.Len(t, got, 2)
	assert.Equal(t, first, got[0].ID)
	assert.Equal(t, second, got[1].ID)
}

func TestRecover_Corrupt(t *testing.T) {
	r := region.NewHeap(256)

	_, err := Recover(r, Options{})
	require.Error(t, err)
	assert.ErrorIs(t, err, prbuf.ErrCorrupt)
	assert.ErrorIs(t, err, prbuf.ErrBadVersion)

	c, err := Recover(r, Options{ResetOnCorrupt: true, Logger: logging.Nop()})
	require.NoError(t, err)
	assert.Equal(t, 0, c.Count())
	assert.True(t, c.Stats().Used == 0)
}

func TestNew_Fill(t *testing.T) {
	_, r := newTestCollector(t, 128, Options{Fill: true})
	assert.Equal(t, bytes.Repeat([]byte{'#'}, 112), r.Bytes()[16:])
}

func TestSnapshot_IsPrivate(t *testing.T) {
	c, r := newTestCollector(t, 512, Options{})
	_, err := c.Append(codec.KindLog, []byte("one"))
	require.NoError(t, err)

	snap := c.Snapshot()
	_, err = c.Append(codec.KindLog, []byte("two"))
	require.NoError(t, err)

	assert.Len(t, entries(t, snap), 1)
	assert.Len(t, entries(t, r.Bytes()), 2)
}

func TestAppend_Concurrent(t *testing.T) {
	c, r := newTestCollector(t, 4096, Options{})

	var wg sync.WaitGroup
	for g := 0; g < 8; g++ {
		wg.Add(1)
		go func(g int) {
			defer wg.Done()
			for i := 0; i < 50; i++ {
				_, err := c.Append(codec.KindLog, []byte(fmt.Sprintf("g%d-%d", g, i)))
				assert.NoError(t, err)
				if i%10 == 0 {
					_ = c.Snapshot()
				}
			}
		}(g)
	}
	wg.Wait()

	got := entries(t, r.Bytes())
	require.NotEmpty(t, got)
	assert.Equal(t, uint64(400), c.Stats().Evictions+uint64(len(got)))
}

func TestSyncClose(t *testing.T) {
	c, _ := newTestCollector(t, 128, Options{})
	assert.NoError(t, c.Sync())
	assert.NoError(t, c.Close())
}
