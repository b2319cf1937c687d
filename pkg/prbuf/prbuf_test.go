package prbuf

import (
	"bytes"
	"fmt"
	"testing"
	"unsafe"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func appendRecord(t *testing.T, b *Buffer, payload []byte) {
	t.Helper()
	p := b.Prepare(len(payload))
	require.NotNil(t, p, "prepare %d bytes", len(payload))
	require.Len(t, p, len(payload))
	copy(p, payload)
	b.Commit()
}

func collect(b *Buffer) [][]byte {
	var out [][]byte
	it := b.Iterator()
	for p, ok := it.Next(); ok; p, ok = it.Next() {
		out = append(out, append([]byte(nil), p...))
	}
	return out
}

func reopen(t *testing.T, region []byte) *Buffer {
	t.Helper()
	cp := append([]byte(nil), region...)
	b, err := Open(cp)
	require.NoError(t, err)
	return b
}

func offsetIn(region, p []byte) uintptr {
	return uintptr(unsafe.Pointer(unsafe.SliceData(p))) - uintptr(unsafe.Pointer(&region[0]))
}

func TestCreate_Empty(t *testing.T) {
	region := make([]byte, 128)
	b := Create(region)

	assert.True(t, b.Empty())
	assert.Equal(t, uint32(128), b.Size())
	assert.Equal(t, uint32(112), b.Capacity())
	assert.Equal(t, 104, b.MaxPayload())
	assert.Empty(t, collect(b))
	assert.Equal(t, 0, b.Count())

	assert.Equal(t, VersionV1, readU32LE(region[0:4]))
	assert.Equal(t, uint32(128), readU32LE(region[4:8]))
	assert.Equal(t, BaseOffset, readU32LE(region[8:12]))
	assert.Equal(t, BaseOffset, readU32LE(region[12:16]))

	opened := reopen(t, region)
	assert.True(t, opened.Empty())
	assert.Empty(t, collect(opened))
}

func TestCreate_Panics(t *testing.T) {
	for _, n := range []int{0, 1, HeaderBytesV1} {
		n := n
		t.Run(fmt.Sprintf("%d bytes", n), func(t *testing.T) {
			assert.Panics(t, func() { Create(make([]byte, n)) })
		})
	}
}

func TestCreate_WithFill(t *testing.T) {
	region := make([]byte, 64)
	b := Create(region, WithFill('#'))
	require.True(t, b.Empty())

	assert.Equal(t, bytes.Repeat([]byte{'#'}, 48), region[16:])

	appendRecord(t, b, []byte("ab"))
	// length word, payload, then two untouched padding bytes
	assert.Equal(t, []byte{2, 0, 0, 0, 'a', 'b', '#', '#'}, region[16:24])
	assert.Equal(t, [][]byte{[]byte("ab")}, collect(reopen(t, region)))
}

func TestFourSmallRecords(t *testing.T) {
	region := make([]byte, 128)
	b := Create(region)

	want := [][]byte{[]byte("aaaa"), []byte("bbbb"), []byte("cccc"), []byte("dddd")}
	for _, p := range want {
		appendRecord(t, b, p)
	}

	assert.Equal(t, want, collect(b))
	st := b.Stats()
	assert.Equal(t, uint32(32), st.Used)
	assert.Equal(t, uint32(16), st.Begin)
	assert.Equal(t, uint32(48), st.End)
	assert.Zero(t, st.Evictions)

	opened := reopen(t, region)
	assert.Equal(t, want, collect(opened))
	assert.Equal(t, 4, opened.Count())
}

func TestPrepare_CapacityBound(t *testing.T) {
	b := Create(make([]byte, 128))
	largest := b.MaxPayload()
	require.Equal(t, 104, largest)

	assert.Nil(t, b.Prepare(largest+1))
	assert.Nil(t, b.Prepare(1<<30))
	assert.True(t, b.Empty(), "a refused prepare must not disturb the buffer")

	p := b.Prepare(largest)
	require.NotNil(t, p)
	copy(p, bytes.Repeat([]byte{'x'}, largest))
	b.Commit()

	got := collect(b)
	require.Len(t, got, 1)
	assert.Len(t, got[0], largest)
}

func TestPrepare_OversizedKeepsContents(t *testing.T) {
	region := make([]byte, 128)
	b := Create(region)
	appendRecord(t, b, []byte("keep"))

	before := append([]byte(nil), region...)
	assert.Nil(t, b.Prepare(200))
	assert.Equal(t, before, region)
}

func TestPrepare_NegativePanics(t *testing.T) {
	b := Create(make([]byte, 64))
	assert.Panics(t, func() { b.Prepare(-1) })
}

func TestCommit_WithoutPreparePanics(t *testing.T) {
	b := Create(make([]byte, 64))
	assert.PanicsWithValue(t, "prbuf: commit without prepare", func() { b.Commit() })

	appendRecord(t, b, []byte("x"))
	assert.Panics(t, func() { b.Commit() }, "second commit for one prepare")
}

func TestZeroCapacityRegions(t *testing.T) {
	for _, size := range []int{17, 18, 19, 20, 23} {
		size := size
		t.Run(fmt.Sprintf("%d bytes", size), func(t *testing.T) {
			region := make([]byte, size)
			b := Create(region)
			assert.Equal(t, -1, b.MaxPayload())
			assert.Nil(t, b.Prepare(0))

			opened := reopen(t, region)
			assert.True(t, opened.Empty())
		})
	}
}

func TestZeroLengthRecords(t *testing.T) {
	region := make([]byte, 24)
	b := Create(region)
	require.Equal(t, 0, b.MaxPayload())

	for i := 0; i < 3; i++ {
		p := b.Prepare(0)
		require.NotNil(t, p)
		require.Empty(t, p)
		b.Commit()

		got := collect(reopen(t, region))
		require.Len(t, got, 1)
		assert.Empty(t, got[0])
	}
	assert.Equal(t, uint64(2), b.Stats().Evictions)
}

func TestEviction_Wrap(t *testing.T) {
	region := make([]byte, 64)
	b := Create(region)

	steps := []struct {
		payload    []byte
		begin, end uint32
		evictions  uint64
		live       []string
	}{
		{bytes.Repeat([]byte("a"), 8), 16, 28, 0, []string{"a"}},
		{bytes.Repeat([]byte("b"), 8), 16, 40, 0, []string{"a", "b"}},
		{bytes.Repeat([]byte("c"), 12), 16, 56, 0, []string{"a", "b", "c"}},
		// does not fit in the tail: pad [56,64), wrap, drop a and b
		{bytes.Repeat([]byte("d"), 12), 40, 32, 2, []string{"c", "d"}},
	}

	for i, s := range steps {
		appendRecord(t, b, s.payload)

		st := b.Stats()
		assert.Equal(t, s.begin, st.Begin, "step %d begin", i)
		assert.Equal(t, s.end, st.End, "step %d end", i)
		assert.Equal(t, s.evictions, st.Evictions, "step %d evictions", i)

		var live []string
		for _, p := range collect(reopen(t, region)) {
			live = append(live, string(p[:1]))
		}
		assert.Equal(t, s.live, live, "step %d", i)
	}

	assert.Equal(t, (8-RecordHeaderBytes)|FakeFlag, readU32LE(region[56:60]))
}

func TestEviction_WholeBufferResetsCursors(t *testing.T) {
	region := make([]byte, 64)
	b := Create(region)

	for i := 0; i < 5; i++ {
		appendRecord(t, b, bytes.Repeat([]byte{byte('A' + i)}, 12))
	}
	// 16 byte records in a 48 byte pass: only two fit at once.
	got := collect(b)
	require.Len(t, got, 2)
	assert.Equal(t, byte('D'), got[0][0])
	assert.Equal(t, byte('E'), got[1][0])
	assert.Equal(t, uint64(3), b.Stats().Evictions)

	// A record larger than half the capacity evicts everything, after which
	// both cursors are back at the base.
	appendRecord(t, b, bytes.Repeat([]byte("z"), 36))
	st := b.Stats()
	assert.Equal(t, BaseOffset, st.Begin)
	assert.Equal(t, uint32(56), st.End)
	assert.Equal(t, [][]byte{bytes.Repeat([]byte("z"), 36)}, collect(reopen(t, region)))
}

func TestPayloadAlignment(t *testing.T) {
	region := make([]byte, 300)
	b := Create(region)

	for i := 0; i < 200; i++ {
		n := 1 + (i*7)%37
		p := b.Prepare(n)
		require.NotNil(t, p)
		assert.Zero(t, offsetIn(region, p)%RecordAlign, "payload %d at unaligned offset", i)
		b.Commit()
	}

	opened, err := Open(region)
	require.NoError(t, err)
	iter := opened.Iterator()
	for p, ok := iter.Next(); ok; p, ok = iter.Next() {
		assert.Zero(t, offsetIn(region, p)%RecordAlign)
	}
}

func TestOpen_Idempotent(t *testing.T) {
	region := make([]byte, 200)
	b := Create(region)
	for i := 0; i < 40; i++ {
		appendRecord(t, b, []byte(fmt.Sprintf("record-%02d", i)))
	}

	snapshot := append([]byte(nil), region...)
	first, err := Open(region)
	require.NoError(t, err)
	a := collect(first)

	second, err := Open(region)
	require.NoError(t, err)
	assert.Equal(t, a, collect(second))
	assert.Equal(t, snapshot, region, "open and iterate must not write")
}

func TestOpen_AfterUncommittedPrepare(t *testing.T) {
	region := make([]byte, 64)
	b := Create(region)
	appendRecord(t, b, bytes.Repeat([]byte("a"), 8))
	appendRecord(t, b, bytes.Repeat([]byte("b"), 8))
	appendRecord(t, b, bytes.Repeat([]byte("c"), 12))

	// The writer dies after Prepare has wrapped but before Commit.
	p := b.Prepare(12)
	require.NotNil(t, p)
	copy(p, bytes.Repeat([]byte("d"), 12))

	got := collect(reopen(t, region))
	require.Len(t, got, 1)
	assert.Equal(t, bytes.Repeat([]byte("c"), 12), got[0])
}

// TestSizePayloadCopiesGrid writes copies of a fixed size payload into regions
// of several sizes and checks which tail of the sequence survives.
func TestSizePayloadCopiesGrid(t *testing.T) {
	testCases := []struct {
		size, payload, copies int
		live                  int
	}{
		{128, 4, 16, 13},
		{128, 16, 32, 4},
		{128, 40, 64, 2},
		{256, 4, 16, 16},
		{256, 4, 32, 29},
		{256, 16, 64, 11},
		{256, 40, 32, 4},
		{512, 4, 32, 32},
		{512, 4, 64, 61},
		{512, 16, 32, 23},
		{512, 40, 16, 10},
	}

	for _, tc := range testCases {
		tc := tc
		t.Run(fmt.Sprintf("size=%d/payload=%d/copies=%d", tc.size, tc.payload, tc.copies), func(t *testing.T) {
			region := make([]byte, tc.size)
			b := Create(region, WithFill('#'))
			for i := 0; i < tc.copies; i++ {
				appendRecord(t, b, bytes.Repeat([]byte{byte(i)}, tc.payload))
			}

			opened := reopen(t, region)
			got := collect(opened)
			require.Len(t, got, tc.live)
			for j, p := range got {
				want := byte(tc.copies - tc.live + j)
				assert.Equal(t, bytes.Repeat([]byte{want}, tc.payload), p)
			}
			assert.Equal(t, uint64(tc.copies-tc.live), b.Stats().Evictions)
		})
	}
}
