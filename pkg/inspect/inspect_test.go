package inspect

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ssargent/prbuf/pkg/codec"
	"github.com/ssargent/prbuf/pkg/prbuf"
)

// writeEntries builds a region holding one encoded entry per body.
func writeEntries(t *testing.T, size int, kinds []codec.Kind, bodies ...string) []byte {
	t.Helper()
	mem := make([]byte, size)
	buf := prbuf.Create(mem)
	c := codec.NewEntryCodec()
	for i, body := range bodies {
		e := codec.NewEntry(kinds[i%len(kinds)], []byte(body))
		p := buf.Prepare(e.Size())
		require.NotNil(t, p)
		require.NoError(t, c.EncodeInto(p, e))
		buf.Commit()
	}
	return mem
}

func TestRead(t *testing.T) {
	mem := writeEntries(t, 1024, []codec.Kind{codec.KindLog, codec.KindStack}, "a", "b", "c")

	report, err := Read(mem)
	require.NoError(t, err)
	assert.Equal(t, uint32(1024), report.Size)
	assert.Equal(t, uint32(1008), report.Capacity)
	assert.Equal(t, 3, report.Records)
	assert.Equal(t, 0, report.Invalid)
	require.Len(t, report.Entries, 3)
	assert.Equal(t, "a", string(report.Entries[0].Body))
	assert.Equal(t, "c", string(report.Entries[2].Body))

	logs := report.Filter(codec.KindLog)
	require.Len(t, logs, 2)
	assert.Equal(t, "b", string(report.Filter(codec.KindStack)[0].Body))
	assert.Len(t, report.Filter(0), 3)
}

func TestRead_InvalidEntries(t *testing.T) {
	mem := make([]byte, 512)
	buf := prbuf.Create(mem)

	// A raw payload that is not an entry at all.
	copy(buf.Prepare(5), "hello")
	buf.Commit()

	// An entry whose body was scribbled after encoding.
	e := codec.NewEntry(codec.KindLog, []byte("intact"))
	p := buf.Prepare(e.Size())
	require.NoError(t, codec.NewEntryCodec().EncodeInto(p, e))
	p[len(p)-1] ^= 0xFF
	buf.Commit()

	good := codec.NewEntry(codec.KindMark, []byte("ok"))
	p = buf.Prepare(good.Size())
	require.NoError(t, codec.NewEntryCodec().EncodeInto(p, good))
	buf.Commit()

	report, err := Read(mem)
	require.NoError(t, err)
	assert.Equal(t, 3, report.Records)
	assert.Equal(t, 2, report.Invalid)
	require.Len(t, report.Entries, 1)
	assert.Equal(t, good.ID, report.Entries[0].ID)
}

func TestRead_Corrupt(t *testing.T) {
	_, err := Read(make([]byte, 128))
	require.Error(t, err)
	assert.ErrorIs(t, err, prbuf.ErrCorrupt)
}

func TestDrain(t *testing.T) {
	mem := writeEntries(t, 1024, []codec.Kind{codec.KindLog}, "one", "two", "three")

	var got []string
	res, err := Drain(context.Background(), mem, SinkFunc(func(_ context.Context, e *codec.Entry) error {
		got = append(got, string(e.Body))
		return nil
	}))
	require.NoError(t, err)
	assert.Equal(t, DrainResult{Delivered: 3}, res)
	assert.Equal(t, []string{"one", "two", "three"}, got)
}

func TestDrain_StopsOnSinkError(t *testing.T) {
	mem := writeEntries(t, 1024, []codec.Kind{codec.KindLog}, "one", "two", "three")
	boom := errors.New("boom")

	n := 0
	res, err := Drain(context.Background(), mem, SinkFunc(func(_ context.Context, e *codec.Entry) error {
		n++
		if n == 2 {
			return boom
		}
		return nil
	}))
	assert.ErrorIs(t, err, boom)
	assert.Equal(t, 1, res.Delivered)
}

func TestDrain_Canceled(t *testing.T) {
	mem := writeEntries(t, 1024, []codec.Kind{codec.KindLog}, "one")
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	res, err := Drain(ctx, mem, SinkFunc(func(context.Context, *codec.Entry) error { return nil }))
	assert.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, 0, res.Delivered)
}

func TestView(t *testing.T) {
	text := View(codec.NewEntry(codec.KindLog, []byte("hello")))
	assert.Equal(t, "log", text.Kind)
	assert.Equal(t, "hello", text.Body)
	assert.Empty(t, text.Encoding)
	assert.Equal(t, 5, text.Size)

	bin := View(codec.NewEntry(codec.KindSample, []byte{0xff, 0xfe}))
	assert.Equal(t, "base64", bin.Encoding)
	assert.Equal(t, "//4=", bin.Body)

	assert.Len(t, Views(nil), 0)
}
