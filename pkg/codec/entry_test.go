package codec

import (
	"bytes"
	"errors"
	"testing"
	"time"

	"github.com/segmentio/ksuid"
)

func TestEntryCodec_EncodeDecodeRoundTrip(t *testing.T) {
	codec := NewEntryCodec()

	testCases := []struct {
		name string
		kind Kind
		body []byte
	}{
		{
			name: "log line",
			kind: KindLog,
			body: []byte("listening on :8080"),
		},
		{
			name: "empty body",
			kind: KindMark,
			body: []byte(""),
		},
		{
			name: "binary sample",
			kind: KindSample,
			body: []byte{0x00, 0x01, 0x02, 0xFF, 0xFE},
		},
		{
			name: "large stack",
			kind: KindStack,
			body: bytes.Repeat([]byte("goroutine 1 [running]:\n"), 512),
		},
		{
			name: "unicode",
			kind: KindLog,
			body: []byte("🎯 démarrage terminé"),
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			in := NewEntry(tc.kind, tc.body)
			encoded, err := codec.Encode(in)
			if err != nil {
				t.Fatalf("Encode failed: %v", err)
			}
			if len(encoded) != codec.EncodedSize(len(tc.body)) {
				t.Fatalf("encoded %d bytes, want %d", len(encoded), codec.EncodedSize(len(tc.body)))
			}

			out, err := codec.Decode(encoded)
			if err != nil {
				t.Fatalf("Decode failed: %v", err)
			}
			if err := out.Validate(); err != nil {
				t.Fatalf("Entry validation failed: %v", err)
			}

			if !bytes.Equal(out.Body, tc.body) {
				t.Errorf("Body mismatch: got %q, want %q", out.Body, tc.body)
			}
			if out.Kind != tc.kind {
				t.Errorf("Kind mismatch: got %v, want %v", out.Kind, tc.kind)
			}
			if out.ID != in.ID {
				t.Errorf("ID mismatch: got %s, want %s", out.ID, in.ID)
			}
			if out.CRC32 != in.CRC32 {
				t.Errorf("CRC mismatch: got %08x, want %08x", out.CRC32, in.CRC32)
			}

			now := time.Now().UnixNano()
			if out.Timestamp > uint64(now) || out.Timestamp < uint64(now-int64(time.Minute)) {
				t.Errorf("Timestamp seems unreasonable: %d", out.Timestamp)
			}
		})
	}
}

func TestEntryCodec_EncodeInto(t *testing.T) {
	codec := NewEntryCodec()
	e := NewEntry(KindLog, []byte("hello"))

	t.Run("exact span", func(t *testing.T) {
		dst := make([]byte, e.Size())
		if err := codec.EncodeInto(dst, e); err != nil {
			t.Fatalf("EncodeInto failed: %v", err)
		}
		want, err := codec.Encode(e)
		if err != nil {
			t.Fatalf("Encode failed: %v", err)
		}
		if !bytes.Equal(dst, want) {
			t.Errorf("EncodeInto and Encode disagree")
		}
	})

	t.Run("wrong span size", func(t *testing.T) {
		for _, n := range []int{0, e.Size() - 1, e.Size() + 1} {
			err := codec.EncodeInto(make([]byte, n), e)
			if !errors.Is(err, ErrBufferSize) {
				t.Errorf("size %d: expected ErrBufferSize, got %v", n, err)
			}
		}
	})
}

func TestEntryCodec_CRCValidation(t *testing.T) {
	codec := NewEntryCodec()

	encode := func(t *testing.T) []byte {
		t.Helper()
		encoded, err := codec.Encode(NewEntry(KindLog, []byte("test body")))
		if err != nil {
			t.Fatalf("Encode failed: %v", err)
		}
		return encoded
	}

	t.Run("valid CRC passes validation", func(t *testing.T) {
		e, err := codec.Decode(encode(t))
		if err != nil {
			t.Fatalf("Decode failed: %v", err)
		}
		if err := e.Validate(); err != nil {
			t.Errorf("Valid entry failed validation: %v", err)
		}
	})

	positions := map[string]int{
		"crc":       0,
		"timestamp": 10,
		"id":        20,
		"body":      HeaderSize + 2,
	}
	for name, pos := range positions {
		pos := pos
		t.Run("corrupted "+name+" fails validation", func(t *testing.T) {
			encoded := encode(t)
			encoded[pos] ^= 0xFF

			e, err := codec.Decode(encoded)
			if err != nil {
				t.Fatalf("Decode failed: %v", err)
			}
			if err := e.Validate(); !errors.Is(err, ErrChecksum) {
				t.Errorf("expected ErrChecksum, got %v", err)
			}
		})
	}

	t.Run("unknown kind fails validation", func(t *testing.T) {
		encoded := encode(t)
		encoded[4] = 0x7F

		e, err := codec.Decode(encoded)
		if err != nil {
			t.Fatalf("Decode failed: %v", err)
		}
		if err := e.Validate(); !errors.Is(err, ErrUnknownKind) {
			t.Errorf("expected ErrUnknownKind, got %v", err)
		}
	})

	t.Run("reserved bytes rejected", func(t *testing.T) {
		encoded := encode(t)
		encoded[6] = 1
		if _, err := codec.Decode(encoded); err == nil {
			t.Error("expected decode error for reserved bytes")
		}
	})
}

func TestEntryCodec_DecodeShort(t *testing.T) {
	codec := NewEntryCodec()

	for _, n := range []int{0, 1, HeaderSize - 1} {
		_, err := codec.Decode(make([]byte, n))
		if !errors.Is(err, ErrShortEntry) {
			t.Errorf("len %d: expected ErrShortEntry, got %v", n, err)
		}
	}

	// A bare header is a valid entry with an empty body.
	e := &Entry{Kind: KindMark, ID: ksuid.New()}
	encoded, err := codec.Encode(e)
	if err != nil {
		t.Fatalf("Encode failed: %v", err)
	}
	if len(encoded) != HeaderSize {
		t.Fatalf("expected %d bytes, got %d", HeaderSize, len(encoded))
	}
	out, err := codec.Decode(encoded)
	if err != nil {
		t.Fatalf("Decode failed: %v", err)
	}
	if len(out.Body) != 0 {
		t.Errorf("expected empty body, got %q", out.Body)
	}
}

func TestParseKind(t *testing.T) {
	testCases := []struct {
		in   string
		want Kind
	}{
		{"stack", KindStack},
		{"sample", KindSample},
		{"LOG", KindLog},
		{" mark ", KindMark},
	}
	for _, tc := range testCases {
		got, err := ParseKind(tc.in)
		if err != nil {
			t.Errorf("ParseKind(%q) failed: %v", tc.in, err)
			continue
		}
		if got != tc.want {
			t.Errorf("ParseKind(%q) = %v, want %v", tc.in, got, tc.want)
		}
		if got.String() != tc.want.String() {
			t.Errorf("String mismatch for %v", got)
		}
	}

	if _, err := ParseKind("core"); !errors.Is(err, ErrUnknownKind) {
		t.Errorf("expected ErrUnknownKind, got %v", err)
	}
	if s := Kind(42).String(); s != "kind(42)" {
		t.Errorf("unexpected name for unknown kind: %s", s)
	}
}

func TestEntry_IDsSortByTime(t *testing.T) {
	first := NewEntry(KindMark, nil)
	first.ID, _ = ksuid.NewRandomWithTime(time.Unix(1700000000, 0))
	second := NewEntry(KindMark, nil)
	second.ID, _ = ksuid.NewRandomWithTime(time.Unix(1700000001, 0))

	if ksuid.Compare(first.ID, second.ID) >= 0 {
		t.Errorf("expected %s < %s", first.ID, second.ID)
	}
}
