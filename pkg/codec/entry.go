package codec

import (
	"encoding/binary"
	"errors"
	"fmt"
	"hash/crc32"
	"strings"
	"time"

	"github.com/segmentio/ksuid"
)

// HeaderSize is the fixed part of an encoded entry:
// CRC32(4) + Kind(1) + Reserved(3) + Timestamp(8) + ID(20).
const HeaderSize = 4 + 1 + 3 + 8 + len(ksuid.KSUID{})

var (
	ErrShortEntry  = errors.New("codec: data too short for entry header")
	ErrChecksum    = errors.New("codec: checksum mismatch")
	ErrUnknownKind = errors.New("codec: unknown entry kind")
	ErrBufferSize  = errors.New("codec: destination does not match encoded size")
)

// Kind tells a reader how to interpret an entry body.
type Kind uint8

const (
	KindStack  Kind = iota + 1 // goroutine dump or panic trace
	KindSample                 // periodic runtime sample
	KindLog                    // log line
	KindMark                   // marker written by the application, e.g. "shutdown begins"
)

var kindNames = map[Kind]string{
	KindStack:  "stack",
	KindSample: "sample",
	KindLog:    "log",
	KindMark:   "mark",
}

func (k Kind) String() string {
	if s, ok := kindNames[k]; ok {
		return s
	}
	return fmt.Sprintf("kind(%d)", uint8(k))
}

// Valid reports whether k is one of the known kinds.
func (k Kind) Valid() bool {
	_, ok := kindNames[k]
	return ok
}

// ParseKind maps a kind name, as printed by String, back to a Kind.
func ParseKind(s string) (Kind, error) {
	s = strings.ToLower(strings.TrimSpace(s))
	for k, name := range kindNames {
		if name == s {
			return k, nil
		}
	}
	return 0, fmt.Errorf("%w: %q", ErrUnknownKind, s)
}

// Entry is one diagnostic record as stored in a ring buffer payload.
type Entry struct {
	CRC32     uint32      // CRC32 over everything after this field
	Kind      Kind        // what Body holds
	Timestamp uint64      // Unix timestamp in nanoseconds
	ID        ksuid.KSUID // time ordered unique id
	Body      []byte
}

// NewEntry creates an entry stamped with the current time and a fresh id.
func NewEntry(kind Kind, body []byte) *Entry {
	now := time.Now()
	id, err := ksuid.NewRandomWithTime(now)
	if err != nil {
		id = ksuid.New()
	}
	return &Entry{
		Kind:      kind,
		Timestamp: uint64(now.UnixNano()),
		ID:        id,
		Body:      body,
	}
}

// Size returns the total size of the entry when encoded.
func (e *Entry) Size() int {
	return HeaderSize + len(e.Body)
}

// Time returns the timestamp as a time.Time.
func (e *Entry) Time() time.Time {
	return time.Unix(0, int64(e.Timestamp))
}

// Validate checks the integrity of an entry using CRC32.
func (e *Entry) Validate() error {
	if !e.Kind.Valid() {
		return fmt.Errorf("%w: %d", ErrUnknownKind, e.Kind)
	}
	if sum := e.checksum(); e.CRC32 != sum {
		return fmt.Errorf("%w: %08x != %08x", ErrChecksum, e.CRC32, sum)
	}
	return nil
}

func (e *Entry) checksum() uint32 {
	var hdr [HeaderSize - 4]byte
	putHeader(hdr[:], e)
	crc := crc32.NewIEEE()
	_, _ = crc.Write(hdr[:])
	_, _ = crc.Write(e.Body)
	return crc.Sum32()
}

// putHeader writes everything after the CRC field. dst starts at the kind byte.
func putHeader(dst []byte, e *Entry) {
	dst[0] = byte(e.Kind)
	dst[1], dst[2], dst[3] = 0, 0, 0
	binary.LittleEndian.PutUint64(dst[4:12], e.Timestamp)
	copy(dst[12:12+len(ksuid.KSUID{})], e.ID.Bytes())
}

// EntryCodec handles serialization and deserialization of entries.
type EntryCodec struct{}

// NewEntryCodec creates a new entry codec instance.
func NewEntryCodec() *EntryCodec {
	return &EntryCodec{}
}

// EncodedSize returns the encoded size of an entry with a body of n bytes.
func (c *EntryCodec) EncodedSize(n int) int {
	return HeaderSize + n
}

// EncodeInto serializes e into dst, which must be exactly e.Size() bytes long.
// It is meant for writing straight into a span handed out by a ring buffer.
// e.CRC32 is updated.
//
// Format: [CRC32(4)][Kind(1)][Reserved(3)][Timestamp(8)][ID(20)][Body]
func (c *EntryCodec) EncodeInto(dst []byte, e *Entry) error {
	if len(dst) != e.Size() {
		return fmt.Errorf("%w: have %d, need %d", ErrBufferSize, len(dst), e.Size())
	}
	putHeader(dst[4:HeaderSize], e)
	copy(dst[HeaderSize:], e.Body)
	e.CRC32 = crc32.ChecksumIEEE(dst[4:])
	binary.LittleEndian.PutUint32(dst[0:4], e.CRC32)
	return nil
}

// Encode serializes e into a new buffer.
func (c *EntryCodec) Encode(e *Entry) ([]byte, error) {
	buf := make([]byte, e.Size())
	if err := c.EncodeInto(buf, e); err != nil {
		return nil, err
	}
	return buf, nil
}

// Decode deserializes data into an Entry. The whole of data past the header
// is the body, and Body aliases data. Decode does not check the CRC; call
// Validate for that.
func (c *EntryCodec) Decode(data []byte) (*Entry, error) {
	if len(data) < HeaderSize {
		return nil, fmt.Errorf("%w: %d < %d", ErrShortEntry, len(data), HeaderSize)
	}

	e := &Entry{}
	e.CRC32 = binary.LittleEndian.Uint32(data[0:4])
	e.Kind = Kind(data[4])
	if data[5] != 0 || data[6] != 0 || data[7] != 0 {
		return nil, fmt.Errorf("%w: reserved bytes set", ErrChecksum)
	}
	e.Timestamp = binary.LittleEndian.Uint64(data[8:16])
	id, err := ksuid.FromBytes(data[16:HeaderSize])
	if err != nil {
		return nil, fmt.Errorf("decode id: %w", err)
	}
	e.ID = id
	e.Body = data[HeaderSize:]

	return e, nil
}
