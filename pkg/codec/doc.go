// Package codec provides the entry format stored in prbuf ring buffers.
//
// A ring buffer stores opaque payloads. The collector writes each diagnostic
// (a stack dump, a runtime sample, a log line) as one encoded Entry, and the
// inspection tools decode them again after a crash. The format carries its own
// checksum so a torn or scribbled payload is detected even though the ring
// buffer's record chain is intact.
//
// # Entry Format
//
//	[CRC32(4)][Kind(1)][Reserved(3)][Timestamp(8)][ID(20)][Body]
//
// Fields:
//   - CRC32: IEEE CRC32 over every byte that follows it (little-endian)
//   - Kind: what the body holds, see Kind
//   - Reserved: must be zero
//   - Timestamp: Unix timestamp in nanoseconds (little-endian)
//   - ID: a KSUID, so ids sort by creation time
//   - Body: the rest of the payload
//
// There is no length field. The ring buffer already records the payload
// length, so everything after the 36 byte header is the body.
//
// # Usage
//
// Writing straight into a reserved ring buffer span:
//
//	c := codec.NewEntryCodec()
//	e := codec.NewEntry(codec.KindLog, []byte("listening on :8080"))
//	if p := buf.Prepare(e.Size()); p != nil {
//	    if err := c.EncodeInto(p, e); err != nil {
//	        return err
//	    }
//	    buf.Commit()
//	}
//
// Reading it back:
//
//	e, err := c.Decode(payload)
//	if err != nil {
//	    return err
//	}
//	if err := e.Validate(); err != nil {
//	    return err // entry is corrupted
//	}
//
// Decode does not copy: Entry.Body aliases the payload it was decoded from.
//
// # Thread Safety
//
// EntryCodec instances are safe for concurrent use.
package codec
