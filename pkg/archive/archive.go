// Package archive keeps recovered entries in a pebble database so they
// survive the ring buffer that held them being overwritten.
package archive

import (
	"context"
	"errors"
	"fmt"

	"github.com/cockroachdb/pebble"
	"github.com/segmentio/ksuid"

	"github.com/ssargent/prbuf/pkg/codec"
)

var ErrNotFound = errors.New("archive: entry not found")

// Archive stores encoded entries keyed by their KSUID, so iteration order is
// creation order.
type Archive struct {
	db    *pebble.DB
	codec *codec.EntryCodec
}

// Open opens or creates the archive in dir.
func Open(dir string) (*Archive, error) {
	db, err := pebble.Open(dir, &pebble.Options{})
	if err != nil {
		return nil, fmt.Errorf("failed to open archive: %w", err)
	}
	return &Archive{db: db, codec: codec.NewEntryCodec()}, nil
}

// Put stores e. Storing the same entry twice is harmless.
func (a *Archive) Put(e *codec.Entry) error {
	data, err := a.codec.Encode(e)
	if err != nil {
		return err
	}
	if err := a.db.Set(e.ID.Bytes(), data, pebble.Sync); err != nil {
		return fmt.Errorf("failed to store entry %s: %w", e.ID, err)
	}
	return nil
}

// Accept implements inspect.Sink.
func (a *Archive) Accept(_ context.Context, e *codec.Entry) error {
	return a.Put(e)
}

// Get returns the entry with the given id.
func (a *Archive) Get(id ksuid.KSUID) (*codec.Entry, error) {
	data, closer, err := a.db.Get(id.Bytes())
	if errors.Is(err, pebble.ErrNotFound) {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read entry %s: %w", id, err)
	}
	defer closer.Close()

	return a.decode(data)
}

// decode copies data first; pebble owns the slice it hands out.
func (a *Archive) decode(data []byte) (*codec.Entry, error) {
	e, err := a.codec.Decode(append([]byte(nil), data...))
	if err != nil {
		return nil, err
	}
	if err := e.Validate(); err != nil {
		return nil, err
	}
	return e, nil
}

// List returns up to limit entries, oldest first, starting after the given id.
// Pass ksuid.Nil to start at the beginning and limit <= 0 for no limit.
func (a *Archive) List(after ksuid.KSUID, limit int) ([]*codec.Entry, error) {
	iter, err := a.db.NewIter(&pebble.IterOptions{})
	if err != nil {
		return nil, fmt.Errorf("failed to iterate archive: %w", err)
	}
	defer iter.Close()

	var out []*codec.Entry
	valid := iter.First()
	if after != ksuid.Nil {
		valid = iter.SeekGE(after.Next().Bytes())
	}
	for ; valid; valid = iter.Next() {
		if limit > 0 && len(out) >= limit {
			break
		}
		e, err := a.decode(iter.Value())
		if err != nil {
			return nil, fmt.Errorf("archived entry %x: %w", iter.Key(), err)
		}
		out = append(out, e)
	}
	return out, iter.Error()
}

// Count returns the number of archived entries.
func (a *Archive) Count() (int, error) {
	iter, err := a.db.NewIter(&pebble.IterOptions{})
	if err != nil {
		return 0, fmt.Errorf("failed to iterate archive: %w", err)
	}
	defer iter.Close()

	n := 0
	for valid := iter.First(); valid; valid = iter.Next() {
		n++
	}
	return n, iter.Error()
}

// Delete removes an entry. Deleting a missing entry is not an error.
func (a *Archive) Delete(id ksuid.KSUID) error {
	return a.db.Delete(id.Bytes(), pebble.Sync)
}

func (a *Archive) Close() error {
	return a.db.Close()
}
