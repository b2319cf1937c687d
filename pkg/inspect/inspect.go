// Package inspect reads ring buffer regions left behind by a collector:
// after a crash, from a snapshot of a live process, or from a file copied off
// a machine.
package inspect

import (
	"context"
	"encoding/base64"
	"fmt"
	"time"
	"unicode/utf8"

	"github.com/ssargent/prbuf/pkg/codec"
	"github.com/ssargent/prbuf/pkg/prbuf"
)

// Report is everything recovered from one region.
type Report struct {
	Size     uint32 `json:"size"`
	Capacity uint32 `json:"capacity"`
	Used     uint32 `json:"used"`
	Begin    uint32 `json:"begin"`
	End      uint32 `json:"end"`

	// Records counts ring buffer records, whether or not they decoded.
	Records int `json:"records"`
	// Invalid counts records that are not intact entries. They are not in
	// Entries.
	Invalid int `json:"invalid"`
	// Entries in the order they were written, oldest first.
	Entries []*codec.Entry `json:"-"`
}

// Read validates mem as a ring buffer and decodes every entry in it. A region
// that fails validation is returned as an error wrapping prbuf.ErrCorrupt and
// nothing is recovered from it.
//
// Entries alias mem; pass a snapshot if the region may still change.
func Read(mem []byte) (*Report, error) {
	buf, err := prbuf.Open(mem)
	if err != nil {
		return nil, fmt.Errorf("failed to open region: %w", err)
	}

	st := buf.Stats()
	report := &Report{
		Size:     st.Size,
		Capacity: st.Capacity,
		Used:     st.Used,
		Begin:    st.Begin,
		End:      st.End,
	}

	dec := codec.NewEntryCodec()
	it := buf.Iterator()
	for p, ok := it.Next(); ok; p, ok = it.Next() {
		report.Records++
		e, err := dec.Decode(p)
		if err != nil {
			report.Invalid++
			continue
		}
		if err := e.Validate(); err != nil {
			report.Invalid++
			continue
		}
		report.Entries = append(report.Entries, e)
	}
	return report, nil
}

// Filter returns the entries of the given kind. Kind 0 matches everything.
func (r *Report) Filter(kind codec.Kind) []*codec.Entry {
	if kind == 0 {
		return r.Entries
	}
	var out []*codec.Entry
	for _, e := range r.Entries {
		if e.Kind == kind {
			out = append(out, e)
		}
	}
	return out
}

// Sink receives recovered entries.
type Sink interface {
	Accept(ctx context.Context, e *codec.Entry) error
}

// SinkFunc adapts a function to Sink.
type SinkFunc func(ctx context.Context, e *codec.Entry) error

func (f SinkFunc) Accept(ctx context.Context, e *codec.Entry) error { return f(ctx, e) }

// DrainResult summarises a Drain.
type DrainResult struct {
	Delivered int
	Invalid   int
}

// Drain reads mem and hands every intact entry to sink, oldest first. It stops
// at the first sink error or when ctx is done.
func Drain(ctx context.Context, mem []byte, sink Sink) (DrainResult, error) {
	report, err := Read(mem)
	if err != nil {
		return DrainResult{}, err
	}

	res := DrainResult{Invalid: report.Invalid}
	for _, e := range report.Entries {
		if err := ctx.Err(); err != nil {
			return res, err
		}
		if err := sink.Accept(ctx, e); err != nil {
			return res, fmt.Errorf("failed to deliver entry %s: %w", e.ID, err)
		}
		res.Delivered++
	}
	return res, nil
}

// EntryView is the JSON form of an entry.
type EntryView struct {
	ID   string    `json:"id"`
	Kind string    `json:"kind"`
	Time time.Time `json:"time"`
	Size int       `json:"size"`
	// Body is the body as text, or base64 when it is not valid UTF-8.
	Body     string `json:"body"`
	Encoding string `json:"encoding,omitempty"`
}

// View converts e for display.
func View(e *codec.Entry) EntryView {
	v := EntryView{
		ID:   e.ID.String(),
		Kind: e.Kind.String(),
		Time: e.Time().UTC(),
		Size: len(e.Body),
	}
	if utf8.Valid(e.Body) {
		v.Body = string(e.Body)
	} else {
		v.Body = base64.StdEncoding.EncodeToString(e.Body)
		v.Encoding = "base64"
	}
	return v
}

// Views converts a slice of entries.
func Views(entries []*codec.Entry) []EntryView {
	out := make([]EntryView, 0, len(entries))
	for _, e := range entries {
		out = append(out, View(e))
	}
	return out
}
