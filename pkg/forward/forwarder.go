package forward

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/ssargent/prbuf/pkg/codec"
)

// Sender delivers one keyed message.
type Sender interface {
	Send(ctx context.Context, key, value []byte) error
}

// Forwarder is an inspect.Sink that sends each entry as a Kafka message keyed
// by its KSUID, with the encoded entry as the value. Entries of one id always
// land on the same partition.
type Forwarder struct {
	sender Sender
	codec  *codec.EntryCodec
	log    *zap.Logger
}

func NewForwarder(sender Sender, log *zap.Logger) *Forwarder {
	if log == nil {
		log = zap.NewNop()
	}
	return &Forwarder{sender: sender, codec: codec.NewEntryCodec(), log: log}
}

// Accept implements inspect.Sink.
func (f *Forwarder) Accept(ctx context.Context, e *codec.Entry) error {
	value, err := f.codec.Encode(e)
	if err != nil {
		return err
	}
	if err := f.sender.Send(ctx, []byte(e.ID.String()), value); err != nil {
		return fmt.Errorf("failed to forward entry %s: %w", e.ID, err)
	}
	f.log.Debug("forwarded entry", zap.Stringer("id", e.ID), zap.Stringer("kind", e.Kind))
	return nil
}
