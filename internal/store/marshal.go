package store

import (
	"fmt"

	"github.com/fxamacker/cbor/v2"

	"github.com/roach88/ircevents/internal/ircmsg"
)

// messageCBOR is the stored shape of a parsed message.
// Integer keys keep the encoding compact and stable across renames.
type messageCBOR struct {
	Tags    map[string]string `cbor:"1,keyasint,omitempty"`
	Source  string            `cbor:"2,keyasint,omitempty"`
	Command string            `cbor:"3,keyasint"`
	Params  []string          `cbor:"4,keyasint,omitempty"`
}

// encMode uses core deterministic encoding (sorted map keys) so the same
// message always produces the same bytes.
var encMode = func() cbor.EncMode {
	em, err := cbor.CoreDetEncOptions().EncMode()
	if err != nil {
		panic(fmt.Sprintf("cbor enc mode: %v", err))
	}
	return em
}()

// marshalMessage encodes a parsed message for the message_cbor column.
// A nil message (malformed line) is stored as NULL.
func marshalMessage(msg *ircmsg.Message) ([]byte, error) {
	if msg == nil {
		return nil, nil
	}
	data, err := encMode.Marshal(messageCBOR{
		Tags:    msg.Tags,
		Source:  msg.Source,
		Command: msg.Command,
		Params:  msg.Params,
	})
	if err != nil {
		return nil, fmt.Errorf("marshal message: %w", err)
	}
	return data, nil
}

// unmarshalMessage decodes the message_cbor column. NULL yields nil.
func unmarshalMessage(data []byte) (*ircmsg.Message, error) {
	if len(data) == 0 {
		return nil, nil
	}
	var m messageCBOR
	if err := cbor.Unmarshal(data, &m); err != nil {
		return nil, fmt.Errorf("unmarshal message: %w", err)
	}
	return &ircmsg.Message{
		Tags:    m.Tags,
		Source:  m.Source,
		Command: m.Command,
		Params:  m.Params,
	}, nil
}
