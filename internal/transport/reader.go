// Package transport adapts byte-stream connections to engine read functions.
//
// The engine never opens or closes connections. These helpers wrap a
// connection the caller already owns.
package transport

import (
	"io"

	"github.com/roach88/ircevents/internal/engine"
)

// FromReader returns a read function reading up to max bytes from r.
//
// io.EOF is passed through, which the engine treats as end of stream.
// A zero-byte read with a nil error is retried, since io.Reader allows it
// without meaning end of stream.
func FromReader(r io.Reader) engine.ReadFunc {
	return func(max int) ([]byte, error) {
		buf := make([]byte, max)
		for {
			n, err := r.Read(buf)
			if n > 0 || err != nil {
				return buf[:n], err
			}
		}
	}
}
