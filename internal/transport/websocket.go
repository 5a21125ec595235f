package transport

import (
	"bytes"
	"errors"
	"fmt"
	"io"

	"github.com/gorilla/websocket"

	"github.com/roach88/ircevents/internal/engine"
)

// FromWebSocket returns a read function over an IRC-over-WebSocket connection.
//
// Each text or binary message carries one IRC line without a delimiter;
// the read function appends "\r\n" unless the message already ends with
// it, so the engine's default framer applies unchanged. Messages longer
// than max are returned across successive reads.
//
// A normal or going-away close frame ends the stream. Any other error is
// returned as a transport error.
func FromWebSocket(conn *websocket.Conn) engine.ReadFunc {
	var pending []byte
	return func(max int) ([]byte, error) {
		if len(pending) == 0 {
			msgType, data, err := conn.ReadMessage()
			if err != nil {
				if websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
					return nil, io.EOF
				}
				var closeErr *websocket.CloseError
				if errors.As(err, &closeErr) {
					return nil, fmt.Errorf("websocket closed: %w", err)
				}
				return nil, err
			}
			if msgType != websocket.TextMessage && msgType != websocket.BinaryMessage {
				return nil, fmt.Errorf("unexpected websocket message type %d", msgType)
			}
			pending = withDelimiter(data)
		}

		n := len(pending)
		if max > 0 && n > max {
			n = max
		}
		chunk := pending[:n]
		pending = pending[n:]
		return chunk, nil
	}
}

func withDelimiter(data []byte) []byte {
	if len(data) >= 2 && data[len(data)-2] == '\r' && data[len(data)-1] == '\n' {
		return data
	}
	out := make([]byte, 0, len(data)+2)
	out = append(out, data...)
	return append(out, '\r', '\n')
}

// WebSocketWriter adapts conn for outbound lines: each Write sends one
// text message with any trailing "\r\n" removed. It pairs with
// outbox.FlushHook, which writes one delimited line per call.
func WebSocketWriter(conn *websocket.Conn) io.Writer {
	return wsWriter{conn: conn}
}

type wsWriter struct {
	conn *websocket.Conn
}

func (w wsWriter) Write(p []byte) (int, error) {
	line := bytes.TrimSuffix(p, []byte("\r\n"))
	if err := w.conn.WriteMessage(websocket.TextMessage, line); err != nil {
		return 0, err
	}
	return len(p), nil
}
