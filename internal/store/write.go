package store

import (
	"context"
	"fmt"

	"github.com/roach88/ircevents/internal/ircmsg"
)

// Session identifies one engine run.
type Session struct {
	ID        string
	Delimiter []byte
	SeqStart  int64
}

// LineRecord is one framed inbound line.
type LineRecord struct {
	SessionID string
	Seq       int64
	Raw       []byte
	Command   string
	Malformed bool
	Error     string
	Message   *ircmsg.Message // nil for malformed lines
}

// DispatchRecord is one successful handler call.
type DispatchRecord struct {
	SessionID   string
	Seq         int64
	HandlerID   int
	HandlerName string
}

// BeginSession inserts a session row.
// Uses ON CONFLICT(id) DO NOTHING so reopening a session is harmless.
func (s *Store) BeginSession(ctx context.Context, sess Session) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO sessions (id, delimiter, seq_start)
		VALUES (?, ?, ?)
		ON CONFLICT(id) DO NOTHING
	`, sess.ID, sess.Delimiter, sess.SeqStart)
	if err != nil {
		return fmt.Errorf("begin session: %w", err)
	}
	return nil
}

// WriteLine inserts a line record.
// Idempotent on (session_id, seq): duplicate writes are silently ignored.
// The session must exist (foreign key constraint).
func (s *Store) WriteLine(ctx context.Context, rec LineRecord) error {
	msgCBOR, err := marshalMessage(rec.Message)
	if err != nil {
		return fmt.Errorf("write line: %w", err)
	}

	malformed := 0
	if rec.Malformed {
		malformed = 1
	}

	_, err = s.db.ExecContext(ctx, `
		INSERT INTO lines (session_id, seq, raw, command, malformed, error, message_cbor)
		VALUES (?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(session_id, seq) DO NOTHING
	`,
		rec.SessionID,
		rec.Seq,
		rec.Raw,
		rec.Command,
		malformed,
		rec.Error,
		msgCBOR,
	)
	if err != nil {
		return fmt.Errorf("write line: %w", err)
	}
	return nil
}

// WriteDispatch inserts a dispatch record.
// Idempotent on (session_id, seq, handler_id).
func (s *Store) WriteDispatch(ctx context.Context, rec DispatchRecord) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO dispatches (session_id, seq, handler_id, handler_name)
		VALUES (?, ?, ?, ?)
		ON CONFLICT DO NOTHING
	`, rec.SessionID, rec.Seq, rec.HandlerID, rec.HandlerName)
	if err != nil {
		return fmt.Errorf("write dispatch: %w", err)
	}
	return nil
}
